package client

import (
	"context"
	"net/url"
)

// GraphClient reads laid-out citation graphs.
type GraphClient struct {
	client *Client
}

// Get returns the current graph, or the graph exported by runID when it is
// not empty.
func (g *GraphClient) Get(ctx context.Context, runID string) (*Graph, error) {
	var q url.Values
	if runID != "" {
		q = url.Values{"run_id": {runID}}
	}
	var graph Graph
	resp, err := g.client.get(ctx, "/api/v1/graph", q, &graph)
	if err != nil {
		return nil, err
	}
	graph.Source = resp.header.Get("X-Graph-Source")
	return &graph, nil
}
