package e2e_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE2E_GraphFromStore(t *testing.T) {
	g, err := env.sdk.Graph().Get(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "graph_store", g.Source)
	assert.Equal(t, env.run.RunID, g.RunID)

	var ids []string
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"100/01", "200/02", "300/03", "400/04"}, ids)
	require.Len(t, g.Edges, 4)
	for _, e := range g.Edges {
		assert.Less(t, e.Source, e.Target)
		assert.Equal(t, e.Source+"--"+e.Target+": 1", e.Tooltip)
	}
	assert.Equal(t, 1, g.Stats.IsolatesRemoved)
}

func TestE2E_GraphByRunID(t *testing.T) {
	ctx := context.Background()
	g, err := env.sdk.Graph().Get(ctx, env.run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "exports", g.Source)

	fromStore, err := env.sdk.Graph().Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, fromStore.Nodes, g.Nodes)
	assert.Equal(t, fromStore.Edges, g.Edges)

	_, err = env.sdk.Graph().Get(ctx, "no-such-run")
	require.Error(t, err)
}

func TestE2E_Metrics(t *testing.T) {
	_, err := env.sdk.Records().Lookup(context.Background(), "100/01")
	require.NoError(t, err)

	resp, err := http.Get(env.baseURL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body),
		`caselaw_http_requests_total{method="GET",path="/api/v1/records/lookup",status_code="200"}`))
}

func TestE2E_CORSPreflight(t *testing.T) {
	req, err := http.NewRequest(http.MethodOptions, env.baseURL+"/api/v1/records", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://viewer.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://viewer.example.org", resp.Header.Get("Access-Control-Allow-Origin"))
}
