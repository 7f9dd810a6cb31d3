// Package citation holds the undirected, weighted citation graph between
// judgments and the views exported to the presentation layer.
package citation

import (
	"fmt"
	"sort"

	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// Node is a judgment in the citation graph.  External nodes are cited
// identifiers that are not part of the dataset and carry no attributes.
type Node struct {
	ID              string `json:"id"`
	RespondentState string `json:"respondent_state"`
	Year            int    `json:"year"`
	Title           string `json:"title"`
	External        bool   `json:"external,omitempty"`
}

// EdgeKey is the canonical undirected key of an edge: A < B.
type EdgeKey struct {
	A string
	B string
}

// NewEdgeKey orders the endpoints.  Self-loops are rejected.
func NewEdgeKey(x, y string) (EdgeKey, error) {
	if x == y {
		return EdgeKey{}, errors.New(errors.ErrCodeGraphInvalidEdge, "self-loop").WithDetail("node=" + x)
	}
	if x > y {
		x, y = y, x
	}
	return EdgeKey{A: x, B: y}, nil
}

// Edge is an undirected weighted edge.
type Edge struct {
	Key    EdgeKey
	Weight int
}

// Graph is an undirected weighted graph with an adjacency index.  It is not
// safe for concurrent mutation.
type Graph struct {
	nodes map[string]*Node
	edges map[EdgeKey]int
	adj   map[string]map[string]struct{}
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[EdgeKey]int),
		adj:   make(map[string]map[string]struct{}),
	}
}

// UpsertNode inserts n or replaces the attributes of an existing node with
// the same ID.  Incident edges are kept.
func (g *Graph) UpsertNode(n Node) {
	node := n
	g.nodes[n.ID] = &node
	if _, ok := g.adj[n.ID]; !ok {
		g.adj[n.ID] = make(map[string]struct{})
	}
}

// HasNode reports whether id is in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns a copy of the node with id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// AddWeight increments the weight of the edge between x and y by delta,
// creating it when absent.  Both endpoints must exist.
func (g *Graph) AddWeight(x, y string, delta int) error {
	if delta < 1 {
		return errors.Newf(errors.ErrCodeGraphInvalidEdge, "weight increment %d must be positive", delta)
	}
	key, err := NewEdgeKey(x, y)
	if err != nil {
		return err
	}
	for _, id := range []string{x, y} {
		if !g.HasNode(id) {
			return errors.New(errors.ErrCodeGraphInvalidEdge, "unknown endpoint").WithDetail("node=" + id)
		}
	}
	g.edges[key] += delta
	g.adj[x][y] = struct{}{}
	g.adj[y][x] = struct{}{}
	return nil
}

// Weight returns the weight of the edge between x and y, 0 when absent.
func (g *Graph) Weight(x, y string) int {
	key, err := NewEdgeKey(x, y)
	if err != nil {
		return 0
	}
	return g.edges[key]
}

// Degree is the number of distinct neighbours of id.
func (g *Graph) Degree(id string) int {
	return len(g.adj[id])
}

// Neighbors returns the sorted neighbours of id.
func (g *Graph) Neighbors(id string) []string {
	out := make([]string, 0, len(g.adj[id]))
	for n := range g.adj[id] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// RemoveNode deletes id and its incident edges.
func (g *Graph) RemoveNode(id string) {
	for n := range g.adj[id] {
		key, _ := NewEdgeKey(id, n)
		delete(g.edges, key)
		delete(g.adj[n], id)
	}
	delete(g.adj, id)
	delete(g.nodes, id)
}

// NodeIDs returns every node ID in ascending order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Edges returns every edge ordered by (A, B).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for k, w := range g.edges {
		out = append(out, Edge{Key: k, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.A != out[j].Key.A {
			return out[i].Key.A < out[j].Key.A
		}
		return out[i].Key.B < out[j].Key.B
	})
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Degrees snapshots the degree of every node.
func (g *Graph) Degrees() map[string]int {
	out := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		out[id] = len(g.adj[id])
	}
	return out
}

// RemoveIsolates deletes every node of degree zero and returns how many were
// removed.
func (g *Graph) RemoveIsolates() int {
	removed := 0
	for _, id := range g.NodeIDs() {
		if g.Degree(id) == 0 {
			g.RemoveNode(id)
			removed++
		}
	}
	return removed
}

// String summarises the graph size.
func (g *Graph) String() string {
	return fmt.Sprintf("citation.Graph{nodes=%d edges=%d}", g.NodeCount(), g.EdgeCount())
}
