// Package repositories holds the Neo4j implementations of the graph
// repository interfaces.
package repositories

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/citation"
	driver "github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/neo4j"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

const (
	cypherClear = `
		MATCH (n) WHERE n:Judgment OR n:CitationGraph
		DETACH DELETE n`

	cypherMergeNodes = `
		UNWIND $nodes AS row
		MERGE (j:Judgment {id: row.id})
		SET j.respondent_state = row.respondent_state,
		    j.year = row.year,
		    j.title = row.title,
		    j.x = row.x,
		    j.y = row.y`

	cypherMergeEdges = `
		UNWIND $edges AS row
		MATCH (a:Judgment {id: row.source}), (b:Judgment {id: row.target})
		MERGE (a)-[r:CITES]->(b)
		SET r.weight = row.weight, r.tooltip = row.tooltip`

	cypherSaveMeta = `
		CREATE (g:CitationGraph)
		SET g += $meta`

	cypherLoadNodes = `
		MATCH (j:Judgment)
		RETURN j.id AS id, j.respondent_state AS respondent_state, j.year AS year,
		       j.title AS title, j.x AS x, j.y AS y
		ORDER BY id`

	cypherLoadEdges = `
		MATCH (a:Judgment)-[r:CITES]->(b:Judgment)
		RETURN a.id AS source, b.id AS target, r.weight AS weight, r.tooltip AS tooltip
		ORDER BY source, target`

	cypherLoadMeta = `
		MATCH (g:CitationGraph)
		RETURN properties(g) AS meta
		LIMIT 1`
)

// CitationGraphRepository stores one laid-out citation graph, replacing the
// previous one on every save.
type CitationGraphRepository struct {
	driver driver.DriverInterface
	log    logging.Logger
}

var _ citation.GraphRepository = (*CitationGraphRepository)(nil)

// NewCitationGraphRepository returns a repository over d.
func NewCitationGraphRepository(d driver.DriverInterface, log logging.Logger) *CitationGraphRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CitationGraphRepository{driver: d, log: log.Named("citation_graph_repo")}
}

// SaveView replaces the stored graph with v in one write transaction.
func (r *CitationGraphRepository) SaveView(ctx context.Context, v *citation.View) error {
	if v == nil {
		return errors.New(errors.ErrCodeValidation, "nil graph view")
	}
	nodes := make([]map[string]any, len(v.Nodes))
	for i, n := range v.Nodes {
		nodes[i] = map[string]any{
			"id":               n.ID,
			"respondent_state": n.RespondentState,
			"year":             int64(n.Year),
			"title":            n.Title,
			"x":                n.X,
			"y":                n.Y,
		}
	}
	edges := make([]map[string]any, len(v.Edges))
	for i, e := range v.Edges {
		edges[i] = map[string]any{
			"source":  e.Source,
			"target":  e.Target,
			"weight":  int64(e.Weight),
			"tooltip": e.Tooltip,
		}
	}

	_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		steps := []struct {
			cypher string
			params map[string]any
		}{
			{cypherClear, nil},
			{cypherMergeNodes, map[string]any{"nodes": nodes}},
			{cypherMergeEdges, map[string]any{"edges": edges}},
			{cypherSaveMeta, map[string]any{"meta": statsToMeta(v.RunID, v.Stats)}},
		}
		for _, s := range steps {
			res, err := tx.Run(ctx, s.cypher, s.params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	r.log.Info("Saved citation graph",
		logging.String("run_id", v.RunID),
		logging.Int("nodes", len(v.Nodes)),
		logging.Int("edges", len(v.Edges)),
	)
	return nil
}

// LoadView returns the stored graph with nodes sorted by id and edges by
// (source, target).  An empty store yields ErrCodeGraphEmpty.
func (r *CitationGraphRepository) LoadView(ctx context.Context) (*citation.View, error) {
	out, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		view := &citation.View{Nodes: []citation.NodeView{}, Edges: []citation.EdgeView{}}

		res, err := tx.Run(ctx, cypherLoadMeta, nil)
		if err != nil {
			return nil, err
		}
		meta, err := driver.CollectRecords(ctx, res, func(rec *neo4j.Record) (map[string]any, error) {
			m, _ := rec.Values[0].(map[string]any)
			return m, nil
		})
		if err != nil {
			return nil, err
		}
		if len(meta) == 0 {
			return nil, errors.New(errors.ErrCodeGraphEmpty, "no citation graph stored")
		}
		view.RunID, view.Stats = metaToStats(meta[0])

		res, err = tx.Run(ctx, cypherLoadNodes, nil)
		if err != nil {
			return nil, err
		}
		nodes, err := driver.CollectRecords(ctx, res, recordToNode)
		if err != nil {
			return nil, err
		}
		view.Nodes = append(view.Nodes, nodes...)

		res, err = tx.Run(ctx, cypherLoadEdges, nil)
		if err != nil {
			return nil, err
		}
		edges, err := driver.CollectRecords(ctx, res, recordToEdge)
		if err != nil {
			return nil, err
		}
		view.Edges = append(view.Edges, edges...)
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*citation.View), nil
}

func recordToNode(rec *neo4j.Record) (citation.NodeView, error) {
	if len(rec.Values) < 6 {
		return citation.NodeView{}, fmt.Errorf("judgment node: %d columns", len(rec.Values))
	}
	return citation.NodeView{
		ID:              asString(rec.Values[0]),
		RespondentState: asString(rec.Values[1]),
		Year:            int(asInt(rec.Values[2])),
		Title:           asString(rec.Values[3]),
		X:               asFloat(rec.Values[4]),
		Y:               asFloat(rec.Values[5]),
	}, nil
}

func recordToEdge(rec *neo4j.Record) (citation.EdgeView, error) {
	if len(rec.Values) < 4 {
		return citation.EdgeView{}, fmt.Errorf("cites edge: %d columns", len(rec.Values))
	}
	return citation.EdgeView{
		Source:  asString(rec.Values[0]),
		Target:  asString(rec.Values[1]),
		Weight:  int(asInt(rec.Values[2])),
		Tooltip: asString(rec.Values[3]),
	}, nil
}

func statsToMeta(runID string, s citation.Stats) map[string]any {
	return map[string]any{
		"run_id":                runID,
		"records":               int64(s.Records),
		"nodes_built":           int64(s.NodesBuilt),
		"edges_built":           int64(s.EdgesBuilt),
		"unresolved_references": int64(s.UnresolvedReferences),
		"self_references":       int64(s.SelfReferences),
		"isolates_removed":      int64(s.IsolatesRemoved),
		"low_degree_removed":    int64(s.LowDegreeRemoved),
		"layout_iterations":     int64(s.LayoutIterations),
		"layout_converged":      s.LayoutConverged,
	}
}

func metaToStats(m map[string]any) (string, citation.Stats) {
	converged, _ := m["layout_converged"].(bool)
	return asString(m["run_id"]), citation.Stats{
		Records:              int(asInt(m["records"])),
		NodesBuilt:           int(asInt(m["nodes_built"])),
		EdgesBuilt:           int(asInt(m["edges_built"])),
		UnresolvedReferences: int(asInt(m["unresolved_references"])),
		SelfReferences:       int(asInt(m["self_references"])),
		IsolatesRemoved:      int(asInt(m["isolates_removed"])),
		LowDegreeRemoved:     int(asInt(m["low_degree_removed"])),
		LayoutIterations:     int(asInt(m["layout_iterations"])),
		LayoutConverged:      converged,
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}
