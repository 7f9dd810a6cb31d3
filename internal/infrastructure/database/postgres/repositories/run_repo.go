package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// RunSummary is the persisted outcome of one pipeline run.
type RunSummary struct {
	RunID      uuid.UUID     `json:"run_id"`
	Documents  int           `json:"documents"`
	Records    int           `json:"records"`
	Rejected   int           `json:"rejected"`
	CacheHits  int           `json:"cache_hits"`
	GraphNodes int           `json:"graph_nodes"`
	GraphEdges int           `json:"graph_edges"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}

// RunRepository records pipeline runs.
type RunRepository struct {
	db  DB
	log logging.Logger
}

// NewRunRepository returns a RunRepository over db.
func NewRunRepository(db DB, log logging.Logger) *RunRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RunRepository{db: db, log: log.Named("run_repo")}
}

// Save inserts s.  Saving the same run twice is a conflict.
func (r *RunRepository) Save(ctx context.Context, s RunSummary) error {
	_, err := executor(ctx, r.db).Exec(ctx, `
		INSERT INTO pipeline_runs (
			run_id, documents, records, rejected, cache_hits, graph_nodes, graph_edges, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.RunID, s.Documents, s.Records, s.Rejected, s.CacheHits, s.GraphNodes, s.GraphEdges, s.Duration.Milliseconds(),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save pipeline run").
			WithDetail("run_id=" + s.RunID.String())
	}
	r.log.Debug("Saved pipeline run", logging.String("run_id", s.RunID.String()))
	return nil
}

// Latest returns the most recent runs, newest first.
func (r *RunRepository) Latest(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := executor(ctx, r.db).Query(ctx, `
		SELECT run_id, documents, records, rejected, cache_hits, graph_nodes, graph_edges, duration_ms, finished_at
		FROM pipeline_runs ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list pipeline runs")
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s  RunSummary
			ms int64
		)
		if err := rows.Scan(&s.RunID, &s.Documents, &s.Records, &s.Rejected, &s.CacheHits,
			&s.GraphNodes, &s.GraphEdges, &ms, &s.FinishedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan pipeline run")
		}
		s.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate pipeline runs")
	}
	return out, nil
}
