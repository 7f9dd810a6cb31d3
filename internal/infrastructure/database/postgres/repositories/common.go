// Package repositories holds the PostgreSQL implementations of the domain
// repository interfaces.
package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/postgres"
)

// DB is the subset of pgxpool.Pool and pgx.Tx the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// scanner abstracts pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

var _ DB = (*pgxpool.Pool)(nil)

// executor returns the transaction carried by ctx, or db.
func executor(ctx context.Context, db DB) DB {
	if tx, ok := postgres.TxFromContext(ctx); ok {
		return tx
	}
	return db
}

// nonNil keeps empty lists as '{}' rather than NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
