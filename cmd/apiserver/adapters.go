package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/neo4j"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/search/opensearch"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/storage/minio"
)

// Adapters for HealthHandler
type postgresHealthAdapter struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

func (a *postgresHealthAdapter) Name() string {
	return "postgres"
}

func (a *postgresHealthAdapter) Check(ctx context.Context) error {
	return postgres.HealthCheck(ctx, a.pool, a.log)
}

type neo4jHealthAdapter struct {
	driver *neo4j.Driver
}

func (a *neo4jHealthAdapter) Name() string {
	return "neo4j"
}

func (a *neo4jHealthAdapter) Check(ctx context.Context) error {
	return a.driver.HealthCheck(ctx)
}

type minioHealthAdapter struct {
	client *minio.Client
}

func (a *minioHealthAdapter) Name() string {
	return "minio"
}

func (a *minioHealthAdapter) Check(ctx context.Context) error {
	return a.client.HealthCheck(ctx)
}

type searchHealthAdapter struct {
	client *opensearch.Client
}

func (a *searchHealthAdapter) Name() string {
	return "opensearch"
}

func (a *searchHealthAdapter) Check(ctx context.Context) error {
	return a.client.HealthCheck(ctx)
}
