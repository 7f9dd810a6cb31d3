package repositories

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/mock"

	infraNeo4j "github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/neo4j"
)

// MockInfraDriver runs every unit of work against Tx.
type MockInfraDriver struct {
	mock.Mock
	Tx *MockInfraTransaction
}

func (m *MockInfraDriver) ExecuteRead(ctx context.Context, work infraNeo4j.TransactionWork) (any, error) {
	m.Called(ctx)
	return work(m.Tx)
}

func (m *MockInfraDriver) ExecuteWrite(ctx context.Context, work infraNeo4j.TransactionWork) (any, error) {
	m.Called(ctx)
	return work(m.Tx)
}

func (m *MockInfraDriver) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockInfraDriver) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockInfraTransaction records every Run call.
type MockInfraTransaction struct {
	mock.Mock
}

func (m *MockInfraTransaction) Run(ctx context.Context, cypher string, params map[string]any) (infraNeo4j.Result, error) {
	args := m.Called(ctx, cypher, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(infraNeo4j.Result), args.Error(1)
}

// MockResult replays Records.
type MockResult struct {
	Records []*neo4j.Record
	current *neo4j.Record
	idx     int
	err     error
}

func (m *MockResult) Next(context.Context) bool {
	if m.idx < len(m.Records) {
		m.current = m.Records[m.idx]
		m.idx++
		return true
	}
	m.current = nil
	return false
}

func (m *MockResult) Record() *neo4j.Record { return m.current }

func (m *MockResult) Err() error { return m.err }

func (m *MockResult) Consume(context.Context) (neo4j.ResultSummary, error) { return nil, m.err }

// NewRecord builds a record with values in key order.
func NewRecord(keys []string, values []any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func setupMockDriver() (*MockInfraDriver, *MockInfraTransaction) {
	tx := new(MockInfraTransaction)
	d := &MockInfraDriver{Tx: tx}
	d.On("ExecuteRead", mock.Anything).Return()
	d.On("ExecuteWrite", mock.Anything).Return()
	return d, tx
}
