package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/citation"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockJudgmentRepository struct {
	mock.Mock
}

func (m *MockJudgmentRepository) SaveBatch(ctx context.Context, records []*judgment.JudgmentRecord) error {
	return m.Called(ctx, records).Error(0)
}

func (m *MockJudgmentRepository) FindByIdentifier(ctx context.Context, identifier string) (*judgment.JudgmentRecord, error) {
	args := m.Called(ctx, identifier)
	rec, _ := args.Get(0).(*judgment.JudgmentRecord)
	return rec, args.Error(1)
}

func (m *MockJudgmentRepository) List(ctx context.Context, filter judgment.ListFilter) ([]*judgment.JudgmentRecord, error) {
	args := m.Called(ctx, filter)
	recs, _ := args.Get(0).([]*judgment.JudgmentRecord)
	return recs, args.Error(1)
}

func (m *MockJudgmentRepository) Count(ctx context.Context, filter judgment.ListFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

type MockGraphRepository struct {
	mock.Mock
}

func (m *MockGraphRepository) SaveView(ctx context.Context, v *citation.View) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockGraphRepository) LoadView(ctx context.Context) (*citation.View, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).(*citation.View)
	return v, args.Error(1)
}

type MockSearchIndex struct {
	mock.Mock
}

func (m *MockSearchIndex) IndexRecords(ctx context.Context, records []*judgment.JudgmentRecord) error {
	return m.Called(ctx, records).Error(0)
}

func (m *MockSearchIndex) Search(ctx context.Context, q judgment.SearchQuery) (*judgment.SearchResult, error) {
	args := m.Called(ctx, q)
	res, _ := args.Get(0).(*judgment.SearchResult)
	return res, args.Error(1)
}

type fakeExports struct {
	data  map[string][]byte
	err   error
	runID string
}

func (f *fakeExports) GetExport(_ context.Context, runID, name string) ([]byte, error) {
	f.runID = runID
	if f.err != nil {
		return nil, f.err
	}
	return f.data[name], nil
}

func record(t *testing.T, id string, outcome judgment.Outcome) *judgment.JudgmentRecord {
	t.Helper()
	rec, err := judgment.NewJudgmentRecord(judgment.RecordInput{
		Identifier:      id,
		Title:           "CASE OF " + id,
		RespondentState: "Utopia",
		Outcome:         outcome,
	})
	require.NoError(t, err)
	return rec
}

func serve(r *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error
}
