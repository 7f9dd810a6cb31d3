package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/citation"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/internal/testutil"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

func sampleView(runID string) *citation.View {
	return &citation.View{
		RunID: runID,
		Nodes: []citation.NodeView{
			{ID: "100/01", RespondentState: "Utopia", Year: 2003, X: -0.5, Y: 0.25},
			{ID: "200/02", RespondentState: "Utopia", Year: 2003, X: 0.5, Y: -0.25},
		},
		Edges: []citation.EdgeView{
			{Source: "100/01", Target: "200/02", Weight: 2, Tooltip: citation.EdgeTooltip("100/01", "200/02", 2)},
		},
	}
}

func newGraphEngine(h *GraphHandler) *gin.Engine {
	r := gin.New()
	r.GET("/api/v1/graph", h.Get)
	return r
}

func TestGraphHandler_FromGraphStore(t *testing.T) {
	store := new(MockGraphRepository)
	store.On("LoadView", mock.Anything).Return(sampleView("run-1"), nil)

	w := serve(newGraphEngine(NewGraphHandler(store, nil, logging.NewNopLogger())), "/api/v1/graph")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "graph_store", w.Header().Get(HeaderGraphSource))

	var v citation.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, "run-1", v.RunID)
	assert.Equal(t, "100/01--200/02: 2", v.Edges[0].Tooltip)
}

func TestGraphHandler_FallsBackToExports(t *testing.T) {
	store := new(MockGraphRepository)
	store.On("LoadView", mock.Anything).Return(nil, errors.New(errors.ErrCodeGraphEmpty, "no citation graph stored"))
	data, err := json.Marshal(sampleView("run-2"))
	require.NoError(t, err)
	exports := &fakeExports{data: map[string][]byte{"graph.json": data}}

	log := testutil.NewMockLogger()
	w := serve(newGraphEngine(NewGraphHandler(store, exports, log)), "/api/v1/graph")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "exports", w.Header().Get(HeaderGraphSource))
	assert.Equal(t, "", exports.runID, "latest run is read")

	require.True(t, log.HasMessage("warn", "Graph store could not answer, falling back to exports"))
	msg := log.GetMessages()[0]
	assert.Equal(t, "graph", msg.Logger)
	code, _ := msg.Field(logging.FieldErrorCode)
	assert.Equal(t, "GRF_001", code)
}

func TestGraphHandler_RunIDReadsExports(t *testing.T) {
	store := new(MockGraphRepository)
	data, err := json.Marshal(sampleView("run-3"))
	require.NoError(t, err)
	exports := &fakeExports{data: map[string][]byte{"graph.json": data}}

	w := serve(newGraphEngine(NewGraphHandler(store, exports, logging.NewNopLogger())), "/api/v1/graph?run_id=run-3")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "run-3", exports.runID)
	store.AssertNotCalled(t, "LoadView", mock.Anything)
}

func TestGraphHandler_Errors(t *testing.T) {
	log := logging.NewNopLogger()

	w := serve(newGraphEngine(NewGraphHandler(nil, nil, log)), "/api/v1/graph")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	store := new(MockGraphRepository)
	store.On("LoadView", mock.Anything).Return(nil, errors.New(errors.ErrCodeGraphEmpty, "no citation graph stored"))
	w = serve(newGraphEngine(NewGraphHandler(store, nil, log)), "/api/v1/graph")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "GRF_001", decodeError(t, w).Code)

	w = serve(newGraphEngine(NewGraphHandler(store, nil, log)), "/api/v1/graph?run_id=abc")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	exports := &fakeExports{err: errors.New(errors.ErrCodeNotFound, "object not found").WithDetail("key=exports/x/graph.json")}
	w = serve(newGraphEngine(NewGraphHandler(nil, exports, log)), "/api/v1/graph?run_id=x")
	assert.Equal(t, http.StatusNotFound, w.Code)

	bad := &fakeExports{data: map[string][]byte{"graph.json": []byte("{")}}
	w = serve(newGraphEngine(NewGraphHandler(nil, bad, log)), "/api/v1/graph")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "serialization failed", decodeError(t, w).Message)
}
