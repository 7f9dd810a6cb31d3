package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/citation"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// HeaderGraphSource names the store a graph response was read from.
const HeaderGraphSource = "X-Graph-Source"

// ExportSource reads exported run artifacts.
type ExportSource interface {
	GetExport(ctx context.Context, runID, name string) ([]byte, error)
}

// GraphHandler serves the laid-out citation graph.
type GraphHandler struct {
	store   citation.GraphRepository
	exports ExportSource
	log     logging.Logger
}

// NewGraphHandler creates a GraphHandler.  Either source may be nil.
func NewGraphHandler(store citation.GraphRepository, exports ExportSource, log logging.Logger) *GraphHandler {
	return &GraphHandler{store: store, exports: exports, log: log.Named("graph")}
}

// Get handles GET /api/v1/graph[?run_id=].  Without run_id the graph store
// answers first and the latest exported graph.json is the fallback.  With
// run_id only the exports can answer, since the graph store keeps one graph.
func (h *GraphHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Query("run_id")

	if h.store == nil && h.exports == nil {
		respondError(c, errors.New(errors.ErrCodeServiceUnavailable, "no graph source is configured"))
		return
	}

	if runID == "" && h.store != nil {
		view, err := h.store.LoadView(ctx)
		if err == nil {
			c.Header(HeaderGraphSource, "graph_store")
			c.JSON(http.StatusOK, view)
			return
		}
		if h.exports == nil {
			respondError(c, err)
			return
		}
		h.log.Warn("Graph store could not answer, falling back to exports",
			logging.Err(err), logging.String(logging.FieldErrorCode, string(errors.GetCode(err))))
	}

	if h.exports == nil {
		respondError(c, errors.New(errors.ErrCodeValidation, "run_id needs object storage to be configured"))
		return
	}
	data, err := h.exports.GetExport(ctx, runID, minio.ArtifactGraphJSON)
	if err != nil {
		respondError(c, err)
		return
	}
	var view citation.View
	if err := json.Unmarshal(data, &view); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeSerialization, "stored graph is not valid JSON"))
		return
	}
	c.Header(HeaderGraphSource, "exports")
	c.JSON(http.StatusOK, &view)
}
