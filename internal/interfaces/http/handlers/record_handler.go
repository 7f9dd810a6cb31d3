package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// RecordHandler serves stored judgment records.
type RecordHandler struct {
	repo   judgment.Repository
	search judgment.SearchIndex
	log    logging.Logger
}

// NewRecordHandler creates a RecordHandler over repo.
func NewRecordHandler(repo judgment.Repository, log logging.Logger) *RecordHandler {
	return &RecordHandler{repo: repo, log: log.Named("records")}
}

// WithSearch enables GET /api/v1/records/search against idx.
func (h *RecordHandler) WithSearch(idx judgment.SearchIndex) *RecordHandler {
	h.search = idx
	return h
}

// RecordPage is the body of GET /api/v1/records.
type RecordPage struct {
	Records []*judgment.JudgmentRecord `json:"records"`
	Limit   int                        `json:"limit"`
	Offset  int                        `json:"offset"`
}

// List handles GET /api/v1/records.  Query parameters respondent_state,
// outcome and year filter; limit and offset page through identifiers in
// ascending order.  X-Total-Count carries the number of records matching the
// filters across all pages.
func (h *RecordHandler) List(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()

	records, err := h.repo.List(ctx, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if records == nil {
		records = []*judgment.JudgmentRecord{}
	}
	if total, err := h.repo.Count(ctx, filter); err == nil {
		c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	} else {
		h.log.Warn("Failed to count records", logging.Err(err))
	}
	c.JSON(http.StatusOK, RecordPage{Records: records, Limit: filter.Limit, Offset: filter.Offset})
}

// Lookup handles GET /api/v1/records/lookup?id=NNN/YY.  Application numbers
// contain a slash, so the identifier travels in the query string.
func (h *RecordHandler) Lookup(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		respondError(c, errors.New(errors.ErrCodeValidation, "id is required"))
		return
	}
	if !judgment.IsIdentifier(id) {
		respondError(c, errors.New(errors.ErrCodeIdentifierInvalid, "id is not an application number").
			WithDetail("id="+id))
		return
	}
	rec, err := h.repo.FindByIdentifier(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Search handles GET /api/v1/records/search.  q is matched against the
// record text fields; respondent_state, outcome, year and article filter.
// Without a configured index the endpoint answers 503.
func (h *RecordHandler) Search(c *gin.Context) {
	if h.search == nil {
		respondError(c, errors.New(errors.ErrCodeServiceUnavailable, "full-text search is not enabled"))
		return
	}
	q, err := parseSearchQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.search.Search(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.Hits == nil {
		res.Hits = []judgment.SearchHit{}
	}
	c.JSON(http.StatusOK, res)
}

func parseSearchQuery(c *gin.Context) (judgment.SearchQuery, error) {
	q := judgment.SearchQuery{
		Text:            c.Query("q"),
		RespondentState: c.Query("respondent_state"),
		Outcome:         judgment.Outcome(c.Query("outcome")),
		Article:         c.Query("article"),
	}
	var err error
	if q.Year, err = queryInt(c, "year", 0, 1, 9999); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(c, "limit", 0, 1, judgment.MaxSearchLimit); err != nil {
		return q, err
	}
	if q.Offset, err = queryInt(c, "offset", 0, 0, 10000); err != nil {
		return q, err
	}
	return q, q.Validate()
}

func parseListFilter(c *gin.Context) (judgment.ListFilter, error) {
	f := judgment.ListFilter{RespondentState: c.Query("respondent_state")}
	if o := c.Query("outcome"); o != "" {
		f.Outcome = judgment.Outcome(o)
		if !f.Outcome.IsValid() {
			return f, errors.New(errors.ErrCodeValidation, "outcome must be one of violation, no_violation, mixed, other").
				WithDetail("outcome=" + o)
		}
	}
	var err error
	if f.Year, err = queryInt(c, "year", 0, 1, 9999); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(c, "limit", defaultPageSize, 1, maxPageSize); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(c, "offset", 0, 0, 1<<30); err != nil {
		return f, err
	}
	return f, nil
}
