package judgment

import (
	"context"
	"strings"

	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// MaxSearchLimit bounds SearchQuery.Limit.
const MaxSearchLimit = 100

// SearchQuery is a full-text query over stored records.  Text is matched
// against the title, keywords, law section and judgment text; the other
// fields filter exactly.
type SearchQuery struct {
	Text            string
	RespondentState string
	Outcome         Outcome
	Year            int
	Article         string
	Limit           int
	Offset          int
}

// Validate checks the query bounds.  An empty query with no filter is
// rejected.
func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.Text) == "" && q.RespondentState == "" && q.Outcome == "" && q.Year == 0 && q.Article == "" {
		return errors.New(errors.ErrCodeValidation, "search needs query text or at least one filter")
	}
	if q.Outcome != "" && !q.Outcome.IsValid() {
		return errors.New(errors.ErrCodeValidation, "unknown outcome").WithDetail("outcome=" + string(q.Outcome))
	}
	if q.Limit < 0 || q.Limit > MaxSearchLimit || q.Offset < 0 {
		return errors.New(errors.ErrCodeValidation, "search page is out of range")
	}
	return nil
}

// SearchHit is one matching record.  Highlights maps a field to the matching
// fragments.
type SearchHit struct {
	Record     *JudgmentRecord     `json:"record"`
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// SearchResult is one page of hits.  Total counts every match.
type SearchResult struct {
	Total int64       `json:"total"`
	Hits  []SearchHit `json:"hits"`
}

// SearchIndex is a full-text index over records.
type SearchIndex interface {
	// IndexRecords upserts records keyed by identifier.
	IndexRecords(ctx context.Context, records []*JudgmentRecord) error

	// Search runs q.  A zero Limit means the index default.
	Search(ctx context.Context, q SearchQuery) (*SearchResult, error)
}
