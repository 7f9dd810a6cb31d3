package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/citation"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// MemoryJudgmentRepository is a judgment.Repository backed by a map.  List
// follows the PostgreSQL repository: identifier order and a default limit.
type MemoryJudgmentRepository struct {
	mu      sync.RWMutex
	records map[string]*judgment.JudgmentRecord
}

var _ judgment.Repository = (*MemoryJudgmentRepository)(nil)

// NewMemoryJudgmentRepository returns a repository holding records.
func NewMemoryJudgmentRepository(records ...*judgment.JudgmentRecord) *MemoryJudgmentRepository {
	r := &MemoryJudgmentRepository{records: make(map[string]*judgment.JudgmentRecord)}
	for _, rec := range records {
		r.records[rec.Identifier] = rec
	}
	return r
}

// DefaultListLimit applies when ListFilter.Limit is zero.
const DefaultListLimit = 100

func (r *MemoryJudgmentRepository) SaveBatch(_ context.Context, records []*judgment.JudgmentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		if rec == nil {
			return errors.New(errors.ErrCodeRecordInvalid, "nil record in batch")
		}
		r.records[rec.Identifier] = rec
	}
	return nil
}

func (r *MemoryJudgmentRepository) FindByIdentifier(_ context.Context, identifier string) (*judgment.JudgmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.records[identifier]; ok {
		return rec, nil
	}
	return nil, errors.New(errors.ErrCodeJudgmentNotFound, "judgment not found").
		WithDetail("identifier=" + identifier)
}

func (r *MemoryJudgmentRepository) List(_ context.Context, f judgment.ListFilter) ([]*judgment.JudgmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*judgment.JudgmentRecord
	for _, rec := range r.records {
		if matchesListFilter(rec, f) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })

	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryJudgmentRepository) Count(_ context.Context, f judgment.ListFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, rec := range r.records {
		if matchesListFilter(rec, f) {
			n++
		}
	}
	return n, nil
}

func matchesListFilter(rec *judgment.JudgmentRecord, f judgment.ListFilter) bool {
	switch {
	case f.RespondentState != "" && rec.RespondentState != f.RespondentState:
		return false
	case f.Outcome != "" && rec.Outcome != f.Outcome:
		return false
	case f.Year != 0 && rec.Year() != f.Year:
		return false
	}
	return true
}

// MemoryGraphRepository is a citation.GraphRepository holding one view.
type MemoryGraphRepository struct {
	mu   sync.RWMutex
	view *citation.View
}

var _ citation.GraphRepository = (*MemoryGraphRepository)(nil)

// SaveView replaces the stored view.
func (g *MemoryGraphRepository) SaveView(_ context.Context, v *citation.View) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.view = v
	return nil
}

// LoadView returns the stored view, or ErrCodeGraphEmpty.
func (g *MemoryGraphRepository) LoadView(context.Context) (*citation.View, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.view == nil {
		return nil, errors.New(errors.ErrCodeGraphEmpty, "no citation graph stored")
	}
	return g.view, nil
}

// MemorySearchIndex is a judgment.SearchIndex that matches every word of the
// query text case-insensitively against title, keywords, law section and
// text.  Each matched field adds one to the score.
type MemorySearchIndex struct {
	mu      sync.RWMutex
	records map[string]*judgment.JudgmentRecord
}

var _ judgment.SearchIndex = (*MemorySearchIndex)(nil)

// NewMemorySearchIndex returns an empty index.
func NewMemorySearchIndex() *MemorySearchIndex {
	return &MemorySearchIndex{records: make(map[string]*judgment.JudgmentRecord)}
}

func (s *MemorySearchIndex) IndexRecords(_ context.Context, records []*judgment.JudgmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if rec == nil {
			return errors.New(errors.ErrCodeRecordInvalid, "nil record in batch")
		}
		s.records[rec.Identifier] = rec
	}
	return nil
}

func (s *MemorySearchIndex) Search(_ context.Context, q judgment.SearchQuery) (*judgment.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	words := strings.Fields(strings.ToLower(q.Text))

	s.mu.RLock()
	var hits []judgment.SearchHit
	for _, rec := range s.records {
		if !matchesFilters(rec, q) {
			continue
		}
		score, ok := scoreRecord(rec, words)
		if !ok {
			continue
		}
		hits = append(hits, judgment.SearchHit{Record: rec, Score: score})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.Identifier < hits[j].Record.Identifier
	})
	res := &judgment.SearchResult{Total: int64(len(hits)), Hits: []judgment.SearchHit{}}
	if q.Offset >= len(hits) {
		return res, nil
	}
	hits = hits[q.Offset:]
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	if limit < len(hits) {
		hits = hits[:limit]
	}
	res.Hits = hits
	return res, nil
}

func matchesFilters(rec *judgment.JudgmentRecord, q judgment.SearchQuery) bool {
	if q.RespondentState != "" && rec.RespondentState != q.RespondentState {
		return false
	}
	if q.Outcome != "" && rec.Outcome != q.Outcome {
		return false
	}
	if q.Year != 0 && rec.Year() != q.Year {
		return false
	}
	if q.Article != "" {
		found := false
		for _, a := range rec.Articles {
			found = found || a == q.Article
		}
		return found
	}
	return true
}

func scoreRecord(rec *judgment.JudgmentRecord, words []string) (float64, bool) {
	if len(words) == 0 {
		return 1, true
	}
	fields := []string{rec.Title, strings.Join(rec.Keywords, " "), rec.LawSection, rec.Text}
	var score float64
	for _, w := range words {
		matched := false
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), w) {
				score++
				matched = true
			}
		}
		if !matched {
			return 0, false
		}
	}
	return score, true
}
