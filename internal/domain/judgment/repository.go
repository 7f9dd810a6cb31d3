package judgment

import "context"

// ListFilter narrows Repository.List.  Zero values mean "no filter".
type ListFilter struct {
	RespondentState string
	Outcome         Outcome
	Year            int
	Limit           int
	Offset          int
}

// Repository persists normalized judgment records.
type Repository interface {
	// SaveBatch upserts records keyed by identifier.
	SaveBatch(ctx context.Context, records []*JudgmentRecord) error

	// FindByIdentifier returns the record or an error carrying
	// ErrCodeJudgmentNotFound.
	FindByIdentifier(ctx context.Context, identifier string) (*JudgmentRecord, error)

	// List returns records ordered by identifier.
	List(ctx context.Context, filter ListFilter) ([]*JudgmentRecord, error)

	// Count returns the number of stored records matching filter.  Limit
	// and Offset are ignored.
	Count(ctx context.Context, filter ListFilter) (int64, error)
}
