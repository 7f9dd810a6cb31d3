package outcome_classifier

import (
	"context"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// TextScorer is the boundary to a statistical text classifier.  The core never
// loads or trains a model; a scorer is injected by the caller.
type TextScorer interface {
	Score(ctx context.Context, text string) (map[judgment.Outcome]float64, error)
}

// ScorerFunc adapts a plain function to TextScorer.
type ScorerFunc func(ctx context.Context, text string) (map[judgment.Outcome]float64, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, text string) (map[judgment.Outcome]float64, error) {
	return f(ctx, text)
}

// Predict returns the highest-scoring label.  Ties go to the label that comes
// first in judgment.AllOutcomes; labels outside the four are ignored.
func Predict(ctx context.Context, scorer TextScorer, text string) (judgment.Outcome, error) {
	if scorer == nil {
		return "", errors.New(errors.ErrCodeClassifierFailed, "no scorer configured")
	}
	scores, err := scorer.Score(ctx, text)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeClassifierFailed, "scoring failed")
	}

	var (
		best      judgment.Outcome
		bestScore float64
		found     bool
	)
	for _, label := range judgment.AllOutcomes {
		s, ok := scores[label]
		if !ok {
			continue
		}
		if !found || s > bestScore {
			best, bestScore, found = label, s, true
		}
	}
	if !found {
		return "", errors.New(errors.ErrCodeClassifierFailed, "scorer returned no known label")
	}
	return best, nil
}
