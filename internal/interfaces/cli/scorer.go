package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/CaseLaw-Intelligence/internal/application/analytics"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/intelligence/outcome_classifier"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

const scorerTimeout = 30 * time.Second

// newHTTPScorer scores text by POSTing {"text": ...} to url.  The endpoint
// answers a JSON object of label to score.
func newHTTPScorer(client *http.Client, url string) outcome_classifier.ScorerFunc {
	return func(ctx context.Context, text string) (map[judgment.Outcome]float64, error) {
		body, err := json.Marshal(map[string]string{"text": text})
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("scorer answered %s", resp.Status)
		}
		var scores map[judgment.Outcome]float64
		if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
			return nil, fmt.Errorf("decode scores: %w", err)
		}
		return scores, nil
	}
}

// scoreWithScorer predicts a label for every record from its law section
// (the full text when the section is missing) and compares it with the
// rule-based label.
func scoreWithScorer(ctx context.Context, records []*judgment.JudgmentRecord, scorer outcome_classifier.TextScorer, workers int) (*analytics.ConfusionMatrix, error) {
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeNoInput, "no records to score")
	}
	if workers < 1 {
		workers = 1
	}
	predicted := make([]judgment.Outcome, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, r := range records {
		i, r := i, r
		g.Go(func() error {
			text := r.LawSection
			if text == "" {
				text = r.Text
			}
			label, err := outcome_classifier.Predict(gctx, scorer, text)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeClassifierFailed, "failed to score record").
					WithDetail("identifier=" + r.Identifier)
			}
			predicted[i] = label
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	actual := make([]judgment.Outcome, len(records))
	for i, r := range records {
		actual[i] = r.Outcome
	}
	return analytics.NewConfusionMatrix(actual, predicted)
}
