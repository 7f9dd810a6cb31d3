// Package analytics aggregates judgment records for the presentation layer
// and prepares labelled data for an external outcome classifier.
package analytics

import (
	"math"
	"math/rand"
	"sort"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// DefaultArticleExclusions are malformed combined article codes that survive
// normalization and are left out of per-state article counts.
var DefaultArticleExclusions = []string{
	"13+3", "13+", "14+", "P1#", "14+P1#1", "14+P1#3", "18+", "14+10",
	"13+P1#3", "35+", "6+", "14+8", "14+5", "18+5", "+",
}

// YearStateCount is the number of judgments against a state in a year.
type YearStateCount struct {
	Year  int    `json:"year"`
	State string `json:"respondent_state"`
	Count int    `json:"count"`
}

// CountByYearAndState counts judgments per (year, respondent state), ordered
// by year then state.  Records without a parseable date are skipped.
func CountByYearAndState(records []*judgment.JudgmentRecord) []YearStateCount {
	type key struct {
		year  int
		state string
	}
	counts := make(map[key]int)
	for _, r := range records {
		if y := r.Year(); y != 0 {
			counts[key{y, r.RespondentState}]++
		}
	}
	out := make([]YearStateCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, YearStateCount{Year: k.year, State: k.state, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].State < out[j].State
	})
	return out
}

// ArticleCount is how often an article was alleged against a state.
type ArticleCount struct {
	State   string `json:"respondent_state"`
	Article string `json:"article"`
	Count   int    `json:"count"`
}

// ArticleCountsByState counts article allegations per respondent state,
// skipping the articles in exclude.  Duplicate articles within a record each
// count.  Ordered by state, then descending count, then article.
func ArticleCountsByState(records []*judgment.JudgmentRecord, exclude []string) []ArticleCount {
	skip := make(map[string]bool, len(exclude))
	for _, a := range exclude {
		skip[a] = true
	}
	type key struct{ state, article string }
	counts := make(map[key]int)
	for _, r := range records {
		for _, a := range r.Articles {
			if !skip[a] {
				counts[key{r.RespondentState, a}]++
			}
		}
	}
	out := make([]ArticleCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, ArticleCount{State: k.state, Article: k.article, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.State != b.State {
			return a.State < b.State
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Article < b.Article
	})
	return out
}

// OutcomeDistribution counts records per label.  Every label is present.
func OutcomeDistribution(records []*judgment.JudgmentRecord) map[judgment.Outcome]int {
	out := make(map[judgment.Outcome]int, len(judgment.AllOutcomes))
	for _, o := range judgment.AllOutcomes {
		out[o] = 0
	}
	for _, r := range records {
		out[r.Outcome]++
	}
	return out
}

// StratifiedSplit divides records into train and test sets so that every
// outcome label is represented in the same proportion in both.  Each label
// contributes round(n·testFraction) records to the test set, chosen by a
// shuffle seeded with seed; equal inputs and seeds give equal splits.  Both
// sets come back ordered by identifier.
func StratifiedSplit(records []*judgment.JudgmentRecord, testFraction float64, seed int64) (train, test []*judgment.JudgmentRecord, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, errors.Newf(errors.ErrCodeValidation, "test fraction must be in (0, 1), got %v", testFraction)
	}
	if len(records) == 0 {
		return nil, nil, errors.New(errors.ErrCodeNoInput, "no records to split")
	}

	byLabel := make(map[judgment.Outcome][]*judgment.JudgmentRecord)
	for _, r := range records {
		byLabel[r.Outcome] = append(byLabel[r.Outcome], r)
	}

	rng := rand.New(rand.NewSource(seed))
	train = make([]*judgment.JudgmentRecord, 0, len(records))
	test = make([]*judgment.JudgmentRecord, 0, len(records))
	for _, label := range judgment.AllOutcomes {
		group := byLabel[label]
		if len(group) == 0 {
			continue
		}
		shuffled := make([]*judgment.JudgmentRecord, len(group))
		copy(shuffled, group)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		n := int(math.Round(float64(len(shuffled)) * testFraction))
		test = append(test, shuffled[:n]...)
		train = append(train, shuffled[n:]...)
	}

	byID := func(s []*judgment.JudgmentRecord) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Identifier < s[j].Identifier })
	}
	byID(train)
	byID(test)
	return train, test, nil
}
