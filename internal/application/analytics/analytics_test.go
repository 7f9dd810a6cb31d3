package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

func rec(t *testing.T, id, state string, year int, outcome judgment.Outcome, articles ...string) *judgment.JudgmentRecord {
	t.Helper()
	date := judgment.Unparseable
	if year != 0 {
		date = judgment.NewDecisionDate(time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC))
	}
	r, err := judgment.NewJudgmentRecord(judgment.RecordInput{
		Identifier:      id,
		DecisionDate:    date,
		RespondentState: state,
		Articles:        articles,
		Outcome:         outcome,
	})
	require.NoError(t, err)
	return r
}

func TestCountByYearAndState(t *testing.T) {
	records := []*judgment.JudgmentRecord{
		rec(t, "10/01", "Utopia", 2001, judgment.OutcomeViolation),
		rec(t, "20/01", "Arcadia", 2001, judgment.OutcomeViolation),
		rec(t, "30/01", "Utopia", 2001, judgment.OutcomeOther),
		rec(t, "40/99", "Utopia", 1999, judgment.OutcomeOther),
		rec(t, "50/00", "Utopia", 0, judgment.OutcomeOther),
	}
	got := CountByYearAndState(records)
	assert.Equal(t, []YearStateCount{
		{Year: 1999, State: "Utopia", Count: 1},
		{Year: 2001, State: "Arcadia", Count: 1},
		{Year: 2001, State: "Utopia", Count: 2},
	}, got)
	assert.Empty(t, CountByYearAndState(nil))
}

func TestArticleCountsByState(t *testing.T) {
	records := []*judgment.JudgmentRecord{
		rec(t, "10/01", "Utopia", 2001, judgment.OutcomeViolation, "6", "6", "14+"),
		rec(t, "20/01", "Utopia", 2001, judgment.OutcomeViolation, "8", "P1#1"),
		rec(t, "30/01", "Arcadia", 2001, judgment.OutcomeViolation, "8", "+"),
	}
	got := ArticleCountsByState(records, DefaultArticleExclusions)
	assert.Equal(t, []ArticleCount{
		{State: "Arcadia", Article: "8", Count: 1},
		{State: "Utopia", Article: "6", Count: 2},
		{State: "Utopia", Article: "8", Count: 1},
		{State: "Utopia", Article: "P1#1", Count: 1},
	}, got)

	all := ArticleCountsByState(records, nil)
	assert.Len(t, all, 6)
}

func TestOutcomeDistribution(t *testing.T) {
	got := OutcomeDistribution([]*judgment.JudgmentRecord{
		rec(t, "10/01", "U", 2001, judgment.OutcomeViolation),
		rec(t, "20/01", "U", 2001, judgment.OutcomeViolation),
		rec(t, "30/01", "U", 2001, judgment.OutcomeMixed),
	})
	assert.Equal(t, map[judgment.Outcome]int{
		judgment.OutcomeNoViolation: 0,
		judgment.OutcomeViolation:   2,
		judgment.OutcomeOther:       0,
		judgment.OutcomeMixed:       1,
	}, got)
}

func splitFixture(t *testing.T) []*judgment.JudgmentRecord {
	var out []*judgment.JudgmentRecord
	for i := 0; i < 10; i++ {
		out = append(out, rec(t, fmt.Sprintf("%d/10", 100+i), "U", 2010, judgment.OutcomeViolation))
	}
	for i := 0; i < 5; i++ {
		out = append(out, rec(t, fmt.Sprintf("%d/11", 200+i), "U", 2011, judgment.OutcomeNoViolation))
	}
	out = append(out, rec(t, "300/12", "U", 2012, judgment.OutcomeMixed))
	return out
}

func TestStratifiedSplit_Proportions(t *testing.T) {
	records := splitFixture(t)
	train, test, err := StratifiedSplit(records, 0.2, 7)
	require.NoError(t, err)

	assert.Len(t, train, 13)
	assert.Len(t, test, 3)
	testDist := OutcomeDistribution(test)
	assert.Equal(t, 2, testDist[judgment.OutcomeViolation])
	assert.Equal(t, 1, testDist[judgment.OutcomeNoViolation])
	assert.Equal(t, 0, testDist[judgment.OutcomeMixed], "round(0.2) is 0")

	seen := make(map[string]bool)
	for _, r := range append(append([]*judgment.JudgmentRecord{}, train...), test...) {
		assert.False(t, seen[r.Identifier], r.Identifier)
		seen[r.Identifier] = true
	}
	assert.Len(t, seen, len(records))
	assert.IsIncreasing(t, identifiers(train))
}

func TestStratifiedSplit_Seeded(t *testing.T) {
	records := splitFixture(t)
	_, a, err := StratifiedSplit(records, 0.5, 1)
	require.NoError(t, err)
	_, b, err := StratifiedSplit(records, 0.5, 1)
	require.NoError(t, err)
	assert.Equal(t, identifiers(a), identifiers(b))
}

func TestStratifiedSplit_Invalid(t *testing.T) {
	records := splitFixture(t)
	for _, f := range []float64{0, 1, -0.5, 1.5} {
		_, _, err := StratifiedSplit(records, f, 1)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), "fraction %v", f)
	}
	_, _, err := StratifiedSplit(nil, 0.2, 1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoInput))
}

func identifiers(records []*judgment.JudgmentRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Identifier
	}
	return out
}
