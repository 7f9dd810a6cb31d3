package judgment

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

func TestFindIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"two identifiers", "See 12345/67 and 89/01", []string{"12345/67", "89/01"}},
		{"duplicates kept", "1234/56, 1234/56; 999/99", []string{"1234/56", "1234/56", "999/99"}},
		{"date fragments ignored", "judgment of 12/03/2020 in 4321/10", []string{"4321/10"}},
		{"too many digits", "1234567/89 and 12345/678", nil},
		{"single digit prefix", "1/23", nil},
		{"none", "no references", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindIdentifiers(tt.text))
		})
	}
}

func TestFirstIdentifier(t *testing.T) {
	id, ok := FirstIdentifier("CASE OF X v. Y (Application no. 36022/97)")
	require.True(t, ok)
	assert.Equal(t, "36022/97", id)

	_, ok = FirstIdentifier("no number here")
	assert.False(t, ok)
}

func TestNewJudgmentRecord_DefaultsAndCopies(t *testing.T) {
	articles := []string{"6", "P1#1"}
	rec, err := NewJudgmentRecord(RecordInput{
		Identifier:      "12345/67",
		RespondentState: "  FRA ",
		Articles:        articles,
	})
	require.NoError(t, err)

	assert.Equal(t, ImportanceUnknown, rec.Importance)
	assert.Equal(t, SeparateOpinionUnknown, rec.SeparateOpinion)
	assert.Equal(t, OutcomeOther, rec.Outcome)
	assert.Equal(t, "FRA", rec.RespondentState)
	assert.Equal(t, []string{}, rec.Keywords)

	articles[0] = "mutated"
	assert.Equal(t, "6", rec.Articles[0])
}

func TestNewJudgmentRecord_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   RecordInput
		code errors.ErrorCode
	}{
		{"bad identifier", RecordInput{Identifier: "12/03/2020"}, errors.ErrCodeIdentifierInvalid},
		{"bad importance", RecordInput{Identifier: "123/45", Importance: "7"}, errors.ErrCodeRecordInvalid},
		{"bad separate opinion", RecordInput{Identifier: "123/45", SeparateOpinion: "maybe"}, errors.ErrCodeRecordInvalid},
		{"bad outcome", RecordInput{Identifier: "123/45", Outcome: "win"}, errors.ErrCodeRecordInvalid},
		{"bad related case", RecordInput{Identifier: "123/45", RelatedCases: []string{"abc"}}, errors.ErrCodeRecordInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := NewJudgmentRecord(tt.in)
			assert.Nil(t, rec)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestJudgmentRecord_Year(t *testing.T) {
	rec, err := NewJudgmentRecord(RecordInput{
		Identifier:   "123/45",
		DecisionDate: NewDecisionDate(time.Date(2019, 3, 12, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	assert.Equal(t, 2019, rec.Year())

	rec, err = NewJudgmentRecord(RecordInput{Identifier: "123/45", DecisionDate: Unparseable})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Year())
}

func TestJudgmentRecord_TextLengthCountsCharacters(t *testing.T) {
	rec, err := NewJudgmentRecord(RecordInput{Identifier: "123/45", Text: "Cour européenne – arrêt"})
	require.NoError(t, err)
	assert.Equal(t, 23, rec.TextLength())
	assert.Greater(t, len(rec.Text), rec.TextLength())
}

func TestDecisionDate_JSON(t *testing.T) {
	valid := NewDecisionDate(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC))
	b, err := json.Marshal(valid)
	require.NoError(t, err)
	assert.Equal(t, `"2020-01-02"`, string(b))

	b, err = json.Marshal(Unparseable)
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	var d DecisionDate
	require.NoError(t, json.Unmarshal([]byte(`"2020-01-02"`), &d))
	assert.True(t, d.Valid)
	assert.Equal(t, 2020, d.Time.Year())

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.False(t, d.Valid)

	assert.Error(t, json.Unmarshal([]byte(`"02/01/2020"`), &d))
}

func TestOutcomeFromFindings(t *testing.T) {
	assert.Equal(t, OutcomeViolation, OutcomeFromFindings(true, false))
	assert.Equal(t, OutcomeNoViolation, OutcomeFromFindings(false, true))
	assert.Equal(t, OutcomeMixed, OutcomeFromFindings(true, true))
	assert.Equal(t, OutcomeOther, OutcomeFromFindings(false, false))
}

func TestExtractedFields_Missing(t *testing.T) {
	f := ExtractedFields{
		SectionConclusion:   PresentSpan("Violation of Article 3"),
		SectionDecisionDate: PresentSpan("01/02/2003"),
	}
	missing := f.Missing()
	assert.Len(t, missing, len(AllSections)-2)
	assert.NotContains(t, missing, SectionConclusion)
	assert.False(t, ExtractedFields(nil).Get(SectionKeywords).Present)
}

func TestRawDocument_ContentHash(t *testing.T) {
	a := RawDocument{Title: "ab", Identifier: "c"}
	b := RawDocument{Title: "a", Identifier: "bc"}
	assert.NotEqual(t, a.ContentHash(), b.ContentHash())
	assert.Equal(t, a.ContentHash(), a.ContentHash())
	assert.Len(t, a.ContentHash(), 64)
}
