package record_normalizer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/intelligence/outcome_classifier"
)

func fullFields() judgment.ExtractedFields {
	return judgment.ExtractedFields{
		judgment.SectionImportanceLevel: judgment.PresentSpan("\n2\n"),
		judgment.SectionConclusion:      judgment.PresentSpan("\nViolation of Article 10 - Freedom of expression\n"),
		judgment.SectionArticles:        judgment.PresentSpan("\n10\n10-1\nP1-1-a\n"),
		judgment.SectionSeparateOpinion: judgment.PresentSpan("Yes"),
		judgment.SectionKeywords:        judgment.PresentSpan("\n(Art. 10) Freedom of expression;(Art. 10-2) Necessary in a democratic society\n"),
		judgment.SectionDecisionDate:    judgment.PresentSpan(" 15/07/2010"),
		judgment.SectionRelatedCases:    judgment.PresentSpan("\nSee 12345/67 and 89/01\n"),
		judgment.SectionRespondentState: judgment.PresentSpan("\n  United Kingdom  \nGovernment\n"),
	}
}

func fullDocument() judgment.RawDocument {
	return judgment.RawDocument{
		Title:      "(3 of 12) CASE OF SMITH v. THE UNITED KINGDOM",
		Identifier: "Application no. 33985/96",
		Text:       "PROCEDURE\n...\nTHE LAW\n  I. ALLEGED VIOLATION OF ARTICLE 10\n\nFOR THESE REASONS, THE COURT",
		URL:        "https://example.org/eng?i=001-1",
	}
}

func newTestNormalizer(opts Options) *Normalizer {
	return NewNormalizer(opts, outcome_classifier.New(), nil)
}

func TestNormalize_FullDocument(t *testing.T) {
	rec, rej := newTestNormalizer(Options{}).Normalize(fullDocument(), fullFields())
	require.Nil(t, rej)
	require.NotNil(t, rec)

	assert.Equal(t, "33985/96", rec.Identifier)
	assert.Equal(t, "CASE OF SMITH v. THE UNITED KINGDOM", rec.Title)
	assert.Equal(t, "United Kingdom", rec.RespondentState)
	assert.Equal(t, judgment.Importance2, rec.Importance)
	assert.Equal(t, []string{"10", "10", "P1#1"}, rec.Articles)
	assert.Equal(t, judgment.SeparateOpinionYes, rec.SeparateOpinion)
	assert.Equal(t, []string{
		"(Art. 10) Freedom of expression",
		"(Art. 10-2) Necessary in a democratic society",
	}, rec.Keywords)
	assert.Equal(t, []string{"12345/67", "89/01"}, rec.RelatedCases)
	assert.Equal(t, 2010, rec.Year())
	assert.Equal(t, time.July, rec.DecisionDate.Time.Month())
	assert.Equal(t, judgment.OutcomeViolation, rec.Outcome)
	assert.Equal(t, []string{"Violation of Article 10"}, rec.Violations)
	assert.Equal(t, "I. ALLEGED VIOLATION OF ARTICLE 10", rec.LawSection)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newTestNormalizer(Options{})
	first, rej := n.Normalize(fullDocument(), fullFields())
	require.Nil(t, rej)

	// Feed the normalized values back in as if they had been extracted.
	opinion := map[judgment.SeparateOpinion]string{
		judgment.SeparateOpinionYes: "Yes",
		judgment.SeparateOpinionNo:  "No",
	}[first.SeparateOpinion]
	again := judgment.ExtractedFields{
		judgment.SectionImportanceLevel: judgment.PresentSpan(string(first.Importance)),
		judgment.SectionConclusion:      judgment.PresentSpan(strings.Join(first.Violations, ";")),
		judgment.SectionArticles:        judgment.PresentSpan(strings.Join(first.Articles, "\n")),
		judgment.SectionSeparateOpinion: judgment.PresentSpan(opinion),
		judgment.SectionKeywords:        judgment.PresentSpan(strings.Join(first.Keywords, "\n")),
		judgment.SectionDecisionDate:    judgment.PresentSpan(first.DecisionDate.Time.Format(judgment.DateLayout)),
		judgment.SectionRelatedCases:    judgment.PresentSpan(strings.Join(first.RelatedCases, " ")),
		judgment.SectionRespondentState: judgment.PresentSpan(first.RespondentState),
	}
	doc := fullDocument()
	doc.Title = first.Title
	doc.Identifier = first.Identifier

	second, rej := n.Normalize(doc, again)
	require.Nil(t, rej)
	assert.Equal(t, first, second)
}

func TestNormalizeArticleLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"P1-1\n2-1-a\nRules of Court", []string{"P1#1", "2"}},
		{"6-1", []string{"6"}},
		{"P1-1-a", []string{"P1#1"}},
		{"P4-2-3", []string{"P4#2"}},
		{"14+P1-1", []string{"14+P1#1"}},
		{"34\n\n35-3-a\n", []string{"34", "35"}},
		{"Rules of Court\n", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeArticleLines(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeArticleLines(strings.Join(got, "\n")), "not idempotent")
		})
	}
}

func TestRelatedCases(t *testing.T) {
	assert.Equal(t, []string{"12345/67", "89/01"}, RelatedCases(judgment.PresentSpan("See 12345/67 and 89/01")))
	assert.Equal(t, []string{"123/45", "123/45"}, RelatedCases(judgment.PresentSpan("123/45; 123/45")))
	assert.Empty(t, RelatedCases(judgment.PresentSpan("decided 12/05/2004")))
	assert.NotNil(t, RelatedCases(judgment.Absent))
}

func TestParseDecisionDate(t *testing.T) {
	d := ParseDecisionDate(judgment.PresentSpan("\n 01/02/2003 \n"))
	require.True(t, d.Valid)
	assert.Equal(t, "2003-02-01", d.String())

	assert.False(t, ParseDecisionDate(judgment.PresentSpan("1 February 2003")).Valid)
	assert.False(t, ParseDecisionDate(judgment.PresentSpan("31/02/2003")).Valid)
	assert.False(t, ParseDecisionDate(judgment.Absent).Valid)
}

func TestImportanceLevel(t *testing.T) {
	tests := []struct {
		in   judgment.Span
		want judgment.Importance
	}{
		{judgment.PresentSpan("\nKey cases\n"), judgment.ImportanceKeyCases},
		{judgment.PresentSpan("Key   cases"), judgment.ImportanceKeyCases},
		{judgment.PresentSpan("1"), judgment.Importance1},
		{judgment.PresentSpan(" 4 "), judgment.Importance4},
		{judgment.PresentSpan("7"), judgment.ImportanceUnknown},
		{judgment.PresentSpan("none"), judgment.ImportanceUnknown},
		{judgment.Absent, judgment.ImportanceUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ImportanceLevel(tt.in), tt.in.Text)
	}
}

func TestSeparateOpinion(t *testing.T) {
	assert.Equal(t, judgment.SeparateOpinionYes, SeparateOpinion(judgment.PresentSpan("Yes")))
	assert.Equal(t, judgment.SeparateOpinionNo, SeparateOpinion(judgment.PresentSpan(" No ")))
	assert.Equal(t, judgment.SeparateOpinionUnknown, SeparateOpinion(judgment.PresentSpan("Maybe")))
	assert.Equal(t, judgment.SeparateOpinionUnknown, SeparateOpinion(judgment.Absent))
}

func TestKeywordsAndTitle(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Keywords(judgment.PresentSpan("a;\n b ;;c\n")))
	assert.Equal(t, "CASE OF X", CleanTitle("  (1 of 2) CASE OF X "))
	assert.Equal(t, "CASE OF (1 of 2) X", CleanTitle("CASE OF (1 of 2) X"))
}

func TestLawSection(t *testing.T) {
	assert.Equal(t, "body", LawSection("intro THE LAW\n body \nFOR THESE REASONS end"))
	assert.Equal(t, "", LawSection("THE LAW without the closing marker"))
	assert.Equal(t, "", LawSection("FOR THESE REASONS only"))
}

func TestNormalize_Rejections(t *testing.T) {
	t.Run("missing identifier", func(t *testing.T) {
		doc := fullDocument()
		doc.Identifier = "Application no. unknown"
		rec, rej := newTestNormalizer(Options{}).Normalize(doc, fullFields())
		assert.Nil(t, rec)
		require.NotNil(t, rej)
		assert.Equal(t, ReasonMissingIdentifier, rej.Reason)
	})

	t.Run("text at ceiling", func(t *testing.T) {
		doc := fullDocument()
		doc.Text = strings.Repeat("é", 100)
		_, rej := newTestNormalizer(Options{MaxTextLength: 100}).Normalize(doc, fullFields())
		require.NotNil(t, rej)
		assert.Equal(t, ReasonTextTooLarge, rej.Reason)
		assert.Contains(t, rej.Error(), "33985/96")
	})

	t.Run("text below ceiling", func(t *testing.T) {
		doc := fullDocument()
		doc.Text = strings.Repeat("é", 99)
		rec, rej := newTestNormalizer(Options{MaxTextLength: 100}).Normalize(doc, fullFields())
		assert.Nil(t, rej)
		assert.NotNil(t, rec)
	})

	t.Run("strict mode", func(t *testing.T) {
		fields := fullFields()
		delete(fields, judgment.SectionKeywords)
		_, rej := newTestNormalizer(Options{RequireAllSections: true}).Normalize(fullDocument(), fields)
		require.NotNil(t, rej)
		assert.Equal(t, ReasonMissingSection, rej.Reason)
		assert.Contains(t, rej.Detail, string(judgment.SectionKeywords))
	})
}

func TestNormalize_LenientDefaults(t *testing.T) {
	rec, rej := NewNormalizer(Options{}, nil, nil).Normalize(fullDocument(), judgment.ExtractedFields{})
	require.Nil(t, rej)

	assert.False(t, rec.DecisionDate.Valid)
	assert.Equal(t, 0, rec.Year())
	assert.Equal(t, judgment.ImportanceUnknown, rec.Importance)
	assert.Equal(t, judgment.SeparateOpinionUnknown, rec.SeparateOpinion)
	assert.Equal(t, judgment.OutcomeOther, rec.Outcome)
	assert.Equal(t, "", rec.RespondentState)
	assert.Empty(t, rec.Articles)
	assert.Empty(t, rec.RelatedCases)
}
