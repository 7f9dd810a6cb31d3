// Package record_normalizer turns a raw judgment document plus its extracted
// sections into a validated judgment.JudgmentRecord.  Bad input never
// produces an error: the record is rejected with a reason and the caller
// counts it.
package record_normalizer

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
)

// DefaultMaxTextLength is the full-text ceiling in characters.  Texts of this
// length or longer are rejected.
const DefaultMaxTextLength = 1_000_000

// RejectReason classifies a dropped document.
type RejectReason string

const (
	ReasonMissingIdentifier RejectReason = "missing_identifier"
	ReasonTextTooLarge      RejectReason = "text_too_large"
	ReasonMissingSection    RejectReason = "missing_section"
	ReasonInvalidRecord     RejectReason = "invalid_record"
)

// Rejection explains why a document produced no record.
type Rejection struct {
	Reason RejectReason
	Detail string
}

// Error lets a Rejection travel as an error where convenient.
func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return string(r.Reason) + ": " + r.Detail
}

var (
	rePagination    = regexp.MustCompile(`^\(\d+ of \d+\)\s*`)
	reDate          = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	reImportance    = regexp.MustCompile(`\d|Key\s+cases`)
	reProtocolSep   = regexp.MustCompile(`(P\d+)-`)
	reArticleSuffix = regexp.MustCompile(`((?:P\d+#)?\d{1,2})(?:-[0-9A-Za-z]{1,2})+`)
	reKeywordSplit  = regexp.MustCompile(`[\n;]`)
	reLawSection    = regexp.MustCompile(`(?s)THE\s+LAW(.*?)FOR\s+THESE\s+REASONS`)
	articleNoise    = []string{"Rules of Court"}
)

// Options tune normalization.
type Options struct {
	// MaxTextLength is the rejection ceiling in characters.
	MaxTextLength int

	// RequireAllSections rejects documents missing any section.
	RequireAllSections bool
}

// Classifier labels a conclusion section.
type Classifier interface {
	Classify(conclusion string) judgment.Classification
}

// Normalizer is stateless apart from its options and safe for concurrent use.
type Normalizer struct {
	opts       Options
	classifier Classifier
	logger     logging.Logger
}

// NewNormalizer applies DefaultMaxTextLength when opts.MaxTextLength is zero.
// A nil classifier labels every record "other".
func NewNormalizer(opts Options, classifier Classifier, logger logging.Logger) *Normalizer {
	if opts.MaxTextLength <= 0 {
		opts.MaxTextLength = DefaultMaxTextLength
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Normalizer{opts: opts, classifier: classifier, logger: logger.Named("record_normalizer")}
}

// Normalize builds the record for doc.  A non-nil Rejection means the document
// is dropped.
func (n *Normalizer) Normalize(doc judgment.RawDocument, fields judgment.ExtractedFields) (*judgment.JudgmentRecord, *Rejection) {
	id, ok := judgment.FirstIdentifier(doc.Identifier)
	if !ok {
		return n.reject(ReasonMissingIdentifier, doc.Identifier)
	}
	if l := utf8.RuneCountInString(doc.Text); l >= n.opts.MaxTextLength {
		return n.reject(ReasonTextTooLarge, id)
	}
	if n.opts.RequireAllSections {
		if missing := fields.Missing(); len(missing) > 0 {
			return n.reject(ReasonMissingSection, id+": "+string(missing[0]))
		}
	}

	verdict := judgment.Classification{Label: judgment.OutcomeOther}
	if n.classifier != nil {
		verdict = n.classifier.Classify(fields.Get(judgment.SectionConclusion).Text)
	}

	rec, err := judgment.NewJudgmentRecord(judgment.RecordInput{
		Identifier:      id,
		Title:           CleanTitle(doc.Title),
		Text:            doc.Text,
		URL:             doc.URL,
		DecisionDate:    ParseDecisionDate(fields.Get(judgment.SectionDecisionDate)),
		RespondentState: RespondentState(fields.Get(judgment.SectionRespondentState)),
		Importance:      ImportanceLevel(fields.Get(judgment.SectionImportanceLevel)),
		Articles:        Articles(fields.Get(judgment.SectionArticles)),
		SeparateOpinion: SeparateOpinion(fields.Get(judgment.SectionSeparateOpinion)),
		Keywords:        Keywords(fields.Get(judgment.SectionKeywords)),
		RelatedCases:    RelatedCases(fields.Get(judgment.SectionRelatedCases)),
		Outcome:         verdict.Label,
		Violations:      verdict.Violations,
		NoViolations:    verdict.NoViolations,
		LawSection:      LawSection(doc.Text),
	})
	if err != nil {
		return n.reject(ReasonInvalidRecord, err.Error())
	}
	return rec, nil
}

func (n *Normalizer) reject(reason RejectReason, detail string) (*judgment.JudgmentRecord, *Rejection) {
	n.logger.Debug("document rejected",
		logging.String("reason", string(reason)),
		logging.String("detail", detail))
	return nil, &Rejection{Reason: reason, Detail: detail}
}

// ─────────────────────────────────────────────────────────────────────────────
// Field rules
// ─────────────────────────────────────────────────────────────────────────────

// CleanTitle strips a leading "(N of M) " pagination marker.
func CleanTitle(title string) string {
	return strings.TrimSpace(rePagination.ReplaceAllString(strings.TrimSpace(title), ""))
}

// ParseDecisionDate reads the first dd/mm/yyyy token.  Anything else yields
// the unparseable marker.
func ParseDecisionDate(span judgment.Span) judgment.DecisionDate {
	if !span.Present {
		return judgment.Unparseable
	}
	tok := reDate.FindString(span.Text)
	if tok == "" {
		return judgment.Unparseable
	}
	t, err := time.Parse(judgment.DateLayout, tok)
	if err != nil {
		return judgment.Unparseable
	}
	return judgment.NewDecisionDate(t)
}

// RespondentState returns the first non-empty line, trimmed.
func RespondentState(span judgment.Span) string {
	if !span.Present {
		return ""
	}
	for _, line := range strings.Split(span.Text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}

// ImportanceLevel keeps the first digit or "Key cases"; anything outside the
// enumeration is unknown.
func ImportanceLevel(span judgment.Span) judgment.Importance {
	if !span.Present {
		return judgment.ImportanceUnknown
	}
	switch m := reImportance.FindString(span.Text); {
	case strings.HasPrefix(m, "Key"):
		return judgment.ImportanceKeyCases
	case m == "1", m == "2", m == "3", m == "4":
		return judgment.Importance(m)
	}
	return judgment.ImportanceUnknown
}

// Articles splits the span into normalized article codes.  "Rules of Court"
// is dropped, "P1-" becomes "P1#" and paragraph suffixes are stripped:
// "6-1" → "6", "2-1-a" → "2", "P1-1-a" → "P1#1".  The function is
// idempotent.
func Articles(span judgment.Span) []string {
	if !span.Present {
		return []string{}
	}
	return NormalizeArticleLines(span.Text)
}

// NormalizeArticleLines applies the article rules to newline-separated text.
func NormalizeArticleLines(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		for _, noise := range articleNoise {
			line = strings.ReplaceAll(line, noise, "")
		}
		line = reProtocolSep.ReplaceAllString(line, "$1#")
		line = reArticleSuffix.ReplaceAllString(line, "$1")
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SeparateOpinion maps a validated Yes/No span to the tri-state flag.
func SeparateOpinion(span judgment.Span) judgment.SeparateOpinion {
	if !span.Present {
		return judgment.SeparateOpinionUnknown
	}
	switch strings.TrimSpace(span.Text) {
	case "Yes":
		return judgment.SeparateOpinionYes
	case "No":
		return judgment.SeparateOpinionNo
	}
	return judgment.SeparateOpinionUnknown
}

// Keywords splits on newlines and semicolons, trimming and dropping empties.
func Keywords(span judgment.Span) []string {
	out := []string{}
	if !span.Present {
		return out
	}
	for _, kw := range reKeywordSplit.Split(span.Text, -1) {
		if s := strings.TrimSpace(kw); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// RelatedCases returns every application number in the span, duplicates
// kept.
func RelatedCases(span judgment.Span) []string {
	if !span.Present {
		return []string{}
	}
	ids := judgment.FindIdentifiers(span.Text)
	if ids == nil {
		return []string{}
	}
	return ids
}

// LawSection returns the text between "THE LAW" and "FOR THESE REASONS", or
// "" when either marker is missing.
func LawSection(text string) string {
	m := reLawSection.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
