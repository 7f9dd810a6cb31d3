package judgment

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Identifier format
// ─────────────────────────────────────────────────────────────────────────────

var (
	// reIdentifier is the application-number format NN(NNN)/YY.
	reIdentifier = regexp.MustCompile(`^\d{2,5}/\d{2}$`)

	// reNumericRun finds maximal runs of digits and slashes so that
	// identifier candidates are never cut out of a longer token such as a
	// dd/mm/yyyy date.
	reNumericRun = regexp.MustCompile(`[0-9]+(?:/[0-9]+)*`)
)

// IsIdentifier reports whether s is exactly one application number.
func IsIdentifier(s string) bool {
	return reIdentifier.MatchString(s)
}

// FindIdentifiers returns every application number in text, in order of
// appearance, duplicates kept.  A match is rejected when it touches another
// digit or slash.
func FindIdentifiers(text string) []string {
	var out []string
	for _, run := range reNumericRun.FindAllString(text, -1) {
		if reIdentifier.MatchString(run) {
			out = append(out, run)
		}
	}
	return out
}

// FirstIdentifier returns the first application number in text.
func FirstIdentifier(text string) (string, bool) {
	for _, run := range reNumericRun.FindAllString(text, -1) {
		if reIdentifier.MatchString(run) {
			return run, true
		}
	}
	return "", false
}

// ─────────────────────────────────────────────────────────────────────────────
// Value objects
// ─────────────────────────────────────────────────────────────────────────────

// DateLayout is the day/month/year layout of decision dates.
const DateLayout = "02/01/2006"

// isoDate is the serialized form of a valid DecisionDate.
const isoDate = "2006-01-02"

// DecisionDate is a judgment date.  Valid is false when the source text could
// not be parsed; the record is kept in that case.
type DecisionDate struct {
	Time  time.Time
	Valid bool
}

// NewDecisionDate wraps a parsed date.
func NewDecisionDate(t time.Time) DecisionDate {
	return DecisionDate{Time: t, Valid: true}
}

// Unparseable is the explicit marker for a date that could not be read.
var Unparseable = DecisionDate{}

// String returns the ISO date, or "" when unparseable.
func (d DecisionDate) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(isoDate)
}

// MarshalJSON encodes an ISO date string or null.
func (d DecisionDate) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts an ISO date string or null.
func (d *DecisionDate) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Unparseable
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Unparseable
		return nil
	}
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return fmt.Errorf("judgment: invalid decision date %q: %w", s, err)
	}
	*d = NewDecisionDate(t)
	return nil
}

// Importance is the court's importance level.
type Importance string

const (
	ImportanceKeyCases Importance = "Key cases"
	Importance1        Importance = "1"
	Importance2        Importance = "2"
	Importance3        Importance = "3"
	Importance4        Importance = "4"
	ImportanceUnknown  Importance = "unknown"
)

// IsValid reports whether i is one of the enumerated levels.
func (i Importance) IsValid() bool {
	switch i {
	case ImportanceKeyCases, Importance1, Importance2, Importance3, Importance4, ImportanceUnknown:
		return true
	}
	return false
}

// SeparateOpinion is the tri-state separate-opinion flag.
type SeparateOpinion string

const (
	SeparateOpinionYes     SeparateOpinion = "yes"
	SeparateOpinionNo      SeparateOpinion = "no"
	SeparateOpinionUnknown SeparateOpinion = "unknown"
)

// IsValid reports whether s is one of the three states.
func (s SeparateOpinion) IsValid() bool {
	switch s {
	case SeparateOpinionYes, SeparateOpinionNo, SeparateOpinionUnknown:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// JudgmentRecord
// ─────────────────────────────────────────────────────────────────────────────

// RecordInput carries the values for NewJudgmentRecord.
type RecordInput struct {
	Identifier      string
	Title           string
	Text            string
	URL             string
	DecisionDate    DecisionDate
	RespondentState string
	Importance      Importance
	Articles        []string
	SeparateOpinion SeparateOpinion
	Keywords        []string
	RelatedCases    []string
	Outcome         Outcome
	Violations      []string
	NoViolations    []string
	LawSection      string
}

// JudgmentRecord is the canonical, typed judgment.  Records are built only by
// NewJudgmentRecord and are not modified afterwards; callers must treat the
// exported fields as read-only.
type JudgmentRecord struct {
	Identifier      string          `json:"identifier"`
	Title           string          `json:"title"`
	Text            string          `json:"text"`
	URL             string          `json:"url"`
	DecisionDate    DecisionDate    `json:"date"`
	RespondentState string          `json:"respondent_state"`
	Importance      Importance      `json:"importance_level"`
	Articles        []string        `json:"articles"`
	SeparateOpinion SeparateOpinion `json:"separate_opinion"`
	Keywords        []string        `json:"keywords"`
	RelatedCases    []string        `json:"related_cases"`
	Outcome         Outcome         `json:"outcome"`
	Violations      []string        `json:"violations,omitempty"`
	NoViolations    []string        `json:"no_violations,omitempty"`
	LawSection      string          `json:"law_section"`
}

// NewJudgmentRecord validates in and returns a record holding private copies
// of every slice.  Empty enum values default to unknown/other.
func NewJudgmentRecord(in RecordInput) (*JudgmentRecord, error) {
	if !IsIdentifier(in.Identifier) {
		return nil, errors.New(errors.ErrCodeIdentifierInvalid, "identifier is not an application number").
			WithDetail(fmt.Sprintf("identifier=%q", in.Identifier))
	}
	if in.Importance == "" {
		in.Importance = ImportanceUnknown
	}
	if !in.Importance.IsValid() {
		return nil, invalidRecord(in.Identifier, "importance level %q", in.Importance)
	}
	if in.SeparateOpinion == "" {
		in.SeparateOpinion = SeparateOpinionUnknown
	}
	if !in.SeparateOpinion.IsValid() {
		return nil, invalidRecord(in.Identifier, "separate opinion %q", in.SeparateOpinion)
	}
	if in.Outcome == "" {
		in.Outcome = OutcomeOther
	}
	if !in.Outcome.IsValid() {
		return nil, invalidRecord(in.Identifier, "outcome %q", in.Outcome)
	}
	for _, rc := range in.RelatedCases {
		if !IsIdentifier(rc) {
			return nil, invalidRecord(in.Identifier, "related case %q", rc)
		}
	}

	return &JudgmentRecord{
		Identifier:      in.Identifier,
		Title:           in.Title,
		Text:            in.Text,
		URL:             in.URL,
		DecisionDate:    in.DecisionDate,
		RespondentState: strings.TrimSpace(in.RespondentState),
		Importance:      in.Importance,
		Articles:        copyStrings(in.Articles),
		SeparateOpinion: in.SeparateOpinion,
		Keywords:        copyStrings(in.Keywords),
		RelatedCases:    copyStrings(in.RelatedCases),
		Outcome:         in.Outcome,
		Violations:      copyStrings(in.Violations),
		NoViolations:    copyStrings(in.NoViolations),
		LawSection:      in.LawSection,
	}, nil
}

func invalidRecord(id, format string, args ...interface{}) *errors.AppError {
	return errors.Newf(errors.ErrCodeRecordInvalid, "invalid "+format, args...).
		WithDetail("identifier=" + id)
}

// Year returns the decision year, or 0 when the date is unparseable.
func (r *JudgmentRecord) Year() int {
	if !r.DecisionDate.Valid {
		return 0
	}
	return r.DecisionDate.Time.Year()
}

// TextLength is the full-text length in characters.
func (r *JudgmentRecord) TextLength() int {
	return utf8.RuneCountInString(r.Text)
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
