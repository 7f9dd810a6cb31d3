// Package outcome_classifier labels a judgment from its conclusion section.
// Labeling is purely syntactic: the conclusion is scanned for violation
// findings and no-violation findings, and the presence of each decides the
// label.
package outcome_classifier

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
)

// Result is the label together with the findings that produced it.
type Result = judgment.Classification

var (
	// reViolation matches "violation of Article 6" and "violation of Art. P1".
	// Negated mentions are filtered afterwards by looking at the preceding
	// word.
	reViolation = regexp.MustCompile(`(?i)\bviolation\s+of\s+(?:article|art\.)\s*P?\d{1,2}`)

	// reNoViolation matches "no violation of Article 6", also written
	// "no-violation" or "non-violation".
	reNoViolation = regexp.MustCompile(`(?i)\bnon?(?:\s+|-)violation\s+of\s+(?:article|art\.)\s*P?\d{1,2}`)
)

// negations are the words that turn a violation mention into a non-finding.
var negations = map[string]bool{"no": true, "not": true, "non": true}

// Classifier is the rule-based conclusion labeler.  The zero value is ready to
// use and safe for concurrent use.
type Classifier struct{}

// New returns a Classifier.
func New() *Classifier { return &Classifier{} }

// Classify labels conclusion.  Violations and NoViolations hold the matched
// mentions in order of appearance, whitespace collapsed.
func (c *Classifier) Classify(conclusion string) Result {
	violations := Violations(conclusion)
	noViolations := NoViolations(conclusion)
	return Result{
		Label:        judgment.OutcomeFromFindings(len(violations) > 0, len(noViolations) > 0),
		Violations:   violations,
		NoViolations: noViolations,
	}
}

// Label is Classify without the findings.
func (c *Classifier) Label(conclusion string) judgment.Outcome {
	return c.Classify(conclusion).Label
}

// Violations returns the violation mentions not immediately preceded by "no",
// "not" or a hyphenated "no-"/"non-".
func Violations(text string) []string {
	out := []string{}
	for _, loc := range reViolation.FindAllStringIndex(text, -1) {
		if negations[strings.ToLower(precedingWord(text[:loc[0]]))] {
			continue
		}
		out = append(out, collapse(text[loc[0]:loc[1]]))
	}
	return out
}

// NoViolations returns the explicit "no violation" mentions.
func NoViolations(text string) []string {
	out := []string{}
	for _, m := range reNoViolation.FindAllString(text, -1) {
		out = append(out, collapse(m))
	}
	return out
}

// precedingWord returns the last run of letters in s, ignoring trailing
// whitespace.  A hyphen joined to that word ("non-") is skipped; any other
// punctuation between the word and the mention breaks the link.
func precedingWord(s string) string {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	if n := len(s); n > 1 && s[n-1] == '-' && isLetterBefore(s[:n-1]) {
		s = s[:n-1]
	}
	end := len(s)
	start := strings.LastIndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) + 1
	return s[start:end]
}

func isLetterBefore(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsLetter(r)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
