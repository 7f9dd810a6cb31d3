package section_extractor

import (
	"regexp"
	"strings"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
)

// AnchorSpec describes how one section is located: the text strictly between
// the earliest opening match and the first closing match after it.
type AnchorSpec struct {
	Section judgment.SectionName

	// Open lists the opening variants.  On equal positions the earlier
	// variant wins.
	Open []*regexp.Regexp

	// Close lists the closing variants; the earliest match after the opening
	// wins.
	Close []*regexp.Regexp

	// Validate, when set, turns a found span into absent if it returns false.
	Validate func(span string) bool
}

// ValidateYesNo accepts exactly "Yes" or "No" once surrounding whitespace is
// trimmed.
func ValidateYesNo(span string) bool {
	s := strings.TrimSpace(span)
	return s == "Yes" || s == "No"
}

var (
	reImportanceOpen = regexp.MustCompile(`(?i)importance\s+level[ \t]*\r?\n?`)
	reRepresentedBy  = regexp.MustCompile(`(?im)(?:\n|^)[ \t]*represented\s+by`)
	reRespondentBare = regexp.MustCompile(`(?i)respondent\s+state`)

	reConclusionOpen     = regexp.MustCompile(`(?i)conclusion\(s\)[ \t]*\r?\n?`)
	reConclusionLineOpen = regexp.MustCompile(`(?im)^[ \t]*conclusions?[ \t]*$\n?`)

	reArticlesOpen     = regexp.MustCompile(`(?i)article\(s\)[ \t]*\r?\n?`)
	reArticlesLineOpen = regexp.MustCompile(`(?im)^[ \t]*articles?[ \t]*$\n?`)
	reArticlesClose    = regexp.MustCompile(`(?im)(?:\n|^)[ \t]*article\(s\)`)
	reArticlesLine     = regexp.MustCompile(`(?im)(?:\n|^)[ \t]*articles?[ \t]*$`)

	reSeparateOpen     = regexp.MustCompile(`(?i)separate\s+opinion\(s\)[ \t]*\r?\n?`)
	reSeparateLineOpen = regexp.MustCompile(`(?im)^[ \t]*separate\s+opinions?[ \t]*$\n?`)
	reSeparateAny      = regexp.MustCompile(`(?i)separate\s+opinion(?:\(s\)|s)?`)

	reDomesticLaw     = regexp.MustCompile(`(?im)(?:\n|^)[ \t]*domestic\s+law`)
	reStrasbourgClose = regexp.MustCompile(`(?im)(?:\n|^)[ \t]*strasbourg\s+case-law`)
	reKeywordsClose   = regexp.MustCompile(`(?im)(?:\n|^)[ \t]*keywords`)

	reKeywordsOpen = regexp.MustCompile(`(?i)keywords[ \t]*\r?\n`)
	reECLI         = regexp.MustCompile(`(?im)(?:\n|^)[ \t]*ecli`)

	reJudgmentDateOpen = regexp.MustCompile(`(?i)judgment\s+date[ \t]*\r?\n`)
	reEndOfLine        = regexp.MustCompile(`(?m)\r?$`)

	reStrasbourgOpen = regexp.MustCompile(`(?i)strasbourg\s+case-law[ \t]*\r?\n`)

	reRespondentOpen     = regexp.MustCompile(`(?i)respondent\s+state\(s\)[ \t]*\r?\n`)
	reRespondentLineOpen = regexp.MustCompile(`(?im)^[ \t]*respondent\s+states?[ \t]*\r?\n`)
	reJudgmentDateClose  = regexp.MustCompile(`(?im)(?:\n|^)[ \t]*judgment\s+date`)
	reReferenceDate      = regexp.MustCompile(`(?i)reference\s+date`)
)

// DefaultAnchorTable is the section table for the case-details block.  The
// slice order is the extraction priority: an opening match claimed by an
// earlier section is never reused by a later one.
//
//  1. importance_level  "Importance Level"        ends at "Represented by" (line start) or "Respondent State"
//  2. conclusion        "Conclusion(s)"           ends at an "Article(s)" header line
//  3. articles          "Article(s)" header       ends at "Separate Opinion(s)"
//  4. separate_opinion  "Separate Opinion(s)"     ends at "Domestic Law", "Strasbourg Case-Law" or "Keywords" (line start); Yes/No only
//  5. keywords          "Keywords" + newline      ends at "ECLI" (line start)
//  6. decision_date     "Judgment Date" + newline ends at the end of that line
//  7. related_cases     "Strasbourg Case-Law"     ends at "Keywords" (line start)
//  8. respondent_state  "Respondent State(s)"     ends at "Judgment Date" (line start) or "Reference Date"
//
// Bare "Article"/"Conclusion" words only open a section when they stand alone
// on a header line, so "Violation of Article 10" inside a conclusion is not an
// articles header.
var DefaultAnchorTable = []AnchorSpec{
	{
		Section: judgment.SectionImportanceLevel,
		Open:    []*regexp.Regexp{reImportanceOpen},
		Close:   []*regexp.Regexp{reRepresentedBy, reRespondentBare},
	},
	{
		Section: judgment.SectionConclusion,
		Open:    []*regexp.Regexp{reConclusionOpen, reConclusionLineOpen},
		Close:   []*regexp.Regexp{reArticlesClose, reArticlesLine},
	},
	{
		Section: judgment.SectionArticles,
		Open:    []*regexp.Regexp{reArticlesOpen, reArticlesLineOpen},
		Close:   []*regexp.Regexp{reSeparateAny},
	},
	{
		Section:  judgment.SectionSeparateOpinion,
		Open:     []*regexp.Regexp{reSeparateOpen, reSeparateLineOpen},
		Close:    []*regexp.Regexp{reDomesticLaw, reStrasbourgClose, reKeywordsClose},
		Validate: ValidateYesNo,
	},
	{
		Section: judgment.SectionKeywords,
		Open:    []*regexp.Regexp{reKeywordsOpen},
		Close:   []*regexp.Regexp{reECLI},
	},
	{
		Section: judgment.SectionDecisionDate,
		Open:    []*regexp.Regexp{reJudgmentDateOpen},
		Close:   []*regexp.Regexp{reEndOfLine},
	},
	{
		Section: judgment.SectionRelatedCases,
		Open:    []*regexp.Regexp{reStrasbourgOpen},
		Close:   []*regexp.Regexp{reKeywordsClose},
	},
	{
		Section: judgment.SectionRespondentState,
		Open:    []*regexp.Regexp{reRespondentOpen, reRespondentLineOpen},
		Close:   []*regexp.Regexp{reJudgmentDateClose, reReferenceDate},
	},
}
