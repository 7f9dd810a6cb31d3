package judgment

// SectionName identifies one of the metadata sections embedded in the
// case-details block.
type SectionName string

const (
	SectionImportanceLevel SectionName = "importance_level"
	SectionConclusion      SectionName = "conclusion"
	SectionArticles        SectionName = "articles"
	SectionSeparateOpinion SectionName = "separate_opinion"
	SectionKeywords        SectionName = "keywords"
	SectionDecisionDate    SectionName = "decision_date"
	SectionRelatedCases    SectionName = "related_cases"
	SectionRespondentState SectionName = "respondent_state"
)

// AllSections lists every section in extraction priority order.
var AllSections = []SectionName{
	SectionImportanceLevel,
	SectionConclusion,
	SectionArticles,
	SectionSeparateOpinion,
	SectionKeywords,
	SectionDecisionDate,
	SectionRelatedCases,
	SectionRespondentState,
}

// Span is the raw text found between a section's anchors.  A zero Span is
// absent.
type Span struct {
	Text    string `json:"text"`
	Present bool   `json:"present"`
}

// Absent is the zero Span.
var Absent = Span{}

// PresentSpan wraps text as a found section.
func PresentSpan(text string) Span {
	return Span{Text: text, Present: true}
}

// ExtractedFields maps every section to its span.  Missing keys read as
// absent.
type ExtractedFields map[SectionName]Span

// Get returns the span for name, absent when the key is missing.
func (f ExtractedFields) Get(name SectionName) Span {
	if f == nil {
		return Absent
	}
	return f[name]
}

// Missing returns the sections that are absent, in priority order.
func (f ExtractedFields) Missing() []SectionName {
	var out []SectionName
	for _, s := range AllSections {
		if !f.Get(s).Present {
			out = append(out, s)
		}
	}
	return out
}
