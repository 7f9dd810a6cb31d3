// Package section_extractor pulls the named metadata sections out of a
// judgment's case-details block using an ordered table of opening and closing
// anchors.  Extraction never fails: a section whose anchors are not both
// found is reported as absent.
package section_extractor

import (
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
)

// textRange is a half-open byte range [start, end).
type textRange struct {
	start, end int
}

func (r textRange) overlaps(o textRange) bool {
	return r.start < o.end && o.start < r.end
}

// Extractor applies an anchor table to case-details text.  It is stateless and
// safe for concurrent use.
type Extractor struct {
	table []AnchorSpec
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithAnchorTable replaces DefaultAnchorTable.
func WithAnchorTable(table []AnchorSpec) Option {
	return func(e *Extractor) {
		e.table = table
	}
}

// NewExtractor returns an Extractor over DefaultAnchorTable unless overridden.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{table: DefaultAnchorTable}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sections returns the sections of the table in priority order.
func (e *Extractor) Sections() []judgment.SectionName {
	out := make([]judgment.SectionName, len(e.table))
	for i, spec := range e.table {
		out[i] = spec.Section
	}
	return out
}

// ExtractAll walks the table in order.  Each section's opening match is
// claimed, and later sections skip opening matches overlapping a claim.
func (e *Extractor) ExtractAll(text string) judgment.ExtractedFields {
	fields := make(judgment.ExtractedFields, len(e.table))
	claimed := make([]textRange, 0, len(e.table))
	for _, spec := range e.table {
		span, open, ok := extract(text, spec, claimed)
		if ok {
			claimed = append(claimed, open)
		}
		fields[spec.Section] = span
	}
	return fields
}

// Extract locates a single section without any claimed ranges.
func Extract(text string, spec AnchorSpec) judgment.Span {
	span, _, _ := extract(text, spec, nil)
	return span
}

// extract returns the span, the chosen opening range and whether an opening
// was chosen at all.
func extract(text string, spec AnchorSpec, claimed []textRange) (judgment.Span, textRange, bool) {
	open, ok := firstOpening(text, spec, claimed)
	if !ok {
		return judgment.Absent, textRange{}, false
	}

	closeStart, found := firstClosing(text, open.end, spec)
	if !found {
		return judgment.Absent, open, true
	}

	body := text[open.end:closeStart]
	if spec.Validate != nil && !spec.Validate(body) {
		return judgment.Absent, open, true
	}
	return judgment.PresentSpan(body), open, true
}

// firstOpening picks the earliest unclaimed opening match across all
// variants; ties go to the earlier variant.
func firstOpening(text string, spec AnchorSpec, claimed []textRange) (textRange, bool) {
	best := textRange{start: -1}
	for _, re := range spec.Open {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			cand := textRange{start: loc[0], end: loc[1]}
			if cand.end == cand.start || isClaimed(cand, claimed) {
				continue
			}
			if best.start < 0 || cand.start < best.start {
				best = cand
			}
			// matches come in order; later ones of this variant cannot win
			break
		}
	}
	return best, best.start >= 0
}

// firstClosing returns the start of the earliest closing match at or after
// from.
func firstClosing(text string, from int, spec AnchorSpec) (int, bool) {
	rest := text[from:]
	best := -1
	for _, re := range spec.Close {
		loc := re.FindStringIndex(rest)
		if loc == nil {
			continue
		}
		if best < 0 || loc[0] < best {
			best = loc[0]
		}
	}
	if best < 0 {
		return 0, false
	}
	return from + best, true
}

func isClaimed(r textRange, claimed []textRange) bool {
	for _, c := range claimed {
		if r.overlaps(c) {
			return true
		}
	}
	return false
}
