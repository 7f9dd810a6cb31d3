package judgment

// Outcome is the label derived from a judgment's conclusion section.
type Outcome string

const (
	OutcomeViolation   Outcome = "violation"
	OutcomeNoViolation Outcome = "no_violation"
	OutcomeMixed       Outcome = "mixed"
	OutcomeOther       Outcome = "other"
)

// AllOutcomes is the fixed label order used for confusion matrices and for
// breaking score ties.
var AllOutcomes = []Outcome{
	OutcomeNoViolation,
	OutcomeViolation,
	OutcomeOther,
	OutcomeMixed,
}

// IsValid reports whether o is one of the four labels.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeViolation, OutcomeNoViolation, OutcomeMixed, OutcomeOther:
		return true
	}
	return false
}

func (o Outcome) String() string { return string(o) }

// OutcomeFromFindings applies the decision table: violations only gives
// violation, no-violations only gives no_violation, both gives mixed and
// neither gives other.
func OutcomeFromFindings(hasViolation, hasNoViolation bool) Outcome {
	switch {
	case hasViolation && hasNoViolation:
		return OutcomeMixed
	case hasViolation:
		return OutcomeViolation
	case hasNoViolation:
		return OutcomeNoViolation
	default:
		return OutcomeOther
	}
}

// Classification is the labeled reading of a conclusion section together
// with the article findings behind the label.
type Classification struct {
	Label        Outcome  `json:"label"`
	Violations   []string `json:"violations"`
	NoViolations []string `json:"no_violations"`
}
