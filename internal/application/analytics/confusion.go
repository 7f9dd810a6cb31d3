package analytics

import (
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// ConfusionMatrix counts predictions per actual label.  Rows are actual
// labels and columns predicted labels, both in the order of Labels.
type ConfusionMatrix struct {
	Labels []judgment.Outcome `json:"labels"`
	Cells  [][]int            `json:"cells"`
}

// NewConfusionMatrix tallies actual against predicted over the four labels in
// judgment.AllOutcomes order.
func NewConfusionMatrix(actual, predicted []judgment.Outcome) (*ConfusionMatrix, error) {
	if len(actual) != len(predicted) {
		return nil, errors.Newf(errors.ErrCodeValidation,
			"actual and predicted differ in length: %d != %d", len(actual), len(predicted))
	}

	labels := append([]judgment.Outcome(nil), judgment.AllOutcomes...)
	index := make(map[judgment.Outcome]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	cells := make([][]int, len(labels))
	for i := range cells {
		cells[i] = make([]int, len(labels))
	}

	for i := range actual {
		a, ok := index[actual[i]]
		if !ok {
			return nil, errors.Newf(errors.ErrCodeValidation, "unknown actual label %q at %d", actual[i], i)
		}
		p, ok := index[predicted[i]]
		if !ok {
			return nil, errors.Newf(errors.ErrCodeValidation, "unknown predicted label %q at %d", predicted[i], i)
		}
		cells[a][p]++
	}
	return &ConfusionMatrix{Labels: labels, Cells: cells}, nil
}

// Total is the number of tallied pairs.
func (m *ConfusionMatrix) Total() int {
	n := 0
	for _, row := range m.Cells {
		for _, c := range row {
			n += c
		}
	}
	return n
}

// Accuracy is the share of pairs on the diagonal, 0 for an empty matrix.
func (m *ConfusionMatrix) Accuracy() float64 {
	total := m.Total()
	if total == 0 {
		return 0
	}
	hit := 0
	for i := range m.Cells {
		hit += m.Cells[i][i]
	}
	return float64(hit) / float64(total)
}

// Count returns the cell for (actual, predicted).
func (m *ConfusionMatrix) Count(actual, predicted judgment.Outcome) int {
	a, p := -1, -1
	for i, l := range m.Labels {
		if l == actual {
			a = i
		}
		if l == predicted {
			p = i
		}
	}
	if a < 0 || p < 0 {
		return 0
	}
	return m.Cells[a][p]
}
