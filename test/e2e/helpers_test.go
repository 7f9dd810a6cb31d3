package e2e_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

func caseDetails(state, date, conclusion, related string) string {
	return strings.Join([]string{
		"Document Type", "Judgment (Merits)",
		"Importance Level", "2",
		"Respondent State(s)", state,
		"Judgment Date", date,
		"Conclusion(s)", conclusion,
		"Article(s)", "10", "10-2",
		"Separate Opinion(s)", "No",
		"Strasbourg Case-Law", related,
		"Keywords", "(Art. 10) Freedom of expression",
	}, "\n")
}

func document(id, state, date, conclusion, related string) judgment.RawDocument {
	return judgment.RawDocument{
		Title:       "(1 of 1) CASE OF " + id,
		Identifier:  "Application no. " + id,
		Text:        "THE LAW\nreasoning\nFOR THESE REASONS",
		URL:         "https://example.org/" + id,
		CaseDetails: caseDetails(state, date, conclusion, related),
	}
}

// corpus is a citation triangle 100/01, 200/02, 300/03, a spoke 400/04
// citing 100/01, an uncited 500/05 and one document without an application
// number.
func corpus() []judgment.RawDocument {
	return []judgment.RawDocument{
		document("100/01", "Utopia", "01/02/2003", "Violation of Article 10", "X v. Utopia, no. 200/02"),
		document("200/02", "Utopia", "01/03/2003", "No violation of Article 10", "Y v. Utopia, no. 300/03"),
		document("300/03", "Utopia", "01/04/2003", "Violation of Article 10", "Z v. Utopia, no. 100/01"),
		document("400/04", "Ruritania", "15/06/2010", "Violation of Article 10", "X v. Utopia, no. 100/01"),
		document("500/05", "Ruritania", "15/07/2010", "No violation of Article 10", ""),
		{Title: "CASE OF NOBODY", Identifier: "no number here"},
	}
}

// memoryExports stands in for the object store's exports/<run>/<name> layout.
type memoryExports struct {
	mu      sync.Mutex
	latest  string
	objects map[string][]byte
}

func (m *memoryExports) put(runID, name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[runID+"/"+name] = data
	m.latest = runID
}

func (m *memoryExports) GetExport(_ context.Context, runID, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if runID == "" {
		runID = m.latest
	}
	data, ok := m.objects[runID+"/"+name]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "object not found").
			WithDetail("key=exports/" + runID + "/" + name)
	}
	return data, nil
}

// waitForHealthy polls /healthz until it answers 200.
func waitForHealthy(ctx context.Context, baseURL string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
		if err != nil {
			return err
		}
		if resp, err := http.DefaultClient.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("service at %s not healthy after %v", baseURL, timeout)
		case <-ticker.C:
		}
	}
}
