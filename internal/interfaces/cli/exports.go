package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/turtacn/CaseLaw-Intelligence/internal/application/pipeline"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/citation"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// RunSummary is what process and run print.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	Documents  int            `json:"documents"`
	Records    int            `json:"records"`
	Rejected   map[string]int `json:"rejected"`
	CacheHits  int            `json:"cache_hits"`
	GraphNodes int            `json:"graph_nodes,omitempty"`
	GraphEdges int            `json:"graph_edges,omitempty"`
	Duration   string         `json:"duration"`
	Artifacts  []string       `json:"artifacts,omitempty"`
}

func summarize(res *pipeline.Result) *RunSummary {
	s := &RunSummary{
		RunID:     res.RunID,
		Documents: res.Documents,
		Records:   len(res.Records),
		Rejected:  make(map[string]int, len(res.Rejected)),
		CacheHits: res.CacheHits,
		Duration:  res.Duration.Round(time.Millisecond).String(),
	}
	for reason, n := range res.Rejected {
		s.Rejected[string(reason)] = n
	}
	if res.Graph != nil {
		s.GraphNodes = len(res.Graph.Nodes)
		s.GraphEdges = len(res.Graph.Edges)
	}
	return s
}

func (s *RunSummary) Header() []string {
	return []string{"metric", "value"}
}

func (s *RunSummary) Rows() [][]string {
	rows := [][]string{
		{"run_id", s.RunID},
		{"documents", strconv.Itoa(s.Documents)},
		{"records", strconv.Itoa(s.Records)},
	}
	reasons := make([]string, 0, len(s.Rejected))
	for r := range s.Rejected {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		rows = append(rows, []string{"rejected." + r, strconv.Itoa(s.Rejected[r])})
	}
	rows = append(rows, []string{"cache_hits", strconv.Itoa(s.CacheHits)})
	if s.GraphNodes > 0 || s.GraphEdges > 0 {
		rows = append(rows,
			[]string{"graph_nodes", strconv.Itoa(s.GraphNodes)},
			[]string{"graph_edges", strconv.Itoa(s.GraphEdges)})
	}
	rows = append(rows, []string{"duration", s.Duration})
	for _, a := range s.Artifacts {
		rows = append(rows, []string{"artifact", a})
	}
	return rows
}

// renderArtifacts encodes the records and, when present, the graph.
func renderArtifacts(records []*judgment.JudgmentRecord, view *citation.View) ([]minio.Artifact, error) {
	var csvBuf, jsonBuf bytes.Buffer
	if err := pipeline.WriteCSV(&csvBuf, records); err != nil {
		return nil, err
	}
	if err := pipeline.WriteJSON(&jsonBuf, records); err != nil {
		return nil, err
	}
	arts := []minio.Artifact{
		{Name: minio.ArtifactRecordsCSV, Data: csvBuf.Bytes()},
		{Name: minio.ArtifactRecordsJSON, Data: jsonBuf.Bytes()},
	}
	if view != nil {
		var graphBuf bytes.Buffer
		if err := pipeline.WriteGraphJSON(&graphBuf, view); err != nil {
			return nil, err
		}
		arts = append(arts, minio.Artifact{Name: minio.ArtifactGraphJSON, Data: graphBuf.Bytes()})
	}
	return arts, nil
}

// writeArtifacts stores arts under dir and returns the written paths.
func writeArtifacts(dir string, arts []minio.Artifact) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExportFailed, fmt.Sprintf("failed to create %s", dir))
	}
	paths := make([]string, 0, len(arts))
	for _, a := range arts {
		p := filepath.Join(dir, a.Name)
		if err := os.WriteFile(p, a.Data, 0o644); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeExportFailed, fmt.Sprintf("failed to write %s", p))
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// writeRecordsJSON writes the full records, readable by graph --records.
func writeRecordsJSON(w io.Writer, records []*judgment.JudgmentRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode records")
	}
	return nil
}
