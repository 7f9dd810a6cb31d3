package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

func caseDetails(conclusion, related string) string {
	return strings.Join([]string{
		"Document Type", "Judgment (Merits)",
		"Importance Level", "2",
		"Respondent State(s)", "Utopia",
		"Judgment Date", "01/02/2003",
		"Conclusion(s)", conclusion,
		"Article(s)", "10", "10-2",
		"Separate Opinion(s)", "No",
		"Strasbourg Case-Law", related,
		"Keywords", "(Art. 10) Freedom of expression",
		"ECLI", "ECLI:CE:ECHR:2003",
	}, "\n")
}

func document(id, conclusion, related string) judgment.RawDocument {
	return judgment.RawDocument{
		Title:       "(1 of 1) CASE OF " + id,
		Identifier:  "Application no. " + id,
		Text:        "THE LAW\nreasoning\nFOR THESE REASONS",
		URL:         "https://example.org/" + id,
		CaseDetails: caseDetails(conclusion, related),
	}
}

// triangle is A cites B, B cites C, C cites A.
func triangle() []judgment.RawDocument {
	return []judgment.RawDocument{
		document("100/01", "Violation of Article 10", "X v. Utopia, no. 200/02"),
		document("200/02", "No violation of Article 10", "Y v. Utopia, no. 300/03"),
		document("300/03", "Violation of Article 10", "Z v. Utopia, no. 100/01"),
	}
}

func writeJSONFile(t *testing.T, name string, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--no-color", "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "caselaw", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"process", "graph", "stats", "run", "ingest", "index", "search", "cache", "migrate", "version"}, names)
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	pf := NewRootCommand().PersistentFlags()
	for _, name := range []string{"config", "log-level", "output", "verbose", "no-color", "timeout"} {
		assert.NotNil(t, pf.Lookup(name), name)
	}
	assert.Equal(t, FormatText, pf.Lookup("output").DefValue)
	assert.Equal(t, "c", pf.Lookup("config").Shorthand)
}

func TestRoot_RejectsUnknownOutputFormat(t *testing.T) {
	_, err := execute(t, "-o", "yaml", "version")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestRoot_ExplicitConfigFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "caselaw.yaml")
	require.NoError(t, os.WriteFile(p, []byte("graph:\n  min_degree: 2\nlog:\n  level: warn\n"), 0o644))

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--config", p, "version"})
	cmd.SetOut(&bytes.Buffer{})
	var captured *CLIContext
	cmd.PersistentPostRunE = func(c *cobra.Command, _ []string) error {
		var err error
		captured, err = GetCLIContext(c)
		return err
	}
	require.NoError(t, cmd.Execute())
	require.NotNil(t, captured)
	assert.Equal(t, 2, captured.Config.Graph.MinDegree)
	assert.Equal(t, "warn", captured.Config.Log.Level)
}

func TestRoot_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "version")
	assert.Error(t, err)
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := &cobra.Command{}
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)

	cmd.SetContext(context.Background())
	_, err = GetCLIContext(cmd)
	assert.Error(t, err)
}

type fakeTable struct{}

func (fakeTable) Header() []string { return []string{"name", "count"} }
func (fakeTable) Rows() [][]string { return [][]string{{"Utopia", "3"}, {"Ruritania, North", "1"}} }

func TestWriteResult_Formats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, FormatCSV, fakeTable{}))
	assert.Equal(t, "name,count\nUtopia,3\n\"Ruritania, North\",1\n", buf.String())

	buf.Reset()
	require.NoError(t, writeResult(&buf, FormatTable, fakeTable{}))
	assert.Contains(t, buf.String(), "NAME")
	assert.Contains(t, buf.String(), "Ruritania, North")

	buf.Reset()
	require.NoError(t, writeResult(&buf, FormatJSON, map[string]int{"a": 1}))
	assert.JSONEq(t, `{"a":1}`, buf.String())

	buf.Reset()
	require.NoError(t, writeResult(&buf, FormatText, "hello"))
	assert.Equal(t, "hello\n", buf.String())
}

func TestWriteResult_CSVNeedsTable(t *testing.T) {
	err := writeResult(&bytes.Buffer{}, FormatCSV, map[string]int{"a": 1})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestPrintError_IncludesCode(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetErr(&buf)
	PrintError(cmd, errors.New(errors.ErrCodeNoInput, "every document was rejected"))
	assert.Contains(t, buf.String(), string(errors.ErrCodeNoInput))
	assert.Contains(t, buf.String(), "every document was rejected")
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "-o", "json", "version")
	require.NoError(t, err)
	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}
