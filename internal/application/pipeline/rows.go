package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/citation"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// ListSeparator joins list columns in flat rows.
const ListSeparator = ";"

// Row is the flat, tabular form of a record.
type Row struct {
	Identifier      string `json:"identifier"`
	Title           string `json:"title"`
	Text            string `json:"text"`
	URL             string `json:"url"`
	Date            string `json:"date"`
	Year            int    `json:"year"`
	RespondentState string `json:"respondent_state"`
	ImportanceLevel string `json:"importance_level"`
	Articles        string `json:"articles"`
	SeparateOpinion string `json:"separate_opinion"`
	Keywords        string `json:"keywords"`
	RelatedCases    string `json:"related_cases"`
	Outcome         string `json:"outcome"`
	LawSection      string `json:"law_section"`
}

// RowHeader is the CSV column order.
var RowHeader = []string{
	"identifier", "title", "text", "url", "date", "year", "respondent_state",
	"importance_level", "articles", "separate_opinion", "keywords",
	"related_cases", "outcome", "law_section",
}

// ToRow flattens rec.  An unparseable date gives an empty date and year 0.
func ToRow(rec *judgment.JudgmentRecord) Row {
	date := ""
	if rec.DecisionDate.Valid {
		date = rec.DecisionDate.String()
	}
	return Row{
		Identifier:      rec.Identifier,
		Title:           rec.Title,
		Text:            rec.Text,
		URL:             rec.URL,
		Date:            date,
		Year:            rec.Year(),
		RespondentState: rec.RespondentState,
		ImportanceLevel: string(rec.Importance),
		Articles:        strings.Join(rec.Articles, ListSeparator),
		SeparateOpinion: string(rec.SeparateOpinion),
		Keywords:        strings.Join(rec.Keywords, ListSeparator),
		RelatedCases:    strings.Join(rec.RelatedCases, ListSeparator),
		Outcome:         string(rec.Outcome),
		LawSection:      rec.LawSection,
	}
}

// ToRows flattens every record.
func ToRows(records []*judgment.JudgmentRecord) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = ToRow(r)
	}
	return rows
}

func (r Row) values() []string {
	year := ""
	if r.Year != 0 {
		year = strconv.Itoa(r.Year)
	}
	return []string{
		r.Identifier, r.Title, r.Text, r.URL, r.Date, year, r.RespondentState,
		r.ImportanceLevel, r.Articles, r.SeparateOpinion, r.Keywords,
		r.RelatedCases, r.Outcome, r.LawSection,
	}
}

// WriteCSV writes the header and one line per record.
func WriteCSV(w io.Writer, records []*judgment.JudgmentRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RowHeader); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to write csv header")
	}
	for _, r := range records {
		if err := cw.Write(ToRow(r).values()); err != nil {
			return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to write csv row").
				WithDetail("identifier=" + r.Identifier)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to flush csv")
	}
	return nil
}

// WriteJSON writes the flat rows as an indented JSON array.
func WriteJSON(w io.Writer, records []*judgment.JudgmentRecord) error {
	return writeJSON(w, ToRows(records))
}

// WriteGraphJSON writes the node and edge collections.
func WriteGraphJSON(w io.Writer, view *citation.View) error {
	return writeJSON(w, view)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, "failed to encode json")
	}
	return nil
}

// ReadDocuments decodes a JSON array of raw documents.
func ReadDocuments(r io.Reader) ([]judgment.RawDocument, error) {
	var docs []judgment.RawDocument
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentDecode, "failed to decode documents")
	}
	return docs, nil
}

// ReadRecords decodes a JSON array of records as written by json.Marshal of
// []*judgment.JudgmentRecord, re-validating each one.
func ReadRecords(r io.Reader) ([]*judgment.JudgmentRecord, error) {
	var raw []judgment.JudgmentRecord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentDecode, "failed to decode records")
	}
	out := make([]*judgment.JudgmentRecord, 0, len(raw))
	for _, rr := range raw {
		rec, err := judgment.NewJudgmentRecord(judgment.RecordInput{
			Identifier:      rr.Identifier,
			Title:           rr.Title,
			Text:            rr.Text,
			URL:             rr.URL,
			DecisionDate:    rr.DecisionDate,
			RespondentState: rr.RespondentState,
			Importance:      rr.Importance,
			Articles:        rr.Articles,
			SeparateOpinion: rr.SeparateOpinion,
			Keywords:        rr.Keywords,
			RelatedCases:    rr.RelatedCases,
			Outcome:         rr.Outcome,
			Violations:      rr.Violations,
			NoViolations:    rr.NoViolations,
			LawSection:      rr.LawSection,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
