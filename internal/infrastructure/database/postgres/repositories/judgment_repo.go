package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

const judgmentColumns = `identifier, title, text, url, decision_date, respondent_state,
	importance_level, articles, separate_opinion, keywords, related_cases,
	outcome, violations, no_violations, law_section`

const upsertJudgment = `
	INSERT INTO judgments (` + judgmentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (identifier) DO UPDATE SET
		title = EXCLUDED.title,
		text = EXCLUDED.text,
		url = EXCLUDED.url,
		decision_date = EXCLUDED.decision_date,
		respondent_state = EXCLUDED.respondent_state,
		importance_level = EXCLUDED.importance_level,
		articles = EXCLUDED.articles,
		separate_opinion = EXCLUDED.separate_opinion,
		keywords = EXCLUDED.keywords,
		related_cases = EXCLUDED.related_cases,
		outcome = EXCLUDED.outcome,
		violations = EXCLUDED.violations,
		no_violations = EXCLUDED.no_violations,
		law_section = EXCLUDED.law_section,
		updated_at = NOW()`

// DefaultListLimit caps List when the filter sets no limit.
const DefaultListLimit = 100

type postgresJudgmentRepo struct {
	db  DB
	log logging.Logger
}

// NewJudgmentRepository returns a judgment.Repository over db.
func NewJudgmentRepository(db DB, log logging.Logger) judgment.Repository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresJudgmentRepo{db: db, log: log.Named("judgment_repo")}
}

// SaveBatch upserts records in a single pipelined batch.  A later record with
// the same identifier overwrites an earlier one.
func (r *postgresJudgmentRepo) SaveBatch(ctx context.Context, records []*judgment.JudgmentRecord) error {
	if len(records) == 0 {
		return nil
	}
	start := time.Now()

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(upsertJudgment, recordArgs(rec)...)
	}

	br := executor(ctx, r.db).SendBatch(ctx, batch)
	for _, rec := range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save judgment").
				WithDetail("identifier=" + rec.Identifier)
		}
	}
	if err := br.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to close judgment batch")
	}

	logging.LogOperationDuration(r.log, "save_judgments", start, logging.Int("records", len(records)))
	return nil
}

// FindByIdentifier loads one record.
func (r *postgresJudgmentRepo) FindByIdentifier(ctx context.Context, identifier string) (*judgment.JudgmentRecord, error) {
	row := executor(ctx, r.db).QueryRow(ctx,
		`SELECT `+judgmentColumns+` FROM judgments WHERE identifier = $1`, identifier)
	rec, err := scanJudgment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeJudgmentNotFound, "judgment not found").
				WithDetail("identifier=" + identifier)
		}
		return nil, err
	}
	return rec, nil
}

// List returns records matching filter ordered by identifier.
func (r *postgresJudgmentRepo) List(ctx context.Context, filter judgment.ListFilter) ([]*judgment.JudgmentRecord, error) {
	query, args := buildListQuery(filter)
	rows, err := executor(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list judgments")
	}
	defer rows.Close()

	var out []*judgment.JudgmentRecord
	for rows.Next() {
		rec, err := scanJudgment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate judgments")
	}
	return out, nil
}

// Count returns the number of records matching filter, ignoring paging.
func (r *postgresJudgmentRepo) Count(ctx context.Context, filter judgment.ListFilter) (int64, error) {
	where, args := buildWhere(filter)
	var n int64
	if err := executor(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM judgments`+where, args...).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count judgments")
	}
	return n, nil
}

// buildWhere renders the WHERE clause for the non-zero filter fields.
func buildWhere(filter judgment.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.RespondentState != "" {
		add("respondent_state = $%d", filter.RespondentState)
	}
	if filter.Outcome != "" {
		add("outcome = $%d", string(filter.Outcome))
	}
	if filter.Year != 0 {
		add("EXTRACT(YEAR FROM decision_date) = $%d", filter.Year)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// buildListQuery renders the filtered, paged SELECT.
func buildListQuery(filter judgment.ListFilter) (string, []any) {
	where, args := buildWhere(filter)
	var sb strings.Builder
	sb.WriteString("SELECT " + judgmentColumns + " FROM judgments" + where)
	sb.WriteString(" ORDER BY identifier")

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}
	return sb.String(), args
}

func recordArgs(rec *judgment.JudgmentRecord) []any {
	date := pgtype.Date{Time: rec.DecisionDate.Time, Valid: rec.DecisionDate.Valid}
	return []any{
		rec.Identifier,
		rec.Title,
		rec.Text,
		rec.URL,
		date,
		rec.RespondentState,
		string(rec.Importance),
		nonNil(rec.Articles),
		string(rec.SeparateOpinion),
		nonNil(rec.Keywords),
		nonNil(rec.RelatedCases),
		string(rec.Outcome),
		nonNil(rec.Violations),
		nonNil(rec.NoViolations),
		rec.LawSection,
	}
}

func scanJudgment(s scanner) (*judgment.JudgmentRecord, error) {
	var (
		in                           judgment.RecordInput
		date                         pgtype.Date
		importance, opinion, outcome string
	)
	err := s.Scan(
		&in.Identifier,
		&in.Title,
		&in.Text,
		&in.URL,
		&date,
		&in.RespondentState,
		&importance,
		&in.Articles,
		&opinion,
		&in.Keywords,
		&in.RelatedCases,
		&outcome,
		&in.Violations,
		&in.NoViolations,
		&in.LawSection,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan judgment")
	}
	if date.Valid {
		in.DecisionDate = judgment.NewDecisionDate(date.Time)
	}
	in.Importance = judgment.Importance(importance)
	in.SeparateOpinion = judgment.SeparateOpinion(opinion)
	in.Outcome = judgment.Outcome(outcome)

	rec, err := judgment.NewJudgmentRecord(in)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRecordInvalid, "stored judgment failed validation").
			WithDetail("identifier=" + in.Identifier)
	}
	return rec, nil
}
