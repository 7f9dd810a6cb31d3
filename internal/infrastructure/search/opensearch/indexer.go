package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// RecordIndex implements judgment.SearchIndex over one OpenSearch index.
// Documents are keyed by application number.
type RecordIndex struct {
	client    *Client
	index     string
	batchSize int
	refresh   string
	logger    logging.Logger
}

var _ judgment.SearchIndex = (*RecordIndex)(nil)

// IndexOption configures a RecordIndex.
type IndexOption func(*RecordIndex)

// WithRefresh sets the refresh policy of write requests ("true", "false" or
// "wait_for").
func WithRefresh(policy string) IndexOption { return func(r *RecordIndex) { r.refresh = policy } }

// NewRecordIndex creates a RecordIndex on the configured index.
func NewRecordIndex(client *Client, logger logging.Logger, opts ...IndexOption) *RecordIndex {
	r := &RecordIndex{
		client:    client,
		index:     client.cfg.Index,
		batchSize: client.cfg.BulkBatchSize,
		refresh:   "false",
		logger:    logger.Named("search_index"),
	}
	if r.batchSize <= 0 {
		r.batchSize = 500
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Name returns the index name.
func (r *RecordIndex) Name() string { return r.index }

// IndexMapping is the body of an index creation request.
type IndexMapping struct {
	Settings map[string]interface{} `json:"settings,omitempty"`
	Mappings map[string]interface{} `json:"mappings"`
}

// JudgmentIndexMapping maps the searchable text fields to the english
// analyzer and the filter fields to keywords.
func JudgmentIndexMapping() IndexMapping {
	text := map[string]interface{}{"type": "text", "analyzer": "english"}
	keyword := map[string]interface{}{"type": "keyword"}
	return IndexMapping{
		Settings: map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 1,
		},
		Mappings: map[string]interface{}{
			"dynamic": "strict",
			"properties": map[string]interface{}{
				"identifier":       keyword,
				"title":            text,
				"text":             text,
				"url":              map[string]interface{}{"type": "keyword", "index": false},
				"date":             map[string]interface{}{"type": "date", "format": "yyyy-MM-dd"},
				"year":             map[string]interface{}{"type": "integer"},
				"respondent_state": keyword,
				"importance_level": keyword,
				"articles":         keyword,
				"separate_opinion": keyword,
				"keywords":         text,
				"related_cases":    keyword,
				"outcome":          keyword,
				"violations":       keyword,
				"no_violations":    keyword,
				"law_section":      text,
			},
		},
	}
}

// indexDocument is the stored form of a record: its JSON plus the decision
// year for filtering.
type indexDocument struct {
	*judgment.JudgmentRecord
	Year *int `json:"year"`
}

func newIndexDocument(rec *judgment.JudgmentRecord) indexDocument {
	doc := indexDocument{JudgmentRecord: rec}
	if rec.DecisionDate.Valid {
		y := rec.Year()
		doc.Year = &y
	}
	return doc
}

// EnsureIndex creates the index with JudgmentIndexMapping when it does not
// exist.  It reports whether the index was created.
func (r *RecordIndex) EnsureIndex(ctx context.Context) (bool, error) {
	exists, err := r.IndexExists(ctx)
	if err != nil || exists {
		return false, err
	}
	body, err := json.Marshal(JudgmentIndexMapping())
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal index mapping")
	}
	resp, err := opensearchapi.IndicesCreateRequest{Index: r.index, Body: bytes.NewReader(body)}.Do(ctx, r.client.client)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeSearchError, "failed to create index")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return false, responseError(resp, "failed to create index")
	}
	r.logger.Info("Index created", logging.String("index", r.index))
	return true, nil
}

// IndexExists reports whether the index exists.
func (r *RecordIndex) IndexExists(ctx context.Context) (bool, error) {
	resp, err := opensearchapi.IndicesExistsRequest{Index: []string{r.index}}.Do(ctx, r.client.client)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeSearchError, "failed to check index existence")
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	}
	return false, responseError(resp, "failed to check index existence")
}

// DeleteIndex drops the index.  A missing index is ErrCodeNotFound.
func (r *RecordIndex) DeleteIndex(ctx context.Context) error {
	resp, err := opensearchapi.IndicesDeleteRequest{Index: []string{r.index}}.Do(ctx, r.client.client)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "failed to delete index")
	}
	defer resp.Body.Close()
	if resp.StatusCode == 404 {
		return errors.New(errors.ErrCodeNotFound, "index not found").WithDetail("index=" + r.index)
	}
	if resp.IsError() {
		return responseError(resp, "failed to delete index")
	}
	r.logger.Warn("Index deleted", logging.String("index", r.index))
	return nil
}

// BulkItemError is one document the cluster refused.
type BulkItemError struct {
	Identifier string `json:"identifier"`
	Type       string `json:"type"`
	Reason     string `json:"reason"`
}

// BulkResult totals a bulk indexing call.
type BulkResult struct {
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Errors    []BulkItemError `json:"errors,omitempty"`
}

// IndexRecords upserts records and fails when any document was refused.
func (r *RecordIndex) IndexRecords(ctx context.Context, records []*judgment.JudgmentRecord) error {
	res, err := r.BulkIndex(ctx, records)
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		first := res.Errors[0]
		return errors.New(errors.ErrCodeSearchError, "some records were not indexed").
			WithDetail(fmt.Sprintf("failed=%d first=%s: %s", res.Failed, first.Identifier, first.Reason))
	}
	return nil
}

// BulkIndex upserts records in batches of the configured size and reports
// per-document failures.  A transport error aborts the remaining batches.
func (r *RecordIndex) BulkIndex(ctx context.Context, records []*judgment.JudgmentRecord) (*BulkResult, error) {
	result := &BulkResult{}
	for start := 0; start < len(records); start += r.batchSize {
		end := start + r.batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := r.bulkBatch(ctx, records[start:end], result); err != nil {
			return result, err
		}
	}
	r.logger.Info("Bulk index completed",
		logging.Int(logging.FieldRecordCount, len(records)),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed))
	return result, nil
}

func (r *RecordIndex) bulkBatch(ctx context.Context, batch []*judgment.JudgmentRecord, result *BulkResult) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range batch {
		meta := map[string]map[string]string{"index": {"_index": r.index, "_id": rec.Identifier}}
		if err := enc.Encode(meta); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode bulk action")
		}
		if err := enc.Encode(newIndexDocument(rec)); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkItemError{Identifier: rec.Identifier, Type: "serialization_error", Reason: err.Error()})
			continue
		}
	}

	resp, err := opensearchapi.BulkRequest{Body: &buf, Refresh: r.refresh}.Do(ctx, r.client.client)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "bulk request failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return responseError(resp, "bulk request failed")
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&bulkResp); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode bulk response")
	}
	for _, item := range bulkResp.Items {
		for _, v := range item {
			if v.Status >= 200 && v.Status < 300 {
				result.Succeeded++
				continue
			}
			result.Failed++
			result.Errors = append(result.Errors, BulkItemError{Identifier: v.ID, Type: v.Error.Type, Reason: v.Error.Reason})
		}
	}
	return nil
}

// responseError turns an error response into an AppError carrying the
// cluster's error type and reason.
func responseError(resp *opensearchapi.Response, msg string) error {
	var body struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(resp.Body)
	detail := fmt.Sprintf("status=%d", resp.StatusCode)
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Reason != "" {
		detail += fmt.Sprintf(" %s: %s", body.Error.Type, body.Error.Reason)
	} else if s := strings.TrimSpace(string(data)); s != "" {
		detail += " " + s
	}
	code := errors.ErrCodeSearchError
	switch resp.StatusCode {
	case 400:
		code = errors.ErrCodeValidation
	case 404:
		code = errors.ErrCodeNotFound
	case 429, 503:
		code = errors.ErrCodeServiceUnavailable
	}
	return errors.New(code, msg).WithDetail(detail)
}
