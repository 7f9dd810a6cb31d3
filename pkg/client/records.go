package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// RecordsClient reads stored judgment records.
type RecordsClient struct {
	client *Client
}

// List returns one page of records in ascending identifier order.
func (r *RecordsClient) List(ctx context.Context, filter RecordFilter) (*RecordPage, error) {
	q := url.Values{}
	if filter.RespondentState != "" {
		q.Set("respondent_state", filter.RespondentState)
	}
	if filter.Outcome != "" {
		q.Set("outcome", filter.Outcome)
	}
	if filter.Year > 0 {
		q.Set("year", strconv.Itoa(filter.Year))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}

	var page RecordPage
	resp, err := r.client.get(ctx, "/api/v1/records", q, &page)
	if err != nil {
		return nil, err
	}
	page.Total = -1
	if v := resp.header.Get("X-Total-Count"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			page.Total = n
		}
	}
	return &page, nil
}

// Lookup returns the record stored under an application number such as
// "12345/67".
func (r *RecordsClient) Lookup(ctx context.Context, identifier string) (*Record, error) {
	if identifier == "" {
		return nil, errors.New(errors.ErrCodeValidation, "identifier is required")
	}
	var rec Record
	if _, err := r.client.get(ctx, "/api/v1/records/lookup", url.Values{"id": {identifier}}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Search runs a full-text query.  The server answers 503 when no search
// index is configured.
func (r *RecordsClient) Search(ctx context.Context, query SearchQuery) (*SearchResult, error) {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("q", query.Text)
	set("respondent_state", query.RespondentState)
	set("outcome", query.Outcome)
	set("article", query.Article)
	if query.Year > 0 {
		q.Set("year", strconv.Itoa(query.Year))
	}
	if len(q) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "search needs query text or at least one filter")
	}
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Offset > 0 {
		q.Set("offset", strconv.Itoa(query.Offset))
	}

	var res SearchResult
	if _, err := r.client.get(ctx, "/api/v1/records/search", q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// All pages through every record matching filter.  filter.Limit sets the
// page size; Offset is the starting point.
func (r *RecordsClient) All(ctx context.Context, filter RecordFilter) ([]Record, error) {
	if filter.Limit <= 0 {
		filter.Limit = 200
	}
	var out []Record
	for {
		page, err := r.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Records...)
		if len(page.Records) < filter.Limit {
			return out, nil
		}
		filter.Offset += len(page.Records)
	}
}
