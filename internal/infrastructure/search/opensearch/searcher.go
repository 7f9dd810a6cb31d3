package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// DefaultSearchLimit is the page size used when SearchQuery.Limit is zero.
const DefaultSearchLimit = 20

// searchFields are the text fields matched by SearchQuery.Text with their
// boosts.
var searchFields = []string{"title^3", "keywords^2", "law_section", "text"}

// Search runs q and decodes each hit back into a record.
func (r *RecordIndex) Search(ctx context.Context, q judgment.SearchQuery) (*judgment.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(buildSearchBody(q))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal search query")
	}

	resp, err := opensearchapi.SearchRequest{
		Index: []string{r.index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, r.client.client)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchError, "search request failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, responseError(resp, "search request failed")
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode search response")
	}

	result := &judgment.SearchResult{Total: sr.Hits.Total.Value, Hits: make([]judgment.SearchHit, 0, len(sr.Hits.Hits))}
	for _, h := range sr.Hits.Hits {
		var rec judgment.JudgmentRecord
		if err := json.Unmarshal(h.Source, &rec); err != nil {
			r.logger.Warn("Skipping undecodable hit", logging.String(logging.FieldIdentifier, h.ID), logging.Err(err))
			continue
		}
		result.Hits = append(result.Hits, judgment.SearchHit{Record: &rec, Score: h.Score, Highlights: h.Highlight})
	}
	r.logger.Debug("Search completed",
		logging.String("query", q.Text),
		logging.Int64("total", result.Total),
		logging.Int("returned", len(result.Hits)))
	return result, nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID        string              `json:"_id"`
			Score     float64             `json:"_score"`
			Source    json.RawMessage     `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// buildSearchBody translates q into the query DSL.  Text becomes a scored
// multi_match; every other field is a non-scoring term filter.  Ties are
// broken by identifier so paging is stable.
func buildSearchBody(q judgment.SearchQuery) map[string]interface{} {
	var must []interface{}
	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":    text,
				"fields":   searchFields,
				"type":     "best_fields",
				"operator": "and",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	var filter []interface{}
	term := func(field string, value interface{}) {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{field: value}})
	}
	if q.RespondentState != "" {
		term("respondent_state", q.RespondentState)
	}
	if q.Outcome != "" {
		term("outcome", string(q.Outcome))
	}
	if q.Year != 0 {
		term("year", q.Year)
	}
	if q.Article != "" {
		term("articles", q.Article)
	}

	boolQuery := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	limit := q.Limit
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	return map[string]interface{}{
		"query":            map[string]interface{}{"bool": boolQuery},
		"from":             q.Offset,
		"size":             limit,
		"track_total_hits": true,
		"sort": []interface{}{
			map[string]interface{}{"_score": map[string]string{"order": "desc"}},
			map[string]interface{}{"identifier": map[string]string{"order": "asc"}},
		},
		"highlight": map[string]interface{}{
			"pre_tags":  []string{"<em>"},
			"post_tags": []string{"</em>"},
			"fields": map[string]interface{}{
				"title":       map[string]interface{}{"number_of_fragments": 0},
				"law_section": map[string]interface{}{},
				"text":        map[string]interface{}{"fragment_size": 150, "number_of_fragments": 3},
			},
		},
	}
}
