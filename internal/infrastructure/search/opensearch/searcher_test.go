package opensearch

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/internal/testutil"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

const searchReply = `{
  "took": 3,
  "hits": {
    "total": {"value": 12, "relation": "eq"},
    "hits": [
      {"_id": "100/01", "_score": 4.2,
       "_source": {"identifier": "100/01", "title": "CASE OF A v. FRANCE", "date": "2001-05-01", "year": 2001,
                   "respondent_state": "FRA", "outcome": "violation", "articles": ["6"]},
       "highlight": {"title": ["CASE OF A v. <em>FRANCE</em>"]}},
      {"_id": "bad", "_score": 1.0, "_source": {"identifier": 7}},
      {"_id": "200/02", "_score": 2.1,
       "_source": {"identifier": "200/02", "title": "CASE OF B v. FRANCE", "date": null, "outcome": "other"}}
    ]
  }
}`

func TestBuildSearchBody(t *testing.T) {
	body := buildSearchBody(judgment.SearchQuery{
		Text: "  fair trial ", RespondentState: "FRA", Outcome: judgment.OutcomeViolation,
		Year: 2001, Article: "6", Limit: 5, Offset: 10,
	})
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	var got struct {
		Query struct {
			Bool struct {
				Must   []map[string]map[string]interface{} `json:"must"`
				Filter []map[string]map[string]interface{} `json:"filter"`
			} `json:"bool"`
		} `json:"query"`
		From int `json:"from"`
		Size int `json:"size"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, 10, got.From)
	assert.Equal(t, 5, got.Size)
	require.Len(t, got.Query.Bool.Must, 1)
	assert.Equal(t, "fair trial", got.Query.Bool.Must[0]["multi_match"]["query"])
	require.Len(t, got.Query.Bool.Filter, 4)
	assert.Equal(t, "FRA", got.Query.Bool.Filter[0]["term"]["respondent_state"])
	assert.Equal(t, "violation", got.Query.Bool.Filter[1]["term"]["outcome"])
	assert.Equal(t, float64(2001), got.Query.Bool.Filter[2]["term"]["year"])
	assert.Equal(t, "6", got.Query.Bool.Filter[3]["term"]["articles"])
}

func TestBuildSearchBody_FilterOnly(t *testing.T) {
	body := buildSearchBody(judgment.SearchQuery{RespondentState: "TUR"})
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	require.Len(t, must, 1)
	assert.Contains(t, must[0], "match_all")
	assert.Equal(t, DefaultSearchLimit, body["size"])
}

func TestSearch_DecodesHits(t *testing.T) {
	logger := testutil.NewMockLogger()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/judgments_test/_search", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["track_total_hits"])
		w.Write([]byte(searchReply))
	}, logger)

	res, err := NewRecordIndex(c, logger).Search(context.Background(), judgment.SearchQuery{Text: "france"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.Total)
	require.Len(t, res.Hits, 2, "undecodable hit is skipped")

	first := res.Hits[0]
	assert.Equal(t, "100/01", first.Record.Identifier)
	assert.Equal(t, 2001, first.Record.Year())
	assert.Equal(t, 4.2, first.Score)
	assert.Equal(t, []string{"CASE OF A v. <em>FRANCE</em>"}, first.Highlights["title"])
	assert.False(t, res.Hits[1].Record.DecisionDate.Valid)
	assert.True(t, logger.HasMessage("warn", "Skipping undecodable hit"))
}

func TestSearch_InvalidQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}, logging.NewNopLogger())
	idx := NewRecordIndex(c, logging.NewNopLogger())

	_, err := idx.Search(context.Background(), judgment.SearchQuery{Text: "   "})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	_, err = idx.Search(context.Background(), judgment.SearchQuery{Text: "x", Limit: judgment.MaxSearchLimit + 1})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestSearch_MissingIndex(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"index_not_found_exception","reason":"no such index [judgments_test]"},"status":404}`))
	}, logging.NewNopLogger())

	_, err := NewRecordIndex(c, logging.NewNopLogger()).Search(context.Background(), judgment.SearchQuery{Text: "x"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
	assert.Contains(t, err.Error(), "index_not_found_exception")
}
