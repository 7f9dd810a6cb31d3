package e2e_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLaw-Intelligence/pkg/client"
)

func TestE2E_PipelineResult(t *testing.T) {
	assert.Equal(t, 6, env.run.Documents)
	assert.Len(t, env.run.Records, 5)
	assert.Equal(t, 1, env.run.RejectedTotal())
}

func TestE2E_ListRecords(t *testing.T) {
	page, err := env.sdk.Records().List(context.Background(), client.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	require.Len(t, page.Records, 5)
	for i, id := range []string{"100/01", "200/02", "300/03", "400/04", "500/05"} {
		assert.Equal(t, id, page.Records[i].Identifier)
	}
}

func TestE2E_FilterRecords(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		filter client.RecordFilter
		want   []string
		total  int64
	}{
		{"by state", client.RecordFilter{RespondentState: "Ruritania"}, []string{"400/04", "500/05"}, 2},
		{"by outcome", client.RecordFilter{Outcome: "no_violation"}, []string{"200/02", "500/05"}, 2},
		{"by year", client.RecordFilter{Year: 2003, Outcome: "violation"}, []string{"100/01", "300/03"}, 2},
		{"paged", client.RecordFilter{Limit: 2, Offset: 3}, []string{"400/04", "500/05"}, 5},
		{"state paged", client.RecordFilter{RespondentState: "Ruritania", Limit: 1}, []string{"400/04"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := env.sdk.Records().List(ctx, tt.filter)
			require.NoError(t, err)
			var got []string
			for _, r := range page.Records {
				got = append(got, r.Identifier)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.total, page.Total, "total counts every matching record")
		})
	}
}

func TestE2E_AllRecords(t *testing.T) {
	all, err := env.sdk.Records().All(context.Background(), client.RecordFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestE2E_LookupRecord(t *testing.T) {
	rec, err := env.sdk.Records().Lookup(context.Background(), "400/04")
	require.NoError(t, err)
	assert.Equal(t, "Ruritania", rec.RespondentState)
	assert.Equal(t, "violation", rec.Outcome)
	assert.Equal(t, []string{"100/01"}, rec.RelatedCases)
	require.NotNil(t, rec.Date)
	assert.Equal(t, "2010-06-15", *rec.Date)
}

func TestE2E_LookupErrors(t *testing.T) {
	ctx := context.Background()

	_, err := env.sdk.Records().Lookup(ctx, "999/99")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "JDG_002", apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)

	_, err = env.sdk.Records().Lookup(ctx, "not-an-id")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "JDG_004", apiErr.Code)

	_, err = env.sdk.Records().List(ctx, client.RecordFilter{Outcome: "won"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "COMMON_010", apiErr.Code)
}

func TestE2E_SearchRecords(t *testing.T) {
	ctx := context.Background()

	res, err := env.sdk.Records().Search(ctx, client.SearchQuery{RespondentState: "Ruritania"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "400/04", res.Hits[0].Record.Identifier)
	assert.Equal(t, "500/05", res.Hits[1].Record.Identifier)

	res, err = env.sdk.Records().Search(ctx, client.SearchQuery{RespondentState: "Ruritania", Outcome: "no_violation"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "500/05", res.Hits[0].Record.Identifier)

	res, err = env.sdk.Records().Search(ctx, client.SearchQuery{Text: "zzyzx"})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.Empty(t, res.Hits)

	_, err = env.sdk.Records().Search(ctx, client.SearchQuery{Text: "x", Limit: 500})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "COMMON_010", apiErr.Code)
}
