package database

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAnalysis(id string, created time.Time) *Analysis {
	return &Analysis{
		ID:                  id,
		SourceFile:          "rcm_" + id + ".xlsx",
		Model:               "gemini-2.0-flash",
		CreatedAt:           created,
		Result:              json.RawMessage(fmt.Sprintf(`{"id":%q}`, id)),
		ObjectiveCount:      4,
		DepartmentCount:     2,
		GapCount:            1,
		RecommendationCount: 3,
	}
}

func TestSaveAndGetAnalysis(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	created := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, db.SaveAnalysis(ctx, sampleAnalysis("a1", created)))

	got, err := db.GetAnalysis(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "rcm_a1.xlsx", got.SourceFile)
	assert.Equal(t, "gemini-2.0-flash", got.Model)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.JSONEq(t, `{"id":"a1"}`, string(got.Result))
	assert.Equal(t, 4, got.ObjectiveCount)
	assert.Equal(t, 3, got.RecommendationCount)

	updated := sampleAnalysis("a1", created)
	updated.GapCount = 9
	require.NoError(t, db.SaveAnalysis(ctx, updated))

	got, err = db.GetAnalysis(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 9, got.GapCount, "saving the same id replaces the row")

	assert.Error(t, db.SaveAnalysis(ctx, &Analysis{}))

	_, err = db.GetAnalysis(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetLatestAnalysis(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.GetLatestAnalysis(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.SaveAnalysis(ctx, sampleAnalysis("old", base)))
	require.NoError(t, db.SaveAnalysis(ctx, sampleAnalysis("new", base.Add(time.Hour))))

	latest, err := db.GetLatestAnalysis(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", latest.ID)
}

func TestListAnalyses(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"jan", "feb", "mar"} {
		require.NoError(t, db.SaveAnalysis(ctx, sampleAnalysis(id, base.AddDate(0, i, 0))))
	}

	tests := []struct {
		name   string
		filter AnalysisFilter
		want   []string
	}{
		{name: "all newest first", want: []string{"mar", "feb", "jan"}},
		{name: "limit", filter: AnalysisFilter{Limit: 1}, want: []string{"mar"}},
		{name: "since", filter: AnalysisFilter{Since: base.AddDate(0, 1, 0)}, want: []string{"mar", "feb"}},
		{name: "source file", filter: AnalysisFilter{SourceFile: "feb"}, want: []string{"feb"}},
		{name: "no match", filter: AnalysisFilter{SourceFile: "nothing"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyses, err := db.ListAnalyses(ctx, tt.filter)
			require.NoError(t, err)

			var ids []string
			for _, a := range analyses {
				ids = append(ids, a.ID)
				assert.Nil(t, a.Result)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestDeleteAnalysis(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveAnalysis(ctx, sampleAnalysis("gone", time.Now())))
	require.NoError(t, db.UpsertIndexDocuments(ctx, []*IndexDocument{
		{Collection: "objectives", Key: "gone/1", AnalysisID: "gone", Content: "x", Embedding: []float32{1}},
		{Collection: "objectives", Key: "kept/1", AnalysisID: "kept", Content: "y", Embedding: []float32{1}},
	}))

	require.NoError(t, db.DeleteAnalysis(ctx, "gone"))

	_, err := db.GetAnalysis(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)

	docs, err := db.ListIndexDocuments(ctx, "objectives")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "kept/1", docs[0].Key)

	assert.ErrorIs(t, db.DeleteAnalysis(ctx, "gone"), ErrNotFound)
}

func TestIndexDocuments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	docs := []*IndexDocument{
		{
			Collection: "objectives",
			Key:        "a1/0",
			AnalysisID: "a1",
			Department: "Finance",
			Content:    "Approve vendor payments",
			Metadata:   map[string]string{"risk_level": "High"},
			Embedding:  []float32{0.5, -0.25, 1},
		},
		{
			Collection: "objectives",
			Key:        "a1/1",
			AnalysisID: "a1",
			Department: "IT",
			Content:    "Restrict database access",
			Embedding:  []float32{0, 1, 0},
		},
		{
			Collection: "gaps",
			Key:        "a1/g0",
			Content:    "No segregation of duties",
			Embedding:  []float32{1, 0, 0},
		},
	}
	require.NoError(t, db.UpsertIndexDocuments(ctx, docs))
	require.NoError(t, db.UpsertIndexDocuments(ctx, nil))

	got, err := db.ListIndexDocuments(ctx, "objectives")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Approve vendor payments", got[0].Content)
	assert.Equal(t, map[string]string{"risk_level": "High"}, got[0].Metadata)
	assert.Equal(t, []float32{0.5, -0.25, 1}, got[0].Embedding)
	assert.Positive(t, got[0].ID)

	replaced := *docs[1]
	replaced.Content = "Restrict production database access"
	require.NoError(t, db.UpsertIndexDocuments(ctx, []*IndexDocument{&replaced}))

	n, err := db.CountIndexDocuments(ctx, "objectives")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err = db.ListIndexDocuments(ctx, "objectives")
	require.NoError(t, err)
	assert.Equal(t, "Restrict production database access", got[1].Content)

	require.NoError(t, db.DeleteCollection(ctx, "objectives"))
	n, err = db.CountIndexDocuments(ctx, "objectives")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = db.CountIndexDocuments(ctx, "gaps")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEmbeddingEncoding(t *testing.T) {
	v := []float32{1.5, -2, 0, 3.25}
	decoded, err := DecodeEmbedding(EncodeEmbedding(v))
	require.NoError(t, err)
	assert.Equal(t, v, decoded)

	empty, err := DecodeEmbedding(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = DecodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}
