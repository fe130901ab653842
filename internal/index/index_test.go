package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/rcmatrix/internal/database"
	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

type failingEmbedder struct{}

func (failingEmbedder) Name() string { return "failing" }

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("quota exceeded")
}

func newTestStore(t *testing.T, embedder Embedder) (*Store, *database.DB, *logger.MockLogger) {
	t.Helper()
	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logger.NewMockLogger()
	return NewStoreWithLogger(db, embedder, log), db, log
}

func sampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:         "analysis-1",
		SourceFile: "rcm.xlsx",
		ControlObjectives: []models.ControlObjective{
			{Department: "Finance", Objective: "Vendor payments are approved", WhatCanGoWrong: "Duplicate vendor payments", RiskLevel: "High"},
			{Department: "IT", Objective: "Database access is restricted", WhatCanGoWrong: "Unauthorized access to the production database", RiskLevel: "High"},
			{Department: "HR", Objective: "Payroll changes are reviewed", WhatCanGoWrong: "Ghost employees on payroll", RiskLevel: "Medium", GapDetails: "No review"},
		},
	}
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(32)
	assert.Equal(t, "hash-32", e.Name())

	vectors, err := e.Embed(context.Background(), []string{"Vendor payments", "vendor PAYMENTS!", ""})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Len(t, vectors[0], 32)
	assert.Equal(t, vectors[0], vectors[1], "case and punctuation are ignored")
	assert.InDelta(t, 1.0, Cosine(vectors[0], vectors[0]), 1e-6)
	assert.Zero(t, Cosine(vectors[0], vectors[2]), "empty text embeds to the zero vector")

	assert.Equal(t, "hash-256", NewHashEmbedder(0).Name())
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestDocumentText(t *testing.T) {
	text := DocumentText(models.ControlObjective{
		Department:     "HR",
		Objective:      "Payroll changes are reviewed",
		WhatCanGoWrong: "Ghost employees",
		RiskLevel:      "Medium",
		GapDetails:     "No review",
	})
	assert.Contains(t, text, "Department: HR")
	assert.Contains(t, text, "What Can Go Wrong: Ghost employees")
	assert.Contains(t, text, "Gap: No review")

	assert.NotContains(t, DocumentText(models.ControlObjective{Objective: "x"}), "Gap:")
}

func TestStoreIndexAndQuery(t *testing.T) {
	store, db, log := newTestStore(t, NewHashEmbedder(128))
	ctx := context.Background()

	require.NoError(t, store.Index(ctx, "rcm", sampleResult()))
	assert.True(t, log.HasMessage("DEBUG", "Indexed control objectives"))

	n, err := db.CountIndexDocuments(ctx, "rcm")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Re-indexing the same analysis replaces rather than duplicates.
	require.NoError(t, store.Index(ctx, "rcm", sampleResult()))
	n, err = db.CountIndexDocuments(ctx, "rcm")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	matches, err := store.Query(ctx, "rcm", "unauthorized database access", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "IT", matches[0].Document.Department)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
	assert.Equal(t, "High", matches[0].Document.Metadata["risk_level"])
	assert.Equal(t, "hash-128", matches[0].Document.Metadata["embedder"])

	matches, err = store.Query(ctx, "rcm", "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = store.Query(ctx, "other", "payroll", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStoreQuerySkipsMismatchedDimensions(t *testing.T) {
	store, db, _ := newTestStore(t, NewHashEmbedder(16))
	ctx := context.Background()

	require.NoError(t, store.Index(ctx, "rcm", sampleResult()))

	wider := NewStoreWithLogger(db, NewHashEmbedder(32), logger.NewMockLogger())
	matches, err := wider.Query(ctx, "rcm", "payroll", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStoreIndexEmptyAndErrors(t *testing.T) {
	ctx := context.Background()

	store, db, _ := newTestStore(t, failingEmbedder{})
	require.NoError(t, store.Index(ctx, "rcm", nil))
	require.NoError(t, store.Index(ctx, "rcm", &models.AnalysisResult{}))

	err := store.Index(ctx, "rcm", sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	n, err := db.CountIndexDocuments(ctx, "rcm")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = store.Query(ctx, "rcm", "x", 1)
	assert.Error(t, err)
}

func TestDocumentKeyFallsBackToSourceFile(t *testing.T) {
	result := sampleResult()
	result.ID = ""
	assert.Equal(t, "rcm.xlsx/2", documentKey(result, 2))
}
