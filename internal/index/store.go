// Package index keeps a best-effort similarity index of extracted control
// objectives in SQLite.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/joshsymonds/rcmatrix/internal/database"
	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

// Indexer stores analysis records for later similarity queries.
type Indexer interface {
	Index(ctx context.Context, collection string, result *models.AnalysisResult) error
}

// Match is a query hit.
type Match struct {
	Document *database.IndexDocument
	Score    float64
}

// Store is an Indexer over the index_documents table.
type Store struct {
	db       *database.DB
	embedder Embedder
	logger   logger.Logger
}

// NewStore creates a Store using the global logger.
func NewStore(db *database.DB, embedder Embedder) *Store {
	return NewStoreWithLogger(db, embedder, logger.GetGlobalLogger())
}

// NewStoreWithLogger creates a Store with a custom logger.
func NewStoreWithLogger(db *database.DB, embedder Embedder, log logger.Logger) *Store {
	return &Store{db: db, embedder: embedder, logger: log}
}

// Index embeds one document per control objective and stores them in
// collection. Re-indexing the same analysis replaces its documents.
func (s *Store) Index(ctx context.Context, collection string, result *models.AnalysisResult) error {
	if result == nil || len(result.ControlObjectives) == 0 {
		return nil
	}

	texts := make([]string, len(result.ControlObjectives))
	for i, obj := range result.ControlObjectives {
		texts[i] = DocumentText(obj)
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding objectives: %w", err)
	}

	docs := make([]*database.IndexDocument, len(texts))
	for i, obj := range result.ControlObjectives {
		docs[i] = &database.IndexDocument{
			Collection: collection,
			Key:        documentKey(result, i),
			AnalysisID: result.ID,
			Department: obj.Department,
			Content:    texts[i],
			Embedding:  vectors[i],
			Metadata: map[string]string{
				"risk_level":  obj.RiskLevel,
				"source_file": result.SourceFile,
				"embedder":    s.embedder.Name(),
			},
		}
	}

	if err := s.db.UpsertIndexDocuments(ctx, docs); err != nil {
		return fmt.Errorf("storing index documents: %w", err)
	}

	s.logger.Debug("Indexed control objectives",
		"collection", collection,
		"documents", len(docs),
		"embedder", s.embedder.Name())
	return nil
}

// Query returns the k documents in collection most similar to text.
func (s *Store) Query(ctx context.Context, collection, text string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	query := vectors[0]

	docs, err := s.db.ListIndexDocuments(ctx, collection)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) != len(query) {
			s.logger.Debug("Skipping document with mismatched embedding",
				"key", doc.Key, "dims", len(doc.Embedding), "want", len(query))
			continue
		}
		matches = append(matches, Match{Document: doc, Score: Cosine(query, doc.Embedding)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// DocumentText is the indexed text of one objective.
func DocumentText(obj models.ControlObjective) string {
	var sb strings.Builder
	sb.WriteString("Department: " + obj.Department + "\n")
	sb.WriteString("Control Objective: " + obj.Objective + "\n")
	sb.WriteString("What Can Go Wrong: " + obj.WhatCanGoWrong + "\n")
	sb.WriteString("Risk Level: " + obj.RiskLevel)
	if obj.HasGap() {
		sb.WriteString("\nGap: " + obj.GapDetails)
	}
	return sb.String()
}

func documentKey(result *models.AnalysisResult, i int) string {
	prefix := result.ID
	if prefix == "" {
		prefix = result.SourceFile
	}
	return prefix + "/" + strconv.Itoa(i)
}

// Cosine returns the cosine similarity of two equal-length vectors, or 0 when
// either is all zeros.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
