package database

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SaveAnalysis inserts or replaces an analysis.
func (db *DB) SaveAnalysis(ctx context.Context, a *Analysis) error {
	if a.ID == "" {
		return fmt.Errorf("analysis id is required")
	}

	query := `
		INSERT INTO analyses (id, source_file, model, created_at, objective_count,
			department_count, gap_count, recommendation_count, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_file = excluded.source_file,
			model = excluded.model,
			created_at = excluded.created_at,
			objective_count = excluded.objective_count,
			department_count = excluded.department_count,
			gap_count = excluded.gap_count,
			recommendation_count = excluded.recommendation_count,
			result_json = excluded.result_json
	`

	_, err := db.ExecContext(ctx, query,
		a.ID,
		a.SourceFile,
		a.Model,
		a.CreatedAt.UTC(),
		a.ObjectiveCount,
		a.DepartmentCount,
		a.GapCount,
		a.RecommendationCount,
		string(a.Result),
	)
	if err != nil {
		return fmt.Errorf("saving analysis %s: %w", a.ID, err)
	}
	return nil
}

const analysisColumns = `id, source_file, model, created_at, objective_count,
	department_count, gap_count, recommendation_count, result_json`

// GetAnalysis returns the analysis with the given id, or ErrNotFound.
func (db *DB) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	row := db.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = ?`, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting analysis %s: %w", id, err)
	}
	return a, nil
}

// GetLatestAnalysis returns the most recently created analysis.
func (db *DB) GetLatestAnalysis(ctx context.Context) (*Analysis, error) {
	row := db.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses ORDER BY created_at DESC LIMIT 1`)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest analysis: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest analysis: %w", err)
	}
	return a, nil
}

// ListAnalyses returns analyses newest first. Result JSON is not loaded.
func (db *DB) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]*Analysis, error) {
	var (
		where []string
		args  []any
	)
	if filter.SourceFile != "" {
		where = append(where, "source_file LIKE ?")
		args = append(args, "%"+filter.SourceFile+"%")
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	query := `SELECT id, source_file, model, created_at, objective_count,
		department_count, gap_count, recommendation_count, '' FROM analyses`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		a.Result = nil
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAnalysis removes an analysis and the index documents derived from it.
func (db *DB) DeleteAnalysis(ctx context.Context, id string) error {
	return db.InTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting analysis: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("analysis %s: %w", id, ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM index_documents WHERE analysis_id = ?`, id); err != nil {
			return fmt.Errorf("deleting index documents: %w", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*Analysis, error) {
	var (
		a      Analysis
		result string
	)
	err := row.Scan(
		&a.ID,
		&a.SourceFile,
		&a.Model,
		&a.CreatedAt,
		&a.ObjectiveCount,
		&a.DepartmentCount,
		&a.GapCount,
		&a.RecommendationCount,
		&result,
	)
	if err != nil {
		return nil, err
	}
	a.Result = json.RawMessage(result)
	return &a, nil
}

// UpsertIndexDocuments stores documents, replacing any with the same
// collection and key.
func (db *DB) UpsertIndexDocuments(ctx context.Context, docs []*IndexDocument) error {
	if len(docs) == 0 {
		return nil
	}

	return db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO index_documents (collection, doc_key, analysis_id, department, content, metadata, embedding)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(collection, doc_key) DO UPDATE SET
				analysis_id = excluded.analysis_id,
				department = excluded.department,
				content = excluded.content,
				metadata = excluded.metadata,
				embedding = excluded.embedding
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer func() {
			_ = stmt.Close()
		}()

		for _, doc := range docs {
			meta, err := json.Marshal(doc.Metadata)
			if err != nil {
				return fmt.Errorf("marshaling metadata for %s: %w", doc.Key, err)
			}
			_, err = stmt.ExecContext(ctx,
				doc.Collection,
				doc.Key,
				doc.AnalysisID,
				doc.Department,
				doc.Content,
				string(meta),
				EncodeEmbedding(doc.Embedding),
			)
			if err != nil {
				return fmt.Errorf("inserting index document %s: %w", doc.Key, err)
			}
		}
		return nil
	})
}

// ListIndexDocuments returns every document in a collection in insertion order.
func (db *DB) ListIndexDocuments(ctx context.Context, collection string) ([]*IndexDocument, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, collection, doc_key, analysis_id, department, content, metadata, embedding
		FROM index_documents WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("listing index documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*IndexDocument
	for rows.Next() {
		var (
			doc       IndexDocument
			meta      string
			embedding []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Collection, &doc.Key, &doc.AnalysisID, &doc.Department, &doc.Content, &meta, &embedding); err != nil {
			return nil, fmt.Errorf("scanning index document: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata of %s: %w", doc.Key, err)
		}
		if doc.Embedding, err = DecodeEmbedding(embedding); err != nil {
			return nil, fmt.Errorf("decoding embedding of %s: %w", doc.Key, err)
		}
		out = append(out, &doc)
	}
	return out, rows.Err()
}

// CountIndexDocuments returns the number of documents in a collection.
func (db *DB) CountIndexDocuments(ctx context.Context, collection string) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM index_documents WHERE collection = ?`, collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting index documents: %w", err)
	}
	return n, nil
}

// DeleteCollection removes every document in a collection.
func (db *DB) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM index_documents WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("deleting collection %s: %w", collection, err)
	}
	return nil
}

// EncodeEmbedding packs a vector as little-endian float32s.
func EncodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeEmbedding unpacks a vector written by EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
