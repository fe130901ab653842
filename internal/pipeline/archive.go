package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joshsymonds/rcmatrix/internal/database"
	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/internal/storage"
)

// History archives analyses on disk and records them in the database.
type History struct {
	db      *database.DB
	storage *storage.Storage
}

// NewHistory creates a History. Either collaborator may be nil.
func NewHistory(db *database.DB, store *storage.Storage) *History {
	return &History{db: db, storage: store}
}

// Archive implements Archiver.
func (h *History) Archive(ctx context.Context, result *models.AnalysisResult) error {
	if h.storage != nil {
		if _, err := h.storage.SaveAnalysis(result); err != nil {
			return err
		}
	}
	if h.db == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding analysis: %w", err)
	}
	return h.db.SaveAnalysis(ctx, &database.Analysis{
		ID:                  result.ID,
		SourceFile:          result.SourceFile,
		Model:               result.Model,
		CreatedAt:           result.CreatedAt,
		Result:              data,
		ObjectiveCount:      len(result.ControlObjectives),
		DepartmentCount:     len(result.DepartmentNames()),
		GapCount:            len(result.Gaps),
		RecommendationCount: len(result.Recommendations),
	})
}

// Load returns a stored analysis by id, or the latest when id is empty. The
// database copy is preferred; the on-disk archive is the fallback.
func (h *History) Load(ctx context.Context, id string) (*models.AnalysisResult, error) {
	if h.db != nil {
		var (
			row *database.Analysis
			err error
		)
		if id == "" {
			row, err = h.db.GetLatestAnalysis(ctx)
		} else {
			row, err = h.db.GetAnalysis(ctx, id)
		}
		if err == nil {
			var result models.AnalysisResult
			if err := json.Unmarshal(row.Result, &result); err != nil {
				return nil, fmt.Errorf("decoding analysis %s: %w", row.ID, err)
			}
			return &result, nil
		}
		if h.storage == nil || id == "" {
			return nil, err
		}
	}
	if h.storage == nil {
		return nil, fmt.Errorf("no analysis history configured")
	}
	if id == "" {
		return nil, fmt.Errorf("an analysis id is required without a database")
	}
	return h.storage.LoadAnalysis(id)
}

// ExportPublisher writes exports to the analysis directory and uploads them.
type ExportPublisher struct {
	storage   *storage.Storage
	publisher *storage.S3Publisher
	formats   []string
}

// NewExportPublisher creates an ExportPublisher for the given formats.
func NewExportPublisher(store *storage.Storage, publisher *storage.S3Publisher, formats ...string) *ExportPublisher {
	if len(formats) == 0 {
		formats = []string{"xlsx", "csv"}
	}
	return &ExportPublisher{storage: store, publisher: publisher, formats: formats}
}

// Publish implements Publisher.
func (e *ExportPublisher) Publish(ctx context.Context, result *models.AnalysisResult) ([]string, error) {
	files, err := e.storage.WriteExports(result, e.formats)
	if err != nil {
		return nil, err
	}
	return e.publisher.Publish(ctx, result.ID, files)
}
