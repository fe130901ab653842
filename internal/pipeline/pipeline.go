// Package pipeline runs one document through extraction, indexing and risk
// analysis.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joshsymonds/rcmatrix/internal/analysis"
	"github.com/joshsymonds/rcmatrix/internal/extract"
	"github.com/joshsymonds/rcmatrix/internal/index"
	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
	"github.com/joshsymonds/rcmatrix/pkg/pathutil"
)

// Extractor reads a document into a normalized record.
type Extractor interface {
	ProcessDocument(ctx context.Context, path string) (*models.AnalysisResult, error)
}

// Archiver keeps completed analyses.
type Archiver interface {
	Archive(ctx context.Context, result *models.AnalysisResult) error
}

// Publisher makes exports of a completed analysis available elsewhere.
type Publisher interface {
	Publish(ctx context.Context, result *models.AnalysisResult) ([]string, error)
}

// Pipeline runs an analyze action synchronously.
type Pipeline struct {
	extractor  Extractor
	analyzer   analysis.Analyzer
	indexer    index.Indexer
	archiver   Archiver
	publisher  Publisher
	logger     logger.Logger
	now        func() time.Time
	newID      func() string
	remove     func(string) error
	collection string
	scratchDir string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithIndexer stores extracted records in collection before analysis.
func WithIndexer(idx index.Indexer, collection string) Option {
	return func(p *Pipeline) {
		p.indexer = idx
		p.collection = collection
	}
}

// WithArchiver keeps completed analyses.
func WithArchiver(a Archiver) Option {
	return func(p *Pipeline) {
		p.archiver = a
	}
}

// WithPublisher publishes exports of completed analyses.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) {
		p.publisher = pub
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(p *Pipeline) {
		p.logger = log
	}
}

// WithScratchDir sets where uploads are written for parsing. The default is
// the system temp directory.
func WithScratchDir(dir string) Option {
	return func(p *Pipeline) {
		p.scratchDir = dir
	}
}

// New creates a pipeline.
func New(extractor Extractor, analyzer analysis.Analyzer, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		analyzer:  analyzer,
		logger:    logger.GetGlobalLogger(),
		now:       time.Now,
		newID:     uuid.NewString,
		remove:    os.RemoveAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run analyzes the document at path. Only extraction and analysis failures
// are returned; both come back as *StageError.
func (p *Pipeline) Run(ctx context.Context, path string) (*models.AnalysisResult, error) {
	log := p.logger.With("document", filepath.Base(path))

	// Extract rows from the document
	record, err := p.extractor.ProcessDocument(ctx, path)
	if err != nil {
		return nil, &StageError{Stage: StageExtraction, Err: err}
	}
	record.ID = p.newID()
	record.CreatedAt = p.now().UTC()
	log = log.With("analysis_id", record.ID)
	log.Info("Extracted control objectives",
		"objectives", len(record.ControlObjectives),
		"departments", len(record.Departments))

	// Index (best effort)
	if p.indexer != nil {
		if err := p.indexer.Index(ctx, p.collection, record); err != nil {
			p.skip(log, &StageError{Stage: StageIndexing, Err: err})
		}
	}

	// Analyze with the LLM
	result, err := p.analyzer.Analyze(ctx, record)
	if err != nil {
		return nil, &StageError{Stage: StageAnalysis, Err: err}
	}
	result.ID = record.ID
	result.SourceFile = record.SourceFile
	result.CreatedAt = record.CreatedAt

	// Save history
	if p.archiver != nil {
		if err := p.archiver.Archive(ctx, result); err != nil {
			p.skip(log, &StageError{Stage: StagePersistence, Err: err})
		}
	}

	if p.publisher != nil {
		uris, err := p.publisher.Publish(ctx, result)
		if err != nil {
			p.skip(log, &StageError{Stage: StagePublishing, Err: err})
		} else {
			log.Info("Published exports", "count", len(uris))
		}
	}

	return result, nil
}

// RunUpload writes an uploaded document to a scratch file, runs it and removes
// the scratch file. Removal failures are logged, never returned.
func (p *Pipeline) RunUpload(ctx context.Context, name string, r io.Reader) (*models.AnalysisResult, error) {
	clean := pathutil.SanitizeUploadName(name)
	if !pathutil.HasDocumentExtension(clean) {
		return nil, &StageError{
			Stage: StageExtraction,
			Err:   fmt.Errorf("%w: %q", extract.ErrUnsupportedFormat, filepath.Ext(clean)),
		}
	}

	dir, err := os.MkdirTemp(p.scratchDir, "rcm-upload-*")
	if err != nil {
		return nil, &StageError{Stage: StageExtraction, Err: fmt.Errorf("creating scratch directory: %w", err)}
	}
	defer func() {
		if err := p.remove(dir); err != nil {
			p.skip(p.logger, &StageError{Stage: StageCleanup, Err: err})
		}
	}()

	path := filepath.Join(dir, clean)
	if err := writeScratch(path, r); err != nil {
		return nil, &StageError{Stage: StageExtraction, Err: err}
	}

	return p.Run(ctx, path)
}

func writeScratch(path string, r io.Reader) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600) // #nosec G304 - name is sanitized
	if err != nil {
		return fmt.Errorf("creating scratch file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing scratch file: %w", cerr)
		}
	}()

	if _, err = io.Copy(f, r); err != nil {
		return fmt.Errorf("writing scratch file: %w", err)
	}
	return nil
}

func (p *Pipeline) skip(log logger.Logger, err *StageError) {
	log.Warn("Stage failed, continuing", "stage", string(err.Stage), "error", err.Err)
}

// Message returns the user-facing text of a run error: the underlying cause
// without the stage prefix.
func Message(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Err.Error()
	}
	return err.Error()
}
