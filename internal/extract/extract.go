// Package extract reads Risk Control Matrix documents into normalized
// control objective records.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

var (
	// ErrUnsupportedFormat is returned for file extensions with no extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrNoControlObjectives is returned when a document holds no recognizable rows.
	ErrNoControlObjectives = errors.New("no control objectives found in document")
)

// Extractor reads control objectives from one kind of document.
type Extractor interface {
	// Extract returns the objectives found in the file at path, in document order.
	Extract(ctx context.Context, path string) ([]models.ControlObjective, error)
	// Name identifies the extractor in logs.
	Name() string
}

// Processor dispatches documents to extractors by file extension.
type Processor struct {
	logger     logger.Logger
	extractors map[string]Extractor
}

// NewProcessor creates a processor with the built-in extractors.
func NewProcessor() *Processor {
	return NewProcessorWithLogger(logger.GetGlobalLogger())
}

// NewProcessorWithLogger creates a processor with a custom logger.
func NewProcessorWithLogger(log logger.Logger) *Processor {
	p := &Processor{
		logger:     log,
		extractors: make(map[string]Extractor),
	}
	p.Register(".xlsx", &XLSXExtractor{})
	p.Register(".csv", &CSVExtractor{})
	p.Register(".pdf", &PDFExtractor{})
	p.Register(".docx", &DOCXExtractor{})
	return p
}

// Register binds an extractor to a file extension, replacing any previous one.
func (p *Processor) Register(ext string, e Extractor) {
	p.extractors[strings.ToLower(ext)] = e
}

// Extensions returns the supported extensions, sorted.
func (p *Processor) Extensions() []string {
	exts := make([]string, 0, len(p.extractors))
	for ext := range p.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ProcessDocument extracts the file at path into an analysis record holding
// the control objectives and the distinct departments in document order. The
// file is only read.
func (p *Processor) ProcessDocument(ctx context.Context, path string) (*models.AnalysisResult, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := p.extractors[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	start := time.Now()
	objectives, err := e.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extracting %s document: %w", e.Name(), err)
	}
	if len(objectives) == 0 {
		return nil, ErrNoControlObjectives
	}

	result := &models.AnalysisResult{
		SourceFile:        filepath.Base(path),
		ControlObjectives: objectives,
		Departments:       distinctDepartments(objectives),
	}

	p.logger.Info("Extracted control objectives",
		"file", result.SourceFile,
		"extractor", e.Name(),
		"objectives", len(objectives),
		"departments", len(result.Departments),
		"duration", time.Since(start))

	return result, nil
}

// ProcessDocument extracts path with the default processor.
func ProcessDocument(ctx context.Context, path string) (*models.AnalysisResult, error) {
	return NewProcessor().ProcessDocument(ctx, path)
}

func distinctDepartments(objectives []models.ControlObjective) []string {
	seen := make(map[string]bool)
	var out []string
	for _, obj := range objectives {
		if seen[obj.Department] {
			continue
		}
		seen[obj.Department] = true
		out = append(out, obj.Department)
	}
	return out
}
