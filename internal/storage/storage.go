// Package storage handles persistence of analysis results and their exports.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/internal/report"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
	"github.com/joshsymonds/rcmatrix/pkg/pathutil"
)

// ErrAnalysisNotFound is returned when no stored analysis has the given id.
var ErrAnalysisNotFound = errors.New("analysis not found")

const (
	analysisFile = "analysis.json"
	exportsDir   = "exports"
)

// Storage handles saving and loading analyses under baseDir/<id>/.
type Storage struct {
	logger  logger.Logger
	now     func() time.Time
	baseDir string
}

// NewStorage creates a new storage instance.
func NewStorage(baseDir string) *Storage {
	return NewStorageWithLogger(baseDir, logger.GetGlobalLogger())
}

// NewStorageWithLogger creates a new storage instance with a custom logger.
func NewStorageWithLogger(baseDir string, log logger.Logger) *Storage {
	return &Storage{
		baseDir: baseDir,
		logger:  log,
		now:     time.Now,
	}
}

// BaseDir returns the directory analyses are stored under.
func (s *Storage) BaseDir() string {
	return s.baseDir
}

// AnalysisDir returns the directory of one analysis.
func (s *Storage) AnalysisDir(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("analysis id is empty")
	}
	return pathutil.JoinAndValidate(s.baseDir, id)
}

// SaveAnalysis writes result to <id>/analysis.json and returns the directory.
func (s *Storage) SaveAnalysis(result *models.AnalysisResult) (string, error) {
	dir, err := s.AnalysisDir(result.ID)
	if err != nil {
		return "", fmt.Errorf("invalid analysis directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("creating analysis directory: %w", err)
	}

	path := filepath.Join(dir, analysisFile)
	if err := s.saveJSON(path, result); err != nil {
		return "", fmt.Errorf("saving analysis: %w", err)
	}
	s.logger.Debug("Saved analysis", "path", path)
	return dir, nil
}

// LoadAnalysis reads a stored analysis.
func (s *Storage) LoadAnalysis(id string) (*models.AnalysisResult, error) {
	dir, err := s.AnalysisDir(id)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis directory: %w", err)
	}

	var result models.AnalysisResult
	if err := s.loadJSON(filepath.Join(dir, analysisFile), &result); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", id, ErrAnalysisNotFound)
		}
		return nil, fmt.Errorf("loading analysis %s: %w", id, err)
	}
	return &result, nil
}

// WriteExports renders result in each named format into <id>/exports and
// returns the written paths in the order given.
func (s *Storage) WriteExports(result *models.AnalysisResult, formats []string) ([]string, error) {
	dir, err := s.AnalysisDir(result.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis directory: %w", err)
	}
	outDir := filepath.Join(dir, exportsDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return nil, fmt.Errorf("creating exports directory: %w", err)
	}

	stamp := result.CreatedAt
	if stamp.IsZero() {
		stamp = s.now()
	}

	return report.GenerateFiles(result, outDir, formats, stamp, s.logger)
}

// DeleteAnalysis removes an analysis directory.
func (s *Storage) DeleteAnalysis(id string) error {
	dir, err := s.AnalysisDir(id)
	if err != nil {
		return fmt.Errorf("invalid analysis directory: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing analysis directory: %w", err)
	}
	return nil
}

// saveJSON saves data as JSON to a file.
func (s *Storage) saveJSON(path string, data any) (err error) {
	file, err := os.Create(path) // #nosec G304 - path is validated by caller
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// loadJSON loads JSON data from a file.
func (s *Storage) loadJSON(path string, data any) (err error) {
	file, err := os.Open(path) // #nosec G304 - path is validated by caller
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return json.NewDecoder(file).Decode(data)
}
