// Package report assembles analysis results into a presentation model and
// renders it as HTML, Markdown, JSON, Excel workbooks and CSV.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
	"github.com/joshsymonds/rcmatrix/pkg/pathutil"
)

// Format renders an analysis result in one output encoding.
type Format interface {
	// Write renders result to w.
	Write(w io.Writer, result *models.AnalysisResult) error
	// Name returns the format identifier (e.g., "xlsx", "csv").
	Name() string
	// Extension returns the file extension including the dot.
	Extension() string
	// ContentType returns the MIME type served for downloads.
	ContentType() string
	// Description returns a human-readable description of the format.
	Description() string
}

// FormatFactory creates instances of report formats.
type FormatFactory func(log logger.Logger) (Format, error)

var (
	formatRegistry = make(map[string]FormatFactory)
	registryMutex  sync.RWMutex
)

// RegisterFormat registers a new report format factory.
func RegisterFormat(name string, factory FormatFactory) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if factory == nil {
		panic(fmt.Sprintf("report: RegisterFormat factory is nil for format %q", name))
	}
	if _, dup := formatRegistry[name]; dup {
		panic(fmt.Sprintf("report: RegisterFormat called twice for format %q", name))
	}
	formatRegistry[name] = factory
}

// GetFormat creates an instance of the specified report format.
func GetFormat(name string, log logger.Logger) (Format, error) {
	registryMutex.RLock()
	factory, exists := formatRegistry[name]
	registryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown report format: %s", name)
	}

	return factory(log)
}

// ListFormats returns the registered format names, sorted.
func ListFormats() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	formats := make([]string, 0, len(formatRegistry))
	for name := range formatRegistry {
		formats = append(formats, name)
	}
	sort.Strings(formats)
	return formats
}

// ExportFileName returns the download name for an export taken at t.
func ExportFileName(f Format, t time.Time) string {
	return "rcm_analysis_" + t.Format("20060102_150405") + f.Extension()
}

// GenerateFile renders result with f into outputPath, creating parent
// directories as needed.
func GenerateFile(f Format, result *models.AnalysisResult, outputPath string, log logger.Logger) (err error) {
	validPath, err := pathutil.ValidateOutputPath(outputPath)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(validPath), 0750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	file, err := os.Create(validPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing output file: %w", cerr)
		}
	}()

	if err = f.Write(file, result); err != nil {
		return fmt.Errorf("generating %s report: %w", f.Name(), err)
	}

	log.Info("Generated report", "format", f.Name(), "path", validPath)
	return nil
}

// GenerateFiles writes result into dir once per named format, using
// ExportFileName with stamp, and returns the written paths in order. On error
// the paths written so far are returned.
func GenerateFiles(result *models.AnalysisResult, dir string, formats []string, stamp time.Time, log logger.Logger) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, name := range formats {
		f, err := GetFormat(name, log)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, ExportFileName(f, stamp))
		if err := GenerateFile(f, result, path, log); err != nil {
			return paths, fmt.Errorf("writing %s export: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ParseFormatList splits a comma-separated list of format names, dropping
// blanks.
func ParseFormatList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// writerFormat adapts a write function to the Format interface.
type writerFormat struct {
	write       func(io.Writer, *models.AnalysisResult) error
	name        string
	ext         string
	contentType string
	description string

	// bind, when set, replaces write with one that logs through the
	// factory's logger.
	bind func(logger.Logger) func(io.Writer, *models.AnalysisResult) error
}

func (f *writerFormat) Write(w io.Writer, result *models.AnalysisResult) error {
	return f.write(w, result)
}

func (f *writerFormat) Name() string        { return f.name }
func (f *writerFormat) Extension() string   { return f.ext }
func (f *writerFormat) ContentType() string { return f.contentType }
func (f *writerFormat) Description() string { return f.description }

// WriteJSON writes the assembled view of result as indented JSON.
func WriteJSON(w io.Writer, result *models.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Assemble(result)); err != nil {
		return fmt.Errorf("encoding view: %w", err)
	}
	return nil
}

// Register built-in formats during package initialization.
func init() {
	builtins := []*writerFormat{
		{
			name:        "html",
			ext:         ".html",
			contentType: "text/html; charset=utf-8",
			description: "Standalone HTML report with department tabs",
			write:       WriteHTML,
		},
		{
			name:        "xlsx",
			ext:         ".xlsx",
			contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			description: "Excel workbook with summary, objectives, department risk and recommendation sheets",
			write:       WriteWorkbook,
			bind: func(log logger.Logger) func(io.Writer, *models.AnalysisResult) error {
				return func(w io.Writer, result *models.AnalysisResult) error {
					return WriteWorkbookWithLogger(w, result, log)
				}
			},
		},
		{
			name:        "csv",
			ext:         ".csv",
			contentType: "text/csv; charset=utf-8",
			description: "Flat control objective table",
			write:       WriteCSV,
		},
		{
			name:        "markdown",
			ext:         ".md",
			contentType: "text/markdown; charset=utf-8",
			description: "Markdown rendering of the department report",
			write:       WriteMarkdown,
		},
		{
			name:        "json",
			ext:         ".json",
			contentType: "application/json",
			description: "Assembled report view as JSON",
			write:       WriteJSON,
		},
	}

	for _, f := range builtins {
		RegisterFormat(f.name, func(log logger.Logger) (Format, error) {
			if f.bind == nil || log == nil {
				return f, nil
			}
			bound := *f
			bound.write = f.bind(log)
			return &bound, nil
		})
	}
}
