// Package report implements the report command for exporting stored analyses.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joshsymonds/rcmatrix/internal/config"
	"github.com/joshsymonds/rcmatrix/internal/database"
	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/internal/pipeline"
	"github.com/joshsymonds/rcmatrix/internal/report"
	"github.com/joshsymonds/rcmatrix/internal/storage"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

// Options represents report command options.
type Options struct {
	AnalysisID string
	InputFile  string
	OutputDir  string
	ConfigFile string
	Formats    []string
}

// Run executes the report command.
func Run(args []string) error {
	opts := &Options{}

	fs := flag.NewFlagSet("report", flag.ExitOnError)
	fs.StringVar(&opts.AnalysisID, "analysis", "latest", "Analysis id (or 'latest')")
	fs.StringVar(&opts.InputFile, "input", "", "Render an analysis.json file instead of the history")
	fs.StringVar(&opts.OutputDir, "output", "reports", "Output directory")
	fs.StringVar(&opts.ConfigFile, "config", "", "Configuration file")

	var formatFlag string
	fs.StringVar(&formatFlag, "format", "html", "Report format(s): "+strings.Join(report.ListFormats(), ","))

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: rcmatrix report [options]

Export a stored analysis.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  rcmatrix report
  rcmatrix report --analysis 7f9c2d4e --format xlsx,csv
  rcmatrix report --input data/analyses/7f9c2d4e/analysis.json --format markdown`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	opts.Formats = report.ParseFormatList(formatFlag)
	if len(opts.Formats) == 0 {
		return fmt.Errorf("--format requires at least one format")
	}

	log := logger.GetGlobalLogger()
	result, err := load(context.Background(), opts, log)
	if err != nil {
		return err
	}

	files, err := report.GenerateFiles(result, opts.OutputDir, opts.Formats, result.CreatedAt, log)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Printf("Wrote %s\n", f) //nolint:forbidigo
	}
	return nil
}

func load(ctx context.Context, opts *Options, log logger.Logger) (*models.AnalysisResult, error) {
	if opts.InputFile != "" {
		return readResultFile(opts.InputFile)
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", "error", err)
		}
	}()

	id := opts.AnalysisID
	if id == "latest" {
		id = ""
	}

	history := pipeline.NewHistory(db, storage.NewStorageWithLogger(cfg.AnalysesDir(), log))
	result, err := history.Load(ctx, id)
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, storage.ErrAnalysisNotFound) {
		return nil, fmt.Errorf("no stored analysis %q; run 'rcmatrix analyze' first", opts.AnalysisID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading analysis: %w", err)
	}
	return result, nil
}

func readResultFile(path string) (*models.AnalysisResult, error) {
	data, err := os.ReadFile(path) // #nosec G304 - user-provided input path
	if err != nil {
		return nil, fmt.Errorf("reading analysis file: %w", err)
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing analysis file: %w", err)
	}
	return &result, nil
}
