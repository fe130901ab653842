// Package view implements the view command, a terminal browser for stored
// analyses.
package view

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/joshsymonds/rcmatrix/internal/config"
	"github.com/joshsymonds/rcmatrix/internal/database"
	"github.com/joshsymonds/rcmatrix/internal/pipeline"
	"github.com/joshsymonds/rcmatrix/internal/report"
	"github.com/joshsymonds/rcmatrix/internal/storage"
	"github.com/joshsymonds/rcmatrix/internal/ui"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

// ErrNotTerminal is returned when stdout is not an interactive terminal and
// Markdown fallback was not requested.
var ErrNotTerminal = errors.New("view needs an interactive terminal; use --plain for Markdown output")

// Run executes the view command.
func Run(args []string) error {
	var (
		configFile string
		analysisID string
		plain      bool
	)

	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.StringVar(&configFile, "config", "", "Configuration file")
	fs.StringVar(&analysisID, "analysis", "latest", "Analysis id (or 'latest')")
	fs.BoolVar(&plain, "plain", false, "Print the report as Markdown instead of opening the browser")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: rcmatrix view [options]

Browse a stored analysis in the terminal, one tab per department.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd())) // #nosec G115 - file descriptors fit in int
	if !plain && !interactive {
		return ErrNotTerminal
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.GetGlobalLogger()
	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	id := analysisID
	if id == "latest" {
		id = ""
	}
	history := pipeline.NewHistory(db, storage.NewStorageWithLogger(cfg.AnalysesDir(), log))
	result, err := history.Load(context.Background(), id)
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, storage.ErrAnalysisNotFound) {
		return fmt.Errorf("no stored analysis %q; run 'rcmatrix analyze' first", analysisID)
	}
	if err != nil {
		return fmt.Errorf("loading analysis: %w", err)
	}

	if plain {
		return report.WriteMarkdown(os.Stdout, result)
	}
	return ui.Run(result)
}
