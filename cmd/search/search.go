// Package search implements the search command, a similarity query over the
// control objectives indexed by earlier analyses.
package search

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joshsymonds/rcmatrix/internal/config"
	"github.com/joshsymonds/rcmatrix/internal/database"
	"github.com/joshsymonds/rcmatrix/internal/index"
	"github.com/joshsymonds/rcmatrix/internal/pipeline"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

// Querier returns the nearest indexed documents for a text query.
type Querier interface {
	Query(ctx context.Context, collection, text string, k int) ([]index.Match, error)
}

// Run executes the search command.
func Run(args []string) error {
	var (
		configFile string
		limit      int
	)

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	fs.StringVar(&configFile, "config", "", "Configuration file")
	fs.IntVar(&limit, "limit", 5, "Maximum number of matches")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: rcmatrix search [options] <text>

Find indexed control objectives similar to the given text.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		fs.Usage()
		return errors.New("search text required")
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.Index.Enabled {
		return errors.New("similarity index is disabled in configuration")
	}

	ctx := context.Background()
	embedder, err := pipeline.NewEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	store := index.NewStoreWithLogger(db, embedder, logger.GetGlobalLogger())
	return search(ctx, store, cfg.Index.Collection, text, limit, os.Stdout)
}

func search(ctx context.Context, q Querier, collection, text string, limit int, out io.Writer) error {
	matches, err := q.Query(ctx, collection, text, limit)
	if err != nil {
		return fmt.Errorf("querying index: %w", err)
	}

	if len(matches) == 0 {
		fmt.Fprintln(out, "No matching control objectives.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tDEPARTMENT\tRISK\tANALYSIS\tOBJECTIVE")
	for _, m := range matches {
		doc := m.Document
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\t%s\n",
			m.Score,
			doc.Department,
			doc.Metadata["risk_level"],
			shortID(doc.AnalysisID),
			objectiveLine(doc.Content))
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}

// objectiveLine pulls the objective out of the indexed document text.
func objectiveLine(content string) string {
	const prefix = "Control Objective: "
	for line := range strings.SplitSeq(content, "\n") {
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			return rest
		}
	}
	return content
}
