// Package list implements the list command for viewing previous analyses.
package list

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joshsymonds/rcmatrix/internal/config"
	"github.com/joshsymonds/rcmatrix/internal/database"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

// Options represents list command options.
type Options struct {
	ConfigFile string
	Source     string
	Format     string
	Since      time.Duration
	Limit      int
}

// Run executes the list command.
func Run(args []string) error {
	opts := &Options{}

	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.StringVar(&opts.ConfigFile, "config", "", "Configuration file")
	fs.StringVar(&opts.Source, "source", "", "Filter by source file name")
	fs.DurationVar(&opts.Since, "since", 0, "Only show analyses newer than this (e.g. 72h)")
	fs.IntVar(&opts.Limit, "limit", 10, "Maximum number of analyses to show")
	fs.StringVar(&opts.Format, "format", "table", "Output format (table, json)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: rcmatrix list [options]

List previous analyses.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  rcmatrix list
  rcmatrix list --source controls.xlsx
  rcmatrix list --since 168h --format json`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	filter := database.AnalysisFilter{SourceFile: opts.Source, Limit: opts.Limit}
	if opts.Since > 0 {
		filter.Since = time.Now().Add(-opts.Since)
	}

	analyses, err := db.ListAnalyses(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("listing analyses: %w", err)
	}

	if len(analyses) == 0 {
		if opts.Source != "" {
			logger.Info("No analyses found for source", "source", opts.Source)
		} else {
			logger.Info("No analyses found")
		}
		return nil
	}

	switch opts.Format {
	case "json":
		return displayJSON(os.Stdout, analyses)
	default:
		return displayTable(os.Stdout, analyses, time.Now())
	}
}

func displayTable(out io.Writer, analyses []*database.Analysis, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(w, "ID\tSOURCE\tMODEL\tDEPARTMENTS\tOBJECTIVES\tGAPS\tRECOMMENDATIONS\tTIME AGO"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 100)); err != nil {
		return fmt.Errorf("writing separator: %w", err)
	}

	for _, a := range analyses {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			a.ID,
			a.SourceFile,
			a.Model,
			a.DepartmentCount,
			a.ObjectiveCount,
			a.GapCount,
			a.RecommendationCount,
			formatTimeAgo(now.Sub(a.CreatedAt), a.CreatedAt),
		); err != nil {
			return fmt.Errorf("writing analysis entry: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table writer: %w", err)
	}

	logger.Info("Use 'rcmatrix report --analysis <id>' to export an analysis", "latest", analyses[0].ID)
	return nil
}

type listEntry struct {
	CreatedAt       time.Time `json:"created_at"`
	ID              string    `json:"id"`
	SourceFile      string    `json:"source_file"`
	Model           string    `json:"model"`
	Departments     int       `json:"departments"`
	Objectives      int       `json:"objectives"`
	Gaps            int       `json:"gaps"`
	Recommendations int       `json:"recommendations"`
}

func displayJSON(out io.Writer, analyses []*database.Analysis) error {
	entries := make([]listEntry, 0, len(analyses))
	for _, a := range analyses {
		entries = append(entries, listEntry{
			ID:              a.ID,
			SourceFile:      a.SourceFile,
			Model:           a.Model,
			CreatedAt:       a.CreatedAt,
			Departments:     a.DepartmentCount,
			Objectives:      a.ObjectiveCount,
			Gaps:            a.GapCount,
			Recommendations: a.RecommendationCount,
		})
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encoding analyses: %w", err)
	}
	return nil
}

func formatTimeAgo(d time.Duration, t time.Time) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	case d < 7*24*time.Hour:
		return plural(int(d.Hours()/24), "day")
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/24/7), "week")
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
