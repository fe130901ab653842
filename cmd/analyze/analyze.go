// Package analyze implements the analyze command.
package analyze

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/rcmatrix/internal/config"
	"github.com/joshsymonds/rcmatrix/internal/database"
	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/internal/pipeline"
	"github.com/joshsymonds/rcmatrix/internal/report"
	"github.com/joshsymonds/rcmatrix/internal/ui"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
	"github.com/joshsymonds/rcmatrix/pkg/pathutil"
)

// Options holds the analyze command flags.
type Options struct {
	ConfigFile string
	OutputDir  string
	Formats    string
	Provider   string
	Model      string
	NoCache    bool
	NoIndex    bool
	View       bool
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "analyze <document>",
		Short: "Analyze a Risk Control Matrix document",
		Long: `Analyze a Risk Control Matrix document (xlsx, csv, pdf or docx).

Control objectives are extracted from the document, indexed for similarity
search and sent to the configured LLM, which classifies risks per department
and recommends remediations. The result is stored in the analysis history and
can be exported immediately with --output.`,
		Example: `  # Analyze with the configured provider
  rcmatrix analyze controls.xlsx

  # Write Excel and CSV exports
  rcmatrix analyze controls.xlsx --output exports/

  # Use a local Ollama model and open the terminal browser
  rcmatrix analyze controls.csv --provider ollama --model llama3.2 --view`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Path to config file")
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "Directory for export files")
	cmd.Flags().StringVar(&opts.Formats, "format", "xlsx,csv", "Export formats written to --output")
	cmd.Flags().StringVar(&opts.Provider, "provider", "", "LLM provider (gemini, ollama)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "LLM model")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "Disable the analysis cache")
	cmd.Flags().BoolVar(&opts.NoIndex, "no-index", false, "Skip vector indexing")
	cmd.Flags().BoolVar(&opts.View, "view", false, "Open the terminal browser when done")

	return cmd
}

// Run executes the analyze command with the provided arguments.
func Run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewAnalyzeCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func run(ctx context.Context, opts *Options, document string) error {
	log := logger.GetGlobalLogger()

	path, err := pathutil.ValidateDocumentPath(document)
	if err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyOverrides(cfg, opts)

	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", "error", err)
		}
	}()

	p, err := pipeline.Build(ctx, cfg, db, log)
	if err != nil {
		return err
	}

	log.Info("Analyzing document", "file", path, "provider", cfg.LLM.Provider)
	result, err := p.Run(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing document: %s\n", pipeline.Message(err))
		return err
	}

	printSummary(result)

	if opts.OutputDir != "" {
		files, err := report.GenerateFiles(result, opts.OutputDir, report.ParseFormatList(opts.Formats), result.CreatedAt, log)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Printf("   %s\n", f) //nolint:forbidigo
		}
	}

	if opts.View {
		return ui.Run(result)
	}
	return nil
}

func applyOverrides(cfg *config.Config, opts *Options) {
	if opts.Provider != "" && opts.Provider != cfg.LLM.Provider {
		cfg.LLM.Provider = opts.Provider
		if opts.Model == "" {
			cfg.LLM.Model = ""
		}
	}
	if opts.Model != "" {
		cfg.LLM.Model = opts.Model
	}
	if opts.NoCache {
		cfg.Cache.Enabled = false
	}
	if opts.NoIndex {
		cfg.Index.Enabled = false
	}
}

func printSummary(result *models.AnalysisResult) {
	var sb strings.Builder
	sb.WriteString("\nAnalysis complete!\n\n")
	fmt.Fprintf(&sb, "   ID:              %s\n", result.ID)
	fmt.Fprintf(&sb, "   Model:           %s\n", result.Model)
	fmt.Fprintf(&sb, "   Departments:     %d\n", len(result.DepartmentNames()))
	fmt.Fprintf(&sb, "   Objectives:      %d\n", len(result.ControlObjectives))
	fmt.Fprintf(&sb, "   Gaps:            %d\n", len(result.Gaps))
	fmt.Fprintf(&sb, "   Recommendations: %d\n", len(result.Recommendations))
	fmt.Fprintf(&sb, "\nRun 'rcmatrix report --analysis %s' to export it again.\n", result.ID)
	fmt.Print(sb.String()) //nolint:forbidigo
}
