// Package main is the entry point for the rcmatrix CLI. rcmatrix reads a Risk
// Control Matrix document, asks an LLM to classify its risks per department
// and renders the result as an interactive report and Excel/CSV exports.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joshsymonds/rcmatrix/cmd/analyze"
	"github.com/joshsymonds/rcmatrix/cmd/config"
	"github.com/joshsymonds/rcmatrix/cmd/list"
	"github.com/joshsymonds/rcmatrix/cmd/report"
	"github.com/joshsymonds/rcmatrix/cmd/search"
	"github.com/joshsymonds/rcmatrix/cmd/serve"
	"github.com/joshsymonds/rcmatrix/cmd/view"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

type command struct {
	run     func([]string) error
	failure string
}

var commands = map[string]command{
	"analyze": {analyze.Run, "analysis failed"},
	"report":  {report.Run, "report generation failed"},
	"serve":   {serve.Run, "server failed"},
	"list":    {list.Run, "list failed"},
	"config":  {config.Run, "config command failed"},
	"view":    {view.Run, "view failed"},
	"search":  {search.Run, "search failed"},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	var (
		debug       bool
		logFormat   string
		showVersion bool
	)

	globalFlags := flag.NewFlagSet("rcmatrix", flag.ExitOnError)
	globalFlags.BoolVar(&debug, "debug", false, "Enable debug logging")
	globalFlags.StringVar(&logFormat, "log-format", "text", "Log format (text or json)")
	globalFlags.BoolVar(&showVersion, "version", false, "Show version information")

	// Parse global flags before the command name
	if err := globalFlags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if showVersion {
		fmt.Printf("rcmatrix version %s (built %s)\n", version, buildTime) //nolint:forbidigo
		os.Exit(0)
	}

	// Setup logger
	logger.SetupLogger(debug, logFormat)

	args := globalFlags.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Get the command
	name := args[0]
	if name == "help" {
		printUsage()
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	// Route to appropriate command
	if err := cmd.run(args[1:]); err != nil {
		logger.Error(cmd.failure, "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	//nolint:forbidigo
	fmt.Println(`Risk Control Matrix Analyzer

Usage:
  rcmatrix [global flags] <command> [command flags]

Commands:
  analyze   Analyze an RCM document (xlsx, csv, pdf, docx)
  report    Export a stored analysis (html, xlsx, csv, markdown, json)
  serve     Start the web interface
  list      List previous analyses
  view      Browse a stored analysis in the terminal
  search    Find indexed control objectives similar to a text
  config    Validate, show or initialize configuration
  help      Show this help message

Global Flags:
  --debug         Enable debug logging
  --log-format    Log format (text or json) (default: text)
  --version       Show version information

Environment:
  GEMINI_API_KEY  API key for the gemini provider (required when selected)
  LLM_PROVIDER    gemini or ollama
  LLM_MODEL       Model name override
  OLLAMA_URL      Ollama server URL
  RCM_DATA_DIR    Data directory

Examples:
  rcmatrix analyze controls.xlsx --output exports/
  rcmatrix serve --addr 127.0.0.1:8080
  rcmatrix report --analysis latest --format xlsx,csv
  rcmatrix list --limit 10
  rcmatrix search "vendor payments are approved"
  rcmatrix config validate --config rcmatrix.yaml

Use "rcmatrix <command> --help" for more information about a command.`)
}
