// Package config implements the config command for validating, showing and
// initializing rcmatrix configuration files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joshsymonds/rcmatrix/internal/config"
)

// Run executes the config command.
func Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: validate, show or init")
	}

	subcommand := args[0]
	subArgs := args[1:]

	switch subcommand {
	case "validate":
		return runValidate(subArgs)
	case "show":
		return runShow(subArgs)
	case "init":
		return runInit(subArgs)
	default:
		return fmt.Errorf("unknown subcommand: %s", subcommand)
	}
}

func runValidate(args []string) error {
	var configFile string

	fs := flag.NewFlagSet("config validate", flag.ExitOnError)
	fs.StringVar(&configFile, "config", "", "Configuration file to validate (required)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: rcmatrix config validate [options]

Validate an rcmatrix configuration file.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  rcmatrix config validate --config rcmatrix.yaml`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if configFile == "" {
		return fmt.Errorf("--config flag is required")
	}

	fmt.Printf("Validating configuration: %s\n\n", configFile) //nolint:forbidigo

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	printValidationResults(os.Stdout, cfg)

	if cfg.NeedsAPIKey() {
		if _, err := cfg.APIKey(); err != nil {
			return err
		}
	}

	fmt.Println("\nConfiguration is valid!") //nolint:forbidigo
	return nil
}

func printValidationResults(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "LLM:")
	fmt.Fprintf(w, "   Provider: %s\n", cfg.LLM.Provider)
	fmt.Fprintf(w, "   Model: %s\n", cfg.LLM.Model)
	if cfg.LLM.Provider == config.ProviderOllama {
		fmt.Fprintf(w, "   URL: %s\n", cfg.LLM.OllamaURL)
	}
	if cfg.NeedsAPIKey() {
		fmt.Fprintf(w, "   API key: %s\n", apiKeyStatus(cfg))
	}

	fmt.Fprintln(w, "\nStorage:")
	fmt.Fprintf(w, "   Data directory: %s\n", cfg.DataDir)
	fmt.Fprintf(w, "   Database: %s\n", cfg.DatabasePath())
	if cfg.Storage.S3 != nil {
		fmt.Fprintf(w, "   S3: s3://%s/%s\n", cfg.Storage.S3.Bucket, cfg.Storage.S3.Prefix)
	}

	fmt.Fprintln(w, "\nCache:")
	if cfg.Cache.Enabled {
		fmt.Fprintf(w, "   Enabled, TTL %s, in %s\n", cfg.Cache.TTL, cfg.CacheDir())
	} else {
		fmt.Fprintln(w, "   Disabled")
	}

	fmt.Fprintln(w, "\nIndex:")
	if cfg.Index.Enabled {
		fmt.Fprintf(w, "   Collection %q using the %s embedder\n", cfg.Index.Collection, cfg.Index.Embedder)
	} else {
		fmt.Fprintln(w, "   Disabled")
	}

	fmt.Fprintln(w, "\nServer:")
	fmt.Fprintf(w, "   Address: %s\n", cfg.Server.Addr)
	fmt.Fprintf(w, "   Max upload: %d MB\n", cfg.Server.MaxUploadMB)
}

// apiKeyStatus never prints the key itself.
func apiKeyStatus(cfg *config.Config) string {
	env := cfg.LLM.APIKeyEnv
	if env == "" {
		env = config.DefaultAPIKeyEnv
	}
	if _, err := cfg.APIKey(); err != nil {
		return "missing (" + env + " is not set)"
	}
	return "set via " + env
}

func runShow(args []string) error {
	var configFile string

	fs := flag.NewFlagSet("config show", flag.ExitOnError)
	fs.StringVar(&configFile, "config", "", "Configuration file (defaults plus environment when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

func runInit(args []string) error {
	var (
		output string
		force  bool
	)

	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	fs.StringVar(&output, "output", "rcmatrix.yaml", "Where to write the configuration")
	fs.BoolVar(&force, "force", false, "Overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", output)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", output, err)
		}
	}

	if err := config.Default().Write(output); err != nil {
		return err
	}
	fmt.Printf("Wrote default configuration to %s\n", output) //nolint:forbidigo
	return nil
}
