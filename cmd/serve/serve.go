// Package serve implements the serve command, which runs the web interface.
package serve

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joshsymonds/rcmatrix/internal/config"
	"github.com/joshsymonds/rcmatrix/internal/database"
	"github.com/joshsymonds/rcmatrix/internal/pipeline"
	"github.com/joshsymonds/rcmatrix/internal/server"
	"github.com/joshsymonds/rcmatrix/internal/session"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

// Options represents serve command options.
type Options struct {
	ConfigFile  string
	Addr        string
	SessionTTL  time.Duration
	MaxUploadMB int64
}

// Run executes the serve command.
func Run(args []string) error {
	opts := &Options{}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.StringVar(&opts.ConfigFile, "config", "", "Configuration file")
	fs.StringVar(&opts.Addr, "addr", "", "Listen address (overrides server.addr)")
	fs.Int64Var(&opts.MaxUploadMB, "max-upload-mb", 0, "Upload size limit in MB (overrides server.max_upload_mb)")
	fs.DurationVar(&opts.SessionTTL, "session-ttl", 24*time.Hour, "Idle session lifetime")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: rcmatrix serve [options]

Start the web interface: upload an RCM document, browse the departmental
analysis and download Excel/CSV exports.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  rcmatrix serve
  rcmatrix serve --addr 0.0.0.0:8080 --config rcmatrix.yaml`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.MaxUploadMB > 0 {
		cfg.Server.MaxUploadMB = opts.MaxUploadMB
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.GetGlobalLogger()

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

	srv := server.New(p, session.NewStore(),
		server.WithLogger(log.WithGroup("http")),
		server.WithMaxUploadMB(cfg.Server.MaxUploadMB),
		server.WithSessionTTL(opts.SessionTTL),
	)

	fmt.Printf("Serving on http://%s\n", cfg.Server.Addr) //nolint:forbidigo
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
