// Package server serves the upload form, the interactive report and the
// export downloads over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/internal/session"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "rcm_session"

// Runner analyzes one uploaded document.
type Runner interface {
	RunUpload(ctx context.Context, name string, r io.Reader) (*models.AnalysisResult, error)
}

// Server is the web front end.
type Server struct {
	runner     Runner
	logger     logger.Logger
	sessions   *session.Store
	router     *mux.Router
	now        func() time.Time
	exports    []string
	maxUpload  int64
	sessionTTL time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		s.logger = log
	}
}

// WithMaxUploadMB caps the accepted upload size.
func WithMaxUploadMB(mb int64) Option {
	return func(s *Server) {
		if mb > 0 {
			s.maxUpload = mb << 20
		}
	}
}

// WithSessionTTL sets how long idle sessions are kept.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.sessionTTL = ttl
	}
}

// WithExports sets the download formats offered on the report page.
func WithExports(formats ...string) Option {
	return func(s *Server) {
		s.exports = formats
	}
}

// New creates a server that runs uploads through runner and keeps results in
// sessions.
func New(runner Runner, sessions *session.Store, opts ...Option) *Server {
	s := &Server{
		runner:     runner,
		sessions:   sessions,
		logger:     logger.GetGlobalLogger(),
		now:        time.Now,
		exports:    []string{"xlsx", "csv"},
		maxUpload:  32 << 20,
		sessionTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/", s.withSession(s.handleIndex)).Methods(http.MethodGet)
	r.HandleFunc("/analyze", s.withSession(s.handleAnalyze)).Methods(http.MethodPost)
	r.HandleFunc("/reset", s.withSession(s.handleReset)).Methods(http.MethodPost)
	r.HandleFunc("/export/{format}", s.withSession(s.handleExport)).Methods(http.MethodGet)
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.pruneSessions(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}

func (s *Server) pruneSessions(ctx context.Context) {
	if s.sessionTTL <= 0 {
		return
	}
	ticker := time.NewTicker(s.sessionTTL / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Prune(s.sessionTTL); n > 0 {
				s.logger.Debug("Pruned idle sessions", "count", n)
			}
		}
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		next.ServeHTTP(w, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", s.now().Sub(start))
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, id string)

// withSession resolves the session id from the cookie, issuing a new one when
// the request carries none.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
			id = c.Value
		} else {
			id = s.sessions.NewID()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		h(w, r, id)
	}
}
