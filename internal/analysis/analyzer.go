// Package analysis asks a language model to classify the risks of an
// extracted Risk Control Matrix.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/joshsymonds/rcmatrix/internal/analysis/cache"
	"github.com/joshsymonds/rcmatrix/internal/analysis/llm"
	"github.com/joshsymonds/rcmatrix/internal/models"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

// Analyzer turns an extracted record into an analyzed one.
type Analyzer interface {
	Analyze(ctx context.Context, record *models.AnalysisResult) (*models.AnalysisResult, error)
}

// Service implements Analyzer on top of an llm.Driver.
type Service struct {
	driver   llm.Driver
	cache    cache.Cache
	logger   logger.Logger
	timeout  time.Duration
	cacheTTL time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables result caching.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		s.logger = log
	}
}

// NewService creates an analysis service.
func NewService(driver llm.Driver, opts ...Option) *Service {
	s := &Service{
		driver: driver,
		logger: logger.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the model name of the underlying driver.
func (s *Service) Model() string {
	return s.driver.Model()
}

// Analyze implements Analyzer. The input record is never modified.
func (s *Service) Analyze(ctx context.Context, record *models.AnalysisResult) (*models.AnalysisResult, error) {
	if record == nil {
		record = &models.AnalysisResult{}
	}
	model := s.driver.Model()

	key := ""
	if s.cache != nil {
		var err error
		key, err = cache.Key(model, record)
		if err != nil {
			s.logger.Warn("Cannot derive cache key", "error", err)
		} else if cached, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Warn("Cache lookup failed", "error", err)
		} else if cached != nil {
			s.logger.Info("Using cached analysis", "model", model, "objectives", len(record.ControlObjectives))
			return restamp(cached, record), nil
		}
	}

	start := time.Now()
	s.logger.Info("Starting risk analysis",
		"model", model,
		"objectives", len(record.ControlObjectives),
		"departments", len(record.Departments))

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.driver.Complete(callCtx, BuildPrompt(record))
	if err != nil {
		return nil, fmt.Errorf("analyzing with %s: %w", model, err)
	}

	resp, err := ParseResponse(raw)
	if err != nil {
		s.logger.Debug("Unparseable model response", "response", raw)
		return nil, fmt.Errorf("parsing %s response: %w", model, err)
	}

	result := Merge(record, resp, model)

	s.logger.Info("Risk analysis complete",
		"model", model,
		"departments", len(result.DepartmentRisks),
		"gaps", len(result.Gaps),
		"recommendations", len(result.Recommendations),
		"duration", time.Since(start))

	if key != "" {
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache analysis", "error", err)
		}
	}

	return result, nil
}

// restamp carries the identity of the current record onto a cached result.
func restamp(cached, record *models.AnalysisResult) *models.AnalysisResult {
	out := cached.Clone()
	out.ID = record.ID
	out.SourceFile = record.SourceFile
	out.CreatedAt = record.CreatedAt
	return out
}
