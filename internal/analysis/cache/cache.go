// Package cache stores completed analyses on disk so an unchanged document is
// not sent to the model twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// Cache defines the interface for caching analyses.
type Cache interface {
	Get(ctx context.Context, key string) (*models.AnalysisResult, error)
	Set(ctx context.Context, key string, result *models.AnalysisResult, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Stats contains cache statistics.
type Stats struct {
	TotalEntries int
	HitRate      float64
	TotalHits    int64
	TotalMisses  int64
	TotalSize    int64
}

// Key derives the cache key of a record: a SHA-256 over the model name and
// the extracted rows. Identifiers and timestamps do not contribute.
func Key(model string, record *models.AnalysisResult) (string, error) {
	payload := struct {
		Model       string                    `json:"model"`
		Objectives  []models.ControlObjective `json:"objectives"`
		Departments []string                  `json:"departments"`
	}{
		Model: model,
	}
	if record != nil {
		payload.Objectives = record.ControlObjectives
		payload.Departments = record.Departments
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", &CacheError{Op: "key", Key: model, Err: err}
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// CacheError represents a cache-specific error.
type CacheError struct {
	Err error
	Op  string
	Key string
}

func (e *CacheError) Error() string {
	return "cache " + e.Op + " failed for key " + e.Key + ": " + e.Err.Error()
}

func (e *CacheError) Unwrap() error {
	return e.Err
}
