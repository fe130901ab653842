package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joshsymonds/rcmatrix/internal/models"
)

// FileCache implements Cache with one JSON file per entry.
type FileCache struct {
	now      func() time.Time
	basePath string
	hits     int64
	misses   int64
	mu       sync.RWMutex
}

// NewFileCache creates a new file-based cache.
func NewFileCache(basePath string) (*FileCache, error) {
	if err := os.MkdirAll(basePath, 0750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &FileCache{basePath: basePath, now: time.Now}, nil
}

// cacheEntry represents a cached analysis with metadata.
type cacheEntry struct {
	CreatedAt time.Time              `json:"created_at"`
	ExpiresAt time.Time              `json:"expires_at"`
	Result    *models.AnalysisResult `json:"result"`
}

// Get retrieves a cached analysis. A miss returns nil, nil.
func (fc *FileCache) Get(_ context.Context, key string) (*models.AnalysisResult, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	filename := fc.filename(key)
	data, err := os.ReadFile(filename) //nolint:gosec // key is a hex digest
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fc.misses++
			return nil, nil
		}
		return nil, &CacheError{Op: "get", Key: key, Err: err}
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, &CacheError{Op: "unmarshal", Key: key, Err: err}
	}

	if !entry.ExpiresAt.IsZero() && fc.now().After(entry.ExpiresAt) {
		_ = os.Remove(filename)
		fc.misses++
		return nil, nil
	}

	fc.hits++
	return entry.Result, nil
}

// Set stores an analysis. A zero ttl never expires.
func (fc *FileCache) Set(_ context.Context, key string, result *models.AnalysisResult, ttl time.Duration) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	entry := cacheEntry{
		Result:    result,
		CreatedAt: fc.now(),
	}
	if ttl > 0 {
		entry.ExpiresAt = entry.CreatedAt.Add(ttl)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return &CacheError{Op: "marshal", Key: key, Err: err}
	}

	if err := os.WriteFile(fc.filename(key), data, 0600); err != nil {
		return &CacheError{Op: "write", Key: key, Err: err}
	}
	return nil
}

// Delete removes an entry. Deleting a missing entry is not an error.
func (fc *FileCache) Delete(_ context.Context, key string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if err := os.Remove(fc.filename(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &CacheError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Clear removes all cached analyses.
func (fc *FileCache) Clear(_ context.Context) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	entries, err := os.ReadDir(fc.basePath)
	if err != nil {
		return &CacheError{Op: "readdir", Key: fc.basePath, Err: err}
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(fc.basePath, entry.Name())); err != nil {
			return &CacheError{Op: "delete", Key: entry.Name(), Err: err}
		}
	}

	fc.hits, fc.misses = 0, 0
	return nil
}

// Stats returns cache statistics.
func (fc *FileCache) Stats(_ context.Context) (*Stats, error) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	stats := &Stats{TotalHits: fc.hits, TotalMisses: fc.misses}
	if total := fc.hits + fc.misses; total > 0 {
		stats.HitRate = float64(fc.hits) / float64(total)
	}

	entries, err := os.ReadDir(fc.basePath)
	if err != nil {
		return nil, &CacheError{Op: "readdir", Key: fc.basePath, Err: err}
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.TotalEntries++
		stats.TotalSize += info.Size()
	}
	return stats, nil
}

func (fc *FileCache) filename(key string) string {
	return filepath.Join(fc.basePath, key+".json")
}
