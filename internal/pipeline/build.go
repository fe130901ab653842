package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/joshsymonds/rcmatrix/internal/analysis"
	"github.com/joshsymonds/rcmatrix/internal/analysis/cache"
	"github.com/joshsymonds/rcmatrix/internal/analysis/llm"
	"github.com/joshsymonds/rcmatrix/internal/config"
	"github.com/joshsymonds/rcmatrix/internal/database"
	"github.com/joshsymonds/rcmatrix/internal/extract"
	"github.com/joshsymonds/rcmatrix/internal/index"
	"github.com/joshsymonds/rcmatrix/internal/storage"
	"github.com/joshsymonds/rcmatrix/pkg/logger"
)

// Build wires a pipeline from configuration. It fails fast when a Gemini
// component is configured and the API key is missing. db may be nil, which
// disables indexing and database history.
func Build(ctx context.Context, cfg *config.Config, db *database.DB, log logger.Logger) (*Pipeline, error) {
	var apiKey string
	if cfg.NeedsAPIKey() {
		key, err := cfg.APIKey()
		if err != nil {
			return nil, err
		}
		apiKey = key
	}

	llmConfig := llm.Config{
		Model:       cfg.LLM.Model,
		APIKey:      apiKey,
		Temperature: cfg.LLM.Temperature,
	}
	if cfg.LLM.Provider == config.ProviderOllama {
		llmConfig.BaseURL = cfg.LLM.OllamaURL
	}
	driver, err := llm.DefaultRegistry.Get(ctx, cfg.LLM.Provider, llmConfig)
	if err != nil {
		return nil, fmt.Errorf("creating %s driver: %w", cfg.LLM.Provider, err)
	}

	analyzerOpts := []analysis.Option{
		analysis.WithLogger(log.WithGroup("analysis")),
		analysis.WithTimeout(cfg.LLM.Timeout),
	}
	if cfg.Cache.Enabled {
		fc, err := cache.NewFileCache(cfg.CacheDir())
		if err != nil {
			return nil, err
		}
		analyzerOpts = append(analyzerOpts, analysis.WithCache(fc, cfg.Cache.TTL))
	}
	analyzer := analysis.NewService(driver, analyzerOpts...)

	store := storage.NewStorageWithLogger(cfg.AnalysesDir(), log)
	opts := []Option{
		WithLogger(log),
		WithArchiver(NewHistory(db, store)),
	}

	if cfg.Index.Enabled && db != nil {
		embedder, err := newEmbedder(ctx, cfg, apiKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithIndexer(index.NewStoreWithLogger(db, embedder, log), cfg.Index.Collection))
	}

	if s3cfg := cfg.Storage.S3; s3cfg != nil {
		publisher, err := storage.NewS3Publisher(ctx, storage.S3Options{
			Bucket:       s3cfg.Bucket,
			Prefix:       s3cfg.Prefix,
			Region:       s3cfg.Region,
			Endpoint:     s3cfg.Endpoint,
			UsePathStyle: s3cfg.UsePathStyle,
		}, log)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithPublisher(NewExportPublisher(store, publisher)))
	}

	log.Debug("Pipeline configured",
		"provider", cfg.LLM.Provider,
		"model", driver.Model(),
		"cache", cfg.Cache.Enabled,
		"index", cfg.Index.Enabled && db != nil)

	return New(extract.NewProcessorWithLogger(log), analyzer, opts...), nil
}

// NewEmbedder returns the embedder configured for the similarity index,
// resolving the API key only when the Gemini embedder is selected.
func NewEmbedder(ctx context.Context, cfg *config.Config) (index.Embedder, error) {
	var apiKey string
	if cfg.Index.Embedder == config.EmbedderGemini {
		key, err := cfg.APIKey()
		if err != nil {
			return nil, err
		}
		apiKey = key
	}
	return newEmbedder(ctx, cfg, apiKey)
}

func newEmbedder(ctx context.Context, cfg *config.Config, apiKey string) (index.Embedder, error) {
	switch cfg.Index.Embedder {
	case config.EmbedderGemini:
		return index.NewGeminiEmbedder(ctx, apiKey, cfg.Index.EmbeddingModel)
	case config.EmbedderOllama:
		u, err := url.Parse(cfg.LLM.OllamaURL)
		if err != nil {
			return nil, fmt.Errorf("invalid OLLAMA_URL: %w", err)
		}
		return index.NewOllamaEmbedder(api.NewClient(u, http.DefaultClient), cfg.Index.EmbeddingModel), nil
	default:
		return index.NewHashEmbedder(cfg.Index.Dimensions), nil
	}
}
