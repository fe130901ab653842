// Package config provides configuration loading and validation for rcmatrix.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Supported embedders for the similarity index.
const (
	EmbedderHash   = "hash"
	EmbedderGemini = "gemini"
	EmbedderOllama = "ollama"
)

// DefaultAPIKeyEnv is the environment variable holding the Gemini API key.
const DefaultAPIKeyEnv = "GEMINI_API_KEY"

// ErrMissingAPIKey is returned when the configured API key variable is unset.
var ErrMissingAPIKey = errors.New("API key not set")

// Config is the complete rcmatrix configuration.
type Config struct {
	DataDir string        `yaml:"data_dir"`
	LLM     LLMConfig     `yaml:"llm"`
	Cache   CacheConfig   `yaml:"cache"`
	Index   IndexConfig   `yaml:"index"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
}

// LLMConfig selects and tunes the risk analysis driver.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	OllamaURL string `yaml:"ollama_url,omitempty"`
	// Timeout bounds a single analysis call.
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float32       `yaml:"temperature"`
}

// CacheConfig controls the on-disk analysis cache.
type CacheConfig struct {
	Dir     string        `yaml:"dir,omitempty"`
	TTL     time.Duration `yaml:"ttl"`
	Enabled bool          `yaml:"enabled"`
}

// IndexConfig controls the similarity index.
type IndexConfig struct {
	Collection     string `yaml:"collection"`
	Embedder       string `yaml:"embedder"`
	EmbeddingModel string `yaml:"embedding_model,omitempty"`
	Dimensions     int    `yaml:"dimensions"`
	Enabled        bool   `yaml:"enabled"`
}

// StorageConfig controls where analysis artifacts are published.
type StorageConfig struct {
	S3 *S3Config `yaml:"s3,omitempty"`
}

// S3Config names the bucket exports are published to.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	// UsePathStyle is needed for LocalStack and most S3-compatible stores.
	UsePathStyle bool `yaml:"use_path_style,omitempty"`
}

// ServerConfig configures the web front end.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DataDir: "data",
		LLM: LLMConfig{
			Provider:    ProviderGemini,
			Model:       "gemini-2.0-flash",
			APIKeyEnv:   DefaultAPIKeyEnv,
			OllamaURL:   "http://localhost:11434",
			Timeout:     2 * time.Minute,
			Temperature: 0.2,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Index: IndexConfig{
			Enabled:    true,
			Collection: "risk_control_matrix",
			Embedder:   EmbedderHash,
			Dimensions: 256,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			MaxUploadMB: 32,
		},
	}
}

// LoadConfig reads a YAML configuration file over the defaults, applies
// environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted source (config file)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	config.ApplyEnv(os.Getenv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Load returns the defaults with environment overrides when path is empty,
// otherwise LoadConfig(path).
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadConfig(path)
	}
	config := Default()
	config.ApplyEnv(os.Getenv)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// ApplyEnv overrides fields from RCM_DATA_DIR, LLM_PROVIDER, LLM_MODEL and
// OLLAMA_URL.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("RCM_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getenv("LLM_PROVIDER"); v != "" {
		if v != c.LLM.Provider && getenv("LLM_MODEL") == "" {
			c.LLM.Model = defaultModel(v)
		}
		c.LLM.Provider = v
	}
	if v := getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := getenv("OLLAMA_URL"); v != "" {
		c.LLM.OllamaURL = v
	}
}

func defaultModel(provider string) string {
	if provider == ProviderOllama {
		return "llama3.2"
	}
	return "gemini-2.0-flash"
}

// Validate ensures the configuration is valid. It does not check that the
// API key is present; see APIKey.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir is required")
	}

	switch c.LLM.Provider {
	case ProviderGemini:
	case ProviderOllama:
		if _, err := url.ParseRequestURI(c.LLM.OllamaURL); err != nil {
			return fmt.Errorf("llm.ollama_url is invalid: %w", err)
		}
	default:
		return fmt.Errorf("unknown llm.provider %q (supported: %s, %s)", c.LLM.Provider, ProviderGemini, ProviderOllama)
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}

	if c.Index.Enabled {
		switch c.Index.Embedder {
		case EmbedderHash:
			if c.Index.Dimensions <= 0 {
				return fmt.Errorf("index.dimensions must be positive")
			}
		case EmbedderGemini, EmbedderOllama:
		default:
			return fmt.Errorf("unknown index.embedder %q", c.Index.Embedder)
		}
		if c.Index.Collection == "" {
			return fmt.Errorf("index.collection is required")
		}
	}

	if s3 := c.Storage.S3; s3 != nil && s3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required when storage.s3 is set")
	}

	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}

	return nil
}

// APIKey returns the Gemini API key from the configured environment variable.
// There is no fallback: a missing key is an error.
func (c *Config) APIKey() (string, error) {
	name := c.LLM.APIKeyEnv
	if name == "" {
		name = DefaultAPIKeyEnv
	}
	key := strings.TrimSpace(os.Getenv(name))
	if key == "" {
		return "", fmt.Errorf("%w: set %s", ErrMissingAPIKey, name)
	}
	return key, nil
}

// NeedsAPIKey reports whether any configured component talks to Gemini.
func (c *Config) NeedsAPIKey() bool {
	return c.LLM.Provider == ProviderGemini || (c.Index.Enabled && c.Index.Embedder == EmbedderGemini)
}

// DatabasePath is the SQLite database holding history and the index.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "rcmatrix.db")
}

// AnalysesDir holds one directory per stored analysis.
func (c *Config) AnalysesDir() string {
	return filepath.Join(c.DataDir, "analyses")
}

// CacheDir is the analysis cache directory.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return filepath.Join(c.DataDir, "cache")
}

// Write saves the configuration as YAML.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
