package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// Ollama defaults.
const (
	DefaultOllamaModel = "llama3.2"
	DefaultOllamaURL   = "http://localhost:11434"
)

// OllamaDriver implements Driver using a local Ollama server.
type OllamaDriver struct {
	client      *api.Client
	model       string
	temperature float32
}

// NewOllamaDriver creates an Ollama driver for cfg.BaseURL.
func NewOllamaDriver(cfg Config) (*OllamaDriver, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultOllamaURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_URL: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OllamaDriver{
		client:      api.NewClient(u, httpClient),
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

// Client returns the underlying Ollama client.
func (d *OllamaDriver) Client() *api.Client {
	return d.client
}

// Complete implements Driver.
func (d *OllamaDriver) Complete(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: d.model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
		Options: map[string]any{
			"temperature": d.temperature,
		},
	}

	var content strings.Builder
	err := d.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	if content.Len() == 0 {
		return "", fmt.Errorf("ollama returned an empty response")
	}
	return content.String(), nil
}

// Model implements Driver.
func (d *OllamaDriver) Model() string {
	return d.model
}

// HealthCheck implements Driver.
func (d *OllamaDriver) HealthCheck(ctx context.Context) error {
	if err := d.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama not reachable: %w", err)
	}
	return nil
}

func init() {
	DefaultRegistry.Register("ollama", func(_ context.Context, cfg Config) (Driver, error) {
		return NewOllamaDriver(cfg)
	})
}
