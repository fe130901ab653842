package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiDriver implements Driver using the Gemini API.
type GeminiDriver struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiDriver creates a Gemini driver. The API key is required.
func NewGeminiDriver(ctx context.Context, cfg Config) (*GeminiDriver, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini driver")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiDriver{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

// Complete implements Driver.
func (d *GeminiDriver) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := d.client.Models.GenerateContent(ctx, d.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(d.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

// Model implements Driver.
func (d *GeminiDriver) Model() string {
	return d.model
}

// HealthCheck implements Driver.
func (d *GeminiDriver) HealthCheck(ctx context.Context) error {
	if _, err := d.client.Models.Get(ctx, d.model, nil); err != nil {
		return fmt.Errorf("gemini model %s not reachable: %w", d.model, err)
	}
	return nil
}

func init() {
	DefaultRegistry.Register("gemini", func(ctx context.Context, cfg Config) (Driver, error) {
		return NewGeminiDriver(ctx, cfg)
	})
}
