package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/rcmatrix/internal/config"
)

func TestRunRequiresSubcommand(t *testing.T) {
	assert.Error(t, Run(nil))
	assert.ErrorContains(t, Run([]string{"bogus"}), "unknown subcommand: bogus")
}

func TestInitThenValidate(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	path := filepath.Join(t.TempDir(), "rcmatrix.yaml")

	require.NoError(t, Run([]string{"init", "--output", path}))
	assert.FileExists(t, path)

	assert.ErrorContains(t, Run([]string{"init", "--output", path}), "already exists")
	require.NoError(t, Run([]string{"init", "--output", path, "--force"}))

	require.NoError(t, Run([]string{"validate", "--config", path}))
}

func TestValidateFailsWithoutAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "rcmatrix.yaml")
	require.NoError(t, config.Default().Write(path))

	err := Run([]string{"validate", "--config", path})
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestValidateRequiresConfigFlag(t *testing.T) {
	assert.ErrorContains(t, Run([]string{"validate"}), "--config flag is required")
}

func TestValidateRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: openai\n"), 0600))

	assert.ErrorContains(t, Run([]string{"validate", "--config", path}), "configuration is invalid")
}

func TestPrintValidationResultsHidesKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "super-secret")
	cfg := config.Default()
	cfg.Storage.S3 = &config.S3Config{Bucket: "rcm-exports", Prefix: "acme"}

	var buf bytes.Buffer
	printValidationResults(&buf, cfg)

	out := buf.String()
	assert.Contains(t, out, "Provider: gemini")
	assert.Contains(t, out, "API key: set via GEMINI_API_KEY")
	assert.Contains(t, out, "s3://rcm-exports/acme")
	assert.NotContains(t, out, "super-secret")
}

func TestPrintValidationResultsOllama(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = config.ProviderOllama
	cfg.LLM.OllamaURL = "http://localhost:11434"
	cfg.Cache.Enabled = false

	var buf bytes.Buffer
	printValidationResults(&buf, cfg)

	out := buf.String()
	assert.Contains(t, out, "URL: http://localhost:11434")
	assert.NotContains(t, out, "API key")
	assert.Contains(t, out, "Disabled")
}
