package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/edusarthi/internal/llm"
)

// isolate clears every variable Load may read and points the .env lookup
// at an empty directory.
func isolate(t *testing.T) LoadOptions {
	t.Helper()
	for _, name := range []string{
		"EDUSARTHI_LLM_PROVIDER", "EDUSARTHI_LLM_GEMINI_API_KEY", "EDUSARTHI_LLM_OPENAI_API_KEY",
		"EDUSARTHI_LOG_LEVEL", "EDUSARTHI_TUTOR_TIMEOUT", "EDUSARTHI_LEVEL",
		"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
		"OPENROUTER_API_KEY", "EDUSARTHI_LLM_OPENROUTER_MODEL", "EDUSARTHI_LLM_TIMEOUT",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	return LoadOptions{EnvFile: filepath.Join(t.TempDir(), ".env")}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(isolate(t))
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "gemini-flash", cfg.LLM.Gemini.Model)
	assert.Equal(t, 3, cfg.LLM.Retry.MaxAttempts)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, 60*time.Second, cfg.Tutor.Timeout)
	assert.Equal(t, 2048, cfg.Chat.MaxTokens)
}

func TestTutorTimeoutInheritsLLMTimeout(t *testing.T) {
	opts := isolate(t)
	t.Setenv("EDUSARTHI_LLM_TIMEOUT", "20s")

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 20*time.Second, cfg.Tutor.Timeout)

	t.Setenv("EDUSARTHI_TUTOR_TIMEOUT", "5s")
	cfg, err = Load(opts)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Tutor.Timeout)
}

func TestLoadFromEnv(t *testing.T) {
	opts := isolate(t)
	t.Setenv("EDUSARTHI_LLM_GEMINI_API_KEY", "g-key")
	t.Setenv("EDUSARTHI_LOG_LEVEL", "debug")
	t.Setenv("EDUSARTHI_TUTOR_TIMEOUT", "15s")
	t.Setenv("EDUSARTHI_LEVEL", "Class 10")

	cfg, err := Load(opts)
	require.NoError(t, err)

	assert.Equal(t, "g-key", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 15*time.Second, cfg.Tutor.Timeout)
	assert.Equal(t, "Class 10", cfg.Level)
	assert.NoError(t, cfg.LLM.Validate())
}

func TestLoadFromFile(t *testing.T) {
	opts := isolate(t)
	opts.Path = writeFile(t, "edusarthi.yaml", `
llm:
  provider: openai
  openai:
    api_key: file-key
    model: gpt-4o
chat:
  temperature: 0.2
level: Class 6
`)

	cfg, err := Load(opts)
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "file-key", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.OpenAI.Model)
	assert.InDelta(t, 0.2, cfg.Chat.Temperature, 1e-9)
	assert.Equal(t, "Class 6", cfg.Level)
	assert.Equal(t, 2048, cfg.Chat.MaxTokens)
}

func TestEnvBeatsFile(t *testing.T) {
	opts := isolate(t)
	opts.Path = writeFile(t, "edusarthi.yaml", "log:\n  level: info\n")
	t.Setenv("EDUSARTHI_LOG_LEVEL", "error")

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestOverridesBeatEnv(t *testing.T) {
	opts := isolate(t)
	t.Setenv("EDUSARTHI_LLM_PROVIDER", "anthropic")
	opts.Overrides = map[string]string{"llm.provider": "mock", "level": ""}

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderMock, cfg.LLM.Provider)
	assert.Empty(t, cfg.Level)
}

func TestLoadEnvFile(t *testing.T) {
	opts := isolate(t)
	opts.EnvFile = writeFile(t, ".env", "EDUSARTHI_LLM_GEMINI_API_KEY=dotenv-key\n")
	t.Cleanup(func() { os.Unsetenv("EDUSARTHI_LLM_GEMINI_API_KEY") })

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.LLM.Gemini.APIKey)
}

func TestLoadDiscoversVendorKey(t *testing.T) {
	opts := isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAI.Model)
}

func TestLoadOpenRouter(t *testing.T) {
	opts := isolate(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-or")
	t.Setenv("EDUSARTHI_LLM_OPENROUTER_MODEL", "meta-llama/llama-3.2-11b-vision-instruct")

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderOpenRouter, cfg.LLM.Provider)
	assert.Equal(t, "sk-or", cfg.LLM.OpenRouter.APIKey)
	assert.Equal(t, "meta-llama/llama-3.2-11b-vision-instruct", cfg.LLM.OpenRouter.Model)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.OpenRouter.BaseURL)
}

func TestExplicitProviderSkipsDiscovery(t *testing.T) {
	opts := isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	opts.Overrides = map[string]string{"llm.provider": "anthropic"}

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderAnthropic, cfg.LLM.Provider)

	var cfgErr *llm.ConfigurationError
	assert.ErrorAs(t, cfg.LLM.Validate(), &cfgErr)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown provider", "llm:\n  provider: watson\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"zero retry attempts", "llm:\n  retry:\n    max_attempts: 0\n"},
		{"temperature out of range", "tutor:\n  temperature: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := isolate(t)
			opts.Path = writeFile(t, "edusarthi.yaml", tt.yaml)

			_, err := Load(opts)
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	opts := isolate(t)
	opts.Path = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Load(opts)
	assert.ErrorContains(t, err, "read config")
}
