package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/edusarthi/internal/llm"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "EDUSARTHI"

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// Path is an optional YAML config file. It must exist when set.
	Path string

	// EnvFile is loaded into the environment when present. Variables that
	// are already set win. Default: ".env".
	EnvFile string

	// Overrides are applied last, keyed by dotted config key such as
	// "llm.provider". Empty strings are ignored.
	Overrides map[string]string
}

// Load builds the configuration. Precedence, highest first: overrides,
// environment, config file, defaults. When no provider was chosen
// explicitly and the default one has no API key, the standard vendor key
// variables are consulted.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.Path, err)
		}
	}

	explicitProvider := v.InConfig("llm.provider") || os.Getenv(EnvPrefix+"_LLM_PROVIDER") != ""
	for key, val := range opts.Overrides {
		if val == "" {
			continue
		}
		v.Set(key, val)
		if key == "llm.provider" {
			explicitProvider = true
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if !explicitProvider && cfg.LLM.Validate() != nil {
		if found, ok := llm.DiscoverConfig(); ok {
			applyDiscovered(&cfg.LLM, found)
		}
	}

	if cfg.Tutor.Timeout == 0 {
		cfg.Tutor.Timeout = cfg.LLM.Timeout
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyDiscovered switches to the discovered provider and takes its key,
// keeping every other configured setting.
func applyDiscovered(cfg *llm.Config, found llm.Config) {
	cfg.Provider = found.Provider
	switch found.Provider {
	case llm.ProviderGemini:
		cfg.Gemini.APIKey = found.Gemini.APIKey
	case llm.ProviderOpenAI:
		cfg.OpenAI.APIKey = found.OpenAI.APIKey
	case llm.ProviderAnthropic:
		cfg.Anthropic.APIKey = found.Anthropic.APIKey
	case llm.ProviderOpenRouter:
		cfg.OpenRouter.APIKey = found.OpenRouter.APIKey
	}
}

// setDefaults registers every key so AutomaticEnv can populate it during
// Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.gemini.api_key", d.LLM.Gemini.APIKey)
	v.SetDefault("llm.gemini.model", d.LLM.Gemini.Model)
	v.SetDefault("llm.anthropic.api_key", d.LLM.Anthropic.APIKey)
	v.SetDefault("llm.anthropic.model", d.LLM.Anthropic.Model)
	v.SetDefault("llm.openai.api_key", d.LLM.OpenAI.APIKey)
	v.SetDefault("llm.openai.model", d.LLM.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", d.LLM.OpenAI.BaseURL)
	v.SetDefault("llm.ollama.server_url", d.LLM.Ollama.ServerURL)
	v.SetDefault("llm.ollama.model", d.LLM.Ollama.Model)
	v.SetDefault("llm.openrouter.api_key", d.LLM.OpenRouter.APIKey)
	v.SetDefault("llm.openrouter.model", d.LLM.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", d.LLM.OpenRouter.BaseURL)
	v.SetDefault("llm.retry.max_attempts", d.LLM.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", d.LLM.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", d.LLM.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", d.LLM.Retry.Multiplier)

	v.SetDefault("log.mode", d.Log.Mode)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("tutor.max_tokens", d.Tutor.MaxTokens)
	v.SetDefault("tutor.temperature", d.Tutor.Temperature)
	v.SetDefault("tutor.timeout", d.Tutor.Timeout)
	v.SetDefault("chat.max_tokens", d.Chat.MaxTokens)
	v.SetDefault("chat.temperature", d.Chat.Temperature)

	v.SetDefault("language", d.Language)
	v.SetDefault("level", d.Level)
}
