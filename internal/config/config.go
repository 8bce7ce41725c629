// Package config loads application settings from defaults, an optional
// YAML file, a .env file and EDUSARTHI_* environment variables.
package config

import (
	"github.com/abhisek/edusarthi/internal/chat"
	"github.com/abhisek/edusarthi/internal/llm"
	"github.com/abhisek/edusarthi/internal/tutor"
)

// Config is the complete application configuration.
type Config struct {
	LLM   llm.Config   `mapstructure:"llm"`
	Log   LogConfig    `mapstructure:"log"`
	Store StoreConfig  `mapstructure:"store"`
	Tutor tutor.Config `mapstructure:"tutor"`
	Chat  chat.Config  `mapstructure:"chat"`

	// Language and Level are the defaults for --lang and --level.
	Language string `mapstructure:"language"`
	Level    string `mapstructure:"level"`
}

// LogConfig selects the log encoder and threshold.
type LogConfig struct {
	Mode  string `mapstructure:"mode" validate:"oneof=dev prod"`
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// StoreConfig locates the event log database. An empty Path means the
// default data directory.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		LLM:      llm.DefaultConfig(),
		Log:      LogConfig{Mode: "dev", Level: "warn"},
		Tutor:    tutor.DefaultConfig(),
		Chat:     chat.DefaultConfig(),
		Language: "en",
	}
}
