package tutor

import "time"

// Config holds generation settings shared by the study tasks.
type Config struct {
	MaxTokens   int     `mapstructure:"max_tokens" validate:"gte=0"`
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`

	// Timeout bounds a single task request including retries. Zero means
	// no deadline beyond the caller's context. When loaded through the
	// config package, zero inherits llm.timeout.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// DefaultConfig returns sensible defaults for study tasks.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   4096,
		Temperature: 0.4,
	}
}
