package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryProvider is a decorator that retries transient Generate failures
// with exponential backoff and jitter.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

// WithRetry wraps a Provider with retry logic.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	return &RetryProvider{inner: p, config: cfg}
}

// retryClass says how a failed attempt is handled.
type retryClass int

const (
	retryNever retryClass = iota
	retryOnce
	retryAlways
)

// classify sorts an error into a retry class.
func classify(err error) retryClass {
	var (
		cfgErr  *ConfigurationError
		maxTok  *ErrMaxTokensExceeded
		invResp *ErrInvalidResponse
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return retryNever
	case errors.Is(err, ErrInvalidRequest), errors.As(err, &cfgErr), errors.As(err, &maxTok):
		// Fails the same way on every attempt.
		return retryNever
	case errors.As(err, &invResp):
		return retryOnce
	default:
		// Rate limits, outages and network errors.
		return retryAlways
	}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var (
		lastErr   error
		usedRetry bool
	)

	for attempt := range r.config.MaxAttempts {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		switch classify(err) {
		case retryNever:
			return nil, err
		case retryOnce:
			if usedRetry {
				return nil, err
			}
			usedRetry = true
		}

		if attempt == r.config.MaxAttempts-1 {
			break
		}

		timer := time.NewTimer(r.backoff(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

// StartChat is not retried: a streamed turn may already have delivered
// fragments to the caller when it fails.
func (r *RetryProvider) StartChat(ctx context.Context, cfg ChatConfig) (Conversation, error) {
	return r.inner.StartChat(ctx, cfg)
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// backoff returns the wait before the next attempt. A rate limit with a
// RetryAfter hint wins over the computed delay.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := min(
		float64(r.config.InitialWait)*math.Pow(r.config.Multiplier, float64(attempt)),
		float64(r.config.MaxWait),
	)
	// ±20% jitter.
	wait *= 0.8 + 0.4*rand.Float64()
	return time.Duration(max(wait, 0))
}
