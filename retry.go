package lapis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ambiyansyah-risyal/lapis/internal/backoff"
)

// RetryConfig configures retries of transient round trip failures in
// HTTPTransport. Retries are disabled when MaxRetries is zero.
type RetryConfig struct {
	MaxRetries     int           `yaml:"max_retries" env:"LAPIS_RETRY_MAX"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"LAPIS_RETRY_INITIAL_BACKOFF"`
	MaxBackoff     time.Duration `yaml:"max_backoff" env:"LAPIS_RETRY_MAX_BACKOFF"`
	Multiplier     float64       `yaml:"multiplier" env:"LAPIS_RETRY_MULTIPLIER"`
	Jitter         float64       `yaml:"jitter" env:"LAPIS_RETRY_JITTER"`
	// Strategy is "exponential" (default) or "decorrelated".
	Strategy string `yaml:"strategy" env:"LAPIS_RETRY_STRATEGY"`
}

// Validate checks the retry settings.
func (rc RetryConfig) Validate() error {
	if rc.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative, got %d", ErrInvalidConfig, rc.MaxRetries)
	}
	if rc.InitialBackoff < 0 || rc.MaxBackoff < 0 {
		return fmt.Errorf("%w: retry backoff cannot be negative", ErrInvalidConfig)
	}
	if _, ok := backoff.ByName(rc.Strategy); !ok {
		return fmt.Errorf("%w: unknown retry strategy %q", ErrInvalidConfig, rc.Strategy)
	}
	return nil
}

type retryPolicy struct {
	max      int
	params   backoff.Params
	strategy backoff.Strategy
}

// WithRetry retries network errors, 5xx and 429 responses with backoff. Open
// circuits, rate limiter denials and canceled contexts are never retried.
// An unknown strategy falls back to exponential.
func WithRetry(cfg RetryConfig) HTTPTransportOption {
	return func(t *HTTPTransport) {
		if cfg.MaxRetries <= 0 {
			t.retry = nil
			return
		}
		strategy, ok := backoff.ByName(cfg.Strategy)
		if !ok {
			strategy = backoff.Exponential{}
		}
		t.retry = &retryPolicy{
			max: cfg.MaxRetries,
			params: backoff.Params{
				Initial:    cfg.InitialBackoff,
				Max:        cfg.MaxBackoff,
				Multiplier: cfg.Multiplier,
				Jitter:     cfg.Jitter,
			}.Normalize(),
			strategy: strategy,
		}
	}
}

func (p *retryPolicy) retryable(ctx context.Context, raw *RawResponse, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		return !errors.Is(err, ErrCircuitOpen) &&
			!errors.Is(err, ErrRateLimited) &&
			!errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded)
	}
	return raw != nil && (raw.StatusCode >= 500 || raw.StatusCode == http.StatusTooManyRequests)
}

// wait sleeps before retry attempt n and reports false when ctx ends first.
func (p *retryPolicy) wait(ctx context.Context, attempt int) bool {
	timer := time.NewTimer(p.strategy.Delay(attempt, p.params))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
