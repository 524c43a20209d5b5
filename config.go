package lapis

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends accepted by StoreConfig.
const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
	StoreBackendNone   = "none"
)

// StoreConfig selects the Cache store.
type StoreConfig struct {
	Backend string           `yaml:"backend" env:"LAPIS_STORE_BACKEND"`
	TTL     time.Duration    `yaml:"ttl" env:"LAPIS_STORE_TTL"`
	Redis   RedisStoreConfig `yaml:"redis"`
}

// RateLimitConfig configures the transport rate limiter. A zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"LAPIS_RATE_LIMIT_RPS"`
	Burst int     `yaml:"burst" env:"LAPIS_RATE_LIMIT_BURST"`
}

// Config is the file and environment form of the client settings. Load order
// is defaults, YAML file, .env files, then LAPIS_* environment variables.
type Config struct {
	Timeout        time.Duration       `yaml:"timeout" env:"LAPIS_TIMEOUT"`
	LoadingDelay   time.Duration       `yaml:"loading_delay" env:"LAPIS_LOADING_DELAY"`
	Metrics        bool                `yaml:"metrics" env:"LAPIS_METRICS"`
	Deduplication  bool                `yaml:"deduplication" env:"LAPIS_DEDUPLICATION"`
	DefaultHeaders map[string]string   `yaml:"default_headers"`
	Envelope       DestructuringFactor `yaml:"envelope"`
	Log            LogConfig           `yaml:"log"`
	Store          StoreConfig         `yaml:"store"`
	// Breaker is enabled when FailureThreshold is positive.
	Breaker   BreakerConfig   `yaml:"breaker"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry"`
}

// DefaultConfig returns the settings New uses without options.
func DefaultConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		LoadingDelay: 300 * time.Millisecond,
		Envelope:     DefaultDestructuringFactor(),
		Log:          LogConfig{Backend: LogBackendZap, Level: "info"},
		Store:        StoreConfig{Backend: StoreBackendMemory},
	}
}

// LoadConfig reads path (skipped when empty), loads envFiles into the
// environment without overriding existing variables, applies LAPIS_*
// variables and validates the result.
func LoadConfig(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env files: %w", err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (cfg *Config) Validate() error {
	if cfg.Timeout < 0 {
		return fmt.Errorf("%w: timeout cannot be negative, got %v", ErrInvalidConfig, cfg.Timeout)
	}
	if cfg.LoadingDelay < 0 {
		return fmt.Errorf("%w: loading delay cannot be negative, got %v", ErrInvalidConfig, cfg.LoadingDelay)
	}
	if err := ValidateFactor(cfg.Envelope); err != nil {
		return err
	}

	switch strings.ToLower(cfg.Log.Backend) {
	case "", LogBackendZap, LogBackendLogrus, LogBackendZerolog, LogBackendNop:
	default:
		return fmt.Errorf("%w: unknown log backend %q", ErrInvalidConfig, cfg.Log.Backend)
	}

	switch strings.ToLower(cfg.Store.Backend) {
	case "", StoreBackendMemory, StoreBackendNone:
	case StoreBackendRedis:
		if cfg.Store.Redis.Addr == "" {
			return fmt.Errorf("%w: redis store requires an address", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, cfg.Store.Backend)
	}
	if cfg.Store.TTL < 0 {
		return fmt.Errorf("%w: store ttl cannot be negative, got %v", ErrInvalidConfig, cfg.Store.TTL)
	}

	if cfg.RateLimit.RPS < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("%w: rate limit cannot be negative", ErrInvalidConfig)
	}
	if cfg.Breaker.RecoveryTimeout < 0 {
		return fmt.Errorf("%w: breaker recovery timeout cannot be negative", ErrInvalidConfig)
	}
	return cfg.Retry.Validate()
}

// Options turns cfg into client options. It builds the logger and the store,
// so it can fail.
func (cfg *Config) Options() ([]Option, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithTimeout(cfg.Timeout),
		WithLoadingDelay(cfg.LoadingDelay),
		WithDestructuringFactor(cfg.Envelope),
		WithLogger(logger),
	}

	switch strings.ToLower(cfg.Store.Backend) {
	case StoreBackendNone:
		opts = append(opts, WithStore(nil))
	case StoreBackendRedis:
		redisCfg := cfg.Store.Redis
		if redisCfg.TTL == 0 {
			redisCfg.TTL = cfg.Store.TTL
		}
		opts = append(opts, WithStore(NewRedisStore(redisCfg)))
	default:
		opts = append(opts, WithStore(NewInMemoryStore(cfg.Store.TTL)))
	}

	if cfg.Metrics {
		opts = append(opts, WithMetrics())
	}
	if cfg.Deduplication {
		opts = append(opts, WithDeduplication())
	}
	if len(cfg.DefaultHeaders) > 0 {
		h := make(http.Header, len(cfg.DefaultHeaders))
		for k, v := range cfg.DefaultHeaders {
			h.Set(k, v)
		}
		opts = append(opts, WithDefaultHeaders(h))
	}

	var transportOpts []HTTPTransportOption
	if cfg.Breaker.FailureThreshold > 0 {
		transportOpts = append(transportOpts, WithBreaker(cfg.Breaker))
	}
	if cfg.RateLimit.RPS > 0 {
		transportOpts = append(transportOpts, WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	if cfg.Retry.MaxRetries > 0 {
		transportOpts = append(transportOpts, WithRetry(cfg.Retry))
	}
	if len(transportOpts) > 0 {
		opts = append(opts, WithTransportOptions(transportOpts...))
	}

	return opts, nil
}
