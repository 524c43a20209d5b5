package lapis

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// RawResponse is what a Transport hands back: everything the server sent.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	HTTP       *http.Response
}

// Transport performs one request. It must honor ctx and must not validate the
// status code; the client does that against Request.Acceptable. A non-nil
// RawResponse may accompany an error when a response was partially received.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (*RawResponse, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *Request) (*RawResponse, error)

// RoundTrip implements Transport.
func (f TransportFunc) RoundTrip(ctx context.Context, req *Request) (*RawResponse, error) {
	return f(ctx, req)
}

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 10 * 1024 * 1024

// BreakerConfig configures the circuit breaker of HTTPTransport.
type BreakerConfig struct {
	Name             string        `yaml:"name" env:"LAPIS_BREAKER_NAME"`
	FailureThreshold uint32        `yaml:"failure_threshold" env:"LAPIS_BREAKER_FAILURES"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout" env:"LAPIS_BREAKER_RECOVERY"`
	HalfOpenRequests uint32        `yaml:"half_open_requests" env:"LAPIS_BREAKER_HALF_OPEN"`
}

// HTTPTransport executes requests with net/http. It optionally guards calls
// with a circuit breaker and a rate limiter. Brotli and gzip bodies are
// decoded transparently.
type HTTPTransport struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	retry   *retryPolicy
	metrics *MetricsCollector
}

// HTTPTransportOption configures an HTTPTransport.
type HTTPTransportOption func(*HTTPTransport)

// WithHTTPTimeout sets the per request timeout of the underlying client.
func WithHTTPTimeout(d time.Duration) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.client.Timeout = d
	}
}

// WithBreaker enables a circuit breaker. Network errors and 5xx responses
// count as failures.
func WithBreaker(cfg BreakerConfig) HTTPTransportOption {
	return func(t *HTTPTransport) {
		if cfg.Name == "" {
			cfg.Name = "default"
		}
		if cfg.FailureThreshold == 0 {
			cfg.FailureThreshold = 5
		}
		if cfg.RecoveryTimeout == 0 {
			cfg.RecoveryTimeout = 60 * time.Second
		}
		if cfg.HalfOpenRequests == 0 {
			cfg.HalfOpenRequests = 1
		}
		threshold := cfg.FailureThreshold
		name := cfg.Name
		t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.HalfOpenRequests,
			Timeout:     cfg.RecoveryTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(_ string, _ gobreaker.State, to gobreaker.State) {
				t.metrics.RecordCircuitBreakerState(name, to)
			},
		})
	}
}

// WithRateLimit allows rps requests per second with the given burst. Calls
// over the limit fail immediately.
func WithRateLimit(rps float64, burst int) HTTPTransportOption {
	return func(t *HTTPTransport) {
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTransportMetrics records circuit breaker state changes and retries.
func WithTransportMetrics(mc *MetricsCollector) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.metrics = mc
	}
}

// NewHTTPTransport wraps client. A nil client gets a 30 second timeout.
func NewHTTPTransport(client *http.Client, opts ...HTTPTransportOption) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	t := &HTTPTransport{client: client}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BreakerState reports the circuit breaker state, closed when none is set.
func (t *HTTPTransport) BreakerState() gobreaker.State {
	if t.breaker == nil {
		return gobreaker.StateClosed
	}
	return t.breaker.State()
}

var errServerStatus = errors.New("lapis: server error status")

// RoundTrip implements Transport.
func (t *HTTPTransport) RoundTrip(ctx context.Context, req *Request) (*RawResponse, error) {
	raw, err := t.attempt(ctx, req)
	if t.retry == nil {
		return raw, err
	}

	for n := 0; n < t.retry.max && t.retry.retryable(ctx, raw, err); n++ {
		if !t.retry.wait(ctx, n) {
			return nil, ctx.Err()
		}
		t.metrics.RecordRetry(req.Method, endpointOf(req))
		raw, err = t.attempt(ctx, req)
	}
	return raw, err
}

func (t *HTTPTransport) attempt(ctx context.Context, req *Request) (*RawResponse, error) {
	if t.limiter != nil && !t.limiter.Allow() {
		return nil, ErrRateLimited
	}

	if t.breaker == nil {
		return t.do(ctx, req)
	}

	var raw *RawResponse
	_, err := t.breaker.Execute(func() (interface{}, error) {
		var err error
		raw, err = t.do(ctx, req)
		if err == nil && raw.StatusCode >= 500 {
			return nil, errServerStatus
		}
		return nil, err
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	case errors.Is(err, errServerStatus):
		return raw, nil
	}
	return raw, err
}

func (t *HTTPTransport) do(ctx context.Context, req *Request) (*RawResponse, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.urlString(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header = req.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = make(http.Header)
	}
	if httpReq.Header.Get("Accept-Encoding") == "" {
		httpReq.Header.Set("Accept-Encoding", "br, gzip")
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	reader := io.Reader(httpResp.Body)
	switch strings.ToLower(httpResp.Header.Get("Content-Encoding")) {
	case "br":
		reader = brotli.NewReader(httpResp.Body)
		httpResp.Header.Del("Content-Encoding")
	case "gzip":
		zr, err := gzip.NewReader(httpResp.Body)
		if err != nil {
			return &RawResponse{StatusCode: httpResp.StatusCode, Header: httpResp.Header.Clone(), HTTP: httpResp}, err
		}
		defer zr.Close()
		reader = zr
		httpResp.Header.Del("Content-Encoding")
	}

	raw := &RawResponse{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		HTTP:       httpResp,
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	raw.Body = data
	if err != nil {
		return raw, err
	}
	return raw, nil
}

func endpointOf(req *Request) string {
	if req == nil || req.URL == nil {
		return "unknown"
	}

	host := req.URL.Host
	path := req.URL.Path

	var builder strings.Builder
	builder.WriteString(host)

	if path != "" && path != "/" {
		builder.WriteString(path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}
