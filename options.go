package lapis

import (
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport, e.g. with a fake in tests.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithTransportOptions configures the default HTTP transport, e.g. circuit
// breaker, rate limit or retries. Ignored when WithTransport is used.
func WithTransportOptions(opts ...HTTPTransportOption) Option {
	return func(c *Client) {
		c.transportOpts = append(c.transportOpts, opts...)
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
		// Update timeout if it was set
		if c.timeout != 0 {
			c.httpClient.Timeout = c.timeout
		}
	}
}

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithDestructuringFactor sets the envelope convention attached to every new
// Response. Per call overrides go through the Remap middleware.
func WithDestructuringFactor(df DestructuringFactor) Option {
	return func(c *Client) {
		c.factor = df
	}
}

// WithStore sets the store used by the Cache middleware. nil disables caching.
func WithStore(store Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithPresenter sets the Presenter used by the Loading middleware
func WithPresenter(p Presenter) Option {
	return func(c *Client) {
		c.presenter = p
	}
}

// WithLoadingDelay sets how long a call runs before the loading indicator shows.
func WithLoadingDelay(d time.Duration) Option {
	return func(c *Client) {
		c.loadingDelay = d
	}
}

// WithLogger sets a custom logger
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger == nil {
			logger = NopLogger()
		}
		c.logger = logger
	}
}

// WithSimpleLogger logs to stderr through a zap development logger
func WithSimpleLogger() Option {
	return func(c *Client) {
		c.logger = NewSimpleLogger()
	}
}

// WithMetrics enables Prometheus metrics collection on a fresh registry
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		c.requestIDGen = gen
	}
}

// WithDeduplication enables request deduplication
func WithDeduplication() Option {
	return func(c *Client) {
		c.deduplication = true
	}
}

// WithDeduplicationKeyFunc sets a custom deduplication key function
func WithDeduplicationKeyFunc(fn DeduplicationKeyFunc) Option {
	return func(c *Client) {
		c.dedupKeyFunc = fn
	}
}

// WithDeduplicationCondition sets a custom deduplication condition
func WithDeduplicationCondition(fn DeduplicationCondition) Option {
	return func(c *Client) {
		c.dedupCondition = fn
	}
}

// WithDefaultHeaders adds headers to every request that does not set them.
func WithDefaultHeaders(h http.Header) Option {
	return func(c *Client) {
		if c.defaultHeaders == nil {
			c.defaultHeaders = make(http.Header)
		}
		for k, vs := range h {
			c.defaultHeaders[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
		}
	}
}
