package lapis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ambiyansyah-risyal/lapis/pipeline"
)

// Client runs calls through an onion of middlewares around a Transport. It
// carries the process-wide defaults (envelope convention, store, presenter,
// logger, metrics) that the built-in middlewares pick up. It is safe for
// concurrent use; the middlewares it builds are not, so build them per call.
type Client struct {
	httpClient      *http.Client
	timeout         time.Duration
	transport       Transport
	transportOpts   []HTTPTransportOption
	factor          DestructuringFactor
	store           Store
	presenter       Presenter
	loadingDelay    time.Duration
	metrics         *MetricsCollector
	logger          Logger
	requestIDGen    func() string
	defaultHeaders  http.Header
	deduplication   bool
	dedupKeyFunc    DeduplicationKeyFunc
	dedupCondition  DeduplicationCondition
	validationError error
}

// New constructs a Client using the provided functional options. A best effort
// validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		timeout:        30 * time.Second,
		factor:         DefaultDestructuringFactor(),
		store:          NewInMemoryStore(0),
		loadingDelay:   300 * time.Millisecond,
		logger:         NopLogger(),
		requestIDGen:   uuid.NewString,
		dedupKeyFunc:   DefaultDeduplicationKeyFunc,
		dedupCondition: DefaultDeduplicationCondition,
	}

	for _, option := range options {
		option(client)
	}

	if client.transport == nil {
		opts := append([]HTTPTransportOption{WithTransportMetrics(client.metrics)}, client.transportOpts...)
		client.transport = NewHTTPTransport(client.httpClient, opts...)
	}
	if client.deduplication {
		client.transport = newDeduplicatingTransport(client.transport, client.dedupKeyFunc, client.dedupCondition, client.metrics)
	}
	if client.presenter == nil {
		client.presenter = NewLogPresenter(client.logger)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Factor returns the default envelope convention attached to new responses.
func (c *Client) Factor() DestructuringFactor { return c.factor }

// Store returns the store used by Cache.
func (c *Client) Store() Store { return c.store }

// Metrics returns the metrics collector, nil when metrics are disabled.
func (c *Client) Metrics() *MetricsCollector { return c.metrics }

// Start is the base operation: it sends req through the Transport on its own
// goroutine and returns a Stream carrying exactly one Event. A status outside
// req.Acceptable fails with a *TransportError holding the Response.
// Cancelling the Stream cancels the transport call.
func (c *Client) Start(req *Request) *Stream {
	req = c.prepare(req)
	endpoint := endpointOf(req)

	c.logger.Debug("Starting request", "requestID", req.ID, "method", req.Method, "url", req.urlString(), "endpoint", endpoint)

	return NewStream(req.Context(), func(ctx context.Context, emit func(Event) bool) {
		start := time.Now()
		raw, err := c.transport.RoundTrip(ctx, req)
		ev := c.complete(ctx, req, raw, err)
		if ev.Err != nil {
			c.logger.Debug("Request failed", "requestID", req.ID, "endpoint", endpoint, "duration", time.Since(start), "error", ev.Err.Error())
		} else {
			c.logger.Debug("Request completed", "requestID", req.ID, "endpoint", endpoint, "duration", time.Since(start), "status", ev.Response.StatusCode())
		}
		emit(ev)
	})
}

func (c *Client) prepare(req *Request) *Request {
	req = req.Clone()
	if req.ID == "" && c.requestIDGen != nil {
		req.ID = c.requestIDGen()
	}
	for k, vs := range c.defaultHeaders {
		if _, ok := req.Header[k]; ok {
			continue
		}
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req
}

func (c *Client) complete(ctx context.Context, req *Request, raw *RawResponse, err error) Event {
	var resp *Response
	if raw != nil {
		resp = NewResponse(raw.StatusCode, raw.Body, c.factor)
		resp.header = raw.Header
		resp.request = req
		resp.raw = raw.HTTP
	}

	if err != nil {
		return Event{Err: c.createTransportError(ctx, req, resp, err)}
	}

	if !req.Acceptable.Contains(resp.statusCode) {
		return Event{Err: &TransportError{
			Type:       ErrorTypeStatus,
			Message:    fmt.Sprintf("status code %d outside %d-%d", resp.statusCode, req.Acceptable.Min, req.Acceptable.Max),
			RequestID:  req.ID,
			Method:     req.Method,
			URL:        req.urlString(),
			StatusCode: resp.statusCode,
			Response:   resp,
			Cause:      ErrUnacceptableStatus,
		}}
	}

	return Event{Response: resp}
}

func (c *Client) createTransportError(ctx context.Context, req *Request, resp *Response, cause error) *TransportError {
	te := &TransportError{
		Type:      ErrorTypeNetwork,
		Message:   "network request failed",
		RequestID: req.ID,
		Method:    req.Method,
		URL:       req.urlString(),
		Response:  resp,
		Cause:     cause,
	}
	if resp != nil {
		te.StatusCode = resp.statusCode
	}

	switch {
	case errors.Is(cause, ErrCircuitOpen):
		te.Type, te.Message = ErrorTypeCircuitOpen, "circuit breaker is open"
	case errors.Is(cause, ErrRateLimited):
		te.Type, te.Message = ErrorTypeRateLimit, "rate limit exceeded"
	case ctx.Err() != nil, errors.Is(cause, context.Canceled):
		te.Type, te.Message = ErrorTypeCanceled, "request canceled"
	}
	return te
}

// Pipeline composes ms around Start. The last middleware is the outermost.
func (c *Client) Pipeline(ms ...Middleware) Operation {
	return pipeline.Chain(Operation(c.Start), ms...)
}

// Call packs ep and runs it through ms.
func (c *Client) Call(ctx context.Context, ep Endpoint, ms ...Middleware) *Stream {
	req, err := Pack(ctx, ep)
	if err != nil {
		return Fail(err)
	}
	return c.Pipeline(ms...)(req)
}

// Log builds a LogMiddleware on the client logger.
func (c *Client) Log() *LogMiddleware {
	return NewLog(c.logger)
}

// Loading builds a LoadingMiddleware on the client presenter and delay.
func (c *Client) Loading(target Target) *LoadingMiddleware {
	return NewLoading(c.presenter, target, c.loadingDelay)
}

// Cache builds a CacheMiddleware on the client store.
func (c *Client) Cache(opts ...CacheOption) *CacheMiddleware {
	base := []CacheOption{WithCacheLogger(c.logger), WithCacheMetrics(c.metrics)}
	return NewCache(c.store, append(base, opts...)...)
}

// Remap builds a RemapMiddleware attaching factor.
func (c *Client) Remap(factor DestructuringFactor) *RemapMiddleware {
	return NewRemap(factor)
}

// MetricsMiddleware builds a MetricsMiddleware on the client collector.
func (c *Client) MetricsMiddleware() *MetricsMiddleware {
	return NewMetricsMiddleware(c.metrics)
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// ValidateConfiguration checks the client settings.
func (c *Client) ValidateConfiguration() error {
	if c.timeout < 0 {
		return fmt.Errorf("%w: timeout cannot be negative, got %v", ErrInvalidConfig, c.timeout)
	}
	if c.loadingDelay < 0 {
		return fmt.Errorf("%w: loading delay cannot be negative, got %v", ErrInvalidConfig, c.loadingDelay)
	}
	if c.transport == nil {
		return fmt.Errorf("%w: transport is required", ErrInvalidConfig)
	}
	if err := ValidateFactor(c.factor); err != nil {
		return err
	}
	return nil
}

// ValidateFactor rejects the zero DestructuringFactor, which usually means a
// configuration section was left out.
func ValidateFactor(df DestructuringFactor) error {
	if df.StatusCodeKeyPath == "" && df.MessageKeyPath == "" && df.ModelKeyPath == "" && df.SuccessCode == 0 {
		return fmt.Errorf("%w: destructuring factor is empty", ErrInvalidConfig)
	}
	return nil
}
