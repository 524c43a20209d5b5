package lapis

import (
	"context"
	"errors"
)

// CacheKeyFunc derives the store key of a request.
type CacheKeyFunc func(*Request) string

// CacheCondition decides whether a request goes through the cache.
type CacheCondition func(*Request) bool

// DefaultCacheKeyFunc returns "METHOD:absolute-url". Headers and body are not
// part of the key, so identical calls and retries collide.
func DefaultCacheKeyFunc(req *Request) string {
	if req.URL == nil {
		return req.Method + ":"
	}

	var buf []byte
	buf = append(buf, req.Method...)
	buf = append(buf, ':')
	buf = append(buf, req.URL.String()...)

	return string(buf)
}

// CacheMiddleware serves the stored Response first, then the live one
// (stale-while-revalidate), and writes every live result back to the store.
type CacheMiddleware struct {
	store     Store
	keyFunc   CacheKeyFunc
	condition CacheCondition
	logger    Logger
	metrics   *MetricsCollector

	req *Request
	key string
}

// CacheOption configures a CacheMiddleware.
type CacheOption func(*CacheMiddleware)

// WithCacheKeyFunc sets a custom cache key function
func WithCacheKeyFunc(fn CacheKeyFunc) CacheOption {
	return func(m *CacheMiddleware) {
		m.keyFunc = fn
	}
}

// WithCacheCondition restricts caching to matching requests.
func WithCacheCondition(fn CacheCondition) CacheOption {
	return func(m *CacheMiddleware) {
		m.condition = fn
	}
}

// WithCacheLogger reports store failures to logger.
func WithCacheLogger(logger Logger) CacheOption {
	return func(m *CacheMiddleware) {
		m.logger = logger
	}
}

// WithCacheMetrics records hits and misses.
func WithCacheMetrics(mc *MetricsCollector) CacheOption {
	return func(m *CacheMiddleware) {
		m.metrics = mc
	}
}

// NewCache returns a CacheMiddleware over store. A nil store disables it.
func NewCache(store Store, opts ...CacheOption) *CacheMiddleware {
	m := &CacheMiddleware{
		store:   store,
		keyFunc: DefaultCacheKeyFunc,
		logger:  NopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PreHook remembers the request and its key.
func (m *CacheMiddleware) PreHook(req *Request) *Request {
	m.req = req
	m.key = m.keyFunc(req)
	return req
}

// PostHook looks the key up and wires the write-back of the live result.
func (m *CacheMiddleware) PostHook(s *Stream) *Stream {
	if m.store == nil || m.req == nil {
		return s
	}
	if m.condition != nil && !m.condition(m.req) {
		return s
	}

	ctx := m.req.Context()
	method, endpoint := m.req.Method, endpointOf(m.req)

	cached, hit, err := m.store.Get(ctx, m.key)
	if err != nil {
		m.logger.Warn("Cache lookup failed", "requestID", m.req.ID, "key", m.key, "error", err.Error())
		hit = false
	}

	// Every live result overwrites the entry, failures included.
	putCtx := context.WithoutCancel(ctx)
	put := func(resp *Response) {
		if err := m.store.Put(putCtx, m.key, resp); err != nil {
			m.logger.Warn("Cache write failed", "requestID", m.req.ID, "key", m.key, "error", err.Error())
		}
	}
	live := s.Do(put, func(err error) {
		var te *TransportError
		if errors.As(err, &te) && te.Response != nil {
			put(te.Response)
		}
	})

	if !hit {
		m.metrics.RecordCacheMiss(method, endpoint)
		return live
	}
	m.metrics.RecordCacheHit(method, endpoint)
	m.logger.Debug("Cache hit", "requestID", m.req.ID, "key", m.key)
	return live.StartWith(cached)
}
