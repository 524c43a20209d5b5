package lapis

import (
	"time"

	"github.com/ambiyansyah-risyal/lapis/pipeline"
)

// Middleware is a two-hook interceptor around a call. Instances keep per-call
// state between their hooks: build a fresh one for every call.
type Middleware = pipeline.Hooks[*Request, *Stream]

// Operation turns a Request into a Stream.
type Operation = pipeline.Operation[*Request, *Stream]

// LogMiddleware logs the outbound request and every event of the result.
type LogMiddleware struct {
	logger Logger
	req    *Request
	start  time.Time
}

// NewLog returns a LogMiddleware writing to logger.
func NewLog(logger Logger) *LogMiddleware {
	if logger == nil {
		logger = NopLogger()
	}
	return &LogMiddleware{logger: logger}
}

// PreHook logs the request and returns it unchanged.
func (m *LogMiddleware) PreHook(req *Request) *Request {
	m.req = req
	m.start = time.Now()
	m.logger.Info("Request",
		"requestID", req.ID,
		"method", req.Method,
		"url", req.urlString(),
		"headers", req.Header,
		"body", string(req.Body),
	)
	return req
}

// PostHook taps the stream and logs each value or the failure.
func (m *LogMiddleware) PostHook(s *Stream) *Stream {
	var id, method, url string
	if m.req != nil {
		id, method, url = m.req.ID, m.req.Method, m.req.urlString()
	}
	return s.Do(
		func(resp *Response) {
			m.logger.Info("Response",
				"requestID", id,
				"method", method,
				"url", url,
				"status", resp.StatusCode(),
				"cached", resp.Cached(),
				"duration", time.Since(m.start),
				"body", string(resp.body),
			)
		},
		func(err error) {
			m.logger.Error("Request failed",
				"requestID", id,
				"method", method,
				"url", url,
				"duration", time.Since(m.start),
				"error", err.Error(),
			)
		},
	)
}

// RemapMiddleware replaces the DestructuringFactor of every emitted Response.
type RemapMiddleware struct {
	factor DestructuringFactor
}

// NewRemap returns a RemapMiddleware attaching factor.
func NewRemap(factor DestructuringFactor) *RemapMiddleware {
	return &RemapMiddleware{factor: factor}
}

// PreHook is a no-op.
func (m *RemapMiddleware) PreHook(req *Request) *Request { return req }

// PostHook attaches the configured factor.
func (m *RemapMiddleware) PostHook(s *Stream) *Stream {
	factor := m.factor
	return s.Map(func(resp *Response) *Response {
		resp.setFactor(factor)
		return resp
	})
}
