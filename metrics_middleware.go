package lapis

import (
	"errors"
	"sync"
	"time"
)

// MetricsMiddleware records call counts, durations, business failures and
// transport errors. Values served from a Store are not counted as calls.
type MetricsMiddleware struct {
	metrics *MetricsCollector

	method   string
	endpoint string
	start    time.Time
	end      sync.Once
}

// NewMetricsMiddleware returns a MetricsMiddleware recording into mc.
func NewMetricsMiddleware(mc *MetricsCollector) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: mc}
}

// PreHook marks the call in flight.
func (m *MetricsMiddleware) PreHook(req *Request) *Request {
	m.method = req.Method
	m.endpoint = endpointOf(req)
	m.start = time.Now()
	m.metrics.RecordRequestStart(m.method, m.endpoint)
	return req
}

func (m *MetricsMiddleware) finish() {
	m.end.Do(func() {
		m.metrics.RecordRequestEnd(m.method, m.endpoint)
	})
}

// PostHook records the outcome of the live result.
func (m *MetricsMiddleware) PostHook(s *Stream) *Stream {
	s.OnCancel(m.finish)
	return s.Do(
		func(resp *Response) {
			if resp.Cached() {
				return
			}
			m.finish()
			m.metrics.RecordRequest(m.method, m.endpoint, resp.StatusCode(), time.Since(m.start))
			if result := resp.MapResult(); !result.Success {
				m.metrics.RecordBusinessFailure(result.Code, m.endpoint)
			}
		},
		func(err error) {
			m.finish()
			errorType := ErrorTypeNetwork
			var te *TransportError
			if errors.As(err, &te) {
				errorType = te.Type
				if te.StatusCode > 0 {
					m.metrics.RecordRequest(m.method, m.endpoint, te.StatusCode, time.Since(m.start))
				}
			}
			m.metrics.RecordError(errorType, m.method, m.endpoint)
		},
	)
}
