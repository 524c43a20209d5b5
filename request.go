package lapis

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
)

// StatusRange is an inclusive range of acceptable HTTP status codes.
type StatusRange struct {
	Min int
	Max int
}

// DefaultAcceptableStatus accepts 200 through 399.
var DefaultAcceptableStatus = StatusRange{Min: 200, Max: 399}

// Contains reports whether code lies inside r. The zero range accepts
// everything.
func (r StatusRange) Contains(code int) bool {
	if r.Min == 0 && r.Max == 0 {
		return true
	}
	return code >= r.Min && code <= r.Max
}

// Request is the canonical outbound request handed to a Transport. Pre hooks
// may return a modified copy; the base operation only reads it.
type Request struct {
	ctx context.Context

	Method     string
	URL        *url.URL
	Header     http.Header
	Body       []byte
	Acceptable StatusRange

	// ID correlates log lines of one call. It is assigned by the client when
	// empty.
	ID string
}

// NewRequest builds a Request with the default acceptable status range.
func NewRequest(ctx context.Context, method, rawURL string, body []byte) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if method == "" {
		method = http.MethodGet
	}
	return &Request{
		ctx:        ctx,
		Method:     method,
		URL:        u,
		Header:     make(http.Header),
		Body:       body,
		Acceptable: DefaultAcceptableStatus,
	}, nil
}

// Context returns the request context, never nil.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r using ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	r2 := *r
	r2.ctx = ctx
	return &r2
}

// Clone returns a deep copy of r.
func (r *Request) Clone() *Request {
	r2 := *r
	if r.URL != nil {
		u := *r.URL
		r2.URL = &u
	}
	r2.Header = r.Header.Clone()
	if r2.Header == nil {
		r2.Header = make(http.Header)
	}
	r2.Body = bytes.Clone(r.Body)
	return &r2
}

func (r *Request) urlString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}
