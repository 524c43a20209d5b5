package lapis

import (
	"context"
	"crypto/sha256"
	"fmt"
	"hash/fnv"
	"net/http"

	"github.com/ambiyansyah-risyal/lapis/internal/singleflight"
)

// DeduplicationKeyFunc builds a key for identifying identical in-flight requests.
type DeduplicationKeyFunc func(*Request) string

// DefaultDeduplicationKeyFunc builds a key from method + URL (+ body hash for mutating verbs).
func DefaultDeduplicationKeyFunc(req *Request) string {
	h := fnv.New64a()
	h.Write([]byte(req.Method))
	h.Write([]byte(req.urlString()))

	if len(req.Body) > 0 && (req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch) {
		sum := sha256.Sum256(req.Body)
		h.Write(sum[:])
	}

	return fmt.Sprintf("%x", h.Sum64())
}

// DeduplicationCondition decides whether a request is eligible for deduplication.
type DeduplicationCondition func(req *Request) bool

// DefaultDeduplicationCondition enables deduplication for safe idempotent methods.
func DefaultDeduplicationCondition(req *Request) bool {
	return req.Method == http.MethodGet || req.Method == http.MethodHead || req.Method == http.MethodOptions
}

// deduplicatingTransport lets identical concurrent requests share one
// transport round trip.
type deduplicatingTransport struct {
	next      Transport
	group     *singleflight.Group[*RawResponse]
	keyFunc   DeduplicationKeyFunc
	condition DeduplicationCondition
	metrics   *MetricsCollector
}

func newDeduplicatingTransport(next Transport, keyFunc DeduplicationKeyFunc, condition DeduplicationCondition, metrics *MetricsCollector) *deduplicatingTransport {
	if keyFunc == nil {
		keyFunc = DefaultDeduplicationKeyFunc
	}
	if condition == nil {
		condition = DefaultDeduplicationCondition
	}
	return &deduplicatingTransport{
		next:      next,
		group:     singleflight.New[*RawResponse](),
		keyFunc:   keyFunc,
		condition: condition,
		metrics:   metrics,
	}
}

func (d *deduplicatingTransport) RoundTrip(ctx context.Context, req *Request) (*RawResponse, error) {
	if !d.condition(req) {
		return d.next.RoundTrip(ctx, req)
	}

	raw, err, shared := d.group.Do(d.keyFunc(req), func() (*RawResponse, error) {
		return d.next.RoundTrip(ctx, req)
	})
	if shared {
		d.metrics.RecordDeduplicationHit(req.Method, endpointOf(req))
	}
	return raw, err
}
