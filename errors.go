package lapis

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common failure scenarios
var (
	// ErrUnacceptableStatus is matched by transport errors raised for a status
	// outside the request's acceptable range.
	ErrUnacceptableStatus = errors.New("lapis: unacceptable status code")

	// ErrCanceled is matched when the call was canceled before completing.
	ErrCanceled = errors.New("lapis: canceled")

	// ErrCircuitOpen is returned when the circuit breaker rejects a call
	ErrCircuitOpen = errors.New("lapis: circuit open")

	// ErrRateLimited is returned when a call is denied by the rate limiter
	ErrRateLimited = errors.New("lapis: rate limited")

	// ErrInvalidEndpoint is returned by Pack for an endpoint without an
	// absolute URL.
	ErrInvalidEndpoint = errors.New("lapis: invalid endpoint")

	// ErrStoreUnavailable wraps failures of a backing cache store.
	ErrStoreUnavailable = errors.New("lapis: store unavailable")

	// ErrInvalidConfig is wrapped by every configuration validation failure.
	ErrInvalidConfig = errors.New("lapis: invalid configuration")
)

// Transport error types.
const (
	ErrorTypeNetwork     = "network"
	ErrorTypeStatus      = "status"
	ErrorTypeCanceled    = "canceled"
	ErrorTypeCircuitOpen = "circuit_open"
	ErrorTypeRateLimit   = "rate_limit"
)

// TransportError is the failure event of a stream. Response holds what the
// server sent, when anything was received.
type TransportError struct {
	Type       string
	Message    string
	RequestID  string
	Method     string
	URL        string
	StatusCode int
	Response   *Response
	Cause      error
}

// Error implements error interface.
func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another *TransportError of the same Type and the sentinel for
// e's Type.
func (e *TransportError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*TransportError); ok {
		return e.Type == targetErr.Type
	}
	switch e.Type {
	case ErrorTypeStatus:
		return target == ErrUnacceptableStatus
	case ErrorTypeCanceled:
		return target == ErrCanceled
	case ErrorTypeCircuitOpen:
		return target == ErrCircuitOpen
	case ErrorTypeRateLimit:
		return target == ErrRateLimited
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *TransportError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if e.Response != nil {
		info += fmt.Sprintf("Body Size: %d\n", len(e.Response.body))
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

// IsTransient determines if an error represents a transient failure that might succeed on retry.
// Returns true for network errors, 5xx responses, 429, circuit breaker and rate limiter
// rejections. Cancellation and other status errors are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited) {
		return true
	}

	var te *TransportError
	if errors.As(err, &te) {
		switch te.Type {
		case ErrorTypeNetwork:
			return true
		case ErrorTypeStatus:
			return te.StatusCode >= 500 || te.StatusCode == http.StatusTooManyRequests
		}
	}
	return false
}

// Outcome classifies a finished call on both the transport and business level.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeBusinessFailure
	OutcomeTransportFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeBusinessFailure:
		return "business_failure"
	case OutcomeTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Classify folds one stream event into an Outcome and the business Result.
// A transport failure with a partial response still reports that response's
// Result.
func Classify(resp *Response, err error) (Outcome, Result) {
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.Response != nil {
			return OutcomeTransportFailure, te.Response.MapResult()
		}
		return OutcomeTransportFailure, Result{Message: err.Error()}
	}
	if resp == nil {
		return OutcomeTransportFailure, Result{}
	}
	result := resp.MapResult()
	if !result.Success {
		return OutcomeBusinessFailure, result
	}
	return OutcomeSuccess, result
}
