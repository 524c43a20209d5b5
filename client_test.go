package lapis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const (
	okEnvelope           = `{"code":200,"message":"ok","result":{"id":1,"name":"lapis"}}`
	failedEnvelope       = `{"code":4001,"message":"quota exceeded"}`
	testURL              = "http://example.com/users/1"
	expectedStatus200Msg = "Expected status 200, got %d"
	unexpectedErrMsg     = "Unexpected error: %v"
)

// staticTransport answers every request with the same status and body.
func staticTransport(status int, body string) Transport {
	return TransportFunc(func(ctx context.Context, req *Request) (*RawResponse, error) {
		return &RawResponse{StatusCode: status, Header: make(http.Header), Body: []byte(body)}, nil
	})
}

// countingTransport wraps next and counts round trips.
type countingTransport struct {
	next  Transport
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(ctx context.Context, req *Request) (*RawResponse, error) {
	c.calls.Add(1)
	return c.next.RoundTrip(ctx, req)
}

func mustRequest(t *testing.T, method, rawURL string) *Request {
	t.Helper()
	req, err := NewRequest(context.Background(), method, rawURL, nil)
	if err != nil {
		t.Fatalf("NewRequest() returned error: %v", err)
	}
	return req
}

func TestNew(t *testing.T) {
	client := New()

	if client == nil {
		t.Fatal("New() returned nil")
	}

	if !client.IsValid() {
		t.Errorf("Expected default client to be valid, got %v", client.ValidationError())
	}

	if client.httpClient.Timeout != 30*time.Second {
		t.Errorf("Expected timeout=30s, got %v", client.httpClient.Timeout)
	}

	if client.loadingDelay != 300*time.Millisecond {
		t.Errorf("Expected loadingDelay=300ms, got %v", client.loadingDelay)
	}

	if client.Factor() != DefaultDestructuringFactor() {
		t.Errorf("Expected default factor, got %+v", client.Factor())
	}

	if client.Store() == nil {
		t.Error("Expected a default in-memory store")
	}

	if client.Metrics() != nil {
		t.Error("Expected metrics to be disabled by default")
	}
}

func TestStart_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET method, got %s", r.Method)
		}
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(okEnvelope))
	}))
	defer server.Close()

	client := New()
	responses, err := client.Start(mustRequest(t, http.MethodGet, server.URL)).Collect(context.Background())
	if err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	if len(responses) != 1 {
		t.Fatalf("Expected exactly 1 response, got %d", len(responses))
	}

	resp := responses[0]
	if resp.StatusCode() != http.StatusOK {
		t.Errorf(expectedStatus200Msg, resp.StatusCode())
	}
	if resp.Header().Get("X-Test") != "yes" {
		t.Errorf("Expected X-Test header, got %q", resp.Header().Get("X-Test"))
	}
	if resp.Request() == nil || resp.Request().ID == "" {
		t.Error("Expected the response to carry the request with an ID")
	}
	if resp.HTTPResponse() == nil {
		t.Error("Expected the raw HTTP response to be kept")
	}
	if resp.Cached() {
		t.Error("Expected a live response")
	}
	if string(resp.Body()) != okEnvelope {
		t.Errorf("Expected body %s, got %s", okEnvelope, resp.Body())
	}
}

func TestStart_UnacceptableStatus(t *testing.T) {
	client := New(WithTransport(staticTransport(http.StatusNotFound, `{"code":404,"message":"missing"}`)))

	_, err := client.Start(mustRequest(t, http.MethodGet, testURL)).Last(context.Background())
	if err == nil {
		t.Fatal("Expected an error for status 404")
	}

	if !errors.Is(err, ErrUnacceptableStatus) {
		t.Errorf("Expected ErrUnacceptableStatus, got %v", err)
	}

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Expected *TransportError, got %T", err)
	}
	if te.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", te.StatusCode)
	}
	if te.Response == nil {
		t.Fatal("Expected the failure to carry the response")
	}
	if msg := te.Response.MapResult().Message; msg != "missing" {
		t.Errorf("Expected message 'missing', got %q", msg)
	}
}

func TestStart_CustomAcceptableRange(t *testing.T) {
	client := New(WithTransport(staticTransport(http.StatusNotFound, `{}`)))

	req := mustRequest(t, http.MethodGet, testURL)
	req.Acceptable = StatusRange{Min: 200, Max: 499}

	resp, err := client.Start(req).Last(context.Background())
	if err != nil {
		t.Fatalf(unexpectedErrMsg, err)
	}
	if resp.StatusCode() != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode())
	}

	req.Acceptable = StatusRange{}
	if _, err := client.Start(req).Last(context.Background()); err != nil {
		t.Errorf("Expected the zero range to accept everything, got %v", err)
	}
}

func TestStart_NetworkError(t *testing.T) {
	client := New(WithTransport(TransportFunc(func(ctx context.Context, req *Request) (*RawResponse, error) {
		return nil, errors.New("connection refused")
	})))

	_, err := client.Start(mustRequest(t, http.MethodGet, testURL)).Last(context.Background())

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Expected *TransportError, got %v", err)
	}
	if te.Type != ErrorTypeNetwork {
		t.Errorf("Expected type %s, got %s", ErrorTypeNetwork, te.Type)
	}
	if te.Response != nil {
		t.Error("Expected no response for a network failure")
	}
}

func TestStart_CancelAbortsTransport(t *testing.T) {
	started := make(chan struct{})
	aborted := make(chan error, 1)
	client := New(WithTransport(TransportFunc(func(ctx context.Context, req *Request) (*RawResponse, error) {
		close(started)
		<-ctx.Done()
		aborted <- ctx.Err()
		return nil, ctx.Err()
	})))

	s := client.Start(mustRequest(t, http.MethodGet, testURL))
	<-started
	s.Cancel()

	select {
	case err := <-aborted:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Transport was not canceled")
	}

	for ev := range s.Events() {
		t.Errorf("Expected no event after cancel, got %+v", ev)
	}
}

func TestStart_RequestContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := New(WithTransport(TransportFunc(func(ctx context.Context, req *Request) (*RawResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})))

	req, _ := NewRequest(ctx, http.MethodGet, testURL, nil)
	s := client.Start(req)
	cancel()

	_, err := s.Last(context.Background())
	if !errors.Is(err, ErrCanceled) {
		t.Errorf("Expected ErrCanceled, got %v", err)
	}
}

func TestStart_DefaultHeadersAndRequestID(t *testing.T) {
	var seen *Request
	client := New(
		WithTransport(TransportFunc(func(ctx context.Context, req *Request) (*RawResponse, error) {
			seen = req
			return &RawResponse{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
		})),
		WithDefaultHeaders(http.Header{"X-App": {"lapis"}, "Accept": {"text/plain"}}),
		WithRequestIDGenerator(func() string { return "req-1" }),
	)

	req := mustRequest(t, http.MethodGet, testURL)
	req.Header.Set("Accept", "application/json")

	if _, err := client.Start(req).Last(context.Background()); err != nil {
		t.Fatalf(unexpectedErrMsg, err)
	}

	if seen.ID != "req-1" {
		t.Errorf("Expected request ID req-1, got %q", seen.ID)
	}
	if seen.Header.Get("X-App") != "lapis" {
		t.Errorf("Expected default header X-App, got %q", seen.Header.Get("X-App"))
	}
	if seen.Header.Get("Accept") != "application/json" {
		t.Errorf("Expected request header to win, got %q", seen.Header.Get("Accept"))
	}
	if req.ID != "" {
		t.Error("Start must not modify the caller's request")
	}
}

// traceMiddleware appends its hook invocations to a shared trace.
type traceMiddleware struct {
	name  string
	trace *[]string
}

func (m traceMiddleware) PreHook(req *Request) *Request {
	*m.trace = append(*m.trace, "pre:"+m.name)
	return req
}

func (m traceMiddleware) PostHook(s *Stream) *Stream {
	*m.trace = append(*m.trace, "post:"+m.name)
	return s
}

func TestPipeline_OnionOrder(t *testing.T) {
	var trace []string
	base := TransportFunc(func(ctx context.Context, req *Request) (*RawResponse, error) {
		return &RawResponse{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
	})
	client := New(WithTransport(base))

	op := client.Pipeline(traceMiddleware{"m1", &trace}, traceMiddleware{"m2", &trace})
	if _, err := op(mustRequest(t, http.MethodGet, testURL)).Last(context.Background()); err != nil {
		t.Fatalf(unexpectedErrMsg, err)
	}

	expected := []string{"pre:m2", "pre:m1", "post:m1", "post:m2"}
	if len(trace) != len(expected) {
		t.Fatalf("Expected trace %v, got %v", expected, trace)
	}
	for i := range expected {
		if trace[i] != expected[i] {
			t.Errorf("Expected trace[%d]=%s, got %s", i, expected[i], trace[i])
		}
	}
}

func TestCall_PacksEndpoint(t *testing.T) {
	var seen *Request
	client := New(WithTransport(TransportFunc(func(ctx context.Context, req *Request) (*RawResponse, error) {
		seen = req
		return &RawResponse{StatusCode: http.StatusOK, Body: []byte(okEnvelope)}, nil
	})))

	s := client.Call(context.Background(), Endpoint{
		BaseURL:    "http://example.com/api/",
		Path:       "/users",
		Parameters: &Parameters{Values: map[string]any{"page": 2}},
	})
	if _, err := s.Last(context.Background()); err != nil {
		t.Fatalf(unexpectedErrMsg, err)
	}

	if got := seen.URL.String(); got != "http://example.com/api/users?page=2" {
		t.Errorf("Expected packed URL, got %s", got)
	}
}

func TestCall_InvalidEndpoint(t *testing.T) {
	transport := &countingTransport{next: staticTransport(http.StatusOK, `{}`)}
	client := New(WithTransport(transport))

	_, err := client.Call(context.Background(), Endpoint{BaseURL: "/relative"}).Last(context.Background())
	if !errors.Is(err, ErrInvalidEndpoint) {
		t.Errorf("Expected ErrInvalidEndpoint, got %v", err)
	}
	if transport.calls.Load() != 0 {
		t.Errorf("Expected no round trip, got %d", transport.calls.Load())
	}
}

func TestCall_RemapChangesResult(t *testing.T) {
	client := New(WithTransport(staticTransport(http.StatusOK, `{"status":"0","msg":"fine","data":[1,2]}`)))

	df := DestructuringFactor{SuccessCode: 0, StatusCodeKeyPath: "status", MessageKeyPath: "msg", ModelKeyPath: "data"}
	resp, err := client.Call(context.Background(), Endpoint{BaseURL: testURL}, client.Remap(df)).Last(context.Background())
	if err != nil {
		t.Fatalf(unexpectedErrMsg, err)
	}

	result, model := MapArrayResult[int](resp)
	if !result.Success || result.Code != 0 || result.Message != "fine" {
		t.Errorf("Expected success with code 0 and message fine, got %+v", result)
	}
	if len(model) != 2 || model[0] != 1 || model[1] != 2 {
		t.Errorf("Expected model [1 2], got %v", model)
	}
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"defaults", nil, false},
		{"negative timeout", []Option{WithTimeout(-time.Second)}, true},
		{"negative loading delay", []Option{WithLoadingDelay(-time.Millisecond)}, true},
		{"empty factor", []Option{WithDestructuringFactor(DestructuringFactor{})}, true},
		{"custom factor", []Option{WithDestructuringFactor(DestructuringFactor{ModelKeyPath: "data"})}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(tt.opts...)
			if client.IsValid() == tt.wantErr {
				t.Errorf("Expected IsValid()=%v, got error %v", !tt.wantErr, client.ValidationError())
			}
			if tt.wantErr && !errors.Is(client.ValidationError(), ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", client.ValidationError())
			}
		})
	}
}
