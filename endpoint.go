package lapis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ambiyansyah-risyal/lapis/jsonvalue"
)

// Encoding selects how Parameters are attached to a request.
type Encoding int

const (
	// EncodingDefault is JSON for POST, PUT and PATCH and query otherwise.
	EncodingDefault Encoding = iota
	EncodingJSON
	EncodingQuery
	EncodingForm
)

// Parameters are request parameters together with their encoding. Nil values
// are dropped.
type Parameters struct {
	Encoding Encoding
	Values   map[string]any
}

// Endpoint declares one remote call.
type Endpoint struct {
	BaseURL    string
	Path       string
	Method     string
	Parameters *Parameters
	// RawBody is sent verbatim. When set, Parameters always go to the query.
	RawBody []byte
	Header  http.Header
	// AcceptableStatusCodes defaults to 200-399.
	AcceptableStatusCodes *StatusRange
}

const (
	contentTypeJSON = "application/json; charset=UTF-8"
	contentTypeForm = "application/x-www-form-urlencoded; charset=UTF-8"
)

// Pack turns ep into the canonical Request bound to ctx.
func Pack(ctx context.Context, ep Endpoint) (*Request, error) {
	u, err := endpointURL(ep.BaseURL, ep.Path)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(ep.Method)
	if method == "" {
		method = http.MethodGet
	}

	req := &Request{
		ctx:        ctx,
		Method:     method,
		URL:        u,
		Header:     make(http.Header),
		Acceptable: DefaultAcceptableStatus,
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	for k, vs := range ep.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if ep.AcceptableStatusCodes != nil {
		req.Acceptable = *ep.AcceptableStatusCodes
	}

	if ep.RawBody != nil {
		req.Body = append([]byte(nil), ep.RawBody...)
	}

	if ep.Parameters == nil || len(ep.Parameters.Values) == 0 {
		return req, nil
	}

	values := make(map[string]any, len(ep.Parameters.Values))
	for k, v := range ep.Parameters.Values {
		if v != nil {
			values[k] = v
		}
	}

	encoding := ep.Parameters.Encoding
	if encoding == EncodingDefault {
		encoding = EncodingQuery
		if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
			encoding = EncodingJSON
		}
	}
	if ep.RawBody != nil {
		encoding = EncodingQuery
	}

	switch encoding {
	case EncodingJSON:
		body, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("%w: encode parameters: %v", ErrInvalidEndpoint, err)
		}
		req.Body = body
	case EncodingForm:
		req.Body = []byte(formValues(values).Encode())
		req.Header.Set("Content-Type", contentTypeForm)
	default:
		q := req.URL.Query()
		for k, vs := range formValues(values) {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	return req, nil
}

func endpointURL(base, path string) (*url.URL, error) {
	raw := base
	if path != "" {
		raw = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute URL", ErrInvalidEndpoint, raw)
	}
	return u, nil
}

// formValues flattens parameters for query and form encoding. Arrays become
// repeated keys; objects are sent as compact JSON.
func formValues(values map[string]any) url.Values {
	out := make(url.Values, len(values))
	for k, v := range values {
		node := jsonvalue.From(v)
		switch node.Kind() {
		case jsonvalue.KindArray:
			for e := range node.All() {
				out.Add(k, scalarText(e))
			}
		default:
			out.Add(k, scalarText(node))
		}
	}
	return out
}

func scalarText(v jsonvalue.Value) string {
	switch v.Kind() {
	case jsonvalue.KindObject, jsonvalue.KindArray:
		return v.Raw()
	case jsonvalue.KindDouble:
		f, _ := v.AsDouble()
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return v.StringValue()
	}
}
