package lapis

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/iancoleman/strcase"

	"github.com/ambiyansyah-risyal/lapis/jsonvalue"
)

// Response is the result of one completed transport call. Status code and
// body never change after construction; the attached DestructuringFactor is
// replaced only by the Remap middleware.
type Response struct {
	statusCode int
	body       []byte
	header     http.Header
	request    *Request
	raw        *http.Response
	cached     bool

	mu     sync.RWMutex
	factor DestructuringFactor
}

// NewResponse builds a Response carrying factor.
func NewResponse(statusCode int, body []byte, factor DestructuringFactor) *Response {
	return &Response{
		statusCode: statusCode,
		body:       bytes.Clone(body),
		factor:     factor,
	}
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.statusCode }

// Body returns a copy of the raw body.
func (r *Response) Body() []byte { return bytes.Clone(r.body) }

// Header returns the transport response headers, if any.
func (r *Response) Header() http.Header { return r.header }

// Request returns the outbound request that produced r. Diagnostic only;
// responses served from a Store have none.
func (r *Response) Request() *Request { return r.request }

// HTTPResponse returns the raw net/http response when the HTTP transport
// produced r. Its body has already been consumed.
func (r *Response) HTTPResponse() *http.Response { return r.raw }

// Cached reports whether r was served from a Store.
func (r *Response) Cached() bool { return r.cached }

// Factor returns the attached DestructuringFactor.
func (r *Response) Factor() DestructuringFactor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factor
}

func (r *Response) setFactor(df DestructuringFactor) {
	r.mu.Lock()
	r.factor = df
	r.mu.Unlock()
}

// JSON parses the whole body.
func (r *Response) JSON() jsonvalue.Value {
	return jsonvalue.Parse(r.body)
}

// ToValue parses the body and navigates to the model key path.
func (r *Response) ToValue() jsonvalue.Value {
	return r.Factor().Model(r.JSON())
}

// MapResult reads the business status and message from the body root.
func (r *Response) MapResult() Result {
	return r.Factor().Destructure(r.JSON())
}

// Mapper is implemented by models that finish decoding by hand. Mapping is
// called with the model node after the generic decode, also when that decode
// failed.
type Mapper interface {
	Mapping(node jsonvalue.Value)
}

// KeyStrategy controls how object keys are matched to struct fields.
type KeyStrategy int

const (
	// KeyDefault uses encoding/json field matching.
	KeyDefault KeyStrategy = iota
	// KeySnakeCase converts snake_case keys to lowerCamelCase first.
	KeySnakeCase
)

// KeyStrategyProvider lets a model pick its KeyStrategy.
type KeyStrategyProvider interface {
	KeyStrategy() KeyStrategy
}

// MapObject decodes the model node of r into a T. A failed decode leaves the
// zero T; Mapper runs either way.
func MapObject[T any](r *Response) T {
	return Decode[T](r.ToValue())
}

// MapArray decodes every element of the model node of r. A model node that is
// not an array yields an empty slice.
func MapArray[T any](r *Response) []T {
	node := r.ToValue()
	elems := node.ArrayValue()
	out := make([]T, 0, len(elems))
	for _, e := range elems {
		out = append(out, Decode[T](e))
	}
	return out
}

// MapObjResult pairs MapResult with MapObject.
func MapObjResult[T any](r *Response) (Result, T) {
	return r.MapResult(), MapObject[T](r)
}

// MapArrayResult pairs MapResult with MapArray.
func MapArrayResult[T any](r *Response) (Result, []T) {
	return r.MapResult(), MapArray[T](r)
}

// Decode runs the two phase model decode against node.
func Decode[T any](node jsonvalue.Value) T {
	var model T

	source := node
	if p, ok := any(&model).(KeyStrategyProvider); ok && p.KeyStrategy() == KeySnakeCase {
		source = camelizeKeys(node)
	}

	if raw, err := source.Bytes(); err == nil {
		var tmp T
		if err := json.Unmarshal(raw, &tmp); err == nil {
			model = tmp
		}
	}

	if m, ok := any(&model).(Mapper); ok {
		m.Mapping(node)
	}
	return model
}

func camelizeKeys(v jsonvalue.Value) jsonvalue.Value {
	switch v.Kind() {
	case jsonvalue.KindObject:
		members := make(map[string]jsonvalue.Value, v.Len())
		for k, e := range v.Entries() {
			members[strcase.ToLowerCamel(k)] = camelizeKeys(e)
		}
		return jsonvalue.Object(members)
	case jsonvalue.KindArray:
		elems := make([]jsonvalue.Value, 0, v.Len())
		for e := range v.All() {
			elems = append(elems, camelizeKeys(e))
		}
		return jsonvalue.Array(elems...)
	default:
		return v
	}
}
