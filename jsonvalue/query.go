package jsonvalue

import (
	"fmt"

	"github.com/PaesslerAG/jsonpath"
)

// Query evaluates a JSONPath expression ("$.result.items[0].id",
// "$..name") against v. Unlike Lookup it reports malformed expressions and
// unknown keys as errors.
func (v Value) Query(expr string) (Value, error) {
	out, err := jsonpath.Get(expr, v.Interface())
	if err != nil {
		return Value{}, fmt.Errorf("jsonvalue: query %q: %w", expr, err)
	}
	return From(out), nil
}
