package jsonvalue

import (
	"strconv"
	"strings"
)

// At follows path from v. Each element is either a string object key or an
// int array index. Any miss yields Null.
func (v Value) At(path ...any) Value {
	cur := v
	for _, p := range path {
		switch key := p.(type) {
		case string:
			cur = cur.key(key)
		case int:
			cur = cur.index(key)
		case int64:
			cur = cur.index(int(key))
		default:
			return Value{}
		}
		if cur.kind == KindNull {
			return cur
		}
	}
	return cur.clone()
}

func (v Value) key(k string) Value {
	if v.kind != KindObject {
		return Value{}
	}
	return v.obj[k]
}

func (v Value) index(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Value{}
	}
	return v.arr[i]
}

// Lookup evaluates an alternative-path expression. Alternatives are separated
// by '|' and tried left to right; keys inside one alternative are separated by
// '.'. The first non-Null result wins. An empty expression returns v itself.
//
//	v.Lookup("message|error|msg")
//	v.Lookup("data.items|result")
func (v Value) Lookup(expr string) Value {
	if expr == "" {
		return v.clone()
	}
	for _, alt := range splitNonEmpty(expr, '|') {
		keys := splitNonEmpty(alt, '.')
		path := make([]any, len(keys))
		for i, k := range keys {
			path[i] = k
		}
		if found := v.At(path...); found.kind != KindNull {
			return found
		}
	}
	return Value{}
}

func splitNonEmpty(s string, sep rune) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == sep })
}

// Set returns a copy of v with the node at path replaced by value. Missing
// object keys are created along the way (a Null node becomes an Object); an
// index outside an existing array, or a path step that does not match the
// node's variant, leaves v unchanged.
func (v Value) Set(value Value, path ...any) Value {
	if len(path) == 0 {
		return value.clone()
	}
	out := v.clone()
	switch key := path[0].(type) {
	case string:
		if out.kind == KindNull {
			out = Value{kind: KindObject, obj: map[string]Value{}}
		}
		if out.kind != KindObject {
			return out
		}
		out.obj[key] = out.obj[key].setChild(value, path[1:])
	case int:
		if out.kind != KindArray || key < 0 || key >= len(out.arr) {
			return out
		}
		out.arr[key] = out.arr[key].setChild(value, path[1:])
	}
	return out
}

func (v Value) setChild(value Value, rest []any) Value {
	if len(rest) == 0 {
		return value.clone()
	}
	return v.Set(value, rest...)
}

// AsBool returns the boolean and true only when v is a Bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInt64 returns the integer and true only when v is an Int.
func (v Value) AsInt64() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// AsInt is AsInt64 truncated to int.
func (v Value) AsInt() (int, bool) {
	i, ok := v.AsInt64()
	return int(i), ok
}

// AsDouble returns the float and true only when v is a Double.
func (v Value) AsDouble() (float64, bool) {
	if v.kind != KindDouble {
		return 0, false
	}
	return v.f, true
}

// AsString returns the string and true only when v is a String.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsArray returns a copy of the elements and true only when v is an Array.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.clone().arr, true
}

// AsObject returns a copy of the members and true only when v is an Object.
func (v Value) AsObject() (map[string]Value, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.clone().obj, true
}

// BoolValue is lenient: Bool(true), Int(1) and the strings "true", "yes" and
// "1" (any case) are true; everything else is false.
func (v Value) BoolValue() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindString:
		for _, t := range [...]string{"true", "yes", "1"} {
			if strings.EqualFold(v.s, t) {
				return true
			}
		}
		return false
	case KindInt:
		return v.i == 1
	default:
		return false
	}
}

// Int64Value is lenient: doubles are truncated, booleans map to 0/1,
// strings are parsed (0 on failure), anything else is 0.
func (v Value) Int64Value() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindDouble:
		return int64(v.f)
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindString:
		i, err := strconv.ParseInt(v.s, 10, 64)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// IntValue is Int64Value truncated to int.
func (v Value) IntValue() int { return int(v.Int64Value()) }

// Int32Value is Int64Value truncated to int32.
func (v Value) Int32Value() int32 { return int32(v.Int64Value()) }

// Uint64Value is Int64Value reinterpreted as uint64.
func (v Value) Uint64Value() uint64 { return uint64(v.Int64Value()) }

// DoubleValue mirrors Int64Value for floats.
func (v Value) DoubleValue() float64 {
	switch v.kind {
	case KindDouble:
		return v.f
	case KindInt:
		return float64(v.i)
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindString:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Float32Value is DoubleValue narrowed to float32.
func (v Value) Float32Value() float32 { return float32(v.DoubleValue()) }

// StringValue returns the string of a String and the description of anything
// else (see String).
func (v Value) StringValue() string {
	if v.kind == KindString {
		return v.s
	}
	return v.String()
}

// ArrayValue returns the elements of an Array, or an empty slice.
func (v Value) ArrayValue() []Value {
	if arr, ok := v.AsArray(); ok {
		return arr
	}
	return []Value{}
}

// ObjectValue returns the members of an Object, or an empty map.
func (v Value) ObjectValue() map[string]Value {
	if obj, ok := v.AsObject(); ok {
		return obj
	}
	return map[string]Value{}
}
