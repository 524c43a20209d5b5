// Package jsonvalue implements a dynamic, schema-less JSON tree.
//
// A Value is one of Null, Bool, Int, Double, String, Array or Object. Every
// node is exclusively owned by its parent: constructors and accessors copy
// containers, so two Values never share children and cycles cannot occur.
//
// Navigation never fails. A missing key, an out-of-range index or a type
// mismatch yields Null, which lets lookups be chained freely:
//
//	v := jsonvalue.Parse(body)
//	name := v.At("data", 0, "user", "name").StringValue()
//	msg := v.Lookup("message|error|msg").StringValue()
package jsonvalue

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a JSON node. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// Null returns the Null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer number.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Double wraps a floating point number.
func Double(f float64) Value { return Value{kind: KindDouble, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array builds an array from deep copies of elems.
func Array(elems ...Value) Value {
	arr := make([]Value, len(elems))
	for i, e := range elems {
		arr[i] = e.clone()
	}
	return Value{kind: KindArray, arr: arr}
}

// Object builds an object from deep copies of the members of m.
func Object(m map[string]Value) Value {
	obj := make(map[string]Value, len(m))
	for k, v := range m {
		obj[k] = v.clone()
	}
	return Value{kind: KindObject, obj: obj}
}

// From wraps a native Go object graph. Maps with string keys become Objects,
// slices and arrays become Arrays, strings, booleans and numbers become the
// matching scalar. A []byte is parsed as JSON text. Anything else is Null.
func From(object any) Value {
	switch o := object.(type) {
	case nil:
		return Value{}
	case Value:
		return o.clone()
	case *Value:
		if o == nil {
			return Value{}
		}
		return o.clone()
	case []byte:
		return Parse(o)
	case json.RawMessage:
		return Parse(o)
	case string:
		return String(o)
	case bool:
		return Bool(o)
	case int:
		return Int(int64(o))
	case int8:
		return Int(int64(o))
	case int16:
		return Int(int64(o))
	case int32:
		return Int(int64(o))
	case int64:
		return Int(o)
	case uint:
		return fromUint(uint64(o))
	case uint8:
		return Int(int64(o))
	case uint16:
		return Int(int64(o))
	case uint32:
		return Int(int64(o))
	case uint64:
		return fromUint(o)
	case float32:
		return Double(float64(o))
	case float64:
		return Double(o)
	case json.Number:
		return parseNumber(string(o))
	case map[string]any:
		obj := make(map[string]Value, len(o))
		for k, v := range o {
			obj[k] = From(v)
		}
		return Value{kind: KindObject, obj: obj}
	case []any:
		arr := make([]Value, len(o))
		for i, v := range o {
			arr[i] = From(v)
		}
		return Value{kind: KindArray, arr: arr}
	}
	return fromReflect(reflect.ValueOf(object))
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Double(float64(u))
	}
	return Int(int64(u))
}

func fromReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Value{}
		}
		return From(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Value{}
		}
		arr := make([]Value, rv.Len())
		for i := range arr {
			arr[i] = From(rv.Index(i).Interface())
		}
		return Value{kind: KindArray, arr: arr}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
			return Value{}
		}
		obj := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			obj[iter.Key().String()] = From(iter.Value().Interface())
		}
		return Value{kind: KindObject, obj: obj}
	case reflect.String:
		return String(rv.String())
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fromUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Double(rv.Float())
	}
	return Value{}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Len returns the number of elements of an Array or members of an Object,
// and 0 for anything else.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

func (v Value) clone() Value {
	switch v.kind {
	case KindArray:
		arr := make([]Value, len(v.arr))
		for i, e := range v.arr {
			arr[i] = e.clone()
		}
		return Value{kind: KindArray, arr: arr}
	case KindObject:
		obj := make(map[string]Value, len(v.obj))
		for k, e := range v.obj {
			obj[k] = e.clone()
		}
		return Value{kind: KindObject, obj: obj}
	default:
		return v
	}
}

// Interface unwraps v into native Go values: map[string]any, []any,
// string, bool, int64, float64 or nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindDouble:
		return v.f
	case KindString:
		return v.s
	case KindArray:
		arr := make([]any, len(v.arr))
		for i, e := range v.arr {
			arr[i] = e.Interface()
		}
		return arr
	case KindObject:
		obj := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			obj[k] = e.Interface()
		}
		return obj
	default:
		return nil
	}
}

func (v Value) sortedKeys() []string {
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatDouble(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	if f != 0 && (math.Abs(f) >= 1e16 || math.Abs(f) < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s
		}
	}
	return s + ".0"
}
