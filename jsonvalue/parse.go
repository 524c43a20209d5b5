package jsonvalue

import (
	"strconv"

	"github.com/tidwall/gjson"
)

// Parse decodes JSON text. Empty, null or malformed input yields Null; Parse
// never fails. Integer literals that fit in an int64 become Int, every other
// number becomes Double. Duplicate object keys keep the last occurrence.
func Parse(data []byte) Value {
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return Value{}
	}
	return fromResult(gjson.ParseBytes(data))
}

// ParseString is Parse for a string.
func ParseString(s string) Value {
	if s == "" || !gjson.Valid(s) {
		return Value{}
	}
	return fromResult(gjson.Parse(s))
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.String:
		return String(r.Str)
	case gjson.Number:
		return parseNumber(r.Raw)
	case gjson.JSON:
		if r.IsArray() {
			arr := make([]Value, 0)
			r.ForEach(func(_, elem gjson.Result) bool {
				arr = append(arr, fromResult(elem))
				return true
			})
			return Value{kind: KindArray, arr: arr}
		}
		if r.IsObject() {
			obj := make(map[string]Value)
			r.ForEach(func(key, member gjson.Result) bool {
				obj[key.Str] = fromResult(member)
				return true
			})
			return Value{kind: KindObject, obj: obj}
		}
	}
	return Value{}
}

func parseNumber(raw string) Value {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Int(i)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Value{}
	}
	return Double(f)
}
