package jsonvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Bytes encodes v as compact JSON. Object members are written in key order.
// Doubles always carry a fraction or exponent so they parse back as Double.
// It fails with ErrInvalidJSON when v holds NaN or an infinity.
func (v Value) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Indented encodes v as JSON indented with two spaces.
func (v Value) Indented() ([]byte, error) {
	raw, err := v.Bytes()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return out.Bytes(), nil
}

// Raw returns the compact JSON text of v, or "" when it cannot be encoded.
func (v Value) Raw() string {
	raw, err := v.Bytes()
	if err != nil {
		return ""
	}
	return string(raw)
}

// String describes v: indented JSON for containers, the plain text of a
// scalar, and "" for Null.
func (v Value) String() string {
	switch v.kind {
	case KindArray, KindObject:
		raw, err := v.Indented()
		if err != nil {
			return ""
		}
		return string(raw)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return formatDouble(v.f)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.Bytes()
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = Parse(data)
	return nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindDouble:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return fmt.Errorf("%w: non-finite number %v", ErrInvalidJSON, v.f)
		}
		buf.WriteString(formatDouble(v.f))
	case KindString:
		encodeString(buf, v.s)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.sortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeString(buf, k)
			buf.WriteByte(':')
			if err := v.obj[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) {
	// json.Marshal on a string cannot fail.
	quoted, _ := json.Marshal(s)
	buf.Write(quoted)
}
