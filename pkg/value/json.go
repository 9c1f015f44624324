package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseJSON decodes raw JSON bytes into a Value, preserving object key
// order. It uses token-level decoding (rather than unmarshalling into
// map[string]interface{}) because Go's standard decoder does not
// otherwise preserve object key order, and selector/coercion semantics
// depend on that order being deterministic.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Null(), err
	}

	// Reject trailing garbage after the first JSON value, matching the
	// standard library's json.Unmarshal behavior.
	if _, err := dec.Token(); err != io.EOF {
		return Null(), fmt.Errorf("value: trailing data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return Null(), fmt.Errorf("value: unexpected delimiter %q", t)
		}
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return numberValue(t), nil
	case string:
		return Str(t), nil
	default:
		return Null(), fmt.Errorf("value: unsupported token %T", tok)
	}
}

func numberValue(n json.Number) Value {
	if i, err := n.Int64(); err == nil {
		return Int(i)
	}
	f, _ := n.Float64()
	return Float(f)
}

func decodeObject(dec *json.Decoder) (Value, error) {
	obj := NewObject()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Null(), err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Null(), fmt.Errorf("value: object key is not a string")
		}
		val, err := decodeValue(dec)
		if err != nil {
			return Null(), err
		}
		obj.Set(key, val)
	}
	// Consume the closing '}'.
	if _, err := dec.Token(); err != nil {
		return Null(), err
	}
	return Obj(obj), nil
}

func decodeArray(dec *json.Decoder) (Value, error) {
	var items []Value
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return Null(), err
		}
		items = append(items, val)
	}
	// Consume the closing ']'.
	if _, err := dec.Token(); err != nil {
		return Null(), err
	}
	return Array(items), nil
}

// EncodeJSON re-encodes a Value as compact JSON text, preserving object
// key order.
func EncodeJSON(v Value) string {
	var sb strings.Builder
	writeJSON(&sb, v)
	return sb.String()
}

func writeJSON(sb *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		if v.b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindStr:
		b, _ := json.Marshal(v.s)
		sb.Write(b)
	case KindArray:
		sb.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeJSON(sb, item)
		}
		sb.WriteByte(']')
	case KindObject:
		sb.WriteByte('{')
		for i, k := range v.obj.keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			sb.Write(kb)
			sb.WriteByte(':')
			val, _ := v.obj.Get(k)
			writeJSON(sb, val)
		}
		sb.WriteByte('}')
	}
}
