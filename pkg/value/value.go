// Package value implements the dynamically-typed value domain that
// selector and expression evaluation operate over: null, bool, int,
// float, string, array and (order-preserving) object.
package value

import (
	"fmt"
	"strconv"
)

// Kind identifies which alternative of the Value sum type is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
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
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the supported telemetry value domain.
// The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  *Object
}

// Object is an insertion-ordered string-keyed map. Order is preserved so
// that array-index selectors over topic segments, and JSON re-encoding of
// object values, are deterministic.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Set inserts or updates key. New keys are appended to the key order;
// existing keys keep their original position.
func (o *Object) Set(key string, v Value) {
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Get returns the value for key and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Keys returns keys in insertion order.
func (o *Object) Keys() []string {
	return o.keys
}

// Len returns the number of entries.
func (o *Object) Len() int {
	return len(o.keys)
}

func Null() Value               { return Value{kind: KindNull} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Int(i int64) Value         { return Value{kind: KindInt, i: i} }
func Float(f float64) Value     { return Value{kind: KindFloat, f: f} }
func Str(s string) Value        { return Value{kind: KindStr, s: s} }
func Array(items []Value) Value { return Value{kind: KindArray, arr: items} }
func Obj(o *Object) Value       { return Value{kind: KindObject, obj: o} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)      { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool)  { return v.f, v.kind == KindFloat }
func (v Value) AsStr() (string, bool)     { return v.s, v.kind == KindStr }
func (v Value) AsArray() ([]Value, bool)  { return v.arr, v.kind == KindArray }
func (v Value) AsObject() (*Object, bool) { return v.obj, v.kind == KindObject }

// Index returns the array element at i, or (Null, false) if v is not an
// array or i is out of range.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Null(), false
	}
	return v.arr[i], true
}

// Field returns the object entry named name, or (Null, false) if v is not
// an object or the key is absent.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Null(), false
	}
	return v.obj.Get(name)
}

// IsNumeric reports whether v is Int, Float, or a Bool (treated as 0/1 by
// the expression evaluator).
func (v Value) IsNumeric() bool {
	switch v.kind {
	case KindInt, KindFloat, KindBool:
		return true
	}
	return false
}

// Float64 widens Int/Float/Bool to float64, or parses a numeric Str.
// Returns false for non-numeric kinds and unparsable strings.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindStr:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// GoString supports fmt debugging without leaking internal fields.
func (v Value) GoString() string {
	return fmt.Sprintf("Value{%s: %v}", v.kind, v.debugRepr())
}

func (v Value) debugRepr() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindStr:
		return v.s
	case KindArray:
		return v.arr
	case KindObject:
		return v.obj.keys
	default:
		return nil
	}
}
