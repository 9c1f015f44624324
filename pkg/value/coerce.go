package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TypeTag names an explicit field coercion target (spec.md §4.1).
type TypeTag string

const (
	TypeFloat     TypeTag = "float"
	TypeInt       TypeTag = "int"
	TypeStr       TypeTag = "str"
	TypeBool      TypeTag = "bool"
	TypeBoolToInt TypeTag = "booltoint"
)

// ParseTypeTag validates a configured type string.
func ParseTypeTag(s string) (TypeTag, error) {
	switch TypeTag(s) {
	case TypeFloat, TypeInt, TypeStr, TypeBool, TypeBoolToInt:
		return TypeTag(s), nil
	default:
		return "", fmt.Errorf("value: unknown type tag %q", s)
	}
}

// Coerce converts v to the target TypeTag per the coercion table in
// spec.md §4.1. An error means the field resolution must be abandoned
// (CoercionError, rule skip).
func Coerce(v Value, target TypeTag) (Value, error) {
	switch target {
	case TypeFloat:
		return coerceFloat(v)
	case TypeInt:
		return coerceInt(v)
	case TypeStr:
		return coerceStr(v)
	case TypeBool:
		return coerceBool(v)
	case TypeBoolToInt:
		b, err := coerceBool(v)
		if err != nil {
			return Null(), err
		}
		bv, _ := b.AsBool()
		if bv {
			return Int(1), nil
		}
		return Int(0), nil
	default:
		return Null(), fmt.Errorf("value: unknown type tag %q", target)
	}
}

func coerceFloat(v Value) (Value, error) {
	switch v.kind {
	case KindBool:
		if v.b {
			return Float(1.0), nil
		}
		return Float(0.0), nil
	case KindInt:
		return Float(float64(v.i)), nil
	case KindFloat:
		return v, nil
	case KindStr:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return Null(), fmt.Errorf("value: cannot coerce %q to float: %w", v.s, err)
		}
		return Float(f), nil
	default:
		return Null(), fmt.Errorf("value: cannot coerce %s to float", v.kind)
	}
}

func coerceInt(v Value) (Value, error) {
	switch v.kind {
	case KindBool:
		if v.b {
			return Int(1), nil
		}
		return Int(0), nil
	case KindInt:
		return v, nil
	case KindFloat:
		return Int(int64(v.f)), nil // truncate toward zero
	case KindStr:
		s := strings.TrimSpace(v.s)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
		// Accept decimal strings like "42.0" by truncating.
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if f < math.MinInt64 || f > math.MaxInt64 {
				return Null(), fmt.Errorf("value: cannot coerce %q to int: out of range", v.s)
			}
			return Int(int64(f)), nil
		}
		return Null(), fmt.Errorf("value: cannot coerce %q to int", v.s)
	default:
		return Null(), fmt.Errorf("value: cannot coerce %s to int", v.kind)
	}
}

func coerceStr(v Value) (Value, error) {
	switch v.kind {
	case KindNull:
		return Str(""), nil
	case KindBool:
		if v.b {
			return Str("true"), nil
		}
		return Str("false"), nil
	case KindInt:
		return Str(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		return Str(strconv.FormatFloat(v.f, 'g', -1, 64)), nil
	case KindStr:
		return v, nil
	case KindArray, KindObject:
		return Str(EncodeJSON(v)), nil
	default:
		return Null(), fmt.Errorf("value: cannot coerce %s to str", v.kind)
	}
}

func coerceBool(v Value) (Value, error) {
	switch v.kind {
	case KindBool:
		return v, nil
	case KindInt:
		return Bool(v.i != 0), nil
	case KindFloat:
		if v.f != v.f { // NaN
			return Null(), fmt.Errorf("value: cannot coerce NaN to bool")
		}
		return Bool(v.f != 0), nil
	case KindStr:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "true", "1", "on", "yes":
			return Bool(true), nil
		case "false", "0", "off", "no":
			return Bool(false), nil
		default:
			return Null(), fmt.Errorf("value: cannot coerce %q to bool", v.s)
		}
	default:
		return Null(), fmt.Errorf("value: cannot coerce %s to bool", v.kind)
	}
}
