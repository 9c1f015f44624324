package expr

import (
	"fmt"
	"math"

	"github.com/edgeflare/iotbridge/pkg/selector"
)

// Eval evaluates node against ctx, always in floating point (spec.md
// §4.3). A non-nil error means the field resolution must be abandoned:
// a missing selector, a non-numeric selector result, division by zero,
// or a non-finite intermediate result.
func Eval(node *Node, ctx selector.Context) (float64, error) {
	switch node.Kind {
	case NodeNumber:
		return node.Num, nil
	case NodeSelector:
		v, ok := selector.Eval(node.Sel, ctx)
		if !ok {
			return 0, fmt.Errorf("expr: selector %s did not resolve", node.Sel)
		}
		f, ok := v.Float64()
		if !ok {
			return 0, fmt.Errorf("expr: selector %s resolved to a non-numeric value", node.Sel)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("expr: selector %s resolved to a non-finite value", node.Sel)
		}
		return f, nil
	case NodeUnaryMinus:
		v, err := Eval(node.L, ctx)
		if err != nil {
			return 0, err
		}
		return -v, nil
	case NodeBinary:
		l, err := Eval(node.L, ctx)
		if err != nil {
			return 0, err
		}
		r, err := Eval(node.R, ctx)
		if err != nil {
			return 0, err
		}
		v, err := evalBinary(node.Op, l, r)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("expr: non-finite result")
		}
		return v, nil
	default:
		return 0, fmt.Errorf("expr: unknown node kind")
	}
}

func evalBinary(op BinOp, l, r float64) (float64, error) {
	switch op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv:
		if r == 0 {
			return 0, fmt.Errorf("expr: division by zero")
		}
		v := l / r
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("expr: non-finite division result")
		}
		return v, nil
	case OpMod:
		if r == 0 {
			return 0, fmt.Errorf("expr: modulo by zero")
		}
		m := math.Mod(l, r)
		if m != 0 && math.Signbit(m) != math.Signbit(r) {
			m += r
		}
		return m, nil
	case OpPow:
		v := math.Pow(l, r)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("expr: non-finite power result")
		}
		return v, nil
	default:
		return 0, fmt.Errorf("expr: unknown operator")
	}
}
