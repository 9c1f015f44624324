// Package expr implements the small infix arithmetic language used for
// field values that begin with "=", e.g. "= 32 + ($.payload * 9 / 5)"
// (spec.md §4.3). The AST is kept separate from the evaluator so --test
// mode can exercise parsing alone.
package expr

import "github.com/edgeflare/iotbridge/pkg/selector"

// NodeKind identifies which alternative of Node is populated.
type NodeKind int

const (
	NodeNumber NodeKind = iota
	NodeSelector
	NodeBinary
	NodeUnaryMinus
)

// BinOp identifies a binary operator in the AST.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
)

// Node is an expression AST node. Only the fields relevant to Kind are
// populated.
type Node struct {
	Kind NodeKind
	Num  float64
	Sel  *selector.Selector
	Op   BinOp
	L, R *Node
}
