package expr

import (
	"testing"

	"github.com/edgeflare/iotbridge/pkg/selector"
	"github.com/edgeflare/iotbridge/pkg/value"
)

func TestCelsiusToFahrenheit(t *testing.T) {
	node, err := Parse("32 + ($.payload * 9 / 5)")
	if err != nil {
		t.Fatal(err)
	}
	ctx := selector.Context{Payload: value.Int(100)}
	got, err := Eval(node, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != 212 {
		t.Fatalf("got %v, want 212", got)
	}
}

func TestPowIsRightAssociative(t *testing.T) {
	node, err := Parse("2 ^ 3 ^ 2")
	if err != nil {
		t.Fatal(err)
	}
	got, err := Eval(node, selector.Context{})
	if err != nil {
		t.Fatal(err)
	}
	// 2^(3^2) = 2^9 = 512, not (2^3)^2 = 64.
	if got != 512 {
		t.Fatalf("got %v, want 512", got)
	}
}

func TestPrecedence(t *testing.T) {
	node, err := Parse("1 + 2 * 3")
	if err != nil {
		t.Fatal(err)
	}
	got, err := Eval(node, selector.Context{})
	if err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Fatalf("got %v, want 7", got)
	}
}

func TestUnaryMinus(t *testing.T) {
	node, err := Parse("-5 + 3")
	if err != nil {
		t.Fatal(err)
	}
	got, err := Eval(node, selector.Context{})
	if err != nil {
		t.Fatal(err)
	}
	if got != -2 {
		t.Fatalf("got %v, want -2", got)
	}
}

func TestDivisionByZeroSkips(t *testing.T) {
	node, err := Parse("1 / 0")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Eval(node, selector.Context{}); err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestModSignOfDivisor(t *testing.T) {
	node, err := Parse("-7 % 3")
	if err != nil {
		t.Fatal(err)
	}
	got, err := Eval(node, selector.Context{})
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Fatalf("got %v, want 2", got)
	}
}

func TestSelectorResolvesStrNumeric(t *testing.T) {
	node, err := Parse("$.payload + 1")
	if err != nil {
		t.Fatal(err)
	}
	ctx := selector.Context{Payload: value.Str("41")}
	got, err := Eval(node, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Fatalf("got %v, want 42", got)
	}
}

func TestSelectorMissingSkips(t *testing.T) {
	node, err := Parse("$.payload.missing + 1")
	if err != nil {
		t.Fatal(err)
	}
	ctx := selector.Context{Payload: value.Obj(value.NewObject())}
	if _, err := Eval(node, ctx); err == nil {
		t.Fatal("expected skip error for missing selector")
	}
}

func TestParens(t *testing.T) {
	node, err := Parse("(1 + 2) * 3")
	if err != nil {
		t.Fatal(err)
	}
	got, err := Eval(node, selector.Context{})
	if err != nil {
		t.Fatal(err)
	}
	if got != 9 {
		t.Fatalf("got %v, want 9", got)
	}
}
