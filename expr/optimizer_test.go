package expr

import (
	"testing"

	"github.com/launix-de/ordo-engine/value"
)

func optimized(t *testing.T, src string) Expr {
	t.Helper()
	e := mustParse(t, src)
	out, _ := Optimize(e)
	return out
}

func TestConstantFoldingArithmetic(t *testing.T) {
	e := optimized(t, "1 + 2 * 3")
	lit, ok := e.(*Literal)
	if !ok || lit.Value.Int() != 7 {
		t.Fatalf("expected folded literal 7, got %#v", e)
	}
}

func TestConstantFoldingRefusesOverflow(t *testing.T) {
	e := optimized(t, "9223372036854775807 + 1")
	if _, ok := e.(*Literal); ok {
		t.Fatal("overflow must not fold to a literal")
	}
}

func TestConstantFoldingRefusesDivByZero(t *testing.T) {
	e := optimized(t, "1 / 0")
	if _, ok := e.(*Literal); ok {
		t.Fatal("division by zero must not fold")
	}
}

func TestAlgebraicIdentities(t *testing.T) {
	cases := map[string]string{
		"x + 0":         "x",
		"x - 0":         "x",
		"x * 1":         "x",
		"1 * x":         "x",
		"x / 1":         "x",
		"true and x":    "x",
		"false or x":    "x",
	}
	for src, wantField := range cases {
		e := optimized(t, src)
		f, ok := e.(*Field)
		if !ok || f.Path != wantField {
			t.Errorf("Optimize(%q) = %#v, want Field(%q)", src, e, wantField)
		}
	}
}

func TestAlgebraicIdentityShortCircuitsToConstant(t *testing.T) {
	e := optimized(t, "x * 0")
	lit, ok := e.(*Literal)
	if !ok || lit.Value.Int() != 0 {
		t.Fatalf("expected 0, got %#v", e)
	}
	e = optimized(t, "false and x")
	lit, ok = e.(*Literal)
	if !ok || lit.Value.Bool() != false {
		t.Fatalf("expected false, got %#v", e)
	}
	e = optimized(t, "true or x")
	lit, ok = e.(*Literal)
	if !ok || lit.Value.Bool() != true {
		t.Fatalf("expected true, got %#v", e)
	}
}

func TestDoubleNegationElimination(t *testing.T) {
	e := optimized(t, "!!x")
	f, ok := e.(*Field)
	if !ok || f.Path != "x" {
		t.Fatalf("expected x, got %#v", e)
	}
}

func TestConditionalLiteralCondition(t *testing.T) {
	e := optimized(t, "if true then x else y")
	f, ok := e.(*Field)
	if !ok || f.Path != "x" {
		t.Fatalf("expected x, got %#v", e)
	}
}

func TestConditionalIdenticalBranches(t *testing.T) {
	e := optimized(t, "if cond then x else x")
	f, ok := e.(*Field)
	if !ok || f.Path != "x" {
		t.Fatalf("expected x, got %#v", e)
	}
}

func TestCoalesceStripsNullsAndTruncates(t *testing.T) {
	e := optimized(t, "coalesce(null, x, 5, y)")
	c, ok := e.(*Coalesce)
	if !ok {
		t.Fatalf("expected Coalesce, got %#v", e)
	}
	if len(c.Exprs) != 2 {
		t.Fatalf("expected truncation after first literal survivor, got %#v", c.Exprs)
	}
}

func TestCoalesceSingleSurvivor(t *testing.T) {
	e := optimized(t, "coalesce(null, x)")
	f, ok := e.(*Field)
	if !ok || f.Path != "x" {
		t.Fatalf("expected x, got %#v", e)
	}
}

func TestPureFunctionFolding(t *testing.T) {
	e := optimized(t, `upper("hi")`)
	lit, ok := e.(*Literal)
	if !ok || lit.Value.Str() != "HI" {
		t.Fatalf("expected folded HI, got %#v", e)
	}
}

func TestImpureFunctionNeverFolds(t *testing.T) {
	e := optimized(t, "now()")
	if _, ok := e.(*Literal); ok {
		t.Fatal("now() must never fold")
	}
}

func TestArrayAllLiteralsFolds(t *testing.T) {
	e := optimized(t, "[1, 2, 3]")
	lit, ok := e.(*Literal)
	if !ok || !lit.Value.IsArray() || len(lit.Value.ArrayElems()) != 3 {
		t.Fatalf("expected folded array literal, got %#v", e)
	}
}

func TestArrayMixedDoesNotFold(t *testing.T) {
	e := optimized(t, "[1, x, 3]")
	if _, ok := e.(*Literal); ok {
		t.Fatal("mixed array must not fold")
	}
}

func TestOptimizeIdempotent(t *testing.T) {
	srcs := []string{
		"1 + 2 * 3",
		"x + 0",
		"if true then x else y",
		"coalesce(null, x, 5)",
		`upper("hi")`,
		"!!x",
	}
	for _, src := range srcs {
		e := mustParse(t, src)
		once, _ := Optimize(e)
		twice, _ := Optimize(once)
		if Hash(once) != Hash(twice) {
			t.Errorf("Optimize not idempotent for %q: once=%#v twice=%#v", src, once, twice)
		}
	}
}

func TestOptimizePreservesSemantics(t *testing.T) {
	ctx := testCtx(value.NewObject([]value.Pair{{Key: "x", Value: value.NewInt(5)}}))
	src := "x + 0 * 3"
	e := mustParse(t, src)
	before, err := Eval(e, ctx)
	if err != nil {
		t.Fatal(err)
	}
	optimizedE, _ := Optimize(e)
	after, err := Eval(optimizedE, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !value.Equal(before, after) {
		t.Errorf("semantics changed: before=%v after=%v", before, after)
	}
}
