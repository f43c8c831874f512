package expr

import (
	"testing"

	"github.com/launix-de/ordo-engine/context"
	"github.com/launix-de/ordo-engine/ordoerr"
	"github.com/launix-de/ordo-engine/value"
)

func testCtx(input value.Value) *context.Context {
	return context.New(input)
}

func evalSrc(t *testing.T, src string, ctx *context.Context) value.Value {
	t.Helper()
	e := mustParse(t, src)
	v, err := Eval(e, ctx)
	if err != nil {
		t.Fatalf("Eval(%q) failed: %v", src, err)
	}
	return v
}

func TestEvalArithmetic(t *testing.T) {
	ctx := testCtx(value.NewNull())
	v := evalSrc(t, "2 + 3 * 4", ctx)
	if v.Int() != 14 {
		t.Errorf("got %v", v)
	}
}

func TestEvalStringConcat(t *testing.T) {
	ctx := testCtx(value.NewNull())
	v := evalSrc(t, `"foo" + "bar"`, ctx)
	if v.Str() != "foobar" {
		t.Errorf("got %v", v)
	}
}

func TestEvalComparisonMixedNumeric(t *testing.T) {
	ctx := testCtx(value.NewNull())
	v := evalSrc(t, "3 < 3.5", ctx)
	if !v.Bool() {
		t.Errorf("expected true, got %v", v)
	}
}

func TestEvalFieldNotFound(t *testing.T) {
	ctx := testCtx(value.NewObject(nil))
	e := mustParse(t, "missing.field")
	_, err := Eval(e, ctx)
	if _, ok := ordoerr.AsFieldNotFound(err); !ok {
		t.Fatalf("expected FieldNotFound, got %v", err)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	ctx := testCtx(value.NewNull())
	e := mustParse(t, "1 / 0")
	if _, err := Eval(e, ctx); err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestEvalIntegerOverflow(t *testing.T) {
	ctx := testCtx(value.NewNull())
	e := mustParse(t, "9223372036854775807 + 1")
	if _, err := Eval(e, ctx); err == nil {
		t.Fatal("expected overflow error")
	}
}

func TestEvalInAndContains(t *testing.T) {
	ctx := testCtx(value.NewNull())
	v := evalSrc(t, "2 in [1,2,3]", ctx)
	if !v.Bool() {
		t.Error("expected 2 in [1,2,3] = true")
	}
	v = evalSrc(t, "4 not in [1,2,3]", ctx)
	if !v.Bool() {
		t.Error("expected 4 not in [1,2,3] = true")
	}
	v = evalSrc(t, `"ell" contains "hello"`, ctx)
	// contains(haystack, needle): haystack="ell", needle="hello" — "ell" does not contain "hello"
	if v.Bool() {
		t.Error("expected false")
	}
	v = evalSrc(t, `"hello" contains "ell"`, ctx)
	if !v.Bool() {
		t.Error("expected true")
	}
}

func TestEvalShortCircuit(t *testing.T) {
	ctx := testCtx(value.NewNull())
	// Right side references a missing field; short-circuit must prevent
	// it from ever being evaluated.
	v := evalSrc(t, "false and missing_field", ctx)
	if v.Bool() {
		t.Error("expected false")
	}
	v = evalSrc(t, "true or missing_field", ctx)
	if !v.Bool() {
		t.Error("expected true")
	}
}

func TestEvalConditionalAndCoalesce(t *testing.T) {
	ctx := testCtx(value.NewNull())
	v := evalSrc(t, "if 1 < 2 then 10 else 20", ctx)
	if v.Int() != 10 {
		t.Errorf("got %v", v)
	}
	v = evalSrc(t, "coalesce(null, null, 7)", ctx)
	if v.Int() != 7 {
		t.Errorf("got %v", v)
	}
}

func TestEvalExists(t *testing.T) {
	ctx := testCtx(value.NewObject([]value.Pair{{Key: "a", Value: value.NewInt(1)}}))
	v := evalSrc(t, "exists(a)", ctx)
	if !v.Bool() {
		t.Error("expected exists(a) = true")
	}
	v = evalSrc(t, "exists(b)", ctx)
	if v.Bool() {
		t.Error("expected exists(b) = false")
	}
}

func TestEvalArrayAndObjectLiterals(t *testing.T) {
	ctx := testCtx(value.NewNull())
	v := evalSrc(t, "[1, 2, 1+2]", ctx)
	if !v.IsArray() || v.ArrayElems()[2].Int() != 3 {
		t.Errorf("got %v", v)
	}
	v = evalSrc(t, `{"a": 1, "b": 1+1}`, ctx)
	b, ok := v.Get("b")
	if !ok || b.Int() != 2 {
		t.Errorf("got %v", v)
	}
}
