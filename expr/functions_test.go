package expr

import (
	"testing"

	"github.com/launix-de/ordo-engine/value"
)

func TestStringFunctions(t *testing.T) {
	v, err := CallFunction("upper", []value.Value{value.NewString("hello")})
	if err != nil || v.Str() != "HELLO" {
		t.Fatalf("upper: %v, %v", v, err)
	}
	v, err = CallFunction("trim", []value.Value{value.NewString("  hi  ")})
	if err != nil || v.Str() != "hi" {
		t.Fatalf("trim: %v, %v", v, err)
	}
	v, err = CallFunction("substring", []value.Value{value.NewString("hello world"), value.NewInt(6)})
	if err != nil || v.Str() != "world" {
		t.Fatalf("substring: %v, %v", v, err)
	}
}

func TestMathFunctions(t *testing.T) {
	v, err := CallFunction("abs", []value.Value{value.NewInt(-5)})
	if err != nil || !v.IsInt() || v.Int() != 5 {
		t.Fatalf("abs: %v, %v", v, err)
	}
	v, err = CallFunction("max", []value.Value{value.NewInt(1), value.NewInt(9), value.NewInt(3)})
	if err != nil || v.Int() != 9 {
		t.Fatalf("max: %v, %v", v, err)
	}
	v, err = CallFunction("min", []value.Value{value.NewArray([]value.Value{value.NewInt(4), value.NewInt(-2)})})
	if err != nil || v.Int() != -2 {
		t.Fatalf("min over array: %v, %v", v, err)
	}
}

func TestArrayFunctions(t *testing.T) {
	arr := value.NewArray([]value.Value{value.NewInt(1), value.NewInt(2), value.NewInt(3)})
	v, err := CallFunction("sum", []value.Value{arr})
	if err != nil || v.Int() != 6 {
		t.Fatalf("sum: %v, %v", v, err)
	}
	v, err = CallFunction("avg", []value.Value{arr})
	if err != nil || v.Float() != 2 {
		t.Fatalf("avg: %v, %v", v, err)
	}
}

func TestArityErrors(t *testing.T) {
	if _, err := CallFunction("upper", nil); err == nil {
		t.Fatal("expected arity error for upper()")
	}
	if _, err := CallFunction("nonexistent_fn", nil); err == nil {
		t.Fatal("expected FunctionNotFound")
	}
}

func TestConversionFunctions(t *testing.T) {
	v, err := CallFunction("to_int", []value.Value{value.NewString("42")})
	if err != nil || v.Int() != 42 {
		t.Fatalf("to_int: %v, %v", v, err)
	}
	v, err = CallFunction("to_string", []value.Value{value.NewInt(7)})
	if err != nil || v.Str() != "7" {
		t.Fatalf("to_string: %v, %v", v, err)
	}
}

func TestImpureFunctionsAreFlaggedNotPure(t *testing.T) {
	f, ok := LookupFunction("now")
	if !ok || f.Pure {
		t.Fatal("now must be registered and marked impure")
	}
	f, ok = LookupFunction("len")
	if !ok || !f.Pure {
		t.Fatal("len must be registered and marked pure")
	}
}
