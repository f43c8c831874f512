package expr

import (
	"testing"

	"github.com/launix-de/ordo-engine/context"
	"github.com/launix-de/ordo-engine/value"
)

func compileSrc(t *testing.T, src string) *CompiledExpr {
	t.Helper()
	e := mustParse(t, src)
	return Compile(e)
}

func runVM(t *testing.T, src string, ctx *context.Context) value.Value {
	t.Helper()
	ce := compileSrc(t, src)
	v, err := Execute(ce, ctx, nil)
	if err != nil {
		t.Fatalf("Execute(%q) failed: %v", src, err)
	}
	return v
}

func TestVMAgreesWithASTEval(t *testing.T) {
	input := value.NewObject([]value.Pair{
		{Key: "age", Value: value.NewInt(42)},
		{Key: "name", Value: value.NewString("ada")},
		{Key: "scores", Value: value.NewArray([]value.Value{value.NewInt(1), value.NewInt(2), value.NewInt(3)})},
	})
	cases := []string{
		"1 + 2 * 3",
		"age > 40",
		"age == 42 and name == \"ada\"",
		"age < 10 or name == \"ada\"",
		"if age > 40 then \"adult\" else \"minor\"",
		"coalesce(null, age, 99)",
		"sum(scores)",
		"40 < age",
		"age not in [1,2,3]",
		"name contains \"ad\"",
		"!(age == 42)",
		"-age + 1",
		"[age, 1+1]",
	}
	for _, src := range cases {
		ctx := context.New(input)
		e := mustParse(t, src)
		astVal, astErr := Eval(e, ctx)
		ce := Compile(e)
		vmVal, vmErr := Execute(ce, ctx, nil)
		if (astErr == nil) != (vmErr == nil) {
			t.Errorf("%q: ast err=%v, vm err=%v", src, astErr, vmErr)
			continue
		}
		if astErr != nil {
			continue
		}
		if !value.Equal(astVal, vmVal) {
			t.Errorf("%q: ast=%v vm=%v disagree", src, astVal, vmVal)
		}
	}
}

func TestVMFieldCmpConstFusion(t *testing.T) {
	ce := compileSrc(t, "age > 40")
	found := false
	for _, instr := range ce.Instructions {
		if instr.Op == OpFieldGtConst {
			found = true
		}
	}
	if !found {
		t.Fatal("expected field > literal to fuse into OpFieldGtConst")
	}
}

func TestVMReverseComparisonFusion(t *testing.T) {
	ce := compileSrc(t, "40 < age")
	found := false
	for _, instr := range ce.Instructions {
		if instr.Op == OpFieldGtConst {
			found = true
		}
	}
	if !found {
		t.Fatal("expected literal < field to fuse into reversed OpFieldGtConst")
	}
}

func TestVMFieldNotFoundPropagates(t *testing.T) {
	ctx := context.New(value.NewObject(nil))
	ce := compileSrc(t, "missing_field")
	_, err := Execute(ce, ctx, nil)
	if err == nil {
		t.Fatal("expected FieldNotFound error from VM")
	}
}

func TestVMConstantPoolDedup(t *testing.T) {
	ce := compileSrc(t, `1 + 1 + "x" + "x"`)
	intCount, strCount := 0, 0
	for _, v := range ce.Constants {
		if v.IsInt() && v.Int() == 1 {
			intCount++
		}
		if v.IsString() && v.Str() == "x" {
			strCount++
		}
	}
	if intCount != 1 {
		t.Errorf("expected constant 1 deduped to one pool entry, found %d", intCount)
	}
	if strCount != 1 {
		t.Errorf("expected constant \"x\" deduped to one pool entry, found %d", strCount)
	}
}

func TestVMTracing(t *testing.T) {
	ctx := context.New(value.NewNull())
	ce := compileSrc(t, "1 + 2")
	var trace []InstructionTrace
	v, err := Execute(ce, ctx, &trace)
	if err != nil {
		t.Fatal(err)
	}
	if v.Int() != 3 {
		t.Errorf("got %v", v)
	}
	if len(trace) == 0 {
		t.Fatal("expected non-empty trace when traceOut is provided")
	}
}

func TestVMShortCircuitDoesNotEvaluateRight(t *testing.T) {
	ctx := context.New(value.NewNull())
	v := runVM(t, "false and missing_field", ctx)
	if v.Bool() {
		t.Error("expected false")
	}
	v = runVM(t, "true or missing_field", ctx)
	if !v.Bool() {
		t.Error("expected true")
	}
}
