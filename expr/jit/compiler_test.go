package jit

import (
	"testing"

	"github.com/launix-de/ordo-engine/expr"
	"github.com/launix-de/ordo-engine/schema"
)

func numericSchema() *schema.MessageSchema {
	return schema.NewMessageSchema("LoanContext", []schema.FieldSchema{
		schema.NewField("age", schema.Int64(), 0),
		schema.NewField("score", schema.Float64(), 8),
		schema.NewField("name", schema.String(), 16),
	})
}

func compileExpr(t *testing.T, src string) *expr.CompiledExpr {
	t.Helper()
	e, err := expr.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	optimized, _ := expr.Optimize(e)
	return expr.Compile(optimized)
}

func TestCompilableAcceptsNumericPredicate(t *testing.T) {
	sc := numericSchema()
	ce := compileExpr(t, "age > 18 and score < 99.5")
	if !Compilable(ce, sc) {
		t.Error("expected a pure numeric field/literal predicate to be compilable")
	}
}

func TestCompilableRejectsStringField(t *testing.T) {
	sc := numericSchema()
	ce := compileExpr(t, `name == "ada"`)
	if Compilable(ce, sc) {
		t.Error("expected a string-typed field comparison to be rejected")
	}
}

func TestCompilableRejectsUnknownField(t *testing.T) {
	sc := numericSchema()
	ce := compileExpr(t, "missing_field > 1")
	if Compilable(ce, sc) {
		t.Error("expected an unresolvable field path to be rejected")
	}
}

func TestCompilableRejectsDivision(t *testing.T) {
	sc := numericSchema()
	ce := compileExpr(t, "age / 2")
	if Compilable(ce, sc) {
		t.Error("expected integer division to be rejected (no native overflow/div-by-zero path)")
	}
}

func TestCompilableRejectsFunctionCall(t *testing.T) {
	sc := numericSchema()
	ce := compileExpr(t, "abs(age)")
	if Compilable(ce, sc) {
		t.Error("expected a function call to be rejected")
	}
}

func TestCompilableRejectsOutOfRangeConstant(t *testing.T) {
	sc := numericSchema()
	ce := compileExpr(t, "age > 9223372036854775807")
	if Compilable(ce, sc) {
		t.Error("expected a constant outside the safe integer bound to be rejected")
	}
}

func TestCompilableAcceptsFieldCompareConstFusion(t *testing.T) {
	sc := numericSchema()
	ce := compileExpr(t, "18 < age")
	found := false
	for _, instr := range ce.Instructions {
		if instr.Op == expr.OpFieldGtConst {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the reversed comparison to fuse, as vm_test.go also asserts")
	}
	if !Compilable(ce, sc) {
		t.Error("expected a fused FieldGtConst predicate to be compilable")
	}
}
