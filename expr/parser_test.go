package expr

import "testing"

func mustParse(t *testing.T, src string) Expr {
	t.Helper()
	e, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return e
}

func TestParsePrecedence(t *testing.T) {
	e := mustParse(t, "1 + 2 * 3")
	b, ok := e.(*Binary)
	if !ok || b.Op != OpAdd {
		t.Fatalf("expected top-level +, got %#v", e)
	}
	right, ok := b.Right.(*Binary)
	if !ok || right.Op != OpMul {
		t.Fatalf("expected right side to be *, got %#v", b.Right)
	}
}

func TestParseLeftAssociative(t *testing.T) {
	e := mustParse(t, "10 - 3 - 2")
	top, ok := e.(*Binary)
	if !ok || top.Op != OpSub {
		t.Fatalf("got %#v", e)
	}
	if _, ok := top.Left.(*Binary); !ok {
		t.Fatal("expected left-associative grouping, subtraction should nest on the left")
	}
}

func TestParseFieldPath(t *testing.T) {
	e := mustParse(t, "user.profile.age")
	f, ok := e.(*Field)
	if !ok || f.Path != "user.profile.age" {
		t.Fatalf("got %#v", e)
	}
}

func TestParseVariableSigil(t *testing.T) {
	e := mustParse(t, "$risk_score.tier")
	f, ok := e.(*Field)
	if !ok || f.Path != "$risk_score.tier" {
		t.Fatalf("got %#v", e)
	}
}

func TestParseConditional(t *testing.T) {
	e := mustParse(t, "if x > 0 then 1 else -1")
	c, ok := e.(*Conditional)
	if !ok {
		t.Fatalf("got %#v", e)
	}
	if _, ok := c.Condition.(*Binary); !ok {
		t.Fatalf("condition should parse as binary, got %#v", c.Condition)
	}
}

func TestParseExists(t *testing.T) {
	e := mustParse(t, "exists(user.email)")
	ex, ok := e.(*Exists)
	if !ok || ex.Path != "user.email" {
		t.Fatalf("got %#v", e)
	}
}

func TestParseCoalesce(t *testing.T) {
	e := mustParse(t, "coalesce(a, b, 3)")
	c, ok := e.(*Coalesce)
	if !ok || len(c.Exprs) != 3 {
		t.Fatalf("got %#v", e)
	}
}

func TestParseNotIn(t *testing.T) {
	e := mustParse(t, "x not in [1,2,3]")
	b, ok := e.(*Binary)
	if !ok || b.Op != OpNotIn {
		t.Fatalf("got %#v", e)
	}
}

func TestParseFunctionCall(t *testing.T) {
	e := mustParse(t, "upper(trim(name))")
	c, ok := e.(*Call)
	if !ok || c.Name != "upper" || len(c.Args) != 1 {
		t.Fatalf("got %#v", e)
	}
	if _, ok := c.Args[0].(*Call); !ok {
		t.Fatalf("expected nested call, got %#v", c.Args[0])
	}
}

func TestParseStringEscapes(t *testing.T) {
	e := mustParse(t, `"line1\nline2\t\"q\""`)
	lit, ok := e.(*Literal)
	if !ok {
		t.Fatalf("got %#v", e)
	}
	if lit.Value.Str() != "line1\nline2\t\"q\"" {
		t.Errorf("got %q", lit.Value.Str())
	}
}

func TestParseFloatVsInt(t *testing.T) {
	i := mustParse(t, "42").(*Literal)
	if !i.Value.IsInt() || i.Value.Int() != 42 {
		t.Errorf("expected int 42, got %v", i.Value)
	}
	f := mustParse(t, "42.5").(*Literal)
	if !f.Value.IsFloat() || f.Value.Float() != 42.5 {
		t.Errorf("expected float 42.5, got %v", f.Value)
	}
}

func TestParseArrayAndObjectLiterals(t *testing.T) {
	arr := mustParse(t, "[1, 2, 3]").(*Array)
	if len(arr.Elems) != 3 {
		t.Fatalf("got %#v", arr)
	}
	obj := mustParse(t, `{"a": 1, "b": 2}`).(*Object)
	if len(obj.Entries) != 2 || obj.Entries[0].Key != "a" {
		t.Fatalf("got %#v", obj)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"1 +",
		"(1 + 2",
		`"unterminated`,
		"1 2",
		"exists(",
	}
	for _, src := range cases {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q) should have failed", src)
		}
	}
}
