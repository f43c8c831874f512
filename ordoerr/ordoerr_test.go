package ordoerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestAsFieldNotFound(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewFieldNotFound("user.age"))
	fnf, ok := AsFieldNotFound(err)
	if !ok || fnf.Field != "user.age" {
		t.Fatalf("expected to unwrap FieldNotFound, got %v, %v", fnf, ok)
	}

	if _, ok := AsFieldNotFound(NewEvalError("boom")); ok {
		t.Fatal("EvalError must not be mistaken for FieldNotFound")
	}
}

func TestErrorStrings(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{NewParseError("unexpected token"), "parse error: unexpected token"},
		{NewParseErrorAt("unexpected token", "1:5"), "parse error at 1:5: unexpected token"},
		{NewTypeError("int", "string"), "type error: expected int, got string"},
		{NewFieldNotFound("x.y"), "field not found: x.y"},
		{NewTimeout(500), "execution timeout: 500ms"},
	}
	for _, c := range cases {
		if got := c.err.Error(); got != c.want {
			t.Errorf("Error() = %q, want %q", got, c.want)
		}
	}
}

func TestUnwrapChain(t *testing.T) {
	var target *RuleSetNotFound
	err := fmt.Errorf("lookup failed: %w", NewRuleSetNotFound("fraud-check"))
	if !errors.As(err, &target) {
		t.Fatal("expected errors.As to find RuleSetNotFound")
	}
	if target.Name != "fraud-check" {
		t.Errorf("got name %q", target.Name)
	}
}
