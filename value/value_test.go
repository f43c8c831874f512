package value

import "testing"

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{NewNull(), false},
		{NewBool(false), false},
		{NewBool(true), true},
		{NewInt(0), false},
		{NewInt(1), true},
		{NewFloat(0), false},
		{NewString(""), false},
		{NewString("x"), true},
		{NewArray(nil), false},
		{NewArray([]Value{NewInt(1)}), true},
		{NewObject(nil), false},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestEqualPromotion(t *testing.T) {
	if !Equal(NewInt(3), NewFloat(3.0)) {
		t.Error("int 3 should equal float 3.0")
	}
	if Equal(NewInt(3), NewFloat(3.5)) {
		t.Error("int 3 should not equal float 3.5")
	}
}

func TestPathLookup(t *testing.T) {
	obj := NewObject([]Pair{
		{"user", NewObject([]Pair{
			{"roles", NewArray([]Value{NewString("admin"), NewString("ops")})},
		})},
	})
	got, ok := obj.Path("user.roles.1")
	if !ok || got.Str() != "ops" {
		t.Fatalf("path lookup failed: %v, %v", got, ok)
	}
	_, ok = obj.Path("user.missing")
	if ok {
		t.Fatal("expected missing path to fail")
	}
}

func TestObjectDuplicateKeyOverwrite(t *testing.T) {
	obj := NewObject([]Pair{{"a", NewInt(1)}, {"a", NewInt(2)}})
	v, ok := obj.Get("a")
	if !ok || v.Int() != 2 {
		t.Fatalf("expected last duplicate key to win, got %v", v)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	src := []byte(`{"a": 1, "b": 2.5, "c": "hi", "d": [1,2,3], "e": null}`)
	v, err := ParseJSON(src)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := v.Get("a")
	if !a.IsInt() || a.Int() != 1 {
		t.Errorf("a should be int 1, got %v", a)
	}
	b, _ := v.Get("b")
	if !b.IsFloat() || b.Float() != 2.5 {
		t.Errorf("b should be float 2.5, got %v", b)
	}
}
