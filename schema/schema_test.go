package schema

import "testing"

func buildNested() *MessageSchema {
	profile := NewMessageSchema("Profile", []FieldSchema{
		NewField("age", Int32(), 0),
		NewField("verified", Bool(), 4),
	})
	return NewMessageSchema("LoanContext", []FieldSchema{
		NewField("amount", Float64(), 0),
		NewField("credit_score", Int32(), 8),
		NewField("profile", Message(profile), 16),
	})
}

func TestResolveDirectField(t *testing.T) {
	s := buildNested()
	rf, ok := s.ResolveFieldPath("credit_score")
	if !ok || rf.Offset != 8 || rf.Type.Kind != KInt32 {
		t.Fatalf("unexpected resolution: %+v, %v", rf, ok)
	}
}

func TestResolveNestedFieldAccumulatesOffset(t *testing.T) {
	s := buildNested()
	rf, ok := s.ResolveFieldPath("profile.verified")
	if !ok {
		t.Fatal("expected profile.verified to resolve")
	}
	if want := 16 + 4; rf.Offset != want {
		t.Errorf("offset = %d, want %d", rf.Offset, want)
	}
	if rf.Type.Kind != KBool {
		t.Errorf("type = %v, want bool", rf.Type)
	}
	if rf.Path != "profile.verified" {
		t.Errorf("path = %q", rf.Path)
	}
}

func TestResolveMissingField(t *testing.T) {
	s := buildNested()
	if _, ok := s.ResolveFieldPath("profile.nonexistent"); ok {
		t.Fatal("expected missing nested field to fail resolution")
	}
	if _, ok := s.ResolveFieldPath("amount.sub"); ok {
		t.Fatal("expected descending into a non-message field to fail")
	}
}

func TestAllFieldPathsFlattensNested(t *testing.T) {
	s := buildNested()
	paths := s.AllFieldPaths()
	want := []string{"amount", "credit_score", "profile", "profile.age", "profile.verified"}
	if len(paths) != len(want) {
		t.Fatalf("got %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	s := buildNested()
	r.Register(s)
	got, ok := r.Get("LoanContext")
	if !ok || got != s {
		t.Fatal("expected registered schema to round-trip")
	}
	if _, ok := r.Get("Missing"); ok {
		t.Fatal("expected missing schema lookup to fail")
	}
}
