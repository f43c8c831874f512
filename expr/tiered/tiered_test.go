package tiered

import (
	"runtime"
	"testing"
	"time"

	"github.com/launix-de/ordo-engine/context"
	"github.com/launix-de/ordo-engine/expr"
	"github.com/launix-de/ordo-engine/expr/jit/cache"
	"github.com/launix-de/ordo-engine/expr/profiler"
	"github.com/launix-de/ordo-engine/schema"
	"github.com/launix-de/ordo-engine/value"
)

func numericSchema() *schema.MessageSchema {
	return schema.NewMessageSchema("LoanContext", []schema.FieldSchema{
		schema.NewField("age", schema.Int64(), 0),
		schema.NewField("score", schema.Float64(), 8),
	})
}

func mustParse(t *testing.T, src string) expr.Expr {
	t.Helper()
	e, err := expr.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return e
}

func TestEvalMatchesBytecodeBeforePromotion(t *testing.T) {
	ev := New(profiler.New(), nil)
	ctx := context.New(value.NewObject([]value.Pair{{Key: "age", Value: value.NewInt(42)}}))
	v, err := ev.Eval(mustParse(t, "age > 18"), nil, ctx)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !v.IsBool() || !v.Bool() {
		t.Fatalf("expected true, got %v", v)
	}
}

func TestEvalWithNilSchemaNeverPromotes(t *testing.T) {
	ev := New(profiler.New(), cache.New(cache.DefaultConfig()))
	ctx := context.New(value.NewObject([]value.Pair{{Key: "age", Value: value.NewInt(42)}}))
	e := mustParse(t, "age > 18")
	for i := 0; i < 10000; i++ {
		if _, err := ev.Eval(e, nil, ctx); err != nil {
			t.Fatalf("Eval: %v", err)
		}
	}
	hash := expr.Hash(e)
	// hot enough, but with a nil schema Eval never attempts
	// Compilable/Submit, so the cache holds nothing for this hash.
	if ev.jitCache.IsCompiled(hash) || ev.jitCache.IsPending(hash) {
		t.Fatal("expected no native compilation with a nil schema")
	}
}

func TestEvalPromotesHotNumericPredicateToNative(t *testing.T) {
	ev := New(profiler.New(), cache.New(cache.DefaultConfig()))
	sc := numericSchema()
	ctx := context.New(value.NewObject([]value.Pair{
		{Key: "age", Value: value.NewInt(42)},
		{Key: "score", Value: value.NewFloat(7.5)},
	}))
	e := mustParse(t, "age > 18")
	hash := expr.Hash(e)

	for i := 0; i < 20000; i++ {
		v, err := ev.Eval(e, sc, ctx)
		if err != nil {
			t.Fatalf("Eval: %v", err)
		}
		if !v.IsBool() || !v.Bool() {
			t.Fatalf("expected true at iteration %d, got %v", i, v)
		}
		if ev.jitCache.IsCompiled(hash) {
			break
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for !ev.jitCache.IsCompiled(hash) && time.Now().Before(deadline) {
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}
	if !ev.jitCache.IsCompiled(hash) {
		t.Fatal("expected a hot numeric predicate to eventually compile natively")
	}

	v, err := ev.Eval(e, sc, ctx)
	if err != nil {
		t.Fatalf("Eval after promotion: %v", err)
	}
	if !v.IsBool() || !v.Bool() {
		t.Fatalf("expected true from the native path, got %v", v)
	}
}

func TestMaterializeReportsMissingField(t *testing.T) {
	ev := New(profiler.New(), cache.New(cache.DefaultConfig()))
	sc := numericSchema()
	ctx := context.New(value.NewObject(nil))
	ce := expr.Compile(mustParse(t, "age > 18"))
	if _, _, err := materialize(ce, sc, ctx); err == nil {
		t.Fatal("expected materialize to fail when the field is absent from ctx")
	}
	_ = ev
}
