package cache

import (
	"os"
	"testing"
	"time"

	"github.com/launix-de/ordo-engine/expr"
	"github.com/launix-de/ordo-engine/expr/profiler"
	"github.com/launix-de/ordo-engine/schema"
)

func numericSchema() *schema.MessageSchema {
	return schema.NewMessageSchema("Ctx", []schema.FieldSchema{
		schema.NewField("age", schema.Int64(), 0),
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

func TestResolveCapacityPrefersMaxMemory(t *testing.T) {
	cfg := Config{MaxMemoryEntries: 10, MaxMemory: "64MB"}
	got := resolveCapacity(cfg)
	want := int(64 * 1024 * 1024 / assumedEntryBytes)
	if got != want {
		t.Fatalf("resolveCapacity = %d, want %d", got, want)
	}
}

func TestResolveCapacityFallsBackOnEmptyMaxMemory(t *testing.T) {
	cfg := Config{MaxMemoryEntries: 42}
	if got := resolveCapacity(cfg); got != 42 {
		t.Fatalf("resolveCapacity = %d, want 42", got)
	}
}

func TestResolveCapacityFallsBackOnUnparsableMaxMemory(t *testing.T) {
	cfg := Config{MaxMemoryEntries: 7, MaxMemory: "not-a-size"}
	if got := resolveCapacity(cfg); got != 7 {
		t.Fatalf("resolveCapacity = %d, want 7", got)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := newMemoryCache(2)
	mc.put(1, nil)
	mc.put(2, nil)
	mc.get(1) // touch 1 so it's no longer the LRU entry
	mc.put(3, nil)

	if mc.contains(2) {
		t.Fatal("expected hash 2 to be evicted as the least recently used entry")
	}
	if !mc.contains(1) || !mc.contains(3) {
		t.Fatal("expected hashes 1 and 3 to remain cached")
	}
}

func TestCacheSubmitCompilesAndPopulatesL1(t *testing.T) {
	cfg := DefaultConfig()
	c := New(cfg)
	defer c.Close()

	sc := numericSchema()
	ce := compileExpr(t, "age + 1")
	if !c.Submit(1, ce, sc, "age + 1", profiler.TierHigh) {
		t.Fatal("expected Submit to accept a fresh hash")
	}

	deadline := time.Now().Add(2 * time.Second)
	for !c.IsCompiled(1) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !c.IsCompiled(1) {
		t.Fatal("expected hash 1 to become compiled within the deadline")
	}
	if _, ok := c.Get(1); !ok {
		t.Fatal("expected Get to return the compiled entry")
	}
}

func TestCacheSubmitRejectsDuplicateWhilePending(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueCapacity = 1
	c := New(cfg)
	defer c.Close()

	sc := numericSchema()
	ce := compileExpr(t, "age + 1")
	c.Submit(1, ce, sc, "age + 1", profiler.TierHigh)
	if c.Submit(1, ce, sc, "age + 1", profiler.TierHigh) {
		t.Fatal("expected a second Submit for the same hash to be rejected")
	}
}

func TestCacheDiskIndexPersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{MaxMemoryEntries: 10, EnableDiskCache: true, CacheDir: dir, QueueCapacity: 16}
	c := New(cfg)

	sc := numericSchema()
	ce := compileExpr(t, "age + 1")
	c.Submit(1, ce, sc, "age + 1", profiler.TierHigh)

	deadline := time.Now().Add(2 * time.Second)
	for !c.IsCompiled(1) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(dir + "/index.json"); err != nil {
		t.Fatalf("expected index.json to exist after Close: %v", err)
	}

	c2 := New(cfg)
	defer c2.Close()
	if got := c2.Stats().L2Entries; got != 1 {
		t.Fatalf("reloaded L2Entries = %d, want 1", got)
	}
}
