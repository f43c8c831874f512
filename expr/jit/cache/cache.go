/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package cache holds the two-tier store of natively compiled
// expressions: an in-memory LRU (L1) in front of a disk-backed index of
// source hints (L2), plus the bounded background worker that performs
// compilation off the evaluation hot path.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/google/btree"
	"golang.org/x/sync/errgroup"

	"github.com/launix-de/ordo-engine/expr"
	"github.com/launix-de/ordo-engine/expr/jit"
	"github.com/launix-de/ordo-engine/expr/profiler"
	"github.com/launix-de/ordo-engine/schema"
)

// Config controls cache sizing and the background compile worker.
// MaxMemory, when set, takes precedence over MaxMemoryEntries: it's a
// human-readable budget ("64MB", "1GB") parsed with the same
// docker/go-units library the teacher uses for its own storage-partition
// sizing, converted to an entry count via an assumed per-entry footprint
// (a compiled function plus its mmap'd code page rounds to one page on
// most architectures).
type Config struct {
	MaxMemoryEntries int
	MaxMemory        string
	EnableDiskCache  bool
	CacheDir         string
	QueueCapacity    int
}

// assumedEntryBytes approximates one L1 entry's resident footprint
// (the mmap'd code page backing a compiled function rounds up to at
// least one 4KB page on amd64/arm64).
const assumedEntryBytes = 4096

// DefaultConfig mirrors the engine's out-of-the-box sizing.
func DefaultConfig() Config {
	return Config{MaxMemoryEntries: 1000, EnableDiskCache: false, QueueCapacity: 256}
}

func resolveCapacity(cfg Config) int {
	if cfg.MaxMemory == "" {
		return cfg.MaxMemoryEntries
	}
	bytes, err := units.RAMInBytes(cfg.MaxMemory)
	if err != nil || bytes <= 0 {
		return cfg.MaxMemoryEntries
	}
	n := int(bytes / assumedEntryBytes)
	if n < 1 {
		n = 1
	}
	return n
}

// Stats is a point-in-time read of cache activity, exposed for host
// dashboards the way profiler.Snapshot is.
type Stats struct {
	Hits, Misses               uint64
	L1Entries, L2Entries        int
	PendingCompilations         int
	SuccessfulCompilations      uint64
	FailedCompilations          uint64
	TotalCompileTimeNs          int64
}

type lruEntry struct {
	hash  uint64
	entry *jit.Entry
}

// memoryCache is an L1 LRU of compiled entries, guarded by a single
// mutex — grounded on the same Mutex<LruCache<u64, usize>> shape the
// profiler's own design notes reference, reimplemented over
// container/list since no LRU library appears anywhere in the example
// pack's go.mod files to ground an ecosystem choice on.
type memoryCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	index    map[uint64]*list.Element
	hits     uint64
	misses   uint64
}

func newMemoryCache(capacity int) *memoryCache {
	if capacity < 1 {
		capacity = 1
	}
	return &memoryCache{capacity: capacity, ll: list.New(), index: make(map[uint64]*list.Element)}
}

func (m *memoryCache) get(hash uint64) (*jit.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.index[hash]; ok {
		m.ll.MoveToFront(el)
		m.hits++
		return el.Value.(*lruEntry).entry, true
	}
	m.misses++
	return nil, false
}

func (m *memoryCache) put(hash uint64, entry *jit.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.index[hash]; ok {
		m.ll.MoveToFront(el)
		el.Value.(*lruEntry).entry = entry
		return
	}
	el := m.ll.PushFront(&lruEntry{hash: hash, entry: entry})
	m.index[hash] = el
	for m.ll.Len() > m.capacity {
		oldest := m.ll.Back()
		if oldest == nil {
			break
		}
		m.ll.Remove(oldest)
		delete(m.index, oldest.Value.(*lruEntry).hash)
	}
}

func (m *memoryCache) contains(hash uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.index[hash]
	return ok
}

func (m *memoryCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ll.Len()
}

// diskIndexEntry is one L2 record: the hash, the schema it was compiled
// against, when it was recorded, and the source hint its submitter passed
// (the tiered evaluator passes the hash in hex). No machine code is
// persisted, and nothing in this package reads an entry back to
// recompile; see the Open Question decision in DESIGN.md.
type diskIndexEntry struct {
	Hash       uint64 `json:"hash"`
	Source     string `json:"source"`
	SchemaName string `json:"schema_name"`
	ObservedAt int64  `json:"observed_at_unix_ms"`
}

type diskIndex struct {
	mu      sync.Mutex
	dir     string
	entries map[uint64]diskIndexEntry
}

func loadDiskIndex(dir string) *diskIndex {
	idx := &diskIndex{dir: dir, entries: make(map[uint64]diskIndexEntry)}
	data, err := os.ReadFile(filepath.Join(dir, "index.json"))
	if err != nil {
		return idx
	}
	var list []diskIndexEntry
	if err := json.Unmarshal(data, &list); err != nil {
		return idx
	}
	for _, e := range list {
		idx.entries[e.Hash] = e
	}
	return idx
}

// persist writes index.json, first renaming any existing file to
// index.json.old — the same rescue-a-copy-before-overwrite pattern
// storage/persistence-files.go uses for schema.json, adapted here since
// this index is small enough that atomic rename-into-place would be
// overkill for what's ultimately a warm-up hint cache, not a durability
// guarantee.
func (d *diskIndex) persist() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := os.MkdirAll(d.dir, 0750); err != nil {
		return err
	}
	list := make([]diskIndexEntry, 0, len(d.entries))
	for _, e := range d.entries {
		list = append(list, e)
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	target := filepath.Join(d.dir, "index.json")
	if stat, err := os.Stat(target); err == nil && stat.Size() > 0 {
		os.Rename(target, target+".old")
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

func (d *diskIndex) record(e diskIndexEntry) {
	d.mu.Lock()
	d.entries[e.Hash] = e
	d.mu.Unlock()
}

func (d *diskIndex) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// compileTask is one unit of background compile work, ordered in the
// priority queue by (tier, hash) so hotter expressions always drain
// first — google/btree gives an ordered set with O(log n) insert/pop-min
// without this package hand-rolling a heap.
type compileTask struct {
	tier       profiler.Tier
	hash       uint64
	ce         *expr.CompiledExpr
	schemaRoot *schema.MessageSchema
	source     string
}

func (t *compileTask) Less(than btree.Item) bool {
	o := than.(*compileTask)
	if t.tier != o.tier {
		return t.tier > o.tier // higher tier sorts first
	}
	return t.hash < o.hash
}

// Cache is the two-tier JIT cache plus its bounded background compile
// worker pool. Grounded on the dispatch shape of the BackgroundJIT
// worker loop (hash -> pending-set -> bounded channel -> compile ->
// insert), translated from a single crossbeam-channel FIFO into a
// btree-ordered priority queue so hot expressions don't wait behind a
// backlog of merely-warm ones.
type Cache struct {
	cfg   Config
	l1    *memoryCache
	l2    *diskIndex
	group *errgroup.Group
	ctx   context.Context
	stop  context.CancelFunc

	mu      sync.Mutex
	queue   *btree.BTree
	pending map[uint64]struct{}

	stats struct {
		sync.Mutex
		successful, failed uint64
		compileTimeNs      int64
	}

	wake chan struct{}
}

// New starts a Cache with one background compile worker. Callers must
// call Close to stop the worker and flush the disk index.
func New(cfg Config) *Cache {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	c := &Cache{
		cfg:     cfg,
		l1:      newMemoryCache(resolveCapacity(cfg)),
		group:   group,
		ctx:     gctx,
		stop:    cancel,
		queue:   btree.New(8),
		pending: make(map[uint64]struct{}),
		wake:    make(chan struct{}, 1),
	}
	if cfg.EnableDiskCache && cfg.CacheDir != "" {
		c.l2 = loadDiskIndex(cfg.CacheDir)
	}
	c.group.Go(c.workerLoop)
	return c
}

// Get returns the L1-cached compiled entry for hash, if present.
func (c *Cache) Get(hash uint64) (*jit.Entry, bool) {
	return c.l1.get(hash)
}

// IsCompiled reports whether hash currently has a compiled entry.
func (c *Cache) IsCompiled(hash uint64) bool {
	return c.l1.contains(hash)
}

// IsPending reports whether hash is queued for background compilation.
func (c *Cache) IsPending(hash uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[hash]
	return ok
}

// Submit enqueues ce for background compilation at the given tier. It
// returns false if hash is already compiled, already pending, or the
// queue is momentarily full — in every case the caller's own bytecode
// path keeps serving requests, so a dropped submission only delays a
// future speed-up, it never blocks correctness.
func (c *Cache) Submit(hash uint64, ce *expr.CompiledExpr, schemaRoot *schema.MessageSchema, source string, tier profiler.Tier) bool {
	if c.l1.contains(hash) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[hash]; ok {
		return false
	}
	if c.queue.Len() >= c.cfg.QueueCapacity {
		return false
	}
	c.pending[hash] = struct{}{}
	c.queue.ReplaceOrInsert(&compileTask{tier: tier, hash: hash, ce: ce, schemaRoot: schemaRoot, source: source})
	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

func (c *Cache) workerLoop() error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return nil
		case <-c.wake:
		case <-ticker.C:
		}
		for {
			task := c.popNext()
			if task == nil {
				break
			}
			c.compileOne(task)
		}
	}
}

func (c *Cache) popNext() *compileTask {
	c.mu.Lock()
	defer c.mu.Unlock()
	item := c.queue.DeleteMin()
	if item == nil {
		return nil
	}
	return item.(*compileTask)
}

func (c *Cache) compileOne(task *compileTask) {
	defer func() {
		c.mu.Lock()
		delete(c.pending, task.hash)
		c.mu.Unlock()
	}()
	start := time.Now()
	entry, err := jit.Compile(task.ce, task.schemaRoot)
	elapsed := time.Since(start)
	c.stats.Lock()
	c.stats.compileTimeNs += elapsed.Nanoseconds()
	if err != nil {
		c.stats.failed++
		c.stats.Unlock()
		return
	}
	c.stats.successful++
	c.stats.Unlock()

	c.l1.put(task.hash, entry)
	if c.l2 != nil {
		c.l2.record(diskIndexEntry{Hash: task.hash, Source: task.source, SchemaName: task.schemaRoot.Name, ObservedAt: time.Now().UnixMilli()})
	}
}

// Stats returns a point-in-time snapshot of cache activity.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	pending := len(c.pending)
	c.mu.Unlock()
	c.stats.Lock()
	defer c.stats.Unlock()
	l2 := 0
	if c.l2 != nil {
		l2 = c.l2.len()
	}
	return Stats{
		Hits: c.l1.hits, Misses: c.l1.misses,
		L1Entries: c.l1.len(), L2Entries: l2,
		PendingCompilations:    pending,
		SuccessfulCompilations: c.stats.successful,
		FailedCompilations:     c.stats.failed,
		TotalCompileTimeNs:     c.stats.compileTimeNs,
	}
}

// Close stops the background worker, flushing the disk index if enabled.
func (c *Cache) Close() error {
	c.stop()
	_ = c.group.Wait()
	if c.l2 != nil {
		return c.l2.persist()
	}
	return nil
}
