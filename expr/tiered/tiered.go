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

// Package tiered wires the bytecode compiler, the profiler, and the JIT
// cache into a single evaluation entry point: every expression starts on
// the bytecode VM, the profiler watches how hot it runs, and once it
// crosses the promotion threshold a background compile hands the same
// hash a native function that subsequent calls use instead. Nothing ever
// waits on a compile — a submission that's still pending, or that never
// qualifies for native code at all, simply keeps using the bytecode
// path, which is always correct.
package tiered

import (
	"math"
	"runtime"
	"strconv"
	"time"
	"unsafe"

	rm "github.com/launix-de/NonLockingReadMap"
	"github.com/launix-de/ordo-engine/expr"
	"github.com/launix-de/ordo-engine/expr/jit"
	"github.com/launix-de/ordo-engine/expr/jit/cache"
	"github.com/launix-de/ordo-engine/expr/profiler"
	"github.com/launix-de/ordo-engine/ordoerr"
	"github.com/launix-de/ordo-engine/schema"
	"github.com/launix-de/ordo-engine/value"
)

// compiledEntry is one hash's bytecode form, cached so repeated
// evaluations of the same expression never re-run the compiler. Same
// NonLockingReadMap shape as profiler.Record: read on every evaluation,
// written only the first time a hash is seen.
type compiledEntry struct {
	hash uint64
	ce   *expr.CompiledExpr
}

func (c compiledEntry) GetKey() uint64   { return c.hash }
func (c compiledEntry) ComputeSize() uint { return uint(48 + len(c.ce.Instructions)*24) }

// Evaluator is the tiered entry point a rule executor calls instead of
// expr.Execute directly. One Evaluator is shared across every execution
// in a process; it owns no per-call state.
type Evaluator struct {
	profiler *profiler.Profiler
	jitCache *cache.Cache
	compiled rm.NonLockingReadMap[compiledEntry, uint64]
}

// New builds an Evaluator over an existing Profiler and Cache. jitCache
// may be nil, in which case every evaluation stays on the bytecode VM —
// useful for hosts (and tests) that don't want a background compile
// worker running.
func New(prof *profiler.Profiler, jitCache *cache.Cache) *Evaluator {
	return &Evaluator{
		profiler: prof,
		jitCache: jitCache,
		compiled: rm.New[compiledEntry, uint64](),
	}
}

// Eval evaluates e against ctx, using e's native compiled form once one
// exists and schemaRoot is non-nil, and the bytecode VM otherwise.
// schemaRoot may be nil when the caller's context type has no known
// fixed layout (e.g. ad-hoc documents) — native compilation is then
// never attempted for this call, though the bytecode form is still
// cached and profiled.
func (ev *Evaluator) Eval(e expr.Expr, schemaRoot *schema.MessageSchema, ctx expr.Resolver) (value.Value, error) {
	hash := expr.Hash(e)
	ce := ev.getOrCompile(hash, e)

	start := time.Now()
	result, err := ev.evalOnce(hash, ce, schemaRoot, ctx)
	elapsed := time.Since(start)
	ev.profiler.RecordExpression(hash, elapsed.Nanoseconds(), time.Now().UnixNano())

	if err == nil && schemaRoot != nil && ev.jitCache != nil {
		ev.maybePromote(hash, ce, schemaRoot)
	}
	return result, err
}

func (ev *Evaluator) getOrCompile(hash uint64, e expr.Expr) *expr.CompiledExpr {
	if rec := ev.compiled.Get(hash); rec != nil {
		return rec.ce
	}
	optimized, _ := expr.Optimize(e)
	ce := expr.Compile(optimized)
	if existing := ev.compiled.Set(compiledEntry{hash: hash, ce: ce}); existing != nil {
		return existing.ce
	}
	return ce
}

func (ev *Evaluator) evalOnce(hash uint64, ce *expr.CompiledExpr, schemaRoot *schema.MessageSchema, ctx expr.Resolver) (value.Value, error) {
	if schemaRoot != nil && ev.jitCache != nil {
		if entry, ok := ev.jitCache.Get(hash); ok {
			base, buf, err := materialize(ce, schemaRoot, ctx)
			if err == nil {
				result := entry.Call(base)
				runtime.KeepAlive(buf)
				return result, nil
			}
			// Falls through to the bytecode path: materialize only
			// fails when a field the predicate needs is actually
			// absent from ctx, which the VM must also report as a
			// FieldNotFound, so re-running it there keeps the error
			// shape identical to the never-JIT-compiled case.
		}
	}
	return expr.Execute(ce, ctx, nil)
}

// maybePromote asks the profiler whether hash has earned native
// compilation and, if so and it is structurally eligible, submits it to
// the background worker. The one-shot MarkJITTriggered guards against
// every concurrent evaluator racing the same hash into the queue.
func (ev *Evaluator) maybePromote(hash uint64, ce *expr.CompiledExpr, schemaRoot *schema.MessageSchema) {
	if ev.jitCache.IsCompiled(hash) || ev.jitCache.IsPending(hash) {
		return
	}
	if !ev.profiler.ShouldJIT(hash) {
		return
	}
	if !jit.Compilable(ce, schemaRoot) {
		return
	}
	if !ev.profiler.MarkJITTriggered(hash) {
		return // lost the race to another goroutine
	}
	snap, _ := ev.profiler.ExpressionSnapshot(hash)
	ev.jitCache.Submit(hash, ce, schemaRoot, strconv.FormatUint(hash, 16), snap.Tier)
}

// materialize resolves every field a compiled expression reads against
// ctx and packs the results into a scratch buffer laid out exactly as
// schemaRoot describes, returning a pointer a compiled native function
// can read fixed-offset loads from directly. This is the one place a
// dynamic value.Value document gets projected down into the fixed-width
// native record the JIT's register loads assume.
func materialize(ce *expr.CompiledExpr, schemaRoot *schema.MessageSchema, ctx expr.Resolver) (unsafe.Pointer, []byte, error) {
	size := schemaRoot.StructSize
	if size < 8 {
		size = 8
	}
	buf := make([]byte, size)
	base := unsafe.Pointer(&buf[0])
	for _, path := range ce.Fields {
		resolved, ok := schemaRoot.ResolveFieldPath(path)
		if !ok {
			return nil, nil, ordoerr.NewFieldNotFound(path)
		}
		v, ok := ctx.Resolve(path)
		if !ok {
			return nil, nil, ordoerr.NewFieldNotFound(path)
		}
		cell := unsafe.Add(base, resolved.Offset)
		switch resolved.Type.Kind {
		case schema.KFloat64:
			*(*float64)(cell) = numericAsFloat(v)
		case schema.KInt64:
			*(*int64)(cell) = numericAsInt(v)
		case schema.KUInt64:
			*(*uint64)(cell) = uint64(numericAsInt(v))
		default:
			return nil, nil, &ordoerr.TypeError{Expected: "int64/uint64/float64", Actual: resolved.Type.String()}
		}
	}
	return base, buf, nil
}

func numericAsFloat(v value.Value) float64 {
	if v.IsFloat() {
		return v.Float()
	}
	return float64(v.Int())
}

func numericAsInt(v value.Value) int64 {
	if v.IsInt() {
		return v.Int()
	}
	return int64(math.Round(v.Float()))
}
