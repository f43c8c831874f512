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

// Package profiler tracks how hot each expression and each rule
// execution path is, so the tiered evaluator knows when an expression is
// worth promoting to native code. Storage is backed by
// NonLockingReadMap (third_party/NonLockingReadMap), the teacher's
// read-optimized concurrent map: profiler records are read on every
// evaluation and written only on the rare occasions a new hash is first
// seen, exactly the access pattern that map is built for.
package profiler

import (
	"sync/atomic"

	rm "github.com/launix-de/NonLockingReadMap"
)

// Tier classifies a hot score into a coarse priority band the JIT
// compile queue can order by.
type Tier uint8

const (
	TierNone Tier = iota
	TierLow
	TierNormal
	TierHigh
	TierCritical
)

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierLow:
		return "low"
	case TierNormal:
		return "normal"
	case TierHigh:
		return "high"
	case TierCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ClassifyScore maps a hot score to its tier per the engine's fixed
// thresholds.
func ClassifyScore(score float64) Tier {
	switch {
	case score >= 500000:
		return TierCritical
	case score >= 100000:
		return TierHigh
	case score >= 50000:
		return TierNormal
	case score >= 10000:
		return TierLow
	default:
		return TierNone
	}
}

// Record is one expression's (or rule path's) accumulated profile. All
// mutable fields are updated with atomics so Record() never blocks a
// concurrent reader, mirroring scm/metrics.go's counter-swap pattern.
type Record struct {
	key             uint64
	count           atomic.Uint64
	cumulativeNs    atomic.Int64
	lastObservedNs  atomic.Int64
	jitTriggered    atomic.Bool
	StepIDs         []string // set only for rule-path records
}

// GetKey and ComputeSize use a value receiver (not pointer) so Record
// itself, not *Record, satisfies NonLockingReadMap's KeyGetter[uint64]
// constraint — the map's type parameter is the stored element type, and
// only its value method set is checked at instantiation.
func (r Record) GetKey() uint64 { return r.key }

func (r Record) ComputeSize() uint {
	return 64 + uint(len(r.StepIDs))*16
}

// Snapshot is an immutable point-in-time read of a Record, safe to hand
// to callers outside the profiler.
type Snapshot struct {
	Hash         uint64
	Count        uint64
	CumulativeNs int64
	LastObserved int64
	JITTriggered bool
	HotScore     float64
	Tier         Tier
	StepIDs      []string
}

func (r *Record) snapshot() Snapshot {
	count := r.count.Load()
	cum := r.cumulativeNs.Load()
	score := hotScore(count, cum)
	return Snapshot{
		Hash:         r.key,
		Count:        count,
		CumulativeNs: cum,
		LastObserved: r.lastObservedNs.Load(),
		JITTriggered: r.jitTriggered.Load(),
		HotScore:     score,
		Tier:         ClassifyScore(score),
		StepIDs:      r.StepIDs,
	}
}

// hotScore implements the engine's fixed formula: (count/10) *
// (average_ns/100).
func hotScore(count uint64, cumulativeNs int64) float64 {
	if count == 0 {
		return 0
	}
	avgNs := float64(cumulativeNs) / float64(count)
	return (float64(count) / 10) * (avgNs / 100)
}

// Profiler owns two concurrent hash->record stores: one for expressions,
// one for rule execution paths. Both share the same Record shape; only
// rule-path records populate StepIDs.
type Profiler struct {
	expressions rm.NonLockingReadMap[Record, uint64]
	rulePaths   rm.NonLockingReadMap[Record, uint64]
}

func New() *Profiler {
	return &Profiler{
		expressions: rm.New[Record, uint64](),
		rulePaths:   rm.New[Record, uint64](),
	}
}

func (p *Profiler) getOrCreate(m *rm.NonLockingReadMap[Record, uint64], hash uint64, stepIDs []string) *Record {
	if rec := m.Get(hash); rec != nil {
		return rec
	}
	rec := &Record{key: hash, StepIDs: stepIDs}
	if existing := m.Set(rec); existing != nil {
		return existing
	}
	return rec
}

// RecordExpression adds one observation (duration in nanoseconds) to the
// record for hash, creating it on first sight. No allocation occurs once
// the record exists.
func (p *Profiler) RecordExpression(hash uint64, durationNs int64, nowUnixNs int64) {
	rec := p.getOrCreate(&p.expressions, hash, nil)
	rec.count.Add(1)
	rec.cumulativeNs.Add(durationNs)
	rec.lastObservedNs.Store(nowUnixNs)
}

// RecordRulePath adds one observation for the rule path keyed by hash,
// storing the step-id sequence the first time the path is seen (used
// purely for reporting; it never changes for a given hash).
func (p *Profiler) RecordRulePath(hash uint64, stepIDs []string, durationNs int64, nowUnixNs int64) {
	rec := p.getOrCreate(&p.rulePaths, hash, stepIDs)
	rec.count.Add(1)
	rec.cumulativeNs.Add(durationNs)
	rec.lastObservedNs.Store(nowUnixNs)
}

// ShouldJIT reports whether hash's expression record currently qualifies
// for JIT compilation: its hot score must be at least TierLow and
// mark_jit_triggered must not already have fired for it. This check is
// not itself atomic with MarkJITTriggered — callers that want the "at
// most one positive decision" guarantee must call MarkJITTriggered
// immediately after a true result, before releasing control to another
// goroutine that might race the same hash.
func (p *Profiler) ShouldJIT(hash uint64) bool {
	rec := p.expressions.Get(hash)
	if rec == nil || rec.jitTriggered.Load() {
		return false
	}
	snap := rec.snapshot()
	return snap.Tier >= TierLow
}

// MarkJITTriggered sets the one-shot flag suppressing further ShouldJIT
// positives for hash. Returns false if it was already set (the caller
// lost a race and should not proceed with compilation).
func (p *Profiler) MarkJITTriggered(hash uint64) bool {
	rec := p.expressions.Get(hash)
	if rec == nil {
		return false
	}
	return rec.jitTriggered.CompareAndSwap(false, true)
}

// ExpressionSnapshot returns a point-in-time read of hash's expression
// record, or ok=false if it has never been observed.
func (p *Profiler) ExpressionSnapshot(hash uint64) (Snapshot, bool) {
	rec := p.expressions.Get(hash)
	if rec == nil {
		return Snapshot{}, false
	}
	return rec.snapshot(), true
}

// RulePathSnapshot returns a point-in-time read of hash's rule-path
// record, or ok=false if it has never been observed.
func (p *Profiler) RulePathSnapshot(hash uint64) (Snapshot, bool) {
	rec := p.rulePaths.Get(hash)
	if rec == nil {
		return Snapshot{}, false
	}
	return rec.snapshot(), true
}

// Reset clears both stores entirely — used by hosts that want a hard
// reset of JIT-triggered state (the one documented way to get more than
// one positive ShouldJIT decision for the same hash).
func (p *Profiler) Reset() {
	p.expressions = rm.New[Record, uint64]()
	p.rulePaths = rm.New[Record, uint64]()
}

// AllExpressionSnapshots returns every expression record currently
// tracked, for host-side reporting/dashboards.
func (p *Profiler) AllExpressionSnapshots() []Snapshot {
	all := p.expressions.GetAll()
	out := make([]Snapshot, len(all))
	for i, rec := range all {
		out[i] = rec.snapshot()
	}
	return out
}
