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

package jit

import (
	"math"
	"unsafe"

	"github.com/launix-de/ordo-engine/expr"
	"github.com/launix-de/ordo-engine/ordoerr"
	"github.com/launix-de/ordo-engine/schema"
	"github.com/launix-de/ordo-engine/value"
)

func floatFromBits(bits uint64) float64 { return math.Float64frombits(bits) }

// safeIntBound is the largest magnitude integer this package will compile
// natively: beyond it, int64 values stop being exactly representable once
// any mixed-numeric arithmetic promotes them to float64, so Compilable
// refuses integer constants beyond it and the bytecode VM's exact-integer
// path takes over. Field values are not range-checked.
const safeIntBound = 1 << 53

// Entry is one compiled native function together with the metadata
// Execute needs to call it and box its result back into a value.Value.
type Entry struct {
	fn          CompiledFunc
	resultFloat bool
	resultBool  bool
	keepAlive   *JITWriter // retained so the mmap'd page is never collected from under fn
}

// Compilable reports whether ce can be compiled to native code against
// schemaRoot without attempting codegen. Callers (tiered.go) should check
// this before spending a compile-queue slot; Compile re-checks internally
// regardless, so skipping this check only costs a wasted attempt, never
// incorrect results.
func Compilable(ce *expr.CompiledExpr, schemaRoot *schema.MessageSchema) bool {
	for _, path := range ce.Fields {
		resolved, ok := schemaRoot.ResolveFieldPath(path)
		if !ok || !isNativeWidth(resolved.Type.Kind) {
			// Only Int64/UInt64/Float64 are accepted: they're the only
			// kinds whose in-memory size (8 bytes, per
			// FieldType.PrimitiveSize) matches the fixed-width register
			// load amd64.go emits. Bool/Int32/UInt32/Enum are narrower
			// than that load, so compiling them would read past the
			// field into whatever memory follows it; they stay on the
			// bytecode VM, which resolves fields through the schema-
			// agnostic Resolver instead of a raw memory load.
			return false
		}
	}
	for _, c := range ce.Constants {
		if c.IsInt() && (c.Int() > safeIntBound || c.Int() < -safeIntBound) {
			return false
		}
		if !c.IsInt() && !c.IsFloat() {
			return false
		}
	}
	for _, instr := range ce.Instructions {
		if !opSupported(instr.Op) {
			return false
		}
	}
	return true
}

func isNativeWidth(k schema.Kind) bool {
	return k == schema.KInt64 || k == schema.KUInt64 || k == schema.KFloat64
}

func opSupported(op expr.Opcode) bool {
	switch op {
	case expr.OpLoadConst, expr.OpLoadField, expr.OpMove,
		expr.OpNAdd, expr.OpNSub, expr.OpNMul,
		expr.OpCmpEq, expr.OpCmpNe, expr.OpCmpLt, expr.OpCmpLe, expr.OpCmpGt, expr.OpCmpGe,
		expr.OpFieldEqConst, expr.OpFieldNeConst, expr.OpFieldLtConst, expr.OpFieldLeConst, expr.OpFieldGtConst, expr.OpFieldGeConst,
		expr.OpNeg, expr.OpJump, expr.OpJumpIfTrue, expr.OpJumpIfFalse, expr.OpReturn:
		return true
	default:
		// OpNDiv is deliberately excluded: division-by-zero must raise
		// ordoerr.EvalError, and native code has no cheap way to bail
		// back into Go error handling mid-function. OpBoolAnd/Or/Not
		// (the non-short-circuit opcodes; compiler.go's bytecode never
		// emits them for source-level and/or, which always lower through
		// the Jump* form instead), In/NotIn/Contains, Call, and
		// MakeArray/MakeObject fall outside the pure-numeric-register
		// subset this package compiles; programs using them stay on the
		// bytecode VM.
		return false
	}
}

// Compile lowers ce to native code for schemaRoot, returning an Entry to
// call through, or an error explaining why it fell back (always a
// *ordoerr.InternalError here — Compilable should have been checked
// first to avoid this path entirely on the hot path).
func Compile(ce *expr.CompiledExpr, schemaRoot *schema.MessageSchema) (*Entry, error) {
	if !Compilable(ce, schemaRoot) {
		return nil, ordoerr.NewInternalError("expression is not natively compilable")
	}
	offsets := make([]int32, len(ce.Fields))
	floats := make([]bool, len(ce.Fields))
	for i, path := range ce.Fields {
		resolved, _ := schemaRoot.ResolveFieldPath(path)
		offsets[i] = int32(resolved.Offset)
		floats[i] = resolved.Type.Kind == schema.KFloat64 || resolved.Type.Kind == schema.KFloat32
	}

	w, resultFloat, resultBool, err := emitFunction(ce, offsets, floats)
	if err != nil {
		return nil, ordoerr.NewInternalError("native code generation failed: " + err.Error())
	}
	ptr, err := w.finalize()
	if err != nil {
		return nil, ordoerr.NewInternalError("making native code executable failed: " + err.Error())
	}
	fn := *(*CompiledFunc)(unsafe.Pointer(&ptr))
	return &Entry{fn: fn, resultFloat: resultFloat, resultBool: resultBool, keepAlive: w}, nil
}

// Call invokes the compiled function against basePtr (the schema-laid-out
// input struct) and boxes the raw result back into a value.Value.
func (e *Entry) Call(basePtr unsafe.Pointer) value.Value {
	bits := e.fn(basePtr)
	switch {
	case e.resultBool:
		return value.NewBool(bits != 0)
	case e.resultFloat:
		return value.NewFloat(floatFromBits(bits))
	default:
		return value.NewInt(int64(bits))
	}
}
