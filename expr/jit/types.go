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

// Package jit compiles a restricted, schema-typed subset of compiled
// expressions directly to native machine code: arithmetic, comparisons,
// short-circuit boolean logic and conditionals over int64/float64-typed
// fields whose values fit the engine's exact-float-representability bound
// (±2^53). The jump-based lowering compiler.go's bytecode compiler already
// emits for and/or/if-then-else is translated into real native branches
// (see writer.go's label/fixup machinery); nothing about the bytecode's
// own short-circuit semantics changes. Anything reaching outside the
// numeric subset — strings, arrays, objects, function calls, or integer
// constants outside the safe range — is
// rejected by Compile and must fall back to the bytecode VM.
package jit

import "github.com/launix-de/ordo-engine/value"

// Reg is a hardware register index. The concrete register numbering is
// defined per architecture (amd64.go, arm64.go); this package's shared
// code only ever deals in abstract indices handed out by JITContext.
type Reg uint8

// JITLoc describes where a compiled value currently lives.
type JITLoc uint8

const (
	LocNone JITLoc = iota // not yet assigned
	LocReg                // unboxed int64 or float64 bit pattern in Reg
	LocImm                // compile-time constant, materialized in Imm
	LocAny                // "caller doesn't care" — a result placement hint only
)

// JITValueDesc describes one value flowing through code generation: its
// numeric kind, its location, and (for LocImm) its compile-time value.
// This mirrors the descriptor-based design the teacher's interpreter JIT
// uses for type propagation, narrowed to the two numeric kinds this
// package ever compiles.
type JITValueDesc struct {
	IsFloat bool // false = int64, true = float64
	IsBool  bool // true when this register holds a comparison/boolean result, for Entry's result boxing
	Loc     JITLoc
	Reg     Reg
	Imm     value.Value // valid when Loc == LocImm
}

// JITFixup records a forward jump target that must be patched once every
// label in the function has been placed.
type JITFixup struct {
	CodePos  int32
	LabelID  uint8
	Size     uint8 // 1 = rel8, 4 = rel32
	Relative bool
}

// JITContext is the shared state threaded through one function's code
// generation: the free-register bitmap, the code writer, and the field
// offsets the generated code is allowed to load directly (schema-resolved
// ahead of time by compiler.go, never recomputed at codegen time).
type JITContext struct {
	W           *JITWriter
	FreeRegs    uint64
	FieldOffset []int32 // parallel to CompiledExpr.Fields; byte offset into the input struct
	FieldFloat  []bool  // parallel to CompiledExpr.Fields; true if the field is float64-typed

	// JumpTargets maps a bytecode instruction index to the label id
	// reserved for it, so the pre-pass that scans for jump targets and
	// the per-instruction Jump* emission agree on the same label.
	JumpTargets map[int]uint8

	// ResultFloat/ResultBool record the kind of the last OpReturn emitted
	// (always exactly one, and always the final instruction of a linear
	// program), for Compile to box into the right Entry result kind.
	ResultFloat bool
	ResultBool  bool

	// JoinDst marks logical bytecode registers written by more than one
	// OpMove — the pattern compiler.go's short-circuit/conditional/
	// coalesce lowering produces when two different program branches
	// both assign the same result register. Since code generation is a
	// single linear pass over the bytecode regardless of runtime control
	// flow, a plain alias-copy OpMove (no instruction emitted) would let
	// whichever branch is textually last silently own every later read
	// of that register, even on the runtime path where the other branch
	// actually executed. A join register instead gets ONE physical
	// register pinned for its whole lifetime (PinnedReg), and every
	// OpMove into it emits a real mov/movsd so both branches converge on
	// the same physical location.
	JoinDst    map[int32]bool
	PinnedReg  map[int32]Reg
	PinnedMask uint64
}

// labelForTarget returns the label id reserved for bytecode index pc,
// reserving one on first reference. compiler.go's bytecode compiler only
// ever emits forward jumps, so every target is still unresolved the first
// time it's referenced from a Jump/JumpIfTrue/JumpIfFalse instruction.
func (ctx *JITContext) labelForTarget(pc int) uint8 {
	if id, ok := ctx.JumpTargets[pc]; ok {
		return id
	}
	id := ctx.W.ReserveLabel()
	ctx.JumpTargets[pc] = id
	return id
}

// AllocReg returns the lowest-numbered free register and marks it used.
// Panics if the register file is exhausted. Compilable does not measure
// register pressure, so this bound is reached only during code generation.
func (ctx *JITContext) AllocReg() Reg {
	if ctx.FreeRegs == 0 {
		panic("jit: register file exhausted")
	}
	bit := ctx.FreeRegs & (-ctx.FreeRegs)
	ctx.FreeRegs &^= bit
	r := Reg(0)
	for b := bit; b > 1; b >>= 1 {
		r++
	}
	return r
}

// FreeReg returns r to the free pool. A pinned register (the physical
// home of a control-flow join register, see JoinDst) is never actually
// freed: it must stay valid for the rest of the function regardless of
// how many times it's consumed as an operand along the way.
func (ctx *JITContext) FreeReg(r Reg) {
	if ctx.PinnedMask&(1<<uint(r)) != 0 {
		return
	}
	ctx.FreeRegs |= 1 << uint(r)
}

// FreeDesc releases whatever register desc holds, if any.
func (ctx *JITContext) FreeDesc(desc *JITValueDesc) {
	if desc.Loc == LocReg {
		ctx.FreeReg(desc.Reg)
	}
	desc.Loc = LocNone
}
