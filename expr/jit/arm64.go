//go:build arm64

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

// No arm64 code generator exists yet (the teacher carries the same gap —
// scm/jit_arm64.go is a 56-line stub that always returns an error too).
// emitFunction here always fails, so every expression falls back to the
// bytecode VM on this architecture.
package jit

import (
	"unsafe"

	"github.com/launix-de/ordo-engine/expr"
)

type CompiledFunc func(basePtr unsafe.Pointer) uint64

func freeRegsForArch() uint64 { return 0 }

func emitFunction(ce *expr.CompiledExpr, fieldOffset []int32, fieldFloat []bool) (w *JITWriter, resultFloat, resultBool bool, err error) {
	return nil, false, false, errNoCodegen
}

var errNoCodegen = &jitPanic{msg: "arm64: no native code generator"}

type jitPanic struct{ msg interface{} }

func (e *jitPanic) Error() string { return "jit: arm64 code generation unavailable" }
