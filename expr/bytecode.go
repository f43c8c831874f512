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

package expr

import "github.com/launix-de/ordo-engine/value"

// Opcode enumerates the register-VM instruction set. Each instruction is
// a fixed (op, a, b, c) triple of register/pool-index operands; which
// operand means what is documented per opcode below.
type Opcode uint8

const (
	OpLoadConst Opcode = iota // a=dst, b=constant pool index
	OpLoadField               // a=dst, b=field pool index
	OpMove                    // a=dst, b=src
	OpNAdd                    // a=dst, b=left, c=right — numeric add or string concat, runtime-typed
	OpNSub
	OpNMul
	OpNDiv
	OpNMod
	OpCmpEq // a=dst, b=left, c=right
	OpCmpNe
	OpCmpLt
	OpCmpLe
	OpCmpGt
	OpCmpGe
	OpBoolAnd // a=dst, b=left, c=right (non-short-circuit form)
	OpBoolOr
	OpBoolNot // a=dst, b=src
	OpNeg     // a=dst, b=src
	OpIn      // a=dst, b=needle, c=haystack
	OpNotIn
	OpContains
	OpFieldEqConst // a=dst, b=field pool index, c=constant pool index
	OpFieldNeConst
	OpFieldLtConst
	OpFieldLeConst
	OpFieldGtConst
	OpFieldGeConst
	OpJump         // a=signed relative offset
	OpJumpIfTrue   // a=cond register, b=signed relative offset
	OpJumpIfFalse  // a=cond register, b=signed relative offset
	OpCall         // a=dst (args occupy dst+1..dst+c), b=function pool index, c=arg count
	OpExists       // a=dst, b=field pool index
	OpMakeArray    // a=dst (elements occupy dst+1..dst+c), c=element count
	OpMakeObject   // a=dst (values occupy dst+1..dst+c), c=pair count, key names in field pool starting at b
	OpReturn       // a=src
)

func (op Opcode) String() string {
	names := [...]string{
		"LoadConst", "LoadField", "Move",
		"NAdd", "NSub", "NMul", "NDiv", "NMod",
		"CmpEq", "CmpNe", "CmpLt", "CmpLe", "CmpGt", "CmpGe",
		"BoolAnd", "BoolOr", "BoolNot", "Neg",
		"In", "NotIn", "Contains",
		"FieldEqConst", "FieldNeConst", "FieldLtConst", "FieldLeConst", "FieldGtConst", "FieldGeConst",
		"Jump", "JumpIfTrue", "JumpIfFalse", "Call", "Exists", "MakeArray", "MakeObject", "Return",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Instruction is one fixed-width bytecode instruction.
type Instruction struct {
	Op   Opcode
	A, B, C int32
}

// CompiledExpr is the output of Compile: a flat instruction stream over
// content-addressed constant/field-path/function-name pools, plus the
// register count the VM must allocate per invocation.
type CompiledExpr struct {
	Instructions  []Instruction
	Constants     []value.Value
	Fields        []string
	FuncNames     []string
	RegisterCount int
}
