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

import (
	"time"

	"github.com/launix-de/ordo-engine/ordoerr"
	"github.com/launix-de/ordo-engine/value"
)

// InstructionTrace is one per-instruction snapshot recorded when tracing
// is requested. Tracing is off by default and costs nothing on the fast
// path — Execute only ever builds these when traceOut is non-nil.
type InstructionTrace struct {
	IP           int
	Opcode       string
	DurationNs   int64
}

// Execute runs a compiled expression's register VM to completion.
// traceOut, when non-nil, is appended to with one InstructionTrace per
// instruction executed; callers pass nil on the hot path.
func Execute(ce *CompiledExpr, ctx Resolver, traceOut *[]InstructionTrace) (value.Value, error) {
	regs := make([]value.Value, ce.RegisterCount)
	ip := 0
	for ip < len(ce.Instructions) {
		instr := ce.Instructions[ip]
		var start time.Time
		if traceOut != nil {
			start = time.Now()
		}
		result, jump, err := execOne(ce, instr, regs, ctx)
		if err != nil {
			return value.Value{}, err
		}
		next := ip + 1 + jump
		if traceOut != nil {
			*traceOut = append(*traceOut, InstructionTrace{
				IP:         ip,
				Opcode:     instr.Op.String(),
				DurationNs: time.Since(start).Nanoseconds(),
			})
		}
		if instr.Op == OpReturn {
			return result, nil
		}
		ip = next
	}
	return value.Value{}, ordoerr.NewInternalError("program fell off the end without Return")
}

// execOne executes a single instruction, returning (result value written
// to regs, relative jump delta, error). Only jump opcodes set a non-zero
// delta; every other opcode writes its destination register directly.
func execOne(ce *CompiledExpr, instr Instruction, regs []value.Value, ctx Resolver) (value.Value, int, error) {
	switch instr.Op {
	case OpLoadConst:
		regs[instr.A] = ce.Constants[instr.B]
		return regs[instr.A], 0, nil
	case OpLoadField:
		v, ok := ctx.Resolve(ce.Fields[instr.B])
		if !ok {
			return value.Value{}, 0, ordoerr.NewFieldNotFound(ce.Fields[instr.B])
		}
		regs[instr.A] = v
		return v, 0, nil
	case OpMove:
		regs[instr.A] = regs[instr.B]
		return regs[instr.A], 0, nil
	case OpNAdd, OpNSub, OpNMul, OpNDiv, OpNMod:
		v, err := arith(opcodeToBinaryOp(instr.Op), regs[instr.B], regs[instr.C])
		if err != nil {
			return value.Value{}, 0, err
		}
		regs[instr.A] = v
		return v, 0, nil
	case OpCmpEq:
		regs[instr.A] = value.NewBool(value.Equal(regs[instr.B], regs[instr.C]))
		return regs[instr.A], 0, nil
	case OpCmpNe:
		regs[instr.A] = value.NewBool(!value.Equal(regs[instr.B], regs[instr.C]))
		return regs[instr.A], 0, nil
	case OpCmpLt, OpCmpLe, OpCmpGt, OpCmpGe:
		v, err := orderedCompare(instr.Op, regs[instr.B], regs[instr.C])
		if err != nil {
			return value.Value{}, 0, err
		}
		regs[instr.A] = v
		return v, 0, nil
	case OpBoolAnd:
		regs[instr.A] = value.NewBool(regs[instr.B].Truthy() && regs[instr.C].Truthy())
		return regs[instr.A], 0, nil
	case OpBoolOr:
		regs[instr.A] = value.NewBool(regs[instr.B].Truthy() || regs[instr.C].Truthy())
		return regs[instr.A], 0, nil
	case OpBoolNot:
		regs[instr.A] = value.NewBool(!regs[instr.B].Truthy())
		return regs[instr.A], 0, nil
	case OpNeg:
		v := regs[instr.B]
		if v.IsInt() {
			regs[instr.A] = value.NewInt(-v.Int())
		} else if v.IsFloat() {
			regs[instr.A] = value.NewFloat(-v.Float())
		} else {
			return value.Value{}, 0, &ordoerr.TypeError{Expected: "number", Actual: v.Tag().String()}
		}
		return regs[instr.A], 0, nil
	case OpIn:
		v, err := membership(regs[instr.B], regs[instr.C])
		if err != nil {
			return value.Value{}, 0, err
		}
		regs[instr.A] = v
		return v, 0, nil
	case OpNotIn:
		v, err := membership(regs[instr.B], regs[instr.C])
		if err != nil {
			return value.Value{}, 0, err
		}
		regs[instr.A] = value.NewBool(!v.Bool())
		return regs[instr.A], 0, nil
	case OpContains:
		v, err := contains(regs[instr.B], regs[instr.C])
		if err != nil {
			return value.Value{}, 0, err
		}
		regs[instr.A] = v
		return v, 0, nil
	case OpFieldEqConst, OpFieldNeConst, OpFieldLtConst, OpFieldLeConst, OpFieldGtConst, OpFieldGeConst:
		return execFieldCmpConst(ce, instr, regs, ctx)
	case OpJump:
		return value.Value{}, int(instr.A), nil
	case OpJumpIfTrue:
		if regs[instr.A].Truthy() {
			return value.Value{}, int(instr.B), nil
		}
		return value.Value{}, 0, nil
	case OpJumpIfFalse:
		if !regs[instr.A].Truthy() {
			return value.Value{}, int(instr.B), nil
		}
		return value.Value{}, 0, nil
	case OpCall:
		return execCall(ce, instr, regs)
	case OpExists:
		_, ok := ctx.Resolve(ce.Fields[instr.B])
		regs[instr.A] = value.NewBool(ok)
		return regs[instr.A], 0, nil
	case OpMakeArray:
		n := int(instr.C)
		elems := make([]value.Value, n)
		copy(elems, regs[instr.A+1:instr.A+1+int32(n)])
		regs[instr.A] = value.NewArray(elems)
		return regs[instr.A], 0, nil
	case OpMakeObject:
		n := int(instr.C)
		pairs := make([]value.Pair, n)
		for i := 0; i < n; i++ {
			pairs[i] = value.Pair{Key: ce.Fields[int(instr.B)+i], Value: regs[instr.A+1+int32(i)]}
		}
		regs[instr.A] = value.NewObject(pairs)
		return regs[instr.A], 0, nil
	case OpReturn:
		return regs[instr.A], 0, nil
	default:
		return value.Value{}, 0, ordoerr.NewInternalError("unknown opcode")
	}
}

func execFieldCmpConst(ce *CompiledExpr, instr Instruction, regs []value.Value, ctx Resolver) (value.Value, int, error) {
	fieldVal, ok := ctx.Resolve(ce.Fields[instr.B])
	if !ok {
		return value.Value{}, 0, ordoerr.NewFieldNotFound(ce.Fields[instr.B])
	}
	constVal := ce.Constants[instr.C]
	var result value.Value
	var err error
	switch instr.Op {
	case OpFieldEqConst:
		result = value.NewBool(value.Equal(fieldVal, constVal))
	case OpFieldNeConst:
		result = value.NewBool(!value.Equal(fieldVal, constVal))
	default:
		result, err = orderedCompare(fieldCmpToGeneric(instr.Op), fieldVal, constVal)
	}
	if err != nil {
		return value.Value{}, 0, err
	}
	regs[instr.A] = result
	return result, 0, nil
}

func fieldCmpToGeneric(op Opcode) Opcode {
	switch op {
	case OpFieldLtConst:
		return OpCmpLt
	case OpFieldLeConst:
		return OpCmpLe
	case OpFieldGtConst:
		return OpCmpGt
	default:
		return OpCmpGe
	}
}

func orderedCompare(op Opcode, left, right value.Value) (value.Value, error) {
	cmp, ok := value.Compare(left, right)
	if !ok {
		return value.Value{}, &ordoerr.TypeError{Expected: "ordered operands", Actual: left.Tag().String() + "/" + right.Tag().String()}
	}
	switch op {
	case OpCmpLt:
		return value.NewBool(cmp < 0), nil
	case OpCmpLe:
		return value.NewBool(cmp <= 0), nil
	case OpCmpGt:
		return value.NewBool(cmp > 0), nil
	default:
		return value.NewBool(cmp >= 0), nil
	}
}

func opcodeToBinaryOp(op Opcode) BinaryOp {
	switch op {
	case OpNAdd:
		return OpAdd
	case OpNSub:
		return OpSub
	case OpNMul:
		return OpMul
	case OpNDiv:
		return OpDiv
	default:
		return OpMod
	}
}

func execCall(ce *CompiledExpr, instr Instruction, regs []value.Value) (value.Value, int, error) {
	name := ce.FuncNames[instr.B]
	n := int(instr.C)
	args := make([]value.Value, n)
	copy(args, regs[instr.A+1:instr.A+1+int32(n)])
	v, err := CallFunction(name, args)
	if err != nil {
		return value.Value{}, 0, err
	}
	regs[instr.A] = v
	return v, 0, nil
}
