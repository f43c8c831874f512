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

// compiler holds the in-progress pools and instruction stream for a
// single Compile call. Registers are allocated from a rising counter;
// every AST node compiles to a destination register holding its value.
type compiler struct {
	instructions []Instruction
	constants    []value.Value
	constIndex   map[string]int32
	fields       []string
	fieldIndex   map[string]int32
	funcs        []string
	funcIndex    map[string]int32
	nextReg      int32
	highWater    int32
}

// Compile lowers e to register bytecode, per spec §4.3: a single pass
// allocating registers in a rising counter, content-addressed pools, and
// super-instruction fusion for `field OP literal` comparisons.
func Compile(e Expr) *CompiledExpr {
	c := &compiler{
		constIndex: make(map[string]int32),
		fieldIndex: make(map[string]int32),
		funcIndex:  make(map[string]int32),
	}
	result := c.compileNode(e)
	c.emit(Instruction{Op: OpReturn, A: result})
	return &CompiledExpr{
		Instructions:  c.instructions,
		Constants:     c.constants,
		Fields:        c.fields,
		FuncNames:     c.funcs,
		RegisterCount: int(c.highWater) + 1,
	}
}

func (c *compiler) emit(i Instruction) int {
	c.instructions = append(c.instructions, i)
	return len(c.instructions) - 1
}

func (c *compiler) alloc() int32 {
	r := c.nextReg
	c.nextReg++
	if c.nextReg > c.highWater {
		c.highWater = c.nextReg
	}
	return r
}

func (c *compiler) addConst(v value.Value) int32 {
	key := string(v.Tag().String()) + ":" + v.String()
	if idx, ok := c.constIndex[key]; ok {
		return idx
	}
	idx := int32(len(c.constants))
	c.constants = append(c.constants, v)
	c.constIndex[key] = idx
	return idx
}

func (c *compiler) addField(path string) int32 {
	if idx, ok := c.fieldIndex[path]; ok {
		return idx
	}
	idx := int32(len(c.fields))
	c.fields = append(c.fields, path)
	c.fieldIndex[path] = idx
	return idx
}

func (c *compiler) addFunc(name string) int32 {
	if idx, ok := c.funcIndex[name]; ok {
		return idx
	}
	idx := int32(len(c.funcs))
	c.funcs = append(c.funcs, name)
	c.funcIndex[name] = idx
	return idx
}

func (c *compiler) compileNode(e Expr) int32 {
	switch n := e.(type) {
	case *Literal:
		dst := c.alloc()
		c.emit(Instruction{Op: OpLoadConst, A: dst, B: c.addConst(n.Value)})
		return dst
	case *Field:
		dst := c.alloc()
		c.emit(Instruction{Op: OpLoadField, A: dst, B: c.addField(n.Path)})
		return dst
	case *Exists:
		dst := c.alloc()
		c.emit(Instruction{Op: OpExists, A: dst, B: c.addField(n.Path)})
		return dst
	case *Unary:
		return c.compileUnary(n)
	case *Binary:
		return c.compileBinary(n)
	case *Conditional:
		return c.compileConditional(n)
	case *Coalesce:
		return c.compileCoalesce(n)
	case *Array:
		return c.compileArray(n)
	case *Object:
		return c.compileObject(n)
	case *Call:
		return c.compileCall(n)
	default:
		dst := c.alloc()
		c.emit(Instruction{Op: OpLoadConst, A: dst, B: c.addConst(value.NewNull())})
		return dst
	}
}

func (c *compiler) compileUnary(n *Unary) int32 {
	src := c.compileNode(n.Operand)
	dst := c.alloc()
	switch n.Op {
	case OpNot:
		c.emit(Instruction{Op: OpBoolNot, A: dst, B: src})
	case OpNeg:
		c.emit(Instruction{Op: OpNeg, A: dst, B: src})
	}
	return dst
}

// fieldCmpOpcode maps a comparison BinaryOp to its fused FieldXConst
// opcode, reversing the comparison when the field is the right operand
// ("literal OP field" becomes "field REVERSED(OP) literal").
func fieldCmpOpcode(op BinaryOp) (Opcode, bool) {
	switch op {
	case OpEq:
		return OpFieldEqConst, true
	case OpNe:
		return OpFieldNeConst, true
	case OpLt:
		return OpFieldLtConst, true
	case OpLe:
		return OpFieldLeConst, true
	case OpGt:
		return OpFieldGtConst, true
	case OpGe:
		return OpFieldGeConst, true
	default:
		return 0, false
	}
}

func reverseComparison(op BinaryOp) BinaryOp {
	switch op {
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	default:
		return op // Eq/Ne are symmetric
	}
}

func (c *compiler) compileBinary(n *Binary) int32 {
	switch n.Op {
	case OpAnd, OpOr:
		return c.compileShortCircuit(n)
	}

	if field, ok := n.Left.(*Field); ok {
		if lit, ok := n.Right.(*Literal); ok {
			if opcode, ok := fieldCmpOpcode(n.Op); ok {
				dst := c.alloc()
				c.emit(Instruction{Op: opcode, A: dst, B: c.addField(field.Path), C: c.addConst(lit.Value)})
				return dst
			}
		}
	}
	if lit, ok := n.Left.(*Literal); ok {
		if field, ok := n.Right.(*Field); ok {
			if opcode, ok := fieldCmpOpcode(reverseComparison(n.Op)); ok {
				dst := c.alloc()
				c.emit(Instruction{Op: opcode, A: dst, B: c.addField(field.Path), C: c.addConst(lit.Value)})
				return dst
			}
		}
	}

	left := c.compileNode(n.Left)
	right := c.compileNode(n.Right)
	dst := c.alloc()
	op, ok := genericBinaryOpcode(n.Op)
	if !ok {
		c.emit(Instruction{Op: OpLoadConst, A: dst, B: c.addConst(value.NewNull())})
		return dst
	}
	c.emit(Instruction{Op: op, A: dst, B: left, C: right})
	return dst
}

func genericBinaryOpcode(op BinaryOp) (Opcode, bool) {
	switch op {
	case OpAdd:
		return OpNAdd, true
	case OpSub:
		return OpNSub, true
	case OpMul:
		return OpNMul, true
	case OpDiv:
		return OpNDiv, true
	case OpMod:
		return OpNMod, true
	case OpEq:
		return OpCmpEq, true
	case OpNe:
		return OpCmpNe, true
	case OpLt:
		return OpCmpLt, true
	case OpLe:
		return OpCmpLe, true
	case OpGt:
		return OpCmpGt, true
	case OpGe:
		return OpCmpGe, true
	case OpIn:
		return OpIn, true
	case OpNotIn:
		return OpNotIn, true
	case OpContains:
		return OpContains, true
	default:
		return 0, false
	}
}

// compileShortCircuit lowers && / || to jump-based control flow: compile
// left into the result register, conditionally jump over the right side,
// compile right and copy into the result, then patch the jump to land
// just past it.
func (c *compiler) compileShortCircuit(n *Binary) int32 {
	left := c.compileNode(n.Left)
	result := c.alloc()
	c.emit(Instruction{Op: OpMove, A: result, B: left})

	var skipOp Opcode
	if n.Op == OpAnd {
		skipOp = OpJumpIfFalse
	} else {
		skipOp = OpJumpIfTrue
	}
	jumpIdx := c.emit(Instruction{Op: skipOp, A: result})

	right := c.compileNode(n.Right)
	c.emit(Instruction{Op: OpMove, A: result, B: right})

	c.patchJump(jumpIdx)
	return result
}

// patchJump sets the relative offset of the jump at idx so it lands
// immediately after the last emitted instruction.
func (c *compiler) patchJump(idx int) {
	offset := int32(len(c.instructions)) - int32(idx) - 1
	instr := &c.instructions[idx]
	if instr.Op == OpJumpIfTrue || instr.Op == OpJumpIfFalse {
		instr.B = offset
	} else {
		instr.A = offset
	}
}

func (c *compiler) compileConditional(n *Conditional) int32 {
	cond := c.compileNode(n.Condition)
	result := c.alloc()
	falseJump := c.emit(Instruction{Op: OpJumpIfFalse, A: cond})

	thenVal := c.compileNode(n.Then)
	c.emit(Instruction{Op: OpMove, A: result, B: thenVal})
	endJump := c.emit(Instruction{Op: OpJump})

	c.patchJump(falseJump)
	elseVal := c.compileNode(n.Else)
	c.emit(Instruction{Op: OpMove, A: result, B: elseVal})

	c.patchJump(endJump)
	return result
}

func (c *compiler) compileCoalesce(n *Coalesce) int32 {
	result := c.alloc()
	var endJumps []int
	for i, sub := range n.Exprs {
		last := i == len(n.Exprs)-1
		val := c.compileNode(sub)
		c.emit(Instruction{Op: OpMove, A: result, B: val})
		if !last {
			endJumps = append(endJumps, c.emit(Instruction{Op: OpJumpIfTrue, A: result}))
		}
	}
	if len(n.Exprs) == 0 {
		c.emit(Instruction{Op: OpLoadConst, A: result, B: c.addConst(value.NewNull())})
	}
	for _, idx := range endJumps {
		c.patchJump(idx)
	}
	return result
}

func (c *compiler) compileArray(n *Array) int32 {
	dst := c.alloc()
	save := c.nextReg
	for range n.Elems {
		c.alloc()
	}
	for i, sub := range n.Elems {
		val := c.compileNode(sub)
		target := save + int32(i)
		if val != target {
			c.emit(Instruction{Op: OpMove, A: target, B: val})
		}
	}
	c.nextReg = save
	c.emit(Instruction{Op: OpMakeArray, A: dst, C: int32(len(n.Elems))})
	return dst
}

func (c *compiler) compileObject(n *Object) int32 {
	dst := c.alloc()
	keyBase := int32(len(c.fields))
	for _, entry := range n.Entries {
		c.fields = append(c.fields, entry.Key)
	}
	save := c.nextReg
	for range n.Entries {
		c.alloc()
	}
	for i, entry := range n.Entries {
		val := c.compileNode(entry.Value)
		target := save + int32(i)
		if val != target {
			c.emit(Instruction{Op: OpMove, A: target, B: val})
		}
	}
	c.nextReg = save
	c.emit(Instruction{Op: OpMakeObject, A: dst, B: keyBase, C: int32(len(n.Entries))})
	return dst
}

func (c *compiler) compileCall(n *Call) int32 {
	dst := c.alloc()
	save := c.nextReg
	for range n.Args {
		c.alloc()
	}
	for i, arg := range n.Args {
		val := c.compileNode(arg)
		target := save + int32(i)
		if val != target {
			c.emit(Instruction{Op: OpMove, A: target, B: val})
		}
	}
	c.nextReg = save
	c.emit(Instruction{Op: OpCall, A: dst, B: c.addFunc(n.Name), C: int32(len(n.Args))})
	return dst
}
