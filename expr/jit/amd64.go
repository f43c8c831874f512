//go:build amd64

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
	"github.com/launix-de/ordo-engine/value"
)

// General-purpose and XMM register numbering for the amd64 encodings
// below. RDI carries the input struct pointer (the Go calling
// convention's first integer argument); RAX/XMM0 carry the return value.
const (
	RegRAX Reg = 0
	RegRCX Reg = 1
	RegRDX Reg = 2
	RegRBX Reg = 3
	RegRSP Reg = 4
	RegRBP Reg = 5
	RegRSI Reg = 6
	RegRDI Reg = 7
	RegR8  Reg = 8
	RegR9  Reg = 9
	RegR10 Reg = 10
	RegR11 Reg = 11 // reserved scratch, never handed out by AllocReg
	// XMM registers are numbered in a separate bank starting at 16 so
	// Reg alone tells AllocGPR/AllocXMM which file a value lives in.
	RegX0 Reg = 16
	RegX1 Reg = 17
	RegX2 Reg = 18
	RegX3 Reg = 19
	RegX4 Reg = 20
	RegX5 Reg = 21
)

func isXMM(r Reg) bool { return r >= 16 }

// gprBits returns the raw 0-15 encoding bits, used to compute REX.R/X/B.
func gprBits(r Reg) byte {
	if isXMM(r) {
		return byte(r - 16)
	}
	return byte(r)
}

// gprMask/xmmMask partition the free-register bitmap into its two banks:
// every GPR except RDI (input pointer), RAX (scratch result), RSP/RBP
// (stack), and R11 (internal scratch), and every XMM register except X0
// (scratch result).
const (
	gprMask = uint64(1<<RegRCX | 1<<RegRDX | 1<<RegRBX | 1<<RegRSI | 1<<RegR8 | 1<<RegR9 | 1<<RegR10)
	xmmMask = uint64(1<<RegX1 | 1<<RegX2 | 1<<RegX3 | 1<<RegX4 | 1<<RegX5)
)

func freeRegsForArch() uint64 { return gprMask | xmmMask }

func (w *JITWriter) emitMovRegImm64(dst Reg, imm uint64) {
	rex := byte(0x48)
	if gprBits(dst) >= 8 {
		rex |= 0x01
	}
	w.emitBytes(rex, 0xB8+gprBits(dst)&7)
	w.emitU64(imm)
}

// emitMovRegMem64 emits `mov dst, [base+off]` for a GPR destination.
func (w *JITWriter) emitMovRegMem64(dst, base Reg, off int32) {
	rex := byte(0x48)
	if gprBits(dst) >= 8 {
		rex |= 0x04
	}
	if gprBits(base) >= 8 {
		rex |= 0x01
	}
	w.emitBytes(rex, 0x8B, modrmDisp32(gprBits(dst), gprBits(base)))
	w.emitU32(uint32(off))
}

// emitMovsdRegMem emits `movsd dst(xmm), [base+off]`.
func (w *JITWriter) emitMovsdRegMem(dst Reg, base Reg, off int32) {
	w.emitBytes(0xF2, 0x0F, 0x10, modrmDisp32(gprBits(dst), gprBits(base)))
	w.emitU32(uint32(off))
}

func modrmDisp32(reg, rm byte) byte {
	return 0x80 | (reg&7)<<3 | (rm & 7)
}

func (w *JITWriter) emitMovRegReg64(dst, src Reg) {
	rex := byte(0x48)
	if gprBits(src) >= 8 {
		rex |= 0x04
	}
	if gprBits(dst) >= 8 {
		rex |= 0x01
	}
	w.emitBytes(rex, 0x89, 0xC0|(gprBits(src)&7)<<3|(gprBits(dst)&7))
}

func (w *JITWriter) emitMovsdRegReg(dst, src Reg) {
	w.emitBytes(0xF2, 0x0F, 0x10, 0xC0|(gprBits(dst)&7)<<3|(gprBits(src)&7))
}

func (w *JITWriter) emitRet() { w.emitByte(0xC3) }

// emitMovqGprToXmm emits `movq dst(xmm), src(gpr)` — 66 REX.W 0F 6E /r,
// with the xmm destination in ModRM.reg and the GPR source in ModRM.rm,
// per the SDM's documented operand order for MOVQ xmm, r/m64. REX.R
// extends the xmm reg field, REX.B extends the gpr rm field.
func (w *JITWriter) emitMovqGprToXmm(dst, src Reg) {
	rex := byte(0x48)
	if gprBits(dst) >= 8 {
		rex |= 0x04
	}
	if gprBits(src) >= 8 {
		rex |= 0x01
	}
	w.emitBytes(0x66, rex, 0x0F, 0x6E, 0xC0|(gprBits(dst)&7)<<3|(gprBits(src)&7))
}

// rexW computes a REX prefix with W=1 (64-bit operand size) plus the R/B
// extension bits for a ModRM reg-field/rm-field operand pair — the same
// computation emitMovRegReg64/emitMovRegMem64 already do for their own
// operands, needed here too since gprMask's allocatable registers include
// R8-R10, whose ModRM encoding (0-7) aliases to RAX-RDI without REX.R/B.
func rexW(regField, rmField byte) byte {
	rex := byte(0x48)
	if regField >= 8 {
		rex |= 0x04
	}
	if rmField >= 8 {
		rex |= 0x01
	}
	return rex
}

// emitIntAdd/emitIntSub/emitIntImul emit `op dst, src` for integer
// arithmetic. Codegen does no runtime type dispatch the way vm.go's
// arith() does; Compilable checks field kinds and constant ranges, not
// whether both operands of one operator share a kind.
func (w *JITWriter) emitIntAdd(dst, src Reg) {
	w.emitBytes(rexW(gprBits(src), gprBits(dst)), 0x01, 0xC0|(gprBits(src)&7)<<3|(gprBits(dst)&7))
}
func (w *JITWriter) emitIntSub(dst, src Reg) {
	w.emitBytes(rexW(gprBits(src), gprBits(dst)), 0x29, 0xC0|(gprBits(src)&7)<<3|(gprBits(dst)&7))
}
func (w *JITWriter) emitIntImul(dst, src Reg) {
	w.emitBytes(rexW(gprBits(dst), gprBits(src)), 0x0F, 0xAF, 0xC0|(gprBits(dst)&7)<<3|(gprBits(src)&7))
}

func (w *JITWriter) emitFloatAdd(dst, src Reg) { w.emitBytes(0xF2, 0x0F, 0x58, 0xC0|(gprBits(dst)&7)<<3|(gprBits(src)&7)) }
func (w *JITWriter) emitFloatSub(dst, src Reg) { w.emitBytes(0xF2, 0x0F, 0x5C, 0xC0|(gprBits(dst)&7)<<3|(gprBits(src)&7)) }
func (w *JITWriter) emitFloatMul(dst, src Reg) { w.emitBytes(0xF2, 0x0F, 0x59, 0xC0|(gprBits(dst)&7)<<3|(gprBits(src)&7)) }
func (w *JITWriter) emitFloatDiv(dst, src Reg) { w.emitBytes(0xF2, 0x0F, 0x5E, 0xC0|(gprBits(dst)&7)<<3|(gprBits(src)&7)) }

// emitIntNeg emits `neg dst`. The reg field of this ModRM byte is a fixed
// opcode extension (/3), not a real register operand, so only REX.B (for
// the rm-field dst) is ever needed — never REX.R.
func (w *JITWriter) emitIntNeg(dst Reg) {
	rex := byte(0x48)
	if gprBits(dst) >= 8 {
		rex |= 0x01
	}
	w.emitBytes(rex, 0xF7, 0xD8|(gprBits(dst)&7))
}

// emitSetccMovzx emits `setCC dst_low8` then zero-extends dst into a full
// int64 boolean-as-0/1 value. SETcc needs its own REX prefix (even a bare
// 0x40) whenever dst's encoding is >=8 (R8-R15); the zero-extend reuses
// dst as both its reg and rm operand, so REX.R and REX.B track the same
// register.
func (w *JITWriter) emitSetccMovzx(dst Reg, cc byte) {
	setRex := byte(0x40)
	if gprBits(dst) >= 8 {
		setRex |= 0x01
	}
	w.emitBytes(setRex, 0x0F, 0x90+cc, 0xC0|(gprBits(dst)&7)) // setCC dst_low8
	movRex := byte(0x48)
	if gprBits(dst) >= 8 {
		movRex |= 0x04 | 0x01
	}
	w.emitBytes(movRex, 0x0F, 0xB6, 0xC0|(gprBits(dst)&7)<<3|(gprBits(dst)&7)) // movzx dst, dst_low8
}

// emitIntCmpSetcc emits `cmp left, right` then setCC/movzx into dst,
// implementing the boolean-as-int64 representation this package's
// numeric subset uses for comparison results.
func (w *JITWriter) emitIntCmpSetcc(dst, left, right Reg, cc byte) {
	w.emitBytes(rexW(gprBits(right), gprBits(left)), 0x39, 0xC0|(gprBits(right)&7)<<3|(gprBits(left)&7)) // cmp left, right
	w.emitSetccMovzx(dst, cc)
}

// x86 condition codes used by emitIntCmpSetcc / emitFloatCmpSetcc.
const (
	ccE  = 0x4 // equal
	ccNE = 0x5
	ccL  = 0xC
	ccLE = 0xE
	ccG  = 0xF
	ccGE = 0xD
)

// emitFloatCmpSetcc emits `ucomisd left, right` then the matching setCC,
// using the unsigned (unordered-aware) condition codes since ucomisd's
// flag results follow unsigned comparison semantics.
func (w *JITWriter) emitFloatCmpSetcc(dst, left, right Reg, cc byte) {
	w.emitBytes(0x66, 0x0F, 0x2E, 0xC0|(gprBits(left)&7)<<3|(gprBits(right)&7)) // ucomisd left, right
	w.emitSetccMovzx(dst, cc)
}

func floatCC(op expr.Opcode) byte {
	switch op {
	case expr.OpCmpEq:
		return ccE
	case expr.OpCmpNe:
		return ccNE
	case expr.OpCmpLt:
		return ccB // below == less, for unsigned-style ucomisd flags
	case expr.OpCmpLe:
		return ccBE
	case expr.OpCmpGt:
		return ccA
	default:
		return ccAE
	}
}

const (
	ccB  = 0x2
	ccBE = 0x6
	ccA  = 0x7
	ccAE = 0x3
)

// emitJmp emits an unconditional rel32 jump (E9) to labelID, resolved by
// ResolveFixups once every label in the function has a known position.
func (w *JITWriter) emitJmp(labelID uint8) {
	w.emitByte(0xE9)
	w.AddFixup(labelID, 4, true)
	w.emitU32(0)
}

// emitJcc emits a conditional rel32 jump (0F 80+cc) to labelID, using the
// same condition-code nibble convention as emitSetccMovzx.
func (w *JITWriter) emitJcc(cc byte, labelID uint8) {
	w.emitBytes(0x0F, 0x80+cc)
	w.AddFixup(labelID, 4, true)
	w.emitU32(0)
}

// emitTruthyJump emits the conditional branch compiler.go's jump-based
// short-circuit/conditional lowering needs: taken when cond is nonzero
// and jumpIfTrue, or when cond is zero and !jumpIfTrue. This mirrors
// value.Value.Truthy()'s zero/nonzero rule for Int/Float, the only two
// kinds a register ever holds in this package's restricted subset.
func emitTruthyJump(ctx *JITContext, cond JITValueDesc, jumpIfTrue bool, labelID uint8) {
	w := ctx.W
	if cond.IsFloat {
		zero := materialize(ctx, JITValueDesc{Loc: LocImm, Imm: value.NewFloat(0), IsFloat: true})
		w.emitBytes(0x66, 0x0F, 0x2E, 0xC0|(gprBits(cond.Reg)&7)<<3|(gprBits(zero.Reg)&7)) // ucomisd cond, zero
		ctx.FreeReg(zero.Reg)
	} else {
		rex := byte(0x48)
		if gprBits(cond.Reg) >= 8 {
			rex |= 0x04 | 0x01
		}
		w.emitBytes(rex, 0x85, 0xC0|(gprBits(cond.Reg)&7)<<3|(gprBits(cond.Reg)&7)) // test cond, cond
	}
	if jumpIfTrue {
		w.emitJcc(ccNE, labelID)
	} else {
		w.emitJcc(ccE, labelID)
	}
}

func intCC(op expr.Opcode) byte {
	switch op {
	case expr.OpCmpEq:
		return ccE
	case expr.OpCmpNe:
		return ccNE
	case expr.OpCmpLt:
		return ccL
	case expr.OpCmpLe:
		return ccLE
	case expr.OpCmpGt:
		return ccG
	default:
		return ccGE
	}
}

// CompiledFunc is a native-code expression evaluator: call it with a
// pointer to the schema-laid-out input struct and it returns the raw
// 64-bit result (an int64 bit pattern, a float64 bit pattern, or a 0/1
// boolean, disambiguated by the Entry.resultFloat/resultBool flags
// compiler.go attaches alongside it). Unpacking into a value.Value
// happens one level up, in compiler.go — the native function itself
// never touches the tagged union, mirroring how the teacher's own
// trampoline (scm/jit.go's OptimizeForValues) returns raw register
// contents and leaves Scmer reconstruction to the caller.
type CompiledFunc func(basePtr unsafe.Pointer) uint64

// emitFunction lowers a schema-verified CompiledExpr to amd64 machine
// code. Callers must have already run compiler.go's Compilable check;
// emitFunction panics (recovered by Compile) on anything it doesn't
// recognize, exactly like the teacher's jitCompileExprBody recovers from
// jitCompileExpr panics (scm/jit_amd64.go).
func emitFunction(ce *expr.CompiledExpr, fieldOffset []int32, fieldFloat []bool) (w *JITWriter, resultFloat, resultBool bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			w, err = nil, panicToErr(r)
		}
	}()

	w, werr := newWriter(4096)
	if werr != nil {
		return nil, false, false, werr
	}
	ctx := &JITContext{
		W: w, FreeRegs: freeRegsForArch(), FieldOffset: fieldOffset, FieldFloat: fieldFloat,
		JumpTargets: make(map[int]uint8),
		JoinDst:     make(map[int32]bool),
		PinnedReg:   make(map[int32]Reg),
	}

	// A forward jump needs its target label reserved before code
	// generation reaches that target, since compiler.go's bytecode
	// compiler never emits a backward jump — scan once up front so this
	// pre-pass and each Jump*'s own emission below agree on the same id.
	// The same pass counts OpMove writes per destination register to
	// find join registers (see JoinDst's doc comment on JITContext).
	moveWrites := make(map[int32]int)
	for pc, instr := range ce.Instructions {
		switch instr.Op {
		case expr.OpJump:
			ctx.labelForTarget(pc + 1 + int(instr.A))
		case expr.OpJumpIfTrue, expr.OpJumpIfFalse:
			ctx.labelForTarget(pc + 1 + int(instr.B))
		case expr.OpMove:
			moveWrites[instr.A]++
		}
	}
	for dst, n := range moveWrites {
		if n > 1 {
			ctx.JoinDst[dst] = true
		}
	}

	regs := make([]JITValueDesc, ce.RegisterCount)
	for pc, instr := range ce.Instructions {
		if id, ok := ctx.JumpTargets[pc]; ok {
			w.MarkLabel(id)
		}
		emitInstr(ctx, ce, instr, regs, pc)
	}
	w.ResolveFixups()
	return w, ctx.ResultFloat, ctx.ResultBool, nil
}

// emitInstr lowers one bytecode instruction at index pc, writing its
// result descriptor into regs[instr.A]. OpReturn records its result kind
// onto ctx (always exactly one Return, always the final instruction of a
// linear program) for emitFunction to hand back to Compile.
func emitInstr(ctx *JITContext, ce *expr.CompiledExpr, instr expr.Instruction, regs []JITValueDesc, pc int) {
	w := ctx.W
	switch instr.Op {
	case expr.OpLoadConst:
		c := ce.Constants[instr.B]
		regs[instr.A] = JITValueDesc{Loc: LocImm, Imm: c, IsFloat: c.IsFloat()}
	case expr.OpLoadField:
		idx := instr.B
		isFloat := ctx.FieldFloat[idx]
		reg := allocFor(ctx, isFloat)
		if isFloat {
			w.emitMovsdRegMem(reg, RegRDI, ctx.FieldOffset[idx])
		} else {
			w.emitMovRegMem64(reg, RegRDI, ctx.FieldOffset[idx])
		}
		regs[instr.A] = JITValueDesc{Loc: LocReg, Reg: reg, IsFloat: isFloat}
	case expr.OpMove:
		if ctx.JoinDst[instr.A] {
			src := materialize(ctx, regs[instr.B])
			reg, ok := ctx.PinnedReg[instr.A]
			if !ok {
				reg = allocFor(ctx, src.IsFloat)
				ctx.PinnedReg[instr.A] = reg
				ctx.PinnedMask |= 1 << uint(reg)
			}
			if src.Reg != reg {
				if src.IsFloat {
					w.emitMovsdRegReg(reg, src.Reg)
				} else {
					w.emitMovRegReg64(reg, src.Reg)
				}
				if src.Loc == LocReg {
					ctx.FreeReg(src.Reg)
				}
			}
			regs[instr.A] = JITValueDesc{Loc: LocReg, Reg: reg, IsFloat: src.IsFloat, IsBool: src.IsBool}
		} else {
			regs[instr.A] = regs[instr.B]
		}
	case expr.OpNAdd, expr.OpNSub, expr.OpNMul, expr.OpNDiv:
		emitArith(ctx, instr, regs)
	case expr.OpCmpEq, expr.OpCmpNe, expr.OpCmpLt, expr.OpCmpLe, expr.OpCmpGt, expr.OpCmpGe:
		emitCompare(ctx, instr, regs)
	case expr.OpFieldEqConst, expr.OpFieldNeConst, expr.OpFieldLtConst, expr.OpFieldLeConst, expr.OpFieldGtConst, expr.OpFieldGeConst:
		emitFieldCmpConst(ctx, ce, instr, regs)
	case expr.OpNeg:
		src := materialize(ctx, regs[instr.B])
		if src.IsFloat {
			// Flip the sign bit via an XMM xorps against a mask
			// bounced in through a scratch GPR (movq takes a GPR
			// operand, there's no xmm-immediate-load instruction).
			signMask := allocFor(ctx, true)
			w.emitMovRegImm64(RegR11, 0x8000000000000000)
			w.emitMovqGprToXmm(signMask, RegR11)
			w.emitBytes(0x0F, 0x57, 0xC0|(gprBits(src.Reg)&7)<<3|(gprBits(signMask)&7)) // xorps src, signMask
			ctx.FreeReg(signMask)
			regs[instr.A] = JITValueDesc{Loc: LocReg, Reg: src.Reg, IsFloat: true}
		} else {
			dst := allocFor(ctx, false)
			w.emitMovRegReg64(dst, src.Reg)
			w.emitIntNeg(dst)
			regs[instr.A] = JITValueDesc{Loc: LocReg, Reg: dst, IsFloat: false}
		}
	case expr.OpJump:
		target := pc + 1 + int(instr.A)
		w.emitJmp(ctx.labelForTarget(target))
	case expr.OpJumpIfTrue, expr.OpJumpIfFalse:
		target := pc + 1 + int(instr.B)
		cond := materialize(ctx, regs[instr.A])
		emitTruthyJump(ctx, cond, instr.Op == expr.OpJumpIfTrue, ctx.labelForTarget(target))
		if cond.Loc == LocReg {
			ctx.FreeReg(cond.Reg)
		}
	case expr.OpReturn:
		src := materialize(ctx, regs[instr.A])
		if src.IsFloat {
			if src.Reg != RegX0 {
				w.emitMovsdRegReg(RegX0, src.Reg)
			}
		} else {
			if src.Reg != RegRAX {
				w.emitMovRegReg64(RegRAX, src.Reg)
			}
		}
		w.emitRet()
		ctx.ResultFloat = src.IsFloat
		ctx.ResultBool = src.IsBool
	default:
		panic("jit: unsupported opcode for native compilation")
	}
}

// allocFor picks a free register from the bank matching isFloat — the
// two banks never overlap (gprMask/xmmMask above), so a plain masked
// lowest-bit scan is enough; AllocReg's unfiltered scan would happily
// hand back a GPR when an XMM register was wanted since GPR bits sit
// lower in the word.
func allocFor(ctx *JITContext, isFloat bool) Reg {
	mask := ctx.FreeRegs & gprMask
	if isFloat {
		mask = ctx.FreeRegs & xmmMask
	}
	if mask == 0 {
		panic("jit: register file exhausted")
	}
	bit := mask & (-mask)
	ctx.FreeRegs &^= bit
	r := Reg(0)
	for b := bit; b > 1; b >>= 1 {
		r++
	}
	return r
}

// materialize ensures desc holds a live register, loading LocImm
// constants with an immediate-move first.
func materialize(ctx *JITContext, desc JITValueDesc) JITValueDesc {
	if desc.Loc == LocReg {
		return desc
	}
	reg := allocFor(ctx, desc.IsFloat)
	if desc.IsFloat {
		bits := math.Float64bits(desc.Imm.Float())
		ctx.W.emitMovRegImm64(RegR11, bits)
		ctx.W.emitMovqGprToXmm(reg, RegR11)
	} else {
		ctx.W.emitMovRegImm64(reg, uint64(desc.Imm.Int()))
	}
	return JITValueDesc{Loc: LocReg, Reg: reg, IsFloat: desc.IsFloat}
}

func emitArith(ctx *JITContext, instr expr.Instruction, regs []JITValueDesc) {
	w := ctx.W
	left := materialize(ctx, regs[instr.B])
	right := materialize(ctx, regs[instr.C])
	if left.IsFloat {
		switch instr.Op {
		case expr.OpNAdd:
			w.emitFloatAdd(left.Reg, right.Reg)
		case expr.OpNSub:
			w.emitFloatSub(left.Reg, right.Reg)
		case expr.OpNMul:
			w.emitFloatMul(left.Reg, right.Reg)
		case expr.OpNDiv:
			w.emitFloatDiv(left.Reg, right.Reg)
		}
	} else {
		switch instr.Op {
		case expr.OpNAdd:
			w.emitIntAdd(left.Reg, right.Reg)
		case expr.OpNSub:
			w.emitIntSub(left.Reg, right.Reg)
		case expr.OpNMul:
			w.emitIntImul(left.Reg, right.Reg)
		case expr.OpNDiv:
			panic("jit: integer division is not compiled natively (overflow/trap semantics need the VM's checked path)")
		}
	}
	if right.Loc == LocReg {
		ctx.FreeReg(right.Reg)
	}
	regs[instr.A] = JITValueDesc{Loc: LocReg, Reg: left.Reg, IsFloat: left.IsFloat}
}

func emitCompare(ctx *JITContext, instr expr.Instruction, regs []JITValueDesc) {
	w := ctx.W
	left := materialize(ctx, regs[instr.B])
	right := materialize(ctx, regs[instr.C])
	dst := allocFor(ctx, false)
	if left.IsFloat {
		w.emitFloatCmpSetcc(dst, left.Reg, right.Reg, floatCC(instr.Op))
	} else {
		w.emitIntCmpSetcc(dst, left.Reg, right.Reg, intCC(instr.Op))
	}
	if left.Loc == LocReg {
		ctx.FreeReg(left.Reg)
	}
	if right.Loc == LocReg {
		ctx.FreeReg(right.Reg)
	}
	regs[instr.A] = JITValueDesc{Loc: LocReg, Reg: dst, IsFloat: false, IsBool: true}
}

// emitFieldCmpConst lowers a bytecode-level field/literal fusion
// (expr.Compile's super-instruction pass) the same way emitCompare
// lowers the unfused two-register form, just skipping the intermediate
// registers the bytecode VM would have used.
func emitFieldCmpConst(ctx *JITContext, ce *expr.CompiledExpr, instr expr.Instruction, regs []JITValueDesc) {
	w := ctx.W
	idx := instr.B
	isFloat := ctx.FieldFloat[idx]
	fieldReg := allocFor(ctx, isFloat)
	if isFloat {
		w.emitMovsdRegMem(fieldReg, RegRDI, ctx.FieldOffset[idx])
	} else {
		w.emitMovRegMem64(fieldReg, RegRDI, ctx.FieldOffset[idx])
	}
	constDesc := materialize(ctx, JITValueDesc{Loc: LocImm, Imm: ce.Constants[instr.C], IsFloat: isFloat})

	dst := allocFor(ctx, false)
	genericOp := fieldCmpToGenericOp(instr.Op)
	if isFloat {
		w.emitFloatCmpSetcc(dst, fieldReg, constDesc.Reg, floatCC(genericOp))
	} else {
		w.emitIntCmpSetcc(dst, fieldReg, constDesc.Reg, intCC(genericOp))
	}
	ctx.FreeReg(fieldReg)
	ctx.FreeReg(constDesc.Reg)
	regs[instr.A] = JITValueDesc{Loc: LocReg, Reg: dst, IsFloat: false, IsBool: true}
}

func fieldCmpToGenericOp(op expr.Opcode) expr.Opcode {
	switch op {
	case expr.OpFieldEqConst:
		return expr.OpCmpEq
	case expr.OpFieldNeConst:
		return expr.OpCmpNe
	case expr.OpFieldLtConst:
		return expr.OpCmpLt
	case expr.OpFieldLeConst:
		return expr.OpCmpLe
	case expr.OpFieldGtConst:
		return expr.OpCmpGt
	default:
		return expr.OpCmpGe
	}
}

func panicToErr(r interface{}) error {
	if e, ok := r.(error); ok {
		return e
	}
	return &jitPanic{msg: r}
}

type jitPanic struct{ msg interface{} }

func (e *jitPanic) Error() string { return "jit panic" }
