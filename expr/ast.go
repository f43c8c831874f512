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

// Package expr implements the expression language: its AST, parser,
// optimizer, builtin function registry, a register bytecode compiler and
// VM, an AST-walking fallback evaluator, and the hashing used to key the
// profiler and JIT caches.
package expr

import "github.com/launix-de/ordo-engine/value"

// BinaryOp enumerates the infix operators. Declaration order does not
// follow binding strength; Precedence gives that.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpIn
	OpNotIn
	OpContains
)

// Precedence returns the operator's binding strength; a higher value
// binds tighter. All operators are left-associative.
func (op BinaryOp) Precedence() int {
	switch op {
	case OpOr:
		return 1
	case OpAnd:
		return 2
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return 3
	case OpIn, OpNotIn, OpContains:
		return 4
	case OpAdd, OpSub:
		return 5
	case OpMul, OpDiv, OpMod:
		return 6
	default:
		return 0
	}
}

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpIn:
		return "in"
	case OpNotIn:
		return "not in"
	case OpContains:
		return "contains"
	default:
		return "?"
	}
}

// UnaryOp enumerates the prefix operators.
type UnaryOp uint8

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	if op == OpNot {
		return "not"
	}
	return "-"
}

// Expr is the expression AST. Every concrete node type implements it; the
// set is closed (a type switch in eval.go/compiler.go/optimizer.go is
// exhaustive over exactly these cases).
type Expr interface {
	exprNode()
}

// SourceInfo carries the rune offset an AST node was parsed from, for
// diagnostics (parse errors, trace labels). Zero value means "unknown",
// which literal nodes built by the optimizer or by host code use freely.
type SourceInfo struct {
	Offset int
}

// Literal is a constant value baked into the expression at parse or
// optimization time.
type Literal struct {
	Value value.Value
	Src   SourceInfo
}

// Field is a path reference, e.g. "user.age" or "$risk_score.tier". The
// leading-"$" sigil rule is interpreted by context.Context.Resolve, not
// here; the AST just carries the raw path string.
type Field struct {
	Path string
	Src  SourceInfo
}

// Binary is a two-operand operator application.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	Src   SourceInfo
}

// Unary is a one-operand operator application.
type Unary struct {
	Op      UnaryOp
	Operand Expr
	Src     SourceInfo
}

// Call is a builtin function invocation.
type Call struct {
	Name string
	Args []Expr
	Src  SourceInfo
}

// Conditional is an if/then/else expression; all three branches are
// expressions, not statements.
type Conditional struct {
	Condition Expr
	Then      Expr
	Else      Expr
	Src       SourceInfo
}

// Array is an array literal whose elements are themselves expressions.
type Array struct {
	Elems []Expr
	Src   SourceInfo
}

// ObjectEntry is one key/value pair of an Object literal.
type ObjectEntry struct {
	Key   string
	Value Expr
}

// Object is an object literal whose values are themselves expressions.
type Object struct {
	Entries []ObjectEntry
	Src     SourceInfo
}

// Exists checks whether a path resolves to a value at all (as opposed to
// resolving to null).
type Exists struct {
	Path string
	Src  SourceInfo
}

// Coalesce evaluates its operands left to right and returns the first one
// that is not null (or Null if all are).
type Coalesce struct {
	Exprs []Expr
	Src   SourceInfo
}

func (*Literal) exprNode()     {}
func (*Field) exprNode()       {}
func (*Binary) exprNode()      {}
func (*Unary) exprNode()       {}
func (*Call) exprNode()        {}
func (*Conditional) exprNode() {}
func (*Array) exprNode()       {}
func (*Object) exprNode()      {}
func (*Exists) exprNode()      {}
func (*Coalesce) exprNode()    {}
