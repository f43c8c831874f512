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

// Stats counts what a single Optimize pass actually did, for diagnostics.
type Stats struct {
	ConstantFolds int
	Simplifications int
	DeadCodeEliminations int
}

// Optimize runs a single bottom-up rewrite pass over e, returning a new
// tree (inputs are never mutated, consistent with the engine's immutable-
// after-construction AST rule) plus the stats the pass collected.
// Optimize is idempotent: Optimize(Optimize(e)) == Optimize(e).
func Optimize(e Expr) (Expr, Stats) {
	var stats Stats
	out := optimizeNode(e, &stats)
	return out, stats
}

func optimizeNode(e Expr, stats *Stats) Expr {
	switch n := e.(type) {
	case *Literal:
		return n
	case *Field:
		return n
	case *Exists:
		return n
	case *Unary:
		operand := optimizeNode(n.Operand, stats)
		return optimizeUnary(&Unary{Op: n.Op, Operand: operand, Src: n.Src}, stats)
	case *Binary:
		left := optimizeNode(n.Left, stats)
		right := optimizeNode(n.Right, stats)
		return optimizeBinary(&Binary{Op: n.Op, Left: left, Right: right, Src: n.Src}, stats)
	case *Conditional:
		cond := optimizeNode(n.Condition, stats)
		thenB := optimizeNode(n.Then, stats)
		elseB := optimizeNode(n.Else, stats)
		return optimizeConditional(&Conditional{Condition: cond, Then: thenB, Else: elseB, Src: n.Src}, stats)
	case *Coalesce:
		exprs := make([]Expr, len(n.Exprs))
		for i, sub := range n.Exprs {
			exprs[i] = optimizeNode(sub, stats)
		}
		return optimizeCoalesce(&Coalesce{Exprs: exprs, Src: n.Src}, stats)
	case *Array:
		elems := make([]Expr, len(n.Elems))
		for i, sub := range n.Elems {
			elems[i] = optimizeNode(sub, stats)
		}
		return optimizeArray(&Array{Elems: elems, Src: n.Src}, stats)
	case *Object:
		entries := make([]ObjectEntry, len(n.Entries))
		for i, entry := range n.Entries {
			entries[i] = ObjectEntry{Key: entry.Key, Value: optimizeNode(entry.Value, stats)}
		}
		return &Object{Entries: entries, Src: n.Src}
	case *Call:
		args := make([]Expr, len(n.Args))
		for i, sub := range n.Args {
			args[i] = optimizeNode(sub, stats)
		}
		return optimizeCall(&Call{Name: n.Name, Args: args, Src: n.Src}, stats)
	default:
		return e
	}
}

func asLiteral(e Expr) (value.Value, bool) {
	lit, ok := e.(*Literal)
	if !ok {
		return value.Value{}, false
	}
	return lit.Value, true
}

func optimizeUnary(n *Unary, stats *Stats) Expr {
	// Double-negation elimination: !!x = x, -(-x) = x.
	if inner, ok := n.Operand.(*Unary); ok && inner.Op == n.Op {
		stats.Simplifications++
		return inner.Operand
	}
	lit, ok := asLiteral(n.Operand)
	if !ok {
		return n
	}
	switch n.Op {
	case OpNot:
		stats.ConstantFolds++
		return &Literal{Value: value.NewBool(!lit.Truthy()), Src: n.Src}
	case OpNeg:
		if lit.IsInt() {
			stats.ConstantFolds++
			return &Literal{Value: value.NewInt(-lit.Int()), Src: n.Src}
		}
		if lit.IsFloat() {
			stats.ConstantFolds++
			return &Literal{Value: value.NewFloat(-lit.Float()), Src: n.Src}
		}
	}
	return n
}

func optimizeBinary(n *Binary, stats *Stats) Expr {
	if simplified, ok := algebraicIdentity(n); ok {
		stats.Simplifications++
		return simplified
	}
	left, lok := asLiteral(n.Left)
	right, rok := asLiteral(n.Right)
	if !lok || !rok {
		return n
	}
	v, err := applyBinary(n.Op, left, right)
	if err != nil {
		// Overflow and division/modulo by zero refuse to fold — the
		// error must surface at evaluation time, not optimization time.
		return n
	}
	stats.ConstantFolds++
	return &Literal{Value: v, Src: n.Src}
}

// algebraicIdentity implements the left/right-symmetric identity rules
// that apply regardless of whether the non-literal side is itself
// foldable: x+0=x, x-0=x, x*1=x, x*0=0, x/1=x, true&&x=x, false&&x=false,
// true||x=true, false||x=x.
func algebraicIdentity(n *Binary) (Expr, bool) {
	leftLit, lok := asLiteral(n.Left)
	rightLit, rok := asLiteral(n.Right)

	switch n.Op {
	case OpAdd:
		if rok && rightLit.IsNumber() && rightLit.AsFloat() == 0 {
			return n.Left, true
		}
		if lok && leftLit.IsNumber() && leftLit.AsFloat() == 0 {
			return n.Right, true
		}
	case OpSub:
		if rok && rightLit.IsNumber() && rightLit.AsFloat() == 0 {
			return n.Left, true
		}
	case OpMul:
		if rok && rightLit.IsNumber() {
			if rightLit.AsFloat() == 1 {
				return n.Left, true
			}
			if rightLit.AsFloat() == 0 {
				return &Literal{Value: zeroLike(rightLit)}, true
			}
		}
		if lok && leftLit.IsNumber() {
			if leftLit.AsFloat() == 1 {
				return n.Right, true
			}
			if leftLit.AsFloat() == 0 {
				return &Literal{Value: zeroLike(leftLit)}, true
			}
		}
	case OpDiv:
		if rok && rightLit.IsNumber() && rightLit.AsFloat() == 1 {
			return n.Left, true
		}
	case OpAnd:
		if lok {
			if leftLit.Truthy() {
				return n.Right, true
			}
			return &Literal{Value: value.NewBool(false)}, true
		}
	case OpOr:
		if lok {
			if leftLit.Truthy() {
				return &Literal{Value: value.NewBool(true)}, true
			}
			return n.Right, true
		}
	}
	return nil, false
}

func zeroLike(v value.Value) value.Value {
	if v.IsInt() {
		return value.NewInt(0)
	}
	return value.NewFloat(0)
}

func optimizeConditional(n *Conditional, stats *Stats) Expr {
	if lit, ok := asLiteral(n.Condition); ok {
		stats.Simplifications++
		if lit.Truthy() {
			return n.Then
		}
		return n.Else
	}
	if sameExpr(n.Then, n.Else) {
		stats.Simplifications++
		return n.Then
	}
	return n
}

// sameExpr reports structural equality of two expressions via their
// canonical hash — cheap and already needed elsewhere.
func sameExpr(a, b Expr) bool {
	return Hash(a) == Hash(b)
}

func optimizeCoalesce(n *Coalesce, stats *Stats) Expr {
	exprs := make([]Expr, 0, len(n.Exprs))
	changed := false
	for _, sub := range n.Exprs {
		if lit, ok := asLiteral(sub); ok && lit.IsNull() {
			// Strip leading/interior null literals outright.
			changed = true
			continue
		}
		exprs = append(exprs, sub)
		if lit, ok := asLiteral(sub); ok && !lit.IsNull() {
			// Truncate at the first non-null literal: nothing after it
			// can ever be reached.
			if len(exprs) < len(n.Exprs) {
				changed = true
			}
			break
		}
	}
	if changed {
		stats.Simplifications++
	}
	switch len(exprs) {
	case 0:
		return &Literal{Value: value.NewNull(), Src: n.Src}
	case 1:
		return exprs[0]
	default:
		return &Coalesce{Exprs: exprs, Src: n.Src}
	}
}

func optimizeArray(n *Array, stats *Stats) Expr {
	elems := make([]value.Value, len(n.Elems))
	for i, sub := range n.Elems {
		lit, ok := asLiteral(sub)
		if !ok {
			return n
		}
		elems[i] = lit
	}
	stats.ConstantFolds++
	return &Literal{Value: value.NewArray(elems), Src: n.Src}
}

// optimizeCall folds a call at compile time only when its builtin is
// registered Pure in functions.go; impure time-dependent builtins (now,
// now_millis) are registered Pure=false and never folded.
func optimizeCall(n *Call, stats *Stats) Expr {
	f, ok := LookupFunction(n.Name)
	if !ok || !f.Pure {
		return n
	}
	args := make([]value.Value, len(n.Args))
	for i, sub := range n.Args {
		lit, ok := asLiteral(sub)
		if !ok {
			return n
		}
		args[i] = lit
	}
	v, err := f.Call(args)
	if err != nil {
		return n
	}
	stats.ConstantFolds++
	return &Literal{Value: v, Src: n.Src}
}
