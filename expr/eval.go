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
	"math"
	"strings"

	"github.com/launix-de/ordo-engine/context"
	"github.com/launix-de/ordo-engine/ordoerr"
	"github.com/launix-de/ordo-engine/value"
)

// Resolver is the minimal context.Context surface eval.go and vm.go both
// need: a single Resolve call for path expressions. *context.Context
// implements it, and so can any host type (cmd/ordo evaluates REPL lines
// against an empty resolver); it is the evaluator's only coupling point.
type Resolver interface {
	Resolve(path string) (value.Value, bool)
}

var _ Resolver = (*context.Context)(nil)

// Eval tree-walks e against ctx, with semantics identical to the bytecode
// VM (vm.go) — the two must agree per the cross-evaluator testable
// property. This is the tiered evaluator's bootstrap path before an
// expression has a compiled form, and the fallback for AST shapes the JIT
// declines to compile.
func Eval(e Expr, ctx Resolver) (value.Value, error) {
	switch n := e.(type) {
	case *Literal:
		return n.Value, nil
	case *Field:
		v, ok := ctx.Resolve(n.Path)
		if !ok {
			return value.Value{}, ordoerr.NewFieldNotFound(n.Path)
		}
		return v, nil
	case *Exists:
		_, ok := ctx.Resolve(n.Path)
		return value.NewBool(ok), nil
	case *Unary:
		return evalUnary(n, ctx)
	case *Binary:
		return evalBinary(n, ctx)
	case *Conditional:
		cond, err := Eval(n.Condition, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if cond.Truthy() {
			return Eval(n.Then, ctx)
		}
		return Eval(n.Else, ctx)
	case *Coalesce:
		for _, sub := range n.Exprs {
			v, err := Eval(sub, ctx)
			if err != nil {
				return value.Value{}, err
			}
			if !v.IsNull() {
				return v, nil
			}
		}
		return value.NewNull(), nil
	case *Array:
		elems := make([]value.Value, len(n.Elems))
		for i, sub := range n.Elems {
			v, err := Eval(sub, ctx)
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = v
		}
		return value.NewArray(elems), nil
	case *Object:
		pairs := make([]value.Pair, len(n.Entries))
		for i, entry := range n.Entries {
			v, err := Eval(entry.Value, ctx)
			if err != nil {
				return value.Value{}, err
			}
			pairs[i] = value.Pair{Key: entry.Key, Value: v}
		}
		return value.NewObject(pairs), nil
	case *Call:
		args := make([]value.Value, len(n.Args))
		for i, sub := range n.Args {
			v, err := Eval(sub, ctx)
			if err != nil {
				return value.Value{}, err
			}
			args[i] = v
		}
		return CallFunction(n.Name, args)
	default:
		return value.Value{}, ordoerr.NewInternalError("unhandled expression node")
	}
}

func evalUnary(n *Unary, ctx Resolver) (value.Value, error) {
	v, err := Eval(n.Operand, ctx)
	if err != nil {
		return value.Value{}, err
	}
	switch n.Op {
	case OpNot:
		return value.NewBool(!v.Truthy()), nil
	case OpNeg:
		if v.IsInt() {
			return value.NewInt(-v.Int()), nil
		}
		if v.IsFloat() {
			return value.NewFloat(-v.Float()), nil
		}
		return value.Value{}, &ordoerr.TypeError{Expected: "number", Actual: v.Tag().String()}
	default:
		return value.Value{}, ordoerr.NewInternalError("unknown unary operator")
	}
}

func evalBinary(n *Binary, ctx Resolver) (value.Value, error) {
	// Short-circuit logical operators evaluate the right side only when
	// needed, matching the bytecode compiler's jump-based lowering.
	if n.Op == OpAnd || n.Op == OpOr {
		left, err := Eval(n.Left, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if n.Op == OpAnd && !left.Truthy() {
			return value.NewBool(false), nil
		}
		if n.Op == OpOr && left.Truthy() {
			return value.NewBool(true), nil
		}
		right, err := Eval(n.Right, ctx)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(right.Truthy()), nil
	}

	left, err := Eval(n.Left, ctx)
	if err != nil {
		return value.Value{}, err
	}
	right, err := Eval(n.Right, ctx)
	if err != nil {
		return value.Value{}, err
	}
	return applyBinary(n.Op, left, right)
}

// applyBinary implements every non-short-circuit binary operator for the
// AST evaluator and the optimizer's constant folding. The VM calls the
// same helpers (arith, orderedCompare, membership, contains) directly.
func applyBinary(op BinaryOp, left, right value.Value) (value.Value, error) {
	switch op {
	case OpAdd:
		return arith(op, left, right)
	case OpSub, OpMul, OpDiv, OpMod:
		return arith(op, left, right)
	case OpEq:
		return value.NewBool(value.Equal(left, right)), nil
	case OpNe:
		return value.NewBool(!value.Equal(left, right)), nil
	case OpLt, OpLe, OpGt, OpGe:
		cmp, ok := value.Compare(left, right)
		if !ok {
			return value.Value{}, &ordoerr.TypeError{Expected: "ordered operands", Actual: left.Tag().String() + "/" + right.Tag().String()}
		}
		switch op {
		case OpLt:
			return value.NewBool(cmp < 0), nil
		case OpLe:
			return value.NewBool(cmp <= 0), nil
		case OpGt:
			return value.NewBool(cmp > 0), nil
		default:
			return value.NewBool(cmp >= 0), nil
		}
	case OpIn:
		return membership(left, right)
	case OpNotIn:
		v, err := membership(left, right)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(!v.Bool()), nil
	case OpContains:
		return contains(left, right)
	default:
		return value.Value{}, ordoerr.NewInternalError("unknown binary operator")
	}
}

func arith(op BinaryOp, left, right value.Value) (value.Value, error) {
	if op == OpAdd && left.IsString() && right.IsString() {
		return value.NewString(left.Str() + right.Str()), nil
	}
	if !left.IsNumber() || !right.IsNumber() {
		return value.Value{}, &ordoerr.TypeError{Expected: "number", Actual: left.Tag().String() + "/" + right.Tag().String()}
	}
	if left.IsInt() && right.IsInt() {
		a, b := left.Int(), right.Int()
		switch op {
		case OpAdd:
			sum := a + b
			if (b > 0 && sum < a) || (b < 0 && sum > a) {
				return value.Value{}, ordoerr.NewEvalError("integer overflow in addition")
			}
			return value.NewInt(sum), nil
		case OpSub:
			diff := a - b
			if (b < 0 && diff < a) || (b > 0 && diff > a) {
				return value.Value{}, ordoerr.NewEvalError("integer overflow in subtraction")
			}
			return value.NewInt(diff), nil
		case OpMul:
			if a != 0 && b != 0 {
				prod := a * b
				if prod/b != a {
					return value.Value{}, ordoerr.NewEvalError("integer overflow in multiplication")
				}
				return value.NewInt(prod), nil
			}
			return value.NewInt(0), nil
		case OpDiv:
			if b == 0 {
				return value.Value{}, ordoerr.NewEvalError("division by zero")
			}
			return value.NewInt(a / b), nil
		case OpMod:
			if b == 0 {
				return value.Value{}, ordoerr.NewEvalError("modulo by zero")
			}
			return value.NewInt(a % b), nil
		}
	}
	af, bf := left.AsFloat(), right.AsFloat()
	switch op {
	case OpAdd:
		return value.NewFloat(af + bf), nil
	case OpSub:
		return value.NewFloat(af - bf), nil
	case OpMul:
		return value.NewFloat(af * bf), nil
	case OpDiv:
		if bf == 0 {
			return value.Value{}, ordoerr.NewEvalError("division by zero")
		}
		return value.NewFloat(af / bf), nil
	case OpMod:
		if bf == 0 {
			return value.Value{}, ordoerr.NewEvalError("modulo by zero")
		}
		return value.NewFloat(math.Mod(af, bf)), nil
	default:
		return value.Value{}, ordoerr.NewInternalError("unknown arithmetic operator")
	}
}

func membership(needle, haystack value.Value) (value.Value, error) {
	if !haystack.IsArray() {
		return value.Value{}, &ordoerr.TypeError{Expected: "array", Actual: haystack.Tag().String()}
	}
	for _, e := range haystack.ArrayElems() {
		if value.Equal(needle, e) {
			return value.NewBool(true), nil
		}
	}
	return value.NewBool(false), nil
}

func contains(haystack, needle value.Value) (value.Value, error) {
	if haystack.IsArray() {
		return membership(needle, haystack)
	}
	if haystack.IsString() {
		if !needle.IsString() {
			return value.Value{}, &ordoerr.TypeError{Expected: "string", Actual: needle.Tag().String()}
		}
		return value.NewBool(strings.Contains(haystack.Str(), needle.Str())), nil
	}
	return value.Value{}, &ordoerr.TypeError{Expected: "array or string", Actual: haystack.Tag().String()}
}
