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
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/launix-de/ordo-engine/ordoerr"
	"github.com/launix-de/ordo-engine/value"
)

// Function is one entry of the builtin registry: a name, an arity range,
// a purity flag the optimizer's constant-folding pass consults, and the
// implementation itself. Grounded on scm/declare.go's Declaration — we
// drop its Params/Desc help-text fields (no REPL help surface here) and
// add MinArgs/MaxArgs/Pure, which scm's variadic Scmer calling convention
// didn't need to track explicitly.
type Function struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 means unbounded
	Pure    bool
	Call    func(args []value.Value) (value.Value, error)
}

var builtins = make(map[string]*Function)
var caser = cases.Title(language.Und, cases.NoLower)
var upperCaser = cases.Upper(language.Und)
var lowerCaser = cases.Lower(language.Und)

func register(f *Function) { builtins[f.Name] = f }

// LookupFunction returns the registered builtin by name.
func LookupFunction(name string) (*Function, bool) {
	f, ok := builtins[name]
	return f, ok
}

func checkArity(f *Function, args []value.Value) error {
	if len(args) < f.MinArgs || (f.MaxArgs >= 0 && len(args) > f.MaxArgs) {
		return ordoerr.NewFunctionArgError(f.Name, "wrong number of arguments")
	}
	return nil
}

// CallFunction looks up name and invokes it with args, checking arity
// first.
func CallFunction(name string, args []value.Value) (value.Value, error) {
	f, ok := builtins[name]
	if !ok {
		return value.Value{}, ordoerr.NewFunctionNotFound(name)
	}
	if err := checkArity(f, args); err != nil {
		return value.Value{}, err
	}
	return f.Call(args)
}

func wantString(f *Function, args []value.Value, i int) (string, error) {
	if !args[i].IsString() {
		return "", ordoerr.NewFunctionArgError(f.Name, "expected string argument")
	}
	return args[i].Str(), nil
}

func wantNumber(f *Function, args []value.Value, i int) (float64, error) {
	if !args[i].IsNumber() {
		return 0, ordoerr.NewFunctionArgError(f.Name, "expected numeric argument")
	}
	return args[i].AsFloat(), nil
}

func init() {
	registerStringFunctions()
	registerMathFunctions()
	registerArrayFunctions()
	registerTypeFunctions()
	registerConversionFunctions()
	registerTimeFunctions()
}

func registerStringFunctions() {
	register(&Function{Name: "len", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		switch {
		case args[0].IsString():
			return value.NewInt(int64(len([]rune(args[0].Str())))), nil
		case args[0].IsArray():
			return value.NewInt(int64(len(args[0].ArrayElems()))), nil
		default:
			return value.Value{}, ordoerr.NewFunctionArgError("len", "expected string or array argument")
		}
	}})
	register(&Function{Name: "upper", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		s, err := wantString(builtins["upper"], args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewString(upperCaser.String(s)), nil
	}})
	register(&Function{Name: "lower", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		s, err := wantString(builtins["lower"], args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewString(lowerCaser.String(s)), nil
	}})
	register(&Function{Name: "trim", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		s, err := wantString(builtins["trim"], args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewString(strings.TrimSpace(s)), nil
	}})
	register(&Function{Name: "starts_with", MinArgs: 2, MaxArgs: 2, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		s, err := wantString(builtins["starts_with"], args, 0)
		if err != nil {
			return value.Value{}, err
		}
		prefix, err := wantString(builtins["starts_with"], args, 1)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(strings.HasPrefix(s, prefix)), nil
	}})
	register(&Function{Name: "ends_with", MinArgs: 2, MaxArgs: 2, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		s, err := wantString(builtins["ends_with"], args, 0)
		if err != nil {
			return value.Value{}, err
		}
		suffix, err := wantString(builtins["ends_with"], args, 1)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(strings.HasSuffix(s, suffix)), nil
	}})
	register(&Function{Name: "contains_str", MinArgs: 2, MaxArgs: 2, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		s, err := wantString(builtins["contains_str"], args, 0)
		if err != nil {
			return value.Value{}, err
		}
		sub, err := wantString(builtins["contains_str"], args, 1)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(strings.Contains(s, sub)), nil
	}})
	register(&Function{Name: "substring", MinArgs: 2, MaxArgs: 3, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		f := builtins["substring"]
		s, err := wantString(f, args, 0)
		if err != nil {
			return value.Value{}, err
		}
		r := []rune(s)
		start, err := wantNumber(f, args, 1)
		if err != nil {
			return value.Value{}, err
		}
		begin := int(start)
		end := len(r)
		if len(args) == 3 {
			n, err := wantNumber(f, args, 2)
			if err != nil {
				return value.Value{}, err
			}
			end = int(n)
		}
		if begin < 0 {
			begin = 0
		}
		if end > len(r) {
			end = len(r)
		}
		if begin > end {
			return value.Value{}, ordoerr.NewFunctionArgError("substring", "start index past end index")
		}
		return value.NewString(string(r[begin:end])), nil
	}})
}

func registerMathFunctions() {
	register(&Function{Name: "abs", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		if args[0].IsInt() {
			n := args[0].Int()
			if n < 0 {
				n = -n
			}
			return value.NewInt(n), nil
		}
		n, err := wantNumber(builtins["abs"], args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFloat(math.Abs(n)), nil
	}})
	register(&Function{Name: "min", MinArgs: 1, MaxArgs: -1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		return reduceNumeric(builtins["min"], args, func(a, b float64) bool { return a < b })
	}})
	register(&Function{Name: "max", MinArgs: 1, MaxArgs: -1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		return reduceNumeric(builtins["max"], args, func(a, b float64) bool { return a > b })
	}})
	register(&Function{Name: "floor", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		n, err := wantNumber(builtins["floor"], args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFloat(math.Floor(n)), nil
	}})
	register(&Function{Name: "ceil", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		n, err := wantNumber(builtins["ceil"], args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFloat(math.Ceil(n)), nil
	}})
	register(&Function{Name: "round", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		n, err := wantNumber(builtins["round"], args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFloat(math.Round(n)), nil
	}})
	register(&Function{Name: "sqrt", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		n, err := wantNumber(builtins["sqrt"], args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFloat(math.Sqrt(n)), nil
	}})
}

func reduceNumeric(f *Function, args []value.Value, better func(a, b float64) bool) (value.Value, error) {
	elems := args
	if len(args) == 1 && args[0].IsArray() {
		elems = args[0].ArrayElems()
	}
	if len(elems) == 0 {
		return value.Value{}, ordoerr.NewFunctionArgError(f.Name, "empty argument list")
	}
	allInt := true
	best := elems[0]
	bestF, err := wantNumber(f, elems, 0)
	if err != nil {
		return value.Value{}, err
	}
	if !elems[0].IsInt() {
		allInt = false
	}
	for _, e := range elems[1:] {
		if !e.IsInt() {
			allInt = false
		}
		v, err := wantNumber(f, []value.Value{e}, 0)
		if err != nil {
			return value.Value{}, err
		}
		if better(v, bestF) {
			bestF = v
			best = e
		}
	}
	if allInt {
		return value.NewInt(best.Int()), nil
	}
	return value.NewFloat(bestF), nil
}

func registerArrayFunctions() {
	register(&Function{Name: "sum", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		if !args[0].IsArray() {
			return value.Value{}, ordoerr.NewFunctionArgError("sum", "expected array argument")
		}
		elems := args[0].ArrayElems()
		allInt := true
		var isum int64
		var fsum float64
		for _, e := range elems {
			if !e.IsNumber() {
				return value.Value{}, ordoerr.NewFunctionArgError("sum", "array must be numeric")
			}
			if !e.IsInt() {
				allInt = false
			}
			fsum += e.AsFloat()
			if e.IsInt() {
				isum += e.Int()
			}
		}
		if allInt {
			return value.NewInt(isum), nil
		}
		return value.NewFloat(fsum), nil
	}})
	register(&Function{Name: "avg", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		if !args[0].IsArray() {
			return value.Value{}, ordoerr.NewFunctionArgError("avg", "expected array argument")
		}
		elems := args[0].ArrayElems()
		if len(elems) == 0 {
			return value.Value{}, ordoerr.NewFunctionArgError("avg", "empty array")
		}
		var total float64
		for _, e := range elems {
			if !e.IsNumber() {
				return value.Value{}, ordoerr.NewFunctionArgError("avg", "array must be numeric")
			}
			total += e.AsFloat()
		}
		return value.NewFloat(total / float64(len(elems))), nil
	}})
	register(&Function{Name: "count", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		if !args[0].IsArray() {
			return value.Value{}, ordoerr.NewFunctionArgError("count", "expected array argument")
		}
		return value.NewInt(int64(len(args[0].ArrayElems()))), nil
	}})
	register(&Function{Name: "first", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		if !args[0].IsArray() {
			return value.Value{}, ordoerr.NewFunctionArgError("first", "expected array argument")
		}
		elems := args[0].ArrayElems()
		if len(elems) == 0 {
			return value.NewNull(), nil
		}
		return elems[0], nil
	}})
	register(&Function{Name: "last", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		if !args[0].IsArray() {
			return value.Value{}, ordoerr.NewFunctionArgError("last", "expected array argument")
		}
		elems := args[0].ArrayElems()
		if len(elems) == 0 {
			return value.NewNull(), nil
		}
		return elems[len(elems)-1], nil
	}})
}

func registerTypeFunctions() {
	register(&Function{Name: "type", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		return value.NewString(args[0].Tag().String()), nil
	}})
	register(&Function{Name: "is_null", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		return value.NewBool(args[0].IsNull()), nil
	}})
	register(&Function{Name: "is_number", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		return value.NewBool(args[0].IsNumber()), nil
	}})
	register(&Function{Name: "is_string", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		return value.NewBool(args[0].IsString()), nil
	}})
	register(&Function{Name: "is_array", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		return value.NewBool(args[0].IsArray()), nil
	}})
}

func registerConversionFunctions() {
	register(&Function{Name: "to_int", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		switch {
		case args[0].IsInt():
			return args[0], nil
		case args[0].IsFloat():
			return value.NewInt(int64(args[0].Float())), nil
		case args[0].IsBool():
			if args[0].Bool() {
				return value.NewInt(1), nil
			}
			return value.NewInt(0), nil
		case args[0].IsString():
			i, err := strconv.ParseInt(strings.TrimSpace(args[0].Str()), 10, 64)
			if err != nil {
				return value.Value{}, ordoerr.NewFunctionArgError("to_int", "cannot parse string as int")
			}
			return value.NewInt(i), nil
		default:
			return value.Value{}, ordoerr.NewFunctionArgError("to_int", "unsupported argument type")
		}
	}})
	register(&Function{Name: "to_float", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		switch {
		case args[0].IsNumber():
			return value.NewFloat(args[0].AsFloat()), nil
		case args[0].IsString():
			f, err := strconv.ParseFloat(strings.TrimSpace(args[0].Str()), 64)
			if err != nil {
				return value.Value{}, ordoerr.NewFunctionArgError("to_float", "cannot parse string as float")
			}
			return value.NewFloat(f), nil
		default:
			return value.Value{}, ordoerr.NewFunctionArgError("to_float", "unsupported argument type")
		}
	}})
	register(&Function{Name: "to_string", MinArgs: 1, MaxArgs: 1, Pure: true, Call: func(args []value.Value) (value.Value, error) {
		return value.NewString(args[0].String()), nil
	}})
}

func registerTimeFunctions() {
	register(&Function{Name: "now", MinArgs: 0, MaxArgs: 0, Pure: false, Call: func(args []value.Value) (value.Value, error) {
		return value.NewInt(time.Now().Unix()), nil
	}})
	register(&Function{Name: "now_millis", MinArgs: 0, MaxArgs: 0, Pure: false, Call: func(args []value.Value) (value.Value, error) {
		return value.NewInt(time.Now().UnixMilli()), nil
	}})
}
