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

// Package value implements the engine's dynamic value model: a tagged union
// over null, bool, int64, float64, string, array and object, with the mixed
// numeric promotion and dotted-path lookup rules the expression language and
// rule executor both depend on.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Tag identifies which alternative of the union a Value currently holds.
type Tag uint8

const (
	Null Tag = iota
	Bool
	Int
	Float
	String
	Array
	Object
)

func (t Tag) String() string {
	switch t {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Pair is a single key/value entry of an Object. Objects preserve insertion
// order for stable iteration and serialization, the way scm's assoc lists
// (scm/assoc_fast.go) preserve declaration order.
type Pair struct {
	Key   string
	Value Value
}

// Value is the engine's tagged dynamic value. The zero Value is Null.
type Value struct {
	tag Tag
	b   bool
	i   int64
	f   float64
	s   string
	arr []Value
	obj []Pair
}

func NewNull() Value           { return Value{tag: Null} }
func NewBool(b bool) Value     { return Value{tag: Bool, b: b} }
func NewInt(i int64) Value     { return Value{tag: Int, i: i} }
func NewFloat(f float64) Value { return Value{tag: Float, f: f} }
func NewString(s string) Value { return Value{tag: String, s: s} }
func NewArray(a []Value) Value { return Value{tag: Array, arr: a} }

// NewObject builds an Object from pairs in the given order. Later duplicate
// keys overwrite earlier ones, matching ordinary map-insert semantics.
func NewObject(pairs []Pair) Value {
	out := make([]Pair, 0, len(pairs))
	idx := make(map[string]int, len(pairs))
	for _, p := range pairs {
		if i, ok := idx[p.Key]; ok {
			out[i] = p
			continue
		}
		idx[p.Key] = len(out)
		out = append(out, p)
	}
	return Value{tag: Object, obj: out}
}

func (v Value) Tag() Tag { return v.tag }

func (v Value) IsNull() bool   { return v.tag == Null }
func (v Value) IsBool() bool   { return v.tag == Bool }
func (v Value) IsInt() bool    { return v.tag == Int }
func (v Value) IsFloat() bool  { return v.tag == Float }
func (v Value) IsNumber() bool { return v.tag == Int || v.tag == Float }
func (v Value) IsString() bool { return v.tag == String }
func (v Value) IsArray() bool  { return v.tag == Array }
func (v Value) IsObject() bool { return v.tag == Object }

func (v Value) Bool() bool     { return v.b }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Str() string    { return v.s }
func (v Value) ArrayElems() []Value { return v.arr }
func (v Value) ObjectPairs() []Pair { return v.obj }

// AsFloat promotes Int to Float for mixed-numeric arithmetic; panics (via
// caller type checks) are never raised here, callers check IsNumber first.
func (v Value) AsFloat() float64 {
	if v.tag == Int {
		return float64(v.i)
	}
	return v.f
}

// Truthy implements spec §3's truthiness rule: null, false, numeric zero and
// empty string/array/object are falsy; everything else is truthy.
func (v Value) Truthy() bool {
	switch v.tag {
	case Null:
		return false
	case Bool:
		return v.b
	case Int:
		return v.i != 0
	case Float:
		return v.f != 0
	case String:
		return v.s != ""
	case Array:
		return len(v.arr) > 0
	case Object:
		return len(v.obj) > 0
	default:
		return false
	}
}

// Get looks up a key on an Object value; ok is false if v is not an Object
// or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.tag != Object {
		return Value{}, false
	}
	for _, p := range v.obj {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// Index looks up a numeric index on an Array value.
func (v Value) Index(i int) (Value, bool) {
	if v.tag != Array || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i], true
}

// Path resolves a dotted path against v: object keys descend into Object
// values, a segment consisting only of digits indexes into Array values.
func (v Value) Path(path string) (Value, bool) {
	if path == "" {
		return v, true
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		if cur.tag == Object {
			next, ok := cur.Get(seg)
			if !ok {
				return Value{}, false
			}
			cur = next
			continue
		}
		if cur.tag == Array {
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return Value{}, false
			}
			next, ok := cur.Index(idx)
			if !ok {
				return Value{}, false
			}
			cur = next
			continue
		}
		return Value{}, false
	}
	return cur, true
}

// Equal implements structural equality with mixed int/float promotion, the
// way scm/compare.go's Equal() promotes across its own tag pairs.
func Equal(a, b Value) bool {
	if a.tag == Int && b.tag == Float {
		return float64(a.i) == b.f
	}
	if a.tag == Float && b.tag == Int {
		return a.f == float64(b.i)
	}
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case Null:
		return true
	case Bool:
		return a.b == b.b
	case Int:
		return a.i == b.i
	case Float:
		return a.f == b.f
	case String:
		return a.s == b.s
	case Array:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(a.obj) != len(b.obj) {
			return false
		}
		am := make(map[string]Value, len(a.obj))
		for _, p := range a.obj {
			am[p.Key] = p.Value
		}
		for _, p := range b.obj {
			av, ok := am[p.Key]
			if !ok || !Equal(av, p.Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two values for <, <=, >, >= operators. Only numeric and
// string pairs are ordered; ok is false for anything else (the caller
// raises a TypeError).
func Compare(a, b Value) (result int, ok bool) {
	if a.IsNumber() && b.IsNumber() {
		af, bf := a.AsFloat(), b.AsFloat()
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if a.tag == String && b.tag == String {
		return strings.Compare(a.s, b.s), true
	}
	return 0, false
}

// String renders v for diagnostics and string-concatenation semantics.
func (v Value) String() string {
	switch v.tag {
	case Null:
		return "null"
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case String:
		return v.s
	case Array:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Object:
		keys := make([]string, len(v.obj))
		for i, p := range v.obj {
			keys[i] = p.Key
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(v.obj))
		for _, k := range keys {
			val, _ := v.Get(k)
			parts = append(parts, fmt.Sprintf("%s: %s", k, val.String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<invalid>"
	}
}
