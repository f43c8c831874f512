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
	"hash/fnv"
	"strconv"

	"github.com/launix-de/ordo-engine/value"
)

// Hash computes a 64-bit FNV-1a digest over a canonical serialization of
// e, stable across structurally-identical expressions regardless of
// SourceInfo (parse position never affects the hash, so two differently
// formatted but equivalent expressions share a profiler/cache entry).
// This is the key the profiler, the bytecode cache, and the JIT cache all
// use to identify "the same expression".
func Hash(e Expr) uint64 {
	h := fnv.New64a()
	writeCanon(h, e)
	return h.Sum64()
}

func writeCanon(h interface{ Write([]byte) (int, error) }, e Expr) {
	switch n := e.(type) {
	case *Literal:
		h.Write([]byte{'L'})
		writeCanonValue(h, n.Value)
	case *Field:
		h.Write([]byte{'F'})
		h.Write([]byte(n.Path))
	case *Exists:
		h.Write([]byte{'X'})
		h.Write([]byte(n.Path))
	case *Unary:
		h.Write([]byte{'U', byte(n.Op)})
		writeCanon(h, n.Operand)
	case *Binary:
		h.Write([]byte{'B', byte(n.Op)})
		writeCanon(h, n.Left)
		writeCanon(h, n.Right)
	case *Conditional:
		h.Write([]byte{'C'})
		writeCanon(h, n.Condition)
		writeCanon(h, n.Then)
		writeCanon(h, n.Else)
	case *Coalesce:
		h.Write([]byte{'O'})
		for _, sub := range n.Exprs {
			writeCanon(h, sub)
		}
	case *Array:
		h.Write([]byte{'A'})
		for _, sub := range n.Elems {
			writeCanon(h, sub)
		}
	case *Object:
		h.Write([]byte{'M'})
		for _, entry := range n.Entries {
			h.Write([]byte(entry.Key))
			writeCanon(h, entry.Value)
		}
	case *Call:
		h.Write([]byte{'P'})
		h.Write([]byte(n.Name))
		for _, sub := range n.Args {
			writeCanon(h, sub)
		}
	}
}

func writeCanonValue(h interface{ Write([]byte) (int, error) }, v value.Value) {
	switch v.Tag() {
	case value.Null:
		h.Write([]byte{'n'})
	case value.Bool:
		if v.Bool() {
			h.Write([]byte{'t'})
		} else {
			h.Write([]byte{'f'})
		}
	case value.Int:
		h.Write([]byte{'i'})
		h.Write([]byte(strconv.FormatInt(v.Int(), 10)))
	case value.Float:
		h.Write([]byte{'d'})
		h.Write([]byte(strconv.FormatFloat(v.Float(), 'g', -1, 64)))
	case value.String:
		h.Write([]byte{'s'})
		h.Write([]byte(v.Str()))
	case value.Array:
		h.Write([]byte{'a'})
		for _, e := range v.ArrayElems() {
			writeCanonValue(h, e)
		}
	case value.Object:
		h.Write([]byte{'o'})
		for _, p := range v.ObjectPairs() {
			h.Write([]byte(p.Key))
			writeCanonValue(h, p.Value)
		}
	}
}
