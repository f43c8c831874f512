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
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FromAny converts a Go value (typically the result of json.Unmarshal into
// an any, decoded with UseNumber so ints and floats stay distinguishable)
// into a Value. Mirrors scm/scmer.go's UnmarshalJSON "from" helper.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return NewNull()
	case bool:
		return NewBool(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return NewInt(i)
		}
		f, _ := t.Float64()
		return NewFloat(f)
	case float64:
		return NewFloat(t)
	case int:
		return NewInt(int64(t))
	case int64:
		return NewInt(t)
	case string:
		return NewString(t)
	case []any:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = FromAny(e)
		}
		return NewArray(arr)
	case map[string]any:
		pairs := make([]Pair, 0, len(t))
		for k, v := range t {
			pairs = append(pairs, Pair{Key: k, Value: FromAny(v)})
		}
		return NewObject(pairs)
	default:
		panic(fmt.Sprintf("value: cannot convert %T to Value", x))
	}
}

// ParseJSON decodes JSON text into a Value, preserving the int/float
// distinction via json.Number the way scm/scmer.go's UnmarshalJSON does.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Value{}, err
	}
	return FromAny(v), nil
}

// ToAny converts a Value into plain Go values (map[string]any, []any, ...)
// suitable for json.Marshal or for handing to host code.
func ToAny(v Value) any {
	switch v.tag {
	case Null:
		return nil
	case Bool:
		return v.b
	case Int:
		return v.i
	case Float:
		return v.f
	case String:
		return v.s
	case Array:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = ToAny(e)
		}
		return out
	case Object:
		out := make(map[string]any, len(v.obj))
		for _, p := range v.obj {
			out[p.Key] = ToAny(p.Value)
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler for embedding Values in host
// structures.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToAny(v))
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
