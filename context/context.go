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

// Package context implements the per-execution evaluation environment: one
// immutable input Value plus a mutable variable map that rule actions
// write to. Unlike scm's Env (scm/scm.go), there is no lexical nesting —
// every execution gets exactly one flat variable scope, never shared
// across goroutines.
package context

import (
	"strings"

	"github.com/launix-de/ordo-engine/value"
)

// VariableSigil marks a path reference as resolving against the variable
// map instead of the input document, per the parser's identifier grammar.
const VariableSigil = "$"

// Context is the per-execution binding of the input value and the mutable
// variable map a SetVariable action writes into. Each rule execution
// constructs its own Context; none is ever shared between executions.
type Context struct {
	input value.Value
	vars  map[string]value.Value
}

// New builds a Context over input with an empty variable map.
func New(input value.Value) *Context {
	return &Context{input: input, vars: make(map[string]value.Value)}
}

// Input returns the context's input document.
func (c *Context) Input() value.Value { return c.input }

// SetVariable binds name in the variable map, overwriting any previous
// binding. name is given without the leading sigil.
func (c *Context) SetVariable(name string, v value.Value) {
	c.vars[name] = v
}

// GetVariable looks up a variable by its bare name (no sigil).
func (c *Context) GetVariable(name string) (value.Value, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Variables returns the live variable map snapshot for trace capture.
// Callers must not mutate the returned map.
func (c *Context) Variables() map[string]value.Value {
	return c.vars
}

// Resolve resolves a path reference against either the variable map or
// the input document, per the sigil rule: a path beginning with "$"
// resolves against variables first, using the remainder of the path
// (after the sigil and the variable name) to descend into the bound
// value; any other path resolves against the input document directly.
func (c *Context) Resolve(path string) (value.Value, bool) {
	if strings.HasPrefix(path, VariableSigil) {
		rest := path[len(VariableSigil):]
		name, sub, _ := strings.Cut(rest, ".")
		v, ok := c.GetVariable(name)
		if !ok {
			return value.Value{}, false
		}
		if sub == "" {
			return v, true
		}
		return v.Path(sub)
	}
	return c.input.Path(path)
}
