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

// Package ordoerr defines the engine's error taxonomy. Every error the
// parser, optimizer, compiler, VM, JIT and rule executor raise is one of
// the typed values below, so callers can recover with errors.As instead of
// string matching.
package ordoerr

import "fmt"

// ParseError reports a syntax error while parsing an expression. Location,
// when set, is the zero-based rune offset into the source, as text.
type ParseError struct {
	Message  string
	Location string
}

func (e *ParseError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func NewParseError(message string) *ParseError { return &ParseError{Message: message} }

func NewParseErrorAt(message, location string) *ParseError {
	return &ParseError{Message: message, Location: location}
}

// EvalError reports a failure evaluating an already-parsed expression that
// isn't covered by one of the more specific types below. Expr, when set,
// is a rendering of the offending subexpression for diagnostics.
type EvalError struct {
	Message string
	Expr    string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluation error: %s", e.Message)
}

func NewEvalError(message string) *EvalError { return &EvalError{Message: message} }

func NewEvalErrorExpr(message, expr string) *EvalError {
	return &EvalError{Message: message, Expr: expr}
}

// TypeError reports an operator or function applied to operands of the
// wrong kind.
type TypeError struct {
	Expected string
	Actual   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error: expected %s, got %s", e.Expected, e.Actual)
}

func NewTypeError(expected, actual string) *TypeError {
	return &TypeError{Expected: expected, Actual: actual}
}

// FieldNotFound reports a dotted-path lookup that failed to resolve. It is
// the one error kind Lenient field-missing policy is allowed to recover
// from during condition evaluation.
type FieldNotFound struct {
	Field string
}

func (e *FieldNotFound) Error() string {
	return fmt.Sprintf("field not found: %s", e.Field)
}

func NewFieldNotFound(field string) *FieldNotFound { return &FieldNotFound{Field: field} }

// FunctionNotFound reports a call to a builtin name the function registry
// doesn't know.
type FunctionNotFound struct {
	Name string
}

func (e *FunctionNotFound) Error() string {
	return fmt.Sprintf("function not found: %s", e.Name)
}

func NewFunctionNotFound(name string) *FunctionNotFound { return &FunctionNotFound{Name: name} }

// FunctionArgError reports a builtin called with the wrong arity or
// argument types.
type FunctionArgError struct {
	Name    string
	Message string
}

func (e *FunctionArgError) Error() string {
	return fmt.Sprintf("function %s argument error: %s", e.Name, e.Message)
}

func NewFunctionArgError(name, message string) *FunctionArgError {
	return &FunctionArgError{Name: name, Message: message}
}

// RuleSetNotFound reports a lookup for a ruleset name the host doesn't
// have loaded.
type RuleSetNotFound struct {
	Name string
}

func (e *RuleSetNotFound) Error() string {
	return fmt.Sprintf("ruleset not found: %s", e.Name)
}

func NewRuleSetNotFound(name string) *RuleSetNotFound { return &RuleSetNotFound{Name: name} }

// StepNotFound reports a branch/next-step reference to a step id that
// doesn't exist in the compiled ruleset.
type StepNotFound struct {
	StepID string
}

func (e *StepNotFound) Error() string {
	return fmt.Sprintf("step not found: %s", e.StepID)
}

func NewStepNotFound(stepID string) *StepNotFound { return &StepNotFound{StepID: stepID} }

// Timeout reports an execution that exceeded its wall-clock budget.
type Timeout struct {
	TimeoutMS uint64
}

func (e *Timeout) Error() string {
	return fmt.Sprintf("execution timeout: %dms", e.TimeoutMS)
}

func NewTimeout(timeoutMS uint64) *Timeout { return &Timeout{TimeoutMS: timeoutMS} }

// MaxDepthExceeded reports an execution that walked more steps than the
// configured depth guard allows, most often a step cycle.
type MaxDepthExceeded struct {
	MaxDepth int
}

func (e *MaxDepthExceeded) Error() string {
	return fmt.Sprintf("max execution depth exceeded: %d", e.MaxDepth)
}

func NewMaxDepthExceeded(maxDepth int) *MaxDepthExceeded { return &MaxDepthExceeded{MaxDepth: maxDepth} }

// ConfigError reports a malformed or inconsistent ruleset/engine
// configuration discovered at load or compile time.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s", e.Message)
}

func NewConfigError(message string) *ConfigError { return &ConfigError{Message: message} }

// InternalError reports a condition the engine considers a bug in itself
// rather than bad input — an invariant the compiler or VM assumed always
// holds turned out not to.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Message)
}

func NewInternalError(message string) *InternalError { return &InternalError{Message: message} }
