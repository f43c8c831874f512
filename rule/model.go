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

// Package rule models a ruleset as a flat step graph — edges are step id
// strings, not pointers, so cycles express loops rather than requiring a
// special loop construct — and provides the executor that walks it.
package rule

import (
	"github.com/launix-de/ordo-engine/expr"
	"github.com/launix-de/ordo-engine/value"
)

// FieldMissingBehavior controls what a condition does when one of its
// field references fails to resolve against the execution context.
type FieldMissingBehavior uint8

const (
	// Lenient degrades a condition referencing a missing field to false
	// instead of aborting the execution.
	Lenient FieldMissingBehavior = iota
	// Strict propagates the FieldNotFound error out of Execute.
	Strict
	// Default is reserved for a host-provided default value; the
	// executor respects the tag but supplies no default itself.
	Default
)

func (b FieldMissingBehavior) String() string {
	switch b {
	case Lenient:
		return "lenient"
	case Strict:
		return "strict"
	case Default:
		return "default"
	default:
		return "unknown"
	}
}

// Config carries the ruleset-wide settings §3 groups under RuleSet.config.
type Config struct {
	Name                 string
	Version              string
	Description          string
	EntryStep            string
	FieldMissing         FieldMissingBehavior
	MaxDepth             int
	TimeoutMS            uint64
	TraceEnabled         bool
	Metadata             map[string]string
}

// StepKind tags which of Step's three shapes is populated.
type StepKind uint8

const (
	StepDecision StepKind = iota
	StepAction
	StepTerminal
)

// ConditionKind tags a Condition's variant: an unconditional branch, one
// already parsed to an AST, or one still carried as source text (parsed
// lazily by Compile).
type ConditionKind uint8

const (
	CondAlways ConditionKind = iota
	CondParsedExpr
	CondExprString
)

// Condition is Always | ParsedExpr | ExprString, per §3.
type Condition struct {
	Kind   ConditionKind
	Expr   expr.Expr // populated when Kind == CondParsedExpr, or after Compile resolves a CondExprString
	Source string    // populated when Kind == CondExprString
}

// AlwaysCondition returns the unconditional branch condition.
func AlwaysCondition() Condition { return Condition{Kind: CondAlways} }

// ParsedCondition wraps an already-parsed expression.
func ParsedCondition(e expr.Expr) Condition { return Condition{Kind: CondParsedExpr, Expr: e} }

// SourceCondition carries raw expression text, parsed during Compile.
func SourceCondition(src string) Condition { return Condition{Kind: CondExprString, Source: src} }

// ActionKind tags which of Action's payloads is populated.
type ActionKind uint8

const (
	ActionSetVariable ActionKind = iota
	ActionLog
	ActionMetric
	ActionExternalCall
)

// Action is one side-effecting step executed in declaration order before
// following a decision branch or an action step's next edge.
type Action struct {
	Kind        ActionKind
	Description string

	// ActionSetVariable
	VarName string
	Expr    expr.Expr

	// ActionLog
	Message string
	Level   string

	// ActionMetric
	MetricName string
	MetricExpr expr.Expr
	Tags       map[string]string

	// ActionExternalCall — the core never performs the call itself
	// (spec places transports out of scope); it records the request so
	// a host-injected ExternalCaller can carry it out.
	CallName string
	CallArgs map[string]expr.Expr
}

// Branch is one of a Decision step's candidate edges.
type Branch struct {
	Condition Condition
	NextStep  string
	Actions   []Action
}

// OutputField is one key/expression pair a Terminal step evaluates into
// its output object, in declaration order.
type OutputField struct {
	Key  string
	Expr expr.Expr
}

// TerminalResult is the shape a Terminal step produces once its output
// expressions are evaluated and merged with StaticData.
type TerminalResult struct {
	Code       string
	Message    string
	Output     []OutputField
	StaticData map[string]value.Value
}

// Step is one node of the flat step graph: exactly one of Branches/
// DefaultNext (Decision), Actions/Next (Action), or Result (Terminal) is
// meaningful, selected by Kind.
type Step struct {
	ID   string
	Name string
	Kind StepKind

	// StepDecision
	Branches    []Branch
	DefaultNext string

	// StepAction
	Actions []Action
	Next    string

	// StepTerminal
	Result TerminalResult
}

// RuleSet is the uncompiled, host-constructed or host-deserialized form:
// a config plus a step-id-keyed map of steps.
type RuleSet struct {
	Config Config
	Steps  map[string]Step
}

// New builds an empty RuleSet with the given config.
func New(cfg Config) *RuleSet {
	return &RuleSet{Config: cfg, Steps: make(map[string]Step)}
}

// AddStep inserts or overwrites a step by id.
func (r *RuleSet) AddStep(s Step) {
	r.Steps[s.ID] = s
}
