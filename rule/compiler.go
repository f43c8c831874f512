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

package rule

import (
	"fmt"
	"hash/fnv"

	"github.com/launix-de/ordo-engine/expr"
	"github.com/launix-de/ordo-engine/ordoerr"
)

// compiledStep is Step with its id and every step reference it carries
// replaced by the 32-bit hash Compile assigned, and any source-text
// condition resolved to an AST.
type compiledStep struct {
	id   uint32
	name string
	kind StepKind

	branches    []compiledBranch
	defaultNext uint32
	hasDefault  bool

	actions []Action
	next    uint32
	hasNext bool

	result TerminalResult
}

type compiledBranch struct {
	condition Condition
	nextStep  uint32
	actions   []Action
}

// CompiledRuleSet is the form the executor runs: string step ids replaced
// by 32-bit hashes, every condition resolved to a parsed expression.
// Built once by Compile and shared read-only across every execution.
type CompiledRuleSet struct {
	Config  Config
	entryID uint32
	steps   map[uint32]*compiledStep
	names   map[uint32]string // hash -> original id, for error messages and trace paths
}

func hashStepID(id string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(id))
	return h.Sum32()
}

// Validate enforces the §3 invariants without compiling: the entry step
// must exist, and every next_step/default_next/branch reference must
// resolve to a step actually present in r.Steps. It does not check for
// 32-bit hash collisions — that check only matters once step ids are
// reduced to hashes, so it lives in Compile.
func (r *RuleSet) Validate() []error {
	var errs []error
	if r.Config.EntryStep == "" {
		errs = append(errs, ordoerr.NewConfigError("ruleset has no entry step"))
	} else if _, ok := r.Steps[r.Config.EntryStep]; !ok {
		errs = append(errs, ordoerr.NewStepNotFound(r.Config.EntryStep))
	}
	for id, step := range r.Steps {
		switch step.Kind {
		case StepDecision:
			for _, b := range step.Branches {
				if _, ok := r.Steps[b.NextStep]; !ok {
					errs = append(errs, fmt.Errorf("step %q: branch target %w", id, ordoerr.NewStepNotFound(b.NextStep)))
				}
			}
			if step.DefaultNext != "" {
				if _, ok := r.Steps[step.DefaultNext]; !ok {
					errs = append(errs, fmt.Errorf("step %q: default target %w", id, ordoerr.NewStepNotFound(step.DefaultNext)))
				}
			}
		case StepAction:
			if _, ok := r.Steps[step.Next]; !ok {
				errs = append(errs, fmt.Errorf("step %q: next target %w", id, ordoerr.NewStepNotFound(step.Next)))
			}
		case StepTerminal:
			// no outgoing reference to validate
		}
	}
	return errs
}

// Compile validates r, assigns every step id its 32-bit hash (failing on
// collision), parses any source-text conditions, and returns the
// read-only CompiledRuleSet the executor runs against.
func Compile(r *RuleSet) (*CompiledRuleSet, error) {
	if errs := r.Validate(); len(errs) > 0 {
		return nil, errs[0]
	}

	names := make(map[uint32]string, len(r.Steps))
	for id := range r.Steps {
		h := hashStepID(id)
		if existing, ok := names[h]; ok && existing != id {
			return nil, ordoerr.NewConfigError(fmt.Sprintf("step id hash collision: %q and %q both hash to %d", existing, id, h))
		}
		names[h] = id
	}

	cr := &CompiledRuleSet{
		Config:  r.Config,
		entryID: hashStepID(r.Config.EntryStep),
		steps:   make(map[uint32]*compiledStep, len(r.Steps)),
		names:   names,
	}

	for id, step := range r.Steps {
		cs := &compiledStep{id: hashStepID(id), name: step.Name, kind: step.Kind}
		switch step.Kind {
		case StepDecision:
			cs.branches = make([]compiledBranch, len(step.Branches))
			for i, b := range step.Branches {
				cond, err := resolveCondition(b.Condition)
				if err != nil {
					return nil, err
				}
				cs.branches[i] = compiledBranch{condition: cond, nextStep: hashStepID(b.NextStep), actions: b.Actions}
			}
			if step.DefaultNext != "" {
				cs.defaultNext = hashStepID(step.DefaultNext)
				cs.hasDefault = true
			}
		case StepAction:
			cs.actions = step.Actions
			cs.next = hashStepID(step.Next)
			cs.hasNext = true
		case StepTerminal:
			cs.result = step.Result
		}
		cr.steps[cs.id] = cs
	}
	return cr, nil
}

// resolveCondition parses a CondExprString into an AST, leaving the other
// two variants untouched.
func resolveCondition(c Condition) (Condition, error) {
	if c.Kind != CondExprString {
		return c, nil
	}
	e, err := expr.Parse(c.Source)
	if err != nil {
		return Condition{}, err
	}
	return Condition{Kind: CondParsedExpr, Expr: e}, nil
}

// StepName returns the original string id a compiled step's hash came
// from, for trace paths and error messages.
func (c *CompiledRuleSet) StepName(hash uint32) string {
	return c.names[hash]
}
