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
	"encoding/json"
	"fmt"

	"github.com/launix-de/ordo-engine/expr"
	"github.com/launix-de/ordo-engine/value"
)

// The engine prescribes no wire format for a ruleset — hosts are free to
// invent their own — but cmd/ordo needs one to load rulesets from disk,
// so this file defines a JSON rendering using the field names §3 of the
// ruleset model uses. It round-trips RuleSet, not CompiledRuleSet: the
// hash compaction and condition resolution always happen in Compile.

type jsonConfig struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Description  string            `json:"description"`
	EntryStep    string            `json:"entry_step"`
	FieldMissing string            `json:"field_missing"`
	MaxDepth     int               `json:"max_depth"`
	TimeoutMS    uint64            `json:"timeout_ms"`
	TraceEnabled bool              `json:"trace_enabled"`
	Metadata     map[string]string `json:"metadata"`
}

type jsonCondition struct {
	Kind string `json:"kind"`
	Expr string `json:"expr,omitempty"`
}

type jsonAction struct {
	Kind        string            `json:"kind"`
	Description string            `json:"description,omitempty"`
	Name        string            `json:"name,omitempty"`
	Expr        string            `json:"expr,omitempty"`
	Message     string            `json:"message,omitempty"`
	Level       string            `json:"level,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	CallArgs    map[string]string `json:"args,omitempty"`
}

type jsonBranch struct {
	Condition jsonCondition `json:"condition"`
	NextStep  string        `json:"next_step"`
	Actions   []jsonAction  `json:"actions,omitempty"`
}

type jsonOutputField struct {
	Key  string `json:"key"`
	Expr string `json:"expr"`
}

type jsonTerminalResult struct {
	Code       string                     `json:"code"`
	Message    string                     `json:"message,omitempty"`
	Output     []jsonOutputField          `json:"output,omitempty"`
	StaticData map[string]json.RawMessage `json:"static_data,omitempty"`
}

type jsonStep struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`

	Branches    []jsonBranch `json:"branches,omitempty"`
	DefaultNext string       `json:"default_next,omitempty"`

	Actions []jsonAction `json:"actions,omitempty"`
	Next    string       `json:"next_step,omitempty"`

	Result *jsonTerminalResult `json:"result,omitempty"`
}

type jsonRuleSet struct {
	Config jsonConfig          `json:"config"`
	Steps  map[string]jsonStep `json:"steps"`
}

func parseFieldMissing(s string) (FieldMissingBehavior, error) {
	switch s {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	case "default":
		return Default, nil
	default:
		return 0, fmt.Errorf("unknown field_missing behavior %q", s)
	}
}

func decodeCondition(c jsonCondition) (Condition, error) {
	switch c.Kind {
	case "", "always":
		return AlwaysCondition(), nil
	case "expr", "expr_string":
		return SourceCondition(c.Expr), nil
	default:
		return Condition{}, fmt.Errorf("unknown condition kind %q", c.Kind)
	}
}

// decodeAction builds an Action from its JSON form. Unlike Condition,
// Action carries no "unparsed" variant, so every expression an action
// references is parsed here, eagerly, at load time rather than at
// Compile time.
func decodeAction(a jsonAction) (Action, error) {
	switch a.Kind {
	case "set_variable":
		e, err := expr.Parse(a.Expr)
		if err != nil {
			return Action{}, fmt.Errorf("set_variable %q: %w", a.Name, err)
		}
		return Action{Kind: ActionSetVariable, Description: a.Description, VarName: a.Name, Expr: e}, nil
	case "log":
		return Action{Kind: ActionLog, Description: a.Description, Message: a.Message, Level: a.Level}, nil
	case "metric":
		e, err := expr.Parse(a.Expr)
		if err != nil {
			return Action{}, fmt.Errorf("metric %q: %w", a.Name, err)
		}
		return Action{Kind: ActionMetric, Description: a.Description, MetricName: a.Name, MetricExpr: e, Tags: a.Tags}, nil
	case "external_call":
		args := make(map[string]expr.Expr, len(a.CallArgs))
		for argName, src := range a.CallArgs {
			e, err := expr.Parse(src)
			if err != nil {
				return Action{}, fmt.Errorf("external_call %q arg %q: %w", a.Name, argName, err)
			}
			args[argName] = e
		}
		return Action{Kind: ActionExternalCall, Description: a.Description, CallName: a.Name, CallArgs: args}, nil
	default:
		return Action{}, fmt.Errorf("unknown action kind %q", a.Kind)
	}
}

// ParseRuleSet decodes raw ruleset JSON (the §3 field names, snake_case)
// into a RuleSet. Branch conditions carrying source text stay unparsed
// (CondExprString), resolved later by Compile; every other expression —
// action expressions and terminal output expressions — is parsed here
// since neither Action nor OutputField has an "unparsed" variant.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var doc jsonRuleSet
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding ruleset json: %w", err)
	}

	fm, err := parseFieldMissing(doc.Config.FieldMissing)
	if err != nil {
		return nil, err
	}

	r := New(Config{
		Name:         doc.Config.Name,
		Version:      doc.Config.Version,
		Description:  doc.Config.Description,
		EntryStep:    doc.Config.EntryStep,
		FieldMissing: fm,
		MaxDepth:     doc.Config.MaxDepth,
		TimeoutMS:    doc.Config.TimeoutMS,
		TraceEnabled: doc.Config.TraceEnabled,
		Metadata:     doc.Config.Metadata,
	})

	for id, js := range doc.Steps {
		step, err := decodeStep(id, js)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", id, err)
		}
		r.AddStep(step)
	}
	return r, nil
}

func decodeStep(id string, js jsonStep) (Step, error) {
	step := Step{ID: id, Name: js.Name}
	switch js.Kind {
	case "decision":
		step.Kind = StepDecision
		step.DefaultNext = js.DefaultNext
		for _, jb := range js.Branches {
			cond, err := decodeCondition(jb.Condition)
			if err != nil {
				return Step{}, err
			}
			actions, err := decodeActions(jb.Actions)
			if err != nil {
				return Step{}, err
			}
			step.Branches = append(step.Branches, Branch{Condition: cond, NextStep: jb.NextStep, Actions: actions})
		}
	case "action":
		step.Kind = StepAction
		step.Next = js.Next
		actions, err := decodeActions(js.Actions)
		if err != nil {
			return Step{}, err
		}
		step.Actions = actions
	case "terminal":
		step.Kind = StepTerminal
		if js.Result == nil {
			return Step{}, fmt.Errorf("terminal step missing result")
		}
		tr := TerminalResult{Code: js.Result.Code, Message: js.Result.Message}
		for _, of := range js.Result.Output {
			e, err := expr.Parse(of.Expr)
			if err != nil {
				return Step{}, fmt.Errorf("output %q: %w", of.Key, err)
			}
			tr.Output = append(tr.Output, OutputField{Key: of.Key, Expr: e})
		}
		if len(js.Result.StaticData) > 0 {
			tr.StaticData = make(map[string]value.Value, len(js.Result.StaticData))
			for k, raw := range js.Result.StaticData {
				v, err := decodeStaticValue(raw)
				if err != nil {
					return Step{}, fmt.Errorf("static_data[%q]: %w", k, err)
				}
				tr.StaticData[k] = v
			}
		}
		step.Result = tr
	default:
		return Step{}, fmt.Errorf("unknown step kind %q", js.Kind)
	}
	return step, nil
}

func decodeActions(jas []jsonAction) ([]Action, error) {
	if len(jas) == 0 {
		return nil, nil
	}
	out := make([]Action, 0, len(jas))
	for _, ja := range jas {
		a, err := decodeAction(ja)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func decodeStaticValue(raw json.RawMessage) (value.Value, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return value.Value{}, err
	}
	return goValueToValue(v), nil
}

// ValueFromJSON decodes arbitrary JSON into a value.Value, the same
// conversion static_data entries go through. Hosts use it to turn a
// request body into the Value an Executor.Execute call takes as input.
func ValueFromJSON(data []byte) (value.Value, error) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return value.Value{}, err
	}
	return goValueToValue(v), nil
}

func goValueToValue(v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.NewNull()
	case bool:
		return value.NewBool(t)
	case float64:
		if t == float64(int64(t)) {
			return value.NewInt(int64(t))
		}
		return value.NewFloat(t)
	case string:
		return value.NewString(t)
	case []interface{}:
		arr := make([]value.Value, len(t))
		for i, e := range t {
			arr[i] = goValueToValue(e)
		}
		return value.NewArray(arr)
	case map[string]interface{}:
		pairs := make([]value.Pair, 0, len(t))
		for k, e := range t {
			pairs = append(pairs, value.Pair{Key: k, Value: goValueToValue(e)})
		}
		return value.NewObject(pairs)
	default:
		return value.NewNull()
	}
}
