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
	"time"

	"github.com/launix-de/ordo-engine/context"
	"github.com/launix-de/ordo-engine/expr/tiered"
	"github.com/launix-de/ordo-engine/ordoerr"
	"github.com/launix-de/ordo-engine/schema"
	"github.com/launix-de/ordo-engine/trace"
	"github.com/launix-de/ordo-engine/value"
)

// MetricSink is the injected sink a Metric action writes through, per
// spec §6's "metric sink interface".
type MetricSink interface {
	RecordGauge(name string, v float64, tags map[string]string)
	RecordCounter(name string, v float64, tags map[string]string)
}

// NopMetricSink discards every metric, the default when a host supplies
// none.
type NopMetricSink struct{}

func (NopMetricSink) RecordGauge(string, float64, map[string]string)   {}
func (NopMetricSink) RecordCounter(string, float64, map[string]string) {}

// ExternalCaller carries out an ExternalCall action. The core never
// performs the call itself — spec places transports out of scope — it
// only evaluates the call's argument expressions and hands the resolved
// values to the injected implementation.
type ExternalCaller interface {
	Call(name string, args map[string]value.Value) (value.Value, error)
}

// Options lets a single Execute call override the compiled ruleset's own
// trace/timeout/depth configuration, per spec §6.
type Options struct {
	Trace     *trace.Config
	TimeoutMS *uint64
	MaxDepth  *int
}

// ExecutionResult is the public result of one Execute call.
type ExecutionResult struct {
	Code       string
	Message    string
	Output     map[string]value.Value
	DurationUs int64
	Trace      *trace.ExecutionTrace
}

// Executor walks a CompiledRuleSet's step graph. One Executor is built
// once per process (or per schema) and reused across every execution;
// it holds no per-call state.
type Executor struct {
	evaluator  *tiered.Evaluator
	schemaRoot *schema.MessageSchema // nil disables the native-compiled path entirely
	logger     trace.Logger
	metrics    MetricSink
	external   ExternalCaller
}

// NewExecutor wires an Executor from its collaborators. logger/metrics/
// external may be nil; nil logger discards Log actions, nil metrics uses
// NopMetricSink, nil external fails any ExternalCall action with
// FunctionNotFound.
func NewExecutor(evaluator *tiered.Evaluator, schemaRoot *schema.MessageSchema, logger trace.Logger, metrics MetricSink, external ExternalCaller) *Executor {
	if metrics == nil {
		metrics = NopMetricSink{}
	}
	return &Executor{evaluator: evaluator, schemaRoot: schemaRoot, logger: logger, metrics: metrics, external: external}
}

// Execute walks cr from its entry step to a Terminal, a depth-guard
// trip, a timeout, or an unrecovered error.
func (ex *Executor) Execute(cr *CompiledRuleSet, input value.Value, opts Options) (*ExecutionResult, error) {
	maxDepth := cr.Config.MaxDepth
	if opts.MaxDepth != nil {
		maxDepth = *opts.MaxDepth
	}
	timeoutMS := cr.Config.TimeoutMS
	if opts.TimeoutMS != nil {
		timeoutMS = *opts.TimeoutMS
	}
	tcfg := trace.Config{Enabled: cr.Config.TraceEnabled}
	if opts.Trace != nil {
		tcfg = *opts.Trace
	}

	ctx := context.New(input)
	var tr *trace.ExecutionTrace
	if tcfg.Enabled {
		tr = trace.NewExecutionTrace()
	}

	start := time.Now()
	depth := 0
	current := cr.entryID

	for {
		if timeoutMS > 0 && time.Since(start) > time.Duration(timeoutMS)*time.Millisecond {
			return &ExecutionResult{DurationUs: time.Since(start).Microseconds(), Trace: tr}, ordoerr.NewTimeout(timeoutMS)
		}
		if depth >= maxDepth {
			return &ExecutionResult{DurationUs: time.Since(start).Microseconds(), Trace: tr}, ordoerr.NewMaxDepthExceeded(maxDepth)
		}
		step, ok := cr.steps[current]
		if !ok {
			return nil, ordoerr.NewStepNotFound(cr.StepName(current))
		}

		timer := trace.StartStep()
		switch step.kind {
		case StepDecision:
			next, err := ex.runDecision(cr, step, ctx)
			if err != nil {
				return nil, err
			}
			ex.recordStep(tr, tcfg, cr, step, timer, ctx, cr.StepName(next))
			current = next
			depth++

		case StepAction:
			if err := ex.runActions(step.actions, ctx); err != nil {
				return nil, err
			}
			ex.recordStep(tr, tcfg, cr, step, timer, ctx, cr.StepName(step.next))
			current = step.next
			depth++

		case StepTerminal:
			output, err := ex.buildOutput(step.result, ctx)
			if err != nil {
				return nil, err
			}
			ex.recordStep(tr, tcfg, cr, step, timer, ctx, "")
			return &ExecutionResult{
				Code:       step.result.Code,
				Message:    step.result.Message,
				Output:     output,
				DurationUs: time.Since(start).Microseconds(),
				Trace:      tr,
			}, nil
		}
	}
}

// runDecision evaluates step's branches in declaration order, running
// the first truthy branch's actions and returning its target, or the
// default edge, or a typed error if neither applies.
func (ex *Executor) runDecision(cr *CompiledRuleSet, step *compiledStep, ctx *context.Context) (uint32, error) {
	for _, b := range step.branches {
		matched, err := ex.evalCondition(cr, b.condition, ctx)
		if err != nil {
			return 0, err
		}
		if matched {
			if err := ex.runActions(b.actions, ctx); err != nil {
				return 0, err
			}
			return b.nextStep, nil
		}
	}
	if step.hasDefault {
		return step.defaultNext, nil
	}
	return 0, ordoerr.NewEvalError("decision step has no matching branch and no default")
}

// evalCondition evaluates c against ctx, applying the ruleset's
// field-missing policy: under Lenient, a FieldNotFound error degrades
// the condition to false instead of propagating.
func (ex *Executor) evalCondition(cr *CompiledRuleSet, c Condition, ctx *context.Context) (bool, error) {
	if c.Kind == CondAlways {
		return true, nil
	}
	v, err := ex.evaluator.Eval(c.Expr, ex.schemaRoot, ctx)
	if err != nil {
		if cr.Config.FieldMissing == Lenient {
			if _, ok := ordoerr.AsFieldNotFound(err); ok {
				return false, nil
			}
		}
		return false, err
	}
	return v.Truthy(), nil
}

// runActions executes actions in declaration order; the first error
// aborts the whole execution, per spec's "action errors abort".
func (ex *Executor) runActions(actions []Action, ctx *context.Context) error {
	for _, a := range actions {
		if err := ex.runAction(a, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (ex *Executor) runAction(a Action, ctx *context.Context) error {
	switch a.Kind {
	case ActionSetVariable:
		v, err := ex.evaluator.Eval(a.Expr, ex.schemaRoot, ctx)
		if err != nil {
			return err
		}
		ctx.SetVariable(a.VarName, v)
		return nil

	case ActionLog:
		if ex.logger != nil {
			ex.logger.Log(a.Level, a.Message, nil)
		}
		return nil

	case ActionMetric:
		v, err := ex.evaluator.Eval(a.MetricExpr, ex.schemaRoot, ctx)
		if err != nil {
			return err
		}
		if !v.IsNumber() && !v.IsBool() {
			if ex.logger != nil {
				ex.logger.Log("warn", "metric expression did not evaluate to a number", map[string]interface{}{"metric": a.MetricName})
			}
			return nil // non-numeric results are logged and skipped, not fatal
		}
		f := v.AsFloat()
		if v.IsBool() {
			f = 0
			if v.Bool() {
				f = 1
			}
		}
		ex.metrics.RecordGauge(a.MetricName, f, a.Tags)
		return nil

	case ActionExternalCall:
		if ex.external == nil {
			return ordoerr.NewFunctionNotFound(a.CallName)
		}
		args := make(map[string]value.Value, len(a.CallArgs))
		for name, e := range a.CallArgs {
			v, err := ex.evaluator.Eval(e, ex.schemaRoot, ctx)
			if err != nil {
				return err
			}
			args[name] = v
		}
		_, err := ex.external.Call(a.CallName, args)
		return err

	default:
		return ordoerr.NewInternalError("unknown action kind")
	}
}

// buildOutput evaluates result's output expressions into a map and then
// overwrites with StaticData entries on key collision — output first,
// static data second, per the resolved terminal-precedence decision.
func (ex *Executor) buildOutput(result TerminalResult, ctx *context.Context) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(result.Output)+len(result.StaticData))
	for _, f := range result.Output {
		v, err := ex.evaluator.Eval(f.Expr, ex.schemaRoot, ctx)
		if err != nil {
			return nil, err
		}
		out[f.Key] = v
	}
	for k, v := range result.StaticData {
		out[k] = v
	}
	return out, nil
}

func (ex *Executor) recordStep(tr *trace.ExecutionTrace, cfg trace.Config, cr *CompiledRuleSet, step *compiledStep, timer trace.StepTimer, ctx *context.Context, next string) {
	if tr == nil {
		return
	}
	st := trace.StepTrace{
		StepID:           cr.StepName(step.id),
		StepName:         step.name,
		DurationUs:       timer.ElapsedUs(),
		NextStepOrResult: next,
	}
	if cfg.CaptureInput {
		input := ctx.Input()
		st.InputSnapshot = &input
	}
	if cfg.CaptureVariables {
		vars := ctx.Variables()
		snapshot := make(map[string]value.Value, len(vars))
		for k, v := range vars {
			snapshot[k] = v
		}
		st.VariablesSnapshot = snapshot
	}
	tr.Append(cfg, st)
}
