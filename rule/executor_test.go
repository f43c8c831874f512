package rule

import (
	"bytes"
	"strings"
	"testing"

	"github.com/launix-de/ordo-engine/expr"
	"github.com/launix-de/ordo-engine/expr/profiler"
	"github.com/launix-de/ordo-engine/expr/tiered"
	"github.com/launix-de/ordo-engine/trace"
	"github.com/launix-de/ordo-engine/value"
)

func newTestExecutor() *Executor {
	ev := tiered.New(profiler.New(), nil)
	return NewExecutor(ev, nil, nil, nil, nil)
}

func mustCompile(t *testing.T, r *RuleSet) *CompiledRuleSet {
	t.Helper()
	cr, err := Compile(r)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return cr
}

func TestExecuteRoutesBigBranch(t *testing.T) {
	cr := mustCompile(t, simpleRuleSet())
	ex := newTestExecutor()
	input := value.NewObject([]value.Pair{{Key: "amount", Value: value.NewInt(500)}})

	res, err := ex.Execute(cr, input, Options{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Code != "big" {
		t.Fatalf("Code = %q, want %q", res.Code, "big")
	}
}

func TestExecuteRoutesSmallBranchViaDefault(t *testing.T) {
	cr := mustCompile(t, simpleRuleSet())
	ex := newTestExecutor()
	input := value.NewObject([]value.Pair{{Key: "amount", Value: value.NewInt(10)}})

	res, err := ex.Execute(cr, input, Options{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Code != "small" {
		t.Fatalf("Code = %q, want %q", res.Code, "small")
	}
}

func missingFieldRuleSet(fm FieldMissingBehavior) *RuleSet {
	r := New(Config{Name: "t", EntryStep: "start", MaxDepth: 10, FieldMissing: fm})
	r.AddStep(Step{
		ID:          "start",
		Name:        "start",
		Kind:        StepDecision,
		Branches:    []Branch{{Condition: SourceCondition("missing_field > 1"), NextStep: "hit"}},
		DefaultNext: "miss",
	})
	r.AddStep(Step{ID: "hit", Name: "hit", Kind: StepTerminal, Result: TerminalResult{Code: "hit"}})
	r.AddStep(Step{ID: "miss", Name: "miss", Kind: StepTerminal, Result: TerminalResult{Code: "miss"}})
	return r
}

func TestExecuteLenientFieldMissingFallsThroughToDefault(t *testing.T) {
	cr := mustCompile(t, missingFieldRuleSet(Lenient))
	ex := newTestExecutor()
	input := value.NewObject(nil)

	res, err := ex.Execute(cr, input, Options{})
	if err != nil {
		t.Fatalf("Execute failed under Lenient policy: %v", err)
	}
	if res.Code != "miss" {
		t.Fatalf("Code = %q, want %q", res.Code, "miss")
	}
}

func TestExecuteStrictFieldMissingPropagatesError(t *testing.T) {
	cr := mustCompile(t, missingFieldRuleSet(Strict))
	ex := newTestExecutor()
	input := value.NewObject(nil)

	if _, err := ex.Execute(cr, input, Options{}); err == nil {
		t.Fatal("expected Strict field-missing policy to propagate an error")
	}
}

func terminalMergeRuleSet() *RuleSet {
	r := New(Config{Name: "t", EntryStep: "start", MaxDepth: 10})
	srcExpr, err := expr.Parse("1 + 1")
	if err != nil {
		panic(err)
	}
	r.AddStep(Step{
		ID:   "start",
		Name: "start",
		Kind: StepTerminal,
		Result: TerminalResult{
			Code:       "ok",
			Output:     []OutputField{{Key: "computed", Expr: srcExpr}, {Key: "shared", Expr: srcExpr}},
			StaticData: map[string]value.Value{"shared": value.NewString("static-wins")},
		},
	})
	return r
}

func TestExecuteTerminalStaticDataOverwritesComputedOutput(t *testing.T) {
	cr := mustCompile(t, terminalMergeRuleSet())
	ex := newTestExecutor()

	res, err := ex.Execute(cr, value.NewObject(nil), Options{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got, ok := res.Output["computed"]; !ok || got.AsFloat() != 2 {
		t.Fatalf("computed output = %+v, want 2", got)
	}
	shared, ok := res.Output["shared"]
	if !ok {
		t.Fatal("shared output key missing")
	}
	if !shared.IsString() || shared.Str() != "static-wins" {
		t.Fatalf("shared output = %+v, want the static-data string to win", shared)
	}
}

func cyclicRuleSet() *RuleSet {
	r := New(Config{Name: "t", EntryStep: "a", MaxDepth: 3})
	r.AddStep(Step{ID: "a", Name: "a", Kind: StepAction, Next: "b"})
	r.AddStep(Step{ID: "b", Name: "b", Kind: StepAction, Next: "a"})
	return r
}

func TestExecuteTripsMaxDepthGuardOnCycle(t *testing.T) {
	cr := mustCompile(t, cyclicRuleSet())
	ex := newTestExecutor()

	if _, err := ex.Execute(cr, value.NewObject(nil), Options{}); err == nil {
		t.Fatal("expected a max-depth error on a cyclic step graph")
	}
}

func TestExecuteMaxDepthOverrideFromOptions(t *testing.T) {
	cr := mustCompile(t, cyclicRuleSet())
	ex := newTestExecutor()
	override := 1

	_, err := ex.Execute(cr, value.NewObject(nil), Options{MaxDepth: &override})
	if err == nil {
		t.Fatal("expected the lower MaxDepth override to trip the guard sooner")
	}
}

func logActionRuleSet() *RuleSet {
	r := New(Config{Name: "t", EntryStep: "log", MaxDepth: 10})
	r.AddStep(Step{
		ID:   "log",
		Name: "log",
		Kind: StepAction,
		Actions: []Action{
			{Kind: ActionLog, Message: "hello", Level: "info"},
		},
		Next: "done",
	})
	r.AddStep(Step{ID: "done", Name: "done", Kind: StepTerminal, Result: TerminalResult{Code: "done"}})
	return r
}

func TestExecuteLogActionWritesThroughLogger(t *testing.T) {
	cr := mustCompile(t, logActionRuleSet())
	ev := tiered.New(profiler.New(), nil)
	var buf bytes.Buffer
	logger := trace.NewFileLogger(&buf)
	ex := NewExecutor(ev, nil, logger, nil, nil)

	res, err := ex.Execute(cr, value.NewObject(nil), Options{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Code != "done" {
		t.Fatalf("Code = %q, want %q", res.Code, "done")
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("logger output = %q, want it to contain the logged message", buf.String())
	}
}

type recordingMetrics struct {
	gauges []float64
}

func (m *recordingMetrics) RecordGauge(name string, v float64, tags map[string]string) {
	m.gauges = append(m.gauges, v)
}
func (m *recordingMetrics) RecordCounter(name string, v float64, tags map[string]string) {}

func metricActionRuleSet() *RuleSet {
	r := New(Config{Name: "t", EntryStep: "m", MaxDepth: 10})
	metricExpr, err := expr.Parse("42")
	if err != nil {
		panic(err)
	}
	r.AddStep(Step{
		ID:   "m",
		Name: "m",
		Kind: StepAction,
		Actions: []Action{
			{Kind: ActionMetric, MetricName: "score", MetricExpr: metricExpr},
		},
		Next: "done",
	})
	r.AddStep(Step{ID: "done", Name: "done", Kind: StepTerminal, Result: TerminalResult{Code: "done"}})
	return r
}

func TestExecuteMetricActionRecordsGauge(t *testing.T) {
	cr := mustCompile(t, metricActionRuleSet())
	ev := tiered.New(profiler.New(), nil)
	metrics := &recordingMetrics{}
	ex := NewExecutor(ev, nil, nil, metrics, nil)

	if _, err := ex.Execute(cr, value.NewObject(nil), Options{}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(metrics.gauges) != 1 || metrics.gauges[0] != 42 {
		t.Fatalf("recorded gauges = %v, want [42]", metrics.gauges)
	}
}

func TestExecuteExternalCallWithoutCallerFails(t *testing.T) {
	r := New(Config{Name: "t", EntryStep: "c", MaxDepth: 10})
	r.AddStep(Step{
		ID:      "c",
		Name:    "c",
		Kind:    StepAction,
		Actions: []Action{{Kind: ActionExternalCall, CallName: "notify"}},
		Next:    "done",
	})
	r.AddStep(Step{ID: "done", Name: "done", Kind: StepTerminal, Result: TerminalResult{Code: "done"}})
	cr := mustCompile(t, r)
	ex := newTestExecutor()

	if _, err := ex.Execute(cr, value.NewObject(nil), Options{}); err == nil {
		t.Fatal("expected ExternalCall with no injected caller to fail")
	}
}

func TestExecuteIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	cr := mustCompile(t, simpleRuleSet())
	ex := newTestExecutor()
	input := value.NewObject([]value.Pair{{Key: "amount", Value: value.NewInt(500)}})

	first, err := ex.Execute(cr, input, Options{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	for i := 0; i < 20; i++ {
		res, err := ex.Execute(cr, input, Options{})
		if err != nil {
			t.Fatalf("Execute failed on iteration %d: %v", i, err)
		}
		if res.Code != first.Code {
			t.Fatalf("iteration %d: Code = %q, want %q", i, res.Code, first.Code)
		}
	}
}

func TestExecuteTraceCapturesStepPath(t *testing.T) {
	cr := mustCompile(t, simpleRuleSet())
	ex := newTestExecutor()
	input := value.NewObject([]value.Pair{{Key: "amount", Value: value.NewInt(500)}})

	res, err := ex.Execute(cr, input, Options{Trace: &trace.Config{Enabled: true}})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Trace == nil {
		t.Fatal("expected a trace when tracing is enabled")
	}
	if len(res.Trace.Path) != 2 {
		t.Fatalf("trace path = %v, want 2 steps (start, big)", res.Trace.Path)
	}
	if res.Trace.Path[0] != "start" || res.Trace.Path[1] != "big" {
		t.Fatalf("trace path = %v, want [start big]", res.Trace.Path)
	}
}
