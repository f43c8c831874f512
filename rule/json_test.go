package rule

import "testing"

const sampleRuleSetJSON = `{
  "config": {
    "name": "discount",
    "entry_step": "start",
    "field_missing": "lenient",
    "max_depth": 10,
    "timeout_ms": 50
  },
  "steps": {
    "start": {
      "id": "start",
      "name": "start",
      "kind": "decision",
      "branches": [
        {"condition": {"kind": "expr", "expr": "amount > 100"}, "next_step": "big"}
      ],
      "default_next": "small"
    },
    "big": {
      "id": "big",
      "name": "big",
      "kind": "terminal",
      "result": {
        "code": "big",
        "output": [{"key": "discount", "expr": "0.1"}],
        "static_data": {"tier": "gold"}
      }
    },
    "small": {
      "id": "small",
      "name": "small",
      "kind": "terminal",
      "result": {"code": "small"}
    }
  }
}`

func TestParseRuleSetDecodesDecisionAndTerminalSteps(t *testing.T) {
	r, err := ParseRuleSet([]byte(sampleRuleSetJSON))
	if err != nil {
		t.Fatalf("ParseRuleSet failed: %v", err)
	}
	if r.Config.EntryStep != "start" {
		t.Fatalf("EntryStep = %q, want %q", r.Config.EntryStep, "start")
	}
	if errs := r.Validate(); len(errs) != 0 {
		t.Fatalf("decoded ruleset failed Validate: %v", errs)
	}
	if _, err := Compile(r); err != nil {
		t.Fatalf("decoded ruleset failed Compile: %v", err)
	}
}

func TestParseRuleSetRejectsUnknownStepKind(t *testing.T) {
	bad := `{"config":{"entry_step":"a"},"steps":{"a":{"id":"a","kind":"bogus"}}}`
	if _, err := ParseRuleSet([]byte(bad)); err == nil {
		t.Fatal("expected an error for an unknown step kind")
	}
}

func TestParseRuleSetRejectsUnknownFieldMissing(t *testing.T) {
	bad := `{"config":{"entry_step":"a","field_missing":"whatever"},"steps":{"a":{"id":"a","kind":"terminal","result":{"code":"ok"}}}}`
	if _, err := ParseRuleSet([]byte(bad)); err == nil {
		t.Fatal("expected an error for an unknown field_missing value")
	}
}

func TestParseRuleSetDecodesStaticDataIntoValues(t *testing.T) {
	r, err := ParseRuleSet([]byte(sampleRuleSetJSON))
	if err != nil {
		t.Fatalf("ParseRuleSet failed: %v", err)
	}
	big := r.Steps["big"]
	tier, ok := big.Result.StaticData["tier"]
	if !ok || !tier.IsString() || tier.Str() != "gold" {
		t.Fatalf("static_data[tier] = %+v, want string %q", tier, "gold")
	}
}
