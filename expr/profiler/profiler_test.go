package profiler

import "testing"

func TestClassifyScoreBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  Tier
	}{
		{0, TierNone},
		{9999, TierNone},
		{10000, TierLow},
		{49999, TierLow},
		{50000, TierNormal},
		{99999, TierNormal},
		{100000, TierHigh},
		{499999, TierHigh},
		{500000, TierCritical},
		{1e9, TierCritical},
	}
	for _, c := range cases {
		if got := ClassifyScore(c.score); got != c.want {
			t.Errorf("ClassifyScore(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestRecordExpressionAccumulates(t *testing.T) {
	p := New()
	p.RecordExpression(42, 100, 1000)
	p.RecordExpression(42, 300, 2000)

	snap, ok := p.ExpressionSnapshot(42)
	if !ok {
		t.Fatal("expected snapshot to exist")
	}
	if snap.Count != 2 {
		t.Errorf("Count = %d, want 2", snap.Count)
	}
	if snap.CumulativeNs != 400 {
		t.Errorf("CumulativeNs = %d, want 400", snap.CumulativeNs)
	}
	if snap.LastObserved != 2000 {
		t.Errorf("LastObserved = %d, want 2000", snap.LastObserved)
	}
}

func TestExpressionSnapshotMissingIsNotOK(t *testing.T) {
	p := New()
	if _, ok := p.ExpressionSnapshot(999); ok {
		t.Error("expected ok=false for unseen hash")
	}
}

func TestShouldJITRequiresMinimumTier(t *testing.T) {
	p := New()
	// one cheap observation: count=1, avgNs=1 -> score far below TierLow
	p.RecordExpression(1, 1, 1)
	if p.ShouldJIT(1) {
		t.Error("expected ShouldJIT to be false for a cold expression")
	}

	// count=1, avgNs=1000000 -> score = (1/10)*(1000000/100) = 1000, still below 10000
	p.RecordExpression(2, 1000*1000, 1)
	if p.ShouldJIT(2) {
		t.Error("expected ShouldJIT to be false below TierLow threshold")
	}

	// drive hash 3 well past TierLow: count=200, avgNs=6000 -> (200/10)*(6000/100) = 1200... still low.
	// Use large cumulative to clear TierLow (>=10000): count=1000, avgNs=2000 -> (1000/10)*(2000/100)=2000.
	// Push further: count=10000, avgNs=2000 -> (10000/10)*(2000/100) = 20000 >= TierLow.
	p.RecordExpression(3, 2000, 1)
	for i := 0; i < 9999; i++ {
		p.RecordExpression(3, 2000, 1)
	}
	if !p.ShouldJIT(3) {
		t.Error("expected ShouldJIT to be true once the hot score clears TierLow")
	}
}

func TestMarkJITTriggeredIsOneShot(t *testing.T) {
	p := New()
	p.RecordExpression(5, 2000, 1)
	for i := 0; i < 9999; i++ {
		p.RecordExpression(5, 2000, 1)
	}
	if !p.ShouldJIT(5) {
		t.Fatal("expected expression to be hot enough to JIT")
	}
	if !p.MarkJITTriggered(5) {
		t.Fatal("expected first MarkJITTriggered to succeed")
	}
	if p.MarkJITTriggered(5) {
		t.Error("expected second MarkJITTriggered to fail (already triggered)")
	}
	if p.ShouldJIT(5) {
		t.Error("expected ShouldJIT to be false once jitTriggered is set")
	}
}

func TestMarkJITTriggeredUnknownHashFails(t *testing.T) {
	p := New()
	if p.MarkJITTriggered(123456) {
		t.Error("expected MarkJITTriggered to fail for an unobserved hash")
	}
}

func TestRulePathRecordsAreSeparateFromExpressions(t *testing.T) {
	p := New()
	p.RecordExpression(7, 100, 1)
	p.RecordRulePath(7, []string{"step-a", "step-b"}, 500, 2)

	exprSnap, ok := p.ExpressionSnapshot(7)
	if !ok || exprSnap.Count != 1 {
		t.Fatalf("expected expression record with count 1, got %+v ok=%v", exprSnap, ok)
	}
	pathSnap, ok := p.RulePathSnapshot(7)
	if !ok || pathSnap.Count != 1 {
		t.Fatalf("expected rule path record with count 1, got %+v ok=%v", pathSnap, ok)
	}
	if len(pathSnap.StepIDs) != 2 || pathSnap.StepIDs[0] != "step-a" {
		t.Errorf("unexpected StepIDs: %v", pathSnap.StepIDs)
	}
}

func TestResetClearsBothStores(t *testing.T) {
	p := New()
	p.RecordExpression(1, 100, 1)
	p.RecordRulePath(2, []string{"s"}, 100, 1)
	p.Reset()

	if _, ok := p.ExpressionSnapshot(1); ok {
		t.Error("expected expression store to be cleared")
	}
	if _, ok := p.RulePathSnapshot(2); ok {
		t.Error("expected rule path store to be cleared")
	}
}

func TestAllExpressionSnapshotsReturnsEveryRecord(t *testing.T) {
	p := New()
	p.RecordExpression(1, 10, 1)
	p.RecordExpression(2, 20, 1)
	p.RecordExpression(3, 30, 1)

	all := p.AllExpressionSnapshots()
	if len(all) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(all))
	}
	seen := map[uint64]bool{}
	for _, s := range all {
		seen[s.Hash] = true
	}
	for _, h := range []uint64{1, 2, 3} {
		if !seen[h] {
			t.Errorf("missing snapshot for hash %d", h)
		}
	}
}
