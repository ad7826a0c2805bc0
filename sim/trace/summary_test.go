package trace

import "testing"

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	// GIVEN no trace at all
	// WHEN summarized
	summary := Summarize(nil)

	// THEN all counts are zero and maps are usable
	if summary.TotalDecisions != 0 || summary.Deliveries != 0 || summary.Breakdowns != 0 {
		t.Errorf("expected zero counts, got %+v", summary)
	}
	if summary.ProductMix == nil || summary.BreakdownsPerMachine == nil {
		t.Error("expected non-nil maps")
	}
}

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalDecisions != 0 {
		t.Errorf("expected 0 total decisions, got %d", summary.TotalDecisions)
	}
	if summary.MeanReward != 0 {
		t.Errorf("expected 0 mean reward, got %f", summary.MeanReward)
	}
	if len(summary.ProductMix) != 0 {
		t.Error("expected empty product mix")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with decisions, deliveries, evictions and breakdowns
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordDecision(DecisionRecord{MachineID: 0, Previous: -1, Chosen: 0, Switched: true})
	st.RecordDecision(DecisionRecord{MachineID: 1, Previous: -1, Chosen: 1, Switched: true})
	st.RecordDecision(DecisionRecord{MachineID: 0, Previous: 0, Chosen: 0})
	st.RecordDecision(DecisionRecord{MachineID: 1, Previous: 1, Chosen: 1, Fallback: true})
	st.RecordDelivery(DeliveryRecord{OrderID: 1, Reward: 10})
	st.RecordDelivery(DeliveryRecord{OrderID: 2, Reward: 4, Late: true})
	st.RecordEviction(EvictionRecord{OrderID: 3, Priority: 1})
	st.RecordBreakdown(BreakdownRecord{MachineID: 1, ProductType: 1, Returned: true})
	st.RecordBreakdown(BreakdownRecord{MachineID: 1, ProductType: 1})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.TotalDecisions != 4 {
		t.Errorf("expected 4 decisions, got %d", summary.TotalDecisions)
	}
	if summary.Switches != 2 {
		t.Errorf("expected 2 switches, got %d", summary.Switches)
	}
	if summary.Fallbacks != 1 {
		t.Errorf("expected 1 fallback, got %d", summary.Fallbacks)
	}
	if summary.ProductMix[0] != 2 || summary.ProductMix[1] != 2 {
		t.Errorf("unexpected product mix %v", summary.ProductMix)
	}
	if summary.Deliveries != 2 || summary.LateDeliveries != 1 {
		t.Errorf("expected 2 deliveries (1 late), got %d (%d late)", summary.Deliveries, summary.LateDeliveries)
	}
	if summary.MeanReward != 7 {
		t.Errorf("expected mean reward 7, got %f", summary.MeanReward)
	}
	if summary.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", summary.Evictions)
	}
	if summary.Breakdowns != 2 || summary.BreakdownsPerMachine[1] != 2 || summary.UnitsReturned != 1 {
		t.Errorf("unexpected breakdown stats %+v", summary)
	}
}
