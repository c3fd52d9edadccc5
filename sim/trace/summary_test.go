package trace

import "testing"

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalDecisions != 0 || summary.Refreshes != 0 {
		t.Errorf("expected no decisions or refreshes, got %d and %d", summary.TotalDecisions, summary.Refreshes)
	}
	if summary.UniqueTargets != 0 {
		t.Errorf("expected 0 unique targets, got %d", summary.UniqueTargets)
	}
	if summary.MeanCost != 0 || summary.MaxCost != 0 {
		t.Error("expected 0 cost values")
	}
	if len(summary.TargetDistribution) != 0 {
		t.Error("expected empty target distribution")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN pathway choices to two landfills, one with a revenue
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordPathway(PathwayRecord{ItemID: 0, Target: "landfilling_3", Cost: 16})
	st.RecordPathway(PathwayRecord{ItemID: 1, Target: "landfilling_3", Cost: 16})
	st.RecordPathway(PathwayRecord{ItemID: 2, Target: "coprocessing_6", Cost: -5})
	st.RecordRefresh(RefreshRecord{Clock: 12, Year: 2001})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.TotalDecisions != 3 {
		t.Errorf("expected 3 total decisions, got %d", summary.TotalDecisions)
	}
	if summary.Refreshes != 1 {
		t.Errorf("expected 1 refresh, got %d", summary.Refreshes)
	}
	if summary.UniqueTargets != 2 {
		t.Errorf("expected 2 unique targets, got %d", summary.UniqueTargets)
	}
	if summary.TargetDistribution["landfilling_3"] != 2 {
		t.Errorf("expected 2 items to landfilling_3, got %d", summary.TargetDistribution["landfilling_3"])
	}
	if want := 27.0 / 3; summary.MeanCost != want {
		t.Errorf("expected mean cost %v, got %v", want, summary.MeanCost)
	}
	if summary.MaxCost != 16 {
		t.Errorf("expected max cost 16, got %v", summary.MaxCost)
	}
}

func TestSummarize_NegativeCostsOnly(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordPathway(PathwayRecord{Target: "coprocessing_6", Cost: -5})
	st.RecordPathway(PathwayRecord{Target: "coprocessing_6", Cost: -2})

	if got := Summarize(st).MaxCost; got != -2 {
		t.Errorf("expected max cost -2, got %v", got)
	}
}

func TestSummarize_Nil(t *testing.T) {
	if s := Summarize(nil); s == nil || s.TotalDecisions != 0 {
		t.Error("expected zero summary for nil trace")
	}
}
