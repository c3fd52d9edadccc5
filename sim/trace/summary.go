package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions     int            `json:"total_decisions"`
	Refreshes          int            `json:"refreshes"`
	MeanCost           float64        `json:"mean_cost"`
	MaxCost            float64        `json:"max_cost"`
	UniqueTargets      int            `json:"unique_targets"`
	TargetDistribution map[string]int `json:"target_distribution"` // terminal stage -> items routed there
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		TargetDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Pathways)
	summary.Refreshes = len(st.Refreshes)
	if len(st.Pathways) > 0 {
		total := 0.0
		for i, p := range st.Pathways {
			summary.TargetDistribution[p.Target]++
			total += p.Cost
			if i == 0 || p.Cost > summary.MaxCost {
				summary.MaxCost = p.Cost
			}
		}
		summary.MeanCost = total / float64(len(st.Pathways))
	}

	summary.UniqueTargets = len(summary.TargetDistribution)

	return summary
}
