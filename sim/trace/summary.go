package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions       int
	Switches             int
	Fallbacks            int
	Deliveries           int
	LateDeliveries       int
	MeanReward           float64
	Evictions            int
	Breakdowns           int
	UnitsReturned        int
	ProductMix           map[int]int // product type → decisions choosing it
	BreakdownsPerMachine map[int]int // machine ID → breakdown count
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ProductMix:           make(map[int]int),
		BreakdownsPerMachine: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Decisions)
	for _, d := range st.Decisions {
		if d.Switched {
			summary.Switches++
		}
		if d.Fallback {
			summary.Fallbacks++
		}
		if d.Chosen >= 0 {
			summary.ProductMix[d.Chosen]++
		}
	}

	if len(st.Deliveries) > 0 {
		total := 0
		for _, d := range st.Deliveries {
			total += d.Reward
			if d.Late {
				summary.LateDeliveries++
			}
		}
		summary.Deliveries = len(st.Deliveries)
		summary.MeanReward = float64(total) / float64(len(st.Deliveries))
	}

	summary.Evictions = len(st.Evictions)

	summary.Breakdowns = len(st.Breakdowns)
	for _, b := range st.Breakdowns {
		summary.BreakdownsPerMachine[b.MachineID]++
		if b.Returned {
			summary.UnitsReturned++
		}
	}

	return summary
}
