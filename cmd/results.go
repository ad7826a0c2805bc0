package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/flowshop-sim/flowshop-sim/sim"
	"github.com/flowshop-sim/flowshop-sim/sim/trace"
)

// RunReport is the JSON document written by --results.
type RunReport struct {
	RunID      string              `json:"run_id"`
	Seed       int64               `json:"seed"`
	Policy     string              `json:"policy"`
	ElapsedMs  int64               `json:"elapsed_ms"`
	Experiment *sim.Experiment     `json:"experiment"`
	Result     *sim.Result         `json:"result"`
	Trace      *trace.TraceSummary `json:"trace,omitempty"`
}

func newRunReport(runID string, exp *sim.Experiment, res *sim.Result, tr *trace.SimulationTrace, elapsed time.Duration) *RunReport {
	report := &RunReport{
		RunID:      runID,
		Seed:       exp.Seed,
		Policy:     policyLabel(exp.Policy),
		ElapsedMs:  elapsed.Milliseconds(),
		Experiment: exp,
		Result:     res,
	}
	if tr.Enabled() {
		report.Trace = trace.Summarize(tr)
	}
	return report
}

// writeResults writes the report atomically: a sibling .tmp file renamed
// over path, so readers never see a partial document.
func writeResults(path string, report *RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp results: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename results: %w", err)
	}
	return nil
}
