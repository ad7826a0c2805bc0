package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	summaryTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	summaryLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Width(22)
	summaryWarn = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
	summaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// renderSummary formats the end-of-run table printed to stdout.
func renderSummary(r *RunReport) string {
	res := r.Result
	m := res.Metrics
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, summaryLabel.Render(label), value)
	}

	lines := []string{
		summaryTitle.Render("Simulation Metrics"),
		row("Run", r.RunID),
		row("Policy", r.Policy),
		row("Seed", fmt.Sprint(r.Seed)),
		row("Turns", fmt.Sprint(res.Turns)),
		row("Orders arrived", fmt.Sprint(m.OrdersArrived)),
		row("Orders delivered", fmt.Sprintf("%d (%d late)", m.OrdersDelivered, m.LateDeliveries)),
		row("Orders evicted", fmt.Sprint(m.OrdersEvicted)),
		row("Orders pending", fmt.Sprint(res.Pending)),
		row("Total reward", fmt.Sprintf("%d (penalties %d)", m.TotalReward, m.TotalPenalty)),
		row("Units completed", joinInts(m.UnitsCompleted)),
		row("Finished, undelivered", joinInts(res.Finished)),
		row("Breakdowns", fmt.Sprint(m.Breakdowns)),
		row("Switches", fmt.Sprint(m.Switches)),
		row("Queue mean / p95", fmt.Sprintf("%.2f / %.2f", res.Queue.Mean, res.Queue.P95)),
		row("Queue min / max", fmt.Sprintf("%.0f / %.0f", res.Queue.Min, res.Queue.Max)),
	}
	if r.Trace != nil {
		lines = append(lines,
			row("Decisions traced", fmt.Sprintf("%d (%d fallbacks)", r.Trace.TotalDecisions, r.Trace.Fallbacks)),
			row("Mean delivery reward", fmt.Sprintf("%.2f", r.Trace.MeanReward)),
		)
	}
	if m.DecisionFailures > 0 || m.TrainingFailures > 0 {
		lines = append(lines, summaryWarn.Render(
			fmt.Sprintf("Policy failures: %d decisions, %d trainings", m.DecisionFailures, m.TrainingFailures)))
	}
	return summaryBox.Render(strings.Join(lines, "\n"))
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}
