// Tracks run-wide production and order statistics.

package sim

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metrics aggregates counters over a whole run.
type Metrics struct {
	OrdersArrived   int `json:"orders_arrived"`   // offered to the order book
	OrdersDelivered int `json:"orders_delivered"`
	OrdersEvicted   int `json:"orders_evicted"`   // includes arrivals rejected by a full book
	LateDeliveries  int `json:"late_deliveries"`

	TotalReward  int `json:"total_reward"`  // sum of net rewards
	TotalPenalty int `json:"total_penalty"` // sum of penalties subtracted

	UnitsInjected  int   `json:"units_injected"`  // entering the first layer
	UnitsDelivered int   `json:"units_delivered"`
	UnitsCompleted []int `json:"units_completed"` // per layer

	Breakdowns       int `json:"breakdowns"`
	Switches         int `json:"switches"`
	DecisionFailures int `json:"decision_failures"`
	TrainingFailures int `json:"training_failures"`
}

func newMetrics(layers int) *Metrics {
	return &Metrics{UnitsCompleted: make([]int, layers)}
}

// add folds a turn's deltas into the run totals.
func (m *Metrics) add(ts TurnStats) {
	m.OrdersArrived += ts.Arrived
	m.OrdersDelivered += ts.Delivered
	m.OrdersEvicted += ts.Evicted
	m.LateDeliveries += ts.LateDeliveries
	m.TotalReward += ts.Reward
	m.TotalPenalty += ts.Penalty
	m.Breakdowns += ts.Breakdowns
	m.Switches += ts.Switches
	m.DecisionFailures += ts.DecisionFailures
	m.TrainingFailures += ts.TrainingFailures
	for i, n := range ts.UnitsCompleted {
		m.UnitsCompleted[i] += n
	}
}

// QueueSummary describes the per-turn queue-size series.
type QueueSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
}

// SummarizeQueue computes summary statistics of a queue-size series.
// Returns the zero value for an empty series.
func SummarizeQueue(sizes []float64) QueueSummary {
	if len(sizes) == 0 {
		return QueueSummary{}
	}
	sorted := append([]float64(nil), sizes...)
	sort.Float64s(sorted)
	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		std = 0
	}
	return QueueSummary{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		P50:    stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
}

// Result is the observable output of a run.
type Result struct {
	Turns          int          `json:"turns"`
	Metrics        Metrics      `json:"metrics"`
	QueueSizes     []float64    `json:"queue_sizes"`       // sum of layer buffers after each turn
	Queue          QueueSummary `json:"queue"`
	Pending        int          `json:"pending_orders"`
	Finished       []int        `json:"finished_products"` // undelivered, per product type
	TrainingErrors []string     `json:"training_errors,omitempty"`
}

// Print displays the run totals.
func (r *Result) Print() {
	m := r.Metrics
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Turns                : %d\n", r.Turns)
	fmt.Printf("Orders arrived       : %d\n", m.OrdersArrived)
	fmt.Printf("Orders delivered     : %d (%d late)\n", m.OrdersDelivered, m.LateDeliveries)
	fmt.Printf("Orders evicted       : %d\n", m.OrdersEvicted)
	fmt.Printf("Orders pending       : %d\n", r.Pending)
	fmt.Printf("Total reward         : %d (penalties %d)\n", m.TotalReward, m.TotalPenalty)
	fmt.Printf("Breakdowns           : %d\n", m.Breakdowns)
	fmt.Printf("Switches             : %d\n", m.Switches)
	if len(r.QueueSizes) > 0 {
		fmt.Printf("Queue size mean/p95  : %.2f / %.2f\n", r.Queue.Mean, r.Queue.P95)
	}
	if m.DecisionFailures > 0 || m.TrainingFailures > 0 {
		fmt.Printf("Policy failures      : %d decisions, %d trainings\n", m.DecisionFailures, m.TrainingFailures)
	}
}
