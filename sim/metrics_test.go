package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeQueue(t *testing.T) {
	tests := []struct {
		name  string
		sizes []float64
		want  QueueSummary
	}{
		{"empty", nil, QueueSummary{}},
		{"single sample", []float64{4}, QueueSummary{Mean: 4, Min: 4, Max: 4, P50: 4, P95: 4}},
		{"constant", []float64{2, 2, 2}, QueueSummary{Mean: 2, Min: 2, Max: 2, P50: 2, P95: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SummarizeQueue(tt.sizes))
		})
	}
}

func TestSummarizeQueue_UnsortedSeries(t *testing.T) {
	sizes := []float64{5, 1, 3, 2, 4}
	got := SummarizeQueue(sizes)

	assert.InDelta(t, 3.0, got.Mean, 1e-12)
	assert.InDelta(t, 1.5811388300841898, got.StdDev, 1e-12) // sample std of 1..5
	assert.Equal(t, 1.0, got.Min)
	assert.Equal(t, 5.0, got.Max)
	assert.Equal(t, 3.0, got.P50)
	assert.Equal(t, 5.0, got.P95)
	assert.Equal(t, []float64{5, 1, 3, 2, 4}, sizes, "input must not be reordered")
}

func TestMetrics_AddFoldsTurnDeltas(t *testing.T) {
	m := newMetrics(2)
	m.add(TurnStats{Arrived: 2, Delivered: 1, Reward: 7, Penalty: 1, LateDeliveries: 1, UnitsCompleted: []int{3, 1}})
	m.add(TurnStats{Arrived: 1, Evicted: 1, Breakdowns: 2, Switches: 3, UnitsCompleted: []int{0, 2}})

	assert.Equal(t, 3, m.OrdersArrived)
	assert.Equal(t, 1, m.OrdersDelivered)
	assert.Equal(t, 1, m.OrdersEvicted)
	assert.Equal(t, 7, m.TotalReward)
	assert.Equal(t, 1, m.TotalPenalty)
	assert.Equal(t, 2, m.Breakdowns)
	assert.Equal(t, 3, m.Switches)
	assert.Equal(t, []int{3, 3}, m.UnitsCompleted)
}
