package telemetry

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowshop-sim/flowshop-sim/sim"
)

func TestNewCollector_RegistersEveryMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollector(reg)
	require.NotNil(t, collector)

	// 15 plain metrics + the per-layer vector (empty until observed)
	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 15, count)
}

func TestNewCollector_NilRegistry_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector(nil).ObserveTurn(sim.TurnStats{})
	})
}

func TestObserveTurn_CountersAccumulateGaugesOverwrite(t *testing.T) {
	// GIVEN a collector
	collector := NewCollector(prometheus.NewRegistry())

	// WHEN two turns are observed
	collector.ObserveTurn(sim.TurnStats{
		Turn: 0, Arrived: 1, Breakdowns: 1, Switches: 2,
		UnitsCompleted: []int{1, 0}, QueueSize: 4, OrderBookSize: 1, TotalReward: 0,
	})
	collector.ObserveTurn(sim.TurnStats{
		Turn: 1, Arrived: 1, Delivered: 1, LateDeliveries: 1, Evicted: 1,
		UnitsCompleted: []int{2, 1}, QueueSize: 2, FinishedGoods: 3, InProcess: 1,
		OrderBookSize: 1, TotalReward: 11, TrainingFailures: 1, DecisionFailures: 2,
	})

	// THEN counters hold sums
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.ordersArrived))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.ordersDelivered))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.ordersEvicted))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.lateDeliveries))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.breakdowns))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.switches))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.decisionFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.trainingFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(collector.unitsCompleted.WithLabelValues("0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.unitsCompleted.WithLabelValues("1")))

	// THEN gauges hold the latest turn
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.turn))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.queueSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.inProcess))
	assert.Equal(t, 3.0, testutil.ToFloat64(collector.finishedGoods))
	assert.Equal(t, 11.0, testutil.ToFloat64(collector.rewardTotal))
}

func TestWriteTextfile_WritesPrometheusText(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollector(reg)
	collector.ObserveTurn(sim.TurnStats{Arrived: 3, QueueSize: 7})

	path := filepath.Join(t.TempDir(), "flowshop.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "flowshop_orders_arrived_total 3")
	assert.Contains(t, string(data), "flowshop_queue_size 7")
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg).ObserveTurn(sim.TurnStats{Delivered: 2})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "flowshop_orders_delivered_total 2"))
}
