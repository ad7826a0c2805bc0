// Package telemetry exports per-turn production line statistics as
// Prometheus metrics.
//
// Counters (monotonic, summed over turns):
//   - flowshop_orders_arrived_total, flowshop_orders_delivered_total,
//     flowshop_orders_evicted_total, flowshop_late_deliveries_total
//   - flowshop_breakdowns_total, flowshop_switches_total
//   - flowshop_decision_failures_total, flowshop_training_failures_total
//   - flowshop_units_completed_total{layer}
//
// Gauges (value after the latest turn):
//   - flowshop_turn, flowshop_queue_size, flowshop_in_process_units,
//     flowshop_finished_goods, flowshop_order_book_size, flowshop_reward_total
//
// Histogram:
//   - flowshop_queue_size_per_turn: distribution of the per-turn queue size
package telemetry

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowshop-sim/flowshop-sim/sim"
)

const namespace = "flowshop"

// Collector implements sim.TurnObserver.
type Collector struct {
	ordersArrived    prometheus.Counter
	ordersDelivered  prometheus.Counter
	ordersEvicted    prometheus.Counter
	lateDeliveries   prometheus.Counter
	breakdowns       prometheus.Counter
	switches         prometheus.Counter
	decisionFailures prometheus.Counter
	trainingFailures prometheus.Counter
	unitsCompleted   *prometheus.CounterVec

	turn          prometheus.Gauge
	queueSize     prometheus.Gauge
	inProcess     prometheus.Gauge
	finishedGoods prometheus.Gauge
	orderBookSize prometheus.Gauge
	rewardTotal   prometheus.Gauge

	queueSizeDist prometheus.Histogram

	mu sync.Mutex
}

var _ sim.TurnObserver = (*Collector)(nil)

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
}

// NewCollector creates a Collector and registers it with reg.
// A nil reg leaves the metrics unregistered.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ordersArrived:    counter("orders_arrived_total", "Orders offered to the order book."),
		ordersDelivered:  counter("orders_delivered_total", "Orders fully delivered."),
		ordersEvicted:    counter("orders_evicted_total", "Orders dropped by a full order book."),
		lateDeliveries:   counter("late_deliveries_total", "Deliveries that incurred the penalty."),
		breakdowns:       counter("breakdowns_total", "Machine breakdowns."),
		switches:         counter("switches_total", "Product type switches charged a switch cost."),
		decisionFailures: counter("decision_failures_total", "Dispatch decisions that fell back to the current product."),
		trainingFailures: counter("training_failures_total", "Failed policy training calls."),
		unitsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_completed_total",
			Help:      "Units completed, by layer.",
		}, []string{"layer"}),

		turn:          gauge("turn", "Last completed turn."),
		queueSize:     gauge("queue_size", "Units waiting in all layer buffers."),
		inProcess:     gauge("in_process_units", "Units claimed by machines."),
		finishedGoods: gauge("finished_goods", "Finished units awaiting delivery."),
		orderBookSize: gauge("order_book_size", "Pending orders."),
		rewardTotal:   gauge("reward_total", "Cumulative net reward."),

		queueSizeDist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_size_per_turn",
			Help:      "Distribution of the total buffered units per turn.",
			Buckets:   prometheus.LinearBuckets(0, 5, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(
			c.ordersArrived, c.ordersDelivered, c.ordersEvicted, c.lateDeliveries,
			c.breakdowns, c.switches, c.decisionFailures, c.trainingFailures,
			c.unitsCompleted,
			c.turn, c.queueSize, c.inProcess, c.finishedGoods, c.orderBookSize, c.rewardTotal,
			c.queueSizeDist,
		)
	}
	return c
}

// ObserveTurn folds one turn into the metrics.
func (c *Collector) ObserveTurn(ts sim.TurnStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ordersArrived.Add(float64(ts.Arrived))
	c.ordersDelivered.Add(float64(ts.Delivered))
	c.ordersEvicted.Add(float64(ts.Evicted))
	c.lateDeliveries.Add(float64(ts.LateDeliveries))
	c.breakdowns.Add(float64(ts.Breakdowns))
	c.switches.Add(float64(ts.Switches))
	c.decisionFailures.Add(float64(ts.DecisionFailures))
	c.trainingFailures.Add(float64(ts.TrainingFailures))
	for layer, n := range ts.UnitsCompleted {
		c.unitsCompleted.WithLabelValues(strconv.Itoa(layer)).Add(float64(n))
	}

	c.turn.Set(float64(ts.Turn))
	c.queueSize.Set(float64(ts.QueueSize))
	c.inProcess.Set(float64(ts.InProcess))
	c.finishedGoods.Set(float64(ts.FinishedGoods))
	c.orderBookSize.Set(float64(ts.OrderBookSize))
	c.rewardTotal.Set(float64(ts.TotalReward))

	c.queueSizeDist.Observe(float64(ts.QueueSize))
}

// WriteTextfile writes everything g gathers to path in the Prometheus text
// format, for the node exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}

// Handler serves everything g gathers.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
