// Implements Model, the turn loop that drives orders through the layers.

package sim

import (
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/flowshop-sim/flowshop-sim/sim/trace"
)

// PolicyFactory builds the dispatch policy of one machine. layout describes
// the FeatureVector the policy will be handed.
type PolicyFactory func(machineID int, layout *FeatureLayout) (DispatchPolicy, error)

// ModelSetup groups everything NewModel needs.
type ModelSetup struct {
	Config    ModelConfig
	Breakdown BreakdownConfig
	Layers    []LayerConfig
	Policies  PolicyFactory

	Orders   OrderSource            // nil: orders arrive only via InjectOrder
	RNG      *PartitionedRNG        // nil: seed 0
	Observer TurnObserver           // optional
	Trace    *trace.SimulationTrace // optional
}

// Audit is a conservation snapshot. Every unit that entered the first layer
// is in exactly one place.
type Audit struct {
	Injected  int // units entering the first layer so far
	Buffered  int // units waiting in layer buffers
	InProcess int // units claimed by machines
	Finished  int // completed units awaiting delivery
	Delivered int // units handed to orders
}

// Conserved reports whether Injected equals the sum of the other fields.
func (a Audit) Conserved() bool {
	return a.Injected == a.Buffered+a.InProcess+a.Finished+a.Delivered
}

// Action is one (machine, product type) choice available this turn.
type Action struct {
	MachineID   int
	ProductType int
}

// Model owns the layers, the order book and the finished-goods pool.
type Model struct {
	cfg      ModelConfig
	layers   []*Layer
	machines []*Machine // all machines, in layer order
	trainers []*Machine // first machine of each distinct policy instance
	layout   *FeatureLayout
	finished *Inventory
	book     *OrderBook
	history  *History
	orderIDs *IDAllocator

	orders   OrderSource
	injected []*Order // queued by InjectOrder for the next turn

	observer TurnObserver
	trace    *trace.SimulationTrace

	turn           int
	metrics        *Metrics
	queueSizes     []float64
	trainingErrors []error
}

// NewModel validates the setup and builds the production line. Machine IDs
// are assigned 0, 1, 2, ... in layer order.
func NewModel(setup ModelSetup) (*Model, error) {
	cfg := setup.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := setup.Breakdown.Validate(); err != nil {
		return nil, err
	}
	if err := validateLayers(setup.Layers, cfg.ProductTypes); err != nil {
		return nil, err
	}
	if setup.Policies == nil {
		return nil, invalidConfig("no policy factory")
	}
	rng := setup.RNG
	if rng == nil {
		rng = NewPartitionedRNG(NewSimulationKey(0))
	}

	machineIDs := NewIDAllocator()
	ids := make([][]int, len(setup.Layers))
	for li, lc := range setup.Layers {
		for range lc.Machines {
			ids[li] = append(ids[li], machineIDs.Allocate())
		}
	}
	layout := NewFeatureLayout(ids, cfg.ProductTypes)

	m := &Model{
		cfg:      cfg,
		layout:   layout,
		finished: NewInventory("finished products", cfg.ProductTypes),
		book:     NewOrderBook(cfg.OrderBookCapacity),
		history:  NewHistory(cfg.HistoryLength),
		orderIDs: NewIDAllocator(),
		orders:   setup.Orders,
		observer: setup.Observer,
		trace:    setup.Trace,
		metrics:  newMetrics(len(setup.Layers)),
	}
	for li, lc := range setup.Layers {
		machines := make([]*Machine, 0, len(lc.Machines))
		for mi, mc := range lc.Machines {
			id := ids[li][mi]
			policy, err := setup.Policies(id, layout)
			if err != nil {
				return nil, fmt.Errorf("%w: policy for machine %d: %v", ErrInvalidConfiguration, id, err)
			}
			if policy == nil {
				return nil, invalidConfig("policy factory returned nil for machine %d", id)
			}
			machine := NewMachine(id, mc.ProcessingTimes, policy,
				rng.ForSubsystem(SubsystemMachine(id)), setup.Breakdown.Probability)
			machines = append(machines, machine)
			m.machines = append(m.machines, machine)
		}
		m.layers = append(m.layers, NewLayer(li, machines, cfg.ProductTypes))
	}
	m.trainers = policyTrainers(m.machines)
	logrus.Debugf("model built: %d layers, %d machines, %d product types",
		len(m.layers), len(m.machines), cfg.ProductTypes)
	return m, nil
}

// Config returns the run-wide constants.
func (m *Model) Config() ModelConfig { return m.cfg }

// Turn returns the number of completed turns.
func (m *Model) Turn() int { return m.turn }

// Done reports whether the turn limit has been reached.
func (m *Model) Done() bool { return m.turn >= m.cfg.TurnsLimit }

// Layers returns the layers in flow order.
func (m *Model) Layers() []*Layer {
	return append([]*Layer(nil), m.layers...)
}

// Machines returns every machine in layer order.
func (m *Model) Machines() []*Machine {
	return append([]*Machine(nil), m.machines...)
}

// Layout returns the FeatureVector layout.
func (m *Model) Layout() *FeatureLayout { return m.layout }

// OrderBook returns the pending-order book.
func (m *Model) OrderBook() *OrderBook { return m.book }

// Finished returns the undelivered finished units per product type.
func (m *Model) Finished() []int { return m.finished.Snapshot() }

// Metrics returns the run totals so far.
func (m *Model) Metrics() Metrics {
	out := *m.metrics
	out.UnitsCompleted = append([]int(nil), m.metrics.UnitsCompleted...)
	return out
}

// QueueSizes returns the per-turn queue-size samples so far.
func (m *Model) QueueSizes() []float64 {
	return append([]float64(nil), m.queueSizes...)
}

// TrainingErrors returns every Train failure so far, each wrapping
// ErrPolicyTrainingFailed.
func (m *Model) TrainingErrors() []error {
	return append([]error(nil), m.trainingErrors...)
}

// InjectOrder queues an order to arrive at the start of the next turn,
// alongside any generated order.
func (m *Model) InjectOrder(o *Order) {
	m.injected = append(m.injected, o)
}

// Features builds the current FeatureVector: for every layer, the health of
// each machine followed by the buffer count of each product type.
func (m *Model) Features() FeatureVector {
	fv := make(FeatureVector, 0, m.layout.Width())
	for _, l := range m.layers {
		for _, machine := range l.machines {
			if machine.Broken() {
				fv = append(fv, 0)
			} else {
				fv = append(fv, 1)
			}
		}
		for p := 0; p < m.cfg.ProductTypes; p++ {
			fv = append(fv, float64(l.buffer.Get(p)))
		}
	}
	return fv
}

// ActionList enumerates the choices open this turn: every product type for
// every machine able to decide, grouped by product type.
func (m *Model) ActionList() []Action {
	var actions []Action
	for p := 0; p < m.cfg.ProductTypes; p++ {
		for _, machine := range m.machines {
			if machine.CanDecide() {
				actions = append(actions, Action{MachineID: machine.ID(), ProductType: p})
			}
		}
	}
	return actions
}

// Audit returns the current conservation snapshot.
func (m *Model) Audit() Audit {
	a := Audit{
		Injected:  m.metrics.UnitsInjected,
		Finished:  m.finished.Total(),
		Delivered: m.metrics.UnitsDelivered,
	}
	for _, l := range m.layers {
		a.Buffered += l.buffer.Total()
		a.InProcess += l.InProcess()
	}
	return a
}

// QueueSize returns the sum of all layer buffers.
func (m *Model) QueueSize() int {
	total := 0
	for _, l := range m.layers {
		total += l.buffer.Total()
	}
	return total
}

// Run steps the model until the turn limit. A non-nil error means an
// inventory invariant broke; the partial Result is still returned.
func (m *Model) Run() (*Result, error) {
	logrus.Infof("starting run: %d turns, %d layers, %d machines", m.cfg.TurnsLimit, len(m.layers), len(m.machines))
	for !m.Done() {
		if err := m.Step(); err != nil {
			logrus.Errorf("[turn %05d] run aborted: %v", m.turn, err)
			return m.Result(), err
		}
	}
	res := m.Result()
	logrus.Infof("run finished: %d delivered, %d evicted, reward %d",
		res.Metrics.OrdersDelivered, res.Metrics.OrdersEvicted, res.Metrics.TotalReward)
	return res, nil
}

// Result snapshots the run output so far.
func (m *Model) Result() *Result {
	res := &Result{
		Turns:      m.turn,
		Metrics:    m.Metrics(),
		QueueSizes: m.QueueSizes(),
		Pending:    m.book.Len(),
		Finished:   m.finished.Snapshot(),
	}
	res.Queue = SummarizeQueue(res.QueueSizes)
	for _, err := range m.trainingErrors {
		res.TrainingErrors = append(res.TrainingErrors, err.Error())
	}
	return res
}

// Step executes one turn:
//  1. train every policy on learning turns,
//  2. admit arriving orders and inject their demand into the first layer,
//  3. propagate units through the layers,
//  4. add the last layer's output to the finished-goods pool,
//  5. deliver every order the pool covers, in priority order,
//  6. age the remaining orders.
func (m *Model) Step() error {
	ts := TurnStats{Turn: m.turn, UnitsCompleted: make([]int, len(m.layers))}

	if m.turn%m.cfg.LearningInterval == 0 {
		m.train(&ts)
	}

	units, err := m.admitOrders(&ts)
	if err != nil {
		return err
	}

	for li, l := range m.layers {
		lt, err := l.Tick(units, m.Features)
		if err != nil {
			return fmt.Errorf("turn %d: %w", m.turn, err)
		}
		m.recordLayerTurn(li, lt, &ts)
		units = lt.Finished
	}

	if err := m.finished.AddAll(units); err != nil {
		return fmt.Errorf("turn %d: %w", m.turn, err)
	}

	if err := m.deliver(&ts); err != nil {
		return fmt.Errorf("turn %d: %w", m.turn, err)
	}

	m.book.Age()

	ts.QueueSize = m.QueueSize()
	ts.FinishedGoods = m.finished.Total()
	ts.OrderBookSize = m.book.Len()
	for _, l := range m.layers {
		ts.InProcess += l.InProcess()
	}
	m.metrics.add(ts)
	ts.TotalReward = m.metrics.TotalReward
	m.queueSizes = append(m.queueSizes, float64(ts.QueueSize))
	if m.observer != nil {
		m.observer.ObserveTurn(ts)
	}
	logrus.Debugf("[turn %05d] queue=%d finished=%v book=%d reward=%d",
		m.turn, ts.QueueSize, m.finished, ts.OrderBookSize, ts.TotalReward)
	m.turn++
	return nil
}

// policyTrainers keeps the first machine of every distinct policy instance.
// Machines sharing one policy share its training buffer, so each delivery
// reaches that policy once.
func policyTrainers(machines []*Machine) []*Machine {
	seen := make(map[DispatchPolicy]bool)
	var trainers []*Machine
	for _, machine := range machines {
		p := machine.Policy()
		if reflect.TypeOf(p).Comparable() {
			if seen[p] {
				continue
			}
			seen[p] = true
		}
		trainers = append(trainers, machine)
	}
	return trainers
}

// train hands each distinct policy its buffered examples. Failures are logged and
// kept; the examples stay queued for the next learning turn.
func (m *Model) train(ts *TurnStats) {
	for _, machine := range m.trainers {
		if err := machine.Train(); err != nil {
			logrus.Warnf("[turn %05d] %v", m.turn, err)
			m.trainingErrors = append(m.trainingErrors, fmt.Errorf("turn %d: %w", m.turn, err))
			ts.TrainingFailures++
		}
	}
}

// admitOrders offers this turn's orders to the book and returns the units
// they inject into the first layer. An order's demand is injected even if the
// book drops it.
func (m *Model) admitOrders(ts *TurnStats) ([]int, error) {
	arrivals := m.injected
	m.injected = nil
	if m.orders != nil {
		arrivals = append(m.orders.Next(m.turn), arrivals...)
	}

	units := make([]int, m.cfg.ProductTypes)
	for _, o := range arrivals {
		if err := o.Validate(m.cfg.ProductTypes); err != nil {
			return nil, fmt.Errorf("turn %d: arriving order: %w", m.turn, err)
		}
		o.ID = m.orderIDs.Allocate()
		o.ArrivalTurn = m.turn
		o.State = OrderPending
		for p, n := range o.Demand {
			units[p] += n
		}
		m.metrics.UnitsInjected += o.Units()
		ts.Arrived++

		_, evicted := m.book.Offer(o)
		if evicted != nil {
			ts.Evicted++
			logrus.Debugf("[turn %05d] order %d evicted (priority %d)", m.turn, evicted.ID, evicted.Priority)
			if m.trace.Enabled() {
				m.trace.RecordEviction(trace.EvictionRecord{Turn: m.turn, OrderID: evicted.ID, Priority: evicted.Priority})
			}
		}
	}
	return units, nil
}

func (m *Model) recordLayerTurn(li int, lt LayerTurn, ts *TurnStats) {
	ts.DecisionFailures += len(lt.DecisionErrors)
	for _, d := range lt.Decisions {
		if d.Switched {
			ts.Switches++
		}
		if m.trace.Enabled() {
			m.trace.RecordDecision(trace.DecisionRecord{
				Turn:      m.turn,
				MachineID: d.MachineID,
				Previous:  d.Previous,
				Chosen:    d.Chosen,
				Switched:  d.Switched,
				Fallback:  d.Fallback,
			})
		}
	}
	for _, out := range lt.Outcomes {
		if out.Finished {
			ts.UnitsCompleted[li]++
		}
		if out.Broke {
			ts.Breakdowns++
			if m.trace.Enabled() {
				m.trace.RecordBreakdown(trace.BreakdownRecord{
					Turn:        m.turn,
					MachineID:   out.MachineID,
					ProductType: out.ProductType,
					Returned:    out.Returned,
				})
			}
		}
	}
}

// deliver scans the whole book in priority order and fills every order the
// finished-goods pool covers. Each delivery becomes a training example for
// every distinct policy.
func (m *Model) deliver(ts *TurnStats) error {
	for _, o := range m.book.Items() {
		if !m.finished.Covers(o.Demand) {
			continue
		}
		if err := m.finished.TakeAll(o.Demand); err != nil {
			return err
		}
		m.book.Remove(o.ID)

		late := o.Late()
		payout := o.Payout(m.cfg.Prices)
		o.State = OrderDelivered
		o.DeliveredTurn = m.turn

		ts.Delivered++
		ts.Reward += payout
		if late {
			ts.LateDeliveries++
			ts.Penalty += o.Penalty
		}
		m.metrics.UnitsDelivered += o.Units()
		logrus.Debugf("[turn %05d] delivered order %d: reward %d (late=%v)", m.turn, o.ID, payout, late)
		if m.trace.Enabled() {
			m.trace.RecordDelivery(trace.DeliveryRecord{Turn: m.turn, OrderID: o.ID, Reward: payout, Late: late})
		}

		m.history.Add(m.Features())
		ex := m.history.Example(payout, m.cfg.DecisionThreshold)
		ex.Turn = m.turn
		ex.OrderID = o.ID
		for _, machine := range m.trainers {
			machine.AddExample(ex)
		}
	}
	return nil
}
