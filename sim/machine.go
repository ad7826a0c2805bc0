// Implements the Machine state machine: idle, switching, working, broken.

package sim

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/sirupsen/logrus"
)

// NoProduct is the product type of a machine that has not selected one.
const NoProduct = -1

// MachineState is the observable state of a Machine between turns.
type MachineState string

const (
	MachineIdle      MachineState = "idle"      // no product type selected
	MachineSwitching MachineState = "switching" // paying the one-turn switch cost
	MachineWorking   MachineState = "working"   // a claimed unit is in progress
	MachineReady     MachineState = "ready"     // product type selected, waiting for stock
	MachineBroken    MachineState = "broken"    // recovering from a breakdown
)

// Decision describes the outcome of one Machine.Decide call.
type Decision struct {
	MachineID int
	Previous  int  // product type before the decision
	Chosen    int  // product type after the decision
	Switched  bool // a switch cost was charged
	Fallback  bool // the policy failed and the previous type was kept
}

// TickOutcome describes what a machine did during one Tick.
type TickOutcome struct {
	MachineID   int
	ProductType int  // product type in effect when the tick started
	Claimed     bool // took one unit from the layer buffer
	Finished    bool // completed one unit of ProductType
	Broke       bool // broke down this tick
	Returned    bool // returned the in-progress unit to the buffer on breakdown
	Recovered   bool // finished its recovery turn
}

// Machine processes one unit of one product type at a time. The product type
// it works on is chosen by its DispatchPolicy whenever it is between units.
type Machine struct {
	id              int
	processingTimes map[int]int
	policy          DispatchPolicy
	breakRNG        *rand.Rand
	breakProb       float64

	productType int
	turnsLeft   int
	broken      bool
	processing  bool // holds a unit claimed from the buffer

	pending []TrainingExample // examples not yet accepted by policy.Train
}

// NewMachine creates an idle machine.
// Panics on a nil policy, a breakdown probability outside [0, 1], or a nil
// breakRNG with a positive probability.
func NewMachine(id int, processingTimes map[int]int, policy DispatchPolicy, breakRNG *rand.Rand, breakProb float64) *Machine {
	if policy == nil {
		panic(fmt.Sprintf("NewMachine: machine %d has nil policy", id))
	}
	if breakProb < 0 || breakProb > 1 {
		panic(fmt.Sprintf("NewMachine: breakdown probability must be in [0,1], got %v", breakProb))
	}
	if breakRNG == nil && breakProb > 0 {
		panic(fmt.Sprintf("NewMachine: machine %d needs a breakdown RNG", id))
	}
	times := make(map[int]int, len(processingTimes))
	for p, t := range processingTimes {
		times[p] = t
	}
	return &Machine{
		id:              id,
		processingTimes: times,
		policy:          policy,
		breakRNG:        breakRNG,
		breakProb:       breakProb,
		productType:     NoProduct,
	}
}

// ID returns the machine's model-wide identifier.
func (m *Machine) ID() int { return m.id }

// Policy returns the machine's dispatch policy.
func (m *Machine) Policy() DispatchPolicy { return m.policy }

// ProductType returns the selected product type, or NoProduct.
func (m *Machine) ProductType() int { return m.productType }

// TurnsLeft returns the remaining time units of the current step.
func (m *Machine) TurnsLeft() int { return m.turnsLeft }

// Broken reports whether the machine is in its recovery turn.
func (m *Machine) Broken() bool { return m.broken }

// Processing reports whether the machine holds a claimed unit.
func (m *Machine) Processing() bool { return m.processing }

// ProcessingTime returns the time table entry for productType.
func (m *Machine) ProcessingTime(productType int) (int, bool) {
	t, ok := m.processingTimes[productType]
	return t, ok
}

// ProductTypes returns the product types in the time table, ascending.
func (m *Machine) ProductTypes() []int {
	types := make([]int, 0, len(m.processingTimes))
	for p := range m.processingTimes {
		types = append(types, p)
	}
	sort.Ints(types)
	return types
}

// State classifies the machine for reporting.
func (m *Machine) State() MachineState {
	switch {
	case m.broken:
		return MachineBroken
	case m.processing:
		return MachineWorking
	case m.productType == NoProduct:
		return MachineIdle
	case m.turnsLeft > 0:
		return MachineSwitching
	default:
		return MachineReady
	}
}

// CanDecide reports whether the machine is between units and may pick a
// product type this turn.
func (m *Machine) CanDecide() bool {
	return !m.broken && m.turnsLeft == 0
}

// Decide consults the policy for the next product type. A change of type
// charges one turn of switch cost. If the policy fails or returns a type the
// time table does not cover, the machine keeps its current type and the
// returned error wraps ErrPolicyDecisionFailed; the Decision is still valid.
// Calling Decide when CanDecide is false is a no-op.
func (m *Machine) Decide(features FeatureVector) (Decision, error) {
	d := Decision{MachineID: m.id, Previous: m.productType, Chosen: m.productType}
	if !m.CanDecide() {
		return d, nil
	}
	chosen, err := m.policy.Decide(features, m.id)
	if err == nil {
		if _, ok := m.processingTimes[chosen]; !ok {
			err = fmt.Errorf("product type %d not in time table", chosen)
		}
	}
	if err != nil {
		d.Fallback = true
		return d, fmt.Errorf("%w: machine %d: %w", ErrPolicyDecisionFailed, m.id, err)
	}
	if chosen != m.productType {
		m.turnsLeft++
		d.Switched = true
	}
	m.productType = chosen
	d.Chosen = chosen
	return d, nil
}

// Tick advances the machine by one turn against its layer's buffer.
//
// Order of evaluation: recovery, breakdown trial, claim, countdown.
// A machine can only break while committed to a product type with time
// remaining; a breakdown returns the claimed unit (if any), clears the
// product type and costs one recovery turn.
func (m *Machine) Tick(buffer *Inventory) (TickOutcome, error) {
	out := TickOutcome{MachineID: m.id, ProductType: m.productType}

	if m.broken {
		m.turnsLeft--
		if m.turnsLeft <= 0 {
			m.turnsLeft = 0
			m.broken = false
			out.Recovered = true
		}
		return out, nil
	}

	if m.productType != NoProduct && m.turnsLeft > 0 && m.breakdown() {
		if m.processing {
			buffer.Add(m.productType, 1)
			out.Returned = true
		}
		logrus.Debugf("machine %d broke down while on product %d", m.id, m.productType)
		m.productType = NoProduct
		m.turnsLeft = 1
		m.broken = true
		m.processing = false
		out.Broke = true
		return out, nil
	}

	if m.productType == NoProduct {
		return out, nil
	}

	if m.turnsLeft == 0 {
		if buffer.Get(m.productType) == 0 {
			return out, nil
		}
		if err := buffer.Take(m.productType, 1); err != nil {
			return out, fmt.Errorf("machine %d: %w", m.id, err)
		}
		m.turnsLeft = m.processingTimes[m.productType]
		m.processing = true
		out.Claimed = true
	}

	m.turnsLeft--
	if m.turnsLeft == 0 && m.processing {
		m.processing = false
		out.Finished = true
	}
	return out, nil
}

func (m *Machine) breakdown() bool {
	if m.breakProb <= 0 {
		return false
	}
	return m.breakRNG.Float64() < m.breakProb
}

// AddExample queues a training example for the next Train call.
func (m *Machine) AddExample(ex TrainingExample) {
	m.pending = append(m.pending, ex)
}

// PendingExamples returns the number of queued training examples.
func (m *Machine) PendingExamples() int {
	return len(m.pending)
}

// Train hands every queued example to the policy. On success the queue is
// emptied; on failure it is kept and the error wraps ErrPolicyTrainingFailed.
// An empty queue still calls the policy so it can observe the learning turn.
func (m *Machine) Train() error {
	batch := make([]TrainingExample, len(m.pending))
	copy(batch, m.pending)
	if err := m.policy.Train(batch); err != nil {
		return fmt.Errorf("%w: machine %d: %w", ErrPolicyTrainingFailed, m.id, err)
	}
	m.pending = m.pending[:0]
	return nil
}

func (m *Machine) String() string {
	return fmt.Sprintf("Machine(id=%d, product=%d, turnsLeft=%d, state=%s)", m.id, m.productType, m.turnsLeft, m.State())
}
