// Implements Layer, one buffered stage of the production line.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Layer owns a per-product input buffer shared by an ordered list of machines.
// Machines are consulted and ticked in list order, so an earlier machine wins
// any contested claim on the buffer.
type Layer struct {
	id       int
	machines []*Machine
	buffer   *Inventory

	received int // units absorbed from upstream
	claimed  int // units taken by machines
	returned int // units given back on breakdown
}

// LayerTurn reports one Layer.Tick.
type LayerTurn struct {
	Finished       []int         // units completed per product type
	Decisions      []Decision    // one per machine that was able to decide
	Outcomes       []TickOutcome // one per machine, in list order
	DecisionErrors []error       // policy failures, each wrapping ErrPolicyDecisionFailed
}

// NewLayer creates a layer with an empty buffer.
// Panics if machines is empty.
func NewLayer(id int, machines []*Machine, productTypes int) *Layer {
	if len(machines) == 0 {
		panic(fmt.Sprintf("NewLayer: layer %d has no machines", id))
	}
	return &Layer{
		id:       id,
		machines: append([]*Machine(nil), machines...),
		buffer:   NewInventory(fmt.Sprintf("layer %d buffer", id), productTypes),
	}
}

// ID returns the layer index.
func (l *Layer) ID() int { return l.id }

// Machines returns the machines in list order.
func (l *Layer) Machines() []*Machine {
	return append([]*Machine(nil), l.machines...)
}

// Buffer returns the layer's input buffer.
func (l *Layer) Buffer() *Inventory { return l.buffer }

// InProcess returns the number of claimed units held by this layer's machines.
func (l *Layer) InProcess() int {
	n := 0
	for _, m := range l.machines {
		if m.Processing() {
			n++
		}
	}
	return n
}

// Received returns the total units absorbed from upstream.
func (l *Layer) Received() int { return l.received }

// Claimed returns the total units machines have taken from the buffer.
func (l *Layer) Claimed() int { return l.claimed }

// Returned returns the total units machines gave back on breakdown.
func (l *Layer) Returned() int { return l.returned }

// Balanced reports whether the buffer matches its bookkeeping:
// buffer total == received - claimed + returned.
func (l *Layer) Balanced() bool {
	return l.buffer.Total() == l.received-l.claimed+l.returned
}

// Tick runs one turn of the layer:
//  1. absorb newUnits into the buffer,
//  2. let every machine that is between units decide,
//  3. tick every machine in list order and collect completions.
//
// features is called at most once, after absorption, to build the decision
// input. Decision failures are reported in LayerTurn and do not fail the tick;
// only an inventory violation does.
func (l *Layer) Tick(newUnits []int, features func() FeatureVector) (LayerTurn, error) {
	turn := LayerTurn{Finished: make([]int, l.buffer.Len())}

	if err := l.buffer.AddAll(newUnits); err != nil {
		return turn, fmt.Errorf("layer %d: %w", l.id, err)
	}
	for _, n := range newUnits {
		l.received += n
	}

	var fv FeatureVector
	for _, m := range l.machines {
		if !m.CanDecide() {
			continue
		}
		if fv == nil {
			fv = features()
		}
		d, err := m.Decide(fv)
		turn.Decisions = append(turn.Decisions, d)
		if err != nil {
			logrus.Warnf("layer %d: %v; keeping product %d", l.id, err, d.Chosen)
			turn.DecisionErrors = append(turn.DecisionErrors, err)
		}
	}

	for _, m := range l.machines {
		out, err := m.Tick(l.buffer)
		if err != nil {
			return turn, fmt.Errorf("layer %d: %w", l.id, err)
		}
		if out.Claimed {
			l.claimed++
		}
		if out.Returned {
			l.returned++
		}
		if out.Finished {
			turn.Finished[out.ProductType]++
		}
		turn.Outcomes = append(turn.Outcomes, out)
	}

	if !l.Balanced() {
		return turn, fmt.Errorf("%w: layer %d buffer holds %d units, bookkeeping expects %d",
			ErrNegativeInventory, l.id, l.buffer.Total(), l.received-l.claimed+l.returned)
	}
	return turn, nil
}
