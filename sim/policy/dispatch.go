// Package policy provides DispatchPolicy implementations: built-in heuristics
// resolved by name, Go-source policies run by an interpreter, and a gRPC
// client/server pair for policies that live in another process.
package policy

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/flowshop-sim/flowshop-sim/sim"
)

// Built-in policy names.
const (
	Fixed        = "fixed"         // machine i always produces product i mod P
	LongestQueue = "longest-queue" // product with the most units in the machine's layer buffer
	Random       = "random"        // uniformly random product
)

// ValidDispatchPolicies is the set of recognized built-in policy names.
// Shared by IsValidDispatchPolicy() and NewDispatchPolicy() to avoid duplication.
var ValidDispatchPolicies = map[string]bool{"": true, Fixed: true, LongestQueue: true, Random: true}

// IsValidDispatchPolicy returns true if name is a recognized built-in policy.
func IsValidDispatchPolicy(name string) bool {
	return ValidDispatchPolicies[name]
}

// DispatchPolicyNames returns the valid names, sorted, for help text.
func DispatchPolicyNames() string {
	names := make([]string, 0, len(ValidDispatchPolicies))
	for name := range ValidDispatchPolicies {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// FixedPolicy pins every machine to one product type. It never learns.
type FixedPolicy struct {
	productTypes int
}

func (p *FixedPolicy) Decide(_ sim.FeatureVector, machineID int) (int, error) {
	return machineID % p.productTypes, nil
}

func (p *FixedPolicy) Train(_ []sim.TrainingExample) error { return nil }

// LongestQueuePolicy picks the product with the largest backlog in the
// requesting machine's layer. Ties go to the lowest product type; an empty
// buffer keeps the machine's previous choice.
type LongestQueuePolicy struct {
	layout *sim.FeatureLayout
	last   map[int]int // machine ID → last product chosen
	seen   int         // training examples observed
}

// NewLongestQueuePolicy creates a LongestQueuePolicy over layout.
func NewLongestQueuePolicy(layout *sim.FeatureLayout) *LongestQueuePolicy {
	return &LongestQueuePolicy{layout: layout, last: make(map[int]int)}
}

func (p *LongestQueuePolicy) Decide(features sim.FeatureVector, machineID int) (int, error) {
	if len(features) != p.layout.Width() {
		return 0, fmt.Errorf("feature vector has %d entries, want %d", len(features), p.layout.Width())
	}
	layer, ok := p.layout.LayerOf(machineID)
	if !ok {
		return 0, fmt.Errorf("unknown machine %d", machineID)
	}
	best, bestUnits := -1, 0.0
	for prod := 0; prod < p.layout.ProductTypes(); prod++ {
		units := features[p.layout.BufferIndex(layer, prod)]
		if units > bestUnits {
			best, bestUnits = prod, units
		}
	}
	if best < 0 {
		if prev, ok := p.last[machineID]; ok {
			return prev, nil
		}
		best = machineID % p.layout.ProductTypes()
	}
	p.last[machineID] = best
	return best, nil
}

func (p *LongestQueuePolicy) Train(examples []sim.TrainingExample) error {
	p.seen += len(examples)
	return nil
}

// Observed returns how many training examples the policy has been handed.
func (p *LongestQueuePolicy) Observed() int { return p.seen }

// RandomPolicy picks a product type uniformly at random.
type RandomPolicy struct {
	productTypes int
	rng          *rand.Rand
}

func (p *RandomPolicy) Decide(_ sim.FeatureVector, _ int) (int, error) {
	return p.rng.IntN(p.productTypes), nil
}

func (p *RandomPolicy) Train(_ []sim.TrainingExample) error { return nil }

// NewDispatchPolicy creates a built-in policy by name.
// Valid names: "fixed", "longest-queue" (default for ""), "random".
// rng is only used by "random" and must be non-nil for it.
func NewDispatchPolicy(name string, layout *sim.FeatureLayout, rng *rand.Rand) sim.DispatchPolicy {
	if !ValidDispatchPolicies[name] {
		panic(fmt.Sprintf("unknown dispatch policy %q; valid policies: [%s]", name, DispatchPolicyNames()))
	}
	switch name {
	case Fixed:
		return &FixedPolicy{productTypes: layout.ProductTypes()}
	case "", LongestQueue:
		return NewLongestQueuePolicy(layout)
	case Random:
		if rng == nil {
			panic("NewDispatchPolicy: random policy needs an RNG")
		}
		return &RandomPolicy{productTypes: layout.ProductTypes(), rng: rng}
	default:
		panic(fmt.Sprintf("unhandled dispatch policy %q", name))
	}
}
