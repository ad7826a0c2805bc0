// Package workload generates the orders that arrive at a production line.
package workload

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/flowshop-sim/flowshop-sim/sim"
)

// ArrivalSampler generates gaps between consecutive order arrivals.
type ArrivalSampler interface {
	// SampleGap returns the number of turns until the next arrival.
	// Always returns a positive value (>= 1).
	SampleGap(rng *rand.Rand) int
}

// PoissonSampler draws gaps from Poisson(lambda). A zero draw is raised to
// one turn so arrivals never stall.
type PoissonSampler struct {
	lambda float64
}

func (s *PoissonSampler) SampleGap(rng *rand.Rand) int {
	dist := distuv.Poisson{Lambda: s.lambda, Src: rng}
	gap := int(dist.Rand())
	if gap < 1 {
		return 1
	}
	return gap
}

// FixedSampler spaces arrivals evenly.
type FixedSampler struct {
	gap int
}

func (s *FixedSampler) SampleGap(_ *rand.Rand) int {
	return s.gap
}

// NewArrivalSampler creates an ArrivalSampler for a named process.
// Returns nil for sim.ArrivalNone.
func NewArrivalSampler(process string, lambda float64) (ArrivalSampler, error) {
	switch process {
	case sim.ArrivalPoisson, "":
		if lambda <= 0 {
			return nil, fmt.Errorf("poisson arrivals need lambda > 0, got %v", lambda)
		}
		return &PoissonSampler{lambda: lambda}, nil
	case sim.ArrivalFixed:
		gap := int(math.Round(lambda))
		if gap < 1 {
			gap = 1
		}
		return &FixedSampler{gap: gap}, nil
	case sim.ArrivalNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown arrival process %q", process)
	}
}
