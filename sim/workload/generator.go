package workload

import (
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"

	"github.com/flowshop-sim/flowshop-sim/sim"
)

// OrderGenerator produces random orders at sampled arrival turns.
// It implements sim.OrderSource. The first order arrives at turn 0.
// Deterministic given the same config and RNG state.
type OrderGenerator struct {
	cfg          sim.OrderConfig
	productTypes int
	rng          *rand.Rand
	sampler      ArrivalSampler // nil: never generates
	nextArrival  int
}

// NewOrderGenerator validates cfg and creates a generator drawing from rng.
func NewOrderGenerator(cfg sim.OrderConfig, productTypes int, rng *rand.Rand) (*OrderGenerator, error) {
	if err := cfg.Validate(productTypes); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("order generator needs an RNG")
	}
	sampler, err := NewArrivalSampler(cfg.Arrival, cfg.ArrivalLambda)
	if err != nil {
		return nil, err
	}
	return &OrderGenerator{cfg: cfg, productTypes: productTypes, rng: rng, sampler: sampler}, nil
}

// Next returns the order arriving at turn, if any.
func (g *OrderGenerator) Next(turn int) []*sim.Order {
	if g.sampler == nil || turn < g.nextArrival {
		return nil
	}
	o := g.Generate()
	g.nextArrival = turn + g.sampler.SampleGap(g.rng)
	logrus.Debugf("[turn %05d] order arrived: demand=%v due=%d reward=%d; next at %d",
		turn, o.Demand, o.DueTime, o.Reward, g.nextArrival)
	return []*sim.Order{o}
}

// Generate draws one order:
//   - ProductsPerOrder distinct product types, each with a size in [MinSize, MaxSize)
//   - reward fixed or uniform in [1, MaxReward]; priority equals reward
//   - penalty int(reward*PenaltyFactor), or uniform in [0, reward) when the factor is 0
//   - due time DueTimeMin + U[0, DueTimeSpread)
func (g *OrderGenerator) Generate() *sim.Order {
	demand := make([]int, g.productTypes)
	for _, p := range g.rng.Perm(g.productTypes)[:g.cfg.ProductsPerOrder] {
		demand[p] = g.sampleSize()
	}

	reward := g.cfg.Reward
	if reward <= 0 {
		reward = 1 + g.rng.IntN(g.cfg.MaxReward)
	}

	var penalty int
	if g.cfg.PenaltyFactor > 0 {
		penalty = int(float64(reward) * g.cfg.PenaltyFactor)
	} else {
		penalty = g.rng.IntN(reward)
	}

	due := g.cfg.DueTimeMin
	if g.cfg.DueTimeSpread > 0 {
		due += g.rng.IntN(g.cfg.DueTimeSpread)
	}

	return sim.NewOrder(demand, due, reward, penalty, reward)
}

func (g *OrderGenerator) sampleSize() int {
	if g.cfg.MaxSize <= g.cfg.MinSize {
		return g.cfg.MinSize
	}
	return g.cfg.MinSize + g.rng.IntN(g.cfg.MaxSize-g.cfg.MinSize)
}
