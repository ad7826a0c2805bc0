package workload

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowshop-sim/flowshop-sim/sim"
)

func defaultOrderConfig() sim.OrderConfig {
	return sim.NewOrderConfig(sim.ArrivalPoisson, 3, 3, 5, 1, 0, 9, 0, 8, 10)
}

func TestOrderGenerator_Generate_RespectsRanges(t *testing.T) {
	// GIVEN the classic order parameters over 3 product types
	gen, err := NewOrderGenerator(defaultOrderConfig(), 3, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)

	// WHEN 500 orders are drawn
	for i := 0; i < 500; i++ {
		o := gen.Generate()

		// THEN each order demands 3 or 4 units of exactly one product
		nonZero := 0
		for _, n := range o.Demand {
			if n > 0 {
				nonZero++
				assert.GreaterOrEqual(t, n, 3)
				assert.Less(t, n, 5)
			}
		}
		assert.Equal(t, 1, nonZero)
		assert.NoError(t, o.Validate(3))

		// THEN reward in [1,9], penalty in [0,reward), priority == reward, due in [8,18)
		assert.GreaterOrEqual(t, o.Reward, 1)
		assert.LessOrEqual(t, o.Reward, 9)
		assert.GreaterOrEqual(t, o.Penalty, 0)
		assert.Less(t, o.Penalty, o.Reward)
		assert.Equal(t, o.Reward, o.Priority)
		assert.GreaterOrEqual(t, o.DueTime, 8)
		assert.Less(t, o.DueTime, 18)
		assert.Equal(t, sim.OrderPending, o.State)
	}
}

func TestOrderGenerator_FixedRewardAndPenaltyFactor(t *testing.T) {
	// GIVEN a fixed reward of 10 and penalty factor 0.5 over 2 products per order
	cfg := sim.NewOrderConfig(sim.ArrivalFixed, 2, 2, 2, 2, 10, 0, 0.5, 5, 0)
	gen, err := NewOrderGenerator(cfg, 3, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)

	// WHEN an order is drawn
	o := gen.Generate()

	// THEN the terms are exact
	assert.Equal(t, 10, o.Reward)
	assert.Equal(t, 5, o.Penalty)
	assert.Equal(t, 5, o.DueTime)
	assert.Equal(t, 4, o.Units())
}

func TestOrderGenerator_Next_FollowsArrivalProcess(t *testing.T) {
	// GIVEN fixed arrivals every 3 turns
	cfg := defaultOrderConfig()
	cfg.Arrival = sim.ArrivalFixed
	gen, err := NewOrderGenerator(cfg, 3, rand.New(rand.NewPCG(5, 6)))
	require.NoError(t, err)

	// WHEN turns 0..9 are polled
	var arrivals []int
	for turn := 0; turn < 10; turn++ {
		if orders := gen.Next(turn); len(orders) > 0 {
			require.Len(t, orders, 1)
			arrivals = append(arrivals, turn)
		}
	}

	// THEN orders arrive at 0, 3, 6, 9
	assert.Equal(t, []int{0, 3, 6, 9}, arrivals)
}

func TestOrderGenerator_SameSeed_SameOrders(t *testing.T) {
	// GIVEN two generators with identical seeds
	a, err := NewOrderGenerator(defaultOrderConfig(), 3, rand.New(rand.NewPCG(9, 9)))
	require.NoError(t, err)
	b, err := NewOrderGenerator(defaultOrderConfig(), 3, rand.New(rand.NewPCG(9, 9)))
	require.NoError(t, err)

	// WHEN both are polled over the same turns
	// THEN they produce identical arrivals
	for turn := 0; turn < 200; turn++ {
		oa, ob := a.Next(turn), b.Next(turn)
		require.Equal(t, len(oa), len(ob), "turn %d", turn)
		for i := range oa {
			assert.Equal(t, oa[i].Demand, ob[i].Demand)
			assert.Equal(t, oa[i].Reward, ob[i].Reward)
			assert.Equal(t, oa[i].DueTime, ob[i].DueTime)
		}
	}
}

func TestOrderGenerator_ArrivalNone_NeverGenerates(t *testing.T) {
	cfg := defaultOrderConfig()
	cfg.Arrival = sim.ArrivalNone
	gen, err := NewOrderGenerator(cfg, 3, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	for turn := 0; turn < 20; turn++ {
		assert.Empty(t, gen.Next(turn))
	}
}

func TestNewOrderGenerator_InvalidConfig_ReturnsError(t *testing.T) {
	cfg := defaultOrderConfig()
	cfg.ProductsPerOrder = 4
	_, err := NewOrderGenerator(cfg, 3, rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, sim.ErrInvalidConfiguration)
}
