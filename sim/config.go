package sim

// ModelConfig groups run-wide constants of the production line.
type ModelConfig struct {
	ProductTypes      int   // number of product types (must be > 0)
	TurnsLimit        int   // simulation horizon in turns (must be > 0)
	LearningInterval  int   // policies train every LearningInterval turns, starting at turn 0
	OrderBookCapacity int   // maximum number of pending orders
	Prices            []int // unit price per product type, len == ProductTypes
	HistoryLength     int   // delivery snapshots kept for training examples (>= 1)
	DecisionThreshold int   // net reward above which a delivery is labelled GOOD
}

// NewModelConfig creates a ModelConfig with all fields explicitly set.
func NewModelConfig(productTypes, turnsLimit, learningInterval, orderBookCapacity int,
	prices []int, historyLength, decisionThreshold int) ModelConfig {
	return ModelConfig{
		ProductTypes:      productTypes,
		TurnsLimit:        turnsLimit,
		LearningInterval:  learningInterval,
		OrderBookCapacity: orderBookCapacity,
		Prices:            prices,
		HistoryLength:     historyLength,
		DecisionThreshold: decisionThreshold,
	}
}

// Validate checks the run-wide constants.
func (c ModelConfig) Validate() error {
	if c.ProductTypes <= 0 {
		return invalidConfig("product types must be > 0, got %d", c.ProductTypes)
	}
	if c.TurnsLimit <= 0 {
		return invalidConfig("turns limit must be > 0, got %d", c.TurnsLimit)
	}
	if c.LearningInterval <= 0 {
		return invalidConfig("learning interval must be > 0, got %d", c.LearningInterval)
	}
	if c.OrderBookCapacity <= 0 {
		return invalidConfig("order book capacity must be > 0, got %d", c.OrderBookCapacity)
	}
	if len(c.Prices) != c.ProductTypes {
		return invalidConfig("prices has %d entries, want %d", len(c.Prices), c.ProductTypes)
	}
	for p, price := range c.Prices {
		if price < 0 {
			return invalidConfig("price of product %d is negative (%d)", p, price)
		}
	}
	if c.HistoryLength < 1 {
		return invalidConfig("history length must be >= 1, got %d", c.HistoryLength)
	}
	return nil
}

// BreakdownConfig groups machine failure parameters.
type BreakdownConfig struct {
	Probability float64 // per-turn breakdown chance of a committed machine, in [0, 1]
}

// NewBreakdownConfig creates a BreakdownConfig.
func NewBreakdownConfig(probability float64) BreakdownConfig {
	return BreakdownConfig{Probability: probability}
}

// Validate checks the probability range.
func (c BreakdownConfig) Validate() error {
	if c.Probability < 0 || c.Probability > 1 {
		return invalidConfig("breakdown probability must be in [0,1], got %v", c.Probability)
	}
	return nil
}

// Arrival process names accepted by OrderConfig.Arrival.
const (
	ArrivalPoisson = "poisson" // gaps ~ Poisson(lambda), at least one turn
	ArrivalFixed   = "fixed"   // one order every round(lambda) turns
	ArrivalNone    = "none"    // no generated orders; use Model.InjectOrder
)

// ValidArrivalProcesses is the set of recognized arrival process names.
var ValidArrivalProcesses = map[string]bool{"": true, ArrivalPoisson: true, ArrivalFixed: true, ArrivalNone: true}

// OrderConfig groups order generation parameters.
type OrderConfig struct {
	Arrival          string  // "poisson" (default), "fixed", "none"
	ArrivalLambda    float64 // mean inter-arrival gap in turns
	MinSize          int     // smallest units per demanded product type
	MaxSize          int     // exclusive upper bound on units per type (== MinSize means exactly MinSize)
	ProductsPerOrder int     // distinct product types per order
	Reward           int     // fixed reward; 0 draws uniformly from [1, MaxReward]
	MaxReward        int     // upper bound for drawn rewards
	PenaltyFactor    float64 // penalty = int(reward*factor); 0 draws uniformly from [0, reward)
	DueTimeMin       int     // smallest due time
	DueTimeSpread    int     // due time = DueTimeMin + U[0, DueTimeSpread)
}

// NewOrderConfig creates an OrderConfig with all fields explicitly set.
func NewOrderConfig(arrival string, lambda float64, minSize, maxSize, productsPerOrder,
	reward, maxReward int, penaltyFactor float64, dueTimeMin, dueTimeSpread int) OrderConfig {
	return OrderConfig{
		Arrival:          arrival,
		ArrivalLambda:    lambda,
		MinSize:          minSize,
		MaxSize:          maxSize,
		ProductsPerOrder: productsPerOrder,
		Reward:           reward,
		MaxReward:        maxReward,
		PenaltyFactor:    penaltyFactor,
		DueTimeMin:       dueTimeMin,
		DueTimeSpread:    dueTimeSpread,
	}
}

// Validate checks the generator parameters against the number of product types.
func (c OrderConfig) Validate(productTypes int) error {
	if !ValidArrivalProcesses[c.Arrival] {
		return invalidConfig("unknown arrival process %q", c.Arrival)
	}
	if c.Arrival == ArrivalNone {
		return nil
	}
	if c.ArrivalLambda <= 0 {
		return invalidConfig("arrival lambda must be > 0, got %v", c.ArrivalLambda)
	}
	if c.MinSize < 1 || c.MaxSize < c.MinSize {
		return invalidConfig("order sizes need 1 <= min <= max, got min=%d max=%d", c.MinSize, c.MaxSize)
	}
	if c.ProductsPerOrder < 1 || c.ProductsPerOrder > productTypes {
		return invalidConfig("products per order must be in [1,%d], got %d", productTypes, c.ProductsPerOrder)
	}
	if c.Reward < 0 {
		return invalidConfig("reward must be >= 0, got %d", c.Reward)
	}
	if c.Reward == 0 && c.MaxReward < 1 {
		return invalidConfig("max reward must be >= 1 when reward is drawn, got %d", c.MaxReward)
	}
	if c.PenaltyFactor < 0 {
		return invalidConfig("penalty factor must be >= 0, got %v", c.PenaltyFactor)
	}
	if c.DueTimeSpread < 0 {
		return invalidConfig("due time spread must be >= 0, got %d", c.DueTimeSpread)
	}
	return nil
}

// MachineConfig holds one machine's time table.
type MachineConfig struct {
	ProcessingTimes map[int]int // product type -> turns per unit
}

// LayerConfig lists the machines of one layer in dispatch order.
type LayerConfig struct {
	Machines []MachineConfig
}

// validateLayers checks that there is at least one layer, every layer has a
// machine, and every machine has a positive processing time for every product.
func validateLayers(layers []LayerConfig, productTypes int) error {
	if len(layers) == 0 {
		return invalidConfig("at least one layer is required")
	}
	for li, layer := range layers {
		if len(layer.Machines) == 0 {
			return invalidConfig("layer %d has no machines", li)
		}
		for mi, mc := range layer.Machines {
			for p := 0; p < productTypes; p++ {
				t, ok := mc.ProcessingTimes[p]
				if !ok {
					return invalidConfig("layer %d machine %d has no processing time for product %d", li, mi, p)
				}
				if t <= 0 {
					return invalidConfig("layer %d machine %d processing time for product %d must be > 0, got %d", li, mi, p, t)
				}
			}
			for p := range mc.ProcessingTimes {
				if p < 0 || p >= productTypes {
					return invalidConfig("layer %d machine %d lists unknown product %d", li, mi, p)
				}
			}
		}
	}
	return nil
}

// MachinesPerLayer returns the machine count of each layer.
func MachinesPerLayer(layers []LayerConfig) []int {
	counts := make([]int, len(layers))
	for i, l := range layers {
		counts[i] = len(l.Machines)
	}
	return counts
}
