package sim

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flowshop-sim/flowshop-sim/sim/trace"
)

// Experiment is the YAML description of a run. Every section is required to
// be listed here so KnownFields(true) rejects typos.
type Experiment struct {
	Seed      int64            `yaml:"seed"`
	Model     ModelSection     `yaml:"model"`
	Breakdown BreakdownSection `yaml:"breakdown"`
	Orders    OrderSection     `yaml:"orders"`
	Layers    []LayerSection   `yaml:"layers"`
	Policy    PolicySection    `yaml:"policy"`
	Trace     string           `yaml:"trace"`
}

// ModelSection mirrors ModelConfig.
type ModelSection struct {
	ProductTypes      int   `yaml:"product_types"`
	TurnsLimit        int   `yaml:"turns_limit"`
	LearningInterval  int   `yaml:"learning_interval"`
	OrderBookCapacity int   `yaml:"order_book_capacity"`
	Prices            []int `yaml:"prices"`
	HistoryLength     int   `yaml:"history_length"`
	DecisionThreshold int   `yaml:"decision_threshold"`
}

// BreakdownSection mirrors BreakdownConfig.
type BreakdownSection struct {
	Probability float64 `yaml:"probability"`
}

// OrderSection mirrors OrderConfig.
type OrderSection struct {
	Arrival          string  `yaml:"arrival"`
	Lambda           float64 `yaml:"lambda"`
	MinSize          int     `yaml:"min_size"`
	MaxSize          int     `yaml:"max_size"`
	ProductsPerOrder int     `yaml:"products_per_order"`
	Reward           int     `yaml:"reward"`
	MaxReward        int     `yaml:"max_reward"`
	PenaltyFactor    float64 `yaml:"penalty_factor"`
	DueTimeMin       int     `yaml:"due_time_min"`
	DueTimeSpread    int     `yaml:"due_time_spread"`
}

// LayerSection lists the machines of one layer.
type LayerSection struct {
	Machines []MachineSection `yaml:"machines"`
}

// MachineSection holds one machine's time table.
type MachineSection struct {
	ProcessingTimes map[int]int `yaml:"processing_times"`
}

// PolicySection selects the dispatch policy shared by all machines.
// Address wins over Script, Script wins over Name.
type PolicySection struct {
	Name      string `yaml:"name"`       // built-in policy name
	Script    string `yaml:"script"`     // path to a Go source policy
	Address   string `yaml:"address"`    // host:port of a remote policy server
	TimeoutMs int    `yaml:"timeout_ms"` // per-call timeout for remote policies
}

// DefaultExperiment returns a small three-product line with the classic
// parameters: Poisson arrivals with mean gap 3, a 20-order book, 5% breakdowns,
// orders of 3 or 4 units on one product, rewards in [1, 9] and due times 8..17.
func DefaultExperiment() *Experiment {
	times := func(a, b, c int) MachineSection {
		return MachineSection{ProcessingTimes: map[int]int{0: a, 1: b, 2: c}}
	}
	return &Experiment{
		Seed: 42,
		Model: ModelSection{
			ProductTypes:      3,
			TurnsLimit:        1000,
			LearningInterval:  50,
			OrderBookCapacity: 20,
			Prices:            []int{1, 2, 3},
			HistoryLength:     5,
			DecisionThreshold: 10,
		},
		Breakdown: BreakdownSection{Probability: 0.05},
		Orders: OrderSection{
			Arrival:          ArrivalPoisson,
			Lambda:           3,
			MinSize:          3,
			MaxSize:          5,
			ProductsPerOrder: 1,
			MaxReward:        9,
			DueTimeMin:       8,
			DueTimeSpread:    10,
		},
		Layers: []LayerSection{
			{Machines: []MachineSection{times(2, 3, 4), times(3, 2, 2)}},
			{Machines: []MachineSection{times(1, 2, 3)}},
		},
		Policy: PolicySection{Name: "longest-queue", TimeoutMs: 1000},
		Trace:  string(trace.TraceLevelNone),
	}
}

// LoadExperiment reads and parses a YAML experiment file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadExperiment(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment: %w", err)
	}
	return ParseExperiment(data)
}

// ParseExperiment decodes an experiment from YAML bytes.
func ParseExperiment(data []byte) (*Experiment, error) {
	var exp Experiment
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&exp); err != nil {
		return nil, fmt.Errorf("parsing experiment: %w", err)
	}
	return &exp, nil
}

// ModelConfig converts the model section.
func (e *Experiment) ModelConfig() ModelConfig {
	m := e.Model
	return NewModelConfig(m.ProductTypes, m.TurnsLimit, m.LearningInterval, m.OrderBookCapacity,
		append([]int(nil), m.Prices...), m.HistoryLength, m.DecisionThreshold)
}

// BreakdownConfig converts the breakdown section.
func (e *Experiment) BreakdownConfig() BreakdownConfig {
	return NewBreakdownConfig(e.Breakdown.Probability)
}

// OrderConfig converts the orders section.
func (e *Experiment) OrderConfig() OrderConfig {
	o := e.Orders
	return NewOrderConfig(o.Arrival, o.Lambda, o.MinSize, o.MaxSize, o.ProductsPerOrder,
		o.Reward, o.MaxReward, o.PenaltyFactor, o.DueTimeMin, o.DueTimeSpread)
}

// LayerConfigs converts the layers section.
func (e *Experiment) LayerConfigs() []LayerConfig {
	layers := make([]LayerConfig, len(e.Layers))
	for i, l := range e.Layers {
		for _, m := range l.Machines {
			times := make(map[int]int, len(m.ProcessingTimes))
			for p, t := range m.ProcessingTimes {
				times[p] = t
			}
			layers[i].Machines = append(layers[i].Machines, MachineConfig{ProcessingTimes: times})
		}
	}
	return layers
}

// Validate checks every section. Policy names are checked by the caller that
// resolves them.
func (e *Experiment) Validate() error {
	mc := e.ModelConfig()
	if err := mc.Validate(); err != nil {
		return err
	}
	if err := e.BreakdownConfig().Validate(); err != nil {
		return err
	}
	if err := e.OrderConfig().Validate(mc.ProductTypes); err != nil {
		return err
	}
	if err := validateLayers(e.LayerConfigs(), mc.ProductTypes); err != nil {
		return err
	}
	if !trace.IsValidTraceLevel(e.Trace) {
		return invalidConfig("unknown trace level %q", e.Trace)
	}
	if e.Policy.TimeoutMs < 0 {
		return invalidConfig("policy timeout must be >= 0, got %d", e.Policy.TimeoutMs)
	}
	return nil
}
