package sim

import (
	"errors"
)

// scriptedPolicy returns choices[machineID] (or its fallback) and records
// every call. Decide fails for machines listed in failDecide; Train fails
// while failTrain is set.
type scriptedPolicy struct {
	choices    map[int]int
	fallback   int
	failDecide map[int]bool
	failTrain  bool

	decideCalls int
	trainCalls  int
	trained     []TrainingExample
	lastBatch   []TrainingExample
}

func constantPolicy(product int) *scriptedPolicy {
	return &scriptedPolicy{choices: map[int]int{}, fallback: product}
}

func (p *scriptedPolicy) Decide(_ FeatureVector, machineID int) (int, error) {
	p.decideCalls++
	if p.failDecide[machineID] {
		return 0, errors.New("classifier unavailable")
	}
	if c, ok := p.choices[machineID]; ok {
		return c, nil
	}
	return p.fallback, nil
}

func (p *scriptedPolicy) Train(examples []TrainingExample) error {
	p.trainCalls++
	p.lastBatch = examples
	if p.failTrain {
		return errors.New("training diverged")
	}
	p.trained = append(p.trained, examples...)
	return nil
}

// sharedPolicy hands the same policy to every machine.
func sharedPolicy(p DispatchPolicy) PolicyFactory {
	return func(int, *FeatureLayout) (DispatchPolicy, error) { return p, nil }
}

// uniformLayers builds layers whose machines all share one time table.
func uniformLayers(machinesPerLayer []int, times map[int]int) []LayerConfig {
	layers := make([]LayerConfig, len(machinesPerLayer))
	for i, n := range machinesPerLayer {
		for j := 0; j < n; j++ {
			layers[i].Machines = append(layers[i].Machines, MachineConfig{ProcessingTimes: times})
		}
	}
	return layers
}

// testModelConfig: turns=20, learning every 5 turns, book of 10, history 3,
// threshold 0.
func testModelConfig(productTypes int, prices []int) ModelConfig {
	return NewModelConfig(productTypes, 20, 5, 10, prices, 3, 0)
}

// sliceSource emits pre-built orders at fixed turns.
type sliceSource map[int][]*Order

func (s sliceSource) Next(turn int) []*Order {
	return s[turn]
}

// recordingObserver keeps every TurnStats.
type recordingObserver struct {
	turns []TurnStats
}

func (r *recordingObserver) ObserveTurn(ts TurnStats) {
	r.turns = append(r.turns, ts)
}
