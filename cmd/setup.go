package cmd

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flowshop-sim/flowshop-sim/sim"
	"github.com/flowshop-sim/flowshop-sim/sim/policy"
	"github.com/flowshop-sim/flowshop-sim/sim/trace"
	"github.com/flowshop-sim/flowshop-sim/sim/workload"
)

// dialRemote connects remote policies; tests substitute it.
var dialRemote = policy.DialRemotePolicy

// loadExperiment reads path, or returns the built-in defaults when path is empty.
func loadExperiment(path string) (*sim.Experiment, error) {
	if path == "" {
		return sim.DefaultExperiment(), nil
	}
	exp, err := sim.LoadExperiment(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return exp, nil
}

// applyRunFlags overrides experiment values with flags the user set explicitly.
// A flag left at its default never overwrites the file.
func applyRunFlags(cmd *cobra.Command, exp *sim.Experiment) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		exp.Seed = seed
	}
	if flags.Changed("turns") {
		exp.Model.TurnsLimit = turnsLimit
	}
	if flags.Changed("learning-interval") {
		exp.Model.LearningInterval = learningInterval
	}
	if flags.Changed("order-book-capacity") {
		exp.Model.OrderBookCapacity = orderBookCapacity
	}
	if flags.Changed("arrival-lambda") {
		exp.Orders.Lambda = arrivalLambda
	}
	if flags.Changed("breakdown-prob") {
		exp.Breakdown.Probability = breakdownProb
	}
	if flags.Changed("policy") {
		exp.Policy = sim.PolicySection{Name: policyName, TimeoutMs: exp.Policy.TimeoutMs}
	}
	if flags.Changed("policy-script") {
		exp.Policy.Script = policyScript
	}
	if flags.Changed("policy-addr") {
		exp.Policy.Address = policyAddr
	}
	if flags.Changed("trace") {
		exp.Trace = traceLevel
	}
}

// policyLabel names the policy source for logs and summaries.
func policyLabel(ps sim.PolicySection) string {
	switch {
	case ps.Address != "":
		return "remote:" + ps.Address
	case ps.Script != "":
		return "script:" + ps.Script
	case ps.Name == "":
		return policy.LongestQueue
	default:
		return ps.Name
	}
}

// policyFactory resolves the policy section. Remote and script policies are
// shared by every machine; built-in policies get one instance per machine.
// The returned func releases any connection.
func policyFactory(ps sim.PolicySection, rng *rand.Rand) (sim.PolicyFactory, func(), error) {
	noop := func() {}
	switch {
	case ps.Address != "":
		timeout := time.Duration(ps.TimeoutMs) * time.Millisecond
		remote, err := dialRemote(ps.Address, timeout)
		if err != nil {
			return nil, noop, err
		}
		closer := func() {
			if err := remote.Close(); err != nil {
				logrus.Warnf("closing policy connection: %v", err)
			}
		}
		return func(int, *sim.FeatureLayout) (sim.DispatchPolicy, error) { return remote, nil }, closer, nil
	case ps.Script != "":
		script, err := policy.LoadScriptPolicy(ps.Script)
		if err != nil {
			return nil, noop, err
		}
		return func(int, *sim.FeatureLayout) (sim.DispatchPolicy, error) { return script, nil }, noop, nil
	default:
		if !policy.IsValidDispatchPolicy(ps.Name) {
			return nil, noop, fmt.Errorf("unknown dispatch policy %q; valid policies: [%s]", ps.Name, policy.DispatchPolicyNames())
		}
		return func(_ int, layout *sim.FeatureLayout) (sim.DispatchPolicy, error) {
			return policy.NewDispatchPolicy(ps.Name, layout, rng), nil
		}, noop, nil
	}
}

// buildSetup wires the experiment into a ModelSetup: seeded RNG partitions,
// the order generator, the policy factory, the observer and the trace.
func buildSetup(exp *sim.Experiment, observer sim.TurnObserver, tr *trace.SimulationTrace) (sim.ModelSetup, func(), error) {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(exp.Seed))
	mc := exp.ModelConfig()

	gen, err := workload.NewOrderGenerator(exp.OrderConfig(), mc.ProductTypes, rng.ForSubsystem(sim.SubsystemOrders))
	if err != nil {
		return sim.ModelSetup{}, func() {}, err
	}
	factory, closer, err := policyFactory(exp.Policy, rng.ForSubsystem(sim.SubsystemPolicy))
	if err != nil {
		return sim.ModelSetup{}, closer, err
	}
	return sim.ModelSetup{
		Config:    mc,
		Breakdown: exp.BreakdownConfig(),
		Layers:    exp.LayerConfigs(),
		Policies:  factory,
		Orders:    gen,
		RNG:       rng,
		Observer:  observer,
		Trace:     tr,
	}, closer, nil
}
