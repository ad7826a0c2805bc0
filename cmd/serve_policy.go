package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flowshop-sim/flowshop-sim/sim"
	"github.com/flowshop-sim/flowshop-sim/sim/policy"
)

var (
	serveAddr   string // listen address of the policy server
	serveSeed   int64  // seed for the random policy
	serveConfig string // experiment that fixes the feature layout
	serveName   string // built-in policy to serve
	serveScript string // Go-source policy to serve
)

// servePolicyCmd exposes a dispatch policy over gRPC so that runs started with
// --policy-addr can use it.
var servePolicyCmd = &cobra.Command{
	Use:   "serve-policy",
	Short: "Serve a dispatch policy over gRPC",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		exp, err := loadExperiment(serveConfig)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		p, err := servedPolicy(exp, serveName, serveScript, serveSeed)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		lis, err := net.Listen("tcp", serveAddr)
		if err != nil {
			logrus.Fatalf("Failed to listen on %s: %v", serveAddr, err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := policy.ServePolicy(ctx, lis, p); err != nil {
			logrus.Fatalf("Policy server failed: %v", err)
		}
		logrus.Info("Policy server stopped.")
	},
}

// servedPolicy builds the single policy instance behind the server. The
// experiment's layers define the feature layout clients will send.
func servedPolicy(exp *sim.Experiment, name, script string, seed int64) (sim.DispatchPolicy, error) {
	if script != "" {
		return policy.LoadScriptPolicy(script)
	}
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	layout := sim.SequentialFeatureLayout(sim.MachinesPerLayer(exp.LayerConfigs()), exp.Model.ProductTypes)
	factory, _, err := policyFactory(sim.PolicySection{Name: name},
		sim.NewPartitionedRNG(sim.NewSimulationKey(seed)).ForSubsystem(sim.SubsystemPolicy))
	if err != nil {
		return nil, err
	}
	return factory(0, layout)
}

func init() {
	servePolicyCmd.Flags().StringVar(&serveAddr, "addr", ":50051", "Listen address")
	servePolicyCmd.Flags().StringVar(&serveConfig, "config", "", "Experiment file whose layers define the feature layout (defaults built in)")
	servePolicyCmd.Flags().StringVar(&serveName, "policy", policy.LongestQueue, "Built-in dispatch policy: "+policy.DispatchPolicyNames())
	servePolicyCmd.Flags().StringVar(&serveScript, "policy-script", "", "Go source file defining Decide (and optionally Train)")
	servePolicyCmd.Flags().Int64Var(&serveSeed, "seed", 42, "Seed for the random policy")

	rootCmd.AddCommand(servePolicyCmd)
}
