package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flowshop-sim/flowshop-sim/sim"
	"github.com/flowshop-sim/flowshop-sim/sim/policy"
	"github.com/flowshop-sim/flowshop-sim/sim/telemetry"
	"github.com/flowshop-sim/flowshop-sim/sim/trace"
)

var (
	// CLI flags for the experiment
	configPath        string  // YAML experiment file; empty uses the built-in defaults
	seed              int64   // Seed for order generation, breakdowns and random policies
	turnsLimit        int     // Simulation horizon in turns
	learningInterval  int     // Policies train every N turns
	orderBookCapacity int     // Maximum pending orders
	arrivalLambda     float64 // Mean inter-arrival gap in turns
	breakdownProb     float64 // Per-turn breakdown probability of a committed machine
	policyName        string  // Built-in dispatch policy
	policyScript      string  // Go-source dispatch policy
	policyAddr        string  // host:port of a remote dispatch policy
	traceLevel        string  // Trace verbosity: none, decisions

	// CLI flags for outputs
	resultsPath string // JSON results file
	metricsFile string // Prometheus textfile written at the end of the run
	metricsAddr string // Serve /metrics while running
	logLevel    string // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "flowshop",
	Short: "Turn-based simulator for multi-layer production lines",
}

// runCmd executes the simulation using parameters from the experiment file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the production line simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		exp, err := loadExperiment(configPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		applyRunFlags(cmd, exp)
		if err := exp.Validate(); err != nil {
			logrus.Fatalf("Invalid experiment: %v", err)
		}

		runID := uuid.NewString()
		log := logrus.WithField("run", runID)
		log.Infof("Starting run: seed=%d turns=%d policy=%s", exp.Seed, exp.Model.TurnsLimit, policyLabel(exp.Policy))

		report, err := runSimulation(exp, runID, log)
		if report != nil {
			fmt.Println(renderSummary(report))
		}
		if err != nil {
			log.Fatalf("%v", err)
		}
		log.Info("Simulation complete.")
	},
}

// runSimulation builds and runs one experiment and writes the requested
// outputs. Policy connections are closed before it returns, on every path.
// The report is nil only when the model could not be built.
func runSimulation(exp *sim.Experiment, runID string, log *logrus.Entry) (*RunReport, error) {
	reg := prometheus.NewRegistry()
	collector := telemetry.NewCollector(reg)
	var tr *trace.SimulationTrace
	if trace.TraceLevel(exp.Trace) == trace.TraceLevelDecisions {
		tr = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	}

	setup, closePolicies, err := buildSetup(exp, collector, tr)
	defer closePolicies()
	if err != nil {
		return nil, fmt.Errorf("building model: %w", err)
	}
	model, err := sim.NewModel(setup)
	if err != nil {
		return nil, fmt.Errorf("building model: %w", err)
	}

	var srv *http.Server
	if metricsAddr != "" {
		srv = &http.Server{Addr: metricsAddr, Handler: telemetry.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warnf("metrics server: %v", err)
			}
		}()
		log.Infof("Serving metrics on %s/metrics", metricsAddr)
	}

	startTime := time.Now()
	res, runErr := model.Run()
	elapsed := time.Since(startTime)

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(ctx)
		cancel()
	}

	report := newRunReport(runID, exp, res, tr, elapsed)
	if resultsPath != "" {
		if err := writeResults(resultsPath, report); err != nil {
			log.Errorf("Writing results: %v", err)
		} else {
			log.Infof("Results written to %s", resultsPath)
		}
	}
	if metricsFile != "" {
		if err := telemetry.WriteTextfile(metricsFile, reg); err != nil {
			log.Errorf("Writing metrics: %v", err)
		}
	}
	if runErr != nil {
		return report, fmt.Errorf("run aborted at turn %d: %w", res.Turns, runErr)
	}
	return report, nil
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML experiment file (defaults built in)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for order generation, breakdowns and random policies")
	runCmd.Flags().IntVar(&turnsLimit, "turns", 1000, "Simulation horizon in turns")
	runCmd.Flags().IntVar(&learningInterval, "learning-interval", 50, "Train dispatch policies every N turns")
	runCmd.Flags().IntVar(&orderBookCapacity, "order-book-capacity", 20, "Maximum number of pending orders")
	runCmd.Flags().Float64Var(&arrivalLambda, "arrival-lambda", 3, "Mean inter-arrival gap of generated orders, in turns")
	runCmd.Flags().Float64Var(&breakdownProb, "breakdown-prob", 0.05, "Per-turn breakdown probability of a committed machine")
	runCmd.Flags().StringVar(&policyName, "policy", policy.LongestQueue, "Built-in dispatch policy: "+policy.DispatchPolicyNames())
	runCmd.Flags().StringVar(&policyScript, "policy-script", "", "Go source file defining Decide (and optionally Train)")
	runCmd.Flags().StringVar(&policyAddr, "policy-addr", "", "host:port of a remote dispatch policy (see serve-policy)")
	runCmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Trace level: none, decisions")

	runCmd.Flags().StringVar(&resultsPath, "results", "", "Write run results as JSON to this file")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")

	rootCmd.AddCommand(runCmd)
}
