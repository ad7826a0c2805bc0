package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flowshop-sim/flowshop-sim/sim"
	"github.com/flowshop-sim/flowshop-sim/sim/policy"
)

var validateConfig string

// validateCmd checks an experiment file without running it.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check an experiment file",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		exp, err := loadExperiment(validateConfig)
		if err == nil {
			err = validateExperiment(exp)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
			os.Exit(1)
		}
		logrus.Debugf("experiment: %+v", exp)
		fmt.Printf("ok: %d layers, %d product types, %d turns, policy %s\n",
			len(exp.Layers), exp.Model.ProductTypes, exp.Model.TurnsLimit, policyLabel(exp.Policy))
	},
}

// validateExperiment runs the experiment checks plus the ones only the CLI
// can make: the built-in policy name and the script file's presence.
func validateExperiment(exp *sim.Experiment) error {
	if err := exp.Validate(); err != nil {
		return err
	}
	ps := exp.Policy
	switch {
	case ps.Address != "":
		return nil
	case ps.Script != "":
		if _, err := os.Stat(ps.Script); err != nil {
			return fmt.Errorf("policy script: %w", err)
		}
		return nil
	case !policy.IsValidDispatchPolicy(ps.Name):
		return fmt.Errorf("unknown dispatch policy %q; valid policies: [%s]", ps.Name, policy.DispatchPolicyNames())
	}
	return nil
}

func init() {
	validateCmd.Flags().StringVar(&validateConfig, "config", "", "Path to a YAML experiment file")
	_ = validateCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(validateCmd)
}
