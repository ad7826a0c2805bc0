package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowshop-sim/flowshop-sim/sim"
)

const largestFeatureScript = `package main

import "errors"

var trained int

func Decide(features []float64, machineID int) int {
	if machineID < 0 {
		panic("negative machine")
	}
	best := 0
	for i, f := range features {
		if f > features[best] {
			best = i
		}
	}
	return best % 3
}

func Train(features [][]float64, labels []string) error {
	if len(features) != len(labels) {
		return errors.New("length mismatch")
	}
	for _, l := range labels {
		if l != "GOOD" && l != "BAD" {
			return errors.New("bad label " + l)
		}
	}
	trained += len(labels)
	return nil
}
`

func writeScript(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.go")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadScriptPolicy_DecideAndTrain(t *testing.T) {
	// GIVEN a script that picks the index of the largest feature mod 3
	p, err := LoadScriptPolicy(writeScript(t, largestFeatureScript))
	require.NoError(t, err)

	// WHEN it decides over a vector whose maximum is at index 4
	got, err := p.Decide(sim.FeatureVector{0, 1, 0, 2, 9}, 0)

	// THEN the script's answer comes back
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	// AND training with valid labels succeeds
	err = p.Train([]sim.TrainingExample{
		{Features: sim.FeatureVector{1, 2}, Label: sim.LabelGood},
		{Features: sim.FeatureVector{3, 4}, Label: sim.LabelBad},
	})
	assert.NoError(t, err)
}

func TestScriptPolicy_Panic_BecomesError(t *testing.T) {
	p, err := LoadScriptPolicy(writeScript(t, largestFeatureScript))
	require.NoError(t, err)
	_, err = p.Decide(sim.FeatureVector{1}, -1)
	assert.Error(t, err)
}

func TestScriptPolicy_WithoutTrain_TrainIsNoop(t *testing.T) {
	src := "package main\n\nfunc Decide(features []float64, machineID int) int { return machineID }\n"
	p, err := LoadScriptPolicy(writeScript(t, src))
	require.NoError(t, err)

	got, err := p.Decide(nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.NoError(t, p.Train([]sim.TrainingExample{{Label: sim.LabelGood}}))
}

func TestLoadScriptPolicy_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", "   \n"},
		{"syntax", "package main\nfunc Decide(\n"},
		{"missing decide", "package main\n\nfunc Other() int { return 1 }\n"},
		{"wrong signature", "package main\n\nfunc Decide(x int) int { return x }\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScriptPolicy(writeScript(t, tt.src))
			assert.Error(t, err)
		})
	}
	_, err := LoadScriptPolicy(filepath.Join(t.TempDir(), "absent.go"))
	assert.Error(t, err)
}
