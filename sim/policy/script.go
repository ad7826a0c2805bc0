package policy

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/flowshop-sim/flowshop-sim/sim"
)

const (
	scriptDecideFunc = "Decide"
	scriptTrainFunc  = "Train"
)

type (
	scriptDecide func(features []float64, machineID int) int
	scriptTrain  func(features [][]float64, labels []string) error
)

// ScriptPolicy runs a dispatch policy written as a Go source file in
// package main. The file must define
//
//	func Decide(features []float64, machineID int) int
//
// and may define
//
//	func Train(features [][]float64, labels []string) error
//
// Train receives one feature row and one "GOOD"/"BAD" label per example.
// The standard library is available to the script.
type ScriptPolicy struct {
	path   string
	mu     sync.Mutex
	decide scriptDecide
	train  scriptTrain // nil when the script has no Train
}

// LoadScriptPolicy interprets the script at path.
func LoadScriptPolicy(path string) (*ScriptPolicy, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy script: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return nil, fmt.Errorf("policy script: %s is empty", path)
	}
	return newScriptPolicy(path, string(code))
}

func newScriptPolicy(name, src string) (*ScriptPolicy, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("policy script: load stdlib: %w", err)
	}
	if _, err := i.Eval(src); err != nil {
		return nil, fmt.Errorf("policy script: interpret %s: %w", name, err)
	}

	p := &ScriptPolicy{path: name}
	decideVal, err := i.Eval(scriptDecideFunc)
	if err != nil {
		return nil, fmt.Errorf("policy script: %s must define %s([]float64, int) int: %w", name, scriptDecideFunc, err)
	}
	decide, ok := decideVal.Interface().(func([]float64, int) int)
	if !ok {
		return nil, fmt.Errorf("policy script: %s: %s has type %s, want func([]float64, int) int", name, scriptDecideFunc, decideVal.Type())
	}
	p.decide = decide

	if trainVal, err := i.Eval(scriptTrainFunc); err == nil {
		train, ok := trainVal.Interface().(func([][]float64, []string) error)
		if !ok {
			return nil, fmt.Errorf("policy script: %s: %s has type %s, want func([][]float64, []string) error", name, scriptTrainFunc, trainVal.Type())
		}
		p.train = train
	}
	return p, nil
}

// Path returns the script location.
func (p *ScriptPolicy) Path() string { return p.path }

func (p *ScriptPolicy) Decide(features sim.FeatureVector, machineID int) (choice int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("policy script %s: Decide panicked: %v", p.path, r)
		}
	}()
	return p.decide(features.Clone(), machineID), nil
}

func (p *ScriptPolicy) Train(examples []sim.TrainingExample) (err error) {
	if p.train == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("policy script %s: Train panicked: %v", p.path, r)
		}
	}()
	rows := make([][]float64, len(examples))
	labels := make([]string, len(examples))
	for i, ex := range examples {
		rows[i] = ex.Features.Clone()
		labels[i] = string(ex.Label)
	}
	return p.train(rows, labels)
}
