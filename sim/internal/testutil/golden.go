// Package testutil provides shared test infrastructure for the flow-shop
// simulator: hand-verified golden scenarios and assertion helpers used across
// sim/ and its sub-package tests.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Scenarios []GoldenScenario `json:"scenarios"`
}

// GoldenScenario is a small deterministic line (no breakdowns, fixed policy)
// with scripted orders and the outcome worked out by hand.
type GoldenScenario struct {
	Name              string        `json:"name"`
	ProductTypes      int           `json:"product_types"`
	Turns             int           `json:"turns"`
	OrderBookCapacity int           `json:"order_book_capacity"`
	Prices            []int         `json:"prices"`
	ProcessingTimes   [][][]int     `json:"processing_times"` // layer → machine → time per product
	Orders            []GoldenOrder `json:"orders"`
	Expected          GoldenMetrics `json:"expected"`
}

// GoldenOrder is an order injected before the given turn.
type GoldenOrder struct {
	Turn     int   `json:"turn"`
	Demand   []int `json:"demand"`
	DueTime  int   `json:"due_time"`
	Reward   int   `json:"reward"`
	Penalty  int   `json:"penalty"`
	Priority int   `json:"priority"`
}

// GoldenMetrics represents the expected outcome of a golden scenario.
type GoldenMetrics struct {
	OrdersDelivered int   `json:"orders_delivered"`
	OrdersEvicted   int   `json:"orders_evicted"`
	LateDeliveries  int   `json:"late_deliveries"`
	TotalReward     int   `json:"total_reward"`
	DeliveryTurns   []int `json:"delivery_turns"` // in delivery order
	Finished        []int `json:"finished"`       // undelivered finished units at the end
	FinalQueueSize  int   `json:"final_queue_size"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertNonNegative fails if any per-product count is negative.
func AssertNonNegative(t *testing.T, name string, units []int) {
	t.Helper()
	for p, n := range units {
		if n < 0 {
			t.Errorf("%s: product %d has %d units", name, p, n)
		}
	}
}
