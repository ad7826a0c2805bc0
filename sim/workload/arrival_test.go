package workload

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/flowshop-sim/flowshop-sim/sim"
)

func TestPoissonSampler_MeanGap_MatchesLambda(t *testing.T) {
	// GIVEN a Poisson sampler with lambda 6 (zero draws are rare)
	rng := rand.New(rand.NewPCG(42, 42))
	sampler, err := NewArrivalSampler(sim.ArrivalPoisson, 6)
	if err != nil {
		t.Fatal(err)
	}

	// WHEN 10000 gaps are sampled
	n := 10000
	sum := 0
	for i := 0; i < n; i++ {
		sum += sampler.SampleGap(rng)
	}
	mean := float64(sum) / float64(n)

	// THEN mean gap ≈ lambda (within 5%)
	if math.Abs(mean-6)/6 > 0.05 {
		t.Errorf("mean gap = %.3f, want ≈ 6 (within 5%%)", mean)
	}
}

func TestPoissonSampler_SmallLambda_NeverReturnsZero(t *testing.T) {
	// GIVEN a Poisson sampler whose distribution is mostly zero
	rng := rand.New(rand.NewPCG(7, 7))
	sampler, err := NewArrivalSampler(sim.ArrivalPoisson, 0.1)
	if err != nil {
		t.Fatal(err)
	}

	// WHEN many gaps are sampled
	// THEN every gap is at least one turn
	for i := 0; i < 1000; i++ {
		if gap := sampler.SampleGap(rng); gap < 1 {
			t.Fatalf("gap %d at draw %d, want >= 1", gap, i)
		}
	}
}

func TestFixedSampler_RoundsLambda(t *testing.T) {
	tests := []struct {
		lambda float64
		want   int
	}{
		{3, 3},
		{2.6, 3},
		{0.2, 1},
	}
	for _, tt := range tests {
		sampler, err := NewArrivalSampler(sim.ArrivalFixed, tt.lambda)
		if err != nil {
			t.Fatal(err)
		}
		if got := sampler.SampleGap(nil); got != tt.want {
			t.Errorf("fixed gap for lambda %v = %d, want %d", tt.lambda, got, tt.want)
		}
	}
}

func TestNewArrivalSampler_NoneAndUnknown(t *testing.T) {
	sampler, err := NewArrivalSampler(sim.ArrivalNone, 0)
	if err != nil || sampler != nil {
		t.Errorf("none: got (%v, %v), want (nil, nil)", sampler, err)
	}
	if _, err := NewArrivalSampler("bursty", 3); err == nil {
		t.Error("expected error for unknown process")
	}
	if _, err := NewArrivalSampler(sim.ArrivalPoisson, 0); err == nil {
		t.Error("expected error for non-positive lambda")
	}
}
