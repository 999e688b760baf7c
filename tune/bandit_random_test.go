package tune

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func threeArmEstimates() []CostEstimate {
	return []CostEstimate{
		{Impl: Conv2dIm2col, Cost: 10},
		{Impl: Conv2dWinograd, Cost: 20},
		{Impl: Conv2dFFT, Cost: 30},
	}
}

func TestNewRandomBandit_NoEstimates_Panics(t *testing.T) {
	assert.PanicsWithValue(t,
		"bandit constructed with no cost estimates",
		func() {
			NewRandomBandit(nil, 0)
		})
}

func TestNewRandomBandit_SentinelArm_Panics(t *testing.T) {
	assert.Panics(t, func() {
		NewRandomBandit([]CostEstimate{{Impl: Fallback, Cost: 10}}, 0)
	})
}

func TestRandomBandit_Choose_CoversAllArms(t *testing.T) {
	// GIVEN a random bandit over three arms
	b := NewRandomBandit(threeArmEstimates(), 7)

	// WHEN drawing many times
	counts := make(map[Implementation]int)
	for i := 0; i < 300; i++ {
		counts[b.Choose()]++
	}

	// THEN every arm is hit and no non-arm implementation ever appears
	assert.Len(t, counts, 3)
	for _, arm := range []Implementation{Conv2dIm2col, Conv2dWinograd, Conv2dFFT} {
		if counts[arm] < 50 {
			t.Errorf("arm %s chosen only %d/300 times, uniform draw should not starve it", arm, counts[arm])
		}
	}
}

func TestRandomBandit_Choose_IgnoresObservedCosts(t *testing.T) {
	// GIVEN a random bandit that has seen one arm cost vastly more
	b := NewRandomBandit(threeArmEstimates(), 7)
	for i := 0; i < 50; i++ {
		b.Update(Conv2dIm2col, 1e9)
	}

	// WHEN drawing after those updates
	counts := make(map[Implementation]int)
	for i := 0; i < 300; i++ {
		counts[b.Choose()]++
	}

	// THEN the expensive arm keeps being explored
	if counts[Conv2dIm2col] < 50 {
		t.Errorf("expensive arm chosen only %d/300 times; random policy must ignore costs", counts[Conv2dIm2col])
	}
}

func TestRandomBandit_Determinism_SameSeedSameSequence(t *testing.T) {
	b1 := NewRandomBandit(threeArmEstimates(), 42)
	b2 := NewRandomBandit(threeArmEstimates(), 42)

	for i := 0; i < 100; i++ {
		if c1, c2 := b1.Choose(), b2.Choose(); c1 != c2 {
			t.Fatalf("draw %d diverged: %s vs %s", i, c1, c2)
		}
	}
}

func TestRandomBandit_Update_UnknownArm_Panics(t *testing.T) {
	b := NewRandomBandit(threeArmEstimates(), 0)
	assert.PanicsWithValue(t,
		"bandit has no arm for implementation matmul_naive",
		func() {
			b.Update(MatMulNaive, 100)
		})
}

func TestRandomBandit_Summarize_ReportsObservations(t *testing.T) {
	b := NewRandomBandit(threeArmEstimates(), 0)
	b.Update(Conv2dWinograd, 100)
	b.Update(Conv2dWinograd, 300)

	line := b.Summarize("conv2d/k3x3")
	assert.Contains(t, line, "random conv2d/k3x3:")
	assert.Contains(t, line, "conv2d_winograd{n=2 mean=200ns}")
	assert.Contains(t, line, "conv2d_im2col{n=0 mean=0ns}")
}
