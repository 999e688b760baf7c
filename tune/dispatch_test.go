package tune

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDispatcher_StartsDisabled(t *testing.T) {
	d := NewDispatcher(Config{Seed: 1})
	assert.Equal(t, StrategyNone, d.ActiveStrategy())
	for i := Implementation(0); i < NumImplementations; i++ {
		assert.Equal(t, int64(0), d.TimesChosen(i))
	}
}

func TestDispatcher_SetActiveStrategy_Unknown_Panics(t *testing.T) {
	d := NewDispatcher(Config{Seed: 1})
	assert.PanicsWithValue(t,
		`unknown strategy "epsilon-greedy"`,
		func() {
			d.SetActiveStrategy("epsilon-greedy")
		})
}

func TestDispatcher_SetActiveStrategy_NoneDisables(t *testing.T) {
	d := NewDispatcher(Config{Seed: 1})
	d.SetActiveStrategy(StrategyRandom)
	assert.Equal(t, StrategyRandom, d.ActiveStrategy())
	d.SetActiveStrategy(StrategyNone)
	assert.Equal(t, StrategyNone, d.ActiveStrategy())
}

func TestDispatcher_Choose_UnsupportedStrategy_Panics(t *testing.T) {
	d := NewDispatcher(Config{Seed: 1})
	assert.PanicsWithValue(t,
		`unsupported bandit strategy "thompson"`,
		func() {
			d.Choose("thompson", "conv2d/a", func() []CostEstimate { return threeArmEstimates() })
		})
}

func TestDispatcher_Choose_NoneStrategy_Panics(t *testing.T) {
	// StrategyNone is a valid active-strategy value but owns no registry.
	d := NewDispatcher(Config{Seed: 1})
	assert.PanicsWithValue(t,
		`unsupported bandit strategy ""`,
		func() {
			d.Choose(StrategyNone, "conv2d/a", func() []CostEstimate { return threeArmEstimates() })
		})
}

func TestDispatcher_Update_UnsupportedStrategy_Panics(t *testing.T) {
	d := NewDispatcher(Config{Seed: 1})
	assert.PanicsWithValue(t,
		`unsupported bandit strategy "thompson"`,
		func() {
			d.Update("thompson", "conv2d/a", Conv2dIm2col, time.Microsecond)
		})
}

func TestDispatcher_TimesChosen_Sentinel_Panics(t *testing.T) {
	d := NewDispatcher(Config{Seed: 1})
	assert.PanicsWithValue(t,
		"TimesChosen: out-of-range implementation 9",
		func() {
			d.TimesChosen(NumImplementations)
		})
}

func TestDispatcher_Choose_CountConservation(t *testing.T) {
	// GIVEN choices spread over several keys and both strategies
	d := NewDispatcher(Config{Seed: 99})
	costFn := func() []CostEstimate { return threeArmEstimates() }

	const perStrategy = 50
	for i := 0; i < perStrategy; i++ {
		d.Choose(StrategyRandom, MapKey(fmt.Sprintf("conv2d/%d", i%5)), costFn)
		d.Choose(StrategyGaussian, MapKey(fmt.Sprintf("conv2d/%d", i%3)), costFn)
	}

	// THEN the chosen counts over real implementations sum to the number
	// of choose calls, and the pseudo-choices were never counted
	var sum int64
	for i := Implementation(0); i < NumImplementations; i++ {
		sum += d.TimesChosen(i)
	}
	assert.Equal(t, int64(2*perStrategy), sum)
	assert.Equal(t, int64(0), d.TimesChosen(Fallback))
	assert.Equal(t, int64(0), d.TimesChosen(Disabled))
}

func TestDispatcher_Choose_ConcurrentCounts(t *testing.T) {
	d := NewDispatcher(Config{Seed: 5})
	costFn := func() []CostEstimate {
		return []CostEstimate{
			{Impl: MatMulNaive, Cost: 100},
			{Impl: MatMulTiled, Cost: 80},
		}
	}

	const goroutines = 8
	const perGoroutine = 200
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				d.Choose(StrategyRandom, "matmul/shared", costFn)
			}
		}()
	}
	wg.Wait()

	total := d.TimesChosen(MatMulNaive) + d.TimesChosen(MatMulTiled)
	assert.Equal(t, int64(goroutines*perGoroutine), total)
}

func TestDispatcher_Summarize_RoutesToActiveRegistryOnly(t *testing.T) {
	// GIVEN bandit state in both registries
	d := NewDispatcher(Config{Seed: 1})
	costFn := func() []CostEstimate { return threeArmEstimates() }
	d.Choose(StrategyRandom, "conv2d/r1", costFn)
	d.Choose(StrategyRandom, "conv2d/r2", costFn)
	d.Choose(StrategyGaussian, "conv2d/g1", costFn)

	// WHEN random is active, only random state is reported
	d.SetActiveStrategy(StrategyRandom)
	lines := d.Summarize()
	assert.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, "random ")
	}

	// WHEN gaussian is active, only gaussian state is reported
	d.SetActiveStrategy(StrategyGaussian)
	lines = d.Summarize()
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "gaussian conv2d/g1")
}

func TestDispatcher_Summarize_Disabled_ReturnsNothing(t *testing.T) {
	d := NewDispatcher(Config{Seed: 1})
	d.Choose(StrategyRandom, "conv2d/a", func() []CostEstimate { return threeArmEstimates() })
	assert.Nil(t, d.Summarize())
}

func TestDispatcher_Reset_ClearsEverything(t *testing.T) {
	// GIVEN a dispatcher with an active strategy, counts, and instances
	d := NewDispatcher(Config{Seed: 1})
	d.SetActiveStrategy(StrategyGaussian)
	costFn := func() []CostEstimate { return threeArmEstimates() }
	for i := 0; i < 10; i++ {
		d.Choose(StrategyGaussian, "conv2d/a", costFn)
		d.Choose(StrategyRandom, "conv2d/b", costFn)
	}

	// WHEN resetting
	d.Reset()

	// THEN the strategy is cleared, counts are zero, registries are empty
	assert.Equal(t, StrategyNone, d.ActiveStrategy())
	for i := Implementation(0); i < NumImplementations; i++ {
		assert.Equal(t, int64(0), d.TimesChosen(i))
	}
	for _, s := range SelectableStrategies() {
		assert.Equal(t, 0, d.registries[s].Size())
	}
}

func TestDispatcher_IndependentInstances_DoNotShareState(t *testing.T) {
	// Two dispatchers must be fully isolated: choices on one never show
	// up in the other's counts or registries.
	d1 := NewDispatcher(Config{Seed: 1})
	d2 := NewDispatcher(Config{Seed: 1})
	costFn := func() []CostEstimate { return threeArmEstimates() }

	d1.Choose(StrategyRandom, "conv2d/a", costFn)

	var sum int64
	for i := Implementation(0); i < NumImplementations; i++ {
		sum += d2.TimesChosen(i)
	}
	assert.Equal(t, int64(0), sum)
	assert.Equal(t, 0, d2.registries[StrategyRandom].Size())
}
