package tune

import "fmt"

// CostFn produces the prior cost estimates for one call site. The engine
// invokes it at most once per distinct key, at bandit creation; registries
// guarantee the at-most-once property even under concurrent creation races.
type CostFn func() []CostEstimate

// Bandit is the per-call-site learning policy. One instance exists per
// (strategy, key) pair, owned by that strategy's Registry; all access is
// serialized by the registry, so implementations need no internal locking.
type Bandit interface {
	// Choose selects an implementation from the candidate arms. It must
	// terminate and must return one of the arms the bandit was
	// constructed with, never a sentinel.
	Choose() Implementation

	// Update folds one observed cost (nanoseconds) for one arm into the
	// belief state. Repeated calls for the same arm accumulate.
	Update(impl Implementation, cost float64)

	// Summarize reports the current belief state as a single line tagged
	// with the call-site key. Reporting only: no state mutation.
	Summarize(key MapKey) string
}

// BanditFactory constructs one bandit variant from prior cost estimates and
// a per-instance seed.
type BanditFactory func(estimates []CostEstimate, seed int64) Bandit

// NewBanditFactory returns the factory for the named strategy.
// Panics on strategies that do not own a registry (including StrategyNone).
func NewBanditFactory(strategy Strategy) BanditFactory {
	switch strategy {
	case StrategyRandom:
		return func(estimates []CostEstimate, seed int64) Bandit {
			return NewRandomBandit(estimates, seed)
		}
	case StrategyGaussian:
		return func(estimates []CostEstimate, seed int64) Bandit {
			return NewGaussianBandit(estimates, seed)
		}
	default:
		panic(fmt.Sprintf("unknown bandit strategy %q", strategy))
	}
}

// armImplementations extracts the ordered candidate set from an estimate
// list, panicking on an empty or sentinel-bearing set. Shared constructor
// validation for all bandit variants.
func armImplementations(estimates []CostEstimate) []Implementation {
	if len(estimates) == 0 {
		panic("bandit constructed with no cost estimates")
	}
	arms := make([]Implementation, len(estimates))
	for i, est := range estimates {
		if !est.Impl.Selectable() {
			panic(fmt.Sprintf("bandit arm %s is not a selectable implementation", est.Impl))
		}
		arms[i] = est.Impl
	}
	return arms
}
