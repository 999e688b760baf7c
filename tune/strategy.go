package tune

// Strategy names a bandit policy variant. The empty string (StrategyNone)
// means selection is disabled: sessions resolve to the Disabled pseudo-choice
// and no bandit state is created or consulted.
type Strategy string

const (
	// StrategyNone disables selection entirely.
	StrategyNone Strategy = ""
	// StrategyRandom chooses uniformly at random among candidates,
	// ignoring all observed costs. Baseline policy.
	StrategyRandom Strategy = "random"
	// StrategyGaussian models each candidate's cost as a Gaussian belief
	// seeded from the prior estimate and chooses by posterior sampling.
	// Default adaptive policy.
	StrategyGaussian Strategy = "gaussian"
)

// validStrategies maps accepted strategy names. The empty string is accepted
// and means disabled.
var validStrategies = map[Strategy]bool{
	StrategyNone:     true,
	StrategyRandom:   true,
	StrategyGaussian: true,
}

// selectableStrategies lists the strategies that own a bandit registry, in
// reporting order. StrategyNone is deliberately absent.
var selectableStrategies = []Strategy{StrategyRandom, StrategyGaussian}

// IsValidStrategy returns true if the given name is a recognized strategy.
// The empty string is valid and means disabled.
func IsValidStrategy(name string) bool {
	return validStrategies[Strategy(name)]
}

// SelectableStrategies returns the strategies that can be set active and
// actually learn, in reporting order.
func SelectableStrategies() []Strategy {
	out := make([]Strategy, len(selectableStrategies))
	copy(out, selectableStrategies)
	return out
}
