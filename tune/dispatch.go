package tune

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ObservationLog receives the stream of finished measurements. RegisterKey
// associates a key with its human-readable form lazily, once per key; Record
// appends one observation. Implementations must be safe for concurrent use.
type ObservationLog interface {
	RegisterKey(key MapKey, repr func() string)
	Record(strategy Strategy, key MapKey, impl Implementation, elapsed time.Duration)
}

// Config controls Dispatcher construction.
type Config struct {
	// Seed is the base seed for all bandit random sources. Instances
	// derive their own seeds from it (see deriveSeed), so two Dispatchers
	// with the same seed replay identically given the same call sequence.
	Seed int64

	// Log receives an observation for every finished Measuring session.
	// Nil drops observations.
	Log ObservationLog
}

// Dispatcher is the selection coordinator. It holds one Registry per
// selectable strategy, the currently active strategy, and the global table
// counting how often each implementation has been chosen.
//
// Construct one per process (or per test) and pass it down to call sites;
// there is no package-level instance.
type Dispatcher struct {
	registries map[Strategy]*Registry // immutable after construction
	active     atomic.Value           // Strategy
	chosen     [NumImplementations]atomic.Int64
	log        ObservationLog
}

// NewDispatcher creates a Dispatcher with an empty registry per selectable
// strategy and no active strategy.
func NewDispatcher(cfg Config) *Dispatcher {
	d := &Dispatcher{
		registries: make(map[Strategy]*Registry, len(selectableStrategies)),
		log:        cfg.Log,
	}
	for _, s := range selectableStrategies {
		d.registries[s] = NewRegistry(s, NewBanditFactory(s), cfg.Seed)
	}
	d.active.Store(StrategyNone)
	return d
}

// ActiveStrategy returns the currently active strategy. StrategyNone means
// selection is disabled.
func (d *Dispatcher) ActiveStrategy() Strategy {
	return d.active.Load().(Strategy)
}

// SetActiveStrategy switches the active strategy. StrategyNone disables
// selection. Panics on unrecognized names.
func (d *Dispatcher) SetActiveStrategy(s Strategy) {
	if !validStrategies[s] {
		panic(fmt.Sprintf("unknown strategy %q", s))
	}
	d.active.Store(s)
}

// Choose routes to the strategy's registry, obtains the bandit's choice for
// key (creating the bandit on first use via costFn), counts the choice, and
// returns it. Panics if strategy does not name a selectable variant.
func (d *Dispatcher) Choose(strategy Strategy, key MapKey, costFn CostFn) Implementation {
	impl := d.registryFor(strategy).Choose(key, costFn)
	if !impl.Selectable() {
		panic(fmt.Sprintf("%s bandit for key %q chose non-selectable implementation %s", strategy, key, impl))
	}
	d.chosen[impl].Add(1)
	selectionsTotal.WithLabelValues(string(strategy), impl.String()).Inc()
	return impl
}

// Update routes one observed cost back to the bandit that produced the
// choice. The bandit must already exist for key.
func (d *Dispatcher) Update(strategy Strategy, key MapKey, impl Implementation, elapsed time.Duration) {
	d.registryFor(strategy).Update(key, impl, float64(elapsed.Nanoseconds()))
	observedCostSeconds.WithLabelValues(impl.String()).Observe(elapsed.Seconds())
}

// TimesChosen returns how often an implementation has been chosen since the
// last Reset. Panics when handed the count sentinel or any other
// out-of-range value.
func (d *Dispatcher) TimesChosen(impl Implementation) int64 {
	if impl < 0 || impl >= NumImplementations {
		panic(fmt.Sprintf("TimesChosen: out-of-range implementation %d", int(impl)))
	}
	return d.chosen[impl].Load()
}

// Summarize reports belief state for the active strategy's registry, one
// line per call site in creation order. Nil when selection is disabled.
func (d *Dispatcher) Summarize() []string {
	active := d.ActiveStrategy()
	if active == StrategyNone {
		return nil
	}
	return d.registryFor(active).SummarizeAll()
}

// Reset clears every registry, zeroes the chosen-count table, and disables
// selection. A maintenance barrier: the caller must ensure no session is in
// flight. Sessions that survive a Reset panic on Finish, since their
// registry entry is gone.
func (d *Dispatcher) Reset() {
	for _, s := range selectableStrategies {
		d.registries[s].Reset()
	}
	for i := range d.chosen {
		d.chosen[i].Store(0)
	}
	d.active.Store(StrategyNone)
	logrus.Info("dispatcher reset: all bandit state cleared, selection disabled")
}

// registryFor resolves a selectable strategy to its registry. The registry
// table is immutable after construction, so no locking is needed here.
func (d *Dispatcher) registryFor(strategy Strategy) *Registry {
	r, ok := d.registries[strategy]
	if !ok {
		panic(fmt.Sprintf("unsupported bandit strategy %q", strategy))
	}
	return r
}
