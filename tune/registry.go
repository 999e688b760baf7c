package tune

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// banditEntry pairs one bandit instance with the lock serializing access to
// it. Entries are created once and never replaced until Reset.
type banditEntry struct {
	mu     sync.Mutex
	bandit Bandit
}

// Registry owns all bandit instances for one strategy. It maps call-site
// keys to lazily-created instances, preserves creation order for reporting,
// and assigns each instance a sequential derived seed.
//
// Instances never escape the registry: Choose/Update/SummarizeAll route to
// the instance under its per-entry lock, so a bandit is only ever touched by
// one goroutine at a time.
type Registry struct {
	strategy Strategy
	factory  BanditFactory
	seedBase int64

	mu       sync.RWMutex
	entries  map[MapKey]*banditEntry
	ordered  []MapKey // creation order, for deterministic reporting
	nextSeed int64

	flight singleflight.Group
}

// NewRegistry creates an empty Registry for one strategy.
func NewRegistry(strategy Strategy, factory BanditFactory, seedBase int64) *Registry {
	return &Registry{
		strategy: strategy,
		factory:  factory,
		seedBase: seedBase,
		entries:  make(map[MapKey]*banditEntry),
	}
}

// Choose returns the bandit's choice for key, creating the bandit first if
// this is the key's first call. costFn is invoked exactly once per distinct
// key, even when many goroutines race the first call.
func (r *Registry) Choose(key MapKey, costFn CostFn) Implementation {
	e := r.getOrCreate(key, costFn)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bandit.Choose()
}

// Update folds one observed cost (nanoseconds) into the bandit for key.
// The bandit must already exist: an update for an unknown key means the
// choose/update pairing contract was broken by the caller.
func (r *Registry) Update(key MapKey, impl Implementation, cost float64) {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("Registry.Update: no %s bandit exists for key %q", r.strategy, key))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bandit.Update(impl, cost)
}

// SummarizeAll reports every bandit's belief state, one line per call site,
// in creation order.
func (r *Registry) SummarizeAll() []string {
	r.mu.RLock()
	keys := append([]MapKey(nil), r.ordered...)
	entries := make([]*banditEntry, len(keys))
	for i, k := range keys {
		entries[i] = r.entries[k]
	}
	r.mu.RUnlock()

	out := make([]string, len(keys))
	for i, e := range entries {
		e.mu.Lock()
		out[i] = e.bandit.Summarize(keys[i])
		e.mu.Unlock()
	}
	return out
}

// Reset discards every instance, the creation-order list, and the seed
// counter. A maintenance operation: callers must ensure no Choose/Update is
// in flight (see Dispatcher.Reset).
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[MapKey]*banditEntry)
	r.ordered = nil
	r.nextSeed = 0
}

// Size returns the number of bandit instances currently registered.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Has reports whether a bandit instance exists for key.
func (r *Registry) Has(key MapKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Keys returns the call-site keys in creation order.
func (r *Registry) Keys() []MapKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]MapKey(nil), r.ordered...)
}

// getOrCreate is the fast-path read / singleflight-create pattern. Concurrent
// first calls for the same key collapse into one creation; callers that lose
// the race share the winner's entry.
func (r *Registry) getOrCreate(key MapKey, costFn CostFn) *banditEntry {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return e
	}

	v, _, _ := r.flight.Do(string(key), func() (interface{}, error) {
		// Recheck: a concurrent caller may have completed creation
		// between our read miss and entering the flight group.
		r.mu.RLock()
		e, ok := r.entries[key]
		r.mu.RUnlock()
		if ok {
			return e, nil
		}

		estimates := costFn()

		r.mu.Lock()
		seed := deriveSeed(r.seedBase, r.strategy, r.nextSeed)
		r.nextSeed++
		e = &banditEntry{bandit: r.factory(estimates, seed)}
		r.entries[key] = e
		r.ordered = append(r.ordered, key)
		r.mu.Unlock()

		banditsCreatedTotal.WithLabelValues(string(r.strategy)).Inc()
		return e, nil
	})
	return v.(*banditEntry)
}
