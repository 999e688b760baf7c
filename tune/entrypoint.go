package tune

// MapKey identifies a distinct dispatch call site (operation plus shape/dtype
// signature). Keys are opaque to this package: two calls with equal keys are
// the same decision problem and share one bandit instance per strategy.
type MapKey string

// CostEstimate is a predicted cost for one candidate implementation,
// in nanoseconds. Estimates seed a bandit's priors; they are consumed once,
// at bandit creation, and never re-read.
type CostEstimate struct {
	Impl Implementation
	Cost float64
}

// EntryPoint describes one call site to the selection engine.
//
// Implementations, Key, Fallback and Repr must be cheap: they are consulted
// on every call through the site. CostEstimates may be expensive; the engine
// invokes it at most once per distinct key (at bandit creation) per strategy.
type EntryPoint interface {
	// Key returns the call-site signature.
	Key() MapKey

	// Fallback reports whether this site has only one viable
	// implementation. Fallback sites bypass learning entirely.
	Fallback() bool

	// Implementations returns the candidate set, in estimate order.
	// Must be non-empty unless Fallback is true.
	Implementations() []Implementation

	// CostEstimates computes the prior cost estimate per candidate,
	// ordered consistently with Implementations.
	CostEstimates() []CostEstimate

	// Repr returns a human-readable description of the call site for
	// observation logs.
	Repr() string
}

// fallbackEntryPoint is the trivial EntryPoint for single-implementation
// sites.
type fallbackEntryPoint struct {
	key  MapKey
	repr string
}

func (f fallbackEntryPoint) Key() MapKey { return f.key }

func (f fallbackEntryPoint) Fallback() bool { return true }

func (f fallbackEntryPoint) Implementations() []Implementation { return nil }

func (f fallbackEntryPoint) CostEstimates() []CostEstimate { return nil }

func (f fallbackEntryPoint) Repr() string { return f.repr }

// FallbackEntryPoint returns an EntryPoint for a call site with no real
// alternatives. Sessions built from it always resolve to Fallback.
func FallbackEntryPoint(key MapKey, repr string) EntryPoint {
	return fallbackEntryPoint{key: key, repr: repr}
}
