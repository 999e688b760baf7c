package workload

import (
	"fmt"
	"math/rand"

	"github.com/kerneltune/kerneltune/tune"
	"github.com/kerneltune/kerneltune/tune/cost"
)

// minSimulatedNanos floors noisy timings so a simulated kernel never takes
// negative or zero time.
const minSimulatedNanos = 50.0

// Site is one simulated call site. It exposes the candidate implementations
// with their prior estimates through the tune.EntryPoint interface, and it
// models the true per-implementation cost a selected kernel would take,
// which may diverge from the prior via the spec's skew factors.
type Site struct {
	id           string
	key          tune.MapKey
	repr         string
	fallback     bool
	weight       float64
	noise        float64
	estimates    []tune.CostEstimate
	trueCost     map[tune.Implementation]float64
	fallbackCost float64
}

// newSite builds the runtime site for a validated SiteSpec.
func newSite(spec *SiteSpec, hw cost.Hardware) (*Site, error) {
	var (
		key       tune.MapKey
		repr      string
		estimates []tune.CostEstimate
	)
	switch spec.Op {
	case "conv2d":
		key = spec.Conv2d.Key()
		repr = spec.Conv2d.Repr()
		estimates = cost.EstimateConv2d(*spec.Conv2d, hw)
	case "matmul":
		key = spec.MatMul.Key()
		repr = spec.MatMul.Repr()
		estimates = cost.EstimateMatMul(*spec.MatMul, hw)
	default:
		return nil, fmt.Errorf("site %q: unknown op %q", spec.ID, spec.Op)
	}

	// True cost starts from the prior estimate and applies the spec's
	// skew, so the gap between belief and reality is under test control.
	trueCost := make(map[tune.Implementation]float64, len(estimates))
	worst := 0.0
	for _, est := range estimates {
		c := est.Cost
		if factor, ok := spec.Skew[est.Impl.String()]; ok {
			c *= factor
		}
		trueCost[est.Impl] = c
		if c > worst {
			worst = c
		}
	}

	return &Site{
		id:        spec.ID,
		key:       key,
		repr:      repr,
		fallback:  spec.Fallback,
		weight:    spec.Weight,
		noise:     spec.Noise,
		estimates: estimates,
		trueCost:  trueCost,
		// Fallback and disabled calls run the reference kernel, which
		// is as slow as the slowest candidate.
		fallbackCost: worst,
	}, nil
}

// ID returns the spec identifier for reporting.
func (s *Site) ID() string { return s.id }

// Key implements tune.EntryPoint.
func (s *Site) Key() tune.MapKey { return s.key }

// Fallback implements tune.EntryPoint.
func (s *Site) Fallback() bool { return s.fallback }

// Implementations implements tune.EntryPoint.
func (s *Site) Implementations() []tune.Implementation {
	impls := make([]tune.Implementation, len(s.estimates))
	for i, est := range s.estimates {
		impls[i] = est.Impl
	}
	return impls
}

// CostEstimates implements tune.EntryPoint.
func (s *Site) CostEstimates() []tune.CostEstimate {
	out := make([]tune.CostEstimate, len(s.estimates))
	copy(out, s.estimates)
	return out
}

// Repr implements tune.EntryPoint.
func (s *Site) Repr() string { return s.repr }

// SimulatedNanos returns the modeled execution time in nanoseconds for
// running impl at this site, with the site's noise applied. Selections that
// bypassed tuning (fallback, disabled) run the reference kernel.
func (s *Site) SimulatedNanos(impl tune.Implementation, rng *rand.Rand) float64 {
	base, ok := s.trueCost[impl]
	if !ok {
		base = s.fallbackCost
	}
	if s.noise > 0 {
		base *= 1 + s.noise*rng.NormFloat64()
	}
	if base < minSimulatedNanos {
		return minSimulatedNanos
	}
	return base
}

var _ tune.EntryPoint = (*Site)(nil)
