package workload

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kerneltune/kerneltune/tune"
)

// Runner replays a workload spec against a dispatcher: weighted call-site
// sampling, one selection session per call, simulated kernel time spent
// between start and finish so the measurements mean something.
type Runner struct {
	spec  *Spec
	sites []*Site
	cdf   []float64
}

// NewRunner validates the spec and builds the runtime sites.
func NewRunner(spec *Spec) (*Runner, error) {
	spec.applyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload spec: %w", err)
	}
	hw := spec.hardware()
	sites := make([]*Site, 0, len(spec.Sites))
	for i := range spec.Sites {
		site, err := newSite(&spec.Sites[i], hw)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return &Runner{spec: spec, sites: sites, cdf: siteCDF(sites)}, nil
}

// Sites returns the runtime sites in spec order.
func (r *Runner) Sites() []*Site {
	out := make([]*Site, len(r.sites))
	copy(out, r.sites)
	return out
}

// siteCDF computes the normalized cumulative weight distribution.
func siteCDF(sites []*Site) []float64 {
	total := 0.0
	for _, s := range sites {
		total += s.weight
	}
	cdf := make([]float64, 0, len(sites))
	cumulative := 0.0
	for _, s := range sites {
		cumulative += s.weight / total
		cdf = append(cdf, cumulative)
	}
	// Ensure last CDF entry is exactly 1.0
	cdf[len(cdf)-1] = 1.0
	return cdf
}

func (r *Runner) pickSite(rng *rand.Rand) *Site {
	if len(r.sites) == 1 {
		return r.sites[0]
	}
	u := rng.Float64()
	idx := sort.SearchFloat64s(r.cdf, u)
	if idx >= len(r.sites) {
		idx = len(r.sites) - 1
	}
	return r.sites[idx]
}

// Results aggregates one benchmark run.
type Results struct {
	Calls   int
	ByState map[tune.SelectionState]int
	BySite  map[string]int
	// SimulatedNanos is total modeled kernel time, before time scaling.
	SimulatedNanos float64
	Wall           time.Duration
}

func newResults() *Results {
	return &Results{
		ByState: make(map[tune.SelectionState]int),
		BySite:  make(map[string]int),
	}
}

func (res *Results) merge(other *Results) {
	res.Calls += other.Calls
	for state, n := range other.ByState {
		res.ByState[state] += n
	}
	for id, n := range other.BySite {
		res.BySite[id] += n
	}
	res.SimulatedNanos += other.SimulatedNanos
}

// Run executes the configured number of calls against d across the
// configured workers. Single-worker runs sample deterministically for a
// fixed seed; multi-worker runs interleave, but every call still lands
// exactly one selection session.
func (r *Runner) Run(d *tune.Dispatcher) *Results {
	workers := r.spec.Workers
	calls := r.spec.Calls
	logrus.Infof("workload run: %d calls across %d workers, %d sites, strategy %q",
		calls, workers, len(r.sites), d.ActiveStrategy())

	seeds := workerSeeds(r.spec.Seed, workers)
	partials := make([]*Results, workers)
	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < workers; w++ {
		share := calls / workers
		if w < calls%workers {
			share++
		}
		wg.Add(1)
		go func(w, share int) {
			defer wg.Done()
			partials[w] = r.runWorker(d, share, seeds[w])
		}(w, share)
	}
	wg.Wait()

	merged := newResults()
	for _, p := range partials {
		merged.merge(p)
	}
	merged.Wall = time.Since(start)
	logrus.Infof("workload run complete: %d calls in %s (%.1fms simulated)",
		merged.Calls, merged.Wall, merged.SimulatedNanos/1e6)
	return merged
}

func (r *Runner) runWorker(d *tune.Dispatcher, calls int, seed int64) *Results {
	rng := rand.New(rand.NewSource(seed))
	res := newResults()
	for i := 0; i < calls; i++ {
		site := r.pickSite(rng)
		sel := tune.NewSelection(d, site)
		nanos := site.SimulatedNanos(sel.Choice(), rng)
		spendSimulatedTime(nanos * r.spec.TimeScale)
		sel.Finish()
		res.Calls++
		res.ByState[sel.State()]++
		res.BySite[site.ID()]++
		res.SimulatedNanos += nanos
	}
	return res
}

// workerSeeds derives per-worker seeds from the base seed so workers sample
// independent streams deterministically.
func workerSeeds(seed int64, workers int) []int64 {
	parent := rand.New(rand.NewSource(seed))
	seeds := make([]int64, workers)
	for i := range seeds {
		seeds[i] = parent.Int63()
	}
	return seeds
}

// spendSimulatedTime blocks for roughly nanos so the selection's wall-clock
// measurement reflects the modeled kernel cost. Sub-millisecond waits spin
// on the clock because time.Sleep is too coarse at that scale.
func spendSimulatedTime(nanos float64) {
	if nanos <= 0 {
		return
	}
	d := time.Duration(nanos)
	if d >= time.Millisecond {
		time.Sleep(d)
		return
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}
