package tune

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// --- Gaussian Belief Calibration Constants ---
const (
	// priorSpread scales the prior standard deviation relative to the prior
	// mean cost: a fresh arm's belief is N(estimate, (priorSpread*estimate)^2).
	// Roofline estimates for dense kernels are typically within 2-4x of
	// measured cost, so a 40% one-sigma band keeps every arm plausible for
	// the first few pulls without drowning a strongly separated candidate.
	priorSpread = 0.4

	// priorWeight is the pseudo-observation count carried by the prior
	// estimate. One pseudo-observation means the first real measurement
	// pulls the posterior mean halfway to the observed value.
	priorWeight = 1.0
)

// gaussianArm is the belief state for one candidate implementation.
type gaussianArm struct {
	impl      Implementation
	priorMean float64
	priorVar  float64
	obs       runningStats
}

// posteriorMean blends the prior pseudo-observation with the observed costs.
func (a *gaussianArm) posteriorMean() float64 {
	n := float64(a.obs.Count())
	return (priorWeight*a.priorMean + a.obs.Sum()) / (priorWeight + n)
}

// posteriorStdDev is the uncertainty of the posterior mean. The observed
// sample variance replaces the prior variance once it exceeds it; the prior
// variance acts as a floor so that noise-free measurements (identical
// repeated costs) still leave a shrinking but nonzero exploration band.
func (a *gaussianArm) posteriorStdDev() float64 {
	v := a.obs.Variance()
	if v < a.priorVar {
		v = a.priorVar
	}
	n := float64(a.obs.Count())
	return math.Sqrt(v / (priorWeight + n))
}

// GaussianBandit models each arm's cost as a Gaussian belief and chooses by
// posterior sampling: draw one sample from every arm's posterior-mean
// distribution and take the cheapest draw. Arms whose beliefs overlap keep
// getting explored; once an arm's posterior separates from the rest, it is
// exploited almost always. No tuning knob beyond the prior constants above.
type GaussianBandit struct {
	arms []gaussianArm
	rng  *rand.Rand
}

// NewGaussianBandit creates a GaussianBandit with per-arm priors seeded from
// the cost estimates.
func NewGaussianBandit(estimates []CostEstimate, seed int64) *GaussianBandit {
	impls := armImplementations(estimates)
	arms := make([]gaussianArm, len(estimates))
	for i, est := range estimates {
		sd := priorSpread * est.Cost
		arms[i] = gaussianArm{
			impl:      impls[i],
			priorMean: est.Cost,
			priorVar:  sd * sd,
		}
	}
	return &GaussianBandit{
		arms: arms,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Choose implements Bandit for GaussianBandit. Exactly one normal draw per
// arm, in arm order, so the choice sequence is deterministic per seed and
// update history.
func (b *GaussianBandit) Choose() Implementation {
	best := 0
	bestSample := math.Inf(1)
	for i := range b.arms {
		a := &b.arms[i]
		sample := a.posteriorMean() + a.posteriorStdDev()*b.rng.NormFloat64()
		if sample < bestSample {
			bestSample = sample
			best = i
		}
	}
	return b.arms[best].impl
}

// Update implements Bandit for GaussianBandit.
func (b *GaussianBandit) Update(impl Implementation, cost float64) {
	for i := range b.arms {
		if b.arms[i].impl == impl {
			b.arms[i].obs.Add(cost)
			return
		}
	}
	panic(fmt.Sprintf("bandit has no arm for implementation %s", impl))
}

// Summarize implements Bandit for GaussianBandit.
func (b *GaussianBandit) Summarize(key MapKey) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "gaussian %s:", key)
	for i := range b.arms {
		a := &b.arms[i]
		fmt.Fprintf(&sb, " %s{n=%d mu=%.0fns sd=%.0fns}",
			a.impl, a.obs.Count(), a.posteriorMean(), a.posteriorStdDev())
	}
	return sb.String()
}
