package tune

import (
	"fmt"
	"math/rand"
	"strings"
)

// RandomBandit chooses uniformly at random among its arms and ignores all
// observed costs. It exists as the exploration baseline: comparing any
// adaptive policy against it separates "learned something" from "the
// estimates were already right".
//
// Observed costs are still accumulated per arm, purely so Summarize can
// report what uniform sampling measured.
type RandomBandit struct {
	arms  []Implementation
	stats []runningStats
	rng   *rand.Rand
}

// NewRandomBandit creates a RandomBandit over the estimates' candidate set.
// The estimate costs themselves are ignored.
func NewRandomBandit(estimates []CostEstimate, seed int64) *RandomBandit {
	arms := armImplementations(estimates)
	return &RandomBandit{
		arms:  arms,
		stats: make([]runningStats, len(arms)),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Choose implements Bandit for RandomBandit.
func (b *RandomBandit) Choose() Implementation {
	return b.arms[b.rng.Intn(len(b.arms))]
}

// Update implements Bandit for RandomBandit. The observation only feeds the
// per-arm reporting statistics.
func (b *RandomBandit) Update(impl Implementation, cost float64) {
	b.stats[b.armIndex(impl)].Add(cost)
}

// Summarize implements Bandit for RandomBandit.
func (b *RandomBandit) Summarize(key MapKey) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "random %s:", key)
	for i, arm := range b.arms {
		st := &b.stats[i]
		fmt.Fprintf(&sb, " %s{n=%d mean=%.0fns}", arm, st.Count(), st.Mean())
	}
	return sb.String()
}

func (b *RandomBandit) armIndex(impl Implementation) int {
	for i, a := range b.arms {
		if a == impl {
			return i
		}
	}
	panic(fmt.Sprintf("bandit has no arm for implementation %s", impl))
}
