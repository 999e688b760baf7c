package trace

import (
	"math"

	"github.com/kerneltune/kerneltune/tune"
)

// ArmSummary aggregates the observations of one implementation at one call
// site.
type ArmSummary struct {
	Implementation tune.Implementation
	Count          int
	MeanNanos      float64
	MinNanos       int64
	MaxNanos       int64
}

// KeySummary aggregates all observations for one call site.
type KeySummary struct {
	Key   tune.MapKey
	Repr  string
	Total int
	Arms  []ArmSummary // first-observed order
	// Best is the implementation with the lowest observed mean cost.
	Best tune.Implementation
}

// Summary aggregates statistics from an observation log.
type Summary struct {
	RunID        string
	TotalRecords int
	Keys         []KeySummary // first-seen key order
}

// Summarize computes per-site, per-implementation aggregates from a log.
// Safe for nil logs (returns zero-value fields). Sites appear in first-seen
// key order; arms within a site in first-observed order.
func Summarize(l *Log) *Summary {
	summary := &Summary{}
	if l == nil {
		return summary
	}
	summary.RunID = l.RunID()

	records := l.Records()
	summary.TotalRecords = len(records)

	perKey := make(map[tune.MapKey]*KeySummary)
	var order []tune.MapKey
	for _, rec := range records {
		ks, ok := perKey[rec.Key]
		if !ok {
			ks = &KeySummary{Key: rec.Key}
			if repr, found := l.KeyRepr(rec.Key); found {
				ks.Repr = repr
			}
			perKey[rec.Key] = ks
			order = append(order, rec.Key)
		}
		ks.Total++

		var arm *ArmSummary
		for i := range ks.Arms {
			if ks.Arms[i].Implementation == rec.Implementation {
				arm = &ks.Arms[i]
				break
			}
		}
		if arm == nil {
			ks.Arms = append(ks.Arms, ArmSummary{
				Implementation: rec.Implementation,
				MinNanos:       rec.ElapsedNanos,
				MaxNanos:       rec.ElapsedNanos,
			})
			arm = &ks.Arms[len(ks.Arms)-1]
		}
		// Incremental mean keeps a long run from overflowing a plain sum.
		arm.Count++
		arm.MeanNanos += (float64(rec.ElapsedNanos) - arm.MeanNanos) / float64(arm.Count)
		if rec.ElapsedNanos < arm.MinNanos {
			arm.MinNanos = rec.ElapsedNanos
		}
		if rec.ElapsedNanos > arm.MaxNanos {
			arm.MaxNanos = rec.ElapsedNanos
		}
	}

	for _, key := range order {
		ks := perKey[key]
		best := math.Inf(1)
		for _, arm := range ks.Arms {
			if arm.MeanNanos < best {
				best = arm.MeanNanos
				ks.Best = arm.Implementation
			}
		}
		summary.Keys = append(summary.Keys, *ks)
	}
	return summary
}
