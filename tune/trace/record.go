// Package trace records finished selection observations. It implements the
// tune.ObservationLog interface with an in-memory log that can mirror every
// observation to persistence sinks, plus aggregation into per-site summaries.
package trace

import (
	"time"

	"github.com/kerneltune/kerneltune/tune"
)

// Record captures one finished measurement: which strategy chose which
// implementation for which call site, and what it cost.
type Record struct {
	Strategy       tune.Strategy
	Key            tune.MapKey
	Implementation tune.Implementation
	ElapsedNanos   int64
}

// Elapsed returns the measured cost as a duration.
func (r Record) Elapsed() time.Duration {
	return time.Duration(r.ElapsedNanos)
}
