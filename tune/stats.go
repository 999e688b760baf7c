package tune

import "math"

// runningStats accumulates count, sum, mean and variance of an observation
// stream incrementally using Welford's algorithm. The naive sum-of-squares
// form loses precision catastrophically once the stream is long and the
// values are large (nanosecond costs easily reach 1e9), so the incremental
// form is required here.
type runningStats struct {
	n    int64
	sum  float64
	mean float64
	m2   float64
}

// Add folds one observation into the running statistics.
func (s *runningStats) Add(x float64) {
	s.n++
	s.sum += x
	delta := x - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (x - s.mean)
}

// Count returns the number of observations folded in so far.
func (s *runningStats) Count() int64 { return s.n }

// Sum returns the running total of all observations.
func (s *runningStats) Sum() float64 { return s.sum }

// Mean returns the running mean, or 0 with no observations.
func (s *runningStats) Mean() float64 {
	if s.n == 0 {
		return 0
	}
	return s.mean
}

// Variance returns the population variance, or 0 with fewer than two
// observations.
func (s *runningStats) Variance() float64 {
	if s.n < 2 {
		return 0
	}
	return s.m2 / float64(s.n)
}

// StdDev returns the population standard deviation.
func (s *runningStats) StdDev() float64 {
	return math.Sqrt(s.Variance())
}
