package cost

import (
	"fmt"

	"github.com/kerneltune/kerneltune/tune"
)

// MatMulShape describes one dense matrix multiplication: an MxK operand
// times a KxN operand.
type MatMulShape struct {
	M int `yaml:"m"`
	K int `yaml:"k"`
	N int `yaml:"n"`
}

// FLOPs returns the floating-point operation count (multiply-accumulates
// counted as two ops).
func (s MatMulShape) FLOPs() float64 {
	return 2 * float64(s.M) * float64(s.K) * float64(s.N)
}

// Key returns the canonical call-site key for this shape.
func (s MatMulShape) Key() tune.MapKey {
	return tune.MapKey(fmt.Sprintf("matmul/%dx%dx%d", s.M, s.K, s.N))
}

// Repr returns a human-readable description for observation logs.
func (s MatMulShape) Repr() string {
	return fmt.Sprintf("matmul M=%d K=%d N=%d", s.M, s.K, s.N)
}

func (s MatMulShape) validate() {
	if s.M <= 0 || s.K <= 0 || s.N <= 0 {
		panic(fmt.Sprintf("invalid matmul shape %+v", s))
	}
}

// EstimateMatMul returns per-implementation cost estimates in nanoseconds
// for one matrix multiplication. The fixed overheads put the crossover where
// it belongs: tiny products favor the naive loop, large ones the parallel
// kernel.
func EstimateMatMul(s MatMulShape, hw Hardware) []tune.CostEstimate {
	s.validate()

	const bytesPerElem = 4

	flops := s.FLOPs()
	bytes := bytesPerElem * (float64(s.M)*float64(s.K) +
		float64(s.K)*float64(s.N) +
		float64(s.M)*float64(s.N))

	return []tune.CostEstimate{
		{
			Impl: tune.MatMulNaive,
			Cost: rooflineNanos(flops, bytes, hw, matmulNaiveEff, 0),
		},
		{
			Impl: tune.MatMulTiled,
			Cost: rooflineNanos(flops, bytes, hw, matmulTiledEff, matmulTiledOverheadNanos),
		},
		{
			Impl: tune.MatMulParallel,
			Cost: rooflineNanos(flops, bytes, hw, matmulParallelEff, matmulParallelOverheadNanos),
		},
	}
}
