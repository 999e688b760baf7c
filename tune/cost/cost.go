// Package cost derives prior cost estimates for candidate kernel
// implementations from operation shapes and a roofline hardware model.
//
// The estimates exist to seed bandit priors, not to be accurate: a roofline
// bound with per-implementation efficiency discounts is close enough that the
// prior points at a plausible winner, and the measurement feedback loop
// corrects the rest.
package cost

import "math"

// Hardware describes the roofline envelope of the execution target.
type Hardware struct {
	// FLOPS is peak arithmetic throughput in floating-point ops/second.
	FLOPS float64
	// MemBandwidth is peak memory bandwidth in bytes/second.
	MemBandwidth float64
}

// DefaultHardware approximates a contemporary 16-core desktop CPU:
// ~1.2 TFLOP/s of SIMD fused multiply-add throughput across all cores and
// ~80 GB/s of DRAM bandwidth.
func DefaultHardware() Hardware {
	return Hardware{FLOPS: 1.2e12, MemBandwidth: 80e9}
}

// --- Roofline Efficiency Constants ---
//
// Fractions of peak the implementation plausibly sustains. Single-threaded
// variants are discounted against the full-chip FLOPS figure rather than
// modeling core counts separately; per-implementation fixed overheads model
// setup work (buffer packing, FFT plans, thread-pool dispatch) that dominates
// small problems.
const (
	// conv2dIm2colEff: patch-matrix lowering runs the bulk of the work as
	// a well-tiled GEMM.
	conv2dIm2colEff = 0.50

	// conv2dWinogradEff: transform-domain convolution; the output/input
	// tile transforms eat part of the GEMM's efficiency.
	conv2dWinogradEff = 0.45

	// conv2dFFTEff: frequency-domain convolution; butterflies vectorize
	// worse than GEMM inner loops.
	conv2dFFTEff = 0.35

	// conv2dDirectEff: straight 7-deep loop nest, scalar accumulation.
	conv2dDirectEff = 0.02

	// winogradFlopsReduction divides direct-convolution FLOPs for the
	// F(2x2, 3x3) Winograd transform.
	winogradFlopsReduction = 2.25

	// fftTransformFlopsPerCell scales the N*log2(N) transform cost per
	// spatial cell per channel.
	fftTransformFlopsPerCell = 5.0

	// fftOverheadNanos covers plan construction and twiddle setup.
	fftOverheadNanos = 20e3

	// matmulNaiveEff: single-threaded triple loop, no blocking.
	matmulNaiveEff = 0.01

	// matmulTiledEff: single-threaded, cache-blocked and vectorized.
	matmulTiledEff = 0.08

	// matmulParallelEff: blocked and parallelized across all cores.
	matmulParallelEff = 0.60

	// matmulTiledOverheadNanos covers tile-buffer packing.
	matmulTiledOverheadNanos = 2e3

	// matmulParallelOverheadNanos covers thread-pool dispatch and the
	// final reduction barrier.
	matmulParallelOverheadNanos = 30e3
)

// rooflineNanos returns the roofline time bound in nanoseconds: the work is
// either compute-bound at a discounted FLOPS rate or bandwidth-bound at full
// memory bandwidth, plus a fixed setup overhead.
func rooflineNanos(flops, bytes float64, hw Hardware, eff, overheadNanos float64) float64 {
	compute := flops / (eff * hw.FLOPS)
	memory := bytes / hw.MemBandwidth
	return math.Max(compute, memory)*1e9 + overheadNanos
}
