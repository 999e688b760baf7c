package cost

import (
	"fmt"
	"math"

	"github.com/kerneltune/kerneltune/tune"
)

// Conv2dShape describes one NCHW 2-D convolution call. Stride and padding
// are symmetric per axis; dilation and grouping are not modeled.
type Conv2dShape struct {
	Batch       int `yaml:"batch"`
	InChannels  int `yaml:"in_channels"`
	Height      int `yaml:"height"`
	Width       int `yaml:"width"`
	OutChannels int `yaml:"out_channels"`
	KernelH     int `yaml:"kernel_h"`
	KernelW     int `yaml:"kernel_w"`
	StrideH     int `yaml:"stride_h"`
	StrideW     int `yaml:"stride_w"`
	PadH        int `yaml:"pad_h"`
	PadW        int `yaml:"pad_w"`
}

// OutHeight returns the output feature-map height.
func (s Conv2dShape) OutHeight() int {
	return (s.Height+2*s.PadH-s.KernelH)/s.StrideH + 1
}

// OutWidth returns the output feature-map width.
func (s Conv2dShape) OutWidth() int {
	return (s.Width+2*s.PadW-s.KernelW)/s.StrideW + 1
}

// FLOPs returns the direct-convolution floating-point operation count
// (multiply-accumulates counted as two ops).
func (s Conv2dShape) FLOPs() float64 {
	macs := float64(s.Batch) * float64(s.OutChannels) *
		float64(s.OutHeight()) * float64(s.OutWidth()) *
		float64(s.InChannels) * float64(s.KernelH) * float64(s.KernelW)
	return 2 * macs
}

// Key returns the canonical call-site key for this shape. Calls with equal
// keys share one bandit, so every parameter that changes the cost landscape
// is part of the key.
func (s Conv2dShape) Key() tune.MapKey {
	return tune.MapKey(fmt.Sprintf("conv2d/n%d/c%dx%dx%d/k%dx%dx%d/s%dx%d/p%dx%d",
		s.Batch, s.InChannels, s.Height, s.Width,
		s.OutChannels, s.KernelH, s.KernelW,
		s.StrideH, s.StrideW, s.PadH, s.PadW))
}

// Repr returns a human-readable description for observation logs.
func (s Conv2dShape) Repr() string {
	return fmt.Sprintf("conv2d N=%d C=%d HxW=%dx%d K=%d kernel=%dx%d stride=%dx%d pad=%dx%d",
		s.Batch, s.InChannels, s.Height, s.Width,
		s.OutChannels, s.KernelH, s.KernelW,
		s.StrideH, s.StrideW, s.PadH, s.PadW)
}

func (s Conv2dShape) validate() {
	if s.Batch <= 0 || s.InChannels <= 0 || s.Height <= 0 || s.Width <= 0 ||
		s.OutChannels <= 0 || s.KernelH <= 0 || s.KernelW <= 0 ||
		s.StrideH <= 0 || s.StrideW <= 0 || s.PadH < 0 || s.PadW < 0 {
		panic(fmt.Sprintf("invalid conv2d shape %+v", s))
	}
	if s.OutHeight() <= 0 || s.OutWidth() <= 0 {
		panic(fmt.Sprintf("conv2d shape %+v produces an empty output", s))
	}
}

// winogradApplicable reports whether the F(2x2, 3x3) Winograd kernel can run
// this shape. Only unit-stride 3x3 convolutions are supported.
func (s Conv2dShape) winogradApplicable() bool {
	return s.KernelH == 3 && s.KernelW == 3 && s.StrideH == 1 && s.StrideW == 1
}

// EstimateConv2d returns per-implementation cost estimates in nanoseconds
// for one convolution call. The candidate set varies with the shape:
// Winograd is only offered where its kernel restrictions hold.
func EstimateConv2d(s Conv2dShape, hw Hardware) []tune.CostEstimate {
	s.validate()

	const bytesPerElem = 4 // float32 tensors throughout

	flops := s.FLOPs()
	outH, outW := float64(s.OutHeight()), float64(s.OutWidth())
	inputBytes := bytesPerElem * float64(s.Batch) * float64(s.InChannels) *
		float64(s.Height) * float64(s.Width)
	weightBytes := bytesPerElem * float64(s.OutChannels) * float64(s.InChannels) *
		float64(s.KernelH) * float64(s.KernelW)
	outputBytes := bytesPerElem * float64(s.Batch) * float64(s.OutChannels) * outH * outW

	// im2col materializes a patch matrix of InChannels*KH*KW rows per
	// output position, inflating traffic by roughly the kernel area.
	patchBytes := bytesPerElem * float64(s.Batch) * float64(s.InChannels) *
		float64(s.KernelH) * float64(s.KernelW) * outH * outW
	im2colBytes := inputBytes + patchBytes + weightBytes + outputBytes

	directBytes := inputBytes + weightBytes + outputBytes

	estimates := []tune.CostEstimate{
		{
			Impl: tune.Conv2dIm2col,
			Cost: rooflineNanos(flops, im2colBytes, hw, conv2dIm2colEff, 0),
		},
	}

	if s.winogradApplicable() {
		// Transform temps for input and output tiles roughly double
		// the activation traffic.
		winogradBytes := 2*(inputBytes+outputBytes) + weightBytes
		estimates = append(estimates, tune.CostEstimate{
			Impl: tune.Conv2dWinograd,
			Cost: rooflineNanos(flops/winogradFlopsReduction, winogradBytes, hw, conv2dWinogradEff, 0),
		})
	}

	// FFT cost is dominated by the forward/inverse transforms and the
	// per-frequency complex products; notably it does not grow with
	// kernel area, which is what makes it win on large kernels.
	cells := float64(s.Height) * float64(s.Width)
	transformFlops := fftTransformFlopsPerCell * float64(s.Batch) *
		float64(s.InChannels+s.OutChannels) * cells * math.Log2(cells)
	pointwiseFlops := 8 * float64(s.Batch) * float64(s.InChannels) *
		float64(s.OutChannels) * cells
	fftBytes := 2*(inputBytes+outputBytes) + weightBytes
	estimates = append(estimates, tune.CostEstimate{
		Impl: tune.Conv2dFFT,
		Cost: rooflineNanos(transformFlops+pointwiseFlops, fftBytes, hw, conv2dFFTEff, fftOverheadNanos),
	})

	estimates = append(estimates, tune.CostEstimate{
		Impl: tune.Conv2dDirect,
		Cost: rooflineNanos(flops, directBytes, hw, conv2dDirectEff, 0),
	})

	return estimates
}
