package tune

import "fmt"

// Implementation identifies one candidate kernel for an operation, or one of
// the pseudo-choices a Selection can resolve to when no learning happens.
//
// Fallback and Disabled are session outcomes, never bandit arms: they are
// reported by Selection.Choice but are never passed to Bandit.Update.
// NumImplementations is a count sentinel and is never a valid choice.
type Implementation int

const (
	Conv2dIm2col Implementation = iota
	Conv2dWinograd
	Conv2dFFT
	Conv2dDirect
	MatMulNaive
	MatMulTiled
	MatMulParallel

	// Fallback marks a session for a call site with only one viable
	// implementation; learning is bypassed entirely.
	Fallback
	// Disabled marks a session constructed while no strategy is active.
	Disabled

	// NumImplementations is the count sentinel. Keep it last.
	NumImplementations
)

var implementationNames = [NumImplementations]string{
	"conv2d_im2col",
	"conv2d_winograd",
	"conv2d_fft",
	"conv2d_direct",
	"matmul_naive",
	"matmul_tiled",
	"matmul_parallel",
	"fallback",
	"disabled",
}

// String returns the canonical snake_case name of the implementation.
func (i Implementation) String() string {
	if i < 0 || i >= NumImplementations {
		return fmt.Sprintf("implementation(%d)", int(i))
	}
	return implementationNames[i]
}

// Selectable reports whether i identifies a real kernel implementation, as
// opposed to the Fallback/Disabled pseudo-choices or the count sentinel.
func (i Implementation) Selectable() bool {
	return i >= 0 && i < Fallback
}

// ParseImplementation maps a canonical name back to its Implementation.
// Used when reading implementation names from workload configs.
func ParseImplementation(name string) (Implementation, error) {
	for i, n := range implementationNames {
		if n == name {
			return Implementation(i), nil
		}
	}
	return 0, fmt.Errorf("unknown implementation %q", name)
}
