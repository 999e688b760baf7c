// Package workload generates synthetic kernel-call workloads for exercising
// the selection engine end to end: a YAML spec declares call sites with
// shapes and true-cost skews, and a Runner replays weighted calls against a
// dispatcher so the bandits can learn from the simulated timings.
package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kerneltune/kerneltune/tune"
	"github.com/kerneltune/kerneltune/tune/cost"
)

// Spec is the top-level benchmark workload configuration.
// Loaded from YAML via LoadSpec(path).
type Spec struct {
	Seed     int64         `yaml:"seed"`
	Strategy string        `yaml:"strategy"`
	Calls    int           `yaml:"calls"`
	Workers  int           `yaml:"workers,omitempty"`
	// TimeScale multiplies simulated kernel durations before wall-clock
	// time is spent on them. 1.0 replays at modeled speed; smaller values
	// compress the run while preserving cost ordering. 0 means 1.0.
	TimeScale float64       `yaml:"time_scale,omitempty"`
	Hardware  *HardwareSpec `yaml:"hardware,omitempty"`
	Sites     []SiteSpec    `yaml:"sites"`
}

// HardwareSpec overrides the roofline hardware model used for prior
// estimates. Omitted fields fall back to cost.DefaultHardware.
type HardwareSpec struct {
	FLOPS        float64 `yaml:"flops,omitempty"`
	MemBandwidth float64 `yaml:"mem_bandwidth,omitempty"`
}

// SiteSpec defines one simulated call site.
type SiteSpec struct {
	ID     string  `yaml:"id"`
	Op     string  `yaml:"op"`
	Weight float64 `yaml:"weight"`
	// Fallback marks the site as one the engine must not tune, the way a
	// call site with an unsupported configuration opts out in production.
	Fallback bool               `yaml:"fallback,omitempty"`
	Conv2d   *cost.Conv2dShape  `yaml:"conv2d,omitempty"`
	MatMul   *cost.MatMulShape  `yaml:"matmul,omitempty"`
	// Skew multiplies an implementation's true cost relative to its prior
	// estimate, keyed by implementation name. A skew of 4.0 on the
	// estimated winner forces the bandit to discover a better arm.
	Skew map[string]float64 `yaml:"skew,omitempty"`
	// Noise is the relative standard deviation of simulated timings.
	Noise float64 `yaml:"noise,omitempty"`
}

var validOps = map[string]bool{
	"conv2d": true, "matmul": true,
}

// LoadSpec reads and parses a YAML workload file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload spec: %w", err)
	}
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing workload spec: %w", err)
	}
	spec.applyDefaults()
	return &spec, nil
}

// applyDefaults fills in omitted fields. Idempotent.
func (s *Spec) applyDefaults() {
	if s.Workers == 0 {
		s.Workers = 1
	}
	if s.TimeScale == 0 {
		s.TimeScale = 1.0
	}
}

// Validate checks that all fields in the spec are valid.
func (s *Spec) Validate() error {
	if !tune.IsValidStrategy(s.Strategy) {
		return fmt.Errorf("unknown strategy %q; valid: random, gaussian, or empty to disable selection", s.Strategy)
	}
	if s.Calls <= 0 {
		return fmt.Errorf("calls must be positive, got %d", s.Calls)
	}
	if s.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", s.Workers)
	}
	if s.TimeScale < 0 || math.IsNaN(s.TimeScale) || math.IsInf(s.TimeScale, 0) {
		return fmt.Errorf("time_scale must be a finite non-negative number, got %f", s.TimeScale)
	}
	if len(s.Sites) == 0 {
		return fmt.Errorf("at least one site required")
	}
	seen := make(map[string]bool, len(s.Sites))
	for i := range s.Sites {
		if err := validateSite(&s.Sites[i], i); err != nil {
			return err
		}
		id := s.Sites[i].ID
		if seen[id] {
			return fmt.Errorf("site[%d]: duplicate id %q", i, id)
		}
		seen[id] = true
	}
	return nil
}

func validateSite(site *SiteSpec, idx int) error {
	prefix := fmt.Sprintf("site[%d]", idx)
	if site.ID == "" {
		return fmt.Errorf("%s: id required", prefix)
	}
	if !validOps[site.Op] {
		return fmt.Errorf("%s: unknown op %q; valid: conv2d, matmul", prefix, site.Op)
	}
	switch site.Op {
	case "conv2d":
		if site.Conv2d == nil {
			return fmt.Errorf("%s: op conv2d requires a conv2d shape block", prefix)
		}
		if site.MatMul != nil {
			return fmt.Errorf("%s: op conv2d must not carry a matmul shape block", prefix)
		}
	case "matmul":
		if site.MatMul == nil {
			return fmt.Errorf("%s: op matmul requires a matmul shape block", prefix)
		}
		if site.Conv2d != nil {
			return fmt.Errorf("%s: op matmul must not carry a conv2d shape block", prefix)
		}
	}
	if err := validateFinitePositive(prefix+".weight", site.Weight); err != nil {
		return err
	}
	if site.Noise < 0 || site.Noise > 1 || math.IsNaN(site.Noise) {
		return fmt.Errorf("%s: noise must be in [0, 1], got %f", prefix, site.Noise)
	}
	for name, factor := range site.Skew {
		if _, err := tune.ParseImplementation(name); err != nil {
			return fmt.Errorf("%s: skew: %w", prefix, err)
		}
		if err := validateFinitePositive(fmt.Sprintf("%s.skew.%s", prefix, name), factor); err != nil {
			return err
		}
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}

// hardware resolves the roofline model for estimates, falling back to the
// default calibration where the spec does not override it.
func (s *Spec) hardware() cost.Hardware {
	hw := cost.DefaultHardware()
	if s.Hardware != nil {
		if s.Hardware.FLOPS > 0 {
			hw.FLOPS = s.Hardware.FLOPS
		}
		if s.Hardware.MemBandwidth > 0 {
			hw.MemBandwidth = s.Hardware.MemBandwidth
		}
	}
	return hw
}
