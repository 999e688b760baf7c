package tune

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// testSite is a minimal EntryPoint with an invocation-counting estimator.
type testSite struct {
	key       MapKey
	fallback  bool
	estimates []CostEstimate
	costCalls atomic.Int64
}

func (s *testSite) Key() MapKey    { return s.key }
func (s *testSite) Fallback() bool { return s.fallback }

func (s *testSite) Implementations() []Implementation {
	impls := make([]Implementation, len(s.estimates))
	for i, est := range s.estimates {
		impls[i] = est.Impl
	}
	return impls
}

func (s *testSite) CostEstimates() []CostEstimate {
	s.costCalls.Add(1)
	return s.estimates
}

func (s *testSite) Repr() string { return "testSite(" + string(s.key) + ")" }

// captureLog records ObservationLog calls for assertions.
type captureLog struct {
	mu      sync.Mutex
	keys    map[MapKey]string
	records []capturedRecord
}

type capturedRecord struct {
	strategy Strategy
	key      MapKey
	impl     Implementation
	elapsed  time.Duration
}

func newCaptureLog() *captureLog {
	return &captureLog{keys: make(map[MapKey]string)}
}

func (l *captureLog) RegisterKey(key MapKey, repr func() string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.keys[key]; !ok {
		l.keys[key] = repr()
	}
}

func (l *captureLog) Record(strategy Strategy, key MapKey, impl Implementation, elapsed time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, capturedRecord{strategy, key, impl, elapsed})
}

func threeCostSite(key MapKey) *testSite {
	return &testSite{
		key: key,
		estimates: []CostEstimate{
			{Impl: Conv2dIm2col, Cost: 10},
			{Impl: Conv2dWinograd, Cost: 20},
			{Impl: Conv2dFFT, Cost: 30},
		},
	}
}

func TestNewSelection_Disabled_ShortCircuits(t *testing.T) {
	// GIVEN a dispatcher with no active strategy
	log := newCaptureLog()
	d := NewDispatcher(Config{Seed: 1, Log: log})
	site := threeCostSite("conv2d/a")

	// WHEN constructing and finishing a session
	sel := NewSelection(d, site)
	sel.Finish()
	sel.Finish() // repeated finish on a disabled session stays a no-op

	// THEN nothing was chosen, estimated, counted, or logged
	assert.Equal(t, SelectionDisabled, sel.State())
	assert.Equal(t, Disabled, sel.Choice())
	assert.Equal(t, int64(0), site.costCalls.Load())
	assert.Empty(t, log.records)
	for _, s := range SelectableStrategies() {
		assert.Equal(t, 0, d.registries[s].Size())
	}
	for i := Implementation(0); i < NumImplementations; i++ {
		assert.Equal(t, int64(0), d.TimesChosen(i))
	}
}

func TestNewSelection_FallbackSite_BypassesLearning(t *testing.T) {
	// GIVEN an active strategy and a fallback-only site
	log := newCaptureLog()
	d := NewDispatcher(Config{Seed: 1, Log: log})
	d.SetActiveStrategy(StrategyGaussian)
	site := &testSite{key: "conv2d/grouped", fallback: true}

	// WHEN constructing and finishing
	sel := NewSelection(d, site)
	sel.Finish()
	sel.Finish() // still a no-op for fallback sessions

	// THEN the session reports the Fallback pseudo-choice and no state moved
	assert.Equal(t, SelectionFallback, sel.State())
	assert.Equal(t, Fallback, sel.Choice())
	assert.Equal(t, int64(0), site.costCalls.Load())
	assert.Equal(t, int64(0), d.TimesChosen(Fallback))
	assert.Equal(t, 0, d.registries[StrategyGaussian].Size())
	assert.Empty(t, log.records)
}

func TestNewSelection_FallbackHelper(t *testing.T) {
	d := NewDispatcher(Config{Seed: 1})
	d.SetActiveStrategy(StrategyRandom)

	sel := NewSelection(d, FallbackEntryPoint("conv2d/depthwise", "depthwise conv"))
	assert.Equal(t, SelectionFallback, sel.State())
	assert.Equal(t, Fallback, sel.Choice())
}

func TestNewSelection_ZeroCandidates_Panics(t *testing.T) {
	d := NewDispatcher(Config{Seed: 1})
	d.SetActiveStrategy(StrategyRandom)
	site := &testSite{key: "conv2d/empty"} // no estimates, no fallback

	assert.PanicsWithValue(t,
		`NewSelection: selection is active but key "conv2d/empty" declares no implementations and no fallback`,
		func() {
			NewSelection(d, site)
		})
}

func TestSelection_MeasuringLifecycle(t *testing.T) {
	// GIVEN the random strategy and a three-candidate site
	log := newCaptureLog()
	d := NewDispatcher(Config{Seed: 42, Log: log})
	d.SetActiveStrategy(StrategyRandom)
	site := threeCostSite("conv2d/main")

	// WHEN running one full session
	sel := NewSelection(d, site)
	assert.Equal(t, SelectionMeasuring, sel.State())
	choice := sel.Choice()
	assert.True(t, choice.Selectable(), "choice %s must be a real implementation", choice)

	time.Sleep(time.Millisecond) // stand-in for kernel execution
	sel.Finish()

	// THEN the session sealed, the choice was counted once, and the
	// observation was logged with the measured duration
	assert.Equal(t, SelectionFinished, sel.State())
	assert.Equal(t, choice, sel.Choice(), "choice must survive finishing")
	assert.Equal(t, int64(1), d.TimesChosen(choice))
	assert.Equal(t, int64(1), site.costCalls.Load())

	if assert.Len(t, log.records, 1) {
		rec := log.records[0]
		assert.Equal(t, StrategyRandom, rec.strategy)
		assert.Equal(t, MapKey("conv2d/main"), rec.key)
		assert.Equal(t, choice, rec.impl)
		assert.GreaterOrEqual(t, rec.elapsed, time.Millisecond)
	}
	assert.Equal(t, "testSite(conv2d/main)", log.keys["conv2d/main"])
}

func TestSelection_SecondCall_DoesNotReEstimate(t *testing.T) {
	// Scenario: one key, three candidate costs. The first session creates
	// the bandit; the second must reuse it without re-running cost
	// estimation.
	d := NewDispatcher(Config{Seed: 7})
	d.SetActiveStrategy(StrategyRandom)
	site := threeCostSite("conv2d/K")

	first := NewSelection(d, site)
	first.Finish()
	assert.Equal(t, int64(1), site.costCalls.Load())

	second := NewSelection(d, site)
	second.Finish()
	assert.Equal(t, int64(1), site.costCalls.Load(), "second session must not re-invoke the estimator")

	var total int64
	for i := Implementation(0); i < NumImplementations; i++ {
		total += d.TimesChosen(i)
	}
	assert.Equal(t, int64(2), total)
}

func TestSelection_DoubleFinish_Panics(t *testing.T) {
	// GIVEN a finished Measuring session
	log := newCaptureLog()
	d := NewDispatcher(Config{Seed: 1, Log: log})
	d.SetActiveStrategy(StrategyRandom)
	sel := NewSelection(d, threeCostSite("conv2d/a"))
	sel.Finish()

	// WHEN finishing again THEN it panics and the observation stays single
	assert.PanicsWithValue(t,
		`Selection.Finish: called twice for key "conv2d/a"`,
		func() {
			sel.Finish()
		})
	assert.Len(t, log.records, 1)
}

func TestSelection_AbandonedSession_LosesOnlyThatObservation(t *testing.T) {
	// A Measuring session dropped without Finish is a tolerated missed
	// sample: later sessions for the key work normally.
	log := newCaptureLog()
	d := NewDispatcher(Config{Seed: 1, Log: log})
	d.SetActiveStrategy(StrategyGaussian)
	site := threeCostSite("conv2d/dropped")

	_ = NewSelection(d, site) // never finished

	sel := NewSelection(d, site)
	sel.Finish()

	assert.Len(t, log.records, 1)
	assert.Equal(t, int64(1), site.costCalls.Load())
	assert.Equal(t, 1, d.registries[StrategyGaussian].Size())
}

func TestSelection_NilLog_DropsObservations(t *testing.T) {
	d := NewDispatcher(Config{Seed: 1}) // no Log configured
	d.SetActiveStrategy(StrategyRandom)
	sel := NewSelection(d, threeCostSite("conv2d/a"))

	// Finishing without a log must not panic; the update still happens.
	sel.Finish()
	assert.Equal(t, SelectionFinished, sel.State())

	lines := d.registries[StrategyRandom].SummarizeAll()
	if assert.Len(t, lines, 1) {
		assert.Contains(t, lines[0], "n=1")
	}
}

func TestSelection_StrategySwitch_SessionKeepsItsStrategy(t *testing.T) {
	// A session records the strategy active at construction; switching
	// the dispatcher mid-flight must not reroute the update.
	d := NewDispatcher(Config{Seed: 1})
	d.SetActiveStrategy(StrategyRandom)
	sel := NewSelection(d, threeCostSite("conv2d/a"))

	d.SetActiveStrategy(StrategyGaussian)
	sel.Finish() // must update the random registry, not gaussian

	assert.Equal(t, 1, d.registries[StrategyRandom].Size())
	assert.Equal(t, 0, d.registries[StrategyGaussian].Size())
	lines := d.registries[StrategyRandom].SummarizeAll()
	if assert.Len(t, lines, 1) {
		assert.Contains(t, lines[0], "n=1")
	}
}

func TestSelection_ConcurrentSessions_AllObservationsLand(t *testing.T) {
	// GIVEN many goroutines running full sessions against shared keys
	log := newCaptureLog()
	d := NewDispatcher(Config{Seed: 3, Log: log})
	d.SetActiveStrategy(StrategyGaussian)

	sites := []*testSite{
		threeCostSite("conv2d/s0"),
		threeCostSite("conv2d/s1"),
		threeCostSite("conv2d/s2"),
	}

	const goroutines = 12
	const perGoroutine = 50
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				sel := NewSelection(d, sites[(g+i)%len(sites)])
				sel.Finish()
			}
		}()
	}
	wg.Wait()

	// THEN every session was counted and logged exactly once, and each
	// site's estimator ran exactly once
	const totalSessions = goroutines * perGoroutine
	var chosen int64
	for i := Implementation(0); i < NumImplementations; i++ {
		chosen += d.TimesChosen(i)
	}
	assert.Equal(t, int64(totalSessions), chosen)
	assert.Len(t, log.records, totalSessions)
	for _, site := range sites {
		assert.Equal(t, int64(1), site.costCalls.Load(), "site %s", site.key)
	}
	assert.Equal(t, 3, d.registries[StrategyGaussian].Size())
}
