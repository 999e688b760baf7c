package tune

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// SelectionState is the lifecycle state of one Selection session.
type SelectionState string

const (
	// SelectionDisabled means no strategy was active at construction.
	SelectionDisabled SelectionState = "disabled"
	// SelectionFallback means the call site declared itself fallback-only.
	SelectionFallback SelectionState = "fallback"
	// SelectionMeasuring means a real choice was made and the timer is
	// running; Finish must be called to record the observation.
	SelectionMeasuring SelectionState = "measuring"
	// SelectionFinished means the observation has been recorded.
	SelectionFinished SelectionState = "finished"
)

// Selection is the per-call protocol object. Construction obtains a choice
// (or a Disabled/Fallback pseudo-choice) and starts the timer; Finish stops
// the timer, feeds the elapsed cost back to the bandit, and emits an
// observation record.
//
// A Selection belongs to one goroutine. Dropping a Measuring session without
// calling Finish loses that one observation and nothing else: the bandit
// instance lives in the registry, not the session.
type Selection struct {
	dispatcher *Dispatcher
	key        MapKey
	repr       func() string
	strategy   Strategy
	choice     Implementation
	state      SelectionState
	start      time.Time
}

// NewSelection resolves one call through the dispatcher.
//
// With no active strategy the session is Disabled. A fallback-only site
// yields a Fallback session. Otherwise the site must declare at least one
// candidate (a site that declares none and does not request fallback is
// misconfigured, and the session panics), the active strategy's bandit
// chooses, and the measurement timer starts.
func NewSelection(d *Dispatcher, ep EntryPoint) *Selection {
	s := &Selection{dispatcher: d, key: ep.Key(), repr: ep.Repr}
	active := d.ActiveStrategy()
	switch {
	case active == StrategyNone:
		s.state = SelectionDisabled
		s.choice = Disabled
	case ep.Fallback():
		s.state = SelectionFallback
		s.choice = Fallback
	default:
		if len(ep.Implementations()) == 0 {
			panic(fmt.Sprintf("NewSelection: selection is active but key %q declares no implementations and no fallback", s.key))
		}
		s.strategy = active
		s.choice = d.Choose(active, s.key, ep.CostEstimates)
		s.state = SelectionMeasuring
		s.start = time.Now()
	}
	return s
}

// Choice returns the implementation this session resolved to. Valid in every
// state; Disabled and Fallback sessions report their pseudo-choice.
func (s *Selection) Choice() Implementation {
	return s.choice
}

// State returns the session's current lifecycle state.
func (s *Selection) State() SelectionState {
	return s.state
}

// Finish completes the session. For Disabled and Fallback sessions it is a
// no-op. For a Measuring session it stops the timer, feeds the elapsed cost
// back through the dispatcher, and records the observation. Calling Finish a
// second time on a finished session panics.
func (s *Selection) Finish() {
	switch s.state {
	case SelectionDisabled, SelectionFallback:
		return
	case SelectionFinished:
		panic(fmt.Sprintf("Selection.Finish: called twice for key %q", s.key))
	}
	elapsed := time.Since(s.start)
	s.state = SelectionFinished

	s.dispatcher.Update(s.strategy, s.key, s.choice, elapsed)
	if log := s.dispatcher.log; log != nil {
		log.RegisterKey(s.key, s.repr)
		log.Record(s.strategy, s.key, s.choice, elapsed)
	}
	logrus.Debugf("selection finished: key=%s impl=%s elapsed=%s", s.key, s.choice, elapsed)
}
