package trace

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kerneltune/kerneltune/tune"
)

// Sink receives observations as they arrive. Implementations must tolerate
// concurrent calls; sink failures are logged and do not stop recording.
type Sink interface {
	// RegisterKey persists the key-to-repr association. Called once per
	// distinct key per Log.
	RegisterKey(runID string, key tune.MapKey, repr string) error
	// Append persists one observation.
	Append(runID string, rec Record) error
}

// Log is a thread-safe observation log. Every run gets a fresh UUID so
// observations from separate runs can be told apart in shared sinks.
type Log struct {
	runID string
	sinks []Sink

	mu      sync.Mutex
	keys    map[tune.MapKey]string
	ordered []tune.MapKey // first-seen key order
	records []Record
}

// NewLog creates an observation log that mirrors to the given sinks.
func NewLog(sinks ...Sink) *Log {
	return &Log{
		runID: uuid.New().String(),
		sinks: sinks,
		keys:  make(map[tune.MapKey]string),
	}
}

// RunID returns the identifier stamped on this log's persisted observations.
func (l *Log) RunID() string {
	return l.runID
}

// RegisterKey implements tune.ObservationLog. The repr thunk runs only the
// first time a key is seen; repeats are ignored.
func (l *Log) RegisterKey(key tune.MapKey, repr func() string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.keys[key]; ok {
		return
	}
	r := repr()
	l.keys[key] = r
	l.ordered = append(l.ordered, key)
	for _, s := range l.sinks {
		if err := s.RegisterKey(l.runID, key, r); err != nil {
			logrus.Warnf("observation sink failed to register key %q: %v", key, err)
		}
	}
}

// Record implements tune.ObservationLog.
func (l *Log) Record(strategy tune.Strategy, key tune.MapKey, impl tune.Implementation, elapsed time.Duration) {
	rec := Record{
		Strategy:       strategy,
		Key:            key,
		Implementation: impl,
		ElapsedNanos:   elapsed.Nanoseconds(),
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	for _, s := range l.sinks {
		if err := s.Append(l.runID, rec); err != nil {
			logrus.Warnf("observation sink failed to append record for key %q: %v", key, err)
		}
	}
}

// Len returns the number of recorded observations.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Records returns a copy of all observations in arrival order.
func (l *Log) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// Keys returns the registered call-site keys in first-seen order.
func (l *Log) Keys() []tune.MapKey {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]tune.MapKey(nil), l.ordered...)
}

// KeyRepr returns the human-readable form registered for key.
func (l *Log) KeyRepr(key tune.MapKey) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.keys[key]
	return r, ok
}
