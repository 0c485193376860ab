package sequencer

import (
	"errors"
	"time"
)

// Kind discriminates scheduler emissions.
type Kind uint8

const (
	// KindPlayNote carries an audible task.
	KindPlayNote Kind = iota
	// KindSyncRest carries only the position, so persistence stays
	// current through silence.
	KindSyncRest
)

// Event is an immutable message from a scheduler to its consumer.
// Delivery is FIFO and at-most-once.
type Event struct {
	Kind      Kind
	Pitch     float64
	Duration  time.Duration
	Priority  Priority
	EmittedAt time.Time // scheduler-local clock at emission
	Index     int       // post-advance position, for persistence
}

// Status reports the scheduler position for external realignment.
type Status struct {
	Running bool
	Index   int
}

// Health is the liveness reply to a health check.
type Health struct {
	Running bool
	Checked time.Time
	Variant Variant
}

// Scheduler is the common surface of both variants. Start while running
// is a no-op, Stop is idempotent, and index arguments wrap modulo the
// melody length. Close releases the execution context and closes the
// event channel.
type Scheduler interface {
	Start(index int)
	Stop()
	Sync(index int)
	Events() <-chan Event
	Status() Status
	Health() Health
	Close()
}

// Variant names which scheduler implementation is serving.
type Variant string

const (
	VariantIsolated Variant = "isolated"
	VariantInterval Variant = "interval"
)

// ErrEmptyMelody rejects construction with nothing to play.
var ErrEmptyMelody = errors.New("sequencer: empty melody")

// New selects the best available scheduler: the isolated goroutine
// variant when it can be constructed, otherwise the fixed-interval
// fallback. forceInterval pins the degraded variant.
func New(melody []Task, forceInterval bool) (Scheduler, Variant, error) {
	if len(melody) == 0 {
		return nil, "", ErrEmptyMelody
	}
	if !forceInterval {
		if s, err := NewIsolated(melody); err == nil {
			return s, VariantIsolated, nil
		}
	}
	s, err := NewInterval(melody, DefaultIntervalPeriod)
	if err != nil {
		return nil, "", err
	}
	return s, VariantInterval, nil
}

// wrap maps any integer onto a valid melody position.
func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// taskEvent builds the emission for one task at its post-advance index.
func taskEvent(task Task, index int, now time.Time) Event {
	ev := Event{Kind: KindSyncRest, EmittedAt: now, Index: index}
	if !task.Rest {
		ev.Kind = KindPlayNote
		ev.Pitch = task.Pitch
		ev.Duration = task.Duration
		ev.Priority = task.Priority
	}
	return ev
}

// state is the emission-step state machine. Exactly one run loop owns
// it; tests drive it directly with a fake clock.
type state struct {
	melody       []Task
	running      bool
	index        int
	lastEmission time.Time // intended start of the task most recently emitted
}

// start arms the state at a wrapped resume position. Returns false when
// already running.
func (s *state) start(index int, now time.Time) bool {
	if s.running {
		return false
	}
	s.index = wrap(index, len(s.melody))
	s.lastEmission = now
	s.running = true
	return true
}

func (s *state) stop() {
	s.running = false
}

// sync forcibly realigns the position without touching the clock.
func (s *state) sync(index int) {
	s.index = wrap(index, len(s.melody))
}

// step runs one emission: read the current task, build its event,
// advance the position, and return the drift-corrected delay until the
// next step. On-time steps advance the reference clock by the task's
// nominal duration so timer jitter never compounds into tempo drift. A
// late step (the context was stalled) fires exactly once with zero
// delay and re-bases the reference clock on observed time instead of
// bursting out every missed task.
func (s *state) step(now time.Time) (Event, time.Duration) {
	task := s.melody[s.index]
	s.index = wrap(s.index+1, len(s.melody))
	ev := taskEvent(task, s.index, now)

	expected := s.lastEmission.Add(task.Duration)
	delay := expected.Sub(now)
	if delay >= 0 {
		s.lastEmission = expected
	} else {
		delay = 0
		s.lastEmission = now
	}
	return ev, delay
}
