package sequencer

import (
	"sync"
	"time"
)

// DefaultIntervalPeriod paces the fallback scheduler. Roughly the mean
// task length of the default melody; nominal durations are ignored in
// this mode.
const DefaultIntervalPeriod = 500 * time.Millisecond

// Interval is the degraded fallback used when the isolated variant is
// unavailable: a fixed-period ticker with no drift correction. Same
// event surface, lower timing fidelity.
type Interval struct {
	mu      sync.Mutex
	melody  []Task
	period  time.Duration
	running bool
	closed  bool
	index   int
	stop    chan struct{}
	events  chan Event
}

// NewInterval builds the fallback scheduler in the idle state.
func NewInterval(melody []Task, period time.Duration) (*Interval, error) {
	if len(melody) == 0 {
		return nil, ErrEmptyMelody
	}
	if period <= 0 {
		period = DefaultIntervalPeriod
	}
	return &Interval{
		melody: append([]Task(nil), melody...),
		period: period,
		events: make(chan Event, eventQueueDepth),
	}, nil
}

// Start begins ticking at the wrapped index. No-op while running.
func (s *Interval) Start(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.closed {
		return
	}
	s.index = wrap(index, len(s.melody))
	s.running = true
	s.stop = make(chan struct{})
	s.fireLocked()
	go s.loop(s.stop)
}

func (s *Interval) loop(stop chan struct{}) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.running && !s.closed {
				s.fireLocked()
			}
			s.mu.Unlock()
		}
	}
}

// fireLocked emits the current task and advances. Caller holds mu.
func (s *Interval) fireLocked() {
	task := s.melody[s.index]
	s.index = wrap(s.index+1, len(s.melody))
	ev := taskEvent(task, s.index, time.Now())
	select {
	case s.events <- ev:
	default:
	}
}

// Stop halts the ticker and freezes the position. Idempotent.
func (s *Interval) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
	s.stop = nil
}

// Sync realigns the position.
func (s *Interval) Sync(index int) {
	s.mu.Lock()
	s.index = wrap(index, len(s.melody))
	s.mu.Unlock()
}

// Events is the scheduler→consumer stream. Closed by Close.
func (s *Interval) Events() <-chan Event { return s.events }

func (s *Interval) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Running: s.running, Index: s.index}
}

func (s *Interval) Health() Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Health{Running: s.running, Checked: time.Now(), Variant: VariantInterval}
}

// Close stops the ticker and closes the event stream.
func (s *Interval) Close() {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}
