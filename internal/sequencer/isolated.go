package sequencer

import (
	"sync"
	"time"
)

// eventQueueDepth bounds the scheduler→consumer queue. A consumer that
// falls further behind than this loses events rather than stalling the
// timing loop.
const eventQueueDepth = 16

type cmdKind uint8

const (
	cmdStart cmdKind = iota
	cmdStop
	cmdSync
	cmdStatus
	cmdHealth
)

type command struct {
	kind   cmdKind
	index  int
	status chan Status
	health chan Health
}

// Isolated runs the melody in its own goroutine and talks to the rest
// of the engine only through channels; no state is shared across the
// boundary, so the melody keeps time even while the consumer side is
// busy. The loop owns a single pending timer which is stopped and
// re-armed on every step, so there is never more than one wake-up in
// flight per scheduler.
type Isolated struct {
	cmds   chan command
	events chan Event
	done   chan struct{}
	once   sync.Once
	now    func() time.Time
}

// NewIsolated starts the scheduler goroutine in the idle state.
func NewIsolated(melody []Task) (*Isolated, error) {
	if len(melody) == 0 {
		return nil, ErrEmptyMelody
	}
	s := &Isolated{
		cmds:   make(chan command),
		events: make(chan Event, eventQueueDepth),
		done:   make(chan struct{}),
		now:    time.Now,
	}
	go s.run(append([]Task(nil), melody...))
	return s, nil
}

func (s *Isolated) run(melody []Task) {
	defer close(s.events)

	st := &state{melody: melody}

	// The timer starts disarmed; armed tracks whether a wake-up is
	// pending so stale expirations are always drained before a reset.
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false
	disarm := func() {
		if armed && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		armed = false
	}
	arm := func(d time.Duration) {
		disarm()
		timer.Reset(d)
		armed = true
	}
	fire := func() {
		ev, delay := st.step(s.now())
		s.emit(ev)
		arm(delay)
	}

	for {
		select {
		case <-s.done:
			disarm()
			return
		case <-timer.C:
			armed = false
			if st.running { // a stop may have raced the expiration
				fire()
			}
		case c := <-s.cmds:
			switch c.kind {
			case cmdStart:
				if st.start(c.index, s.now()) {
					fire()
				}
			case cmdStop:
				st.stop()
				disarm()
			case cmdSync:
				st.sync(c.index)
			case cmdStatus:
				c.status <- Status{Running: st.running, Index: st.index}
			case cmdHealth:
				c.health <- Health{Running: st.running, Checked: s.now(), Variant: VariantIsolated}
			}
		}
	}
}

// emit delivers FIFO with at-most-once semantics: a full queue drops
// the event instead of blocking the timing loop.
func (s *Isolated) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Isolated) send(c command) {
	select {
	case s.cmds <- c:
	case <-s.done:
	}
}

// Start begins emission at the wrapped index. No-op while running.
func (s *Isolated) Start(index int) { s.send(command{kind: cmdStart, index: index}) }

// Stop cancels the pending wake-up and freezes the position. Idempotent.
func (s *Isolated) Stop() { s.send(command{kind: cmdStop}) }

// Sync realigns the position without affecting timing.
func (s *Isolated) Sync(index int) { s.send(command{kind: cmdSync, index: index}) }

// Events is the scheduler→consumer stream. Closed by Close.
func (s *Isolated) Events() <-chan Event { return s.events }

// Status answers a position query over the command channel.
func (s *Isolated) Status() Status {
	reply := make(chan Status, 1)
	select {
	case s.cmds <- command{kind: cmdStatus, status: reply}:
	case <-s.done:
		return Status{}
	}
	select {
	case st := <-reply:
		return st
	case <-s.done:
		return Status{}
	}
}

// Health answers a liveness check over the command channel.
func (s *Isolated) Health() Health {
	reply := make(chan Health, 1)
	select {
	case s.cmds <- command{kind: cmdHealth, health: reply}:
	case <-s.done:
		return Health{Variant: VariantIsolated}
	}
	select {
	case h := <-reply:
		return h
	case <-s.done:
		return Health{Variant: VariantIsolated}
	}
}

// Close tears down the goroutine and closes the event stream.
func (s *Isolated) Close() {
	s.once.Do(func() { close(s.done) })
}
