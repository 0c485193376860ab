package ambient

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"chime/internal/audio"
	"chime/internal/sequencer"
)

// Bridge policy defaults.
const (
	DefaultLookAhead  = 50 * time.Millisecond
	DefaultLevel      = audio.DefaultAmbientLevel
	DefaultFadeIn     = 2 * time.Second
	DefaultFadeOut    = 600 * time.Millisecond
	DefaultNoteVolume = 0.5
)

// Accent treatment: louder and slightly longer.
const (
	accentGain    = 1.35
	accentStretch = 1.15
)

// Options are the bridge policy knobs.
type Options struct {
	// LookAhead is added to the local audio clock when scheduling each
	// note, absorbing cross-context message latency without audible
	// lateness.
	LookAhead time.Duration
	// StalenessLimit drops play events older than this. Zero disables
	// the check. Enabling it trades catch-up notes for silence when the
	// consumer falls behind.
	StalenessLimit time.Duration
	// Level is the ambient bus target faded to on start.
	Level float64
	// FadeIn and FadeOut are the start/stop ramp lengths.
	FadeIn  time.Duration
	FadeOut time.Duration
	// NoteVolume is the per-note peak before accent treatment.
	NoteVolume float64
	// ForceInterval pins the degraded fixed-period scheduler.
	ForceInterval bool
}

func (o *Options) defaults() {
	if o.LookAhead <= 0 {
		o.LookAhead = DefaultLookAhead
	}
	if o.Level <= 0 {
		o.Level = DefaultLevel
	}
	if o.FadeIn <= 0 {
		o.FadeIn = DefaultFadeIn
	}
	if o.FadeOut <= 0 {
		o.FadeOut = DefaultFadeOut
	}
	if o.NoteVolume <= 0 {
		o.NoteVolume = DefaultNoteVolume
	}
}

// Bridge connects the background scheduler to the local audio graph: it
// reconstructs event timing against the local clock, persists the
// melody position on every event (rests included), and tears the melody
// down with a fade instead of a cut.
type Bridge struct {
	graph  *audio.Graph
	melody []sequencer.Task
	store  *ResumeStore
	opts   Options
	log    *log.Logger

	// OnEvent, when set before Start, observes every scheduler event
	// after bridge processing.
	OnEvent func(sequencer.Event)

	mu       sync.Mutex
	sched    sequencer.Scheduler
	running  bool
	loopDone chan struct{}
}

// NewBridge wires a bridge over an already-built graph. The melody must
// be non-empty; that is checked at Start, where the scheduler is built.
func NewBridge(graph *audio.Graph, melody []sequencer.Task, store *ResumeStore, logger *log.Logger, opts Options) *Bridge {
	opts.defaults()
	if logger == nil {
		logger = log.Default()
	}
	if store == nil {
		store = NewResumeStore("")
	}
	return &Bridge{
		graph:  graph,
		melody: melody,
		store:  store,
		opts:   opts,
		log:    logger,
	}
}

// Start builds and starts the scheduler at the persisted position, then
// fades the ambient bus in. Idempotent.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}
	sched, variant, err := sequencer.New(b.melody, b.opts.ForceInterval)
	if err != nil {
		return err
	}
	if variant == sequencer.VariantInterval {
		b.log.Warn("isolated scheduler unavailable, using fixed-interval fallback")
	}
	b.sched = sched
	b.loopDone = make(chan struct{})
	go b.consume(sched, b.loopDone)
	sched.Start(b.store.Load())
	b.graph.Ambient.FadeTo(b.opts.Level, b.opts.FadeIn)
	b.running = true
	return nil
}

// consume is the main-side event loop. It ends when the scheduler's
// event stream is closed.
func (b *Bridge) consume(sched sequencer.Scheduler, done chan struct{}) {
	defer close(done)
	warned := false
	for ev := range sched.Events() {
		if err := b.store.Save(ev.Index); err != nil && !warned {
			b.log.Warn("resume position not persisted", "err", err)
			warned = true
		}
		if ev.Kind == sequencer.KindPlayNote {
			b.playNote(ev)
		}
		if b.OnEvent != nil {
			b.OnEvent(ev)
		}
	}
}

// playNote applies the staleness policy and triggers the note at a
// look-ahead offset from the local clock.
func (b *Bridge) playNote(ev sequencer.Event) {
	if limit := b.opts.StalenessLimit; limit > 0 {
		if age := time.Since(ev.EmittedAt); age > limit {
			b.log.Debug("dropping stale note", "age", age, "index", ev.Index)
			return
		}
	}
	start := b.graph.Clock() + b.opts.LookAhead.Seconds()
	vol := b.opts.NoteVolume
	dur := ev.Duration.Seconds()
	if ev.Priority == sequencer.Accent {
		vol *= accentGain
		dur *= accentStretch
	}
	audio.PlayNote(b.graph, ev.Pitch, start, dur, vol, b.graph.Ambient)
}

// Stop halts the scheduler, releases its context, and fades the ambient
// bus to silence rather than cutting it. Idempotent.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	sched := b.sched
	done := b.loopDone
	b.running = false
	b.sched = nil
	b.mu.Unlock()

	sched.Stop()
	sched.Close()
	<-done
	b.graph.Ambient.FadeTo(0, b.opts.FadeOut)
}

// Running reports whether the ambient melody is active.
func (b *Bridge) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Position reports the live scheduler position, falling back to the
// persisted pointer when the melody is stopped.
func (b *Bridge) Position() int {
	b.mu.Lock()
	sched := b.sched
	b.mu.Unlock()
	if sched != nil {
		return sched.Status().Index
	}
	return b.store.Load()
}

// Health forwards a liveness check; ok is false when no scheduler is
// active.
func (b *Bridge) Health() (sequencer.Health, bool) {
	b.mu.Lock()
	sched := b.sched
	b.mu.Unlock()
	if sched == nil {
		return sequencer.Health{}, false
	}
	return sched.Health(), true
}
