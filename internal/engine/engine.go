package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"chime/internal/ambient"
	"chime/internal/audio"
	"chime/internal/sequencer"
)

// ErrLocked is returned by operations that need an unlocked audio
// device.
var ErrLocked = errors.New("engine: audio not unlocked")

// Options configures a session engine. Zero values pick the defaults.
type Options struct {
	SFXLevel       float64
	AmbientLevel   float64
	NoteVolume     float64
	LookAhead      time.Duration
	StalenessLimit time.Duration // 0 disables the staleness check
	ForceInterval  bool
	ResumePath     string
	Melody         []sequencer.Task
	Logger         *log.Logger
}

// Engine is the per-session sound engine context. Everything an earlier
// prototype of this system kept in package globals — the device handle,
// the bus graph, the ambient bridge, volume settings — hangs off one
// value that is created once per session and handed to whoever triggers
// sound.
type Engine struct {
	opts Options
	log  *log.Logger
	bus  *EventBus

	mu        sync.Mutex
	device    *audio.Device
	graph     *audio.Graph
	bridge    *ambient.Bridge
	unlocked  bool
	unlockErr error
}

// New builds an engine. No audio resources are touched until Unlock.
func New(opts Options) *Engine {
	if opts.SFXLevel <= 0 {
		opts.SFXLevel = audio.DefaultSFXLevel
	}
	if opts.AmbientLevel <= 0 {
		opts.AmbientLevel = audio.DefaultAmbientLevel
	}
	if opts.Melody == nil {
		opts.Melody = sequencer.DefaultMelody()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Engine{
		opts: opts,
		log:  opts.Logger,
		bus:  NewEventBus(),
	}
}

// Unlock opens the output device and builds the bus graph. It is the
// user-gesture entry point and is idempotent: later calls, including
// calls after a failed open, return the first outcome.
func (e *Engine) Unlock() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unlocked || e.unlockErr != nil {
		return e.unlockErr
	}
	dev, err := audio.OpenDevice()
	if err != nil {
		e.unlockErr = err
		e.log.Warn("audio device unavailable, continuing silent", "err", err)
		return err
	}
	e.device = dev
	e.graph = audio.NewGraph(dev.Context())
	e.graph.SFX.SetLevel(e.opts.SFXLevel)
	e.graph.Ambient.SetLevel(0) // faded up when the melody starts
	e.unlocked = true
	return nil
}

// graphIfReady returns the graph only once the device finished
// initializing; otherwise nil, and the caller skips the sound.
func (e *Engine) graphIfReady() *audio.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.unlocked || !e.device.Ready() {
		return nil
	}
	return e.graph
}

// PlayDiscreteSound fires a named UI sound on the SFX bus. Best-effort:
// before Unlock, after a failed unlock, or with an unknown name it does
// nothing and never errors.
func (e *Engine) PlayDiscreteSound(name string, opt ...audio.Options) {
	g := e.graphIfReady()
	if g == nil {
		return
	}
	var o audio.Options
	if len(opt) > 0 {
		o = opt[0]
	}
	audio.PlayDiscrete(g, name, o)
	e.bus.Emit(Event{Type: EventSoundPlayed, Name: name})
}

// StartAmbient starts the background melody at the persisted position.
// Idempotent while running.
func (e *Engine) StartAmbient() error {
	e.mu.Lock()
	if !e.unlocked {
		e.mu.Unlock()
		return ErrLocked
	}
	if e.bridge == nil {
		store := ambient.NewResumeStore(e.opts.ResumePath)
		br := ambient.NewBridge(e.graph, e.opts.Melody, store, e.log, ambient.Options{
			LookAhead:      e.opts.LookAhead,
			StalenessLimit: e.opts.StalenessLimit,
			Level:          e.opts.AmbientLevel,
			NoteVolume:     e.opts.NoteVolume,
			ForceInterval:  e.opts.ForceInterval,
		})
		br.OnEvent = func(ev sequencer.Event) {
			t := EventRest
			if ev.Kind == sequencer.KindPlayNote {
				t = EventNotePlayed
			}
			e.bus.Emit(Event{Type: t, Pitch: ev.Pitch, Index: ev.Index})
		}
		e.bridge = br
	}
	br := e.bridge
	e.mu.Unlock()

	if err := br.Start(); err != nil {
		return err
	}
	e.bus.Emit(Event{Type: EventAmbientStarted})
	return nil
}

// StopAmbient fades the melody out. Idempotent.
func (e *Engine) StopAmbient() {
	e.mu.Lock()
	br := e.bridge
	e.mu.Unlock()
	if br == nil || !br.Running() {
		return
	}
	br.Stop()
	e.bus.Emit(Event{Type: EventAmbientStopped})
}

func clampLevel(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SetSFXVolume adjusts the SFX bus level.
func (e *Engine) SetSFXVolume(v float64) {
	v = clampLevel(v)
	e.mu.Lock()
	e.opts.SFXLevel = v
	g := e.graph
	e.mu.Unlock()
	if g != nil {
		g.SFX.SetLevel(v)
	}
}

// SetAmbientVolume adjusts the ambient bus target with a short ramp so
// live changes don't click.
func (e *Engine) SetAmbientVolume(v float64) {
	v = clampLevel(v)
	e.mu.Lock()
	e.opts.AmbientLevel = v
	g := e.graph
	br := e.bridge
	e.mu.Unlock()
	if g != nil && br != nil && br.Running() {
		g.Ambient.FadeTo(v, 200*time.Millisecond)
	}
}

// Status is a snapshot for front-ends.
type Status struct {
	Unlocked     bool
	AmbientOn    bool
	Position     int
	Variant      sequencer.Variant
	SFXLevel     float64
	AmbientLevel float64
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	st := Status{
		Unlocked:     e.unlocked,
		SFXLevel:     e.opts.SFXLevel,
		AmbientLevel: e.opts.AmbientLevel,
	}
	br := e.bridge
	e.mu.Unlock()
	if br != nil {
		st.AmbientOn = br.Running()
		st.Position = br.Position()
		if h, ok := br.Health(); ok {
			st.Variant = h.Variant
		}
	}
	return st
}

// Subscribe registers a notification handler. Subscribe before Unlock
// to observe everything.
func (e *Engine) Subscribe(t EventType, fn EventHandler) {
	e.bus.Subscribe(t, fn)
}

// Close stops the ambient melody. The device and graph live for the
// session; there is nothing further to release.
func (e *Engine) Close() {
	e.StopAmbient()
}
