package audio

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/oto/v2"
)

const frameBytes = ChannelCount * 4 // float32 per channel

// voice is one rendered sound placed on the timeline: a mono sample
// buffer and the master-clock frame at which playback begins.
type voice struct {
	samples []float64
	start   int64
}

// Bus is one mixing path: it sums its voices under an independently
// ramped gain. Gain is evaluated per frame, so fades are continuous and
// never jump.
type Bus struct {
	frames *atomic.Int64 // shared master frame counter

	mu       sync.Mutex
	voices   []*voice
	gain     float64
	rampFrom float64
	rampTo   float64
	rampA    int64 // ramp start frame
	rampB    int64 // ramp end frame; 0 when no ramp is active
}

// SetLevel sets the gain immediately, cancelling any ramp.
func (b *Bus) SetLevel(v float64) {
	b.mu.Lock()
	b.gain = clamp(v, 0, 1)
	b.rampB = 0
	b.mu.Unlock()
}

// Level reports the gain at the current clock frame.
func (b *Bus) Level() float64 {
	frame := b.frames.Load()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gainAt(frame)
}

// FadeTo cancels any in-flight ramp, captures the gain at the current
// frame, and ramps linearly to target over the given duration.
func (b *Bus) FadeTo(target float64, over time.Duration) {
	target = clamp(target, 0, 1)
	frame := b.frames.Load()
	b.mu.Lock()
	defer b.mu.Unlock()
	from := b.gainAt(frame)
	end := frame + int64(over.Seconds()*SampleRate)
	if end <= frame {
		b.gain = target
		b.rampB = 0
		return
	}
	b.rampFrom = from
	b.rampTo = target
	b.rampA = frame
	b.rampB = end
}

// gainAt evaluates the gain at a frame, collapsing a finished ramp into
// the plain gain. Caller holds mu.
func (b *Bus) gainAt(frame int64) float64 {
	if b.rampB > b.rampA {
		switch {
		case frame >= b.rampB:
			b.gain = b.rampTo
			b.rampB = 0
		case frame >= b.rampA:
			p := float64(frame-b.rampA) / float64(b.rampB-b.rampA)
			return b.rampFrom + (b.rampTo-b.rampFrom)*p
		}
	}
	return b.gain
}

// schedule places a rendered voice on the bus at the given clock time
// in seconds. A start in the past begins immediately.
func (b *Bus) schedule(samples []float64, startClock float64) {
	if len(samples) == 0 {
		return
	}
	start := int64(startClock * SampleRate)
	if now := b.frames.Load(); start < now {
		start = now
	}
	b.mu.Lock()
	b.voices = append(b.voices, &voice{samples: samples, start: start})
	b.mu.Unlock()
}

// Active reports how many voices are queued or sounding.
func (b *Bus) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.voices)
}

// renderInto mixes n frames starting at startFrame into dst, applying
// the per-frame bus gain. Exhausted voices are released.
func (b *Bus) renderInto(dst []float64, startFrame int64, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.voices) == 0 {
		return
	}
	kept := b.voices[:0]
	for _, v := range b.voices {
		end := v.start + int64(len(v.samples))
		if end <= startFrame {
			continue
		}
		for i := 0; i < n; i++ {
			idx := startFrame + int64(i) - v.start
			if idx < 0 || idx >= int64(len(v.samples)) {
				continue
			}
			dst[i] += v.samples[idx]
		}
		kept = append(kept, v)
	}
	b.voices = kept
	for i := 0; i < n; i++ {
		dst[i] *= b.gainAt(startFrame + int64(i))
	}
}

// Graph is the mix-bus topology: master → {sfx, ambient}. It implements
// io.Reader; the device player pulls from it continuously, which makes
// the rendered frame count the audio clock every scheduled voice is
// placed against. Built at most once per session and never torn down.
type Graph struct {
	SFX     *Bus
	Ambient *Bus

	frames atomic.Int64
	master uint64 // math.Float64bits, read atomically in Read

	player oto.Player

	sfxScratch     []float64
	ambientScratch []float64
}

// NewGraph builds the bus topology and, when a device context is given,
// starts the single long-lived player pulling from the master reader. A
// nil context leaves the graph detached: Read must then be driven by
// the caller (tests do this to step the clock deterministically).
func NewGraph(ctx *oto.Context) *Graph {
	g := &Graph{}
	g.SFX = &Bus{frames: &g.frames, gain: DefaultSFXLevel}
	g.Ambient = &Bus{frames: &g.frames, gain: DefaultAmbientLevel}
	atomic.StoreUint64(&g.master, math.Float64bits(MasterLevel))
	if ctx != nil {
		g.player = ctx.NewPlayer(g)
		g.player.Play()
	}
	return g
}

// Clock returns the position of the rendering timeline in seconds.
func (g *Graph) Clock() float64 {
	return float64(g.frames.Load()) / SampleRate
}

// SetMasterLevel adjusts the final output gain.
func (g *Graph) SetMasterLevel(v float64) {
	atomic.StoreUint64(&g.master, math.Float64bits(clamp(v, 0, 1)))
}

func (g *Graph) masterLevel() float64 {
	return math.Float64frombits(atomic.LoadUint64(&g.master))
}

// Read renders the next chunk of the mix. It never returns io.EOF: the
// graph lives for the whole session and silence is rendered as zeros.
func (g *Graph) Read(p []byte) (int, error) {
	n := len(p) / frameBytes
	if n == 0 {
		return 0, nil
	}
	if cap(g.sfxScratch) < n {
		g.sfxScratch = make([]float64, n)
		g.ambientScratch = make([]float64, n)
	}
	sfx := g.sfxScratch[:n]
	amb := g.ambientScratch[:n]
	for i := range sfx {
		sfx[i] = 0
		amb[i] = 0
	}

	frame := g.frames.Load()
	g.SFX.renderInto(sfx, frame, n)
	g.Ambient.renderInto(amb, frame, n)

	master := g.masterLevel()
	for i := 0; i < n; i++ {
		putStereoF32(p, i, softSat((sfx[i]+amb[i])*master))
	}
	g.frames.Store(frame + int64(n))
	return n * frameBytes, nil
}

// putStereoF32 writes a [-1,1] sample as float32 LE to both stereo
// channels at frame i.
func putStereoF32(buf []byte, i int, sample float64) {
	v := math.Float32bits(float32(sample))
	buf[i*8] = byte(v)
	buf[i*8+1] = byte(v >> 8)
	buf[i*8+2] = byte(v >> 16)
	buf[i*8+3] = byte(v >> 24)
	buf[i*8+4] = byte(v)
	buf[i*8+5] = byte(v >> 8)
	buf[i*8+6] = byte(v >> 16)
	buf[i*8+7] = byte(v >> 24)
}

// softSat applies gentle tanh-like saturation — no harsh clipping.
func softSat(x float64) float64 {
	if x > 1.0 {
		return 1.0 - 0.5/(x)
	}
	if x < -1.0 {
		return -1.0 + 0.5/(-x)
	}
	return x - x*x*x/3.0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
