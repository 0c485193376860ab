package audio

import "time"

// Output device format (32-bit float stereo, as oto consumes it).
const (
	SampleRate   = 44100
	ChannelCount = 2
	BitDepth     = 0 // 32-bit float (oto.FormatFloat32LE)
)

// Bus defaults.
const (
	MasterLevel         = 0.9
	DefaultSFXLevel     = 0.58
	DefaultAmbientLevel = 0.30

	// GainFloor is the near-silent endpoint of exponential envelopes
	// and fades; exponential ramps cannot reach zero.
	GainFloor = 0.0001
)

// Discrete tone shaping.
const (
	// ToneOnset is the linear click guard before the decay begins.
	ToneOnset = time.Millisecond
)

// Ambient note envelope: two coupled layers approximating a struck
// string. Fixed constants, not runtime parameters.
const (
	NoteAttack       = 8 * time.Millisecond
	NoteSustainLevel = 0.6 // of peak, reached at the nominal duration
	NoteTailFactor   = 1.5 // release tail length relative to the nominal duration

	NoteHarmonicRatio  = 2.0
	NoteHarmonicDetune = 1.003
	NoteHarmonicLevel  = 0.25 // of peak

	// NoteLowpassCoeff is the one-pole filter coefficient; ~1.9 kHz
	// cutoff at 44.1 kHz.
	NoteLowpassCoeff = 0.24
)
