package sequencer

import "time"

// Priority selects the envelope treatment a note receives downstream.
type Priority uint8

const (
	Normal Priority = iota
	Accent // louder, slightly longer envelope
)

// Task is one immutable entry in a melody. A melody is a non-empty
// sequence treated as a circular buffer: the position wraps modulo its
// length and the sequence is never mutated while a scheduler runs.
type Task struct {
	Pitch    float64 // Hz; 0 means no tone
	Duration time.Duration
	Priority Priority
	Rest     bool // no audio, but time still elapses and the position advances
}

// Note frequencies used by the default melody (equal temperament).
const (
	G4 = 392.00
	A4 = 440.00
	C5 = 523.25
	D5 = 587.33
	E5 = 659.25
)

// DefaultMelody is the fixed ambient line: a slow pentatonic phrase
// with rests so the loop breathes instead of droning.
func DefaultMelody() []Task {
	return []Task{
		{Pitch: E5, Duration: 600 * time.Millisecond},
		{Pitch: D5, Duration: 300 * time.Millisecond},
		{Pitch: C5, Duration: 600 * time.Millisecond},
		{Duration: 300 * time.Millisecond, Rest: true},
		{Pitch: G4, Duration: 450 * time.Millisecond},
		{Pitch: A4, Duration: 450 * time.Millisecond},
		{Pitch: C5, Duration: 600 * time.Millisecond, Priority: Accent},
		{Duration: 600 * time.Millisecond, Rest: true},
		{Pitch: E5, Duration: 300 * time.Millisecond},
		{Pitch: D5, Duration: 300 * time.Millisecond},
		{Pitch: C5, Duration: 900 * time.Millisecond, Priority: Accent},
	}
}
