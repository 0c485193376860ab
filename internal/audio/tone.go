package audio

import "math"

// Waveform selects the oscillator shape for a discrete tone.
type Waveform uint8

const (
	Sine Waveform = iota
	Square
	Triangle
	Sawtooth
)

// osc evaluates one oscillator sample at the given phase (radians).
func osc(w Waveform, phase float64) float64 {
	switch w {
	case Square:
		return softSquareWave(phase)
	case Triangle:
		return triWave(phase)
	case Sawtooth:
		c := math.Mod(phase/(2*math.Pi), 1.0)
		return 2*c - 1
	default:
		return math.Sin(phase)
	}
}

func triWave(phase float64) float64 {
	return (2.0 / math.Pi) * math.Asin(math.Sin(phase))
}

// softSquareWave rounds the square's edges so it doesn't alias harshly.
func softSquareWave(phase float64) float64 {
	return math.Tanh(math.Sin(phase) * 3.4)
}

// PlayTone schedules one enveloped oscillator on a bus, starting at
// startClock seconds on the graph timeline (a past clock starts
// immediately). The envelope ramps exponentially from peak down to the
// gain floor across the whole duration, after a 1 ms linear onset that
// keeps the attack click-free. A nil graph means audio was never
// unlocked; the sound is skipped — UI sound is best-effort.
func PlayTone(g *Graph, freq float64, w Waveform, startClock, dur, peak float64, bus *Bus) {
	if g == nil || bus == nil || freq <= 0 || dur <= 0 || peak <= 0 {
		return
	}
	if peak > 1 {
		peak = 1
	}
	n := int(dur * SampleRate)
	if n <= 0 {
		return
	}
	onset := int(ToneOnset.Seconds() * SampleRate)
	samples := make([]float64, n)
	phase := 0.0
	for i := range samples {
		p := float64(i) / float64(n)
		env := peak * math.Pow(GainFloor/peak, p)
		if i < onset {
			env *= float64(i) / float64(onset)
		}
		phase += 2 * math.Pi * freq / SampleRate
		samples[i] = softSat(osc(w, phase) * env)
	}
	bus.schedule(samples, startClock)
}
