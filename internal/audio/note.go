package audio

import "math"

// PlayNote schedules a layered ambient note on a bus. Two coupled
// layers approximate a struck-string timbre: the fundamental runs a
// multi-stage envelope (fast linear attack, exponential decay to the
// sustain level at the nominal duration, then an exponential release
// tail extending past it so the note never cuts off hard), and a
// detuned second harmonic at lower volume decays independently and
// faster. Both pass through a fixed one-pole lowpass.
func PlayNote(g *Graph, freq float64, startClock, dur, peak float64, bus *Bus) {
	if g == nil || bus == nil || freq <= 0 || dur <= 0 || peak <= 0 {
		return
	}
	if peak > 1 {
		peak = 1
	}
	n := int(dur * SampleRate)
	total := int(dur * (1 + NoteTailFactor) * SampleRate)
	attack := int(NoteAttack.Seconds() * SampleRate)
	if n <= attack+1 || total <= n {
		return
	}

	sustain := peak * NoteSustainLevel
	harmFreq := freq * NoteHarmonicRatio * NoteHarmonicDetune
	harmDecay := 6.0 / dur

	samples := make([]float64, total)
	var ph1, ph2, lp float64
	for i := range samples {
		var env float64
		switch {
		case i < attack:
			env = peak * float64(i) / float64(attack)
		case i < n:
			p := float64(i-attack) / float64(n-attack)
			env = peak * math.Pow(NoteSustainLevel, p)
		default:
			p := float64(i-n) / float64(total-n)
			env = sustain * math.Pow(GainFloor/sustain, p)
		}
		t := float64(i) / SampleRate
		hEnv := peak * NoteHarmonicLevel * math.Exp(-t*harmDecay)

		ph1 += 2 * math.Pi * freq / SampleRate
		ph2 += 2 * math.Pi * harmFreq / SampleRate
		raw := math.Sin(ph1)*env + math.Sin(ph2)*hEnv
		lp += NoteLowpassCoeff * (raw - lp)
		samples[i] = softSat(lp)
	}
	bus.schedule(samples, startClock)
}
