package audio

// Options tweaks a discrete sound trigger.
type Options struct {
	// Gain multiplies the recipe's base volume; zero means 1.
	Gain float64
}

// PlayDiscrete fires a named UI sound on the SFX bus. Best-effort: a
// nil graph (audio not unlocked) or an unrecognized name plays nothing.
func PlayDiscrete(g *Graph, name string, opt Options) {
	if g == nil {
		return
	}
	gain := opt.Gain
	if gain <= 0 {
		gain = 1
	}
	now := g.Clock()
	switch name {
	case "click":
		PlayTone(g, 1250, Sine, now, 0.06, 0.34*gain, g.SFX)
	case "hover":
		PlayTone(g, 880, Triangle, now, 0.045, 0.16*gain, g.SFX)
	case "toggle":
		PlayTone(g, 660, Square, now, 0.07, 0.22*gain, g.SFX)
	case "navigate":
		// Quick upward fifth.
		PlayTone(g, 523.25, Sine, now, 0.09, 0.26*gain, g.SFX)
		PlayTone(g, 783.99, Sine, now+0.055, 0.10, 0.22*gain, g.SFX)
	case "success":
		// Ascending major triad, staggered so each note rings over the next.
		PlayTone(g, 523.25, Sine, now, 0.16, 0.28*gain, g.SFX)
		PlayTone(g, 659.25, Sine, now+0.07, 0.16, 0.26*gain, g.SFX)
		PlayTone(g, 783.99, Sine, now+0.14, 0.22, 0.30*gain, g.SFX)
	case "error":
		// Flat descending pair; square for a little edge.
		PlayTone(g, 330, Square, now, 0.11, 0.24*gain, g.SFX)
		PlayTone(g, 247, Square, now+0.09, 0.16, 0.24*gain, g.SFX)
	}
}

// SoundNames lists the recognized discrete sound names, for front-ends.
func SoundNames() []string {
	return []string{"click", "hover", "toggle", "navigate", "success", "error"}
}
