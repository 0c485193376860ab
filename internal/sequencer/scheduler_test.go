package sequencer

import (
	"testing"
	"time"
)

func TestStartWrapsResumeIndex(t *testing.T) {
	melody := DefaultMelody()
	cases := []struct {
		resume, want int
	}{
		{0, 0},
		{5, 5},
		{11, 0},
		{13, 2},
		{-1, 10},
		{-12, 10},
		{110, 0},
	}
	for _, c := range cases {
		st := &state{melody: melody}
		if !st.start(c.resume, time.Now()) {
			t.Fatalf("start(%d) refused on idle state", c.resume)
		}
		if st.index != c.want {
			t.Errorf("start(%d): index = %d, want %d", c.resume, st.index, c.want)
		}
	}
}

func TestStartWhileRunningIsNoop(t *testing.T) {
	st := &state{melody: DefaultMelody()}
	st.start(3, time.Now())
	if st.start(7, time.Now()) {
		t.Fatal("second start succeeded while running")
	}
	if st.index != 3 {
		t.Fatalf("index moved to %d on refused start", st.index)
	}
}

func TestReferenceClockAccumulatesNominalDurations(t *testing.T) {
	melody := DefaultMelody()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := &state{melody: melody}
	st.start(0, base)

	initial := st.lastEmission
	now := base
	var nominal time.Duration
	const steps = 33 // three full loops
	for i := 0; i < steps; i++ {
		task := melody[st.index]
		// Fire with up to 7ms of timer jitter; on-time as long as the
		// jitter stays under the task duration.
		jitter := time.Duration(i%8) * time.Millisecond
		_, delay := st.step(now.Add(jitter))
		nominal += task.Duration
		now = st.lastEmission // ideal grid
		if delay < 0 {
			t.Fatalf("step %d: negative delay %v", i, delay)
		}
	}
	if got := st.lastEmission.Sub(initial); got != nominal {
		t.Fatalf("reference clock advanced %v, want sum of nominal durations %v", got, nominal)
	}
}

func TestStallFiresOnceWithoutBurst(t *testing.T) {
	melody := []Task{
		{Pitch: A4, Duration: 100 * time.Millisecond},
		{Pitch: C5, Duration: 100 * time.Millisecond},
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := &state{melody: melody}
	st.start(0, base)
	st.step(base) // on-time first emission

	// The context stalls for 2 seconds: twenty tasks' worth of time.
	stalled := base.Add(2 * time.Second)
	_, delay := st.step(stalled)
	if delay != 0 {
		t.Fatalf("late step delay = %v, want 0 (immediate)", delay)
	}
	if !st.lastEmission.Equal(stalled) {
		t.Fatalf("reference clock not re-based after stall: %v", st.lastEmission)
	}

	// The very next step is back on the nominal schedule, not catching up.
	_, delay = st.step(stalled.Add(time.Millisecond))
	if delay <= 0 || delay > 100*time.Millisecond {
		t.Fatalf("post-stall delay = %v, want a nominal (0, 100ms] wait", delay)
	}
}

func TestEmissionOrderAndWrap(t *testing.T) {
	melody := DefaultMelody()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := &state{melody: melody}
	st.start(0, base)

	now := base
	for i, task := range melody {
		ev, _ := st.step(now)
		wantIndex := (i + 1) % len(melody)
		if ev.Index != wantIndex {
			t.Fatalf("emission %d: index = %d, want %d", i, ev.Index, wantIndex)
		}
		wantKind := KindPlayNote
		if task.Rest {
			wantKind = KindSyncRest
		}
		if ev.Kind != wantKind {
			t.Fatalf("emission %d: kind = %d, want %d", i, ev.Kind, wantKind)
		}
		if !task.Rest && ev.Pitch != task.Pitch {
			t.Fatalf("emission %d: pitch = %v, want %v", i, ev.Pitch, task.Pitch)
		}
		now = st.lastEmission
	}
	if st.index != 0 {
		t.Fatalf("after %d emissions index = %d, want 0", len(melody), st.index)
	}
}

func TestNoteThenRestScenario(t *testing.T) {
	melody := []Task{
		{Pitch: A4, Duration: time.Second},
		{Duration: 500 * time.Millisecond, Rest: true},
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := &state{melody: melody}
	st.start(0, base)

	ev, delay := st.step(base)
	if ev.Kind != KindPlayNote || ev.Pitch != 440 || ev.Duration != time.Second || ev.Index != 1 {
		t.Fatalf("first emission = %+v", ev)
	}
	if delay != time.Second {
		t.Fatalf("first delay = %v, want 1s", delay)
	}

	ev, delay = st.step(base.Add(time.Second))
	if ev.Kind != KindSyncRest || ev.Index != 0 {
		t.Fatalf("second emission = %+v, want rest at index 0", ev)
	}
	if delay != 500*time.Millisecond {
		t.Fatalf("second delay = %v, want 500ms", delay)
	}

	ev, _ = st.step(base.Add(1500 * time.Millisecond))
	if ev.Kind != KindPlayNote || ev.Pitch != 440 || ev.Index != 1 {
		t.Fatalf("third emission = %+v, want the first note again", ev)
	}
}

func TestSyncKeepsTiming(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := &state{melody: DefaultMelody()}
	st.start(0, base)
	st.step(base)
	ref := st.lastEmission
	st.sync(7)
	if st.index != 7 {
		t.Fatalf("sync: index = %d, want 7", st.index)
	}
	if !st.lastEmission.Equal(ref) {
		t.Fatal("sync moved the reference clock")
	}
	// Sync works on idle state too.
	st.stop()
	st.sync(-2)
	if st.index != 9 {
		t.Fatalf("idle sync: index = %d, want 9", st.index)
	}
}

func collect(t *testing.T, events <-chan Event, n int, timeout time.Duration) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event stream closed after %d of %d events", len(out), n)
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("timed out with %d of %d events", len(out), n)
		}
	}
	return out
}

func TestIsolatedEmitsInOrder(t *testing.T) {
	melody := []Task{
		{Pitch: C5, Duration: 15 * time.Millisecond},
		{Duration: 10 * time.Millisecond, Rest: true},
		{Pitch: E5, Duration: 15 * time.Millisecond, Priority: Accent},
	}
	s, err := NewIsolated(melody)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	s.Start(0)

	evs := collect(t, s.Events(), 7, 2*time.Second)
	want := []int{1, 2, 0, 1, 2, 0, 1}
	for i, ev := range evs {
		if ev.Index != want[i] {
			t.Fatalf("event %d: index = %d, want %d", i, ev.Index, want[i])
		}
	}
	if evs[0].Kind != KindPlayNote || evs[1].Kind != KindSyncRest {
		t.Fatalf("kinds out of order: %d then %d", evs[0].Kind, evs[1].Kind)
	}
	if evs[2].Priority != Accent {
		t.Fatal("accent priority not carried through")
	}
}

func TestIsolatedStopIdempotent(t *testing.T) {
	s, err := NewIsolated(DefaultMelody())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	s.Start(4)
	s.Stop()
	s.Stop()
	st := s.Status()
	if st.Running {
		t.Fatal("still running after stop")
	}
	s.Stop() // after already stopped
	if s.Status().Running {
		t.Fatal("stop resurrected the scheduler")
	}
}

func TestIsolatedStatusAndHealth(t *testing.T) {
	s, err := NewIsolated(DefaultMelody())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if st := s.Status(); st.Running {
		t.Fatal("running before start")
	}
	s.Sync(6)
	if st := s.Status(); st.Index != 6 {
		t.Fatalf("index = %d after idle sync, want 6", st.Index)
	}
	h := s.Health()
	if h.Variant != VariantIsolated {
		t.Fatalf("variant = %q", h.Variant)
	}
	if h.Checked.IsZero() {
		t.Fatal("health check carried no timestamp")
	}
}

func TestIsolatedCloseEndsStream(t *testing.T) {
	s, err := NewIsolated(DefaultMelody())
	if err != nil {
		t.Fatal(err)
	}
	s.Close()
	s.Close() // idempotent
	select {
	case _, ok := <-s.Events():
		if ok {
			t.Fatal("unexpected event after close")
		}
	case <-time.After(time.Second):
		t.Fatal("event stream not closed")
	}
	// Commands after close must not hang.
	s.Start(0)
	s.Stop()
	_ = s.Status()
}

func TestIntervalFallback(t *testing.T) {
	melody := []Task{
		{Pitch: C5, Duration: time.Second}, // nominal durations are ignored
		{Duration: time.Second, Rest: true},
	}
	s, err := NewInterval(melody, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	s.Start(3) // wraps to 1
	evs := collect(t, s.Events(), 4, 2*time.Second)
	if evs[0].Kind != KindSyncRest || evs[0].Index != 0 {
		t.Fatalf("first fallback event = %+v", evs[0])
	}
	if evs[1].Kind != KindPlayNote || evs[1].Index != 1 {
		t.Fatalf("second fallback event = %+v", evs[1])
	}
	s.Stop()
	s.Stop()
	if s.Status().Running {
		t.Fatal("fallback still running after stop")
	}
	if h := s.Health(); h.Variant != VariantInterval {
		t.Fatalf("variant = %q", h.Variant)
	}
}

func TestNewPrefersIsolated(t *testing.T) {
	s, variant, err := New(DefaultMelody(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if variant != VariantIsolated {
		t.Fatalf("variant = %q, want isolated", variant)
	}

	f, variant, err := New(DefaultMelody(), true)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if variant != VariantInterval {
		t.Fatalf("forced variant = %q, want interval", variant)
	}

	if _, _, err := New(nil, false); err == nil {
		t.Fatal("empty melody accepted")
	}
}
