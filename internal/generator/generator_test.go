package generator

import (
	"testing"

	"seq/internal/theory"
)

func ctxAt(tick uint64) Context {
	key := theory.NewKey(0, theory.Major)
	return Context{NowTick: tick, Key: &key, TempoBPM: 120, PPQN: 24}
}

func TestDroneEmitsInitialVoicesOnFirstCall(t *testing.T) {
	d := NewDrone(0)
	d.Voices = 3
	events := d.Generate(ctxAt(0))
	onCount := 0
	for _, e := range events {
		if e.IsNoteOn() {
			onCount++
		}
	}
	if onCount != 3 {
		t.Errorf("expected 3 initial NoteOns, got %d", onCount)
	}
}

func TestDroneUnknownParamIgnored(t *testing.T) {
	d := NewDrone(0)
	d.SetParam("not_a_real_param", 42) // must not panic
}

func TestArpeggioUpPatternOrder(t *testing.T) {
	a := NewArpeggio(0)
	a.Pattern = ArpUp
	a.Rate = 10
	a.SetChordTones([]int{60, 64, 67})
	events := a.Generate(ctxAt(0))
	if len(events) == 0 {
		t.Fatal("expected at least one event")
	}
	if events[0].Pitch != 60 {
		t.Errorf("first arp note = %d, want 60 (root)", events[0].Pitch)
	}
}

func TestArpeggioEuclidMaskSkipsSteps(t *testing.T) {
	a := NewArpeggio(0)
	a.Rate = 1
	a.UseEuclid = true
	a.EuclidK = 0
	a.EuclidN = 4
	a.SetChordTones([]int{60})
	events := a.Generate(ctxAt(0))
	if len(events) != 0 {
		t.Errorf("euclid mask with 0 pulses should fire nothing, got %d events", len(events))
	}
}

func TestChordFunctionalProgressionStaysInKey(t *testing.T) {
	c := NewChord(0)
	c.ChangeRate = 1
	key := theory.NewKey(0, theory.Major)
	ctx := Context{NowTick: 0, Key: &key}
	events := c.Generate(ctx)
	if len(events) == 0 {
		t.Fatal("expected chord events")
	}
	for _, e := range events {
		if e.IsNoteOn() && !key.ContainsPitchClass(int(e.Pitch)%12) {
			t.Errorf("chord tone %d not in key", e.Pitch)
		}
	}
}

func TestChordVoiceLeadingMinimizesMovement(t *testing.T) {
	c := NewChord(0)
	c.VoiceLed = true
	c.ChangeRate = 1
	key := theory.NewKey(0, theory.Major)
	first := c.Generate(Context{NowTick: 0, Key: &key})
	if len(first) == 0 {
		t.Fatal("expected events on first change")
	}
	prev := append([]int(nil), c.prevPitches...)
	second := c.Generate(Context{NowTick: 1, Key: &key})
	var chosen []int
	for _, e := range second {
		if e.IsNoteOn() {
			chosen = append(chosen, int(e.Pitch))
		}
	}
	root := applyVoicing(buildTriad(Context{NowTick: 1, Key: &key}, c.currentDegree, c.Extensions), c.Voicing)
	cost := voicingCost(chosen, prev)
	for n := 0; n < len(root); n++ {
		if alt := voicingCost(invert(root, n), prev); alt < cost {
			t.Errorf("inversion %d moves %d semitones, less than the chosen voicing's %d", n, alt, cost)
		}
	}
}

func TestMelodyRespectsNoteRange(t *testing.T) {
	m := NewMelody(0)
	m.NoteMin = 60
	m.NoteMax = 65
	m.RestProbability = 0
	key := theory.NewKey(0, theory.Major)
	var allNotes []uint8
	for tick := uint64(0); tick < 2000; tick += 50 {
		events := m.Generate(Context{NowTick: tick, Key: &key})
		for _, e := range events {
			if e.IsNoteOn() {
				allNotes = append(allNotes, e.Pitch)
			}
		}
	}
	for _, n := range allNotes {
		if n < 60 || n > 65 {
			t.Errorf("melody note %d outside configured range [60,65]", n)
		}
	}
}

func TestMelodyPhraseCompletionQueuesReplay(t *testing.T) {
	m := NewMelody(0)
	m.PhraseLength = 2
	m.RestProbability = 0
	m.TransposeProb, m.InvertProb, m.RetrogradeProb = 0, 1, 0 // force invert
	key := theory.NewKey(0, theory.Major)
	for tick := uint64(0); tick < 500; tick += 20 {
		m.Generate(Context{NowTick: tick, Key: &key})
	}
	if len(m.motif) == 0 {
		t.Error("expected a completed motif after enough notes")
	}
	if len(m.replay) == 0 {
		t.Error("expected phrase completion to queue an inverted replay of the motif")
	}
}

func TestDrumProducesEventsOnBarBoundary(t *testing.T) {
	d := NewDrum(0, "rock")
	events := d.Generate(ctxAt(0))
	if len(events) == 0 {
		t.Fatal("expected drum events on first bar")
	}
	for _, e := range events {
		if !e.IsNoteOn() {
			t.Error("drum generator should only emit NoteOn hits")
		}
	}
}

func TestDrumUnknownStyleFallsBackToRock(t *testing.T) {
	d := NewDrum(0, "not_a_style")
	if len(d.Voices) == 0 {
		t.Fatal("expected fallback voices")
	}
}
