package clip

import (
	"testing"

	"seq/internal/midi"
)

func TestProcessAppliesTranspose(t *testing.T) {
	tr := NewTrack(0, 0)
	tr.TransposeSemitones = 12
	out, ok := tr.Process(midi.NoteOn(0, 0, 60, 100, 0), false)
	if !ok || out.Pitch != 72 {
		t.Errorf("Process with +12 transpose = %+v, ok=%v, want pitch 72", out, ok)
	}
}

func TestProcessClampsTransposeRange(t *testing.T) {
	tr := NewTrack(0, 0)
	tr.TransposeSemitones = 1000 // should clamp to 48
	if clampTranspose(tr.TransposeSemitones) != 48 {
		t.Errorf("clampTranspose(1000) = %d, want 48", clampTranspose(tr.TransposeSemitones))
	}
}

func TestProcessScalesVelocity(t *testing.T) {
	tr := NewTrack(0, 0)
	tr.VelocityScale = 0.5
	out, ok := tr.Process(midi.NoteOn(0, 0, 60, 100, 0), false)
	if !ok || out.Velocity != 50 {
		t.Errorf("Process with 0.5x velocity = %+v, want velocity 50", out)
	}
}

func TestProcessAppliesSwingToOddEighths(t *testing.T) {
	tr := NewTrack(0, 0)
	tr.Swing = 1.0
	tr.SetTicksPerEighth(12)
	// tick 12 is the first (odd-indexed) eighth note position.
	out, _ := tr.Process(midi.NoteOn(12, 0, 60, 100, 0), false)
	if out.Tick != 18 { // 12 + 1.0*(12/2)
		t.Errorf("swung tick = %d, want 18", out.Tick)
	}
	// tick 0 is even-indexed, should not be delayed.
	out2, _ := tr.Process(midi.NoteOn(0, 0, 60, 100, 0), false)
	if out2.Tick != 0 {
		t.Errorf("even eighth tick should not swing, got %d", out2.Tick)
	}
}

func TestMutedTrackDropsEventsRegardlessOfSolo(t *testing.T) {
	tr := NewTrack(0, 0)
	tr.State = Muted
	_, ok := tr.Process(midi.NoteOn(0, 0, 60, 100, 0), true)
	if ok {
		t.Error("muted track should drop events even when another track is soloed")
	}
}

func TestCrossfadeGainsRampLinearly(t *testing.T) {
	tr := NewTrack(0, 0)
	outgoing, err := NewClip("out", 96, 0, 96, Loop)
	if err != nil {
		t.Fatal(err)
	}
	tr.BeginCrossfade(outgoing, 100, 50)

	if out, in, active := tr.CrossfadeGains(100); !active || out != 1 || in != 0 {
		t.Errorf("at start: out=%v in=%v active=%v, want 1,0,true", out, in, active)
	}
	if out, in, active := tr.CrossfadeGains(125); !active || out != 0.5 || in != 0.5 {
		t.Errorf("at midpoint: out=%v in=%v active=%v, want 0.5,0.5,true", out, in, active)
	}
	if _, _, active := tr.CrossfadeGains(150); active {
		t.Error("crossfade should no longer be active once its duration has elapsed")
	}
	if done := tr.EndCrossfadeIfDue(150); done != outgoing {
		t.Error("EndCrossfadeIfDue should return the clip that finished fading out")
	}
	if tr.CrossfadeOutClip() != nil {
		t.Error("crossfade state should be cleared after EndCrossfadeIfDue")
	}
}

func TestSoloOverrideScenario(t *testing.T) {
	// spec §8 #4: A, B, C active; solo B; A and C drop, B passes; clear solo, all pass.
	m := NewTrackManager()
	a := NewTrack(0, 0)
	b := NewTrack(1, 1)
	c := NewTrack(2, 2)
	m.AddTrack(a)
	m.AddTrack(b)
	m.AddTrack(c)

	m.ToggleSolo(1)
	if _, ok := m.ProcessEvent(0, midi.NoteOn(0, 0, 60, 100, 0)); ok {
		t.Error("track A should be dropped while B is soloed")
	}
	if _, ok := m.ProcessEvent(1, midi.NoteOn(0, 1, 60, 100, 0)); !ok {
		t.Error("soloed track B should pass")
	}
	if _, ok := m.ProcessEvent(2, midi.NoteOn(0, 2, 60, 100, 0)); ok {
		t.Error("track C should be dropped while B is soloed")
	}

	m.ToggleSolo(1)
	for i := 0; i < 3; i++ {
		if _, ok := m.ProcessEvent(i, midi.NoteOn(0, uint8(i), 60, 100, 0)); !ok {
			t.Errorf("track %d should pass once solo is cleared", i)
		}
	}
}
