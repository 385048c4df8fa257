package arrangement

import (
	"testing"
)

func TestOnlyOnePendingPartPerManager(t *testing.T) {
	m := NewManager()
	m.AddPart(&Part{Name: "A", Transition: TransitionNextBar})
	m.AddPart(&Part{Name: "B", Transition: TransitionNextBar})

	m.TriggerPart("A", 10)
	m.TriggerPart("B", 20) // should cancel A's pending transition

	boundary, pending := m.PendingBoundary()
	if !pending {
		t.Fatal("expected a pending part")
	}
	if boundary != 96 {
		t.Errorf("pending boundary = %d, want 96 (next bar after tick 20)", boundary)
	}
	p, ok := m.Poll(96)
	if !ok || p.Name != "B" {
		t.Errorf("expected part B to fire at the boundary, got %+v, ok=%v", p, ok)
	}
}

func TestTriggerUnknownPartReturnsFalse(t *testing.T) {
	m := NewManager()
	if m.TriggerPart("ghost", 0) {
		t.Error("triggering an unknown part name should fail (treated as Hold by caller)")
	}
}

func TestPartQuantizedTransitionScenario(t *testing.T) {
	// spec §8 #6: trigger Part B at tick 50 with NextBar; fires exactly at 96.
	m := NewManager()
	m.AddPart(&Part{Name: "B", Transition: TransitionNextBar})
	m.TriggerPart("B", 50)

	if _, fired := m.Poll(95); fired {
		t.Error("part should not fire before its boundary")
	}
	if _, fired := m.Poll(96); !fired {
		t.Error("part should fire exactly at its boundary")
	}
}

func TestPartCrossfadeTransitionFiresImmediately(t *testing.T) {
	m := NewManager()
	m.AddPart(&Part{Name: "C", Transition: TransitionCrossfade, TransitionN: 48})
	m.TriggerPart("C", 37)

	boundary, pending := m.PendingBoundary()
	if !pending || boundary != 37 {
		t.Errorf("crossfade should become pending immediately at its trigger tick, got boundary=%d pending=%v", boundary, pending)
	}
	p, ok := m.Poll(37)
	if !ok || p.Name != "C" {
		t.Errorf("expected part C to fire at tick 37, got %+v, ok=%v", p, ok)
	}
}

func TestSongAdvanceCrossesSectionBoundary(t *testing.T) {
	song := NewSong([]SongSection{
		{PartName: "A", LengthBars: 2},
		{PartName: "B", LengthBars: 2},
	})
	sec, crossed := song.Advance(96, 96) // half of section A's length (2 bars = 192 ticks)
	if crossed {
		t.Error("should not cross a boundary after only 1 bar of a 2-bar section")
	}
	if sec.PartName != "A" {
		t.Errorf("current section = %q, want A", sec.PartName)
	}

	sec2, crossed2 := song.Advance(96, 96) // total 192 ticks, exactly section A's length
	if !crossed2 {
		t.Error("should cross into section B after section A's full length")
	}
	if sec2.PartName != "B" {
		t.Errorf("current section after crossing = %q, want B", sec2.PartName)
	}
}

func TestSongLoopRegionJumpsBackToStart(t *testing.T) {
	song := NewSong([]SongSection{
		{PartName: "A", LengthBars: 1},
		{PartName: "B", LengthBars: 1},
	})
	song.SetLoop(LoopRegion{StartSection: 0, EndSection: 1, Repeats: 0})

	song.Advance(96, 96)  // into B
	song.Advance(96, 96)  // B's length exhausted, should loop back to A
	sec, _ := song.CurrentSection()
	if sec.PartName != "A" {
		t.Errorf("after looping, current section = %q, want A", sec.PartName)
	}
}

func TestRegistryStaleReferenceMissingLookup(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.ResolvePart("nonexistent"); ok {
		t.Error("resolving a name absent from the registry should report false")
	}
}

func TestHandleSwapIsAtomic(t *testing.T) {
	h := NewHandle(NewRegistry())
	newReg := NewRegistry()
	newReg.ClipIDs["clip1"] = true
	old := h.Swap(newReg)
	if old == nil {
		t.Fatal("Swap should return the previous registry")
	}
	if !h.Load().HasClip("clip1") {
		t.Error("Load after Swap should see the newly installed registry")
	}
}
