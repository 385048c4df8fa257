package clip

import "testing"

func TestNewClipRejectsInvalidLoopBounds(t *testing.T) {
	if _, err := NewClip("x", 96, 72, 24, Loop); err == nil {
		t.Error("expected error when loop_start >= loop_end")
	}
	if _, err := NewClip("x", 96, 24, 120, Loop); err == nil {
		t.Error("expected error when loop_end > length")
	}
}

func TestLoopWrapVisitsExpectedBoundaries(t *testing.T) {
	// Scenario from spec §8 #5: length 96, loop_start 24, loop_end 72,
	// mode Loop, starting at position 0, ticking 300 units total.
	c, err := NewClip("x", 96, 24, 72, Loop)
	if err != nil {
		t.Fatal(err)
	}
	c.Launch()
	c.position = 0 // first pass starts at 0, not loop_start, per spec note

	remaining := uint64(300)
	var boundaries []uint64
	for remaining > 0 {
		before := c.position
		step := uint64(1)
		if remaining < step {
			step = remaining
		}
		_, ended := c.Tick(step)
		remaining -= step
		if ended {
			break
		}
		if c.position < before {
			boundaries = append(boundaries, 300-remaining)
		}
	}
	want := []uint64{72, 120, 168, 216, 264}
	if len(boundaries) != len(want) {
		t.Fatalf("wrap points = %v, want %v", boundaries, want)
	}
	for i := range want {
		if boundaries[i] != want[i] {
			t.Errorf("wrap point %d = %d, want %d", i, boundaries[i], want[i])
		}
	}
	if c.State != Playing {
		t.Errorf("clip should still be Playing after 300 ticks in Loop mode, got %v", c.State)
	}
}

func TestOneShotTransitionsToStoppedAtLength(t *testing.T) {
	c, _ := NewClip("x", 48, 0, 48, OneShot)
	c.Mode = OneShot
	c.Launch()
	_, ended := c.Tick(48)
	if !ended {
		t.Error("OneShot clip should end exactly at length")
	}
	if c.State != Stopped {
		t.Errorf("OneShot clip state after end = %v, want Stopped", c.State)
	}
}

func TestLoopCountStopsAfterNPasses(t *testing.T) {
	c, _ := NewClip("x", 24, 0, 24, LoopCount)
	c.LoopCountN = 2
	c.Launch()
	_, ended1 := c.Tick(24)
	if ended1 {
		t.Fatal("should not end after first pass of LoopCount(2)")
	}
	_, ended2 := c.Tick(24)
	if !ended2 {
		t.Error("should end after second pass of LoopCount(2)")
	}
}

func TestPingPongReversesAtEndpoints(t *testing.T) {
	c, _ := NewClip("x", 24, 0, 24, PingPong)
	c.Launch()
	c.Tick(24) // reach loop_end, should reverse
	if c.direction != -1 {
		t.Errorf("direction after reaching loop_end = %d, want -1", c.direction)
	}
}

func TestFinishingTransitionsToStoppedAtNextBoundary(t *testing.T) {
	c, _ := NewClip("x", 96, 24, 72, Loop)
	c.Launch()
	c.position = 24
	c.RequestStop()
	if c.State != Finishing {
		t.Fatalf("RequestStop on Playing clip should set Finishing, got %v", c.State)
	}
	c.Tick(48) // reach loop_end
	if c.State != Stopped {
		t.Errorf("Finishing clip should stop at the next loop boundary, got %v", c.State)
	}
}
