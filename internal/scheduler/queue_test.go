package scheduler

import (
	"testing"

	"seq/internal/midi"
)

func mkEvent(tick uint64, seq uint64, trackID int) midi.ScheduledEvent {
	return midi.ScheduledEvent{
		AbsoluteTick: tick,
		SequenceNo:   seq,
		Event:        midi.NoteOn(tick, 0, 60, 100, 0),
		TrackID:      trackID,
	}
}

func TestScheduleOrdersByTickThenSequence(t *testing.T) {
	q := NewQueue(0)
	q.Schedule(mkEvent(10, 2, 0))
	q.Schedule(mkEvent(5, 0, 0))
	q.Schedule(mkEvent(10, 1, 0))

	out := q.DrainUntil(100)
	if len(out) != 3 {
		t.Fatalf("expected 3 events, got %d", len(out))
	}
	if out[0].AbsoluteTick != 5 {
		t.Errorf("first event tick = %d, want 5", out[0].AbsoluteTick)
	}
	if out[1].SequenceNo != 1 || out[2].SequenceNo != 2 {
		t.Errorf("tie at tick 10 not ordered by sequence: got seqs %d, %d", out[1].SequenceNo, out[2].SequenceNo)
	}
}

func TestDrainUntilOnlyTakesDueEvents(t *testing.T) {
	q := NewQueue(0)
	q.Schedule(mkEvent(5, q.NextSequence(), 0))
	q.Schedule(mkEvent(50, q.NextSequence(), 0))

	due := q.DrainUntil(10)
	if len(due) != 1 || due[0].AbsoluteTick != 5 {
		t.Errorf("DrainUntil(10) = %+v, want only tick-5 event", due)
	}
	if q.Len() != 1 {
		t.Errorf("queue len after partial drain = %d, want 1", q.Len())
	}
}

func TestClearTrackRemovesOnlyThatTrack(t *testing.T) {
	q := NewQueue(0)
	q.Schedule(mkEvent(5, q.NextSequence(), 0))
	q.Schedule(mkEvent(6, q.NextSequence(), 1))

	removed := q.ClearTrack(0)
	if len(removed) != 1 {
		t.Fatalf("expected 1 event removed, got %d", len(removed))
	}
	if q.Len() != 1 {
		t.Errorf("queue len after ClearTrack = %d, want 1", q.Len())
	}
}

func TestCapacityEvictsOldestSameTrack(t *testing.T) {
	q := NewQueue(2)
	q.Schedule(mkEvent(1, q.NextSequence(), 0))
	q.Schedule(mkEvent(2, q.NextSequence(), 0))
	// third insert for same track should evict tick 1, not drop itself
	q.Schedule(mkEvent(3, q.NextSequence(), 0))

	if q.Len() != 2 {
		t.Fatalf("queue len = %d, want 2 (capacity enforced)", q.Len())
	}
	due := q.DrainUntil(100)
	if due[0].AbsoluteTick != 2 {
		t.Errorf("oldest same-track event should have been evicted; got ticks %d, %d", due[0].AbsoluteTick, due[1].AbsoluteTick)
	}
	if q.Dropped.Count() != 1 {
		t.Errorf("dropped counter = %d, want 1", q.Dropped.Count())
	}
}

func TestCapacityDropsNewEventWhenNoSameTrackVictim(t *testing.T) {
	q := NewQueue(1)
	q.Schedule(mkEvent(1, q.NextSequence(), 0))
	q.Schedule(mkEvent(2, q.NextSequence(), 1)) // different track, nothing to evict

	if q.Len() != 1 {
		t.Fatalf("queue len = %d, want 1", q.Len())
	}
	if q.Dropped.Count() != 1 {
		t.Errorf("dropped counter = %d, want 1", q.Dropped.Count())
	}
}
