package trigger

import (
	"math/rand"
	"testing"
)

func TestQuantizeBoundariesFromSpecExamples(t *testing.T) {
	// now_tick = 50
	cases := []struct {
		q    Quantize
		n    int
		want uint64
	}{
		{Immediate, 0, 50},
		{Beat, 0, 72},
		{Bar, 0, 96},
		{Beats, 2, 72},
		{Bars, 2, 192},
	}
	for _, c := range cases {
		p := PendingTrigger{Quantize: c.q, N: c.n, EnqueuedAtTick: 50}
		if got := p.Boundary(); got != c.want {
			t.Errorf("Boundary(quantize=%v, n=%d, enqueued=50) = %d, want %d", c.q, c.n, got, c.want)
		}
	}
}

func TestOnBoundaryFiresImmediately(t *testing.T) {
	p := PendingTrigger{Quantize: Beat, EnqueuedAtTick: 48}
	if got := p.Boundary(); got != 48 {
		t.Errorf("Beat boundary for enqueued=48 (on-boundary) = %d, want 48 (fire immediately)", got)
	}
}

func TestLaterTriggerCancelsEarlierForSameTrack(t *testing.T) {
	q := NewQueue()
	q.Enqueue(PendingTrigger{Ref: ClipOrSceneRef{TrackID: 0, ClipID: "a"}, Quantize: Bar, EnqueuedAtTick: 0})
	q.Enqueue(PendingTrigger{Ref: ClipOrSceneRef{TrackID: 0, ClipID: "b"}, Quantize: Bar, EnqueuedAtTick: 0})
	if q.Len() != 1 {
		t.Fatalf("expected 1 pending trigger after re-trigger on same track, got %d", q.Len())
	}
	fired := q.Poll(96)
	if len(fired) != 1 || fired[0].Ref.ClipID != "b" {
		t.Errorf("expected the later trigger (b) to survive, got %+v", fired)
	}
}

func TestPollOnlyReturnsDueTriggers(t *testing.T) {
	q := NewQueue()
	q.Enqueue(PendingTrigger{Ref: ClipOrSceneRef{TrackID: 0}, Quantize: Bar, EnqueuedAtTick: 0})
	q.Enqueue(PendingTrigger{Ref: ClipOrSceneRef{TrackID: 1}, Quantize: Bar, EnqueuedAtTick: 100})
	fired := q.Poll(96)
	if len(fired) != 1 {
		t.Fatalf("expected only track 0's trigger due at tick 96, got %d", len(fired))
	}
	if q.Len() != 1 {
		t.Errorf("track 1's trigger should remain pending, queue len = %d", q.Len())
	}
}

func TestFollowActionNext(t *testing.T) {
	siblings := []string{"a", "b", "c"}
	f := FollowSpec{Action: FollowNext}
	got, ok := f.Resolve(siblings, 0, rand.New(rand.NewSource(1)))
	if !ok || got != "b" {
		t.Errorf("FollowNext from index 0 = %q, want b", got)
	}
	got, ok = f.Resolve(siblings, 2, rand.New(rand.NewSource(1)))
	if !ok || got != "a" {
		t.Errorf("FollowNext wraps from last to first, got %q", got)
	}
}

func TestFollowActionAgainReenqueuesSelf(t *testing.T) {
	siblings := []string{"a", "b"}
	f := FollowSpec{Action: FollowAgain}
	got, ok := f.Resolve(siblings, 1, rand.New(rand.NewSource(1)))
	if !ok || got != "b" {
		t.Errorf("FollowAgain at index 1 = %q, want b (self)", got)
	}
}
