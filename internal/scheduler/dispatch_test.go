package scheduler

import (
	"sync"
	"testing"
	"time"

	"seq/internal/midi"
	"seq/internal/timing"
)

type fakeSink struct {
	mu   sync.Mutex
	sent [][]byte
}

func (f *fakeSink) Send(b []byte) error { return f.sendAt(b) }
func (f *fakeSink) SendAt(b []byte, _ time.Time) error {
	return f.sendAt(b)
}
func (f *fakeSink) sendAt(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), b...)
	f.sent = append(f.sent, cp)
	return nil
}
func (f *fakeSink) ListDestinations() ([]midi.Destination, error) { return nil, nil }
func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestDispatcherDrainsDueEvents(t *testing.T) {
	clock := timing.NewClock(120)
	clock.Start(time.Now())
	sink := &fakeSink{}
	q := NewQueue(0)
	d := NewDispatcher(q, clock, sink)
	d.SetPeriod(2 * time.Millisecond)

	go d.Run()
	defer d.Stop()

	d.Submit(func(q *Queue) {
		q.Schedule(midi.ScheduledEvent{AbsoluteTick: 0, SequenceNo: q.NextSequence(), Event: midi.NoteOn(0, 0, 60, 100, 0)})
	})

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if sink.count() > 0 {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("expected dispatcher to have sent the scheduled event within 200ms")
}

func TestScheduleNoteWithOffQueuesBothEvents(t *testing.T) {
	q := NewQueue(0)
	ScheduleNoteWithOff(q, 0, midi.NoteOn(10, 0, 60, 100, 24))
	due := q.DrainUntil(1000)
	if len(due) != 2 {
		t.Fatalf("expected NoteOn+NoteOff, got %d events", len(due))
	}
	if !due[0].Event.IsNoteOn() {
		t.Error("first event should be the NoteOn")
	}
	if due[1].AbsoluteTick != 34 || !due[1].Event.IsNoteOff() {
		t.Errorf("second event = %+v, want NoteOff at tick 34", due[1])
	}
}
