package midi

import (
	"testing"
	"time"
)

var zeroTime = time.Time{}

func TestScheduledEventOrdering(t *testing.T) {
	a := ScheduledEvent{AbsoluteTick: 10, SequenceNo: 2}
	b := ScheduledEvent{AbsoluteTick: 10, SequenceNo: 3}
	c := ScheduledEvent{AbsoluteTick: 11, SequenceNo: 0}

	if !a.Less(b) {
		t.Error("same tick, lower sequence_no should sort first")
	}
	if !b.Less(c) {
		t.Error("lower tick should sort first regardless of sequence_no")
	}
	if c.Less(a) {
		t.Error("higher tick should not sort first")
	}
}

func TestParseMessageTransport(t *testing.T) {
	for _, tc := range []struct {
		b    byte
		kind SourceMessageKind
	}{
		{0xF8, SrcClock},
		{0xFA, SrcStart},
		{0xFB, SrcContinue},
		{0xFC, SrcStop},
	} {
		msg, ok := ParseMessage([]byte{tc.b}, zeroTime)
		if !ok || msg.Kind != tc.kind {
			t.Errorf("ParseMessage(%#x) = %+v, %v; want kind %v", tc.b, msg, ok, tc.kind)
		}
	}
}

func TestParseMessageNoteOnOff(t *testing.T) {
	msg, ok := ParseMessage([]byte{0x90, 60, 100}, zeroTime)
	if !ok || msg.Kind != SrcNoteOn || msg.Data1 != 60 || msg.Data2 != 100 {
		t.Errorf("NoteOn parse failed: %+v", msg)
	}
	// velocity 0 note-on is a note-off in disguise
	msg, ok = ParseMessage([]byte{0x90, 60, 0}, zeroTime)
	if !ok || msg.Kind != SrcNoteOff {
		t.Errorf("NoteOn velocity 0 should parse as NoteOff, got %+v", msg)
	}
}

func TestIsNoteOnOff(t *testing.T) {
	on := NoteOn(0, 0, 60, 100, 24)
	if !on.IsNoteOn() {
		t.Error("NoteOn with velocity > 0 should report IsNoteOn")
	}
	off := NoteOff(0, 0, 60)
	if !off.IsNoteOff() {
		t.Error("NoteOff should report IsNoteOff")
	}
	zeroVel := NoteOn(0, 0, 60, 0, 0)
	if !zeroVel.IsNoteOff() {
		t.Error("NoteOn with velocity 0 should report IsNoteOff")
	}
}
