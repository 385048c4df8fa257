// Package midi defines the wire-level MIDI event model shared by the
// scheduler, generators, and clip/track layer, plus the MidiSink/MidiSource
// interfaces the real-time core dispatches through. Message encoding is
// delegated to gitlab.com/gomidi/midi/v2, the library the teacher repo
// builds its own event generation on (ako-backing-tracks/midi/generator.go,
// midi/rhythm.go).
package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Kind tags the variant carried by a MidiEvent.
type Kind int

const (
	KindNoteOn Kind = iota
	KindNoteOff
	KindCC
	KindProgramChange
	KindPitchBend
)

// MidiEvent is an in-flight note description stamped in musical ticks.
// Events with a positive Duration are materialized by the scheduler as a
// NoteOn at Tick and a matching NoteOff at Tick+Duration (see
// internal/scheduler).
type MidiEvent struct {
	Tick     uint64
	Channel  uint8 // 0-15
	Kind     Kind
	Pitch    uint8 // NoteOn/NoteOff
	Velocity uint8 // NoteOn
	Ctrl     uint8 // CC
	Value    uint8 // CC value / ProgramChange program
	Bend     int16 // PitchBend, -8192..8191

	// Duration, when > 0, tells the scheduler to also materialize a
	// matching NoteOff at Tick+Duration when this event is a NoteOn.
	Duration uint64
}

// NoteOn builds a NoteOn event.
func NoteOn(tick uint64, channel, pitch, velocity uint8, durationTicks uint64) MidiEvent {
	return MidiEvent{Tick: tick, Channel: channel, Kind: KindNoteOn, Pitch: pitch, Velocity: velocity, Duration: durationTicks}
}

// NoteOff builds a NoteOff event.
func NoteOff(tick uint64, channel, pitch uint8) MidiEvent {
	return MidiEvent{Tick: tick, Channel: channel, Kind: KindNoteOff, Pitch: pitch}
}

// CC builds a control-change event.
func CC(tick uint64, channel, ctrl, value uint8) MidiEvent {
	return MidiEvent{Tick: tick, Channel: channel, Kind: KindCC, Ctrl: ctrl, Value: value}
}

// ProgramChange builds a program-change event.
func ProgramChange(tick uint64, channel, program uint8) MidiEvent {
	return MidiEvent{Tick: tick, Channel: channel, Kind: KindProgramChange, Value: program}
}

// PitchBend builds a pitch-bend event. bend is -8192..8191, 0 = center.
func PitchBend(tick uint64, channel uint8, bend int16) MidiEvent {
	return MidiEvent{Tick: tick, Channel: channel, Kind: KindPitchBend, Bend: bend}
}

// AllNotesOff builds the CC 123 "all notes off" panic event for a channel.
// Nothing in this module calls it: transport Stop does not emit CC 123.
func AllNotesOff(tick uint64, channel uint8) MidiEvent {
	return CC(tick, channel, 123, 0)
}

// Message renders the event into a gomidi wire message, the same encoding
// the teacher uses via gomidi's top-level NoteOn/NoteOff/ProgramChange
// constructors.
func (e MidiEvent) Message() gomidi.Message {
	switch e.Kind {
	case KindNoteOn:
		if e.Velocity == 0 {
			return gomidi.NoteOff(e.Channel, e.Pitch)
		}
		return gomidi.NoteOn(e.Channel, e.Pitch, e.Velocity)
	case KindNoteOff:
		return gomidi.NoteOff(e.Channel, e.Pitch)
	case KindCC:
		return gomidi.ControlChange(e.Channel, e.Ctrl, e.Value)
	case KindProgramChange:
		return gomidi.ProgramChange(e.Channel, e.Value)
	case KindPitchBend:
		return gomidi.Pitchbend(e.Channel, e.Bend)
	default:
		return gomidi.Message{}
	}
}

// IsNoteOn reports whether this event turns a note on (velocity > 0).
func (e MidiEvent) IsNoteOn() bool { return e.Kind == KindNoteOn && e.Velocity > 0 }

// IsNoteOff reports whether this event is an explicit note-off, or a
// NoteOn with velocity 0 (the running-status note-off convention).
func (e MidiEvent) IsNoteOff() bool {
	return e.Kind == KindNoteOff || (e.Kind == KindNoteOn && e.Velocity == 0)
}

// NotePitch returns (pitch, ok) for note-on/note-off events.
func (e MidiEvent) NotePitch() (uint8, bool) {
	if e.Kind == KindNoteOn || e.Kind == KindNoteOff {
		return e.Pitch, true
	}
	return 0, false
}

// ScheduledEvent is a MidiEvent stamped with an absolute tick and an
// insertion sequence number, ordered by (AbsoluteTick, SequenceNo). The
// sequence number breaks ties deterministically (spec §3).
type ScheduledEvent struct {
	AbsoluteTick uint64
	SequenceNo   uint64
	Event        MidiEvent
	TrackID      int // origin track, for clear_track / diagnostics
}

// Less implements the priority ordering used by the scheduler's heap.
func (a ScheduledEvent) Less(b ScheduledEvent) bool {
	if a.AbsoluteTick != b.AbsoluteTick {
		return a.AbsoluteTick < b.AbsoluteTick
	}
	return a.SequenceNo < b.SequenceNo
}
