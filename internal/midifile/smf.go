// Package midifile's SMF export, evolved from the teacher's
// midi/generator.go:GenerateFromTrack. Where the teacher builds exactly
// four fixed tracks (tempo, chords, bass, drums) for one linear
// progression, this exporter takes an arbitrary set of per-track event
// lists recorded off the scheduler and writes them as a Standard MIDI
// File (spec §6), type 0 (single merged track) or type 1 (one MTrk per
// input track), at MetricTicks division 24 (this system's own PPQN,
// unlike the teacher's fixed 480).
package midifile

import (
	"io"
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"seq/internal/midi"
)

// Division is the ticks-per-quarter-note used by every exported file,
// matching this system's own PPQN (spec §6).
const Division = 24

// TrackEvents is one exportable track: its events, already materialized
// with both NoteOn and NoteOff (the scheduler inserts NoteOffs at
// insertion time per spec §4.3, so a recorded clip already carries both).
type TrackEvents struct {
	Name    string
	Channel uint8
	Events  []midi.MidiEvent
}

// TempoChange is one tempo-map breakpoint to emit as a meta tempo event
// on the merged/first track, mirroring the teacher's single
// smf.MetaTempo(track.Info.Tempo) call generalized to a tempo map
// (spec §4.2's piecewise-linear tempo changes).
type TempoChange struct {
	Tick uint64
	BPM  float64
}

// TimeSignature is a meta time-signature event (spec §6: FF 58 04).
type TimeSignature struct {
	Tick         uint64
	Numerator    uint8
	Denominator  uint8 // as a plain integer (4, 8, 16...), converted to the power-of-two encoding internally
}

// Format selects SMF type 0 (all tracks merged into one MTrk, sorted by
// delta time) or type 1 (each input track gets its own MTrk chunk),
// per spec §6.
type Format int

const (
	Type0 Format = 0
	Type1 Format = 1
)

// Export writes tracks as a Standard MIDI File to w, in the requested
// format, with the given tempo map and time signature changes placed on
// the first/merged chunk.
func Export(w io.Writer, format Format, tracks []TrackEvents, tempos []TempoChange, sigs []TimeSignature) error {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(Division)

	switch format {
	case Type1:
		s.Header.NumTracks = uint16(len(tracks)) + 1
		var meta smf.Track
		writeMeta(&meta, tempos, sigs)
		meta.Close(0)
		s.Add(meta)
		for _, t := range tracks {
			var trk smf.Track
			if t.Name != "" {
				trk.Add(0, smf.MetaTrackSequenceName(t.Name))
			}
			writeTrackEvents(&trk, t.Events)
			trk.Close(0)
			s.Add(trk)
		}
	default: // Type0
		var trk smf.Track
		writeMeta(&trk, tempos, sigs)
		merged := mergeForType0(tracks)
		writeTrackEvents(&trk, merged)
		trk.Close(0)
		s.Add(trk)
	}

	_, err := s.WriteTo(w)
	return err
}

// writeMeta adds tempo and time-signature meta events, in tick order,
// to the given track as deltas from 0.
func writeMeta(trk *smf.Track, tempos []TempoChange, sigs []TimeSignature) {
	type metaEvt struct {
		tick uint64
		msg  gomidi.Message
	}
	var evts []metaEvt
	for _, t := range tempos {
		evts = append(evts, metaEvt{t.Tick, smf.MetaTempo(t.BPM)})
	}
	for _, sg := range sigs {
		denomPow := denominatorPower(sg.Denominator)
		evts = append(evts, metaEvt{sg.Tick, smf.MetaTimeSig(sg.Numerator, denomPow, 24, 8)})
	}
	sort.SliceStable(evts, func(i, j int) bool { return evts[i].tick < evts[j].tick })
	prev := uint64(0)
	for _, e := range evts {
		trk.Add(uint32(e.tick-prev), e.msg)
		prev = e.tick
	}
}

// denominatorPower returns n such that 2^n == denom (e.g. 4 -> 2, 8 -> 3),
// per the MIDI file time-signature meta event's dd byte (spec §6).
func denominatorPower(denom uint8) uint8 {
	var n uint8
	for d := uint8(1); d < denom; d <<= 1 {
		n++
	}
	return n
}

// writeTrackEvents sorts a track's events by absolute tick (stable, so
// same-tick insertion order — i.e. sequence_no order — survives) and adds
// them as deltas.
func writeTrackEvents(trk *smf.Track, events []midi.MidiEvent) {
	sorted := make([]midi.MidiEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Tick < sorted[j].Tick })
	prev := uint64(0)
	for _, ev := range sorted {
		delta := ev.Tick - prev
		trk.Add(uint32(delta), toSMFMessage(ev))
		prev = ev.Tick
	}
}

// mergeForType0 flattens every track's events into one list, each
// channel already carrying the track's assigned channel number. The
// list is in track order; writeTrackEvents sorts it by absolute tick
// when it is written, per spec §6's "Type 0 merges all into one chunk
// sorted by delta time."
func mergeForType0(tracks []TrackEvents) []midi.MidiEvent {
	var out []midi.MidiEvent
	for _, t := range tracks {
		for _, ev := range t.Events {
			ev.Channel = t.Channel
			out = append(out, ev)
		}
	}
	return out
}

func toSMFMessage(ev midi.MidiEvent) gomidi.Message {
	return ev.Message()
}
