package timing

import (
	"time"

	"seq/internal/midi"
)

// ClockEmitter drives a midi.Sink with MIDI realtime transport bytes
// (0xF8 clock / 0xFA start / 0xFB continue / 0xFC stop) so downstream
// gear can slave to this clock as master, per spec §4.2. Pulse emission
// is driven externally (by the scheduler's dispatch loop) via Tick;
// ClockEmitter itself just tracks phase and decides when a pulse is due.
type ClockEmitter struct {
	sink         midi.Sink
	clock        *Clock
	lastPulseAt  time.Time
	microsPerClk float64
}

// NewClockEmitter builds an emitter bound to the given clock and sink.
func NewClockEmitter(clock *Clock, sink midi.Sink) *ClockEmitter {
	return &ClockEmitter{sink: sink, clock: clock}
}

// EmitStart sends 0xFA and anchors pulse phase to now.
func (e *ClockEmitter) EmitStart(now time.Time) error {
	e.lastPulseAt = now
	return e.sink.Send(midi.TransportBytes(midi.SrcStart))
}

// EmitContinue sends 0xFB.
func (e *ClockEmitter) EmitContinue(now time.Time) error {
	e.lastPulseAt = now
	return e.sink.Send(midi.TransportBytes(midi.SrcContinue))
}

// EmitStop sends 0xFC.
func (e *ClockEmitter) EmitStop() error {
	return e.sink.Send(midi.TransportBytes(midi.SrcStop))
}

// MaybeEmitPulse sends a 0xF8 clock pulse if at least one 24th-of-a-beat
// has elapsed since the last pulse, given the clock's current tempo. It
// is cheap to call every dispatch tick; it no-ops most of the time.
func (e *ClockEmitter) MaybeEmitPulse(now time.Time) error {
	bpm := e.clock.CurrentTempo()
	if bpm <= 0 {
		return nil
	}
	microsPerPulse := 60_000_000.0 / bpm / PPQN
	if e.lastPulseAt.IsZero() {
		e.lastPulseAt = now
		return e.sink.Send(midi.TransportBytes(midi.SrcClock))
	}
	elapsed := float64(now.Sub(e.lastPulseAt)) / float64(time.Microsecond)
	if elapsed < microsPerPulse {
		return nil
	}
	e.lastPulseAt = now
	return e.sink.Send(midi.TransportBytes(midi.SrcClock))
}
