// Package iodevice backs internal/midi's Sink/Source interfaces with
// gitlab.com/gomidi/midi/v2's driver layer, the same library and
// port-enumeration idiom the teacher's TUI sequencer
// (other_examples/icco-genidi) and this repo's own teacher use for MIDI
// generation (midi/generator.go). The platform driver itself
// (rtmididrv or any other drivers.* backend) is registered by the
// importing main package via a blank import, per spec §1's "the
// platform MIDI driver" being an external collaborator — this package
// only talks to whatever driver is already registered.
package iodevice

import (
	"fmt"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"seq/internal/midi"
)

// RealtimeSink sends MIDI bytes to an open gomidi output port. SendAt
// sleeps until wallTimestamp before sending — gomidi itself has no
// timestamped-send primitive, so the precision send timing lives in the
// scheduler's dispatch loop (internal/scheduler), which calls SendAt
// close enough to the deadline that a short time.Sleep here is within
// the jitter budget (spec §4.3).
type RealtimeSink struct {
	out  gomidi.Out
	send func(msg gomidi.Message) error
}

// OpenSink opens the output port at portIndex (as reported by
// ListDestinations) and returns a Sink bound to it.
func OpenSink(portIndex int) (*RealtimeSink, error) {
	outs := gomidi.GetOutPorts()
	if portIndex < 0 || portIndex >= len(outs) {
		return nil, fmt.Errorf("iodevice: no output port at index %d", portIndex)
	}
	out := outs[portIndex]
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("iodevice: opening output %q: %w", out.String(), err)
	}
	return &RealtimeSink{out: out, send: send}, nil
}

// Send implements midi.Sink's immediate-send path.
func (s *RealtimeSink) Send(bytes []byte) error {
	return s.send(gomidi.Message(bytes))
}

// SendAt implements midi.Sink's timestamped-send path. The dispatch loop
// calls this close to wallTimestamp already (spec §4.3's lookahead
// buffer); any remaining gap is absorbed here with a short sleep rather
// than handed to a lower-level OS MIDI queue, since gomidi's port write
// is itself synchronous.
func (s *RealtimeSink) SendAt(bytes []byte, wallTimestamp time.Time) error {
	if d := time.Until(wallTimestamp); d > 0 {
		time.Sleep(d)
	}
	return s.send(gomidi.Message(bytes))
}

// ListDestinations enumerates available MIDI output ports.
func (s *RealtimeSink) ListDestinations() ([]midi.Destination, error) {
	return ListOutputs(), nil
}

// Close releases the underlying output port.
func (s *RealtimeSink) Close() error {
	if s.out == nil {
		return nil
	}
	return s.out.Close()
}

// ListOutputs enumerates available MIDI output ports without opening any
// of them, for --list-midi.
func ListOutputs() []midi.Destination {
	outs := gomidi.GetOutPorts()
	dest := make([]midi.Destination, 0, len(outs))
	for i, out := range outs {
		dest = append(dest, midi.Destination{Index: i, Name: out.String()})
	}
	return dest
}

// ListInputs enumerates available MIDI input ports, for --list-sources.
func ListInputs() []midi.Destination {
	ins := gomidi.GetInPorts()
	dest := make([]midi.Destination, 0, len(ins))
	for i, in := range ins {
		dest = append(dest, midi.Destination{Index: i, Name: in.String()})
	}
	return dest
}

// RealtimeSource polls an open gomidi input port, buffering messages
// between Poll calls via ListenTo's callback (gomidi has no blocking
// "read next message" call of its own).
type RealtimeSource struct {
	in     gomidi.In
	stop   func()
	buffer chan midi.SourceMessage
}

// OpenSource opens the input port at portIndex and starts listening.
func OpenSource(portIndex int) (*RealtimeSource, error) {
	ins := gomidi.GetInPorts()
	if portIndex < 0 || portIndex >= len(ins) {
		return nil, fmt.Errorf("iodevice: no input port at index %d", portIndex)
	}
	in := ins[portIndex]
	s := &RealtimeSource{in: in, buffer: make(chan midi.SourceMessage, 1024)}
	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, _ int32) {
		if parsed, ok := midi.ParseMessage([]byte(msg), time.Now()); ok {
			select {
			case s.buffer <- parsed:
			default:
				// buffer full; drop rather than block the driver callback.
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("iodevice: listening on input %q: %w", in.String(), err)
	}
	s.stop = stop
	return s, nil
}

// Poll returns every message received since the last call, without blocking.
func (s *RealtimeSource) Poll() ([]midi.SourceMessage, error) {
	var out []midi.SourceMessage
	for {
		select {
		case m := <-s.buffer:
			out = append(out, m)
		default:
			return out, nil
		}
	}
}

// Close stops listening on the input port.
func (s *RealtimeSource) Close() error {
	if s.stop != nil {
		s.stop()
	}
	if s.in != nil {
		return s.in.Close()
	}
	return nil
}
