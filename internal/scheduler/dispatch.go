package scheduler

import (
	"time"

	"seq/internal/midi"
	"seq/internal/timing"
)

// DefaultPeriod is the dispatch loop's default tick period (spec §4.3).
const DefaultPeriod = time.Millisecond

// DefaultLookahead must be >= DefaultPeriod to absorb scheduling jitter.
const DefaultLookahead = 2 * time.Millisecond

// Command is a single-writer-thread command, the only way other
// goroutines mutate scheduler/queue state. It is applied on the
// dispatch goroutine, either as soon as Run receives it or at the top
// of the next dispatch tick, before that tick drains and sends events,
// per spec §5's concurrency model.
type Command func(q *Queue)

// Dispatcher runs the single-writer dispatch loop: convert wall time to
// tick, drain due events, convert each back to a precise wall timestamp,
// and hand it to the sink. It owns the Queue exclusively; all mutation
// from other goroutines must go through Commands.
type Dispatcher struct {
	queue     *Queue
	clock     *timing.Clock
	sink      midi.Sink
	period    time.Duration
	lookahead time.Duration

	commands chan Command
	stop     chan struct{}
	done     chan struct{}

	// OnDispatchError is invoked (if non-nil) on the dispatch goroutine
	// whenever sink.SendAt fails; it must not block or allocate heavily,
	// matching the diagnostic-channel discipline of spec §7.
	OnDispatchError func(error)
}

// NewDispatcher builds a Dispatcher with default period/lookahead.
func NewDispatcher(q *Queue, clock *timing.Clock, sink midi.Sink) *Dispatcher {
	return &Dispatcher{
		queue:     q,
		clock:     clock,
		sink:      sink,
		period:    DefaultPeriod,
		lookahead: DefaultLookahead,
		commands:  make(chan Command, 256),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// SetPeriod overrides the dispatch period; lookahead is kept at
// max(lookahead, period) to preserve the jitter-absorption invariant.
func (d *Dispatcher) SetPeriod(period time.Duration) {
	d.period = period
	if d.lookahead < period {
		d.lookahead = period
	}
}

// Submit enqueues a command to run on the dispatch goroutine. Safe to
// call from any goroutine; blocks only if the command buffer (256) is
// full, which under normal operation it never is.
func (d *Dispatcher) Submit(cmd Command) {
	d.commands <- cmd
}

// Run executes the dispatch loop until Stop is called. Intended to be
// run in its own goroutine: `go dispatcher.Run()`.
func (d *Dispatcher) Run() {
	defer close(d.done)
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case cmd := <-d.commands:
			cmd(d.queue)
		case now := <-ticker.C:
			d.tick(now)
		}
	}
}

func (d *Dispatcher) tick(now time.Time) {
	// Drain any commands queued since the last tick before computing
	// tick_now, so a clear_track/clear_all lands before this round's drain.
	drainCommands:
	for {
		select {
		case cmd := <-d.commands:
			cmd(d.queue)
		default:
			break drainCommands
		}
	}

	tickNow := d.clock.NowTick(now)
	lookaheadTicks := d.ticksForDuration(tickNow, d.lookahead)
	due := d.queue.DrainUntil(tickNow + lookaheadTicks)
	for _, ev := range due {
		wallTime := d.clock.TickToWallTime(ev.AbsoluteTick)
		if err := d.sink.SendAt(midiBytes(ev.Event), wallTime); err != nil {
			if d.OnDispatchError != nil {
				d.OnDispatchError(err)
			}
		}
	}
}

// ticksForDuration estimates how many ticks the given wall-clock
// duration spans at the tempo in effect at tickNow.
func (d *Dispatcher) ticksForDuration(tickNow uint64, dur time.Duration) uint64 {
	bpm := d.clock.CurrentTempo()
	if bpm <= 0 {
		return 1
	}
	microsPerTick := 60_000_000.0 / bpm / timing.PPQN
	if microsPerTick <= 0 {
		return 1
	}
	ticks := float64(dur.Microseconds()) / microsPerTick
	if ticks < 1 {
		return 1
	}
	return uint64(ticks)
}

func midiBytes(ev midi.MidiEvent) []byte {
	msg := ev.Message()
	return []byte(msg)
}

// SendRaw sends bytes immediately through the sink's short-latency path
// (spec §6's MidiSink.send), bypassing the scheduled queue entirely. Used
// for arrangement macro sends and other transport/clock housekeeping that
// has no meaningful tick to wait for.
func (d *Dispatcher) SendRaw(bytes []byte) error {
	return d.sink.Send(bytes)
}

// Stop halts the dispatch loop and waits for it to exit.
func (d *Dispatcher) Stop() {
	close(d.stop)
	<-d.done
}

// ScheduleNoteWithOff is a convenience used by the clip/track layer: it
// schedules the NoteOn immediately and, if duration > 0, also schedules
// the matching NoteOff at insertion time (not at dispatch), per spec
// §4.3's requirement that stopping a clip can find and cancel pending
// NoteOffs.
func ScheduleNoteWithOff(q *Queue, trackID int, ev midi.MidiEvent) {
	onSeq := q.NextSequence()
	q.Schedule(midi.ScheduledEvent{AbsoluteTick: ev.Tick, SequenceNo: onSeq, Event: ev, TrackID: trackID})
	if ev.Duration > 0 && ev.Kind == midi.KindNoteOn {
		offSeq := q.NextSequence()
		off := midi.NoteOff(ev.Tick+ev.Duration, ev.Channel, ev.Pitch)
		q.Schedule(midi.ScheduledEvent{AbsoluteTick: off.Tick, SequenceNo: offSeq, Event: off, TrackID: trackID})
	}
}
