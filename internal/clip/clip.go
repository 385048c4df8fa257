// Package clip implements the clip state machine, loop modes, and the
// per-track event transform pipeline (transpose/velocity/swing/mute-solo)
// described in spec §4.5. The state-machine idiom (explicit enum state +
// tick(dt) advance) is grounded on the teacher's own playback-position
// state machine in player/realtime.go (RealtimePlayer's
// playing/paused/seek bookkeeping), generalized from a single linear
// transport position into per-clip loop/ping-pong/one-shot semantics.
package clip

import (
	"seq/internal/midi"
	"seq/internal/trigger"
)

// State is a clip's position in its lifecycle (spec §4.5).
type State int

const (
	Stopped State = iota
	Queued
	Playing
	Finishing
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Queued:
		return "queued"
	case Playing:
		return "playing"
	case Finishing:
		return "finishing"
	default:
		return "unknown"
	}
}

// Mode selects how a clip's position wraps at its loop boundaries.
type Mode int

const (
	OneShot Mode = iota
	Loop
	LoopCount
	PingPong
)

// ClipType tags whether a clip plays a static note list, a generator, or
// both overlaid (spec §3).
type ClipType int

const (
	Sequenced ClipType = iota
	Generated
	Hybrid
)

// Note is one entry of a Sequenced/Hybrid clip's static note list,
// stamped relative to the clip's own position (not absolute tick).
type Note struct {
	PositionTick uint64
	Channel      uint8
	Pitch        uint8
	Velocity     uint8
	DurationTick uint64
}

// Clip is a single launchable unit: a static note list, a generator
// reference, or both (spec §3).
type Clip struct {
	ID         string
	Type       ClipType
	Notes      []Note // for Sequenced/Hybrid
	GeneratorID string // for Generated/Hybrid

	Mode         Mode
	LoopCountN   int // used when Mode == LoopCount
	LoopStart    uint64
	LoopEnd      uint64
	LengthTicks  uint64

	Follow trigger.FollowSpec // what to trigger next when this clip ends naturally (spec §4.6)

	State State

	position      uint64 // current position within [0, LengthTicks)
	direction     int    // 1 or -1, used by PingPong
	loopsRemaining int
	started       bool
}

// NewClip validates the loop invariant 0 <= loop_start < loop_end <= length
// and returns a Stopped clip, or an error if the invariant is violated.
func NewClip(id string, length, loopStart, loopEnd uint64, mode Mode) (*Clip, error) {
	if !(loopStart < loopEnd && loopEnd <= length) {
		return nil, &InvariantError{Msg: "loop_start < loop_end <= length violated"}
	}
	return &Clip{
		ID:          id,
		Mode:        mode,
		LoopStart:   loopStart,
		LoopEnd:     loopEnd,
		LengthTicks: length,
		State:       Stopped,
		direction:   1,
	}, nil
}

// InvariantError reports a violated clip invariant.
type InvariantError struct{ Msg string }

func (e *InvariantError) Error() string { return e.Msg }

// Trigger moves a Stopped clip to Queued; the trigger queue is
// responsible for later promoting it to Playing at a quantize boundary.
func (c *Clip) Trigger() {
	if c.State == Stopped {
		c.State = Queued
	}
}

// Launch promotes a Queued clip to Playing at a quantize boundary,
// resetting its position.
func (c *Clip) Launch() {
	c.State = Playing
	c.position = c.LoopStart
	if c.Mode != Loop && c.Mode != PingPong {
		c.position = 0
	}
	c.direction = 1
	if c.Mode == LoopCount {
		c.loopsRemaining = c.LoopCountN
	}
	c.started = true
}

// RequestStop transitions Playing to Finishing (finish out the current
// loop pass), or Queued/Stopped stays Stopped.
func (c *Clip) RequestStop() {
	if c.State == Playing {
		c.State = Finishing
	} else if c.State == Queued {
		c.State = Stopped
	}
}

// Tick advances the clip's position by dt ticks, applying the loop mode,
// and returns any Note events whose scheduled position was crossed
// during this advance (so callers can schedule them), plus whether the
// clip naturally ended (transitioned to Stopped).
func (c *Clip) Tick(dt uint64) (due []Note, ended bool) {
	if c.State != Playing && c.State != Finishing {
		return nil, false
	}
	if dt == 0 {
		return nil, false
	}

	start := c.position
	remaining := dt
	for remaining > 0 {
		dir := c.direction
		step := c.stepOnce(&remaining)
		due = append(due, c.notesBetween(start, step, dir)...)
		start = c.position
		if c.State == Stopped {
			return due, true
		}
	}
	return due, false
}

// stepOnce advances the clip by as much of *remaining as fits before the
// next boundary, consuming that amount from *remaining, and returns the
// new position after the step (for notesBetween bookkeeping).
func (c *Clip) stepOnce(remaining *uint64) uint64 {
	switch c.Mode {
	case OneShot:
		end := c.LengthTicks
		span := end - c.position
		if *remaining >= span {
			*remaining -= span
			c.position = end
			c.State = Stopped
			return c.position
		}
		c.position += *remaining
		*remaining = 0
		return c.position

	case Loop:
		span := c.LoopEnd - c.position
		if *remaining >= span {
			*remaining -= span
			c.position = c.LoopStart
			if c.State == Finishing {
				c.State = Stopped
			}
			return c.LoopEnd
		}
		c.position += *remaining
		*remaining = 0
		return c.position

	case LoopCount:
		span := c.LoopEnd - c.position
		if *remaining >= span {
			*remaining -= span
			c.loopsRemaining--
			if c.loopsRemaining <= 0 || c.State == Finishing {
				c.State = Stopped
				return c.LoopEnd
			}
			c.position = c.LoopStart
			return c.LoopEnd
		}
		c.position += *remaining
		*remaining = 0
		return c.position

	case PingPong:
		var boundary uint64
		if c.direction > 0 {
			boundary = c.LoopEnd
		} else {
			boundary = c.LoopStart
		}
		var span uint64
		if c.direction > 0 {
			span = boundary - c.position
		} else {
			span = c.position - boundary
		}
		if *remaining >= span {
			*remaining -= span
			c.direction = -c.direction
			if c.State == Finishing {
				c.State = Stopped
			}
			c.position = boundary
			return boundary
		}
		if c.direction > 0 {
			c.position += *remaining
		} else {
			c.position -= *remaining
		}
		*remaining = 0
		return c.position
	}
	return c.position
}

// notesBetween selects static-list notes whose PositionTick falls in the
// half-open range this step advanced through: [from, to) moving forward,
// (to, from] moving backward, where dir is the direction the step was taken
// in. PingPong's reversed pass also skips loop_end, so it excludes both
// endpoints per spec §3 to avoid doubled attacks; callers relying on
// GeneratorID playback instead consult the generator directly.
func (c *Clip) notesBetween(from, to uint64, dir int) []Note {
	if c.Type == Generated {
		return nil
	}
	var out []Note
	for _, n := range c.Notes {
		p := n.PositionTick
		if c.Mode == PingPong && dir < 0 {
			if p <= to || p > from || p == c.LoopEnd {
				continue
			}
		} else if p < from || p >= to {
			continue
		}
		out = append(out, n)
	}
	return out
}

// ActiveNoteOffs cancels all currently-sounding notes from this clip by
// synthesizing explicit NoteOff events, used when a clip transitions to
// Stopped/Finishing (spec §4.5, §5).
func (c *Clip) ActiveNoteOffs(channel uint8, tick uint64, soundingPitches []uint8) []midi.MidiEvent {
	out := make([]midi.MidiEvent, 0, len(soundingPitches))
	for _, p := range soundingPitches {
		out = append(out, midi.NoteOff(tick, channel, p))
	}
	return out
}
