// Package timing owns the authoritative tempo and implements the
// tick<->wall-clock conversion every other subsystem measures time
// through (spec §2, §4.2). It is the one piece of effectively global
// state in the system (spec §9); callers share a single *Clock guarded
// by an internal mutex, the same discipline the teacher's RealtimePlayer
// uses for its own playback-position state (player/realtime.go).
package timing

import (
	"sync"
	"time"
)

const (
	// PPQN is the timing resolution: pulses (ticks) per quarter note.
	PPQN = 24
	// TicksPerBar is one bar in 4/4 time.
	TicksPerBar = PPQN * 4

	minTempo = 20.0
	maxTempo = 300.0
)

// tempoSegment is one piecewise-linear stretch of the tempo map: a
// constant-tempo plateau starting at StartTick, or (when EndTick > 0) a
// linear ramp from TempoStart to TempoEnd spanning [StartTick, EndTick).
type tempoSegment struct {
	StartTick  uint64
	EndTick    uint64 // 0 means "open-ended", i.e. the current/last segment
	TempoStart float64
	TempoEnd   float64
}

func (s tempoSegment) tempoAtTick(tick uint64) float64 {
	if s.EndTick == 0 || s.EndTick <= s.StartTick {
		return s.TempoStart
	}
	span := float64(s.EndTick - s.StartTick)
	frac := float64(tick-s.StartTick) / span
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return s.TempoStart + (s.TempoEnd-s.TempoStart)*frac
}

// microsUpTo returns the microseconds elapsed from StartTick up to
// min(tick, segment end), for the constant or linear-ramp case.
func (s tempoSegment) microsUpTo(tick uint64) float64 {
	end := tick
	if s.EndTick != 0 && end > s.EndTick {
		end = s.EndTick
	}
	if end <= s.StartTick {
		return 0
	}
	ticks := float64(end - s.StartTick)
	microsPerTick := func(bpm float64) float64 {
		return 60_000_000.0 / bpm / PPQN
	}
	if s.EndTick == 0 || s.TempoStart == s.TempoEnd {
		return ticks * microsPerTick(s.TempoStart)
	}
	// Integrate the linear tempo ramp: average of start/end µs-per-tick
	// over the segment is exact since tempo (and hence µs-per-tick's
	// reciprocal-ish shape) is discretized into ≤64 sub-segments by
	// RampTempo, so each individual segment here is itself constant-rate.
	startRate := microsPerTick(s.tempoAtTick(s.StartTick))
	endRate := microsPerTick(s.tempoAtTick(end))
	return ticks * (startRate + endRate) / 2
}

// clampTempo clamps a BPM value to [20, 300] per spec §3.
func clampTempo(bpm float64) float64 {
	if bpm < minTempo {
		return minTempo
	}
	if bpm > maxTempo {
		return maxTempo
	}
	return bpm
}

// Clock is the authoritative tempo/tick owner. All tick<->time
// conversions, tempo changes, and transport state flow through it.
type Clock struct {
	mu sync.Mutex

	segments []tempoSegment // ordered by StartTick, segments[len-1] is open-ended
	epoch    time.Time      // wall time corresponding to tick 0 of the current transport run

	transportRunning bool
	tick             uint64 // last tick computed by Advance/NowTick, for monotonic bookkeeping under pause

	tap *tapTempo

	slave *externalSlave
}

// NewClock creates a Clock at the given starting tempo (BPM), stopped.
func NewClock(startTempoBPM float64) *Clock {
	bpm := clampTempo(startTempoBPM)
	return &Clock{
		segments: []tempoSegment{{StartTick: 0, TempoStart: bpm, TempoEnd: bpm}},
		tap:      newTapTempo(),
	}
}

// Start begins transport at tick 0 from wall time now.
func (c *Clock) Start(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transportRunning = true
	c.epoch = now
	c.tick = 0
	c.segments = []tempoSegment{{StartTick: 0, TempoStart: c.currentTempoLocked(), TempoEnd: c.currentTempoLocked()}}
}

// Continue resumes transport without resetting the tick counter (MIDI
// 0xFB semantics, as opposed to Start's 0xFA reset-to-zero).
func (c *Clock) Continue(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transportRunning {
		return
	}
	c.transportRunning = true
	// Re-anchor epoch so NowTick continues from where it left off.
	elapsedMicros := 0.0
	seg := c.segments[len(c.segments)-1]
	elapsedMicros = seg.microsUpTo(c.tick)
	for i := 0; i < len(c.segments)-1; i++ {
		elapsedMicros += c.segments[i].microsUpTo(c.segments[i].EndTick)
	}
	c.epoch = now.Add(-time.Duration(elapsedMicros * float64(time.Microsecond)))
}

// Stop halts transport; ticks reset to 0 on the next Start (not Continue),
// per spec §3: "Ticks are unsigned, monotonic, and reset on transport
// stop (not pause)".
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transportRunning = false
}

// Running reports whether transport is active.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transportRunning
}

func (c *Clock) currentTempoLocked() float64 {
	last := c.segments[len(c.segments)-1]
	return last.TempoStart
}

// CurrentTempo returns the tempo in effect right now.
func (c *Clock) CurrentTempo() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTempoLocked()
}

// NowTick returns the current playback tick, stable under tempo change.
func (c *Clock) NowTick(now time.Time) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.transportRunning {
		return c.tick
	}
	elapsedMicros := float64(now.Sub(c.epoch)) / float64(time.Microsecond)
	tick := c.tickForMicrosLocked(elapsedMicros)
	c.tick = tick
	return tick
}

// tickForMicrosLocked inverts the piecewise-linear tempo map to find the
// tick at which elapsedMicros microseconds have passed since epoch.
func (c *Clock) tickForMicrosLocked(elapsedMicros float64) uint64 {
	remaining := elapsedMicros
	var tick uint64
	for i, seg := range c.segments {
		segEnd := seg.EndTick
		isLast := i == len(c.segments)-1
		if isLast {
			// Open-ended: consume all remaining time at this segment's rate.
			bpm := seg.TempoStart
			if seg.TempoStart != seg.TempoEnd && segEnd != 0 {
				bpm = seg.tempoAtTick(segEnd)
			}
			microsPerTick := 60_000_000.0 / bpm / PPQN
			if microsPerTick <= 0 {
				return tick
			}
			tick = seg.StartTick + uint64(remaining/microsPerTick)
			return tick
		}
		segMicros := seg.microsUpTo(segEnd)
		if remaining <= segMicros {
			// Land within this segment.
			return tickWithinSegment(seg, remaining)
		}
		remaining -= segMicros
		tick = segEnd
	}
	return tick
}

func tickWithinSegment(seg tempoSegment, micros float64) uint64 {
	if seg.EndTick == 0 || seg.TempoStart == seg.TempoEnd {
		microsPerTick := 60_000_000.0 / seg.TempoStart / PPQN
		if microsPerTick <= 0 {
			return seg.StartTick
		}
		return seg.StartTick + uint64(micros/microsPerTick)
	}
	// Linear search within the (small, ≤64-subsegment) ramp segment is
	// unnecessary here because RampTempo already splits ramps into
	// sub-segments with constant endpoints; fall back to the average-rate
	// approximation for any remaining non-subdivided ramp segment.
	span := float64(seg.EndTick - seg.StartTick)
	startRate := 60_000_000.0 / seg.TempoStart / PPQN
	endRate := 60_000_000.0 / seg.TempoEnd / PPQN
	avgRate := (startRate + endRate) / 2
	if avgRate <= 0 {
		return seg.StartTick
	}
	ticks := micros / avgRate
	if ticks > span {
		ticks = span
	}
	return seg.StartTick + uint64(ticks)
}

// TickToMicros converts an absolute tick to elapsed microseconds from
// transport epoch (tick 0), integrating over the piecewise-linear tempo
// map so that a tempo change scheduled at tick T never retroactively
// shifts events at ticks < T (spec §4.2).
func (c *Clock) TickToMicros(tick uint64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickToMicrosLocked(tick)
}

func (c *Clock) tickToMicrosLocked(tick uint64) float64 {
	var total float64
	for i, seg := range c.segments {
		isLast := i == len(c.segments)-1
		segEnd := seg.EndTick
		if isLast || segEnd == 0 || tick < segEnd {
			if tick <= seg.StartTick {
				return total
			}
			bounded := seg
			if isLast {
				bounded.EndTick = 0
			}
			return total + bounded.microsUpTo(tick)
		}
		total += seg.microsUpTo(segEnd)
	}
	return total
}

// TickToWallTime converts an absolute tick to the wall-clock instant it
// falls at, given the current transport epoch.
func (c *Clock) TickToWallTime(tick uint64) time.Time {
	c.mu.Lock()
	epoch := c.epoch
	micros := c.tickToMicrosLocked(tick)
	c.mu.Unlock()
	return epoch.Add(time.Duration(micros * float64(time.Microsecond)))
}

// SetTempo records a tempo change, clamped to [20, 300], at the tick that
// wall time now maps to (the last computed tick while transport is
// stopped). It closes out the open-ended segment at that tick and opens
// a new one at the new tempo.
func (c *Clock) SetTempo(now time.Time, bpm float64) {
	bpm = clampTempo(bpm)
	c.mu.Lock()
	defer c.mu.Unlock()
	tick := c.tick
	if c.transportRunning {
		elapsedMicros := float64(now.Sub(c.epoch)) / float64(time.Microsecond)
		tick = c.tickForMicrosLocked(elapsedMicros)
	}
	c.setTempoAtTickLocked(tick, bpm)
}

// SetTempoAtTick records a tempo change at an already-known tick (song
// sections, part/scene macros), skipping the wall-clock round trip SetTempo
// needs when only "now" is available.
func (c *Clock) SetTempoAtTick(tick uint64, bpm float64) {
	bpm = clampTempo(bpm)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setTempoAtTickLocked(tick, bpm)
}

func (c *Clock) setTempoAtTickLocked(tick uint64, bpm float64) {
	last := &c.segments[len(c.segments)-1]
	if last.EndTick == 0 && tick > last.StartTick {
		last.EndTick = tick
		last.TempoEnd = last.tempoAtTick(tick)
	}
	if tick == last.StartTick {
		// Tempo change at the exact start of the still-open segment:
		// just overwrite it rather than inserting a zero-length one.
		last.TempoStart = bpm
		last.TempoEnd = bpm
		last.EndTick = 0
		return
	}
	c.segments = append(c.segments, tempoSegment{StartTick: tick, TempoStart: bpm, TempoEnd: bpm})
}

// RampTempo schedules a tempo ramp from `from` to `to` BPM over
// durationTicks, starting at startTick, discretized into at most 64
// linear sub-segments per spec §4.2.
func (c *Clock) RampTempo(startTick uint64, from, to float64, durationTicks uint64) {
	from = clampTempo(from)
	to = clampTempo(to)
	if durationTicks == 0 {
		c.mu.Lock()
		c.setTempoAtTickLocked(startTick, to)
		c.mu.Unlock()
		return
	}
	const maxSubsegments = 64
	n := uint64(maxSubsegments)
	if durationTicks < n {
		n = durationTicks
	}
	if n == 0 {
		n = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := uint64(0); i < n; i++ {
		segStart := startTick + (durationTicks*i)/n
		frac0 := float64(i) / float64(n)
		tempoAt0 := from + (to-from)*frac0
		c.setTempoAtTickLocked(segStart, tempoAt0)
	}
	c.setTempoAtTickLocked(startTick+durationTicks, to)
}
