package timing

import "time"

// ticksPerClockPulse is fixed by the MIDI spec: 24 clock pulses per
// quarter note, matching our own PPQN exactly, so one incoming 0xF8
// pulse advances the slave clock by exactly one tick.
const ticksPerClockPulse = 1

const (
	pllMaxAdjustPerBeat = 0.05 // spec §4.2: adjust at most 5% of tempo per beat
	slavePulsesPerBeat  = PPQN
)

// externalSlave locks the clock's tempo to an incoming stream of MIDI
// realtime clock pulses (0xF8), using a simple phase-locked loop that
// limits how much the estimated tempo can move per beat so a single
// jittery pulse can't cause an audible lurch (spec §4.2).
type externalSlave struct {
	active       bool
	lastPulse    time.Time
	pulseCount   int // pulses since last beat boundary
	beatDeadline time.Time
	estimatedBPM float64
}

// EnableExternalSlave switches the clock into external-clock-slave mode:
// tempo is now driven by IncomingClockPulse rather than SetTempo/RampTempo.
func (c *Clock) EnableExternalSlave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slave = &externalSlave{active: true, estimatedBPM: c.currentTempoLocked()}
}

// DisableExternalSlave returns the clock to internal-master mode.
func (c *Clock) DisableExternalSlave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slave = nil
}

// ExternalSlaveActive reports whether the clock is following an external
// clock source.
func (c *Clock) ExternalSlaveActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slave != nil && c.slave.active
}

// IncomingClockPulse feeds one 0xF8 pulse received at wall time `now`
// into the PLL. Every 24th pulse (one quarter note) it re-estimates
// tempo from the elapsed wall time and nudges the clock's tempo toward
// that estimate, clamped to a 5%-per-beat maximum adjustment.
func (c *Clock) IncomingClockPulse(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slave == nil || !c.slave.active {
		return
	}
	s := c.slave

	if !s.lastPulse.IsZero() {
		c.tick++
	}
	s.lastPulse = now
	s.pulseCount++

	if s.pulseCount < slavePulsesPerBeat {
		return
	}
	s.pulseCount = 0

	if s.beatDeadline.IsZero() {
		s.beatDeadline = now
		return
	}
	beatSeconds := now.Sub(s.beatDeadline).Seconds()
	s.beatDeadline = now
	if beatSeconds <= 0 {
		return
	}
	measuredBPM := clampTempo(60.0 / beatSeconds)

	maxDelta := s.estimatedBPM * pllMaxAdjustPerBeat
	delta := measuredBPM - s.estimatedBPM
	if delta > maxDelta {
		delta = maxDelta
	} else if delta < -maxDelta {
		delta = -maxDelta
	}
	s.estimatedBPM = clampTempo(s.estimatedBPM + delta)
	c.setTempoAtTickLocked(c.tick, s.estimatedBPM)
}

// IncomingStart handles an external 0xFA Start message: resets the slave
// PLL state and restarts transport at tick 0.
func (c *Clock) IncomingStart(now time.Time) {
	c.mu.Lock()
	if c.slave != nil {
		c.slave.pulseCount = 0
		c.slave.lastPulse = time.Time{}
		c.slave.beatDeadline = time.Time{}
	}
	c.mu.Unlock()
	c.Start(now)
}

// IncomingContinue handles an external 0xFB Continue message.
func (c *Clock) IncomingContinue(now time.Time) {
	c.Continue(now)
}

// IncomingStop handles an external 0xFC Stop message.
func (c *Clock) IncomingStop() {
	c.Stop()
}
