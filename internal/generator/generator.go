// Package generator implements the five live-performance engines (spec
// §4.4): Drone, Arpeggio, Chord, Melody, and Drum. Each produces a lazy
// stream of MidiEvent stamped in absolute musical ticks from a shared
// Context. The random-process idiom (math/rand-driven note choice,
// weighted tables, density/probability knobs) is grounded directly on
// the teacher's own generators (midi/melody.go, midi/drums.go,
// midi/rhythm.go), which reach for math/rand rather than any
// third-party PRNG or sampling library.
package generator

import (
	"seq/internal/midi"
	"seq/internal/theory"
)

// Context carries the information a generator needs to produce its next
// batch of events (spec §4.4).
type Context struct {
	NowTick     uint64
	Key         *theory.Key
	TempoBPM    float64
	BarsElapsed int
	PPQN        int
}

// Generator is the common contract every engine satisfies.
type Generator interface {
	// Generate advances internal state and returns events stamped with
	// absolute ticks >= ctx.NowTick.
	Generate(ctx Context) []midi.MidiEvent
	// SetParam assigns a named numeric parameter. Unknown names are
	// silently ignored; generators must never panic on an unknown name.
	SetParam(name string, value float64)
	// Reset clears all internal state (voice positions, Markov state,
	// motif buffers, pattern phase) back to a fresh start.
	Reset()
	// ParamNames lists the parameters this generator advertises.
	ParamNames() []string
}

// TicksPerBar matches the timing core's 24 PPQN / 4 beats-per-bar default.
const TicksPerBar = 96

func clampPitch(p int) uint8 {
	if p < 0 {
		return 0
	}
	if p > 127 {
		return 127
	}
	return uint8(p)
}

func clampVelocity(v int) uint8 {
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
