package generator

import (
	"math/rand"

	"seq/internal/euclid"
	"seq/internal/midi"
)

// ArpPattern selects the note-ordering strategy for Arpeggio (spec §4.4).
type ArpPattern int

const (
	ArpUp ArpPattern = iota
	ArpDown
	ArpUpDown
	ArpDownUp
	ArpRandom
	ArpOrder
)

// Arpeggio steps through the current chord tones across an octave range
// in one of six patterns, with optional gate/probability and an
// Euclidean firing mask (spec §4.4). The pulse-mask idiom reuses
// internal/euclid, itself grounded on the teacher's Bjorklund
// implementation in midi/drums.go.
type Arpeggio struct {
	Channel     uint8
	ChordTones  []int // current chord tones, pitch classes or absolute pitches; caller sets via SetChordTones
	OctaveRange int   // number of octaves to span, default 1
	Pattern     ArpPattern
	Rate        int     // ticks per step
	Gate        float64 // 0..1, fraction of Rate the note sustains
	Probability float64 // 0..1, chance a given step fires
	Velocity    uint8

	UseEuclid  bool
	EuclidK    int
	EuclidN    int
	EuclidRot  int

	rng *rand.Rand

	sequence  []int // expanded C x octave_range in pattern order
	stepIdx   int
	direction int // 1 or -1, for tracking UpDown/DownUp internal phase
	lastPitch int
	hasLast   bool
	nextTick  uint64
	started   bool
}

// NewArpeggio builds an Arpeggio with spec-default parameters.
func NewArpeggio(channel uint8) *Arpeggio {
	return &Arpeggio{
		Channel:     channel,
		OctaveRange: 1,
		Pattern:     ArpUp,
		Rate:        TicksPerBar / 8,
		Gate:        0.8,
		Probability: 1.0,
		Velocity:    90,
		EuclidN:     8,
		EuclidK:     8,
		rng:         rand.New(rand.NewSource(2)),
	}
}

// SetChordTones updates the active chord tones the arpeggiator steps
// through, e.g. from the Chord generator or a static voicing.
func (a *Arpeggio) SetChordTones(tones []int) {
	a.ChordTones = tones
	a.sequence = nil
}

func (a *Arpeggio) ParamNames() []string {
	return []string{"octave_range", "rate", "gate", "probability", "velocity", "euclid_k", "euclid_n", "euclid_rotation", "use_euclid", "pattern"}
}

func (a *Arpeggio) SetParam(name string, value float64) {
	switch name {
	case "octave_range":
		if value > 0 {
			a.OctaveRange = int(value)
			a.sequence = nil
		}
	case "rate":
		if value > 0 {
			a.Rate = int(value)
		}
	case "gate":
		if value >= 0 && value <= 1 {
			a.Gate = value
		}
	case "probability":
		if value >= 0 && value <= 1 {
			a.Probability = value
		}
	case "velocity":
		a.Velocity = clampVelocity(int(value))
	case "euclid_k":
		a.EuclidK = int(value)
	case "euclid_n":
		a.EuclidN = int(value)
	case "euclid_rotation":
		a.EuclidRot = int(value)
	case "use_euclid":
		a.UseEuclid = value != 0
	case "pattern":
		a.Pattern = ArpPattern(int(value))
		a.sequence = nil
	}
}

func (a *Arpeggio) Reset() {
	a.sequence = nil
	a.stepIdx = 0
	a.direction = 1
	a.hasLast = false
	a.nextTick = 0
	a.started = false
}

func (a *Arpeggio) buildSequence() {
	if len(a.ChordTones) == 0 {
		a.sequence = nil
		return
	}
	expanded := make([]int, 0, len(a.ChordTones)*a.OctaveRange)
	for oct := 0; oct < maxInt(a.OctaveRange, 1); oct++ {
		for _, t := range a.ChordTones {
			expanded = append(expanded, t+oct*12)
		}
	}
	switch a.Pattern {
	case ArpDown:
		reverse(expanded)
		a.sequence = expanded
	case ArpUpDown:
		down := append([]int(nil), expanded...)
		reverse(down)
		if len(down) > 2 {
			down = down[1 : len(down)-1]
		} else {
			down = nil
		}
		a.sequence = append(append([]int(nil), expanded...), down...)
	case ArpDownUp:
		up := append([]int(nil), expanded...)
		rev := append([]int(nil), expanded...)
		reverse(rev)
		if len(up) > 2 {
			up = up[1 : len(up)-1]
		} else {
			up = nil
		}
		a.sequence = append(rev, up...)
	default: // ArpUp, ArpRandom, ArpOrder all walk the same expanded list
		a.sequence = expanded
	}
}

func reverse(xs []int) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}

func (a *Arpeggio) nextStepPitch() (int, bool) {
	if len(a.sequence) == 0 {
		return 0, false
	}
	if a.Pattern == ArpRandom {
		for tries := 0; tries < 8; tries++ {
			cand := a.sequence[a.rng.Intn(len(a.sequence))]
			if !a.hasLast || cand != a.lastPitch || len(a.sequence) == 1 {
				a.lastPitch = cand
				a.hasLast = true
				return cand, true
			}
		}
		return a.sequence[0], true
	}
	p := a.sequence[a.stepIdx%len(a.sequence)]
	a.stepIdx++
	return p, true
}

// Generate produces events for every step up to one Rate past
// ctx.NowTick, so the next step is already scheduled when it comes due.
func (a *Arpeggio) Generate(ctx Context) []midi.MidiEvent {
	if a.sequence == nil {
		a.buildSequence()
	}
	if len(a.sequence) == 0 {
		return nil
	}
	var mask []bool
	if a.UseEuclid && a.EuclidN > 0 {
		mask = euclid.Pattern(a.EuclidK, a.EuclidN, a.EuclidRot)
	}

	if !a.started {
		a.nextTick = ctx.NowTick
		a.started = true
	}

	var events []midi.MidiEvent
	stepNo := 0
	for a.nextTick <= ctx.NowTick+uint64(a.Rate) {
		fire := true
		if mask != nil {
			fire = mask[stepNo%len(mask)]
		}
		if fire && a.rng.Float64() <= a.Probability {
			pitch, ok := a.nextStepPitch()
			if ok {
				duration := uint64(float64(a.Rate) * a.Gate)
				events = append(events, midi.NoteOn(a.nextTick, a.Channel, clampPitch(pitch), a.Velocity, duration))
			}
		} else if fire {
			// step consumed by pattern advance even when probability skips it
			a.nextStepPitch()
		}
		a.nextTick += uint64(a.Rate)
		stepNo++
		if a.Rate <= 0 {
			break
		}
	}
	return events
}
