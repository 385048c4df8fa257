package generator

import (
	"math"
	"math/rand"

	"seq/internal/midi"
)

// Drone maintains V voices (1-8) that hold an in-scale pitch and, every
// changeRate ticks, relocate exactly one voice to a new pitch chosen by
// voice-leading: candidates are weighted by proximity to the old pitch
// (spec §4.4). Grounded on the teacher's sustained-pad idiom in
// midi/rhythm.go, generalized from a fixed chord-tone pad into a
// voice-leading random walk.
type Drone struct {
	Channel    uint8
	Voices     int     // 1-8
	ChangeRate int     // ticks between voice changes
	Sigma      float64 // decay constant for exp(-|Δ|/σ) weighting
	MaxLeap    int     // candidate window, semitones (default 7)
	Velocity   uint8

	rng *rand.Rand

	pitches  []int
	nextTick uint64
	started  bool
}

// NewDrone builds a Drone with spec-default parameters.
func NewDrone(channel uint8) *Drone {
	return &Drone{
		Channel:    channel,
		Voices:     4,
		ChangeRate: TicksPerBar,
		Sigma:      3.0,
		MaxLeap:    7,
		Velocity:   80,
		rng:        rand.New(rand.NewSource(1)),
	}
}

func (d *Drone) ParamNames() []string {
	return []string{"voices", "change_rate", "sigma", "max_leap", "velocity"}
}

func (d *Drone) SetParam(name string, value float64) {
	switch name {
	case "voices":
		v := int(value)
		if v < 1 {
			v = 1
		}
		if v > 8 {
			v = 8
		}
		d.Voices = v
	case "change_rate":
		if value > 0 {
			d.ChangeRate = int(value)
		}
	case "sigma":
		if value > 0 {
			d.Sigma = value
		}
	case "max_leap":
		if value > 0 {
			d.MaxLeap = int(value)
		}
	case "velocity":
		d.Velocity = clampVelocity(int(value))
	}
}

func (d *Drone) Reset() {
	d.pitches = nil
	d.nextTick = 0
	d.started = false
}

func (d *Drone) Generate(ctx Context) []midi.MidiEvent {
	var events []midi.MidiEvent

	if !d.started {
		d.started = true
		d.pitches = make([]int, d.Voices)
		root := ctx.Key.Tonic + 60
		for i := range d.pitches {
			d.pitches[i] = ctx.Key.Quantize(root + i*12/maxInt(d.Voices, 1))
			events = append(events, midi.NoteOn(ctx.NowTick, d.Channel, clampPitch(d.pitches[i]), d.Velocity, 0))
		}
		d.nextTick = ctx.NowTick + uint64(d.ChangeRate)
		return events
	}

	if len(d.pitches) != d.Voices {
		d.resizeVoices(ctx)
	}

	for d.nextTick <= ctx.NowTick {
		voiceIdx := d.rng.Intn(len(d.pitches))
		oldPitch := d.pitches[voiceIdx]
		newPitch := d.pickVoiceLedPitch(ctx, oldPitch)

		events = append(events, midi.NoteOff(d.nextTick, d.Channel, clampPitch(oldPitch)))
		events = append(events, midi.NoteOn(d.nextTick, d.Channel, clampPitch(newPitch), d.Velocity, 0))
		d.pitches[voiceIdx] = newPitch
		d.nextTick += uint64(d.ChangeRate)
	}
	return events
}

func (d *Drone) resizeVoices(ctx Context) {
	for len(d.pitches) < d.Voices {
		root := ctx.Key.Tonic + 60
		d.pitches = append(d.pitches, ctx.Key.Quantize(root))
	}
	if len(d.pitches) > d.Voices {
		d.pitches = d.pitches[:d.Voices]
	}
}

// pickVoiceLedPitch ranks in-scale candidates within ±MaxLeap of oldPitch
// by |Δ| and samples one with probability proportional to exp(-|Δ|/σ).
func (d *Drone) pickVoiceLedPitch(ctx Context, oldPitch int) int {
	type candidate struct {
		pitch  int
		weight float64
	}
	var candidates []candidate
	for delta := -d.MaxLeap; delta <= d.MaxLeap; delta++ {
		if delta == 0 {
			continue
		}
		p := oldPitch + delta
		if p < 0 || p > 127 {
			continue
		}
		if !ctx.Key.ContainsPitchClass(((p % 12) + 12) % 12) {
			continue
		}
		weight := math.Exp(-math.Abs(float64(delta)) / d.Sigma)
		candidates = append(candidates, candidate{p, weight})
	}
	if len(candidates) == 0 {
		return oldPitch
	}
	var total float64
	for _, c := range candidates {
		total += c.weight
	}
	r := d.rng.Float64() * total
	for _, c := range candidates {
		r -= c.weight
		if r <= 0 {
			return c.pitch
		}
	}
	return candidates[len(candidates)-1].pitch
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
