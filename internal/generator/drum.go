package generator

import (
	"math/rand"

	"seq/internal/euclid"
	"seq/internal/midi"
)

// GM drum map constants, matching the teacher's own table in
// midi/drums.go.
const (
	GMKickDrum    = 36
	GMSnareDrum   = 38
	GMClosedHihat = 42
	GMOpenHihat   = 46
	GMRideCymbal  = 51
	GMCrashCymbal = 49
	GMLowTom      = 45
	GMHighTom     = 50
	GMClap        = 39
)

// DrumVoice is one Euclidean-patterned percussion part within a Drum
// generator.
type DrumVoice struct {
	Name            string
	Note            uint8
	Steps           int
	Pulses          int
	Rotation        int
	Velocity        uint8
	GhostProbability float64
	GhostVelocity   uint8
}

// StyleTemplate is a pre-filled (steps, pulses, rotation) triple per
// voice name, the generalization of the teacher's twelve named
// beat-style functions (rockBeat, shuffleBeat, trapBeat, ...) in
// midi/drums.go into data instead of one function per style.
type StyleTemplate map[string]struct {
	Steps, Pulses, Rotation int
}

var styleTemplates = map[string]StyleTemplate{
	"rock": {
		"kick":  {16, 2, 0},
		"snare": {16, 2, 4},
		"hats":  {16, 8, 0},
	},
	"four_on_floor": {
		"kick":  {16, 4, 0},
		"snare": {16, 2, 4},
		"hats":  {16, 16, 0},
	},
	"trap": {
		"kick":  {16, 3, 0},
		"snare": {16, 2, 4},
		"hats":  {32, 20, 0},
	},
	"reggae": {
		"kick":  {16, 1, 6},
		"snare": {16, 1, 6},
		"hats":  {16, 8, 0},
	},
	"shuffle": {
		"kick":  {12, 2, 0},
		"snare": {12, 2, 3},
		"hats":  {12, 8, 0},
	},
}

// Drum produces per-voice Euclidean patterns keyed by GM note, with
// ghost notes, humanize jitter, and periodic fills (spec §4.4). Pattern
// math is delegated to internal/euclid, itself grounded on the teacher's
// midi/drums.go generateEuclideanRhythm.
type Drum struct {
	Channel uint8
	Voices  []DrumVoice

	StepTicks int // stored by SetParam("step_ticks"); Generate spaces each voice's steps at TicksPerBar/Steps and does not read it

	HumanizeTimingSigma   float64 // ticks
	HumanizeVelocitySigma float64

	FillProbability float64
	FillLength      int // steps, at the end of a bar

	rng *rand.Rand

	barStartTick uint64
	started      bool
}

// NewDrum builds a Drum loaded with the named style template (falls back
// to "rock" if unrecognized).
func NewDrum(channel uint8, style string) *Drum {
	tmpl, ok := styleTemplates[style]
	if !ok {
		tmpl = styleTemplates["rock"]
	}
	d := &Drum{
		Channel:         channel,
		StepTicks:       TicksPerBar / 16,
		FillProbability: 0.15,
		FillLength:      4,
		rng:             rand.New(rand.NewSource(5)),
	}
	d.Voices = []DrumVoice{
		{Name: "kick", Note: GMKickDrum, Velocity: 110, Steps: tmpl["kick"].Steps, Pulses: tmpl["kick"].Pulses, Rotation: tmpl["kick"].Rotation},
		{Name: "snare", Note: GMSnareDrum, Velocity: 105, Steps: tmpl["snare"].Steps, Pulses: tmpl["snare"].Pulses, Rotation: tmpl["snare"].Rotation, GhostProbability: 0.2, GhostVelocity: 40},
		{Name: "hats", Note: GMClosedHihat, Velocity: 80, Steps: tmpl["hats"].Steps, Pulses: tmpl["hats"].Pulses, Rotation: tmpl["hats"].Rotation},
	}
	return d
}

func (d *Drum) ParamNames() []string {
	return []string{"step_ticks", "humanize_timing", "humanize_velocity", "fill_probability", "fill_length"}
}

func (d *Drum) SetParam(name string, value float64) {
	switch name {
	case "step_ticks":
		if value > 0 {
			d.StepTicks = int(value)
		}
	case "humanize_timing":
		d.HumanizeTimingSigma = value
	case "humanize_velocity":
		d.HumanizeVelocitySigma = value
	case "fill_probability":
		if value >= 0 && value <= 1 {
			d.FillProbability = value
		}
	case "fill_length":
		if value > 0 {
			d.FillLength = int(value)
		}
	}
}

func (d *Drum) Reset() {
	d.barStartTick = 0
	d.started = false
}

func gaussian(rng *rand.Rand, sigma float64) float64 {
	if sigma <= 0 {
		return 0
	}
	return rng.NormFloat64() * sigma
}

// Generate emits one bar's worth of voice hits once ctx.NowTick crosses
// a bar boundary, applying ghost notes, humanize, and fills.
func (d *Drum) Generate(ctx Context) []midi.MidiEvent {
	var events []midi.MidiEvent

	if !d.started {
		d.started = true
		d.barStartTick = (ctx.NowTick / TicksPerBar) * TicksPerBar
	}

	for d.barStartTick <= ctx.NowTick {
		isFill := d.rng.Float64() < d.FillProbability
		for _, v := range d.Voices {
			events = append(events, d.generateVoiceBar(v, d.barStartTick, isFill)...)
		}
		d.barStartTick += TicksPerBar
	}
	return events
}

func (d *Drum) generateVoiceBar(v DrumVoice, barStart uint64, isFill bool) []midi.MidiEvent {
	if v.Steps <= 0 {
		return nil
	}
	pattern := euclid.Pattern(v.Pulses, v.Steps, v.Rotation)
	stepDuration := TicksPerBar / v.Steps
	if stepDuration <= 0 {
		stepDuration = 1
	}

	var events []midi.MidiEvent
	for i, hit := range pattern {
		if isFill && i >= v.Steps-d.FillLength {
			hit = (i % 2) == 0 // simple sixteenth-roll fill substitute
		}

		velocity := int(v.Velocity)
		if !hit && v.GhostProbability > 0 && d.rng.Float64() < v.GhostProbability {
			hit = true
			velocity = int(v.GhostVelocity)
		}
		if !hit {
			continue
		}

		tick := int64(barStart) + int64(i*stepDuration) + int64(gaussian(d.rng, d.HumanizeTimingSigma))
		if tick < 0 {
			tick = 0
		}
		vel := velocity + int(gaussian(d.rng, d.HumanizeVelocitySigma))
		events = append(events, midi.NoteOn(uint64(tick), d.Channel, v.Note, clampVelocity(vel), 0))
	}
	return events
}
