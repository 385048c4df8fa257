package generator

import (
	"math/rand"

	"seq/internal/midi"
)

// ChordProgressionMode selects how Chord picks its next root (spec §4.4).
type ChordProgressionMode int

const (
	ChordFunctional ChordProgressionMode = iota
	ChordRandomInKey
	ChordCustom
)

// VoicingStyle transforms a chord's raw pitch set (spec §4.4).
type VoicingStyle int

const (
	VoiceClose VoicingStyle = iota
	VoiceOpen
	VoiceDrop2
	VoiceSpread
)

// functionalTable is the weighted scale-degree transition table: from
// degree -> candidate next degrees with relative weights. Grounded on
// the teacher's progression logic in midi/rhythm.go, which likewise
// picks among a small set of diatonic next-chord candidates.
var functionalTable = map[int][]struct {
	degree int
	weight float64
}{
	0: {{3, 0.3}, {4, 0.3}, {5, 0.25}, {1, 0.15}},
	1: {{4, 0.5}, {3, 0.25}, {0, 0.25}},
	2: {{5, 0.4}, {3, 0.3}, {0, 0.3}},
	3: {{4, 0.35}, {0, 0.25}, {1, 0.2}, {5, 0.2}},
	4: {{0, 0.5}, {5, 0.3}, {3, 0.2}},
	5: {{1, 0.3}, {3, 0.3}, {4, 0.4}},
	6: {{0, 0.6}, {4, 0.4}},
}

// Chord produces a stream of root changes voiced into a pitch set, with
// optional extensions and voice-leading between changes (spec §4.4).
type Chord struct {
	Channel        uint8
	Mode           ChordProgressionMode
	CustomDegrees  []int // used when Mode == ChordCustom
	Extensions     []int // e.g. 7, 9; added on top of the 1-3-5 triad
	Voicing        VoicingStyle
	Inversion      int  // rotation count; ignored if VoiceLed true
	VoiceLed       bool // choose the inversion minimizing movement from previous voicing
	ChangeRate     int  // ticks between chord changes
	Velocity       uint8

	rng *rand.Rand

	currentDegree int
	prevPitches   []int
	nextTick      uint64
	started       bool

	// LastTones is the most recently emitted chord's pitches, after voicing
	// and inversion, exposed so an Arpeggio can be wired to follow this Chord.
	LastTones []int
}

// NewChord builds a Chord with spec-default parameters.
func NewChord(channel uint8) *Chord {
	return &Chord{
		Channel:    channel,
		Mode:       ChordFunctional,
		Voicing:    VoiceClose,
		ChangeRate: TicksPerBar,
		Velocity:   85,
		rng:        rand.New(rand.NewSource(3)),
	}
}

func (c *Chord) ParamNames() []string {
	return []string{"change_rate", "velocity", "inversion", "voice_led", "voicing", "mode"}
}

func (c *Chord) SetParam(name string, value float64) {
	switch name {
	case "change_rate":
		if value > 0 {
			c.ChangeRate = int(value)
		}
	case "velocity":
		c.Velocity = clampVelocity(int(value))
	case "inversion":
		c.Inversion = int(value)
	case "voice_led":
		c.VoiceLed = value != 0
	case "voicing":
		c.Voicing = VoicingStyle(int(value))
	case "mode":
		c.Mode = ChordProgressionMode(int(value))
	}
}

func (c *Chord) Reset() {
	c.currentDegree = 0
	c.prevPitches = nil
	c.nextTick = 0
	c.started = false
	c.LastTones = nil
}

func (c *Chord) nextDegree() int {
	switch c.Mode {
	case ChordRandomInKey:
		return c.rng.Intn(maxInt(c.degreeSpan(), 1))
	case ChordCustom:
		if len(c.CustomDegrees) == 0 {
			return 0
		}
		d := c.CustomDegrees[0]
		c.CustomDegrees = append(c.CustomDegrees[1:], d)
		return d
	default: // Functional
		choices, ok := functionalTable[c.currentDegree]
		if !ok || len(choices) == 0 {
			return 0
		}
		var total float64
		for _, ch := range choices {
			total += ch.weight
		}
		r := c.rng.Float64() * total
		for _, ch := range choices {
			r -= ch.weight
			if r <= 0 {
				return ch.degree
			}
		}
		return choices[len(choices)-1].degree
	}
}

func (c *Chord) degreeSpan() int {
	return 7
}

// buildTriad returns the absolute pitches of the 1-3-5 triad (plus
// extensions) on the given scale degree, counted in scale steps up from the
// tonic in the octave that starts at tonic+60.
func buildTriad(ctx Context, degree int, extensions []int) []int {
	s := ctx.Key.Scale
	n := s.Len()
	deg := ((degree % n) + n) % n
	root := ctx.Key.Tonic + 60
	triadDegrees := []int{deg, deg + 2, deg + 4}
	triadDegrees = append(triadDegrees, extensionsToDegrees(deg, extensions)...)

	out := make([]int, 0, len(triadDegrees))
	for _, td := range triadDegrees {
		out = append(out, s.TransposeDegrees(root, td))
	}
	return out
}

func extensionsToDegrees(base int, extensions []int) []int {
	var out []int
	for _, ext := range extensions {
		switch ext {
		case 7:
			out = append(out, base+6)
		case 9:
			out = append(out, base+8)
		case 2: // sus2: adds the second degree (offset +1); the third is kept
			out = append(out, base+1)
		case 4: // sus4
			out = append(out, base+3)
		}
	}
	return out
}

// applyVoicing transforms the raw pitch set per the selected style (spec §4.4).
func applyVoicing(tones []int, style VoicingStyle) []int {
	if len(tones) == 0 {
		return tones
	}
	out := append([]int(nil), tones...)
	switch style {
	case VoiceOpen:
		for i := 1; i < len(out); i += 2 {
			out[i] -= 12
		}
	case VoiceDrop2:
		if len(out) >= 2 {
			secondFromTop := len(out) - 2
			out[secondFromTop] -= 12
		}
	case VoiceSpread:
		for i := range out {
			if i%2 == 1 {
				out[i] += 12
			}
		}
	case VoiceClose:
		// pack within one octave above the root
		root := out[0]
		for i := range out {
			for out[i] < root {
				out[i] += 12
			}
			for out[i] >= root+12 {
				out[i] -= 12
			}
		}
	}
	return out
}

// invert rotates the pitch set n times, each rotation moving the lowest
// pitch up an octave to become the new top.
func invert(tones []int, n int) []int {
	if len(tones) == 0 {
		return tones
	}
	out := append([]int(nil), tones...)
	n = ((n % len(out)) + len(out)) % len(out)
	for i := 0; i < n; i++ {
		low := out[0]
		out = append(out[1:], low+12)
	}
	return out
}

// voiceLeadPick chooses the inversion (0..len-1) minimizing sum|pitch - prevPitch|.
func voiceLeadPick(tones, prev []int) []int {
	if len(prev) == 0 || len(tones) == 0 {
		return tones
	}
	best := tones
	bestCost := voicingCost(tones, prev)
	for n := 1; n < len(tones); n++ {
		cand := invert(tones, n)
		cost := voicingCost(cand, prev)
		if cost < bestCost {
			bestCost = cost
			best = cand
		}
	}
	return best
}

func voicingCost(a, b []int) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	cost := 0
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		cost += d
	}
	return cost
}

func (c *Chord) Generate(ctx Context) []midi.MidiEvent {
	var events []midi.MidiEvent
	if !c.started {
		c.started = true
		c.nextTick = ctx.NowTick
	}
	for c.nextTick <= ctx.NowTick {
		c.currentDegree = c.nextDegree()
		tones := buildTriad(ctx, c.currentDegree, c.Extensions)
		tones = applyVoicing(tones, c.Voicing)
		if c.VoiceLed {
			tones = voiceLeadPick(tones, c.prevPitches)
		} else if c.Inversion != 0 {
			tones = invert(tones, c.Inversion)
		}

		for _, p := range c.prevPitches {
			events = append(events, midi.NoteOff(c.nextTick, c.Channel, clampPitch(p)))
		}
		for _, p := range tones {
			events = append(events, midi.NoteOn(c.nextTick, c.Channel, clampPitch(p), c.Velocity, 0))
		}
		c.prevPitches = tones
		c.LastTones = append([]int(nil), tones...)
		c.nextTick += uint64(c.ChangeRate)
		if c.ChangeRate <= 0 {
			break
		}
	}
	return events
}
