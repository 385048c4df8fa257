package generator

import (
	"math/rand"

	"seq/internal/midi"
)

// PhraseVariation selects how a completed motif buffer is replayed for
// the next phrase (spec §4.4).
type PhraseVariation int

const (
	PhraseOriginal PhraseVariation = iota
	PhraseTranspose
	PhraseInvert
	PhraseRetrograde
)

// Melody is a first-order Markov model over bucketed signed-semitone
// intervals, with a rest probability, a duration bag, and a motif buffer
// that replays the last phrase transformed (spec §4.4). The
// interval-bucket Markov idiom is grounded on the teacher's
// direction-biased stepwise-motion walk in midi/melody.go
// (chooseScaleNote/chooseChordTone), generalized into an explicit
// per-state transition table.
type Melody struct {
	Channel         uint8
	NoteMin, NoteMax int
	RestProbability float64
	PhraseLength    int // motif buffer length, in notes
	Durations       []uint64

	TransposeProb  float64
	InvertProb     float64
	RetrogradeProb float64

	Velocity uint8

	rng *rand.Rand

	lastInterval int // bucketed signed semitone interval, state
	lastPitch    int
	hasLast      bool

	motif        []int // pitches of the just-completed phrase
	motifDurs    []uint64
	phraseBuf    []int
	phraseDurBuf []uint64

	nextTick uint64
	started  bool

	replay    []int    // transformed motif pitches queued for literal replay
	replayDur []uint64 // matching durations
	replayIdx int

	transitions map[int][]weightedInterval
}

type weightedInterval struct {
	interval int
	weight   float64
}

// NewMelody builds a Melody with a simple stepwise-biased transition
// table and spec-default parameters.
func NewMelody(channel uint8) *Melody {
	m := &Melody{
		Channel:         channel,
		NoteMin:         48,
		NoteMax:         84,
		RestProbability: 0.1,
		PhraseLength:    8,
		Durations:       []uint64{TicksPerBar / 4, TicksPerBar / 8},
		TransposeProb:   0.25,
		InvertProb:      0.15,
		RetrogradeProb:  0.15,
		Velocity:        95,
		rng:             rand.New(rand.NewSource(4)),
	}
	m.transitions = defaultIntervalTransitions()
	return m
}

// defaultIntervalTransitions builds a stepwise-biased table: from any
// bucketed interval state, steps of ±1/±2 dominate with occasional larger
// leaps, mirroring the teacher's bias toward stepwise motion with
// occasional 3rd/4th leaps (midi/melody.go).
func defaultIntervalTransitions() map[int][]weightedInterval {
	base := []weightedInterval{
		{-2, 0.18}, {-1, 0.22}, {0, 0.05}, {1, 0.22}, {2, 0.18},
		{-4, 0.06}, {4, 0.06}, {-7, 0.015}, {7, 0.015},
	}
	t := make(map[int][]weightedInterval)
	for bucket := -12; bucket <= 12; bucket++ {
		t[bucket] = base
	}
	return t
}

func (m *Melody) ParamNames() []string {
	return []string{"note_min", "note_max", "rest_probability", "phrase_length", "transpose_prob", "invert_prob", "retrograde_prob", "velocity"}
}

func (m *Melody) SetParam(name string, value float64) {
	switch name {
	case "note_min":
		m.NoteMin = int(value)
	case "note_max":
		m.NoteMax = int(value)
	case "rest_probability":
		if value >= 0 && value <= 1 {
			m.RestProbability = value
		}
	case "phrase_length":
		if value > 0 {
			m.PhraseLength = int(value)
		}
	case "transpose_prob":
		m.TransposeProb = value
	case "invert_prob":
		m.InvertProb = value
	case "retrograde_prob":
		m.RetrogradeProb = value
	case "velocity":
		m.Velocity = clampVelocity(int(value))
	}
}

func (m *Melody) Reset() {
	m.lastInterval = 0
	m.hasLast = false
	m.motif = nil
	m.motifDurs = nil
	m.phraseBuf = nil
	m.phraseDurBuf = nil
	m.replay = nil
	m.replayDur = nil
	m.replayIdx = 0
	m.nextTick = 0
	m.started = false
}

func bucketInterval(iv int) int {
	if iv > 12 {
		return 12
	}
	if iv < -12 {
		return -12
	}
	return iv
}

func (m *Melody) sampleInterval() int {
	choices := m.transitions[bucketInterval(m.lastInterval)]
	var total float64
	for _, c := range choices {
		total += c.weight
	}
	r := m.rng.Float64() * total
	for _, c := range choices {
		r -= c.weight
		if r <= 0 {
			return c.interval
		}
	}
	return 0
}

func (m *Melody) nextDuration() uint64 {
	if len(m.Durations) == 0 {
		return TicksPerBar / 4
	}
	return m.Durations[m.rng.Intn(len(m.Durations))]
}

// Generate advances the melody by one note/rest per call's due step,
// draining due phrase positions up to ctx.NowTick.
func (m *Melody) Generate(ctx Context) []midi.MidiEvent {
	var events []midi.MidiEvent

	if !m.started {
		m.started = true
		m.nextTick = ctx.NowTick
		m.lastPitch = ctx.Key.Tonic + 72
		m.hasLast = true
	}

	for m.nextTick <= ctx.NowTick {
		if m.rng.Float64() < m.RestProbability {
			m.nextTick += m.nextDuration()
			continue
		}

		var clamped int
		var duration uint64
		wasClamped := false

		if m.replayIdx < len(m.replay) {
			clamped = ctx.Key.Quantize(m.replay[m.replayIdx])
			duration = m.replayDur[m.replayIdx]
			m.replayIdx++
		} else {
			duration = m.nextDuration()
			interval := m.sampleInterval()
			candidate := m.lastPitch + interval
			clamped = ctx.Key.Quantize(candidate)
		}
		if clamped < m.NoteMin {
			clamped = m.NoteMin
			wasClamped = true
		}
		if clamped > m.NoteMax {
			clamped = m.NoteMax
			wasClamped = true
		}

		events = append(events, midi.NoteOn(m.nextTick, m.Channel, clampPitch(clamped), m.Velocity, duration))

		m.phraseBuf = append(m.phraseBuf, clamped)
		m.phraseDurBuf = append(m.phraseDurBuf, duration)

		if wasClamped {
			m.lastInterval = 0
		} else {
			m.lastInterval = bucketInterval(clamped - m.lastPitch)
		}
		m.lastPitch = clamped

		if len(m.phraseBuf) >= m.PhraseLength {
			m.completePhrase()
		}

		m.nextTick += duration
	}
	return events
}

// completePhrase closes out the just-finished phrase into the motif
// buffer and, per spec §4.4, chooses the next phrase's variation:
// Original resumes plain Markov generation; Transpose/Invert/Retrograde
// queue a literally-replayed transform of the motif for the next
// PhraseLength notes.
func (m *Melody) completePhrase() {
	m.motif = append([]int(nil), m.phraseBuf...)
	m.motifDurs = append([]uint64(nil), m.phraseDurBuf...)
	m.phraseBuf = nil
	m.phraseDurBuf = nil
	m.replay = nil
	m.replayDur = nil
	m.replayIdx = 0

	r := m.rng.Float64()
	switch {
	case r < m.TransposeProb:
		degrees := m.rng.Intn(5) - 2 // ±2 scale degrees
		out := make([]int, len(m.motif))
		for i, p := range m.motif {
			out[i] = clampInt(transposeByDegrees(p, degrees), 0, 127)
		}
		m.replay = out
		m.replayDur = append([]uint64(nil), m.motifDurs...)
	case r < m.TransposeProb+m.InvertProb:
		m.replay = invertPhrase(m.motif)
		m.replayDur = append([]uint64(nil), m.motifDurs...)
	case r < m.TransposeProb+m.InvertProb+m.RetrogradeProb:
		m.replay = retrogradePhrase(m.motif)
		m.replayDur = reverseDurations(m.motifDurs)
	default:
		// Original: resume plain Markov generation from here.
	}
}

func transposeByDegrees(pitch, degrees int) int {
	// A plain semitone nudge per degree keeps this self-contained without
	// threading a *theory.Scale into the motif buffer; degree-accurate
	// transposition for live playback goes through Scale.Quantize on emit.
	return pitch + degrees*2
}

func reverseDurations(durs []uint64) []uint64 {
	out := make([]uint64, len(durs))
	for i, d := range durs {
		out[len(durs)-1-i] = d
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// invertPhrase reflects intervals around the phrase's first note.
func invertPhrase(pitches []int) []int {
	if len(pitches) == 0 {
		return pitches
	}
	first := pitches[0]
	out := make([]int, len(pitches))
	for i, p := range pitches {
		out[i] = first - (p - first)
	}
	return out
}

// retrogradePhrase reverses note order while preserving each note's
// original duration pairing (caller must reverse durations in lockstep).
func retrogradePhrase(pitches []int) []int {
	out := make([]int, len(pitches))
	for i, p := range pitches {
		out[len(pitches)-1-i] = p
	}
	return out
}
