// Package theory implements the music-theory layer: scales, keys, and
// pitch quantization. Every generator in internal/generator routes its
// candidate pitches through a Scale before they are allowed onto the wire.
package theory

import "sort"

// ScaleType is a tagged variant over the closed set of supported scales.
type ScaleType int

const (
	Major ScaleType = iota
	NaturalMinor
	HarmonicMinor
	MelodicMinor
	Dorian
	Phrygian
	Lydian
	Mixolydian
	Locrian
	MajorPentatonic
	MinorPentatonic
	Blues
	WholeTone
	Chromatic
	Custom
)

// String renders the scale type the way config files and diagnostics name it.
func (t ScaleType) String() string {
	switch t {
	case Major:
		return "major"
	case NaturalMinor:
		return "natural_minor"
	case HarmonicMinor:
		return "harmonic_minor"
	case MelodicMinor:
		return "melodic_minor"
	case Dorian:
		return "dorian"
	case Phrygian:
		return "phrygian"
	case Lydian:
		return "lydian"
	case Mixolydian:
		return "mixolydian"
	case Locrian:
		return "locrian"
	case MajorPentatonic:
		return "major_pentatonic"
	case MinorPentatonic:
		return "minor_pentatonic"
	case Blues:
		return "blues"
	case WholeTone:
		return "whole_tone"
	case Chromatic:
		return "chromatic"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

// builtinIntervals maps every non-Custom scale type to its interval set,
// ascending semitone offsets from the tonic, within one octave.
var builtinIntervals = map[ScaleType][]int{
	Major:           {0, 2, 4, 5, 7, 9, 11},
	NaturalMinor:    {0, 2, 3, 5, 7, 8, 10},
	HarmonicMinor:   {0, 2, 3, 5, 7, 8, 11},
	MelodicMinor:    {0, 2, 3, 5, 7, 9, 11},
	Dorian:          {0, 2, 3, 5, 7, 9, 10},
	Phrygian:        {0, 1, 3, 5, 7, 8, 10},
	Lydian:          {0, 2, 4, 6, 7, 9, 11},
	Mixolydian:      {0, 2, 4, 5, 7, 9, 10},
	Locrian:         {0, 1, 3, 5, 6, 8, 10},
	MajorPentatonic: {0, 2, 4, 7, 9},
	MinorPentatonic: {0, 3, 5, 7, 10},
	Blues:           {0, 3, 5, 6, 7, 10},
	WholeTone:       {0, 2, 4, 6, 8, 10},
	Chromatic:       {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
}

// ScaleNames gives a display name per type, in the teacher's display-name
// table style (theory.ScaleNames in the ako-backing-tracks teacher repo).
var ScaleNames = map[ScaleType]string{
	Major:           "Major",
	NaturalMinor:    "Natural Minor",
	HarmonicMinor:   "Harmonic Minor",
	MelodicMinor:    "Melodic Minor",
	Dorian:          "Dorian",
	Phrygian:        "Phrygian",
	Lydian:          "Lydian",
	Mixolydian:      "Mixolydian",
	Locrian:         "Locrian",
	MajorPentatonic: "Major Pentatonic",
	MinorPentatonic: "Minor Pentatonic",
	Blues:           "Blues",
	WholeTone:       "Whole Tone",
	Chromatic:       "Chromatic",
	Custom:          "Custom",
}

// NoteNames are the sharp spellings used for display, C=0.
var NoteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Scale exposes the two operations spec'd in §4.1: degrees() and quantize().
type Scale struct {
	tonic     int // pitch class 0-11
	scaleType ScaleType
	intervals []int // ascending, first element always 0
}

// NewScale builds a scale from the closed set of built-in types. An
// unrecognized type (other than Custom) falls back to Major, mirroring the
// teacher's NewScale fallback-to-default behavior.
func NewScale(tonic int, t ScaleType) *Scale {
	tonic = normalizePitchClass(tonic)
	intervals, ok := builtinIntervals[t]
	if !ok {
		t = Major
		intervals = builtinIntervals[Major]
	}
	return &Scale{tonic: tonic, scaleType: t, intervals: append([]int(nil), intervals...)}
}

// NewCustomScale builds a Custom scale from an explicit, caller-supplied
// interval set. Intervals are normalized into [0,11], deduplicated, and
// sorted; if the result is empty it falls back to Chromatic so quantize
// never has zero candidates.
func NewCustomScale(tonic int, intervals []int) *Scale {
	tonic = normalizePitchClass(tonic)
	seen := map[int]bool{}
	var norm []int
	for _, iv := range intervals {
		m := ((iv % 12) + 12) % 12
		if !seen[m] {
			seen[m] = true
			norm = append(norm, m)
		}
	}
	sort.Ints(norm)
	if len(norm) == 0 {
		norm = append([]int(nil), builtinIntervals[Chromatic]...)
	}
	return &Scale{tonic: tonic, scaleType: Custom, intervals: norm}
}

// Tonic returns the scale's tonic pitch class (0-11).
func (s *Scale) Tonic() int { return s.tonic }

// Type returns the scale's type tag.
func (s *Scale) Type() ScaleType { return s.scaleType }

// Degrees returns the ordered intervals from tonic, in semitones.
func (s *Scale) Degrees() []int {
	return append([]int(nil), s.intervals...)
}

// Len is the number of distinct degrees in one octave of the scale.
func (s *Scale) Len() int { return len(s.intervals) }

func normalizePitchClass(p int) int {
	return ((p % 12) + 12) % 12
}

func clampPitch(p int) int {
	if p < 0 {
		return 0
	}
	if p > 127 {
		return 127
	}
	return p
}

// Quantize snaps an arbitrary MIDI pitch to the nearest in-scale pitch.
// Equidistant ties break toward the lower pitch. Input and output are
// clamped to [0, 127]; overflow saturates rather than wraps.
func (s *Scale) Quantize(pitch int) int {
	pitch = clampPitch(pitch)

	best := -1
	bestDist := 1 << 30
	// Octave index k such that tonic + 12k sits near pitch; scan a
	// generous window either side to cover edge clamping near 0/127.
	kCenter := (pitch - s.tonic) / 12
	for k := kCenter - 2; k <= kCenter+2; k++ {
		for _, iv := range s.intervals {
			cand := s.tonic + iv + 12*k
			if cand < 0 || cand > 127 {
				continue
			}
			dist := cand - pitch
			if dist < 0 {
				dist = -dist
			}
			if dist < bestDist || (dist == bestDist && cand < best) {
				bestDist = dist
				best = cand
			}
		}
	}
	if best == -1 {
		return pitch
	}
	return best
}

// degreeIndex locates the absolute scale-degree index (k*len + idx) whose
// pitch is nearest to p, using the same tie-break-low rule as Quantize.
func (s *Scale) degreeIndex(p int) int {
	p = clampPitch(p)
	length := s.Len()

	bestDeg := 0
	bestPitch := 0
	bestDist := 1 << 30
	kCenter := (p - s.tonic) / 12
	for k := kCenter - 2; k <= kCenter+2; k++ {
		for i, iv := range s.intervals {
			cand := s.tonic + iv + 12*k
			dist := cand - p
			if dist < 0 {
				dist = -dist
			}
			if dist < bestDist || (dist == bestDist && cand < bestPitch) {
				bestDist = dist
				bestPitch = cand
				bestDeg = k*length + i
			}
		}
	}
	return bestDeg
}

// pitchForDegree is the inverse of degreeIndex: given an absolute degree
// index, returns its MIDI pitch (unclamped).
func (s *Scale) pitchForDegree(deg int) int {
	length := s.Len()
	k := deg / length
	idx := deg % length
	if idx < 0 {
		idx += length
		k--
	}
	return s.tonic + s.intervals[idx] + 12*k
}

// TransposeDegrees moves p by n scale degrees (not semitones): locate p's
// nearest degree index, add n, reduce modulo the scale length carrying
// octaves. Result clamps (saturates) to [0, 127].
func (s *Scale) TransposeDegrees(p int, n int) int {
	deg := s.degreeIndex(p)
	return clampPitch(s.pitchForDegree(deg + n))
}

// ContainsPitchClass reports whether the given pitch class (0-11, or any
// int reduced mod 12) lies in the scale.
func (s *Scale) ContainsPitchClass(pc int) bool {
	rel := ((pc-s.tonic)%12 + 12) % 12
	for _, iv := range s.intervals {
		if iv == rel {
			return true
		}
	}
	return false
}

// NotesInRange returns every in-scale MIDI pitch within [low, high].
func (s *Scale) NotesInRange(low, high int) []int {
	var notes []int
	for p := clampPitch(low); p <= clampPitch(high); p++ {
		if s.ContainsPitchClass(p) {
			notes = append(notes, p)
		}
	}
	return notes
}
