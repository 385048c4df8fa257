package theory

import "strings"

// Key pairs a tonic pitch class with a Scale.
type Key struct {
	Tonic int
	*Scale
}

// NewKey builds a Key from a tonic pitch class and scale type.
func NewKey(tonic int, t ScaleType) Key {
	return Key{Tonic: normalizePitchClass(tonic), Scale: NewScale(tonic, t)}
}

// Relative returns the relative major/minor of the key: ±3 semitones with
// a mode flip (major -> natural minor down a minor third, minor -> major
// up a minor third). Keys that are neither major nor natural minor return
// themselves unchanged — "relative" is only defined for that pair.
func (k Key) Relative() Key {
	switch k.scaleType {
	case Major:
		return NewKey(normalizePitchClass(k.Tonic-3), NaturalMinor)
	case NaturalMinor:
		return NewKey(normalizePitchClass(k.Tonic+3), Major)
	default:
		return k
	}
}

// noteNameToPitchClass maps common note spellings (including flats) to a
// pitch class 0-11, the way the teacher's theory.NoteToMidi does.
var noteNameToPitchClass = map[string]int{
	"C": 0, "B#": 0,
	"C#": 1, "Db": 1,
	"D": 2,
	"D#": 3, "Eb": 3,
	"E": 4, "Fb": 4,
	"E#": 5, "F": 5,
	"F#": 6, "Gb": 6,
	"G": 7,
	"G#": 8, "Ab": 8,
	"A": 9,
	"A#": 10, "Bb": 10,
	"B": 11, "Cb": 11,
}

// ParsePitchClass parses a note name ("C", "F#", "Bb", ...) into 0-11,
// defaulting to C on anything unrecognized.
func ParsePitchClass(name string) int {
	name = strings.TrimSpace(name)
	if pc, ok := noteNameToPitchClass[name]; ok {
		return pc
	}
	if len(name) >= 1 {
		base := strings.ToUpper(name[:1])
		if len(name) >= 2 && (name[1] == '#' || name[1] == 'b') {
			if pc, ok := noteNameToPitchClass[base+name[1:2]]; ok {
				return pc
			}
		}
		if pc, ok := noteNameToPitchClass[base]; ok {
			return pc
		}
	}
	return 0
}

// ParseScaleType converts a config-file scale name into a ScaleType,
// defaulting to Major on anything unrecognized (config validation is
// expected to have already rejected genuinely unknown names).
func ParseScaleType(name string) ScaleType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "major", "ionian":
		return Major
	case "natural_minor", "minor", "aeolian":
		return NaturalMinor
	case "harmonic_minor":
		return HarmonicMinor
	case "melodic_minor":
		return MelodicMinor
	case "dorian":
		return Dorian
	case "phrygian":
		return Phrygian
	case "lydian":
		return Lydian
	case "mixolydian":
		return Mixolydian
	case "locrian":
		return Locrian
	case "major_pentatonic":
		return MajorPentatonic
	case "minor_pentatonic":
		return MinorPentatonic
	case "blues":
		return Blues
	case "whole_tone":
		return WholeTone
	case "chromatic":
		return Chromatic
	case "custom":
		return Custom
	default:
		return Major
	}
}
