package theory

import "testing"

func TestQuantizeAlreadyInScale(t *testing.T) {
	s := NewScale(0, Major) // C major
	for _, p := range []int{60, 62, 64, 65, 67} {
		if got := s.Quantize(p); got != p {
			t.Errorf("Quantize(%d) = %d, want %d (already in scale)", p, got, p)
		}
	}
}

func TestQuantizeTieBreaksLow(t *testing.T) {
	// C major: 61 (C#) sits equidistant between 60 (C) and 62 (D).
	s := NewScale(0, Major)
	if got := s.Quantize(61); got != 60 {
		t.Errorf("Quantize(61) = %d, want 60 (tie breaks low)", got)
	}
}

func TestQuantizeClampsToMidiRange(t *testing.T) {
	s := NewScale(0, Major)
	if got := s.Quantize(200); got < 0 || got > 127 {
		t.Errorf("Quantize(200) = %d, out of MIDI range", got)
	}
	if got := s.Quantize(-50); got < 0 || got > 127 {
		t.Errorf("Quantize(-50) = %d, out of MIDI range", got)
	}
}

func TestTransposeDegreesWithinScale(t *testing.T) {
	s := NewScale(0, Major) // C D E F G A B
	// 60=C (degree 0). +2 degrees -> E (64).
	if got := s.TransposeDegrees(60, 2); got != 64 {
		t.Errorf("TransposeDegrees(60, 2) = %d, want 64", got)
	}
	// -1 degree from C(60) -> B below (59).
	if got := s.TransposeDegrees(60, -1); got != 59 {
		t.Errorf("TransposeDegrees(60, -1) = %d, want 59", got)
	}
}

func TestTransposeDegreesCarriesOctaves(t *testing.T) {
	s := NewScale(0, Major)
	// From C(60), +7 degrees (one full octave of a 7-note scale) -> C(72).
	if got := s.TransposeDegrees(60, 7); got != 72 {
		t.Errorf("TransposeDegrees(60, 7) = %d, want 72", got)
	}
}

func TestTransposeDegreesOfAnInScalePitchIsExact(t *testing.T) {
	// Documents a deliberate resolution of the apparent inconsistency in
	// spec.md §8's worked example: D natural minor (tonic 2) already
	// contains pitch 60 (C4) as its b7 degree, so the nearest degree to
	// 60 is 60 itself, not D4 (62). §4.1's prose algorithm ("locate p's
	// nearest degree index") is implemented literally; see DESIGN.md.
	s := NewScale(2, NaturalMinor)
	if got := s.TransposeDegrees(60, 0); got != 60 {
		t.Errorf("TransposeDegrees(60, 0) = %d, want 60 (already on-scale)", got)
	}
}

func TestKeyRelative(t *testing.T) {
	cMajor := NewKey(0, Major)
	rel := cMajor.Relative()
	if rel.Tonic != 9 || rel.scaleType != NaturalMinor {
		t.Errorf("C major relative = tonic %d type %v, want tonic 9 (A) NaturalMinor", rel.Tonic, rel.scaleType)
	}
	back := rel.Relative()
	if back.Tonic != 0 || back.scaleType != Major {
		t.Errorf("A minor relative = tonic %d type %v, want tonic 0 (C) Major", back.Tonic, back.scaleType)
	}
}

func TestParsePitchClass(t *testing.T) {
	cases := map[string]int{"C": 0, "C#": 1, "Db": 1, "F#": 6, "Bb": 10, "B": 11}
	for name, want := range cases {
		if got := ParsePitchClass(name); got != want {
			t.Errorf("ParsePitchClass(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestCustomScaleFallsBackWhenEmpty(t *testing.T) {
	s := NewCustomScale(0, nil)
	if s.Len() != 12 {
		t.Errorf("empty custom scale should fall back to chromatic, got len %d", s.Len())
	}
}
