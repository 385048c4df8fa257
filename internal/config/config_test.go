package config

import "testing"

func minimalSong() *Song {
	return &Song{
		Name:  "test",
		Tempo: 120,
		Key:   "C",
		Scale: "major",
		Tracks: []TrackConfig{
			{Name: "drone", Channel: 0, Generator: &GeneratorConfig{Type: "drone"}},
		},
	}
}

func TestValidateRejectsZeroTempo(t *testing.T) {
	s := minimalSong()
	s.Tempo = 0
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for zero tempo")
	}
}

func TestValidateRejectsNoTracks(t *testing.T) {
	s := minimalSong()
	s.Tracks = nil
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for no tracks")
	}
}

func TestValidateRejectsUnknownGeneratorType(t *testing.T) {
	s := minimalSong()
	s.Tracks[0].Generator.Type = "banjo"
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for unknown generator type")
	}
}

func TestValidateRejectsBadClipLoopBounds(t *testing.T) {
	s := minimalSong()
	s.Tracks[0].Clips = []ClipConfig{
		{ID: "c1", Mode: "loop", Length: 96, LoopStart: 50, LoopEnd: 10},
	}
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for invalid loop bounds")
	}
}

func TestValidateRejectsPartReferencingUnknownClip(t *testing.T) {
	s := minimalSong()
	s.Parts = []PartConfig{
		{Name: "A", Tracks: []PartTrackConfig{{Track: 0, State: "clip", ClipID: "ghost"}}},
	}
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for part referencing unknown clip")
	}
}

func TestValidateAcceptsMinimalSong(t *testing.T) {
	s := minimalSong()
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildAssemblesRuntimeFromMinimalSong(t *testing.T) {
	s := minimalSong()
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	rt, err := Build(s)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(rt.Tracks.Tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(rt.Tracks.Tracks))
	}
	if _, ok := rt.Generators["drone"]; !ok {
		t.Error("expected drone generator to be built")
	}
	if rt.Key.Tonic != 0 {
		t.Errorf("key tonic = %d, want 0 (C)", rt.Key.Tonic)
	}
}

func TestBuildRejectsUnknownPitchClass(t *testing.T) {
	s := minimalSong()
	s.Key = "H"
	if _, err := Build(s); err == nil {
		t.Fatal("expected error for unrecognized pitch class")
	}
}

func TestParseTransitionParsesParameterizedForms(t *testing.T) {
	q, n := parseTransition("bars(2)")
	if n != 2 {
		t.Errorf("bars(2) parsed n = %d, want 2", n)
	}
	_ = q
}
