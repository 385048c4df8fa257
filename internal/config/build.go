package config

import (
	"fmt"
	"strconv"
	"strings"

	"seq/internal/arrangement"
	"seq/internal/clip"
	"seq/internal/generator"
	"seq/internal/theory"
	"seq/internal/trigger"
)

// Runtime is the assembled, ready-to-play object graph built from a
// validated Song document: tracks, clips, generators, parts, scenes, the
// song timeline, and a registry snapshot for hot-reload. Keeping the
// "parse config, then build runtime objects" split mirrors the teacher's
// own Track (config) / RealtimePlayer (runtime) separation.
type Runtime struct {
	Key   theory.Key
	Tempo float64

	Tracks     *clip.TrackManager
	Clips      map[string]*clip.Clip
	Generators map[string]generator.Generator

	Parts    *arrangement.Manager
	Scenes   []*arrangement.Scene
	Song     *arrangement.Song
	Registry *arrangement.Handle
}

var scaleNames = map[string]theory.ScaleType{
	"major": theory.Major, "ionian": theory.Major,
	"natural_minor": theory.NaturalMinor, "aeolian": theory.NaturalMinor, "minor": theory.NaturalMinor,
	"harmonic_minor": theory.HarmonicMinor,
	"melodic_minor":  theory.MelodicMinor,
	"dorian":         theory.Dorian,
	"phrygian":       theory.Phrygian,
	"lydian":         theory.Lydian,
	"mixolydian":     theory.Mixolydian,
	"locrian":        theory.Locrian,
	"major_pentatonic": theory.MajorPentatonic,
	"minor_pentatonic": theory.MinorPentatonic,
	"blues":            theory.Blues,
	"whole_tone":       theory.WholeTone,
	"chromatic":        theory.Chromatic,
}

var pitchClasses = map[string]int{
	"c": 0, "c#": 1, "db": 1, "d": 2, "d#": 3, "eb": 3, "e": 4, "f": 5,
	"f#": 6, "gb": 6, "g": 7, "g#": 8, "ab": 8, "a": 9, "a#": 10, "bb": 10, "b": 11,
}

func parseKey(keyName, scaleName string) (theory.Key, error) {
	pc, ok := pitchClasses[strings.ToLower(keyName)]
	if !ok {
		return theory.Key{}, &ConfigError{Field: "key", Msg: "unrecognized pitch class " + keyName}
	}
	st, ok := scaleNames[strings.ToLower(scaleName)]
	if !ok {
		return theory.Key{}, &ConfigError{Field: "scale", Msg: "unrecognized scale " + scaleName}
	}
	return theory.NewKey(pc, st), nil
}

// Build assembles a Runtime from a validated Song document. Song.Validate
// must have already succeeded; Build still reports a ConfigError for an
// unrecognized key or scale name, and a plain error for an unknown
// generator type or a clip whose loop bounds NewClip rejects. It does not
// check generator names referenced by clips, parts or scenes.
func Build(s *Song) (*Runtime, error) {
	key, err := parseKey(s.Key, s.Scale)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Key:        key,
		Tempo:      s.Tempo,
		Tracks:     clip.NewTrackManager(),
		Clips:      make(map[string]*clip.Clip),
		Generators: make(map[string]generator.Generator),
		Parts:      arrangement.NewManager(),
	}

	reg := arrangement.NewRegistry()

	for i, tc := range s.Tracks {
		tr := clip.NewTrack(i, uint8(tc.Channel))
		tr.TransposeSemitones = tc.Transpose
		tr.VelocityScale = tc.VelocityScale
		tr.Swing = tc.Swing
		rt.Tracks.AddTrack(tr)

		if tc.Generator != nil {
			gen, err := buildGenerator(tc.Generator, uint8(tc.Channel))
			if err != nil {
				return nil, fmt.Errorf("tracks[%d].generator: %w", i, err)
			}
			rt.Generators[tc.Name] = gen
			reg.GeneratorIDs[tc.Name] = true
			tr.GeneratorID = tc.Name
		}

		for ci, cc := range tc.Clips {
			c, err := buildClip(cc)
			if err != nil {
				return nil, fmt.Errorf("tracks[%d].clips[%s]: %w", i, cc.ID, err)
			}
			rt.Clips[cc.ID] = c
			reg.ClipIDs[cc.ID] = true
			tr.ClipIDs = append(tr.ClipIDs, cc.ID)
			if ci == 0 {
				tr.CurrentClip = c
			}
		}
	}

	for _, pc := range s.Parts {
		p := buildPart(pc)
		rt.Parts.AddPart(p)
		reg.PartNames[p.Name] = p
	}

	for i, sc := range s.Scenes {
		scn := buildScene(i, sc)
		rt.Scenes = append(rt.Scenes, scn)
		reg.SceneByIndex[i] = scn
	}

	if s.SongConfig != nil {
		rt.Song = arrangement.NewSong(buildSections(s.SongConfig.Sections))
		if s.SongConfig.Loop != nil {
			rt.Song.SetLoop(arrangement.LoopRegion{
				StartSection: s.SongConfig.Loop.StartSection,
				EndSection:   s.SongConfig.Loop.EndSection,
				Repeats:      s.SongConfig.Loop.Repeats,
			})
		}
	}

	rt.Registry = arrangement.NewHandle(reg)
	return rt, nil
}

func buildGenerator(g *GeneratorConfig, channel uint8) (generator.Generator, error) {
	var gen generator.Generator
	switch g.Type {
	case "drone":
		d := generator.NewDrone(channel)
		gen = d
	case "arpeggio":
		gen = generator.NewArpeggio(channel)
	case "chord":
		gen = generator.NewChord(channel)
	case "melody":
		gen = generator.NewMelody(channel)
	case "drums":
		gen = generator.NewDrum(channel, g.Style)
	default:
		return nil, fmt.Errorf("unknown generator type %q", g.Type)
	}
	applyGeneratorParams(gen, g)
	return gen, nil
}

// applyGeneratorParams pushes every nonzero numeric field of g through
// SetParam by the generator's own declared ParamNames, so unknown or
// inapplicable fields for a given generator type are silently ignored
// exactly as Generator.SetParam already guarantees.
func applyGeneratorParams(gen generator.Generator, g *GeneratorConfig) {
	values := map[string]float64{
		"voices": float64(g.Voices), "change_rate": float64(g.ChangeRate),
		"sigma": g.Sigma, "max_leap": float64(g.MaxLeap),
		"octave_range": float64(g.OctaveRange), "rate": float64(g.Rate),
		"gate": g.Gate, "probability": g.Probability,
		"use_euclid": boolToFloat(g.UseEuclid), "euclid_k": float64(g.EuclidK),
		"euclid_n": float64(g.EuclidN), "euclid_rotation": float64(g.EuclidRot),
		"inversion": float64(g.Inversion), "voice_led": boolToFloat(g.VoiceLed),
		"note_min": float64(g.NoteMin), "note_max": float64(g.NoteMax),
		"rest_probability": g.RestProbability, "phrase_length": float64(g.PhraseLength),
		"fill_probability": g.FillProbability, "fill_length": float64(g.FillLength),
		"humanize_timing": g.HumanizeTiming, "humanize_velocity": g.HumanizeVelocity,
		"velocity": float64(g.Velocity),
	}
	known := make(map[string]bool)
	for _, n := range gen.ParamNames() {
		known[n] = true
	}
	for name, v := range values {
		if known[name] && v != 0 {
			gen.SetParam(name, v)
		}
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func buildClip(cc ClipConfig) (*clip.Clip, error) {
	mode := clip.OneShot
	switch cc.Mode {
	case "loop":
		mode = clip.Loop
	case "loop_count":
		mode = clip.LoopCount
	case "ping_pong":
		mode = clip.PingPong
	}
	loopEnd := uint64(cc.LoopEnd)
	if loopEnd == 0 {
		loopEnd = uint64(cc.Length)
	}
	c, err := clip.NewClip(cc.ID, uint64(cc.Length), uint64(cc.LoopStart), loopEnd, mode)
	if err != nil {
		return nil, err
	}
	switch cc.Type {
	case "generated":
		c.Type = clip.Generated
	case "hybrid":
		c.Type = clip.Hybrid
	default:
		c.Type = clip.Sequenced
	}
	c.GeneratorID = cc.GeneratorID
	c.LoopCountN = cc.LoopCount
	c.Follow = buildClipFollow(cc.Follow)
	for _, n := range cc.Notes {
		c.Notes = append(c.Notes, clip.Note{
			PositionTick: uint64(n.Position),
			Pitch:        uint8(n.Pitch),
			Velocity:     uint8(n.Velocity),
			DurationTick: uint64(n.Duration),
		})
	}
	return c, nil
}

// parseFollowAction accepts the follow-action kind shared by clips and
// scenes (spec §4.6); an empty or unrecognized string means FollowNone.
func parseFollowAction(s string) trigger.FollowAction {
	switch s {
	case "next":
		return trigger.FollowNext
	case "previous":
		return trigger.FollowPrevious
	case "first":
		return trigger.FollowFirst
	case "last":
		return trigger.FollowLast
	case "random":
		return trigger.FollowRandom
	case "specific":
		return trigger.FollowSpecific
	case "either":
		return trigger.FollowEither
	case "again":
		return trigger.FollowAgain
	default:
		return trigger.FollowNone
	}
}

// buildClipFollow builds a clip's follow spec, where Specific/EitherA/EitherB
// name sibling clip ids directly.
func buildClipFollow(fc *FollowConfig) trigger.FollowSpec {
	if fc == nil {
		return trigger.FollowSpec{}
	}
	return trigger.FollowSpec{
		Action:        parseFollowAction(fc.Action),
		SpecificID:    fc.Specific,
		EitherA:       fc.EitherA,
		EitherB:       fc.EitherB,
		EitherWeightA: fc.EitherWeightA,
	}
}

// buildSceneFollow builds a scene's follow triple, where Specific/EitherA/EitherB
// name scene indices rather than clip ids.
func buildSceneFollow(fc *FollowConfig) arrangement.FollowTriple {
	if fc == nil {
		return arrangement.FollowTriple{}
	}
	specific, _ := strconv.Atoi(fc.Specific)
	eitherA, _ := strconv.Atoi(fc.EitherA)
	eitherB, _ := strconv.Atoi(fc.EitherB)
	return arrangement.FollowTriple{
		Action:        parseFollowAction(fc.Action),
		AfterBars:     fc.AfterBars,
		Repeat:        fc.Repeat,
		SpecificScene: specific,
		EitherA:       eitherA,
		EitherB:       eitherB,
		EitherWeightA: fc.EitherWeightA,
	}
}

func buildPart(pc PartConfig) *arrangement.Part {
	p := &arrangement.Part{Name: pc.Name}
	p.Transition, p.TransitionN = parseTransition(pc.Transition)
	for _, ta := range pc.Tracks {
		p.Assignments = append(p.Assignments, arrangement.TrackAssignment{
			TrackID:       ta.Track,
			State:         parseTrackState(ta.State),
			ClipID:        ta.ClipID,
			GeneratorName: ta.Generator,
		})
	}
	for _, mc := range pc.Macros {
		p.Macros = append(p.Macros, buildMacro(mc))
	}
	return p
}

func buildMacro(mc MacroConfig) arrangement.MacroAction {
	m := arrangement.MacroAction{TrackID: mc.Track, ParamName: mc.ParamName, ParamVal: mc.ParamVal, TempoBPM: mc.TempoBPM}
	switch mc.Kind {
	case "set_tempo":
		m.Kind = arrangement.MacroSetTempo
	case "set_param":
		m.Kind = arrangement.MacroSetParam
	case "mute":
		m.Kind = arrangement.MacroMuteToggle
	case "solo":
		m.Kind = arrangement.MacroSoloToggle
	case "send_midi":
		m.Kind = arrangement.MacroSendMIDI
		raw := make([]byte, len(mc.RawMIDI))
		for i, b := range mc.RawMIDI {
			raw[i] = byte(b)
		}
		m.RawMIDI = raw
	}
	return m
}

func parseTrackState(s string) arrangement.TrackClipState {
	switch s {
	case "clip":
		return arrangement.StateClip
	case "generator":
		return arrangement.StateGenerator
	case "stop":
		return arrangement.StateStop
	case "hold":
		return arrangement.StateHold
	default:
		return arrangement.StateEmpty
	}
}

// parseTransition accepts "immediate", "next_beat", "next_bar",
// "end_of_phrase", or the parameterized "beats(n)"/"bars(n)"/"crossfade(n)"
// forms (spec §3's PartTransition).
func parseTransition(s string) (arrangement.PartTransition, int) {
	switch {
	case s == "" || s == "immediate":
		return arrangement.TransitionImmediate, 0
	case s == "next_beat":
		return arrangement.TransitionNextBeat, 0
	case s == "next_bar":
		return arrangement.TransitionNextBar, 0
	case s == "end_of_phrase":
		return arrangement.TransitionEndOfPhrase, 0
	case strings.HasPrefix(s, "beats(") && strings.HasSuffix(s, ")"):
		return arrangement.TransitionBeats, parseParenInt(s, "beats(")
	case strings.HasPrefix(s, "bars(") && strings.HasSuffix(s, ")"):
		return arrangement.TransitionBars, parseParenInt(s, "bars(")
	case strings.HasPrefix(s, "crossfade(") && strings.HasSuffix(s, ")"):
		return arrangement.TransitionCrossfade, parseParenInt(s, "crossfade(")
	default:
		return arrangement.TransitionImmediate, 0
	}
}

func parseParenInt(s, prefix string) int {
	inner := strings.TrimSuffix(strings.TrimPrefix(s, prefix), ")")
	n := 0
	fmt.Sscanf(inner, "%d", &n)
	return n
}

func buildScene(index int, sc SceneConfig) *arrangement.Scene {
	scn := &arrangement.Scene{Index: index, LaunchMode: trigger.Bar}
	for _, slot := range sc.Slots {
		scn.Assignments = append(scn.Assignments, arrangement.SceneAssignment{
			TrackID:       slot.Track,
			Slot:          arrangement.SceneSlot(parseTrackState(slot.State)),
			ClipID:        slot.ClipID,
			GeneratorName: slot.Generator,
		})
	}
	if sc.Follow != nil {
		scn.Follow = buildSceneFollow(sc.Follow)
	}
	return scn
}

func buildSections(secs []SongSectionConfig) []arrangement.SongSection {
	out := make([]arrangement.SongSection, 0, len(secs))
	for _, s := range secs {
		sceneIdx := -1
		if s.SceneIndex != nil {
			sceneIdx = *s.SceneIndex
		}
		out = append(out, arrangement.SongSection{
			PartName:   s.Part,
			LengthBars: s.LengthBars,
			TempoBPM:   s.Tempo,
			TimeSigNum: s.TimeSignature[0],
			TimeSigDen: s.TimeSignature[1],
			SceneIndex: sceneIdx,
			LoopPoint:  s.LoopPoint,
		})
	}
	return out
}
