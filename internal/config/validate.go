package config

import "fmt"

var validGeneratorTypes = map[string]bool{
	"drone": true, "arpeggio": true, "chord": true, "melody": true, "drums": true,
}

var validClipModes = map[string]bool{
	"one_shot": true, "loop": true, "loop_count": true, "ping_pong": true,
}

var validClipTypes = map[string]bool{
	"sequenced": true, "generated": true, "hybrid": true,
}

var validTrackStates = map[string]bool{
	"empty": true, "clip": true, "generator": true, "stop": true, "hold": true,
}

// Validate performs fail-fast structural checks (spec §7's Configuration
// error class): malformed song documents are rejected before any audio
// thread starts, mirroring the teacher's parser.LoadTrack validation of
// BarsPerChord/Repeat at load time rather than at playback time.
func (s *Song) Validate() error {
	if s.Tempo <= 0 {
		return &ConfigError{Field: "tempo", Msg: "must be positive"}
	}
	if len(s.Tracks) == 0 {
		return &ConfigError{Field: "tracks", Msg: "song must define at least one track"}
	}

	trackNames := make(map[string]bool, len(s.Tracks))
	channels := make(map[int]bool, len(s.Tracks))
	clipIDs := make(map[string]bool)

	for i, tr := range s.Tracks {
		if tr.Name == "" {
			return &ConfigError{Field: fmt.Sprintf("tracks[%d].name", i), Msg: "must not be empty"}
		}
		if trackNames[tr.Name] {
			return &ConfigError{Field: fmt.Sprintf("tracks[%d].name", i), Msg: "duplicate track name " + tr.Name}
		}
		trackNames[tr.Name] = true

		if tr.Channel < 0 || tr.Channel > 15 {
			return &ConfigError{Field: fmt.Sprintf("tracks[%d].channel", i), Msg: "must be in [0,15]"}
		}
		channels[tr.Channel] = true

		if tr.Transpose < -48 || tr.Transpose > 48 {
			return &ConfigError{Field: fmt.Sprintf("tracks[%d].transpose", i), Msg: "must be in [-48,48]"}
		}
		if tr.VelocityScale < 0 || tr.VelocityScale > 2 {
			return &ConfigError{Field: fmt.Sprintf("tracks[%d].velocity_scale", i), Msg: "must be in [0,2]"}
		}

		if tr.Generator != nil {
			if err := tr.Generator.validate(i); err != nil {
				return err
			}
		}
		for j, c := range tr.Clips {
			if c.ID == "" {
				return &ConfigError{Field: fmt.Sprintf("tracks[%d].clips[%d].id", i, j), Msg: "must not be empty"}
			}
			if clipIDs[c.ID] {
				return &ConfigError{Field: fmt.Sprintf("tracks[%d].clips[%d].id", i, j), Msg: "duplicate clip id " + c.ID}
			}
			clipIDs[c.ID] = true
			if err := c.validate(i, j); err != nil {
				return err
			}
		}
	}

	partNames := make(map[string]bool, len(s.Parts))
	for i, p := range s.Parts {
		if p.Name == "" {
			return &ConfigError{Field: fmt.Sprintf("parts[%d].name", i), Msg: "must not be empty"}
		}
		if partNames[p.Name] {
			return &ConfigError{Field: fmt.Sprintf("parts[%d].name", i), Msg: "duplicate part name " + p.Name}
		}
		partNames[p.Name] = true
		for j, ta := range p.Tracks {
			if !validTrackStates[ta.State] {
				return &ConfigError{Field: fmt.Sprintf("parts[%d].tracks[%d].state", i, j), Msg: "unknown state " + ta.State}
			}
			if ta.State == "clip" && !clipIDs[ta.ClipID] {
				return &ConfigError{Field: fmt.Sprintf("parts[%d].tracks[%d].clip_id", i, j), Msg: "references unknown clip " + ta.ClipID}
			}
		}
	}

	for i, sc := range s.Scenes {
		for j, slot := range sc.Slots {
			if !validTrackStates[slot.State] {
				return &ConfigError{Field: fmt.Sprintf("scenes[%d].slots[%d].state", i, j), Msg: "unknown state " + slot.State}
			}
		}
	}

	if s.SongConfig != nil {
		for i, sec := range s.SongConfig.Sections {
			if sec.Part != "" && !partNames[sec.Part] {
				return &ConfigError{Field: fmt.Sprintf("song.sections[%d].part", i), Msg: "references unknown part " + sec.Part}
			}
			if sec.LengthBars <= 0 {
				return &ConfigError{Field: fmt.Sprintf("song.sections[%d].length_bars", i), Msg: "must be positive"}
			}
		}
		if loop := s.SongConfig.Loop; loop != nil {
			n := len(s.SongConfig.Sections)
			if loop.StartSection < 0 || loop.StartSection >= n || loop.EndSection < loop.StartSection || loop.EndSection >= n {
				return &ConfigError{Field: "song.loop", Msg: "loop region out of range of sections"}
			}
		}
	}

	return nil
}

func (g *GeneratorConfig) validate(trackIdx int) error {
	if !validGeneratorTypes[g.Type] {
		return &ConfigError{Field: fmt.Sprintf("tracks[%d].generator.type", trackIdx), Msg: "unknown generator type " + g.Type}
	}
	if g.Probability < 0 || g.Probability > 1 {
		return &ConfigError{Field: fmt.Sprintf("tracks[%d].generator.probability", trackIdx), Msg: "must be in [0,1]"}
	}
	if g.RestProbability < 0 || g.RestProbability > 1 {
		return &ConfigError{Field: fmt.Sprintf("tracks[%d].generator.rest_probability", trackIdx), Msg: "must be in [0,1]"}
	}
	return nil
}

func (c *ClipConfig) validate(trackIdx, clipIdx int) error {
	if c.Type != "" && !validClipTypes[c.Type] {
		return &ConfigError{Field: fmt.Sprintf("tracks[%d].clips[%d].type", trackIdx, clipIdx), Msg: "unknown clip type " + c.Type}
	}
	if c.Mode != "" && !validClipModes[c.Mode] {
		return &ConfigError{Field: fmt.Sprintf("tracks[%d].clips[%d].mode", trackIdx, clipIdx), Msg: "unknown clip mode " + c.Mode}
	}
	if c.Length <= 0 {
		return &ConfigError{Field: fmt.Sprintf("tracks[%d].clips[%d].length", trackIdx, clipIdx), Msg: "must be positive"}
	}
	if c.Mode == "loop" || c.Mode == "ping_pong" || c.Mode == "loop_count" {
		if !(c.LoopStart < c.LoopEnd && c.LoopEnd <= c.Length) {
			return &ConfigError{Field: fmt.Sprintf("tracks[%d].clips[%d]", trackIdx, clipIdx), Msg: "requires 0 <= loop_start < loop_end <= length"}
		}
	}
	for k, n := range c.Notes {
		if n.Pitch < 0 || n.Pitch > 127 {
			return &ConfigError{Field: fmt.Sprintf("tracks[%d].clips[%d].notes[%d].pitch", trackIdx, clipIdx, k), Msg: "must be in [0,127]"}
		}
	}
	return nil
}
