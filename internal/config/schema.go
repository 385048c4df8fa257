// Package config implements the YAML configuration schema (spec §6), a
// fail-fast Validate() that produces a ConfigError on the first problem
// found, and LoadSong, the file-loading entry point. YAML tagging and
// the load-then-validate shape are grounded directly on the teacher's
// parser.LoadTrack (parser/parser.go): gopkg.in/yaml.v3 struct tags and
// post-unmarshal default-filling. Every field has one fixed YAML shape;
// there is no scalar-or-list union unmarshaler.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigError reports a configuration problem discovered at load time
// (spec §7): these must never reach runtime.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Song is the top-level song document (spec §6).
type Song struct {
	Name          string             `yaml:"name"`
	Tempo         float64            `yaml:"tempo"`
	TimeSignature [2]int             `yaml:"time_signature,omitempty"`
	Key           string             `yaml:"key,omitempty"`
	Scale         string             `yaml:"scale,omitempty"`
	Tracks        []TrackConfig      `yaml:"tracks"`
	Parts         []PartConfig       `yaml:"parts,omitempty"`
	Scenes        []SceneConfig      `yaml:"scenes,omitempty"`
	SongConfig    *SongSectionsConfig `yaml:"song,omitempty"`
	Controllers   []ControllerConfig `yaml:"controllers,omitempty"`
}

// TrackConfig describes one track (spec §6).
type TrackConfig struct {
	Name          string           `yaml:"name"`
	Channel       int              `yaml:"channel"`
	Transpose     int              `yaml:"transpose,omitempty"`
	VelocityScale float64          `yaml:"velocity_scale,omitempty"`
	Swing         float64          `yaml:"swing,omitempty"`
	Generator     *GeneratorConfig `yaml:"generator,omitempty"`
	Clips         []ClipConfig     `yaml:"clips,omitempty"`
}

// GeneratorConfig is a tagged union on Type (spec §4.4, §6). Only the
// fields relevant to Type are populated; unused fields are simply left
// at zero — generators silently ignore parameters they don't recognize
// via Generator.SetParam, so there is no need for a stricter sum type
// here.
type GeneratorConfig struct {
	Type string `yaml:"type"` // drone | arpeggio | chord | melody | drums

	Voices     int     `yaml:"voices,omitempty"`
	ChangeRate int     `yaml:"change_rate,omitempty"`
	Sigma      float64 `yaml:"sigma,omitempty"`
	MaxLeap    int     `yaml:"max_leap,omitempty"`

	OctaveRange int     `yaml:"octave_range,omitempty"`
	Pattern     string  `yaml:"pattern,omitempty"`
	Rate        int     `yaml:"rate,omitempty"`
	Gate        float64 `yaml:"gate,omitempty"`
	Probability float64 `yaml:"probability,omitempty"`
	UseEuclid   bool    `yaml:"use_euclid,omitempty"`
	EuclidK     int     `yaml:"euclid_k,omitempty"`
	EuclidN     int     `yaml:"euclid_n,omitempty"`
	EuclidRot   int     `yaml:"euclid_rotation,omitempty"`

	Mode       string `yaml:"mode,omitempty"` // functional | random_in_key | custom
	Extensions []int  `yaml:"extensions,omitempty"`
	Voicing    string `yaml:"voicing,omitempty"`
	Inversion  int    `yaml:"inversion,omitempty"`
	VoiceLed   bool   `yaml:"voice_led,omitempty"`

	NoteMin         int     `yaml:"note_min,omitempty"`
	NoteMax         int     `yaml:"note_max,omitempty"`
	RestProbability float64 `yaml:"rest_probability,omitempty"`
	PhraseLength    int     `yaml:"phrase_length,omitempty"`

	Style            string  `yaml:"style,omitempty"`
	FillProbability  float64 `yaml:"fill_probability,omitempty"`
	FillLength       int     `yaml:"fill_length,omitempty"`
	HumanizeTiming   float64 `yaml:"humanize_timing,omitempty"`
	HumanizeVelocity float64 `yaml:"humanize_velocity,omitempty"`

	Velocity int `yaml:"velocity,omitempty"`
}

// ClipConfig describes a static or generated clip.
type ClipConfig struct {
	ID          string  `yaml:"id"`
	Type        string  `yaml:"type,omitempty"` // sequenced | generated | hybrid
	GeneratorID string  `yaml:"generator_id,omitempty"`
	Mode        string  `yaml:"mode,omitempty"` // one_shot | loop | loop_count | ping_pong
	LoopCount   int     `yaml:"loop_count,omitempty"`
	LoopStart   int     `yaml:"loop_start,omitempty"`
	LoopEnd     int     `yaml:"loop_end,omitempty"`
	Length      int     `yaml:"length"`
	Notes       []NoteConfig `yaml:"notes,omitempty"`
	Follow      *FollowConfig `yaml:"follow,omitempty"` // what to trigger next when this clip ends naturally (spec §4.6)
}

// NoteConfig is one static note list entry.
type NoteConfig struct {
	Position int `yaml:"position"`
	Pitch    int `yaml:"pitch"`
	Velocity int `yaml:"velocity"`
	Duration int `yaml:"duration"`
}

// PartConfig describes a Part (spec §3, §4.7).
type PartConfig struct {
	Name        string              `yaml:"name"`
	Tracks      []PartTrackConfig   `yaml:"tracks"`
	Transition  string              `yaml:"transition,omitempty"` // immediate | next_beat | next_bar | beats(n) | bars(n) | end_of_phrase | crossfade(n)
	Macros      []MacroConfig       `yaml:"macros,omitempty"`
}

// PartTrackConfig assigns one track's state within a Part.
type PartTrackConfig struct {
	Track     int    `yaml:"track"`
	State     string `yaml:"state"` // empty | clip | generator | stop | hold
	ClipID    string `yaml:"clip_id,omitempty"`
	Generator string `yaml:"generator,omitempty"`
}

// MacroConfig is one macro action fired with a part/scene transition.
type MacroConfig struct {
	Kind      string  `yaml:"kind"` // set_tempo | set_param | mute | solo | send_midi
	TempoBPM  float64 `yaml:"tempo,omitempty"`
	Track     int     `yaml:"track,omitempty"`
	ParamName string  `yaml:"param_name,omitempty"`
	ParamVal  float64 `yaml:"param_value,omitempty"`
	RawMIDI   []int   `yaml:"raw_midi,omitempty"`
}

// SceneConfig describes a Scene (spec §3, §4.7).
type SceneConfig struct {
	Slots      []PartTrackConfig `yaml:"slots"`
	LaunchMode string            `yaml:"launch_mode,omitempty"`
	Follow     *FollowConfig     `yaml:"follow,omitempty"`
}

// FollowConfig is a scene's (or clip's) follow-action triple (spec §3, §4.6).
type FollowConfig struct {
	Action    string `yaml:"action,omitempty"` // next | previous | first | last | random | specific | either | again
	AfterBars int    `yaml:"after_bars"`
	Repeat    bool   `yaml:"repeat,omitempty"`

	Specific string `yaml:"specific,omitempty"` // clip id (clip follow) or scene index (scene follow)

	EitherA       string  `yaml:"either_a,omitempty"`
	EitherB       string  `yaml:"either_b,omitempty"`
	EitherWeightA float64 `yaml:"either_weight_a,omitempty"`
}

// SongSectionsConfig describes the Song player's section timeline (spec §3).
type SongSectionsConfig struct {
	Sections []SongSectionConfig `yaml:"sections"`
	Loop     *LoopRegionConfig   `yaml:"loop,omitempty"`
}

// SongSectionConfig is one ordered section of the song timeline.
type SongSectionConfig struct {
	Part          string  `yaml:"part"`
	LengthBars    int     `yaml:"length_bars"`
	Tempo         float64 `yaml:"tempo,omitempty"`
	TimeSignature [2]int  `yaml:"time_signature,omitempty"`
	SceneIndex    *int    `yaml:"scene_index,omitempty"` // nil means "no scene launch for this section"
	LoopPoint     bool    `yaml:"loop_point,omitempty"`
}

// LoopRegionConfig describes a repeating span of sections.
type LoopRegionConfig struct {
	StartSection int `yaml:"start_section"`
	EndSection   int `yaml:"end_section"`
	Repeats      int `yaml:"repeats,omitempty"`
}

// ControllerConfig describes an external MIDI controller mapping,
// consumed as validated configuration; the mapping-decoder implementation
// itself is an external collaborator outside this module's scope.
type ControllerConfig struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
}

// LoadSong reads and parses a song document from filename.
func LoadSong(filename string) (*Song, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("reading %s: %v", filename, err)}
	}
	var song Song
	if err := yaml.Unmarshal(data, &song); err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("parsing %s: %v", filename, err)}
	}
	song.applyDefaults()
	if err := song.Validate(); err != nil {
		return nil, err
	}
	return &song, nil
}

func (s *Song) applyDefaults() {
	if s.TimeSignature == [2]int{0, 0} {
		s.TimeSignature = [2]int{4, 4}
	}
	if s.Key == "" {
		s.Key = "C"
	}
	if s.Scale == "" {
		s.Scale = "major"
	}
	for i := range s.Tracks {
		if s.Tracks[i].VelocityScale == 0 {
			s.Tracks[i].VelocityScale = 1.0
		}
	}
}
