// Package arrangement implements parts (whole-track state snapshots),
// scenes (horizontal slot matrices), and the song timeline, plus the
// indirect registry resolving clip/generator/part references by
// string/integer key so hot-reload can swap configuration atomically
// (spec §4.7, §9). The indirect-reference-through-a-lookup-table idiom
// is grounded on the teacher's own clean separation between
// parser.Track (config) and player.RealtimePlayer (runtime session) in
// player/realtime.go, generalized into an explicit swappable registry.
package arrangement

import "seq/internal/trigger"

// TrackClipState is what a Part assigns to one track (spec §3).
type TrackClipState int

const (
	StateEmpty TrackClipState = iota
	StateClip
	StateGenerator
	StateStop
	StateHold
)

// MacroActionKind tags the variant carried by a MacroAction.
type MacroActionKind int

const (
	MacroSetTempo MacroActionKind = iota
	MacroSetParam
	MacroMuteToggle
	MacroSoloToggle
	MacroSendMIDI
)

// MacroAction is a side-effect fired alongside a part transition (spec §4.7).
type MacroAction struct {
	Kind MacroActionKind

	TempoBPM float64 // MacroSetTempo

	TrackID   int     // MacroSetParam / MacroMuteToggle / MacroSoloToggle
	ParamName string  // MacroSetParam
	ParamVal  float64 // MacroSetParam

	RawMIDI []byte // MacroSendMIDI
}

// TrackAssignment is one track's slot within a Part.
type TrackAssignment struct {
	TrackID     int
	State       TrackClipState
	ClipID      string // StateClip
	GeneratorName string // StateGenerator
}

// PartTransition selects how a Part transition is quantized, or whether it
// crossfades instead of cutting over at a boundary (spec §3). Unlike
// trigger.Quantize (which only ever picks a firing tick), Crossfade is a
// genuinely different mechanism: the outgoing and incoming track state
// overlap and ramp for TransitionN ticks rather than swapping instantly.
type PartTransition int

const (
	TransitionImmediate PartTransition = iota
	TransitionNextBeat
	TransitionNextBar
	TransitionBeats  // uses TransitionN
	TransitionBars   // uses TransitionN
	TransitionEndOfPhrase
	TransitionCrossfade // uses TransitionN as a tick duration, not a quantize unit
)

// quantize converts everything but Crossfade to the trigger package's
// boundary-quantize unit; Crossfade has no trigger.Quantize equivalent and
// must be special-cased by callers.
func (t PartTransition) quantize() trigger.Quantize {
	switch t {
	case TransitionNextBeat:
		return trigger.Beat
	case TransitionNextBar:
		return trigger.Bar
	case TransitionBeats:
		return trigger.Beats
	case TransitionBars:
		return trigger.Bars
	case TransitionEndOfPhrase:
		return trigger.Phrase
	default:
		return trigger.Immediate
	}
}

// Part is a mapping from track index to TrackClipState plus a
// PartTransition and macro actions (spec §3).
type Part struct {
	Name        string
	Assignments []TrackAssignment
	Transition  PartTransition
	TransitionN int // Beats(n)/Bars(n)/Crossfade(ticks)
	Macros      []MacroAction
}

// Manager owns the set of known parts and enforces "only one pending
// part per manager: a new trigger cancels the prior pending one" (spec §4.7).
type Manager struct {
	Parts map[string]*Part

	pendingPart *Part
	pendingAt   uint64
}

// NewManager builds an empty part manager.
func NewManager() *Manager {
	return &Manager{Parts: make(map[string]*Part)}
}

// AddPart registers a part by name.
func (m *Manager) AddPart(p *Part) { m.Parts[p.Name] = p }

// TriggerPart queues a part transition, cancelling any prior pending
// part. Returns false if the part name is unknown (stale reference,
// treated as Hold per spec §9).
func (m *Manager) TriggerPart(name string, enqueuedAtTick uint64) bool {
	p, ok := m.Parts[name]
	if !ok {
		return false
	}
	m.pendingPart = p
	if p.Transition == TransitionCrossfade {
		// A crossfade begins immediately and ramps for TransitionN ticks;
		// there is no boundary to wait for the way quantized transitions have.
		m.pendingAt = enqueuedAtTick
		return true
	}
	p2 := trigger.PendingTrigger{Quantize: p.Transition.quantize(), N: p.TransitionN, EnqueuedAtTick: enqueuedAtTick}
	m.pendingAt = p2.Boundary()
	return true
}

// PendingBoundary returns the tick the pending part transition fires at,
// and whether a part is in fact pending.
func (m *Manager) PendingBoundary() (uint64, bool) {
	if m.pendingPart == nil {
		return 0, false
	}
	return m.pendingAt, true
}

// Poll returns the pending part and clears pending state if nowTick has
// reached its boundary; the caller is responsible for actually applying
// the Part's assignments and macros to tracks at that instant.
func (m *Manager) Poll(nowTick uint64) (*Part, bool) {
	if m.pendingPart == nil || nowTick < m.pendingAt {
		return nil, false
	}
	p := m.pendingPart
	m.pendingPart = nil
	return p, true
}
