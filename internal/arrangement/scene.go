package arrangement

import (
	"math/rand"

	"seq/internal/trigger"
)

// SceneSlot is what a Scene assigns to one track, mirroring Part's
// TrackClipState but scoped to a single simultaneous launch (spec §3).
type SceneSlot int

const (
	SlotEmpty SceneSlot = iota
	SlotClip
	SlotGenerator
	SlotStop
	SlotHold
)

// SceneAssignment is one track's slot within a Scene.
type SceneAssignment struct {
	TrackID       int
	Slot          SceneSlot
	ClipID        string
	GeneratorName string
}

// FollowTriple is the (action, after_bars, repeat) triple attached to a
// Scene (spec §3, §4.6): which scene plays next, how many bars after this
// one launched, and whether the follow keeps firing or is one-shot.
type FollowTriple struct {
	Action    trigger.FollowAction
	AfterBars int
	Repeat    bool

	SpecificScene int // FollowSpecific

	EitherA, EitherB int     // FollowEither, scene indices
	EitherWeightA    float64 // probability of choosing EitherA, in [0,1]
}

// Scene is a vector of SceneSlot plus a launch mode and follow-action
// triple (spec §3).
type Scene struct {
	Index       int
	Assignments []SceneAssignment
	LaunchMode  trigger.Quantize
	Follow      FollowTriple

	launchedAtTick uint64
	launched       bool
}

// Launch marks the scene as having begun playing at startTick, so its
// follow action can be scheduled AfterBars bars later.
func (s *Scene) Launch(startTick uint64) {
	s.launchedAtTick = startTick
	s.launched = true
}

// FollowBoundary computes the tick the scene's follow action fires at,
// given the tick grid's ticks-per-bar (96 at 24 PPQN / 4 beats).
func (s *Scene) FollowBoundary(ticksPerBar uint64) (uint64, bool) {
	if !s.launched || s.Follow.AfterBars <= 0 {
		return 0, false
	}
	return s.launchedAtTick + uint64(s.Follow.AfterBars)*ticksPerBar, true
}

// ResolveFollow computes the scene index this scene's follow action selects
// next, given the total scene count. Mirrors trigger.FollowSpec.Resolve but
// over scene indices rather than clip ids, since a Scene is a whole-track
// vector rather than a single sibling list a clip belongs to.
func (s *Scene) ResolveFollow(sceneCount int, rng *rand.Rand) (int, bool) {
	if sceneCount == 0 {
		return 0, false
	}
	switch s.Follow.Action {
	case trigger.FollowNext:
		return (s.Index + 1) % sceneCount, true
	case trigger.FollowPrevious:
		idx := s.Index - 1
		if idx < 0 {
			idx = sceneCount - 1
		}
		return idx, true
	case trigger.FollowFirst:
		return 0, true
	case trigger.FollowLast:
		return sceneCount - 1, true
	case trigger.FollowRandom:
		return rng.Intn(sceneCount), true
	case trigger.FollowSpecific:
		return s.Follow.SpecificScene, true
	case trigger.FollowEither:
		if rng.Float64() < s.Follow.EitherWeightA {
			return s.Follow.EitherA, true
		}
		return s.Follow.EitherB, true
	case trigger.FollowAgain:
		return s.Index, true
	default:
		return 0, false
	}
}

// ClearFollow stops FollowBoundary from firing again for the current
// launch window; callers that want the follow action to repeat should call
// Launch again instead of ClearFollow.
func (s *Scene) ClearFollow() {
	s.launched = false
}

// NonHoldTriggers builds the set of per-track triggers a scene launch
// produces: every non-Hold slot becomes a clip trigger quantized to the
// scene's launch mode (spec §4.7).
func (s *Scene) NonHoldTriggers(nowTick uint64) []trigger.PendingTrigger {
	var out []trigger.PendingTrigger
	for _, a := range s.Assignments {
		if a.Slot == SlotHold {
			continue
		}
		ref := trigger.ClipOrSceneRef{TrackID: a.TrackID, ClipID: a.ClipID}
		out = append(out, trigger.PendingTrigger{Ref: ref, Quantize: s.LaunchMode, EnqueuedAtTick: nowTick})
	}
	return out
}
