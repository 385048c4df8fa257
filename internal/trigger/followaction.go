package trigger

import "math/rand"

// FollowAction selects the successor enqueued when a clip enters Stopped
// naturally (spec §4.6).
type FollowAction int

const (
	FollowNone FollowAction = iota
	FollowNext
	FollowPrevious
	FollowFirst
	FollowLast
	FollowRandom
	FollowSpecific
	FollowEither
	FollowAgain
)

// FollowSpec configures a clip's follow-action behavior.
type FollowSpec struct {
	Action FollowAction

	SpecificID string // FollowSpecific

	EitherA, EitherB string  // FollowEither
	EitherWeightA    float64 // probability of choosing EitherA, in [0,1]
}

// Resolve computes the clip id to trigger next, given the ordered list
// of sibling clip ids in this track and the currently-ending clip's
// index within it. Returns ("", false) for FollowNone or an
// out-of-range index.
func (f FollowSpec) Resolve(siblings []string, currentIdx int, rng *rand.Rand) (string, bool) {
	if len(siblings) == 0 {
		return "", false
	}
	switch f.Action {
	case FollowNext, FollowPrevious, FollowAgain:
		if currentIdx < 0 || currentIdx >= len(siblings) {
			return "", false
		}
	}
	switch f.Action {
	case FollowNext:
		return siblings[(currentIdx+1)%len(siblings)], true
	case FollowPrevious:
		idx := currentIdx - 1
		if idx < 0 {
			idx = len(siblings) - 1
		}
		return siblings[idx], true
	case FollowFirst:
		return siblings[0], true
	case FollowLast:
		return siblings[len(siblings)-1], true
	case FollowRandom:
		return siblings[rng.Intn(len(siblings))], true
	case FollowSpecific:
		if f.SpecificID == "" {
			return "", false
		}
		return f.SpecificID, true
	case FollowEither:
		if rng.Float64() < f.EitherWeightA {
			return f.EitherA, true
		}
		return f.EitherB, true
	case FollowAgain:
		if currentIdx < 0 || currentIdx >= len(siblings) {
			return "", false
		}
		return siblings[currentIdx], true
	default:
		return "", false
	}
}
