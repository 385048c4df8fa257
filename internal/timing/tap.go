package timing

import "time"

const (
	tapRingSize  = 8
	tapResetGap  = 2 * time.Second
	tapOutlierHi = 2.0 // discard intervals more than 2x the running median
)

// tapTempo implements tap-tempo estimation from a ring buffer of recent
// tap timestamps, discarding outlier intervals so a single mistimed tap
// doesn't throw off the estimate (spec §4.2).
type tapTempo struct {
	taps []time.Time // ring buffer, most recent last, capped at tapRingSize
}

func newTapTempo() *tapTempo {
	return &tapTempo{taps: make([]time.Time, 0, tapRingSize)}
}

// Tap records a tap at `now` and returns the estimated BPM and whether
// enough data exists yet to estimate (need at least two taps).
func (t *tapTempo) Tap(now time.Time) (bpm float64, ok bool) {
	if len(t.taps) > 0 && now.Sub(t.taps[len(t.taps)-1]) > tapResetGap {
		t.taps = t.taps[:0]
	}
	t.taps = append(t.taps, now)
	if len(t.taps) > tapRingSize {
		t.taps = t.taps[len(t.taps)-tapRingSize:]
	}
	if len(t.taps) < 2 {
		return 0, false
	}

	intervals := make([]float64, 0, len(t.taps)-1)
	for i := 1; i < len(t.taps); i++ {
		intervals = append(intervals, t.taps[i].Sub(t.taps[i-1]).Seconds())
	}
	median := medianOf(intervals)
	var sum float64
	var n int
	for _, iv := range intervals {
		if median > 0 && iv > median*tapOutlierHi {
			continue
		}
		sum += iv
		n++
	}
	if n == 0 {
		return 0, false
	}
	avg := sum / float64(n)
	if avg <= 0 {
		return 0, false
	}
	return clampTempo(60.0 / avg), true
}

// Reset clears accumulated taps.
func (t *tapTempo) Reset() {
	t.taps = t.taps[:0]
}

func medianOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Tap records a tap against the clock's tap-tempo estimator and, once
// enough taps have accumulated, applies the estimated tempo at the
// clock's current tick.
func (c *Clock) Tap(now time.Time) (bpm float64, ok bool) {
	c.mu.Lock()
	tap := c.tap
	c.mu.Unlock()

	bpm, ok = tap.Tap(now)
	if !ok {
		return 0, false
	}
	c.SetTempo(now, bpm)
	return bpm, true
}

// ResetTap clears the tap-tempo estimator's history.
func (c *Clock) ResetTap() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tap.Reset()
}
