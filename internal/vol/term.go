package vol

import (
	"errors"
	"fmt"
	"sort"
)

var ErrDegenerateTermStructure = errors.New("not enough distinct expiry days to build term structure")

// TermStructure is an implied-volatility curve over days to expiry, built
// once from ATM samples and immutable afterwards. Queries interpolate
// linearly between samples and hold flat outside the sampled range.
type TermStructure struct {
	days []float64
	ivs  []float64
}

// NewTermStructure builds a term structure from parallel (days, iv) slices.
// Duplicate day values collapse to the last one after sorting; fewer than
// two distinct days is an error.
func NewTermStructure(days []int, ivs []float64) (*TermStructure, error) {
	if len(days) != len(ivs) {
		return nil, fmt.Errorf("days/ivs length mismatch: %d vs %d", len(days), len(ivs))
	}

	type point struct {
		day float64
		iv  float64
	}
	points := make([]point, len(days))
	for i := range days {
		points[i] = point{day: float64(days[i]), iv: ivs[i]}
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].day < points[j].day })

	ts := &TermStructure{}
	for _, p := range points {
		if n := len(ts.days); n > 0 && ts.days[n-1] == p.day {
			// Keep the last value for a repeated day, never average.
			ts.ivs[n-1] = p.iv
			continue
		}
		ts.days = append(ts.days, p.day)
		ts.ivs = append(ts.ivs, p.iv)
	}

	if len(ts.days) < 2 {
		return nil, fmt.Errorf("%w: %d distinct", ErrDegenerateTermStructure, len(ts.days))
	}
	return ts, nil
}

// IV returns the implied volatility at the given days-to-expiry horizon.
func (ts *TermStructure) IV(dte float64) float64 {
	if dte <= ts.days[0] {
		return ts.ivs[0]
	}
	if dte >= ts.days[len(ts.days)-1] {
		return ts.ivs[len(ts.ivs)-1]
	}

	i := sort.SearchFloat64s(ts.days, dte)
	if ts.days[i] == dte {
		return ts.ivs[i]
	}
	d0, d1 := ts.days[i-1], ts.days[i]
	v0, v1 := ts.ivs[i-1], ts.ivs[i]
	return v0 + (v1-v0)*(dte-d0)/(d1-d0)
}

// MinDays returns the shortest sampled horizon.
func (ts *TermStructure) MinDays() int {
	return int(ts.days[0])
}

// MaxDays returns the longest sampled horizon.
func (ts *TermStructure) MaxDays() int {
	return int(ts.days[len(ts.days)-1])
}
