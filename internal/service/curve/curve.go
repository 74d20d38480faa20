// Package curve implements anchored series interpolation for projection
// lines. Anchors are weeks pinned to real data; everything between two
// anchors is rewritten along the chosen shape, values before the first
// anchor keep their original curve, and values after the last anchor are
// held flat.
package curve

import "sort"

// Shape selects the interpolation curve between two anchors.
type Shape string

const (
	// Sigmoid follows the smoothstep curve, modeling decelerating growth.
	Sigmoid Shape = "sigmoid"
	// Linear interpolates in a straight line, used for survival.
	Linear Shape = "linear"
)

// smoothFactor maps t in [0,1] onto the smoothstep curve 3t^2 - 2t^3.
func smoothFactor(t float64) float64 {
	return t * t * (3 - 2*t)
}

func factor(t float64, shape Shape) float64 {
	if shape == Sigmoid {
		return smoothFactor(t)
	}
	return t
}

// Interpolate returns a copy of values with every non-anchored index
// between consecutive anchors rewritten along the shape. Anchored
// indices keep their value. Indices before the first anchor are left
// untouched; indices after the last anchor hold the last anchor's value
// flat. With no valid anchors the series is returned unchanged.
func Interpolate(values []float64, anchors []int, shape Shape) []float64 {
	out := append([]float64(nil), values...)
	idx := normalizeAnchors(anchors, len(values))
	if len(idx) == 0 {
		return out
	}

	for k := 0; k+1 < len(idx); k++ {
		a, b := idx[k], idx[k+1]
		va, vb := out[a], out[b]
		span := float64(b - a)
		for i := a + 1; i < b; i++ {
			t := float64(i-a) / span
			out[i] = va + (vb-va)*factor(t, shape)
		}
	}

	last := idx[len(idx)-1]
	for i := last + 1; i < len(out); i++ {
		out[i] = out[last]
	}
	return out
}

// ForceLast interpolates like Interpolate but first pins the final index
// to target, so the series terminates exactly at the target value. The
// final index joins the anchor set.
func ForceLast(values []float64, anchors []int, target float64, shape Shape) []float64 {
	if len(values) == 0 {
		return nil
	}
	pinned := append([]float64(nil), values...)
	lastIdx := len(pinned) - 1
	pinned[lastIdx] = target
	return Interpolate(pinned, append(append([]int(nil), anchors...), lastIdx), shape)
}

// WeeklyGains derives per-week weight gains from a weight series. The
// first entry is zero.
func WeeklyGains(weights []float64) []float64 {
	if len(weights) == 0 {
		return nil
	}
	gains := make([]float64, len(weights))
	for i := 1; i < len(weights); i++ {
		gains[i] = weights[i] - weights[i-1]
	}
	return gains
}

// normalizeAnchors sorts, deduplicates, and drops out-of-range indices.
func normalizeAnchors(anchors []int, n int) []int {
	var idx []int
	for _, a := range anchors {
		if a >= 0 && a < n {
			idx = append(idx, a)
		}
	}
	sort.Ints(idx)
	out := idx[:0]
	for i, a := range idx {
		if i == 0 || a != idx[i-1] {
			out = append(out, a)
		}
	}
	return out
}
