package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolateSigmoidBetweenAnchors(t *testing.T) {
	t.Parallel()

	// Weights known at weeks 0 and 8 only, the rest is filled in.
	values := make([]float64, 9)
	values[0] = 0.02
	values[8] = 12.0

	got := Interpolate(values, []int{0, 8}, Sigmoid)

	require.Len(t, got, 9)
	assert.InDelta(t, 0.02, got[0], 1e-9)
	assert.InDelta(t, 12.0, got[8], 1e-9)
	for i := 1; i < 9; i++ {
		assert.Greater(t, got[i], got[i-1], "weight must strictly increase at week %d", i)
	}
	// Midpoint of smoothstep is the midpoint of the value range.
	assert.InDelta(t, 0.02+(12.0-0.02)*0.5, got[4], 1e-9)
}

func TestInterpolateLinearBetweenAnchors(t *testing.T) {
	t.Parallel()

	values := make([]float64, 9)
	values[0] = 100
	values[8] = 85

	got := Interpolate(values, []int{0, 8}, Linear)

	for i := 1; i < 9; i++ {
		assert.Less(t, got[i], got[i-1])
	}
	assert.InDelta(t, 100-15.0/8.0*3, got[3], 1e-9)
	assert.InDelta(t, 85, got[8], 1e-9)
}

func TestInterpolateFullyAnchoredIsNoOp(t *testing.T) {
	t.Parallel()

	values := []float64{1, 3, 2, 7, 5}
	anchors := []int{0, 1, 2, 3, 4}

	got := Interpolate(values, anchors, Sigmoid)
	assert.Equal(t, values, got)
}

func TestInterpolateSingleAnchorHoldsFlatForward(t *testing.T) {
	t.Parallel()

	values := []float64{10, 20, 30, 40, 50}
	got := Interpolate(values, []int{2}, Sigmoid)

	// Backward of the anchor the original curve is preserved.
	assert.Equal(t, []float64{10, 20}, got[:2])
	assert.Equal(t, []float64{30, 30, 30}, got[2:])
}

func TestInterpolateNoAnchorsReturnsCopy(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 3}
	got := Interpolate(values, nil, Linear)
	assert.Equal(t, values, got)

	got[0] = 99
	assert.Equal(t, 1.0, values[0], "input must not be mutated")
}

func TestInterpolateIgnoresOutOfRangeAnchors(t *testing.T) {
	t.Parallel()

	values := []float64{5, 0, 9}
	got := Interpolate(values, []int{-1, 0, 2, 7}, Linear)
	assert.Equal(t, []float64{5, 7, 9}, got)
}

func TestForceLastTerminatesExactly(t *testing.T) {
	t.Parallel()

	values := []float64{100, 96, 92, 88, 84, 80}
	got := ForceLast(values, []int{2}, 70, Linear)

	require.Len(t, got, 6)
	assert.Equal(t, 70.0, got[5], "series must hit the target exactly")
	assert.Equal(t, 92.0, got[2], "anchor value must survive")
	// Linear descent between anchor and the forced terminal.
	assert.InDelta(t, 92-(92-70)/3.0, got[3], 1e-9)
	assert.InDelta(t, 92-(92-70)/3.0*2, got[4], 1e-9)
}

func TestForceLastWithAnchorAtEnd(t *testing.T) {
	t.Parallel()

	values := []float64{100, 90, 80}
	got := ForceLast(values, []int{2}, 75, Linear)
	assert.Equal(t, 75.0, got[2], "terminal target wins over an anchor on the same index")
}

func TestWeeklyGains(t *testing.T) {
	t.Parallel()

	gains := WeeklyGains([]float64{0.02, 1.5, 4.0, 8.0})
	require.Len(t, gains, 4)
	assert.Equal(t, 0.0, gains[0])
	assert.InDelta(t, 1.48, gains[1], 1e-9)
	assert.InDelta(t, 2.5, gains[2], 1e-9)
	assert.InDelta(t, 4.0, gains[3], 1e-9)

	assert.Nil(t, WeeklyGains(nil))
}

func TestSmoothFactorShape(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, smoothFactor(0))
	assert.Equal(t, 1.0, smoothFactor(1))
	assert.InDelta(t, 0.5, smoothFactor(0.5), 1e-9)
	// Slow start, fast middle: the first quarter covers less ground than
	// a straight line would.
	assert.Less(t, smoothFactor(0.25), 0.25)
	assert.Greater(t, smoothFactor(0.75), 0.75)
}
