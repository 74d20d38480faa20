package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func TestLiveDensity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 15.0, LiveDensity(20, 0, 75), 1e-9)
	assert.InDelta(t, 12.0, LiveDensity(20, 5, 80), 1e-9)
	assert.InDelta(t, 0.0, LiveDensity(20, 20, 80), 1e-9)
}

func TestBiomassChain(t *testing.T) {
	t.Parallel()

	organisms := LiveOrganisms(12, 5000)
	assert.InDelta(t, 60000, organisms, 1e-9)
	assert.InDelta(t, 1200, BiomassKg(organisms, 20), 1e-9)
}

func TestWeightedAvgWeightExcludesUnmeasuredPonds(t *testing.T) {
	t.Parallel()

	ponds := []PondSample{
		{PondID: "p1", AreaM2: 1000, BaseDensity: 20, SurvivalPct: 100, AvgWeightG: fp(10)},
		{PondID: "p2", AreaM2: 1000, BaseDensity: 20, SurvivalPct: 100, AvgWeightG: fp(30)},
		{PondID: "p3", AreaM2: 9000, BaseDensity: 20, SurvivalPct: 100, AvgWeightG: nil},
	}

	got := WeightedAvgWeight(ponds)
	require.NotNil(t, got)
	// Equal populations on the two measured ponds; the unmeasured big
	// pond must not drag the mean toward zero.
	assert.InDelta(t, 20.0, *got, 1e-9)
}

func TestWeightedAvgWeightNilWhenNoReadings(t *testing.T) {
	t.Parallel()

	ponds := []PondSample{{PondID: "p1", AreaM2: 1000, BaseDensity: 20, SurvivalPct: 90}}
	assert.Nil(t, WeightedAvgWeight(ponds))
}

func TestWeightedDensity(t *testing.T) {
	t.Parallel()

	ponds := []PondSample{
		{AreaM2: 1000, BaseDensity: 20, SurvivalPct: 100},
		{AreaM2: 3000, BaseDensity: 40, SurvivalPct: 100},
	}
	got := WeightedDensity(ponds)
	require.NotNil(t, got)
	assert.InDelta(t, 35.0, *got, 1e-9)

	assert.Nil(t, WeightedDensity(nil))
}

func TestGlobalSurvivalCorrectsForWithdrawals(t *testing.T) {
	t.Parallel()

	// One pond, a quarter of the base density withdrawn, 80% survival on
	// the remnant. Naive live/base would report 60%, the remnant-based
	// figure must stay at 80%.
	ponds := []PondSample{
		{AreaM2: 1000, BaseDensity: 20, Withdrawals: 5, SurvivalPct: 80},
	}
	got := GlobalSurvival(ponds)
	require.NotNil(t, got)
	assert.InDelta(t, 80.0, *got, 1e-9)
}

func TestGlobalSurvivalWeightsByRemnantPopulation(t *testing.T) {
	t.Parallel()

	ponds := []PondSample{
		{AreaM2: 1000, BaseDensity: 20, SurvivalPct: 90},
		{AreaM2: 3000, BaseDensity: 20, SurvivalPct: 70},
	}
	got := GlobalSurvival(ponds)
	require.NotNil(t, got)
	assert.InDelta(t, 75.0, *got, 1e-9)
}

func TestGlobalSurvivalNilOnEmptyInput(t *testing.T) {
	t.Parallel()

	assert.Nil(t, GlobalSurvival(nil))
	assert.Nil(t, GlobalSurvival([]PondSample{{AreaM2: 1000, BaseDensity: 20, SurvivalPct: 0}}))
}

func TestTotalBiomassKg(t *testing.T) {
	t.Parallel()

	ponds := []PondSample{
		{AreaM2: 1000, BaseDensity: 20, SurvivalPct: 100, AvgWeightG: fp(10)},
		{AreaM2: 1000, BaseDensity: 20, SurvivalPct: 50, AvgWeightG: fp(20)},
		{AreaM2: 1000, BaseDensity: 20, SurvivalPct: 100},
	}
	// 20000*10/1000 + 10000*20/1000 = 200 + 200.
	assert.InDelta(t, 400.0, TotalBiomassKg(ponds), 1e-9)
}

func TestDeviationPct(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 10.0, DeviationPct(11, 10), 1e-9)
	assert.InDelta(t, -20.0, DeviationPct(8, 10), 1e-9)
	// Zero projection does not divide by zero.
	assert.False(t, isInfOrNaN(DeviationPct(5, 0)))
}

func isInfOrNaN(v float64) bool {
	return v != v || v > 1e308 || v < -1e308
}

func TestGrowthRate(t *testing.T) {
	t.Parallel()

	got := GrowthRate([]float64{2, 5, 9})
	assert.Equal(t, []float64{0, 3, 4}, got)
	assert.Nil(t, GrowthRate(nil))
}

func TestFCR(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.5, FCR(300, 200), 1e-9)
	assert.Equal(t, 0.0, FCR(300, 0))
}

func TestDaysToTargetWeight(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, DaysToTargetWeight(25, 20, 1.5))
	assert.Equal(t, -1, DaysToTargetWeight(10, 20, 0))
	assert.Equal(t, 14, DaysToTargetWeight(10, 13, 1.5))
}

func TestSurvivalAfterWithdrawal(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 60.0, SurvivalAfterWithdrawal(80, 5, 20), 1e-9)
	assert.InDelta(t, 80.0, SurvivalAfterWithdrawal(80, 5, 0), 1e-9)
	assert.Equal(t, 0.0, SurvivalAfterWithdrawal(80, 25, 20))
}
