// Package calc is the pure calculation layer: density, biomass, and
// survival math over pond samples. No side effects, no I/O. Callers are
// responsible for excluding ponds without confirmed seeding.
package calc

import "math"

// epsilon guards deviation ratios against division by zero.
const epsilon = 1e-9

// PondSample is the minimal per-pond input the aggregate functions work
// with. AvgWeightG is a pointer because ponds without a current weight
// reading are excluded, never treated as zero.
type PondSample struct {
	PondID      string
	AreaM2      float64
	BaseDensity float64
	Withdrawals float64
	SurvivalPct float64
	AvgWeightG  *float64
}

// LiveDensity returns the current live density of a pond after
// subtracting withdrawals and applying survival.
func LiveDensity(baseDensity, withdrawals, survivalPct float64) float64 {
	return (baseDensity - withdrawals) * survivalPct / 100
}

// LiveOrganisms returns the absolute organism count for a density over an
// area.
func LiveOrganisms(density, areaM2 float64) float64 {
	return density * areaM2
}

// BiomassKg converts an organism count and average weight in grams into
// kilograms of biomass.
func BiomassKg(organisms, avgWeightG float64) float64 {
	return organisms * avgWeightG / 1000
}

// LiveOrganisms resolves a sample's live organism count.
func (p PondSample) LiveOrganisms() float64 {
	return LiveOrganisms(LiveDensity(p.BaseDensity, p.Withdrawals, p.SurvivalPct), p.AreaM2)
}

// WeightedAvgWeight returns the population-weighted mean average weight
// across ponds that carry a weight reading. Ponds without one are
// excluded from both numerator and denominator. Returns nil when no pond
// qualifies.
func WeightedAvgWeight(ponds []PondSample) *float64 {
	var weighted, organisms float64
	for _, p := range ponds {
		if p.AvgWeightG == nil {
			continue
		}
		n := p.LiveOrganisms()
		weighted += *p.AvgWeightG * n
		organisms += n
	}
	if organisms == 0 {
		return nil
	}
	v := weighted / organisms
	return &v
}

// WeightedDensity returns the area-weighted mean live density. Returns
// nil when total area is zero.
func WeightedDensity(ponds []PondSample) *float64 {
	var weighted, area float64
	for _, p := range ponds {
		weighted += LiveDensity(p.BaseDensity, p.Withdrawals, p.SurvivalPct) * p.AreaM2
		area += p.AreaM2
	}
	if area == 0 {
		return nil
	}
	v := weighted / area
	return &v
}

// GlobalSurvival reconstructs the cross-pond survival percentage. A
// naive ratio of live organisms to nominal seeded organisms ignores
// withdrawals and overstates mortality, so the denominator uses the
// pre-survival remnant density (live density divided back by survival)
// per pond. Returns nil when no pond contributes a denominator.
func GlobalSurvival(ponds []PondSample) *float64 {
	var live, remnant float64
	for _, p := range ponds {
		if p.SurvivalPct <= 0 {
			continue
		}
		d := LiveDensity(p.BaseDensity, p.Withdrawals, p.SurvivalPct)
		live += LiveOrganisms(d, p.AreaM2)
		remnant += (d / (p.SurvivalPct / 100)) * p.AreaM2
	}
	if remnant == 0 {
		return nil
	}
	v := live / remnant * 100
	return &v
}

// TotalBiomassKg sums biomass across ponds with a weight reading.
func TotalBiomassKg(ponds []PondSample) float64 {
	var total float64
	for _, p := range ponds {
		if p.AvgWeightG == nil {
			continue
		}
		total += BiomassKg(p.LiveOrganisms(), *p.AvgWeightG)
	}
	return total
}

// DeviationPct returns the percentage deviation of a real value from its
// projection.
func DeviationPct(real, projected float64) float64 {
	return (real - projected) / math.Max(epsilon, math.Abs(projected)) * 100
}

// GrowthRate returns the weekly delta series of an average-weight series.
// The first entry is zero.
func GrowthRate(weights []float64) []float64 {
	if len(weights) == 0 {
		return nil
	}
	out := make([]float64, len(weights))
	for i := 1; i < len(weights); i++ {
		out[i] = weights[i] - weights[i-1]
	}
	return out
}

// FCR is the feed conversion ratio for a period: feed consumed over
// biomass gained. Returns 0 when no biomass was gained.
func FCR(feedKg, biomassGainKg float64) float64 {
	if biomassGainKg <= 0 {
		return 0
	}
	return feedKg / biomassGainKg
}

// YieldProjectionKg projects harvest biomass from a pond sample at a
// target weight, keeping the sample's live organism count constant.
func YieldProjectionKg(p PondSample, targetWeightG float64) float64 {
	return BiomassKg(p.LiveOrganisms(), targetWeightG)
}

// DaysToTargetWeight estimates days until a target weight is reached at
// the given weekly gain. Returns 0 when the target was already reached
// and -1 when the gain is non-positive.
func DaysToTargetWeight(currentG, targetG, weeklyGainG float64) int {
	if currentG >= targetG {
		return 0
	}
	if weeklyGainG <= 0 {
		return -1
	}
	return int(math.Ceil((targetG - currentG) / weeklyGainG * 7))
}

// SurvivalAfterWithdrawal applies a partial-harvest withdrawal to a
// survival percentage: the withdrawn fraction of the base density leaves
// the population.
func SurvivalAfterWithdrawal(survivalPct, withdrawal, baseDensity float64) float64 {
	if baseDensity <= 0 {
		return survivalPct
	}
	f := 1 - withdrawal/baseDensity
	if f < 0 {
		f = 0
	}
	return survivalPct * f
}
