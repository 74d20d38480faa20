package models

import "time"

// ValueSource tags where a snapshot value came from, in priority order:
// direct measurement, the current projection, or the initial plan.
type ValueSource string

const (
	SourceMeasurement ValueSource = "measurement"
	SourceProjection  ValueSource = "projection"
	SourcePlanInitial ValueSource = "plan_initial"
	SourceDefault     ValueSource = "default"
)

// PondSnapshot is the derived, never-persisted view of a pond's current
// state. Computed on demand from the seeding plan, confirmed harvests,
// the SOB log and biometries.
type PondSnapshot struct {
	PondID            string      `json:"pond_id"`
	PondName          string      `json:"pond_name"`
	AreaM2            float64     `json:"area_m2"`
	BaseDensity       float64     `json:"base_density_org_m2"`
	WithdrawnDensity  float64     `json:"withdrawn_density_org_m2"`
	LiveDensity       float64     `json:"live_density_org_m2"`
	SurvivalPct       float64     `json:"survival_pct"`
	SurvivalSource    ValueSource `json:"survival_source"`
	AvgWeightG        float64     `json:"avg_weight_g"`
	WeightSource      ValueSource `json:"weight_source"`
	WeightUpdatedAt   *time.Time  `json:"weight_updated_at,omitempty"`
	LiveOrganisms     float64     `json:"live_organisms"`
	BiomassKg         float64     `json:"biomass_kg"`
}

// FarmKPIs aggregates pond snapshots for reporting. Nil values mean no
// pond contributed the underlying reading.
type FarmKPIs struct {
	CycleID            string   `json:"cycle_id"`
	TotalBiomassKg     float64  `json:"total_biomass_kg"`
	WeightedDensity    *float64 `json:"weighted_density_org_m2,omitempty"`
	GlobalSurvivalPct  *float64 `json:"global_survival_pct,omitempty"`
	WeightedAvgWeightG *float64 `json:"weighted_avg_weight_g,omitempty"`
	PondsTotal         int      `json:"ponds_total"`
	PondsIncluded      int      `json:"ponds_included"`
}
