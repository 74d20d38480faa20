package models

import "time"

// BiometryRecorded notifies the core that a new real measurement exists
// for a pond.
type BiometryRecorded struct {
	CycleID     string    `json:"cycle_id" binding:"required"`
	PondID      string    `json:"pond_id" binding:"required"`
	Date        time.Time `json:"date" binding:"required"`
	AvgWeightG  float64   `json:"avg_weight_g" binding:"required"`
	SurvivalPct *float64  `json:"survival_pct,omitempty"`
}

// SeedingConfirmed notifies the core that one pond's seeding was
// confirmed. LastPending is true when it was the plan's final pending
// seeding.
type SeedingConfirmed struct {
	CycleID     string    `json:"cycle_id" binding:"required"`
	PlanID      string    `json:"seeding_plan_id" binding:"required"`
	PondID      string    `json:"pond_id" binding:"required"`
	ActualDate  time.Time `json:"actual_date" binding:"required"`
	LastPending bool      `json:"last_pending"`
}

// HarvestConfirmed notifies the core that a withdrawal was confirmed.
// Either WithdrawalDensity or BiomassKg (with AvgWeightG) must be set.
type HarvestConfirmed struct {
	CycleID           string    `json:"cycle_id" binding:"required"`
	WaveID            string    `json:"harvest_wave_id" binding:"required"`
	PondID            string    `json:"pond_id" binding:"required"`
	HarvestDate       time.Time `json:"harvest_date" binding:"required"`
	AvgWeightG        *float64  `json:"avg_weight_g,omitempty"`
	BiomassKg         *float64  `json:"biomass_kg,omitempty"`
	WithdrawalDensity *float64  `json:"withdrawal_density,omitempty"`
}
