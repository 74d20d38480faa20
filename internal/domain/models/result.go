package models

import "time"

// Trigger names the recalibration path that produced a result.
type Trigger string

const (
	TriggerBiometry Trigger = "biometry"
	TriggerSeeding  Trigger = "seeding"
	TriggerHarvest  Trigger = "harvest"
)

// AggregateSample captures the cross-pond weighted values a biometry
// trigger worked with, for observability.
type AggregateSample struct {
	AvgWeightG    *float64  `json:"avg_weight_g,omitempty"`
	SurvivalPct   *float64  `json:"survival_pct,omitempty"`
	CoveragePct   float64   `json:"coverage_pct"`
	MeasuredPonds int       `json:"measured_ponds"`
	TotalPonds    int       `json:"total_ponds"`
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
}

// RecalibrationResult reports what a trigger did. Callers use it for
// observability only, never for control flow. A skipped run is a
// successful outcome, not an error.
type RecalibrationResult struct {
	ID           string  `json:"result_id"`
	Trigger      Trigger `json:"trigger"`
	CycleID      string  `json:"cycle_id"`
	ProjectionID string  `json:"projection_id,omitempty"`

	Ran        bool   `json:"ran"`
	SkipReason string `json:"skip_reason,omitempty"`

	WeekIdx          int              `json:"week_idx,omitempty"`
	AnchoredWeight   bool             `json:"anchored_weight,omitempty"`
	AnchoredSurvival bool             `json:"anchored_survival,omitempty"`
	Aggregate        *AggregateSample `json:"aggregate,omitempty"`

	LinesUpdated           int       `json:"lines_updated"`
	ShiftDays              int       `json:"shift_days,omitempty"`
	TargetFinalSurvivalPct *float64  `json:"target_final_survival_pct,omitempty"`
	Clamped                bool      `json:"clamped,omitempty"`
	At                     time.Time `json:"at"`
}
