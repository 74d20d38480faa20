package models

import "time"

// SeedingPlanStatus tracks how far the seeding plan has progressed.
type SeedingPlanStatus string

const (
	SeedingPlanPlanned     SeedingPlanStatus = "planned"
	SeedingPlanInExecution SeedingPlanStatus = "in_execution"
	SeedingPlanFinalized   SeedingPlanStatus = "finalized"
)

// SeedingPondStatus tracks a single pond's seeding record.
type SeedingPondStatus string

const (
	SeedingPondPlanned   SeedingPondStatus = "planned"
	SeedingPondFinalized SeedingPondStatus = "finalized"
)

// SeedingPond is one pond's seeding record inside the plan. Overrides are
// pointers: nil means "use the plan value", a pointer to zero is an
// explicit zero override.
type SeedingPond struct {
	PondID                string            `bson:"pond_id" json:"pond_id"`
	PlannedDate           time.Time         `bson:"planned_date" json:"planned_date"`
	ActualDate            *time.Time        `bson:"actual_date,omitempty" json:"actual_date,omitempty"`
	DensityOverride       *float64          `bson:"density_override,omitempty" json:"density_override,omitempty"`
	InitialWeightOverride *float64          `bson:"initial_weight_override,omitempty" json:"initial_weight_override,omitempty"`
	Status                SeedingPondStatus `bson:"status" json:"status"`
}

// SeedingPlan is the per-cycle seeding plan with its per-pond records
// embedded. It is created and refreshed by the auto-setup distributor
// while planned, and frozen once any seeding is confirmed.
type SeedingPlan struct {
	ID             string            `bson:"_id" json:"seeding_plan_id"`
	CycleID        string            `bson:"cycle_id" json:"cycle_id"`
	WindowStart    time.Time         `bson:"window_start" json:"window_start"`
	WindowEnd      time.Time         `bson:"window_end" json:"window_end"`
	DensityOrgM2   float64           `bson:"density_org_m2" json:"density_org_m2"`
	InitialWeightG float64           `bson:"initial_weight_g" json:"initial_weight_g"`
	Status         SeedingPlanStatus `bson:"status" json:"status"`
	Notes          string            `bson:"notes,omitempty" json:"notes,omitempty"`
	Ponds          []SeedingPond     `bson:"ponds" json:"ponds"`
	CreatedAt      time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `bson:"updated_at" json:"updated_at"`
}

// PondRecord returns the seeding record for a pond, or nil.
func (p *SeedingPlan) PondRecord(pondID string) *SeedingPond {
	for i := range p.Ponds {
		if p.Ponds[i].PondID == pondID {
			return &p.Ponds[i]
		}
	}
	return nil
}

// BaseDensityFor resolves the effective base density for a pond: the
// pond-level override when present, otherwise the plan density.
func (p *SeedingPlan) BaseDensityFor(pondID string) float64 {
	if rec := p.PondRecord(pondID); rec != nil && rec.DensityOverride != nil {
		return *rec.DensityOverride
	}
	return p.DensityOrgM2
}

// PendingCount returns how many pond seedings are not yet confirmed.
func (p *SeedingPlan) PendingCount() int {
	n := 0
	for _, rec := range p.Ponds {
		if rec.Status != SeedingPondFinalized {
			n++
		}
	}
	return n
}

// ConfirmedBounds returns the earliest and latest confirmed seeding dates.
// ok is false when no seeding has been confirmed yet.
func (p *SeedingPlan) ConfirmedBounds() (first, last time.Time, ok bool) {
	for _, rec := range p.Ponds {
		if rec.Status != SeedingPondFinalized || rec.ActualDate == nil {
			continue
		}
		d := *rec.ActualDate
		if !ok {
			first, last, ok = d, d, true
			continue
		}
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return first, last, ok
}
