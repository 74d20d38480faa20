package models

import (
	"fmt"
	"sort"
	"time"
)

// CanonicalLine is one row of an extractor-produced projection document.
// WeekIdx and AgeDays may be omitted by the source; Normalize derives them.
type CanonicalLine struct {
	WeekIdx           *int      `json:"week_idx,omitempty"`
	PlanDate          time.Time `json:"plan_date"`
	AgeDays           *int      `json:"age_days,omitempty"`
	AvgWeightG        float64   `json:"avg_weight_g"`
	WeeklyGainG       *float64  `json:"weekly_gain_g,omitempty"`
	SurvivalPct       *float64  `json:"survival_pct,omitempty"`
	HarvestFlag       bool      `json:"harvest_flag"`
	WithdrawalDensity *float64  `json:"withdrawal_density,omitempty"`
	Note              string    `json:"note,omitempty"`
}

// CanonicalDocument is the normalized projection document produced by the
// external extraction service, ready for ingestion.
type CanonicalDocument struct {
	SeedingWindowStart     *time.Time      `json:"seeding_window_start,omitempty"`
	SeedingWindowEnd       *time.Time      `json:"seeding_window_end,omitempty"`
	DensityOrgM2           *float64        `json:"density_org_m2,omitempty"`
	InitialWeightG         *float64        `json:"initial_weight_g,omitempty"`
	TargetFinalSurvivalPct *float64        `json:"target_final_survival_pct,omitempty"`
	Lines                  []CanonicalLine `json:"lines"`
}

// Normalize validates the document and fills derived fields in place:
// week indices and ages from row position and dates, survival converted
// from a 0-1 scale when the whole series uses one, default 100% survival
// on week 0. Returns a *ValidationError on malformed input.
func (d *CanonicalDocument) Normalize() error {
	if len(d.Lines) == 0 {
		return &ValidationError{Reason: "projection document has no lines"}
	}
	if d.SeedingWindowStart != nil && d.SeedingWindowEnd != nil &&
		d.SeedingWindowEnd.Before(*d.SeedingWindowStart) {
		return &ValidationError{Reason: "seeding window start is after its end"}
	}

	base := d.Lines[0].PlanDate
	for i := range d.Lines {
		ln := &d.Lines[i]
		if ln.WeekIdx == nil {
			idx := i
			ln.WeekIdx = &idx
		}
		if ln.AgeDays == nil {
			age := DaysBetween(base, ln.PlanDate)
			ln.AgeDays = &age
		}
	}

	sort.Slice(d.Lines, func(i, j int) bool {
		return *d.Lines[i].WeekIdx < *d.Lines[j].WeekIdx
	})

	if *d.Lines[0].WeekIdx != 0 {
		return &ValidationError{Reason: "week 0 line is missing"}
	}
	if *d.Lines[0].AgeDays != 0 {
		return &ValidationError{Reason: fmt.Sprintf("week 0 must have age 0 days, got %d", *d.Lines[0].AgeDays)}
	}

	prevWeek := -1
	prevAge := -1
	for _, ln := range d.Lines {
		if *ln.WeekIdx <= prevWeek {
			return &ValidationError{Reason: fmt.Sprintf("week indices must be strictly increasing, got %d after %d", *ln.WeekIdx, prevWeek)}
		}
		if *ln.AgeDays <= prevAge && *ln.WeekIdx != 0 {
			return &ValidationError{Reason: fmt.Sprintf("age must increase with week index, got %d days at week %d", *ln.AgeDays, *ln.WeekIdx)}
		}
		prevWeek = *ln.WeekIdx
		prevAge = *ln.AgeDays
	}

	d.normalizeSurvival()

	for _, ln := range d.Lines {
		if ln.SurvivalPct != nil && (*ln.SurvivalPct < 0 || *ln.SurvivalPct > 100) {
			return &ValidationError{Reason: fmt.Sprintf("survival %.2f%% at week %d is out of range", *ln.SurvivalPct, *ln.WeekIdx)}
		}
		if ln.AvgWeightG < 0 {
			return &ValidationError{Reason: fmt.Sprintf("negative average weight at week %d", *ln.WeekIdx)}
		}
	}
	return nil
}

// normalizeSurvival converts a whole-series 0-1 survival scale to percent
// and defaults week 0 to 100% when the source omitted it.
func (d *CanonicalDocument) normalizeSurvival() {
	fractional := false
	for _, ln := range d.Lines {
		if ln.SurvivalPct == nil {
			continue
		}
		if *ln.SurvivalPct > 1.0 {
			fractional = false
			break
		}
		fractional = true
	}
	if fractional {
		for i := range d.Lines {
			if d.Lines[i].SurvivalPct != nil {
				v := *d.Lines[i].SurvivalPct * 100
				d.Lines[i].SurvivalPct = &v
			}
		}
		if d.TargetFinalSurvivalPct != nil && *d.TargetFinalSurvivalPct <= 1.0 {
			v := *d.TargetFinalSurvivalPct * 100
			d.TargetFinalSurvivalPct = &v
		}
	}
	if d.Lines[0].SurvivalPct == nil {
		full := 100.0
		d.Lines[0].SurvivalPct = &full
	}
}
