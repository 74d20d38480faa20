package models

import "time"

// ProjectionStatus enumerates the version lifecycle of a projection.
type ProjectionStatus string

const (
	ProjectionDraft     ProjectionStatus = "draft"
	ProjectionPublished ProjectionStatus = "published"
	// ProjectionRevision marks a reforecast-originated draft that was
	// promoted to published. It behaves like published everywhere else.
	ProjectionRevision  ProjectionStatus = "revision"
	ProjectionCancelled ProjectionStatus = "cancelled"
)

// Published reports whether the status counts as a published version.
func (s ProjectionStatus) Published() bool {
	return s == ProjectionPublished || s == ProjectionRevision
}

// SourceKind identifies where a projection version came from.
type SourceKind string

const (
	SourceFile       SourceKind = "file"
	SourcePlan       SourceKind = "plan"
	SourceReforecast SourceKind = "reforecast"
)

// AnchorSource tags a line value that was pinned to real data by a
// recalibration trigger. Anchored values are never rewritten by
// interpolation.
type AnchorSource string

const (
	AnchorNone     AnchorSource = ""
	AnchorBiometry AnchorSource = "biometry"
	AnchorHarvest  AnchorSource = "harvest"
)

// ProjectionLine is one weekly row of a projection. Week indices are
// 0-based, contiguous, and week 0 always carries age 0.
type ProjectionLine struct {
	WeekIdx           int          `bson:"week_idx" json:"week_idx"`
	PlanDate          time.Time    `bson:"plan_date" json:"plan_date"`
	AgeDays           int          `bson:"age_days" json:"age_days"`
	AvgWeightG        float64      `bson:"avg_weight_g" json:"avg_weight_g"`
	WeeklyGainG       float64      `bson:"weekly_gain_g" json:"weekly_gain_g"`
	SurvivalPct       float64      `bson:"survival_pct" json:"survival_pct"`
	HarvestFlag       bool         `bson:"harvest_flag" json:"harvest_flag"`
	WithdrawalDensity *float64     `bson:"withdrawal_density,omitempty" json:"withdrawal_density,omitempty"`
	Note              string       `bson:"note,omitempty" json:"note,omitempty"`
	AnchorWeight      AnchorSource `bson:"anchor_weight,omitempty" json:"anchor_weight,omitempty"`
	AnchorSurvival    AnchorSource `bson:"anchor_survival,omitempty" json:"anchor_survival,omitempty"`
}

// Projection is one version of the growth/survival forecast for a cycle.
// Lines are embedded so a recalibration rewrite is a single atomic
// document replace.
type Projection struct {
	ID          string           `bson:"_id" json:"projection_id"`
	CycleID     string           `bson:"cycle_id" json:"cycle_id"`
	Version     string           `bson:"version" json:"version"`
	Description string           `bson:"description,omitempty" json:"description,omitempty"`
	Status      ProjectionStatus `bson:"status" json:"status"`
	IsCurrent   bool             `bson:"is_current" json:"is_current"`
	Source      SourceKind       `bson:"source" json:"source"`
	SourceRef   string           `bson:"source_ref,omitempty" json:"source_ref,omitempty"`
	ParentID    string           `bson:"parent_id,omitempty" json:"parent_id,omitempty"`

	SeedingWindowStart     *time.Time `bson:"seeding_window_start,omitempty" json:"seeding_window_start,omitempty"`
	SeedingWindowEnd       *time.Time `bson:"seeding_window_end,omitempty" json:"seeding_window_end,omitempty"`
	DensityOrgM2           *float64   `bson:"density_org_m2,omitempty" json:"density_org_m2,omitempty"`
	InitialWeightG         *float64   `bson:"initial_weight_g,omitempty" json:"initial_weight_g,omitempty"`
	TargetFinalSurvivalPct *float64   `bson:"target_final_survival_pct,omitempty" json:"target_final_survival_pct,omitempty"`

	Lines []ProjectionLine `bson:"lines" json:"lines"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	PublishedAt *time.Time `bson:"published_at,omitempty" json:"published_at,omitempty"`
}

// FirstLineDate returns the plan date of week 0, or the zero time when the
// projection has no lines.
func (p *Projection) FirstLineDate() time.Time {
	if len(p.Lines) == 0 {
		return time.Time{}
	}
	return p.Lines[0].PlanDate
}

// LastLine returns the final weekly row, or nil when there are no lines.
func (p *Projection) LastLine() *ProjectionLine {
	if len(p.Lines) == 0 {
		return nil
	}
	return &p.Lines[len(p.Lines)-1]
}

// NearestWeekIdx returns the index of the line whose plan date is closest
// to the given date. Earlier lines win ties.
func (p *Projection) NearestWeekIdx(when time.Time) int {
	if len(p.Lines) == 0 {
		return 0
	}
	best := 0
	bestDiff := absDays(p.Lines[0].PlanDate, when)
	for i := range p.Lines {
		if d := absDays(p.Lines[i].PlanDate, when); d < bestDiff {
			bestDiff = d
			best = i
		}
	}
	return best
}

// DaysBetween returns the whole number of days from a to b, negative when
// b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(b.Truncate(24*time.Hour).Sub(a.Truncate(24*time.Hour)).Hours() / 24)
}

func absDays(a, b time.Time) int {
	d := DaysBetween(a, b)
	if d < 0 {
		return -d
	}
	return d
}
