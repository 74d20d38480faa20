package models

import "time"

// Biometry is one real weight/survival sample taken from a pond.
type Biometry struct {
	ID          string    `bson:"_id" json:"biometry_id"`
	CycleID     string    `bson:"cycle_id" json:"cycle_id"`
	PondID      string    `bson:"pond_id" json:"pond_id"`
	Date        time.Time `bson:"date" json:"date"`
	AvgWeightG  float64   `bson:"avg_weight_g" json:"avg_weight_g"`
	SurvivalPct *float64  `bson:"survival_pct,omitempty" json:"survival_pct,omitempty"`
	RecordedAt  time.Time `bson:"recorded_at" json:"recorded_at"`
}

// SOBSource tags the origin of an operative-survival change.
type SOBSource string

const (
	SOBOperational SOBSource = "operational_current"
	SOBManual      SOBSource = "manual_adjustment"
	SOBReforecast  SOBSource = "reforecast"
)

// SOBChange is one append-only entry in the survival audit log. Entries
// are never updated or deleted.
type SOBChange struct {
	ID          string    `bson:"_id" json:"sob_change_id"`
	CycleID     string    `bson:"cycle_id" json:"cycle_id"`
	PondID      string    `bson:"pond_id" json:"pond_id"`
	PreviousPct float64   `bson:"previous_pct" json:"previous_pct"`
	NewPct      float64   `bson:"new_pct" json:"new_pct"`
	Source      SOBSource `bson:"source" json:"source"`
	Reason      string    `bson:"reason,omitempty" json:"reason,omitempty"`
	ChangedAt   time.Time `bson:"changed_at" json:"changed_at"`
}
