package models

import "time"

// CycleStatus enumerates the lifecycle states of a production cycle.
type CycleStatus string

const (
	CycleActive CycleStatus = "active"
	CycleClosed CycleStatus = "closed"
)

// Cycle represents one production run for a farm. A farm has at most one
// active cycle at a time; its start date is corrected by real seeding data.
type Cycle struct {
	ID             string      `bson:"_id" json:"cycle_id"`
	FarmID         string      `bson:"farm_id" json:"farm_id"`
	Name           string      `bson:"name" json:"name"`
	Status         CycleStatus `bson:"status" json:"status"`
	StartDate      time.Time   `bson:"start_date" json:"start_date"`
	PlannedEndDate *time.Time  `bson:"planned_end_date,omitempty" json:"planned_end_date,omitempty"`
	CreatedAt      time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `bson:"updated_at" json:"updated_at"`
}

// Pond is a grow-out pond belonging to a farm. Area drives every
// area-weighted aggregation, so it is mandatory.
type Pond struct {
	ID        string    `bson:"_id" json:"pond_id"`
	FarmID    string    `bson:"farm_id" json:"farm_id"`
	Name      string    `bson:"name" json:"name"`
	AreaM2    float64   `bson:"area_m2" json:"area_m2"`
	Active    bool      `bson:"active" json:"active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
