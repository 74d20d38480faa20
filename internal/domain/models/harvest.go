package models

import "time"

// WaveKind distinguishes partial withdrawals from the final harvest.
type WaveKind string

const (
	WavePartial WaveKind = "partial"
	WaveFinal   WaveKind = "final"
)

// WaveStatus tracks a harvest wave as a whole.
type WaveStatus string

const (
	WavePending  WaveStatus = "pending"
	WaveRealized WaveStatus = "realized"
)

// HarvestPondStatus tracks one pond's withdrawal line inside a wave.
type HarvestPondStatus string

const (
	HarvestPondPending   HarvestPondStatus = "pending"
	HarvestPondConfirmed HarvestPondStatus = "confirmed"
	HarvestPondCancelled HarvestPondStatus = "cancelled"
)

// HarvestPond is one pond's withdrawal line. Confirmation requires either
// a biomass figure or the (avg weight, withdrawal density) pair.
type HarvestPond struct {
	PondID            string            `bson:"pond_id" json:"pond_id"`
	PlannedDate       time.Time         `bson:"planned_date" json:"planned_date"`
	HarvestDate       *time.Time        `bson:"harvest_date,omitempty" json:"harvest_date,omitempty"`
	AvgWeightG        *float64          `bson:"avg_weight_g,omitempty" json:"avg_weight_g,omitempty"`
	BiomassKg         *float64          `bson:"biomass_kg,omitempty" json:"biomass_kg,omitempty"`
	WithdrawalDensity *float64          `bson:"withdrawal_density,omitempty" json:"withdrawal_density,omitempty"`
	Status            HarvestPondStatus `bson:"status" json:"status"`
	Notes             string            `bson:"notes,omitempty" json:"notes,omitempty"`
	ConfirmedAt       *time.Time        `bson:"confirmed_at,omitempty" json:"confirmed_at,omitempty"`
}

// HarvestWave is one harvest batch for a cycle, derived from a
// harvest-flagged projection line by the auto-setup distributor.
type HarvestWave struct {
	ID               string        `bson:"_id" json:"harvest_wave_id"`
	CycleID          string        `bson:"cycle_id" json:"cycle_id"`
	Name             string        `bson:"name" json:"name"`
	Kind             WaveKind      `bson:"kind" json:"kind"`
	Order            int           `bson:"order" json:"order"`
	WindowStart      time.Time     `bson:"window_start" json:"window_start"`
	WindowEnd        time.Time     `bson:"window_end" json:"window_end"`
	TargetWithdrawal *float64      `bson:"target_withdrawal,omitempty" json:"target_withdrawal,omitempty"`
	Status           WaveStatus    `bson:"status" json:"status"`
	Ponds            []HarvestPond `bson:"ponds" json:"ponds"`
	CreatedAt        time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `bson:"updated_at" json:"updated_at"`
}

// PondLine returns the withdrawal line for a pond, or nil.
func (w *HarvestWave) PondLine(pondID string) *HarvestPond {
	for i := range w.Ponds {
		if w.Ponds[i].PondID == pondID {
			return &w.Ponds[i]
		}
	}
	return nil
}

// ConfirmedWithdrawal sums confirmed withdrawal densities for a pond
// across the given waves.
func ConfirmedWithdrawal(waves []HarvestWave, pondID string) float64 {
	var total float64
	for i := range waves {
		for _, line := range waves[i].Ponds {
			if line.PondID == pondID && line.Status == HarvestPondConfirmed && line.WithdrawalDensity != nil {
				total += *line.WithdrawalDensity
			}
		}
	}
	return total
}
