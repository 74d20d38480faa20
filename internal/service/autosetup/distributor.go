// Package autosetup keeps the seeding plan and harvest waves of a cycle
// consistent with its latest projection, without destroying progress
// operators already confirmed.
package autosetup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aquatrackmx/aquatrack/internal/domain/models"
	"github.com/aquatrackmx/aquatrack/internal/repository"
)

// Distributor derives seeding/harvest skeletons from projection content.
type Distributor struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewDistributor wires a new distributor instance.
func NewDistributor(store repository.Store, logger *zap.Logger) *Distributor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Distributor{store: store, logger: logger, now: time.Now}
}

// Sync refreshes the cycle's seeding plan and harvest waves from the
// projection. Plans past the planned state and realized waves are frozen.
func (d *Distributor) Sync(ctx context.Context, cycle *models.Cycle, proj *models.Projection) error {
	ponds, err := d.store.ListPondsByFarm(ctx, cycle.FarmID, true)
	if err != nil {
		return fmt.Errorf("list ponds: %w", err)
	}
	if err := d.syncSeeding(ctx, cycle, proj, ponds); err != nil {
		return err
	}
	return d.syncHarvest(ctx, cycle, proj, ponds)
}

func (d *Distributor) syncSeeding(ctx context.Context, cycle *models.Cycle, proj *models.Projection, ponds []models.Pond) error {
	plan, err := d.store.SeedingPlanForCycle(ctx, cycle.ID)
	if err != nil {
		return fmt.Errorf("load seeding plan: %w", err)
	}
	if plan != nil && plan.Status != models.SeedingPlanPlanned {
		d.logger.Debug("seeding plan frozen, skipping redistribution",
			zap.String("cycle_id", cycle.ID),
			zap.String("status", string(plan.Status)))
		return nil
	}

	windowStart := truncateDay(d.now())
	windowEnd := proj.FirstLineDate()
	if windowEnd.Before(windowStart) {
		windowEnd = windowStart
	}

	now := d.now().UTC()
	created := plan == nil
	if created {
		plan = &models.SeedingPlan{
			ID:        uuid.NewString(),
			CycleID:   cycle.ID,
			Status:    models.SeedingPlanPlanned,
			CreatedAt: now,
		}
	}
	plan.WindowStart = windowStart
	plan.WindowEnd = windowEnd
	if proj.DensityOrgM2 != nil {
		plan.DensityOrgM2 = *proj.DensityOrgM2
	}
	if proj.InitialWeightG != nil {
		plan.InitialWeightG = *proj.InitialWeightG
	}
	plan.UpdatedAt = now

	dates := distributeDates(windowStart, windowEnd, len(ponds))
	records := make([]models.SeedingPond, 0, len(ponds))
	for i, pond := range ponds {
		rec := plan.PondRecord(pond.ID)
		if rec == nil {
			rec = &models.SeedingPond{PondID: pond.ID, Status: models.SeedingPondPlanned}
		}
		rec.PlannedDate = dates[i]
		records = append(records, *rec)
	}
	plan.Ponds = records

	if err := d.store.SaveSeedingPlan(ctx, plan); err != nil {
		return fmt.Errorf("save seeding plan: %w", err)
	}
	d.logger.Info("seeding plan distributed",
		zap.String("cycle_id", cycle.ID),
		zap.Bool("created", created),
		zap.Int("ponds", len(records)),
		zap.Time("window_start", windowStart),
		zap.Time("window_end", windowEnd))
	return nil
}

func (d *Distributor) syncHarvest(ctx context.Context, cycle *models.Cycle, proj *models.Projection, ponds []models.Pond) error {
	waves, err := d.store.ListHarvestWaves(ctx, cycle.ID)
	if err != nil {
		return fmt.Errorf("list harvest waves: %w", err)
	}
	for _, w := range waves {
		if w.Status == models.WaveRealized {
			d.logger.Debug("harvest waves frozen, skipping redistribution",
				zap.String("cycle_id", cycle.ID),
				zap.String("realized_wave", w.ID))
			return nil
		}
	}

	var flagged []models.ProjectionLine
	for _, ln := range proj.Lines {
		if ln.HarvestFlag {
			flagged = append(flagged, ln)
		}
	}
	// A projection without flagged lines still ends in a harvest: a
	// single final wave anchored on the last projection week.
	fallback := len(flagged) == 0
	if fallback {
		if last := proj.LastLine(); last != nil {
			flagged = []models.ProjectionLine{*last}
		}
	}

	existing := make(map[int]*models.HarvestWave, len(waves))
	for i := range waves {
		existing[waves[i].Order] = &waves[i]
	}

	now := d.now().UTC()
	for order, ln := range flagged {
		kind := models.WavePartial
		if order == len(flagged)-1 {
			kind = models.WaveFinal
		}

		wave := existing[order]
		created := wave == nil
		if created {
			wave = &models.HarvestWave{
				ID:        uuid.NewString(),
				CycleID:   cycle.ID,
				Order:     order,
				Status:    models.WavePending,
				CreatedAt: now,
			}
		}
		wave.Name = fmt.Sprintf("Cosecha %d (semana %d)", order+1, ln.WeekIdx)
		if fallback {
			wave.Name = "Cosecha final (auto)"
		}
		wave.Kind = kind
		wave.WindowStart = ln.PlanDate
		wave.WindowEnd = ln.PlanDate.AddDate(0, 0, 6)
		wave.TargetWithdrawal = ln.WithdrawalDensity
		wave.UpdatedAt = now

		lines := make([]models.HarvestPond, 0, len(ponds))
		for _, pond := range ponds {
			pl := wave.PondLine(pond.ID)
			if pl == nil {
				pl = &models.HarvestPond{PondID: pond.ID, Status: models.HarvestPondPending}
			}
			pl.PlannedDate = ln.PlanDate
			lines = append(lines, *pl)
		}
		wave.Ponds = lines

		if err := d.store.SaveHarvestWave(ctx, wave); err != nil {
			return fmt.Errorf("save harvest wave: %w", err)
		}
		delete(existing, order)
	}

	// Waves that no longer map to a flagged line are dropped.
	for _, orphan := range existing {
		if err := d.store.DeleteHarvestWave(ctx, orphan.ID); err != nil {
			return fmt.Errorf("delete orphan harvest wave: %w", err)
		}
	}

	d.logger.Info("harvest waves distributed",
		zap.String("cycle_id", cycle.ID),
		zap.Int("waves", len(flagged)),
		zap.Int("ponds", len(ponds)))
	return nil
}

// distributeDates spreads n dates uniformly across [start, end],
// inclusive on both ends.
func distributeDates(start, end time.Time, n int) []time.Time {
	if n == 0 {
		return nil
	}
	days := models.DaysBetween(start, end)
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		offset := int(float64(days)*float64(i)/float64(max(1, n-1)) + 0.5)
		out[i] = start.AddDate(0, 0, offset)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
