// Package operations owns the confirmation flows: biometry capture,
// seeding confirmations, and harvest confirmations. It mutates plans,
// waves, cycles and the SOB log, then hands the resulting event to the
// reforecast engine. Triggers themselves never touch these entities.
package operations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aquatrackmx/aquatrack/internal/domain/models"
	"github.com/aquatrackmx/aquatrack/internal/repository"
)

// Recalibrator is the reforecast engine surface operations dispatches to.
type Recalibrator interface {
	OnBiometryRecorded(ctx context.Context, ev models.BiometryRecorded) (*models.RecalibrationResult, error)
	OnSeedingConfirmed(ctx context.Context, ev models.SeedingConfirmed) (*models.RecalibrationResult, error)
	OnHarvestConfirmed(ctx context.Context, ev models.HarvestConfirmed) (*models.RecalibrationResult, error)
}

// Service applies operational events and dispatches recalibration.
type Service struct {
	store      repository.Store
	reforecast Recalibrator
	logger     *zap.Logger
	now        func() time.Time
}

// NewService wires a new operations service instance.
func NewService(store repository.Store, recal Recalibrator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, reforecast: recal, logger: logger, now: time.Now}
}

// RecordBiometry stores a real measurement, logs the survival change
// when the sample carried one, and runs the biometry trigger.
func (s *Service) RecordBiometry(ctx context.Context, ev models.BiometryRecorded) (*models.Biometry, *models.RecalibrationResult, error) {
	if _, err := s.store.GetCycle(ctx, ev.CycleID); err != nil {
		return nil, nil, fmt.Errorf("load cycle: %w", err)
	}
	if _, err := s.store.GetPond(ctx, ev.PondID); err != nil {
		return nil, nil, fmt.Errorf("load pond: %w", err)
	}
	if ev.AvgWeightG <= 0 {
		return nil, nil, &models.ValidationError{Reason: "average weight must be positive"}
	}
	if ev.SurvivalPct != nil && (*ev.SurvivalPct < 0 || *ev.SurvivalPct > 100) {
		return nil, nil, &models.ValidationError{Reason: "survival must be between 0 and 100"}
	}

	now := s.now().UTC()
	bio := &models.Biometry{
		ID:          uuid.NewString(),
		CycleID:     ev.CycleID,
		PondID:      ev.PondID,
		Date:        ev.Date,
		AvgWeightG:  ev.AvgWeightG,
		SurvivalPct: ev.SurvivalPct,
		RecordedAt:  now,
	}
	if err := s.store.InsertBiometry(ctx, bio); err != nil {
		return nil, nil, fmt.Errorf("save biometry: %w", err)
	}

	if ev.SurvivalPct != nil {
		if err := s.logSOB(ctx, ev.CycleID, ev.PondID, *ev.SurvivalPct,
			models.SOBOperational, "biometria "+ev.Date.Format("2006-01-02")); err != nil {
			return nil, nil, err
		}
	}

	res, err := s.reforecast.OnBiometryRecorded(ctx, ev)
	if err != nil {
		return nil, nil, err
	}
	return bio, res, nil
}

// ConfirmSeeding finalizes one pond's seeding record. On the first
// confirmation the plan moves to in-execution; on the last one it is
// finalized, its window collapses to the real confirmed bounds, and the
// cycle start date follows the real first seeding.
func (s *Service) ConfirmSeeding(ctx context.Context, planID, pondID string, actualDate time.Time, densityOverride, weightOverride *float64) (*models.SeedingPlan, *models.RecalibrationResult, error) {
	plan, err := s.store.GetSeedingPlan(ctx, planID)
	if err != nil {
		return nil, nil, fmt.Errorf("load seeding plan: %w", err)
	}

	rec := plan.PondRecord(pondID)
	if rec == nil {
		return nil, nil, &models.ValidationError{Reason: fmt.Sprintf("pond %s is not part of the seeding plan", pondID)}
	}
	if rec.Status == models.SeedingPondFinalized {
		return nil, nil, &models.ConflictError{Reason: fmt.Sprintf("seeding for pond %s is already confirmed", pondID)}
	}

	now := s.now().UTC()
	rec.ActualDate = &actualDate
	rec.Status = models.SeedingPondFinalized
	if densityOverride != nil {
		rec.DensityOverride = densityOverride
	}
	if weightOverride != nil {
		rec.InitialWeightOverride = weightOverride
	}

	if plan.Status == models.SeedingPlanPlanned {
		plan.Status = models.SeedingPlanInExecution
	}

	lastPending := plan.PendingCount() == 0
	if lastPending {
		plan.Status = models.SeedingPlanFinalized
		if first, last, ok := plan.ConfirmedBounds(); ok {
			plan.WindowStart = first
			plan.WindowEnd = last
			if err := s.syncCycleStart(ctx, plan.CycleID, first); err != nil {
				return nil, nil, err
			}
		}
	}
	plan.UpdatedAt = now

	if err := s.store.SaveSeedingPlan(ctx, plan); err != nil {
		return nil, nil, fmt.Errorf("save seeding plan: %w", err)
	}

	// Every seeded pond starts its survival audit at full population.
	if err := s.logSOB(ctx, plan.CycleID, pondID, 100,
		models.SOBOperational, "siembra confirmada"); err != nil {
		return nil, nil, err
	}

	s.logger.Info("seeding confirmed",
		zap.String("cycle_id", plan.CycleID),
		zap.String("pond_id", pondID),
		zap.Time("actual_date", actualDate),
		zap.Bool("last_pending", lastPending),
		zap.String("plan_status", string(plan.Status)))

	res, err := s.reforecast.OnSeedingConfirmed(ctx, models.SeedingConfirmed{
		CycleID:     plan.CycleID,
		PlanID:      plan.ID,
		PondID:      pondID,
		ActualDate:  actualDate,
		LastPending: lastPending,
	})
	if err != nil {
		return nil, nil, err
	}
	return plan, res, nil
}

// ConfirmHarvest confirms one pond's withdrawal line in a wave. Either a
// withdrawal density or biomass with average weight must be given. When
// no line is left pending the wave is marked realized.
func (s *Service) ConfirmHarvest(ctx context.Context, ev models.HarvestConfirmed) (*models.HarvestWave, *models.RecalibrationResult, error) {
	if ev.WithdrawalDensity == nil {
		if ev.BiomassKg == nil || ev.AvgWeightG == nil || *ev.AvgWeightG <= 0 {
			return nil, nil, &models.ValidationError{Reason: "harvest confirmation needs a withdrawal density or biomass with average weight"}
		}
		pond, err := s.store.GetPond(ctx, ev.PondID)
		if err != nil {
			return nil, nil, fmt.Errorf("load pond: %w", err)
		}
		if pond.AreaM2 <= 0 {
			return nil, nil, &models.ValidationError{Reason: fmt.Sprintf("pond %s has no area, cannot derive withdrawal density", ev.PondID)}
		}
		density := *ev.BiomassKg * 1000 / *ev.AvgWeightG / pond.AreaM2
		ev.WithdrawalDensity = &density
	}

	wave, err := s.store.GetHarvestWave(ctx, ev.WaveID)
	if err != nil {
		return nil, nil, fmt.Errorf("load harvest wave: %w", err)
	}
	line := wave.PondLine(ev.PondID)
	if line == nil {
		return nil, nil, &models.ValidationError{Reason: fmt.Sprintf("pond %s is not part of the harvest wave", ev.PondID)}
	}
	if line.Status == models.HarvestPondConfirmed {
		return nil, nil, &models.ConflictError{Reason: fmt.Sprintf("harvest for pond %s is already confirmed", ev.PondID)}
	}

	now := s.now().UTC()
	line.HarvestDate = &ev.HarvestDate
	line.AvgWeightG = ev.AvgWeightG
	line.BiomassKg = ev.BiomassKg
	line.WithdrawalDensity = ev.WithdrawalDensity
	line.Status = models.HarvestPondConfirmed
	line.ConfirmedAt = &now

	pending := 0
	for _, pl := range wave.Ponds {
		if pl.Status == models.HarvestPondPending {
			pending++
		}
	}
	if pending == 0 {
		wave.Status = models.WaveRealized
	}
	wave.UpdatedAt = now

	if err := s.store.SaveHarvestWave(ctx, wave); err != nil {
		return nil, nil, fmt.Errorf("save harvest wave: %w", err)
	}

	s.logger.Info("harvest confirmed",
		zap.String("cycle_id", wave.CycleID),
		zap.String("wave_id", wave.ID),
		zap.String("pond_id", ev.PondID),
		zap.String("wave_status", string(wave.Status)))

	res, err := s.reforecast.OnHarvestConfirmed(ctx, ev)
	if err != nil {
		return nil, nil, err
	}

	// Reflect the withdrawal in the pond's survival audit trail.
	if res.Ran {
		if err := s.logHarvestSOB(ctx, wave.CycleID, ev); err != nil {
			return nil, nil, err
		}
	}
	return wave, res, nil
}

// logHarvestSOB appends the post-withdrawal survival for the pond, using
// the same decay the trigger applied to the projection.
func (s *Service) logHarvestSOB(ctx context.Context, cycleID string, ev models.HarvestConfirmed) error {
	plan, err := s.store.SeedingPlanForCycle(ctx, cycleID)
	if err != nil {
		return fmt.Errorf("load seeding plan: %w", err)
	}
	if plan == nil || ev.WithdrawalDensity == nil {
		return nil
	}
	base := plan.BaseDensityFor(ev.PondID)
	if base <= 0 {
		return nil
	}

	previous := 100.0
	if sob, err := s.store.LatestSOB(ctx, cycleID, ev.PondID); err != nil {
		return fmt.Errorf("load sob log: %w", err)
	} else if sob != nil {
		previous = sob.NewPct
	}

	next := previous * (1 - *ev.WithdrawalDensity/base)
	if next < 0 {
		next = 0
	}
	return s.appendSOB(ctx, cycleID, ev.PondID, previous, next,
		models.SOBReforecast, "cosecha "+ev.HarvestDate.Format("2006-01-02"))
}

// AdjustSurvival appends a manual survival correction for a pond.
func (s *Service) AdjustSurvival(ctx context.Context, cycleID, pondID string, newPct float64, reason string) (*models.SOBChange, error) {
	if newPct < 0 || newPct > 100 {
		return nil, &models.ValidationError{Reason: "survival must be between 0 and 100"}
	}
	previous := 100.0
	if sob, err := s.store.LatestSOB(ctx, cycleID, pondID); err != nil {
		return nil, fmt.Errorf("load sob log: %w", err)
	} else if sob != nil {
		previous = sob.NewPct
	}
	change := &models.SOBChange{
		ID:          uuid.NewString(),
		CycleID:     cycleID,
		PondID:      pondID,
		PreviousPct: previous,
		NewPct:      newPct,
		Source:      models.SOBManual,
		Reason:      reason,
		ChangedAt:   s.now().UTC(),
	}
	if err := s.store.AppendSOBChange(ctx, change); err != nil {
		return nil, fmt.Errorf("append sob change: %w", err)
	}
	return change, nil
}

func (s *Service) logSOB(ctx context.Context, cycleID, pondID string, newPct float64, source models.SOBSource, reason string) error {
	previous := 100.0
	if sob, err := s.store.LatestSOB(ctx, cycleID, pondID); err != nil {
		return fmt.Errorf("load sob log: %w", err)
	} else if sob != nil {
		previous = sob.NewPct
	}
	return s.appendSOB(ctx, cycleID, pondID, previous, newPct, source, reason)
}

func (s *Service) appendSOB(ctx context.Context, cycleID, pondID string, previous, next float64, source models.SOBSource, reason string) error {
	change := &models.SOBChange{
		ID:          uuid.NewString(),
		CycleID:     cycleID,
		PondID:      pondID,
		PreviousPct: previous,
		NewPct:      next,
		Source:      source,
		Reason:      reason,
		ChangedAt:   s.now().UTC(),
	}
	if err := s.store.AppendSOBChange(ctx, change); err != nil {
		return fmt.Errorf("append sob change: %w", err)
	}
	return nil
}

func (s *Service) syncCycleStart(ctx context.Context, cycleID string, start time.Time) error {
	cycle, err := s.store.GetCycle(ctx, cycleID)
	if err != nil {
		return fmt.Errorf("load cycle: %w", err)
	}
	if models.DaysBetween(cycle.StartDate, start) == 0 {
		return nil
	}
	cycle.StartDate = start
	cycle.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateCycle(ctx, cycle); err != nil {
		return fmt.Errorf("sync cycle start date: %w", err)
	}
	s.logger.Info("cycle start date synced to real seeding",
		zap.String("cycle_id", cycleID),
		zap.Time("start_date", start))
	return nil
}
