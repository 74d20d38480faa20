// Package reporting derives on-demand pond snapshots and farm KPIs from
// operational state. Snapshots are never persisted; each value is tagged
// with the source it fell back to.
package reporting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aquatrackmx/aquatrack/internal/domain/models"
	"github.com/aquatrackmx/aquatrack/internal/repository"
	"github.com/aquatrackmx/aquatrack/internal/repository/sheets"
	"github.com/aquatrackmx/aquatrack/internal/service/calc"
)

// Service computes snapshots and KPIs, optionally exporting them to the
// dashboard spreadsheet.
type Service struct {
	store     repository.Store
	dashboard sheets.Dashboard
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a new reporting service instance. dashboard may be
// nil when spreadsheet export is not configured.
func NewService(store repository.Store, dashboard sheets.Dashboard, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, dashboard: dashboard, logger: logger, now: time.Now}
}

// PondSnapshots computes the current state of every pond in the cycle's
// seeding plan. Survival falls back SOB log -> projection -> 100%;
// weight falls back biometry -> projection -> plan initial weight.
func (s *Service) PondSnapshots(ctx context.Context, cycleID string) ([]models.PondSnapshot, error) {
	plan, err := s.store.SeedingPlanForCycle(ctx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("load seeding plan: %w", err)
	}
	if plan == nil {
		return nil, nil
	}

	waves, err := s.store.ListHarvestWaves(ctx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("load harvest waves: %w", err)
	}
	current, err := s.store.CurrentProjection(ctx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("load current projection: %w", err)
	}

	var projLine *models.ProjectionLine
	if current != nil && len(current.Lines) > 0 {
		projLine = &current.Lines[current.NearestWeekIdx(s.now())]
	}

	out := make([]models.PondSnapshot, 0, len(plan.Ponds))
	for _, rec := range plan.Ponds {
		pond, err := s.store.GetPond(ctx, rec.PondID)
		if err != nil {
			return nil, fmt.Errorf("load pond %s: %w", rec.PondID, err)
		}

		snap := models.PondSnapshot{
			PondID:           pond.ID,
			PondName:         pond.Name,
			AreaM2:           pond.AreaM2,
			BaseDensity:      plan.BaseDensityFor(pond.ID),
			WithdrawnDensity: models.ConfirmedWithdrawal(waves, pond.ID),
		}

		snap.SurvivalPct = 100
		snap.SurvivalSource = models.SourceDefault
		if sob, err := s.store.LatestSOB(ctx, cycleID, pond.ID); err != nil {
			return nil, fmt.Errorf("load sob log: %w", err)
		} else if sob != nil {
			snap.SurvivalPct = sob.NewPct
			snap.SurvivalSource = models.SourceMeasurement
		} else if projLine != nil {
			snap.SurvivalPct = projLine.SurvivalPct
			snap.SurvivalSource = models.SourceProjection
		}

		snap.AvgWeightG = plan.InitialWeightG
		if rec.InitialWeightOverride != nil {
			snap.AvgWeightG = *rec.InitialWeightOverride
		}
		snap.WeightSource = models.SourcePlanInitial
		if bio, err := s.store.LatestBiometry(ctx, cycleID, pond.ID); err != nil {
			return nil, fmt.Errorf("load biometry: %w", err)
		} else if bio != nil {
			snap.AvgWeightG = bio.AvgWeightG
			snap.WeightSource = models.SourceMeasurement
			at := bio.Date
			snap.WeightUpdatedAt = &at
		} else if projLine != nil {
			snap.AvgWeightG = projLine.AvgWeightG
			snap.WeightSource = models.SourceProjection
		}

		snap.LiveDensity = calc.LiveDensity(snap.BaseDensity, snap.WithdrawnDensity, snap.SurvivalPct)
		snap.LiveOrganisms = calc.LiveOrganisms(snap.LiveDensity, snap.AreaM2)
		snap.BiomassKg = calc.BiomassKg(snap.LiveOrganisms, snap.AvgWeightG)
		out = append(out, snap)
	}
	return out, nil
}

// FarmKPIs aggregates snapshots into cycle-level indicators. The
// weighted average weight only counts ponds with a measured weight;
// biomass and density use every pond.
func (s *Service) FarmKPIs(ctx context.Context, cycleID string) (*models.FarmKPIs, error) {
	snaps, err := s.PondSnapshots(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	kpis := &models.FarmKPIs{CycleID: cycleID, PondsTotal: len(snaps)}
	samples := make([]calc.PondSample, 0, len(snaps))
	for i := range snaps {
		snap := snaps[i]
		sample := calc.PondSample{
			PondID:      snap.PondID,
			AreaM2:      snap.AreaM2,
			BaseDensity: snap.BaseDensity,
			Withdrawals: snap.WithdrawnDensity,
			SurvivalPct: snap.SurvivalPct,
		}
		if snap.WeightSource == models.SourceMeasurement {
			w := snap.AvgWeightG
			sample.AvgWeightG = &w
			kpis.PondsIncluded++
		}
		samples = append(samples, sample)
		kpis.TotalBiomassKg += snap.BiomassKg
	}

	kpis.WeightedDensity = calc.WeightedDensity(samples)
	kpis.GlobalSurvivalPct = calc.GlobalSurvival(samples)
	kpis.WeightedAvgWeightG = calc.WeightedAvgWeight(samples)
	return kpis, nil
}

// ExportDailyKPIs appends one dashboard row per active cycle. Called by
// the scheduler.
func (s *Service) ExportDailyKPIs(ctx context.Context) error {
	if s.dashboard == nil {
		s.logger.Debug("dashboard export not configured, skipping")
		return nil
	}

	cycles, err := s.store.ListActiveCycles(ctx)
	if err != nil {
		return fmt.Errorf("list active cycles: %w", err)
	}

	day := s.now().UTC().Format("2006-01-02")
	for _, cycle := range cycles {
		kpis, err := s.FarmKPIs(ctx, cycle.ID)
		if err != nil {
			return fmt.Errorf("kpis for cycle %s: %w", cycle.ID, err)
		}
		row := []interface{}{
			day,
			cycle.ID,
			cycle.Name,
			kpis.TotalBiomassKg,
			floatOrEmpty(kpis.WeightedDensity),
			floatOrEmpty(kpis.GlobalSurvivalPct),
			floatOrEmpty(kpis.WeightedAvgWeightG),
			kpis.PondsIncluded,
			kpis.PondsTotal,
		}
		if err := s.dashboard.AppendKPIRow(ctx, row); err != nil {
			return fmt.Errorf("export kpis for cycle %s: %w", cycle.ID, err)
		}
		s.logger.Info("daily kpis exported",
			zap.String("cycle_id", cycle.ID),
			zap.Float64("total_biomass_kg", kpis.TotalBiomassKg))
	}
	return nil
}

func floatOrEmpty(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
