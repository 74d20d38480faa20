package reforecast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aquatrackmx/aquatrack/internal/domain/models"
	"github.com/aquatrackmx/aquatrack/internal/service/calc"
	"github.com/aquatrackmx/aquatrack/internal/service/curve"
)

// OnBiometryRecorded aggregates the measurements of the sample's window
// across all confirmed-seeded ponds and, when coverage is sufficient,
// anchors the nearest projection week and re-interpolates the rest.
func (s *Service) OnBiometryRecorded(ctx context.Context, ev models.BiometryRecorded) (*models.RecalibrationResult, error) {
	if !s.cfg.Enabled {
		return s.skipped(models.TriggerBiometry, ev.CycleID, "reforecast disabled"), nil
	}

	unlock := s.locks.Lock(ev.CycleID)
	defer unlock()

	plan, err := s.store.SeedingPlanForCycle(ctx, ev.CycleID)
	if err != nil {
		return nil, fmt.Errorf("load seeding plan: %w", err)
	}
	if plan == nil {
		return s.skipped(models.TriggerBiometry, ev.CycleID, "no seeding plan for cycle"), nil
	}

	from, to, anchorDate := s.aggregationWindow(ev.Date)
	samples, measured, total, err := s.collectSamples(ctx, ev.CycleID, plan, from, to)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return s.skipped(models.TriggerBiometry, ev.CycleID, "no ponds with confirmed seeding"), nil
	}

	coverage := float64(measured) / float64(total) * 100
	aggregate := &models.AggregateSample{
		CoveragePct:   coverage,
		MeasuredPonds: measured,
		TotalPonds:    total,
		WindowStart:   from,
		WindowEnd:     to,
	}

	if coverage < s.cfg.MinCoveragePct || measured < s.cfg.MinPonds {
		res := s.skipped(models.TriggerBiometry, ev.CycleID,
			fmt.Sprintf("coverage %.1f%% over %d ponds is below the configured minimum", coverage, measured))
		res.Aggregate = aggregate
		return res, nil
	}

	aggWeight := calc.WeightedAvgWeight(samples.measured)
	aggSurvival := calc.GlobalSurvival(samples.surveyed)
	aggregate.AvgWeightG = aggWeight
	aggregate.SurvivalPct = aggSurvival
	if aggWeight == nil {
		return s.skipped(models.TriggerBiometry, ev.CycleID, "no aggregated weight could be computed"), nil
	}

	draft, skip, err := s.acquireDraft(ctx, ev.CycleID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		res := s.skipped(models.TriggerBiometry, ev.CycleID, skip)
		res.Aggregate = aggregate
		return res, nil
	}

	week := draft.NearestWeekIdx(anchorDate)
	line := &draft.Lines[week]
	plannedSurvival := line.SurvivalPct

	before := append([]models.ProjectionLine(nil), draft.Lines...)

	line.AvgWeightG = *aggWeight
	line.AnchorWeight = models.AnchorBiometry

	result := &models.RecalibrationResult{
		ID:             uuid.NewString(),
		Trigger:        models.TriggerBiometry,
		CycleID:        ev.CycleID,
		ProjectionID:   draft.ID,
		Ran:            true,
		WeekIdx:        week,
		AnchoredWeight: true,
		Aggregate:      aggregate,
		At:             s.now().UTC(),
	}

	if aggSurvival != nil {
		line.SurvivalPct = *aggSurvival
		line.AnchorSurvival = models.AnchorBiometry
		result.AnchoredSurvival = true

		target, clamped := s.recomputeTarget(draft, plannedSurvival, *aggSurvival)
		draft.TargetFinalSurvivalPct = &target
		result.TargetFinalSurvivalPct = &target
		result.Clamped = clamped
	}

	s.reinterpolate(draft, aggSurvival != nil)

	result.LinesUpdated = countChanged(before, draft.Lines)
	draft.UpdatedAt = s.now().UTC()
	if err := s.store.ReplaceProjection(ctx, draft); err != nil {
		return nil, fmt.Errorf("save recalibrated draft: %w", err)
	}

	s.logger.Info("biometry recalibration applied",
		zap.String("cycle_id", ev.CycleID),
		zap.String("draft_id", draft.ID),
		zap.Int("week_idx", week),
		zap.Float64("coverage_pct", coverage),
		zap.Int("lines_updated", result.LinesUpdated))
	return result, nil
}

// OnSeedingConfirmed shifts the draft's timeline once the plan's final
// pending seeding is confirmed. The shift is computed from stored dates,
// so re-running with the same state is a no-op.
func (s *Service) OnSeedingConfirmed(ctx context.Context, ev models.SeedingConfirmed) (*models.RecalibrationResult, error) {
	if !s.cfg.Enabled {
		return s.skipped(models.TriggerSeeding, ev.CycleID, "reforecast disabled"), nil
	}
	if !ev.LastPending {
		return s.skipped(models.TriggerSeeding, ev.CycleID, "seedings still pending, timeline not final"), nil
	}

	unlock := s.locks.Lock(ev.CycleID)
	defer unlock()

	plan, err := s.store.GetSeedingPlan(ctx, ev.PlanID)
	if err != nil {
		return nil, fmt.Errorf("load seeding plan: %w", err)
	}
	first, _, ok := plan.ConfirmedBounds()
	if !ok {
		return s.skipped(models.TriggerSeeding, ev.CycleID, "no confirmed seeding dates"), nil
	}

	draft, skip, err := s.acquireDraft(ctx, ev.CycleID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return s.skipped(models.TriggerSeeding, ev.CycleID, skip), nil
	}

	delta := models.DaysBetween(draft.FirstLineDate(), first)
	if delta == 0 {
		return s.skipped(models.TriggerSeeding, ev.CycleID, "timeline already aligned with real seeding"), nil
	}

	for i := range draft.Lines {
		draft.Lines[i].PlanDate = draft.Lines[i].PlanDate.AddDate(0, 0, delta)
	}
	if draft.SeedingWindowEnd != nil {
		shifted := draft.SeedingWindowEnd.AddDate(0, 0, delta)
		draft.SeedingWindowEnd = &shifted
	}
	draft.UpdatedAt = s.now().UTC()
	if err := s.store.ReplaceProjection(ctx, draft); err != nil {
		return nil, fmt.Errorf("save shifted draft: %w", err)
	}

	s.logger.Info("projection timeline shifted to real seeding",
		zap.String("cycle_id", ev.CycleID),
		zap.String("draft_id", draft.ID),
		zap.Int("shift_days", delta))
	return &models.RecalibrationResult{
		ID:           uuid.NewString(),
		Trigger:      models.TriggerSeeding,
		CycleID:      ev.CycleID,
		ProjectionID: draft.ID,
		Ran:          true,
		ShiftDays:    delta,
		LinesUpdated: len(draft.Lines),
		At:           s.now().UTC(),
	}, nil
}

// OnHarvestConfirmed writes the confirmed withdrawal into the matching
// projection line and decays survival forward until the next anchor.
func (s *Service) OnHarvestConfirmed(ctx context.Context, ev models.HarvestConfirmed) (*models.RecalibrationResult, error) {
	if !s.cfg.Enabled {
		return s.skipped(models.TriggerHarvest, ev.CycleID, "reforecast disabled"), nil
	}

	unlock := s.locks.Lock(ev.CycleID)
	defer unlock()

	plan, err := s.store.SeedingPlanForCycle(ctx, ev.CycleID)
	if err != nil {
		return nil, fmt.Errorf("load seeding plan: %w", err)
	}
	if plan == nil {
		return s.skipped(models.TriggerHarvest, ev.CycleID, "no seeding plan for cycle"), nil
	}
	baseDensity := plan.BaseDensityFor(ev.PondID)

	withdrawal, err := s.resolveWithdrawal(ctx, ev)
	if err != nil {
		return nil, err
	}

	draft, skip, err := s.acquireDraft(ctx, ev.CycleID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return s.skipped(models.TriggerHarvest, ev.CycleID, skip), nil
	}

	week := harvestWeek(draft, ev)
	before := append([]models.ProjectionLine(nil), draft.Lines...)

	line := &draft.Lines[week]
	line.WithdrawalDensity = &withdrawal
	line.SurvivalPct = calc.SurvivalAfterWithdrawal(line.SurvivalPct, withdrawal, baseDensity)
	line.AnchorSurvival = models.AnchorHarvest

	// Decay propagates forward until the next anchored week.
	for i := week + 1; i < len(draft.Lines); i++ {
		if draft.Lines[i].AnchorSurvival != models.AnchorNone {
			break
		}
		draft.Lines[i].SurvivalPct = calc.SurvivalAfterWithdrawal(draft.Lines[i].SurvivalPct, withdrawal, baseDensity)
	}

	result := &models.RecalibrationResult{
		ID:               uuid.NewString(),
		Trigger:          models.TriggerHarvest,
		CycleID:          ev.CycleID,
		ProjectionID:     draft.ID,
		Ran:              true,
		WeekIdx:          week,
		AnchoredSurvival: true,
		LinesUpdated:     countChanged(before, draft.Lines),
		At:               s.now().UTC(),
	}

	draft.UpdatedAt = s.now().UTC()
	if err := s.store.ReplaceProjection(ctx, draft); err != nil {
		return nil, fmt.Errorf("save recalibrated draft: %w", err)
	}

	s.logger.Info("harvest recalibration applied",
		zap.String("cycle_id", ev.CycleID),
		zap.String("draft_id", draft.ID),
		zap.Int("week_idx", week),
		zap.Float64("withdrawal_density", withdrawal),
		zap.Int("lines_updated", result.LinesUpdated))
	return result, nil
}

// pondSamples groups the calc inputs of one aggregation pass. measured
// holds ponds with a window biometry; surveyed is the subset whose
// sample carried a survival reading.
type pondSamples struct {
	measured []calc.PondSample
	surveyed []calc.PondSample
}

// collectSamples builds calc samples for every pond with confirmed
// seeding. Survival falls back from the window sample to the SOB log to
// a full population. Returns the samples, the measured pond count, and
// the confirmed-seeded pond count.
func (s *Service) collectSamples(ctx context.Context, cycleID string, plan *models.SeedingPlan, from, to time.Time) (pondSamples, int, int, error) {
	bios, err := s.store.BiometriesInWindow(ctx, cycleID, from, to)
	if err != nil {
		return pondSamples{}, 0, 0, fmt.Errorf("load biometries: %w", err)
	}
	// Latest sample per pond wins; the slice arrives date-ascending.
	latest := make(map[string]models.Biometry, len(bios))
	for _, b := range bios {
		latest[b.PondID] = b
	}

	waves, err := s.store.ListHarvestWaves(ctx, cycleID)
	if err != nil {
		return pondSamples{}, 0, 0, fmt.Errorf("load harvest waves: %w", err)
	}

	var out pondSamples
	total := 0
	for _, rec := range plan.Ponds {
		if rec.Status != models.SeedingPondFinalized {
			continue
		}
		total++

		pond, err := s.store.GetPond(ctx, rec.PondID)
		if err != nil {
			return pondSamples{}, 0, 0, fmt.Errorf("load pond %s: %w", rec.PondID, err)
		}

		sample := calc.PondSample{
			PondID:      rec.PondID,
			AreaM2:      pond.AreaM2,
			BaseDensity: plan.BaseDensityFor(rec.PondID),
			Withdrawals: models.ConfirmedWithdrawal(waves, rec.PondID),
			SurvivalPct: 100,
		}
		if sob, err := s.store.LatestSOB(ctx, cycleID, rec.PondID); err != nil {
			return pondSamples{}, 0, 0, fmt.Errorf("load sob log: %w", err)
		} else if sob != nil {
			sample.SurvivalPct = sob.NewPct
		}

		b, ok := latest[rec.PondID]
		if !ok {
			continue
		}
		w := b.AvgWeightG
		sample.AvgWeightG = &w
		if b.SurvivalPct != nil {
			sample.SurvivalPct = *b.SurvivalPct
			out.surveyed = append(out.surveyed, sample)
		}
		out.measured = append(out.measured, sample)
	}
	return out, len(out.measured), total, nil
}

// recomputeTarget scales the draft's target final survival by the ratio
// of observed to planned survival at the anchored week. The result is
// clamped to [0,100] and never above the anchor itself, survival cannot
// increase.
func (s *Service) recomputeTarget(draft *models.Projection, plannedSurvival, observedSurvival float64) (target float64, clamped bool) {
	parent := observedSurvival
	if draft.TargetFinalSurvivalPct != nil {
		parent = *draft.TargetFinalSurvivalPct
	} else if last := draft.LastLine(); last != nil {
		parent = last.SurvivalPct
	}

	target = parent
	if plannedSurvival > 0 {
		target = parent * observedSurvival / plannedSurvival
	}
	if target > observedSurvival {
		target = observedSurvival
		clamped = true
	}
	if target > 100 {
		target = 100
		clamped = true
	}
	if target < 0 {
		target = 0
		clamped = true
	}
	return target, clamped
}

// reinterpolate rewrites all non-anchored lines of the draft: weights
// along the sigmoid between anchors (terminal weight preserved),
// survival linearly, forced to terminate at the target final survival.
func (s *Service) reinterpolate(draft *models.Projection, withSurvival bool) {
	n := len(draft.Lines)
	if n == 0 {
		return
	}

	weights := make([]float64, n)
	survivals := make([]float64, n)
	var weightAnchors, survivalAnchors []int
	for i, ln := range draft.Lines {
		weights[i] = ln.AvgWeightG
		survivals[i] = ln.SurvivalPct
		if ln.AnchorWeight != models.AnchorNone {
			weightAnchors = append(weightAnchors, i)
		}
		if ln.AnchorSurvival != models.AnchorNone {
			survivalAnchors = append(survivalAnchors, i)
		}
	}

	// The terminal weight stays in place so growth re-bends toward it.
	weights = curve.Interpolate(weights, append(weightAnchors, n-1), curve.Sigmoid)
	if withSurvival {
		target := survivals[n-1]
		if draft.TargetFinalSurvivalPct != nil {
			target = *draft.TargetFinalSurvivalPct
		}
		survivals = curve.ForceLast(survivals, survivalAnchors, target, curve.Linear)
	}
	gains := curve.WeeklyGains(weights)

	for i := range draft.Lines {
		draft.Lines[i].AvgWeightG = weights[i]
		draft.Lines[i].WeeklyGainG = gains[i]
		if withSurvival {
			draft.Lines[i].SurvivalPct = survivals[i]
		}
	}
}

// resolveWithdrawal returns the withdrawal density of a confirmation,
// deriving it from biomass and average weight when not given directly.
func (s *Service) resolveWithdrawal(ctx context.Context, ev models.HarvestConfirmed) (float64, error) {
	if ev.WithdrawalDensity != nil {
		return *ev.WithdrawalDensity, nil
	}
	if ev.BiomassKg == nil || ev.AvgWeightG == nil || *ev.AvgWeightG <= 0 {
		return 0, &models.ValidationError{Reason: "harvest confirmation needs a withdrawal density or biomass with average weight"}
	}
	pond, err := s.store.GetPond(ctx, ev.PondID)
	if err != nil {
		return 0, fmt.Errorf("load pond %s: %w", ev.PondID, err)
	}
	if pond.AreaM2 <= 0 {
		return 0, &models.ValidationError{Reason: fmt.Sprintf("pond %s has no area, cannot derive withdrawal density", ev.PondID)}
	}
	organisms := *ev.BiomassKg * 1000 / *ev.AvgWeightG
	return organisms / pond.AreaM2, nil
}

// harvestWeek picks the projection line a withdrawal lands on: the
// harvest-flagged line nearest the real harvest date, or simply the
// nearest line when none is flagged.
func harvestWeek(draft *models.Projection, ev models.HarvestConfirmed) int {
	best := -1
	bestDiff := 0
	for i, ln := range draft.Lines {
		if !ln.HarvestFlag {
			continue
		}
		diff := models.DaysBetween(ln.PlanDate, ev.HarvestDate)
		if diff < 0 {
			diff = -diff
		}
		if best == -1 || diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}
	if best >= 0 {
		return best
	}
	return draft.NearestWeekIdx(ev.HarvestDate)
}

// countChanged counts lines that differ between two snapshots.
func countChanged(before, after []models.ProjectionLine) int {
	n := 0
	for i := range after {
		if i >= len(before) || !linesEqual(before[i], after[i]) {
			n++
		}
	}
	return n
}

func linesEqual(a, b models.ProjectionLine) bool {
	if a.AvgWeightG != b.AvgWeightG || a.SurvivalPct != b.SurvivalPct ||
		a.WeeklyGainG != b.WeeklyGainG || !a.PlanDate.Equal(b.PlanDate) ||
		a.AnchorWeight != b.AnchorWeight || a.AnchorSurvival != b.AnchorSurvival {
		return false
	}
	if (a.WithdrawalDensity == nil) != (b.WithdrawalDensity == nil) {
		return false
	}
	if a.WithdrawalDensity != nil && *a.WithdrawalDensity != *b.WithdrawalDensity {
		return false
	}
	return true
}
