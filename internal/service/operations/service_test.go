package operations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquatrackmx/aquatrack/internal/domain/models"
	"github.com/aquatrackmx/aquatrack/internal/repository/memory"
)

func fp(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// recalRecorder captures dispatched events and answers with a canned
// result.
type recalRecorder struct {
	biometry []models.BiometryRecorded
	seeding  []models.SeedingConfirmed
	harvest  []models.HarvestConfirmed
}

func (r *recalRecorder) OnBiometryRecorded(_ context.Context, ev models.BiometryRecorded) (*models.RecalibrationResult, error) {
	r.biometry = append(r.biometry, ev)
	return &models.RecalibrationResult{Trigger: models.TriggerBiometry, CycleID: ev.CycleID, Ran: true}, nil
}

func (r *recalRecorder) OnSeedingConfirmed(_ context.Context, ev models.SeedingConfirmed) (*models.RecalibrationResult, error) {
	r.seeding = append(r.seeding, ev)
	return &models.RecalibrationResult{Trigger: models.TriggerSeeding, CycleID: ev.CycleID, Ran: ev.LastPending}, nil
}

func (r *recalRecorder) OnHarvestConfirmed(_ context.Context, ev models.HarvestConfirmed) (*models.RecalibrationResult, error) {
	r.harvest = append(r.harvest, ev)
	return &models.RecalibrationResult{Trigger: models.TriggerHarvest, CycleID: ev.CycleID, Ran: true}, nil
}

type fixture struct {
	store *memory.Store
	recal *recalRecorder
	svc   *Service
	cycle *models.Cycle
	plan  *models.SeedingPlan
	wave  *models.HarvestWave
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	cycle := &models.Cycle{ID: "cycle-1", FarmID: "farm-1", Status: models.CycleActive, StartDate: date(2026, 3, 2)}
	require.NoError(t, store.CreateCycle(ctx, cycle))

	for _, id := range []string{"pond-a", "pond-b"} {
		pond := &models.Pond{ID: id, FarmID: "farm-1", Name: id, AreaM2: 1000, Active: true}
		require.NoError(t, store.CreatePond(ctx, pond))
	}

	plan := &models.SeedingPlan{
		ID:           "plan-1",
		CycleID:      cycle.ID,
		WindowStart:  date(2026, 3, 1),
		WindowEnd:    date(2026, 3, 10),
		DensityOrgM2: 20,
		Status:       models.SeedingPlanPlanned,
		Ponds: []models.SeedingPond{
			{PondID: "pond-a", PlannedDate: date(2026, 3, 2), Status: models.SeedingPondPlanned},
			{PondID: "pond-b", PlannedDate: date(2026, 3, 6), Status: models.SeedingPondPlanned},
		},
	}
	require.NoError(t, store.SaveSeedingPlan(ctx, plan))

	wave := &models.HarvestWave{
		ID:      "wave-1",
		CycleID: cycle.ID,
		Kind:    models.WaveFinal,
		Status:  models.WavePending,
		Ponds: []models.HarvestPond{
			{PondID: "pond-a", PlannedDate: date(2026, 4, 13), Status: models.HarvestPondPending},
			{PondID: "pond-b", PlannedDate: date(2026, 4, 13), Status: models.HarvestPondPending},
		},
	}
	require.NoError(t, store.SaveHarvestWave(ctx, wave))

	recal := &recalRecorder{}
	return &fixture{store: store, recal: recal, svc: NewService(store, recal, nil), cycle: cycle, plan: plan, wave: wave}
}

func TestRecordBiometryPersistsAndDispatches(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	bio, res, err := fx.svc.RecordBiometry(ctx, models.BiometryRecorded{
		CycleID: fx.cycle.ID, PondID: "pond-a", Date: date(2026, 3, 30),
		AvgWeightG: 7.5, SurvivalPct: fp(88),
	})
	require.NoError(t, err)
	require.NotNil(t, bio)
	assert.True(t, res.Ran)
	require.Len(t, fx.recal.biometry, 1)
	assert.Equal(t, "pond-a", fx.recal.biometry[0].PondID)

	stored, err := fx.store.LatestBiometry(ctx, fx.cycle.ID, "pond-a")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.InDelta(t, 7.5, stored.AvgWeightG, 1e-9)

	sob, err := fx.store.LatestSOB(ctx, fx.cycle.ID, "pond-a")
	require.NoError(t, err)
	require.NotNil(t, sob)
	assert.InDelta(t, 88.0, sob.NewPct, 1e-9)
	assert.InDelta(t, 100.0, sob.PreviousPct, 1e-9)
	assert.Equal(t, models.SOBOperational, sob.Source)
}

func TestRecordBiometryRejectsBadInput(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	_, _, err := fx.svc.RecordBiometry(ctx, models.BiometryRecorded{
		CycleID: fx.cycle.ID, PondID: "pond-a", Date: date(2026, 3, 30), AvgWeightG: 0,
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	_, _, err = fx.svc.RecordBiometry(ctx, models.BiometryRecorded{
		CycleID: fx.cycle.ID, PondID: "pond-a", Date: date(2026, 3, 30),
		AvgWeightG: 5, SurvivalPct: fp(130),
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestConfirmSeedingProgressesPlan(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	plan, res, err := fx.svc.ConfirmSeeding(ctx, fx.plan.ID, "pond-a", date(2026, 3, 9), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SeedingPlanInExecution, plan.Status)
	assert.False(t, res.Ran)
	require.Len(t, fx.recal.seeding, 1)
	assert.False(t, fx.recal.seeding[0].LastPending)

	// A baseline survival entry is logged on confirmation.
	sob, err := fx.store.LatestSOB(ctx, fx.cycle.ID, "pond-a")
	require.NoError(t, err)
	require.NotNil(t, sob)
	assert.InDelta(t, 100.0, sob.NewPct, 1e-9)
}

func TestConfirmSeedingLastPondFinalizesAndSyncs(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	_, _, err := fx.svc.ConfirmSeeding(ctx, fx.plan.ID, "pond-a", date(2026, 3, 9), nil, nil)
	require.NoError(t, err)
	plan, res, err := fx.svc.ConfirmSeeding(ctx, fx.plan.ID, "pond-b", date(2026, 3, 12), fp(22), nil)
	require.NoError(t, err)

	assert.Equal(t, models.SeedingPlanFinalized, plan.Status)
	assert.True(t, res.Ran)
	require.Len(t, fx.recal.seeding, 2)
	assert.True(t, fx.recal.seeding[1].LastPending)

	// The window collapses to the real confirmed bounds.
	assert.Equal(t, date(2026, 3, 9), plan.WindowStart)
	assert.Equal(t, date(2026, 3, 12), plan.WindowEnd)
	assert.InDelta(t, 22.0, *plan.PondRecord("pond-b").DensityOverride, 1e-9)

	// The cycle start date follows the real first seeding.
	cycle, err := fx.store.GetCycle(ctx, fx.cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2026, 3, 9), cycle.StartDate)
}

func TestConfirmSeedingTwiceConflicts(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	_, _, err := fx.svc.ConfirmSeeding(ctx, fx.plan.ID, "pond-a", date(2026, 3, 9), nil, nil)
	require.NoError(t, err)
	_, _, err = fx.svc.ConfirmSeeding(ctx, fx.plan.ID, "pond-a", date(2026, 3, 10), nil, nil)
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))
}

func TestConfirmHarvestRealizesWaveWhenComplete(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	wave, res, err := fx.svc.ConfirmHarvest(ctx, models.HarvestConfirmed{
		CycleID: fx.cycle.ID, WaveID: fx.wave.ID, PondID: "pond-a",
		HarvestDate: date(2026, 4, 14), WithdrawalDensity: fp(5),
	})
	require.NoError(t, err)
	assert.Equal(t, models.WavePending, wave.Status)
	assert.True(t, res.Ran)

	wave, _, err = fx.svc.ConfirmHarvest(ctx, models.HarvestConfirmed{
		CycleID: fx.cycle.ID, WaveID: fx.wave.ID, PondID: "pond-b",
		HarvestDate: date(2026, 4, 15), WithdrawalDensity: fp(4),
	})
	require.NoError(t, err)
	assert.Equal(t, models.WaveRealized, wave.Status)

	line := wave.PondLine("pond-b")
	require.NotNil(t, line)
	assert.Equal(t, models.HarvestPondConfirmed, line.Status)
	require.NotNil(t, line.ConfirmedAt)

	// Withdrawal decays the pond's audited survival: 100 * (1 - 5/20).
	sob, err := fx.store.LatestSOB(ctx, fx.cycle.ID, "pond-a")
	require.NoError(t, err)
	require.NotNil(t, sob)
	assert.InDelta(t, 75.0, sob.NewPct, 1e-9)
	assert.Equal(t, models.SOBReforecast, sob.Source)
}

func TestConfirmHarvestDerivesDensityFromBiomass(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	wave, _, err := fx.svc.ConfirmHarvest(ctx, models.HarvestConfirmed{
		CycleID: fx.cycle.ID, WaveID: fx.wave.ID, PondID: "pond-a",
		HarvestDate: date(2026, 4, 14), BiomassKg: fp(100), AvgWeightG: fp(20),
	})
	require.NoError(t, err)

	line := wave.PondLine("pond-a")
	require.NotNil(t, line)
	require.NotNil(t, line.WithdrawalDensity)
	assert.InDelta(t, 5.0, *line.WithdrawalDensity, 1e-9)

	require.Len(t, fx.recal.harvest, 1)
	require.NotNil(t, fx.recal.harvest[0].WithdrawalDensity)
	assert.InDelta(t, 5.0, *fx.recal.harvest[0].WithdrawalDensity, 1e-9)
}

func TestConfirmHarvestRejectsIncompleteInput(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	_, _, err := fx.svc.ConfirmHarvest(context.Background(), models.HarvestConfirmed{
		CycleID: fx.cycle.ID, WaveID: fx.wave.ID, PondID: "pond-a",
		HarvestDate: date(2026, 4, 14), BiomassKg: fp(100),
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestAdjustSurvivalAppendsManualEntry(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	change, err := fx.svc.AdjustSurvival(ctx, fx.cycle.ID, "pond-a", 82, "conteo manual")
	require.NoError(t, err)
	assert.Equal(t, models.SOBManual, change.Source)
	assert.InDelta(t, 100.0, change.PreviousPct, 1e-9)
	assert.InDelta(t, 82.0, change.NewPct, 1e-9)

	_, err = fx.svc.AdjustSurvival(ctx, fx.cycle.ID, "pond-a", 120, "")
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}
