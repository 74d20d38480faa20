package autosetup

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

type fixture struct {
	store *memory.Store
	dist  *Distributor
	cycle *models.Cycle
	proj  *models.Projection
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	cycle := &models.Cycle{ID: "cycle-1", FarmID: "farm-1", Status: models.CycleActive, StartDate: date(2026, 3, 10)}
	require.NoError(t, store.CreateCycle(ctx, cycle))

	for _, p := range []models.Pond{
		{ID: "pond-a", FarmID: "farm-1", Name: "E-01", AreaM2: 5000, Active: true},
		{ID: "pond-b", FarmID: "farm-1", Name: "E-02", AreaM2: 4000, Active: true},
		{ID: "pond-c", FarmID: "farm-1", Name: "E-03", AreaM2: 6000, Active: true},
		{ID: "pond-x", FarmID: "farm-1", Name: "E-99", AreaM2: 3000, Active: false},
	} {
		pond := p
		require.NoError(t, store.CreatePond(ctx, &pond))
	}

	proj := &models.Projection{
		ID:           "proj-1",
		CycleID:      "cycle-1",
		Status:       models.ProjectionPublished,
		IsCurrent:    true,
		DensityOrgM2: fp(20),
		Lines: []models.ProjectionLine{
			{WeekIdx: 0, PlanDate: date(2026, 3, 10), SurvivalPct: 100},
			{WeekIdx: 1, PlanDate: date(2026, 3, 17), SurvivalPct: 98},
			{WeekIdx: 2, PlanDate: date(2026, 3, 24), SurvivalPct: 96, HarvestFlag: true, WithdrawalDensity: fp(5)},
			{WeekIdx: 3, PlanDate: date(2026, 3, 31), SurvivalPct: 94, HarvestFlag: true},
		},
	}
	require.NoError(t, store.CreateProjection(ctx, proj))

	dist := NewDistributor(store, nil)
	dist.now = func() time.Time { return date(2026, 3, 1) }
	return &fixture{store: store, dist: dist, cycle: cycle, proj: proj}
}

func TestSyncCreatesSeedingPlanWithDistributedDates(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.dist.Sync(ctx, fx.cycle, fx.proj))

	plan, err := fx.store.SeedingPlanForCycle(ctx, fx.cycle.ID)
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.Equal(t, models.SeedingPlanPlanned, plan.Status)
	assert.Equal(t, date(2026, 3, 1), plan.WindowStart)
	assert.Equal(t, date(2026, 3, 10), plan.WindowEnd)
	assert.InDelta(t, 20.0, plan.DensityOrgM2, 1e-9)

	// Inactive ponds are excluded, dates spread across the window.
	require.Len(t, plan.Ponds, 3)
	assert.Equal(t, date(2026, 3, 1), plan.Ponds[0].PlannedDate)
	assert.Equal(t, date(2026, 3, 6), plan.Ponds[1].PlannedDate)
	assert.Equal(t, date(2026, 3, 10), plan.Ponds[2].PlannedDate)
}

func TestSyncLeavesFrozenPlanUntouched(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	frozen := &models.SeedingPlan{
		ID:      "plan-1",
		CycleID: fx.cycle.ID,
		Status:  models.SeedingPlanInExecution,
		Ponds: []models.SeedingPond{
			{PondID: "pond-a", PlannedDate: date(2026, 2, 20), Status: models.SeedingPondFinalized},
		},
	}
	require.NoError(t, fx.store.SaveSeedingPlan(ctx, frozen))

	require.NoError(t, fx.dist.Sync(ctx, fx.cycle, fx.proj))

	got, err := fx.store.SeedingPlanForCycle(ctx, fx.cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SeedingPlanInExecution, got.Status)
	require.Len(t, got.Ponds, 1)
	assert.Equal(t, date(2026, 2, 20), got.Ponds[0].PlannedDate)
}

func TestSyncPreservesOverridesOnRedistribution(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.dist.Sync(ctx, fx.cycle, fx.proj))

	plan, err := fx.store.SeedingPlanForCycle(ctx, fx.cycle.ID)
	require.NoError(t, err)
	plan.Ponds[1].DensityOverride = fp(25)
	require.NoError(t, fx.store.SaveSeedingPlan(ctx, plan))

	require.NoError(t, fx.dist.Sync(ctx, fx.cycle, fx.proj))

	got, err := fx.store.SeedingPlanForCycle(ctx, fx.cycle.ID)
	require.NoError(t, err)
	rec := got.PondRecord("pond-b")
	require.NotNil(t, rec)
	require.NotNil(t, rec.DensityOverride)
	assert.InDelta(t, 25.0, *rec.DensityOverride, 1e-9)
}

func TestSyncCreatesWavesFromFlaggedLines(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.dist.Sync(ctx, fx.cycle, fx.proj))

	waves, err := fx.store.ListHarvestWaves(ctx, fx.cycle.ID)
	require.NoError(t, err)
	require.Len(t, waves, 2)

	assert.Equal(t, models.WavePartial, waves[0].Kind)
	assert.Equal(t, date(2026, 3, 24), waves[0].WindowStart)
	assert.Equal(t, date(2026, 3, 30), waves[0].WindowEnd)
	require.NotNil(t, waves[0].TargetWithdrawal)
	assert.InDelta(t, 5.0, *waves[0].TargetWithdrawal, 1e-9)
	assert.Len(t, waves[0].Ponds, 3)

	assert.Equal(t, models.WaveFinal, waves[1].Kind)
	assert.Nil(t, waves[1].TargetWithdrawal)
}

func TestSyncIsIdempotent(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.dist.Sync(ctx, fx.cycle, fx.proj))
	first, err := fx.store.ListHarvestWaves(ctx, fx.cycle.ID)
	require.NoError(t, err)

	require.NoError(t, fx.dist.Sync(ctx, fx.cycle, fx.proj))
	second, err := fx.store.ListHarvestWaves(ctx, fx.cycle.ID)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "wave identity must be stable across runs")
		assert.Equal(t, first[i].Ponds, second[i].Ponds)
	}
}

func TestSyncFreezesWhenAnyWaveRealized(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.dist.Sync(ctx, fx.cycle, fx.proj))
	waves, err := fx.store.ListHarvestWaves(ctx, fx.cycle.ID)
	require.NoError(t, err)
	waves[0].Status = models.WaveRealized
	require.NoError(t, fx.store.SaveHarvestWave(ctx, &waves[0]))

	// Drop every flag; a non-frozen sync would delete both waves.
	for i := range fx.proj.Lines {
		fx.proj.Lines[i].HarvestFlag = false
	}
	require.NoError(t, fx.dist.Sync(ctx, fx.cycle, fx.proj))

	got, err := fx.store.ListHarvestWaves(ctx, fx.cycle.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSyncCreatesFinalWaveWithoutFlaggedLines(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	for i := range fx.proj.Lines {
		fx.proj.Lines[i].HarvestFlag = false
	}
	require.NoError(t, fx.dist.Sync(ctx, fx.cycle, fx.proj))

	waves, err := fx.store.ListHarvestWaves(ctx, fx.cycle.ID)
	require.NoError(t, err)
	require.Len(t, waves, 1)

	assert.Equal(t, models.WaveFinal, waves[0].Kind)
	assert.Equal(t, "Cosecha final (auto)", waves[0].Name)
	assert.Equal(t, date(2026, 3, 31), waves[0].WindowStart)
	assert.Len(t, waves[0].Ponds, 3)

	// A second sync reuses the wave instead of dropping it as an orphan.
	require.NoError(t, fx.dist.Sync(ctx, fx.cycle, fx.proj))
	again, err := fx.store.ListHarvestWaves(ctx, fx.cycle.ID)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, waves[0].ID, again[0].ID)
}

func TestSyncDropsOrphanWaves(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.dist.Sync(ctx, fx.cycle, fx.proj))

	// The projection loses its second harvest flag.
	fx.proj.Lines[3].HarvestFlag = false
	require.NoError(t, fx.dist.Sync(ctx, fx.cycle, fx.proj))

	waves, err := fx.store.ListHarvestWaves(ctx, fx.cycle.ID)
	require.NoError(t, err)
	require.Len(t, waves, 1)
	assert.Equal(t, models.WaveFinal, waves[0].Kind, "the remaining wave becomes the final one")
}
