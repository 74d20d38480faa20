package reporting

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

type fakeDashboard struct {
	rows [][]interface{}
}

func (f *fakeDashboard) AppendKPIRow(_ context.Context, row []interface{}) error {
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeDashboard) ReadKPIRange(_ context.Context) ([][]interface{}, error) {
	return f.rows, nil
}

type fixture struct {
	store *memory.Store
	svc   *Service
	dash  *fakeDashboard
	cycle *models.Cycle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	cycle := &models.Cycle{ID: "cycle-1", FarmID: "farm-1", Name: "ciclo 2026-1", Status: models.CycleActive, StartDate: date(2026, 3, 2)}
	require.NoError(t, store.CreateCycle(ctx, cycle))

	for _, p := range []models.Pond{
		{ID: "pond-a", FarmID: "farm-1", Name: "E-01", AreaM2: 1000, Active: true},
		{ID: "pond-b", FarmID: "farm-1", Name: "E-02", AreaM2: 2000, Active: true},
	} {
		pond := p
		require.NoError(t, store.CreatePond(ctx, &pond))
	}

	plan := &models.SeedingPlan{
		ID: "plan-1", CycleID: cycle.ID, DensityOrgM2: 20, InitialWeightG: 0.02,
		Status: models.SeedingPlanFinalized,
		Ponds: []models.SeedingPond{
			{PondID: "pond-a", PlannedDate: date(2026, 3, 2), Status: models.SeedingPondFinalized},
			{PondID: "pond-b", PlannedDate: date(2026, 3, 2), Status: models.SeedingPondFinalized},
		},
	}
	require.NoError(t, store.SaveSeedingPlan(ctx, plan))

	dash := &fakeDashboard{}
	svc := NewService(store, dash, nil)
	svc.now = func() time.Time { return date(2026, 3, 30) }
	return &fixture{store: store, svc: svc, dash: dash, cycle: cycle}
}

func TestPondSnapshotsSourcePriority(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	// pond-a has real measurements; pond-b only the projection.
	require.NoError(t, fx.store.InsertBiometry(ctx, &models.Biometry{
		ID: "bio-1", CycleID: fx.cycle.ID, PondID: "pond-a",
		Date: date(2026, 3, 29), AvgWeightG: 7.5,
	}))
	require.NoError(t, fx.store.AppendSOBChange(ctx, &models.SOBChange{
		ID: "sob-1", CycleID: fx.cycle.ID, PondID: "pond-a",
		PreviousPct: 100, NewPct: 85, Source: models.SOBOperational, ChangedAt: date(2026, 3, 29),
	}))
	require.NoError(t, fx.store.CreateProjection(ctx, &models.Projection{
		ID: "proj-1", CycleID: fx.cycle.ID, Status: models.ProjectionPublished, IsCurrent: true,
		Lines: []models.ProjectionLine{
			{WeekIdx: 0, PlanDate: date(2026, 3, 2), AvgWeightG: 0.02, SurvivalPct: 100},
			{WeekIdx: 4, PlanDate: date(2026, 3, 30), AvgWeightG: 6.0, SurvivalPct: 92},
		},
	}))

	snaps, err := fx.svc.PondSnapshots(ctx, fx.cycle.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	a := snaps[0]
	assert.Equal(t, "pond-a", a.PondID)
	assert.Equal(t, models.SourceMeasurement, a.WeightSource)
	assert.InDelta(t, 7.5, a.AvgWeightG, 1e-9)
	assert.Equal(t, models.SourceMeasurement, a.SurvivalSource)
	assert.InDelta(t, 85.0, a.SurvivalPct, 1e-9)
	assert.InDelta(t, 17.0, a.LiveDensity, 1e-9)
	assert.InDelta(t, 17000.0, a.LiveOrganisms, 1e-9)
	assert.InDelta(t, 127.5, a.BiomassKg, 1e-9)

	b := snaps[1]
	assert.Equal(t, models.SourceProjection, b.WeightSource)
	assert.InDelta(t, 6.0, b.AvgWeightG, 1e-9)
	assert.Equal(t, models.SourceProjection, b.SurvivalSource)
	assert.InDelta(t, 92.0, b.SurvivalPct, 1e-9)
}

func TestPondSnapshotsFallBackToPlanDefaults(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	snaps, err := fx.svc.PondSnapshots(context.Background(), fx.cycle.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	assert.Equal(t, models.SourcePlanInitial, snaps[0].WeightSource)
	assert.InDelta(t, 0.02, snaps[0].AvgWeightG, 1e-9)
	assert.Equal(t, models.SourceDefault, snaps[0].SurvivalSource)
	assert.InDelta(t, 100.0, snaps[0].SurvivalPct, 1e-9)
}

func TestPondSnapshotsNilWithoutPlan(t *testing.T) {
	t.Parallel()
	store := memory.NewStore()
	svc := NewService(store, nil, nil)

	snaps, err := svc.PondSnapshots(context.Background(), "missing-cycle")
	require.NoError(t, err)
	assert.Nil(t, snaps)
}

func TestFarmKPIsCountsOnlyMeasuredWeights(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.store.InsertBiometry(ctx, &models.Biometry{
		ID: "bio-1", CycleID: fx.cycle.ID, PondID: "pond-a",
		Date: date(2026, 3, 29), AvgWeightG: 7.5,
	}))

	kpis, err := fx.svc.FarmKPIs(ctx, fx.cycle.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, kpis.PondsTotal)
	assert.Equal(t, 1, kpis.PondsIncluded)
	require.NotNil(t, kpis.WeightedAvgWeightG)
	assert.InDelta(t, 7.5, *kpis.WeightedAvgWeightG, 1e-9)
	require.NotNil(t, kpis.GlobalSurvivalPct)
	assert.InDelta(t, 100.0, *kpis.GlobalSurvivalPct, 1e-9)
	assert.Greater(t, kpis.TotalBiomassKg, 0.0)
}

func TestExportDailyKPIsAppendsRowPerActiveCycle(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	require.NoError(t, fx.svc.ExportDailyKPIs(context.Background()))
	require.Len(t, fx.dash.rows, 1)
	assert.Equal(t, "2026-03-30", fx.dash.rows[0][0])
	assert.Equal(t, fx.cycle.ID, fx.dash.rows[0][1])
}
