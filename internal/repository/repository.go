package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aquatrackmx/aquatrack/internal/domain/models"
)

// ErrNotFound is returned by Get-style lookups when the entity does not
// exist. Find-style lookups (Current, Draft, PlanForCycle...) return
// (nil, nil) instead so callers can branch without error inspection.
var ErrNotFound = errors.New("not found")

// CycleStore persists production cycles.
type CycleStore interface {
	CreateCycle(ctx context.Context, c *models.Cycle) error
	GetCycle(ctx context.Context, id string) (*models.Cycle, error)
	UpdateCycle(ctx context.Context, c *models.Cycle) error
	ListActiveCycles(ctx context.Context) ([]models.Cycle, error)
}

// PondStore reads the pond inventory of a farm.
type PondStore interface {
	CreatePond(ctx context.Context, p *models.Pond) error
	GetPond(ctx context.Context, id string) (*models.Pond, error)
	ListPondsByFarm(ctx context.Context, farmID string, activeOnly bool) ([]models.Pond, error)
}

// ProjectionStore persists projection versions with their embedded lines.
// ReplaceProjection swaps the whole document, which keeps a trigger's
// line rewrite all-or-nothing.
type ProjectionStore interface {
	CreateProjection(ctx context.Context, p *models.Projection) error
	ReplaceProjection(ctx context.Context, p *models.Projection) error
	DeleteProjection(ctx context.Context, id string) error
	GetProjection(ctx context.Context, id string) (*models.Projection, error)
	ListProjections(ctx context.Context, cycleID string) ([]models.Projection, error)
	CurrentProjection(ctx context.Context, cycleID string) (*models.Projection, error)
	DraftProjection(ctx context.Context, cycleID string) (*models.Projection, error)
	ReforecastDraft(ctx context.Context, cycleID string) (*models.Projection, error)
	CountProjections(ctx context.Context, cycleID string) (int, error)
}

// SeedingStore persists the per-cycle seeding plan (pond records embedded).
type SeedingStore interface {
	SeedingPlanForCycle(ctx context.Context, cycleID string) (*models.SeedingPlan, error)
	GetSeedingPlan(ctx context.Context, id string) (*models.SeedingPlan, error)
	SaveSeedingPlan(ctx context.Context, plan *models.SeedingPlan) error
}

// HarvestStore persists harvest waves (withdrawal lines embedded).
type HarvestStore interface {
	ListHarvestWaves(ctx context.Context, cycleID string) ([]models.HarvestWave, error)
	GetHarvestWave(ctx context.Context, id string) (*models.HarvestWave, error)
	SaveHarvestWave(ctx context.Context, wave *models.HarvestWave) error
	DeleteHarvestWave(ctx context.Context, id string) error
}

// BiometryStore persists biometric samples.
type BiometryStore interface {
	InsertBiometry(ctx context.Context, b *models.Biometry) error
	BiometriesInWindow(ctx context.Context, cycleID string, from, to time.Time) ([]models.Biometry, error)
	LatestBiometry(ctx context.Context, cycleID, pondID string) (*models.Biometry, error)
}

// SOBLogStore is the append-only survival audit log. Entries are never
// updated or deleted.
type SOBLogStore interface {
	AppendSOBChange(ctx context.Context, change *models.SOBChange) error
	LatestSOB(ctx context.Context, cycleID, pondID string) (*models.SOBChange, error)
}

// Store is the full persistence surface the services build on.
type Store interface {
	CycleStore
	PondStore
	ProjectionStore
	SeedingStore
	HarvestStore
	BiometryStore
	SOBLogStore
}
