// Package memory provides an in-memory Store used by tests and local
// development. All reads return deep copies so callers can mutate
// results freely.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aquatrackmx/aquatrack/internal/domain/models"
	"github.com/aquatrackmx/aquatrack/internal/repository"
)

type Store struct {
	mu          sync.RWMutex
	cycles      map[string]models.Cycle
	ponds       map[string]models.Pond
	projections map[string]models.Projection
	plans       map[string]models.SeedingPlan
	waves       map[string]models.HarvestWave
	biometries  []models.Biometry
	sobChanges  []models.SOBChange
}

func NewStore() *Store {
	return &Store{
		cycles:      make(map[string]models.Cycle),
		ponds:       make(map[string]models.Pond),
		projections: make(map[string]models.Projection),
		plans:       make(map[string]models.SeedingPlan),
		waves:       make(map[string]models.HarvestWave),
	}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) CreateCycle(_ context.Context, c *models.Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles[c.ID] = *c
	return nil
}

func (s *Store) GetCycle(_ context.Context, id string) (*models.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cycles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := c
	return &out, nil
}

func (s *Store) UpdateCycle(_ context.Context, c *models.Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cycles[c.ID]; !ok {
		return repository.ErrNotFound
	}
	s.cycles[c.ID] = *c
	return nil
}

func (s *Store) ListActiveCycles(_ context.Context) ([]models.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Cycle
	for _, c := range s.cycles {
		if c.Status == models.CycleActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreatePond(_ context.Context, p *models.Pond) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ponds[p.ID] = *p
	return nil
}

func (s *Store) GetPond(_ context.Context, id string) (*models.Pond, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.ponds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := p
	return &out, nil
}

func (s *Store) ListPondsByFarm(_ context.Context, farmID string, activeOnly bool) ([]models.Pond, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Pond
	for _, p := range s.ponds {
		if p.FarmID != farmID {
			continue
		}
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func copyProjection(p models.Projection) models.Projection {
	out := p
	out.Lines = append([]models.ProjectionLine(nil), p.Lines...)
	return out
}

func (s *Store) CreateProjection(_ context.Context, p *models.Projection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projections[p.ID] = copyProjection(*p)
	return nil
}

func (s *Store) ReplaceProjection(_ context.Context, p *models.Projection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projections[p.ID]; !ok {
		return repository.ErrNotFound
	}
	s.projections[p.ID] = copyProjection(*p)
	return nil
}

func (s *Store) DeleteProjection(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projections[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.projections, id)
	return nil
}

func (s *Store) GetProjection(_ context.Context, id string) (*models.Projection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projections[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyProjection(p)
	return &out, nil
}

func (s *Store) ListProjections(_ context.Context, cycleID string) ([]models.Projection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Projection
	for _, p := range s.projections {
		if p.CycleID == cycleID {
			out = append(out, copyProjection(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) findProjection(cycleID string, match func(models.Projection) bool) (*models.Projection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.projections {
		if p.CycleID == cycleID && match(p) {
			out := copyProjection(p)
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) CurrentProjection(_ context.Context, cycleID string) (*models.Projection, error) {
	return s.findProjection(cycleID, func(p models.Projection) bool {
		return p.IsCurrent && p.Status.Published()
	})
}

func (s *Store) DraftProjection(_ context.Context, cycleID string) (*models.Projection, error) {
	return s.findProjection(cycleID, func(p models.Projection) bool {
		return p.Status == models.ProjectionDraft
	})
}

func (s *Store) ReforecastDraft(_ context.Context, cycleID string) (*models.Projection, error) {
	return s.findProjection(cycleID, func(p models.Projection) bool {
		return p.Status == models.ProjectionDraft && p.Source == models.SourceReforecast
	})
}

func (s *Store) CountProjections(_ context.Context, cycleID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.projections {
		if p.CycleID == cycleID {
			n++
		}
	}
	return n, nil
}

func copyPlan(plan models.SeedingPlan) models.SeedingPlan {
	out := plan
	out.Ponds = append([]models.SeedingPond(nil), plan.Ponds...)
	return out
}

func (s *Store) SeedingPlanForCycle(_ context.Context, cycleID string) (*models.SeedingPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, plan := range s.plans {
		if plan.CycleID == cycleID {
			out := copyPlan(plan)
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) GetSeedingPlan(_ context.Context, id string) (*models.SeedingPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, ok := s.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyPlan(plan)
	return &out, nil
}

func (s *Store) SaveSeedingPlan(_ context.Context, plan *models.SeedingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = copyPlan(*plan)
	return nil
}

func copyWave(w models.HarvestWave) models.HarvestWave {
	out := w
	out.Ponds = append([]models.HarvestPond(nil), w.Ponds...)
	return out
}

func (s *Store) ListHarvestWaves(_ context.Context, cycleID string) ([]models.HarvestWave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.HarvestWave
	for _, w := range s.waves {
		if w.CycleID == cycleID {
			out = append(out, copyWave(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *Store) GetHarvestWave(_ context.Context, id string) (*models.HarvestWave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.waves[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyWave(w)
	return &out, nil
}

func (s *Store) SaveHarvestWave(_ context.Context, wave *models.HarvestWave) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waves[wave.ID] = copyWave(*wave)
	return nil
}

func (s *Store) DeleteHarvestWave(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.waves[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.waves, id)
	return nil
}

func (s *Store) InsertBiometry(_ context.Context, b *models.Biometry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.biometries = append(s.biometries, *b)
	return nil
}

func (s *Store) BiometriesInWindow(_ context.Context, cycleID string, from, to time.Time) ([]models.Biometry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Biometry
	for _, b := range s.biometries {
		if b.CycleID != cycleID {
			continue
		}
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) LatestBiometry(_ context.Context, cycleID, pondID string) (*models.Biometry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Biometry
	for i := range s.biometries {
		b := s.biometries[i]
		if b.CycleID != cycleID || b.PondID != pondID {
			continue
		}
		if latest == nil || b.Date.After(latest.Date) {
			bc := b
			latest = &bc
		}
	}
	return latest, nil
}

func (s *Store) AppendSOBChange(_ context.Context, change *models.SOBChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sobChanges = append(s.sobChanges, *change)
	return nil
}

func (s *Store) LatestSOB(_ context.Context, cycleID, pondID string) (*models.SOBChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.sobChanges) - 1; i >= 0; i-- {
		c := s.sobChanges[i]
		if c.CycleID == cycleID && c.PondID == pondID {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}
