// Package projection implements the projection version lifecycle: one
// current published version per cycle, at most one draft, and the
// expansion of canonical documents into contiguous weekly lines.
package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aquatrackmx/aquatrack/internal/domain/models"
	"github.com/aquatrackmx/aquatrack/internal/repository"
	"github.com/aquatrackmx/aquatrack/internal/service/curve"
	"github.com/aquatrackmx/aquatrack/pkg/locks"
)

// Distributor refreshes seeding/harvest skeletons after a projection
// becomes current. Implemented by the autosetup package.
type Distributor interface {
	Sync(ctx context.Context, cycle *models.Cycle, proj *models.Projection) error
}

// Service drives the projection state machine. All mutations of a
// cycle's projection lineage are serialized through the keyed lock.
type Service struct {
	store  repository.Store
	locks  *locks.Keyed
	dist   Distributor
	logger *zap.Logger
}

// NewService wires a new projection service instance. dist may be nil in
// tests that do not exercise auto-setup.
func NewService(store repository.Store, cycleLocks *locks.Keyed, dist Distributor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cycleLocks == nil {
		cycleLocks = locks.NewKeyed()
	}
	return &Service{store: store, locks: cycleLocks, dist: dist, logger: logger}
}

// CreateOptions qualifies a new projection version.
type CreateOptions struct {
	Source      models.SourceKind
	SourceRef   string
	Description string
	// ReplaceDraft discards an existing draft instead of failing.
	ReplaceDraft bool
}

// CreateVersion validates and expands a canonical document into a new
// projection version. The cycle's first version is published and made
// current immediately; later versions start as drafts. A second draft is
// a conflict unless the caller requested replacement.
func (s *Service) CreateVersion(ctx context.Context, cycleID string, doc models.CanonicalDocument, opts CreateOptions) (*models.Projection, error) {
	unlock := s.locks.Lock(cycleID)
	defer unlock()

	cycle, err := s.store.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("load cycle: %w", err)
	}

	if err := doc.Normalize(); err != nil {
		return nil, err
	}
	lines := ExpandLines(&doc)

	count, err := s.store.CountProjections(ctx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("count projections: %w", err)
	}

	if count > 0 {
		draft, err := s.store.DraftProjection(ctx, cycleID)
		if err != nil {
			return nil, fmt.Errorf("find draft: %w", err)
		}
		if draft != nil {
			if !opts.ReplaceDraft {
				return nil, &models.ConflictError{Reason: "a draft projection already exists for this cycle"}
			}
			if err := s.store.DeleteProjection(ctx, draft.ID); err != nil {
				return nil, fmt.Errorf("discard draft: %w", err)
			}
			s.logger.Info("replaced existing draft",
				zap.String("cycle_id", cycleID),
				zap.String("discarded_id", draft.ID))
		}
	}

	now := time.Now().UTC()
	source := opts.Source
	if source == "" {
		source = models.SourceFile
	}
	proj := &models.Projection{
		ID:          uuid.NewString(),
		CycleID:     cycleID,
		Version:     fmt.Sprintf("v%d", count+1),
		Description: opts.Description,
		Status:      models.ProjectionDraft,
		Source:      source,
		SourceRef:   opts.SourceRef,

		SeedingWindowStart:     doc.SeedingWindowStart,
		SeedingWindowEnd:       doc.SeedingWindowEnd,
		DensityOrgM2:           doc.DensityOrgM2,
		InitialWeightG:         doc.InitialWeightG,
		TargetFinalSurvivalPct: doc.TargetFinalSurvivalPct,

		Lines:     lines,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if count == 0 {
		proj.Status = models.ProjectionPublished
		proj.IsCurrent = true
		proj.PublishedAt = &now
	}

	if err := s.store.CreateProjection(ctx, proj); err != nil {
		return nil, fmt.Errorf("save projection: %w", err)
	}

	if count == 0 {
		if err := s.syncCycleStart(ctx, cycle, proj); err != nil {
			return nil, err
		}
		s.runDistributor(ctx, cycle, proj)
	}

	s.logger.Info("projection version created",
		zap.String("cycle_id", cycleID),
		zap.String("projection_id", proj.ID),
		zap.String("version", proj.Version),
		zap.String("status", string(proj.Status)),
		zap.Int("lines", len(proj.Lines)))
	return proj, nil
}

// Publish promotes a draft to the cycle's current projection, demoting
// the previous current version in the same locked section. A draft that
// originated from a reforecast becomes a revision.
func (s *Service) Publish(ctx context.Context, projectionID string) (*models.Projection, error) {
	proj, err := s.store.GetProjection(ctx, projectionID)
	if err != nil {
		return nil, fmt.Errorf("load projection: %w", err)
	}

	unlock := s.locks.Lock(proj.CycleID)
	defer unlock()

	// Reload under the lock; status may have moved.
	proj, err = s.store.GetProjection(ctx, projectionID)
	if err != nil {
		return nil, fmt.Errorf("load projection: %w", err)
	}
	if proj.Status != models.ProjectionDraft {
		return nil, &models.ConflictError{Reason: fmt.Sprintf("projection %s is %s, only drafts can be published", proj.ID, proj.Status)}
	}

	current, err := s.store.CurrentProjection(ctx, proj.CycleID)
	if err != nil {
		return nil, fmt.Errorf("find current projection: %w", err)
	}
	if current != nil {
		current.IsCurrent = false
		current.UpdatedAt = time.Now().UTC()
		if err := s.store.ReplaceProjection(ctx, current); err != nil {
			return nil, fmt.Errorf("demote current projection: %w", err)
		}
	}

	now := time.Now().UTC()
	proj.Status = models.ProjectionPublished
	if proj.Source == models.SourceReforecast {
		proj.Status = models.ProjectionRevision
	}
	proj.IsCurrent = true
	proj.PublishedAt = &now
	proj.UpdatedAt = now
	if err := s.store.ReplaceProjection(ctx, proj); err != nil {
		return nil, fmt.Errorf("publish projection: %w", err)
	}

	cycle, err := s.store.GetCycle(ctx, proj.CycleID)
	if err != nil {
		return nil, fmt.Errorf("load cycle: %w", err)
	}
	s.runDistributor(ctx, cycle, proj)

	s.logger.Info("projection published",
		zap.String("cycle_id", proj.CycleID),
		zap.String("projection_id", proj.ID),
		zap.String("status", string(proj.Status)))
	return proj, nil
}

// Cancel marks a non-current projection as cancelled. Cancelling an
// already cancelled projection is a no-op; cancelling the current
// projection is a conflict.
func (s *Service) Cancel(ctx context.Context, projectionID string) (*models.Projection, error) {
	proj, err := s.store.GetProjection(ctx, projectionID)
	if err != nil {
		return nil, fmt.Errorf("load projection: %w", err)
	}

	unlock := s.locks.Lock(proj.CycleID)
	defer unlock()

	proj, err = s.store.GetProjection(ctx, projectionID)
	if err != nil {
		return nil, fmt.Errorf("load projection: %w", err)
	}
	if proj.IsCurrent {
		return nil, &models.ConflictError{Reason: "the current projection cannot be cancelled"}
	}
	if proj.Status == models.ProjectionCancelled {
		return proj, nil
	}

	proj.Status = models.ProjectionCancelled
	proj.UpdatedAt = time.Now().UTC()
	if err := s.store.ReplaceProjection(ctx, proj); err != nil {
		return nil, fmt.Errorf("cancel projection: %w", err)
	}

	s.logger.Info("projection cancelled",
		zap.String("cycle_id", proj.CycleID),
		zap.String("projection_id", proj.ID))
	return proj, nil
}

// Get returns a projection by id.
func (s *Service) Get(ctx context.Context, projectionID string) (*models.Projection, error) {
	return s.store.GetProjection(ctx, projectionID)
}

// List returns all versions of a cycle, oldest first.
func (s *Service) List(ctx context.Context, cycleID string) ([]models.Projection, error) {
	return s.store.ListProjections(ctx, cycleID)
}

// Current returns the cycle's current published projection, or nil.
func (s *Service) Current(ctx context.Context, cycleID string) (*models.Projection, error) {
	return s.store.CurrentProjection(ctx, cycleID)
}

// syncCycleStart aligns the cycle start date to the projection's first
// line when they diverge.
func (s *Service) syncCycleStart(ctx context.Context, cycle *models.Cycle, proj *models.Projection) error {
	first := proj.FirstLineDate()
	if first.IsZero() || models.DaysBetween(cycle.StartDate, first) == 0 {
		return nil
	}
	cycle.StartDate = first
	cycle.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateCycle(ctx, cycle); err != nil {
		return fmt.Errorf("sync cycle start date: %w", err)
	}
	s.logger.Info("cycle start date synced to projection",
		zap.String("cycle_id", cycle.ID),
		zap.Time("start_date", first))
	return nil
}

// runDistributor refreshes dependent seeding/harvest artifacts. Failures
// are logged, not propagated: the projection write already succeeded.
func (s *Service) runDistributor(ctx context.Context, cycle *models.Cycle, proj *models.Projection) {
	if s.dist == nil {
		return
	}
	if err := s.dist.Sync(ctx, cycle, proj); err != nil {
		s.logger.Error("auto-setup distribution failed",
			zap.String("cycle_id", cycle.ID),
			zap.String("projection_id", proj.ID),
			zap.Error(err))
	}
}

// ExpandLines turns a normalized canonical document into a contiguous
// weekly grid. Missing weeks get dates interpolated between the
// surrounding known lines, weights along the sigmoid growth curve, and
// survival along a straight line. Flags, withdrawals and notes only
// exist on weeks the document stated.
func ExpandLines(doc *models.CanonicalDocument) []models.ProjectionLine {
	known := doc.Lines
	lastWeek := *known[len(known)-1].WeekIdx
	lines := make([]models.ProjectionLine, lastWeek+1)

	weights := make([]float64, lastWeek+1)
	survivals := make([]float64, lastWeek+1)
	var weightAnchors, survivalAnchors []int

	for i := range known {
		ln := &known[i]
		w := *ln.WeekIdx
		lines[w] = models.ProjectionLine{
			WeekIdx:           w,
			PlanDate:          ln.PlanDate,
			HarvestFlag:       ln.HarvestFlag,
			WithdrawalDensity: ln.WithdrawalDensity,
			Note:              ln.Note,
		}
		weights[w] = ln.AvgWeightG
		weightAnchors = append(weightAnchors, w)
		if ln.SurvivalPct != nil {
			survivals[w] = *ln.SurvivalPct
			survivalAnchors = append(survivalAnchors, w)
		}
	}

	fillDates(lines, known)

	weights = curve.Interpolate(weights, weightAnchors, curve.Sigmoid)
	if doc.TargetFinalSurvivalPct != nil && (len(survivalAnchors) == 0 || survivalAnchors[len(survivalAnchors)-1] != lastWeek) {
		survivals = curve.ForceLast(survivals, survivalAnchors, *doc.TargetFinalSurvivalPct, curve.Linear)
	} else {
		survivals = curve.Interpolate(survivals, survivalAnchors, curve.Linear)
	}
	gains := curve.WeeklyGains(weights)

	base := lines[0].PlanDate
	for w := range lines {
		lines[w].WeekIdx = w
		lines[w].AgeDays = models.DaysBetween(base, lines[w].PlanDate)
		lines[w].AvgWeightG = weights[w]
		lines[w].WeeklyGainG = gains[w]
		lines[w].SurvivalPct = survivals[w]
	}
	return lines
}

// fillDates interpolates plan dates for weeks the document omitted,
// spreading days evenly between the surrounding known lines.
func fillDates(lines []models.ProjectionLine, known []models.CanonicalLine) {
	for k := 0; k+1 < len(known); k++ {
		a, b := *known[k].WeekIdx, *known[k+1].WeekIdx
		span := models.DaysBetween(known[k].PlanDate, known[k+1].PlanDate)
		steps := b - a
		for w := a + 1; w < b; w++ {
			offset := int(float64(span)*float64(w-a)/float64(steps) + 0.5)
			lines[w].PlanDate = known[k].PlanDate.AddDate(0, 0, offset)
		}
	}
}
