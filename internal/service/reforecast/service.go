// Package reforecast recalibrates a cycle's draft projection whenever
// operational facts arrive: biometric samples, the final seeding
// confirmation, and harvest withdrawals. Triggers only write projection
// state; plans and waves belong to their own confirmation flows.
package reforecast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aquatrackmx/aquatrack/internal/domain/models"
	"github.com/aquatrackmx/aquatrack/internal/repository"
	"github.com/aquatrackmx/aquatrack/pkg/locks"
)

// DraftConflictPolicy decides what happens when a manually authored
// draft blocks a trigger from acquiring the reforecast draft. It returns
// a skip reason (soft outcome) or an error (hard failure).
type DraftConflictPolicy func(draft *models.Projection) (skipReason string, err error)

// SoftSkip turns a manual-draft conflict into a skipped result.
func SoftSkip(draft *models.Projection) (string, error) {
	return fmt.Sprintf("manual draft %s blocks recalibration", draft.ID), nil
}

// StrictFail turns a manual-draft conflict into a ConflictError.
func StrictFail(draft *models.Projection) (string, error) {
	return "", &models.ConflictError{Reason: fmt.Sprintf("manual draft %s blocks recalibration", draft.ID)}
}

// Config tunes the trigger engine.
type Config struct {
	Enabled        bool
	MinCoveragePct float64
	MinPonds       int
	// WeekendMode aggregates biometries over the Saturday-Sunday block
	// of the sample's week, anchored on Sunday. When false a +-WindowDays
	// radius around the sample date is used instead.
	WeekendMode bool
	WindowDays  int
	OnConflict  DraftConflictPolicy
}

// Service runs the three recalibration triggers. All projection
// mutations for a cycle are serialized through the keyed lock shared
// with the projection service.
type Service struct {
	store  repository.Store
	locks  *locks.Keyed
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new reforecast service instance.
func NewService(store repository.Store, cycleLocks *locks.Keyed, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cycleLocks == nil {
		cycleLocks = locks.NewKeyed()
	}
	if cfg.OnConflict == nil {
		cfg.OnConflict = SoftSkip
	}
	return &Service{store: store, locks: cycleLocks, cfg: cfg, logger: logger, now: time.Now}
}

func (s *Service) skipped(trigger models.Trigger, cycleID, reason string) *models.RecalibrationResult {
	s.logger.Info("recalibration skipped",
		zap.String("trigger", string(trigger)),
		zap.String("cycle_id", cycleID),
		zap.String("reason", reason))
	return &models.RecalibrationResult{
		ID:         uuid.NewString(),
		Trigger:    trigger,
		CycleID:    cycleID,
		Ran:        false,
		SkipReason: reason,
		At:         s.now().UTC(),
	}
}

// acquireDraft resolves the draft a trigger may mutate: an existing
// reforecast draft is reused, a manual draft goes through the conflict
// policy, and with no draft at all the current projection is cloned.
// A nil draft with a non-empty reason is a soft skip.
func (s *Service) acquireDraft(ctx context.Context, cycleID string) (*models.Projection, string, error) {
	if rd, err := s.store.ReforecastDraft(ctx, cycleID); err != nil {
		return nil, "", fmt.Errorf("find reforecast draft: %w", err)
	} else if rd != nil {
		return rd, "", nil
	}

	if draft, err := s.store.DraftProjection(ctx, cycleID); err != nil {
		return nil, "", fmt.Errorf("find draft: %w", err)
	} else if draft != nil {
		reason, err := s.cfg.OnConflict(draft)
		return nil, reason, err
	}

	current, err := s.store.CurrentProjection(ctx, cycleID)
	if err != nil {
		return nil, "", fmt.Errorf("find current projection: %w", err)
	}
	if current == nil {
		return nil, "no current projection to recalibrate", nil
	}

	count, err := s.store.CountProjections(ctx, cycleID)
	if err != nil {
		return nil, "", fmt.Errorf("count projections: %w", err)
	}

	now := s.now().UTC()
	clone := *current
	clone.ID = uuid.NewString()
	clone.Version = fmt.Sprintf("v%d", count+1)
	clone.Description = fmt.Sprintf("Reforecast de %s", current.Version)
	clone.Status = models.ProjectionDraft
	clone.IsCurrent = false
	clone.Source = models.SourceReforecast
	clone.ParentID = current.ID
	clone.Lines = append([]models.ProjectionLine(nil), current.Lines...)
	clone.CreatedAt = now
	clone.UpdatedAt = now
	clone.PublishedAt = nil

	if err := s.store.CreateProjection(ctx, &clone); err != nil {
		return nil, "", fmt.Errorf("create reforecast draft: %w", err)
	}
	s.logger.Info("reforecast draft cloned from current projection",
		zap.String("cycle_id", cycleID),
		zap.String("parent_id", current.ID),
		zap.String("draft_id", clone.ID))
	return &clone, "", nil
}

// aggregationWindow returns the biometry window and the date projection
// weeks are matched against. Weekend mode covers the Saturday and Sunday
// of the sample's Monday-based week and anchors on the Sunday.
func (s *Service) aggregationWindow(sample time.Time) (from, to, anchor time.Time) {
	day := truncateDay(sample)
	if !s.cfg.WeekendMode {
		return day.AddDate(0, 0, -s.cfg.WindowDays), day.AddDate(0, 0, s.cfg.WindowDays), day
	}
	offset := (int(day.Weekday()) + 6) % 7 // days since Monday
	saturday := day.AddDate(0, 0, 5-offset)
	sunday := saturday.AddDate(0, 0, 1)
	return saturday, sunday, sunday
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
