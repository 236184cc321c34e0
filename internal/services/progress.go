package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studypilot-backend/internal/apierr"
	"github.com/yungbote/studypilot-backend/internal/config"
	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/repos"
	"github.com/yungbote/studypilot-backend/internal/types"
)

// ProgressService tracks item completion and judges whether a plan is on
// track. A day's Completed flag and TotalDurationMinutes are recomputed from
// its items inside the same transaction as every toggle.
type ProgressService interface {
	ToggleItemCompletion(ctx context.Context, planID, itemID uuid.UUID, completed bool) (*types.StudyPlanDay, error)
	GetProgress(ctx context.Context, planID uuid.UUID, today time.Time) (*types.StudyPlanProgress, error)
}

type progressService struct {
	db       *gorm.DB
	log      *logger.Logger
	cfg      *config.Config
	planRepo repos.StudyPlanRepo
	locker   *StudentLocker
}

func NewProgressService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	planRepo repos.StudyPlanRepo,
	locker *StudentLocker,
) ProgressService {
	serviceLog := baseLog.With("service", "ProgressService")
	return &progressService{
		db:       db,
		log:      serviceLog,
		cfg:      cfg,
		planRepo: planRepo,
		locker:   locker,
	}
}

func (s *progressService) ToggleItemCompletion(ctx context.Context, planID, itemID uuid.UUID, completed bool) (*types.StudyPlanDay, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != types.StudyPlanStatusActive {
		return nil, apierr.InvalidState("plan_not_active", fmt.Errorf("cannot modify items on a %s plan", plan.Status))
	}

	// Toggles on the same day serialize around the derived flag recompute.
	release, err := s.locker.Acquire(ctx, plan.StudentID)
	if err != nil {
		return nil, err
	}
	defer release()

	var updatedDay *types.StudyPlanDay
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-check under the lock: an archive may have committed after the
		// fast-path read above.
		current, err := s.planRepo.GetPlanByID(ctx, tx, planID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("plan_not_found", err)
			}
			return fmt.Errorf("reload plan: %w", err)
		}
		if current.Status != types.StudyPlanStatusActive {
			return apierr.InvalidState("plan_not_active", fmt.Errorf("cannot modify items on a %s plan", current.Status))
		}

		item, err := s.planRepo.GetItemByID(ctx, tx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("item_not_found", err)
			}
			return fmt.Errorf("load item: %w", err)
		}
		day, err := s.planRepo.GetDayByID(ctx, tx, item.DayID)
		if err != nil {
			return fmt.Errorf("load day: %w", err)
		}
		if day.PlanID != planID {
			return apierr.NotFound("item_not_found", fmt.Errorf("item %s does not belong to plan %s", itemID, planID))
		}

		item.Completed = completed
		if completed {
			if item.CompletedAt == nil {
				now := time.Now().UTC()
				item.CompletedAt = &now
			}
		} else {
			item.CompletedAt = nil
		}
		if err := s.planRepo.SaveItem(ctx, tx, item); err != nil {
			return fmt.Errorf("save item: %w", err)
		}

		day, err = s.planRepo.GetDayByID(ctx, tx, item.DayID)
		if err != nil {
			return fmt.Errorf("reload day: %w", err)
		}
		total := 0
		allDone := len(day.Items) > 0
		for _, it := range day.Items {
			total += it.DurationMinutes
			if !it.Completed {
				allDone = false
			}
		}
		day.TotalDurationMinutes = total
		day.Completed = allDone
		if err := s.planRepo.SaveDay(ctx, tx, day); err != nil {
			return fmt.Errorf("save day: %w", err)
		}
		updatedDay = day
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("Toggled item completion",
		"plan_id", planID,
		"item_id", itemID,
		"completed", completed,
		"day_completed", updatedDay.Completed,
	)
	return updatedDay, nil
}

func (s *progressService) GetProgress(ctx context.Context, planID uuid.UUID, today time.Time) (*types.StudyPlanProgress, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	progress := &types.StudyPlanProgress{
		PlanID:    planID,
		TotalDays: len(plan.Days),
	}
	for _, day := range plan.Days {
		if day.Completed {
			progress.CompletedDays++
		}
		for _, item := range day.Items {
			progress.TotalItems++
			if item.Completed {
				progress.CompletedItems++
			}
		}
	}

	if progress.TotalItems > 0 {
		progress.CompletionPercentage = math.Round(1000*float64(progress.CompletedItems)/float64(progress.TotalItems)) / 10
	}

	day := dateOnly(today)
	if remaining := daysBetween(day, dateOnly(plan.EndDate)); remaining > 0 {
		progress.DaysRemaining = remaining
	}

	elapsed := daysBetween(dateOnly(plan.StartDate), day)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > plan.TimeFrame {
		elapsed = plan.TimeFrame
	}
	expected := 0.0
	if plan.TimeFrame > 0 {
		expected = float64(elapsed) / float64(plan.TimeFrame)
	}

	if progress.TotalItems == 0 {
		progress.OnTrack = true
	} else {
		actual := float64(progress.CompletedItems) / float64(progress.TotalItems)
		progress.OnTrack = actual >= expected-s.cfg.Progress.OnTrackTolerance
	}
	return progress, nil
}

func (s *progressService) loadPlan(ctx context.Context, planID uuid.UUID) (*types.StudyPlan, error) {
	plan, err := s.planRepo.GetPlanByID(ctx, nil, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("plan_not_found", err)
		}
		return nil, err
	}
	return plan, nil
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
