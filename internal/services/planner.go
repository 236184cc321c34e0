package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studypilot-backend/internal/apierr"
	"github.com/yungbote/studypilot-backend/internal/config"
	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/repos"
	"github.com/yungbote/studypilot-backend/internal/types"
)

type StudyPlanService interface {
	GeneratePlan(ctx context.Context, studentID uuid.UUID, recommendationIDs []uuid.UUID, planCfg types.PlanConfig) (*types.StudyPlan, error)
	GetPlan(ctx context.Context, planID uuid.UUID) (*types.StudyPlan, error)
	ListPlans(ctx context.Context, studentID uuid.UUID) ([]*types.StudyPlan, error)
	GetActivePlan(ctx context.Context, studentID uuid.UUID) (*types.StudyPlan, error)
	ArchivePlan(ctx context.Context, planID uuid.UUID) (*types.StudyPlan, error)
	DeletePlan(ctx context.Context, planID uuid.UUID) error
}

type studyPlanService struct {
	db       *gorm.DB
	log      *logger.Logger
	cfg      *config.Config
	planRepo repos.StudyPlanRepo
	recRepo  repos.RecommendationRepo
	strategy ScheduleStrategy
	locker   *StudentLocker
}

func NewStudyPlanService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	planRepo repos.StudyPlanRepo,
	recRepo repos.RecommendationRepo,
	strategy ScheduleStrategy,
	locker *StudentLocker,
) StudyPlanService {
	serviceLog := baseLog.With("service", "StudyPlanService")
	return &studyPlanService{
		db:       db,
		log:      serviceLog,
		cfg:      cfg,
		planRepo: planRepo,
		recRepo:  recRepo,
		strategy: strategy,
		locker:   locker,
	}
}

func (s *studyPlanService) GeneratePlan(ctx context.Context, studentID uuid.UUID, recommendationIDs []uuid.UUID, planCfg types.PlanConfig) (*types.StudyPlan, error) {
	if studentID == uuid.Nil {
		return nil, apierr.Validation("missing_student_id", fmt.Errorf("student id is required"))
	}
	style, ok := s.cfg.Style(planCfg.StudyStyle)
	if !ok {
		return nil, apierr.Validation("unknown_study_style", fmt.Errorf("unknown study style %q", planCfg.StudyStyle))
	}
	if planCfg.TimeFrame <= 0 {
		return nil, apierr.Validation("invalid_time_frame", fmt.Errorf("time_frame must be > 0, got %d", planCfg.TimeFrame))
	}
	if planCfg.DailyStudyTime < s.cfg.Planner.MinItemMinutes {
		return nil, apierr.Validation("daily_study_time_too_small", fmt.Errorf("daily_study_time must be at least %d minutes, got %d", s.cfg.Planner.MinItemMinutes, planCfg.DailyStudyTime))
	}
	if planCfg.Name == "" {
		planCfg.Name = fmt.Sprintf("%d-Day Study Plan", planCfg.TimeFrame)
	}

	release, err := s.locker.Acquire(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer release()

	recs, err := s.selectRecommendations(ctx, studentID, recommendationIDs)
	if err != nil {
		return nil, err
	}

	startDate := dateOnly(time.Now().UTC())
	params := AllocatorParams{
		MinItemMinutes:           s.cfg.Planner.MinItemMinutes,
		MaxItemMinutes:           style.MaxItemMinutes,
		ReviewFraction:           style.ReviewFraction,
		OverflowToleranceMinutes: s.cfg.Planner.OverflowToleranceMinutes,
	}
	schedule, err := s.strategy.BuildSchedule(recs, planCfg, params, startDate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	plan := &types.StudyPlan{
		ID:             uuid.New(),
		StudentID:      studentID,
		Name:           planCfg.Name,
		TimeFrame:      planCfg.TimeFrame,
		DailyStudyTime: planCfg.DailyStudyTime,
		StudyStyle:     planCfg.StudyStyle,
		Status:         types.StudyPlanStatusActive,
		StartDate:      startDate,
		EndDate:        startDate.AddDate(0, 0, planCfg.TimeFrame-1),
		Description:    planCfg.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, schedDay := range schedule {
		day := &types.StudyPlanDay{
			ID:        uuid.New(),
			PlanID:    plan.ID,
			DayNumber: schedDay.DayNumber,
			Date:      schedDay.Date,
		}
		for i, schedItem := range schedDay.Items {
			day.Items = append(day.Items, &types.StudyPlanItem{
				ID:               uuid.New(),
				DayID:            day.ID,
				RecommendationID: schedItem.RecommendationID,
				SubjectName:      schedItem.SubjectName,
				Topic:            schedItem.Topic,
				Description:      schedItem.Description,
				DurationMinutes:  schedItem.DurationMinutes,
				Order:            i + 1,
			})
			day.TotalDurationMinutes += schedItem.DurationMinutes
		}
		plan.Days = append(plan.Days, day)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.planRepo.CreatePlan(ctx, tx, plan)
	})
	if err != nil {
		return nil, fmt.Errorf("persist study plan: %w", err)
	}

	s.log.Info("Generated study plan",
		"student_id", studentID,
		"plan_id", plan.ID,
		"time_frame", plan.TimeFrame,
		"daily_study_time", plan.DailyStudyTime,
		"study_style", plan.StudyStyle,
		"recommendations", len(recs),
	)
	return s.planRepo.GetPlanByID(ctx, nil, plan.ID)
}

// selectRecommendations resolves the caller's selection. An explicit id list
// must fully resolve to this student's rows; with no list, the student's
// active recommendations are used, highest priority and impact first.
func (s *studyPlanService) selectRecommendations(ctx context.Context, studentID uuid.UUID, ids []uuid.UUID) ([]*types.Recommendation, error) {
	if len(ids) == 0 {
		recs, err := s.recRepo.GetActiveByStudentID(ctx, nil, studentID)
		if err != nil {
			return nil, fmt.Errorf("load active recommendations: %w", err)
		}
		if len(recs) > s.cfg.Planner.MaxFallbackSelection {
			recs = recs[:s.cfg.Planner.MaxFallbackSelection]
		}
		if len(recs) == 0 {
			return nil, apierr.Validation("no_recommendations_selected", fmt.Errorf("no recommendations selected"))
		}
		return recs, nil
	}

	recs, err := s.recRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("load recommendations: %w", err)
	}
	found := make(map[uuid.UUID]bool, len(recs))
	for _, rec := range recs {
		if rec.StudentID != studentID {
			return nil, apierr.NotFound("recommendation_not_found", fmt.Errorf("recommendation %s does not belong to student", rec.ID))
		}
		found[rec.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, apierr.NotFound("recommendation_not_found", fmt.Errorf("recommendation %s not found", id))
		}
	}
	return recs, nil
}

func (s *studyPlanService) GetPlan(ctx context.Context, planID uuid.UUID) (*types.StudyPlan, error) {
	plan, err := s.planRepo.GetPlanByID(ctx, nil, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("plan_not_found", err)
		}
		return nil, err
	}
	return plan, nil
}

func (s *studyPlanService) ListPlans(ctx context.Context, studentID uuid.UUID) ([]*types.StudyPlan, error) {
	return s.planRepo.GetPlansByStudentID(ctx, nil, studentID)
}

func (s *studyPlanService) GetActivePlan(ctx context.Context, studentID uuid.UUID) (*types.StudyPlan, error) {
	plan, err := s.planRepo.GetActivePlanByStudentID(ctx, nil, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("no_active_plan", err)
		}
		return nil, err
	}
	return plan, nil
}

func (s *studyPlanService) ArchivePlan(ctx context.Context, planID uuid.UUID) (*types.StudyPlan, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	// Status transitions contend with item toggles for the same student.
	release, err := s.locker.Acquire(ctx, plan.StudentID)
	if err != nil {
		return nil, err
	}
	defer release()

	plan, err = s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	plan.Status = types.StudyPlanStatusArchived
	plan.UpdatedAt = time.Now().UTC()
	if err := s.planRepo.SavePlan(ctx, nil, plan); err != nil {
		return nil, fmt.Errorf("archive plan %s: %w", planID, err)
	}
	s.log.Info("Archived study plan", "plan_id", planID)
	return plan, nil
}

func (s *studyPlanService) DeletePlan(ctx context.Context, planID uuid.UUID) error {
	if _, err := s.GetPlan(ctx, planID); err != nil {
		return err
	}
	if err := s.planRepo.DeletePlan(ctx, nil, planID); err != nil {
		return fmt.Errorf("delete plan %s: %w", planID, err)
	}
	s.log.Info("Deleted study plan", "plan_id", planID)
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
