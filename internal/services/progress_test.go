package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studypilot-backend/internal/apierr"
	"github.com/yungbote/studypilot-backend/internal/config"
	"github.com/yungbote/studypilot-backend/internal/repos"
	"github.com/yungbote/studypilot-backend/internal/types"
)

// seedPlan writes a plan with the given shape directly through the repo:
// itemsPerDay items of 30 minutes on every day.
func seedPlan(t *testing.T, db *gorm.DB, studentID uuid.UUID, status types.StudyPlanStatus, start time.Time, days, itemsPerDay int) *types.StudyPlan {
	t.Helper()
	now := time.Now().UTC()
	plan := &types.StudyPlan{
		ID:             uuid.New(),
		StudentID:      studentID,
		Name:           "Seeded Plan",
		TimeFrame:      days,
		DailyStudyTime: 120,
		StudyStyle:     types.StudyStyleBalanced,
		Status:         status,
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, days-1),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for d := 0; d < days; d++ {
		day := &types.StudyPlanDay{
			ID:        uuid.New(),
			PlanID:    plan.ID,
			DayNumber: d + 1,
			Date:      start.AddDate(0, 0, d),
		}
		for i := 0; i < itemsPerDay; i++ {
			day.Items = append(day.Items, &types.StudyPlanItem{
				ID:              uuid.New(),
				DayID:           day.ID,
				SubjectName:     "Matematik",
				Topic:           "Türev",
				DurationMinutes: 30,
				Order:           i + 1,
			})
			day.TotalDurationMinutes += 30
		}
		plan.Days = append(plan.Days, day)
	}
	repo := repos.NewStudyPlanRepo(db, testLogger(t))
	if err := repo.CreatePlan(context.Background(), nil, plan); err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan
}

func TestToggleItemCompletionRecomputesDay(t *testing.T) {
	db := openTestDB(t)
	studentID := seedStudent(t, db)
	svc := newProgressServiceForTest(t, db, config.Default())
	ctx := context.Background()

	start := dateOnly(time.Now().UTC())
	plan := seedPlan(t, db, studentID, types.StudyPlanStatusActive, start, 2, 2)
	day := plan.Days[0]

	updated, err := svc.ToggleItemCompletion(ctx, plan.ID, day.Items[0].ID, true)
	if err != nil {
		t.Fatalf("toggle first: %v", err)
	}
	if updated.Completed {
		t.Fatalf("day completed after one of two items")
	}
	if updated.TotalDurationMinutes != 60 {
		t.Fatalf("day total = %d, want 60", updated.TotalDurationMinutes)
	}

	updated, err = svc.ToggleItemCompletion(ctx, plan.ID, day.Items[1].ID, true)
	if err != nil {
		t.Fatalf("toggle second: %v", err)
	}
	if !updated.Completed {
		t.Fatalf("day not completed after all items done")
	}
	for _, item := range updated.Items {
		if !item.Completed || item.CompletedAt == nil {
			t.Fatalf("item %s not stamped complete", item.ID)
		}
	}

	updated, err = svc.ToggleItemCompletion(ctx, plan.ID, day.Items[0].ID, false)
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if updated.Completed {
		t.Fatalf("day still completed after un-completing an item")
	}
	for _, item := range updated.Items {
		if item.ID == day.Items[0].ID && item.CompletedAt != nil {
			t.Fatalf("completed_at not cleared on un-complete")
		}
	}
}

func TestToggleItemCompletionRejectsForeignItem(t *testing.T) {
	db := openTestDB(t)
	studentID := seedStudent(t, db)
	svc := newProgressServiceForTest(t, db, config.Default())
	ctx := context.Background()

	start := dateOnly(time.Now().UTC())
	planA := seedPlan(t, db, studentID, types.StudyPlanStatusActive, start, 1, 1)
	planB := seedPlan(t, db, studentID, types.StudyPlanStatusActive, start, 1, 1)

	_, err := svc.ToggleItemCompletion(ctx, planA.ID, planB.Days[0].Items[0].ID, true)
	if !apierr.HasCode(err, "item_not_found") {
		t.Fatalf("err = %v, want item_not_found", err)
	}
}

func TestToggleItemCompletionRejectsInactivePlan(t *testing.T) {
	db := openTestDB(t)
	studentID := seedStudent(t, db)
	svc := newProgressServiceForTest(t, db, config.Default())

	start := dateOnly(time.Now().UTC())
	plan := seedPlan(t, db, studentID, types.StudyPlanStatusArchived, start, 1, 1)

	_, err := svc.ToggleItemCompletion(context.Background(), plan.ID, plan.Days[0].Items[0].ID, true)
	if !apierr.HasCode(err, "plan_not_active") {
		t.Fatalf("err = %v, want plan_not_active", err)
	}
	if apierr.StatusOf(err) != 409 {
		t.Fatalf("status = %d, want 409", apierr.StatusOf(err))
	}
}

func TestToggleRejectsArchiveCommittedWhileWaiting(t *testing.T) {
	db := openTestDB(t)
	studentID := seedStudent(t, db)
	log := testLogger(t)
	planRepo := repos.NewStudyPlanRepo(db, log)
	locker := NewStudentLocker()
	svc := NewProgressService(db, log, config.Default(), planRepo, locker)
	ctx := context.Background()

	start := dateOnly(time.Now().UTC())
	plan := seedPlan(t, db, studentID, types.StudyPlanStatusActive, start, 1, 1)
	itemID := plan.Days[0].Items[0].ID

	release, err := locker.Acquire(ctx, studentID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	errCh := make(chan error, 1)
	go func() {
		_, err := svc.ToggleItemCompletion(ctx, plan.ID, itemID, true)
		errCh <- err
	}()

	// Let the toggle pass its fast-path status read and queue on the lock,
	// then archive before releasing it.
	time.Sleep(50 * time.Millisecond)
	plan.Status = types.StudyPlanStatusArchived
	plan.UpdatedAt = time.Now().UTC()
	if err := planRepo.SavePlan(ctx, nil, plan); err != nil {
		t.Fatalf("archive: %v", err)
	}
	release()

	if err := <-errCh; !apierr.HasCode(err, "plan_not_active") {
		t.Fatalf("err = %v, want plan_not_active", err)
	}
	item, err := planRepo.GetItemByID(ctx, nil, itemID)
	if err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if item.Completed {
		t.Fatalf("item mutated on an archived plan")
	}
}

func TestGetProgressCountsAndRemaining(t *testing.T) {
	db := openTestDB(t)
	studentID := seedStudent(t, db)
	svc := newProgressServiceForTest(t, db, config.Default())
	ctx := context.Background()

	start := dateOnly(time.Now().UTC())
	plan := seedPlan(t, db, studentID, types.StudyPlanStatusActive, start, 5, 2)

	done := 0
	for _, day := range plan.Days {
		for _, item := range day.Items {
			if done == 5 {
				break
			}
			if _, err := svc.ToggleItemCompletion(ctx, plan.ID, item.ID, true); err != nil {
				t.Fatalf("toggle: %v", err)
			}
			done++
		}
	}

	progress, err := svc.GetProgress(ctx, plan.ID, start)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.TotalItems != 10 || progress.CompletedItems != 5 {
		t.Fatalf("items = %d/%d, want 5/10", progress.CompletedItems, progress.TotalItems)
	}
	if progress.CompletionPercentage != 50.0 {
		t.Fatalf("completion = %v, want 50.0", progress.CompletionPercentage)
	}
	if progress.TotalDays != 5 || progress.CompletedDays != 2 {
		t.Fatalf("days = %d/%d, want 2/5", progress.CompletedDays, progress.TotalDays)
	}
	if progress.DaysRemaining != 4 {
		t.Fatalf("days remaining = %d, want 4", progress.DaysRemaining)
	}
	// Day one of the plan: nothing is expected yet.
	if !progress.OnTrack {
		t.Fatalf("plan should be on track on its first day")
	}
}

func TestGetProgressRoundsToOneDecimal(t *testing.T) {
	db := openTestDB(t)
	studentID := seedStudent(t, db)
	svc := newProgressServiceForTest(t, db, config.Default())
	ctx := context.Background()

	start := dateOnly(time.Now().UTC())
	plan := seedPlan(t, db, studentID, types.StudyPlanStatusActive, start, 3, 1)
	if _, err := svc.ToggleItemCompletion(ctx, plan.ID, plan.Days[0].Items[0].ID, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	progress, err := svc.GetProgress(ctx, plan.ID, start)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if math.Abs(progress.CompletionPercentage-33.3) > 1e-9 {
		t.Fatalf("completion = %v, want 33.3", progress.CompletionPercentage)
	}
}

func TestGetProgressOnTrackTolerance(t *testing.T) {
	cases := []struct {
		name        string
		itemsPerDay int
		completed   int
		onTrack     bool
	}{
		// Halfway through a 10-day plan with a 0.05 tolerance the
		// threshold sits at 45% completion.
		{name: "exactly_expected", itemsPerDay: 1, completed: 5, onTrack: true},
		{name: "at_tolerance_edge", itemsPerDay: 2, completed: 9, onTrack: true},
		{name: "behind", itemsPerDay: 2, completed: 8, onTrack: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := openTestDB(t)
			studentID := seedStudent(t, db)
			svc := newProgressServiceForTest(t, db, config.Default())
			ctx := context.Background()

			today := dateOnly(time.Now().UTC())
			start := today.AddDate(0, 0, -5)
			plan := seedPlan(t, db, studentID, types.StudyPlanStatusActive, start, 10, tc.itemsPerDay)

			done := 0
			for _, day := range plan.Days {
				for _, item := range day.Items {
					if done == tc.completed {
						break
					}
					if _, err := svc.ToggleItemCompletion(ctx, plan.ID, item.ID, true); err != nil {
						t.Fatalf("toggle: %v", err)
					}
					done++
				}
			}

			progress, err := svc.GetProgress(ctx, plan.ID, today)
			if err != nil {
				t.Fatalf("progress: %v", err)
			}
			if progress.OnTrack != tc.onTrack {
				t.Fatalf("on_track = %v, want %v", progress.OnTrack, tc.onTrack)
			}
		})
	}
}

func TestGetProgressEmptyPlanIsOnTrack(t *testing.T) {
	db := openTestDB(t)
	studentID := seedStudent(t, db)
	svc := newProgressServiceForTest(t, db, config.Default())

	start := dateOnly(time.Now().UTC())
	plan := seedPlan(t, db, studentID, types.StudyPlanStatusActive, start, 3, 0)

	progress, err := svc.GetProgress(context.Background(), plan.ID, start)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.TotalItems != 0 || progress.CompletionPercentage != 0 {
		t.Fatalf("empty plan progress = %+v", progress)
	}
	if !progress.OnTrack {
		t.Fatalf("empty plan should be on track")
	}
}
