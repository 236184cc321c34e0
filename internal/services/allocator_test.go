package services

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studypilot-backend/internal/apierr"
	"github.com/yungbote/studypilot-backend/internal/types"
)

func schedRec(subject, topic string, priority int, impact float64) *types.Recommendation {
	return &types.Recommendation{
		ID:          uuid.New(),
		SubjectName: subject,
		Topic:       topic,
		IssueType:   types.IssueTypeWeakSubject,
		Priority:    priority,
		ImpactScore: impact,
	}
}

func balancedParams() AllocatorParams {
	return AllocatorParams{
		MinItemMinutes:           15,
		MaxItemMinutes:           60,
		ReviewFraction:           0.20,
		OverflowToleranceMinutes: 0,
	}
}

var schedStart = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestBuildScheduleShape(t *testing.T) {
	recs := []*types.Recommendation{
		schedRec("Matematik", "Türev", 1, 80),
		schedRec("Fizik", "Optik", 2, 50),
		schedRec("Kimya", "Asitler", 3, 30),
	}
	cfg := types.PlanConfig{TimeFrame: 7, DailyStudyTime: 120, StudyStyle: "balanced"}

	days, err := NewDeterministicAllocator().BuildSchedule(recs, cfg, balancedParams(), schedStart)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("days = %d, want 7", len(days))
	}
	for i, day := range days {
		if day.DayNumber != i+1 {
			t.Fatalf("day %d has number %d", i, day.DayNumber)
		}
		if want := schedStart.AddDate(0, 0, i); !day.Date.Equal(want) {
			t.Fatalf("day %d date = %s, want %s", i, day.Date, want)
		}
	}
}

func TestBuildScheduleRespectsBudgetsAndBounds(t *testing.T) {
	recs := []*types.Recommendation{
		schedRec("Matematik", "Türev", 1, 80),
		schedRec("Matematik", "İntegral", 1, 65),
		schedRec("Fizik", "Optik", 2, 50),
		schedRec("Kimya", "Asitler", 3, 30),
		schedRec("Biyoloji", "Hücre", 4, 20),
	}
	cfg := types.PlanConfig{TimeFrame: 7, DailyStudyTime: 120, StudyStyle: "balanced"}
	params := balancedParams()

	days, err := NewDeterministicAllocator().BuildSchedule(recs, cfg, params, schedStart)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, day := range days {
		total := 0
		for _, item := range day.Items {
			if item.DurationMinutes < params.MinItemMinutes || item.DurationMinutes > params.MaxItemMinutes {
				t.Fatalf("day %d item %q duration %d outside [%d,%d]", day.DayNumber, item.Topic, item.DurationMinutes, params.MinItemMinutes, params.MaxItemMinutes)
			}
			if item.DurationMinutes%params.MinItemMinutes != 0 {
				t.Fatalf("day %d item %q duration %d not a multiple of %d", day.DayNumber, item.Topic, item.DurationMinutes, params.MinItemMinutes)
			}
			total += item.DurationMinutes
		}
		if total > cfg.DailyStudyTime {
			t.Fatalf("day %d total %d exceeds daily budget %d", day.DayNumber, total, cfg.DailyStudyTime)
		}
	}
}

func TestBuildScheduleCoversEveryRecommendation(t *testing.T) {
	recs := []*types.Recommendation{
		schedRec("Matematik", "Türev", 1, 90),
		schedRec("Fizik", "Optik", 2, 55),
		schedRec("Kimya", "Asitler", 3, 25),
		schedRec("Biyoloji", "Hücre", 4, 10),
	}
	cfg := types.PlanConfig{TimeFrame: 5, DailyStudyTime: 90, StudyStyle: "balanced"}

	days, err := NewDeterministicAllocator().BuildSchedule(recs, cfg, balancedParams(), schedStart)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	scheduled := map[uuid.UUID]int{}
	for _, day := range days {
		for _, item := range day.Items {
			if item.RecommendationID != nil {
				scheduled[*item.RecommendationID] += item.DurationMinutes
			}
		}
	}
	for _, rec := range recs {
		if scheduled[rec.ID] < 15 {
			t.Fatalf("recommendation %q got %d minutes, want at least one item", rec.Topic, scheduled[rec.ID])
		}
	}
}

func TestBuildScheduleWeightsByPriorityAndImpact(t *testing.T) {
	heavy := schedRec("Matematik", "Türev", 1, 80)
	light := schedRec("Kimya", "Asitler", 4, 20)
	cfg := types.PlanConfig{TimeFrame: 7, DailyStudyTime: 120, StudyStyle: "balanced"}

	days, err := NewDeterministicAllocator().BuildSchedule([]*types.Recommendation{heavy, light}, cfg, balancedParams(), schedStart)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	minutes := map[uuid.UUID]int{}
	for _, day := range days {
		for _, item := range day.Items {
			if item.RecommendationID != nil {
				minutes[*item.RecommendationID] += item.DurationMinutes
			}
		}
	}
	if minutes[heavy.ID] <= minutes[light.ID] {
		t.Fatalf("heavy rec got %d minutes, light got %d; want heavy > light", minutes[heavy.ID], minutes[light.ID])
	}
}

func TestBuildScheduleDeterministic(t *testing.T) {
	recs := []*types.Recommendation{
		schedRec("Matematik", "Türev", 1, 80),
		schedRec("Fizik", "Optik", 2, 50),
		schedRec("Kimya", "Asitler", 3, 30),
	}
	cfg := types.PlanConfig{TimeFrame: 10, DailyStudyTime: 90, StudyStyle: "balanced"}
	alloc := NewDeterministicAllocator()

	first, err := alloc.BuildSchedule(recs, cfg, balancedParams(), schedStart)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := alloc.BuildSchedule(recs, cfg, balancedParams(), schedStart)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical input produced different schedules")
	}
}

func TestBuildSchedulePlacesReviewItems(t *testing.T) {
	recs := []*types.Recommendation{
		schedRec("Matematik", "Türev", 1, 80),
		schedRec("Fizik", "Optik", 2, 50),
	}
	cfg := types.PlanConfig{TimeFrame: 7, DailyStudyTime: 120, StudyStyle: "relaxed"}
	params := AllocatorParams{
		MinItemMinutes:           15,
		MaxItemMinutes:           45,
		ReviewFraction:           0.30,
		OverflowToleranceMinutes: 0,
	}

	days, err := NewDeterministicAllocator().BuildSchedule(recs, cfg, params, schedStart)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	subjects := map[string]bool{"Matematik": true, "Fizik": true}
	reviews := 0
	for _, day := range days {
		for _, item := range day.Items {
			if item.RecommendationID != nil {
				continue
			}
			reviews++
			if !subjects[item.SubjectName] {
				t.Fatalf("review item for unscheduled subject %q", item.SubjectName)
			}
			if item.Topic != "Review: "+item.SubjectName {
				t.Fatalf("review topic = %q", item.Topic)
			}
		}
	}
	if reviews == 0 {
		t.Fatalf("relaxed style produced no review items")
	}
}

func TestBuildScheduleIntensiveAllowsLongerItems(t *testing.T) {
	recs := []*types.Recommendation{schedRec("Matematik", "Türev", 1, 100)}
	cfg := types.PlanConfig{TimeFrame: 2, DailyStudyTime: 120, StudyStyle: "intensive"}
	params := AllocatorParams{
		MinItemMinutes:           15,
		MaxItemMinutes:           90,
		ReviewFraction:           0.10,
		OverflowToleranceMinutes: 0,
	}

	days, err := NewDeterministicAllocator().BuildSchedule(recs, cfg, params, schedStart)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	longest := 0
	for _, day := range days {
		for _, item := range day.Items {
			if item.DurationMinutes > longest {
				longest = item.DurationMinutes
			}
		}
	}
	if longest <= 60 || longest > 90 {
		t.Fatalf("longest intensive item = %d, want in (60,90]", longest)
	}
}

func TestBuildScheduleUnalignedDailyBudget(t *testing.T) {
	// 20-minute days hold a single 15-minute granule each, so a week
	// schedules at most 7 granules even though the raw budget is 140.
	subjects := []string{"Matematik", "Fizik", "Kimya", "Biyoloji", "Tarih", "Coğrafya", "Edebiyat", "Felsefe"}
	var recs []*types.Recommendation
	for _, s := range subjects {
		recs = append(recs, schedRec(s, s+" konu", 2, 50))
	}
	cfg := types.PlanConfig{TimeFrame: 7, DailyStudyTime: 20, StudyStyle: "balanced"}
	alloc := NewDeterministicAllocator()

	if _, err := alloc.BuildSchedule(recs, cfg, balancedParams(), schedStart); !apierr.HasCode(err, "too_many_recommendations") {
		t.Fatalf("err = %v, want too_many_recommendations for 8 recommendations in 7 granules", err)
	}

	days, err := alloc.BuildSchedule(recs[:7], cfg, balancedParams(), schedStart)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	scheduled := map[uuid.UUID]bool{}
	for _, day := range days {
		total := 0
		for _, item := range day.Items {
			if item.DurationMinutes < 15 || item.DurationMinutes%15 != 0 {
				t.Fatalf("day %d item %q duration %d off the granule grid", day.DayNumber, item.Topic, item.DurationMinutes)
			}
			total += item.DurationMinutes
			if item.RecommendationID != nil {
				scheduled[*item.RecommendationID] = true
			}
		}
		if total > cfg.DailyStudyTime {
			t.Fatalf("day %d total %d exceeds daily budget %d", day.DayNumber, total, cfg.DailyStudyTime)
		}
	}
	if len(scheduled) != 7 {
		t.Fatalf("plan covers %d of 7 selected recommendations", len(scheduled))
	}
}

func TestBuildScheduleFallbackSplitStaysGranuleAligned(t *testing.T) {
	// A 90-minute chunk cannot fit any 20-minute day, so packing has to
	// split it; the pieces must remain whole granules and nothing may be
	// dropped.
	recs := []*types.Recommendation{schedRec("Matematik", "Türev", 1, 100)}
	cfg := types.PlanConfig{TimeFrame: 7, DailyStudyTime: 20, StudyStyle: "intensive"}
	params := AllocatorParams{
		MinItemMinutes:           15,
		MaxItemMinutes:           90,
		ReviewFraction:           0.10,
		OverflowToleranceMinutes: 0,
	}

	days, err := NewDeterministicAllocator().BuildSchedule(recs, cfg, params, schedStart)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	primary := 0
	for _, day := range days {
		total := 0
		for _, item := range day.Items {
			if item.DurationMinutes < 15 || item.DurationMinutes%15 != 0 {
				t.Fatalf("day %d item %q duration %d off the granule grid", day.DayNumber, item.Topic, item.DurationMinutes)
			}
			total += item.DurationMinutes
			if item.RecommendationID != nil {
				primary += item.DurationMinutes
			}
		}
		if total > cfg.DailyStudyTime {
			t.Fatalf("day %d total %d exceeds daily budget %d", day.DayNumber, total, cfg.DailyStudyTime)
		}
	}
	if primary != 90 {
		t.Fatalf("scheduled %d primary minutes, want the full 90-minute allocation", primary)
	}
}

func TestBuildScheduleValidation(t *testing.T) {
	var many []*types.Recommendation
	for i := 0; i < 20; i++ {
		many = append(many, schedRec("Matematik", "Türev", 1, 50))
	}

	cases := []struct {
		name string
		recs []*types.Recommendation
		cfg  types.PlanConfig
		code string
	}{
		{
			name: "no_recommendations",
			recs: nil,
			cfg:  types.PlanConfig{TimeFrame: 7, DailyStudyTime: 120},
			code: "no_recommendations_selected",
		},
		{
			name: "zero_time_frame",
			recs: []*types.Recommendation{schedRec("Matematik", "Türev", 1, 50)},
			cfg:  types.PlanConfig{TimeFrame: 0, DailyStudyTime: 120},
			code: "invalid_time_frame",
		},
		{
			name: "daily_below_granularity",
			recs: []*types.Recommendation{schedRec("Matematik", "Türev", 1, 50)},
			cfg:  types.PlanConfig{TimeFrame: 7, DailyStudyTime: 10},
			code: "daily_study_time_too_small",
		},
		{
			name: "more_recommendations_than_budget",
			recs: many,
			cfg:  types.PlanConfig{TimeFrame: 1, DailyStudyTime: 120},
			code: "too_many_recommendations",
		},
	}

	alloc := NewDeterministicAllocator()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := alloc.BuildSchedule(tc.recs, tc.cfg, balancedParams(), schedStart)
			if !apierr.HasCode(err, tc.code) {
				t.Fatalf("err = %v, want code %s", err, tc.code)
			}
		})
	}
}
