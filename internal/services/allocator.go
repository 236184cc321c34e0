package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studypilot-backend/internal/apierr"
	"github.com/yungbote/studypilot-backend/internal/types"
)

// ScheduleStrategy turns selected recommendations plus constraints into a
// day-by-day schedule. The deterministic allocator below is the default; an
// AI-backed planner can be swapped in behind the same interface as long as
// its output meets the same invariants.
type ScheduleStrategy interface {
	BuildSchedule(recs []*types.Recommendation, cfg types.PlanConfig, params AllocatorParams, startDate time.Time) ([]ScheduledDay, error)
}

type AllocatorParams struct {
	MinItemMinutes           int
	MaxItemMinutes           int
	ReviewFraction           float64
	OverflowToleranceMinutes int
}

type ScheduledItem struct {
	RecommendationID *uuid.UUID
	SubjectName      string
	Topic            string
	Description      string
	DurationMinutes  int
}

type ScheduledDay struct {
	DayNumber int
	Date      time.Time
	Items     []ScheduledItem
}

// DeterministicAllocator is a pure value-type computation: identical input
// always yields an identical schedule. All tie-breaks go through sorted
// slices keyed on recommendation id.
type DeterministicAllocator struct{}

func NewDeterministicAllocator() *DeterministicAllocator { return &DeterministicAllocator{} }

func priorityWeight(priority int) float64 {
	switch priority {
	case 1:
		return 4
	case 2:
		return 3
	case 3:
		return 2
	default:
		return 1
	}
}

func (a *DeterministicAllocator) BuildSchedule(recs []*types.Recommendation, cfg types.PlanConfig, params AllocatorParams, startDate time.Time) ([]ScheduledDay, error) {
	g := params.MinItemMinutes
	if len(recs) == 0 {
		return nil, apierr.Validation("no_recommendations_selected", fmt.Errorf("no recommendations selected"))
	}
	if cfg.TimeFrame <= 0 {
		return nil, apierr.Validation("invalid_time_frame", fmt.Errorf("time_frame must be > 0, got %d", cfg.TimeFrame))
	}
	if cfg.DailyStudyTime < g {
		return nil, apierr.Validation("daily_study_time_too_small", fmt.Errorf("daily_study_time must be at least %d minutes, got %d", g, cfg.DailyStudyTime))
	}

	// A day only holds whole granules: when daily_study_time is not a
	// multiple of the granularity the leftover minutes are unschedulable,
	// so feasibility and the allocation budget go by granule capacity.
	dayCap := cfg.DailyStudyTime + params.OverflowToleranceMinutes
	capacity := cfg.TimeFrame * (dayCap / g) * g
	if len(recs)*g > capacity {
		return nil, apierr.Validation("too_many_recommendations", fmt.Errorf("%d recommendations cannot each receive %d minutes within %d schedulable minutes", len(recs), g, capacity))
	}
	totalBudget := cfg.DailyStudyTime * cfg.TimeFrame
	if totalBudget > capacity {
		totalBudget = capacity
	}

	byID := make([]*types.Recommendation, len(recs))
	copy(byID, recs)
	sort.Slice(byID, func(i, j int) bool { return byID[i].ID.String() < byID[j].ID.String() })

	allocs := allocatePrimaryMinutes(byID, totalBudget, params)
	chunksByRec := splitIntoChunks(byID, allocs, params.MaxItemMinutes)
	queue := interleaveChunks(byID, chunksByRec)

	days := make([]ScheduledDay, cfg.TimeFrame)
	remaining := make([]int, cfg.TimeFrame)
	for i := range days {
		days[i] = ScheduledDay{
			DayNumber: i + 1,
			Date:      startDate.AddDate(0, 0, i),
		}
		remaining[i] = dayCap
	}

	packDays(days, remaining, queue, g)
	placeReviewItems(days, remaining, byID, allocs, cfg, params)

	return days, nil
}

// allocatePrimaryMinutes splits the primary-study budget proportionally to
// weight = priorityWeight x impact, rounded to the item granularity, with a
// floor of one granule per recommendation. Overshoot from the floor and the
// rounding is funded by trimming the largest allocations first.
func allocatePrimaryMinutes(byID []*types.Recommendation, totalBudget int, params AllocatorParams) []int {
	g := params.MinItemMinutes
	primaryBudget := int(float64(totalBudget) * (1 - params.ReviewFraction))
	primaryBudget -= primaryBudget % g
	if primaryBudget < len(byID)*g {
		primaryBudget = len(byID) * g
	}

	weights := make([]float64, len(byID))
	totalWeight := 0.0
	for i, rec := range byID {
		weights[i] = priorityWeight(rec.Priority) * rec.ImpactScore
		totalWeight += weights[i]
	}

	allocs := make([]int, len(byID))
	sum := 0
	for i := range byID {
		share := float64(primaryBudget) / float64(len(byID))
		if totalWeight > 0 {
			share = float64(primaryBudget) * weights[i] / totalWeight
		}
		alloc := int(math.Round(share/float64(g))) * g
		if alloc < g {
			alloc = g
		}
		allocs[i] = alloc
		sum += alloc
	}

	for sum > primaryBudget {
		largest := -1
		for i, alloc := range allocs {
			if alloc <= g {
				continue
			}
			if largest < 0 || alloc > allocs[largest] {
				largest = i
			}
		}
		if largest < 0 {
			break
		}
		allocs[largest] -= g
		sum -= g
	}

	for sum+g <= primaryBudget {
		heaviest := 0
		for i := range allocs {
			if weights[i] > weights[heaviest] {
				heaviest = i
			}
		}
		allocs[heaviest] += g
		sum += g
	}

	return allocs
}

// splitIntoChunks breaks each allocation into items no larger than the style
// cap. Allocations and the cap are whole granules, so no chunk falls below
// the granularity floor.
func splitIntoChunks(byID []*types.Recommendation, allocs []int, maxItemMinutes int) [][]int {
	chunks := make([][]int, len(byID))
	for i, alloc := range allocs {
		left := alloc
		for left > 0 {
			chunk := left
			if chunk > maxItemMinutes {
				chunk = maxItemMinutes
			}
			chunks[i] = append(chunks[i], chunk)
			left -= chunk
		}
	}
	return chunks
}

// interleaveChunks flattens per-recommendation chunks round-robin, heaviest
// recommendation first, so one recommendation's items end up spread across
// the whole range instead of clustered at the start.
func interleaveChunks(byID []*types.Recommendation, chunksByRec [][]int) []ScheduledItem {
	order := make([]int, len(byID))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		wa := priorityWeight(byID[order[a]].Priority) * byID[order[a]].ImpactScore
		wb := priorityWeight(byID[order[b]].Priority) * byID[order[b]].ImpactScore
		if wa != wb {
			return wa > wb
		}
		return byID[order[a]].ID.String() < byID[order[b]].ID.String()
	})

	var queue []ScheduledItem
	for round := 0; ; round++ {
		took := false
		for _, idx := range order {
			if round >= len(chunksByRec[idx]) {
				continue
			}
			rec := byID[idx]
			recID := rec.ID
			queue = append(queue, ScheduledItem{
				RecommendationID: &recID,
				SubjectName:      rec.SubjectName,
				Topic:            rec.Topic,
				Description:      rec.Description,
				DurationMinutes:  chunksByRec[idx][round],
			})
			took = true
		}
		if !took {
			return queue
		}
	}
}

// packDays places items with a rotating cursor: prefer the next day that has
// budget and no item of the same subject yet, fall back to the earliest day
// with budget, and as a last resort split the item into the largest remaining
// gap. Splits stay granule-aligned and total allocation never exceeds the
// days' granule capacity, so every item lands.
func packDays(days []ScheduledDay, remaining []int, queue []ScheduledItem, g int) {
	n := len(days)
	cursor := 0
	for qi := 0; qi < len(queue); qi++ {
		item := queue[qi]
		preferred, fallback := -1, -1
		for offset := 0; offset < n; offset++ {
			d := (cursor + offset) % n
			if remaining[d] < item.DurationMinutes {
				continue
			}
			if fallback < 0 {
				fallback = d
			}
			if !daySubjectScheduled(days[d], item.SubjectName) {
				preferred = d
				break
			}
		}
		target := preferred
		if target < 0 {
			target = fallback
		}
		if target < 0 {
			// No single day can hold it: put what fits into the largest gap
			// and requeue the remainder.
			largest := -1
			for d := 0; d < n; d++ {
				if remaining[d] >= g && (largest < 0 || remaining[d] > remaining[largest]) {
					largest = d
				}
			}
			if largest < 0 {
				continue
			}
			fit := (remaining[largest] / g) * g
			rest := item
			rest.DurationMinutes = item.DurationMinutes - fit
			item.DurationMinutes = fit
			queue = append(queue, rest)
			target = largest
		}
		days[target].Items = append(days[target].Items, item)
		remaining[target] -= item.DurationMinutes
		cursor = (target + 1) % n
	}
}

func daySubjectScheduled(day ScheduledDay, subject string) bool {
	for _, it := range day.Items {
		if it.SubjectName == subject {
			return true
		}
	}
	return false
}

// placeReviewItems spends the review fraction of the budget on spaced
// repetition sessions, spread at roughly even intervals, cycling through
// subjects from the lowest average impact upward and never repeating a
// subject until every scheduled subject has been reviewed.
func placeReviewItems(days []ScheduledDay, remaining []int, byID []*types.Recommendation, allocs []int, cfg types.PlanConfig, params AllocatorParams) {
	g := params.MinItemMinutes
	n := len(days)

	used := 0
	for _, alloc := range allocs {
		used += alloc
	}
	reviewBudget := cfg.DailyStudyTime*cfg.TimeFrame - used
	if reviewBudget < g {
		return
	}

	chunkCount := 0
	for _, alloc := range allocs {
		chunkCount += (alloc + params.MaxItemMinutes - 1) / params.MaxItemMinutes
	}
	avg := used / chunkCount
	avg = (avg / g) * g
	if avg < g {
		avg = g
	}
	if avg > params.MaxItemMinutes {
		avg = params.MaxItemMinutes
	}

	count := reviewBudget / avg
	if count == 0 {
		count = 1
		avg = (reviewBudget / g) * g
	}
	if count > n {
		count = n
	}

	subjects := subjectsByImpact(byID)
	if len(subjects) == 0 {
		return
	}
	firstDay := subjectFirstAppearance(days)
	reviewed := map[string]bool{}

	for k := 1; k <= count; k++ {
		target := int(math.Round(float64(k)*float64(n+1)/float64(count+1))) - 1
		if target < 0 {
			target = 0
		}
		if target >= n {
			target = n - 1
		}

		day := findDayNear(remaining, target, avg)
		dur := avg
		if day < 0 {
			day = largestGapDay(remaining, g)
			if day < 0 {
				return
			}
			dur = (remaining[day] / g) * g
		}

		subject := pickReviewSubject(subjects, reviewed, firstDay, day)
		if subject == "" {
			return
		}
		reviewed[subject] = true

		days[day].Items = append(days[day].Items, ScheduledItem{
			SubjectName:     subject,
			Topic:           "Review: " + subject,
			DurationMinutes: dur,
		})
		remaining[day] -= dur
	}
}

func subjectsByImpact(byID []*types.Recommendation) []string {
	impactSum := map[string]float64{}
	impactCount := map[string]int{}
	for _, rec := range byID {
		impactSum[rec.SubjectName] += rec.ImpactScore
		impactCount[rec.SubjectName]++
	}
	subjects := make([]string, 0, len(impactSum))
	for s := range impactSum {
		subjects = append(subjects, s)
	}
	sort.Slice(subjects, func(i, j int) bool {
		ai := impactSum[subjects[i]] / float64(impactCount[subjects[i]])
		aj := impactSum[subjects[j]] / float64(impactCount[subjects[j]])
		if ai != aj {
			return ai < aj
		}
		return subjects[i] < subjects[j]
	})
	return subjects
}

func subjectFirstAppearance(days []ScheduledDay) map[string]int {
	first := map[string]int{}
	for d, day := range days {
		for _, it := range day.Items {
			if _, ok := first[it.SubjectName]; !ok {
				first[it.SubjectName] = d
			}
		}
	}
	return first
}

func pickReviewSubject(subjects []string, reviewed map[string]bool, firstDay map[string]int, day int) string {
	for pass := 0; pass < 2; pass++ {
		for _, s := range subjects {
			if reviewed[s] {
				continue
			}
			if fd, ok := firstDay[s]; ok && fd <= day {
				return s
			}
		}
		// Everything eligible was already reviewed: restart the rotation.
		for k := range reviewed {
			delete(reviewed, k)
		}
	}
	// Nothing is scheduled on or before this day; review the earliest subject.
	best := ""
	for _, s := range subjects {
		if fd, ok := firstDay[s]; ok {
			if best == "" || fd < firstDay[best] {
				best = s
			}
		}
	}
	return best
}

func findDayNear(remaining []int, target, need int) int {
	n := len(remaining)
	for dist := 0; dist < n; dist++ {
		if d := target + dist; d < n && remaining[d] >= need {
			return d
		}
		if d := target - dist; dist > 0 && d >= 0 && remaining[d] >= need {
			return d
		}
	}
	return -1
}

func largestGapDay(remaining []int, g int) int {
	best := -1
	for d, left := range remaining {
		if left >= g && (best < 0 || left > remaining[best]) {
			best = d
		}
	}
	return best
}
