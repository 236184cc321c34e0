package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/studypilot-backend/internal/apierr"
	"github.com/yungbote/studypilot-backend/internal/config"
	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/repos"
	"github.com/yungbote/studypilot-backend/internal/types"
)

// RecommendationService owns the recommendation lifecycle: each refresh diffs
// the incoming candidates against the student's active set and commits the
// resulting confirmations, updates, creations and resolutions as one unit.
type RecommendationService interface {
	ReconcileRefresh(ctx context.Context, studentID uuid.UUID, candidates []types.IssueCandidate) (*types.RefreshSummary, []*types.Recommendation, []types.CandidateError, error)
	GetActive(ctx context.Context, studentID uuid.UUID) ([]*types.Recommendation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Recommendation, error)
	GetHistory(ctx context.Context, id uuid.UUID) ([]*types.Recommendation, error)
}

type recommendationService struct {
	db          *gorm.DB
	log         *logger.Logger
	cfg         *config.Config
	recRepo     repos.RecommendationRepo
	studentRepo repos.StudentRepo
	locker      *StudentLocker
}

func NewRecommendationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	recRepo repos.RecommendationRepo,
	studentRepo repos.StudentRepo,
	locker *StudentLocker,
) RecommendationService {
	serviceLog := baseLog.With("service", "RecommendationService")
	return &recommendationService{
		db:          db,
		log:         serviceLog,
		cfg:         cfg,
		recRepo:     recRepo,
		studentRepo: studentRepo,
		locker:      locker,
	}
}

func (s *recommendationService) ReconcileRefresh(ctx context.Context, studentID uuid.UUID, candidates []types.IssueCandidate) (*types.RefreshSummary, []*types.Recommendation, []types.CandidateError, error) {
	if studentID == uuid.Nil {
		return nil, nil, nil, apierr.Validation("missing_student_id", fmt.Errorf("student id is required"))
	}
	if _, err := s.studentRepo.GetByID(ctx, nil, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, apierr.NotFound("student_not_found", err)
		}
		return nil, nil, nil, fmt.Errorf("load student: %w", err)
	}

	valid, candErrs := screenCandidates(candidates)

	// Concurrent refreshes for the same student must not interleave: the
	// read-pair-write sequence below would otherwise double-create rows for
	// the same issue.
	release, err := s.locker.Acquire(ctx, studentID)
	if err != nil {
		return nil, nil, nil, err
	}
	defer release()

	now := time.Now().UTC()
	summary := &types.RefreshSummary{RejectedCount: len(candErrs)}
	var active []*types.Recommendation

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.recRepo.GetActiveByStudentID(ctx, tx, studentID)
		if err != nil {
			return fmt.Errorf("load active recommendations: %w", err)
		}

		pairs, matchedCand := pairCandidates(existing, valid)

		var toCreate []*types.Recommendation
		for _, rec := range existing {
			candIdx, matched := pairs[rec.ID]
			if !matched {
				rec.Status = types.RecommendationStatusResolved
				rec.IsActive = false
				rec.UpdatedAt = now
				if err := s.recRepo.Save(ctx, tx, rec); err != nil {
					return fmt.Errorf("resolve recommendation %s: %w", rec.ID, err)
				}
				summary.ResolvedCount++
				continue
			}

			cand := valid[candIdx]
			delta := math.Abs(cand.ImpactScore - rec.ImpactScore)
			if delta <= s.cfg.Reconciler.MaterialityThreshold && actionItemsEqual(rec.ActionItems, cand.ActionItems) {
				rec.Status = types.RecommendationStatusActive
				rec.LastConfirmedAt = now
				rec.UpdatedAt = now
				if err := s.recRepo.Save(ctx, tx, rec); err != nil {
					return fmt.Errorf("confirm recommendation %s: %w", rec.ID, err)
				}
				summary.ConfirmedCount++
				continue
			}

			// Material change: new version row, old row leaves the active set
			// and is frozen from here on.
			rec.Status = types.RecommendationStatusSuperseded
			rec.IsActive = false
			rec.UpdatedAt = now
			if err := s.recRepo.Save(ctx, tx, rec); err != nil {
				return fmt.Errorf("supersede recommendation %s: %w", rec.ID, err)
			}
			next := rowFromCandidate(studentID, cand, now)
			next.Status = types.RecommendationStatusUpdated
			prevID := rec.ID
			next.PreviousRecommendationID = &prevID
			toCreate = append(toCreate, next)
			summary.UpdatedCount++
		}

		for i, cand := range valid {
			if matchedCand[i] {
				continue
			}
			row := rowFromCandidate(studentID, cand, now)
			row.Status = types.RecommendationStatusNew
			toCreate = append(toCreate, row)
			summary.NewCount++
		}

		if _, err := s.recRepo.Create(ctx, tx, toCreate); err != nil {
			return fmt.Errorf("create recommendations: %w", err)
		}

		active, err = s.recRepo.GetActiveByStudentID(ctx, tx, studentID)
		if err != nil {
			return fmt.Errorf("reload active recommendations: %w", err)
		}
		summary.TotalActive = len(active)
		return nil
	})
	if err != nil {
		return nil, nil, candErrs, err
	}

	s.log.Info("Reconciled recommendations",
		"student_id", studentID,
		"new", summary.NewCount,
		"updated", summary.UpdatedCount,
		"confirmed", summary.ConfirmedCount,
		"resolved", summary.ResolvedCount,
		"rejected", summary.RejectedCount,
		"total_active", summary.TotalActive,
	)
	return summary, active, candErrs, nil
}

func (s *recommendationService) GetActive(ctx context.Context, studentID uuid.UUID) ([]*types.Recommendation, error) {
	return s.recRepo.GetActiveByStudentID(ctx, nil, studentID)
}

func (s *recommendationService) GetByID(ctx context.Context, id uuid.UUID) (*types.Recommendation, error) {
	rec, err := s.recRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("recommendation_not_found", err)
		}
		return nil, err
	}
	return rec, nil
}

// GetHistory walks the version chain from the given row back to its first
// version, newest first.
func (s *recommendationService) GetHistory(ctx context.Context, id uuid.UUID) ([]*types.Recommendation, error) {
	var chain []*types.Recommendation
	seen := map[uuid.UUID]bool{}
	next := &id
	for next != nil && !seen[*next] {
		seen[*next] = true
		rec, err := s.GetByID(ctx, *next)
		if err != nil {
			return nil, err
		}
		chain = append(chain, rec)
		next = rec.PreviousRecommendationID
	}
	return chain, nil
}

// screenCandidates rejects malformed candidates individually and normalizes
// the rest. One bad candidate never blocks the batch.
func screenCandidates(candidates []types.IssueCandidate) ([]types.IssueCandidate, []types.CandidateError) {
	valid := make([]types.IssueCandidate, 0, len(candidates))
	var errs []types.CandidateError
	seen := map[string]bool{}
	for i, cand := range candidates {
		if cand.IssueType == "" {
			errs = append(errs, types.CandidateError{Index: i, Reason: "missing issue_type"})
			continue
		}
		if math.IsNaN(cand.ImpactScore) || math.IsInf(cand.ImpactScore, 0) {
			errs = append(errs, types.CandidateError{Index: i, Reason: "impact_score is not finite"})
			continue
		}
		if cand.ImpactScore < 0 {
			errs = append(errs, types.CandidateError{Index: i, Reason: "impact_score must be >= 0"})
			continue
		}
		// The upstream generator emits priorities up to 5; the lifecycle
		// works on 1..4.
		if cand.Priority < 1 {
			cand.Priority = 1
		}
		if cand.Priority > 4 {
			cand.Priority = 4
		}
		// At most one active row per (subject, topic, issue type) per
		// student, so duplicates within a batch cannot both land.
		key := cand.Subject + "\x00" + cand.Topic + "\x00" + cand.IssueType
		if seen[key] {
			errs = append(errs, types.CandidateError{Index: i, Reason: "duplicate of an earlier candidate"})
			continue
		}
		seen[key] = true
		valid = append(valid, cand)
	}
	return valid, errs
}

// pairCandidates matches each active recommendation with at most one
// candidate and vice versa. Outcome-id overlap wins over an exact
// subject/topic match because topics get renamed upstream while outcome
// identities persist. Greedy order: priority asc, impact desc, id asc, so the
// result is stable for identical input.
func pairCandidates(existing []*types.Recommendation, candidates []types.IssueCandidate) (map[uuid.UUID]int, []bool) {
	recs := make([]*types.Recommendation, len(existing))
	copy(recs, existing)
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority < recs[j].Priority
		}
		if recs[i].ImpactScore != recs[j].ImpactScore {
			return recs[i].ImpactScore > recs[j].ImpactScore
		}
		return recs[i].ID.String() < recs[j].ID.String()
	})

	pairs := make(map[uuid.UUID]int, len(recs))
	consumed := make([]bool, len(candidates))
	for _, rec := range recs {
		best := -1
		bestOverlap := 0
		bestExact := false
		bestImpact := 0.0
		for i, cand := range candidates {
			if consumed[i] || cand.IssueType != rec.IssueType {
				continue
			}
			overlap := outcomeOverlap(rec.LearningOutcomeIDs, cand.LearningOutcomeIDs)
			exact := cand.Subject == rec.SubjectName && cand.Topic == rec.Topic
			if overlap == 0 && !exact {
				continue
			}
			switch {
			case best < 0,
				overlap > bestOverlap,
				overlap == bestOverlap && exact && !bestExact,
				overlap == bestOverlap && exact == bestExact && cand.ImpactScore > bestImpact:
				best, bestOverlap, bestExact, bestImpact = i, overlap, exact, cand.ImpactScore
			}
		}
		if best >= 0 {
			pairs[rec.ID] = best
			consumed[best] = true
		}
	}
	return pairs, consumed
}

func outcomeOverlap(a []string, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	count := 0
	for _, id := range b {
		if set[id] {
			count++
			set[id] = false
		}
	}
	return count
}

func actionItemsEqual(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func rowFromCandidate(studentID uuid.UUID, cand types.IssueCandidate, now time.Time) *types.Recommendation {
	return &types.Recommendation{
		ID:                 uuid.New(),
		StudentID:          studentID,
		Priority:           cand.Priority,
		SubjectName:        cand.Subject,
		Topic:              cand.Topic,
		IssueType:          cand.IssueType,
		Description:        cand.Description,
		ActionItems:        datatypes.NewJSONSlice(cand.ActionItems),
		Rationale:          cand.Rationale,
		ImpactScore:        cand.ImpactScore,
		LearningOutcomeIDs: datatypes.NewJSONSlice(cand.LearningOutcomeIDs),
		IsActive:           true,
		GeneratedAt:        now,
		LastConfirmedAt:    now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
