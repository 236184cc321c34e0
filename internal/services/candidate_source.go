package services

import (
	"context"
	"github.com/google/uuid"
	"github.com/yungbote/studypilot-backend/internal/types"
)

// CandidateSource supplies the currently-detected performance issues for a
// student at refresh time. Detection (exam scoring, trend analysis, any AI
// phrasing of the text) lives entirely behind this interface; the engine only
// consumes its already-computed output.
type CandidateSource interface {
	Candidates(ctx context.Context, studentID uuid.UUID) ([]types.IssueCandidate, error)
}

// StaticCandidateSource serves a fixed candidate list per student. Used for
// wiring the refresh endpoint before a detector is attached, and in tests.
type StaticCandidateSource struct {
	byStudent map[uuid.UUID][]types.IssueCandidate
}

func NewStaticCandidateSource() *StaticCandidateSource {
	return &StaticCandidateSource{byStudent: map[uuid.UUID][]types.IssueCandidate{}}
}

func (s *StaticCandidateSource) Set(studentID uuid.UUID, candidates []types.IssueCandidate) {
	s.byStudent[studentID] = candidates
}

func (s *StaticCandidateSource) Candidates(ctx context.Context, studentID uuid.UUID) ([]types.IssueCandidate, error) {
	return s.byStudent[studentID], nil
}
