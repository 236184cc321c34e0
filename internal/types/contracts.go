package types

import "github.com/google/uuid"

// Contract shapes exchanged with collaborators and callers. The candidate
// source decides WHAT the issues are; this engine only owns their lifecycle.

type IssueCandidate struct {
	Subject            string   `json:"subject"`
	Topic              string   `json:"topic"`
	IssueType          string   `json:"issue_type"`
	Description        string   `json:"description"`
	ActionItems        []string `json:"action_items"`
	Rationale          string   `json:"rationale,omitempty"`
	ImpactScore        float64  `json:"impact_score"`
	Priority           int      `json:"priority"`
	LearningOutcomeIDs []string `json:"learning_outcome_ids,omitempty"`
}

type RefreshSummary struct {
	NewCount       int `json:"new_count"`
	UpdatedCount   int `json:"updated_count"`
	ConfirmedCount int `json:"confirmed_count"`
	ResolvedCount  int `json:"resolved_count"`
	RejectedCount  int `json:"rejected_count"`
	TotalActive    int `json:"total_active"`
}

// CandidateError reports a single malformed candidate. It never aborts the
// batch; the caller gets these alongside a valid RefreshSummary.
type CandidateError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type PlanConfig struct {
	Name           string `json:"name"`
	TimeFrame      int    `json:"time_frame"`
	DailyStudyTime int    `json:"daily_study_time"`
	StudyStyle     string `json:"study_style"`
	Description    string `json:"description,omitempty"`
}

type StudyPlanProgress struct {
	PlanID               uuid.UUID `json:"plan_id"`
	TotalItems           int       `json:"total_items"`
	CompletedItems       int       `json:"completed_items"`
	CompletionPercentage float64   `json:"completion_percentage"`
	TotalDays            int       `json:"total_days"`
	CompletedDays        int       `json:"completed_days"`
	DaysRemaining        int       `json:"days_remaining"`
	OnTrack              bool      `json:"on_track"`
}
