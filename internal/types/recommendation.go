package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RecommendationStatus string

const (
	RecommendationStatusNew        RecommendationStatus = "new"
	RecommendationStatusActive     RecommendationStatus = "active"
	RecommendationStatusUpdated    RecommendationStatus = "updated"
	RecommendationStatusResolved   RecommendationStatus = "resolved"
	RecommendationStatusSuperseded RecommendationStatus = "superseded"
)

const (
	IssueTypeWeakSubject    = "weak_subject"
	IssueTypeDecliningTrend = "declining_trend"
	IssueTypeHighBlankRate  = "high_blank_rate"
	IssueTypeWeakOutcomes   = "weak_outcomes"
)

// Recommendation is one detected, actionable performance issue. Rows are
// append-only: once a row leaves the active set (superseded/resolved) it is
// never mutated again, and PreviousRecommendationID forms the version chain
// back through earlier takes on the same issue.
type Recommendation struct {
	ID                       uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID                uuid.UUID                   `gorm:"type:uuid;not null;index" json:"student_id"`
	Student                  *Student                    `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudentID;references:ID" json:"student,omitempty"`
	Priority                 int                         `gorm:"not null" json:"priority"`
	SubjectName              string                      `gorm:"column:subject_name" json:"subject_name,omitempty"`
	Topic                    string                      `gorm:"column:topic" json:"topic,omitempty"`
	IssueType                string                      `gorm:"column:issue_type;not null;index" json:"issue_type"`
	Description              string                      `gorm:"type:text;not null" json:"description"`
	ActionItems              datatypes.JSONSlice[string] `gorm:"column:action_items" json:"action_items"`
	Rationale                string                      `gorm:"type:text" json:"rationale,omitempty"`
	ImpactScore              float64                     `gorm:"column:impact_score;not null;default:0" json:"impact_score"`
	LearningOutcomeIDs       datatypes.JSONSlice[string] `gorm:"column:learning_outcome_ids" json:"learning_outcome_ids"`
	Status                   RecommendationStatus        `gorm:"column:status;not null;default:'new';index" json:"status"`
	IsActive                 bool                        `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
	PreviousRecommendationID *uuid.UUID                  `gorm:"type:uuid;column:previous_recommendation_id" json:"previous_recommendation_id,omitempty"`
	GeneratedAt              time.Time                   `gorm:"column:generated_at;not null" json:"generated_at"`
	LastConfirmedAt          time.Time                   `gorm:"column:last_confirmed_at;not null" json:"last_confirmed_at"`
	CreatedAt                time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt                time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Recommendation) TableName() string { return "recommendation" }

// MatchKey is the duplicate-suppression key: at most one active
// recommendation per key per student.
func (r *Recommendation) MatchKey() string {
	return r.SubjectName + "\x00" + r.Topic + "\x00" + r.IssueType
}
