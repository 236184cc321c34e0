package types

import (
	"time"
	"github.com/google/uuid"
)

// RecommendationID stays nil for review items, and keeps pointing at the
// originally scheduled row even after that recommendation is superseded or
// resolved. Already-generated plans are historical records.
type StudyPlanItem struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DayID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"day_id"`
	RecommendationID *uuid.UUID `gorm:"type:uuid;column:recommendation_id" json:"recommendation_id,omitempty"`
	SubjectName      string     `gorm:"column:subject_name;not null" json:"subject_name"`
	Topic            string     `gorm:"column:topic;not null" json:"topic"`
	Description      string     `gorm:"type:text" json:"description,omitempty"`
	DurationMinutes  int        `gorm:"column:duration_minutes;not null" json:"duration_minutes"`
	Order            int        `gorm:"column:item_order;not null" json:"order"`
	Completed        bool       `gorm:"column:completed;not null;default:false;index" json:"completed"`
	CompletedAt      *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (StudyPlanItem) TableName() string { return "study_plan_item" }
