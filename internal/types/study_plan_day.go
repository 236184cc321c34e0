package types

import (
	"time"
	"github.com/google/uuid"
)

// TotalDurationMinutes and Completed are derived from the day's items and
// recomputed on every item mutation, never edited on their own.
type StudyPlanDay struct {
	ID                   uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	PlanID               uuid.UUID        `gorm:"type:uuid;not null;index" json:"plan_id"`
	DayNumber            int              `gorm:"column:day_number;not null" json:"day_number"`
	Date                 time.Time        `gorm:"column:date;type:date;not null" json:"date"`
	TotalDurationMinutes int              `gorm:"column:total_duration_minutes;not null;default:0" json:"total_duration_minutes"`
	Completed            bool             `gorm:"column:completed;not null;default:false;index" json:"completed"`
	Notes                string           `gorm:"type:text" json:"notes,omitempty"`
	Items                []*StudyPlanItem `gorm:"foreignKey:DayID;references:ID" json:"items,omitempty"`
}

func (StudyPlanDay) TableName() string { return "study_plan_day" }
