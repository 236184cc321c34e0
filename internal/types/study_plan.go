package types

import (
	"time"
	"github.com/google/uuid"
)

type StudyPlanStatus string

const (
	StudyPlanStatusActive    StudyPlanStatus = "active"
	StudyPlanStatusCompleted StudyPlanStatus = "completed"
	StudyPlanStatusArchived  StudyPlanStatus = "archived"
)

const (
	StudyStyleIntensive = "intensive"
	StudyStyleBalanced  = "balanced"
	StudyStyleRelaxed   = "relaxed"
)

type StudyPlan struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"student_id"`
	Student        *Student        `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudentID;references:ID" json:"student,omitempty"`
	Name           string          `gorm:"not null" json:"name"`
	TimeFrame      int             `gorm:"column:time_frame;not null" json:"time_frame"`
	DailyStudyTime int             `gorm:"column:daily_study_time;not null" json:"daily_study_time"`
	StudyStyle     string          `gorm:"column:study_style;not null" json:"study_style"`
	Status         StudyPlanStatus `gorm:"column:status;not null;default:'active';index" json:"status"`
	StartDate      time.Time       `gorm:"column:start_date;type:date;not null" json:"start_date"`
	EndDate        time.Time       `gorm:"column:end_date;type:date;not null" json:"end_date"`
	Description    string          `gorm:"type:text" json:"description,omitempty"`
	Days           []*StudyPlanDay `gorm:"foreignKey:PlanID;references:ID" json:"days,omitempty"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}

func (StudyPlan) TableName() string { return "study_plan" }
