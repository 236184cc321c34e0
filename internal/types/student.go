package types

import (
	"time"
	"github.com/google/uuid"
)

type Student struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	School    string    `gorm:"column:school" json:"school,omitempty"`
	Grade     string    `gorm:"column:grade" json:"grade,omitempty"`
	Program   string    `gorm:"column:program" json:"program,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Student) TableName() string { return "student" }
