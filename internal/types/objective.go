package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ObjectiveStatusDraft  = "draft"
	ObjectiveStatusActive = "active"
	ObjectiveStatusClosed = "closed"
)

type Objective struct {
	gorm.Model
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;index;not null;column:tenant_id" json:"tenant_id"`
	Objective string    `gorm:"not null;column:objective" json:"objective"`
	FromDate  time.Time `gorm:"not null;column:from_date" json:"from_date"`
	ToDate    time.Time `gorm:"not null;column:to_date" json:"to_date"`
	Status    string    `gorm:"not null;default:'draft';column:status" json:"status"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Objective) TableName() string {
	return "objective"
}

func ValidObjectiveStatus(s string) bool {
	switch s {
	case ObjectiveStatusDraft, ObjectiveStatusActive, ObjectiveStatusClosed:
		return true
	default:
		return false
	}
}
