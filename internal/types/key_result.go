package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	KeyResultStatusPlanned    = "planned"
	KeyResultStatusInProgress = "in_progress"
	KeyResultStatusDone       = "done"
)

type KeyResult struct {
	gorm.Model
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID     uuid.UUID  `gorm:"type:uuid;index;not null;column:tenant_id" json:"tenant_id"`
	ObjectiveID  uuid.UUID  `gorm:"type:uuid;index;not null;column:objective_id" json:"objective_id"`
	Parent       *Objective `gorm:"constraint:OnDelete:CASCADE;foreignKey:ObjectiveID;references:ID" json:"-"`
	Title        string     `gorm:"not null;column:title" json:"title"`
	MetricName   *string    `gorm:"column:metric_name" json:"metric_name"`
	TargetValue  *float64   `gorm:"column:target_value" json:"target_value"`
	CurrentValue *float64   `gorm:"column:current_value" json:"current_value"`
	Unit         *string    `gorm:"column:unit" json:"unit"`
	Status       string     `gorm:"not null;default:'planned';column:status" json:"status"`
	CreatedAt    time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (KeyResult) TableName() string {
	return "key_result"
}
