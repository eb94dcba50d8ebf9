package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Checkin is an immutable numeric observation against a key result.
// Rows are append-only and removed only when the key result cascades away.
type Checkin struct {
	gorm.Model
	ID              uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID        uuid.UUID  `gorm:"type:uuid;index;not null;column:tenant_id" json:"tenant_id"`
	KeyResultID     uuid.UUID  `gorm:"type:uuid;index;not null;column:key_result_id" json:"key_result_id"`
	KeyResult       *KeyResult `gorm:"constraint:OnDelete:CASCADE;foreignKey:KeyResultID;references:ID" json:"-"`
	Value           float64    `gorm:"not null;column:value" json:"value"`
	Comment         *string    `gorm:"column:comment" json:"comment"`
	CreatedByUserID *uuid.UUID `gorm:"type:uuid;column:created_by_user_id" json:"created_by_user_id"`
	CreatedAt       time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (Checkin) TableName() string {
	return "kr_checkin"
}
