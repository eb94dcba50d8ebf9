package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Tenant struct {
	gorm.Model
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Status    string    `gorm:"not null;default:'active';column:status" json:"status"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Tenant) TableName() string {
	return "tenant"
}
