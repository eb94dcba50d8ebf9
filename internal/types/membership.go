package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleViewer, RoleEditor, RoleOwner:
		return true
	default:
		return false
	}
}

// Membership ties (tenant, objective, user) to a role. While an objective has
// any membership it must keep at least one owner.
type Membership struct {
	gorm.Model
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID     uuid.UUID  `gorm:"type:uuid;uniqueIndex:ux_membership;not null;column:tenant_id" json:"tenant_id"`
	ObjectiveID  uuid.UUID  `gorm:"type:uuid;uniqueIndex:ux_membership;not null;column:objective_id" json:"objective_id"`
	UserObjectID uuid.UUID  `gorm:"type:uuid;uniqueIndex:ux_membership;not null;column:user_object_id" json:"user_object_id"`
	Role         Role       `gorm:"type:varchar(16);not null;column:role" json:"role"`
	DisplayName  *string    `gorm:"column:display_name" json:"display_name"`
	Email        *string    `gorm:"column:email" json:"email"`
	CreatedBy    *uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by"`
	CreatedAt    time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (Membership) TableName() string {
	return "objective_member"
}
