package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlignmentEdge records "child contributes to parent" between two objectives
// of the same tenant. The tenant's edge set is kept a DAG at all times.
type AlignmentEdge struct {
	gorm.Model
	ID                uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID          uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:ux_alignment_edge;column:tenant_id" json:"tenant_id"`
	ParentObjectiveID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_alignment_edge;column:parent_objective_id" json:"parent_objective_id"`
	ChildObjectiveID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_alignment_edge;column:child_objective_id" json:"child_objective_id"`
	CreatedAt         time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (AlignmentEdge) TableName() string {
	return "objective_alignment"
}
