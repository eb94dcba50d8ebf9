package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

func ValidRisk(r Risk) bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

const (
	InsightSourceRules     = "rules"
	InsightSourceGenerated = "generated"

	InsightVersionRules     = 1
	InsightVersionGenerated = 2
)

// KrInsight is the derived explanation record for one key result. At most one
// row per (tenant, key result); recomputation overwrites in place.
type KrInsight struct {
	gorm.Model
	ID               uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID         uuid.UUID `gorm:"type:uuid;uniqueIndex:ux_kr_insight;not null;column:tenant_id" json:"tenant_id"`
	KeyResultID      uuid.UUID `gorm:"type:uuid;uniqueIndex:ux_kr_insight;not null;column:key_result_id" json:"key_result_id"`
	Risk             Risk      `gorm:"type:varchar(16);not null;column:risk" json:"risk"`
	ExplanationShort string    `gorm:"not null;column:explanation_short" json:"explanation_short"`
	ExplanationLong  string    `gorm:"not null;column:explanation_long" json:"explanation_long"`
	Suggestion       string    `gorm:"not null;column:suggestion" json:"suggestion"`
	Source           string    `gorm:"not null;column:source" json:"source"`
	Version          int       `gorm:"not null;column:version" json:"version"`
	ComputedAt       time.Time `gorm:"not null;default:now();column:computed_at" json:"computed_at"`
}

func (KrInsight) TableName() string {
	return "kr_insight"
}

// ObjectiveInsight is the derived explanation record for one objective.
type ObjectiveInsight struct {
	gorm.Model
	ID               uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID         uuid.UUID `gorm:"type:uuid;uniqueIndex:ux_objective_insight;not null;column:tenant_id" json:"tenant_id"`
	ObjectiveID      uuid.UUID `gorm:"type:uuid;uniqueIndex:ux_objective_insight;not null;column:objective_id" json:"objective_id"`
	ExplanationShort string    `gorm:"not null;column:explanation_short" json:"explanation_short"`
	ExplanationLong  string    `gorm:"not null;column:explanation_long" json:"explanation_long"`
	Suggestion       string    `gorm:"not null;column:suggestion" json:"suggestion"`
	Source           string    `gorm:"not null;column:source" json:"source"`
	Version          int       `gorm:"not null;column:version" json:"version"`
	ComputedAt       time.Time `gorm:"not null;default:now();column:computed_at" json:"computed_at"`
}

func (ObjectiveInsight) TableName() string {
	return "objective_insight"
}
