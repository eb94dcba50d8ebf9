package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/types"
)

type TenantRepo interface {
	Exists(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (bool, error)
	// Ensure provisions the tenant row when it is not there yet.
	Ensure(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) error
}

type tenantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTenantRepo(db *gorm.DB, baseLog *logger.Logger) TenantRepo {
	repoLog := baseLog.With("repo", "TenantRepo")
	return &tenantRepo{db: db, log: repoLog}
}

func (r *tenantRepo) Exists(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Tenant{}).
		Where("id = ?", tenantID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *tenantRepo) Ensure(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(&types.Tenant{ID: tenantID, Status: "active"}).Error
}
