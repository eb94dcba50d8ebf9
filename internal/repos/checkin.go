package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/types"
)

type CheckinRepo interface {
	Create(ctx context.Context, tx *gorm.DB, checkin *types.Checkin) (*types.Checkin, error)
	// ListByKeyResult returns check-ins most-recent-first.
	ListByKeyResult(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) ([]*types.Checkin, error)
	CountByKeyResult(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) (int64, error)
}

type checkinRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCheckinRepo(db *gorm.DB, baseLog *logger.Logger) CheckinRepo {
	repoLog := baseLog.With("repo", "CheckinRepo")
	return &checkinRepo{db: db, log: repoLog}
}

func (r *checkinRepo) Create(ctx context.Context, tx *gorm.DB, checkin *types.Checkin) (*types.Checkin, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(checkin).Error; err != nil {
		return nil, err
	}
	return checkin, nil
}

func (r *checkinRepo) ListByKeyResult(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) ([]*types.Checkin, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Checkin
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND key_result_id = ?", tenantID, krID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *checkinRepo) CountByKeyResult(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Checkin{}).
		Where("tenant_id = ? AND key_result_id = ?", tenantID, krID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
