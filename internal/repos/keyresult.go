package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/types"
)

type KeyResultRepo interface {
	Create(ctx context.Context, tx *gorm.DB, kr *types.KeyResult) (*types.KeyResult, error)
	GetByID(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) (*types.KeyResult, error)
	ListByObjective(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) ([]*types.KeyResult, error)
	UpdateCurrentValue(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID, value float64) error
	FullDeleteByID(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) error
}

type keyResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKeyResultRepo(db *gorm.DB, baseLog *logger.Logger) KeyResultRepo {
	repoLog := baseLog.With("repo", "KeyResultRepo")
	return &keyResultRepo{db: db, log: repoLog}
}

func (r *keyResultRepo) Create(ctx context.Context, tx *gorm.DB, kr *types.KeyResult) (*types.KeyResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(kr).Error; err != nil {
		return nil, err
	}
	return kr, nil
}

func (r *keyResultRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) (*types.KeyResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.KeyResult
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, krID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *keyResultRepo) ListByObjective(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) ([]*types.KeyResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.KeyResult
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND objective_id = ?", tenantID, objectiveID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *keyResultRepo) UpdateCurrentValue(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID, value float64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.KeyResult{}).
		Where("tenant_id = ? AND id = ?", tenantID, krID).
		Update("current_value", value).Error
}

func (r *keyResultRepo) FullDeleteByID(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Unscoped().
		Where("tenant_id = ? AND id = ?", tenantID, krID).
		Delete(&types.KeyResult{}).Error
}
