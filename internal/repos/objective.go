package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/types"
)

type ObjectiveRepo interface {
	Create(ctx context.Context, tx *gorm.DB, objective *types.Objective) (*types.Objective, error)
	GetByID(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (*types.Objective, error)
	ListByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.Objective, error)
	Exists(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID, status string) error
	FullDeleteByID(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) error
}

type objectiveRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewObjectiveRepo(db *gorm.DB, baseLog *logger.Logger) ObjectiveRepo {
	repoLog := baseLog.With("repo", "ObjectiveRepo")
	return &objectiveRepo{db: db, log: repoLog}
}

func (r *objectiveRepo) Create(ctx context.Context, tx *gorm.DB, objective *types.Objective) (*types.Objective, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(objective).Error; err != nil {
		return nil, err
	}
	return objective, nil
}

func (r *objectiveRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (*types.Objective, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Objective
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, objectiveID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *objectiveRepo) ListByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.Objective, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Objective
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("from_date DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *objectiveRepo) Exists(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Objective{}).
		Where("tenant_id = ? AND id = ?", tenantID, objectiveID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *objectiveRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Objective{}).
		Where("tenant_id = ? AND id = ?", tenantID, objectiveID).
		Update("status", status).Error
}

func (r *objectiveRepo) FullDeleteByID(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Unscoped().
		Where("tenant_id = ? AND id = ?", tenantID, objectiveID).
		Delete(&types.Objective{}).Error
}
