package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/types"
)

type MembershipRepo interface {
	Get(ctx context.Context, tx *gorm.DB, tenantID, objectiveID, userObjectID uuid.UUID) (*types.Membership, error)
	List(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) ([]*types.Membership, error)
	// Add inserts the membership; returns false when the (tenant, objective,
	// user) pair already exists.
	Add(ctx context.Context, tx *gorm.DB, membership *types.Membership) (bool, error)
	UpdateRole(ctx context.Context, tx *gorm.DB, tenantID, objectiveID, userObjectID uuid.UUID, role types.Role) error
	Remove(ctx context.Context, tx *gorm.DB, tenantID, objectiveID, userObjectID uuid.UUID) error
	CountOwners(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (int64, error)
	CountMembers(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (int64, error)
}

type membershipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMembershipRepo(db *gorm.DB, baseLog *logger.Logger) MembershipRepo {
	repoLog := baseLog.With("repo", "MembershipRepo")
	return &membershipRepo{db: db, log: repoLog}
}

func (r *membershipRepo) Get(ctx context.Context, tx *gorm.DB, tenantID, objectiveID, userObjectID uuid.UUID) (*types.Membership, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Membership
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND objective_id = ? AND user_object_id = ?", tenantID, objectiveID, userObjectID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *membershipRepo) List(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) ([]*types.Membership, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Membership
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND objective_id = ?", tenantID, objectiveID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *membershipRepo) Add(ctx context.Context, tx *gorm.DB, membership *types.Membership) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"},
				{Name: "objective_id"},
				{Name: "user_object_id"},
			},
			DoNothing: true,
		}).
		Create(membership)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *membershipRepo) UpdateRole(ctx context.Context, tx *gorm.DB, tenantID, objectiveID, userObjectID uuid.UUID, role types.Role) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Membership{}).
		Where("tenant_id = ? AND objective_id = ? AND user_object_id = ?", tenantID, objectiveID, userObjectID).
		Update("role", role).Error
}

func (r *membershipRepo) Remove(ctx context.Context, tx *gorm.DB, tenantID, objectiveID, userObjectID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Unscoped().
		Where("tenant_id = ? AND objective_id = ? AND user_object_id = ?", tenantID, objectiveID, userObjectID).
		Delete(&types.Membership{}).Error
}

func (r *membershipRepo) CountOwners(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Membership{}).
		Where("tenant_id = ? AND objective_id = ? AND role = ?", tenantID, objectiveID, types.RoleOwner).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *membershipRepo) CountMembers(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Membership{}).
		Where("tenant_id = ? AND objective_id = ?", tenantID, objectiveID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
