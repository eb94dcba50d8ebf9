package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/types"
)

type AlignmentRepo interface {
	// EdgesForTenant loads the tenant's full edge set for in-memory traversal.
	EdgesForTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.AlignmentEdge, error)
	AddEdge(ctx context.Context, tx *gorm.DB, edge *types.AlignmentEdge) error
	RemoveEdge(ctx context.Context, tx *gorm.DB, tenantID, parentID, childID uuid.UUID) error
	// ListAlignedTo returns the objectives the given one contributes to.
	ListAlignedTo(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) ([]*types.Objective, error)
	// ListAlignedFrom returns the objectives contributing to the given one.
	ListAlignedFrom(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) ([]*types.Objective, error)
}

type alignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAlignmentRepo(db *gorm.DB, baseLog *logger.Logger) AlignmentRepo {
	repoLog := baseLog.With("repo", "AlignmentRepo")
	return &alignmentRepo{db: db, log: repoLog}
}

func (r *alignmentRepo) EdgesForTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.AlignmentEdge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.AlignmentEdge
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *alignmentRepo) AddEdge(ctx context.Context, tx *gorm.DB, edge *types.AlignmentEdge) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	// Re-adding an existing pair is a no-op.
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"},
				{Name: "parent_objective_id"},
				{Name: "child_objective_id"},
			},
			DoNothing: true,
		}).
		Create(edge).Error
}

func (r *alignmentRepo) RemoveEdge(ctx context.Context, tx *gorm.DB, tenantID, parentID, childID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Unscoped().
		Where("tenant_id = ? AND parent_objective_id = ? AND child_objective_id = ?", tenantID, parentID, childID).
		Delete(&types.AlignmentEdge{}).Error
}

func (r *alignmentRepo) ListAlignedTo(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) ([]*types.Objective, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Objective
	if err := transaction.WithContext(ctx).
		Joins(`INNER JOIN "objective_alignment" a ON a.parent_objective_id = "objective".id`).
		Where("a.tenant_id = ? AND a.child_objective_id = ?", tenantID, objectiveID).
		Order(`"objective".from_date DESC`).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *alignmentRepo) ListAlignedFrom(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) ([]*types.Objective, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Objective
	if err := transaction.WithContext(ctx).
		Joins(`INNER JOIN "objective_alignment" a ON a.child_objective_id = "objective".id`).
		Where("a.tenant_id = ? AND a.parent_objective_id = ?", tenantID, objectiveID).
		Order(`"objective".from_date DESC`).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
