package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/types"
)

type InsightRepo interface {
	UpsertKrInsight(ctx context.Context, tx *gorm.DB, insight *types.KrInsight) (*types.KrInsight, error)
	UpsertObjectiveInsight(ctx context.Context, tx *gorm.DB, insight *types.ObjectiveInsight) (*types.ObjectiveInsight, error)
	GetKrInsight(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) (*types.KrInsight, error)
	GetObjectiveInsight(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (*types.ObjectiveInsight, error)
	ListKrInsightsByKeyResults(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, krIDs []uuid.UUID) ([]*types.KrInsight, error)
}

type insightRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInsightRepo(db *gorm.DB, baseLog *logger.Logger) InsightRepo {
	repoLog := baseLog.With("repo", "InsightRepo")
	return &insightRepo{db: db, log: repoLog}
}

// Upserts are keyed by entity: exactly one current insight per key result or
// objective, always overwritten in place.
func (r *insightRepo) UpsertKrInsight(ctx context.Context, tx *gorm.DB, insight *types.KrInsight) (*types.KrInsight, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	insight.ComputedAt = time.Now().UTC()
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"},
				{Name: "key_result_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"risk", "explanation_short", "explanation_long", "suggestion",
				"source", "version", "computed_at",
			}),
		}).
		Create(insight).Error
	if err != nil {
		return nil, err
	}
	return insight, nil
}

func (r *insightRepo) UpsertObjectiveInsight(ctx context.Context, tx *gorm.DB, insight *types.ObjectiveInsight) (*types.ObjectiveInsight, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	insight.ComputedAt = time.Now().UTC()
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"},
				{Name: "objective_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"explanation_short", "explanation_long", "suggestion",
				"source", "version", "computed_at",
			}),
		}).
		Create(insight).Error
	if err != nil {
		return nil, err
	}
	return insight, nil
}

func (r *insightRepo) GetKrInsight(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) (*types.KrInsight, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.KrInsight
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND key_result_id = ?", tenantID, krID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *insightRepo) GetObjectiveInsight(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) (*types.ObjectiveInsight, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.ObjectiveInsight
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND objective_id = ?", tenantID, objectiveID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *insightRepo) ListKrInsightsByKeyResults(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, krIDs []uuid.UUID) ([]*types.KrInsight, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.KrInsight
	if len(krIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND key_result_id IN ?", tenantID, krIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
