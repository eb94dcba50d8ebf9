package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okrboard/okrboard-backend/internal/apierr"
	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/progress"
	"github.com/okrboard/okrboard-backend/internal/repos"
	"github.com/okrboard/okrboard-backend/internal/types"
)

type CreateCheckinInput struct {
	Value   float64
	Comment *string
}

type CheckinService interface {
	// Create appends a check-in, moves the key result's current value and
	// recomputes the dependent insights before returning.
	Create(ctx context.Context, tenantID, krID, userObjectID uuid.UUID, input CreateCheckinInput) (*types.Checkin, error)
	List(ctx context.Context, tenantID, krID uuid.UUID) ([]*types.Checkin, error)
}

type checkinService struct {
	db         *gorm.DB
	keyResults repos.KeyResultRepo
	checkins   repos.CheckinRepo
	cascade    InsightCascade
	log        *logger.Logger
}

func NewCheckinService(
	db *gorm.DB,
	log *logger.Logger,
	keyResults repos.KeyResultRepo,
	checkins repos.CheckinRepo,
	cascade InsightCascade,
) CheckinService {
	serviceLog := log.With("service", "CheckinService")
	return &checkinService{
		db:         db,
		keyResults: keyResults,
		checkins:   checkins,
		cascade:    cascade,
		log:        serviceLog,
	}
}

func (s *checkinService) Create(ctx context.Context, tenantID, krID, userObjectID uuid.UUID, input CreateCheckinInput) (*types.Checkin, error) {
	kr, err := s.keyResults.GetByID(ctx, nil, tenantID, krID)
	if err != nil {
		return nil, err
	}
	if kr == nil {
		return nil, apierr.NotFound("kr_not_found")
	}
	if pct := progress.Pct(kr.CurrentValue, kr.TargetValue); pct != nil && *pct >= 100 {
		return nil, apierr.Conflict("kr_already_completed")
	}

	var created *types.Checkin
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		checkin, err := s.checkins.Create(ctx, tx, &types.Checkin{
			TenantID:        tenantID,
			KeyResultID:     krID,
			Value:           input.Value,
			Comment:         input.Comment,
			CreatedByUserID: &userObjectID,
		})
		if err != nil {
			return err
		}
		if err := s.keyResults.UpdateCurrentValue(ctx, tx, tenantID, krID, input.Value); err != nil {
			return err
		}
		if err := s.cascade.OnKeyResultChanged(ctx, tx, tenantID, krID); err != nil {
			return err
		}
		created = checkin
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("check-in recorded", "tenant_id", tenantID.String())
	return created, nil
}

func (s *checkinService) List(ctx context.Context, tenantID, krID uuid.UUID) ([]*types.Checkin, error) {
	kr, err := s.keyResults.GetByID(ctx, nil, tenantID, krID)
	if err != nil {
		return nil, err
	}
	if kr == nil {
		return nil, apierr.NotFound("kr_not_found")
	}
	return s.checkins.ListByKeyResult(ctx, nil, tenantID, krID)
}
