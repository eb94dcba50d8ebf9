package services

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okrboard/okrboard-backend/internal/apierr"
	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/progress"
	"github.com/okrboard/okrboard-backend/internal/repos"
	"github.com/okrboard/okrboard-backend/internal/types"
)

type CreateKeyResultInput struct {
	Title       string
	MetricName  *string
	TargetValue *float64
	Unit        *string
	// AllowIssues lets the caller create the key result even when the
	// draft review found high-severity issues.
	AllowIssues bool
}

type DeleteKeyResultInfo struct {
	KeyResultID  uuid.UUID `json:"key_result_id"`
	CheckinCount int64     `json:"checkin_count"`
}

type KeyResultService interface {
	Create(ctx context.Context, tenantID, objectiveID uuid.UUID, input CreateKeyResultInput) (*types.KeyResult, ValidationResult, error)
	List(ctx context.Context, tenantID, objectiveID uuid.UUID) ([]KeyResultView, error)
	Get(ctx context.Context, tenantID, krID uuid.UUID) (*KeyResultView, error)
	DeleteInfo(ctx context.Context, tenantID, krID uuid.UUID) (*DeleteKeyResultInfo, error)
	Delete(ctx context.Context, tenantID, krID uuid.UUID) error
}

type keyResultService struct {
	db         *gorm.DB
	objectives repos.ObjectiveRepo
	keyResults repos.KeyResultRepo
	checkins   repos.CheckinRepo
	insights   repos.InsightRepo
	validation OkrValidationService
	cascade    InsightCascade
	log        *logger.Logger
}

func NewKeyResultService(
	db *gorm.DB,
	log *logger.Logger,
	objectives repos.ObjectiveRepo,
	keyResults repos.KeyResultRepo,
	checkins repos.CheckinRepo,
	insights repos.InsightRepo,
	validation OkrValidationService,
	cascade InsightCascade,
) KeyResultService {
	serviceLog := log.With("service", "KeyResultService")
	return &keyResultService{
		db:         db,
		objectives: objectives,
		keyResults: keyResults,
		checkins:   checkins,
		insights:   insights,
		validation: validation,
		cascade:    cascade,
		log:        serviceLog,
	}
}

func (s *keyResultService) Create(ctx context.Context, tenantID, objectiveID uuid.UUID, input CreateKeyResultInput) (*types.KeyResult, ValidationResult, error) {
	if input.Title == "" {
		return nil, ValidationResult{}, apierr.Validation("kr_title_required")
	}
	exists, err := s.objectives.Exists(ctx, nil, tenantID, objectiveID)
	if err != nil {
		return nil, ValidationResult{}, err
	}
	if !exists {
		return nil, ValidationResult{}, apierr.NotFound("objective_not_found")
	}

	review, err := s.validation.ValidateKeyResult(ctx, KeyResultDraft{
		Title:       input.Title,
		MetricName:  input.MetricName,
		TargetValue: input.TargetValue,
		Unit:        input.Unit,
	})
	if err != nil {
		return nil, ValidationResult{}, err
	}
	if !review.OK && !input.AllowIssues {
		return nil, review, apierr.New(http.StatusUnprocessableEntity, "kr_validation_failed", nil)
	}

	var created *types.KeyResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kr, err := s.keyResults.Create(ctx, tx, &types.KeyResult{
			TenantID:    tenantID,
			ObjectiveID: objectiveID,
			Title:       input.Title,
			MetricName:  input.MetricName,
			TargetValue: input.TargetValue,
			Unit:        input.Unit,
			Status:      types.KeyResultStatusPlanned,
		})
		if err != nil {
			return err
		}
		if err := s.cascade.OnKeyResultChanged(ctx, tx, tenantID, kr.ID); err != nil {
			return err
		}
		created = kr
		return nil
	})
	if err != nil {
		return nil, review, err
	}
	s.log.Info("key result created", "tenant_id", tenantID.String())
	return created, review, nil
}

func (s *keyResultService) List(ctx context.Context, tenantID, objectiveID uuid.UUID) ([]KeyResultView, error) {
	exists, err := s.objectives.Exists(ctx, nil, tenantID, objectiveID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apierr.NotFound("objective_not_found")
	}
	krs, err := s.keyResults.ListByObjective(ctx, nil, tenantID, objectiveID)
	if err != nil {
		return nil, err
	}
	krIDs := make([]uuid.UUID, 0, len(krs))
	for _, kr := range krs {
		krIDs = append(krIDs, kr.ID)
	}
	insights, err := s.insights.ListKrInsightsByKeyResults(ctx, nil, tenantID, krIDs)
	if err != nil {
		return nil, err
	}
	insightByKr := make(map[uuid.UUID]*types.KrInsight, len(insights))
	for _, insight := range insights {
		insightByKr[insight.KeyResultID] = insight
	}

	views := make([]KeyResultView, 0, len(krs))
	for _, kr := range krs {
		views = append(views, KeyResultView{
			KeyResult:   kr,
			ProgressPct: progress.Pct(kr.CurrentValue, kr.TargetValue),
			Health:      progress.Classify(kr.CurrentValue, kr.TargetValue),
			Insight:     insightByKr[kr.ID],
		})
	}
	return views, nil
}

func (s *keyResultService) Get(ctx context.Context, tenantID, krID uuid.UUID) (*KeyResultView, error) {
	kr, err := s.keyResults.GetByID(ctx, nil, tenantID, krID)
	if err != nil {
		return nil, err
	}
	if kr == nil {
		return nil, apierr.NotFound("kr_not_found")
	}
	insight, err := s.insights.GetKrInsight(ctx, nil, tenantID, krID)
	if err != nil {
		return nil, err
	}
	return &KeyResultView{
		KeyResult:   kr,
		ProgressPct: progress.Pct(kr.CurrentValue, kr.TargetValue),
		Health:      progress.Classify(kr.CurrentValue, kr.TargetValue),
		Insight:     insight,
	}, nil
}

func (s *keyResultService) DeleteInfo(ctx context.Context, tenantID, krID uuid.UUID) (*DeleteKeyResultInfo, error) {
	kr, err := s.keyResults.GetByID(ctx, nil, tenantID, krID)
	if err != nil {
		return nil, err
	}
	if kr == nil {
		return nil, apierr.NotFound("kr_not_found")
	}
	count, err := s.checkins.CountByKeyResult(ctx, nil, tenantID, krID)
	if err != nil {
		return nil, err
	}
	return &DeleteKeyResultInfo{KeyResultID: krID, CheckinCount: count}, nil
}

func (s *keyResultService) Delete(ctx context.Context, tenantID, krID uuid.UUID) error {
	kr, err := s.keyResults.GetByID(ctx, nil, tenantID, krID)
	if err != nil {
		return err
	}
	if kr == nil {
		return apierr.NotFound("kr_not_found")
	}
	// The parent rollup must be recomputed after the KR and its check-ins
	// are gone, inside the same transaction.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.keyResults.FullDeleteByID(ctx, tx, tenantID, krID); err != nil {
			return err
		}
		return s.cascade.OnObjectiveChanged(ctx, tx, tenantID, kr.ObjectiveID)
	})
}
