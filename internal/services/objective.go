package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okrboard/okrboard-backend/internal/apierr"
	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/progress"
	"github.com/okrboard/okrboard-backend/internal/repos"
	"github.com/okrboard/okrboard-backend/internal/types"
)

type CreateObjectiveInput struct {
	Objective string
	FromDate  time.Time
	ToDate    time.Time
	Status    string
}

// KeyResultView is a key result decorated with its derived progress state.
type KeyResultView struct {
	KeyResult   *types.KeyResult  `json:"key_result"`
	ProgressPct *float64          `json:"progress_pct"`
	Health      progress.Health   `json:"health"`
	Insight     *types.KrInsight  `json:"insight"`
}

type ObjectiveSummary struct {
	Objective   *types.Objective        `json:"objective"`
	KrCount     int                     `json:"kr_count"`
	ProgressPct *float64                `json:"progress_pct"`
	Health      progress.Health         `json:"health"`
	Insight     *types.ObjectiveInsight `json:"insight"`
}

type ObjectiveDetail struct {
	Objective   *types.Objective        `json:"objective"`
	KeyResults  []KeyResultView         `json:"key_results"`
	ProgressPct *float64                `json:"progress_pct"`
	Health      progress.Health         `json:"health"`
	Insight     *types.ObjectiveInsight `json:"insight"`
}

// DeleteObjectiveInfo reports what a delete would remove.
type DeleteObjectiveInfo struct {
	ObjectiveID  uuid.UUID `json:"objective_id"`
	KrCount      int       `json:"kr_count"`
	CheckinCount int64     `json:"checkin_count"`
	MemberCount  int64     `json:"member_count"`
}

type ObjectiveService interface {
	Create(ctx context.Context, tenantID, userObjectID uuid.UUID, input CreateObjectiveInput) (*types.Objective, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]ObjectiveSummary, error)
	Get(ctx context.Context, tenantID, objectiveID uuid.UUID) (*ObjectiveDetail, error)
	UpdateStatus(ctx context.Context, tenantID, objectiveID uuid.UUID, status string) error
	DeleteInfo(ctx context.Context, tenantID, objectiveID uuid.UUID) (*DeleteObjectiveInfo, error)
	Delete(ctx context.Context, tenantID, objectiveID uuid.UUID) error
}

type objectiveService struct {
	db          *gorm.DB
	objectives  repos.ObjectiveRepo
	keyResults  repos.KeyResultRepo
	checkins    repos.CheckinRepo
	insights    repos.InsightRepo
	memberships repos.MembershipRepo
	cascade     InsightCascade
	log         *logger.Logger
}

func NewObjectiveService(
	db *gorm.DB,
	log *logger.Logger,
	objectives repos.ObjectiveRepo,
	keyResults repos.KeyResultRepo,
	checkins repos.CheckinRepo,
	insights repos.InsightRepo,
	memberships repos.MembershipRepo,
	cascade InsightCascade,
) ObjectiveService {
	serviceLog := log.With("service", "ObjectiveService")
	return &objectiveService{
		db:          db,
		objectives:  objectives,
		keyResults:  keyResults,
		checkins:    checkins,
		insights:    insights,
		memberships: memberships,
		cascade:     cascade,
		log:         serviceLog,
	}
}

func (s *objectiveService) Create(ctx context.Context, tenantID, userObjectID uuid.UUID, input CreateObjectiveInput) (*types.Objective, error) {
	if input.Objective == "" {
		return nil, apierr.Validation("objective_title_required")
	}
	status := input.Status
	if status == "" {
		status = types.ObjectiveStatusDraft
	}
	if !types.ValidObjectiveStatus(status) {
		return nil, apierr.Validation("invalid_status")
	}

	var created *types.Objective
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		objective, err := s.objectives.Create(ctx, tx, &types.Objective{
			TenantID:  tenantID,
			Objective: input.Objective,
			FromDate:  input.FromDate,
			ToDate:    input.ToDate,
			Status:    status,
		})
		if err != nil {
			return err
		}
		if _, err := s.memberships.Add(ctx, tx, &types.Membership{
			TenantID:     tenantID,
			ObjectiveID:  objective.ID,
			UserObjectID: userObjectID,
			Role:         types.RoleOwner,
		}); err != nil {
			return err
		}
		if err := s.cascade.EnsureInitialInsight(ctx, tx, tenantID, objective.ID); err != nil {
			return err
		}
		created = objective
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("objective created", "tenant_id", tenantID.String())
	return created, nil
}

func (s *objectiveService) List(ctx context.Context, tenantID uuid.UUID) ([]ObjectiveSummary, error) {
	objectives, err := s.objectives.ListByTenant(ctx, nil, tenantID)
	if err != nil {
		return nil, err
	}
	summaries := make([]ObjectiveSummary, 0, len(objectives))
	for _, objective := range objectives {
		krs, err := s.keyResults.ListByObjective(ctx, nil, tenantID, objective.ID)
		if err != nil {
			return nil, err
		}
		pct := averageProgress(krs)
		insight, err := s.insights.GetObjectiveInsight(ctx, nil, tenantID, objective.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, ObjectiveSummary{
			Objective:   objective,
			KrCount:     len(krs),
			ProgressPct: pct,
			Health:      healthFromPct(pct),
			Insight:     insight,
		})
	}
	return summaries, nil
}

func (s *objectiveService) Get(ctx context.Context, tenantID, objectiveID uuid.UUID) (*ObjectiveDetail, error) {
	objective, err := s.objectives.GetByID(ctx, nil, tenantID, objectiveID)
	if err != nil {
		return nil, err
	}
	if objective == nil {
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
	krInsights, err := s.insights.ListKrInsightsByKeyResults(ctx, nil, tenantID, krIDs)
	if err != nil {
		return nil, err
	}
	insightByKr := make(map[uuid.UUID]*types.KrInsight, len(krInsights))
	for _, insight := range krInsights {
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

	pct := averageProgress(krs)
	insight, err := s.insights.GetObjectiveInsight(ctx, nil, tenantID, objectiveID)
	if err != nil {
		return nil, err
	}
	return &ObjectiveDetail{
		Objective:   objective,
		KeyResults:  views,
		ProgressPct: pct,
		Health:      healthFromPct(pct),
		Insight:     insight,
	}, nil
}

func (s *objectiveService) UpdateStatus(ctx context.Context, tenantID, objectiveID uuid.UUID, status string) error {
	if !types.ValidObjectiveStatus(status) {
		return apierr.Validation("invalid_status")
	}
	exists, err := s.objectives.Exists(ctx, nil, tenantID, objectiveID)
	if err != nil {
		return err
	}
	if !exists {
		return apierr.NotFound("objective_not_found")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.objectives.UpdateStatus(ctx, tx, tenantID, objectiveID, status); err != nil {
			return err
		}
		return s.cascade.OnObjectiveChanged(ctx, tx, tenantID, objectiveID)
	})
}

func (s *objectiveService) DeleteInfo(ctx context.Context, tenantID, objectiveID uuid.UUID) (*DeleteObjectiveInfo, error) {
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
	var checkinTotal int64
	for _, kr := range krs {
		count, err := s.checkins.CountByKeyResult(ctx, nil, tenantID, kr.ID)
		if err != nil {
			return nil, err
		}
		checkinTotal += count
	}
	members, err := s.memberships.CountMembers(ctx, nil, tenantID, objectiveID)
	if err != nil {
		return nil, err
	}
	return &DeleteObjectiveInfo{
		ObjectiveID:  objectiveID,
		KrCount:      len(krs),
		CheckinCount: checkinTotal,
		MemberCount:  members,
	}, nil
}

func (s *objectiveService) Delete(ctx context.Context, tenantID, objectiveID uuid.UUID) error {
	exists, err := s.objectives.Exists(ctx, nil, tenantID, objectiveID)
	if err != nil {
		return err
	}
	if !exists {
		return apierr.NotFound("objective_not_found")
	}
	// Child rows go away via ON DELETE CASCADE inside the same transaction.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.objectives.FullDeleteByID(ctx, tx, tenantID, objectiveID)
	})
	if err != nil {
		return err
	}
	s.log.Info("objective deleted", "tenant_id", tenantID.String())
	return nil
}

func averageProgress(krs []*types.KeyResult) *float64 {
	var sum float64
	var counted int
	for _, kr := range krs {
		if pct := progress.Pct(kr.CurrentValue, kr.TargetValue); pct != nil {
			sum += *pct
			counted++
		}
	}
	if counted == 0 {
		return nil
	}
	avg := sum / float64(counted)
	return &avg
}

func healthFromPct(pct *float64) progress.Health {
	if pct == nil {
		return progress.HealthNoTarget
	}
	target := 100.0
	return progress.Classify(pct, &target)
}
