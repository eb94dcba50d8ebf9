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

// InsightCascade keeps persisted insights convergent with the entities they
// describe. Every mutation path calls exactly one of these hooks before
// reporting success, so a completed write implies the dependent insights
// reflect the new state.
type InsightCascade interface {
	// OnKeyResultChanged recomputes the KR insight, then the parent
	// objective insight, in that order.
	OnKeyResultChanged(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) error
	// OnObjectiveChanged recomputes only the objective-level insight,
	// reusing whatever KR insights are already persisted.
	OnObjectiveChanged(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) error
	// EnsureInitialInsight seeds the objective insight at creation time.
	// The seed is always rule-derived so a brand-new objective never waits
	// on, or pays for, a generation round trip.
	EnsureInitialInsight(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) error
}

type insightCascade struct {
	objectives repos.ObjectiveRepo
	keyResults repos.KeyResultRepo
	checkins   repos.CheckinRepo
	insights   repos.InsightRepo
	engine     InsightEngine
	log        *logger.Logger
}

func NewInsightCascade(
	log *logger.Logger,
	objectives repos.ObjectiveRepo,
	keyResults repos.KeyResultRepo,
	checkins repos.CheckinRepo,
	insights repos.InsightRepo,
	engine InsightEngine,
) InsightCascade {
	cascadeLog := log.With("service", "InsightCascade")
	return &insightCascade{
		objectives: objectives,
		keyResults: keyResults,
		checkins:   checkins,
		insights:   insights,
		engine:     engine,
		log:        cascadeLog,
	}
}

func (c *insightCascade) OnKeyResultChanged(ctx context.Context, tx *gorm.DB, tenantID, krID uuid.UUID) error {
	kr, err := c.keyResults.GetByID(ctx, tx, tenantID, krID)
	if err != nil {
		return err
	}
	if kr == nil {
		return apierr.NotFound("kr_not_found")
	}

	signals, err := c.krSignals(ctx, tx, kr)
	if err != nil {
		return err
	}
	out, source, version := c.engine.ComputeKr(ctx, signals)
	if _, err := c.insights.UpsertKrInsight(ctx, tx, &types.KrInsight{
		TenantID:         tenantID,
		KeyResultID:      kr.ID,
		Risk:             out.Risk,
		ExplanationShort: out.ExplanationShort,
		ExplanationLong:  out.ExplanationLong,
		Suggestion:       out.Suggestion,
		Source:           source,
		Version:          version,
		ComputedAt:       time.Now().UTC(),
	}); err != nil {
		return err
	}

	return c.OnObjectiveChanged(ctx, tx, tenantID, kr.ObjectiveID)
}

func (c *insightCascade) OnObjectiveChanged(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) error {
	objective, err := c.objectives.GetByID(ctx, tx, tenantID, objectiveID)
	if err != nil {
		return err
	}
	if objective == nil {
		return apierr.NotFound("objective_not_found")
	}

	signals, err := c.objectiveSignals(ctx, tx, objective)
	if err != nil {
		return err
	}
	out, source, version := c.engine.ComputeObjective(ctx, signals)
	if _, err := c.insights.UpsertObjectiveInsight(ctx, tx, &types.ObjectiveInsight{
		TenantID:         tenantID,
		ObjectiveID:      objective.ID,
		ExplanationShort: out.ExplanationShort,
		ExplanationLong:  out.ExplanationLong,
		Suggestion:       out.Suggestion,
		Source:           source,
		Version:          version,
		ComputedAt:       time.Now().UTC(),
	}); err != nil {
		return err
	}
	return nil
}

func (c *insightCascade) EnsureInitialInsight(ctx context.Context, tx *gorm.DB, tenantID, objectiveID uuid.UUID) error {
	objective, err := c.objectives.GetByID(ctx, tx, tenantID, objectiveID)
	if err != nil {
		return err
	}
	if objective == nil {
		return apierr.NotFound("objective_not_found")
	}

	out := RuleObjectiveInsight(nil)
	if _, err := c.insights.UpsertObjectiveInsight(ctx, tx, &types.ObjectiveInsight{
		TenantID:         tenantID,
		ObjectiveID:      objective.ID,
		ExplanationShort: out.ExplanationShort,
		ExplanationLong:  out.ExplanationLong,
		Suggestion:       out.Suggestion,
		Source:           types.InsightSourceRules,
		Version:          types.InsightVersionRules,
		ComputedAt:       time.Now().UTC(),
	}); err != nil {
		return err
	}
	return nil
}

func (c *insightCascade) krSignals(ctx context.Context, tx *gorm.DB, kr *types.KeyResult) (KrSignals, error) {
	count, err := c.checkins.CountByKeyResult(ctx, tx, kr.TenantID, kr.ID)
	if err != nil {
		return KrSignals{}, err
	}
	var last *float64
	if count > 0 {
		history, err := c.checkins.ListByKeyResult(ctx, tx, kr.TenantID, kr.ID)
		if err != nil {
			return KrSignals{}, err
		}
		if len(history) > 0 {
			last = &history[0].Value
		}
	}
	return KrSignals{
		Title:            kr.Title,
		MetricName:       kr.MetricName,
		TargetValue:      kr.TargetValue,
		CurrentValue:     kr.CurrentValue,
		ProgressPct:      progress.Pct(kr.CurrentValue, kr.TargetValue),
		Health:           progress.Classify(kr.CurrentValue, kr.TargetValue),
		CheckinsCount:    int(count),
		LastCheckinValue: last,
	}, nil
}

func (c *insightCascade) objectiveSignals(ctx context.Context, tx *gorm.DB, objective *types.Objective) (ObjectiveSignals, error) {
	krs, err := c.keyResults.ListByObjective(ctx, tx, objective.TenantID, objective.ID)
	if err != nil {
		return ObjectiveSignals{}, err
	}

	krIDs := make([]uuid.UUID, 0, len(krs))
	for _, kr := range krs {
		krIDs = append(krIDs, kr.ID)
	}
	persisted, err := c.insights.ListKrInsightsByKeyResults(ctx, tx, objective.TenantID, krIDs)
	if err != nil {
		return ObjectiveSignals{}, err
	}
	byKr := make(map[uuid.UUID]*types.KrInsight, len(persisted))
	for _, insight := range persisted {
		byKr[insight.KeyResultID] = insight
	}

	signals := ObjectiveSignals{
		Objective: objective.Objective,
		FromDate:  objective.FromDate,
		ToDate:    objective.ToDate,
		Status:    objective.Status,
		Krs:       make([]ObjectiveKrSignal, 0, len(krs)),
	}
	for _, kr := range krs {
		entry := ObjectiveKrSignal{
			ID:          kr.ID,
			Title:       kr.Title,
			ProgressPct: progress.Pct(kr.CurrentValue, kr.TargetValue),
			Health:      progress.Classify(kr.CurrentValue, kr.TargetValue),
		}
		if insight, ok := byKr[kr.ID]; ok {
			short := insight.ExplanationShort
			risk := insight.Risk
			entry.InsightShort = &short
			entry.Risk = &risk
		} else {
			// KR without a persisted insight still counts toward the
			// rollup: derive a transient risk from its raw values.
			rule := RuleKrInsight(kr.TargetValue, kr.CurrentValue, checkinsFromCurrent(kr.CurrentValue))
			risk := rule.Risk
			entry.Risk = &risk
		}
		signals.Krs = append(signals.Krs, entry)
	}
	return signals, nil
}

func checkinsFromCurrent(current *float64) int {
	if current != nil {
		return 1
	}
	return 0
}
