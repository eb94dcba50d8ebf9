package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/okrboard/okrboard-backend/internal/types"
)

type cascadeFixture struct {
	objectives *fakeObjectiveRepo
	keyResults *fakeKeyResultRepo
	checkins   *fakeCheckinRepo
	insights   *fakeInsightRepo
	cascade    InsightCascade
	tenantID   uuid.UUID
}

func newCascadeFixture(t *testing.T) *cascadeFixture {
	t.Helper()
	log := testLogger(t)
	objectives := newFakeObjectiveRepo()
	keyResults := newFakeKeyResultRepo()
	checkins := newFakeCheckinRepo()
	insights := newFakeInsightRepo()
	engine := NewInsightEngine(log, nil)
	return &cascadeFixture{
		objectives: objectives,
		keyResults: keyResults,
		checkins:   checkins,
		insights:   insights,
		cascade:    NewInsightCascade(log, objectives, keyResults, checkins, insights, engine),
		tenantID:   uuid.New(),
	}
}

func TestCascadeObjectiveLifecycle(t *testing.T) {
	f := newCascadeFixture(t)
	ctx := context.Background()

	objective, err := f.objectives.Create(ctx, nil, &types.Objective{
		TenantID:  f.tenantID,
		Objective: "Improve customer retention",
		Status:    types.ObjectiveStatusActive,
	})
	if err != nil {
		t.Fatalf("create objective: %v", err)
	}

	// Fresh objective, no key results.
	if err := f.cascade.OnObjectiveChanged(ctx, nil, f.tenantID, objective.ID); err != nil {
		t.Fatalf("OnObjectiveChanged: %v", err)
	}
	objectiveInsight := f.insights.objectiveInsights[objective.ID]
	if objectiveInsight == nil || objectiveInsight.ExplanationShort != "no key results yet" {
		t.Fatalf("objective insight = %+v, want 'no key results yet'", objectiveInsight)
	}

	// Add a KR with a target but no check-ins yet.
	kr, err := f.keyResults.Create(ctx, nil, &types.KeyResult{
		TenantID:    f.tenantID,
		ObjectiveID: objective.ID,
		Title:       "Raise NPS to 60",
		TargetValue: fptr(100),
	})
	if err != nil {
		t.Fatalf("create kr: %v", err)
	}
	if err := f.cascade.OnKeyResultChanged(ctx, nil, f.tenantID, kr.ID); err != nil {
		t.Fatalf("OnKeyResultChanged: %v", err)
	}

	krInsight := f.insights.krInsights[kr.ID]
	if krInsight == nil || krInsight.ExplanationShort != "no check-ins recorded" {
		t.Fatalf("kr insight = %+v, want 'no check-ins recorded'", krInsight)
	}
	if krInsight.Risk != types.RiskHigh {
		t.Fatalf("kr risk = %s, want high", krInsight.Risk)
	}
	if krInsight.Source != types.InsightSourceRules || krInsight.Version != types.InsightVersionRules {
		t.Fatalf("kr source/version = %s/%d, want rules", krInsight.Source, krInsight.Version)
	}

	// The parent rollup must reflect the critical KR.
	objectiveInsight = f.insights.objectiveInsights[objective.ID]
	if objectiveInsight.ExplanationShort != "at risk due to critical KRs" {
		t.Fatalf("objective short = %q, want 'at risk due to critical KRs'", objectiveInsight.ExplanationShort)
	}

	// A check-in at 80 of 100 moves everything to on track.
	if _, err := f.checkins.Create(ctx, nil, &types.Checkin{
		TenantID:    f.tenantID,
		KeyResultID: kr.ID,
		Value:       80,
	}); err != nil {
		t.Fatalf("create checkin: %v", err)
	}
	if err := f.keyResults.UpdateCurrentValue(ctx, nil, f.tenantID, kr.ID, 80); err != nil {
		t.Fatalf("update current value: %v", err)
	}
	if err := f.cascade.OnKeyResultChanged(ctx, nil, f.tenantID, kr.ID); err != nil {
		t.Fatalf("OnKeyResultChanged after checkin: %v", err)
	}

	krInsight = f.insights.krInsights[kr.ID]
	if krInsight.ExplanationShort != "on track" || krInsight.Risk != types.RiskLow {
		t.Fatalf("kr insight = %q/%s, want on track/low", krInsight.ExplanationShort, krInsight.Risk)
	}
	objectiveInsight = f.insights.objectiveInsights[objective.ID]
	if objectiveInsight.ExplanationShort != "on track" {
		t.Fatalf("objective short = %q, want 'on track'", objectiveInsight.ExplanationShort)
	}
}

func TestEnsureInitialInsightStaysRuleDerived(t *testing.T) {
	log := testLogger(t)
	objectives := newFakeObjectiveRepo()
	insights := newFakeInsightRepo()
	provider := &fakeInsightProvider{
		enabled: true,
		result: ProviderResult{
			Status: ProviderOK,
			Insight: InsightOutput{
				ExplanationShort: "model text",
				Risk:             types.RiskLow,
			},
		},
	}
	engine := NewInsightEngine(log, provider)
	cascade := NewInsightCascade(log, objectives, newFakeKeyResultRepo(), newFakeCheckinRepo(), insights, engine)

	ctx := context.Background()
	tenantID := uuid.New()
	objective, err := objectives.Create(ctx, nil, &types.Objective{
		TenantID:  tenantID,
		Objective: "Launch the partner program",
		Status:    types.ObjectiveStatusActive,
	})
	if err != nil {
		t.Fatalf("create objective: %v", err)
	}

	if err := cascade.EnsureInitialInsight(ctx, nil, tenantID, objective.ID); err != nil {
		t.Fatalf("EnsureInitialInsight: %v", err)
	}

	seeded := insights.objectiveInsights[objective.ID]
	if seeded == nil {
		t.Fatal("no objective insight seeded")
	}
	if seeded.Source != types.InsightSourceRules || seeded.Version != types.InsightVersionRules {
		t.Fatalf("seed source/version = %s/%d, want rules even with a live model", seeded.Source, seeded.Version)
	}
	if seeded.ExplanationShort != "no key results yet" {
		t.Fatalf("seed short = %q, want 'no key results yet'", seeded.ExplanationShort)
	}

	err = cascade.EnsureInitialInsight(ctx, nil, tenantID, uuid.New())
	assertAPIError(t, err, "objective_not_found")
}

func TestCascadeIsIdempotent(t *testing.T) {
	f := newCascadeFixture(t)
	ctx := context.Background()

	objective, _ := f.objectives.Create(ctx, nil, &types.Objective{
		TenantID:  f.tenantID,
		Objective: "Ship the new onboarding",
		Status:    types.ObjectiveStatusActive,
	})
	kr, _ := f.keyResults.Create(ctx, nil, &types.KeyResult{
		TenantID:     f.tenantID,
		ObjectiveID:  objective.ID,
		Title:        "Activate 500 accounts",
		TargetValue:  fptr(500),
		CurrentValue: fptr(400),
	})
	f.checkins.Create(ctx, nil, &types.Checkin{TenantID: f.tenantID, KeyResultID: kr.ID, Value: 400})

	if err := f.cascade.OnKeyResultChanged(ctx, nil, f.tenantID, kr.ID); err != nil {
		t.Fatalf("first recompute: %v", err)
	}
	first := *f.insights.krInsights[kr.ID]
	if err := f.cascade.OnKeyResultChanged(ctx, nil, f.tenantID, kr.ID); err != nil {
		t.Fatalf("second recompute: %v", err)
	}
	second := *f.insights.krInsights[kr.ID]

	if first.ExplanationShort != second.ExplanationShort || first.Risk != second.Risk {
		t.Fatalf("recompute not stable: %q/%s vs %q/%s",
			first.ExplanationShort, first.Risk, second.ExplanationShort, second.Risk)
	}
}

func TestCascadeMissingEntities(t *testing.T) {
	f := newCascadeFixture(t)
	ctx := context.Background()

	err := f.cascade.OnKeyResultChanged(ctx, nil, f.tenantID, uuid.New())
	assertAPIError(t, err, "kr_not_found")

	err = f.cascade.OnObjectiveChanged(ctx, nil, f.tenantID, uuid.New())
	assertAPIError(t, err, "objective_not_found")
}
