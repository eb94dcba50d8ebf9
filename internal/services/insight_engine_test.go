package services

import (
	"context"
	"testing"

	"github.com/okrboard/okrboard-backend/internal/types"
)

func TestRuleKrInsight(t *testing.T) {
	tests := []struct {
		name          string
		target        *float64
		current       *float64
		checkins      int
		wantShort     string
		wantRisk      types.Risk
	}{
		{"no target", nil, nil, 0, "no target defined", types.RiskHigh},
		{"zero target", fptr(0), fptr(10), 1, "no target defined", types.RiskHigh},
		{"no checkins", fptr(100), nil, 0, "no check-ins recorded", types.RiskHigh},
		{"off track", fptr(100), fptr(20), 1, "off track", types.RiskHigh},
		{"at risk low edge", fptr(100), fptr(40), 1, "at risk", types.RiskMedium},
		{"at risk high edge", fptr(100), fptr(69.9), 2, "at risk", types.RiskMedium},
		{"on track", fptr(100), fptr(70), 2, "on track", types.RiskLow},
		{"complete", fptr(100), fptr(120), 3, "on track", types.RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RuleKrInsight(tt.target, tt.current, tt.checkins)
			if out.ExplanationShort != tt.wantShort {
				t.Fatalf("short = %q, want %q", out.ExplanationShort, tt.wantShort)
			}
			if out.Risk != tt.wantRisk {
				t.Fatalf("risk = %s, want %s", out.Risk, tt.wantRisk)
			}
			if out.Suggestion == "" {
				t.Fatal("suggestion is empty")
			}
		})
	}
}

func TestRuleObjectiveInsight(t *testing.T) {
	tests := []struct {
		name      string
		risks     []types.Risk
		wantShort string
	}{
		{"no krs", nil, "no key results yet"},
		{"one critical", []types.Risk{types.RiskLow, types.RiskHigh}, "at risk due to critical KRs"},
		{"mostly medium", []types.Risk{types.RiskMedium, types.RiskMedium, types.RiskLow}, "at risk"},
		{"half medium", []types.Risk{types.RiskMedium, types.RiskLow}, "on track"},
		{"all low", []types.Risk{types.RiskLow, types.RiskLow}, "on track"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RuleObjectiveInsight(tt.risks)
			if out.ExplanationShort != tt.wantShort {
				t.Fatalf("short = %q, want %q", out.ExplanationShort, tt.wantShort)
			}
		})
	}
}

func TestComputeKrUsesProviderWhenWellFormed(t *testing.T) {
	provider := &fakeInsightProvider{
		enabled: true,
		result: ProviderResult{
			Status: ProviderOK,
			Insight: InsightOutput{
				ExplanationShort: "pace is slipping",
				ExplanationLong:  "The last three check-ins trend down.",
				Suggestion:       "Re-plan the remaining weeks",
				Risk:             types.RiskMedium,
			},
		},
	}
	engine := NewInsightEngine(testLogger(t), provider)

	out, source, version := engine.ComputeKr(context.Background(), KrSignals{TargetValue: fptr(100), CurrentValue: fptr(50)})
	if source != types.InsightSourceGenerated || version != types.InsightVersionGenerated {
		t.Fatalf("source/version = %s/%d, want generated/%d", source, version, types.InsightVersionGenerated)
	}
	if out.ExplanationShort != "pace is slipping" {
		t.Fatalf("short = %q, want provider output", out.ExplanationShort)
	}
}

func TestComputeKrFallsBackWhenProviderFails(t *testing.T) {
	for _, status := range []ProviderStatus{ProviderUnavailable, ProviderMalformed} {
		provider := &fakeInsightProvider{enabled: true, result: ProviderResult{Status: status}}
		engine := NewInsightEngine(testLogger(t), provider)

		out, source, version := engine.ComputeKr(context.Background(), KrSignals{TargetValue: fptr(100), CurrentValue: fptr(50), CheckinsCount: 1})
		if source != types.InsightSourceRules || version != types.InsightVersionRules {
			t.Fatalf("source/version = %s/%d, want rules fallback", source, version)
		}
		if out.ExplanationShort != "at risk" {
			t.Fatalf("short = %q, want rule output", out.ExplanationShort)
		}
	}
}

func TestComputeObjectiveSkipsDisabledProvider(t *testing.T) {
	provider := &fakeInsightProvider{enabled: false, result: ProviderResult{Status: ProviderOK}}
	engine := NewInsightEngine(testLogger(t), provider)

	risk := types.RiskHigh
	_, source, _ := engine.ComputeObjective(context.Background(), ObjectiveSignals{
		Krs: []ObjectiveKrSignal{{Risk: &risk}},
	})
	if source != types.InsightSourceRules {
		t.Fatalf("source = %s, want rules when provider disabled", source)
	}
}
