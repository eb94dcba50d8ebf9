package services

import (
	"context"
	"errors"
	"testing"
)

type fakeAIClient struct {
	enabled  bool
	response string
	err      error
}

func (f *fakeAIClient) Enabled() bool { return f.enabled }

func (f *fakeAIClient) GenerateJSON(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return f.response, f.err
}

func (f *fakeAIClient) Ping(ctx context.Context) error { return nil }

func TestRuleKeyResultIssues(t *testing.T) {
	tests := []struct {
		name      string
		draft     KeyResultDraft
		wantCodes []string
	}{
		{
			"empty draft",
			KeyResultDraft{},
			[]string{"title_missing", "target_missing"},
		},
		{
			"target without metric",
			KeyResultDraft{Title: "Activate 500 accounts", TargetValue: fptr(500)},
			[]string{"metric_missing"},
		},
		{
			"negative target",
			KeyResultDraft{Title: "Reduce churn", TargetValue: fptr(-5)},
			[]string{"target_missing", "metric_missing"},
		},
		{
			"well formed",
			KeyResultDraft{Title: "Activate 500 accounts", TargetValue: fptr(500), MetricName: strptr("activated accounts")},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := RuleKeyResultIssues(tt.draft)
			if len(issues) != len(tt.wantCodes) {
				t.Fatalf("issues = %+v, want codes %v", issues, tt.wantCodes)
			}
			for i, code := range tt.wantCodes {
				if issues[i].Code != code {
					t.Fatalf("issue[%d].Code = %q, want %q", i, issues[i].Code, code)
				}
			}
		})
	}
}

func TestRuleObjectiveIssues(t *testing.T) {
	issues := RuleObjectiveIssues(ObjectiveDraft{})
	if len(issues) != 2 {
		t.Fatalf("empty draft issues = %+v, want title and period findings", issues)
	}

	issues = RuleObjectiveIssues(ObjectiveDraft{
		Objective: "Become the category leader in LATAM",
		FromDate:  "2026-01-01",
		ToDate:    "2026-03-31",
	})
	if len(issues) != 0 {
		t.Fatalf("well-formed draft issues = %+v, want none", issues)
	}
}

func TestValidateKeyResultFallsBackWithoutAI(t *testing.T) {
	svc := NewOkrValidationService(testLogger(t), nil)

	result, err := svc.ValidateKeyResult(context.Background(), KeyResultDraft{})
	if err != nil {
		t.Fatalf("ValidateKeyResult failed: %v", err)
	}
	if result.OK {
		t.Fatal("empty draft passed validation")
	}
	if result.Source != "rules" {
		t.Fatalf("source = %q, want rules", result.Source)
	}
	if result.Fingerprint == "" {
		t.Fatal("fingerprint is empty")
	}
}

func TestValidateKeyResultAIRequired(t *testing.T) {
	t.Setenv("VALIDATION_AI_REQUIRED", "true")
	svc := NewOkrValidationService(testLogger(t), nil)

	_, err := svc.ValidateKeyResult(context.Background(), KeyResultDraft{Title: "x"})
	assertAPIError(t, err, "ai_unavailable")
}

func TestDraftOkrRequiresFields(t *testing.T) {
	svc := NewOkrValidationService(testLogger(t), nil)

	_, err := svc.DraftOkr(context.Background(), DraftOkrInput{Objective: "Grow revenue"})
	assertAPIError(t, err, "missing_fields")
}

func TestDraftOkrFallsBackWithoutAI(t *testing.T) {
	svc := NewOkrValidationService(testLogger(t), nil)

	result, err := svc.DraftOkr(context.Background(), DraftOkrInput{
		Objective: "Grow self-serve revenue",
		FromDate:  "2026-01-01",
		ToDate:    "2026-03-31",
	})
	if err != nil {
		t.Fatalf("DraftOkr failed: %v", err)
	}
	if result.Source != "rules" {
		t.Fatalf("source = %q, want rules", result.Source)
	}
	if len(result.SuggestedKrs) != 0 {
		t.Fatalf("suggestions = %+v, want none without a model", result.SuggestedKrs)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != "ai_unavailable" {
		t.Fatalf("warnings = %v, want [ai_unavailable]", result.Warnings)
	}
}

func TestDraftOkrFiltersGeneratedSuggestions(t *testing.T) {
	client := &fakeAIClient{enabled: true, response: `{
		"objectiveRefined": "Grow self-serve revenue to 2M ARR",
		"suggestedKrs": [
			{"title": "Reach 2M ARR from self-serve", "metricName": "ARR", "unit": "USD", "targetValue": 2000000},
			{"title": "", "targetValue": 100},
			{"title": "Lift trial conversion to 12%", "metricName": "conversion", "unit": "%", "targetValue": 0},
			{"title": "Cut monthly churn to 2%", "metricName": "churn", "unit": "%", "targetValue": 2}
		],
		"warnings": []
	}`}
	svc := NewOkrValidationService(testLogger(t), client)

	result, err := svc.DraftOkr(context.Background(), DraftOkrInput{
		Objective: "Grow self-serve revenue",
		FromDate:  "2026-01-01",
		ToDate:    "2026-03-31",
	})
	if err != nil {
		t.Fatalf("DraftOkr failed: %v", err)
	}
	if result.Source != "generated" {
		t.Fatalf("source = %q, want generated", result.Source)
	}
	if len(result.SuggestedKrs) != 2 {
		t.Fatalf("suggestions = %+v, want the two valid entries", result.SuggestedKrs)
	}
	if result.SuggestedKrs[0].Title != "Reach 2M ARR from self-serve" ||
		result.SuggestedKrs[1].Title != "Cut monthly churn to 2%" {
		t.Fatalf("suggestions kept wrong entries: %+v", result.SuggestedKrs)
	}
	if result.ObjectiveRefined == nil || *result.ObjectiveRefined != "Grow self-serve revenue to 2M ARR" {
		t.Fatalf("objectiveRefined = %v, want refined title", result.ObjectiveRefined)
	}
}

func TestDraftOkrFallsBackOnGenerationFailure(t *testing.T) {
	client := &fakeAIClient{enabled: true, err: errors.New("deadline exceeded")}
	svc := NewOkrValidationService(testLogger(t), client)

	result, err := svc.DraftOkr(context.Background(), DraftOkrInput{
		Objective: "Grow self-serve revenue",
		FromDate:  "2026-01-01",
		ToDate:    "2026-03-31",
	})
	if err != nil {
		t.Fatalf("DraftOkr failed: %v", err)
	}
	if result.Source != "rules" || len(result.Warnings) != 1 {
		t.Fatalf("result = %+v, want rule fallback with warning", result)
	}
}

func TestFingerprintIsStable(t *testing.T) {
	draft := KeyResultDraft{Title: "Raise NPS to 60", TargetValue: fptr(60)}
	a := Fingerprint(draft)
	b := Fingerprint(draft)
	if a == "" || a != b {
		t.Fatalf("fingerprint not stable: %q vs %q", a, b)
	}
	if c := Fingerprint(KeyResultDraft{Title: "Raise NPS to 70", TargetValue: fptr(70)}); c == a {
		t.Fatal("different drafts share a fingerprint")
	}
}

func strptr(s string) *string { return &s }
