package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/okrboard/okrboard-backend/internal/apierr"
	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/utils"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Issue is one finding against an objective or key result draft.
type Issue struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

type ObjectiveDraft struct {
	Objective string `json:"objective"`
	FromDate  string `json:"fromDate"`
	ToDate    string `json:"toDate"`
}

type KeyResultDraft struct {
	Title       string   `json:"title"`
	MetricName  *string  `json:"metricName"`
	TargetValue *float64 `json:"targetValue"`
	Unit        *string  `json:"unit"`
}

type ValidationResult struct {
	OK          bool    `json:"ok"`
	Issues      []Issue `json:"issues"`
	Source      string  `json:"source"`
	Fingerprint string  `json:"fingerprint"`
}

type DraftOkrInput struct {
	Objective        string   `json:"objective"`
	FromDate         string   `json:"fromDate"`
	ToDate           string   `json:"toDate"`
	Context          *string  `json:"context,omitempty"`
	ExistingKrTitles []string `json:"existingKrTitles,omitempty"`
}

// SuggestedKr is one drafted key result a client can accept as-is.
type SuggestedKr struct {
	Title       string  `json:"title"`
	MetricName  *string `json:"metricName"`
	Unit        *string `json:"unit"`
	TargetValue float64 `json:"targetValue"`
}

type DraftResult struct {
	ObjectiveRefined *string       `json:"objectiveRefined"`
	SuggestedKrs     []SuggestedKr `json:"suggestedKrs"`
	Warnings         []string      `json:"warnings"`
	Source           string        `json:"source"`
}

// OkrValidationService checks drafts before they become entities. The rule
// path always works; the generative path adds softer findings when enabled.
type OkrValidationService interface {
	ValidateObjective(ctx context.Context, draft ObjectiveDraft) (ValidationResult, error)
	ValidateKeyResult(ctx context.Context, draft KeyResultDraft) (ValidationResult, error)
	// DraftOkr proposes two to four measurable key results for an objective.
	// Without a working model it degrades to an empty suggestion list and an
	// ai_unavailable warning rather than failing the request.
	DraftOkr(ctx context.Context, input DraftOkrInput) (DraftResult, error)
}

type okrValidationService struct {
	client     AIClient
	aiRequired bool
	log        *logger.Logger
}

func NewOkrValidationService(log *logger.Logger, client AIClient) OkrValidationService {
	serviceLog := log.With("service", "OkrValidationService")
	return &okrValidationService{
		client:     client,
		aiRequired: utils.GetEnvAsBool("VALIDATION_AI_REQUIRED", false, serviceLog),
		log:        serviceLog,
	}
}

// RuleObjectiveIssues is the deterministic objective draft check.
func RuleObjectiveIssues(draft ObjectiveDraft) []Issue {
	var issues []Issue
	if draft.Objective == "" {
		issues = append(issues, Issue{
			Severity: SeverityHigh, Code: "title_missing", Field: "objective",
			Message: "The objective needs a title.",
		})
	} else if len(draft.Objective) < 8 {
		issues = append(issues, Issue{
			Severity: SeverityMedium, Code: "title_short", Field: "objective",
			Message: "The title is very short; describe the outcome, not the task.",
		})
	}
	if draft.FromDate == "" || draft.ToDate == "" {
		issues = append(issues, Issue{
			Severity: SeverityMedium, Code: "period_missing", Field: "fromDate",
			Message: "Define a time period for the objective.",
		})
	}
	return issues
}

// RuleKeyResultIssues is the deterministic key result draft check.
func RuleKeyResultIssues(draft KeyResultDraft) []Issue {
	var issues []Issue
	if draft.Title == "" {
		issues = append(issues, Issue{
			Severity: SeverityHigh, Code: "title_missing", Field: "title",
			Message: "The key result needs a title.",
		})
	}
	if draft.TargetValue == nil || *draft.TargetValue <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityHigh, Code: "target_missing", Field: "targetValue",
			Message: "A key result without a positive numeric target cannot be measured.",
		})
	}
	if draft.TargetValue != nil && (draft.MetricName == nil || *draft.MetricName == "") {
		issues = append(issues, Issue{
			Severity: SeverityMedium, Code: "metric_missing", Field: "metricName",
			Message: "Name the metric the target value refers to.",
		})
	}
	return issues
}

func (s *okrValidationService) ValidateObjective(ctx context.Context, draft ObjectiveDraft) (ValidationResult, error) {
	ruleIssues := RuleObjectiveIssues(draft)
	fingerprint := Fingerprint(draft)
	if s.client == nil || !s.client.Enabled() {
		if s.aiRequired {
			return ValidationResult{}, apierr.New(502, "ai_unavailable", nil)
		}
		return resultFromIssues(ruleIssues, "rules", fingerprint), nil
	}

	issues, ok := s.generatedIssues(ctx, "objective", draft)
	if !ok {
		if s.aiRequired {
			return ValidationResult{}, apierr.New(502, "ai_unavailable", nil)
		}
		return resultFromIssues(ruleIssues, "rules", fingerprint), nil
	}
	return resultFromIssues(mergeIssues(ruleIssues, issues), "generated", fingerprint), nil
}

func (s *okrValidationService) ValidateKeyResult(ctx context.Context, draft KeyResultDraft) (ValidationResult, error) {
	ruleIssues := RuleKeyResultIssues(draft)
	fingerprint := Fingerprint(draft)
	if s.client == nil || !s.client.Enabled() {
		if s.aiRequired {
			return ValidationResult{}, apierr.New(502, "ai_unavailable", nil)
		}
		return resultFromIssues(ruleIssues, "rules", fingerprint), nil
	}

	issues, ok := s.generatedIssues(ctx, "key result", draft)
	if !ok {
		if s.aiRequired {
			return ValidationResult{}, apierr.New(502, "ai_unavailable", nil)
		}
		return resultFromIssues(ruleIssues, "rules", fingerprint), nil
	}
	return resultFromIssues(mergeIssues(ruleIssues, issues), "generated", fingerprint), nil
}

const draftKrMax = 4

func (s *okrValidationService) DraftOkr(ctx context.Context, input DraftOkrInput) (DraftResult, error) {
	if input.Objective == "" || input.FromDate == "" || input.ToDate == "" {
		return DraftResult{}, apierr.Validation("missing_fields")
	}
	if s.client == nil || !s.client.Enabled() {
		return draftFallback(), nil
	}

	result, ok := s.generatedDraft(ctx, input)
	if !ok {
		return draftFallback(), nil
	}
	return result, nil
}

func draftFallback() DraftResult {
	return DraftResult{
		SuggestedKrs: []SuggestedKr{},
		Warnings:     []string{"ai_unavailable"},
		Source:       "rules",
	}
}

type generatedDraftPayload struct {
	ObjectiveRefined *string       `json:"objectiveRefined"`
	SuggestedKrs     []SuggestedKr `json:"suggestedKrs"`
	Warnings         []string      `json:"warnings"`
}

func (s *okrValidationService) generatedDraft(ctx context.Context, input DraftOkrInput) (DraftResult, bool) {
	data, err := json.Marshal(input)
	if err != nil {
		return DraftResult{}, false
	}
	prompt := `Draft key results for this objective and return JSON:
{"objectiveRefined": string|null, "suggestedKrs": [{"title": string, "metricName": string|null, "unit": string|null, "targetValue": number}], "warnings": [string]}
suggestedKrs must hold 2 to 4 entries, each with a positive numeric targetValue.
Do not repeat any title listed in existingKrTitles.

Input:
` + string(data)

	raw, err := s.client.GenerateJSON(ctx, prompt, 700)
	if err != nil {
		s.log.Debug("okr draft generation failed", "error", err)
		return DraftResult{}, false
	}
	var payload generatedDraftPayload
	if !ParseJSONBlock(raw, &payload) {
		return DraftResult{}, false
	}

	suggestions := make([]SuggestedKr, 0, len(payload.SuggestedKrs))
	for _, kr := range payload.SuggestedKrs {
		kr.Title = strings.TrimSpace(kr.Title)
		if kr.Title == "" || kr.TargetValue <= 0 {
			continue
		}
		suggestions = append(suggestions, kr)
		if len(suggestions) == draftKrMax {
			break
		}
	}
	if len(suggestions) == 0 {
		return DraftResult{}, false
	}

	warnings := payload.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return DraftResult{
		ObjectiveRefined: payload.ObjectiveRefined,
		SuggestedKrs:     suggestions,
		Warnings:         warnings,
		Source:           "generated",
	}, true
}

type generatedIssuesPayload struct {
	Issues []Issue `json:"issues"`
}

func (s *okrValidationService) generatedIssues(ctx context.Context, kind string, draft any) ([]Issue, bool) {
	data, err := json.Marshal(draft)
	if err != nil {
		return nil, false
	}
	prompt := `Review this ` + kind + ` draft against good OKR practice and return JSON:
{"issues": [{"severity": "low"|"medium"|"high", "code": string, "message": string, "field": string}]}
Return an empty issues array when the draft is fine.

Draft:
` + string(data)

	raw, err := s.client.GenerateJSON(ctx, prompt, 600)
	if err != nil {
		s.log.Debug("draft review generation failed", "error", err)
		return nil, false
	}
	var payload generatedIssuesPayload
	if !ParseJSONBlock(raw, &payload) {
		return nil, false
	}
	clean := payload.Issues[:0]
	for _, issue := range payload.Issues {
		if issue.Message == "" {
			continue
		}
		if issue.Severity != SeverityLow && issue.Severity != SeverityMedium && issue.Severity != SeverityHigh {
			issue.Severity = SeverityLow
		}
		clean = append(clean, issue)
	}
	return clean, true
}

func mergeIssues(rule, generated []Issue) []Issue {
	seen := make(map[string]bool, len(rule))
	merged := make([]Issue, 0, len(rule)+len(generated))
	for _, issue := range rule {
		seen[issue.Code] = true
		merged = append(merged, issue)
	}
	for _, issue := range generated {
		if issue.Code != "" && seen[issue.Code] {
			continue
		}
		merged = append(merged, issue)
	}
	return merged
}

func resultFromIssues(issues []Issue, source, fingerprint string) ValidationResult {
	if issues == nil {
		issues = []Issue{}
	}
	ok := true
	for _, issue := range issues {
		if issue.Severity == SeverityHigh {
			ok = false
			break
		}
	}
	return ValidationResult{OK: ok, Issues: issues, Source: source, Fingerprint: fingerprint}
}

// Fingerprint hashes the canonical JSON form of a draft so clients can prove
// a later submit matches the draft that was validated.
func Fingerprint(draft any) string {
	data, err := json.Marshal(draft)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
