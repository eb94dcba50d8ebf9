package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/progress"
	"github.com/okrboard/okrboard-backend/internal/types"
)

const explanationShortMax = 280

// KrSignals is the structured input both insight generators read for one key
// result.
type KrSignals struct {
	Title            string            `json:"title"`
	MetricName       *string           `json:"metricName"`
	TargetValue      *float64          `json:"targetValue"`
	CurrentValue     *float64          `json:"currentValue"`
	ProgressPct      *float64          `json:"progressPct"`
	Health           progress.Health   `json:"health"`
	CheckinsCount    int               `json:"checkinsCount"`
	LastCheckinValue *float64          `json:"lastCheckinValue"`
}

type ObjectiveKrSignal struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	ProgressPct  *float64        `json:"progressPct"`
	Health       progress.Health `json:"health"`
	InsightShort *string         `json:"insightShort"`
	Risk         *types.Risk     `json:"risk"`
}

type ObjectiveSignals struct {
	Objective string              `json:"objective"`
	FromDate  time.Time           `json:"fromDate"`
	ToDate    time.Time           `json:"toDate"`
	Status    string              `json:"status"`
	Krs       []ObjectiveKrSignal `json:"krs"`
}

// InsightOutput is what either generator produces. Risk is empty for
// objective-level insights.
type InsightOutput struct {
	ExplanationShort string
	ExplanationLong  string
	Suggestion       string
	Risk             types.Risk
}

// ProviderStatus makes the silent-fallback decision an explicit branch
// instead of a swallowed exception.
type ProviderStatus int

const (
	ProviderOK ProviderStatus = iota
	ProviderUnavailable
	ProviderMalformed
)

type ProviderResult struct {
	Status  ProviderStatus
	Insight InsightOutput
}

// InsightProvider is the optional generative path. Implementations never
// return errors; any failure collapses into Unavailable or Malformed.
type InsightProvider interface {
	Enabled() bool
	GenerateKrInsight(ctx context.Context, signals KrSignals) ProviderResult
	GenerateObjectiveInsight(ctx context.Context, signals ObjectiveSignals) ProviderResult
}

// --- rule path ---

// RuleKrInsight is the deterministic KR generator. Always succeeds.
func RuleKrInsight(targetValue, currentValue *float64, checkinsCount int) InsightOutput {
	hasTarget := targetValue != nil && *targetValue > 0
	hasCheckins := checkinsCount > 0 || currentValue != nil

	if !hasTarget {
		return InsightOutput{
			ExplanationShort: "no target defined",
			ExplanationLong:  "This key result has no numeric target, so progress cannot be evaluated.",
			Suggestion:       "Define a numeric target and a due date",
			Risk:             types.RiskHigh,
		}
	}
	if !hasCheckins {
		return InsightOutput{
			ExplanationShort: "no check-ins recorded",
			ExplanationLong:  "No check-ins have been recorded for this key result yet.",
			Suggestion:       "Post a first check-in with the current value",
			Risk:             types.RiskHigh,
		}
	}

	pct := 0.0
	if p := progress.Pct(currentValue, targetValue); p != nil {
		pct = *p
	}
	switch {
	case pct < 40:
		return InsightOutput{
			ExplanationShort: "off track",
			ExplanationLong:  "Current progress is below 40% of the target.",
			Suggestion:       "Define 1-2 initiatives and increase check-in cadence",
			Risk:             types.RiskHigh,
		}
	case pct < 70:
		return InsightOutput{
			ExplanationShort: "at risk",
			ExplanationLong:  "Current progress is between 40% and 70% of the target.",
			Suggestion:       "Adjust initiatives and review the weekly pace",
			Risk:             types.RiskMedium,
		}
	default:
		return InsightOutput{
			ExplanationShort: "on track",
			ExplanationLong:  "Current progress is above 70% of the target.",
			Suggestion:       "Keep the cadence and clear blockers",
			Risk:             types.RiskLow,
		}
	}
}

// RuleObjectiveInsight rolls child KR risks up into an objective insight.
func RuleObjectiveInsight(krRisks []types.Risk) InsightOutput {
	if len(krRisks) == 0 {
		return InsightOutput{
			ExplanationShort: "no key results yet",
			ExplanationLong:  "This objective has no key results attached.",
			Suggestion:       "Add 1-3 measurable key results",
		}
	}

	var medium, high int
	for _, r := range krRisks {
		switch r {
		case types.RiskHigh:
			high++
		case types.RiskMedium:
			medium++
		}
	}

	if high > 0 {
		return InsightOutput{
			ExplanationShort: "at risk due to critical KRs",
			ExplanationLong:  "Critical key results are dragging down the overall objective state.",
			Suggestion:       "Prioritize the critical key results and define initiatives",
		}
	}
	if float64(medium) > float64(len(krRisks))/2 {
		return InsightOutput{
			ExplanationShort: "at risk",
			ExplanationLong:  "Most key results are at risk.",
			Suggestion:       "Review the pace and the supporting actions",
		}
	}
	return InsightOutput{
		ExplanationShort: "on track",
		ExplanationLong:  "Most key results are in good shape.",
		Suggestion:       "Keep focus and cadence",
	}
}

// --- engine ---

// InsightEngine produces the final insight for an entity: generated when the
// provider delivers a well-formed output, rule-based otherwise. The source
// and version tags record which path won.
type InsightEngine interface {
	ComputeKr(ctx context.Context, signals KrSignals) (InsightOutput, string, int)
	ComputeObjective(ctx context.Context, signals ObjectiveSignals) (InsightOutput, string, int)
}

type insightEngine struct {
	provider InsightProvider
	log      *logger.Logger
}

func NewInsightEngine(log *logger.Logger, provider InsightProvider) InsightEngine {
	engineLog := log.With("service", "InsightEngine")
	return &insightEngine{provider: provider, log: engineLog}
}

func (e *insightEngine) ComputeKr(ctx context.Context, signals KrSignals) (InsightOutput, string, int) {
	if e.provider != nil && e.provider.Enabled() {
		res := e.provider.GenerateKrInsight(ctx, signals)
		switch res.Status {
		case ProviderOK:
			return res.Insight, types.InsightSourceGenerated, types.InsightVersionGenerated
		case ProviderMalformed:
			e.log.Warn("KR insight provider output malformed, falling back to rules")
		default:
			e.log.Debug("KR insight provider unavailable, falling back to rules")
		}
	}
	return RuleKrInsight(signals.TargetValue, signals.CurrentValue, signals.CheckinsCount),
		types.InsightSourceRules, types.InsightVersionRules
}

func (e *insightEngine) ComputeObjective(ctx context.Context, signals ObjectiveSignals) (InsightOutput, string, int) {
	if e.provider != nil && e.provider.Enabled() {
		res := e.provider.GenerateObjectiveInsight(ctx, signals)
		switch res.Status {
		case ProviderOK:
			return res.Insight, types.InsightSourceGenerated, types.InsightVersionGenerated
		case ProviderMalformed:
			e.log.Warn("objective insight provider output malformed, falling back to rules")
		default:
			e.log.Debug("objective insight provider unavailable, falling back to rules")
		}
	}
	risks := make([]types.Risk, 0, len(signals.Krs))
	for _, kr := range signals.Krs {
		if kr.Risk != nil {
			risks = append(risks, *kr.Risk)
		}
	}
	return RuleObjectiveInsight(risks), types.InsightSourceRules, types.InsightVersionRules
}

// --- generative provider over the AI client ---

type aiInsightProvider struct {
	client AIClient
	log    *logger.Logger
}

func NewAIInsightProvider(log *logger.Logger, client AIClient) InsightProvider {
	providerLog := log.With("service", "AIInsightProvider")
	return &aiInsightProvider{client: client, log: providerLog}
}

func (p *aiInsightProvider) Enabled() bool {
	return p.client != nil && p.client.Enabled()
}

type generatedInsightPayload struct {
	ExplanationShort string `json:"explanationShort"`
	ExplanationLong  string `json:"explanationLong"`
	Suggestion       string `json:"suggestion"`
	Risk             string `json:"risk"`
}

func (p *aiInsightProvider) GenerateKrInsight(ctx context.Context, signals KrSignals) ProviderResult {
	data, err := json.Marshal(signals)
	if err != nil {
		return ProviderResult{Status: ProviderUnavailable}
	}
	prompt := `Analyze this key result and return JSON with exactly these fields:
- explanationShort (string, max 280 chars)
- explanationLong (string)
- suggestion (string, max 280 chars)
- risk ("low" | "medium" | "high")

Data:
` + string(data)

	raw, err := p.client.GenerateJSON(ctx, prompt, 500)
	if err != nil {
		p.log.Debug("KR insight generation failed", "error", err)
		return ProviderResult{Status: ProviderUnavailable}
	}
	var payload generatedInsightPayload
	if !ParseJSONBlock(raw, &payload) {
		return ProviderResult{Status: ProviderMalformed}
	}
	out, ok := normalizeGenerated(payload, true)
	if !ok {
		return ProviderResult{Status: ProviderMalformed}
	}
	return ProviderResult{Status: ProviderOK, Insight: out}
}

func (p *aiInsightProvider) GenerateObjectiveInsight(ctx context.Context, signals ObjectiveSignals) ProviderResult {
	data, err := json.Marshal(signals)
	if err != nil {
		return ProviderResult{Status: ProviderUnavailable}
	}
	prompt := `Analyze this objective and its key results and return JSON with exactly these fields:
- explanationShort (string, max 280 chars)
- explanationLong (string)
- suggestion (string, max 280 chars)

Data:
` + string(data)

	raw, err := p.client.GenerateJSON(ctx, prompt, 500)
	if err != nil {
		p.log.Debug("objective insight generation failed", "error", err)
		return ProviderResult{Status: ProviderUnavailable}
	}
	var payload generatedInsightPayload
	if !ParseJSONBlock(raw, &payload) {
		return ProviderResult{Status: ProviderMalformed}
	}
	out, ok := normalizeGenerated(payload, false)
	if !ok {
		return ProviderResult{Status: ProviderMalformed}
	}
	return ProviderResult{Status: ProviderOK, Insight: out}
}

// normalizeGenerated enforces the output contract; anything off-shape is
// discarded as malformed so the caller falls back to rules.
func normalizeGenerated(payload generatedInsightPayload, wantRisk bool) (InsightOutput, bool) {
	if payload.ExplanationShort == "" || payload.Suggestion == "" {
		return InsightOutput{}, false
	}
	if len(payload.ExplanationShort) > explanationShortMax || len(payload.Suggestion) > explanationShortMax {
		return InsightOutput{}, false
	}
	out := InsightOutput{
		ExplanationShort: payload.ExplanationShort,
		ExplanationLong:  payload.ExplanationLong,
		Suggestion:       payload.Suggestion,
	}
	if wantRisk {
		risk := types.Risk(payload.Risk)
		if !types.ValidRisk(risk) {
			return InsightOutput{}, false
		}
		out.Risk = risk
	}
	return out, true
}
