package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/utils"
)

// AIClient is the narrow surface the insight and validation services use.
// Callers must treat every failure as "provider unavailable"; nothing here is
// allowed to become fatal upstream.
type AIClient interface {
	Enabled() bool
	// GenerateJSON sends one prompt expected to yield a single JSON object
	// and returns the raw completion text.
	GenerateJSON(ctx context.Context, prompt string, maxTokens int) (string, error)
	Ping(ctx context.Context) error
}

type aiClient struct {
	client    *openai.Client
	log       *logger.Logger
	enabled   bool
	chatModel string
	timeout   time.Duration
}

func NewAIClient(log *logger.Logger) AIClient {
	serviceLog := log.With("service", "AIClient")
	enabled := utils.GetEnvAsBool("INSIGHTS_AI_ENABLED", false, log)
	apiKey := utils.GetEnv("OPENAI_API_KEY", "", log)
	baseURL := utils.GetEnv("OPENAI_BASE_URL", "", log)
	chatModel := utils.GetEnv("OPENAI_CHAT_MODEL", openai.GPT4oMini, log)
	timeoutMs := utils.GetEnvAsInt("AI_TIMEOUT_MS", 12000, log)

	if enabled && apiKey == "" {
		serviceLog.Warn("INSIGHTS_AI_ENABLED is set but OPENAI_API_KEY is missing, AI path disabled")
		enabled = false
	}

	var client *openai.Client
	if enabled {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		client = openai.NewClientWithConfig(cfg)
		serviceLog.Info("AI insight generation enabled", "model", chatModel)
	}

	return &aiClient{
		client:    client,
		log:       serviceLog,
		enabled:   enabled,
		chatModel: chatModel,
		timeout:   time.Duration(timeoutMs) * time.Millisecond,
	}
}

func (c *aiClient) Enabled() bool {
	return c.enabled
}

func (c *aiClient) GenerateJSON(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if !c.enabled || c.client == nil {
		return "", fmt.Errorf("ai client disabled")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	// At most one retry, then the caller falls back to the rule path.
	for attempt := 0; attempt <= 1; attempt++ {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: "You are an OKR analyst. Reply with a single valid JSON object and nothing else."},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens:   maxTokens,
			Temperature: 0.2,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("ai completion returned no choices")
			}
			return resp.Choices[0].Message.Content, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt == 0 {
			time.Sleep(300 * time.Millisecond)
		}
	}
	return "", lastErr
}

func (c *aiClient) Ping(ctx context.Context) error {
	if !c.enabled || c.client == nil {
		return fmt.Errorf("ai client disabled")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Reply with: OK"},
		},
		MaxTokens: 16,
	})
	return err
}

var fencedJSONRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

// ParseJSONBlock decodes a completion that may be wrapped in a markdown code
// fence or surrounded by prose. Returns false when no valid JSON object is
// found.
func ParseJSONBlock(text string, out any) bool {
	candidate := strings.TrimSpace(text)
	if m := fencedJSONRe.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	}
	if json.Unmarshal([]byte(candidate), out) == nil {
		return true
	}
	start := strings.IndexByte(candidate, '{')
	end := strings.LastIndexByte(candidate, '}')
	if start < 0 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(candidate[start:end+1]), out) == nil
}
