package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/supportops/triage-gateway/internal/models"
	"github.com/supportops/triage-gateway/pkg/config"
	"github.com/supportops/triage-gateway/pkg/logger"
)

const openaiSystemPrompt = `You are a game support triage assistant. ` +
	`Respond with a single JSON object of the form ` +
	`{"classification":{"category":...,"urgency":...,"confidence":...},` +
	`"extracted":{"user_id":...,"platform":...,"game_title":...,"transaction_id":...,` +
	`"error_code":...,"reported_username":...,"keywords":[...]},"draft_text":...}. ` +
	`Category is one of bug_report, billing, account_access, cheater_report, ` +
	`gameplay_question, other. Urgency is one of low, medium, high, critical. ` +
	`Confidence is between 0 and 1. Use "unknown" for an unidentified platform.`

// OpenAITriager is the single-shot JSON-mode fallback provider. Same
// contract as the tool-use loop: one classification, one extraction,
// defaults when the model output cannot be trusted.
type OpenAITriager struct {
	client *openai.Client
	model  string
	logger *logger.Logger
}

// NewOpenAITriager creates the OpenAI-backed triager
func NewOpenAITriager(cfg *config.TriageConfig, log *logger.Logger) (*OpenAITriager, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAITriager{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.OpenAIModel,
		logger: log,
	}, nil
}

// openaiTriagePayload mirrors the JSON shape requested from the model
type openaiTriagePayload struct {
	Classification struct {
		Category   string  `json:"category"`
		Urgency    string  `json:"urgency"`
		Confidence float64 `json:"confidence"`
	} `json:"classification"`
	Extracted struct {
		UserID           string   `json:"user_id"`
		Platform         string   `json:"platform"`
		GameTitle        string   `json:"game_title"`
		TransactionID    string   `json:"transaction_id"`
		ErrorCode        string   `json:"error_code"`
		ReportedUsername string   `json:"reported_username"`
		Keywords         []string `json:"keywords"`
	} `json:"extracted"`
	DraftText string `json:"draft_text"`
}

// Triage performs one JSON-mode completion and validates the output
func (t *OpenAITriager) Triage(ctx context.Context, text, userID string) (*models.TriageResult, error) {
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: openaiSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("triage model call failed: %w", err)
	}

	usage := models.TokenUsage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}

	result := &models.TriageResult{
		Classification: models.DefaultClassification(),
		Extracted:      models.DefaultExtractedFields(userID),
		Usage:          usage,
		CostUSD:        costUSD(t.model, usage),
	}

	if len(resp.Choices) == 0 {
		return result, nil
	}

	var payload openaiTriagePayload
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		t.logger.Warn("unparseable triage model output", logger.Err(err))
		return result, nil
	}

	category := models.Category(payload.Classification.Category)
	urgency := models.Urgency(payload.Classification.Urgency)
	confidence := payload.Classification.Confidence
	if category.Valid() && urgency.Valid() && confidence >= 0 && confidence <= 1 {
		result.Classification = models.ClassificationResult{
			Category:   category,
			Urgency:    urgency,
			Confidence: confidence,
		}
	}

	extracted := models.DefaultExtractedFields(userID)
	if payload.Extracted.UserID != "" {
		extracted.UserID = payload.Extracted.UserID
	}
	if payload.Extracted.Platform != "" {
		extracted.Platform = payload.Extracted.Platform
	}
	extracted.GameTitle = payload.Extracted.GameTitle
	extracted.TransactionID = payload.Extracted.TransactionID
	if raw := strings.TrimSpace(payload.Extracted.ErrorCode); raw != "" {
		extracted.ErrorCode = errorCodePattern.FindString(raw)
	}
	extracted.ReportedUsername = payload.Extracted.ReportedUsername
	if payload.Extracted.Keywords != nil {
		extracted.Keywords = payload.Extracted.Keywords
	}
	result.Extracted = extracted
	result.DraftText = strings.TrimSpace(payload.DraftText)

	return result, nil
}
