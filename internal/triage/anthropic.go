package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/supportops/triage-gateway/internal/models"
	"github.com/supportops/triage-gateway/pkg/config"
	"github.com/supportops/triage-gateway/pkg/logger"
)

const triageSystemPrompt = "You are a game support triage assistant. " +
	"Use available tools to classify requests and extract entities. " +
	"Always call classify_request and extract_entities before ending your turn."

const (
	maxTokensPerTurn = 700
	maxAPIAttempts   = 3
)

// ClaudeTriager runs a bounded Anthropic tool-use loop: the model calls
// structured tools, local handlers answer them, and the loop terminates on
// an end_turn stop reason, a turn with no tool calls, or the turn cap.
type ClaudeTriager struct {
	client    *anthropic.Client
	model     string
	maxTurns  int
	kbBaseURL string
	logger    *logger.Logger
}

// NewClaudeTriager creates the Anthropic-backed triager
func NewClaudeTriager(cfg *config.TriageConfig, log *logger.Logger) (*ClaudeTriager, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	opts := []anthropic.ClientOption{}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}

	return &ClaudeTriager{
		client:    anthropic.NewClient(cfg.AnthropicAPIKey, opts...),
		model:     cfg.AnthropicModel,
		maxTurns:  maxTurns,
		kbBaseURL: cfg.KBBaseURL,
		logger:    log,
	}, nil
}

// Triage runs the tool-use loop and assembles the triage result from the
// tool outputs. Missing classification or extraction reduce to defaults;
// the loop never recurses and never exceeds maxTurns.
func (t *ClaudeTriager) Triage(ctx context.Context, text, userID string) (*models.TriageResult, error) {
	tools := make([]anthropic.ToolDefinition, 0, len(toolSchemas()))
	for _, schema := range toolSchemas() {
		tools = append(tools, anthropic.ToolDefinition{
			Name:        schema.Name,
			Description: schema.Description,
			InputSchema: schema.InputSchema,
		})
	}

	messages := []anthropic.Message{anthropic.NewUserTextMessage(text)}

	var classification *models.ClassificationResult
	extracted := models.DefaultExtractedFields(userID)
	draftText := ""
	usage := models.TokenUsage{}

	for turn := 0; turn < t.maxTurns; turn++ {
		resp, err := t.createMessage(ctx, anthropic.MessagesRequest{
			Model:     anthropic.Model(t.model),
			System:    triageSystemPrompt,
			MaxTokens: maxTokensPerTurn,
			Tools:     tools,
			ToolChoice: &anthropic.ToolChoice{
				Type: "auto",
			},
			Messages: messages,
		})
		if err != nil {
			return nil, fmt.Errorf("triage model call failed: %w", err)
		}

		usage.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

		toolResults := make([]anthropic.MessageContent, 0, len(resp.Content))
		for _, block := range resp.Content {
			if block.Type != anthropic.MessagesContentTypeToolUse || block.MessageContentToolUse == nil {
				continue
			}
			use := block.MessageContentToolUse

			input := map[string]any{}
			if len(use.Input) > 0 {
				if err := json.Unmarshal(use.Input, &input); err != nil {
					t.logger.Warn("malformed tool input",
						logger.String("tool", use.Name),
						logger.Err(err),
					)
					input = map[string]any{}
				}
			}

			output := dispatchTool(use.Name, input, userID, t.kbBaseURL)

			switch use.Name {
			case toolClassifyRequest:
				c := classificationFromTool(input)
				classification = &c
			case toolExtractEntities:
				extracted = extractionFromTool(input, userID)
			case toolDraftReply:
				if candidate := stringOr(output["draft_text"], ""); candidate != "" {
					draftText = candidate
				}
			}

			encoded, err := json.Marshal(output)
			if err != nil {
				encoded = []byte("{}")
			}
			toolResults = append(toolResults, anthropic.NewToolResultMessageContent(use.ID, string(encoded), false))
		}

		if len(resp.Content) > 0 {
			messages = append(messages, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: resp.Content,
			})
		}

		if resp.StopReason == anthropic.MessagesStopReasonEndTurn {
			break
		}
		if len(toolResults) == 0 {
			break
		}

		messages = append(messages, anthropic.Message{
			Role:    anthropic.RoleUser,
			Content: toolResults,
		})
	}

	if classification == nil {
		def := models.DefaultClassification()
		classification = &def
	}
	if extracted.UserID == "" {
		extracted.UserID = userID
	}

	return &models.TriageResult{
		Classification: *classification,
		Extracted:      extracted,
		DraftText:      draftText,
		Usage:          usage,
		CostUSD:        costUSD(t.model, usage),
	}, nil
}

// createMessage calls the messages API, retrying transient throttling and
// overload responses a bounded number of times with backoff
func (t *ClaudeTriager) createMessage(ctx context.Context, req anthropic.MessagesRequest) (*anthropic.MessagesResponse, error) {
	var lastErr error
	for attempt := 0; attempt < maxAPIAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * time.Second
			t.logger.Warn("retrying triage model call",
				logger.Int("attempt", attempt+1),
				logger.Err(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := t.client.CreateMessages(ctx, req)
		if err == nil {
			return &resp, nil
		}
		lastErr = err

		if !isRetryableAnthropicErr(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func isRetryableAnthropicErr(err error) bool {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRateLimitErr() || apiErr.IsOverloadedErr() || apiErr.IsApiErr()
	}
	return false
}
