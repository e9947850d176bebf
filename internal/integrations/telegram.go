package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/supportops/triage-gateway/internal/models"
	"github.com/supportops/triage-gateway/pkg/logger"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// ReplyResult is the normalized outcome of a user-facing reply
type ReplyResult struct {
	Delivery  string `json:"delivery"`
	MessageID int64  `json:"message_id,omitempty"`
}

// TelegramClient sends user replies and reviewer notifications through
// the Telegram Bot API
type TelegramClient struct {
	baseURL      string
	botToken     string
	approvalChat string
	client       *http.Client
	logger       *logger.Logger
}

// NewTelegramClient creates a messaging client. An empty base URL selects
// the production API.
func NewTelegramClient(baseURL, botToken, approvalChat string, log *logger.Logger) *TelegramClient {
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}
	return &TelegramClient{
		baseURL:      baseURL,
		botToken:     botToken,
		approvalChat: approvalChat,
		client:       &http.Client{Timeout: 10 * time.Second},
		logger:       log,
	}
}

type telegramSendResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
	Description string `json:"description"`
}

// SendReply delivers a message to a chat. Upstream throttling is not an
// error: a 429 reports delivery "queued" so the caller records the send
// as deferred rather than failed.
func (c *TelegramClient) SendReply(ctx context.Context, chatID, text string) (*ReplyResult, error) {
	resp, err := c.post(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.logger.Warn("reply throttled, reported as queued", logger.String("chat_id", chatID))
		return &ReplyResult{Delivery: "queued"}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("reply delivery failed with status %d", resp.StatusCode)
	}

	var parsed telegramSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode reply response: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("reply delivery rejected: %s", parsed.Description)
	}
	return &ReplyResult{
		Delivery:  "sent",
		MessageID: parsed.Result.MessageID,
	}, nil
}

// NotifyApproval posts a pending decision to the reviewer channel with
// approve/reject buttons. Callers treat failure as non-fatal.
func (c *TelegramClient) NotifyApproval(ctx context.Context, decision *models.PendingDecision) error {
	if c.approvalChat == "" {
		return nil
	}
	text := fmt.Sprintf(
		"Approval needed\nPending: %s\nReason: %s\nAction: %s\nExpires: %s",
		decision.PendingID,
		decision.Reason,
		decision.Action.Tool,
		decision.ExpiresAt.UTC().Format(time.RFC3339),
	)
	resp, err := c.post(ctx, "sendMessage", map[string]any{
		"chat_id": c.approvalChat,
		"text":    text,
		"reply_markup": map[string]any{
			"inline_keyboard": [][]map[string]string{{
				{"text": "Approve", "callback_data": "approve:" + decision.PendingID},
				{"text": "Reject", "callback_data": "reject:" + decision.PendingID},
			}},
		},
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("approval notification failed with status %d", resp.StatusCode)
	}
	return nil
}

func (c *TelegramClient) post(ctx context.Context, method string, payload map[string]any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", method, err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	return resp, nil
}
