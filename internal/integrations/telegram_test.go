package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportops/triage-gateway/internal/models"
	"github.com/supportops/triage-gateway/pkg/logger"
)

func TestTelegramSendReply(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 731},
		})
	}))
	defer server.Close()

	client := NewTelegramClient(server.URL, "bot-token", "", logger.NewNop())
	reply, err := client.SendReply(context.Background(), "chat-9", "We are looking into it")
	require.NoError(t, err)

	assert.Equal(t, "sent", reply.Delivery)
	assert.Equal(t, int64(731), reply.MessageID)
	assert.True(t, strings.HasPrefix(gotPath, "/botbot-token/"))
	assert.Equal(t, "chat-9", gotBody["chat_id"])
}

func TestTelegramThrottledReportsQueued(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewTelegramClient(server.URL, "tok", "", logger.NewNop())
	reply, err := client.SendReply(context.Background(), "chat-9", "hello")
	require.NoError(t, err)

	assert.Equal(t, "queued", reply.Delivery)
	assert.Zero(t, reply.MessageID)
}

func TestTelegramNotifyApproval(t *testing.T) {
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{"message_id": 1}})
	}))
	defer server.Close()

	client := NewTelegramClient(server.URL, "tok", "reviewers", logger.NewNop())
	decision := &models.PendingDecision{
		PendingID: "p-9",
		Reason:    "legally sensitive content",
		ExpiresAt: time.Now().Add(time.Hour),
		Action:    models.ProposedAction{Tool: "create_ticket_and_reply"},
	}
	require.NoError(t, client.NotifyApproval(context.Background(), decision))

	assert.Equal(t, "reviewers", gotBody["chat_id"])
	text := gotBody["text"].(string)
	assert.Contains(t, text, "p-9")
	assert.Contains(t, text, "legally sensitive content")
	assert.Contains(t, gotBody, "reply_markup")
}

func TestTelegramNotifyApprovalSkippedWithoutChat(t *testing.T) {
	client := NewTelegramClient("http://unreachable.invalid", "tok", "", logger.NewNop())
	assert.NoError(t, client.NotifyApproval(context.Background(), &models.PendingDecision{PendingID: "p"}))
}
