package executor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportops/triage-gateway/internal/integrations"
	"github.com/supportops/triage-gateway/internal/models"
	"github.com/supportops/triage-gateway/pkg/logger"
)

type fakeEvents struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeEvents) LogEvent(_ context.Context, eventType string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	return nil
}

type fakeTicketer struct {
	lastTitle string
	err       error
}

func (f *fakeTicketer) CreateTicket(_ context.Context, title, _ string) (*integrations.TicketResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastTitle = title
	return &integrations.TicketResult{TicketID: "SUP-101", URL: "https://linear.app/SUP-101", Status: "created"}, nil
}

type fakeReplier struct {
	lastChatID string
	lastText   string
}

func (f *fakeReplier) SendReply(_ context.Context, chatID, text string) (*integrations.ReplyResult, error) {
	f.lastChatID = chatID
	f.lastText = text
	return &integrations.ReplyResult{Delivery: "sent", MessageID: 42}, nil
}

func TestExecuteUnknownTool(t *testing.T) {
	events := &fakeEvents{}
	exec := New(events, logger.NewNop())

	action := models.ProposedAction{Tool: "wipe_database"}
	_, err := exec.Execute(context.Background(), &action, "user-1", "")

	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.Empty(t, events.events)
}

func TestExecuteTicketAndReply(t *testing.T) {
	events := &fakeEvents{}
	ticketer := &fakeTicketer{}
	replier := &fakeReplier{}

	exec := New(events, logger.NewNop())
	exec.Register(ToolCreateTicketAndReply, NewTicketAndReplyHandler(ticketer, replier))

	action := models.ProposedAction{
		Tool: ToolCreateTicketAndReply,
		Payload: map[string]any{
			"title":    "[billing] support request",
			"text":     "charged twice",
			"category": "billing",
			"urgency":  "medium",
			"reply_to": "chat-555",
		},
	}

	result, err := exec.Execute(context.Background(), &action, "user-1", "We are on it.")
	require.NoError(t, err)

	ticket, ok := result["ticket"].(*integrations.TicketResult)
	require.True(t, ok)
	assert.Equal(t, "SUP-101", ticket.TicketID)

	reply, ok := result["reply"].(*integrations.ReplyResult)
	require.True(t, ok)
	assert.Equal(t, "sent", reply.Delivery)

	assert.Equal(t, "[billing] support request", ticketer.lastTitle)
	assert.Equal(t, "chat-555", replier.lastChatID)
	assert.Equal(t, "We are on it.", replier.lastText)

	assert.Equal(t, []string{"action_executed"}, events.events)
}

func TestExecuteRecordsEventOnFailure(t *testing.T) {
	events := &fakeEvents{}
	ticketer := &fakeTicketer{err: errors.New("linear down")}

	exec := New(events, logger.NewNop())
	exec.Register(ToolCreateTicketAndReply, NewTicketAndReplyHandler(ticketer, &fakeReplier{}))

	action := models.ProposedAction{Tool: ToolCreateTicketAndReply, Payload: map[string]any{"reply_to": "c"}}
	_, err := exec.Execute(context.Background(), &action, "user-1", "draft")

	require.Error(t, err)
	assert.Equal(t, []string{"action_executed"}, events.events)
}

func TestFlagForHumanHandlerHasNoSideEffects(t *testing.T) {
	events := &fakeEvents{}
	exec := New(events, logger.NewNop())
	exec.Register(ToolFlagForHuman, NewFlagForHumanHandler())

	action := models.ProposedAction{
		Tool:       ToolFlagForHuman,
		Risky:      true,
		RiskReason: "confidence below safety floor",
	}

	result, err := exec.Execute(context.Background(), &action, "user-1", "")
	require.NoError(t, err)

	review, ok := result["review"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "flagged", review["status"])
	assert.Equal(t, "confidence below safety floor", review["reason"])
}

func TestExecuteFallbackDraftFromPayload(t *testing.T) {
	events := &fakeEvents{}
	replier := &fakeReplier{}
	exec := New(events, logger.NewNop())
	exec.Register(ToolCreateTicketAndReply, NewTicketAndReplyHandler(&fakeTicketer{}, replier))

	action := models.ProposedAction{
		Tool: ToolCreateTicketAndReply,
		Payload: map[string]any{
			"reply_to":       "chat-1",
			"draft_response": "canned reply",
		},
	}
	_, err := exec.Execute(context.Background(), &action, "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, "canned reply", replier.lastText)
}
