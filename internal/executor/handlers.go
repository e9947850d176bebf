package executor

import (
	"context"
	"fmt"

	"github.com/supportops/triage-gateway/internal/integrations"
	"github.com/supportops/triage-gateway/internal/models"
)

// ToolCreateTicketAndReply files a ticket and answers the requester
const ToolCreateTicketAndReply = "create_ticket_and_reply"

// ToolFlagForHuman marks a request for manual review without side effects
const ToolFlagForHuman = "flag_for_human"

// Ticketer files support tickets
type Ticketer interface {
	CreateTicket(ctx context.Context, title, description string) (*integrations.TicketResult, error)
}

// Replier delivers a message to the original requester
type Replier interface {
	SendReply(ctx context.Context, chatID, text string) (*integrations.ReplyResult, error)
}

// NewTicketAndReplyHandler files the ticket first and replies to the
// reply target captured at proposal time, so approval latency never
// redirects the response to whoever clicked approve.
func NewTicketAndReplyHandler(ticketer Ticketer, replier Replier) Handler {
	return func(ctx context.Context, action *models.ProposedAction, userID, draft string) (map[string]any, error) {
		title := action.PayloadString("title")
		if title == "" {
			title = "[other] support request"
		}
		description := fmt.Sprintf(
			"Category: %s\nUrgency: %s\nUser: %s\n\n%s",
			action.PayloadString("category"),
			action.PayloadString("urgency"),
			models.HashUserID(userID),
			action.PayloadString("text"),
		)

		ticket, err := ticketer.CreateTicket(ctx, title, description)
		if err != nil {
			return nil, fmt.Errorf("ticket step failed: %w", err)
		}

		replyText := draft
		if replyText == "" {
			replyText = action.PayloadString("draft_response")
		}
		replyTo := action.PayloadString("reply_to")

		reply, err := replier.SendReply(ctx, replyTo, replyText)
		if err != nil {
			return nil, fmt.Errorf("reply step failed: %w", err)
		}

		return map[string]any{
			"ticket": ticket,
			"reply":  reply,
		}, nil
	}
}

// NewFlagForHumanHandler produces a review marker and nothing else. The
// override action has to stay executable after approval, so it gets a
// real registry entry rather than a special case in the dispatcher.
func NewFlagForHumanHandler() Handler {
	return func(ctx context.Context, action *models.ProposedAction, userID, draft string) (map[string]any, error) {
		return map[string]any{
			"review": map[string]any{
				"status": "flagged",
				"reason": action.RiskReason,
			},
		}, nil
	}
}
