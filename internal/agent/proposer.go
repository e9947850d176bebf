package agent

import (
	"fmt"
	"strings"

	"github.com/supportops/triage-gateway/internal/executor"
	"github.com/supportops/triage-gateway/internal/models"
)

// cannedDrafts are the per-category reply templates used when the triager
// supplies no draft of its own
var cannedDrafts = map[models.Category]string{
	models.CategoryBilling:       "Thanks for reporting this payment issue. We are reviewing it and will update you shortly.",
	models.CategoryAccountAccess: "We received your account access request. For your security we will verify the account and follow up soon.",
	models.CategoryBugReport:     "Thanks for the bug report. Our team will investigate and keep you posted.",
	models.CategoryCheaterReport: "Thanks for the report. Our moderation team will review the reported player.",
	models.CategoryGameplay:      "Thanks for your question. A support agent will get back to you with an answer soon.",
	models.CategoryOther:         "Thanks for reaching out. A support agent will review your request shortly.",
}

// legalKeywords force human review regardless of classification
var legalKeywords = []string{"lawyer", "lawsuit", "press", "gdpr"}

// propose turns a triage result into a concrete action plus the draft
// reply. The risk conditions are evaluated in a fixed order and the first
// matching reason is kept.
func (a *Agent) propose(req *models.WebhookRequest, result *models.TriageResult) (models.ProposedAction, string) {
	category := result.Classification.Category
	if !category.Valid() {
		category = models.CategoryOther
	}

	draft := result.DraftText
	if draft == "" {
		draft = cannedDrafts[category]
	}

	replyTo := req.MetadataString("chat_id")
	if replyTo == "" {
		replyTo = req.UserID
	}

	action := models.ProposedAction{
		Tool: executor.ToolCreateTicketAndReply,
		Payload: map[string]any{
			"title":          fmt.Sprintf("[%s] support request", category),
			"text":           req.Text,
			"category":       string(category),
			"urgency":        string(result.Classification.Urgency),
			"transaction_id": result.Extracted.TransactionID,
			"reply_to":       replyTo,
		},
	}

	if reason, risky := a.riskReason(req.Text, result.Classification); risky {
		action.Risky = true
		action.RiskReason = reason
	}
	return action, draft
}

// riskReason evaluates the four gating conditions in precedence order
func (a *Agent) riskReason(text string, c models.ClassificationResult) (string, bool) {
	for _, cat := range a.cfg.Approval.Categories {
		if string(c.Category) == cat {
			return fmt.Sprintf("category %q requires approval", cat), true
		}
	}
	if c.Urgency == models.UrgencyHigh || c.Urgency == models.UrgencyCritical {
		return fmt.Sprintf("urgency %q requires review", c.Urgency), true
	}
	if c.Confidence < a.cfg.Approval.AutoThreshold {
		return fmt.Sprintf("confidence %.2f below auto-approve threshold", c.Confidence), true
	}
	lowered := strings.ToLower(text)
	for _, kw := range legalKeywords {
		if strings.Contains(lowered, kw) {
			return "legally sensitive content", true
		}
	}
	return "", false
}

// needsApproval is the single gate between proposal and execution
func (a *Agent) needsApproval(action models.ProposedAction) bool {
	return action.Risky
}
