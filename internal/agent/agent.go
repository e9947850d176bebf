// Package agent orchestrates the triage pipeline: dedup, guards,
// classification, proposal, the risk gate, and execution or deferral. It
// owns the order of the steps; every capability it calls lives behind an
// interface so the pipeline can be exercised without real backends.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/supportops/triage-gateway/internal/guard"
	"github.com/supportops/triage-gateway/internal/integrations"
	"github.com/supportops/triage-gateway/internal/models"
	"github.com/supportops/triage-gateway/internal/triage"
	"github.com/supportops/triage-gateway/pkg/config"
	"github.com/supportops/triage-gateway/pkg/logger"
	"github.com/supportops/triage-gateway/pkg/metrics"
)

// PendingStorer holds decisions awaiting approval
type PendingStorer interface {
	Put(ctx context.Context, decision *models.PendingDecision) error
	Pop(ctx context.Context, pendingID string) (*models.PendingDecision, error)
	Get(ctx context.Context, pendingID string) (*models.PendingDecision, error)
}

// Deduper caches serialized responses per message id
type Deduper interface {
	Check(ctx context.Context, messageID string) ([]byte, error)
	Set(ctx context.Context, messageID string, body []byte) error
}

// ActionExecutor dispatches an action to its tool handler
type ActionExecutor interface {
	Execute(ctx context.Context, action *models.ProposedAction, userID, draft string) (map[string]any, error)
}

// Notifier tells reviewers a decision is waiting
type Notifier interface {
	NotifyApproval(ctx context.Context, decision *models.PendingDecision) error
}

// AuditQueue accepts audit entries without blocking
type AuditQueue interface {
	Enqueue(entry *models.AuditLogEntry) bool
}

// EventLogger appends pipeline events
type EventLogger interface {
	LogEvent(ctx context.Context, eventType string, payload any) error
}

// Agent runs the triage pipeline end to end
type Agent struct {
	cfg         *config.Config
	inputGuard  *guard.InputGuard
	outputGuard *guard.OutputGuard
	triager     triage.Triager
	executor    ActionExecutor
	pending     PendingStorer
	dedup       Deduper
	notifier    Notifier
	audit       AuditQueue
	events      EventLogger
	logger      *logger.Logger
}

// New wires the pipeline together
func New(
	cfg *config.Config,
	triager triage.Triager,
	exec ActionExecutor,
	pending PendingStorer,
	dedup Deduper,
	notifier Notifier,
	auditQueue AuditQueue,
	events EventLogger,
	log *logger.Logger,
) *Agent {
	return &Agent{
		cfg:         cfg,
		inputGuard:  guard.NewInputGuard(&cfg.Guard),
		outputGuard: guard.NewOutputGuard(&cfg.Guard),
		triager:     triager,
		executor:    exec,
		pending:     pending,
		dedup:       dedup,
		notifier:    notifier,
		audit:       auditQueue,
		events:      events,
		logger:      log,
	}
}

// Outcome carries a processed response plus its serialized body. Body is
// what the handler writes; on a dedup hit it is the byte-identical cached
// payload and Response is nil.
type Outcome struct {
	Response *models.WebhookResponse
	Body     []byte
	Cached   bool
}

// ProcessWebhook runs the full pipeline for one inbound request
func (a *Agent) ProcessWebhook(ctx context.Context, req *models.WebhookRequest) (*Outcome, error) {
	start := time.Now()
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := a.logger.With(
		logger.String("request_id", requestID),
		logger.String("message_id", req.MessageID),
	)

	if cached, err := a.dedup.Check(ctx, req.MessageID); err != nil {
		log.Warn("dedup check failed, processing anyway", logger.Err(err))
	} else if cached != nil {
		log.Info("duplicate delivery, returning cached response")
		metrics.WebhookOutcomes.WithLabelValues("deduplicated").Inc()
		return &Outcome{Body: cached, Cached: true}, nil
	}

	if err := a.inputGuard.Check(req.Text); err != nil {
		log.Info("input rejected", logger.Err(err))
		metrics.GuardRejections.WithLabelValues("input").Inc()
		return nil, err
	}

	result, err := a.triager.Triage(ctx, req.Text, req.UserID)
	if err != nil {
		log.Warn("triage failed, using defaults", logger.Err(err))
		result = &models.TriageResult{
			Classification: models.DefaultClassification(),
			Extracted:      models.DefaultExtractedFields(req.UserID),
		}
	}
	recordUsage(result)

	action, draft := a.propose(req, result)

	scan := a.outputGuard.Scan(draft, result.Classification.Confidence, action)
	if scan.Blocked {
		log.Error("output blocked", logger.String("reason", scan.Reason))
		metrics.GuardRejections.WithLabelValues("output").Inc()
		return nil, fmt.Errorf("%w: %s", guard.ErrOutputBlocked, scan.Reason)
	}
	draft = scan.RedactedDraft
	if scan.ActionOverride != nil {
		log.Info("action overridden for human review",
			logger.String("from", action.Tool),
			logger.String("to", scan.ActionOverride.Tool),
		)
		action = *scan.ActionOverride
	}

	resp := &models.WebhookResponse{
		Classification: result.Classification,
		Extracted:      result.Extracted,
		Action:         action,
		DraftResponse:  draft,
	}

	if a.needsApproval(action) {
		decision := &models.PendingDecision{
			PendingID:     uuid.New().String(),
			Reason:        action.RiskReason,
			UserID:        req.UserID,
			ExpiresAt:     time.Now().Add(a.cfg.Approval.TTL),
			Action:        action,
			DraftResponse: draft,
		}
		if err := a.pending.Put(ctx, decision); err != nil {
			return nil, fmt.Errorf("failed to defer action: %w", err)
		}
		a.logEvent(ctx, "pending_created", map[string]any{
			"pending_id": decision.PendingID,
			"reason":     decision.Reason,
			"tool":       action.Tool,
		})
		if err := a.notifier.NotifyApproval(ctx, decision); err != nil {
			log.Warn("approval notification failed", logger.Err(err))
		}
		metrics.WebhookOutcomes.WithLabelValues(models.StatusPending).Inc()
		metrics.PendingCreated.Inc()
		resp.Status = models.StatusPending
		resp.Pending = decision
		return a.finish(ctx, req, resp, log)
	}

	execResult, err := a.executor.Execute(ctx, &action, req.UserID, draft)
	if err != nil {
		return nil, err
	}
	resp.Status = models.StatusExecuted
	resp.ActionResult = execResult

	a.audit.Enqueue(&models.AuditLogEntry{
		Timestamp:  time.Now().UTC(),
		RequestID:  requestID,
		MessageID:  req.MessageID,
		UserHash:   models.HashUserID(req.UserID),
		Category:   result.Classification.Category,
		Urgency:    result.Classification.Urgency,
		Confidence: result.Classification.Confidence,
		Action:     action.Tool,
		Status:     models.AuditStatusExecuted,
		ApprovedBy: "auto",
		TicketID:   ticketIDFrom(execResult),
		LatencyMS:  time.Since(start).Milliseconds(),
		CostUSD:    result.CostUSD,
	})
	metrics.WebhookOutcomes.WithLabelValues(models.StatusExecuted).Inc()
	return a.finish(ctx, req, resp, log)
}

// finish serializes the response and caches it for replayed deliveries
func (a *Agent) finish(ctx context.Context, req *models.WebhookRequest, resp *models.WebhookResponse, log *logger.Logger) (*Outcome, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	if err := a.dedup.Set(ctx, req.MessageID, body); err != nil {
		log.Warn("dedup store failed", logger.Err(err))
	}
	return &Outcome{Response: resp, Body: body}, nil
}

// Approve resolves a pending decision. The pop is atomic: a decision can
// be resolved exactly once, by whichever concurrent caller wins.
func (a *Agent) Approve(ctx context.Context, req *models.ApproveRequest) (*models.ApproveResponse, error) {
	start := time.Now()
	decision, err := a.pending.Pop(ctx, req.PendingID)
	if err != nil {
		return nil, err
	}

	reviewer := req.Reviewer
	if reviewer == "" {
		reviewer = "reviewer"
	}
	log := a.logger.With(
		logger.String("pending_id", decision.PendingID),
		logger.String("reviewer", reviewer),
	)

	if !req.IsApproved() {
		log.Info("pending decision rejected")
		a.logEvent(ctx, "pending_rejected", map[string]any{
			"pending_id": decision.PendingID,
			"reviewer":   reviewer,
		})
		a.audit.Enqueue(auditForDecision(decision, models.AuditStatusRejected, reviewer, "", start))
		metrics.PendingResolved.WithLabelValues("rejected").Inc()
		return &models.ApproveResponse{
			Status:    models.StatusRejected,
			PendingID: decision.PendingID,
		}, nil
	}

	// The action runs on behalf of the user captured at proposal time,
	// never the reviewer.
	execResult, err := a.executor.Execute(ctx, &decision.Action, decision.UserID, decision.DraftResponse)
	if err != nil {
		return nil, err
	}

	log.Info("pending decision approved and executed")
	a.logEvent(ctx, "pending_approved", map[string]any{
		"pending_id": decision.PendingID,
		"reviewer":   reviewer,
		"tool":       decision.Action.Tool,
	})
	a.audit.Enqueue(auditForDecision(decision, models.AuditStatusApproved, reviewer, ticketIDFrom(execResult), start))
	metrics.PendingResolved.WithLabelValues("approved").Inc()

	return &models.ApproveResponse{
		Status:    models.StatusApproved,
		PendingID: decision.PendingID,
		Result:    execResult,
	}, nil
}

// GetPending returns a pending decision without consuming it
func (a *Agent) GetPending(ctx context.Context, pendingID string) (*models.PendingDecision, error) {
	return a.pending.Get(ctx, pendingID)
}

func (a *Agent) logEvent(ctx context.Context, eventType string, payload map[string]any) {
	if err := a.events.LogEvent(ctx, eventType, payload); err != nil {
		a.logger.Warn("failed to append event",
			logger.String("event_type", eventType),
			logger.Err(err),
		)
	}
}

func auditForDecision(d *models.PendingDecision, status, reviewer, ticketID string, start time.Time) *models.AuditLogEntry {
	return &models.AuditLogEntry{
		Timestamp:  time.Now().UTC(),
		RequestID:  d.PendingID,
		UserHash:   models.HashUserID(d.UserID),
		Category:   models.Category(d.Action.PayloadString("category")),
		Urgency:    models.Urgency(d.Action.PayloadString("urgency")),
		Action:     d.Action.Tool,
		Status:     status,
		ApprovedBy: reviewer,
		TicketID:   ticketID,
		LatencyMS:  time.Since(start).Milliseconds(),
	}
}

func ticketIDFrom(result map[string]any) string {
	switch t := result["ticket"].(type) {
	case *integrations.TicketResult:
		return t.TicketID
	case map[string]any:
		if s, ok := t["ticket_id"].(string); ok {
			return s
		}
	}
	return ""
}

func recordUsage(result *models.TriageResult) {
	if result.Usage.InputTokens > 0 {
		metrics.LLMTokensUsed.WithLabelValues("input").Add(float64(result.Usage.InputTokens))
	}
	if result.Usage.OutputTokens > 0 {
		metrics.LLMTokensUsed.WithLabelValues("output").Add(float64(result.Usage.OutputTokens))
	}
	if result.CostUSD > 0 {
		metrics.LLMCostUSD.Add(result.CostUSD)
	}
}
