package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Category is the closed set of support request categories
type Category string

const (
	CategoryBilling       Category = "billing"
	CategoryAccountAccess Category = "account_access"
	CategoryBugReport     Category = "bug_report"
	CategoryCheaterReport Category = "cheater_report"
	CategoryGameplay      Category = "gameplay_question"
	CategoryOther         Category = "other"
)

// Categories lists every valid category
var Categories = []Category{
	CategoryBilling,
	CategoryAccountAccess,
	CategoryBugReport,
	CategoryCheaterReport,
	CategoryGameplay,
	CategoryOther,
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Urgency is the closed set of urgency levels
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Valid reports whether u is a known urgency level
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// ClassificationResult is the outcome of request classification.
// Immutable once produced.
type ClassificationResult struct {
	Category   Category `json:"category"`
	Urgency    Urgency  `json:"urgency"`
	Confidence float64  `json:"confidence"`
}

// DefaultClassification is returned when no signal is found
func DefaultClassification() ClassificationResult {
	return ClassificationResult{
		Category:   CategoryOther,
		Urgency:    UrgencyLow,
		Confidence: 0.0,
	}
}

// ExtractedFields holds structured entities pulled from free-form text
type ExtractedFields struct {
	UserID           string   `json:"user_id,omitempty"`
	Platform         string   `json:"platform"`
	GameTitle        string   `json:"game_title,omitempty"`
	TransactionID    string   `json:"transaction_id,omitempty"`
	ErrorCode        string   `json:"error_code,omitempty"`
	ReportedUsername string   `json:"reported_username,omitempty"`
	Keywords         []string `json:"keywords"`
}

// DefaultExtractedFields returns an empty extraction for the given user
func DefaultExtractedFields(userID string) ExtractedFields {
	return ExtractedFields{
		UserID:   userID,
		Platform: "unknown",
		Keywords: []string{},
	}
}

// ProposedAction is the action the agent proposes before execution. An
// override produces a new value; an action is never mutated after it has
// been handed to another component.
type ProposedAction struct {
	Tool       string         `json:"tool"`
	Payload    map[string]any `json:"payload"`
	Risky      bool           `json:"risky"`
	RiskReason string         `json:"risk_reason,omitempty"`
}

// PayloadString reads a string payload field, empty when absent or not a string
func (a ProposedAction) PayloadString(key string) string {
	if v, ok := a.Payload[key].(string); ok {
		return v
	}
	return ""
}

// WithOverride returns a copy of the action with the tool, risky flag and
// reason replaced. The receiver is left untouched so components already
// holding it keep a consistent view.
func (a ProposedAction) WithOverride(tool, reason string) ProposedAction {
	payload := make(map[string]any, len(a.Payload))
	for k, v := range a.Payload {
		payload[k] = v
	}
	return ProposedAction{
		Tool:       tool,
		Payload:    payload,
		Risky:      true,
		RiskReason: reason,
	}
}

// PendingDecision is a proposed action waiting for human approval
type PendingDecision struct {
	PendingID     string         `json:"pending_id"`
	Reason        string         `json:"reason"`
	UserID        string         `json:"user_id,omitempty"`
	ExpiresAt     time.Time      `json:"expires_at"`
	Action        ProposedAction `json:"action"`
	DraftResponse string         `json:"draft_response"`
}

// Expired reports whether the decision is past its expiry at the given time
func (p *PendingDecision) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Audit statuses
const (
	AuditStatusExecuted = "executed"
	AuditStatusApproved = "approved"
	AuditStatusRejected = "rejected"
)

// AuditLogEntry is one immutable compliance record. UserHash is a one-way
// hash of the user identifier; the raw identifier never reaches the audit
// trail.
type AuditLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
	MessageID  string    `json:"message_id,omitempty"`
	UserHash   string    `json:"user_id,omitempty"`
	Category   Category  `json:"category"`
	Urgency    Urgency   `json:"urgency"`
	Confidence float64   `json:"confidence"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	ApprovedBy string    `json:"approved_by"`
	TicketID   string    `json:"ticket_id,omitempty"`
	LatencyMS  int64     `json:"latency_ms"`
	CostUSD    float64   `json:"cost_usd"`
}

// HashUserID returns the hex SHA-256 of a user identifier, or empty for an
// empty identifier
func HashUserID(userID string) string {
	if userID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}

// TokenUsage accumulates LLM token counts across a tool-use loop
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates another usage sample
func (u *TokenUsage) Add(input, output int) {
	u.InputTokens += input
	u.OutputTokens += output
}

// TriageResult is the triager contract output: exactly one classification
// and one extraction per request, plus an optional model-provided draft
type TriageResult struct {
	Classification ClassificationResult `json:"classification"`
	Extracted      ExtractedFields      `json:"extracted"`
	DraftText      string               `json:"draft_text,omitempty"`
	Usage          TokenUsage           `json:"usage"`
	CostUSD        float64              `json:"cost_usd"`
}
