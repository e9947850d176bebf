package models

// WebhookRequest is the inbound webhook payload
type WebhookRequest struct {
	RequestID string         `json:"request_id,omitempty"`
	MessageID string         `json:"message_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Text      string         `json:"text" validate:"required,min=1"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// MetadataString reads a string metadata field, empty when absent
func (r *WebhookRequest) MetadataString(key string) string {
	if r.Metadata == nil {
		return ""
	}
	if v, ok := r.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// Webhook response statuses
const (
	StatusExecuted = "executed"
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// WebhookResponse is returned by POST /webhook
type WebhookResponse struct {
	Status         string               `json:"status"`
	Classification ClassificationResult `json:"classification"`
	Extracted      ExtractedFields      `json:"extracted"`
	Action         ProposedAction       `json:"action"`
	DraftResponse  string               `json:"draft_response"`
	ActionResult   map[string]any       `json:"action_result,omitempty"`
	Pending        *PendingDecision     `json:"pending,omitempty"`
}

// ApproveRequest is the payload for POST /approve. Approved defaults to
// true when omitted.
type ApproveRequest struct {
	PendingID string `json:"pending_id" validate:"required"`
	Approved  *bool  `json:"approved,omitempty"`
	Reviewer  string `json:"reviewer,omitempty"`
}

// IsApproved resolves the approved flag with its default
func (r *ApproveRequest) IsApproved() bool {
	return r.Approved == nil || *r.Approved
}

// ApproveResponse is returned by POST /approve
type ApproveResponse struct {
	Status    string         `json:"status"`
	PendingID string         `json:"pending_id"`
	Result    map[string]any `json:"result,omitempty"`
}
