package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/supportops/triage-gateway/internal/agent"
	"github.com/supportops/triage-gateway/internal/guard"
	"github.com/supportops/triage-gateway/internal/integrations"
	"github.com/supportops/triage-gateway/internal/models"
	"github.com/supportops/triage-gateway/pkg/logger"
	"github.com/supportops/triage-gateway/pkg/validator"
)

// WebhookHandler handles inbound support webhooks
type WebhookHandler struct {
	logger   *logger.Logger
	pipeline *agent.Agent
	validate *validator.Validator
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(log *logger.Logger, pipeline *agent.Agent, validate *validator.Validator) *WebhookHandler {
	return &WebhookHandler{
		logger:   log,
		pipeline: pipeline,
		validate: validate,
	}
}

// Handle runs the triage pipeline for one webhook delivery
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req models.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.pipeline.ProcessWebhook(r.Context(), &req)
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(outcome.Body)
}

// respondPipelineError maps pipeline failures onto the HTTP surface.
// Client-caused rejections carry their reason; everything else is
// generic, with detail kept in the logs.
func (h *WebhookHandler) respondPipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, guard.ErrInputRejected):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, integrations.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		h.logger.Errorf("webhook processing failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
