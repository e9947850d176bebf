package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/supportops/triage-gateway/internal/agent"
	"github.com/supportops/triage-gateway/internal/api/rest/middleware"
	"github.com/supportops/triage-gateway/internal/integrations"
	"github.com/supportops/triage-gateway/internal/models"
	"github.com/supportops/triage-gateway/internal/store"
	"github.com/supportops/triage-gateway/pkg/logger"
	"github.com/supportops/triage-gateway/pkg/validator"
)

// ApprovalHandler resolves and inspects pending decisions
type ApprovalHandler struct {
	logger   *logger.Logger
	pipeline *agent.Agent
	validate *validator.Validator
}

// NewApprovalHandler creates a new approval handler
func NewApprovalHandler(log *logger.Logger, pipeline *agent.Agent, validate *validator.Validator) *ApprovalHandler {
	return &ApprovalHandler{
		logger:   log,
		pipeline: pipeline,
		validate: validate,
	}
}

// Approve resolves a pending decision, executing or discarding it
func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req models.ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Reviewer == "" {
		req.Reviewer = middleware.ReviewerFromContext(r.Context())
	}

	resp, err := h.pipeline.Approve(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrPendingNotFound):
			respondError(w, http.StatusNotFound, "pending decision not found")
		case errors.Is(err, integrations.ErrUnavailable):
			respondError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
		default:
			h.logger.Errorf("approval failed: %v", err)
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Get returns a pending decision without consuming it
func (h *ApprovalHandler) Get(w http.ResponseWriter, r *http.Request) {
	pendingID := chi.URLParam(r, "id")
	if pendingID == "" {
		respondError(w, http.StatusBadRequest, "pending id is required")
		return
	}

	decision, err := h.pipeline.GetPending(r.Context(), pendingID)
	if err != nil {
		if errors.Is(err, store.ErrPendingNotFound) {
			respondError(w, http.StatusNotFound, "pending decision not found")
			return
		}
		h.logger.Errorf("pending lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, decision)
}
