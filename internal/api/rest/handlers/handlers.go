package handlers

import (
	"github.com/supportops/triage-gateway/internal/agent"
	"github.com/supportops/triage-gateway/pkg/logger"
	"github.com/supportops/triage-gateway/pkg/validator"
)

// Handlers aggregates all HTTP handlers
type Handlers struct {
	Health   *HealthHandler
	Webhook  *WebhookHandler
	Approval *ApprovalHandler
}

// HealthCheckers holds all health check dependencies
type HealthCheckers struct {
	DB    HealthChecker
	Redis HealthChecker
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	log *logger.Logger,
	pipeline *agent.Agent,
	healthCheckers *HealthCheckers,
	version string,
) *Handlers {
	validate := validator.New()

	return &Handlers{
		Health:   NewHealthHandler(log, healthCheckers.DB, healthCheckers.Redis, version),
		Webhook:  NewWebhookHandler(log, pipeline, validate),
		Approval: NewApprovalHandler(log, pipeline, validate),
	}
}
