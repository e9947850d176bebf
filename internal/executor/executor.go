// Package executor dispatches approved actions to their side-effecting
// handlers. The registry is the only place tool names bind to behavior;
// everything upstream treats actions as inert data.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/supportops/triage-gateway/internal/models"
	"github.com/supportops/triage-gateway/pkg/logger"
	"github.com/supportops/triage-gateway/pkg/metrics"
)

// ErrUnknownTool is returned when an action names a tool with no
// registered handler. Reaching it means a proposal or an override slipped
// past validation, so callers log it loudly.
var ErrUnknownTool = errors.New("unknown tool")

// Handler executes one tool. The draft is the user-facing reply text
// resolved by the caller at execution time.
type Handler func(ctx context.Context, action *models.ProposedAction, userID, draft string) (map[string]any, error)

// EventLogger appends pipeline events; failures are logged, never fatal
type EventLogger interface {
	LogEvent(ctx context.Context, eventType string, payload any) error
}

// Executor maps tool names to handlers
type Executor struct {
	handlers map[string]Handler
	events   EventLogger
	logger   *logger.Logger
}

// New creates an executor with an empty registry
func New(events EventLogger, log *logger.Logger) *Executor {
	return &Executor{
		handlers: make(map[string]Handler),
		events:   events,
		logger:   log,
	}
}

// Register binds a tool name to a handler, replacing any previous binding
func (e *Executor) Register(tool string, handler Handler) {
	e.handlers[tool] = handler
}

// Execute runs the handler registered for the action's tool. Every
// dispatch of a registered tool is recorded in the event log, success or
// not; the record states what was attempted, not what the caller hoped.
func (e *Executor) Execute(ctx context.Context, action *models.ProposedAction, userID, draft string) (map[string]any, error) {
	handler, ok := e.handlers[action.Tool]
	if !ok {
		e.logger.Error("action names an unregistered tool",
			logger.String("tool", action.Tool),
		)
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, action.Tool)
	}

	start := time.Now()
	result, err := handler(ctx, action, userID, draft)
	metrics.ActionExecutionDuration.WithLabelValues(action.Tool).Observe(time.Since(start).Seconds())

	event := map[string]any{
		"tool":      action.Tool,
		"user_hash": models.HashUserID(userID),
		"success":   err == nil,
	}
	if logErr := e.events.LogEvent(ctx, "action_executed", event); logErr != nil {
		e.logger.Warn("failed to append execution event", logger.Err(logErr))
	}

	if err != nil {
		e.logger.Error("action execution failed",
			logger.String("tool", action.Tool),
			logger.Err(err),
		)
		return nil, err
	}
	e.logger.Info("action executed", logger.String("tool", action.Tool))
	return result, nil
}
