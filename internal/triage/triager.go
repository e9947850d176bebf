// Package triage turns raw support text into a classification and a
// structured entity bag. Implementations are interchangeable behind the
// Triager interface: a deterministic rule engine, an Anthropic tool-use
// loop, and an OpenAI fallback all satisfy the same contract.
package triage

import (
	"context"
	"fmt"

	"github.com/supportops/triage-gateway/internal/models"
	"github.com/supportops/triage-gateway/pkg/config"
	"github.com/supportops/triage-gateway/pkg/logger"
)

// Triager is the single-entry classification/extraction capability.
// Implementations must always return exactly one classification and one
// extraction, reducible to defaults (other/low/0.0) when no signal exists.
type Triager interface {
	Triage(ctx context.Context, text, userID string) (*models.TriageResult, error)
}

// New builds the configured triager implementation
func New(cfg *config.TriageConfig, log *logger.Logger) (Triager, error) {
	switch cfg.Provider {
	case "rules":
		return NewRulesTriager(), nil
	case "anthropic":
		return NewClaudeTriager(cfg, log)
	case "openai":
		return NewOpenAITriager(cfg, log)
	default:
		return nil, fmt.Errorf("unknown triage provider: %q", cfg.Provider)
	}
}
