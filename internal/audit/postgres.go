package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/supportops/triage-gateway/internal/models"
)

// PostgresSink appends audit entries to the audit_log table
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink creates a sink over the shared database
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Write inserts one audit entry. Transient connection failures are
// surfaced as throttled so the worker retries them.
func (s *PostgresSink) Write(ctx context.Context, entry *models.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (
			ts, request_id, message_id, user_hash, category, urgency,
			confidence, action, status, approved_by, ticket_id, latency_ms, cost_usd
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.db.ExecContext(ctx, query,
		entry.Timestamp,
		entry.RequestID,
		entry.MessageID,
		entry.UserHash,
		entry.Category,
		entry.Urgency,
		entry.Confidence,
		entry.Action,
		entry.Status,
		entry.ApprovedBy,
		entry.TicketID,
		entry.LatencyMS,
		entry.CostUSD,
	)
	if err != nil {
		if isTransient(err) {
			return fmt.Errorf("%w: %v", ErrThrottled, err)
		}
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// isTransient reports whether the failure is a connectivity or load
// condition rather than a bad row
func isTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 53: insufficient resources; class 08: connection exceptions
		class := pqErr.Code.Class()
		return class == "53" || class == "08"
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "broken pipe")
}
