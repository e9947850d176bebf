// Package audit persists triage outcomes through a bounded asynchronous
// pipeline. Producers never block on the sink: entries queue into a fixed
// channel and a single worker drains them, so a slow or throttled sink
// degrades audit completeness instead of request latency.
package audit

import (
	"context"
	"errors"

	"github.com/supportops/triage-gateway/internal/models"
)

// ErrThrottled marks a sink failure worth retrying. Sinks wrap rate-limit
// and transient backend errors with it; anything else fails the entry
// immediately.
var ErrThrottled = errors.New("audit sink throttled")

// Sink persists a single audit entry
type Sink interface {
	Write(ctx context.Context, entry *models.AuditLogEntry) error
}
