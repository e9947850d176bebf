package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/supportops/triage-gateway/internal/models"
	"github.com/supportops/triage-gateway/pkg/logger"
	"github.com/supportops/triage-gateway/pkg/metrics"
)

// Worker drains audit entries from a bounded queue into a sink.
//
// Enqueue never blocks: when the queue is full the newest entry is
// dropped with a warning. Throttled sink writes are retried a bounded
// number of times with exponential backoff; a still-failing entry is
// dropped so one poisoned write cannot stall the queue.
type Worker struct {
	sink       Sink
	queue      chan *models.AuditLogEntry
	maxRetries int
	retryDelay time.Duration
	logger     *logger.Logger

	stopOnce sync.Once
	done     chan struct{}
}

// NewWorker creates an audit worker with a queue of the given capacity
func NewWorker(sink Sink, queueSize, maxRetries int, retryDelay time.Duration, log *logger.Logger) *Worker {
	return &Worker{
		sink:       sink,
		queue:      make(chan *models.AuditLogEntry, queueSize),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     log,
		done:       make(chan struct{}),
	}
}

// Start launches the single drain goroutine
func (w *Worker) Start() {
	go w.run()
}

// Enqueue submits an entry without blocking. Returns false when the entry
// was dropped because the queue is full.
func (w *Worker) Enqueue(entry *models.AuditLogEntry) bool {
	select {
	case w.queue <- entry:
		metrics.AuditQueueDepth.Set(float64(len(w.queue)))
		return true
	default:
		w.logger.Warn("audit queue full, dropping entry",
			logger.String("request_id", entry.RequestID),
			logger.String("status", entry.Status),
		)
		metrics.AuditEntriesDropped.Inc()
		return false
	}
}

// Stop closes the queue and waits for the worker to drain it
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.queue)
	})
	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)
	for entry := range w.queue {
		w.write(entry)
		metrics.AuditQueueDepth.Set(float64(len(w.queue)))
	}
}

func (w *Worker) write(entry *models.AuditLogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	delay := w.retryDelay
	for attempt := 0; ; attempt++ {
		err := w.sink.Write(ctx, entry)
		if err == nil {
			metrics.AuditEntriesWritten.Inc()
			return
		}
		if !errors.Is(err, ErrThrottled) || attempt >= w.maxRetries {
			w.logger.Error("audit write failed, dropping entry",
				logger.String("request_id", entry.RequestID),
				logger.Int("attempts", attempt+1),
				logger.Err(err),
			)
			metrics.AuditEntriesDropped.Inc()
			return
		}
		w.logger.Warn("audit sink throttled, retrying",
			logger.String("request_id", entry.RequestID),
			logger.Int("attempt", attempt+1),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			w.logger.Error("audit write timed out", logger.String("request_id", entry.RequestID))
			metrics.AuditEntriesDropped.Inc()
			return
		}
		delay *= 2
	}
}
