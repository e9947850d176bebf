package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/supportops/triage-gateway/internal/models"
	"github.com/supportops/triage-gateway/pkg/logger"
)

// ErrPendingNotFound is returned when a pending id was never created, was
// already resolved, or has expired
var ErrPendingNotFound = errors.New("pending decision not found")

const pendingKeyPrefix = "pending:"

// PendingStore keeps decisions awaiting approval in Redis with a TTL.
// The backing store is shared across processes: approval may arrive on a
// different instance than the one that created the entry.
type PendingStore struct {
	redis  Commands
	ttl    time.Duration
	logger *logger.Logger
}

// NewPendingStore creates a pending store with the configured approval TTL
func NewPendingStore(rdb Commands, ttl time.Duration, log *logger.Logger) *PendingStore {
	return &PendingStore{
		redis:  rdb,
		ttl:    ttl,
		logger: log,
	}
}

// Put persists a pending decision under its id. The Redis TTL bounds
// physical retention; the embedded absolute expiry is the authoritative
// cutoff checked on every read.
func (s *PendingStore) Put(ctx context.Context, decision *models.PendingDecision) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to encode pending decision: %w", err)
	}

	key := pendingKeyPrefix + decision.PendingID
	if err := s.redis.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store pending decision: %w", err)
	}
	return nil
}

// Pop atomically fetches and deletes a pending decision. GETDEL makes the
// retrieve-and-remove a single operation, so of N concurrent pops for one
// id exactly one succeeds and the rest observe ErrPendingNotFound. The
// expiry is double-checked after the fetch because the store TTL is
// coarser than the embedded timestamp.
func (s *PendingStore) Pop(ctx context.Context, pendingID string) (*models.PendingDecision, error) {
	raw, err := s.redis.GetDel(ctx, pendingKeyPrefix+pendingID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop pending decision: %w", err)
	}

	decision, err := s.decode(raw)
	if err != nil {
		return nil, err
	}
	if decision.Expired(time.Now()) {
		s.logger.Info("pending decision expired", logger.String("pending_id", pendingID))
		return nil, ErrPendingNotFound
	}
	return decision, nil
}

// Get reads a pending decision without consuming it, with the same expiry
// semantics as Pop. A record seen past its expiry is evicted lazily.
func (s *PendingStore) Get(ctx context.Context, pendingID string) (*models.PendingDecision, error) {
	key := pendingKeyPrefix + pendingID
	raw, err := s.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending decision: %w", err)
	}

	decision, err := s.decode(raw)
	if err != nil {
		return nil, err
	}
	if decision.Expired(time.Now()) {
		if delErr := s.redis.Del(ctx, key).Err(); delErr != nil {
			s.logger.Warn("failed to evict expired pending decision",
				logger.String("pending_id", pendingID),
				logger.Err(delErr),
			)
		}
		s.logger.Info("pending decision expired", logger.String("pending_id", pendingID))
		return nil, ErrPendingNotFound
	}
	return decision, nil
}

func (s *PendingStore) decode(raw string) (*models.PendingDecision, error) {
	var decision models.PendingDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return nil, fmt.Errorf("failed to decode pending decision: %w", err)
	}
	return &decision, nil
}
