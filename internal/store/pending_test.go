package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportops/triage-gateway/internal/models"
	"github.com/supportops/triage-gateway/pkg/logger"
)

func newPendingStore(t *testing.T) (*PendingStore, *fakeRedis) {
	t.Helper()
	rdb := newFakeRedis()
	return NewPendingStore(rdb, time.Hour, logger.NewNop()), rdb
}

func sampleDecision(id string, expiresAt time.Time) *models.PendingDecision {
	return &models.PendingDecision{
		PendingID: id,
		Reason:    "category \"billing\" requires approval",
		UserID:    "user-123",
		ExpiresAt: expiresAt,
		Action: models.ProposedAction{
			Tool: "create_ticket_and_reply",
			Payload: map[string]any{
				"title":    "[billing] support request",
				"reply_to": "user-123",
			},
			Risky:      true,
			RiskReason: "category \"billing\" requires approval",
		},
		DraftResponse: "Thanks for reporting this payment issue. We are reviewing it and will update you shortly.",
	}
}

func TestPendingStorePutGetRoundTrip(t *testing.T) {
	s, _ := newPendingStore(t)
	ctx := context.Background()

	original := sampleDecision("p-1", time.Now().Add(time.Hour))
	require.NoError(t, s.Put(ctx, original))

	got, err := s.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, original.PendingID, got.PendingID)
	assert.Equal(t, original.UserID, got.UserID)
	assert.Equal(t, original.Action.Tool, got.Action.Tool)
	assert.Equal(t, original.DraftResponse, got.DraftResponse)

	// A non-destructive read leaves the decision in place
	_, err = s.Get(ctx, "p-1")
	require.NoError(t, err)
}

func TestPendingStorePopConsumes(t *testing.T) {
	s, _ := newPendingStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sampleDecision("p-2", time.Now().Add(time.Hour))))

	_, err := s.Pop(ctx, "p-2")
	require.NoError(t, err)

	_, err = s.Pop(ctx, "p-2")
	assert.ErrorIs(t, err, ErrPendingNotFound)
}

func TestPendingStorePopUnknown(t *testing.T) {
	s, _ := newPendingStore(t)

	_, err := s.Pop(context.Background(), "never-created")
	assert.ErrorIs(t, err, ErrPendingNotFound)
}

func TestPendingStoreConcurrentPopExactlyOne(t *testing.T) {
	s, _ := newPendingStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sampleDecision("p-race", time.Now().Add(time.Hour))))

	const workers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := s.Pop(ctx, "p-race"); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestPendingStoreExpiredNeverReturned(t *testing.T) {
	s, rdb := newPendingStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sampleDecision("p-old", time.Now().Add(-time.Minute))))

	_, err := s.Get(ctx, "p-old")
	assert.ErrorIs(t, err, ErrPendingNotFound)

	// The stale record was evicted on read
	_, ok := rdb.data["pending:p-old"]
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, sampleDecision("p-old2", time.Now().Add(-time.Minute))))
	_, err = s.Pop(ctx, "p-old2")
	assert.ErrorIs(t, err, ErrPendingNotFound)
}
