package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/supportops/triage-gateway/pkg/config"
	"github.com/supportops/triage-gateway/pkg/logger"
)

func okHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookSignatureValid(t *testing.T) {
	var hit bool
	handler := WebhookSignature("topsecret", logger.NewNop())(okHandler(&hit))

	body := `{"text":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("X-Webhook-Signature", sign("topsecret", body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hit)
}

func TestWebhookSignatureMismatch(t *testing.T) {
	var hit bool
	handler := WebhookSignature("topsecret", logger.NewNop())(okHandler(&hit))

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"text":"hello"}`))
	req.Header.Set("X-Webhook-Signature", sign("wrong-secret", `{"text":"hello"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, hit)
}

func TestWebhookSignatureMissingHeader(t *testing.T) {
	var hit bool
	handler := WebhookSignature("topsecret", logger.NewNop())(okHandler(&hit))

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, hit)
}

func TestWebhookSignatureDisabledWithoutSecret(t *testing.T) {
	var hit bool
	handler := WebhookSignature("", logger.NewNop())(okHandler(&hit))

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hit)
}

func TestWebhookSignaturePreservesBody(t *testing.T) {
	body := `{"text":"payload to re-read"}`
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, len(body))
		n, _ := r.Body.Read(b)
		seen = string(b[:n])
		w.WriteHeader(http.StatusOK)
	})
	handler := WebhookSignature("topsecret", logger.NewNop())(inner)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("X-Webhook-Signature", sign("topsecret", body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, body, seen)
}

func TestApprovalAuthPlainSecret(t *testing.T) {
	cfg := &config.SecurityConfig{ApproveSecret: "letmein"}
	var hit bool
	handler := ApprovalAuth(cfg, logger.NewNop())(okHandler(&hit))

	req := httptest.NewRequest(http.MethodPost, "/approve", nil)
	req.Header.Set("X-Approve-Secret", "letmein")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	hit = false
	req = httptest.NewRequest(http.MethodPost, "/approve", nil)
	req.Header.Set("X-Approve-Secret", "guess")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, hit)
}

func TestApprovalAuthBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := &config.SecurityConfig{ApproveSecretHash: string(hash)}
	var hit bool
	handler := ApprovalAuth(cfg, logger.NewNop())(okHandler(&hit))

	req := httptest.NewRequest(http.MethodPost, "/approve", nil)
	req.Header.Set("X-Approve-Secret", "letmein")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hit)
}

func TestApprovalAuthReviewerJWT(t *testing.T) {
	cfg := &config.SecurityConfig{ReviewerJWTSecret: "jwt-signing-key"}
	var reviewer string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reviewer = ReviewerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := ApprovalAuth(cfg, logger.NewNop())(inner)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"reviewer": "alice",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("jwt-signing-key"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/approve", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", reviewer)
}

func TestApprovalAuthRejectsBadJWT(t *testing.T) {
	cfg := &config.SecurityConfig{ReviewerJWTSecret: "jwt-signing-key"}
	var hit bool
	handler := ApprovalAuth(cfg, logger.NewNop())(okHandler(&hit))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"reviewer": "mallory"})
	signed, err := token.SignedString([]byte("other-key"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/approve", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, hit)
}

func TestApprovalAuthDisabledWithoutCredentials(t *testing.T) {
	cfg := &config.SecurityConfig{}
	var hit bool
	handler := ApprovalAuth(cfg, logger.NewNop())(okHandler(&hit))

	req := httptest.NewRequest(http.MethodPost, "/approve", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hit)
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: make(map[string]int64)}
}

func (f *fakeCounter) Incr(_ context.Context, key string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCounter) Expire(_ context.Context, _ string, _ time.Duration) error {
	return f.err
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	counter := newFakeCounter()
	rl := NewRateLimiter(counter, 60, 10, logger.NewNop())
	var hit bool
	handler := rl.Middleware()(okHandler(&hit))

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"user_id":"user-1","text":"hi"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), counter.counts["ratelimit:user:user-1"])
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	counter := newFakeCounter()
	counter.counts["ratelimit:user:user-1"] = 60

	rl := NewRateLimiter(counter, 60, 10, logger.NewNop())
	var hit bool
	handler := rl.Middleware()(okHandler(&hit))

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"user_id":"user-1","text":"hi"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, hit)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiterBurstWindow(t *testing.T) {
	counter := newFakeCounter()
	counter.counts["ratelimit_burst:user:user-1"] = 10

	rl := NewRateLimiter(counter, 60, 10, logger.NewNop())
	var hit bool
	handler := rl.Middleware()(okHandler(&hit))

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"user_id":"user-1","text":"hi"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, hit)
}

func TestRateLimiterFallsBackWhenRedisDown(t *testing.T) {
	counter := newFakeCounter()
	counter.err = errors.New("connection refused")

	rl := NewRateLimiter(counter, 60, 10, logger.NewNop())
	var hit bool
	handler := rl.Middleware()(okHandler(&hit))

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"user_id":"user-1","text":"hi"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// Local token bucket still admits the request
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hit)
}

func TestIdentifyPrefersUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"user_id":"u-9","text":"x"}`))
	assert.Equal(t, "user:u-9", identify(req))

	// The body must still be readable downstream
	var peek [64]byte
	n, _ := req.Body.Read(peek[:])
	assert.Contains(t, string(peek[:n]), "u-9")
}

func TestIdentifyFallsBackToClientAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`not json`))
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "ip:203.0.113.9", identify(req))
}
