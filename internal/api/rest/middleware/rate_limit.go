package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/supportops/triage-gateway/pkg/logger"
	"github.com/supportops/triage-gateway/pkg/metrics"
)

// Counter is the Redis surface the rate limiter needs
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// RateLimiter enforces a per-user fixed-window limit in Redis so the
// window is shared across instances. When Redis is unreachable it falls
// back to an in-process token bucket rather than failing open.
type RateLimiter struct {
	counter  Counter
	rpm      int
	burst    int
	logger   *logger.Logger
	mu       sync.Mutex
	fallback map[string]*rate.Limiter
}

// NewRateLimiter creates a rate limiter with the configured per-minute
// limit and 10-second burst limit
func NewRateLimiter(counter Counter, rpm, burst int, log *logger.Logger) *RateLimiter {
	return &RateLimiter{
		counter:  counter,
		rpm:      rpm,
		burst:    burst,
		logger:   log,
		fallback: make(map[string]*rate.Limiter),
	}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := identify(r)

			allowed, err := rl.allow(r.Context(), identifier)
			if err != nil {
				metrics.RedisOperationErrors.Inc()
				rl.logger.Warn("rate limit backend unavailable, using local limiter", zap.Error(err))
				allowed = rl.allowLocal(identifier)
			}

			if !allowed {
				rl.logger.Warn("rate limit exceeded",
					zap.String("identifier", identifier),
					zap.String("path", r.URL.Path),
				)
				metrics.RateLimitExceeded.Inc()
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.rpm))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", "60")
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// allow checks both the per-minute window and the short burst window
func (rl *RateLimiter) allow(ctx context.Context, identifier string) (bool, error) {
	windowKey := "ratelimit:" + identifier
	count, err := rl.counter.Incr(ctx, windowKey)
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := rl.counter.Expire(ctx, windowKey, time.Minute); err != nil {
			return false, err
		}
	}
	if count > int64(rl.rpm) {
		return false, nil
	}

	burstKey := "ratelimit_burst:" + identifier
	burstCount, err := rl.counter.Incr(ctx, burstKey)
	if err != nil {
		return false, err
	}
	if burstCount == 1 {
		if err := rl.counter.Expire(ctx, burstKey, 10*time.Second); err != nil {
			return false, err
		}
	}
	return burstCount <= int64(rl.burst), nil
}

func (rl *RateLimiter) allowLocal(identifier string) bool {
	rl.mu.Lock()
	limiter, ok := rl.fallback[identifier]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(rl.rpm)/60.0), rl.burst)
		rl.fallback[identifier] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}

// identify keys the limit on the webhook's user id when the body carries
// one, falling back to the client address. The body is restored for the
// handler.
func identify(r *http.Request) string {
	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err == nil {
			rest, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(append(body, rest...)))
			var peek struct {
				UserID string `json:"user_id"`
			}
			if json.Unmarshal(body, &peek) == nil && peek.UserID != "" {
				return fmt.Sprintf("user:%s", peek.UserID)
			}
		}
	}

	ip := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip = forwarded
	} else if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		ip = realIP
	}
	return fmt.Sprintf("ip:%s", ip)
}
