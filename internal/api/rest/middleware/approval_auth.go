package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/supportops/triage-gateway/pkg/auth"
	"github.com/supportops/triage-gateway/pkg/config"
	"github.com/supportops/triage-gateway/pkg/logger"
)

type contextKey string

// ReviewerKey carries the authenticated reviewer identity
const ReviewerKey contextKey = "reviewer"

// ApprovalAuth guards the approval endpoints. Either a shared secret in
// X-Approve-Secret (compared plain or against a bcrypt hash) or a signed
// reviewer JWT is accepted; with nothing configured the check is
// disabled.
func ApprovalAuth(cfg *config.SecurityConfig, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.ApproveSecret == "" && cfg.ApproveSecretHash == "" && cfg.ReviewerJWTSecret == "" {
				next.ServeHTTP(w, r)
				return
			}

			if secret := r.Header.Get("X-Approve-Secret"); secret != "" {
				if auth.VerifyApproveSecret(secret, cfg.ApproveSecret, cfg.ApproveSecretHash) {
					next.ServeHTTP(w, r)
					return
				}
				log.Warn("approval secret mismatch")
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if cfg.ReviewerJWTSecret != "" {
				if raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
					if reviewer, err := auth.ParseReviewerToken(cfg.ReviewerJWTSecret, raw); err == nil {
						ctx := context.WithValue(r.Context(), ReviewerKey, reviewer)
						next.ServeHTTP(w, r.WithContext(ctx))
						return
					}
				}
			}

			log.Warn("approval request without valid credentials")
			respondError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

// ReviewerFromContext returns the JWT-authenticated reviewer, if any
func ReviewerFromContext(ctx context.Context) string {
	reviewer, _ := ctx.Value(ReviewerKey).(string)
	return reviewer
}
