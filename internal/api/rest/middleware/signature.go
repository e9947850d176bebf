package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/supportops/triage-gateway/pkg/logger"
)

const signatureHeader = "X-Webhook-Signature"

// WebhookSignature verifies the HMAC-SHA256 signature of inbound webhook
// bodies. The header carries "sha256=<hex>"; comparison is constant-time.
// With no secret configured the check is disabled.
func WebhookSignature(secret string, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				respondError(w, http.StatusBadRequest, "failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			header := r.Header.Get(signatureHeader)
			provided, ok := strings.CutPrefix(header, "sha256=")
			if !ok {
				log.Warn("webhook signature missing or malformed")
				respondError(w, http.StatusUnauthorized, "invalid signature")
				return
			}

			mac := hmac.New(sha256.New, []byte(secret))
			mac.Write(body)
			expected := hex.EncodeToString(mac.Sum(nil))

			if !hmac.Equal([]byte(expected), []byte(provided)) {
				log.Warn("webhook signature mismatch")
				respondError(w, http.StatusUnauthorized, "invalid signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
