package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultReviewerTokenTTL bounds how long a minted reviewer token stays
// valid
const DefaultReviewerTokenTTL = 12 * time.Hour

// ReviewerClaims carries the reviewer identity inside a signed token
type ReviewerClaims struct {
	Reviewer string `json:"reviewer"`
	jwt.RegisteredClaims
}

// IssueReviewerToken mints an HS256 token identifying a reviewer
func IssueReviewerToken(secret, reviewer string, ttl time.Duration) (string, error) {
	if reviewer == "" {
		return "", fmt.Errorf("reviewer name is required")
	}
	if ttl <= 0 {
		ttl = DefaultReviewerTokenTTL
	}
	now := time.Now()
	claims := &ReviewerClaims{
		Reviewer: reviewer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "triage-gateway",
			Subject:   reviewer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseReviewerToken validates a reviewer token and returns the reviewer
// name. Only HMAC signing methods are accepted.
func ParseReviewerToken(secret, raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &ReviewerClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*ReviewerClaims)
	if !ok || !token.Valid || claims.Reviewer == "" {
		return "", fmt.Errorf("invalid reviewer claims")
	}
	return claims.Reviewer, nil
}
