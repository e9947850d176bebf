package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the cost factor for approve-secret hashing
const bcryptCost = 12

// HashApproveSecret hashes an approval secret for storage in
// APPROVE_SECRET_HASH
func HashApproveSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifyApproveSecret checks a provided secret against the configured
// credential. The bcrypt hash takes precedence over the plain secret;
// the plain comparison is constant-time.
func VerifyApproveSecret(provided, plain, hash string) bool {
	if hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(provided)) == nil
	}
	if plain != "" {
		return subtle.ConstantTimeCompare([]byte(plain), []byte(provided)) == 1
	}
	return false
}
