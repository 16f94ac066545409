// Package auth provides authentication primitives for the Licope backend:
// bcrypt password hashing/verification and JWT session token creation/verification.
// See internal/middleware/auth.go for the request-time authentication logic that
// uses these primitives.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost is used when the configured cost is out of range
	DefaultBcryptCost = 12

	// MinPasswordLength is enforced at password set/change time
	MinPasswordLength = 8
)

// HashPassword hashes a plaintext password with bcrypt at the given cost.
// A cost outside bcrypt's valid range falls back to DefaultBcryptCost.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashBytes), nil
}

// VerifyPassword checks a plaintext password against a stored bcrypt hash.
func VerifyPassword(password, storedHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password))
	return err == nil
}

// ExtractBearerToken extracts the token from an Authorization header.
// Expected format: "Bearer eyJhbGciOi..."
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is empty")
	}

	// Check if it starts with "Bearer "
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("authorization header must start with 'Bearer '")
	}

	// Extract the token (remove "Bearer " prefix)
	token := strings.TrimPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)

	if token == "" {
		return "", errors.New("token is empty after Bearer prefix")
	}

	return token, nil
}
