package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	t.Run("valid password hashes", func(t *testing.T) {
		hash, err := HashPassword("correct horse battery", bcrypt.MinCost)
		if err != nil {
			t.Fatalf("HashPassword() error: %v", err)
		}
		if hash == "" {
			t.Error("HashPassword() returned empty hash")
		}
		if !strings.HasPrefix(hash, "$2a$") && !strings.HasPrefix(hash, "$2b$") {
			t.Errorf("HashPassword() hash = %q, want bcrypt format", hash)
		}
	})

	t.Run("short password is rejected", func(t *testing.T) {
		if _, err := HashPassword("short", bcrypt.MinCost); err == nil {
			t.Error("HashPassword() expected error for password shorter than minimum, got nil")
		}
	})

	t.Run("out-of-range cost falls back to default", func(t *testing.T) {
		hash, err := HashPassword("a-long-enough-password", 99)
		if err != nil {
			t.Fatalf("HashPassword() error: %v", err)
		}
		cost, err := bcrypt.Cost([]byte(hash))
		if err != nil {
			t.Fatalf("bcrypt.Cost() error: %v", err)
		}
		if cost != DefaultBcryptCost {
			t.Errorf("hash cost = %d, want %d", cost, DefaultBcryptCost)
		}
	})

	t.Run("two hashes of same password differ", func(t *testing.T) {
		h1, _ := HashPassword("same-password-here", bcrypt.MinCost)
		h2, _ := HashPassword("same-password-here", bcrypt.MinCost)
		if h1 == h2 {
			t.Error("HashPassword() produced identical hashes for the same password (salt missing?)")
		}
	})
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}

	t.Run("correct password verifies", func(t *testing.T) {
		if !VerifyPassword("correct horse battery", hash) {
			t.Error("VerifyPassword() returned false for correct password")
		}
	})

	t.Run("wrong password does not verify", func(t *testing.T) {
		if VerifyPassword("wrong password here", hash) {
			t.Error("VerifyPassword() returned true for wrong password")
		}
	})

	t.Run("empty password does not verify", func(t *testing.T) {
		if VerifyPassword("", hash) {
			t.Error("VerifyPassword() returned true for empty password")
		}
	})

	t.Run("empty hash does not verify", func(t *testing.T) {
		if VerifyPassword("some-password", "") {
			t.Error("VerifyPassword() returned true for empty hash")
		}
	})
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid bearer token", "Bearer eyJabc123xyz", "eyJabc123xyz", false},
		{"bearer with extra spaces", "Bearer  eyJabc123 ", "eyJabc123", false},
		{"empty header", "", "", true},
		{"missing Bearer prefix", "eyJabc123", "", true},
		{"Basic auth scheme", "Basic dXNlcjpwYXNz", "", true},
		{"Bearer with no token", "Bearer ", "", true},
		{"Bearer with only spaces", "Bearer    ", "", true},
		{"lowercase bearer rejected", "bearer eyJabc123", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBearerToken(tt.header)
			if (err != nil) != tt.wantErr {
				t.Errorf("ExtractBearerToken(%q) error = %v, wantErr %v", tt.header, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ExtractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
