package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	signed, err := GenerateToken(secret, 42, 7, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	userID, householdID, err := ParseToken(secret, signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if userID != 42 {
		t.Errorf("userID = %d, want 42", userID)
	}
	if householdID != 7 {
		t.Errorf("householdID = %d, want 7", householdID)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	signed, err := GenerateToken([]byte("secret-a"), 1, 1, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := ParseToken([]byte("secret-b"), signed); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestTokenExpired(t *testing.T) {
	signed, err := GenerateToken([]byte("secret"), 1, 1, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := ParseToken([]byte("secret"), signed); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestTokenGarbage(t *testing.T) {
	if _, _, err := ParseToken([]byte("secret"), "not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}
