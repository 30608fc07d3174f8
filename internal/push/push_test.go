package push

import (
	"encoding/base64"
	"testing"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	if pub == "" {
		t.Error("expected non-empty public key")
	}
	if priv == "" {
		t.Error("expected non-empty private key")
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	// Private key should be base64url-encoded, 32 bytes P-256 scalar
	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

func TestServiceConfigured(t *testing.T) {
	if NewService("", "").Configured() {
		t.Error("empty keys must not be configured")
	}
	if !NewService("pub", "priv").Configured() {
		t.Error("expected configured service")
	}
}

func TestReminderDedupResetsDaily(t *testing.T) {
	s := &Scheduler{sent: make(map[int64]struct{})}

	if !s.shouldRemind(1, "2026-08-28") {
		t.Fatal("first reminder suppressed")
	}
	if s.shouldRemind(1, "2026-08-28") {
		t.Fatal("same-day duplicate allowed")
	}
	if !s.shouldRemind(2, "2026-08-28") {
		t.Fatal("second household suppressed")
	}

	// Day rollover drops yesterday's entries instead of accumulating them.
	if !s.shouldRemind(1, "2026-08-29") {
		t.Fatal("next-day reminder suppressed")
	}
	if len(s.sent) != 1 {
		t.Fatalf("sent entries = %d after rollover, want 1", len(s.sent))
	}
}
