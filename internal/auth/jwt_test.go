package auth

import (
	"testing"
	"time"
)

func TestMintParseRoundTrip(t *testing.T) {
	m := NewJWTManager("okx-credit-score", "okx-credit-api", "test-key", time.Hour)

	token, sessionID, err := m.Mint("0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessionID == "" {
		t.Fatalf("expected session id")
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Address != "0xab5801a7d398351b8be11c439e05c5b3259aec9b" {
		t.Fatalf("unexpected address: %s", claims.Address)
	}
	if claims.SessionID != sessionID {
		t.Fatalf("session id mismatch")
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	m := NewJWTManager("iss", "aud", "key-a", time.Hour)
	other := NewJWTManager("iss", "aud", "key-b", time.Hour)

	token, _, _ := m.Mint("0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	if _, err := other.Parse(token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	m := NewJWTManager("iss-a", "aud", "key", time.Hour)
	other := NewJWTManager("iss-b", "aud", "key", time.Hour)

	token, _, _ := m.Mint("0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	if _, err := other.Parse(token); err == nil {
		t.Fatalf("expected issuer error")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := NewJWTManager("iss", "aud", "key", time.Nanosecond)

	token, _, _ := m.Mint("0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	time.Sleep(5 * time.Millisecond)
	if _, err := m.Parse(token); err == nil {
		t.Fatalf("expected expiry error")
	}
}
