package token

import (
	"errors"
	"testing"
	"time"
)

func TestSigner_RoundTrip(t *testing.T) {
	s := NewSigner("secret", "taskmarket")
	raw, err := s.Sign("alice", "sess-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	claims, err := s.Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if claims.AccountID != "alice" || claims.SessionID != "sess-1" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestSigner_Rejects(t *testing.T) {
	s := NewSigner("secret", "taskmarket")
	expired, _ := s.Sign("alice", "", time.Now().Add(-time.Minute))
	foreign, _ := NewSigner("other", "taskmarket").Sign("alice", "", time.Now().Add(time.Hour))
	wrongIssuer, _ := NewSigner("secret", "elsewhere").Sign("alice", "", time.Now().Add(time.Hour))

	tests := map[string]string{
		"expired":      expired,
		"wrong secret": foreign,
		"wrong issuer": wrongIssuer,
		"garbage":      "not-a-token",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Parse(raw); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
