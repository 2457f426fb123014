package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap/zaptest"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/pkg/httpcontext"
	"github.com/fastygo/taskmarket/pkg/token"
)

type sessionSet map[string]*domain.Session

func (s sessionSet) GetSession(_ context.Context, id string) (*domain.Session, error) {
	if session, ok := s[id]; ok {
		return session, nil
	}
	return nil, domain.ErrSessionNotFound
}

func TestJWTAuth(t *testing.T) {
	signer := token.NewSigner("test-secret", "taskmarket")
	sessions := sessionSet{"s1": {ID: "s1", AccountID: "alice"}}
	expires := time.Now().Add(time.Hour)

	live, err := signer.Sign("alice", "s1", expires)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	revoked, err := signer.Sign("alice", "s2", expires)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	foreign, err := token.NewSigner("other-secret", "taskmarket").Sign("alice", "s1", expires)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCaller string
	}{
		{"bearer token", "Bearer " + live, fasthttp.StatusOK, "alice"},
		{"lower-case scheme", "bearer " + live, fasthttp.StatusOK, "alice"},
		{"missing header", "", fasthttp.StatusUnauthorized, ""},
		{"revoked session", "Bearer " + revoked, fasthttp.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + foreign, fasthttp.StatusUnauthorized, ""},
	}

	auth := JWTAuth(signer, sessions, zaptest.NewLogger(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var caller string
			handler := auth(func(ctx *fasthttp.RequestCtx) {
				caller = httpcontext.AccountID(ctx)
			})

			ctx := &fasthttp.RequestCtx{}
			if tt.header != "" {
				ctx.Request.Header.Set("Authorization", tt.header)
			}
			handler(ctx)

			if got := ctx.Response.StatusCode(); got != tt.wantStatus {
				t.Fatalf("status = %d, want %d", got, tt.wantStatus)
			}
			if caller != tt.wantCaller {
				t.Fatalf("caller = %q, want %q", caller, tt.wantCaller)
			}
		})
	}
}
