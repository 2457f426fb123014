package middleware

import (
	"context"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/pkg/httpcontext"
	"github.com/fastygo/taskmarket/pkg/token"
)

// SessionChecker confirms that a token's session has not been revoked.
type SessionChecker interface {
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

// JWTAuth admits requests carrying a valid bearer token and records the caller's
// account on the request. Tokens bound to a session are rejected once it is revoked.
func JWTAuth(signer *token.Signer, sessions SessionChecker, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			raw := extractToken(ctx)
			if raw == "" {
				unauthorized(ctx)
				return
			}

			claims, err := signer.Parse(raw)
			if err != nil {
				logger.Warn("invalid jwt token", zap.Error(err))
				unauthorized(ctx)
				return
			}

			if sessions != nil && claims.SessionID != "" {
				session, err := sessions.GetSession(ctx, claims.SessionID)
				if err != nil || session.AccountID != claims.AccountID {
					logger.Debug("session rejected", zap.String("session_id", claims.SessionID), zap.Error(err))
					unauthorized(ctx)
					return
				}
			}

			httpcontext.SetAccountID(ctx, claims.AccountID)
			next(ctx)
		}
	}
}

func unauthorized(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	ctx.SetBodyString(`{"status":"error","code":"UNAUTHORIZED","error":"unauthorized"}`)
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek("Authorization")))
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
