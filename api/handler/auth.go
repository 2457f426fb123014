package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/api/transport"
	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/pkg/httpcontext"
	"github.com/fastygo/taskmarket/pkg/token"
	authUC "github.com/fastygo/taskmarket/usecase/auth"
	ledgerUC "github.com/fastygo/taskmarket/usecase/ledger"
)

var errForeignSession = domain.NewError(domain.ErrCodeForbidden, "session belongs to another account")

type AuthHandler struct {
	baseHandler
	uc         *authUC.UseCase
	accounts   *ledgerUC.UseCase
	signer     *token.Signer
	defaultTTL time.Duration
}

func NewAuthHandler(uc *authUC.UseCase, accounts *ledgerUC.UseCase, signer *token.Signer, adapter *httpcontext.Adapter, logger *zap.Logger, ttl time.Duration) *AuthHandler {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		accounts:    accounts,
		signer:      signer,
		defaultTTL:  ttl,
	}
}

// @Summary Open an account and issue its first session
// @Tags auth
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(ctx *fasthttp.RequestCtx) {
	var req transport.RegisterRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	account, err := h.accounts.OpenAccount(stdCtx, ledgerUC.OpenAccountInput{
		Username: req.Username,
		Email:    req.Email,
		Metadata: req.Metadata,
	})
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.issue(ctx, stdCtx, account, h.ttlFromRequest(req.TTL), http.StatusCreated)
}

// @Summary Issue a new session
// @Tags auth
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	var req transport.AuthLoginRequest
	if !h.decode(ctx, &req) {
		return
	}
	if req.AccountID == "" {
		h.badRequest(ctx, "account_id is required")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	h.issue(ctx, stdCtx, &domain.Account{ID: req.AccountID}, h.ttlFromRequest(req.TTL), http.StatusCreated)
}

// @Summary Refresh an existing session
// @Tags auth
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(ctx *fasthttp.RequestCtx) {
	var req transport.RefreshRequest
	if !h.decode(ctx, &req) {
		return
	}
	if req.SessionID == "" {
		h.badRequest(ctx, "session_id is required")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	session, err := h.uc.RefreshSession(stdCtx, req.SessionID, h.ttlFromRequest(req.TTL))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	signed, err := h.signer.Sign(session.AccountID, session.ID, session.ExpiresAt)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.SessionResponse{Session: session, Token: signed})
}

// @Summary Revoke a session
// @Tags auth
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	var req transport.RefreshRequest
	if !h.decode(ctx, &req) {
		return
	}

	accountID := h.accountID(ctx)
	if accountID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	session, err := h.uc.GetSession(stdCtx, req.SessionID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	if session.AccountID != accountID {
		h.respondError(ctx, stdCtx, errForeignSession)
		return
	}
	if err := h.uc.RevokeSession(stdCtx, session.ID); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

func (h *AuthHandler) issue(ctx *fasthttp.RequestCtx, stdCtx context.Context, account *domain.Account, ttl time.Duration, status int) {
	session, err := h.uc.CreateSession(stdCtx, account.ID, ttl)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	signed, err := h.signer.Sign(session.AccountID, session.ID, session.ExpiresAt)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	resp := transport.SessionResponse{Session: session, Token: signed}
	if account.Username != "" {
		resp.Account = account
	}
	h.respondSuccess(ctx, status, resp)
}

func (h *AuthHandler) ttlFromRequest(ttlSeconds int) time.Duration {
	if ttlSeconds <= 0 {
		return h.defaultTTL
	}
	return time.Duration(ttlSeconds) * time.Second
}
