package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/api/transport"
	"github.com/fastygo/taskmarket/pkg/httpcontext"
	ledgerUC "github.com/fastygo/taskmarket/usecase/ledger"
)

type RewardHandler struct {
	baseHandler
	uc *ledgerUC.UseCase
}

func NewRewardHandler(uc *ledgerUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *RewardHandler {
	return &RewardHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Balance, earned, reserved and pending points
// @Tags rewards
// @Router /api/v1/rewards [get]
func (h *RewardHandler) Summary(ctx *fasthttp.RequestCtx) {
	accountID := h.accountID(ctx)
	if accountID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	summary, err := h.uc.Summary(stdCtx, accountID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, summary)
}

// @Summary Ledger entries of the caller, newest first
// @Tags rewards
// @Router /api/v1/rewards/history [get]
func (h *RewardHandler) History(ctx *fasthttp.RequestCtx) {
	accountID := h.accountID(ctx)
	if accountID == "" {
		return
	}
	args := ctx.QueryArgs()
	limit := parseInt(args.Peek("limit"), defaultPageSize)
	if limit == 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := parseInt(args.Peek("offset"), 0)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	entries, err := h.uc.History(stdCtx, accountID, limit, offset)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondPage(ctx, entries, transport.Page{Limit: limit, Offset: offset, Count: len(entries)})
}
