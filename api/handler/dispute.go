package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/api/transport"
	"github.com/fastygo/taskmarket/pkg/httpcontext"
	taskUC "github.com/fastygo/taskmarket/usecase/task"
)

type DisputeHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewDisputeHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *DisputeHandler {
	return &DisputeHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Get a dispute with its task
// @Tags disputes
// @Router /api/v1/disputes/{id} [get]
func (h *DisputeHandler) Get(ctx *fasthttp.RequestCtx) {
	accountID := h.accountID(ctx)
	if accountID == "" {
		return
	}
	id := h.pathID(ctx)
	if id == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	dispute, task, err := h.uc.GetDispute(stdCtx, id, accountID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.DisputeResponse{Dispute: dispute, Task: task})
}

// @Summary Withdraw an open dispute
// @Tags disputes
// @Router /api/v1/disputes/{id}/withdraw [post]
func (h *DisputeHandler) Withdraw(ctx *fasthttp.RequestCtx) {
	accountID := h.accountID(ctx)
	if accountID == "" {
		return
	}
	id := h.pathID(ctx)
	if id == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	dispute, err := h.uc.WithdrawDispute(stdCtx, id, accountID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.DisputeResponse{Dispute: dispute})
}
