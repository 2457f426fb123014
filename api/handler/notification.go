package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/pkg/httpcontext"
	redisRepo "github.com/fastygo/taskmarket/repository/redis"
)

// NotificationFeed reads an account's inbox.
type NotificationFeed interface {
	Recent(ctx context.Context, recipientID string, limit int64) ([]redisRepo.Notification, error)
}

type NotificationHandler struct {
	baseHandler
	feed NotificationFeed
}

func NewNotificationHandler(feed NotificationFeed, adapter *httpcontext.Adapter, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		baseHandler: newBaseHandler(adapter, logger),
		feed:        feed,
	}
}

// @Summary Newest notifications of the caller
// @Tags notifications
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) Recent(ctx *fasthttp.RequestCtx) {
	accountID := h.accountID(ctx)
	if accountID == "" {
		return
	}
	limit := parseInt(ctx.QueryArgs().Peek("limit"), 20)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	items, err := h.feed.Recent(stdCtx, accountID, int64(limit))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, items)
}
