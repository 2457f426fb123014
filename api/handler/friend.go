package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/api/transport"
	"github.com/fastygo/taskmarket/pkg/httpcontext"
	friendUC "github.com/fastygo/taskmarket/usecase/friend"
)

const defaultSuggestions = 10

type FriendHandler struct {
	baseHandler
	uc *friendUC.UseCase
}

func NewFriendHandler(uc *friendUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *FriendHandler {
	return &FriendHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List the caller's friendship edges
// @Tags friends
// @Router /api/v1/friends [get]
func (h *FriendHandler) List(ctx *fasthttp.RequestCtx) {
	accountID := h.accountID(ctx)
	if accountID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	friends, err := h.uc.ListFriends(stdCtx, accountID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, friends)
}

// @Summary Accounts the caller is not yet connected to
// @Tags friends
// @Router /api/v1/friends/suggestions [get]
func (h *FriendHandler) Suggestions(ctx *fasthttp.RequestCtx) {
	accountID := h.accountID(ctx)
	if accountID == "" {
		return
	}
	limit := parseInt(ctx.QueryArgs().Peek("limit"), defaultSuggestions)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	accounts, err := h.uc.Suggestions(stdCtx, accountID, limit)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, accounts)
}

// @Summary Pending requests to and from the caller
// @Tags friends
// @Router /api/v1/friends/requests [get]
func (h *FriendHandler) Requests(ctx *fasthttp.RequestCtx) {
	accountID := h.accountID(ctx)
	if accountID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	incoming, err := h.uc.IncomingRequests(stdCtx, accountID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	outgoing, err := h.uc.OutgoingRequests(stdCtx, accountID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.FriendRequestsResponse{Incoming: incoming, Outgoing: outgoing})
}

// @Summary Send a friend request
// @Tags friends
// @Router /api/v1/friends/requests [post]
func (h *FriendHandler) Send(ctx *fasthttp.RequestCtx) {
	accountID := h.accountID(ctx)
	if accountID == "" {
		return
	}
	var req transport.FriendRequestRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	request, created, err := h.uc.SendRequest(stdCtx, accountID, req.ToID, req.Closeness)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.respondSuccess(ctx, status, request)
}

// @Summary Accept a friend request
// @Tags friends
// @Router /api/v1/friends/requests/{id}/accept [post]
func (h *FriendHandler) Accept(ctx *fasthttp.RequestCtx) {
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

	edges, err := h.uc.AcceptRequest(stdCtx, id, accountID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, edges)
}

// @Summary Decline a friend request
// @Tags friends
// @Router /api/v1/friends/requests/{id}/decline [post]
func (h *FriendHandler) Decline(ctx *fasthttp.RequestCtx) {
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

	if err := h.uc.DeclineRequest(stdCtx, id, accountID); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// @Summary Adjust the caller's closeness towards a friend
// @Tags friends
// @Router /api/v1/friends/{id}/closeness [put]
func (h *FriendHandler) UpdateCloseness(ctx *fasthttp.RequestCtx) {
	accountID := h.accountID(ctx)
	if accountID == "" {
		return
	}
	friendID := h.pathID(ctx)
	if friendID == "" {
		return
	}
	var req transport.ClosenessRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	edge, err := h.uc.UpdateCloseness(stdCtx, accountID, friendID, accountID, req.Closeness)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, edge)
}
