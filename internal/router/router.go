package router

import (
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	apiHandler "github.com/fastygo/taskmarket/api/handler"
	"github.com/fastygo/taskmarket/internal/metrics"
)

type Handlers struct {
	Auth    *apiHandler.AuthHandler
	Profile *apiHandler.ProfileHandler
	Task    *apiHandler.TaskHandler
	Dispute *apiHandler.DisputeHandler
	Friend  *apiHandler.FriendHandler
	Reward  *apiHandler.RewardHandler
	Inbox   *apiHandler.NotificationHandler
	Health  *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()
	protected := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return instrument(authMiddleware(h))
	}

	r.GET("/health", handlers.Health.Check)
	r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))

	// Auth routes
	r.POST("/api/v1/auth/register", instrument(handlers.Auth.Register))
	r.POST("/api/v1/auth/login", instrument(handlers.Auth.Login))
	r.POST("/api/v1/auth/refresh", instrument(handlers.Auth.Refresh))
	r.POST("/api/v1/auth/logout", protected(handlers.Auth.Logout))

	// Protected routes
	r.GET("/api/v1/profile", protected(handlers.Profile.Get))
	r.PUT("/api/v1/profile", protected(handlers.Profile.Update))

	r.GET("/api/v1/tasks", protected(handlers.Task.List))
	r.POST("/api/v1/tasks", protected(handlers.Task.Create))
	r.GET("/api/v1/tasks/mine", protected(handlers.Task.Mine))
	r.GET("/api/v1/tasks/{id}", protected(handlers.Task.Get))
	r.GET("/api/v1/tasks/{id}/conversation", protected(handlers.Task.Conversation))
	r.POST("/api/v1/tasks/{id}/take", protected(handlers.Task.Take))
	r.POST("/api/v1/tasks/{id}/complete", protected(handlers.Task.Complete))
	r.POST("/api/v1/tasks/{id}/cancel", protected(handlers.Task.Cancel))
	r.POST("/api/v1/tasks/{id}/abandon", protected(handlers.Task.Abandon))
	r.POST("/api/v1/tasks/{id}/request-cancellation", protected(handlers.Task.RequestCancellation))
	r.POST("/api/v1/tasks/{id}/accept-cancellation", protected(handlers.Task.AcceptCancellation))
	r.POST("/api/v1/tasks/{id}/dispute", protected(handlers.Task.RaiseDispute))

	r.GET("/api/v1/disputes/{id}", protected(handlers.Dispute.Get))
	r.POST("/api/v1/disputes/{id}/withdraw", protected(handlers.Dispute.Withdraw))

	r.GET("/api/v1/friends", protected(handlers.Friend.List))
	r.GET("/api/v1/friends/suggestions", protected(handlers.Friend.Suggestions))
	r.GET("/api/v1/friends/requests", protected(handlers.Friend.Requests))
	r.POST("/api/v1/friends/requests", protected(handlers.Friend.Send))
	r.POST("/api/v1/friends/requests/{id}/accept", protected(handlers.Friend.Accept))
	r.POST("/api/v1/friends/requests/{id}/decline", protected(handlers.Friend.Decline))
	r.PUT("/api/v1/friends/{id}/closeness", protected(handlers.Friend.UpdateCloseness))

	r.GET("/api/v1/rewards", protected(handlers.Reward.Summary))
	r.GET("/api/v1/rewards/history", protected(handlers.Reward.History))

	r.GET("/api/v1/notifications", protected(handlers.Inbox.Recent))

	return r
}

func instrument(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		metrics.HTTPRequests.
			WithLabelValues(string(ctx.Method()), strconv.Itoa(ctx.Response.StatusCode())).
			Observe(time.Since(start).Seconds())
	}
}
