package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/api/transport"
	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/pkg/httpcontext"
	"github.com/fastygo/taskmarket/repository"
	taskUC "github.com/fastygo/taskmarket/usecase/task"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type TaskHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List tasks, available ones by default
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) List(ctx *fasthttp.RequestCtx) {
	if h.accountID(ctx) == "" {
		return
	}

	args := ctx.QueryArgs()
	filter := repository.TaskFilter{
		Query:  strings.TrimSpace(string(args.Peek("q"))),
		Limit:  parseInt(args.Peek("limit"), defaultPageSize),
		Offset: parseInt(args.Peek("offset"), 0),
	}
	if filter.Limit == 0 || filter.Limit > maxPageSize {
		filter.Limit = defaultPageSize
	}

	status := domain.TaskAvailable
	if raw := string(args.Peek("status")); raw != "" {
		parsed, ok := domain.ParseTaskStatus(raw)
		if !ok {
			h.badRequest(ctx, "unknown status")
			return
		}
		status = parsed
	}
	filter.Statuses = []domain.TaskStatus{status}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.uc.ListTasks(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondPage(ctx, tasks, transport.Page{Limit: filter.Limit, Offset: filter.Offset, Count: len(tasks)})
}

// @Summary Tasks the caller posted or holds
// @Tags tasks
// @Router /api/v1/tasks/mine [get]
func (h *TaskHandler) Mine(ctx *fasthttp.RequestCtx) {
	accountID := h.accountID(ctx)
	if accountID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	posted, taken, err := h.uc.MyTasks(stdCtx, accountID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.MyTasksResponse{Posted: posted, Taken: taken})
}

// @Summary Post a task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) Create(ctx *fasthttp.RequestCtx) {
	accountID := h.accountID(ctx)
	if accountID == "" {
		return
	}
	var req transport.CreateTaskRequest
	if !h.decode(ctx, &req) {
		return
	}

	in := taskUC.CreateTaskInput{
		CreatorID:   accountID,
		Title:       req.Title,
		Description: req.Description,
		Reward:      req.Reward,
	}
	if req.Deadline != "" {
		deadline, err := time.Parse(time.RFC3339, req.Deadline)
		if err != nil {
			h.badRequest(ctx, "deadline must be RFC3339")
			return
		}
		in.Deadline = &deadline
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.CreateTask(stdCtx, in)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, task)
}

// @Summary Get a task
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) Get(ctx *fasthttp.RequestCtx) {
	if h.accountID(ctx) == "" {
		return
	}
	id := h.pathID(ctx)
	if id == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.GetTask(stdCtx, id)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Take an available task
// @Tags tasks
// @Router /api/v1/tasks/{id}/take [post]
func (h *TaskHandler) Take(ctx *fasthttp.RequestCtx) {
	h.transition(ctx, h.uc.TakeTask)
}

// @Summary Complete a task and pay its reward
// @Tags tasks
// @Router /api/v1/tasks/{id}/complete [post]
func (h *TaskHandler) Complete(ctx *fasthttp.RequestCtx) {
	h.transition(ctx, h.uc.CompleteTask)
}

// @Summary Cancel an available task
// @Tags tasks
// @Router /api/v1/tasks/{id}/cancel [post]
func (h *TaskHandler) Cancel(ctx *fasthttp.RequestCtx) {
	h.transition(ctx, h.uc.CancelTask)
}

// @Summary Give a taken task back
// @Tags tasks
// @Router /api/v1/tasks/{id}/abandon [post]
func (h *TaskHandler) Abandon(ctx *fasthttp.RequestCtx) {
	h.transition(ctx, h.uc.AbandonTask)
}

// @Summary Ask the assignee to release a task
// @Tags tasks
// @Router /api/v1/tasks/{id}/request-cancellation [post]
func (h *TaskHandler) RequestCancellation(ctx *fasthttp.RequestCtx) {
	h.transition(ctx, h.uc.RequestCancellation)
}

// @Summary Accept the creator's cancellation request
// @Tags tasks
// @Router /api/v1/tasks/{id}/accept-cancellation [post]
func (h *TaskHandler) AcceptCancellation(ctx *fasthttp.RequestCtx) {
	h.transition(ctx, h.uc.AcceptCancellation)
}

// @Summary Raise a dispute on a task in progress
// @Tags disputes
// @Router /api/v1/tasks/{id}/dispute [post]
func (h *TaskHandler) RaiseDispute(ctx *fasthttp.RequestCtx) {
	accountID := h.accountID(ctx)
	if accountID == "" {
		return
	}
	id := h.pathID(ctx)
	if id == "" {
		return
	}
	var req transport.DisputeRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	dispute, created, err := h.uc.RaiseDispute(stdCtx, id, accountID, req.Reason)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.respondSuccess(ctx, status, transport.DisputeResponse{Dispute: dispute})
}

// @Summary Get a task's conversation
// @Tags tasks
// @Router /api/v1/tasks/{id}/conversation [get]
func (h *TaskHandler) Conversation(ctx *fasthttp.RequestCtx) {
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

	conversation, err := h.uc.GetConversation(stdCtx, id, accountID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, conversation)
}

type taskTransition func(ctx context.Context, taskID, actorID string) (*domain.Task, error)

func (h *TaskHandler) transition(ctx *fasthttp.RequestCtx, apply taskTransition) {
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

	task, err := apply(stdCtx, id, accountID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}
