package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/internal/metrics"
	"github.com/fastygo/taskmarket/repository"
	"github.com/fastygo/taskmarket/usecase"
)

const myTasksLink = "/my-tasks"

type UseCase struct {
	store  repository.Store
	events usecase.EventSink
	logger *zap.Logger
	now    func() time.Time
}

func New(store repository.Store, events usecase.EventSink, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		store:  store,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type CreateTaskInput struct {
	CreatorID   string
	Title       string
	Description string
	Reward      int64
	Deadline    *time.Time
}

// CreateTask posts a new task and moves its reward out of the creator's balance.
func (uc *UseCase) CreateTask(ctx context.Context, in CreateTaskInput) (*domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	if in.Reward <= 0 {
		return nil, domain.ErrInvalidReward
	}
	if in.Deadline != nil && !in.Deadline.After(uc.now()) {
		return nil, domain.ErrDeadlineInPast
	}

	var task *domain.Task
	err := uc.run(ctx, "create_task", func(ctx context.Context, tx repository.Tx) ([]domain.Event, error) {
		creator, err := tx.Accounts().GetForUpdate(ctx, in.CreatorID)
		if err != nil {
			return nil, err
		}
		if !creator.CanAfford(in.Reward) {
			return nil, domain.ErrInsufficientFunds
		}

		task = &domain.Task{
			CreatorID:   creator.ID,
			Title:       title,
			Description: strings.TrimSpace(in.Description),
			Reward:      in.Reward,
			Status:      domain.TaskAvailable,
			Deadline:    in.Deadline,
		}
		if err := tx.Tasks().Create(ctx, task); err != nil {
			return nil, err
		}
		if err := reserve(ctx, tx, creator, task); err != nil {
			return nil, err
		}

		return []domain.Event{
			domain.NewEvent(domain.EventTaskCreated, task.ID, creator.ID).
				WithTask(task).
				WithAccounts(creator),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// TakeTask assigns an available task and opens its conversation. When the reward
// was refunded by an accepted cancellation it is reserved from the creator again.
func (uc *UseCase) TakeTask(ctx context.Context, taskID, assigneeID string) (*domain.Task, error) {
	var task *domain.Task
	err := uc.run(ctx, "take_task", func(ctx context.Context, tx repository.Tx) ([]domain.Event, error) {
		var err error
		if task, err = tx.Tasks().GetForUpdate(ctx, taskID); err != nil {
			return nil, err
		}
		if task.Status != domain.TaskAvailable {
			return nil, domain.ErrInvalidTransition
		}
		if task.IsCreator(assigneeID) {
			return nil, domain.ErrSelfAssignment
		}
		assignee, err := tx.Accounts().GetByID(ctx, assigneeID)
		if err != nil {
			return nil, err
		}

		var creator *domain.Account
		held, err := tx.Ledger().HeldForTask(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		if held < task.Reward {
			if creator, err = tx.Accounts().GetForUpdate(ctx, task.CreatorID); err != nil {
				return nil, err
			}
			if err := reserve(ctx, tx, creator, task); err != nil {
				return nil, err
			}
		}

		task.Status = domain.TaskInProgress
		task.AssigneeID = assignee.ID
		task.CancellationRequested = false
		if err := tx.Tasks().UpdateState(ctx, task, domain.TaskAvailable); err != nil {
			return nil, err
		}
		if _, _, err := tx.Conversations().GetOrCreateForTask(ctx, task); err != nil {
			return nil, err
		}

		return []domain.Event{
			domain.NewEvent(domain.EventTaskTaken, task.ID, assignee.ID).
				Notify(task.CreatorID, fmt.Sprintf("%s has taken your task: %s", assignee.Username, task.Title), myTasksLink).
				WithTask(task).
				WithAccounts(creator),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// CompleteTask pays the assignee. Completing a disputed task resolves the dispute.
func (uc *UseCase) CompleteTask(ctx context.Context, taskID, actorID string) (*domain.Task, error) {
	var task *domain.Task
	err := uc.run(ctx, "complete_task", func(ctx context.Context, tx repository.Tx) ([]domain.Event, error) {
		var err error
		if task, err = tx.Tasks().GetForUpdate(ctx, taskID); err != nil {
			return nil, err
		}
		if !task.IsCreator(actorID) {
			return nil, domain.ErrNotTaskCreator
		}
		if !task.CanTransition(domain.TaskCompleted) {
			return nil, domain.ErrInvalidTransition
		}
		held, err := tx.Ledger().HeldForTask(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		if held < task.Reward {
			uc.logger.Error("completing task without escrow",
				zap.String("task_id", task.ID), zap.Int64("held", held), zap.Int64("reward", task.Reward))
			return nil, domain.ErrEscrowUnavailable
		}

		expected := task.Status
		task.Status = domain.TaskCompleted
		task.CancellationRequested = false
		if err := tx.Tasks().UpdateState(ctx, task, expected); err != nil {
			return nil, err
		}

		assignee, err := tx.Accounts().GetForUpdate(ctx, task.AssigneeID)
		if err != nil {
			return nil, err
		}
		if assignee.Balance, err = tx.Accounts().AdjustBalance(ctx, assignee.ID, task.Reward); err != nil {
			return nil, err
		}
		if err := tx.Ledger().Append(ctx, domain.NewAwardEntry(task)); err != nil {
			return nil, err
		}

		events := []domain.Event{
			domain.NewEvent(domain.EventTaskCompleted, task.ID, actorID).
				Notify(task.AssigneeID, fmt.Sprintf("'%s' was marked complete. %d points were transferred to you.", task.Title, task.Reward), myTasksLink).
				WithTask(task).
				WithAccounts(assignee),
		}

		dispute, err := tx.Disputes().GetByTask(ctx, task.ID)
		switch {
		case err == nil && dispute.IsOpen():
			dispute.Resolve(uc.now())
			if err := tx.Disputes().Update(ctx, dispute); err != nil {
				return nil, err
			}
			events = append(events, domain.NewEvent(domain.EventDisputeResolved, dispute.ID, actorID).WithDispute(dispute))
		case err != nil && !domain.IsDomainError(err, domain.ErrCodeNotFound):
			return nil, err
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// CancelTask withdraws an available task and refunds whatever is still held for it.
func (uc *UseCase) CancelTask(ctx context.Context, taskID, actorID string) (*domain.Task, error) {
	var task *domain.Task
	err := uc.run(ctx, "cancel_task", func(ctx context.Context, tx repository.Tx) ([]domain.Event, error) {
		var err error
		if task, err = tx.Tasks().GetForUpdate(ctx, taskID); err != nil {
			return nil, err
		}
		if !task.IsCreator(actorID) {
			return nil, domain.ErrNotTaskCreator
		}
		if task.Status != domain.TaskAvailable {
			return nil, domain.ErrInvalidTransition
		}

		task.Status = domain.TaskCancelled
		if err := tx.Tasks().UpdateState(ctx, task, domain.TaskAvailable); err != nil {
			return nil, err
		}
		creator, err := refundIfHeld(ctx, tx, task)
		if err != nil {
			return nil, err
		}

		return []domain.Event{
			domain.NewEvent(domain.EventTaskCancelled, task.ID, actorID).
				WithTask(task).
				WithAccounts(creator),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// RequestCancellation asks the assignee to release the task. Asking twice changes nothing.
func (uc *UseCase) RequestCancellation(ctx context.Context, taskID, actorID string) (*domain.Task, error) {
	var task *domain.Task
	err := uc.run(ctx, "request_cancellation", func(ctx context.Context, tx repository.Tx) ([]domain.Event, error) {
		var err error
		if task, err = tx.Tasks().GetForUpdate(ctx, taskID); err != nil {
			return nil, err
		}
		if !task.IsCreator(actorID) {
			return nil, domain.ErrNotTaskCreator
		}
		if task.Status != domain.TaskInProgress {
			return nil, domain.ErrInvalidTransition
		}
		if task.CancellationRequested {
			return nil, nil
		}

		task.CancellationRequested = true
		if err := tx.Tasks().UpdateState(ctx, task, domain.TaskInProgress); err != nil {
			return nil, err
		}
		creator, err := tx.Accounts().GetByID(ctx, actorID)
		if err != nil {
			return nil, err
		}

		return []domain.Event{
			domain.NewEvent(domain.EventCancellationRequested, task.ID, actorID).
				Notify(task.AssigneeID, fmt.Sprintf("%s has requested to cancel the task: '%s'.", creator.Username, task.Title), myTasksLink).
				WithTask(task),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// AcceptCancellation releases the task back to the market and refunds the creator.
func (uc *UseCase) AcceptCancellation(ctx context.Context, taskID, actorID string) (*domain.Task, error) {
	var task *domain.Task
	err := uc.run(ctx, "accept_cancellation", func(ctx context.Context, tx repository.Tx) ([]domain.Event, error) {
		var err error
		if task, err = tx.Tasks().GetForUpdate(ctx, taskID); err != nil {
			return nil, err
		}
		if !task.IsAssignee(actorID) {
			return nil, domain.ErrNotTaskAssignee
		}
		if task.Status != domain.TaskInProgress || !task.CancellationRequested {
			return nil, domain.ErrInvalidTransition
		}
		assignee, err := tx.Accounts().GetByID(ctx, actorID)
		if err != nil {
			return nil, err
		}

		if err := release(ctx, tx, task); err != nil {
			return nil, err
		}
		creator, err := refundIfHeld(ctx, tx, task)
		if err != nil {
			return nil, err
		}

		return []domain.Event{
			domain.NewEvent(domain.EventCancellationAccepted, task.ID, actorID).
				Notify(task.CreatorID, fmt.Sprintf("%s accepted your cancellation request for '%s'. The task is now available again.", assignee.Username, task.Title), myTasksLink).
				WithTask(task).
				WithAccounts(creator),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// AbandonTask lets the assignee give the task back. The reward stays reserved.
func (uc *UseCase) AbandonTask(ctx context.Context, taskID, actorID string) (*domain.Task, error) {
	var task *domain.Task
	err := uc.run(ctx, "abandon_task", func(ctx context.Context, tx repository.Tx) ([]domain.Event, error) {
		var err error
		if task, err = tx.Tasks().GetForUpdate(ctx, taskID); err != nil {
			return nil, err
		}
		if !task.IsAssignee(actorID) {
			return nil, domain.ErrNotTaskAssignee
		}
		if task.Status != domain.TaskInProgress {
			return nil, domain.ErrInvalidTransition
		}
		assignee, err := tx.Accounts().GetByID(ctx, actorID)
		if err != nil {
			return nil, err
		}

		if err := release(ctx, tx, task); err != nil {
			return nil, err
		}

		return []domain.Event{
			domain.NewEvent(domain.EventTaskAbandoned, task.ID, actorID).
				Notify(task.CreatorID, fmt.Sprintf("%s has abandoned your task: '%s'. It is now available again.", assignee.Username, task.Title), myTasksLink).
				WithTask(task),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// run executes fn in one transaction and emits its events only after commit.
// fn may run more than once when the store retries, so it must not leak state
// between attempts.
func (uc *UseCase) run(ctx context.Context, operation string, fn func(ctx context.Context, tx repository.Tx) ([]domain.Event, error)) error {
	var events []domain.Event
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		events, err = fn(ctx, tx)
		return err
	})

	result := "ok"
	if err != nil {
		result = string(domain.CodeOf(err))
	}
	metrics.LifecycleOperations.WithLabelValues(operation, result).Inc()

	if err != nil {
		uc.logger.Debug("operation rejected", zap.String("operation", operation), zap.Error(err))
		return err
	}
	usecase.Emit(ctx, uc.events, events...)
	return nil
}

// release puts an in-progress task back on the market. The departing assignee
// leaves the task's conversation and a withdrawn dispute is dropped with them.
func release(ctx context.Context, tx repository.Tx, task *domain.Task) error {
	departing := task.AssigneeID
	task.Release()
	if err := tx.Tasks().UpdateState(ctx, task, domain.TaskInProgress); err != nil {
		return err
	}
	if err := tx.Disputes().DeleteResolvedByTask(ctx, task.ID); err != nil {
		return err
	}
	return tx.Conversations().RemoveParticipant(ctx, task.ID, departing)
}

func reserve(ctx context.Context, tx repository.Tx, creator *domain.Account, task *domain.Task) error {
	balance, err := tx.Accounts().AdjustBalance(ctx, creator.ID, -task.Reward)
	if err != nil {
		return err
	}
	creator.Balance = balance
	return tx.Ledger().Append(ctx, domain.NewReserveEntry(task))
}

// refundIfHeld returns the reward to the creator when it is still in escrow.
// It returns the refunded creator, or nil when nothing was held.
func refundIfHeld(ctx context.Context, tx repository.Tx, task *domain.Task) (*domain.Account, error) {
	held, err := tx.Ledger().HeldForTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if held < task.Reward {
		return nil, nil
	}

	creator, err := tx.Accounts().GetForUpdate(ctx, task.CreatorID)
	if err != nil {
		return nil, err
	}
	balance, err := tx.Accounts().AdjustBalance(ctx, creator.ID, task.Reward)
	if err != nil {
		return nil, err
	}
	creator.Balance = balance
	if err := tx.Ledger().Append(ctx, domain.NewRefundEntry(task)); err != nil {
		return nil, err
	}
	return creator, nil
}
