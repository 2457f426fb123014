package task

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/internal/metrics"
	"github.com/fastygo/taskmarket/repository"
)

func (uc *UseCase) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var task *domain.Task
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		task, err = tx.Tasks().GetByID(ctx, id)
		return err
	})
	return task, err
}

func (uc *UseCase) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	var tasks []domain.Task
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		tasks, err = tx.Tasks().List(ctx, filter)
		return err
	})
	return tasks, err
}

// SearchAvailable lists open tasks whose title or description contains query.
func (uc *UseCase) SearchAvailable(ctx context.Context, query string, limit, offset int) ([]domain.Task, error) {
	return uc.ListTasks(ctx, repository.TaskFilter{
		Statuses: []domain.TaskStatus{domain.TaskAvailable},
		Query:    query,
		Limit:    limit,
		Offset:   offset,
	})
}

// MyTasks returns the tasks the account posted and the tasks it currently holds.
func (uc *UseCase) MyTasks(ctx context.Context, accountID string) (posted, taken []domain.Task, err error) {
	err = uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if posted, err = tx.Tasks().List(ctx, repository.TaskFilter{CreatorID: accountID}); err != nil {
			return err
		}
		taken, err = tx.Tasks().List(ctx, repository.TaskFilter{AssigneeID: accountID})
		return err
	})
	return posted, taken, err
}

// GetConversation returns the task's conversation to one of its participants.
func (uc *UseCase) GetConversation(ctx context.Context, taskID, actorID string) (*domain.Conversation, error) {
	var conversation *domain.Conversation
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if conversation, err = tx.Conversations().GetByTask(ctx, taskID); err != nil {
			return err
		}
		if !conversation.HasParticipant(actorID) {
			return domain.ErrNotParticipant
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

// SweepExpired cancels available tasks whose deadline is at or before now, acting
// as each task's creator. Taken tasks are left alone.
func (uc *UseCase) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := uc.ListTasks(ctx, repository.TaskFilter{
		Statuses:       []domain.TaskStatus{domain.TaskAvailable},
		DeadlineBefore: &now,
		Limit:          100,
	})
	if err != nil {
		return 0, err
	}

	var swept int
	for _, t := range expired {
		if ctx.Err() != nil {
			return swept, ctx.Err()
		}
		if _, err := uc.CancelTask(ctx, t.ID, t.CreatorID); err != nil {
			// taken or cancelled since it was listed
			if domain.IsDomainError(err, domain.ErrCodeInvalidTransition) || domain.IsDomainError(err, domain.ErrCodeConflict) {
				continue
			}
			uc.logger.Error("sweep failed to cancel task", zap.String("task_id", t.ID), zap.Error(err))
			continue
		}
		swept++
		metrics.SweptTasks.Inc()
	}

	if swept > 0 {
		uc.logger.Info("expired tasks cancelled", zap.Int("count", swept))
	}
	return swept, nil
}
