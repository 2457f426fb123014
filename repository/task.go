package repository

import (
	"context"
	"time"

	"github.com/fastygo/taskmarket/domain"
)

type TaskFilter struct {
	CreatorID      string
	AssigneeID     string
	Statuses       []domain.TaskStatus
	Query          string
	DeadlineBefore *time.Time
	Limit          int
	Offset         int
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// GetForUpdate locks the task row until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) error
	// UpdateState persists status, assignee and the cancellation flag only if the
	// stored status still equals expected; otherwise domain.ErrTaskAlreadyTaken.
	UpdateState(ctx context.Context, task *domain.Task, expected domain.TaskStatus) error
	// PendingRewards sums rewards of the creator's tasks that are taken but not finished.
	PendingRewards(ctx context.Context, creatorID string) (int64, error)
}
