package repository

import (
	"context"

	"github.com/fastygo/taskmarket/domain"
)

type DisputeRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Dispute, error)
	GetByTask(ctx context.Context, taskID string) (*domain.Dispute, error)
	Create(ctx context.Context, dispute *domain.Dispute) error
	Update(ctx context.Context, dispute *domain.Dispute) error
	// DeleteResolvedByTask drops a withdrawn dispute left on a task that goes
	// back to the market, so the next assignee can raise their own.
	DeleteResolvedByTask(ctx context.Context, taskID string) error
}
