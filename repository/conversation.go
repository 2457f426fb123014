package repository

import (
	"context"

	"github.com/fastygo/taskmarket/domain"
)

type ConversationRepository interface {
	// GetOrCreateForTask returns the task's conversation, creating it on first use.
	// Creator and assignee are added as participants if missing.
	GetOrCreateForTask(ctx context.Context, task *domain.Task) (*domain.Conversation, bool, error)
	GetByTask(ctx context.Context, taskID string) (*domain.Conversation, error)
	// RemoveParticipant drops accountID from the task's conversation. A missing
	// conversation or participant is not an error.
	RemoveParticipant(ctx context.Context, taskID, accountID string) error
	ListByParticipant(ctx context.Context, accountID string) ([]domain.Conversation, error)
}
