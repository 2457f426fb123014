package repository

import (
	"context"

	"github.com/fastygo/taskmarket/domain"
)

type FriendshipRepository interface {
	Get(ctx context.Context, fromID, toID string) (*domain.Friendship, error)
	// Create inserts the directed edge; an existing edge is left untouched.
	Create(ctx context.Context, edge *domain.Friendship) error
	UpdateCloseness(ctx context.Context, edge *domain.Friendship) error
	ListFrom(ctx context.Context, fromID string) ([]domain.Friendship, error)
}

type FriendRequestRepository interface {
	GetByID(ctx context.Context, id string) (*domain.FriendRequest, error)
	GetByPair(ctx context.Context, fromID, toID string) (*domain.FriendRequest, error)
	// Create inserts the request unless the pair already has one, in which case
	// request is overwritten with the stored row and created is false.
	Create(ctx context.Context, request *domain.FriendRequest) (created bool, err error)
	Delete(ctx context.Context, id string) error
	ListIncoming(ctx context.Context, toID string) ([]domain.FriendRequest, error)
	ListOutgoing(ctx context.Context, fromID string) ([]domain.FriendRequest, error)
}
