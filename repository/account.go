package repository

import (
	"context"

	"github.com/fastygo/taskmarket/domain"
)

type AccountFilter struct {
	ExcludeIDs []string
	Limit      int
	Offset     int
}

type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetForUpdate locks the account row until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context, filter AccountFilter) ([]domain.Account, error)
	Create(ctx context.Context, account *domain.Account) error
	UpdateProfile(ctx context.Context, account *domain.Account) error
	// AdjustBalance applies delta and returns the new balance. It fails with
	// domain.ErrInsufficientFunds instead of going negative.
	AdjustBalance(ctx context.Context, id string, delta int64) (int64, error)
}
