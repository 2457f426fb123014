package repository

import (
	"context"

	"github.com/fastygo/taskmarket/domain"
)

type LedgerRepository interface {
	Append(ctx context.Context, entry *domain.LedgerEntry) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.LedgerEntry, error)
	ListByTask(ctx context.Context, taskID string) ([]domain.LedgerEntry, error)
	SumByAccount(ctx context.Context, accountID string) (int64, error)
	// HeldForTask is the reward currently in escrow: -(sum of reserve and refund entries).
	HeldForTask(ctx context.Context, taskID string) (int64, error)
	// Totals returns everything credited to the account and everything it reserved.
	Totals(ctx context.Context, accountID string) (earned, reserved int64, err error)
	Discrepancies(ctx context.Context) ([]domain.Discrepancy, error)
}
