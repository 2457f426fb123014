package ledger

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/repository"
	"github.com/fastygo/taskmarket/usecase"
)

// DefaultInitialBalance is granted to every new account unless configured otherwise.
const DefaultInitialBalance int64 = 1500

type UseCase struct {
	store          repository.Store
	events         usecase.EventSink
	initialBalance int64
	logger         *zap.Logger
}

func New(store repository.Store, events usecase.EventSink, initialBalance int64, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if initialBalance < 0 {
		initialBalance = 0
	}
	return &UseCase{
		store:          store,
		events:         events,
		initialBalance: initialBalance,
		logger:         logger,
	}
}

type OpenAccountInput struct {
	ID       string
	Username string
	Email    string
	Role     string
	Metadata map[string]string
}

// OpenAccount creates an account and grants the initial balance through the ledger,
// so balance and ledger agree from the first entry.
func (uc *UseCase) OpenAccount(ctx context.Context, in OpenAccountInput) (*domain.Account, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, domain.ErrInvalidPayload
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	role := in.Role
	if role != domain.RoleAdmin {
		role = domain.RoleMember
	}

	var account *domain.Account
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		account = &domain.Account{
			ID:       id,
			Username: username,
			Email:    strings.TrimSpace(in.Email),
			Role:     role,
			Status:   domain.AccountStatusActive,
			Metadata: in.Metadata,
		}
		if err := tx.Accounts().Create(ctx, account); err != nil {
			return err
		}
		if uc.initialBalance == 0 {
			return nil
		}
		balance, err := tx.Accounts().AdjustBalance(ctx, account.ID, uc.initialBalance)
		if err != nil {
			return err
		}
		account.Balance = balance
		return tx.Ledger().Append(ctx, domain.NewInitialEntry(account.ID, uc.initialBalance))
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("account opened", zap.String("account_id", account.ID), zap.Int64("balance", account.Balance))
	usecase.Emit(ctx, uc.events,
		domain.NewEvent(domain.EventAccountOpened, account.ID, account.ID).WithAccounts(account))
	return account, nil
}

func (uc *UseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var account *domain.Account
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		account, err = tx.Accounts().GetByID(ctx, id)
		return err
	})
	return account, err
}

// History lists the account's ledger entries, newest first.
func (uc *UseCase) History(ctx context.Context, accountID string, limit, offset int) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().GetByID(ctx, accountID); err != nil {
			return err
		}
		var err error
		entries, err = tx.Ledger().ListByAccount(ctx, accountID, limit, offset)
		return err
	})
	return entries, err
}

// Summary aggregates balance, lifetime credits, lifetime reservations and the
// rewards of the account's posted tasks that are taken but not finished.
func (uc *UseCase) Summary(ctx context.Context, accountID string) (*domain.RewardSummary, error) {
	summary := &domain.RewardSummary{AccountID: accountID}
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		account, err := tx.Accounts().GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		summary.Balance = account.Balance
		if summary.Earned, summary.Reserved, err = tx.Ledger().Totals(ctx, accountID); err != nil {
			return err
		}
		summary.Pending, err = tx.Tasks().PendingRewards(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// Audit reports every account whose stored balance differs from its ledger sum.
func (uc *UseCase) Audit(ctx context.Context) ([]domain.Discrepancy, error) {
	var out []domain.Discrepancy
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.Ledger().Discrepancies(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, d := range out {
		uc.logger.Warn("ledger discrepancy",
			zap.String("account_id", d.AccountID),
			zap.Int64("balance", d.Balance),
			zap.Int64("ledger_sum", d.LedgerSum))
	}
	return out, nil
}
