package profile

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/repository"
)

type UseCase struct {
	store  repository.Store
	logger *zap.Logger
}

func New(store repository.Store, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		store:  store,
		logger: logger,
	}
}

// Update carries the profile fields a user may change. Nil fields are left as they are.
type Update struct {
	Username *string
	Email    *string
	Metadata map[string]string
}

func (uc *UseCase) GetProfile(ctx context.Context, accountID string) (*domain.Account, error) {
	var account *domain.Account
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		account, err = tx.Accounts().GetByID(ctx, accountID)
		return err
	})
	return account, err
}

// UpdateProfile changes descriptive fields only. The balance is not writable here.
func (uc *UseCase) UpdateProfile(ctx context.Context, accountID string, in Update) (*domain.Account, error) {
	var account *domain.Account
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if account, err = tx.Accounts().GetForUpdate(ctx, accountID); err != nil {
			return err
		}
		if in.Username != nil {
			username := strings.TrimSpace(*in.Username)
			if username == "" {
				return domain.ErrInvalidPayload
			}
			account.Username = username
		}
		if in.Email != nil {
			account.Email = strings.TrimSpace(*in.Email)
		}
		if in.Metadata != nil {
			if account.Metadata == nil {
				account.Metadata = make(map[string]string, len(in.Metadata))
			}
			for k, v := range in.Metadata {
				if v == "" {
					delete(account.Metadata, k)
					continue
				}
				account.Metadata[k] = v
			}
		}
		return tx.Accounts().UpdateProfile(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	uc.logger.Debug("profile updated", zap.String("account_id", accountID))
	return account, nil
}
