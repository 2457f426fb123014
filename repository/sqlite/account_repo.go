package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/repository"
)

type accountRepository struct {
	q querier
}

const accountColumns = `id, username, email, role, status, balance, metadata, created_at, updated_at`

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// GetForUpdate needs no row lock: the store runs one transaction at a time.
func (r *accountRepository) GetForUpdate(ctx context.Context, id string) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *accountRepository) List(ctx context.Context, filter repository.AccountFilter) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	var args []any
	if len(filter.ExcludeIDs) > 0 {
		query += ` WHERE id NOT IN (` + placeholders(len(filter.ExcludeIDs)) + `)`
		for _, id := range filter.ExcludeIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY username LIMIT ? OFFSET ?`
	args = append(args, clampLimit(filter.Limit), filter.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	if account == nil || account.ID == "" {
		return domain.ErrInvalidPayload
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO accounts (id, username, email, role, status, balance, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		account.ID,
		account.Username,
		account.Email,
		account.Role,
		account.Status,
		account.Balance,
		marshalMap(account.Metadata),
		toNanos(account.CreatedAt),
		toNanos(account.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return domain.ErrAccountExists
	}
	return err
}

func (r *accountRepository) UpdateProfile(ctx context.Context, account *domain.Account) error {
	if account == nil {
		return domain.ErrInvalidPayload
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE accounts SET username = ?, email = ?, metadata = ?, updated_at = ?
		WHERE id = ?
	`, account.Username, account.Email, marshalMap(account.Metadata), toNanos(time.Now()), account.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAccountExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAccountNotFound
	}

	stored, err := r.GetByID(ctx, account.ID)
	if err != nil {
		return err
	}
	*account = *stored
	return nil
}

func (r *accountRepository) AdjustBalance(ctx context.Context, id string, delta int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE accounts SET balance = balance + ?, updated_at = ?
		WHERE id = ? AND balance + ? >= 0
	`, delta, toNanos(time.Now()), id, delta)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return 0, err
		}
		return 0, domain.ErrInsufficientFunds
	}

	var balance int64
	if err := r.q.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, id).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func scanAccount(row scanner) (*domain.Account, error) {
	var (
		account          domain.Account
		metadata         sql.NullString
		created, updated int64
	)
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.Role,
		&account.Status,
		&account.Balance,
		&metadata,
		&created,
		&updated,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	account.Metadata = unmarshalMap(metadata)
	account.CreatedAt = fromNanos(created)
	account.UpdatedAt = fromNanos(updated)
	return &account, nil
}
