package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/repository"
)

type accountRepository struct {
	q querier
}

const accountColumns = `id, username, email, role, status, balance, metadata, created_at, updated_at`

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *accountRepository) GetForUpdate(ctx context.Context, id string) (*domain.Account, error) {
	row := r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	return scanAccount(row)
}

func (r *accountRepository) List(ctx context.Context, filter repository.AccountFilter) ([]domain.Account, error) {
	const query = `
	SELECT ` + accountColumns + `
	FROM accounts
	WHERE NOT (id = ANY($1::text[]))
	ORDER BY username
	LIMIT $2 OFFSET $3
	`
	exclude := filter.ExcludeIDs
	if exclude == nil {
		exclude = []string{}
	}
	rows, err := r.q.Query(ctx, query, exclude, clampLimit(filter.Limit), filter.Offset)
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

	const query = `
	INSERT INTO accounts (id, username, email, role, status, balance, metadata, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()), NOW())
	RETURNING created_at, updated_at
	`
	if err := r.q.QueryRow(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		account.Role,
		account.Status,
		account.Balance,
		marshalMap(account.Metadata),
		nullTime(account.CreatedAt),
	).Scan(&account.CreatedAt, &account.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAccountExists
		}
		return err
	}
	return nil
}

func (r *accountRepository) UpdateProfile(ctx context.Context, account *domain.Account) error {
	if account == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE accounts
	SET username = $2,
		email = $3,
		metadata = $4,
		updated_at = NOW()
	WHERE id = $1
	RETURNING balance, role, status, created_at, updated_at
	`
	if err := r.q.QueryRow(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		marshalMap(account.Metadata),
	).Scan(&account.Balance, &account.Role, &account.Status, &account.CreatedAt, &account.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAccountNotFound
		}
		if isUniqueViolation(err) {
			return domain.ErrAccountExists
		}
		return err
	}
	return nil
}

func (r *accountRepository) AdjustBalance(ctx context.Context, id string, delta int64) (int64, error) {
	const query = `
	UPDATE accounts
	SET balance = balance + $2,
		updated_at = NOW()
	WHERE id = $1 AND balance + $2 >= 0
	RETURNING balance
	`
	var balance int64
	err := r.q.QueryRow(ctx, query, id, delta).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, domain.ErrAccountNotFound
	}
	return 0, domain.ErrInsufficientFunds
}

func scanAccount(row scanner) (*domain.Account, error) {
	var account domain.Account
	var metadata []byte

	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.Role,
		&account.Status,
		&account.Balance,
		&metadata,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	account.Metadata = unmarshalMap(metadata)
	return &account, nil
}
