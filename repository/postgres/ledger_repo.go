package postgres

import (
	"context"

	"github.com/fastygo/taskmarket/domain"
)

type ledgerRepository struct {
	q querier
}

const ledgerColumns = `id, account_id, task_id, amount, kind, description, created_at`

func (r *ledgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	if entry == nil || entry.ID == "" || entry.AccountID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO ledger_entries (id, account_id, task_id, amount, kind, description, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
	RETURNING created_at
	`
	return r.q.QueryRow(ctx, query,
		entry.ID,
		entry.AccountID,
		nullString(entry.TaskID),
		entry.Amount,
		string(entry.Kind),
		entry.Description,
		nullTime(entry.CreatedAt),
	).Scan(&entry.CreatedAt)
}

func (r *ledgerRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.LedgerEntry, error) {
	const query = `
	SELECT ` + ledgerColumns + `
	FROM ledger_entries
	WHERE account_id = $1
	ORDER BY seq DESC
	LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, accountID, clampLimit(limit), offset)
}

func (r *ledgerRepository) ListByTask(ctx context.Context, taskID string) ([]domain.LedgerEntry, error) {
	const query = `
	SELECT ` + ledgerColumns + `
	FROM ledger_entries
	WHERE task_id = $1
	ORDER BY seq
	`
	return r.list(ctx, query, taskID)
}

func (r *ledgerRepository) SumByAccount(ctx context.Context, accountID string) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::BIGINT FROM ledger_entries WHERE account_id = $1`,
		accountID,
	).Scan(&total)
	return total, err
}

func (r *ledgerRepository) HeldForTask(ctx context.Context, taskID string) (int64, error) {
	const query = `
	SELECT COALESCE(-SUM(amount), 0)::BIGINT
	FROM ledger_entries
	WHERE task_id = $1 AND kind IN ('reserve', 'refund')
	`
	var held int64
	err := r.q.QueryRow(ctx, query, taskID).Scan(&held)
	return held, err
}

func (r *ledgerRepository) Totals(ctx context.Context, accountID string) (int64, int64, error) {
	const query = `
	SELECT
		COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0)::BIGINT,
		COALESCE(SUM(CASE WHEN kind = 'reserve' THEN -amount ELSE 0 END), 0)::BIGINT
	FROM ledger_entries
	WHERE account_id = $1
	`
	var earned, reserved int64
	err := r.q.QueryRow(ctx, query, accountID).Scan(&earned, &reserved)
	return earned, reserved, err
}

func (r *ledgerRepository) Discrepancies(ctx context.Context) ([]domain.Discrepancy, error) {
	const query = `
	SELECT a.id, a.balance, COALESCE(SUM(l.amount), 0)::BIGINT
	FROM accounts a
	LEFT JOIN ledger_entries l ON l.account_id = a.id
	GROUP BY a.id, a.balance
	HAVING a.balance <> COALESCE(SUM(l.amount), 0)
	ORDER BY a.id
	`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Discrepancy
	for rows.Next() {
		var d domain.Discrepancy
		if err := rows.Scan(&d.AccountID, &d.Balance, &d.LedgerSum); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *ledgerRepository) list(ctx context.Context, query string, args ...any) ([]domain.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			entry  domain.LedgerEntry
			taskID *string
			kind   string
		)
		if err := rows.Scan(&entry.ID, &entry.AccountID, &taskID, &entry.Amount, &kind, &entry.Description, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.TaskID = derefString(taskID)
		entry.Kind = domain.EntryKind(kind)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
