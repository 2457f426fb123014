package sqlite

import (
	"context"
	"database/sql"

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
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO ledger_entries (`+ledgerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.AccountID,
		nullString(entry.TaskID),
		entry.Amount,
		string(entry.Kind),
		entry.Description,
		toNanos(entry.CreatedAt),
	)
	return err
}

func (r *ledgerRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.LedgerEntry, error) {
	return r.list(ctx, `
		SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE account_id = ?
		ORDER BY seq DESC
		LIMIT ? OFFSET ?
	`, accountID, clampLimit(limit), offset)
}

func (r *ledgerRepository) ListByTask(ctx context.Context, taskID string) ([]domain.LedgerEntry, error) {
	return r.list(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries WHERE task_id = ? ORDER BY seq`, taskID)
}

func (r *ledgerRepository) SumByAccount(ctx context.Context, accountID string) (int64, error) {
	var total int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE account_id = ?`,
		accountID,
	).Scan(&total)
	return total, err
}

func (r *ledgerRepository) HeldForTask(ctx context.Context, taskID string) (int64, error) {
	var held int64
	err := r.q.QueryRowContext(ctx, `
		SELECT COALESCE(-SUM(amount), 0) FROM ledger_entries
		WHERE task_id = ? AND kind IN ('reserve', 'refund')
	`, taskID).Scan(&held)
	return held, err
}

func (r *ledgerRepository) Totals(ctx context.Context, accountID string) (int64, int64, error) {
	var earned, reserved int64
	err := r.q.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'reserve' THEN -amount ELSE 0 END), 0)
		FROM ledger_entries
		WHERE account_id = ?
	`, accountID).Scan(&earned, &reserved)
	return earned, reserved, err
}

func (r *ledgerRepository) Discrepancies(ctx context.Context) ([]domain.Discrepancy, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT a.id, a.balance, COALESCE(SUM(l.amount), 0) AS ledger_sum
		FROM accounts a
		LEFT JOIN ledger_entries l ON l.account_id = a.id
		GROUP BY a.id, a.balance
		HAVING a.balance <> COALESCE(SUM(l.amount), 0)
		ORDER BY a.id
	`)
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
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			entry   domain.LedgerEntry
			taskID  sql.NullString
			kind    string
			created int64
		)
		if err := rows.Scan(&entry.ID, &entry.AccountID, &taskID, &entry.Amount, &kind, &entry.Description, &created); err != nil {
			return nil, err
		}
		entry.TaskID = taskID.String
		entry.Kind = domain.EntryKind(kind)
		entry.CreatedAt = fromNanos(created)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
