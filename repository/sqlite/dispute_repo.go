package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/fastygo/taskmarket/domain"
)

type disputeRepository struct {
	q querier
}

const disputeColumns = `id, task_id, raised_by, reason, status, created_at, resolved_at`

func (r *disputeRepository) GetByID(ctx context.Context, id string) (*domain.Dispute, error) {
	return scanDispute(r.q.QueryRowContext(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = ?`, id))
}

func (r *disputeRepository) GetByTask(ctx context.Context, taskID string) (*domain.Dispute, error) {
	return scanDispute(r.q.QueryRowContext(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE task_id = ?`, taskID))
}

func (r *disputeRepository) Create(ctx context.Context, dispute *domain.Dispute) error {
	if dispute == nil {
		return domain.ErrInvalidPayload
	}
	if dispute.ID == "" {
		dispute.ID = uuid.NewString()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO disputes (`+disputeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		dispute.ID,
		dispute.TaskID,
		dispute.RaisedBy,
		dispute.Reason,
		string(dispute.Status),
		toNanos(dispute.CreatedAt),
		nullNanos(dispute.ResolvedAt),
	)
	if isUniqueViolation(err) {
		return domain.WrapError(domain.ErrCodeConflict, "dispute already exists", err)
	}
	return err
}

func (r *disputeRepository) Update(ctx context.Context, dispute *domain.Dispute) error {
	if dispute == nil {
		return domain.ErrInvalidPayload
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE disputes SET status = ?, resolved_at = ? WHERE id = ?`,
		string(dispute.Status), nullNanos(dispute.ResolvedAt), dispute.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDisputeNotFound
	}
	return nil
}

func (r *disputeRepository) DeleteResolvedByTask(ctx context.Context, taskID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM disputes WHERE task_id = ? AND status = ?`,
		taskID, string(domain.DisputeResolved),
	)
	return err
}

func scanDispute(row scanner) (*domain.Dispute, error) {
	var (
		dispute  domain.Dispute
		status   string
		created  int64
		resolved sql.NullInt64
	)
	if err := row.Scan(
		&dispute.ID,
		&dispute.TaskID,
		&dispute.RaisedBy,
		&dispute.Reason,
		&status,
		&created,
		&resolved,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDisputeNotFound
		}
		return nil, err
	}
	dispute.Status = domain.DisputeStatus(status)
	dispute.CreatedAt = fromNanos(created)
	dispute.ResolvedAt = timePtr(resolved)
	return &dispute, nil
}
