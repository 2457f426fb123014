package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fastygo/taskmarket/domain"
)

type disputeRepository struct {
	q querier
}

const disputeColumns = `id, task_id, raised_by, reason, status, created_at, resolved_at`

func (r *disputeRepository) GetByID(ctx context.Context, id string) (*domain.Dispute, error) {
	row := r.q.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
	return scanDispute(row)
}

func (r *disputeRepository) GetByTask(ctx context.Context, taskID string) (*domain.Dispute, error) {
	row := r.q.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE task_id = $1`, taskID)
	return scanDispute(row)
}

func (r *disputeRepository) Create(ctx context.Context, dispute *domain.Dispute) error {
	if dispute == nil {
		return domain.ErrInvalidPayload
	}
	if dispute.ID == "" {
		dispute.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO disputes (id, task_id, raised_by, reason, status, created_at)
	VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
	RETURNING created_at
	`
	if err := r.q.QueryRow(ctx, query,
		dispute.ID,
		dispute.TaskID,
		dispute.RaisedBy,
		dispute.Reason,
		string(dispute.Status),
		nullTime(dispute.CreatedAt),
	).Scan(&dispute.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrCodeConflict, "dispute already exists", err)
		}
		return err
	}
	return nil
}

func (r *disputeRepository) Update(ctx context.Context, dispute *domain.Dispute) error {
	if dispute == nil {
		return domain.ErrInvalidPayload
	}
	tag, err := r.q.Exec(ctx,
		`UPDATE disputes SET status = $2, resolved_at = $3 WHERE id = $1`,
		dispute.ID, string(dispute.Status), dispute.ResolvedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDisputeNotFound
	}
	return nil
}

func (r *disputeRepository) DeleteResolvedByTask(ctx context.Context, taskID string) error {
	_, err := r.q.Exec(ctx,
		`DELETE FROM disputes WHERE task_id = $1 AND status = $2`,
		taskID, string(domain.DisputeResolved),
	)
	return err
}

func scanDispute(row scanner) (*domain.Dispute, error) {
	var dispute domain.Dispute
	var status string

	if err := row.Scan(
		&dispute.ID,
		&dispute.TaskID,
		&dispute.RaisedBy,
		&dispute.Reason,
		&status,
		&dispute.CreatedAt,
		&dispute.ResolvedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDisputeNotFound
		}
		return nil, err
	}
	dispute.Status = domain.DisputeStatus(status)
	return &dispute, nil
}
