package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/repository"
)

type taskRepository struct {
	q querier
}

const taskColumns = `id, creator_id, assignee_id, title, description, reward, status, deadline, cancellation_requested, created_at, updated_at`

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

func (r *taskRepository) GetForUpdate(ctx context.Context, id string) (*domain.Task, error) {
	return r.GetByID(ctx, id)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CreatorID != "" {
		conds = append(conds, `creator_id = ?`)
		args = append(args, filter.CreatorID)
	}
	if filter.AssigneeID != "" {
		conds = append(conds, `assignee_id = ?`)
		args = append(args, filter.AssigneeID)
	}
	if len(filter.Statuses) > 0 {
		conds = append(conds, `status IN (`+placeholders(len(filter.Statuses))+`)`)
		for _, s := range filter.Statuses {
			args = append(args, string(s))
		}
	}
	if filter.Query != "" {
		conds = append(conds, `(title LIKE ? OR description LIKE ?)`)
		like := "%" + filter.Query + "%"
		args = append(args, like, like)
	}
	if filter.DeadlineBefore != nil {
		conds = append(conds, `deadline IS NOT NULL AND deadline <= ?`)
		args = append(args, filter.DeadlineBefore.UTC().UnixNano())
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, clampLimit(filter.Limit), filter.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.CreatedAt, task.UpdatedAt = now, now

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		task.ID,
		task.CreatorID,
		nullString(task.AssigneeID),
		task.Title,
		task.Description,
		task.Reward,
		string(task.Status),
		nullNanos(task.Deadline),
		boolInt(task.CancellationRequested),
		toNanos(task.CreatedAt),
		toNanos(task.UpdatedAt),
	)
	return err
}

func (r *taskRepository) UpdateState(ctx context.Context, task *domain.Task, expected domain.TaskStatus) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, assignee_id = ?, cancellation_requested = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`,
		string(task.Status),
		nullString(task.AssigneeID),
		boolInt(task.CancellationRequested),
		toNanos(now),
		task.ID,
		string(expected),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTaskAlreadyTaken
	}
	task.UpdatedAt = now
	return nil
}

func (r *taskRepository) PendingRewards(ctx context.Context, creatorID string) (int64, error) {
	var total int64
	err := r.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(reward), 0) FROM tasks
		WHERE creator_id = ? AND status IN ('in_progress', 'disputed')
	`, creatorID).Scan(&total)
	return total, err
}

func scanTask(row scanner) (*domain.Task, error) {
	var (
		task             domain.Task
		assignee         sql.NullString
		status           string
		deadline         sql.NullInt64
		cancellation     int
		created, updated int64
	)
	if err := row.Scan(
		&task.ID,
		&task.CreatorID,
		&assignee,
		&task.Title,
		&task.Description,
		&task.Reward,
		&status,
		&deadline,
		&cancellation,
		&created,
		&updated,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	task.AssigneeID = assignee.String
	task.Status = domain.TaskStatus(status)
	task.Deadline = timePtr(deadline)
	task.CancellationRequested = cancellation == 1
	task.CreatedAt = fromNanos(created)
	task.UpdatedAt = fromNanos(updated)
	return &task, nil
}
