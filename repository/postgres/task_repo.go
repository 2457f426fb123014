package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/repository"
)

type taskRepository struct {
	q querier
}

const taskColumns = `id, creator_id, assignee_id, title, description, reward, status, deadline, cancellation_requested, created_at, updated_at`

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := r.q.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func (r *taskRepository) GetForUpdate(ctx context.Context, id string) (*domain.Task, error) {
	row := r.q.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE ($1 = '' OR creator_id = $1)
	  AND ($2 = '' OR assignee_id = $2)
	  AND ($3::text[] IS NULL OR status = ANY($3::text[]))
	  AND ($4 = '' OR title ILIKE '%' || $4 || '%' OR description ILIKE '%' || $4 || '%')
	  AND ($5::timestamptz IS NULL OR deadline <= $5::timestamptz)
	ORDER BY created_at DESC
	LIMIT $6 OFFSET $7
	`

	var statuses []string
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}
	var deadline interface{}
	if filter.DeadlineBefore != nil {
		deadline = *filter.DeadlineBefore
	}

	rows, err := r.q.Query(ctx, query,
		filter.CreatorID,
		filter.AssigneeID,
		statuses,
		filter.Query,
		deadline,
		clampLimit(filter.Limit),
		filter.Offset,
	)
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

	const query = `
	INSERT INTO tasks (id, creator_id, assignee_id, title, description, reward, status, deadline, cancellation_requested)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING created_at, updated_at
	`

	var deadline interface{}
	if task.Deadline != nil {
		deadline = *task.Deadline
	}

	return r.q.QueryRow(ctx, query,
		task.ID,
		task.CreatorID,
		nullString(task.AssigneeID),
		task.Title,
		task.Description,
		task.Reward,
		string(task.Status),
		deadline,
		task.CancellationRequested,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
}

func (r *taskRepository) UpdateState(ctx context.Context, task *domain.Task, expected domain.TaskStatus) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET status = $2,
		assignee_id = $3,
		cancellation_requested = $4,
		updated_at = NOW()
	WHERE id = $1 AND status = $5
	RETURNING updated_at
	`
	if err := r.q.QueryRow(ctx, query,
		task.ID,
		string(task.Status),
		nullString(task.AssigneeID),
		task.CancellationRequested,
		string(expected),
	).Scan(&task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskAlreadyTaken
		}
		return err
	}
	return nil
}

func (r *taskRepository) PendingRewards(ctx context.Context, creatorID string) (int64, error) {
	const query = `
	SELECT COALESCE(SUM(reward), 0)::BIGINT
	FROM tasks
	WHERE creator_id = $1 AND status IN ('in_progress', 'disputed')
	`
	var total int64
	err := r.q.QueryRow(ctx, query, creatorID).Scan(&total)
	return total, err
}

func scanTask(row scanner) (*domain.Task, error) {
	var task domain.Task
	var (
		assignee *string
		status   string
		deadline *time.Time
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
		&task.CancellationRequested,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.AssigneeID = derefString(assignee)
	task.Status = domain.TaskStatus(status)
	task.Deadline = deadline
	return &task, nil
}
