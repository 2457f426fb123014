package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/fastygo/taskmarket/domain"
)

type conversationRepository struct {
	q querier
}

func (r *conversationRepository) GetOrCreateForTask(ctx context.Context, task *domain.Task) (*domain.Conversation, bool, error) {
	if task == nil || task.ID == "" {
		return nil, false, domain.ErrInvalidPayload
	}

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO conversations (id, task_id, created_at) VALUES (?, ?, ?) ON CONFLICT (task_id) DO NOTHING`,
		uuid.NewString(), task.ID, toNanos(task.UpdatedAt),
	)
	if err != nil {
		return nil, false, err
	}
	n, _ := res.RowsAffected()

	var conversationID string
	if err := r.q.QueryRowContext(ctx, `SELECT id FROM conversations WHERE task_id = ?`, task.ID).Scan(&conversationID); err != nil {
		return nil, false, err
	}

	for _, participant := range []string{task.CreatorID, task.AssigneeID} {
		if participant == "" {
			continue
		}
		if _, err := r.q.ExecContext(ctx,
			`INSERT INTO conversation_participants (conversation_id, account_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			conversationID, participant,
		); err != nil {
			return nil, false, err
		}
	}

	conversation, err := r.GetByTask(ctx, task.ID)
	if err != nil {
		return nil, false, err
	}
	return conversation, n == 1, nil
}

func (r *conversationRepository) GetByTask(ctx context.Context, taskID string) (*domain.Conversation, error) {
	var (
		conversation domain.Conversation
		task         sql.NullString
		created      int64
	)
	if err := r.q.QueryRowContext(ctx,
		`SELECT id, task_id, created_at FROM conversations WHERE task_id = ?`,
		taskID,
	).Scan(&conversation.ID, &task, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	conversation.TaskID = task.String
	conversation.CreatedAt = fromNanos(created)

	participants, err := r.participants(ctx, conversation.ID)
	if err != nil {
		return nil, err
	}
	conversation.Participants = participants
	return &conversation, nil
}

func (r *conversationRepository) RemoveParticipant(ctx context.Context, taskID, accountID string) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM conversation_participants
		WHERE account_id = ?
		  AND conversation_id IN (SELECT id FROM conversations WHERE task_id = ?)
	`, accountID, taskID)
	return err
}

func (r *conversationRepository) ListByParticipant(ctx context.Context, accountID string) ([]domain.Conversation, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT c.id, c.task_id, c.created_at
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE p.account_id = ?
		ORDER BY c.created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}

	var conversations []domain.Conversation
	for rows.Next() {
		var (
			conversation domain.Conversation
			task         sql.NullString
			created      int64
		)
		if err := rows.Scan(&conversation.ID, &task, &created); err != nil {
			rows.Close()
			return nil, err
		}
		conversation.TaskID = task.String
		conversation.CreatedAt = fromNanos(created)
		conversations = append(conversations, conversation)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// the single connection is busy until rows are closed
	for i := range conversations {
		participants, err := r.participants(ctx, conversations[i].ID)
		if err != nil {
			return nil, err
		}
		conversations[i].Participants = participants
	}
	return conversations, nil
}

func (r *conversationRepository) participants(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT account_id FROM conversation_participants WHERE conversation_id = ? ORDER BY account_id`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		participants = append(participants, id)
	}
	return participants, rows.Err()
}
