package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fastygo/taskmarket/domain"
)

type conversationRepository struct {
	q querier
}

func (r *conversationRepository) GetOrCreateForTask(ctx context.Context, task *domain.Task) (*domain.Conversation, bool, error) {
	if task == nil || task.ID == "" {
		return nil, false, domain.ErrInvalidPayload
	}

	tag, err := r.q.Exec(ctx,
		`INSERT INTO conversations (id, task_id, created_at) VALUES ($1, $2, NOW()) ON CONFLICT (task_id) DO NOTHING`,
		uuid.NewString(), task.ID,
	)
	if err != nil {
		return nil, false, err
	}
	created := tag.RowsAffected() == 1

	var conversationID string
	if err := r.q.QueryRow(ctx, `SELECT id FROM conversations WHERE task_id = $1`, task.ID).Scan(&conversationID); err != nil {
		return nil, false, err
	}

	for _, participant := range []string{task.CreatorID, task.AssigneeID} {
		if participant == "" {
			continue
		}
		if _, err := r.q.Exec(ctx,
			`INSERT INTO conversation_participants (conversation_id, account_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			conversationID, participant,
		); err != nil {
			return nil, false, err
		}
	}

	conversation, err := r.GetByTask(ctx, task.ID)
	if err != nil {
		return nil, false, err
	}
	return conversation, created, nil
}

func (r *conversationRepository) GetByTask(ctx context.Context, taskID string) (*domain.Conversation, error) {
	var conversation domain.Conversation
	var task *string
	if err := r.q.QueryRow(ctx,
		`SELECT id, task_id, created_at FROM conversations WHERE task_id = $1`,
		taskID,
	).Scan(&conversation.ID, &task, &conversation.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	conversation.TaskID = derefString(task)

	participants, err := r.participants(ctx, conversation.ID)
	if err != nil {
		return nil, err
	}
	conversation.Participants = participants
	return &conversation, nil
}

func (r *conversationRepository) RemoveParticipant(ctx context.Context, taskID, accountID string) error {
	_, err := r.q.Exec(ctx, `
	DELETE FROM conversation_participants p
	USING conversations c
	WHERE p.conversation_id = c.id AND c.task_id = $1 AND p.account_id = $2
	`, taskID, accountID)
	return err
}

func (r *conversationRepository) ListByParticipant(ctx context.Context, accountID string) ([]domain.Conversation, error) {
	const query = `
	SELECT c.id, c.task_id, c.created_at
	FROM conversations c
	JOIN conversation_participants p ON p.conversation_id = c.id
	WHERE p.account_id = $1
	ORDER BY c.created_at DESC
	`
	rows, err := r.q.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}

	var conversations []domain.Conversation
	for rows.Next() {
		var conversation domain.Conversation
		var task *string
		if err := rows.Scan(&conversation.ID, &task, &conversation.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		conversation.TaskID = derefString(task)
		conversations = append(conversations, conversation)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// a pgx connection cannot run a query while rows are still open
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
	rows, err := r.q.Query(ctx,
		`SELECT account_id FROM conversation_participants WHERE conversation_id = $1 ORDER BY account_id`,
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
