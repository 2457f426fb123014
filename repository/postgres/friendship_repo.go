package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fastygo/taskmarket/domain"
)

type friendshipRepository struct {
	q querier
}

func (r *friendshipRepository) Get(ctx context.Context, fromID, toID string) (*domain.Friendship, error) {
	const query = `
	SELECT from_id, to_id, closeness, created_at, updated_at
	FROM friendships
	WHERE from_id = $1 AND to_id = $2
	`
	var edge domain.Friendship
	if err := r.q.QueryRow(ctx, query, fromID, toID).Scan(
		&edge.FromID, &edge.ToID, &edge.Closeness, &edge.CreatedAt, &edge.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFriendshipNotFound
		}
		return nil, err
	}
	return &edge, nil
}

func (r *friendshipRepository) Create(ctx context.Context, edge *domain.Friendship) error {
	if edge == nil || edge.FromID == "" || edge.ToID == "" {
		return domain.ErrInvalidPayload
	}
	const query = `
	INSERT INTO friendships (from_id, to_id, closeness, created_at, updated_at)
	VALUES ($1, $2, $3, NOW(), NOW())
	ON CONFLICT (from_id, to_id) DO NOTHING
	`
	_, err := r.q.Exec(ctx, query, edge.FromID, edge.ToID, edge.Closeness)
	return err
}

func (r *friendshipRepository) UpdateCloseness(ctx context.Context, edge *domain.Friendship) error {
	if edge == nil {
		return domain.ErrInvalidPayload
	}
	const query = `
	UPDATE friendships
	SET closeness = $3, updated_at = NOW()
	WHERE from_id = $1 AND to_id = $2
	RETURNING updated_at
	`
	if err := r.q.QueryRow(ctx, query, edge.FromID, edge.ToID, edge.Closeness).Scan(&edge.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrFriendshipNotFound
		}
		return err
	}
	return nil
}

func (r *friendshipRepository) ListFrom(ctx context.Context, fromID string) ([]domain.Friendship, error) {
	const query = `
	SELECT from_id, to_id, closeness, created_at, updated_at
	FROM friendships
	WHERE from_id = $1
	ORDER BY closeness DESC, to_id
	`
	rows, err := r.q.Query(ctx, query, fromID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.Friendship
	for rows.Next() {
		var edge domain.Friendship
		if err := rows.Scan(&edge.FromID, &edge.ToID, &edge.Closeness, &edge.CreatedAt, &edge.UpdatedAt); err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

type friendRequestRepository struct {
	q querier
}

const friendRequestColumns = `id, from_id, to_id, closeness, is_accepted, created_at`

func (r *friendRequestRepository) GetByID(ctx context.Context, id string) (*domain.FriendRequest, error) {
	row := r.q.QueryRow(ctx, `SELECT `+friendRequestColumns+` FROM friend_requests WHERE id = $1 FOR UPDATE`, id)
	return scanFriendRequest(row)
}

func (r *friendRequestRepository) GetByPair(ctx context.Context, fromID, toID string) (*domain.FriendRequest, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+friendRequestColumns+` FROM friend_requests WHERE from_id = $1 AND to_id = $2`,
		fromID, toID,
	)
	return scanFriendRequest(row)
}

func (r *friendRequestRepository) Create(ctx context.Context, request *domain.FriendRequest) (bool, error) {
	if request == nil {
		return false, domain.ErrInvalidPayload
	}
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	const query = `
	INSERT INTO friend_requests (id, from_id, to_id, closeness, is_accepted, created_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (from_id, to_id) DO NOTHING
	RETURNING created_at
	`
	err := r.q.QueryRow(ctx, query,
		request.ID, request.FromID, request.ToID, request.Closeness, request.IsAccepted,
	).Scan(&request.CreatedAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}
	// A concurrent sender won the pair; READ COMMITTED lets this statement see it.
	existing, err := r.GetByPair(ctx, request.FromID, request.ToID)
	if err != nil {
		return false, err
	}
	*request = *existing
	return false, nil
}

func (r *friendRequestRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM friend_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFriendRequestNotFound
	}
	return nil
}

func (r *friendRequestRepository) ListIncoming(ctx context.Context, toID string) ([]domain.FriendRequest, error) {
	return r.list(ctx,
		`SELECT `+friendRequestColumns+` FROM friend_requests WHERE to_id = $1 AND NOT is_accepted ORDER BY created_at DESC`,
		toID,
	)
}

func (r *friendRequestRepository) ListOutgoing(ctx context.Context, fromID string) ([]domain.FriendRequest, error) {
	return r.list(ctx,
		`SELECT `+friendRequestColumns+` FROM friend_requests WHERE from_id = $1 ORDER BY created_at DESC`,
		fromID,
	)
}

func (r *friendRequestRepository) list(ctx context.Context, query string, args ...any) ([]domain.FriendRequest, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []domain.FriendRequest
	for rows.Next() {
		request, err := scanFriendRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *request)
	}
	return requests, rows.Err()
}

func scanFriendRequest(row scanner) (*domain.FriendRequest, error) {
	var request domain.FriendRequest
	if err := row.Scan(
		&request.ID,
		&request.FromID,
		&request.ToID,
		&request.Closeness,
		&request.IsAccepted,
		&request.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFriendRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}
