package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/taskmarket/domain"
)

type friendshipRepository struct {
	q querier
}

const friendshipColumns = `from_id, to_id, closeness, created_at, updated_at`

func (r *friendshipRepository) Get(ctx context.Context, fromID, toID string) (*domain.Friendship, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+friendshipColumns+` FROM friendships WHERE from_id = ? AND to_id = ?`,
		fromID, toID,
	)
	return scanFriendship(row)
}

func (r *friendshipRepository) Create(ctx context.Context, edge *domain.Friendship) error {
	if edge == nil || edge.FromID == "" || edge.ToID == "" {
		return domain.ErrInvalidPayload
	}
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO friendships (`+friendshipColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (from_id, to_id) DO NOTHING
	`, edge.FromID, edge.ToID, edge.Closeness, toNanos(now), toNanos(now))
	return err
}

func (r *friendshipRepository) UpdateCloseness(ctx context.Context, edge *domain.Friendship) error {
	if edge == nil {
		return domain.ErrInvalidPayload
	}
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`UPDATE friendships SET closeness = ?, updated_at = ? WHERE from_id = ? AND to_id = ?`,
		edge.Closeness, toNanos(now), edge.FromID, edge.ToID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrFriendshipNotFound
	}
	edge.UpdatedAt = now
	return nil
}

func (r *friendshipRepository) ListFrom(ctx context.Context, fromID string) ([]domain.Friendship, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+friendshipColumns+` FROM friendships WHERE from_id = ? ORDER BY closeness DESC, to_id`,
		fromID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.Friendship
	for rows.Next() {
		edge, err := scanFriendship(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, *edge)
	}
	return edges, rows.Err()
}

func scanFriendship(row scanner) (*domain.Friendship, error) {
	var (
		edge             domain.Friendship
		created, updated int64
	)
	if err := row.Scan(&edge.FromID, &edge.ToID, &edge.Closeness, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFriendshipNotFound
		}
		return nil, err
	}
	edge.CreatedAt = fromNanos(created)
	edge.UpdatedAt = fromNanos(updated)
	return &edge, nil
}

type friendRequestRepository struct {
	q querier
}

const friendRequestColumns = `id, from_id, to_id, closeness, is_accepted, created_at`

func (r *friendRequestRepository) GetByID(ctx context.Context, id string) (*domain.FriendRequest, error) {
	return scanFriendRequest(r.q.QueryRowContext(ctx, `SELECT `+friendRequestColumns+` FROM friend_requests WHERE id = ?`, id))
}

func (r *friendRequestRepository) GetByPair(ctx context.Context, fromID, toID string) (*domain.FriendRequest, error) {
	return scanFriendRequest(r.q.QueryRowContext(ctx,
		`SELECT `+friendRequestColumns+` FROM friend_requests WHERE from_id = ? AND to_id = ?`,
		fromID, toID,
	))
}

func (r *friendRequestRepository) Create(ctx context.Context, request *domain.FriendRequest) (bool, error) {
	if request == nil {
		return false, domain.ErrInvalidPayload
	}
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	request.CreatedAt = time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO friend_requests (`+friendRequestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (from_id, to_id) DO NOTHING
	`,
		request.ID,
		request.FromID,
		request.ToID,
		request.Closeness,
		boolInt(request.IsAccepted),
		toNanos(request.CreatedAt),
	)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}
	existing, err := r.GetByPair(ctx, request.FromID, request.ToID)
	if err != nil {
		return false, err
	}
	*request = *existing
	return false, nil
}

func (r *friendRequestRepository) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM friend_requests WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrFriendRequestNotFound
	}
	return nil
}

func (r *friendRequestRepository) ListIncoming(ctx context.Context, toID string) ([]domain.FriendRequest, error) {
	return r.list(ctx,
		`SELECT `+friendRequestColumns+` FROM friend_requests WHERE to_id = ? AND is_accepted = 0 ORDER BY created_at DESC`,
		toID,
	)
}

func (r *friendRequestRepository) ListOutgoing(ctx context.Context, fromID string) ([]domain.FriendRequest, error) {
	return r.list(ctx,
		`SELECT `+friendRequestColumns+` FROM friend_requests WHERE from_id = ? ORDER BY created_at DESC`,
		fromID,
	)
}

func (r *friendRequestRepository) list(ctx context.Context, query string, args ...any) ([]domain.FriendRequest, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
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
	var (
		request  domain.FriendRequest
		accepted int
		created  int64
	)
	if err := row.Scan(
		&request.ID,
		&request.FromID,
		&request.ToID,
		&request.Closeness,
		&accepted,
		&created,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFriendRequestNotFound
		}
		return nil, err
	}
	request.IsAccepted = accepted == 1
	request.CreatedAt = fromNanos(created)
	return &request, nil
}
