package friend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/repository"
	"github.com/fastygo/taskmarket/usecase"
)

const friendsLink = "/friends"

// Policy bounds the closeness values accepted from users.
type Policy struct {
	DefaultCloseness int
	MinCloseness     int
	MaxCloseness     int
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultCloseness: domain.DefaultCloseness,
		MinCloseness:     domain.MinCloseness,
		MaxCloseness:     domain.MaxCloseness,
	}
}

type UseCase struct {
	store  repository.Store
	events usecase.EventSink
	policy Policy
	logger *zap.Logger
}

func New(store repository.Store, events usecase.EventSink, policy Policy, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxCloseness <= policy.MinCloseness {
		policy = DefaultPolicy()
	}
	if !domain.ValidCloseness(policy.DefaultCloseness, policy.MinCloseness, policy.MaxCloseness) {
		policy.DefaultCloseness = policy.MinCloseness + (policy.MaxCloseness-policy.MinCloseness)/2
	}
	return &UseCase{
		store:  store,
		events: events,
		policy: policy,
		logger: logger,
	}
}

// SendRequest proposes a friendship. Sending the same request twice returns the
// pending one with created=false. A nil closeness uses the policy default.
func (uc *UseCase) SendRequest(ctx context.Context, fromID, toID string, closeness *int) (*domain.FriendRequest, bool, error) {
	if fromID == toID {
		return nil, false, domain.ErrSelfFriendRequest
	}
	proposed := uc.policy.DefaultCloseness
	if closeness != nil {
		proposed = *closeness
	}
	if !domain.ValidCloseness(proposed, uc.policy.MinCloseness, uc.policy.MaxCloseness) {
		return nil, false, domain.ErrInvalidCloseness
	}

	var (
		request *domain.FriendRequest
		created bool
		events  []domain.Event
	)
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		created, events = false, nil
		sender, err := tx.Accounts().GetByID(ctx, fromID)
		if err != nil {
			return err
		}
		if _, err := tx.Accounts().GetByID(ctx, toID); err != nil {
			return err
		}

		if _, err := tx.Friendships().Get(ctx, fromID, toID); err == nil {
			return domain.ErrAlreadyFriends
		} else if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return err
		}

		existing, err := tx.FriendRequests().GetByPair(ctx, fromID, toID)
		switch {
		case err == nil:
			request = existing
			return nil
		case !domain.IsDomainError(err, domain.ErrCodeNotFound):
			return err
		}

		request = &domain.FriendRequest{FromID: fromID, ToID: toID, Closeness: proposed}
		if created, err = tx.FriendRequests().Create(ctx, request); err != nil || !created {
			return err
		}
		events = append(events, domain.NewEvent(domain.EventFriendRequestSent, request.ID, fromID).
			Notify(toID, fmt.Sprintf("%s sent you a friend request.", sender.Username), friendsLink))
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	usecase.Emit(ctx, uc.events, events...)
	return request, created, nil
}

// AcceptRequest creates both directed edges with the proposed closeness and
// deletes the request. Either all three writes commit or none do.
func (uc *UseCase) AcceptRequest(ctx context.Context, requestID, actorID string) ([]domain.Friendship, error) {
	var (
		edges  []domain.Friendship
		events []domain.Event
	)
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		edges, events = nil, nil
		request, err := tx.FriendRequests().GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if request.ToID != actorID {
			return domain.ErrNotRequestTarget
		}
		recipient, err := tx.Accounts().GetByID(ctx, actorID)
		if err != nil {
			return err
		}

		forward := domain.Friendship{FromID: request.FromID, ToID: request.ToID, Closeness: request.Closeness}
		for _, edge := range []domain.Friendship{forward, forward.Reverse()} {
			edge := edge
			if err := tx.Friendships().Create(ctx, &edge); err != nil {
				return err
			}
			stored, err := tx.Friendships().Get(ctx, edge.FromID, edge.ToID)
			if err != nil {
				return err
			}
			edges = append(edges, *stored)
		}

		if err := tx.FriendRequests().Delete(ctx, request.ID); err != nil {
			return err
		}
		// a crossing request in the other direction is now redundant
		if reverse, err := tx.FriendRequests().GetByPair(ctx, request.ToID, request.FromID); err == nil {
			if err := tx.FriendRequests().Delete(ctx, reverse.ID); err != nil {
				return err
			}
		} else if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return err
		}

		events = append(events, domain.NewEvent(domain.EventFriendRequestAccepted, request.ID, actorID).
			Notify(request.FromID, fmt.Sprintf("%s accepted your friend request.", recipient.Username), friendsLink))
		return nil
	})
	if err != nil {
		return nil, err
	}
	usecase.Emit(ctx, uc.events, events...)
	return edges, nil
}

// DeclineRequest deletes the request without notifying the sender.
func (uc *UseCase) DeclineRequest(ctx context.Context, requestID, actorID string) error {
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		request, err := tx.FriendRequests().GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if request.ToID != actorID {
			return domain.ErrNotRequestTarget
		}
		return tx.FriendRequests().Delete(ctx, request.ID)
	})
	if err != nil {
		return err
	}
	usecase.Emit(ctx, uc.events, domain.NewEvent(domain.EventFriendRequestDeclined, requestID, actorID))
	return nil
}

// UpdateCloseness changes one direction of a friendship. The opposite edge keeps its value.
func (uc *UseCase) UpdateCloseness(ctx context.Context, fromID, toID, actorID string, closeness int) (*domain.Friendship, error) {
	if actorID == "" || (actorID != fromID && actorID != toID) {
		return nil, domain.ErrNotEdgeEndpoint
	}
	if !domain.ValidCloseness(closeness, uc.policy.MinCloseness, uc.policy.MaxCloseness) {
		return nil, domain.ErrInvalidCloseness
	}

	var edge *domain.Friendship
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if edge, err = tx.Friendships().Get(ctx, fromID, toID); err != nil {
			return err
		}
		edge.Closeness = closeness
		return tx.Friendships().UpdateCloseness(ctx, edge)
	})
	if err != nil {
		return nil, err
	}
	usecase.Emit(ctx, uc.events, domain.NewEvent(domain.EventFriendshipClosenessUpdate, fromID+":"+toID, actorID))
	return edge, nil
}

// ListFriends returns the account's outgoing edges, closest first.
func (uc *UseCase) ListFriends(ctx context.Context, accountID string) ([]domain.Friendship, error) {
	var edges []domain.Friendship
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		edges, err = tx.Friendships().ListFrom(ctx, accountID)
		return err
	})
	return edges, err
}

func (uc *UseCase) IncomingRequests(ctx context.Context, accountID string) ([]domain.FriendRequest, error) {
	var requests []domain.FriendRequest
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		requests, err = tx.FriendRequests().ListIncoming(ctx, accountID)
		return err
	})
	return requests, err
}

func (uc *UseCase) OutgoingRequests(ctx context.Context, accountID string) ([]domain.FriendRequest, error) {
	var requests []domain.FriendRequest
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		requests, err = tx.FriendRequests().ListOutgoing(ctx, accountID)
		return err
	})
	return requests, err
}

// Suggestions lists accounts that are not the caller, not already friends, and
// not on either side of a pending request with the caller.
func (uc *UseCase) Suggestions(ctx context.Context, accountID string, limit int) ([]domain.Account, error) {
	var accounts []domain.Account
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		exclude := []string{accountID}

		edges, err := tx.Friendships().ListFrom(ctx, accountID)
		if err != nil {
			return err
		}
		for _, e := range edges {
			exclude = append(exclude, e.ToID)
		}
		incoming, err := tx.FriendRequests().ListIncoming(ctx, accountID)
		if err != nil {
			return err
		}
		for _, r := range incoming {
			exclude = append(exclude, r.FromID)
		}
		outgoing, err := tx.FriendRequests().ListOutgoing(ctx, accountID)
		if err != nil {
			return err
		}
		for _, r := range outgoing {
			exclude = append(exclude, r.ToID)
		}

		accounts, err = tx.Accounts().List(ctx, repository.AccountFilter{ExcludeIDs: exclude, Limit: limit})
		return err
	})
	return accounts, err
}
