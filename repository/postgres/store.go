package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fastygo/taskmarket/internal/metrics"
	"github.com/fastygo/taskmarket/repository"
)

// Store runs atomic units on a pgx pool. Rows are locked with SELECT ... FOR UPDATE
// and state changes use conditional updates, so READ COMMITTED is sufficient.
// Deadlocks and serialization failures are retried.
type Store struct {
	pool    *pgxpool.Pool
	retries int
	logger  *zap.Logger
}

// NewStore wraps an existing pool.
func NewStore(pool *pgxpool.Pool, retries int, logger *zap.Logger) *Store {
	if retries < 0 {
		retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, retries: retries, logger: logger}
}

func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
			return fn(ctx, newTxRepos(tx))
		})
		if !isRetryable(err) || attempt == s.retries || ctx.Err() != nil {
			return err
		}
		metrics.TxRetries.Inc()
		s.logger.Warn("retrying transaction", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type txRepos struct {
	accounts       *accountRepository
	tasks          *taskRepository
	ledger         *ledgerRepository
	disputes       *disputeRepository
	friendships    *friendshipRepository
	friendRequests *friendRequestRepository
	conversations  *conversationRepository
}

func newTxRepos(q querier) *txRepos {
	return &txRepos{
		accounts:       &accountRepository{q: q},
		tasks:          &taskRepository{q: q},
		ledger:         &ledgerRepository{q: q},
		disputes:       &disputeRepository{q: q},
		friendships:    &friendshipRepository{q: q},
		friendRequests: &friendRequestRepository{q: q},
		conversations:  &conversationRepository{q: q},
	}
}

func (t *txRepos) Accounts() repository.AccountRepository             { return t.accounts }
func (t *txRepos) Tasks() repository.TaskRepository                   { return t.tasks }
func (t *txRepos) Ledger() repository.LedgerRepository                { return t.ledger }
func (t *txRepos) Disputes() repository.DisputeRepository             { return t.disputes }
func (t *txRepos) Friendships() repository.FriendshipRepository       { return t.friendships }
func (t *txRepos) FriendRequests() repository.FriendRequestRepository { return t.friendRequests }
func (t *txRepos) Conversations() repository.ConversationRepository   { return t.conversations }

var _ repository.Store = (*Store)(nil)
