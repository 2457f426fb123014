package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fastygo/taskmarket/repository"
)

// Store is the embedded single-file store used for development and tests.
// SQLite allows one writer, so transactions are serialized on one connection.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// Open creates or opens the database at path and applies the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = ":memory:"
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schema() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	logger.Info("sqlite store ready", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, newTxRepos(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return tx.Commit()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
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
