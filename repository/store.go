package repository

import "context"

// TxFunc runs inside a single atomic unit. Returning an error rolls everything back.
type TxFunc func(ctx context.Context, tx Tx) error

// Store runs atomic units against the shared persistent store.
type Store interface {
	WithinTx(ctx context.Context, fn TxFunc) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx exposes per-entity storage bound to one transaction.
type Tx interface {
	Accounts() AccountRepository
	Tasks() TaskRepository
	Ledger() LedgerRepository
	Disputes() DisputeRepository
	Friendships() FriendshipRepository
	FriendRequests() FriendRequestRepository
	Conversations() ConversationRepository
}
