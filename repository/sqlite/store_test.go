package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "market.db"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedAccount(t *testing.T, store *Store, id string, balance int64) {
	t.Helper()
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Accounts().Create(ctx, &domain.Account{
			ID:       id,
			Username: id,
			Role:     domain.RoleMember,
			Status:   domain.AccountStatusActive,
			Balance:  balance,
		})
	})
	if err != nil {
		t.Fatalf("seed account %s: %v", id, err)
	}
}

func TestAccount_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Accounts().Create(ctx, &domain.Account{
			ID:       "a1",
			Username: "alice",
			Role:     domain.RoleMember,
			Status:   domain.AccountStatusActive,
			Balance:  500,
			Metadata: map[string]string{"college": "north"},
		})
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	var got *domain.Account
	_ = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		got, err = tx.Accounts().GetByID(ctx, "a1")
		return err
	})
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.Balance != 500 {
		t.Errorf("balance = %d, want 500", got.Balance)
	}
	if got.Metadata["college"] != "north" {
		t.Errorf("metadata = %v, want college=north", got.Metadata)
	}
}

func TestAccount_DuplicateUsername(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "alice", 0)

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Accounts().Create(ctx, &domain.Account{ID: "other", Username: "alice", Role: domain.RoleMember, Status: domain.AccountStatusActive})
	})
	if !errors.Is(err, domain.ErrAccountExists) {
		t.Errorf("err = %v, want ErrAccountExists", err)
	}
}

func TestAccount_AdjustBalanceNeverNegative(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "alice", 100)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.Accounts().AdjustBalance(ctx, "alice", -101)
		return err
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	var balance int64
	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		balance, err = tx.Accounts().AdjustBalance(ctx, "alice", -100)
		return err
	})
	if err != nil {
		t.Fatalf("AdjustBalance() error: %v", err)
	}
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}

	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.Accounts().AdjustBalance(ctx, "ghost", 10)
		return err
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "alice", 100)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().AdjustBalance(ctx, "alice", -40); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	var account *domain.Account
	_ = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		account, err = tx.Accounts().GetByID(ctx, "alice")
		return err
	})
	if account.Balance != 100 {
		t.Errorf("balance = %d, want 100 after rollback", account.Balance)
	}
}

func TestTask_UpdateStateIsConditional(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "alice", 100)
	seedAccount(t, store, "bob", 0)
	ctx := context.Background()

	deadline := time.Now().Add(time.Hour).UTC()
	task := &domain.Task{CreatorID: "alice", Title: "notes", Reward: 50, Status: domain.TaskAvailable, Deadline: &deadline}
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Tasks().Create(ctx, task)
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	taken := *task
	taken.Status = domain.TaskInProgress
	taken.AssigneeID = "bob"
	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Tasks().UpdateState(ctx, &taken, domain.TaskAvailable)
	})
	if err != nil {
		t.Fatalf("UpdateState() error: %v", err)
	}

	// stale expectation loses
	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Tasks().UpdateState(ctx, &taken, domain.TaskAvailable)
	})
	if !errors.Is(err, domain.ErrTaskAlreadyTaken) {
		t.Errorf("err = %v, want ErrTaskAlreadyTaken", err)
	}

	var got *domain.Task
	_ = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		got, err = tx.Tasks().GetByID(ctx, task.ID)
		return err
	})
	if got.Status != domain.TaskInProgress || got.AssigneeID != "bob" {
		t.Errorf("task = %s/%s, want in_progress/bob", got.Status, got.AssigneeID)
	}
	if got.Deadline == nil || !got.Deadline.Equal(deadline) {
		t.Errorf("deadline = %v, want %v", got.Deadline, deadline)
	}
}

func TestTask_ListFilters(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "alice", 0)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		for _, task := range []*domain.Task{
			{CreatorID: "alice", Title: "Print notes", Reward: 10, Status: domain.TaskAvailable, Deadline: &past},
			{CreatorID: "alice", Title: "Buy coffee", Reward: 20, Status: domain.TaskAvailable},
			{CreatorID: "alice", Title: "Return books", Reward: 30, Status: domain.TaskCancelled},
		} {
			if err := tx.Tasks().Create(ctx, task); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed tasks: %v", err)
	}

	tests := []struct {
		name   string
		filter repository.TaskFilter
		want   int
	}{
		{"all", repository.TaskFilter{}, 3},
		{"available", repository.TaskFilter{Statuses: []domain.TaskStatus{domain.TaskAvailable}}, 2},
		{"query", repository.TaskFilter{Query: "coffee"}, 1},
		{"expired", repository.TaskFilter{DeadlineBefore: ptrTime(time.Now())}, 1},
		{"creator", repository.TaskFilter{CreatorID: "nobody"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tasks []domain.Task
			err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
				var err error
				tasks, err = tx.Tasks().List(ctx, tt.filter)
				return err
			})
			if err != nil {
				t.Fatalf("List() error: %v", err)
			}
			if len(tasks) != tt.want {
				t.Errorf("len = %d, want %d", len(tasks), tt.want)
			}
		})
	}
}

func TestLedger_HeldAndDiscrepancies(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "alice", 0)
	ctx := context.Background()

	task := &domain.Task{ID: "t1", CreatorID: "alice", Title: "notes", Reward: 40, Status: domain.TaskAvailable}
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Tasks().Create(ctx, task); err != nil {
			return err
		}
		for _, entry := range []*domain.LedgerEntry{
			domain.NewInitialEntry("alice", 100),
			domain.NewReserveEntry(task),
		} {
			if err := tx.Ledger().Append(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	var (
		held          int64
		discrepancies []domain.Discrepancy
	)
	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if held, err = tx.Ledger().HeldForTask(ctx, "t1"); err != nil {
			return err
		}
		discrepancies, err = tx.Ledger().Discrepancies(ctx)
		return err
	})
	if err != nil {
		t.Fatalf("query ledger: %v", err)
	}
	if held != 40 {
		t.Errorf("held = %d, want 40", held)
	}
	// balance is still 0 while the ledger says 60
	if len(discrepancies) != 1 || discrepancies[0].LedgerSum != 60 {
		t.Errorf("discrepancies = %+v, want one with ledger sum 60", discrepancies)
	}
}

func TestConversation_GetOrCreateOncePerTask(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "alice", 0)
	seedAccount(t, store, "bob", 0)
	seedAccount(t, store, "carol", 0)
	ctx := context.Background()

	task := &domain.Task{ID: "t1", CreatorID: "alice", AssigneeID: "bob", Title: "notes", Reward: 5, Status: domain.TaskInProgress}
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Tasks().Create(ctx, task); err != nil {
			return err
		}
		_, created, err := tx.Conversations().GetOrCreateForTask(ctx, task)
		if !created {
			t.Error("first call should create")
		}
		return err
	})
	if err != nil {
		t.Fatalf("first GetOrCreateForTask() error: %v", err)
	}

	task.AssigneeID = "carol"
	var conversation *domain.Conversation
	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var created bool
		var err error
		conversation, created, err = tx.Conversations().GetOrCreateForTask(ctx, task)
		if created {
			t.Error("second call should reuse the conversation")
		}
		return err
	})
	if err != nil {
		t.Fatalf("second GetOrCreateForTask() error: %v", err)
	}
	if len(conversation.Participants) != 3 {
		t.Errorf("participants = %v, want alice, bob and carol", conversation.Participants)
	}
}

func TestFriendship_CreateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "alice", 0)
	seedAccount(t, store, "bob", 0)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Friendships().Create(ctx, &domain.Friendship{FromID: "alice", ToID: "bob", Closeness: 70}); err != nil {
			return err
		}
		return tx.Friendships().Create(ctx, &domain.Friendship{FromID: "alice", ToID: "bob", Closeness: 10})
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	var edge *domain.Friendship
	_ = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		edge, err = tx.Friendships().Get(ctx, "alice", "bob")
		return err
	})
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if edge.Closeness != 70 {
		t.Errorf("closeness = %d, want 70", edge.Closeness)
	}
}

func TestConversation_RemoveParticipant(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "alice", 0)
	seedAccount(t, store, "bob", 0)
	ctx := context.Background()

	task := &domain.Task{ID: "t1", CreatorID: "alice", AssigneeID: "bob", Title: "notes", Reward: 5, Status: domain.TaskInProgress}
	var conversation *domain.Conversation
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Tasks().Create(ctx, task); err != nil {
			return err
		}
		if _, _, err := tx.Conversations().GetOrCreateForTask(ctx, task); err != nil {
			return err
		}
		if err := tx.Conversations().RemoveParticipant(ctx, task.ID, "bob"); err != nil {
			return err
		}
		// removing twice, or from a task without a conversation, is a no-op
		if err := tx.Conversations().RemoveParticipant(ctx, task.ID, "bob"); err != nil {
			return err
		}
		if err := tx.Conversations().RemoveParticipant(ctx, "missing", "bob"); err != nil {
			return err
		}
		var err error
		conversation, err = tx.Conversations().GetByTask(ctx, task.ID)
		return err
	})
	if err != nil {
		t.Fatalf("RemoveParticipant() error: %v", err)
	}
	if len(conversation.Participants) != 1 || !conversation.HasParticipant("alice") {
		t.Errorf("participants = %v, want only alice", conversation.Participants)
	}
}

func TestDispute_DeleteResolvedByTask(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "alice", 0)
	seedAccount(t, store, "bob", 0)
	ctx := context.Background()

	now := time.Now().UTC()
	tasks := []*domain.Task{
		{ID: "t1", CreatorID: "alice", AssigneeID: "bob", Title: "resolved", Reward: 5, Status: domain.TaskInProgress},
		{ID: "t2", CreatorID: "alice", AssigneeID: "bob", Title: "open", Reward: 5, Status: domain.TaskDisputed},
	}
	disputes := []*domain.Dispute{
		{ID: "d1", TaskID: "t1", RaisedBy: "bob", Reason: "late", Status: domain.DisputeResolved, CreatedAt: now, ResolvedAt: &now},
		{ID: "d2", TaskID: "t2", RaisedBy: "bob", Reason: "late", Status: domain.DisputeOpen, CreatedAt: now},
	}
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		for i := range tasks {
			if err := tx.Tasks().Create(ctx, tasks[i]); err != nil {
				return err
			}
			if err := tx.Disputes().Create(ctx, disputes[i]); err != nil {
				return err
			}
		}
		if err := tx.Disputes().DeleteResolvedByTask(ctx, "t1"); err != nil {
			return err
		}
		return tx.Disputes().DeleteResolvedByTask(ctx, "t2")
	})
	if err != nil {
		t.Fatalf("DeleteResolvedByTask() error: %v", err)
	}

	err = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Disputes().GetByTask(ctx, "t1"); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			t.Errorf("resolved dispute lookup error = %v, want not found", err)
		}
		open, err := tx.Disputes().GetByTask(ctx, "t2")
		if err != nil {
			return err
		}
		if !open.IsOpen() {
			t.Errorf("open dispute = %+v, want it kept", open)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
}

func TestFriendRequest_CreateReturnsExisting(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "alice", 0)
	seedAccount(t, store, "bob", 0)
	ctx := context.Background()

	first := &domain.FriendRequest{FromID: "alice", ToID: "bob", Closeness: 40}
	second := &domain.FriendRequest{FromID: "alice", ToID: "bob", Closeness: 90}
	var created [2]bool
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if created[0], err = tx.FriendRequests().Create(ctx, first); err != nil {
			return err
		}
		created[1], err = tx.FriendRequests().Create(ctx, second)
		return err
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if !created[0] || created[1] {
		t.Errorf("created = %v, want [true false]", created)
	}
	if second.ID != first.ID || second.Closeness != 40 {
		t.Errorf("second = %+v, want the stored request %s with closeness 40", second, first.ID)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
