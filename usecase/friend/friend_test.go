package friend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/repository"
	"github.com/fastygo/taskmarket/repository/sqlite"
	"github.com/fastygo/taskmarket/usecase/ledger"
)

type countingSink struct {
	events []domain.Event
}

func (s *countingSink) Dispatch(_ context.Context, events ...domain.Event) {
	s.events = append(s.events, events...)
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "friends.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	accounts := ledger.New(store, nil, 0, logger)
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		if _, err := accounts.OpenAccount(context.Background(), ledger.OpenAccountInput{ID: name, Username: name}); err != nil {
			t.Fatalf("open account %s: %v", name, err)
		}
	}
	return store
}

func intPtr(v int) *int { return &v }

func TestSendRequest_Validation(t *testing.T) {
	uc := New(newStore(t), nil, DefaultPolicy(), zaptest.NewLogger(t))
	ctx := context.Background()

	tests := []struct {
		name      string
		from, to  string
		closeness *int
		want      domain.ErrorCode
	}{
		{"self", "alice", "alice", nil, domain.ErrCodeInvalid},
		{"too close", "alice", "bob", intPtr(101), domain.ErrCodeInvalid},
		{"negative", "alice", "bob", intPtr(-1), domain.ErrCodeInvalid},
		{"unknown target", "alice", "zoe", nil, domain.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := uc.SendRequest(ctx, tt.from, tt.to, tt.closeness)
			if got := domain.CodeOf(err); err == nil || got != tt.want {
				t.Fatalf("SendRequest() error = %v, want code %s", err, tt.want)
			}
		})
	}
}

func TestSendRequest_Idempotent(t *testing.T) {
	sink := &countingSink{}
	uc := New(newStore(t), sink, DefaultPolicy(), zaptest.NewLogger(t))
	ctx := context.Background()

	first, created, err := uc.SendRequest(ctx, "alice", "bob", nil)
	if err != nil || !created {
		t.Fatalf("SendRequest() = %v, %v", created, err)
	}
	if first.Closeness != domain.DefaultCloseness {
		t.Errorf("closeness = %d, want default %d", first.Closeness, domain.DefaultCloseness)
	}

	second, created, err := uc.SendRequest(ctx, "alice", "bob", intPtr(90))
	if err != nil {
		t.Fatalf("SendRequest() repeat error: %v", err)
	}
	if created || second.ID != first.ID {
		t.Errorf("repeat send created %+v", second)
	}

	if len(sink.events) != 1 {
		t.Fatalf("events = %d, want 1", len(sink.events))
	}
	if e := sink.events[0]; e.RecipientID != "bob" || e.Message != "alice sent you a friend request." || e.Link != "/friends" {
		t.Errorf("notification = %+v", e)
	}
}

func TestSendRequest_ConcurrentSendersShareOneRequest(t *testing.T) {
	store := newStore(t)
	uc := New(store, nil, DefaultPolicy(), zaptest.NewLogger(t))
	ctx := context.Background()

	const senders = 8
	var (
		g       errgroup.Group
		ids     [senders]string
		created [senders]bool
	)
	for i := 0; i < senders; i++ {
		i := i
		g.Go(func() error {
			request, ok, err := uc.SendRequest(ctx, "alice", "bob", nil)
			if err != nil {
				return err
			}
			ids[i], created[i] = request.ID, ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("SendRequest() error: %v", err)
	}

	winners := 0
	for i := 0; i < senders; i++ {
		if created[i] {
			winners++
		}
		if ids[i] != ids[0] {
			t.Errorf("sender %d got request %s, want %s", i, ids[i], ids[0])
		}
	}
	if winners != 1 {
		t.Errorf("created = %d times, want 1", winners)
	}
}

func TestAcceptRequest_CreatesSymmetricEdges(t *testing.T) {
	sink := &countingSink{}
	uc := New(newStore(t), sink, DefaultPolicy(), zaptest.NewLogger(t))
	ctx := context.Background()

	request, _, err := uc.SendRequest(ctx, "alice", "bob", intPtr(70))
	if err != nil {
		t.Fatalf("SendRequest() error: %v", err)
	}
	if _, err := uc.AcceptRequest(ctx, request.ID, "alice"); !errors.Is(err, domain.ErrNotRequestTarget) {
		t.Fatalf("sender accepted own request: %v", err)
	}

	edges, err := uc.AcceptRequest(ctx, request.ID, "bob")
	if err != nil {
		t.Fatalf("AcceptRequest() error: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("edges = %+v, want 2", edges)
	}
	for _, e := range edges {
		if e.Closeness != 70 {
			t.Errorf("edge %s->%s closeness = %d, want 70", e.FromID, e.ToID, e.Closeness)
		}
	}

	for _, id := range []string{"alice", "bob"} {
		friends, err := uc.ListFriends(ctx, id)
		if err != nil {
			t.Fatalf("ListFriends(%s) error: %v", id, err)
		}
		if len(friends) != 1 {
			t.Errorf("%s has %d friends, want 1", id, len(friends))
		}
	}
	incoming, err := uc.IncomingRequests(ctx, "bob")
	if err != nil {
		t.Fatalf("IncomingRequests() error: %v", err)
	}
	if len(incoming) != 0 {
		t.Errorf("accepted request still pending: %+v", incoming)
	}

	if _, _, err := uc.SendRequest(ctx, "bob", "alice", nil); !errors.Is(err, domain.ErrAlreadyFriends) {
		t.Errorf("request between friends: %v, want ErrAlreadyFriends", err)
	}
	last := sink.events[len(sink.events)-1]
	if last.RecipientID != "alice" || last.Message != "bob accepted your friend request." {
		t.Errorf("accept notification = %+v", last)
	}
}

func TestAcceptRequest_RemovesCrossingRequest(t *testing.T) {
	uc := New(newStore(t), nil, DefaultPolicy(), zaptest.NewLogger(t))
	ctx := context.Background()

	request, _, err := uc.SendRequest(ctx, "alice", "bob", nil)
	if err != nil {
		t.Fatalf("SendRequest() error: %v", err)
	}
	if _, _, err := uc.SendRequest(ctx, "bob", "alice", nil); err != nil {
		t.Fatalf("crossing SendRequest() error: %v", err)
	}
	if _, err := uc.AcceptRequest(ctx, request.ID, "bob"); err != nil {
		t.Fatalf("AcceptRequest() error: %v", err)
	}

	incoming, err := uc.IncomingRequests(ctx, "alice")
	if err != nil {
		t.Fatalf("IncomingRequests() error: %v", err)
	}
	if len(incoming) != 0 {
		t.Errorf("crossing request left behind: %+v", incoming)
	}
}

// failingStore fails the second friendship insert of every transaction.
type failingStore struct {
	repository.Store
}

func (s failingStore) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, &failingTx{Tx: tx})
	})
}

type failingTx struct {
	repository.Tx
	creates int
}

func (t *failingTx) Friendships() repository.FriendshipRepository {
	return &failingFriendships{FriendshipRepository: t.Tx.Friendships(), tx: t}
}

type failingFriendships struct {
	repository.FriendshipRepository
	tx *failingTx
}

func (f *failingFriendships) Create(ctx context.Context, edge *domain.Friendship) error {
	f.tx.creates++
	if f.tx.creates == 2 {
		return errors.New("disk full")
	}
	return f.FriendshipRepository.Create(ctx, edge)
}

func TestAcceptRequest_PartialFailureLeavesNoEdges(t *testing.T) {
	store := newStore(t)
	logger := zaptest.NewLogger(t)
	healthy := New(store, nil, DefaultPolicy(), logger)
	broken := New(failingStore{Store: store}, nil, DefaultPolicy(), logger)
	ctx := context.Background()

	request, _, err := healthy.SendRequest(ctx, "alice", "bob", nil)
	if err != nil {
		t.Fatalf("SendRequest() error: %v", err)
	}
	if _, err := broken.AcceptRequest(ctx, request.ID, "bob"); err == nil {
		t.Fatal("AcceptRequest() succeeded despite failing insert")
	}

	for _, id := range []string{"alice", "bob"} {
		friends, err := healthy.ListFriends(ctx, id)
		if err != nil {
			t.Fatalf("ListFriends(%s) error: %v", id, err)
		}
		if len(friends) != 0 {
			t.Errorf("%s has edges after rollback: %+v", id, friends)
		}
	}
	incoming, err := healthy.IncomingRequests(ctx, "bob")
	if err != nil {
		t.Fatalf("IncomingRequests() error: %v", err)
	}
	if len(incoming) != 1 {
		t.Errorf("request lost after rollback: %+v", incoming)
	}
}

func TestDeclineRequest(t *testing.T) {
	sink := &countingSink{}
	uc := New(newStore(t), sink, DefaultPolicy(), zaptest.NewLogger(t))
	ctx := context.Background()

	request, _, err := uc.SendRequest(ctx, "alice", "bob", nil)
	if err != nil {
		t.Fatalf("SendRequest() error: %v", err)
	}
	if err := uc.DeclineRequest(ctx, request.ID, "carol"); !errors.Is(err, domain.ErrNotRequestTarget) {
		t.Fatalf("DeclineRequest() by stranger = %v", err)
	}
	if err := uc.DeclineRequest(ctx, request.ID, "bob"); err != nil {
		t.Fatalf("DeclineRequest() error: %v", err)
	}
	if err := uc.DeclineRequest(ctx, request.ID, "bob"); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Errorf("second decline = %v, want NOT_FOUND", err)
	}

	for _, e := range sink.events {
		if e.Name == domain.EventFriendRequestDeclined && e.HasNotification() {
			t.Errorf("decline notified the sender: %+v", e)
		}
	}
}

func TestUpdateCloseness_OneDirection(t *testing.T) {
	uc := New(newStore(t), nil, DefaultPolicy(), zaptest.NewLogger(t))
	ctx := context.Background()

	request, _, err := uc.SendRequest(ctx, "alice", "bob", intPtr(40))
	if err != nil {
		t.Fatalf("SendRequest() error: %v", err)
	}
	if _, err := uc.AcceptRequest(ctx, request.ID, "bob"); err != nil {
		t.Fatalf("AcceptRequest() error: %v", err)
	}

	if _, err := uc.UpdateCloseness(ctx, "alice", "bob", "carol", 90); !errors.Is(err, domain.ErrNotEdgeEndpoint) {
		t.Errorf("stranger update = %v, want ErrNotEdgeEndpoint", err)
	}
	if _, err := uc.UpdateCloseness(ctx, "alice", "carol", "alice", 90); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Errorf("missing edge update = %v, want NOT_FOUND", err)
	}
	if _, err := uc.UpdateCloseness(ctx, "alice", "bob", "alice", 150); !errors.Is(err, domain.ErrInvalidCloseness) {
		t.Errorf("out of range update = %v, want ErrInvalidCloseness", err)
	}

	edge, err := uc.UpdateCloseness(ctx, "alice", "bob", "alice", 90)
	if err != nil {
		t.Fatalf("UpdateCloseness() error: %v", err)
	}
	if edge.Closeness != 90 {
		t.Errorf("closeness = %d, want 90", edge.Closeness)
	}

	back, err := uc.ListFriends(ctx, "bob")
	if err != nil {
		t.Fatalf("ListFriends() error: %v", err)
	}
	if len(back) != 1 || back[0].Closeness != 40 {
		t.Errorf("reverse edge = %+v, want closeness 40", back)
	}
}

func TestSuggestions_ExcludeKnownAccounts(t *testing.T) {
	uc := New(newStore(t), nil, DefaultPolicy(), zaptest.NewLogger(t))
	ctx := context.Background()

	request, _, err := uc.SendRequest(ctx, "alice", "bob", nil)
	if err != nil {
		t.Fatalf("SendRequest() error: %v", err)
	}
	if _, err := uc.AcceptRequest(ctx, request.ID, "bob"); err != nil {
		t.Fatalf("AcceptRequest() error: %v", err)
	}
	if _, _, err := uc.SendRequest(ctx, "carol", "alice", nil); err != nil {
		t.Fatalf("SendRequest() error: %v", err)
	}

	suggestions, err := uc.Suggestions(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("Suggestions() error: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].ID != "dave" {
		t.Errorf("suggestions = %+v, want only dave", suggestions)
	}
}
