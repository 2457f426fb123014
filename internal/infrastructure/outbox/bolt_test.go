package outbox

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fastygo/taskmarket/domain"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	return store
}

func mustDelivery(t *testing.T, target Target, name domain.EventName) Delivery {
	t.Helper()
	d, err := NewDelivery(target, domain.NewEvent(name, "task-1", "alice"))
	if err != nil {
		t.Fatalf("NewDelivery() error: %v", err)
	}
	return d
}

func TestStore_PeekOrdersByTarget(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "outbox.db"))
	defer store.Close()

	for _, d := range []Delivery{
		mustDelivery(t, TargetStream, domain.EventTaskCreated),
		mustDelivery(t, TargetMirror, domain.EventTaskCreated),
		mustDelivery(t, TargetNotification, domain.EventTaskTaken),
	} {
		if err := store.Put(d); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
	}

	got, err := store.Peek(10)
	if err != nil {
		t.Fatalf("Peek() error: %v", err)
	}
	want := []Target{TargetNotification, TargetMirror, TargetStream}
	if len(got) != len(want) {
		t.Fatalf("Peek() returned %d deliveries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Target != want[i] {
			t.Errorf("delivery[%d] target = %s, want %s", i, got[i].Target, want[i])
		}
	}

	event, err := got[0].Decode()
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if event.Name != domain.EventTaskTaken || event.AggregateID != "task-1" {
		t.Errorf("decoded event = %+v", event)
	}
}

func TestStore_RetryAndAck(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "outbox.db"))
	defer store.Close()

	if err := store.Put(mustDelivery(t, TargetNotification, domain.EventTaskTaken)); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	pending, _ := store.Peek(1)
	if err := store.Retry(pending[0]); err != nil {
		t.Fatalf("Retry() error: %v", err)
	}

	pending, err := store.Peek(10)
	if err != nil {
		t.Fatalf("Peek() error: %v", err)
	}
	if len(pending) != 1 || pending[0].Attempts != 1 {
		t.Fatalf("after retry = %+v, want one delivery with 1 attempt", pending)
	}

	if err := store.Ack(pending[0]); err != nil {
		t.Fatalf("Ack() error: %v", err)
	}
	if n, _ := store.Len(); n != 0 {
		t.Errorf("Len() = %d after ack, want 0", n)
	}
}

func TestStore_RetryKeepsPlace(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "outbox.db"))
	defer store.Close()

	first := mustDelivery(t, TargetMirror, domain.EventTaskTaken)
	second := mustDelivery(t, TargetMirror, domain.EventTaskCompleted)
	second.QueuedAt = first.QueuedAt.Add(time.Millisecond)
	for _, d := range []Delivery{first, second} {
		if err := store.Put(d); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
	}

	pending, _ := store.Peek(1)
	if err := store.Retry(pending[0]); err != nil {
		t.Fatalf("Retry() error: %v", err)
	}
	pending, err := store.Peek(10)
	if err != nil {
		t.Fatalf("Peek() error: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != first.ID || pending[0].Attempts != 1 {
		t.Errorf("after retry = %+v, want %s first with 1 attempt", pending, first.ID)
	}
}

func TestStore_HasPending(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "outbox.db"))
	defer store.Close()

	if err := store.Put(mustDelivery(t, TargetStream, domain.EventTaskTaken)); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	tests := []struct {
		target    Target
		aggregate string
		want      bool
	}{
		{TargetStream, "task-1", true},
		{TargetMirror, "task-1", false},
		{TargetStream, "task-2", false},
	}
	for _, tt := range tests {
		got, err := store.HasPending(tt.target, tt.aggregate)
		if err != nil {
			t.Fatalf("HasPending() error: %v", err)
		}
		if got != tt.want {
			t.Errorf("HasPending(%s, %s) = %v, want %v", tt.target, tt.aggregate, got, tt.want)
		}
	}
}

func TestStore_SurvivesReopenAndPurges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "outbox.db")
	store := openTestStore(t, path)

	stale := mustDelivery(t, TargetMirror, domain.EventTaskCreated)
	stale.QueuedAt = time.Now().Add(-48 * time.Hour)
	for _, d := range []Delivery{stale, mustDelivery(t, TargetMirror, domain.EventTaskTaken)} {
		if err := store.Put(d); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
	}
	store.Close()

	store = openTestStore(t, path)
	defer store.Close()
	if n, _ := store.Len(); n != 2 {
		t.Fatalf("Len() after reopen = %d, want 2", n)
	}

	purged, err := store.Purge(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Purge() error: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
	if n, _ := store.Len(); n != 1 {
		t.Errorf("Len() after purge = %d, want 1", n)
	}
}
