package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/taskmarket/domain"
)

func taskEvent(status domain.TaskStatus, at time.Time) domain.Event {
	event := domain.NewEvent(domain.EventTaskTaken, "task-1", "bob").
		WithTask(&domain.Task{ID: "task-1", Status: status}).
		WithAccounts(&domain.Account{ID: "alice", Balance: 400})
	event.CreatedAt = at
	return event
}

func TestMirror_SnapshotArgs(t *testing.T) {
	m := NewMirror(nil)
	at := time.Unix(1700000000, 5)

	keys, args, err := m.snapshotArgs(taskEvent(domain.TaskInProgress, at))
	if err != nil {
		t.Fatalf("snapshotArgs() error: %v", err)
	}
	wantKeys := []string{
		"mirror:account:alice", "mirror:account:alice:version",
		"mirror:task:task-1", "mirror:task:task-1:version",
	}
	if len(keys) != len(wantKeys) {
		t.Fatalf("keys = %v, want %v", keys, wantKeys)
	}
	for i := range wantKeys {
		if keys[i] != wantKeys[i] {
			t.Errorf("keys[%d] = %s, want %s", i, keys[i], wantKeys[i])
		}
	}
	if len(args) != 3 {
		t.Fatalf("args = %d, want version plus two payloads", len(args))
	}
	if args[0] != "01700000000000000005" {
		t.Errorf("version = %v", args[0])
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(args[2].(string)), &task); err != nil {
		t.Fatalf("task payload: %v", err)
	}
	if task.ID != "task-1" || task.Status != domain.TaskInProgress {
		t.Errorf("task payload = %+v", task)
	}

	if keys, _, _ := m.snapshotArgs(domain.NewEvent(domain.EventFriendRequestSent, "req-1", "alice")); len(keys) != 0 {
		t.Errorf("event without records produced keys %v", keys)
	}
}

func TestSnapshotVersion_OrdersAsStrings(t *testing.T) {
	base := time.Unix(999, 999999999)
	earlier := snapshotVersion(taskEvent(domain.TaskAvailable, base))
	later := snapshotVersion(taskEvent(domain.TaskAvailable, base.Add(time.Nanosecond)))

	if len(earlier) != len(later) {
		t.Fatalf("versions differ in width: %q %q", earlier, later)
	}
	if !(later > earlier) {
		t.Errorf("later version %q does not sort after %q", later, earlier)
	}
}

// Runs against a live server when TASKMARKET_TEST_REDIS_ADDR is set.
func TestMirror_IgnoresOlderSnapshot(t *testing.T) {
	addr := os.Getenv("TASKMARKET_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TASKMARKET_TEST_REDIS_ADDR not set")
	}
	client := redislib.NewClient(&redislib.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	ctx := context.Background()

	m := &Mirror{client: client, prefix: "mirror-test:" + time.Now().Format("150405.000000") + ":"}
	now := time.Now().UTC()
	newer := taskEvent(domain.TaskCompleted, now)
	older := taskEvent(domain.TaskInProgress, now.Add(-time.Second))

	for _, event := range []domain.Event{newer, older, newer} {
		if err := m.Mirror(ctx, event); err != nil {
			t.Fatalf("Mirror() error: %v", err)
		}
	}

	raw, err := client.Get(ctx, m.key("task", "task-1")).Result()
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	var task domain.Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.Status != domain.TaskCompleted {
		t.Errorf("mirrored status = %s, want completed", task.Status)
	}
	client.Del(ctx, m.key("task", "task-1"), m.key("task", "task-1")+":version",
		m.key("account", "alice"), m.key("account", "alice")+":version")
}
