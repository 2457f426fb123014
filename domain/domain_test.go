package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// ─── Task lifecycle ─────────────────────────────────────────────────────────

func TestTaskCanTransition(t *testing.T) {
	tests := []struct {
		from TaskStatus
		to   TaskStatus
		want bool
	}{
		{TaskAvailable, TaskInProgress, true},
		{TaskAvailable, TaskCancelled, true},
		{TaskAvailable, TaskCompleted, false},
		{TaskAvailable, TaskDisputed, false},
		{TaskInProgress, TaskCompleted, true},
		{TaskInProgress, TaskDisputed, true},
		{TaskInProgress, TaskAvailable, true},
		{TaskInProgress, TaskCancelled, false},
		{TaskDisputed, TaskInProgress, true},
		{TaskDisputed, TaskCompleted, true},
		{TaskDisputed, TaskAvailable, false},
		{TaskCompleted, TaskAvailable, false},
		{TaskCancelled, TaskAvailable, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			task := &Task{Status: tt.from}
			if got := task.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	if !TaskCompleted.Terminal() || !TaskCancelled.Terminal() {
		t.Error("completed and cancelled should be terminal")
	}
	if TaskAvailable.Terminal() || TaskInProgress.Terminal() || TaskDisputed.Terminal() {
		t.Error("open states should not be terminal")
	}
}

func TestParseTaskStatus(t *testing.T) {
	if s, ok := ParseTaskStatus(" In_Progress "); !ok || s != TaskInProgress {
		t.Errorf("ParseTaskStatus = %q, %v; want in_progress, true", s, ok)
	}
	if _, ok := ParseTaskStatus("taken"); ok {
		t.Error("legacy flag name should not parse as a status")
	}
}

func TestTaskDerivedFlags(t *testing.T) {
	task := &Task{CreatorID: "alice", Status: TaskAvailable}
	if task.IsTaken() {
		t.Error("available task should not be taken")
	}

	task.Status = TaskInProgress
	task.AssigneeID = "bob"
	if !task.IsTaken() || task.IsCompleted() {
		t.Error("in_progress task should be taken and not completed")
	}
	if !task.IsParticipant("alice") || !task.IsParticipant("bob") || task.IsParticipant("carol") {
		t.Error("participants should be exactly creator and assignee")
	}

	task.CancellationRequested = true
	task.Release()
	if task.Status != TaskAvailable || task.AssigneeID != "" || task.CancellationRequested {
		t.Errorf("Release() left %+v", task)
	}
}

func TestTaskExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	task := &Task{Deadline: &past}
	if !task.Expired(now) {
		t.Error("task with past deadline should be expired")
	}
	if (&Task{}).Expired(now) {
		t.Error("task without deadline never expires")
	}
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

func TestLedgerEntryConstructors(t *testing.T) {
	task := &Task{ID: "t1", CreatorID: "alice", AssigneeID: "bob", Title: "Fetch notes", Reward: 100}

	reserve := NewReserveEntry(task)
	if reserve.AccountID != "alice" || reserve.Amount != -100 || reserve.Kind != EntryReserve {
		t.Errorf("reserve = %+v", reserve)
	}
	award := NewAwardEntry(task)
	if award.AccountID != "bob" || award.Amount != 100 || award.Kind != EntryAward {
		t.Errorf("award = %+v", award)
	}
	refund := NewRefundEntry(task)
	if refund.AccountID != "alice" || refund.Amount != 100 || refund.Kind != EntryRefund {
		t.Errorf("refund = %+v", refund)
	}
	if reserve.ID == award.ID || reserve.TaskID != "t1" {
		t.Error("entries should have distinct ids and carry the task id")
	}

	if got := SumEntries([]LedgerEntry{*reserve, *award, *refund}); got != 100 {
		t.Errorf("SumEntries = %d, want 100", got)
	}
}

// ─── Dispute ────────────────────────────────────────────────────────────────

func TestDisputeResolveIsOneWay(t *testing.T) {
	d := &Dispute{Status: DisputeOpen}
	first := time.Now()
	d.Resolve(first)
	d.Resolve(first.Add(time.Hour))

	if d.IsOpen() {
		t.Error("dispute should be resolved")
	}
	if d.ResolvedAt == nil || !d.ResolvedAt.Equal(first) {
		t.Errorf("ResolvedAt = %v, want %v", d.ResolvedAt, first)
	}
}

// ─── Friendship ─────────────────────────────────────────────────────────────

func TestFriendshipReverse(t *testing.T) {
	edge := Friendship{FromID: "a", ToID: "b", Closeness: 70}
	rev := edge.Reverse()
	if rev.FromID != "b" || rev.ToID != "a" || rev.Closeness != 70 {
		t.Errorf("Reverse() = %+v", rev)
	}
	if !edge.HasEndpoint("b") || edge.HasEndpoint("c") {
		t.Error("HasEndpoint mismatch")
	}
}

func TestValidCloseness(t *testing.T) {
	if !ValidCloseness(0, MinCloseness, MaxCloseness) || !ValidCloseness(100, MinCloseness, MaxCloseness) {
		t.Error("bounds should be inclusive")
	}
	if ValidCloseness(101, MinCloseness, MaxCloseness) || ValidCloseness(-1, MinCloseness, MaxCloseness) {
		t.Error("out-of-range closeness accepted")
	}
}

// ─── Events ─────────────────────────────────────────────────────────────────

func TestEventSnapshotsAreCopies(t *testing.T) {
	task := &Task{ID: "t1", Status: TaskAvailable}
	ev := NewEvent(EventTaskCreated, task.ID, "alice").WithTask(task)
	task.Status = TaskCancelled

	if ev.Task.Status != TaskAvailable {
		t.Errorf("snapshot status = %s, want available", ev.Task.Status)
	}
	if ev.HasNotification() {
		t.Error("event without recipient should not notify")
	}
	if !ev.HasRecords() {
		t.Error("event with task should have records")
	}

	ev = ev.Notify("bob", "hello", "/tasks/t1")
	if !ev.HasNotification() {
		t.Error("addressed event should notify")
	}
}

// ─── Errors ─────────────────────────────────────────────────────────────────

func TestErrorClassification(t *testing.T) {
	wrapped := fmt.Errorf("take task: %w", ErrSelfAssignment)
	if !IsDomainError(wrapped, ErrCodeSelfAssignment) {
		t.Error("wrapped error lost its code")
	}
	if !errors.Is(wrapped, ErrSelfAssignment) {
		t.Error("errors.Is should match the sentinel")
	}
	if got := CodeOf(errors.New("boom")); got != ErrCodeInternal {
		t.Errorf("CodeOf(plain) = %s, want INTERNAL", got)
	}
	if got := CodeOf(ErrInsufficientFunds); got != ErrCodeInsufficientFunds {
		t.Errorf("CodeOf = %s, want INSUFFICIENT_FUNDS", got)
	}
}
