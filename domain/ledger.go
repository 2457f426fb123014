package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntryKind is the business reason for a ledger movement.
type EntryKind string

const (
	EntryReserve EntryKind = "reserve"
	EntryAward   EntryKind = "award"
	EntryRefund  EntryKind = "refund"
	EntryInitial EntryKind = "initial"
)

// LedgerEntry is an immutable record of one signed point movement.
type LedgerEntry struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	TaskID      string    `json:"task_id,omitempty"`
	Amount      int64     `json:"amount"`
	Kind        EntryKind `json:"kind"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewReserveEntry debits the creator for a task's reward.
func NewReserveEntry(task *Task) *LedgerEntry {
	return newEntry(task.CreatorID, task.ID, -task.Reward, EntryReserve,
		fmt.Sprintf("Reserved for task: '%s'", task.Title))
}

// NewAwardEntry credits the assignee with a task's reward.
func NewAwardEntry(task *Task) *LedgerEntry {
	return newEntry(task.AssigneeID, task.ID, task.Reward, EntryAward,
		fmt.Sprintf("Completed task: '%s'", task.Title))
}

// NewRefundEntry returns a task's reward to its creator.
func NewRefundEntry(task *Task) *LedgerEntry {
	return newEntry(task.CreatorID, task.ID, task.Reward, EntryRefund,
		fmt.Sprintf("Refund for cancelled task: '%s'", task.Title))
}

// NewInitialEntry grants the opening balance of an account.
func NewInitialEntry(accountID string, amount int64) *LedgerEntry {
	return newEntry(accountID, "", amount, EntryInitial, "Initial points")
}

func newEntry(accountID, taskID string, amount int64, kind EntryKind, description string) *LedgerEntry {
	return &LedgerEntry{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		TaskID:      taskID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// SumEntries totals the signed amounts of entries.
func SumEntries(entries []LedgerEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Amount
	}
	return total
}
