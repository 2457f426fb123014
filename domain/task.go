package domain

import (
	"strings"
	"time"
)

// TaskStatus is the single authoritative lifecycle field of a task.
type TaskStatus string

const (
	TaskAvailable  TaskStatus = "available"
	TaskInProgress TaskStatus = "in_progress"
	TaskDisputed   TaskStatus = "disputed"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskAvailable:  {TaskInProgress, TaskCancelled},
	TaskInProgress: {TaskCompleted, TaskDisputed, TaskAvailable},
	TaskDisputed:   {TaskInProgress, TaskCompleted},
}

// ParseTaskStatus returns the status for raw, or false when raw is not a known status.
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	switch status := TaskStatus(strings.ToLower(strings.TrimSpace(raw))); status {
	case TaskAvailable, TaskInProgress, TaskDisputed, TaskCompleted, TaskCancelled:
		return status, true
	default:
		return "", false
	}
}

// Terminal reports whether no further transitions leave s.
func (s TaskStatus) Terminal() bool {
	return len(taskTransitions[s]) == 0
}

// Task is a paid micro-task posted by a creator and claimed by an assignee.
type Task struct {
	ID                    string     `json:"id"`
	CreatorID             string     `json:"creator_id"`
	AssigneeID            string     `json:"assignee_id,omitempty"`
	Title                 string     `json:"title"`
	Description           string     `json:"description,omitempty"`
	Reward                int64      `json:"reward"`
	Status                TaskStatus `json:"status"`
	Deadline              *time.Time `json:"deadline,omitempty"`
	CancellationRequested bool       `json:"cancellation_requested"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// CanTransition reports whether the lifecycle allows moving to next.
func (t *Task) CanTransition(next TaskStatus) bool {
	if t == nil {
		return false
	}
	for _, allowed := range taskTransitions[t.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTaken is derived from Status; it is never stored.
func (t *Task) IsTaken() bool {
	return t != nil && (t.Status == TaskInProgress || t.Status == TaskDisputed || t.Status == TaskCompleted)
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == TaskCompleted
}

func (t *Task) IsCreator(accountID string) bool {
	return t != nil && accountID != "" && t.CreatorID == accountID
}

func (t *Task) IsAssignee(accountID string) bool {
	return t != nil && accountID != "" && t.AssigneeID == accountID
}

// IsParticipant reports whether accountID is the creator or the current assignee.
func (t *Task) IsParticipant(accountID string) bool {
	return t.IsCreator(accountID) || t.IsAssignee(accountID)
}

// Expired reports whether the task has a deadline at or before now.
func (t *Task) Expired(now time.Time) bool {
	return t != nil && t.Deadline != nil && !t.Deadline.After(now)
}

// Release returns the task to the open market.
func (t *Task) Release() {
	t.Status = TaskAvailable
	t.AssigneeID = ""
	t.CancellationRequested = false
}
