package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventName identifies a lifecycle change.
type EventName string

const (
	EventAccountOpened             EventName = "account.opened"
	EventTaskCreated               EventName = "task.created"
	EventTaskTaken                 EventName = "task.taken"
	EventTaskCompleted             EventName = "task.completed"
	EventTaskCancelled             EventName = "task.cancelled"
	EventTaskAbandoned             EventName = "task.abandoned"
	EventCancellationRequested     EventName = "task.cancellation_requested"
	EventCancellationAccepted      EventName = "task.cancellation_accepted"
	EventDisputeRaised             EventName = "dispute.raised"
	EventDisputeWithdrawn          EventName = "dispute.withdrawn"
	EventDisputeResolved           EventName = "dispute.resolved"
	EventFriendRequestSent         EventName = "friend_request.sent"
	EventFriendRequestAccepted     EventName = "friend_request.accepted"
	EventFriendRequestDeclined     EventName = "friend_request.declined"
	EventFriendshipClosenessUpdate EventName = "friendship.closeness_updated"
)

// Event represents a committed change. Recipient/Message/Link feed the notification
// sink; the record snapshots feed the external mirror.
type Event struct {
	ID          string    `json:"id"`
	Name        EventName `json:"name"`
	AggregateID string    `json:"aggregate_id"`
	ActorID     string    `json:"actor_id,omitempty"`
	RecipientID string    `json:"recipient_id,omitempty"`
	Message     string    `json:"message,omitempty"`
	Link        string    `json:"link,omitempty"`
	Task        *Task     `json:"task,omitempty"`
	Dispute     *Dispute  `json:"dispute,omitempty"`
	Accounts    []Account `json:"accounts,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewEvent stamps an event for aggregateID.
func NewEvent(name EventName, aggregateID, actorID string) Event {
	return Event{
		ID:          uuid.NewString(),
		Name:        name,
		AggregateID: aggregateID,
		ActorID:     actorID,
		CreatedAt:   time.Now().UTC(),
	}
}

// Notify addresses the event to a recipient.
func (e Event) Notify(recipientID, message, link string) Event {
	e.RecipientID = recipientID
	e.Message = message
	e.Link = link
	return e
}

// WithTask attaches a snapshot of task.
func (e Event) WithTask(task *Task) Event {
	if task != nil {
		snapshot := *task
		e.Task = &snapshot
	}
	return e
}

// WithDispute attaches a snapshot of dispute.
func (e Event) WithDispute(dispute *Dispute) Event {
	if dispute != nil {
		snapshot := *dispute
		e.Dispute = &snapshot
	}
	return e
}

// WithAccounts attaches snapshots of the accounts whose balance changed.
func (e Event) WithAccounts(accounts ...*Account) Event {
	for _, a := range accounts {
		if a != nil {
			e.Accounts = append(e.Accounts, *a)
		}
	}
	return e
}

// HasNotification reports whether the event should reach the notification sink.
func (e Event) HasNotification() bool {
	return e.RecipientID != "" && e.Message != ""
}

// HasRecords reports whether the event carries anything to mirror.
func (e Event) HasRecords() bool {
	return e.Task != nil || e.Dispute != nil || len(e.Accounts) > 0
}
