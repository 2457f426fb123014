package domain

import "time"

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
)

// Dispute is the one-to-one sub-lifecycle attached to a task. open -> resolved only.
type Dispute struct {
	ID         string        `json:"id"`
	TaskID     string        `json:"task_id"`
	RaisedBy   string        `json:"raised_by"`
	Reason     string        `json:"reason"`
	Status     DisputeStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

func (d *Dispute) IsOpen() bool {
	return d != nil && d.Status == DisputeOpen
}

// Resolve closes the dispute; resolving twice keeps the first timestamp.
func (d *Dispute) Resolve(at time.Time) {
	if d == nil || d.Status == DisputeResolved {
		return
	}
	d.Status = DisputeResolved
	d.ResolvedAt = &at
}
