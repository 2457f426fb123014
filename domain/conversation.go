package domain

import "time"

// Conversation links the creator and assignee of a task. Message content lives elsewhere.
type Conversation struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id,omitempty"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

func (c *Conversation) HasParticipant(accountID string) bool {
	if c == nil {
		return false
	}
	for _, p := range c.Participants {
		if p == accountID {
			return true
		}
	}
	return false
}
