package domain

import "time"

const (
	MinCloseness     = 0
	MaxCloseness     = 100
	DefaultCloseness = 50
)

// Friendship is a directed, weighted edge. Edges are created in symmetric pairs
// but each direction's closeness is adjusted independently.
type Friendship struct {
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	Closeness int       `json:"closeness"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasEndpoint reports whether accountID is either end of the edge.
func (f *Friendship) HasEndpoint(accountID string) bool {
	return f != nil && accountID != "" && (f.FromID == accountID || f.ToID == accountID)
}

// Reverse returns the opposite edge seeded with the same closeness.
func (f Friendship) Reverse() Friendship {
	f.FromID, f.ToID = f.ToID, f.FromID
	return f
}

// FriendRequest is transient: it is deleted when accepted or declined.
type FriendRequest struct {
	ID         string    `json:"id"`
	FromID     string    `json:"from_id"`
	ToID       string    `json:"to_id"`
	Closeness  int       `json:"closeness"`
	IsAccepted bool      `json:"is_accepted"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidCloseness reports whether c is within [min, max].
func ValidCloseness(c, min, max int) bool {
	return c >= min && c <= max
}
