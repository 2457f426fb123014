package transport

type RegisterRequest struct {
	Username string            `json:"username"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata"`
	TTL      int               `json:"ttl_seconds"`
}

type AuthLoginRequest struct {
	AccountID string `json:"account_id"`
	TTL       int    `json:"ttl_seconds"`
}

type RefreshRequest struct {
	SessionID string `json:"session_id"`
	TTL       int    `json:"ttl_seconds"`
}

// ProfileUpdateRequest leaves absent fields unchanged. Balance is not accepted.
type ProfileUpdateRequest struct {
	Username *string          `json:"username"`
	Email    *string          `json:"email"`
	Meta     map[string]string `json:"metadata"`
}

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Reward      int64  `json:"reward"`
	Deadline    string `json:"deadline"`
}

type DisputeRequest struct {
	Reason string `json:"reason"`
}

type FriendRequestRequest struct {
	ToID      string `json:"to_id"`
	Closeness *int   `json:"closeness"`
}

type ClosenessRequest struct {
	Closeness int `json:"closeness"`
}
