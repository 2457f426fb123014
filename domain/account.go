package domain

import "time"

const (
	RoleMember = "member"
	RoleAdmin  = "admin"

	AccountStatusActive = "active"
)

// Account is a marketplace user profile holding the spendable point balance.
// Balance changes only through ledger-paired lifecycle operations.
type Account struct {
	ID        string            `json:"id"`
	Username  string            `json:"username"`
	Email     string            `json:"email,omitempty"`
	Role      string            `json:"role"`
	Status    string            `json:"status"`
	Balance   int64             `json:"balance"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (a *Account) IsActive() bool {
	return a != nil && a.Status == AccountStatusActive
}

func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// CanAfford reports whether the balance covers amount.
func (a *Account) CanAfford(amount int64) bool {
	return a != nil && amount >= 0 && a.Balance >= amount
}

// Discrepancy describes an account whose stored balance disagrees with its ledger.
type Discrepancy struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
	LedgerSum int64  `json:"ledger_sum"`
}

// RewardSummary aggregates an account's ledger for the rewards page.
type RewardSummary struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
	Earned    int64  `json:"earned"`
	Reserved  int64  `json:"reserved"`
	Pending   int64  `json:"pending"`
}
