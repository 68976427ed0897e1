package models

import "time"

// Wallet is the per-user balance record. All amounts are integer cents.
// Balances are owned by the ledger store and only ever change through
// delta application; nothing else writes these fields.
type Wallet struct {
	UserID        int64     `json:"user_id"`
	Balance       int64     `json:"balance"`
	BonusBalance  int64     `json:"bonus_balance"`
	LockedBalance int64     `json:"locked_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalPaid     WithdrawalStatus = "paid"
	WithdrawalRefunded WithdrawalStatus = "refunded"
)

// Withdrawal tracks a payout request through its lifecycle. The money
// itself lives in the wallet's locked bucket while the request is pending.
type Withdrawal struct {
	ID          string           `json:"id"`
	UserID      int64            `json:"user_id"`
	AmountCents int64            `json:"amount_cents"`
	Status      WithdrawalStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	ResolvedAt  time.Time        `json:"resolved_at,omitempty"`
}

type BalanceResponse struct {
	Balance       int64 `json:"balance"`
	BonusBalance  int64 `json:"bonus_balance"`
	LockedBalance int64 `json:"locked_balance"`
	// Total playable funds: real + bonus.
	Playable int64 `json:"playable"`
}
