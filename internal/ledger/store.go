package ledger

import (
	"context"
	"errors"
	"time"

	"casino-backend/internal/models"
)

// The ledger is the single authoritative gate for balance mutation. Wallet
// balances are the running total maintained transactionally alongside the
// append-only entry log; no other code path writes balance fields.

var (
	// ErrInsufficientFunds means the delta would drive a bucket below zero.
	// Balances are unchanged when it is returned.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrStoreUnavailable wraps transport/transaction failures. The caller
	// cannot assume the mutation did or did not happen; a retry with the
	// same idempotency ref is always safe.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)

type Reason string

const (
	ReasonBet             Reason = "bet"
	ReasonPayout          Reason = "payout"
	ReasonDeposit         Reason = "deposit"
	ReasonWithdrawRequest Reason = "withdraw_request"
	ReasonWithdrawPaid    Reason = "withdraw_paid"
	ReasonWithdrawRefund  Reason = "withdraw_refund"
	ReasonPromoBonus      Reason = "promo_bonus"
	ReasonRollback        Reason = "rollback"
)

// Delta is the signed change to apply to each wallet bucket, in cents.
type Delta struct {
	Balance int64
	Bonus   int64
	Locked  int64
}

// Entry is one immutable applied delta. The resulting balances are recorded
// on the entry so an idempotent replay can return them without recomputing.
type Entry struct {
	ID             string            `json:"id"`
	UserID         int64             `json:"user_id"`
	DeltaBalance   int64             `json:"delta_balance"`
	DeltaBonus     int64             `json:"delta_bonus"`
	DeltaLocked    int64             `json:"delta_locked"`
	Reason         Reason            `json:"reason"`
	IdempotencyRef string            `json:"idempotency_ref"`
	BalanceAfter   int64             `json:"balance_after"`
	BonusAfter     int64             `json:"bonus_after"`
	LockedAfter    int64             `json:"locked_after"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Result reports the wallet buckets after the delta. Replayed is true when
// the idempotency ref had already been applied and balances were untouched.
type Result struct {
	Balance  int64 `json:"balance"`
	Bonus    int64 `json:"bonus"`
	Locked   int64 `json:"locked"`
	Replayed bool  `json:"replayed"`
}

type Store interface {
	// ApplyDelta atomically checks non-negativity of the resulting buckets,
	// writes the new totals and appends the entry. Concurrent calls for the
	// same user are serialized; a duplicate idempotency ref returns the
	// previously recorded result without re-mutating.
	ApplyDelta(ctx context.Context, userID int64, delta Delta, reason Reason, idempotencyRef string, metadata map[string]string) (Result, error)

	// Wallet returns the current balances, creating a zero wallet on first use.
	Wallet(ctx context.Context, userID int64) (*models.Wallet, error)

	// Entries returns the most recent entries for a user, newest first.
	Entries(ctx context.Context, userID int64, limit int) ([]*Entry, error)
}
