package models

import "time"

// Offer describes a promotional deposit-match offer.
type Offer struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	BonusPercent    float64 `json:"bonus_percent"`
	MaxBonusCents   int64   `json:"max_bonus_cents"` // 0 = uncapped
	MinDepositCents int64   `json:"min_deposit_cents"`
	// 0 = use the platform-wide default.
	WageringMultiplier float64 `json:"wagering_multiplier"`
	FreeRounds         int     `json:"free_rounds"`
}

type ClaimStatus string

const (
	ClaimStatusActive  ClaimStatus = "active"
	ClaimStatusApplied ClaimStatus = "applied"
	ClaimStatusExpired ClaimStatus = "expired"
)

// PromotionClaim is one user's enrollment in an offer. At most one active
// claim per user; the active -> applied transition happens exactly once.
type PromotionClaim struct {
	ID     string      `json:"id"`
	UserID int64       `json:"user_id"`
	Offer  Offer       `json:"offer"`
	Status ClaimStatus `json:"status"`

	BonusAwardedCents     int64 `json:"bonus_awarded_cents"`
	FreeRoundsAwarded     int   `json:"free_rounds_awarded"`
	WageringRequiredCents int64 `json:"wagering_required_cents"`
	WageringProgressCents int64 `json:"wagering_progress_cents"`

	CreatedAt time.Time `json:"created_at"`
	AppliedAt time.Time `json:"applied_at,omitempty"`
}

// FreeRoundGrant is an entitlement record, not a ledger mutation.
type FreeRoundGrant struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	ClaimID   string    `json:"claim_id"`
	Rounds    int       `json:"rounds"`
	CreatedAt time.Time `json:"created_at"`
}

type PromoResult struct {
	Applied               bool  `json:"applied"`
	BonusCents            int64 `json:"bonus_cents"`
	FreeRounds            int   `json:"free_rounds"`
	WageringRequiredCents int64 `json:"wagering_required_cents"`
}
