package promo

import (
	"context"
	"errors"

	"casino-backend/internal/models"
)

var (
	ErrNoActiveClaim     = errors.New("no active promotion claim")
	ErrClaimAlreadyOpen  = errors.New("an active promotion claim already exists")
	ErrOfferNotFound     = errors.New("offer not found")
	ErrClaimsUnavailable = errors.New("claim store unavailable")
)

type ClaimStore interface {
	Offer(ctx context.Context, offerID string) (*models.Offer, error)
	Offers(ctx context.Context) ([]*models.Offer, error)

	// CreateClaim opens a claim for the user. At most one active claim per
	// user is enforced by the store.
	CreateClaim(ctx context.Context, claim *models.PromotionClaim) error

	ActiveClaim(ctx context.Context, userID int64) (*models.PromotionClaim, error)

	// MarkApplied transitions the claim active -> applied, recording the
	// awarded amounts. Returns false when the claim was no longer active,
	// so the transition can only ever happen once.
	MarkApplied(ctx context.Context, claimID string, bonusCents int64, freeRounds int, wageringCents int64) (bool, error)

	// GrantFreeRounds records a free-round entitlement. Not a ledger
	// mutation, but it honors the same replay rule: a grant whose id was
	// already recorded is a no-op.
	GrantFreeRounds(ctx context.Context, grant *models.FreeRoundGrant) error
}

// DefaultOffers seeds local development and tests.
var DefaultOffers = []*models.Offer{
	{
		ID:              "welcome-50",
		Name:            "Welcome 50% match",
		BonusPercent:    50,
		MaxBonusCents:   20000,
		MinDepositCents: 1000,
		FreeRounds:      20,
	},
	{
		ID:              "reload-25",
		Name:            "Weekend reload",
		BonusPercent:    25,
		MaxBonusCents:   5000,
		MinDepositCents: 2000,
	},
}
