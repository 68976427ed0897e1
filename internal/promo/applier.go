package promo

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"casino-backend/internal/ledger"
	"casino-backend/internal/models"
)

// Applier converts a user's active claim into awarded bonus funds when a
// qualifying deposit lands. Bonus money goes to the bonus bucket through
// the ledger; free rounds are a plain entitlement record.
type Applier struct {
	ledger ledger.Store
	claims ClaimStore
	// Used when the offer does not set its own wagering multiplier.
	defaultWagering float64
	log             zerolog.Logger
}

func NewApplier(l ledger.Store, c ClaimStore, defaultWagering float64, log zerolog.Logger) *Applier {
	return &Applier{ledger: l, claims: c, defaultWagering: defaultWagering, log: log}
}

// Redeem opens a claim on an offer for the user.
func (a *Applier) Redeem(ctx context.Context, userID int64, offerID string) (*models.PromotionClaim, error) {
	offer, err := a.claims.Offer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	claim := &models.PromotionClaim{
		ID:     uuid.New().String(),
		UserID: userID,
		Offer:  *offer,
		Status: models.ClaimStatusActive,
	}
	if err := a.claims.CreateClaim(ctx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// ApplyForDeposit checks the user's active claim against a deposit and, if
// it qualifies, awards the bonus exactly once. The ledger ref is derived
// from the claim and deposit reference, so a redelivered webhook replays
// instead of double-awarding.
func (a *Applier) ApplyForDeposit(ctx context.Context, userID int64, depositCents int64, depositRef string) (*models.PromoResult, error) {
	claim, err := a.claims.ActiveClaim(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoActiveClaim) {
			return &models.PromoResult{Applied: false}, nil
		}
		return nil, err
	}
	if depositCents < claim.Offer.MinDepositCents {
		return &models.PromoResult{Applied: false}, nil
	}

	bonus := int64(math.Round(float64(depositCents) * claim.Offer.BonusPercent / 100))
	if claim.Offer.MaxBonusCents > 0 && bonus > claim.Offer.MaxBonusCents {
		bonus = claim.Offer.MaxBonusCents
	}
	if bonus < 0 {
		bonus = 0
	}

	multiplier := claim.Offer.WageringMultiplier
	if multiplier <= 0 {
		multiplier = a.defaultWagering
	}
	wagering := int64(math.Round(float64(bonus) * multiplier))

	if bonus > 0 {
		ref := fmt.Sprintf("promo:%s:deposit:%s", claim.ID, depositRef)
		if _, err := a.ledger.ApplyDelta(ctx, userID,
			ledger.Delta{Bonus: bonus},
			ledger.ReasonPromoBonus, ref, map[string]string{"offer_id": claim.Offer.ID}); err != nil {
			// The claim stays active so a retry re-attempts the whole
			// operation; the idempotency ref protects against double credit.
			a.log.Error().Err(err).Int64("user_id", userID).
				Str("idempotency_ref", ref).Str("claim_id", claim.ID).
				Msg("promo bonus credit failed")
			return nil, err
		}
	}

	if claim.Offer.FreeRounds > 0 {
		// One grant per claim, keyed by the claim id. A redelivery that
		// reaches this point again replays the grant instead of stacking
		// extra rounds.
		grant := &models.FreeRoundGrant{
			ID:      claim.ID,
			UserID:  userID,
			ClaimID: claim.ID,
			Rounds:  claim.Offer.FreeRounds,
		}
		if err := a.claims.GrantFreeRounds(ctx, grant); err != nil {
			return nil, err
		}
	}

	applied, err := a.claims.MarkApplied(ctx, claim.ID, bonus, claim.Offer.FreeRounds, wagering)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race to another delivery of the same deposit; the bonus
		// credit above replayed, so nothing was awarded twice.
		return &models.PromoResult{Applied: false}, nil
	}

	a.log.Info().Int64("user_id", userID).Str("claim_id", claim.ID).
		Int64("bonus_cents", bonus).Int64("wagering_cents", wagering).
		Str("deposit_ref", depositRef).Msg("promotion applied")

	return &models.PromoResult{
		Applied:               true,
		BonusCents:            bonus,
		FreeRounds:            claim.Offer.FreeRounds,
		WageringRequiredCents: wagering,
	}, nil
}
