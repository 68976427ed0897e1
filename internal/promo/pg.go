package promo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"casino-backend/internal/models"
)

type PGClaimStore struct {
	pool *pgxpool.Pool
}

func NewPGClaimStore(pool *pgxpool.Pool) *PGClaimStore {
	return &PGClaimStore{pool: pool}
}

var _ ClaimStore = (*PGClaimStore)(nil)

func scanOffer(row pgx.Row) (*models.Offer, error) {
	o := &models.Offer{}
	err := row.Scan(&o.ID, &o.Name, &o.BonusPercent, &o.MaxBonusCents,
		&o.MinDepositCents, &o.WageringMultiplier, &o.FreeRounds)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PGClaimStore) Offer(ctx context.Context, offerID string) (*models.Offer, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, bonus_percent, max_bonus_cents, min_deposit_cents,
		       wagering_multiplier, free_rounds
		FROM offers WHERE id = $1
	`, offerID)
	o, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("%w: read offer: %v", ErrClaimsUnavailable, err)
	}
	return o, nil
}

func (s *PGClaimStore) Offers(ctx context.Context) ([]*models.Offer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, bonus_percent, max_bonus_cents, min_deposit_cents,
		       wagering_multiplier, free_rounds
		FROM offers ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query offers: %v", ErrClaimsUnavailable, err)
	}
	defer rows.Close()

	var out []*models.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan offer: %v", ErrClaimsUnavailable, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PGClaimStore) CreateClaim(ctx context.Context, claim *models.PromotionClaim) error {
	// A partial unique index on (user_id) WHERE status = 'active' enforces
	// the single-active-claim rule.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO promotion_claims (id, user_id, offer_id, status)
		VALUES ($1, $2, $3, 'active')
	`, claim.ID, claim.UserID, claim.Offer.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrClaimAlreadyOpen
		}
		return fmt.Errorf("%w: insert claim: %v", ErrClaimsUnavailable, err)
	}
	return nil
}

func (s *PGClaimStore) ActiveClaim(ctx context.Context, userID int64) (*models.PromotionClaim, error) {
	c := &models.PromotionClaim{}
	var status string
	row := s.pool.QueryRow(ctx, `
		SELECT c.id, c.user_id, c.status, c.created_at,
		       o.id, o.name, o.bonus_percent, o.max_bonus_cents,
		       o.min_deposit_cents, o.wagering_multiplier, o.free_rounds
		FROM promotion_claims c
		JOIN offers o ON o.id = c.offer_id
		WHERE c.user_id = $1 AND c.status = 'active'
	`, userID)
	err := row.Scan(&c.ID, &c.UserID, &status, &c.CreatedAt,
		&c.Offer.ID, &c.Offer.Name, &c.Offer.BonusPercent, &c.Offer.MaxBonusCents,
		&c.Offer.MinDepositCents, &c.Offer.WageringMultiplier, &c.Offer.FreeRounds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveClaim
		}
		return nil, fmt.Errorf("%w: read claim: %v", ErrClaimsUnavailable, err)
	}
	c.Status = models.ClaimStatus(status)
	return c, nil
}

func (s *PGClaimStore) MarkApplied(ctx context.Context, claimID string, bonusCents int64, freeRounds int, wageringCents int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE promotion_claims
		SET status = 'applied', bonus_awarded_cents = $2, free_rounds_awarded = $3,
		    wagering_required_cents = $4, applied_at = now()
		WHERE id = $1 AND status = 'active'
	`, claimID, bonusCents, freeRounds, wageringCents)
	if err != nil {
		return false, fmt.Errorf("%w: mark applied: %v", ErrClaimsUnavailable, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGClaimStore) GrantFreeRounds(ctx context.Context, grant *models.FreeRoundGrant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO free_round_grants (id, user_id, claim_id, rounds)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, grant.ID, grant.UserID, grant.ClaimID, grant.Rounds)
	if err != nil {
		return fmt.Errorf("%w: insert grant: %v", ErrClaimsUnavailable, err)
	}
	return nil
}
