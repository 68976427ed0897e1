package promo

import (
	"context"
	"sync"
	"time"

	"casino-backend/internal/models"
)

type MemClaimStore struct {
	mu     sync.Mutex
	offers map[string]*models.Offer
	claims map[string]*models.PromotionClaim
	grants []*models.FreeRoundGrant
}

func NewMemClaimStore(offers []*models.Offer) *MemClaimStore {
	s := &MemClaimStore{
		offers: make(map[string]*models.Offer),
		claims: make(map[string]*models.PromotionClaim),
	}
	for _, o := range offers {
		copied := *o
		s.offers[o.ID] = &copied
	}
	return s
}

var _ ClaimStore = (*MemClaimStore)(nil)

func (s *MemClaimStore) Offer(ctx context.Context, offerID string) (*models.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offers[offerID]
	if !ok {
		return nil, ErrOfferNotFound
	}
	copied := *o
	return &copied, nil
}

func (s *MemClaimStore) Offers(ctx context.Context) ([]*models.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Offer, 0, len(s.offers))
	for _, o := range s.offers {
		copied := *o
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemClaimStore) CreateClaim(ctx context.Context, claim *models.PromotionClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.claims {
		if c.UserID == claim.UserID && c.Status == models.ClaimStatusActive {
			return ErrClaimAlreadyOpen
		}
	}

	copied := *claim
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	s.claims[claim.ID] = &copied
	return nil
}

func (s *MemClaimStore) ActiveClaim(ctx context.Context, userID int64) (*models.PromotionClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.claims {
		if c.UserID == userID && c.Status == models.ClaimStatusActive {
			copied := *c
			return &copied, nil
		}
	}
	return nil, ErrNoActiveClaim
}

func (s *MemClaimStore) MarkApplied(ctx context.Context, claimID string, bonusCents int64, freeRounds int, wageringCents int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.claims[claimID]
	if !ok || c.Status != models.ClaimStatusActive {
		return false, nil
	}

	c.Status = models.ClaimStatusApplied
	c.BonusAwardedCents = bonusCents
	c.FreeRoundsAwarded = freeRounds
	c.WageringRequiredCents = wageringCents
	c.AppliedAt = time.Now()
	return true, nil
}

func (s *MemClaimStore) GrantFreeRounds(ctx context.Context, grant *models.FreeRoundGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.grants {
		if g.ID == grant.ID {
			return nil
		}
	}

	copied := *grant
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	s.grants = append(s.grants, &copied)
	return nil
}

// FreeRoundGrants returns all grants for a user (test helper and handler read).
func (s *MemClaimStore) FreeRoundGrants(userID int64) []*models.FreeRoundGrant {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.FreeRoundGrant
	for _, g := range s.grants {
		if g.UserID == userID {
			copied := *g
			out = append(out, &copied)
		}
	}
	return out
}
