package settlement

import (
	"context"
	"errors"
	"sync"
	"time"

	"casino-backend/internal/models"
)

var (
	ErrRoundNotFound     = errors.New("round not found")
	ErrRoundsUnavailable = errors.New("round store unavailable")
)

type RoundStore interface {
	Create(ctx context.Context, round *models.Round) error
	Get(ctx context.Context, roundID string) (*models.Round, error)
	// Settle persists the terminal state of a round. Terminal rounds are
	// never re-opened.
	Settle(ctx context.Context, round *models.Round) error
	History(ctx context.Context, userID int64, limit int) ([]*models.Round, error)
}

// MemRoundStore backs tests and local development.
type MemRoundStore struct {
	mu     sync.Mutex
	rounds map[string]*models.Round
	byUser map[int64][]string
}

func NewMemRoundStore() *MemRoundStore {
	return &MemRoundStore{
		rounds: make(map[string]*models.Round),
		byUser: make(map[int64][]string),
	}
}

var _ RoundStore = (*MemRoundStore)(nil)

func (s *MemRoundStore) Create(ctx context.Context, round *models.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *round
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	s.rounds[round.ID] = &copied
	s.byUser[round.UserID] = append(s.byUser[round.UserID], round.ID)
	return nil
}

func (s *MemRoundStore) Get(ctx context.Context, roundID string) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[roundID]
	if !ok {
		return nil, ErrRoundNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *MemRoundStore) Settle(ctx context.Context, round *models.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rounds[round.ID]
	if !ok || existing.Status != models.RoundStatusActive {
		return ErrRoundNotFound
	}
	copied := *round
	if copied.SettledAt.IsZero() {
		copied.SettledAt = time.Now()
	}
	s.rounds[round.ID] = &copied
	return nil
}

func (s *MemRoundStore) History(ctx context.Context, userID int64, limit int) ([]*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byUser[userID]
	if limit <= 0 || limit > len(ids) {
		limit = len(ids)
	}

	out := make([]*models.Round, 0, limit)
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		copied := *s.rounds[ids[i]]
		out = append(out, &copied)
	}
	return out, nil
}
