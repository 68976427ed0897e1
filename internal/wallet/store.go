package wallet

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"casino-backend/internal/models"
)

var (
	ErrWithdrawalNotFound     = errors.New("withdrawal not found")
	ErrWithdrawalsUnavailable = errors.New("withdrawal store unavailable")
)

// WithdrawalStore tracks payout requests. Money movement is the ledger's
// job; this store only records the request lifecycle so a pending request
// cannot be resolved twice in different directions.
type WithdrawalStore interface {
	Create(ctx context.Context, w *models.Withdrawal) error
	Get(ctx context.Context, id string) (*models.Withdrawal, error)

	// Resolve flips status from -> to and returns whether this call made
	// the transition. A false return with nil error means someone else
	// already moved the withdrawal out of the from status.
	Resolve(ctx context.Context, id string, from, to models.WithdrawalStatus) (bool, error)

	ListByUser(ctx context.Context, userID int64, limit int) ([]*models.Withdrawal, error)
}

// MemWithdrawalStore is the in-memory implementation used in tests and
// when no database is configured.
type MemWithdrawalStore struct {
	mu          sync.Mutex
	withdrawals map[string]*models.Withdrawal
}

func NewMemWithdrawalStore() *MemWithdrawalStore {
	return &MemWithdrawalStore{withdrawals: make(map[string]*models.Withdrawal)}
}

func (s *MemWithdrawalStore) Create(ctx context.Context, w *models.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *w
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.withdrawals[cp.ID] = &cp
	return nil
}

func (s *MemWithdrawalStore) Get(ctx context.Context, id string) (*models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return nil, ErrWithdrawalNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *MemWithdrawalStore) Resolve(ctx context.Context, id string, from, to models.WithdrawalStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return false, ErrWithdrawalNotFound
	}
	if w.Status != from {
		return false, nil
	}
	w.Status = to
	w.ResolvedAt = time.Now().UTC()
	return true, nil
}

func (s *MemWithdrawalStore) ListByUser(ctx context.Context, userID int64, limit int) ([]*models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Withdrawal
	for _, w := range s.withdrawals {
		if w.UserID == userID {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
