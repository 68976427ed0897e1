package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"casino-backend/internal/models"
)

// MemStore is the in-memory Store used by tests and local development.
// A single mutex serializes all delta application, which trivially gives
// the per-user atomicity the contract requires.
type MemStore struct {
	mu      sync.Mutex
	wallets map[int64]*models.Wallet
	byRef   map[string]*Entry
	byUser  map[int64][]*Entry
}

func NewMemStore() *MemStore {
	return &MemStore{
		wallets: make(map[int64]*models.Wallet),
		byRef:   make(map[string]*Entry),
		byUser:  make(map[int64][]*Entry),
	}
}

var _ Store = (*MemStore)(nil)

func (s *MemStore) wallet(userID int64) *models.Wallet {
	w, ok := s.wallets[userID]
	if !ok {
		now := time.Now()
		w = &models.Wallet{UserID: userID, CreatedAt: now, UpdatedAt: now}
		s.wallets[userID] = w
	}
	return w
}

func (s *MemStore) ApplyDelta(ctx context.Context, userID int64, delta Delta, reason Reason, idempotencyRef string, metadata map[string]string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byRef[idempotencyRef]; ok {
		return Result{
			Balance:  prev.BalanceAfter,
			Bonus:    prev.BonusAfter,
			Locked:   prev.LockedAfter,
			Replayed: true,
		}, nil
	}

	w := s.wallet(userID)
	newBalance := w.Balance + delta.Balance
	newBonus := w.BonusBalance + delta.Bonus
	newLocked := w.LockedBalance + delta.Locked
	if newBalance < 0 || newBonus < 0 || newLocked < 0 {
		return Result{}, ErrInsufficientFunds
	}

	w.Balance = newBalance
	w.BonusBalance = newBonus
	w.LockedBalance = newLocked
	w.UpdatedAt = time.Now()

	entry := &Entry{
		ID:             uuid.New().String(),
		UserID:         userID,
		DeltaBalance:   delta.Balance,
		DeltaBonus:     delta.Bonus,
		DeltaLocked:    delta.Locked,
		Reason:         reason,
		IdempotencyRef: idempotencyRef,
		BalanceAfter:   newBalance,
		BonusAfter:     newBonus,
		LockedAfter:    newLocked,
		Metadata:       metadata,
		CreatedAt:      time.Now(),
	}
	s.byRef[idempotencyRef] = entry
	s.byUser[userID] = append(s.byUser[userID], entry)

	return Result{Balance: newBalance, Bonus: newBonus, Locked: newLocked}, nil
}

func (s *MemStore) Wallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.wallet(userID)
	copied := *w
	return &copied, nil
}

func (s *MemStore) Entries(ctx context.Context, userID int64, limit int) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.byUser[userID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}

	out := make([]*Entry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		copied := *all[i]
		out = append(out, &copied)
	}
	return out, nil
}
