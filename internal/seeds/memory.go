package seeds

import (
	"context"
	"sync"
	"time"
)

type MemStore struct {
	mu     sync.Mutex
	epochs map[int64]*Epoch
}

func NewMemStore() *MemStore {
	return &MemStore{epochs: make(map[int64]*Epoch)}
}

var _ Store = (*MemStore)(nil)

func (s *MemStore) current(userID int64) (*Epoch, error) {
	e, ok := s.epochs[userID]
	if !ok {
		fresh, err := newEpoch(userID)
		if err != nil {
			return nil, err
		}
		s.epochs[userID] = fresh
		e = fresh
	}
	return e, nil
}

func (s *MemStore) Current(ctx context.Context, userID int64) (*Epoch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.current(userID)
	if err != nil {
		return nil, err
	}
	copied := *e
	return &copied, nil
}

func (s *MemStore) NextNonce(ctx context.Context, userID int64) (*Epoch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.current(userID)
	if err != nil {
		return nil, err
	}
	e.Nonce++
	copied := *e
	return &copied, nil
}

func (s *MemStore) SetClientSeed(ctx context.Context, userID int64, clientSeed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.current(userID)
	if err != nil {
		return err
	}
	e.ClientSeed = clientSeed
	return nil
}

func (s *MemStore) Rotate(ctx context.Context, userID int64) (*Epoch, *Epoch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.current(userID)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now()
	old.RotatedAt = &now

	fresh, err := newEpoch(userID)
	if err != nil {
		return nil, nil, err
	}
	fresh.ClientSeed = old.ClientSeed
	s.epochs[userID] = fresh

	revealed := *old
	freshCopy := *fresh
	return &revealed, &freshCopy, nil
}
