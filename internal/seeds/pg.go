package seeds

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

var _ Store = (*PGStore)(nil)

func (s *PGStore) ensure(ctx context.Context, userID int64) error {
	// Generated up front; the partial unique index on (user_id) WHERE active
	// makes a concurrent first-use race a no-op for the loser.
	fresh, err := newEpoch(userID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO seed_epochs (user_id, server_seed, server_seed_hash, client_seed)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (SELECT 1 FROM seed_epochs WHERE user_id = $1 AND active)
		ON CONFLICT DO NOTHING
	`, userID, fresh.ServerSeed, fresh.ServerSeedHash, fresh.ClientSeed)
	if err != nil {
		return fmt.Errorf("%w: ensure epoch: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PGStore) Current(ctx context.Context, userID int64) (*Epoch, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return nil, err
	}

	e := &Epoch{UserID: userID}
	row := s.pool.QueryRow(ctx, `
		SELECT server_seed, server_seed_hash, client_seed, nonce, created_at
		FROM seed_epochs WHERE user_id = $1 AND active
	`, userID)
	if err := row.Scan(&e.ServerSeed, &e.ServerSeedHash, &e.ClientSeed, &e.Nonce, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: read epoch: %v", ErrStoreUnavailable, err)
	}
	return e, nil
}

// NextNonce relies on a single UPDATE ... RETURNING as the atomic counter;
// two concurrent spins can never observe the same nonce.
func (s *PGStore) NextNonce(ctx context.Context, userID int64) (*Epoch, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return nil, err
	}

	e := &Epoch{UserID: userID}
	row := s.pool.QueryRow(ctx, `
		UPDATE seed_epochs SET nonce = nonce + 1
		WHERE user_id = $1 AND active
		RETURNING server_seed, server_seed_hash, client_seed, nonce, created_at
	`, userID)
	if err := row.Scan(&e.ServerSeed, &e.ServerSeedHash, &e.ClientSeed, &e.Nonce, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: next nonce: %v", ErrStoreUnavailable, err)
	}
	return e, nil
}

func (s *PGStore) SetClientSeed(ctx context.Context, userID int64, clientSeed string) error {
	if err := s.ensure(ctx, userID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE seed_epochs SET client_seed = $2
		WHERE user_id = $1 AND active
	`, userID, clientSeed)
	if err != nil {
		return fmt.Errorf("%w: set client seed: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PGStore) Rotate(ctx context.Context, userID int64) (*Epoch, *Epoch, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return nil, nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: begin: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx)

	revealed := &Epoch{UserID: userID}
	row := tx.QueryRow(ctx, `
		UPDATE seed_epochs SET active = false, rotated_at = now()
		WHERE user_id = $1 AND active
		RETURNING server_seed, server_seed_hash, client_seed, nonce, created_at, rotated_at
	`, userID)
	err = row.Scan(&revealed.ServerSeed, &revealed.ServerSeedHash, &revealed.ClientSeed,
		&revealed.Nonce, &revealed.CreatedAt, &revealed.RotatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: no active epoch", ErrStoreUnavailable)
		}
		return nil, nil, fmt.Errorf("%w: retire epoch: %v", ErrStoreUnavailable, err)
	}

	fresh, err := newEpoch(userID)
	if err != nil {
		return nil, nil, err
	}
	fresh.ClientSeed = revealed.ClientSeed

	_, err = tx.Exec(ctx, `
		INSERT INTO seed_epochs (user_id, server_seed, server_seed_hash, client_seed)
		VALUES ($1, $2, $3, $4)
	`, userID, fresh.ServerSeed, fresh.ServerSeedHash, fresh.ClientSeed)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: insert epoch: %v", ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: commit: %v", ErrStoreUnavailable, err)
	}
	return revealed, fresh, nil
}
