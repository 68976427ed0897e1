package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"casino-backend/internal/models"
)

// PGStore is the Postgres Store. Row-level locking on the wallet serializes
// concurrent deltas for one user; the unique index on idempotency_ref turns
// a duplicate insert into a well-defined conflict handled as a replay.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

var _ Store = (*PGStore)(nil)

func (s *PGStore) ApplyDelta(ctx context.Context, userID int64, delta Delta, reason Reason, idempotencyRef string, metadata map[string]string) (Result, error) {
	res, err := s.applyDeltaOnce(ctx, userID, delta, reason, idempotencyRef, metadata)

	// A concurrent call with the same ref can commit between our replay
	// check and our insert; the unique index rejects ours, so re-read the
	// winner's recorded result.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return s.replay(ctx, idempotencyRef)
	}
	return res, err
}

func (s *PGStore) applyDeltaOnce(ctx context.Context, userID int64, delta Delta, reason Reason, idempotencyRef string, metadata map[string]string) (Result, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: begin: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO wallets (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: ensure wallet: %v", ErrStoreUnavailable, err)
	}

	var balance, bonus, locked int64
	row := tx.QueryRow(ctx, `
		SELECT balance, bonus_balance, locked_balance
		FROM wallets WHERE user_id = $1 FOR UPDATE
	`, userID)
	if err := row.Scan(&balance, &bonus, &locked); err != nil {
		return Result{}, fmt.Errorf("%w: lock wallet: %v", ErrStoreUnavailable, err)
	}

	// Replay check inside the transaction, after taking the row lock, so a
	// retried call observes the committed entry of its first attempt.
	var prev Result
	row = tx.QueryRow(ctx, `
		SELECT balance_after, bonus_after, locked_after
		FROM ledger_entries WHERE idempotency_ref = $1
	`, idempotencyRef)
	switch err := row.Scan(&prev.Balance, &prev.Bonus, &prev.Locked); {
	case err == nil:
		prev.Replayed = true
		return prev, nil
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return Result{}, fmt.Errorf("%w: replay check: %v", ErrStoreUnavailable, err)
	}

	newBalance := balance + delta.Balance
	newBonus := bonus + delta.Bonus
	newLocked := locked + delta.Locked
	if newBalance < 0 || newBonus < 0 || newLocked < 0 {
		return Result{}, ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx, `
		UPDATE wallets
		SET balance = $2, bonus_balance = $3, locked_balance = $4, updated_at = now()
		WHERE user_id = $1
	`, userID, newBalance, newBonus, newLocked)
	if err != nil {
		return Result{}, fmt.Errorf("%w: update wallet: %v", ErrStoreUnavailable, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger_entries
			(user_id, delta_balance, delta_bonus, delta_locked, reason,
			 idempotency_ref, balance_after, bonus_after, locked_after, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, userID, delta.Balance, delta.Bonus, delta.Locked, string(reason),
		idempotencyRef, newBalance, newBonus, newLocked, metadata)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: insert entry: %v", ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("%w: commit: %v", ErrStoreUnavailable, err)
	}

	return Result{Balance: newBalance, Bonus: newBonus, Locked: newLocked}, nil
}

func (s *PGStore) replay(ctx context.Context, idempotencyRef string) (Result, error) {
	var res Result
	row := s.pool.QueryRow(ctx, `
		SELECT balance_after, bonus_after, locked_after
		FROM ledger_entries WHERE idempotency_ref = $1
	`, idempotencyRef)
	if err := row.Scan(&res.Balance, &res.Bonus, &res.Locked); err != nil {
		return Result{}, fmt.Errorf("%w: replay read: %v", ErrStoreUnavailable, err)
	}
	res.Replayed = true
	return res, nil
}

func (s *PGStore) Wallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	w := &models.Wallet{UserID: userID}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO wallets (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING balance, bonus_balance, locked_balance, created_at, updated_at
	`, userID)
	if err := row.Scan(&w.Balance, &w.BonusBalance, &w.LockedBalance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%w: read wallet: %v", ErrStoreUnavailable, err)
	}
	return w, nil
}

func (s *PGStore) Entries(ctx context.Context, userID int64, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, delta_balance, delta_bonus, delta_locked, reason,
		       idempotency_ref, balance_after, bonus_after, locked_after, metadata, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query entries: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var id int64
		var reason string
		if err := rows.Scan(&id, &e.UserID, &e.DeltaBalance, &e.DeltaBonus, &e.DeltaLocked,
			&reason, &e.IdempotencyRef, &e.BalanceAfter, &e.BonusAfter, &e.LockedAfter,
			&e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan entry: %v", ErrStoreUnavailable, err)
		}
		e.ID = strconv.FormatInt(id, 10)
		e.Reason = Reason(reason)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
