package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"casino-backend/internal/models"
)

// PGWithdrawalStore is the PostgreSQL-backed withdrawal store.
type PGWithdrawalStore struct {
	pool *pgxpool.Pool
}

func NewPGWithdrawalStore(pool *pgxpool.Pool) *PGWithdrawalStore {
	return &PGWithdrawalStore{pool: pool}
}

func (s *PGWithdrawalStore) Create(ctx context.Context, w *models.Withdrawal) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO withdrawals (id, user_id, amount_cents, status, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		w.ID, w.UserID, w.AmountCents, w.Status)
	if err != nil {
		return fmt.Errorf("%w: insert withdrawal: %v", ErrWithdrawalsUnavailable, err)
	}
	return nil
}

func (s *PGWithdrawalStore) Get(ctx context.Context, id string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, amount_cents, status, created_at, coalesce(resolved_at, 'epoch')
		FROM withdrawals WHERE id = $1`, id).
		Scan(&w.ID, &w.UserID, &w.AmountCents, &w.Status, &w.CreatedAt, &w.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWithdrawalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select withdrawal: %v", ErrWithdrawalsUnavailable, err)
	}
	return &w, nil
}

func (s *PGWithdrawalStore) Resolve(ctx context.Context, id string, from, to models.WithdrawalStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE withdrawals SET status = $3, resolved_at = now()
		WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return false, fmt.Errorf("%w: resolve withdrawal: %v", ErrWithdrawalsUnavailable, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Distinguish "already resolved" from "never existed".
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *PGWithdrawalStore) ListByUser(ctx context.Context, userID int64, limit int) ([]*models.Withdrawal, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, amount_cents, status, created_at, coalesce(resolved_at, 'epoch')
		FROM withdrawals WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list withdrawals: %v", ErrWithdrawalsUnavailable, err)
	}
	defer rows.Close()

	var out []*models.Withdrawal
	for rows.Next() {
		var w models.Withdrawal
		if err := rows.Scan(&w.ID, &w.UserID, &w.AmountCents, &w.Status, &w.CreatedAt, &w.ResolvedAt); err != nil {
			return nil, fmt.Errorf("%w: scan withdrawal: %v", ErrWithdrawalsUnavailable, err)
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}
