package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"casino-backend/internal/models"
)

type PGRoundStore struct {
	pool *pgxpool.Pool
}

func NewPGRoundStore(pool *pgxpool.Pool) *PGRoundStore {
	return &PGRoundStore{pool: pool}
}

var _ RoundStore = (*PGRoundStore)(nil)

func (s *PGRoundStore) Create(ctx context.Context, r *models.Round) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rounds
			(id, user_id, game_type, bet_amount_cents, status,
			 cashout_target, dice_target, dice_over,
			 server_seed_hash, client_seed, nonce)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.ID, r.UserID, string(r.GameType), r.BetAmountCents, string(r.Status),
		r.CashoutTarget, r.DiceTarget, r.DiceOver,
		r.ServerSeedHash, r.ClientSeed, r.Nonce)
	if err != nil {
		return fmt.Errorf("%w: insert round: %v", ErrRoundsUnavailable, err)
	}
	return nil
}

func (s *PGRoundStore) Get(ctx context.Context, roundID string) (*models.Round, error) {
	r := &models.Round{}
	var gameType, status string
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, game_type, bet_amount_cents, status,
		       cashout_target, dice_target, dice_over,
		       multiplier, crash_point, dice_roll, slot_tier, payout_cents,
		       server_seed_hash, client_seed, nonce, created_at, coalesce(settled_at, 'epoch')
		FROM rounds WHERE id = $1
	`, roundID)
	err := row.Scan(&r.ID, &r.UserID, &gameType, &r.BetAmountCents, &status,
		&r.CashoutTarget, &r.DiceTarget, &r.DiceOver,
		&r.Multiplier, &r.CrashPoint, &r.DiceRoll, &r.SlotTier, &r.PayoutCents,
		&r.ServerSeedHash, &r.ClientSeed, &r.Nonce, &r.CreatedAt, &r.SettledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("%w: read round: %v", ErrRoundsUnavailable, err)
	}
	r.GameType = models.GameType(gameType)
	r.Status = models.RoundStatus(status)
	return r, nil
}

func (s *PGRoundStore) Settle(ctx context.Context, r *models.Round) error {
	// Guarded on status so a terminal round can never be re-settled.
	tag, err := s.pool.Exec(ctx, `
		UPDATE rounds
		SET status = $2, multiplier = $3, crash_point = $4, dice_roll = $5,
		    slot_tier = $6, payout_cents = $7, settled_at = now()
		WHERE id = $1 AND status = 'active'
	`, r.ID, string(r.Status), r.Multiplier, r.CrashPoint, r.DiceRoll,
		r.SlotTier, r.PayoutCents)
	if err != nil {
		return fmt.Errorf("%w: settle round: %v", ErrRoundsUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoundNotFound
	}
	return nil
}

func (s *PGRoundStore) History(ctx context.Context, userID int64, limit int) ([]*models.Round, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, game_type, bet_amount_cents, status,
		       cashout_target, dice_target, dice_over,
		       multiplier, crash_point, dice_roll, slot_tier, payout_cents,
		       server_seed_hash, client_seed, nonce, created_at, coalesce(settled_at, 'epoch')
		FROM rounds
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query rounds: %v", ErrRoundsUnavailable, err)
	}
	defer rows.Close()

	var out []*models.Round
	for rows.Next() {
		r := &models.Round{}
		var gameType, status string
		err := rows.Scan(&r.ID, &r.UserID, &gameType, &r.BetAmountCents, &status,
			&r.CashoutTarget, &r.DiceTarget, &r.DiceOver,
			&r.Multiplier, &r.CrashPoint, &r.DiceRoll, &r.SlotTier, &r.PayoutCents,
			&r.ServerSeedHash, &r.ClientSeed, &r.Nonce, &r.CreatedAt, &r.SettledAt)
		if err != nil {
			return nil, fmt.Errorf("%w: scan round: %v", ErrRoundsUnavailable, err)
		}
		r.GameType = models.GameType(gameType)
		r.Status = models.RoundStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
