package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"casino-backend/internal/ledger"
	"casino-backend/internal/models"
	"casino-backend/internal/promo"
)

var ErrInvalidAmount = errors.New("amount must be positive")

// DepositResult bundles the new balances with any promotion the deposit
// triggered.
type DepositResult struct {
	Balance *models.BalanceResponse `json:"balance"`
	Promo   *models.PromoResult     `json:"promo,omitempty"`
}

// Service is the wallet facade over the ledger: deposits, the withdrawal
// lifecycle and balance reads. Every money movement goes through the
// ledger with a deterministic idempotency ref, so payment-provider webhook
// redeliveries replay instead of double-counting.
type Service struct {
	ledger      ledger.Store
	withdrawals WithdrawalStore
	promos      *promo.Applier
	log         zerolog.Logger
}

func NewService(l ledger.Store, w WithdrawalStore, p *promo.Applier, log zerolog.Logger) *Service {
	return &Service{ledger: l, withdrawals: w, promos: p, log: log}
}

func (s *Service) Balance(ctx context.Context, userID int64) (*models.BalanceResponse, error) {
	w, err := s.ledger.Wallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.BalanceResponse{
		Balance:       w.Balance,
		BonusBalance:  w.BonusBalance,
		LockedBalance: w.LockedBalance,
		Playable:      w.Balance + w.BonusBalance,
	}, nil
}

func (s *Service) Entries(ctx context.Context, userID int64, limit int) ([]*ledger.Entry, error) {
	return s.ledger.Entries(ctx, userID, limit)
}

func (s *Service) Withdrawals(ctx context.Context, userID int64, limit int) ([]*models.Withdrawal, error) {
	return s.withdrawals.ListByUser(ctx, userID, limit)
}

// Deposit credits the real-money bucket and runs the promotion applier.
// The providerRef is the payment provider's transaction id; a redelivered
// confirmation for the same ref is a no-op on both the balance and the
// promotion.
func (s *Service) Deposit(ctx context.Context, userID, amountCents int64, providerRef string) (*DepositResult, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	ref := "deposit:" + providerRef
	res, err := s.ledger.ApplyDelta(ctx, userID,
		ledger.Delta{Balance: amountCents},
		ledger.ReasonDeposit, ref, nil)
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		s.log.Info().Int64("user_id", userID).Str("idempotency_ref", ref).
			Msg("deposit replayed")
	}

	out := &DepositResult{Balance: &models.BalanceResponse{
		Balance:       res.Balance,
		BonusBalance:  res.Bonus,
		LockedBalance: res.Locked,
		Playable:      res.Balance + res.Bonus,
	}}

	if s.promos != nil {
		// Runs on replayed deposits too, so a crash between the credit and
		// the promotion is healed by the next delivery. The applier keys its
		// ledger credit and grant on the claim and providerRef, so a
		// redelivery cannot change an award already made, even when it
		// carries a mismatched amount for the same ref.
		pr, err := s.promos.ApplyForDeposit(ctx, userID, amountCents, providerRef)
		if err != nil {
			// The deposit itself landed; surface the balance and let the
			// next delivery retry the promotion.
			s.log.Error().Err(err).Int64("user_id", userID).
				Str("provider_ref", providerRef).Msg("promo apply failed after deposit")
			return out, nil
		}
		if pr.Applied {
			out.Promo = pr
			w, err := s.ledger.Wallet(ctx, userID)
			if err == nil {
				out.Balance.BonusBalance = w.BonusBalance
				out.Balance.Playable = w.Balance + w.BonusBalance
			}
		}
	}
	return out, nil
}

// RequestWithdrawal moves funds from the real-money bucket into the locked
// bucket and records a pending withdrawal. Bonus funds are never
// withdrawable.
func (s *Service) RequestWithdrawal(ctx context.Context, userID, amountCents int64) (*models.Withdrawal, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	w := &models.Withdrawal{
		ID:          uuid.New().String(),
		UserID:      userID,
		AmountCents: amountCents,
		Status:      models.WithdrawalPending,
	}

	if _, err := s.ledger.ApplyDelta(ctx, userID,
		ledger.Delta{Balance: -amountCents, Locked: amountCents},
		ledger.ReasonWithdrawRequest,
		fmt.Sprintf("withdraw:%s:request", w.ID), nil); err != nil {
		return nil, err
	}

	if err := s.withdrawals.Create(ctx, w); err != nil {
		// Put the money back; the request was never recorded.
		if _, rerr := s.ledger.ApplyDelta(ctx, userID,
			ledger.Delta{Balance: amountCents, Locked: -amountCents},
			ledger.ReasonWithdrawRefund,
			fmt.Sprintf("withdraw:%s:refund", w.ID), nil); rerr != nil {
			s.log.Error().Err(rerr).Int64("user_id", userID).
				Str("withdrawal_id", w.ID).Int64("amount_cents", amountCents).
				Msg("withdrawal refund failed after insert failure, funds locked pending reconciliation")
		}
		return nil, err
	}

	s.log.Info().Int64("user_id", userID).Str("withdrawal_id", w.ID).
		Int64("amount_cents", amountCents).Msg("withdrawal requested")
	return w, nil
}

// MarkWithdrawalPaid finalizes a payout confirmed by the payment provider:
// the locked funds leave the wallet. Safe to call more than once.
func (s *Service) MarkWithdrawalPaid(ctx context.Context, withdrawalID string) error {
	return s.resolveWithdrawal(ctx, withdrawalID, models.WithdrawalPaid)
}

// RefundWithdrawal cancels a pending payout and returns the locked funds
// to the real-money bucket. Safe to call more than once.
func (s *Service) RefundWithdrawal(ctx context.Context, withdrawalID string) error {
	return s.resolveWithdrawal(ctx, withdrawalID, models.WithdrawalRefunded)
}

// resolveWithdrawal makes the status transition first, then applies the
// ledger movement under a ref derived from the withdrawal id. If the
// transition already happened in the same direction the ledger call is a
// replay or a repair after an earlier partial failure; a transition in
// the opposite direction is rejected before any money moves.
func (s *Service) resolveWithdrawal(ctx context.Context, withdrawalID string, to models.WithdrawalStatus) error {
	w, err := s.withdrawals.Get(ctx, withdrawalID)
	if err != nil {
		return err
	}

	if w.Status == models.WithdrawalPending {
		moved, err := s.withdrawals.Resolve(ctx, withdrawalID, models.WithdrawalPending, to)
		if err != nil {
			return err
		}
		if !moved {
			// Raced with the opposite resolution; re-read and recheck.
			if w, err = s.withdrawals.Get(ctx, withdrawalID); err != nil {
				return err
			}
		}
	}
	if w.Status != models.WithdrawalPending && w.Status != to {
		return fmt.Errorf("withdrawal %s already %s", withdrawalID, w.Status)
	}

	delta := ledger.Delta{Locked: -w.AmountCents}
	reason := ledger.ReasonWithdrawPaid
	ref := fmt.Sprintf("withdraw:%s:paid", withdrawalID)
	if to == models.WithdrawalRefunded {
		delta.Balance = w.AmountCents
		reason = ledger.ReasonWithdrawRefund
		ref = fmt.Sprintf("withdraw:%s:refund", withdrawalID)
	}

	if _, err := s.ledger.ApplyDelta(ctx, w.UserID, delta, reason, ref, nil); err != nil {
		s.log.Error().Err(err).Str("withdrawal_id", withdrawalID).
			Str("idempotency_ref", ref).Msg("withdrawal settlement ledger move failed")
		return err
	}

	s.log.Info().Int64("user_id", w.UserID).Str("withdrawal_id", withdrawalID).
		Str("status", string(to)).Msg("withdrawal resolved")
	return nil
}
