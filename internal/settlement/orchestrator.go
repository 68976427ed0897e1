package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"casino-backend/internal/fairness"
	"casino-backend/internal/ledger"
	"casino-backend/internal/models"
	"casino-backend/internal/seeds"
)

// ErrInvalidBet rejects a bet before any balance mutation is attempted.
var ErrInvalidBet = errors.New("invalid bet")

// Broadcaster pushes settle events to connected clients. Settlement never
// depends on a broadcast succeeding.
type Broadcaster interface {
	BroadcastRoundSettled(round *models.Round)
}

// DefaultPayTable is the slots prize table. Order is significant: a draw on
// a cumulative-weight boundary resolves to the earlier tier.
var DefaultPayTable = []fairness.WeightedOutcome{
	{Tier: "jackpot", Multiplier: 500, Weight: 2},
	{Tier: "major", Multiplier: 50, Weight: 40},
	{Tier: "minor", Multiplier: 10, Weight: 400},
	{Tier: "small", Multiplier: 2, Weight: 8000},
	{Tier: "push", Multiplier: 1, Weight: 15000},
	{Tier: "lose", Multiplier: 0, Weight: 76558},
}

// diceEdge keeps a 1% house edge on dice payouts.
const diceEdge = 99.0

type resolveFunc func(epoch *seeds.Epoch, round *models.Round) error

// Orchestrator drives one game round from bet debit to terminal state,
// issuing compensating credits whenever a leg fails after money has moved.
type Orchestrator struct {
	ledger      ledger.Store
	rounds      RoundStore
	seeds       seeds.Store
	payTable    []fairness.WeightedOutcome
	minBetCents int64
	maxBetCents int64
	broadcaster Broadcaster
	log         zerolog.Logger

	resolve resolveFunc
}

func NewOrchestrator(l ledger.Store, r RoundStore, s seeds.Store, minBet, maxBet int64, log zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		ledger:      l,
		rounds:      r,
		seeds:       s,
		payTable:    DefaultPayTable,
		minBetCents: minBet,
		maxBetCents: maxBet,
		log:         log,
	}
	o.resolve = o.resolveOutcome
	return o
}

// SetBroadcaster attaches the settle-event feed (optional).
func (o *Orchestrator) SetBroadcaster(b Broadcaster) {
	o.broadcaster = b
}

// CrashPointForRound derives a crash point for one round of an epoch. The
// nonce is folded into the client-seed half of the pair so each round of an
// epoch draws a distinct point while the published formula stays intact.
// Verifiers recompute it from the revealed seed, client seed and nonce.
func CrashPointForRound(serverSeed, clientSeed string, nonce int64) (float64, error) {
	return fairness.CrashPoint(serverSeed, fmt.Sprintf("%s:%d", clientSeed, nonce))
}

// DiceMultiplier returns the payout multiplier for a winning dice bet.
func DiceMultiplier(target int, over bool) float64 {
	if over {
		return diceEdge / float64(99-target)
	}
	return diceEdge / float64(target)
}

// Play runs the full round workflow:
// validate -> debit -> persist round -> resolve -> credit -> settle.
// Once the debit lands, every failure path either reaches a terminal round
// state or issues a compensating credit; funds are never left in limbo.
func (o *Orchestrator) Play(ctx context.Context, userID int64, req *models.BetRequest) (*models.RoundResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBet, err)
	}
	if req.AmountCents < o.minBetCents || req.AmountCents > o.maxBetCents {
		return nil, fmt.Errorf("%w: amount %d outside [%d, %d]",
			ErrInvalidBet, req.AmountCents, o.minBetCents, o.maxBetCents)
	}

	roundID := uuid.New().String()
	meta := map[string]string{"game_type": string(req.GameType)}

	debit, err := o.ledger.ApplyDelta(ctx, userID,
		ledger.Delta{Balance: -req.AmountCents},
		ledger.ReasonBet, roundID+":bet", meta)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return nil, err
		}
		return nil, fmt.Errorf("bet debit: %w", err)
	}

	epoch, err := o.seeds.NextNonce(ctx, userID)
	if err != nil {
		return nil, o.refundBet(ctx, userID, roundID, req.AmountCents, "refund_insert_fail", err)
	}

	round := &models.Round{
		ID:             roundID,
		UserID:         userID,
		GameType:       req.GameType,
		BetAmountCents: req.AmountCents,
		Status:         models.RoundStatusActive,
		CashoutTarget:  req.CashoutTarget,
		DiceTarget:     req.DiceTarget,
		DiceOver:       req.DiceOver,
		ServerSeedHash: epoch.ServerSeedHash,
		ClientSeed:     epoch.ClientSeed,
		Nonce:          epoch.Nonce,
	}
	if err := o.rounds.Create(ctx, round); err != nil {
		return nil, o.refundBet(ctx, userID, roundID, req.AmountCents, "refund_insert_fail", err)
	}

	if err := o.resolve(epoch, round); err != nil {
		refundErr := o.refundBet(ctx, userID, roundID, req.AmountCents, "rollback", err)
		round.Status = models.RoundStatusRefunded
		if settleErr := o.rounds.Settle(ctx, round); settleErr != nil {
			o.log.Error().Err(settleErr).Str("round_id", roundID).Int64("user_id", userID).
				Msg("failed to mark round refunded after resolve failure")
		}
		return nil, refundErr
	}

	round.PayoutCents = models.PayoutCents(req.AmountCents, round.Multiplier)

	result := debit
	if round.PayoutCents > 0 {
		result, err = o.ledger.ApplyDelta(ctx, userID,
			ledger.Delta{Balance: round.PayoutCents},
			ledger.ReasonPayout, roundID+":payout", meta)
		if err != nil {
			// The win was computed but the payout leg failed: undo the bet
			// so the user never loses their stake to a transient failure.
			refundErr := o.refundBet(ctx, userID, roundID, req.AmountCents, "rollback", err)
			round.Status = models.RoundStatusRefunded
			round.PayoutCents = 0
			if settleErr := o.rounds.Settle(ctx, round); settleErr != nil {
				o.log.Error().Err(settleErr).Str("round_id", roundID).Int64("user_id", userID).
					Msg("failed to mark round refunded after payout failure")
			}
			return nil, refundErr
		}
	}

	win := round.PayoutCents > 0
	switch {
	case win:
		round.Status = models.RoundStatusWon
	case req.GameType == models.GameTypeCrash:
		round.Status = models.RoundStatusCrashed
	default:
		round.Status = models.RoundStatusLost
	}

	if err := o.rounds.Settle(ctx, round); err != nil {
		// Both money legs are committed; only the round record is stale.
		// Log with full context for reconciliation rather than unwinding
		// a correct ledger state.
		o.log.Error().Err(err).Str("round_id", roundID).Int64("user_id", userID).
			Str("idempotency_ref", roundID+":payout").
			Msg("failed to persist terminal round state")
	}

	if o.broadcaster != nil {
		o.broadcaster.BroadcastRoundSettled(round)
	}

	return &models.RoundResult{
		Round: round,
		Win:   win,
		NewBalance: models.BalanceResponse{
			Balance:       result.Balance,
			BonusBalance:  result.Bonus,
			LockedBalance: result.Locked,
			Playable:      result.Balance + result.Bonus,
		},
	}, nil
}

// refundBet issues the compensating credit for a debit whose round could
// not be completed. The ref is round-scoped and deterministic so a retried
// compensation cannot double-refund.
func (o *Orchestrator) refundBet(ctx context.Context, userID int64, roundID string, amount int64, kind string, cause error) error {
	_, refundErr := o.ledger.ApplyDelta(ctx, userID,
		ledger.Delta{Balance: amount},
		ledger.ReasonRollback, roundID+":"+kind, nil)
	if refundErr != nil {
		// Requires manual reconciliation: the debit stands without a round
		// record or a refund entry.
		o.log.Error().Err(refundErr).AnErr("cause", cause).
			Str("round_id", roundID).Int64("user_id", userID).
			Str("idempotency_ref", roundID+":"+kind).Int64("amount_cents", amount).
			Msg("compensating credit failed")
		return fmt.Errorf("round failed and refund failed (%v): %w", refundErr, cause)
	}

	o.log.Warn().AnErr("cause", cause).Str("round_id", roundID).Int64("user_id", userID).
		Str("idempotency_ref", roundID+":"+kind).
		Msg("round aborted, bet refunded")
	return fmt.Errorf("round aborted, bet refunded: %w", cause)
}

func (o *Orchestrator) resolveOutcome(epoch *seeds.Epoch, round *models.Round) error {
	switch round.GameType {
	case models.GameTypeCrash:
		point, err := CrashPointForRound(epoch.ServerSeed, epoch.ClientSeed, epoch.Nonce)
		if err != nil {
			return err
		}
		round.CrashPoint = point
		// A cashout exactly on the crash point wins.
		if round.CashoutTarget <= point {
			round.Multiplier = round.CashoutTarget
		}

	case models.GameTypeDice:
		roll, err := fairness.DeriveInt(epoch.ServerSeed, epoch.ClientSeed, epoch.Nonce, 0, 0, 99)
		if err != nil {
			return err
		}
		round.DiceRoll = roll
		// Strict comparisons: a roll equal to the target loses both ways.
		win := (round.DiceOver && roll > round.DiceTarget) ||
			(!round.DiceOver && roll < round.DiceTarget)
		if win {
			round.Multiplier = DiceMultiplier(round.DiceTarget, round.DiceOver)
		}

	case models.GameTypeSlots:
		tier, err := fairness.PickWeighted(epoch.ServerSeed, epoch.ClientSeed, epoch.Nonce, 0, o.payTable)
		if err != nil {
			return err
		}
		round.SlotTier = tier.Tier
		round.Multiplier = tier.Multiplier

	default:
		return fmt.Errorf("unsupported game type: %s", round.GameType)
	}
	return nil
}

// History returns the user's settled and active rounds, newest first.
func (o *Orchestrator) History(ctx context.Context, userID int64, limit int) ([]*models.Round, error) {
	return o.rounds.History(ctx, userID, limit)
}

// Round returns a single round by id.
func (o *Orchestrator) Round(ctx context.Context, roundID string) (*models.Round, error) {
	return o.rounds.Get(ctx, roundID)
}
