package models

import "time"

type GameType string

const (
	GameTypeCrash GameType = "crash"
	GameTypeDice  GameType = "dice"
	GameTypeSlots GameType = "slots"
)

type RoundStatus string

const (
	RoundStatusActive   RoundStatus = "active"
	RoundStatusWon      RoundStatus = "won"
	RoundStatusLost     RoundStatus = "lost"
	RoundStatusCrashed  RoundStatus = "crashed"
	RoundStatusRefunded RoundStatus = "refunded"
)

// Round is one bet action from debit to terminal state. The fairness fields
// are persisted so a settled round can be re-derived from revealed seeds.
type Round struct {
	ID             string      `json:"id"`
	UserID         int64       `json:"user_id"`
	GameType       GameType    `json:"game_type"`
	BetAmountCents int64       `json:"bet_amount_cents"`
	Status         RoundStatus `json:"status"`

	// Game parameters chosen by the player.
	CashoutTarget float64 `json:"cashout_target,omitempty"` // crash
	DiceTarget    int     `json:"dice_target,omitempty"`    // dice
	DiceOver      bool    `json:"dice_over,omitempty"`      // dice

	// Outcome, set at settlement.
	Multiplier  float64 `json:"multiplier"`
	CrashPoint  float64 `json:"crash_point,omitempty"`
	DiceRoll    int     `json:"dice_roll,omitempty"`
	SlotTier    string  `json:"slot_tier,omitempty"`
	PayoutCents int64   `json:"payout_cents"`

	// Fairness audit trail.
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          int64  `json:"nonce"`

	CreatedAt time.Time `json:"created_at"`
	SettledAt time.Time `json:"settled_at,omitempty"`
}

type BetRequest struct {
	GameType    GameType `json:"game_type" binding:"required"`
	AmountCents int64    `json:"amount_cents" binding:"required"`

	CashoutTarget float64 `json:"cashout_target,omitempty"`
	DiceTarget    int     `json:"dice_target,omitempty"`
	DiceOver      bool    `json:"dice_over,omitempty"`
}

type RoundResult struct {
	Round      *Round          `json:"round"`
	Win        bool            `json:"win"`
	NewBalance BalanceResponse `json:"new_balance"`
}
