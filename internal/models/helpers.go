package models

import (
	"fmt"
	"math"
)

// PayoutCents converts a bet and multiplier into a payout rounded to whole
// cents, which is the fixed 2-decimal precision for all money in the system.
func PayoutCents(betCents int64, multiplier float64) int64 {
	return int64(math.Round(float64(betCents) * multiplier))
}

// Validate checks the structural shape of a bet; monetary bounds are
// enforced by the settlement orchestrator against configured limits.
func (br *BetRequest) Validate() error {
	if br.AmountCents < 1 {
		return fmt.Errorf("bet amount must be at least 1 cent")
	}

	switch br.GameType {
	case GameTypeCrash:
		if br.CashoutTarget < 1.01 {
			return fmt.Errorf("cashout target must be at least 1.01x")
		}
	case GameTypeDice:
		if br.DiceTarget < 1 || br.DiceTarget > 98 {
			return fmt.Errorf("dice target must be between 1 and 98")
		}
	case GameTypeSlots:
	default:
		return fmt.Errorf("invalid game type: %s", br.GameType)
	}

	return nil
}
