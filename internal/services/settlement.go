package services

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketpulse/internal/models"
)

// Platform fee bounds. The configured rate is clamped into this range at
// use time regardless of its value.
const (
	MinFeeRate = 0.0
	MaxFeeRate = 0.2
)

// Payout is one winning stake's settlement entry: the all-inclusive return
// (principal plus winnings, or principal alone in the refund cases).
// Losing-side and zero-amount stakes get no entry.
type Payout struct {
	StakeID     uuid.UUID
	UserID      uint
	StakeAmount decimal.Decimal
	Amount      decimal.Decimal
}

// ClampFeeRate bounds the configured platform fee into [MinFeeRate, MaxFeeRate].
func ClampFeeRate(rate float64) decimal.Decimal {
	if rate < MinFeeRate {
		rate = MinFeeRate
	}
	if rate > MaxFeeRate {
		rate = MaxFeeRate
	}
	return decimal.NewFromFloat(rate)
}

// ComputePayouts redistributes the losing side's pool to the winning side
// proportionally to stake, net of the platform fee, with deterministic
// integer output.
//
// If either pool is empty (no opposing liquidity, or an empty winning pool
// despite winner records) every winner is refunded exactly their own stake
// with no fee taken. Otherwise each winner receives
// floor(stake + distributable * stake/winningPool), where distributable is
// the losing pool minus the fee skim. The floor truncation loses at most
// one unit per winner, retained by the platform, never taken from a user's
// principal.
func ComputePayouts(totalYes, totalNo decimal.Decimal, stakes []models.Stake, winningSide string, feeRate float64) []Payout {
	var winners []models.Stake
	for _, stake := range stakes {
		if stake.Side == winningSide && stake.Amount.IsPositive() {
			winners = append(winners, stake)
		}
	}
	if len(winners) == 0 {
		return nil
	}

	winningPool := totalYes
	losingPool := totalNo
	if winningSide == models.SideNo {
		winningPool = totalNo
		losingPool = totalYes
	}

	// No opposing liquidity, or an empty winning pool despite winner
	// records: exact refunds, no profit, no loss, no fee.
	if !winningPool.IsPositive() || !losingPool.IsPositive() {
		payouts := make([]Payout, 0, len(winners))
		for _, stake := range winners {
			payouts = append(payouts, Payout{
				StakeID:     stake.ID,
				UserID:      stake.UserID,
				StakeAmount: stake.Amount,
				Amount:      stake.Amount,
			})
		}
		return payouts
	}

	fee := losingPool.Mul(ClampFeeRate(feeRate))
	distributable := losingPool.Sub(fee)

	payouts := make([]Payout, 0, len(winners))
	for _, stake := range winners {
		share := stake.Amount.Div(winningPool)
		gain := distributable.Mul(share)
		payouts = append(payouts, Payout{
			StakeID:     stake.ID,
			UserID:      stake.UserID,
			StakeAmount: stake.Amount,
			Amount:      stake.Amount.Add(gain).Floor(),
		})
	}
	return payouts
}
