package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StakePool aggregates the amounts staked on each side of one market.
// Created lazily on the first stake; totals only grow until resolution.
// Either side may legitimately be zero (no-liquidity case).
type StakePool struct {
	MarketID  uint            `gorm:"primaryKey" json:"market_id"`
	TotalYes  decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"total_yes"`
	TotalNo   decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"total_no"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for StakePool model
func (StakePool) TableName() string {
	return "stake_pools"
}
