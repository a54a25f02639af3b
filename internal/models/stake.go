package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stake side values. SideNone is representable but carries zero amount and
// is excluded from payout computation.
const (
	SideYes  = "YES"
	SideNo   = "NO"
	SideNone = "NONE"
)

// Stake is one user's position on one market. A user may stake at most
// once per market. The resolution pass mutates it exactly once, writing
// Payout and ResolvedAt; losing stakes are left untouched (payout
// implicitly zero).
type Stake struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uint             `gorm:"not null;index;uniqueIndex:idx_stakes_user_market" json:"user_id"`
	MarketID   uint             `gorm:"not null;index;uniqueIndex:idx_stakes_user_market" json:"market_id"`
	Side       string           `gorm:"size:10;not null" json:"side"`
	Amount     decimal.Decimal  `gorm:"type:decimal(20,8);not null" json:"amount"`
	Payout     *decimal.Decimal `gorm:"type:decimal(20,8)" json:"payout,omitempty"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// TableName specifies the table name for Stake model
func (Stake) TableName() string {
	return "stakes"
}
