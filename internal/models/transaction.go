package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TransactionTypeStake  = "stake"
	TransactionTypePayout = "payout"
)

// Transaction statuses
const (
	TransactionStatusConfirmed = "confirmed"
)

// Transaction records a balance movement. A payout entry is written only
// after the corresponding balance credit succeeded, so a stake payout
// without a matching transaction row is the detectable symptom of a
// fallback-path credit failure.
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	MarketID    *uint           `gorm:"index" json:"market_id,omitempty"`
	Type        string          `gorm:"size:20;not null;index" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount"`
	Status      string          `gorm:"size:20;not null" json:"status"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Transaction model
func (Transaction) TableName() string {
	return "transactions"
}
