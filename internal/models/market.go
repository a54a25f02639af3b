package models

import (
	"time"
)

// Market status values
const (
	MarketStatusPending  = "pending"
	MarketStatusResolved = "resolved"
)

// Market outcome values
const (
	OutcomeYes = "YES"
	OutcomeNo  = "NO"
)

// Asset type hints for the price oracle. Empty means "classify from the
// symbol shape", which defaults to equity.
const (
	AssetTypeCrypto = "crypto"
	AssetTypeEquity = "equity"
)

// Market represents a single YES/NO prediction question tied to one asset.
//
// Lifecycle: created with status=pending; exactly one resolution pass
// transitions it to resolved. Outcome, ResolvedPrice, ResolvedAt and
// OutcomeHash are written together with the status flip, never separately.
type Market struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Question         string     `gorm:"size:500;not null" json:"question"`
	AssetSymbol      string     `gorm:"size:50;index" json:"asset_symbol"`
	AssetType        string     `gorm:"size:20" json:"asset_type,omitempty"`
	ClosesAt         time.Time  `gorm:"not null;index" json:"closes_at"`
	Status           string     `gorm:"size:20;default:pending;index" json:"status"`
	Outcome          string     `gorm:"size:10" json:"outcome,omitempty"`
	ResolvedPrice    *float64   `json:"resolved_price,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	OutcomeHash      *string    `gorm:"size:64" json:"outcome_hash,omitempty"`
	ResolutionReport *string    `gorm:"type:text" json:"resolution_report,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// TableName specifies the table name for Market model
func (Market) TableName() string {
	return "markets"
}
