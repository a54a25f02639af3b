package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// ResolutionReport captures everything that went into resolving a market:
// the consensus price, the individual source readings, the reference
// prices and the classified outcome. It is persisted on the market row and
// its content hash is published for external verification.
type ResolutionReport struct {
	MarketID   uint               `json:"market_id"`
	Asset      string             `json:"asset"`
	Question   string             `json:"question"`
	FinalPrice float64            `json:"final_price"`
	Sources    map[string]float64 `json:"sources"`
	Open       *float64           `json:"open,omitempty"`
	PrevClose  *float64           `json:"prev_close,omitempty"`
	ResolvedAt time.Time          `json:"resolved_at"`
	Outcome    string             `json:"outcome"`
	Rule       string             `json:"rule"`
	Confidence string             `json:"confidence"`
}

// Serialize returns the canonical JSON encoding of the report. Struct
// fields keep declaration order and map keys are sorted by encoding/json,
// so the same report always serializes to the same bytes.
func (r *ResolutionReport) Serialize() ([]byte, error) {
	return json.Marshal(r)
}

// Hash returns the hex SHA-256 digest of the serialized report.
func (r *ResolutionReport) Hash() (string, error) {
	data, err := r.Serialize()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
