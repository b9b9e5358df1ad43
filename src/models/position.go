package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LegType identifies what a position leg holds.
type LegType string

const (
	LegCall  LegType = "CALL"
	LegPut   LegType = "PUT"
	LegStock LegType = "STOCK"
	LegCash  LegType = "CASH"
)

// PositionLeg is one line of a persisted position. Option legs carry an
// expiration and strike; stock and cash legs do not.
type PositionLeg struct {
	Symbol     string          `json:"symbol"`
	Expiration time.Time       `json:"expiration,omitempty"`
	Strike     decimal.Decimal `json:"strike,omitempty"`
	LegType    LegType         `json:"leg_type"`
	Quantity   int             `json:"quantity"` // signed; short legs stay negative
	AvgPrice   decimal.Decimal `json:"avg_price"`
	SourceRef  string          `json:"source_ref,omitempty"`
}

// IsOption reports whether the leg is an option contract.
func (l *PositionLeg) IsOption() bool {
	return l.LegType == LegCall || l.LegType == LegPut
}

// Position is the persisted, cross-run entity of the position store. All legs
// of a position share the same canonical key; stock and cash positions have
// exactly one leg.
type Position struct {
	ID           int64         `json:"id,omitempty"`
	CanonicalKey string        `json:"canonical_key"`
	Legs         []PositionLeg `json:"legs"`
	LastTxnDate  time.Time     `json:"last_txn_date"` // high-water mark for the dedup gate
	GroupLabel   string        `json:"group_label,omitempty"`
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	dup := *p
	dup.Legs = make([]PositionLeg, len(p.Legs))
	copy(dup.Legs, p.Legs)
	return &dup
}
