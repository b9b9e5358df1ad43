package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OptionType distinguishes the two option contract types.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// TxCategory classifies an option transaction event. Exactly one category
// applies to any transaction.
type TxCategory string

const (
	CategoryOpen      TxCategory = "OPEN"
	CategoryClose     TxCategory = "CLOSE"
	CategoryExercised TxCategory = "EXERCISED"
	CategoryAssigned  TxCategory = "ASSIGNED"
)

// Side makes the long/short direction explicit instead of encoding it in the
// sign of a quantity.
type Side int

const (
	SideLong Side = iota
	SideShort
)

// Transaction represents a single option event from a brokerage export, after
// normalization by a parser.
type Transaction struct {
	ID         int64           `json:"id,omitempty"`
	Date       time.Time       `json:"date"`
	Ticker     string          `json:"ticker"`
	Expiration time.Time       `json:"expiration"`
	Strike     decimal.Decimal `json:"strike"`
	OptionType OptionType      `json:"option_type"`
	Quantity   int             `json:"quantity"` // signed: positive grows the long side
	Price      decimal.Decimal `json:"price"`    // per-unit fill price
	Amount     decimal.Decimal `json:"amount"`   // signed cash effect
	Category   TxCategory      `json:"category"`
	RowRef     string          `json:"row_ref,omitempty"` // reference to the source export row
	HashID     string          `json:"hash_id,omitempty"`
}

// SideOf returns the direction implied by the signed quantity.
func (t *Transaction) SideOf() Side {
	if t.Quantity < 0 {
		return SideShort
	}
	return SideLong
}

// ActivityBatch is the normalized output of parsing one export file: the
// option events plus the equity trades it contained.
type ActivityBatch struct {
	Transactions      []Transaction      `json:"transactions"`
	StockTransactions []StockTransaction `json:"stock_transactions"`
}

// StockTransaction represents an equity buy or sell. Besides contributing to
// stock position deltas it serves as the market-price proxy when computing
// intrinsic value for exercised or assigned legs.
type StockTransaction struct {
	ID       int64           `json:"id,omitempty"`
	Date     time.Time       `json:"date"`
	Ticker   string          `json:"ticker"`
	Quantity int             `json:"quantity"` // signed
	Price    decimal.Decimal `json:"price"`
	RowRef   string          `json:"row_ref,omitempty"`
	HashID   string          `json:"hash_id,omitempty"`
}
