package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpreadKind tags the shape of a SpreadOrder.
type SpreadKind string

const (
	KindVertical      SpreadKind = "vertical"
	KindIronCondor    SpreadKind = "iron-condor"
	KindLongStraddle  SpreadKind = "long-straddle"
	KindShortStraddle SpreadKind = "short-straddle"
	KindLongStrangle  SpreadKind = "long-strangle"
	KindShortStrangle SpreadKind = "short-strangle"
	KindNakedLong     SpreadKind = "naked-long"
	KindNakedShort    SpreadKind = "naked-short"
	KindStock         SpreadKind = "stock"
	KindCash          SpreadKind = "cash"
)

// SpreadLeg is one leg of a multi-leg order (iron condor, straddle, strangle).
type SpreadLeg struct {
	Strike     decimal.Decimal `json:"strike"`
	OptionType OptionType      `json:"option_type"`
	Quantity   int             `json:"quantity"` // signed
	Price      decimal.Decimal `json:"price"`
	RowRef     string          `json:"row_ref,omitempty"`
}

// SpreadOrder is the intermediate result of pairing opening transactions into
// orders. It is created and discarded within a single reconciliation run,
// never persisted.
//
// Two-leg and single-leg kinds (vertical, naked, stock, cash) use the flat
// Lower*/Upper* shape; for naked, stock and cash orders only the Lower fields
// are meaningful and LowerPrice carries the entry price. Four-leg and
// mixed-type kinds carry an ordered Legs sequence instead.
type SpreadOrder struct {
	Kind       SpreadKind `json:"kind"`
	Ticker     string     `json:"ticker"`
	Expiration time.Time  `json:"expiration,omitempty"`
	Date       time.Time  `json:"date"`

	LowerStrike decimal.Decimal `json:"lower_strike,omitempty"`
	UpperStrike decimal.Decimal `json:"upper_strike,omitempty"`
	OptionType  OptionType      `json:"option_type,omitempty"`
	Quantity    int             `json:"quantity"` // dominant side magnitude; signed for naked/stock
	LowerPrice  decimal.Decimal `json:"lower_price,omitempty"`
	UpperPrice  decimal.Decimal `json:"upper_price,omitempty"`
	LowerRef    string          `json:"lower_ref,omitempty"`
	UpperRef    string          `json:"upper_ref,omitempty"`

	Legs []SpreadLeg `json:"legs,omitempty"`
}

// HasLegs reports whether the order uses the ordered-legs shape.
func (o *SpreadOrder) HasLegs() bool { return len(o.Legs) > 0 }

// SignedQuantity sums the signed quantities of every leg the order
// represents. Verticals and condors net to zero; straddles and strangles net
// to twice the paired quantity.
func (o *SpreadOrder) SignedQuantity() int {
	if o.HasLegs() {
		total := 0
		for _, leg := range o.Legs {
			total += leg.Quantity
		}
		return total
	}
	switch o.Kind {
	case KindVertical:
		return 0 // long leg +q and short leg -q
	case KindCash:
		return 0
	default:
		return o.Quantity
	}
}

// Clone returns a deep copy so that merge steps never alias leg slices.
func (o *SpreadOrder) Clone() *SpreadOrder {
	dup := *o
	if len(o.Legs) > 0 {
		dup.Legs = make([]SpreadLeg, len(o.Legs))
		copy(dup.Legs, o.Legs)
	}
	return &dup
}
