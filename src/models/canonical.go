package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateKeyFormat is the single calendar format used inside canonical keys and
// leg keys. Expirations are normalized to it before any comparison.
const DateKeyFormat = "2006-01-02"

// CashKey is the canonical key of the (single) cash position.
const CashKey = "CASH"

// FormatStrike renders a strike with two fixed decimals so that values parsed
// from CSV text and values read back from the store always produce the same
// key.
func FormatStrike(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// CanonicalKeyForLegs derives the order-independent identity of a position
// from its legs. Permuting the legs never changes the result.
func CanonicalKeyForLegs(legs []PositionLeg) string {
	if len(legs) == 0 {
		return ""
	}
	if len(legs) == 1 {
		switch legs[0].LegType {
		case LegCash:
			return CashKey
		case LegStock:
			return stockKey(legs[0].Symbol)
		}
	}

	strikes := make([]decimal.Decimal, 0, len(legs))
	calls, puts, netQty := 0, 0, 0
	equalStrikes := true
	for i, leg := range legs {
		strikes = append(strikes, leg.Strike)
		netQty += leg.Quantity
		switch leg.LegType {
		case LegCall:
			calls++
		case LegPut:
			puts++
		}
		if i > 0 && !leg.Strike.Equal(legs[0].Strike) {
			equalStrikes = false
		}
	}

	var tag string
	switch {
	case calls > 0 && puts > 0 && len(legs) == 4:
		tag = "IC"
	case calls > 0 && puts > 0:
		tag = straddleTag(netQty >= 0, equalStrikes)
	case puts > 0:
		tag = string(Put)
	default:
		tag = string(Call)
	}
	return optionKey(legs[0].Symbol, legs[0].Expiration, strikes, tag)
}

// CanonicalKeyForOrder derives the canonical key of a spread order. An order
// and the position it creates always share the same key.
func CanonicalKeyForOrder(o *SpreadOrder) string {
	switch o.Kind {
	case KindCash:
		return CashKey
	case KindStock:
		return stockKey(o.Ticker)
	case KindIronCondor:
		return optionKey(o.Ticker, o.Expiration, orderLegStrikes(o), "IC")
	case KindLongStraddle:
		return optionKey(o.Ticker, o.Expiration, orderLegStrikes(o), "LSTD")
	case KindShortStraddle:
		return optionKey(o.Ticker, o.Expiration, orderLegStrikes(o), "SSTD")
	case KindLongStrangle:
		return optionKey(o.Ticker, o.Expiration, orderLegStrikes(o), "LSTG")
	case KindShortStrangle:
		return optionKey(o.Ticker, o.Expiration, orderLegStrikes(o), "SSTG")
	case KindVertical:
		strikes := []decimal.Decimal{o.LowerStrike, o.UpperStrike}
		return optionKey(o.Ticker, o.Expiration, strikes, string(o.OptionType))
	default: // naked long/short
		strikes := []decimal.Decimal{o.LowerStrike}
		return optionKey(o.Ticker, o.Expiration, strikes, string(o.OptionType))
	}
}

func stockKey(ticker string) string {
	return ticker + "|STOCK"
}

func straddleTag(long, equalStrikes bool) string {
	switch {
	case long && equalStrikes:
		return "LSTD"
	case long:
		return "LSTG"
	case equalStrikes:
		return "SSTD"
	default:
		return "SSTG"
	}
}

func orderLegStrikes(o *SpreadOrder) []decimal.Decimal {
	strikes := make([]decimal.Decimal, 0, len(o.Legs))
	for _, leg := range o.Legs {
		strikes = append(strikes, leg.Strike)
	}
	return strikes
}

// optionKey joins ticker, normalized expiration, ascending strikes and a type
// tag. Strikes are sorted before joining so leg order never affects the key.
func optionKey(ticker string, expiration time.Time, strikes []decimal.Decimal, tag string) string {
	sorted := make([]decimal.Decimal, len(strikes))
	copy(sorted, strikes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	parts := make([]string, 0, len(sorted))
	for _, s := range sorted {
		parts = append(parts, FormatStrike(s))
	}
	return strings.Join([]string{ticker, expiration.Format(DateKeyFormat), strings.Join(parts, "/"), tag}, "|")
}

// LegKey identifies a single traded option leg for closing-price resolution.
type LegKey struct {
	Ticker     string
	Expiration string // DateKeyFormat
	Strike     string // FormatStrike
	OptionType OptionType
}

// NewLegKey builds the leg key for an option transaction's contract.
func NewLegKey(ticker string, expiration time.Time, strike decimal.Decimal, optionType OptionType) LegKey {
	return LegKey{
		Ticker:     ticker,
		Expiration: expiration.Format(DateKeyFormat),
		Strike:     FormatStrike(strike),
		OptionType: optionType,
	}
}

func (k LegKey) String() string {
	return strings.Join([]string{k.Ticker, k.Expiration, k.Strike, string(k.OptionType)}, "|")
}

// ExpirationDate parses the key's normalized expiration back into a date.
func (k LegKey) ExpirationDate() (time.Time, error) {
	return time.Parse(DateKeyFormat, k.Expiration)
}

// ClosingPriceMap maps traded legs to their resolved exit price. A leg absent
// from the map is unresolved and left for manual entry downstream.
type ClosingPriceMap map[LegKey]decimal.Decimal
