package processors

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/optifolio/src/models"
	"github.com/username/optifolio/src/utils"
)

// closingPriceImpl implements the ClosingPriceResolver interface.
type closingPriceImpl struct{}

// NewClosingPriceResolver creates a new instance of ClosingPriceResolver.
func NewClosingPriceResolver() ClosingPriceResolver {
	return &closingPriceImpl{}
}

// closeAccumulator gathers the quantity-weighted average fill price across
// all close transactions for one leg.
type closeAccumulator struct {
	qty    decimal.Decimal
	amount decimal.Decimal
}

// Resolve derives a settlement value per traded leg. Three prioritized rules
// apply, first match wins: explicit close fills, exercise/assignment
// intrinsic value against a same-day stock price proxy, and a zero default
// for legs whose expiration has already passed. Legs matched by no rule stay
// absent from the map for manual entry downstream.
func (r *closingPriceImpl) Resolve(transactions []models.Transaction, stockTransactions []models.StockTransaction, now time.Time) models.ClosingPriceMap {
	prices := models.ClosingPriceMap{}

	// Rule 1: explicit closes, quantity-weighted across all matching fills.
	accs := make(map[models.LegKey]*closeAccumulator)
	for _, tx := range transactions {
		if tx.Category != models.CategoryClose {
			continue
		}
		key := legKeyFor(&tx)
		acc, ok := accs[key]
		if !ok {
			acc = &closeAccumulator{}
			accs[key] = acc
		}
		absQty := decimal.NewFromInt(int64(utils.AbsInt(tx.Quantity)))
		acc.qty = acc.qty.Add(absQty)
		acc.amount = acc.amount.Add(absQty.Mul(tx.Price))
	}
	for key, acc := range accs {
		if acc.qty.IsZero() {
			continue
		}
		prices[key] = acc.amount.Div(acc.qty)
	}

	// Rule 2: exercise/assignment intrinsic value, using the highest stock
	// fill on the same day as the market-price proxy. Without a matching
	// stock transaction the key stays unresolved.
	stockHigh := maxStockPriceByDay(stockTransactions)
	for _, tx := range transactions {
		if tx.Category != models.CategoryExercised && tx.Category != models.CategoryAssigned {
			continue
		}
		key := legKeyFor(&tx)
		if _, resolved := prices[key]; resolved {
			continue
		}
		market, ok := stockHigh[stockDayKey{tx.Date.Format(models.DateKeyFormat), tx.Ticker}]
		if !ok {
			continue
		}
		prices[key] = intrinsicValue(tx.OptionType, market, tx.Strike)
	}

	// Rule 3: legs that were opened, never resolved, and expired before the
	// current date settle at zero.
	today := utils.DateOnly(now)
	for _, tx := range transactions {
		if tx.Category != models.CategoryOpen {
			continue
		}
		key := legKeyFor(&tx)
		if _, resolved := prices[key]; resolved {
			continue
		}
		if utils.DateOnly(tx.Expiration).Before(today) {
			prices[key] = decimal.Zero
		}
	}

	return prices
}

type stockDayKey struct {
	date   string
	ticker string
}

func maxStockPriceByDay(stockTransactions []models.StockTransaction) map[stockDayKey]decimal.Decimal {
	high := make(map[stockDayKey]decimal.Decimal)
	for _, tx := range stockTransactions {
		key := stockDayKey{tx.Date.Format(models.DateKeyFormat), tx.Ticker}
		if current, ok := high[key]; !ok || tx.Price.GreaterThan(current) {
			high[key] = tx.Price
		}
	}
	return high
}

func intrinsicValue(optionType models.OptionType, market, strike decimal.Decimal) decimal.Decimal {
	var value decimal.Decimal
	if optionType == models.Call {
		value = market.Sub(strike)
	} else {
		value = strike.Sub(market)
	}
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}

func legKeyFor(tx *models.Transaction) models.LegKey {
	return models.NewLegKey(tx.Ticker, tx.Expiration, tx.Strike, tx.OptionType)
}
