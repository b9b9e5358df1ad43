package processors

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/optifolio/src/models"
)

func mustDate(s string) time.Time {
	t, err := time.Parse(models.DateKeyFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func vertical(date, ticker string, exp string, lower, upper float64, qty int, lowerPrice, upperPrice float64) models.SpreadOrder {
	return models.SpreadOrder{
		Kind:        models.KindVertical,
		Ticker:      ticker,
		Expiration:  mustDate(exp),
		Date:        mustDate(date),
		OptionType:  models.Call,
		LowerStrike: decimal.NewFromFloat(lower),
		UpperStrike: decimal.NewFromFloat(upper),
		Quantity:    qty,
		LowerPrice:  decimal.NewFromFloat(lowerPrice),
		UpperPrice:  decimal.NewFromFloat(upperPrice),
	}
}

func TestMergeCollapsesDuplicateKeys(t *testing.T) {
	orders := []models.SpreadOrder{
		vertical("2025-03-10", "TSLA", "2025-09-19", 350, 440, 10, 2.00, 1.00),
		vertical("2025-03-12", "TSLA", "2025-09-19", 350, 440, 5, 5.00, 4.00),
	}

	merged := NewSpreadMerger().Merge(orders)
	require.Len(t, merged, 1)

	order := merged[0]
	assert.Equal(t, 15, order.Quantity)
	// (10*2 + 5*5) / 15 = 3
	assert.True(t, order.LowerPrice.Equal(decimal.NewFromInt(3)), "got %s", order.LowerPrice)
	// (10*1 + 5*4) / 15 = 2
	assert.True(t, order.UpperPrice.Equal(decimal.NewFromInt(2)), "got %s", order.UpperPrice)
	// Later trade date wins.
	assert.Equal(t, mustDate("2025-03-12"), order.Date)
}

func TestMergeLeavesDistinctKeysAlone(t *testing.T) {
	orders := []models.SpreadOrder{
		vertical("2025-03-10", "TSLA", "2025-09-19", 350, 440, 2, 10.00, 4.00),
		vertical("2025-03-10", "TSLA", "2025-09-19", 300, 400, 1, 8.00, 5.00),
		vertical("2025-03-10", "MSFT", "2025-09-19", 350, 440, 2, 10.00, 4.00),
	}

	merged := NewSpreadMerger().Merge(orders)
	require.Len(t, merged, 3)
	// First-seen key order is preserved.
	assert.Equal(t, "TSLA", merged[0].Ticker)
	assert.True(t, merged[0].LowerStrike.Equal(decimal.NewFromInt(350)))
	assert.Equal(t, "MSFT", merged[2].Ticker)
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	orders := []models.SpreadOrder{
		vertical("2025-03-10", "TSLA", "2025-09-19", 350, 440, 10, 2.00, 1.00),
		vertical("2025-03-12", "TSLA", "2025-09-19", 350, 440, 5, 5.00, 4.00),
	}

	NewSpreadMerger().Merge(orders)
	assert.Equal(t, 10, orders[0].Quantity)
	assert.True(t, orders[0].LowerPrice.Equal(decimal.NewFromInt(2)))
}

func TestPreMergeCashReplacesBalance(t *testing.T) {
	orders := []models.SpreadOrder{
		{Kind: models.KindCash, Ticker: models.CashKey, LowerPrice: decimal.NewFromInt(1000)},
		{Kind: models.KindCash, Ticker: models.CashKey, LowerPrice: decimal.NewFromInt(2500)},
	}

	merged := NewSpreadMerger().Merge(orders)
	require.Len(t, merged, 1)
	assert.True(t, merged[0].LowerPrice.Equal(decimal.NewFromInt(2500)))
}

func TestMergeCondorLegPrices(t *testing.T) {
	condor := func(date string, qty int, price float64) models.SpreadOrder {
		legs := []models.SpreadLeg{
			{Strike: decimal.NewFromInt(200), OptionType: models.Put, Quantity: qty, Price: decimal.NewFromFloat(price)},
			{Strike: decimal.NewFromInt(250), OptionType: models.Put, Quantity: -qty, Price: decimal.NewFromFloat(price)},
			{Strike: decimal.NewFromInt(400), OptionType: models.Call, Quantity: -qty, Price: decimal.NewFromFloat(price)},
			{Strike: decimal.NewFromInt(450), OptionType: models.Call, Quantity: qty, Price: decimal.NewFromFloat(price)},
		}
		return models.SpreadOrder{
			Kind:       models.KindIronCondor,
			Ticker:     "TSLA",
			Expiration: mustDate("2025-09-19"),
			Date:       mustDate(date),
			Quantity:   qty,
			Legs:       legs,
		}
	}

	merged := NewSpreadMerger().Merge([]models.SpreadOrder{
		condor("2025-03-10", 1, 2.00),
		condor("2025-03-12", 2, 5.00),
	})
	require.Len(t, merged, 1)
	require.Len(t, merged[0].Legs, 4)
	assert.Equal(t, 3, merged[0].Quantity)
	// Each leg re-averages independently: (1*2 + 2*5) / 3 = 4.
	for _, leg := range merged[0].Legs {
		assert.True(t, leg.Price.Equal(decimal.NewFromInt(4)), "leg %s got %s", models.FormatStrike(leg.Strike), leg.Price)
	}
}
