package processors

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/optifolio/src/models"
)

func optionEvent(category models.TxCategory, date, ticker, exp string, strike float64, optType models.OptionType, qty int, price float64) models.Transaction {
	return models.Transaction{
		Date:       mustDate(date),
		Ticker:     ticker,
		Expiration: mustDate(exp),
		Strike:     decimal.NewFromFloat(strike),
		OptionType: optType,
		Quantity:   qty,
		Price:      decimal.NewFromFloat(price),
		Category:   category,
	}
}

func stockFill(date, ticker string, qty int, price float64) models.StockTransaction {
	return models.StockTransaction{
		Date:     mustDate(date),
		Ticker:   ticker,
		Quantity: qty,
		Price:    decimal.NewFromFloat(price),
	}
}

func TestResolveWeightsCloseFills(t *testing.T) {
	txs := []models.Transaction{
		optionEvent(models.CategoryClose, "2025-04-01", "TSLA", "2025-09-19", 350, models.Call, -1, 1.00),
		optionEvent(models.CategoryClose, "2025-04-02", "TSLA", "2025-09-19", 350, models.Call, -3, 2.00),
	}

	prices := NewClosingPriceResolver().Resolve(txs, nil, mustDate("2025-05-01"))
	key := models.NewLegKey("TSLA", mustDate("2025-09-19"), decimal.NewFromInt(350), models.Call)
	require.Contains(t, prices, key)
	// (1*1 + 3*2) / 4 = 1.75
	assert.True(t, prices[key].Equal(decimal.NewFromFloat(1.75)), "got %s", prices[key])
}

func TestResolveIntrinsicValueForAssignment(t *testing.T) {
	txs := []models.Transaction{
		optionEvent(models.CategoryAssigned, "2025-04-01", "TSLA", "2025-04-01", 250, models.Put, -1, 0),
		optionEvent(models.CategoryExercised, "2025-04-01", "TSLA", "2025-04-01", 180, models.Call, 1, 0),
	}
	stocks := []models.StockTransaction{
		stockFill("2025-04-01", "TSLA", 100, 195.00),
		stockFill("2025-04-01", "TSLA", -50, 200.00), // highest same-day fill wins
	}

	prices := NewClosingPriceResolver().Resolve(txs, stocks, mustDate("2025-05-01"))

	putKey := models.NewLegKey("TSLA", mustDate("2025-04-01"), decimal.NewFromInt(250), models.Put)
	require.Contains(t, prices, putKey)
	assert.True(t, prices[putKey].Equal(decimal.NewFromInt(50)), "got %s", prices[putKey]) // 250 - 200

	callKey := models.NewLegKey("TSLA", mustDate("2025-04-01"), decimal.NewFromInt(180), models.Call)
	require.Contains(t, prices, callKey)
	assert.True(t, prices[callKey].Equal(decimal.NewFromInt(20)), "got %s", prices[callKey]) // 200 - 180
}

func TestResolveIntrinsicValueFloorsAtZero(t *testing.T) {
	txs := []models.Transaction{
		optionEvent(models.CategoryExercised, "2025-04-01", "TSLA", "2025-04-01", 300, models.Call, 1, 0),
	}
	stocks := []models.StockTransaction{stockFill("2025-04-01", "TSLA", 100, 200.00)}

	prices := NewClosingPriceResolver().Resolve(txs, stocks, mustDate("2025-05-01"))
	key := models.NewLegKey("TSLA", mustDate("2025-04-01"), decimal.NewFromInt(300), models.Call)
	require.Contains(t, prices, key)
	assert.True(t, prices[key].IsZero())
}

func TestResolveAssignmentWithoutStockProxyStaysUnresolved(t *testing.T) {
	txs := []models.Transaction{
		optionEvent(models.CategoryAssigned, "2025-04-01", "TSLA", "2025-04-01", 250, models.Put, -1, 0),
	}

	prices := NewClosingPriceResolver().Resolve(txs, nil, mustDate("2025-05-01"))
	assert.Empty(t, prices)
}

func TestResolveExpiredOpenDefaultsToZero(t *testing.T) {
	txs := []models.Transaction{
		optionEvent(models.CategoryOpen, "2025-03-01", "TSLA", "2025-04-18", 350, models.Call, 1, 10.00),
		optionEvent(models.CategoryOpen, "2025-03-01", "TSLA", "2025-12-19", 350, models.Call, 1, 12.00),
	}

	prices := NewClosingPriceResolver().Resolve(txs, nil, mustDate("2025-05-01"))

	expired := models.NewLegKey("TSLA", mustDate("2025-04-18"), decimal.NewFromInt(350), models.Call)
	require.Contains(t, prices, expired)
	assert.True(t, prices[expired].IsZero())

	// A leg that has not expired yet stays absent for manual entry.
	live := models.NewLegKey("TSLA", mustDate("2025-12-19"), decimal.NewFromInt(350), models.Call)
	assert.NotContains(t, prices, live)
}

func TestResolveCloseFillBeatsIntrinsicValue(t *testing.T) {
	// The same leg both closes and gets exercised on the same day. The close
	// fill must win even though the stock proxy would put intrinsic value far
	// higher.
	txs := []models.Transaction{
		optionEvent(models.CategoryClose, "2025-04-01", "TSLA", "2025-04-18", 350, models.Call, -1, 6.50),
		optionEvent(models.CategoryExercised, "2025-04-01", "TSLA", "2025-04-18", 350, models.Call, 1, 0),
	}
	stocks := []models.StockTransaction{stockFill("2025-04-01", "TSLA", 100, 500.00)}

	prices := NewClosingPriceResolver().Resolve(txs, stocks, mustDate("2025-05-01"))
	key := models.NewLegKey("TSLA", mustDate("2025-04-18"), decimal.NewFromInt(350), models.Call)
	require.Contains(t, prices, key)
	assert.True(t, prices[key].Equal(decimal.NewFromFloat(6.50)), "got %s", prices[key])
}

func TestResolveCloseFillBeatsExpirationDefault(t *testing.T) {
	txs := []models.Transaction{
		optionEvent(models.CategoryOpen, "2025-03-01", "TSLA", "2025-04-18", 350, models.Call, 1, 10.00),
		optionEvent(models.CategoryClose, "2025-04-01", "TSLA", "2025-04-18", 350, models.Call, -1, 6.50),
	}

	prices := NewClosingPriceResolver().Resolve(txs, nil, mustDate("2025-05-01"))
	key := models.NewLegKey("TSLA", mustDate("2025-04-18"), decimal.NewFromInt(350), models.Call)
	require.Contains(t, prices, key)
	assert.True(t, prices[key].Equal(decimal.NewFromFloat(6.50)), "got %s", prices[key])
}
