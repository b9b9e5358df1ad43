package processors

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/optifolio/src/models"
)

func TestReconcileRejectsInvalidMode(t *testing.T) {
	_, err := NewReconciler().Reconcile(ReconcileInput{Mode: "bogus"})
	require.Error(t, err)
}

func TestReconcileVerticalEndToEnd(t *testing.T) {
	txs := []models.Transaction{
		openTx(mustDate("2025-03-10"), "TSLA", mustDate("2025-09-19"), 350, models.Call, 2, 10.00),
		openTx(mustDate("2025-03-10"), "TSLA", mustDate("2025-09-19"), 440, models.Call, -2, 4.00),
	}

	positions := map[string]*models.Position{}
	result, err := NewReconciler().Reconcile(ReconcileInput{
		Transactions: txs,
		Positions:    positions,
		Mode:         ModeFresh,
		Now:          mustDate("2025-05-01"),
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Equal(t, 1, result.SpreadOrderCount)
	assert.Equal(t, 2, result.TransactionCount)

	pos := result.Created[0]
	assert.Equal(t, "TSLA|2025-09-19|350.00/440.00|CALL", pos.CanonicalKey)
	require.Len(t, pos.Legs, 2)
	assert.Equal(t, 2, pos.Legs[0].Quantity)
	assert.Equal(t, -2, pos.Legs[1].Quantity)

	// Replaying the same history produces no change, only a skip.
	again, err := NewReconciler().Reconcile(ReconcileInput{
		Transactions: txs,
		Positions:    positions,
		Mode:         ModeUpdate,
		Now:          mustDate("2025-05-01"),
	})
	require.NoError(t, err)
	assert.Empty(t, again.Created)
	assert.Empty(t, again.Updated)
	assert.Equal(t, 1, again.Skipped)
	assert.Equal(t, 2, positions[pos.CanonicalKey].Legs[0].Quantity)
}

func TestReconcileIronCondorEndToEnd(t *testing.T) {
	txs := []models.Transaction{
		openTx(mustDate("2025-03-10"), "TSLA", mustDate("2025-09-19"), 200, models.Put, 1, 0.90),
		openTx(mustDate("2025-03-10"), "TSLA", mustDate("2025-09-19"), 250, models.Put, -1, 2.10),
		openTx(mustDate("2025-03-10"), "TSLA", mustDate("2025-09-19"), 400, models.Call, -1, 2.50),
		openTx(mustDate("2025-03-10"), "TSLA", mustDate("2025-09-19"), 450, models.Call, 1, 1.10),
	}

	result, err := NewReconciler().Reconcile(ReconcileInput{
		Transactions: txs,
		Mode:         ModeFresh,
		Now:          mustDate("2025-05-01"),
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)

	pos := result.Created[0]
	assert.Equal(t, "TSLA|2025-09-19|200.00/250.00/400.00/450.00|IC", pos.CanonicalKey)
	require.Len(t, pos.Legs, 4)
	net := 0
	for _, leg := range pos.Legs {
		net += leg.Quantity
	}
	assert.Zero(t, net)
}

func TestReconcileStockUpdateModeUsesCutoff(t *testing.T) {
	stockTxs := []models.StockTransaction{
		stockFill("2025-03-01", "TSLA", 100, 200.00), // already applied
		stockFill("2025-03-20", "TSLA", -40, 220.00), // new since last run
	}

	existing := &models.Position{
		CanonicalKey: "TSLA|STOCK",
		Legs: []models.PositionLeg{{
			Symbol:   "TSLA",
			LegType:  models.LegStock,
			Quantity: 100,
			AvgPrice: decimal.NewFromInt(200),
		}},
		LastTxnDate: mustDate("2025-03-01"),
	}
	positions := map[string]*models.Position{"TSLA|STOCK": existing}

	result, err := NewReconciler().Reconcile(ReconcileInput{
		StockTransactions: stockTxs,
		Positions:         positions,
		Mode:              ModeUpdate,
		Now:               mustDate("2025-05-01"),
	})
	require.NoError(t, err)
	require.Len(t, result.Updated, 1)
	assert.Equal(t, 60, existing.Legs[0].Quantity)
	assert.Equal(t, mustDate("2025-03-20"), existing.LastTxnDate)
}

func TestReconcileStockFreshModeSumsFullHistory(t *testing.T) {
	stockTxs := []models.StockTransaction{
		stockFill("2025-03-01", "TSLA", 100, 200.00),
		stockFill("2025-03-20", "TSLA", -40, 220.00),
	}

	result, err := NewReconciler().Reconcile(ReconcileInput{
		StockTransactions: stockTxs,
		Mode:              ModeFresh,
		Now:               mustDate("2025-05-01"),
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Equal(t, "TSLA|STOCK", result.Created[0].CanonicalKey)
	assert.Equal(t, 60, result.Created[0].Legs[0].Quantity)
}

func TestReconcileCashBalance(t *testing.T) {
	balance := decimal.NewFromFloat(12345.67)
	result, err := NewReconciler().Reconcile(ReconcileInput{
		Transactions: []models.Transaction{
			openTx(mustDate("2025-03-10"), "TSLA", mustDate("2025-09-19"), 350, models.Call, 1, 10.00),
		},
		CashBalance: &balance,
		Mode:        ModeFresh,
		Now:         mustDate("2025-05-01"),
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 2)

	byKey := map[string]*models.Position{}
	for _, pos := range result.Created {
		byKey[pos.CanonicalKey] = pos
	}
	cash, ok := byKey[models.CashKey]
	require.True(t, ok)
	assert.True(t, cash.Legs[0].AvgPrice.Equal(balance))
}

func TestReconcileProducesClosingPrices(t *testing.T) {
	txs := []models.Transaction{
		openTx(mustDate("2025-03-10"), "TSLA", mustDate("2025-04-18"), 350, models.Call, 1, 10.00),
		optionEvent(models.CategoryClose, "2025-04-01", "TSLA", "2025-04-18", 350, models.Call, -1, 6.50),
	}

	result, err := NewReconciler().Reconcile(ReconcileInput{
		Transactions: txs,
		Mode:         ModeFresh,
		Now:          mustDate("2025-05-01"),
	})
	require.NoError(t, err)

	key := models.NewLegKey("TSLA", mustDate("2025-04-18"), decimal.NewFromInt(350), models.Call)
	require.Contains(t, result.ClosingPrices, key)
	assert.True(t, result.ClosingPrices[key].Equal(decimal.NewFromFloat(6.50)))
}
