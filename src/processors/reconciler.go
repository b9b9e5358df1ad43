package processors

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/optifolio/src/models"
	"github.com/username/optifolio/src/utils"
)

// reconcilerImpl wires the pipeline stages together.
type reconcilerImpl struct {
	pairer   LegPairingProcessor
	merger   SpreadMerger
	resolver ClosingPriceResolver
	position PositionMerger
}

// NewReconciler creates a Reconciler from the default pipeline stages.
func NewReconciler() Reconciler {
	return &reconcilerImpl{
		pairer:   NewLegPairingProcessor(),
		merger:   NewSpreadMerger(),
		resolver: NewClosingPriceResolver(),
		position: NewPositionMerger(),
	}
}

// Reconcile consumes one snapshot of transactions and the existing position
// set and produces the new store state. The core is a pure in-memory
// transformation: all I/O happens strictly before and after this call.
func (r *reconcilerImpl) Reconcile(input ReconcileInput) (ReconcileResult, error) {
	if _, ok := ParseMode(string(input.Mode)); !ok {
		return ReconcileResult{}, fmt.Errorf("invalid reconcile mode %q", input.Mode)
	}
	if input.Positions == nil {
		input.Positions = make(map[string]*models.Position)
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	orders := r.pairer.Pair(input.Transactions)
	orders = append(orders, r.stockOrders(input)...)
	if input.CashBalance != nil {
		orders = append(orders, models.SpreadOrder{
			Kind:       models.KindCash,
			Ticker:     models.CashKey,
			LowerPrice: *input.CashBalance,
		})
	}

	premerged := r.merger.Merge(orders)
	closingPrices := r.resolver.Resolve(input.Transactions, input.StockTransactions, now)
	outcome := r.position.Merge(input.Positions, premerged)

	return ReconcileResult{
		Updated:          outcome.Updated,
		Created:          outcome.Created,
		Skipped:          outcome.Skipped,
		ClosingPrices:    closingPrices,
		TransactionCount: len(input.Transactions) + len(input.StockTransactions),
		SpreadOrderCount: len(premerged),
	}, nil
}

// stockOrders turns stock transactions into one stock order per ticker. In
// update mode quantities are deltas accumulated from transactions newer than
// the ticker's stored high-water date; in fresh and rebuild modes they are
// absolute snapshot quantities over the full history.
func (r *reconcilerImpl) stockOrders(input ReconcileInput) []models.SpreadOrder {
	byTicker := make(map[string][]models.StockTransaction)
	var tickers []string
	for _, tx := range input.StockTransactions {
		if tx.Ticker == "" || tx.Quantity == 0 {
			continue
		}
		if _, seen := byTicker[tx.Ticker]; !seen {
			tickers = append(tickers, tx.Ticker)
		}
		byTicker[tx.Ticker] = append(byTicker[tx.Ticker], tx)
	}
	sort.Strings(tickers)

	var orders []models.SpreadOrder
	for _, ticker := range tickers {
		txs := byTicker[ticker]

		var cutoff time.Time
		if input.Mode == ModeUpdate {
			if pos, ok := input.Positions[ticker+"|STOCK"]; ok {
				cutoff = pos.LastTxnDate
			}
		}

		qty := 0
		price := decimal.Zero
		weight := 0
		var last time.Time
		for _, tx := range txs {
			if !cutoff.IsZero() && !tx.Date.After(cutoff) {
				continue
			}
			price = utils.WeightedAverage(price, weight, tx.Price, tx.Quantity)
			weight += utils.AbsInt(tx.Quantity)
			qty += tx.Quantity
			last = utils.LaterOf(last, tx.Date)
		}
		if weight == 0 {
			continue
		}

		orders = append(orders, models.SpreadOrder{
			Kind:       models.KindStock,
			Ticker:     ticker,
			Date:       last,
			Quantity:   qty,
			LowerPrice: price,
		})
	}
	return orders
}
