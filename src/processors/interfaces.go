package processors

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/optifolio/src/models"
)

// LegPairingProcessor groups opening option transactions and pairs them into
// spread orders.
type LegPairingProcessor interface {
	Pair(transactions []models.Transaction) []models.SpreadOrder
}

// SpreadMerger collapses spread orders sharing a canonical key into one.
type SpreadMerger interface {
	Merge(orders []models.SpreadOrder) []models.SpreadOrder
}

// ClosingPriceResolver derives a settlement value per traded leg from close,
// exercise/assignment or expiration events.
type ClosingPriceResolver interface {
	Resolve(transactions []models.Transaction, stockTransactions []models.StockTransaction, now time.Time) models.ClosingPriceMap
}

// MergeOutcome reports what the position merger did with one batch of orders.
type MergeOutcome struct {
	Updated []*models.Position
	Created []*models.Position
	Skipped int
}

// PositionMerger reconciles pre-merged spread orders against the persisted
// position set, keyed by canonical key.
type PositionMerger interface {
	Merge(existing map[string]*models.Position, orders []models.SpreadOrder) MergeOutcome
}

// Mode controls how stock quantities are interpreted during a reconciliation
// run: as absolute snapshot values (fresh, rebuild) or as deltas accumulated
// from transactions newer than each ticker's high-water date (update).
type Mode string

const (
	ModeFresh   Mode = "fresh"
	ModeUpdate  Mode = "update"
	ModeRebuild Mode = "rebuild"
)

// ParseMode validates a mode string supplied by a caller.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeFresh, ModeUpdate, ModeRebuild:
		return Mode(s), true
	}
	return "", false
}

// ReconcileInput is one snapshot of transactions plus the existing position
// set. The Positions map is mutated in place: newly created positions are
// added under their canonical key.
type ReconcileInput struct {
	Transactions      []models.Transaction
	StockTransactions []models.StockTransaction
	Positions         map[string]*models.Position
	Mode              Mode
	CashBalance       *decimal.Decimal // optional; emits a cash order when set
	Now               time.Time
}

// ReconcileResult is the outcome of one run, including the operator-facing
// counts callers are expected to report.
type ReconcileResult struct {
	Updated       []*models.Position
	Created       []*models.Position
	Skipped       int
	ClosingPrices models.ClosingPriceMap

	TransactionCount int
	SpreadOrderCount int
}

// Reconciler runs the full pipeline: pairing, stock/cash order construction,
// pre-merge, closing-price resolution and the position merge.
type Reconciler interface {
	Reconcile(input ReconcileInput) (ReconcileResult, error)
}
