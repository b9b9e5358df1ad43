package services

import (
	"context"
	"errors"
	"io"

	"github.com/shopspring/decimal"

	"github.com/username/optifolio/src/models"
	"github.com/username/optifolio/src/processors"
)

var (
	// ErrQuoteNotFound is returned when the upstream quote source has no data
	// for the requested symbol.
	ErrQuoteNotFound = errors.New("quote not found")

	// ErrNoTransactions is returned when a reconciliation is requested for a
	// user with no stored transaction history.
	ErrNoTransactions = errors.New("no transactions to reconcile")
)

// ImportResult summarizes one upload plus the reconciliation it triggered.
type ImportResult struct {
	RowsParsed      int               `json:"rows_parsed"`
	RowsInserted    int               `json:"rows_inserted"`
	RowsDuplicate   int               `json:"rows_duplicate"`
	Mode            processors.Mode   `json:"mode"`
	PositionsNew    int               `json:"positions_new"`
	PositionsMerged int               `json:"positions_merged"`
	OrdersSkipped   int               `json:"orders_skipped"`
	ClosingPrices   map[string]string `json:"closing_prices,omitempty"`
}

// ImportService ingests an activity export and reconciles it into the
// position store.
type ImportService interface {
	Import(ctx context.Context, userID int64, source string, file io.Reader, mode processors.Mode) (*ImportResult, error)
	Reconcile(ctx context.Context, userID int64, mode processors.Mode) (*ImportResult, error)
	LastResult(userID int64) (*ImportResult, bool)
}

// PositionStore persists positions keyed by canonical key, per user.
type PositionStore interface {
	Load(ctx context.Context, userID int64) (map[string]*models.Position, error)
	Save(ctx context.Context, userID int64, updated, created []*models.Position) error
	Wipe(ctx context.Context, userID int64) error
}

// TransactionStore persists the full transaction history a reconciliation
// replays.
type TransactionStore interface {
	InsertBatch(ctx context.Context, userID int64, batch *models.ActivityBatch) (inserted, duplicate int, err error)
	LoadAll(ctx context.Context, userID int64) (*models.ActivityBatch, error)
	DeleteAll(ctx context.Context, userID int64) error
}

// Quote is the latest market price for one symbol.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency,omitempty"`
	FromCache bool            `json:"from_cache"`
}

// QuoteService looks up current prices, typically for marking open positions
// to market.
type QuoteService interface {
	Lookup(ctx context.Context, symbol string) (*Quote, error)
}
