package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/optifolio/src/models"
	"github.com/username/optifolio/src/services"
)

type fakeTxStore struct {
	batch *models.ActivityBatch
}

var _ services.TransactionStore = (*fakeTxStore)(nil)

func (f *fakeTxStore) InsertBatch(ctx context.Context, userID int64, batch *models.ActivityBatch) (int, int, error) {
	return 0, 0, nil
}

func (f *fakeTxStore) LoadAll(ctx context.Context, userID int64) (*models.ActivityBatch, error) {
	return f.batch, nil
}

func (f *fakeTxStore) DeleteAll(ctx context.Context, userID int64) error {
	return nil
}

func authedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(context.WithValue(req.Context(), UserIDKey, int64(1)))
}

func TestExportTransactionsCSV(t *testing.T) {
	store := &fakeTxStore{batch: &models.ActivityBatch{
		Transactions: []models.Transaction{{
			Date:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			Ticker:     "TSLA",
			Expiration: time.Date(2025, 9, 19, 0, 0, 0, 0, time.UTC),
			Strike:     decimal.NewFromInt(440),
			OptionType: models.Call,
			Quantity:   -2,
			Price:      decimal.NewFromInt(4),
			Amount:     decimal.NewFromInt(800),
			Category:   models.CategoryOpen,
		}},
		StockTransactions: []models.StockTransaction{{
			Date:     time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC),
			Ticker:   "=EVIL",
			Quantity: -40,
			Price:    decimal.NewFromInt(201),
		}},
	}}
	handler := NewTransactionHandler(store, nil)

	rec := httptest.NewRecorder()
	handler.ExportTransactions(rec, authedRequest(http.MethodGet, "/api/transactions/export"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Action,Ticker,Expiration,Strike,Type,Quantity,Price,Amount", lines[0])
	// Direction lives in the action word; the quantity column is unsigned.
	assert.Equal(t, "2025-03-10,SELL_TO_OPEN,TSLA,2025-09-19,440,CALL,2,4,800", lines[1])
	// A ticker starting with a formula character gets the leading quote guard.
	assert.Contains(t, lines[2], "SELL,'=EVIL")
	assert.Contains(t, lines[2], ",40,201,")
}

func TestExportTransactionsRequiresAuth(t *testing.T) {
	handler := NewTransactionHandler(&fakeTxStore{batch: &models.ActivityBatch{}}, nil)

	rec := httptest.NewRecorder()
	handler.ExportTransactions(rec, httptest.NewRequest(http.MethodGet, "/api/transactions/export", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
