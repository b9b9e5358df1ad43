package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/username/optifolio/src/models"
	"github.com/username/optifolio/src/utils"
)

// sqliteTransactionStore keeps the full activity history. The UNIQUE
// (user_id, hash_id) index makes re-imports of overlapping exports no-ops.
type sqliteTransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) TransactionStore {
	return &sqliteTransactionStore{db: db}
}

func (s *sqliteTransactionStore) InsertBatch(ctx context.Context, userID int64, batch *models.ActivityBatch) (int, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, duplicate := 0, 0
	for _, t := range batch.Transactions {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO option_transactions
			 (user_id, date, ticker, expiration, strike, option_type, quantity, price, amount, category, row_ref, hash_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, utils.FormatDate(t.Date), t.Ticker, utils.FormatDate(t.Expiration),
			t.Strike.String(), string(t.OptionType), t.Quantity, t.Price.String(),
			t.Amount.String(), string(t.Category), t.RowRef, t.HashID)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to insert option transaction %s: %w", t.RowRef, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, err
		}
		if n == 0 {
			duplicate++
		} else {
			inserted++
		}
	}

	for _, t := range batch.StockTransactions {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO stock_transactions
			 (user_id, date, ticker, quantity, price, row_ref, hash_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			userID, utils.FormatDate(t.Date), t.Ticker, t.Quantity, t.Price.String(), t.RowRef, t.HashID)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to insert stock transaction %s: %w", t.RowRef, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, err
		}
		if n == 0 {
			duplicate++
		} else {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction inserts: %w", err)
	}
	return inserted, duplicate, nil
}

func (s *sqliteTransactionStore) LoadAll(ctx context.Context, userID int64) (*models.ActivityBatch, error) {
	batch := &models.ActivityBatch{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, ticker, expiration, strike, option_type, quantity, price, amount, category, row_ref, hash_id
		 FROM option_transactions WHERE user_id = ? ORDER BY date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query option transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t models.Transaction
		var date, expiration, strike, price, amount, optionType, category string
		var rowRef, hashID sql.NullString
		if err := rows.Scan(&t.ID, &date, &t.Ticker, &expiration, &strike, &optionType,
			&t.Quantity, &price, &amount, &category, &rowRef, &hashID); err != nil {
			return nil, fmt.Errorf("failed to scan option transaction row: %w", err)
		}
		t.Date = utils.ParseDate(date)
		t.Expiration = utils.ParseDate(expiration)
		t.OptionType = models.OptionType(optionType)
		t.Category = models.TxCategory(category)
		t.RowRef = rowRef.String
		t.HashID = hashID.String
		if t.Strike, err = decimal.NewFromString(strike); err != nil {
			return nil, fmt.Errorf("stored strike %q is not a decimal: %w", strike, err)
		}
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("stored price %q is not a decimal: %w", price, err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("stored amount %q is not a decimal: %w", amount, err)
		}
		batch.Transactions = append(batch.Transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating option transaction rows: %w", err)
	}

	stockRows, err := s.db.QueryContext(ctx,
		`SELECT id, date, ticker, quantity, price, row_ref, hash_id
		 FROM stock_transactions WHERE user_id = ? ORDER BY date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock transactions: %w", err)
	}
	defer stockRows.Close()

	for stockRows.Next() {
		var t models.StockTransaction
		var date, price string
		var rowRef, hashID sql.NullString
		if err := stockRows.Scan(&t.ID, &date, &t.Ticker, &t.Quantity, &price, &rowRef, &hashID); err != nil {
			return nil, fmt.Errorf("failed to scan stock transaction row: %w", err)
		}
		t.Date = utils.ParseDate(date)
		t.RowRef = rowRef.String
		t.HashID = hashID.String
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("stored price %q is not a decimal: %w", price, err)
		}
		batch.StockTransactions = append(batch.StockTransactions, t)
	}
	if err := stockRows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating stock transaction rows: %w", err)
	}
	return batch, nil
}

func (s *sqliteTransactionStore) DeleteAll(ctx context.Context, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM option_transactions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete option transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stock_transactions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete stock transactions: %w", err)
	}
	return tx.Commit()
}
