package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/username/optifolio/src/logger"
	"github.com/username/optifolio/src/models"
	"github.com/username/optifolio/src/utils"
)

// sqlitePositionStore stores positions and their legs across two tables; legs
// are replaced wholesale whenever their position is written.
type sqlitePositionStore struct {
	db *sql.DB
}

func NewPositionStore(db *sql.DB) PositionStore {
	return &sqlitePositionStore{db: db}
}

func (s *sqlitePositionStore) Load(ctx context.Context, userID int64) (map[string]*models.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, canonical_key, group_label, last_txn_date FROM positions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := make(map[string]*models.Position)
	byID := make(map[int64]*models.Position)
	for rows.Next() {
		var p models.Position
		var groupLabel, lastTxnDate sql.NullString
		if err := rows.Scan(&p.ID, &p.CanonicalKey, &groupLabel, &lastTxnDate); err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}
		p.GroupLabel = groupLabel.String
		if lastTxnDate.Valid && lastTxnDate.String != "" {
			p.LastTxnDate = utils.ParseDate(lastTxnDate.String)
		}
		positions[p.CanonicalKey] = &p
		byID[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating position rows: %w", err)
	}

	legRows, err := s.db.QueryContext(ctx,
		`SELECT pl.position_id, pl.symbol, pl.expiration, pl.strike, pl.leg_type, pl.quantity, pl.avg_price, pl.source_ref
		 FROM position_legs pl
		 JOIN positions p ON p.id = pl.position_id
		 WHERE p.user_id = ?
		 ORDER BY pl.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query position legs: %w", err)
	}
	defer legRows.Close()

	for legRows.Next() {
		var positionID int64
		var leg models.PositionLeg
		var expiration, strike, avgPrice, sourceRef sql.NullString
		var legType string
		if err := legRows.Scan(&positionID, &leg.Symbol, &expiration, &strike, &legType, &leg.Quantity, &avgPrice, &sourceRef); err != nil {
			return nil, fmt.Errorf("failed to scan position leg row: %w", err)
		}
		leg.LegType = models.LegType(legType)
		leg.SourceRef = sourceRef.String
		if expiration.Valid && expiration.String != "" {
			leg.Expiration = utils.ParseDate(expiration.String)
		}
		if strike.Valid && strike.String != "" {
			d, err := decimal.NewFromString(strike.String)
			if err != nil {
				return nil, fmt.Errorf("stored strike %q is not a decimal: %w", strike.String, err)
			}
			leg.Strike = d
		}
		if avgPrice.Valid && avgPrice.String != "" {
			d, err := decimal.NewFromString(avgPrice.String)
			if err != nil {
				return nil, fmt.Errorf("stored avg price %q is not a decimal: %w", avgPrice.String, err)
			}
			leg.AvgPrice = d
		}
		pos, ok := byID[positionID]
		if !ok {
			if logger.L != nil {
				logger.L.Warn("Orphan position leg, skipping", "positionID", positionID)
			}
			continue
		}
		pos.Legs = append(pos.Legs, leg)
	}
	if err := legRows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating position leg rows: %w", err)
	}
	return positions, nil
}

// Save writes updated and created positions in one SQL transaction so a
// partially persisted reconciliation never becomes visible.
func (s *sqlitePositionStore) Save(ctx context.Context, userID int64, updated, created []*models.Position) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range created {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO positions (user_id, canonical_key, group_label, last_txn_date) VALUES (?, ?, ?, ?)`,
			userID, p.CanonicalKey, p.GroupLabel, utils.FormatDate(p.LastTxnDate))
		if err != nil {
			return fmt.Errorf("failed to insert position %s: %w", p.CanonicalKey, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read inserted position id: %w", err)
		}
		p.ID = id
		if err := insertLegs(ctx, tx, id, p.Legs); err != nil {
			return err
		}
	}

	for _, p := range updated {
		if p.ID == 0 {
			// Created during this run and already handled above.
			continue
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE positions SET group_label = ?, last_txn_date = ? WHERE id = ? AND user_id = ?`,
			p.GroupLabel, utils.FormatDate(p.LastTxnDate), p.ID, userID)
		if err != nil {
			return fmt.Errorf("failed to update position %s: %w", p.CanonicalKey, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM position_legs WHERE position_id = ?`, p.ID); err != nil {
			return fmt.Errorf("failed to clear legs of position %s: %w", p.CanonicalKey, err)
		}
		if err := insertLegs(ctx, tx, p.ID, p.Legs); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *sqlitePositionStore) Wipe(ctx context.Context, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM position_legs WHERE position_id IN (SELECT id FROM positions WHERE user_id = ?)`, userID); err != nil {
		return fmt.Errorf("failed to delete position legs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete positions: %w", err)
	}
	return tx.Commit()
}

func insertLegs(ctx context.Context, tx *sql.Tx, positionID int64, legs []models.PositionLeg) error {
	for _, leg := range legs {
		var expiration string
		if !leg.Expiration.IsZero() {
			expiration = utils.FormatDate(leg.Expiration)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO position_legs (position_id, symbol, expiration, strike, leg_type, quantity, avg_price, source_ref)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			positionID, leg.Symbol, expiration, leg.Strike.String(), string(leg.LegType), leg.Quantity, leg.AvgPrice.String(), leg.SourceRef)
		if err != nil {
			return fmt.Errorf("failed to insert leg for position %d: %w", positionID, err)
		}
	}
	return nil
}
