package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/username/optifolio/src/logger"
	"github.com/username/optifolio/src/models"
	"github.com/username/optifolio/src/parsers"
	"github.com/username/optifolio/src/processors"
)

// importServiceImpl wires the parser, the stores and the reconciliation
// pipeline together. The last result per user is cached so the frontend can
// re-fetch an import summary without replaying the pipeline.
type importServiceImpl struct {
	txStore     TransactionStore
	posStore    PositionStore
	reconciler  processors.Reconciler
	resultCache *cache.Cache
}

func NewImportService(txStore TransactionStore, posStore PositionStore, reconciler processors.Reconciler, resultCache *cache.Cache) ImportService {
	return &importServiceImpl{
		txStore:     txStore,
		posStore:    posStore,
		reconciler:  reconciler,
		resultCache: resultCache,
	}
}

func resultCacheKey(userID int64) string {
	return fmt.Sprintf("import_result_%d", userID)
}

// LastResult returns the cached summary of the user's most recent import, if
// it is still in the cache.
func (s *importServiceImpl) LastResult(userID int64) (*ImportResult, bool) {
	if s.resultCache == nil {
		return nil, false
	}
	if v, found := s.resultCache.Get(resultCacheKey(userID)); found {
		if r, ok := v.(*ImportResult); ok {
			return r, true
		}
	}
	return nil, false
}

func (s *importServiceImpl) Import(ctx context.Context, userID int64, source string, file io.Reader, mode processors.Mode) (*ImportResult, error) {
	parser, err := parsers.GetParser(source)
	if err != nil {
		return nil, err
	}
	batch, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upload: %w", err)
	}

	inserted, duplicate, err := s.txStore.InsertBatch(ctx, userID, batch)
	if err != nil {
		return nil, err
	}
	logger.L.Info("Activity batch stored",
		"userID", userID,
		"parsed", len(batch.Transactions)+len(batch.StockTransactions),
		"inserted", inserted,
		"duplicate", duplicate)

	result, err := s.reconcileStored(ctx, userID, mode)
	if err != nil {
		return nil, err
	}
	result.RowsParsed = len(batch.Transactions) + len(batch.StockTransactions)
	result.RowsInserted = inserted
	result.RowsDuplicate = duplicate

	s.cacheResult(userID, result)
	return result, nil
}

func (s *importServiceImpl) Reconcile(ctx context.Context, userID int64, mode processors.Mode) (*ImportResult, error) {
	result, err := s.reconcileStored(ctx, userID, mode)
	if err != nil {
		return nil, err
	}
	s.cacheResult(userID, result)
	return result, nil
}

// reconcileStored replays the user's full stored history through the pipeline
// and persists the outcome.
func (s *importServiceImpl) reconcileStored(ctx context.Context, userID int64, mode processors.Mode) (*ImportResult, error) {
	batch, err := s.txStore.LoadAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(batch.Transactions) == 0 && len(batch.StockTransactions) == 0 {
		return nil, ErrNoTransactions
	}

	var positions map[string]*models.Position
	if mode == processors.ModeRebuild {
		if err := s.posStore.Wipe(ctx, userID); err != nil {
			return nil, fmt.Errorf("failed to wipe positions for rebuild: %w", err)
		}
		positions = make(map[string]*models.Position)
	} else {
		positions, err = s.posStore.Load(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	outcome, err := s.reconciler.Reconcile(processors.ReconcileInput{
		Transactions:      batch.Transactions,
		StockTransactions: batch.StockTransactions,
		Positions:         positions,
		Mode:              mode,
		Now:               time.Now(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.posStore.Save(ctx, userID, outcome.Updated, outcome.Created); err != nil {
		return nil, err
	}
	logger.L.Info("Reconciliation persisted",
		"userID", userID,
		"mode", string(mode),
		"created", len(outcome.Created),
		"updated", len(outcome.Updated),
		"skipped", outcome.Skipped)

	closing := make(map[string]string, len(outcome.ClosingPrices))
	for key, price := range outcome.ClosingPrices {
		closing[key.String()] = price.StringFixed(2)
	}

	return &ImportResult{
		Mode:            mode,
		PositionsNew:    len(outcome.Created),
		PositionsMerged: len(outcome.Updated),
		OrdersSkipped:   outcome.Skipped,
		ClosingPrices:   closing,
	}, nil
}

func (s *importServiceImpl) cacheResult(userID int64, result *ImportResult) {
	if s.resultCache != nil {
		s.resultCache.Set(resultCacheKey(userID), result, cache.DefaultExpiration)
	}
}
