package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/socialnet/internal/logging"
	"github.com/JonMunkholm/socialnet/internal/store"
)

// historyWriteTimeout bounds the history insert made after a load.
const historyWriteTimeout = 5 * time.Second

// recordLoad appends the outcome of a load to the load history. It runs
// after the load's transaction has finished, so failed loads are recorded
// too. A history write failure is logged and does not change the outcome.
func (s *Service) recordLoad(ctx context.Context, result *LoadResult, loadErr error) {
	rec := store.LoadRecord{
		ID:           result.LoadID,
		Collection:   result.Collection,
		FileName:     result.FileName,
		RowsRead:     result.RowsRead,
		RowsInserted: result.Inserted,
		RowsSkipped:  result.Skipped,
		Status:       store.LoadCommitted,
		Duration:     result.Duration,
		LoadedAt:     time.Now().UTC(),
	}
	if loadErr != nil {
		rec.Status = store.LoadFailed
		rec.Error = loadErr.Error()
		rec.RowsInserted = 0
		rec.RowsSkipped = 0
	}

	// The load's own deadline may already have passed.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()

	if err := s.store.RecordLoad(ctx, rec); err != nil {
		logging.FromContext(ctx).Warn("failed to record load history", "error", err)
	}
}

// History returns the most recent loads, newest first. A limit of zero or
// less uses the configured default.
func (s *Service) History(ctx context.Context, limit int) ([]store.LoadRecord, error) {
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	if limit <= 0 {
		limit = 20
	}

	records, err := s.store.LoadHistory(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return records, nil
}
