package core

// loader.go implements the all-or-nothing bulk load.
//
// A load runs in two phases. The read phase parses and validates every row
// and stops at the first bad one, before storage is touched. The write phase
// inserts the buffered rows in chunks of Config.Load.ChunkSize, each chunk in
// its own nested scope inside one outer transaction, so a failing chunk rolls
// back every chunk before it. Rows whose key already exists are skipped by
// the store.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/socialnet/internal/logging"
	"github.com/JonMunkholm/socialnet/internal/store"
)

// ctxCheckInterval is how many rows are parsed between cancellation checks.
const ctxCheckInterval = 100

// Load ingests the feed at path using feed's column mapping. Either every
// row is committed (minus rows skipped as duplicates) or none is.
func (s *Service) Load(ctx context.Context, path string, feed Feed) (*LoadResult, error) {
	loadID := uuid.NewString()
	ctx = logging.WithLoadID(ctx, loadID)
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	log := logging.WithFields(ctx, "collection", feed.Collection.String(), "feed", path)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	result := &LoadResult{
		LoadID:     loadID,
		Collection: feed.Collection,
		FileName:   filepath.Base(path),
	}

	log.Info("load started", "chunk_size", s.cfg.ChunkSize)

	err := s.runLoad(ctx, path, feed, result)
	result.Duration = time.Since(start)
	s.recordLoad(ctx, result, err)

	if err != nil {
		attrs := []any{"error", err, "code", MapError(err).Code, "kind", KindOf(err).String(), "rows_read", result.RowsRead}
		var e *Error
		if errors.As(err, &e) {
			attrs = append(attrs, "line", e.Line, "field", e.Field, "value", e.Value)
		}
		log.Error("load failed", attrs...)
		return nil, err
	}

	log.Info("load committed",
		"rows_read", result.RowsRead,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"chunks", result.Chunks,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (s *Service) runLoad(ctx context.Context, path string, feed Feed, result *LoadResult) error {
	rows, err := readFeed(ctx, path, feed, s.cfg.MaxFeedSize)
	result.RowsRead = int64(len(rows))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	log := logging.FromContext(ctx)
	chunks := chunkRecords(rows, s.cfg.ChunkSize)

	var inserted int64
	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		for i, chunk := range chunks {
			from := i*s.cfg.ChunkSize + 1
			to := from + len(chunk) - 1

			var n int64
			err := tx.Atomic(ctx, func(ctx context.Context, chunkTx store.Store) error {
				var err error
				n, err = chunkTx.BulkInsert(ctx, feed.Collection, chunk)
				return err
			})
			if err != nil {
				return newError(KindStorageIntegrity, "", "", 0,
					fmt.Errorf("chunk %d (entries %d to %d): %w", i+1, from, to, err))
			}

			inserted += n
			log.Debug("chunk inserted", "chunk", i+1, "from", from, "to", to, "inserted", n)
		}
		return nil
	})
	if err != nil {
		return err
	}

	result.Inserted = inserted
	result.Skipped = result.RowsRead - inserted
	result.Chunks = len(chunks)
	return nil
}

// readFeed opens and parses the feed at path. Any rows parsed before an
// error are returned with it.
func readFeed(ctx context.Context, path string, feed Feed, maxSize int64) ([]store.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(KindFeedUnavailable, "", "", 0, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, newError(KindFeedUnavailable, "", "", 0, err)
	}
	if info.IsDir() {
		return nil, newError(KindFeedUnavailable, "", "", 0, fmt.Errorf("%s is a directory", path))
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, newError(KindFeedUnavailable, "", "", 0,
			fmt.Errorf("%w: %d bytes exceeds %d", ErrFeedTooLarge, info.Size(), maxSize))
	}

	return parseFeed(ctx, WrapFeed(f, maxSize), feed)
}

// parseFeed validates the header, then every data row, in feed order.
func parseFeed(ctx context.Context, r io.Reader, feed Feed) ([]store.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, readError(err)
	}

	specs, err := resolveHeader(feed, header)
	if err != nil {
		return nil, err
	}

	var rows []store.Record
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return rows, err
			}
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, readError(err)
		}

		line, _ := cr.FieldPos(0)
		rec, err := transformRow(specs, row, line)
		if err != nil {
			return rows, err
		}
		rows = append(rows, rec)
	}
}

// readError classifies a reader failure as an unavailable feed.
func readError(err error) error {
	line := 0
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		line = parseErr.Line
	}
	return newError(KindFeedUnavailable, "", "", line, err)
}

// chunkRecords splits rows into consecutive slices of at most size rows.
func chunkRecords(rows []store.Record, size int) [][]store.Record {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]store.Record, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}
