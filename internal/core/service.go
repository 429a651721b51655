package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/socialnet/internal/config"
	"github.com/JonMunkholm/socialnet/internal/logging"
	"github.com/JonMunkholm/socialnet/internal/store"
)

// DefaultChunkSize is the number of rows per bulk insert when the
// configuration does not set one.
const DefaultChunkSize = 10000

// ResetTimeout is the maximum duration for a reset operation.
var ResetTimeout = 30 * time.Second

// Service provides loads and single-record operations over a Store.
//
// Writes are serialized: a load holds the write lock from the first row read
// until its transaction commits or rolls back, and no single-record write can
// interleave with it.
type Service struct {
	store store.Store
	cfg   config.LoadConfig

	writeMu sync.Mutex
}

// NewService creates a new Service instance.
func NewService(st store.Store, cfg config.LoadConfig) (*Service, error) {
	if st == nil {
		return nil, errors.New("core: nil store")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &Service{store: st, cfg: cfg}, nil
}

// ChunkSize returns the configured number of rows per bulk insert.
func (s *Service) ChunkSize() int {
	return s.cfg.ChunkSize
}

// LoadFeed loads the feed at path into collection c.
func (s *Service) LoadFeed(ctx context.Context, c store.Collection, path string) (*LoadResult, error) {
	feed, ok := FeedFor(c)
	if !ok {
		return nil, newError(KindFeedUnavailable, "", "", 0, fmt.Errorf("no feed registered for %q", c))
	}
	return s.Load(ctx, path, feed)
}

// LoadUsers loads a user feed and reports whether it committed.
// Failures are logged with their row, field and value.
func (s *Service) LoadUsers(ctx context.Context, path string) bool {
	_, err := s.Load(ctx, path, UserFeed)
	return err == nil
}

// LoadStatuses loads a status feed and reports whether it committed.
func (s *Service) LoadStatuses(ctx context.Context, path string) bool {
	_, err := s.Load(ctx, path, StatusFeed)
	return err == nil
}

// Counts returns the number of stored users and statuses.
func (s *Service) Counts(ctx context.Context) (Counts, error) {
	users, err := s.store.Count(ctx, store.Users)
	if err != nil {
		return Counts{}, fmt.Errorf("count users: %w", err)
	}
	statuses, err := s.store.Count(ctx, store.Statuses)
	if err != nil {
		return Counts{}, fmt.Errorf("count statuses: %w", err)
	}
	return Counts{Users: users, Statuses: statuses}, nil
}

// Reset deletes every user, status and load history entry.
func (s *Service) Reset(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	if err := s.store.Reset(ctx); err != nil {
		logging.FromContext(ctx).Error("reset failed", "error", err)
		return fmt.Errorf("reset: %w", err)
	}
	logging.FromContext(ctx).Warn("all users, statuses and load history deleted")
	return nil
}
