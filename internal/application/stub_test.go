package application

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/socialnet/internal/core"
	"github.com/JonMunkholm/socialnet/internal/store"
)

// stubService keeps records in maps and mimics the error kinds of
// *core.Service closely enough for the caller surface.
type stubService struct {
	users    map[string]store.User
	statuses map[string]store.Status
	loads    []store.LoadRecord
	loaded   []string
	loadErr  error
	resets   int
}

func newStub() *stubService {
	return &stubService{
		users:    map[string]store.User{},
		statuses: map[string]store.Status{},
	}
}

func notFound(key string) error {
	return fmt.Errorf("%q: %w", key, core.ErrNotFound)
}

func (s *stubService) LoadFeed(_ context.Context, c store.Collection, path string) (*core.LoadResult, error) {
	s.loaded = append(s.loaded, c.String()+":"+path)
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	s.loads = append(s.loads, store.LoadRecord{
		Collection: c, FileName: path, Status: store.LoadCommitted,
		RowsRead: 3, RowsInserted: 2, RowsSkipped: 1,
		Duration: 1500 * time.Millisecond, LoadedAt: time.Now(),
	})
	return &core.LoadResult{Collection: c, FileName: path, RowsRead: 3, Inserted: 2, Skipped: 1, Chunks: 1}, nil
}

func (s *stubService) AddUser(_ context.Context, u store.User) error {
	if !core.ValidateEmail(u.Email) {
		return core.ErrValidation
	}
	if _, ok := s.users[u.UserID]; ok {
		return core.ErrDuplicateKey
	}
	s.users[u.UserID] = u
	return nil
}

func (s *stubService) UpdateUser(_ context.Context, u store.User) error {
	if _, ok := s.users[u.UserID]; !ok {
		return notFound(u.UserID)
	}
	s.users[u.UserID] = u
	return nil
}

func (s *stubService) DeleteUser(_ context.Context, userID string) error {
	if _, ok := s.users[userID]; !ok {
		return notFound(userID)
	}
	delete(s.users, userID)
	for id, st := range s.statuses {
		if st.UserID == userID {
			delete(s.statuses, id)
		}
	}
	return nil
}

func (s *stubService) SearchUser(_ context.Context, userID string) (store.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return store.User{}, notFound(userID)
	}
	return u, nil
}

func (s *stubService) AddStatus(_ context.Context, st store.Status) error {
	if !core.ValidateStatusID(st.StatusID) {
		return core.ErrValidation
	}
	if _, ok := s.users[st.UserID]; !ok {
		return core.ErrStorageIntegrity
	}
	if _, ok := s.statuses[st.StatusID]; ok {
		return core.ErrDuplicateKey
	}
	s.statuses[st.StatusID] = st
	return nil
}

func (s *stubService) UpdateStatus(_ context.Context, st store.Status) error {
	if _, ok := s.statuses[st.StatusID]; !ok {
		return notFound(st.StatusID)
	}
	s.statuses[st.StatusID] = st
	return nil
}

func (s *stubService) DeleteStatus(_ context.Context, statusID string) error {
	if _, ok := s.statuses[statusID]; !ok {
		return notFound(statusID)
	}
	delete(s.statuses, statusID)
	return nil
}

func (s *stubService) SearchStatus(_ context.Context, statusID string) (store.Status, error) {
	st, ok := s.statuses[statusID]
	if !ok {
		return store.Status{}, notFound(statusID)
	}
	return st, nil
}

func (s *stubService) Counts(context.Context) (core.Counts, error) {
	return core.Counts{Users: int64(len(s.users)), Statuses: int64(len(s.statuses))}, nil
}

func (s *stubService) History(_ context.Context, limit int) ([]store.LoadRecord, error) {
	if limit > 0 && limit < len(s.loads) {
		return s.loads[:limit], nil
	}
	return s.loads, nil
}

func (s *stubService) Reset(context.Context) error {
	s.resets++
	s.users = map[string]store.User{}
	s.statuses = map[string]store.Status{}
	s.loads = nil
	return nil
}
