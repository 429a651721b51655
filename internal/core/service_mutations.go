package core

import (
	"context"
	"errors"

	"github.com/JonMunkholm/socialnet/internal/logging"
	"github.com/JonMunkholm/socialnet/internal/store"
)

// storeError converts store sentinels to core error kinds.
func storeError(field, key string, err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicateKey):
		return newError(KindDuplicateKey, field, key, 0, err)
	case errors.Is(err, store.ErrNotFound):
		return newError(KindNotFound, field, key, 0, err)
	case errors.Is(err, store.ErrIntegrity):
		return newError(KindStorageIntegrity, field, key, 0, err)
	}
	return err
}

// logFailure logs a failed single-record operation and passes err through.
func logFailure(ctx context.Context, op, key string, err error) error {
	logging.FromContext(ctx).Error(op+" failed", "key", key, "error", err, "code", MapError(err).Code)
	return err
}

// AddUser validates u and creates it. It fails with ErrDuplicateKey if the
// user ID is taken.
func (s *Service) AddUser(ctx context.Context, u store.User) error {
	if err := validateRecord(UserFeed, u.Record()); err != nil {
		return logFailure(ctx, "add user", u.UserID, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.AddUser(ctx, u); err != nil {
		return logFailure(ctx, "add user", u.UserID, storeError(store.AttrUserID, u.UserID, err))
	}
	logging.FromContext(ctx).Info("user added", "user_id", u.UserID)
	return nil
}

// UpdateUser validates u and replaces the stored user with the same ID.
func (s *Service) UpdateUser(ctx context.Context, u store.User) error {
	if err := validateRecord(UserFeed, u.Record()); err != nil {
		return logFailure(ctx, "update user", u.UserID, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.UpdateUser(ctx, u); err != nil {
		return logFailure(ctx, "update user", u.UserID, storeError(store.AttrUserID, u.UserID, err))
	}
	logging.FromContext(ctx).Info("user updated", "user_id", u.UserID)
	return nil
}

// DeleteUser removes a user and, by cascade, its statuses.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, userID)
	})
	if err != nil {
		return logFailure(ctx, "delete user", userID, storeError(store.AttrUserID, userID, err))
	}
	logging.FromContext(ctx).Info("user deleted", "user_id", userID)
	return nil
}

// SearchUser returns the user with the given ID, or an error matching
// ErrNotFound.
func (s *Service) SearchUser(ctx context.Context, userID string) (store.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return store.User{}, storeError(store.AttrUserID, userID, err)
	}
	return u, nil
}

// AddStatus validates st and creates it. The owning user must exist.
func (s *Service) AddStatus(ctx context.Context, st store.Status) error {
	if err := validateRecord(StatusFeed, st.Record()); err != nil {
		return logFailure(ctx, "add status", st.StatusID, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.AddStatus(ctx, st); err != nil {
		return logFailure(ctx, "add status", st.StatusID, storeError(store.AttrStatusID, st.StatusID, err))
	}
	logging.FromContext(ctx).Info("status added", "status_id", st.StatusID, "user_id", st.UserID)
	return nil
}

// UpdateStatus validates st and replaces the text and owner of the stored
// status with the same ID.
func (s *Service) UpdateStatus(ctx context.Context, st store.Status) error {
	if err := validateRecord(StatusFeed, st.Record()); err != nil {
		return logFailure(ctx, "update status", st.StatusID, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.UpdateStatus(ctx, st); err != nil {
		return logFailure(ctx, "update status", st.StatusID, storeError(store.AttrStatusID, st.StatusID, err))
	}
	logging.FromContext(ctx).Info("status updated", "status_id", st.StatusID)
	return nil
}

// DeleteStatus removes a status.
func (s *Service) DeleteStatus(ctx context.Context, statusID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := tx.GetStatus(ctx, statusID); err != nil {
			return err
		}
		return tx.DeleteStatus(ctx, statusID)
	})
	if err != nil {
		return logFailure(ctx, "delete status", statusID, storeError(store.AttrStatusID, statusID, err))
	}
	logging.FromContext(ctx).Info("status deleted", "status_id", statusID)
	return nil
}

// SearchStatus returns the status with the given ID, or an error matching
// ErrNotFound.
func (s *Service) SearchStatus(ctx context.Context, statusID string) (store.Status, error) {
	st, err := s.store.GetStatus(ctx, statusID)
	if err != nil {
		return store.Status{}, storeError(store.AttrStatusID, statusID, err)
	}
	return st, nil
}
