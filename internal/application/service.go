// Package application is the caller surface of socialnet: a cobra command
// tree for scripted use and a numbered text menu for interactive use. Both
// print the same one-line outcome messages and leave the details to the log.
package application

import (
	"context"

	"github.com/JonMunkholm/socialnet/internal/core"
	"github.com/JonMunkholm/socialnet/internal/store"
)

// Service is the subset of *core.Service the commands and the menu use.
type Service interface {
	LoadFeed(ctx context.Context, c store.Collection, path string) (*core.LoadResult, error)

	AddUser(ctx context.Context, u store.User) error
	UpdateUser(ctx context.Context, u store.User) error
	DeleteUser(ctx context.Context, userID string) error
	SearchUser(ctx context.Context, userID string) (store.User, error)

	AddStatus(ctx context.Context, st store.Status) error
	UpdateStatus(ctx context.Context, st store.Status) error
	DeleteStatus(ctx context.Context, statusID string) error
	SearchStatus(ctx context.Context, statusID string) (store.Status, error)

	Counts(ctx context.Context) (core.Counts, error)
	History(ctx context.Context, limit int) ([]store.LoadRecord, error)
	Reset(ctx context.Context) error
}

var _ Service = (*core.Service)(nil)
