// Package store provides durable keyed storage for users and their status
// messages.
//
// Two backends implement [Store]: [Postgres] (pgx connection pool) and
// [SQLite] (embedded, pure Go). Both enforce primary-key uniqueness and the
// statuses.user_id foreign key with cascading delete, and both run the
// embedded goose migrations when opened.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/socialnet/internal/config"
)

var (
	// ErrNotFound is returned when no record has the requested key.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a create collides with an existing key.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrIntegrity is returned for constraint failures other than a duplicate
	// key, such as a status referencing a user that does not exist.
	ErrIntegrity = errors.New("integrity violation")
)

// Collection names a stored record collection.
type Collection string

const (
	Users    Collection = "users"
	Statuses Collection = "statuses"
)

// Attribute names shared by the feeds and the database columns.
const (
	AttrUserID       = "user_id"
	AttrUserEmail    = "user_email"
	AttrUserName     = "user_name"
	AttrUserLastName = "user_last_name"
	AttrStatusID     = "status_id"
	AttrStatusText   = "status_text"
)

var collectionColumns = map[Collection][]string{
	Users:    {AttrUserID, AttrUserEmail, AttrUserName, AttrUserLastName},
	Statuses: {AttrStatusID, AttrUserID, AttrStatusText},
}

// ParseCollection converts a collection name to a Collection.
func ParseCollection(name string) (Collection, error) {
	c := Collection(strings.ToLower(strings.TrimSpace(name)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown collection: %q", name)
	}
	return c, nil
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	_, ok := collectionColumns[c]
	return ok
}

// Columns returns the column names in insert order. The first column is the
// primary key.
func (c Collection) Columns() []string {
	return collectionColumns[c]
}

// Key returns the primary key column.
func (c Collection) Key() string {
	cols := collectionColumns[c]
	if len(cols) == 0 {
		return ""
	}
	return cols[0]
}

func (c Collection) String() string { return string(c) }

// Record is one row keyed by attribute name, as produced by a feed.
type Record map[string]string

// User is a member of the social network.
type User struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
}

// Record returns u keyed by attribute name.
func (u User) Record() Record {
	return Record{
		AttrUserID:       u.UserID,
		AttrUserEmail:    u.Email,
		AttrUserName:     u.FirstName,
		AttrUserLastName: u.LastName,
	}
}

// Status is a message posted by a user.
type Status struct {
	StatusID string
	UserID   string
	Text     string
}

// Record returns s keyed by attribute name.
func (s Status) Record() Record {
	return Record{
		AttrStatusID:   s.StatusID,
		AttrUserID:     s.UserID,
		AttrStatusText: s.Text,
	}
}

// Load history statuses.
const (
	LoadCommitted = "committed"
	LoadFailed    = "failed"
)

// LoadRecord is one entry of the load history.
type LoadRecord struct {
	ID           string
	Collection   Collection
	FileName     string
	RowsRead     int64
	RowsInserted int64
	RowsSkipped  int64
	Status       string
	Error        string
	Duration     time.Duration
	LoadedAt     time.Time
}

// Store is the storage collaborator consumed by the loader and the
// single-record operations.
type Store interface {
	AddUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, userID string) (User, error)
	UpdateUser(ctx context.Context, u User) error
	DeleteUser(ctx context.Context, userID string) error

	AddStatus(ctx context.Context, s Status) error
	GetStatus(ctx context.Context, statusID string) (Status, error)
	UpdateStatus(ctx context.Context, s Status) error
	DeleteStatus(ctx context.Context, statusID string) error

	// BulkInsert inserts rows into c, silently skipping any row whose primary
	// key already exists. It returns the number of rows actually inserted.
	BulkInsert(ctx context.Context, c Collection, rows []Record) (int64, error)
	Count(ctx context.Context, c Collection) (int64, error)
	Reset(ctx context.Context) error

	RecordLoad(ctx context.Context, rec LoadRecord) error
	LoadHistory(ctx context.Context, limit int) ([]LoadRecord, error)

	// Atomic runs fn inside a transaction. Calling Atomic on the Store passed
	// to fn opens a nested scope that can fail without aborting the outer one;
	// the outer scope still decides whether anything is committed.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	Close()
}

// Open connects to the backend selected by cfg.Driver and applies migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg)
	case config.DriverSQLite, "":
		return OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}

// recordArgs returns the values of rec in column order for c.
func recordArgs(c Collection, rec Record) ([]any, error) {
	cols := c.Columns()
	args := make([]any, len(cols))
	for i, col := range cols {
		v, ok := rec[col]
		if !ok {
			return nil, fmt.Errorf("%w: %s record missing %q", ErrIntegrity, c, col)
		}
		args[i] = v
	}
	return args, nil
}

// insertIgnoreSQL builds a single-row insert that skips primary key conflicts.
// placeholder renders the i-th (1-based) bind parameter.
func insertIgnoreSQL(c Collection, placeholder func(int) string) string {
	cols := c.Columns()
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		c, strings.Join(cols, ", "), strings.Join(marks, ", "), c.Key())
}
