package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

type sqlDBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// SQLite is a Store backed by an embedded SQLite database.
//
// The pool is limited to one connection: SQLite serializes writers anyway and
// an in-memory database exists only on the connection that created it.
type SQLite struct {
	db    *sql.DB
	q     sqlDBTX
	tx    *sql.Tx
	depth int
}

// OpenSQLite opens (creating if needed) the database at path and applies
// migrations. Use MemoryPath for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := migrate(ctx, db, "sqlite3", "sqlite"); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db, q: db}, nil
}

// sqliteDSN appends the pragmas every connection needs.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func sqlitePlaceholder(int) string { return "?" }

// Close closes the database. It is a no-op inside a transaction scope.
func (s *SQLite) Close() {
	if s.tx == nil {
		_ = s.db.Close()
	}
}

// Atomic runs fn in a transaction. Nested calls use SAVEPOINT so a failed
// inner scope rolls back only its own writes.
func (s *SQLite) Atomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback()
				panic(p)
			}
		}()

		if err := fn(ctx, &SQLite{db: s.db, q: tx, tx: tx, depth: 1}); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	}

	name := fmt.Sprintf("sp_%d", s.depth)
	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}

	if err := fn(ctx, &SQLite{db: s.db, q: s.tx, tx: s.tx, depth: s.depth + 1}); err != nil {
		// The outer transaction stays usable after rolling back to the savepoint.
		_, _ = s.tx.ExecContext(context.WithoutCancel(ctx), "ROLLBACK TO SAVEPOINT "+name)
		_, _ = s.tx.ExecContext(context.WithoutCancel(ctx), "RELEASE SAVEPOINT "+name)
		return err
	}
	if _, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (s *SQLite) AddUser(ctx context.Context, u User) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO users (user_id, user_email, user_name, user_last_name) VALUES (?, ?, ?, ?)`,
		u.UserID, u.Email, u.FirstName, u.LastName)
	return mapSQLiteError(err)
}

func (s *SQLite) GetUser(ctx context.Context, userID string) (User, error) {
	var u User
	err := s.q.QueryRowContext(ctx,
		`SELECT user_id, user_email, user_name, user_last_name FROM users WHERE user_id = ?`,
		userID).Scan(&u.UserID, &u.Email, &u.FirstName, &u.LastName)
	if err != nil {
		return User{}, mapSQLiteError(err)
	}
	return u, nil
}

func (s *SQLite) UpdateUser(ctx context.Context, u User) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE users SET user_email = ?, user_name = ?, user_last_name = ? WHERE user_id = ?`,
		u.Email, u.FirstName, u.LastName, u.UserID)
	return affectedOne(res, err)
}

func (s *SQLite) DeleteUser(ctx context.Context, userID string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID)
	return affectedOne(res, err)
}

func (s *SQLite) AddStatus(ctx context.Context, st Status) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO statuses (status_id, user_id, status_text) VALUES (?, ?, ?)`,
		st.StatusID, st.UserID, st.Text)
	return mapSQLiteError(err)
}

func (s *SQLite) GetStatus(ctx context.Context, statusID string) (Status, error) {
	var st Status
	err := s.q.QueryRowContext(ctx,
		`SELECT status_id, user_id, status_text FROM statuses WHERE status_id = ?`,
		statusID).Scan(&st.StatusID, &st.UserID, &st.Text)
	if err != nil {
		return Status{}, mapSQLiteError(err)
	}
	return st, nil
}

func (s *SQLite) UpdateStatus(ctx context.Context, st Status) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE statuses SET user_id = ?, status_text = ? WHERE status_id = ?`,
		st.UserID, st.Text, st.StatusID)
	return affectedOne(res, err)
}

func (s *SQLite) DeleteStatus(ctx context.Context, statusID string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM statuses WHERE status_id = ?`, statusID)
	return affectedOne(res, err)
}

// affectedOne maps a write that matched no row to ErrNotFound.
func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return mapSQLiteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkInsert runs one prepared insert per row. A multi-row VALUES list would
// exceed SQLite's bind variable limit at the default chunk size.
func (s *SQLite) BulkInsert(ctx context.Context, c Collection, rows []Record) (int64, error) {
	if !c.Valid() {
		return 0, fmt.Errorf("unknown collection: %q", c)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	stmt, err := s.q.PrepareContext(ctx, insertIgnoreSQL(c, sqlitePlaceholder))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, rec := range rows {
		args, err := recordArgs(c, rec)
		if err != nil {
			return inserted, err
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return inserted, mapSQLiteError(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += n
	}
	return inserted, nil
}

func (s *SQLite) Count(ctx context.Context, c Collection) (int64, error) {
	if !c.Valid() {
		return 0, fmt.Errorf("unknown collection: %q", c)
	}
	var n int64
	if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.String()).Scan(&n); err != nil {
		return 0, mapSQLiteError(err)
	}
	return n, nil
}

// Reset deletes every user, status and history entry.
func (s *SQLite) Reset(ctx context.Context) error {
	return s.Atomic(ctx, func(ctx context.Context, tx Store) error {
		q := tx.(*SQLite).q
		for _, table := range []string{"statuses", "users", "load_history"} {
			if _, err := q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, mapSQLiteError(err))
			}
		}
		return nil
	})
}

func (s *SQLite) RecordLoad(ctx context.Context, rec LoadRecord) error {
	loadedAt := rec.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO load_history
			(id, collection, file_name, rows_read, rows_inserted, rows_skipped, status, error, duration_ms, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Collection.String(), rec.FileName, rec.RowsRead, rec.RowsInserted,
		rec.RowsSkipped, rec.Status, rec.Error, rec.Duration.Milliseconds(), loadedAt.UnixMilli())
	return mapSQLiteError(err)
}

func (s *SQLite) LoadHistory(ctx context.Context, limit int) ([]LoadRecord, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, collection, file_name, rows_read, rows_inserted, rows_skipped, status, error, duration_ms, loaded_at
		FROM load_history
		ORDER BY loaded_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var out []LoadRecord
	for rows.Next() {
		var (
			rec        LoadRecord
			collection string
			durationMS int64
			loadedAt   int64
		)
		if err := rows.Scan(&rec.ID, &collection, &rec.FileName, &rec.RowsRead, &rec.RowsInserted,
			&rec.RowsSkipped, &rec.Status, &rec.Error, &durationMS, &loadedAt); err != nil {
			return nil, err
		}
		rec.Collection = Collection(collection)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.LoadedAt = time.UnixMilli(loadedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// mapSQLiteError translates driver errors to the store sentinels using the
// extended result code, falling back to the primary code and message.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}

	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, sqlite3.SQLITE_CONSTRAINT_NOTNULL, sqlite3.SQLITE_CONSTRAINT_CHECK:
		return fmt.Errorf("%w: %w", ErrIntegrity, err)
	}

	if se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
		}
		return fmt.Errorf("%w: %w", ErrIntegrity, err)
	}
	return err
}
