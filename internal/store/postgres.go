package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/JonMunkholm/socialnet/internal/config"
)

// PostgreSQL SQLSTATE codes mapped to store errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
	Begin(context.Context) (pgx.Tx, error)
}

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewPostgres wraps an existing pool. Migrations are not applied.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, db: pool}
}

// OpenPostgres connects to cfg.URL, verifies the connection and applies
// migrations.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	err = migrate(ctx, sqlDB, "pgx", "postgres")
	_ = sqlDB.Close()
	if err != nil {
		pool.Close()
		return nil, err
	}

	return NewPostgres(pool), nil
}

func pgPlaceholder(i int) string { return fmt.Sprintf("$%d", i) }

// Close releases the pool. It is a no-op inside a transaction scope.
func (p *Postgres) Close() {
	if _, ok := p.db.(*pgxpool.Pool); ok {
		p.pool.Close()
	}
}

// Atomic runs fn in a transaction, or in a savepoint when p is already
// transaction-bound.
func (p *Postgres) Atomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		return fn(ctx, &Postgres{pool: p.pool, db: tx})
	})
}

func (p *Postgres) AddUser(ctx context.Context, u User) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO users (user_id, user_email, user_name, user_last_name) VALUES ($1, $2, $3, $4)`,
		u.UserID, u.Email, u.FirstName, u.LastName)
	return mapPgError(err)
}

func (p *Postgres) GetUser(ctx context.Context, userID string) (User, error) {
	var u User
	err := p.db.QueryRow(ctx,
		`SELECT user_id, user_email, user_name, user_last_name FROM users WHERE user_id = $1`,
		userID).Scan(&u.UserID, &u.Email, &u.FirstName, &u.LastName)
	if err != nil {
		return User{}, mapPgError(err)
	}
	return u, nil
}

func (p *Postgres) UpdateUser(ctx context.Context, u User) error {
	tag, err := p.db.Exec(ctx,
		`UPDATE users SET user_email = $2, user_name = $3, user_last_name = $4 WHERE user_id = $1`,
		u.UserID, u.Email, u.FirstName, u.LastName)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteUser(ctx context.Context, userID string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AddStatus(ctx context.Context, s Status) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO statuses (status_id, user_id, status_text) VALUES ($1, $2, $3)`,
		s.StatusID, s.UserID, s.Text)
	return mapPgError(err)
}

func (p *Postgres) GetStatus(ctx context.Context, statusID string) (Status, error) {
	var s Status
	err := p.db.QueryRow(ctx,
		`SELECT status_id, user_id, status_text FROM statuses WHERE status_id = $1`,
		statusID).Scan(&s.StatusID, &s.UserID, &s.Text)
	if err != nil {
		return Status{}, mapPgError(err)
	}
	return s, nil
}

func (p *Postgres) UpdateStatus(ctx context.Context, s Status) error {
	tag, err := p.db.Exec(ctx,
		`UPDATE statuses SET user_id = $2, status_text = $3 WHERE status_id = $1`,
		s.StatusID, s.UserID, s.Text)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteStatus(ctx context.Context, statusID string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM statuses WHERE status_id = $1`, statusID)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkInsert queues one insert per row in a single batch round trip.
func (p *Postgres) BulkInsert(ctx context.Context, c Collection, rows []Record) (int64, error) {
	if !c.Valid() {
		return 0, fmt.Errorf("unknown collection: %q", c)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	query := insertIgnoreSQL(c, pgPlaceholder)
	batch := &pgx.Batch{}
	for _, rec := range rows {
		args, err := recordArgs(c, rec)
		if err != nil {
			return 0, err
		}
		batch.Queue(query, args...)
	}

	br := p.db.SendBatch(ctx, batch)
	var inserted int64
	for range rows {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return inserted, mapPgError(err)
		}
		inserted += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return inserted, mapPgError(err)
	}
	return inserted, nil
}

func (p *Postgres) Count(ctx context.Context, c Collection) (int64, error) {
	if !c.Valid() {
		return 0, fmt.Errorf("unknown collection: %q", c)
	}
	var n int64
	if err := p.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+c.String()).Scan(&n); err != nil {
		return 0, mapPgError(err)
	}
	return n, nil
}

// Reset deletes every user, status and history entry.
func (p *Postgres) Reset(ctx context.Context) error {
	return p.Atomic(ctx, func(ctx context.Context, tx Store) error {
		db := tx.(*Postgres).db
		for _, table := range []string{"statuses", "users", "load_history"} {
			if _, err := db.Exec(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, mapPgError(err))
			}
		}
		return nil
	})
}

func (p *Postgres) RecordLoad(ctx context.Context, rec LoadRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("invalid load id %q: %w", rec.ID, err)
	}
	loadedAt := rec.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}

	_, err = p.db.Exec(ctx, `
		INSERT INTO load_history
			(id, collection, file_name, rows_read, rows_inserted, rows_skipped, status, error, duration_ms, loaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pgtype.UUID{Bytes: id, Valid: true}, rec.Collection.String(), rec.FileName,
		rec.RowsRead, rec.RowsInserted, rec.RowsSkipped, rec.Status, rec.Error,
		rec.Duration.Milliseconds(), loadedAt)
	return mapPgError(err)
}

func (p *Postgres) LoadHistory(ctx context.Context, limit int) ([]LoadRecord, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, collection, file_name, rows_read, rows_inserted, rows_skipped, status, error, duration_ms, loaded_at
		FROM load_history
		ORDER BY loaded_at DESC, seq DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var out []LoadRecord
	for rows.Next() {
		var (
			rec        LoadRecord
			id         pgtype.UUID
			collection string
			durationMS int64
		)
		if err := rows.Scan(&id, &collection, &rec.FileName, &rec.RowsRead, &rec.RowsInserted,
			&rec.RowsSkipped, &rec.Status, &rec.Error, &durationMS, &rec.LoadedAt); err != nil {
			return nil, err
		}
		rec.ID = uuid.UUID(id.Bytes).String()
		rec.Collection = Collection(collection)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// mapPgError translates pgx errors to the store sentinels, keeping the driver
// error in the chain.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
		case pgForeignKeyViolation, pgNotNullViolation, pgCheckViolation:
			return fmt.Errorf("%w: %w", ErrIntegrity, err)
		}
	}
	return err
}
