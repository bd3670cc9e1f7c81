package data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"formfields/internal/rules"
)

// FailureRepository stores validation failure counts.
type FailureRepository interface {
	// Record adds one hit for the field/message pair and returns the updated entry.
	Record(ctx context.Context, field rules.FieldID, message string) (*FailureEntry, error)

	// GetMostFrequent returns the pair with the most hits, or nil when empty.
	GetMostFrequent(ctx context.Context) (*FailureEntry, error)

	// GetTopN returns the n pairs with the most hits, ties broken by first seen.
	GetTopN(ctx context.Context, n int) ([]*FailureEntry, error)

	// Close releases resources held by the repository.
	Close() error
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS field_failures (
	id          BIGSERIAL PRIMARY KEY,
	failure_key TEXT        NOT NULL UNIQUE,
	field       TEXT        NOT NULL,
	message     TEXT        NOT NULL,
	hits        INTEGER     NOT NULL DEFAULT 1,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_field_failures_hits ON field_failures (hits DESC, created_at ASC);
`

// PostgreSQLFailureRepository implements FailureRepository on a pgx pool.
type PostgreSQLFailureRepository struct {
	pool *pgxpool.Pool
	// timeout bounds every query
	timeout time.Duration
}

// NewPostgreSQLFailureRepository creates a repository over pool.
// A non-positive timeout means 5s.
func NewPostgreSQLFailureRepository(pool *pgxpool.Pool, timeout time.Duration) *PostgreSQLFailureRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &PostgreSQLFailureRepository{
		pool:    pool,
		timeout: timeout,
	}
}

// OpenPostgreSQL connects a pool to dsn and verifies it with a ping.
func OpenPostgreSQL(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the failure table if it does not exist.
func (r *PostgreSQLFailureRepository) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record upserts the pair and increments its hit count atomically.
func (r *PostgreSQLFailureRepository) Record(ctx context.Context, field rules.FieldID, message string) (*FailureEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	entry := &FailureEntry{
		Key:     FailureKey(field, message),
		Field:   field,
		Message: message,
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO field_failures (failure_key, field, message)
		VALUES ($1, $2, $3)
		ON CONFLICT (failure_key)
		DO UPDATE SET hits = field_failures.hits + 1, updated_at = now()
		RETURNING id, hits, created_at, updated_at
	`, entry.Key, string(field), message).Scan(&entry.ID, &entry.Hits, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record failure: %w", err)
	}

	return entry, nil
}

// GetMostFrequent implements FailureRepository.GetMostFrequent.
func (r *PostgreSQLFailureRepository) GetMostFrequent(ctx context.Context) (*FailureEntry, error) {
	entries, err := r.GetTopN(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

// GetTopN implements FailureRepository.GetTopN.
func (r *PostgreSQLFailureRepository) GetTopN(ctx context.Context, n int) ([]*FailureEntry, error) {
	if n <= 0 {
		return []*FailureEntry{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT id, failure_key, field, message, hits, created_at, updated_at
		FROM field_failures
		ORDER BY hits DESC, created_at ASC, field ASC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top %d failures: %w", n, err)
	}

	entries, err := pgx.CollectRows(rows, scanFailureEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to scan failures: %w", err)
	}
	return entries, nil
}

// Close closes the pool.
func (r *PostgreSQLFailureRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

// Health pings the database and reports pool metrics.
func (r *PostgreSQLFailureRepository) Health(ctx context.Context) (StoreHealthInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	info := StoreHealthInfo{Backend: "postgres"}

	var one int
	if err := r.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		info.Status = "disconnected"
		info.ResponseTimeMs = -1
		return info, fmt.Errorf("database health check failed: %w", err)
	}

	stat := r.pool.Stat()
	info.Status = "connected"
	info.ResponseTimeMs = time.Since(start).Milliseconds()
	info.ActiveConns = stat.AcquiredConns()
	info.IdleConns = stat.IdleConns()
	info.MaxConns = stat.MaxConns()
	return info, nil
}

func scanFailureEntry(row pgx.CollectableRow) (*FailureEntry, error) {
	var entry FailureEntry
	var field string

	err := row.Scan(
		&entry.ID,
		&entry.Key,
		&field,
		&entry.Message,
		&entry.Hits,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Field = rules.FieldID(field)
	return &entry, nil
}

var _ FailureRepository = (*PostgreSQLFailureRepository)(nil)
