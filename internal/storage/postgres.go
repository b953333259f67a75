package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig sizes the pgx connection pool
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS vdf_snapshots (
    run_id       UUID PRIMARY KEY,
    ticker       TEXT NOT NULL,
    generated_at TIMESTAMPTZ NOT NULL,
    as_of        DATE NOT NULL,
    result       JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS vdf_snapshots_ticker_time ON vdf_snapshots (ticker, generated_at DESC);
`

// pgxPool is the part of *pgxpool.Pool the store uses
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore persists snapshots with the analysis result as JSONB
type PostgresStore struct {
	pool pgxPool
}

// NewPostgresStore connects and pings the database
func NewPostgresStore(ctx context.Context, dsn string, cfg PoolConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newPostgresStore(pool), nil
}

func newPostgresStore(pool pgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the snapshot table if missing
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate vdf_snapshots: %w", err)
	}
	return nil
}

func (p *PostgresStore) Save(ctx context.Context, s Snapshot) error {
	payload, err := json.Marshal(s.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO vdf_snapshots (run_id, ticker, generated_at, as_of, result) VALUES ($1, $2, $3, $4, $5)`,
		s.RunID, strings.ToUpper(s.Ticker), s.GeneratedAt, s.AsOf, payload)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", s.Ticker, err)
	}
	return nil
}

func (p *PostgresStore) Latest(ctx context.Context, ticker string) (Snapshot, error) {
	list, err := p.History(ctx, ticker, 1)
	if err != nil {
		return Snapshot{}, err
	}
	if len(list) == 0 {
		return Snapshot{}, ErrNotFound
	}
	return list[0], nil
}

// History returns up to limit snapshots for ticker, newest first. limit <= 0 means 100.
func (p *PostgresStore) History(ctx context.Context, ticker string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx,
		`SELECT run_id, ticker, generated_at, as_of, result FROM vdf_snapshots
		 WHERE ticker = $1 ORDER BY generated_at DESC LIMIT $2`,
		strings.ToUpper(ticker), limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var s Snapshot
	var runID string
	var payload []byte
	if err := row.Scan(&runID, &s.Ticker, &s.GeneratedAt, &s.AsOf, &payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	id, err := uuid.Parse(runID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("run id %q: %w", runID, err)
	}
	s.RunID = id
	if err := json.Unmarshal(payload, &s.Result); err != nil {
		return Snapshot{}, fmt.Errorf("decode result: %w", err)
	}
	return s, nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
