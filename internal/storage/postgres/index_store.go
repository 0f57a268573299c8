// Package postgres mirrors the crawl index into a Postgres catalog table.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/jorei-crawler/internal/jorei"
)

const defaultTable = "jorei_index"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// IndexStoreConfig controls the Postgres connection pool used for index rows.
type IndexStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// IndexStore upserts index entries keyed by record id. Re-running a crawl
// over an overlapping range replaces the earlier row.
type IndexStore struct {
	pool  execCloser
	table string
}

// NewIndexStore creates a Postgres-backed IndexStore using the provided config.
func NewIndexStore(ctx context.Context, cfg IndexStoreConfig) (*IndexStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("catalog.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &IndexStore{pool: pool, table: table}, nil
}

// NewIndexStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewIndexStoreWithPool(pool execCloser, table string) (*IndexStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &IndexStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *IndexStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// StoreEntries upserts entries in order, stopping at the first failure.
func (s *IndexStore) StoreEntries(ctx context.Context, runID uuid.UUID, entries []jorei.IndexEntry) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("index store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	reiki_id,
	title,
	prefecture,
	city,
	announcement_date,
	updated_date,
	run_id
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)
ON CONFLICT (id) DO UPDATE SET
	reiki_id = EXCLUDED.reiki_id,
	title = EXCLUDED.title,
	prefecture = EXCLUDED.prefecture,
	city = EXCLUDED.city,
	announcement_date = EXCLUDED.announcement_date,
	updated_date = EXCLUDED.updated_date,
	run_id = EXCLUDED.run_id`, s.table)

	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("index entry id is required")
		}
		args := []any{
			e.ID,
			e.ReikiID,
			e.Title,
			e.Prefecture,
			e.City,
			sqlDate(e.AnnouncementDate),
			sqlDate(e.UpdatedDate),
			runID,
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert index entry %s: %w", e.ID, err)
		}
	}
	return nil
}

func sqlDate(d *jorei.Date) any {
	if d == nil {
		return nil
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}
