// Package postgres provides the Postgres-backed posting store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AnonArchitect/career-crawler/internal/scraper"
)

// PostingStoreConfig controls the Postgres connection pool.
type PostingStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxPool is the slice of pgxpool.Pool the store needs; pgxmock implements
// it for tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostingStore persists postings keyed by URL. It is the dedupe authority:
// the unique constraint on url converts insert races into Duplicate results.
type PostingStore struct {
	pool  pgxPool
	clock scraper.Clock
}

// NewPostingStore connects a pool and returns the store.
func NewPostingStore(ctx context.Context, cfg PostingStoreConfig) (*PostingStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostingStore{pool: pool, clock: scraper.SystemClock{}}, nil
}

// NewPostingStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostingStoreWithPool(pool pgxPool, clock scraper.Clock) (*PostingStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if clock == nil {
		clock = scraper.SystemClock{}
	}
	return &PostingStore{pool: pool, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *PostingStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies the database is reachable.
func (s *PostingStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS postings (
	id BIGSERIAL PRIMARY KEY,
	company TEXT NOT NULL,
	title TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL UNIQUE,
	posted_at TIMESTAMPTZ,
	scraped_at TIMESTAMPTZ NOT NULL,
	notified BOOLEAN NOT NULL DEFAULT FALSE,
	applied BOOLEAN NOT NULL DEFAULT FALSE,
	ignored BOOLEAN NOT NULL DEFAULT FALSE
)`,
	`CREATE INDEX IF NOT EXISTS idx_postings_company ON postings (company)`,
	`CREATE INDEX IF NOT EXISTS idx_postings_notified ON postings (notified) WHERE NOT notified`,
	`CREATE INDEX IF NOT EXISTS idx_postings_scraped_at ON postings (scraped_at DESC)`,
}

// EnsureSchema creates the postings table and indexes when missing.
func (s *PostingStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// KnownURLs returns every stored posting URL. Loading this once per run lets
// the pipeline skip re-filtering candidates it has already seen; uniqueness
// itself is still enforced by the constraint on insert.
func (s *PostingStore) KnownURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT url FROM postings`)
	if err != nil {
		return nil, fmt.Errorf("select known urls: %w", err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		known[url] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate urls: %w", err)
	}
	return known, nil
}

// Insert persists p if its URL is new, stamping ScrapedAt. A conflicting URL
// (pre-existing or won by a concurrent writer) returns created=false with no
// error.
func (s *PostingStore) Insert(ctx context.Context, p scraper.Posting) (scraper.Posting, bool, error) {
	if p.Company == "" || p.Title == "" || p.URL == "" {
		return scraper.Posting{}, false, fmt.Errorf("posting requires company, title and url")
	}
	p.ScrapedAt = s.clock.Now().UTC()

	err := s.pool.QueryRow(ctx, `
INSERT INTO postings (company, title, location, description, url, posted_at, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (url) DO NOTHING
RETURNING id`,
		p.Company, p.Title, p.Location, p.Description, p.URL, p.PostedAt, p.ScrapedAt,
	).Scan(&p.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// The constraint absorbed a duplicate; benign.
		return scraper.Posting{}, false, nil
	}
	if err != nil {
		return scraper.Posting{}, false, fmt.Errorf("insert posting: %w", err)
	}
	return p, true, nil
}

const postingColumns = `id, company, title, location, description, url, posted_at, scraped_at, notified, applied, ignored`

// Unnotified returns postings eligible for alerting, newest first.
func (s *PostingStore) Unnotified(ctx context.Context) ([]scraper.Posting, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+postingColumns+`
FROM postings
WHERE NOT notified AND NOT applied AND NOT ignored
ORDER BY scraped_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select unnotified: %w", err)
	}
	return scanPostings(rows)
}

// MarkNotified flips the notified flag; the core never unsets it.
func (s *PostingStore) MarkNotified(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE postings SET notified = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return scraper.ErrNotFound
	}
	return nil
}

// UpdateStatus sets applied and/or ignored. Marking one true clears the
// other, keeping the two flags mutually exclusive.
func (s *PostingStore) UpdateStatus(ctx context.Context, id int64, applied, ignored *bool) error {
	if applied == nil && ignored == nil {
		return fmt.Errorf("no status change requested")
	}

	setApplied, setIgnored := applied, ignored
	if ignored != nil && *ignored {
		// Ignored wins when a request sets both flags.
		f := false
		setApplied = &f
	} else if applied != nil && *applied {
		f := false
		setIgnored = &f
	}

	tag, err := s.pool.Exec(ctx, `
UPDATE postings
SET applied = COALESCE($2, applied), ignored = COALESCE($3, ignored)
WHERE id = $1`,
		id, setApplied, setIgnored)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return scraper.ErrNotFound
	}
	return nil
}

// ListByStatus serves the dashboard views, newest first.
func (s *PostingStore) ListByStatus(ctx context.Context, view scraper.StatusView) ([]scraper.Posting, error) {
	var where string
	switch view {
	case scraper.ViewApplied:
		where = `applied`
	case scraper.ViewIgnored:
		where = `ignored`
	case scraper.ViewActive:
		where = `NOT applied AND NOT ignored`
	default:
		return nil, fmt.Errorf("unknown status view %q", view)
	}

	rows, err := s.pool.Query(ctx, `
SELECT `+postingColumns+`
FROM postings
WHERE `+where+`
ORDER BY scraped_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select by status: %w", err)
	}
	return scanPostings(rows)
}

func scanPostings(rows pgx.Rows) ([]scraper.Posting, error) {
	defer rows.Close()

	var out []scraper.Posting
	for rows.Next() {
		var p scraper.Posting
		if err := rows.Scan(
			&p.ID,
			&p.Company,
			&p.Title,
			&p.Location,
			&p.Description,
			&p.URL,
			&p.PostedAt,
			&p.ScrapedAt,
			&p.Notified,
			&p.Applied,
			&p.Ignored,
		); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postings: %w", err)
	}
	return out, nil
}
