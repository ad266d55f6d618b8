// Package store is the local sqlite database: the price history cache the
// analyzer reads, the stock the trader owns, and the transaction ledger.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var log = logrus.WithField("module", "store")

const timeLayout = time.RFC3339

// DefaultLookback covers seven daily closed rows plus the current day.
const DefaultLookback = 8 * 24 * time.Hour

// Store wraps the sqlite connection.
type Store struct {
	db       *sql.DB
	lookback time.Duration
	now      func() time.Time
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer; the trader and the log watcher share the handle
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	s := &Store{db: db, lookback: DefaultLookback, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	log.Infof("opened %s", path)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	version := 0
	_ = s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS price_history (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				name       TEXT NOT NULL,
				item_id    TEXT NOT NULL,
				order_type TEXT NOT NULL,
				volume     REAL NOT NULL,
				min_price  REAL NOT NULL,
				max_price  REAL NOT NULL,
				price_range REAL NOT NULL,
				median     REAL NOT NULL,
				avg_price  REAL NOT NULL,
				mod_rank   REAL NOT NULL DEFAULT 0,
				datetime   TEXT NOT NULL,
				UNIQUE(name, order_type, mod_rank, datetime)
			);
			CREATE INDEX IF NOT EXISTS idx_price_history_dt ON price_history(datetime);
			CREATE INDEX IF NOT EXISTS idx_price_history_name ON price_history(name);

			CREATE TABLE IF NOT EXISTS stock_items (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				item_url     TEXT NOT NULL UNIQUE,
				item_id      TEXT NOT NULL,
				name         TEXT NOT NULL DEFAULT '',
				rank         INTEGER,
				owned        INTEGER NOT NULL DEFAULT 0,
				price        REAL NOT NULL DEFAULT 0,
				listed_price INTEGER,
				updated_at   TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS transactions (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				item_url   TEXT NOT NULL,
				item_id    TEXT NOT NULL DEFAULT '',
				type       TEXT NOT NULL,
				quantity   INTEGER NOT NULL,
				price      INTEGER NOT NULL,
				created_at TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_transactions_item ON transactions(item_url);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		log.Infof("applied migration v1")
	}
	return nil
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
