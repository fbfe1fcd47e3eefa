package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"candybowl/internal/apperr"

	_ "modernc.org/sqlite"
)

const (
	sqliteDirMode  = 0o755
	sqliteFileMode = 0o600
)

// SQLiteBackend keeps the same snapshot semantics as CSVBackend inside a
// single SQLite table. Row order is the insertion position column.
type SQLiteBackend struct {
	path string
	db   *sql.DB
}

func OpenSQLite(path string) (*SQLiteBackend, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ledger: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), sqliteDirMode); err != nil {
		return nil, fmt.Errorf("ledger: create dir: %w", err)
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	b := &SQLiteBackend{path: path, db: db}
	if err := b.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := os.Chmod(path, sqliteFileMode); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *SQLiteBackend) migrate(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_items (
			position            INTEGER NOT NULL,
			item_id             TEXT PRIMARY KEY,
			item_name           TEXT NOT NULL,
			link                TEXT NOT NULL DEFAULT '',
			quantity            INTEGER NOT NULL CHECK (quantity >= 0),
			unit_cost_usd       REAL NOT NULL DEFAULT 0,
			unit_sell_price_usd REAL NOT NULL DEFAULT 0,
			description         TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Load(ctx context.Context) ([]Item, error) {
	const op = "ledger.sqlite.load"
	rows, err := b.db.QueryContext(ctx, `
		SELECT item_id, item_name, link, quantity, unit_cost_usd, unit_sell_price_usd, description
		FROM ledger_items ORDER BY position`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, op, err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Link, &it.Quantity, &it.UnitCostUSD, &it.UnitSellPriceUSD, &it.Description); err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, op, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, op, err)
	}
	return items, nil
}

func (b *SQLiteBackend) Save(ctx context.Context, items []Item) error {
	const op = "ledger.sqlite.save"
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_items`); err != nil {
		return apperr.Wrap(apperr.KindStorage, op, err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_items (
			position, item_id, item_name, link, quantity, unit_cost_usd, unit_sell_price_usd, description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, op, err)
	}
	defer stmt.Close()

	for i, it := range items {
		if _, err := stmt.ExecContext(ctx, i, it.ID, it.Name, it.Link, it.Quantity, it.UnitCostUSD, it.UnitSellPriceUSD, it.Description); err != nil {
			return apperr.Wrap(apperr.KindStorage, op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindStorage, op, err)
	}
	return nil
}
