package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/domain"
)

// ItemRef identifies an item when stock is added.
type ItemRef struct {
	URL  string
	ID   string
	Name string
	Rank *int64
}

// InventoryNames lists items with at least one unit owned.
func (s *Store) InventoryNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT item_url FROM stock_items WHERE owned > 0 ORDER BY item_url`)
	if err != nil {
		return nil, apperr.IO("store.InventoryNames", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperr.IO("store.InventoryNames", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.IO("store.InventoryNames", err)
	}
	return out, nil
}

// Inventory returns the stock row for item, or nil when there is none.
func (s *Store) Inventory(ctx context.Context, item string) (*domain.InventoryRecord, error) {
	rec, err := s.inventory(ctx, s.db, item)
	if err != nil {
		return nil, apperr.IO("store.Inventory", err)
	}
	return rec, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) inventory(ctx context.Context, q querier, item string) (*domain.InventoryRecord, error) {
	var (
		rec     domain.InventoryRecord
		rank    sql.NullInt64
		listed  sql.NullInt64
		updated string
	)
	err := q.QueryRowContext(ctx, `SELECT item_url, item_id, name, rank, owned, price, listed_price, updated_at
		FROM stock_items WHERE item_url = ?`, item).
		Scan(&rec.ItemURL, &rec.ItemID, &rec.Name, &rank, &rec.Owned, &rec.Price, &listed, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Rank = intPtr(rank)
	rec.ListedPrice = intPtr(listed)
	rec.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return &rec, nil
}

// SetInventoryPrice records the listed price; nil clears it. Unknown items are
// ignored.
func (s *Store) SetInventoryPrice(ctx context.Context, item string, price *int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE stock_items SET listed_price = ?, updated_at = ? WHERE item_url = ?`,
		nullInt(price), s.now().UTC().Format(timeLayout), item)
	if err != nil {
		return apperr.IO("store.SetInventoryPrice", err)
	}
	return nil
}

// AddPurchase adds qty units bought at price each, folding them into the
// weighted average cost, and records the purchase.
func (s *Store) AddPurchase(ctx context.Context, ref ItemRef, qty, price int64) (*domain.InventoryRecord, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("add purchase %s: quantity must be positive, got %d", ref.URL, qty)
	}
	now := s.now().UTC()
	var out *domain.InventoryRecord
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := s.inventory(ctx, tx, ref.URL)
		if err != nil {
			return err
		}
		ts := now.Format(timeLayout)
		if cur == nil {
			_, err = tx.ExecContext(ctx, `INSERT INTO stock_items (item_url, item_id, name, rank, owned, price, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`, ref.URL, ref.ID, ref.Name, nullInt(ref.Rank), qty, float64(price), ts)
		} else {
			avg := WeightedAverage(cur.Price, cur.Owned, price, qty)
			_, err = tx.ExecContext(ctx, `UPDATE stock_items SET owned = owned + ?, price = ?, updated_at = ? WHERE item_url = ?`,
				qty, avg, ts, ref.URL)
		}
		if err != nil {
			return err
		}
		if err := insertTransaction(ctx, tx, ref.URL, ref.ID, domain.TransactionPurchase, qty, price, ts); err != nil {
			return err
		}
		out, err = s.inventory(ctx, tx, ref.URL)
		return err
	})
	if err != nil {
		return nil, apperr.IO("store.AddPurchase", err)
	}
	return out, nil
}

// RecordSale removes qty sold units at price each and records the sale. It
// returns the units still owned; a row that reaches zero is deleted.
func (s *Store) RecordSale(ctx context.Context, item string, qty, price int64) (int64, error) {
	now := s.now().UTC().Format(timeLayout)
	var remaining int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := s.inventory(ctx, tx, item)
		if err != nil {
			return err
		}
		itemID := ""
		if cur != nil {
			itemID = cur.ItemID
			remaining = cur.Owned - qty
			if remaining < 0 {
				remaining = 0
			}
			if remaining == 0 {
				_, err = tx.ExecContext(ctx, `DELETE FROM stock_items WHERE item_url = ?`, item)
			} else {
				_, err = tx.ExecContext(ctx, `UPDATE stock_items SET owned = ?, updated_at = ? WHERE item_url = ?`,
					remaining, now, item)
			}
			if err != nil {
				return err
			}
		}
		return insertTransaction(ctx, tx, item, itemID, domain.TransactionSale, qty, price, now)
	})
	if err != nil {
		return 0, apperr.IO("store.RecordSale", err)
	}
	return remaining, nil
}

// WeightedAverage folds qty units at price into owned units at avg.
func WeightedAverage(avg float64, owned, price, qty int64) float64 {
	if owned <= 0 {
		return float64(price)
	}
	total := decimal.NewFromFloat(avg).Mul(decimal.NewFromInt(owned)).
		Add(decimal.NewFromInt(price).Mul(decimal.NewFromInt(qty)))
	v, _ := total.Div(decimal.NewFromInt(owned + qty)).Round(2).Float64()
	return v
}
