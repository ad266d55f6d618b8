package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/domain"
)

func insertTransaction(ctx context.Context, tx *sql.Tx, item, itemID string, typ domain.TransactionType, qty, price int64, ts string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO transactions (item_url, item_id, type, quantity, price, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, item, itemID, string(typ), qty, price, ts)
	return err
}

// Transactions returns the newest transactions first; limit <= 0 means all.
func (s *Store) Transactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	q := `SELECT id, item_url, type, quantity, price, created_at FROM transactions ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.IO("store.Transactions", err)
	}
	defer rows.Close()
	var out []domain.Transaction
	for rows.Next() {
		var (
			t   domain.Transaction
			typ string
			ts  string
		)
		if err := rows.Scan(&t.ID, &t.ItemURL, &typ, &t.Quantity, &t.Price, &ts); err != nil {
			return nil, apperr.IO("store.Transactions", err)
		}
		t.Type = domain.TransactionType(typ)
		t.CreatedAt, _ = time.Parse(timeLayout, ts)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.IO("store.Transactions", err)
	}
	return out, nil
}
