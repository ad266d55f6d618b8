package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/domain"
)

const historyColumns = `name, item_id, order_type, volume, min_price, max_price, price_range, median, avg_price, mod_rank, datetime`

// InsertObservations upserts scraped statistics rows.
func (s *Store) InsertObservations(ctx context.Context, obs []domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO price_history (`+historyColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(name, order_type, mod_rank, datetime) DO UPDATE SET
				item_id = excluded.item_id, volume = excluded.volume,
				min_price = excluded.min_price, max_price = excluded.max_price,
				price_range = excluded.price_range, median = excluded.median, avg_price = excluded.avg_price`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()
		for _, o := range obs {
			if _, err := stmt.ExecContext(ctx, o.Name, o.ItemID, string(o.OrderType), o.Volume,
				o.MinPrice, o.MaxPrice, o.Range, o.Median, o.AvgPrice, o.ModRank,
				o.Datetime.UTC().Format(timeLayout)); err != nil {
				return fmt.Errorf("insert %s: %w", o.Name, err)
			}
		}
		return nil
	})
}

// AveragedHistory returns every observation inside the lookback window,
// ordered by item, order type and time.
func (s *Store) AveragedHistory(ctx context.Context) ([]domain.PriceObservation, error) {
	since := s.now().Add(-s.lookback).UTC().Format(timeLayout)
	rows, err := s.db.QueryContext(ctx, `SELECT `+historyColumns+` FROM price_history
		WHERE datetime >= ? ORDER BY name, order_type, datetime`, since)
	if err != nil {
		return nil, apperr.IO("store.AveragedHistory", err)
	}
	defer rows.Close()
	obs, err := scanObservations(rows)
	if err != nil {
		return nil, apperr.IO("store.AveragedHistory", err)
	}
	return obs, nil
}

// PruneHistory drops observations older than the cutoff.
func (s *Store) PruneHistory(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM price_history WHERE datetime < ?`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanObservations(rows *sql.Rows) ([]domain.PriceObservation, error) {
	var out []domain.PriceObservation
	for rows.Next() {
		var (
			o         domain.PriceObservation
			orderType string
			dt        string
		)
		if err := rows.Scan(&o.Name, &o.ItemID, &orderType, &o.Volume, &o.MinPrice, &o.MaxPrice,
			&o.Range, &o.Median, &o.AvgPrice, &o.ModRank, &dt); err != nil {
			return nil, err
		}
		o.OrderType = domain.OrderType(orderType)
		t, err := time.Parse(timeLayout, dt)
		if err != nil {
			return nil, fmt.Errorf("parse datetime %q: %w", dt, err)
		}
		o.Datetime = t
		out = append(out, o)
	}
	return out, rows.Err()
}
