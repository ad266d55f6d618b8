package brain

import (
	"context"
	"fmt"

	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/betbot/wfmtrader/pkg/config"
)

// DeleteAllOrders cancels every own order whose item is not blacklisted and
// clears the tracked listing price of cancelled sell orders.
func (e *Engine) DeleteAllOrders(ctx context.Context, s config.Settings) (int, error) {
	own, err := e.orders.ListOwnOrders(ctx)
	if err != nil {
		return 0, fmt.Errorf("list own orders: %w", err)
	}
	e.book.Reset(own, nil)

	deleted := 0
	for _, o := range own.Sell {
		if s.IsBlacklisted(o.ItemURL) {
			continue
		}
		if err := e.inventory.SetInventoryPrice(ctx, o.ItemURL, nil); err != nil {
			return deleted, err
		}
		if err := e.remove(ctx, o.ID, o.ItemURL, domain.SideSell); err != nil {
			return deleted, err
		}
		deleted++
	}
	for _, o := range own.Buy {
		if s.IsBlacklisted(o.ItemURL) {
			continue
		}
		if err := e.remove(ctx, o.ID, o.ItemURL, domain.SideBuy); err != nil {
			return deleted, err
		}
		deleted++
	}
	log.Infof("deleted %d own orders", deleted)
	return deleted, nil
}
