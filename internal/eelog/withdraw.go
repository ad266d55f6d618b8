package eelog

import (
	"context"
	"fmt"

	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/betbot/wfmtrader/internal/metrics"
	"github.com/betbot/wfmtrader/internal/ports"
	"github.com/betbot/wfmtrader/internal/store"
)

// Stock is the part of the local store the withdrawer updates.
type Stock interface {
	AddPurchase(ctx context.Context, ref store.ItemRef, qty, price int64) (*domain.InventoryRecord, error)
	RecordSale(ctx context.Context, item string, qty, price int64) (int64, error)
}

type WithdrawerDeps struct {
	Stock    Stock
	Orders   ports.OrderManager
	Catalog  ports.ItemCatalog
	Notifier ports.Notifier
	Waker    ports.Waker
	Ping     bool
}

// Withdrawer reacts to completed in-game trades: it books them into the
// local stock and pulls listings that no longer have anything behind them.
type Withdrawer struct {
	deps WithdrawerDeps
}

func NewWithdrawer(d WithdrawerDeps) *Withdrawer {
	return &Withdrawer{deps: d}
}

func (w *Withdrawer) HandleTrade(ctx context.Context, t domain.Trade) error {
	var err error
	switch t.Classification {
	case domain.TradeSale:
		err = w.sale(ctx, t)
	case domain.TradePurchase:
		err = w.purchase(ctx, t)
	default:
		w.notify(fmt.Sprintf("Trade with %s completed (%d offered, %d received)", t.Player, len(t.Offered), len(t.Received)))
		return nil
	}
	if err == nil {
		metrics.TradesBooked.Add(1)
	}
	if w.deps.Waker != nil {
		w.deps.Waker.Wake()
	}
	return err
}

func (w *Withdrawer) sale(ctx context.Context, t domain.Trade) error {
	units := totalQuantity(t.Offered)
	var own *domain.OwnOrders
	for _, it := range t.Offered {
		item := URLName(it.Name)
		price := unitPrice(t.PlatinumGot, units)
		left, err := w.deps.Stock.RecordSale(ctx, item, it.Quantity, price)
		if err != nil {
			return err
		}
		w.notify(fmt.Sprintf("Sold %s x%d to %s for %d platinum", it.Name, it.Quantity, t.Player, t.PlatinumGot))

		if own == nil {
			orders, err := w.deps.Orders.ListOwnOrders(ctx)
			if err != nil {
				return err
			}
			own = &orders
		}
		o := findOrder(own.Sell, item)
		if o == nil {
			continue
		}
		if left == 0 {
			log.Infof("sold out of %s, withdrawing sell order %s", item, o.ID)
			if err := w.deps.Orders.DeleteOrder(ctx, o.ID, item, domain.SideSell); err != nil {
				return err
			}
			continue
		}
		if o.Quantity != left {
			req := domain.OrderRequest{
				ItemURL: item, ItemID: o.ItemID, Side: domain.SideSell,
				Platinum: o.Platinum, Quantity: left, Visible: o.Visible, Rank: o.ModRank,
			}
			if err := w.deps.Orders.UpdateOrder(ctx, o.ID, req); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Withdrawer) purchase(ctx context.Context, t domain.Trade) error {
	units := totalQuantity(t.Received)
	var own *domain.OwnOrders
	for _, it := range t.Received {
		item := URLName(it.Name)
		ref := store.ItemRef{URL: item, Name: it.Name, Rank: it.Rank}
		if w.deps.Catalog != nil {
			if info, err := w.deps.Catalog.Item(ctx, item); err == nil {
				ref.ID = info.ID
			} else {
				log.Warnf("item metadata for %s: %v", item, err)
			}
		}
		price := unitPrice(t.PlatinumPaid, units)
		if _, err := w.deps.Stock.AddPurchase(ctx, ref, it.Quantity, price); err != nil {
			return err
		}
		w.notify(fmt.Sprintf("Bought %s x%d from %s for %d platinum", it.Name, it.Quantity, t.Player, t.PlatinumPaid))

		if own == nil {
			orders, err := w.deps.Orders.ListOwnOrders(ctx)
			if err != nil {
				return err
			}
			own = &orders
		}
		if o := findOrder(own.Buy, item); o != nil {
			log.Infof("buy order %s for %s filled, withdrawing", o.ID, item)
			if err := w.deps.Orders.DeleteOrder(ctx, o.ID, item, domain.SideBuy); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Withdrawer) notify(msg string) {
	if w.deps.Notifier != nil {
		w.deps.Notifier.Notify(msg, w.deps.Ping)
	}
}

func findOrder(orders []domain.OwnOrder, item string) *domain.OwnOrder {
	for i := range orders {
		if orders[i].ItemURL == item {
			return &orders[i]
		}
	}
	return nil
}

func totalQuantity(items []domain.TradeItem) int64 {
	var n int64
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// unitPrice splits a trade's platinum evenly over its units, rounding down.
func unitPrice(plat, units int64) int64 {
	if units <= 0 {
		return plat
	}
	return plat / units
}
