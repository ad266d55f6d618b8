package brain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/common"
	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/betbot/wfmtrader/internal/events"
	"github.com/betbot/wfmtrader/internal/metrics"
	"github.com/betbot/wfmtrader/internal/ports"
	"github.com/betbot/wfmtrader/pkg/config"
	"github.com/betbot/wfmtrader/pkg/orderbook"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "brain")

// Deps are the engine's collaborators. Notifier, Events and Catalog may be nil.
type Deps struct {
	Orders    ports.OrderManager
	Inventory ports.Inventory
	Catalog   ports.ItemCatalog
	Notifier  ports.Notifier
	Events    ports.EventPublisher
	Identity  ports.Identity
	Book      *orderbook.OwnBook

	// UndercutNotifyInterval throttles the per-item undercut notification;
	// zero notifies on every pass.
	UndercutNotifyInterval time.Duration
}

// Engine decides and places buy and sell orders, one item at a time. All
// thresholds come from the settings snapshot passed into each call.
type Engine struct {
	orders    ports.OrderManager
	inventory ports.Inventory
	catalog   ports.ItemCatalog
	notifier  ports.Notifier
	events    ports.EventPublisher
	identity  ports.Identity
	book      *orderbook.OwnBook
	undercut  *common.Debouncer
}

func New(d Deps) *Engine {
	book := d.Book
	if book == nil {
		book = orderbook.NewOwnBook()
	}
	return &Engine{
		orders:    d.Orders,
		inventory: d.Inventory,
		catalog:   d.Catalog,
		notifier:  d.Notifier,
		events:    d.Events,
		identity:  d.Identity,
		book:      book,
		undercut:  common.NewDebouncer(d.UndercutNotifyInterval),
	}
}

// Book exposes the own-order view.
func (e *Engine) Book() *orderbook.OwnBook { return e.book }

// BeginPass syncs the own-order book with the marketplace. Own buy orders for
// items in rows take part in budget optimization.
func (e *Engine) BeginPass(ctx context.Context, rows []domain.OverlapRow) error {
	own, err := e.orders.ListOwnOrders(ctx)
	if err != nil {
		return fmt.Errorf("list own orders: %w", err)
	}
	closedAvg := make(map[string]float64, len(rows))
	for _, r := range rows {
		closedAvg[r.Name] = r.ClosedAvg
	}
	e.book.Reset(own, closedAvg)
	log.Debugf("own orders synced: buy=%d sell=%d", len(own.Buy), len(own.Sell))
	return nil
}

// ProcessItem runs the buy decision (only when row is non-nil) and then the
// sell decision for one item. Blacklisted items are left untouched.
func (e *Engine) ProcessItem(ctx context.Context, s config.Settings, item string, row *domain.OverlapRow) error {
	if item == "" || s.IsBlacklisted(item) {
		return nil
	}
	for _, side := range []domain.Side{domain.SideBuy, domain.SideSell} {
		if e.book.Duplicated(item, side) {
			return apperr.Dataf("brain.ProcessItem", item, "more than one own %s order", side)
		}
	}

	live, err := e.orders.ListLiveOrders(ctx, item)
	if err != nil {
		return fmt.Errorf("list live orders: %w", err)
	}
	// emptiness is judged before the operator's own orders are filtered out
	if len(live) == 0 {
		log.Debugf("no live orders for %s, skipped", item)
		return nil
	}
	lb := newLiveBook(live, e.ingameName())

	if row != nil {
		if err := e.decideBuy(ctx, s, item, row, lb); err != nil {
			return err
		}
	}
	return e.decideSell(ctx, s, item, row, lb)
}

func (e *Engine) ingameName() string {
	if e.identity == nil {
		return ""
	}
	return e.identity.IngameName()
}

// itemMeta resolves item_id and rank, preferring the analytics row.
func (e *Engine) itemMeta(ctx context.Context, item string, row *domain.OverlapRow) (string, *int64, error) {
	if row != nil && row.ItemID != "" {
		return row.ItemID, row.Rank(), nil
	}
	if e.catalog == nil {
		return "", nil, apperr.Dataf("brain.itemMeta", item, "no item metadata available")
	}
	info, err := e.catalog.Item(ctx, item)
	if err != nil {
		return "", nil, fmt.Errorf("item metadata: %w", err)
	}
	return info.ID, info.ModMaxRank, nil
}

func (e *Engine) notify(message string, ping bool) {
	if e.notifier != nil {
		e.notifier.Notify(message, ping)
	}
}

func (e *Engine) publish(kind string, o domain.OwnOrder) {
	if e.events != nil {
		e.events.Publish(kind, events.OrderEvent{Order: o, Timestamp: time.Now()})
	}
}

func (e *Engine) create(ctx context.Context, req domain.OrderRequest) (domain.OwnOrder, error) {
	o, err := e.orders.CreateOrder(ctx, req)
	if err != nil {
		return domain.OwnOrder{}, fmt.Errorf("create %s order: %w", req.Side, err)
	}
	if o.ItemURL == "" {
		o.ItemURL = req.ItemURL
	}
	if o.Side == "" {
		o.Side = req.Side
	}
	metrics.OrdersCreated.Add(1)
	e.publish(events.KindOrderCreated, o)
	return o, nil
}

func (e *Engine) update(ctx context.Context, own domain.OwnOrder, price, quantity int64) (domain.OwnOrder, error) {
	req := domain.OrderRequest{
		ItemURL:  own.ItemURL,
		ItemID:   own.ItemID,
		Side:     own.Side,
		Platinum: price,
		Quantity: quantity,
		Visible:  own.Visible,
		Rank:     own.ModRank,
	}
	if err := e.orders.UpdateOrder(ctx, own.ID, req); err != nil {
		return domain.OwnOrder{}, fmt.Errorf("update %s order: %w", own.Side, err)
	}
	own.Platinum = price
	own.Quantity = quantity
	metrics.OrdersUpdated.Add(1)
	e.publish(events.KindOrderUpdated, own)
	return own, nil
}

func (e *Engine) remove(ctx context.Context, id, item string, side domain.Side) error {
	if err := e.orders.DeleteOrder(ctx, id, item, side); err != nil {
		return fmt.Errorf("delete %s order: %w", side, err)
	}
	e.book.Remove(id)
	metrics.OrdersDeleted.Add(1)
	e.publish(events.KindOrderDeleted, domain.OwnOrder{ID: id, ItemURL: item, Side: side})
	return nil
}

// liveBook is the competing order book for one item: buys by price
// descending, sells by price ascending.
type liveBook struct {
	buys  []domain.LiveOrder
	sells []domain.LiveOrder
}

func newLiveBook(orders []domain.LiveOrder, me string) liveBook {
	var lb liveBook
	for _, o := range orders {
		if me != "" && o.Username == me {
			continue
		}
		switch o.OrderType {
		case domain.SideBuy:
			lb.buys = append(lb.buys, o)
		case domain.SideSell:
			lb.sells = append(lb.sells, o)
		}
	}
	sort.SliceStable(lb.buys, func(i, j int) bool { return lb.buys[i].Platinum > lb.buys[j].Platinum })
	sort.SliceStable(lb.sells, func(i, j int) bool { return lb.sells[i].Platinum < lb.sells[j].Platinum })
	return lb
}

// spread is lowest ask minus highest bid; a missing side counts as 0.
func (lb liveBook) spread() int64 {
	var bid, ask int64
	if len(lb.buys) > 0 {
		bid = lb.buys[0].Platinum
	}
	if len(lb.sells) > 0 {
		ask = lb.sells[0].Platinum
	}
	return ask - bid
}
