package brain

import (
	"context"
	"fmt"
	"sync"

	"github.com/betbot/wfmtrader/internal/domain"
)

type call struct {
	op    string // create / update / delete
	item  string
	side  domain.Side
	price int64
	qty   int64
	id    string
}

type fakeOrders struct {
	mu    sync.Mutex
	live  map[string][]domain.LiveOrder
	own   domain.OwnOrders
	calls []call
	next  int
	err   error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{live: map[string][]domain.LiveOrder{}}
}

func (f *fakeOrders) ListLiveOrders(_ context.Context, item string) ([]domain.LiveOrder, error) {
	return f.live[item], f.err
}

func (f *fakeOrders) ListOwnOrders(context.Context) (domain.OwnOrders, error) {
	return f.own, f.err
}

func (f *fakeOrders) CreateOrder(_ context.Context, req domain.OrderRequest) (domain.OwnOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.OwnOrder{}, f.err
	}
	f.next++
	id := fmt.Sprintf("new-%d", f.next)
	f.calls = append(f.calls, call{op: "create", item: req.ItemURL, side: req.Side, price: req.Platinum, qty: req.Quantity, id: id})
	return domain.OwnOrder{
		ID: id, ItemURL: req.ItemURL, ItemID: req.ItemID, Side: req.Side,
		Platinum: req.Platinum, Quantity: req.Quantity, Visible: req.Visible, ModRank: req.Rank,
	}, nil
}

func (f *fakeOrders) UpdateOrder(_ context.Context, id string, req domain.OrderRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: "update", item: req.ItemURL, side: req.Side, price: req.Platinum, qty: req.Quantity, id: id})
	return f.err
}

func (f *fakeOrders) DeleteOrder(_ context.Context, id, item string, side domain.Side) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: "delete", item: item, side: side, id: id})
	return f.err
}

func (f *fakeOrders) mutations() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type fakeInventory struct {
	records map[string]*domain.InventoryRecord
	prices  map[string]*int64
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{records: map[string]*domain.InventoryRecord{}, prices: map[string]*int64{}}
}

func (f *fakeInventory) own(item string, owned int64, price float64) {
	f.records[item] = &domain.InventoryRecord{ItemURL: item, ItemID: "id-" + item, Owned: owned, Price: price}
}

func (f *fakeInventory) InventoryNames(context.Context) ([]string, error) {
	var out []string
	for name, r := range f.records {
		if r.Owned > 0 {
			out = append(out, name)
		}
	}
	return out, nil
}

func (f *fakeInventory) Inventory(_ context.Context, item string) (*domain.InventoryRecord, error) {
	r, ok := f.records[item]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeInventory) SetInventoryPrice(_ context.Context, item string, price *int64) error {
	f.prices[item] = price
	return nil
}

type fakeCatalog struct{}

func (fakeCatalog) Item(_ context.Context, url string) (domain.ItemInfo, error) {
	return domain.ItemInfo{ID: "id-" + url, URLName: url}, nil
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(message string, _ bool) { f.messages = append(f.messages, message) }

type me string

func (m me) IngameName() string { return string(m) }

func buyer(price int64) domain.LiveOrder {
	return domain.LiveOrder{Username: fmt.Sprintf("b%d", price), OrderType: domain.SideBuy, Platinum: price, Visible: true}
}

func seller(price int64) domain.LiveOrder {
	return domain.LiveOrder{Username: fmt.Sprintf("s%d", price), OrderType: domain.SideSell, Platinum: price, Visible: true}
}
