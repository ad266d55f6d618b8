package orderbook

import (
	"sort"
	"sync"

	"github.com/betbot/wfmtrader/internal/domain"
)

type entry struct {
	order    domain.OwnOrder
	budgeted bool // 参与预算优化（物品在本轮分析集合中）
}

// OwnBook 本账号挂单的本地视图（每轮开始时从市场同步，下单/改单/撤单后即时更新）
type OwnBook struct {
	mu         sync.RWMutex
	byKey      map[string]*entry // (物品, 方向) -> 挂单
	byID       map[string]string // 订单 ID -> key
	duplicates map[string]int    // 同一 (物品, 方向) 出现多个挂单的次数
}

// NewOwnBook 创建空的挂单簿
func NewOwnBook() *OwnBook {
	return &OwnBook{
		byKey:      make(map[string]*entry),
		byID:       make(map[string]string),
		duplicates: make(map[string]int),
	}
}

// Reset 用市场返回的挂单重建挂单簿。
// closedAvg 中存在的物品的买单参与预算优化，potential_profit = closedAvg - platinum。
func (b *OwnBook) Reset(orders domain.OwnOrders, closedAvg map[string]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byKey = make(map[string]*entry)
	b.byID = make(map[string]string)
	b.duplicates = make(map[string]int)

	add := func(o domain.OwnOrder) {
		key := o.Key()
		if _, exists := b.byKey[key]; exists {
			b.duplicates[key]++
			return
		}
		e := &entry{order: o}
		if o.Side == domain.SideBuy {
			if avg, ok := closedAvg[o.ItemURL]; ok {
				e.budgeted = true
				e.order.ClosedAvg = avg
				e.order.PotentialProfit = avg - float64(o.Platinum)
			}
		}
		b.byKey[key] = e
		b.byID[o.ID] = key
	}
	for _, o := range orders.Buy {
		add(o)
	}
	for _, o := range orders.Sell {
		add(o)
	}
}

// Get 返回 (物品, 方向) 上的挂单
func (b *OwnBook) Get(item string, side domain.Side) (domain.OwnOrder, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.byKey[domain.OrderKey(item, side)]
	if !ok {
		return domain.OwnOrder{}, false
	}
	return e.order, true
}

// Duplicated 最近一次 Reset 时 (物品, 方向) 上是否出现多个挂单
func (b *OwnBook) Duplicated(item string, side domain.Side) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.duplicates[domain.OrderKey(item, side)] > 0
}

// Put 新增或替换挂单；budgeted 决定是否参与预算优化
func (b *OwnBook) Put(order domain.OwnOrder, budgeted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := order.Key()
	if old, ok := b.byKey[key]; ok && old.order.ID != order.ID {
		delete(b.byID, old.order.ID)
	}
	b.byKey[key] = &entry{order: order, budgeted: budgeted}
	b.byID[order.ID] = key
}

// Remove 按订单 ID 移除挂单
func (b *OwnBook) Remove(orderID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	key, ok := b.byID[orderID]
	if !ok {
		return false
	}
	delete(b.byID, orderID)
	delete(b.byKey, key)
	return true
}

// Candidates 参与预算优化的买单（按物品名排序）
func (b *OwnBook) Candidates() []domain.Candidate {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.Candidate, 0, len(b.byKey))
	for _, e := range b.byKey {
		if e.order.Side != domain.SideBuy || !e.budgeted {
			continue
		}
		out = append(out, domain.Candidate{
			Cost:     e.order.Platinum,
			Value:    e.order.PotentialProfit,
			ItemName: e.order.ItemURL,
			OrderID:  e.order.ID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemName < out[j].ItemName })
	return out
}

// Orders 返回挂单快照（控制面 /api/live-trader/orders）
func (b *OwnBook) Orders() domain.OwnOrders {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := domain.OwnOrders{Buy: []domain.OwnOrder{}, Sell: []domain.OwnOrder{}}
	for _, e := range b.byKey {
		if e.order.Side == domain.SideBuy {
			out.Buy = append(out.Buy, e.order)
		} else {
			out.Sell = append(out.Sell, e.order)
		}
	}
	sort.Slice(out.Buy, func(i, j int) bool { return out.Buy[i].ItemURL < out.Buy[j].ItemURL })
	sort.Slice(out.Sell, func(i, j int) bool { return out.Sell[i].ItemURL < out.Sell[j].ItemURL })
	return out
}

// NumOrders 挂单数量
func (b *OwnBook) NumOrders() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byKey)
}

// CommittedCapital 参与预算的买单占用资金
func (b *OwnBook) CommittedCapital() int64 {
	var total int64
	for _, c := range b.Candidates() {
		total += c.Cost
	}
	return total
}
