package orderbook

import (
	"testing"

	"github.com/betbot/wfmtrader/internal/domain"
)

func TestOwnBookResetAndCandidates(t *testing.T) {
	b := NewOwnBook()
	b.Reset(domain.OwnOrders{
		Buy: []domain.OwnOrder{
			{ID: "1", ItemURL: "a", Side: domain.SideBuy, Platinum: 40},
			{ID: "2", ItemURL: "b", Side: domain.SideBuy, Platinum: 10},
			{ID: "3", ItemURL: "a", Side: domain.SideBuy, Platinum: 41},
		},
		Sell: []domain.OwnOrder{{ID: "4", ItemURL: "a", Side: domain.SideSell, Platinum: 90}},
	}, map[string]float64{"a": 100})

	if !b.Duplicated("a", domain.SideBuy) {
		t.Fatalf("expected duplicate buy order for a")
	}
	if b.Duplicated("a", domain.SideSell) {
		t.Fatalf("sell side should not be duplicated")
	}

	cands := b.Candidates()
	if len(cands) != 1 || cands[0].ItemName != "a" || cands[0].Value != 60 || cands[0].OrderID != "1" {
		t.Fatalf("unexpected candidates: %+v", cands)
	}
	if b.CommittedCapital() != 40 {
		t.Fatalf("committed=%d", b.CommittedCapital())
	}
}

func TestOwnBookPutRemove(t *testing.T) {
	b := NewOwnBook()
	b.Put(domain.OwnOrder{ID: "x", ItemURL: "c", Side: domain.SideBuy, Platinum: 5, PotentialProfit: 20}, true)
	if got, ok := b.Get("c", domain.SideBuy); !ok || got.ID != "x" {
		t.Fatalf("get after put: %+v %v", got, ok)
	}
	if !b.Remove("x") {
		t.Fatalf("remove failed")
	}
	if b.Remove("x") {
		t.Fatalf("second remove should report false")
	}
	if _, ok := b.Get("c", domain.SideBuy); ok {
		t.Fatalf("order still present")
	}
}

func TestOwnBookOrdersSnapshot(t *testing.T) {
	b := NewOwnBook()
	b.Reset(domain.OwnOrders{
		Buy:  []domain.OwnOrder{{ID: "2", ItemURL: "b", Side: domain.SideBuy}, {ID: "1", ItemURL: "a", Side: domain.SideBuy}},
		Sell: []domain.OwnOrder{{ID: "3", ItemURL: "c", Side: domain.SideSell}},
	}, nil)
	b.Put(domain.OwnOrder{ID: "4", ItemURL: "d", Side: domain.SideSell}, false)
	b.Remove("2")

	got := b.Orders()
	if len(got.Buy) != 1 || got.Buy[0].ID != "1" {
		t.Fatalf("buy side: %+v", got.Buy)
	}
	if len(got.Sell) != 2 || got.Sell[0].ItemURL != "c" || got.Sell[1].ItemURL != "d" {
		t.Fatalf("sell side: %+v", got.Sell)
	}
	if b.NumOrders() != 3 {
		t.Fatalf("num=%d", b.NumOrders())
	}
}
