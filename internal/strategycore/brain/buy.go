package brain

import (
	"context"

	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/betbot/wfmtrader/internal/strategycore/capital"
	"github.com/betbot/wfmtrader/pkg/config"
)

const (
	seedMinClosedAvg    = 25 // seed an empty buy side only above this closed average
	seedDiscount        = 40
	overexposurePerOne  = 25 // required profit per owned unit
	minMetric           = 30
	minSpreadWithProfit = 15
	minSpreadAlone      = 21
)

func (e *Engine) decideBuy(ctx context.Context, s config.Settings, item string, row *domain.OverlapRow, lb liveBook) error {
	own, active := e.book.Get(item, domain.SideBuy)

	// nobody is selling: there is no safe entry price
	if len(lb.sells) == 0 {
		return nil
	}
	priceCap := int64(s.AvgPriceCap)

	if len(lb.buys) == 0 {
		if row.ClosedAvg <= seedMinClosedAvg {
			return nil
		}
		ask := lb.sells[0].Platinum
		price := max(ask-seedDiscount, ask/3-1)
		if price < 1 {
			price = 1
		}
		if price > priceCap {
			log.Infof("%s seed price %d above price cap %d, skipped", item, price, priceCap)
			return nil
		}
		return e.placeBuy(ctx, item, row, own, active, price)
	}

	target := lb.buys[0].Platinum
	metric := row.ClosedAvg - float64(target)
	potentialProfit := metric - 1

	if target > priceCap {
		log.Infof("%s top buy %d above price cap %d, skipped", item, target, priceCap)
		return nil
	}

	var owned int64
	rec, err := e.inventory.Inventory(ctx, item)
	if err != nil {
		return err
	}
	if rec != nil {
		owned = rec.Owned
	}
	if owned > 1 && int64(metric) < overexposurePerOne*owned {
		log.Infof("holding too many %s (%d), no buy order", item, owned)
		if active {
			return e.remove(ctx, own.ID, item, domain.SideBuy)
		}
		return nil
	}

	spread := lb.spread()
	favorable := (int64(metric) >= minMetric && spread >= minSpreadWithProfit) || spread >= minSpreadAlone
	if !favorable {
		if active {
			log.Infof("%s no longer favorable, deleting buy order at %d", item, own.Platinum)
			return e.remove(ctx, own.ID, item, domain.SideBuy)
		}
		return nil
	}

	if active {
		if own.Platinum == target {
			log.Debugf("%s buy order at %d already optimal", item, target)
			return nil
		}
		return e.placeBuy(ctx, item, row, own, true, target)
	}

	candidates := append(e.book.Candidates(), domain.Candidate{
		Cost:     target,
		Value:    potentialProfit,
		ItemName: item,
	})
	res := capital.Knapsack(candidates, s.MaxTotalPriceCap)
	if !res.Contains(item) {
		log.Infof("%s too expensive or less optimal than current listings", item)
		return nil
	}
	for _, c := range res.Unselected {
		if c.OrderID == "" {
			continue
		}
		log.Infof("%s is less optimal than %s, deleting its buy order", c.ItemName, item)
		if err := e.remove(ctx, c.OrderID, c.ItemName, domain.SideBuy); err != nil {
			return err
		}
	}
	return e.placeBuy(ctx, item, row, own, false, target)
}

// placeBuy updates the active buy order to price, or creates a visible one.
func (e *Engine) placeBuy(ctx context.Context, item string, row *domain.OverlapRow, own domain.OwnOrder, active bool, price int64) error {
	var (
		o   domain.OwnOrder
		err error
	)
	if active {
		o, err = e.update(ctx, own, price, 1)
	} else {
		itemID, rank, merr := e.itemMeta(ctx, item, row)
		if merr != nil {
			return merr
		}
		o, err = e.create(ctx, domain.OrderRequest{
			ItemURL:  item,
			ItemID:   itemID,
			Side:     domain.SideBuy,
			Platinum: price,
			Quantity: 1,
			Visible:  true,
			Rank:     rank,
		})
	}
	if err != nil {
		return err
	}
	o.ClosedAvg = row.ClosedAvg
	o.PotentialProfit = row.ClosedAvg - float64(price)
	e.book.Put(o, true)
	log.Infof("buy order for %s at %d", item, price)
	return nil
}
