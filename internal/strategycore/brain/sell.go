package brain

import (
	"context"
	"fmt"
	"time"

	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/betbot/wfmtrader/pkg/config"
)

const (
	premiumNoSellers = 30
	minMargin        = 10
	undercutAlert    = -10
)

func (e *Engine) decideSell(ctx context.Context, s config.Settings, item string, row *domain.OverlapRow, lb liveBook) error {
	own, active := e.book.Get(item, domain.SideSell)

	rec, err := e.inventory.Inventory(ctx, item)
	if err != nil {
		return err
	}
	owned := rec != nil && rec.Owned > 0

	if !owned {
		if !active {
			return nil
		}
		// sold outside the engine
		if err := e.inventory.SetInventoryPrice(ctx, item, nil); err != nil {
			return err
		}
		log.Infof("%s not in inventory, deleting sell order at %d", item, own.Platinum)
		return e.remove(ctx, own.ID, item, domain.SideSell)
	}

	avg := rec.AvgPrice()
	quantity := rec.Owned

	var target int64
	if len(lb.sells) == 0 {
		target = avg + premiumNoSellers
	} else {
		competitor := lb.sells[0].Platinum
		if competitor-avg <= undercutAlert {
			msg := fmt.Sprintf("Item %s is too cheap: lowest sell order %d, your average cost %d.", item, competitor, avg)
			log.Info(msg)
			if e.undercut.Allow(item, time.Now()) {
				e.notify(msg, s.PingOnNotif)
			}
		} else {
			e.undercut.Reset(item)
		}
		target = max(avg+minMargin, competitor)
	}

	var o domain.OwnOrder
	if active {
		if own.Platinum == target {
			return nil
		}
		o, err = e.update(ctx, own, target, quantity)
	} else {
		itemID, rank, merr := e.itemMeta(ctx, item, row)
		if merr != nil {
			return merr
		}
		if rank == nil {
			rank = rec.Rank
		}
		o, err = e.create(ctx, domain.OrderRequest{
			ItemURL:  item,
			ItemID:   itemID,
			Side:     domain.SideSell,
			Platinum: target,
			Quantity: quantity,
			Visible:  true,
			Rank:     rank,
		})
	}
	if err != nil {
		return err
	}
	e.book.Put(o, false)
	if err := e.inventory.SetInventoryPrice(ctx, item, &target); err != nil {
		return err
	}
	log.Infof("sell order for %s at %d x%d", item, target, quantity)
	return nil
}
