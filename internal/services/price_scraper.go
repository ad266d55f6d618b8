package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/betbot/wfmtrader/internal/events"
	"github.com/betbot/wfmtrader/internal/metrics"
	"github.com/betbot/wfmtrader/internal/ports"
	"github.com/betbot/wfmtrader/pkg/logger"
	"github.com/betbot/wfmtrader/pkg/sdk/wfm"
)

var scraperLog = logrus.WithField("module", "price_scraper")

// ErrScraperRunning 上一次抓取尚未结束
var ErrScraperRunning = errors.New("price scraper already running")

// StatisticsSource 市场统计数据（*wfm.Client）
type StatisticsSource interface {
	ListItems(ctx context.Context) ([]wfm.CatalogEntry, error)
	Statistics(ctx context.Context, item, itemID string) ([]domain.PriceObservation, error)
}

// HistorySink 价格历史存储（*store.Store）
type HistorySink interface {
	InsertObservations(ctx context.Context, obs []domain.PriceObservation) error
	PruneHistory(ctx context.Context, before time.Time) (int64, error)
}

// PriceScraperDeps 抓取依赖；Events 可为 nil
type PriceScraperDeps struct {
	Source    StatisticsSource
	Sink      HistorySink
	Events    ports.EventPublisher
	Items     []string      // 为空时抓取全部物品
	Retention time.Duration // 0 = 不清理
}

// ScrapeResult 一次抓取的统计
type ScrapeResult struct {
	Items        int
	Failed       int
	Observations int
	Pruned       int64
}

// PriceScraper 刷新交易循环使用的价格历史缓存。
// 单个物品失败只记录日志；致命错误（会话失效）立即中止。
type PriceScraper struct {
	deps    PriceScraperDeps
	errLog  *logrus.Entry
	running atomic.Bool
	now     func() time.Time
}

func NewPriceScraper(deps PriceScraperDeps) *PriceScraper {
	return &PriceScraper{
		deps:   deps,
		errLog: logger.NewFileLogger("price_scraper"),
		now:    time.Now,
	}
}

// Running 是否正在抓取
func (p *PriceScraper) Running() bool { return p.running.Load() }

// Run 抓取一遍；同一时间只允许一次
func (p *PriceScraper) Run(ctx context.Context) (ScrapeResult, error) {
	if !p.running.CompareAndSwap(false, true) {
		return ScrapeResult{}, ErrScraperRunning
	}
	defer p.running.Store(false)

	var res ScrapeResult
	targets, err := p.targets(ctx)
	if err != nil {
		return res, err
	}
	res.Items = len(targets)
	scraperLog.Infof("开始抓取价格历史: %d 个物品", len(targets))

	for i, item := range targets {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p.publish(events.KindScraperProgress, events.ScraperProgressEvent{Item: item.URLName, Current: i + 1, Max: len(targets)})

		obs, err := p.deps.Source.Statistics(ctx, item.URLName, item.ID)
		if err == nil {
			err = p.deps.Sink.InsertObservations(ctx, obs)
		}
		if err != nil {
			if apperr.IsCritical(err) {
				return res, err
			}
			res.Failed++
			metrics.ScrapeItemFailure.Add(1)
			p.errLog.Warnf("抓取 %s 失败: %v", item.URLName, err)
			continue
		}
		res.Observations += len(obs)
		metrics.ScrapedItems.Add(1)
	}

	if p.deps.Retention > 0 {
		n, err := p.deps.Sink.PruneHistory(ctx, p.now().Add(-p.deps.Retention))
		if err != nil {
			return res, err
		}
		res.Pruned = n
	}

	scraperLog.Infof("价格历史抓取完成: items=%d failed=%d observations=%d pruned=%d",
		res.Items, res.Failed, res.Observations, res.Pruned)
	p.publish(events.KindScraperComplete, events.ScraperCompleteEvent{
		Items:        res.Items,
		Failed:       res.Failed,
		Observations: res.Observations,
		Pruned:       res.Pruned,
		Timestamp:    p.now(),
	})
	return res, nil
}

// targets 物品目录与配置的物品列表取交集（配置中不存在的物品报 DataError）
func (p *PriceScraper) targets(ctx context.Context) ([]wfm.CatalogEntry, error) {
	all, err := p.deps.Source.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	if len(p.deps.Items) == 0 {
		return all, nil
	}
	byURL := make(map[string]wfm.CatalogEntry, len(all))
	for _, it := range all {
		byURL[it.URLName] = it
	}
	out := make([]wfm.CatalogEntry, 0, len(p.deps.Items))
	for _, name := range p.deps.Items {
		it, ok := byURL[name]
		if !ok {
			return nil, apperr.Data("services.PriceScraper", name, fmt.Errorf("unknown item %q", name))
		}
		out = append(out, it)
	}
	return out, nil
}

func (p *PriceScraper) publish(kind string, payload any) {
	if p.deps.Events != nil {
		p.deps.Events.Publish(kind, payload)
	}
}
