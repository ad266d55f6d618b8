package analytics

import (
	"context"
	"sort"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/betbot/wfmtrader/internal/ports"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "analytics")

// weekWindow is the number of trailing daily closed records priceShift spans.
const weekWindow = 7

// Params are the thresholds the overlap filter applies.
type Params struct {
	VolumeThreshold     float64
	RangeThreshold      float64
	AvgPriceCap         float64
	PriceShiftThreshold float64
	StrictWhitelist     bool
	Whitelist           []string
}

// Analyzer builds the per-cycle OverlapRow set from the price history cache.
type Analyzer struct {
	data ports.MarketData
}

func NewAnalyzer(data ports.MarketData) *Analyzer {
	return &Analyzer{data: data}
}

// Run fetches the observation table and analyzes it.
func (a *Analyzer) Run(ctx context.Context, p Params, inventory []string) ([]domain.OverlapRow, error) {
	obs, err := a.data.AveragedHistory(ctx)
	if err != nil {
		return nil, err
	}
	return Analyze(obs, p, inventory)
}

// Analyze joins averaged sell-side and buy-side statistics per item into one
// OverlapRow, keeping only liquid or whitelisted items. Rows are ordered by
// closed range, descending, with ties broken by name.
func Analyze(obs []domain.PriceObservation, p Params, inventory []string) ([]domain.OverlapRow, error) {
	for i := range obs {
		if obs[i].Name == "" {
			return nil, apperr.Dataf("analytics.Analyze", "", "observation %d has no item name", i)
		}
		if !obs[i].OrderType.Valid() {
			return nil, apperr.Dataf("analytics.Analyze", obs[i].Name, "unexpected order type %q", obs[i].OrderType)
		}
	}

	averaged := Aggregate(obs)
	owned := toSet(inventory)
	whitelist := toSet(p.Whitelist)

	var closed []domain.AveragedStat
	for _, s := range averaged {
		if s.OrderType != domain.OrderTypeClosed {
			continue
		}
		liquid := s.Volume > p.VolumeThreshold && s.Range > p.RangeThreshold
		if liquid || owned[s.Name] {
			closed = append(closed, s)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		if closed[i].Range != closed[j].Range {
			return closed[i].Range > closed[j].Range
		}
		return closed[i].Name < closed[j].Name
	})
	if len(closed) == 0 {
		return []domain.OverlapRow{}, nil
	}

	series := closedSeries(obs)
	byKey := index(averaged)
	rows := make([]domain.OverlapRow, 0, len(closed))
	seen := make(map[string]bool, len(closed))
	for _, c := range closed {
		if seen[c.Name] {
			continue
		}
		shift := WeekPriceShift(series[c.Name])

		if p.StrictWhitelist {
			if !whitelist[c.Name] {
				continue
			}
		} else {
			favorable := c.AvgPrice < p.AvgPriceCap && shift >= p.PriceShiftThreshold
			if !favorable && !owned[c.Name] && !whitelist[c.Name] {
				continue
			}
		}

		sell, okSell := byKey[statKey{c.Name, domain.OrderTypeSell}]
		buy, okBuy := byKey[statKey{c.Name, domain.OrderTypeBuy}]
		if !okSell || !okBuy {
			log.Debugf("item %s has no sell/buy statistics, dropped", c.Name)
			continue
		}

		seen[c.Name] = true
		rows = append(rows, domain.OverlapRow{
			Name:         c.Name,
			ItemID:       c.ItemID,
			ModRank:      c.ModRank,
			MinSell:      sell.MinPrice,
			MaxBuy:       buy.MaxPrice,
			Overlap:      buy.MaxPrice - sell.MinPrice,
			ClosedVol:    c.Volume,
			ClosedMin:    c.MinPrice,
			ClosedMax:    c.MaxPrice,
			ClosedAvg:    c.AvgPrice,
			ClosedMedian: c.Median,
			PriceShift:   shift,
		})
	}
	return rows, nil
}

// WeekPriceShift returns median(most recent) - median(7th most recent) over the
// closed sub-series, or 0 when fewer than 7 closed records exist. The input
// order does not matter; non-closed rows are ignored.
func WeekPriceShift(series []domain.PriceObservation) float64 {
	closed := make([]domain.PriceObservation, 0, len(series))
	for _, o := range series {
		if o.OrderType == domain.OrderTypeClosed {
			closed = append(closed, o)
		}
	}
	if len(closed) < weekWindow {
		return 0
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].Datetime.After(closed[j].Datetime)
	})
	return closed[0].Median - closed[weekWindow-1].Median
}

func closedSeries(obs []domain.PriceObservation) map[string][]domain.PriceObservation {
	m := make(map[string][]domain.PriceObservation)
	for _, o := range obs {
		if o.OrderType == domain.OrderTypeClosed {
			m[o.Name] = append(m[o.Name], o)
		}
	}
	return m
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
