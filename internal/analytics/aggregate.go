package analytics

import (
	"sort"

	"github.com/betbot/wfmtrader/internal/domain"
)

type statKey struct {
	name      string
	orderType domain.OrderType
}

type statSum struct {
	stat  domain.AveragedStat
	count int
}

// Aggregate reduces raw observations to one mean row per (name, order_type).
// ItemID is taken from the first observation of each group. The result is
// sorted by name, then order type.
func Aggregate(obs []domain.PriceObservation) []domain.AveragedStat {
	groups := make(map[statKey]*statSum)
	for _, o := range obs {
		k := statKey{o.Name, o.OrderType}
		g, ok := groups[k]
		if !ok {
			g = &statSum{stat: domain.AveragedStat{Name: o.Name, OrderType: o.OrderType, ItemID: o.ItemID}}
			groups[k] = g
		}
		g.count++
		g.stat.Volume += o.Volume
		g.stat.MinPrice += o.MinPrice
		g.stat.MaxPrice += o.MaxPrice
		g.stat.Range += o.Range
		g.stat.Median += o.Median
		g.stat.AvgPrice += o.AvgPrice
		g.stat.ModRank += o.ModRank
	}

	out := make([]domain.AveragedStat, 0, len(groups))
	for _, g := range groups {
		n := float64(g.count)
		s := g.stat
		s.Volume /= n
		s.MinPrice /= n
		s.MaxPrice /= n
		s.Range /= n
		s.Median /= n
		s.AvgPrice /= n
		s.ModRank /= n
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].OrderType < out[j].OrderType
	})
	return out
}

// index keys averaged stats for join lookups.
func index(stats []domain.AveragedStat) map[statKey]domain.AveragedStat {
	m := make(map[statKey]domain.AveragedStat, len(stats))
	for _, s := range stats {
		m[statKey{s.Name, s.OrderType}] = s
	}
	return m
}
