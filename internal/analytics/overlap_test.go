package analytics

import (
	"testing"
	"time"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func obs(name string, t domain.OrderType, day int, volume, min, max, median, avg float64) domain.PriceObservation {
	return domain.PriceObservation{
		Name: name, ItemID: "id-" + name, OrderType: t,
		Volume: volume, MinPrice: min, MaxPrice: max, Range: max - min,
		Median: median, AvgPrice: avg,
		Datetime: day0.AddDate(0, 0, day),
	}
}

// table builds a liquid item with sell, buy and closed rows.
func table(name string, closedAvg float64) []domain.PriceObservation {
	return []domain.PriceObservation{
		obs(name, domain.OrderTypeSell, 0, 10, 50, 90, 70, 70),
		obs(name, domain.OrderTypeBuy, 0, 10, 30, 60, 45, 45),
		obs(name, domain.OrderTypeClosed, 0, 40, 40, 80, 60, closedAvg),
	}
}

func params() Params {
	return Params{VolumeThreshold: 15, RangeThreshold: 10, AvgPriceCap: 600, PriceShiftThreshold: -1}
}

func TestAggregateMeans(t *testing.T) {
	in := []domain.PriceObservation{
		obs("a", domain.OrderTypeClosed, 0, 10, 10, 20, 15, 15),
		obs("a", domain.OrderTypeClosed, 1, 30, 20, 40, 25, 35),
	}
	in[1].ItemID = "second"
	out := Aggregate(in)
	require.Len(t, out, 1)
	assert.Equal(t, 20.0, out[0].Volume)
	assert.Equal(t, 15.0, out[0].Range)
	assert.Equal(t, 25.0, out[0].AvgPrice)
	assert.Equal(t, "id-a", out[0].ItemID)
}

func TestAnalyzeJoinsSides(t *testing.T) {
	rows, err := Analyze(table("volt_prime_set", 100), params(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, 50.0, r.MinSell)
	assert.Equal(t, 60.0, r.MaxBuy)
	assert.Equal(t, 10.0, r.Overlap)
	assert.Equal(t, 100.0, r.ClosedAvg)
	assert.Equal(t, 40.0, r.ClosedVol)
	assert.Equal(t, 0.0, r.PriceShift)
}

func TestAnalyzeFilters(t *testing.T) {
	in := append(table("liquid", 100), table("pricey", 900)...)
	// illiquid: closed volume below the threshold
	thin := table("thin", 100)
	thin[2].Volume = 1
	in = append(in, thin...)
	// no buy side
	in = append(in, obs("onesided", domain.OrderTypeSell, 0, 10, 1, 2, 1, 1), obs("onesided", domain.OrderTypeClosed, 0, 40, 40, 80, 60, 60))

	rows, err := Analyze(in, params(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"liquid"}, Names(rows))

	// owned items pass both the liquidity and price filters
	rows, err = Analyze(in, params(), []string{"thin", "pricey"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"liquid", "thin", "pricey"}, Names(rows))

	p := params()
	p.StrictWhitelist = true
	p.Whitelist = []string{"pricey"}
	rows, err = Analyze(in, p, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"pricey"}, Names(rows))
}

func TestAnalyzeSortedByRangeAndIdempotent(t *testing.T) {
	in := append(table("b_item", 100), table("a_item", 100)...)
	wide := table("wide", 100)
	wide[2].MaxPrice, wide[2].Range = 200, 160
	in = append(in, wide...)

	first, err := Analyze(in, params(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"wide", "a_item", "b_item"}, Names(first))

	second, err := Analyze(in, params(), nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAnalyzeSchemaDrift(t *testing.T) {
	in := table("x", 100)
	in[0].OrderType = "auction"
	_, err := Analyze(in, params(), nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindData))

	in = table("", 100)
	_, err = Analyze(in, params(), nil)
	assert.True(t, apperr.Is(err, apperr.KindData))
}

func TestWeekPriceShift(t *testing.T) {
	var series []domain.PriceObservation
	for d := 0; d < 6; d++ {
		series = append(series, obs("x", domain.OrderTypeClosed, d, 1, 1, 1, float64(10+d), 1))
	}
	assert.Equal(t, 0.0, WeekPriceShift(series))

	// 9 days of medians 10..18; the 7 most recent are days 2..8
	for d := 6; d < 9; d++ {
		series = append(series, obs("x", domain.OrderTypeClosed, d, 1, 1, 1, float64(10+d), 1))
	}
	series = append(series, obs("x", domain.OrderTypeSell, 20, 1, 1, 1, 999, 1))
	assert.Equal(t, 18.0-12.0, WeekPriceShift(series))
}

func TestPriceShiftThresholdFilter(t *testing.T) {
	in := table("falling", 100)
	for d := 1; d <= 7; d++ {
		in = append(in, obs("falling", domain.OrderTypeClosed, d, 40, 40, 80, float64(100-10*d), 100))
	}
	p := params()
	p.PriceShiftThreshold = 0
	rows, err := Analyze(in, p, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)

	p.Whitelist = []string{"falling"}
	rows, err = Analyze(in, p, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, -60.0, rows[0].PriceShift)
}

func TestSelectItems(t *testing.T) {
	rows := []domain.OverlapRow{{Name: "c"}, {Name: "a"}}
	got := SelectItems(rows, []string{"b", "a", ""}, []string{"d", "c"})
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
	assert.Empty(t, SelectItems(nil, nil, []string{""}))
}
