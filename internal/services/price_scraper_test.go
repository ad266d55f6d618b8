package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/betbot/wfmtrader/internal/events"
	"github.com/betbot/wfmtrader/pkg/sdk/wfm"
)

type fakeStats struct {
	items []wfm.CatalogEntry
	errs  map[string]error
	block chan struct{}
}

func (f *fakeStats) ListItems(context.Context) ([]wfm.CatalogEntry, error) {
	if f.block != nil {
		<-f.block
	}
	return f.items, nil
}

func (f *fakeStats) Statistics(_ context.Context, item, itemID string) ([]domain.PriceObservation, error) {
	if err := f.errs[item]; err != nil {
		return nil, err
	}
	return []domain.PriceObservation{
		{Name: item, ItemID: itemID, OrderType: domain.OrderTypeClosed},
		{Name: item, ItemID: itemID, OrderType: domain.OrderTypeSell},
	}, nil
}

type fakeSink struct {
	mu       sync.Mutex
	inserted []domain.PriceObservation
	prunedAt time.Time
}

func (f *fakeSink) InsertObservations(_ context.Context, obs []domain.PriceObservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, obs...)
	return nil
}

func (f *fakeSink) PruneHistory(_ context.Context, before time.Time) (int64, error) {
	f.prunedAt = before
	return 4, nil
}

type kindRecorder struct {
	mu    sync.Mutex
	kinds []string
}

func (r *kindRecorder) Publish(kind string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func catalog(names ...string) []wfm.CatalogEntry {
	out := make([]wfm.CatalogEntry, 0, len(names))
	for _, n := range names {
		out = append(out, wfm.CatalogEntry{ID: "id-" + n, URLName: n})
	}
	return out
}

func TestPriceScraperStoresAllItems(t *testing.T) {
	sink := &fakeSink{}
	rec := &kindRecorder{}
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	p := NewPriceScraper(PriceScraperDeps{
		Source:    &fakeStats{items: catalog("a", "b", "c")},
		Sink:      sink,
		Events:    rec,
		Retention: 24 * time.Hour,
	})
	p.now = func() time.Time { return now }

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ScrapeResult{Items: 3, Observations: 6, Pruned: 4}, res)
	assert.Len(t, sink.inserted, 6)
	assert.Equal(t, "id-b", sink.inserted[2].ItemID)
	assert.Equal(t, now.Add(-24*time.Hour), sink.prunedAt)
	assert.Equal(t, events.KindScraperComplete, rec.kinds[len(rec.kinds)-1])
	assert.Len(t, rec.kinds, 4)
	assert.False(t, p.Running())
}

func TestPriceScraperSkipsFailedItems(t *testing.T) {
	sink := &fakeSink{}
	p := NewPriceScraper(PriceScraperDeps{
		Source: &fakeStats{
			items: catalog("a", "b"),
			errs:  map[string]error{"a": apperr.Network("wfm.Statistics", "a", 503, errors.New("unavailable"))},
		},
		Sink: sink,
	})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Observations)
	assert.Zero(t, res.Pruned)
}

func TestPriceScraperAbortsOnCriticalError(t *testing.T) {
	sink := &fakeSink{}
	p := NewPriceScraper(PriceScraperDeps{
		Source: &fakeStats{
			items: catalog("a", "b"),
			errs:  map[string]error{"a": apperr.Network("wfm.Statistics", "a", 401, errors.New("unauthorized"))},
		},
		Sink: sink,
	})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsCritical(err))
	assert.Empty(t, sink.inserted)
}

func TestPriceScraperItemFilter(t *testing.T) {
	sink := &fakeSink{}
	src := &fakeStats{items: catalog("a", "b", "c")}
	p := NewPriceScraper(PriceScraperDeps{Source: src, Sink: sink, Items: []string{"c"}})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Items)
	assert.Equal(t, "c", sink.inserted[0].Name)

	p = NewPriceScraper(PriceScraperDeps{Source: src, Sink: sink, Items: []string{"missing"}})
	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindData, apperr.KindOf(err))
}

func TestPriceScraperSingleRun(t *testing.T) {
	src := &fakeStats{items: catalog("a"), block: make(chan struct{})}
	p := NewPriceScraper(PriceScraperDeps{Source: src, Sink: &fakeSink{}})

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background())
		done <- err
	}()
	require.Eventually(t, p.Running, time.Second, time.Millisecond)

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrScraperRunning)

	close(src.block)
	require.NoError(t, <-done)
}
