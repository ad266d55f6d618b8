package wfm

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/domain"
)

func TestStatistics(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/mesa_prime_set/statistics", r.URL.Path)
		writeJSON(w, map[string]any{"payload": map[string]any{
			"statistics_closed": map[string]any{
				"48hours": []map[string]any{{"datetime": "2026-10-01T10:00:00.000+00:00", "volume": 99}},
				"90days": []map[string]any{
					{"datetime": "2026-10-01T00:00:00.000+00:00", "volume": 20, "min_price": 90, "max_price": 120, "avg_price": 100, "median": 101},
				},
			},
			"statistics_live": map[string]any{
				"90days": []map[string]any{
					{"datetime": "2026-10-01T00:00:00.000+00:00", "volume": 30, "min_price": 95, "max_price": 140, "avg_price": 110, "median": 108, "order_type": "sell"},
					{"datetime": "2026-10-01T00:00:00.000+00:00", "volume": 25, "min_price": 60, "max_price": 90, "avg_price": 80, "median": 82, "order_type": "buy", "mod_rank": 0},
				},
			},
		}})
	}))

	obs, err := c.Statistics(context.Background(), "mesa_prime_set", "id-1")
	require.NoError(t, err)
	require.Len(t, obs, 3)

	assert.Equal(t, domain.OrderTypeClosed, obs[0].OrderType)
	assert.Equal(t, 20.0, obs[0].Volume)
	assert.Equal(t, 30.0, obs[0].Range)
	assert.Equal(t, "id-1", obs[0].ItemID)

	assert.Equal(t, domain.OrderTypeSell, obs[1].OrderType)
	assert.Equal(t, 45.0, obs[1].Range)
	assert.Equal(t, domain.OrderTypeBuy, obs[2].OrderType)
	assert.Equal(t, "mesa_prime_set", obs[2].Name)
}

func TestStatisticsRejectsUnknownSide(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"payload": map[string]any{
			"statistics_live": map[string]any{
				"90days": []map[string]any{{"datetime": "2026-10-01T00:00:00Z", "order_type": "auction"}},
			},
		}})
	}))

	_, err := c.Statistics(context.Background(), "x", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindData, apperr.KindOf(err))
}

func TestListItems(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items", r.URL.Path)
		writeJSON(w, map[string]any{"payload": map[string]any{"items": []map[string]any{
			{"id": "1", "url_name": "a", "item_name": "A"},
			{"id": "2", "url_name": "b", "item_name": "B"},
		}}})
	}))

	items, err := c.ListItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[1].URLName)
}
