package wfm

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/domain"
)

// CatalogEntry is one tradable item from the full item list.
type CatalogEntry struct {
	ID       string `json:"id"`
	URLName  string `json:"url_name"`
	ItemName string `json:"item_name"`
}

type itemsPayload struct {
	Items []CatalogEntry `json:"items"`
}

// Statistic is one daily (90days) or hourly (48hours) bucket.
type Statistic struct {
	Datetime  time.Time `json:"datetime"`
	Volume    float64   `json:"volume"`
	MinPrice  float64   `json:"min_price"`
	MaxPrice  float64   `json:"max_price"`
	AvgPrice  float64   `json:"avg_price"`
	Median    float64   `json:"median"`
	ModRank   *int64    `json:"mod_rank,omitempty"`
	OrderType string    `json:"order_type,omitempty"` // live statistics only
}

type statisticsPayload struct {
	Closed map[string][]Statistic `json:"statistics_closed"`
	Live   map[string][]Statistic `json:"statistics_live"`
}

const statisticsWindow = "90days"

// ListItems returns the full tradable item catalog.
func (c *Client) ListItems(ctx context.Context) ([]CatalogEntry, error) {
	var resp envelope[itemsPayload]
	if err := c.do(ctx, "wfm.ListItems", "", http.MethodGet, "/items", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Payload.Items, nil
}

// Statistics returns the item's daily closed and live statistics as price
// observations. Closed buckets are tagged "closed"; live buckets carry their
// own buy/sell side.
func (c *Client) Statistics(ctx context.Context, item, itemID string) ([]domain.PriceObservation, error) {
	var resp envelope[statisticsPayload]
	path := "/items/" + url.PathEscape(item) + "/statistics"
	if err := c.do(ctx, "wfm.Statistics", item, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	closed := resp.Payload.Closed[statisticsWindow]
	live := resp.Payload.Live[statisticsWindow]
	out := make([]domain.PriceObservation, 0, len(closed)+len(live))
	for _, s := range closed {
		out = append(out, s.observation(item, itemID, domain.OrderTypeClosed))
	}
	for _, s := range live {
		side := domain.OrderType(strings.ToLower(s.OrderType))
		if side != domain.OrderTypeBuy && side != domain.OrderTypeSell {
			return nil, apperr.Dataf("wfm.Statistics", item, "unexpected live order_type %q", s.OrderType)
		}
		out = append(out, s.observation(item, itemID, side))
	}
	return out, nil
}

func (s Statistic) observation(item, itemID string, t domain.OrderType) domain.PriceObservation {
	var rank float64
	if s.ModRank != nil {
		rank = float64(*s.ModRank)
	}
	return domain.PriceObservation{
		Name:      item,
		ItemID:    itemID,
		OrderType: t,
		Volume:    s.Volume,
		MinPrice:  s.MinPrice,
		MaxPrice:  s.MaxPrice,
		Range:     s.MaxPrice - s.MinPrice,
		Median:    s.Median,
		AvgPrice:  s.AvgPrice,
		ModRank:   rank,
		Datetime:  s.Datetime.UTC(),
	}
}
