// Package wfm is the warframe.market client used by the trading engine. It
// implements the engine's order, catalog and identity ports.
package wfm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/betbot/wfmtrader/pkg/cache"
	"github.com/betbot/wfmtrader/pkg/ratelimit"
	sdkhttp "github.com/betbot/wfmtrader/pkg/sdk/http"
)

var log = logrus.WithField("module", "wfm")

const DefaultBaseURL = "https://api.warframe.market/v1"

type Options struct {
	BaseURL           string
	Platform          string
	Language          string
	RequestsPerSecond float64
	Timeout           time.Duration
	ItemCacheTTL      time.Duration
	JWT               string
	IngameName        string
}

// Client talks to the marketplace on behalf of one authenticated user.
type Client struct {
	http  *sdkhttp.Client
	items *cache.InMemoryCache[string, domain.ItemInfo]

	mu         sync.RWMutex
	ingameName string
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Platform == "" {
		opts.Platform = "pc"
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.ItemCacheTTL <= 0 {
		opts.ItemCacheTTL = 6 * time.Hour
	}
	c := &Client{
		http: sdkhttp.NewClient(sdkhttp.Options{
			BaseURL:    opts.BaseURL,
			Timeout:    opts.Timeout,
			RetryCount: 2,
			Headers: map[string]string{
				"Platform": opts.Platform,
				"Language": opts.Language,
			},
			Limiter: ratelimit.NewTokenBucket(opts.RequestsPerSecond, 1),
		}),
		items:      cache.NewInMemoryCache[string, domain.ItemInfo](opts.ItemCacheTTL, 0),
		ingameName: opts.IngameName,
	}
	if opts.JWT != "" {
		c.SetSession(opts.JWT, opts.IngameName)
	}
	return c
}

// SetSession installs the JWT cookie value and the account's in-game name.
func (c *Client) SetSession(jwt, ingameName string) {
	jwt = strings.TrimPrefix(strings.TrimSpace(jwt), "JWT ")
	c.http.SetHeader("Authorization", "JWT "+jwt)
	c.mu.Lock()
	c.ingameName = ingameName
	c.mu.Unlock()
}

// IngameName is the authenticated account's in-game name.
func (c *Client) IngameName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ingameName
}

// Close releases the item cache.
func (c *Client) Close() {
	c.items.Close()
}

func (c *Client) do(ctx context.Context, op, item, method, path string, body, out any) error {
	var opt *sdkhttp.RequestOptions
	if body != nil {
		opt = &sdkhttp.RequestOptions{Data: body}
	}
	_, err := c.http.DoRequest(ctx, method, path, opt, out)
	if err != nil {
		status := sdkhttp.StatusOf(err)
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			log.Errorf("%s: session rejected (http %d)", op, status)
		}
		return apperr.Network(op, item, status, err)
	}
	return nil
}

// ListLiveOrders returns the item's order book restricted to traders that are
// currently in game.
func (c *Client) ListLiveOrders(ctx context.Context, item string) ([]domain.LiveOrder, error) {
	var resp envelope[itemOrdersPayload]
	path := fmt.Sprintf("/items/%s/orders", url.PathEscape(item))
	if err := c.do(ctx, "wfm.ListLiveOrders", item, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.LiveOrder, 0, len(resp.Payload.Orders))
	for i := range resp.Payload.Orders {
		o := &resp.Payload.Orders[i]
		if o.User == nil || o.User.Status != "ingame" || !o.Visible {
			continue
		}
		out = append(out, o.toLive())
	}
	return out, nil
}

// ListOwnOrders returns every order the authenticated account has listed.
func (c *Client) ListOwnOrders(ctx context.Context) (domain.OwnOrders, error) {
	name := c.IngameName()
	if name == "" {
		// no cycle can tell own listings apart without it
		return domain.OwnOrders{}, apperr.MarkCritical(apperr.Dataf("wfm.ListOwnOrders", "", "ingame name is not set"))
	}
	var resp envelope[profileOrdersPayload]
	path := fmt.Sprintf("/profile/%s/orders", url.PathEscape(name))
	if err := c.do(ctx, "wfm.ListOwnOrders", "", http.MethodGet, path, nil, &resp); err != nil {
		return domain.OwnOrders{}, err
	}
	var out domain.OwnOrders
	for i := range resp.Payload.BuyOrders {
		out.Buy = append(out.Buy, resp.Payload.BuyOrders[i].toOwn())
	}
	for i := range resp.Payload.SellOrders {
		out.Sell = append(out.Sell, resp.Payload.SellOrders[i].toOwn())
	}
	return out, nil
}

func (c *Client) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OwnOrder, error) {
	body := createOrderBody{
		Item:      req.ItemID,
		OrderType: string(req.Side),
		Platinum:  req.Platinum,
		Quantity:  req.Quantity,
		Visible:   req.Visible,
		Rank:      req.Rank,
	}
	var resp envelope[orderPayload]
	if err := c.do(ctx, "wfm.CreateOrder", req.ItemURL, http.MethodPost, "/profile/orders", body, &resp); err != nil {
		return domain.OwnOrder{}, err
	}
	own := resp.Payload.Order.toOwn()
	if own.ItemURL == "" {
		own.ItemURL = req.ItemURL
	}
	if own.ItemID == "" {
		own.ItemID = req.ItemID
	}
	log.Infof("created %s order %s for %s at %d x%d", req.Side, own.ID, req.ItemURL, req.Platinum, req.Quantity)
	return own, nil
}

func (c *Client) UpdateOrder(ctx context.Context, id string, req domain.OrderRequest) error {
	body := updateOrderBody{
		Platinum: req.Platinum,
		Quantity: req.Quantity,
		Visible:  req.Visible,
		Rank:     req.Rank,
	}
	path := "/profile/orders/" + url.PathEscape(id)
	if err := c.do(ctx, "wfm.UpdateOrder", req.ItemURL, http.MethodPut, path, body, nil); err != nil {
		return err
	}
	log.Infof("updated %s order %s for %s to %d", req.Side, id, req.ItemURL, req.Platinum)
	return nil
}

func (c *Client) DeleteOrder(ctx context.Context, id, item string, side domain.Side) error {
	path := "/profile/orders/" + url.PathEscape(id)
	if err := c.do(ctx, "wfm.DeleteOrder", item, http.MethodDelete, path, nil, nil); err != nil {
		return err
	}
	log.Infof("deleted %s order %s for %s", side, id, item)
	return nil
}

// Item resolves item metadata, cached for ItemCacheTTL.
func (c *Client) Item(ctx context.Context, urlName string) (domain.ItemInfo, error) {
	return c.items.GetOrLoad(urlName, func() (domain.ItemInfo, error) {
		var resp envelope[itemPayload]
		path := "/items/" + url.PathEscape(urlName)
		if err := c.do(ctx, "wfm.Item", urlName, http.MethodGet, path, nil, &resp); err != nil {
			return domain.ItemInfo{}, err
		}
		for _, it := range resp.Payload.Item.ItemsInSet {
			if it.URLName == urlName {
				return domain.ItemInfo{
					ID:         it.ID,
					URLName:    it.URLName,
					ItemName:   it.En.ItemName,
					ModMaxRank: it.ModMaxRank,
				}, nil
			}
		}
		return domain.ItemInfo{}, apperr.Dataf("wfm.Item", urlName, "item %s not found in its set", urlName)
	})
}
