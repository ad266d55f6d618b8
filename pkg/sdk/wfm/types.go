package wfm

import "github.com/betbot/wfmtrader/internal/domain"

// Wire types for the warframe.market v1 REST API. Every response is wrapped
// in {"payload": ...}.

type envelope[T any] struct {
	Payload T `json:"payload"`
}

type User struct {
	ID         string  `json:"id"`
	IngameName string  `json:"ingame_name"`
	Status     string  `json:"status"` // ingame / online / offline
	Reputation float64 `json:"reputation"`
}

type OrderItem struct {
	ID         string `json:"id"`
	URLName    string `json:"url_name"`
	ModMaxRank *int64 `json:"mod_max_rank,omitempty"`
}

type Order struct {
	ID        string     `json:"id"`
	Platinum  int64      `json:"platinum"`
	Quantity  int64      `json:"quantity"`
	OrderType string     `json:"order_type"`
	Visible   bool       `json:"visible"`
	ModRank   *int64     `json:"mod_rank,omitempty"`
	Platform  string     `json:"platform,omitempty"`
	User      *User      `json:"user,omitempty"`
	Item      *OrderItem `json:"item,omitempty"`
}

type itemOrdersPayload struct {
	Orders []Order `json:"orders"`
}

type profileOrdersPayload struct {
	SellOrders []Order `json:"sell_orders"`
	BuyOrders  []Order `json:"buy_orders"`
}

type orderPayload struct {
	Order Order `json:"order"`
}

type itemInSet struct {
	ID         string `json:"id"`
	URLName    string `json:"url_name"`
	ModMaxRank *int64 `json:"mod_max_rank,omitempty"`
	En         struct {
		ItemName string `json:"item_name"`
	} `json:"en"`
}

type itemPayload struct {
	Item struct {
		ID         string      `json:"id"`
		ItemsInSet []itemInSet `json:"items_in_set"`
	} `json:"item"`
}

type createOrderBody struct {
	Item      string `json:"item"`
	OrderType string `json:"order_type"`
	Platinum  int64  `json:"platinum"`
	Quantity  int64  `json:"quantity"`
	Visible   bool   `json:"visible"`
	Rank      *int64 `json:"rank,omitempty"`
}

type updateOrderBody struct {
	Platinum int64  `json:"platinum"`
	Quantity int64  `json:"quantity"`
	Visible  bool   `json:"visible"`
	Rank     *int64 `json:"rank,omitempty"`
}

func (o *Order) toLive() domain.LiveOrder {
	lo := domain.LiveOrder{
		ID:        o.ID,
		OrderType: domain.Side(o.OrderType),
		Platinum:  o.Platinum,
		Quantity:  o.Quantity,
		Visible:   o.Visible,
		ModRank:   o.ModRank,
	}
	if o.User != nil {
		lo.Username = o.User.IngameName
		lo.Status = o.User.Status
	}
	return lo
}

func (o *Order) toOwn() domain.OwnOrder {
	own := domain.OwnOrder{
		ID:       o.ID,
		Side:     domain.Side(o.OrderType),
		Platinum: o.Platinum,
		Quantity: o.Quantity,
		Visible:  o.Visible,
		ModRank:  o.ModRank,
	}
	if o.Item != nil {
		own.ItemURL = o.Item.URLName
		own.ItemID = o.Item.ID
	}
	return own
}
