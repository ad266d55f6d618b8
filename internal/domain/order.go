package domain

import "fmt"

// Side 订单方向
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) String() string { return string(s) }

// LiveOrder 市场上当前挂着的订单（任意交易者）
type LiveOrder struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	OrderType Side   `json:"order_type"`
	Platinum  int64  `json:"platinum"`
	Quantity  int64  `json:"quantity"`
	Visible   bool   `json:"visible"`
	ModRank   *int64 `json:"mod_rank,omitempty"`
	Status    string `json:"status,omitempty"` // ingame / online / offline
}

// OwnOrder 属于本账号的挂单
type OwnOrder struct {
	ID              string  `json:"id"`
	ItemURL         string  `json:"url_name"`
	ItemID          string  `json:"item_id"`
	Side            Side    `json:"order_type"`
	Platinum        int64   `json:"platinum"`
	Quantity        int64   `json:"quantity"`
	Visible         bool    `json:"visible"`
	ModRank         *int64  `json:"mod_rank,omitempty"`
	ClosedAvg       float64 `json:"closedAvg"`
	PotentialProfit float64 `json:"potential_profit"`
}

// Key 返回 (物品, 方向) 维度的唯一键
func (o *OwnOrder) Key() string {
	return OrderKey(o.ItemURL, o.Side)
}

// OrderKey 生成 (物品, 方向) 键
func OrderKey(itemURL string, side Side) string {
	return fmt.Sprintf("%s:%s", itemURL, side)
}

// OwnOrders 本账号的全部挂单
type OwnOrders struct {
	Buy  []OwnOrder `json:"buy_orders"`
	Sell []OwnOrder `json:"sell_orders"`
}

// Candidate 预算优化器的候选买单
type Candidate struct {
	Cost     int64   // 价格（platinum）
	Value    float64 // 潜在利润
	ItemName string
	OrderID  string // 新候选为空
}

// OrderRequest 下单/改单参数
type OrderRequest struct {
	ItemURL  string
	ItemID   string
	Side     Side
	Platinum int64
	Quantity int64
	Visible  bool
	Rank     *int64
}
