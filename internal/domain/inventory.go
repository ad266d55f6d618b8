package domain

import "time"

// InventoryRecord 自有库存中可出售的物品
//
// Price 是成本价（买入均价），ListedPrice 是当前挂单价，由引擎写回。
type InventoryRecord struct {
	ItemURL     string    `json:"item_url"`
	ItemID      string    `json:"item_id"`
	Name        string    `json:"name"`
	Rank        *int64    `json:"rank,omitempty"`
	Owned       int64     `json:"owned"`
	Price       float64   `json:"price"`
	ListedPrice *int64    `json:"listed_price,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AvgPrice 返回卖出时使用的成本均价。
//
// price * owned / owned 在 owned > 0 时恒等于 price；owned == 0 时不做除法，直接使用 price。
func (r *InventoryRecord) AvgPrice() int64 {
	if r == nil {
		return 0
	}
	return int64(r.Price)
}

// TransactionType 交易流水类型
type TransactionType string

const (
	TransactionSale     TransactionType = "sale"
	TransactionPurchase TransactionType = "purchase"
)

// Transaction 一条交易流水
type Transaction struct {
	ID        int64           `json:"id"`
	ItemURL   string          `json:"item_url"`
	Type      TransactionType `json:"type"`
	Quantity  int64           `json:"quantity"`
	Price     int64           `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}
