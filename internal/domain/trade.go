package domain

import "time"

// TradeClassification 游戏内交易的分类
type TradeClassification string

const (
	TradeSale     TradeClassification = "sale"     // 给出物品、收到白金
	TradePurchase TradeClassification = "purchase" // 给出白金、收到物品
	TradeSwap     TradeClassification = "trade"    // 物品换物品
	TradeUnknown  TradeClassification = "unknown"
)

// TradeItem 交易中的一项
type TradeItem struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Rank     *int64 `json:"rank,omitempty"`
}

// Trade 从客户端日志中识别出的一次成功交易
type Trade struct {
	Player         string              `json:"player"`
	Offered        []TradeItem         `json:"offered"`
	Received       []TradeItem         `json:"received"`
	PlatinumPaid   int64               `json:"platinum_paid"`
	PlatinumGot    int64               `json:"platinum_got"`
	Classification TradeClassification `json:"classification"`
	LineIndex      int64               `json:"line_index"`
	Time           time.Time           `json:"time"`
}

// Classify 根据给出/收到的内容判断交易类型
func (t *Trade) Classify() TradeClassification {
	switch {
	case len(t.Offered) > 0 && len(t.Received) == 0 && t.PlatinumGot > 0:
		return TradeSale
	case len(t.Received) > 0 && len(t.Offered) == 0 && t.PlatinumPaid > 0:
		return TradePurchase
	case len(t.Offered) > 0 || len(t.Received) > 0:
		return TradeSwap
	default:
		return TradeUnknown
	}
}
