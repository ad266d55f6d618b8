package domain

import "time"

// OrderType 历史统计中的订单类型
type OrderType string

const (
	OrderTypeBuy    OrderType = "buy"
	OrderTypeSell   OrderType = "sell"
	OrderTypeClosed OrderType = "closed" // 已成交统计
)

// Valid 检查是否为已知的订单类型
func (t OrderType) Valid() bool {
	return t == OrderTypeBuy || t == OrderTypeSell || t == OrderTypeClosed
}

// PriceObservation 一条历史价格统计（每个物品、每种订单类型、每个时间桶一行）
type PriceObservation struct {
	Name      string    // 物品 url_name
	ItemID    string    // 物品 ID
	OrderType OrderType // buy / sell / closed
	Volume    float64
	MinPrice  float64
	MaxPrice  float64
	Range     float64 // max - min
	Median    float64
	AvgPrice  float64
	ModRank   float64
	Datetime  time.Time
}

// AveragedStat (name, order_type) 维度上的均值统计，ItemID 取第一条观测
type AveragedStat struct {
	Name      string
	ItemID    string
	OrderType OrderType
	Volume    float64
	MinPrice  float64
	MaxPrice  float64
	Range     float64
	Median    float64
	AvgPrice  float64
	ModRank   float64
}

// OverlapRow 单个物品在本周期的综合分析行
//
// Overlap = MaxBuy - MinSell，与 closed* 字段来自同一周期的均值快照。
type OverlapRow struct {
	Name         string  `json:"name"`
	ItemID       string  `json:"item_id"`
	ModRank      float64 `json:"mod_rank"`
	MinSell      float64 `json:"minSell"`
	MaxBuy       float64 `json:"maxBuy"`
	Overlap      float64 `json:"overlap"`
	ClosedVol    float64 `json:"closedVol"`
	ClosedMin    float64 `json:"closedMin"`
	ClosedMax    float64 `json:"closedMax"`
	ClosedAvg    float64 `json:"closedAvg"`
	ClosedMedian float64 `json:"closedMedian"`
	PriceShift   float64 `json:"priceShift"`
}

// Rank 返回可用于下单的 mod rank（统计里没有 rank 时为 nil）
func (r *OverlapRow) Rank() *int64 {
	if r == nil || r.ModRank <= 0 {
		return nil
	}
	rank := int64(r.ModRank)
	return &rank
}

// ItemInfo 物品元数据（来自市场 /items/{url_name}）
type ItemInfo struct {
	ID         string `json:"id"`
	URLName    string `json:"url_name"`
	ItemName   string `json:"item_name"`
	ModMaxRank *int64 `json:"mod_max_rank,omitempty"`
}
