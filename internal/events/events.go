package events

import (
	"time"

	"github.com/betbot/wfmtrader/internal/domain"
)

// 事件类型（推送给控制面 websocket 订阅者）
const (
	KindLiveTraderState    = "live_trader.state"
	KindLiveTraderProgress = "live_trader.progress"
	KindLiveTraderError    = "live_trader.error"
	KindOrderCreated       = "order.created"
	KindOrderUpdated       = "order.updated"
	KindOrderDeleted       = "order.deleted"
	KindConversation       = "eelog.conversation"
	KindTrade              = "eelog.trade"
	KindEELogState         = "eelog.state"
	KindScraperProgress    = "price_scraper.progress"
	KindScraperComplete    = "price_scraper.complete"
)

// Envelope websocket 上的事件帧
type Envelope struct {
	Kind      string      `json:"kind"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// LiveTraderStateEvent 交易循环状态变化
type LiveTraderStateEvent struct {
	State     string    `json:"state"`
	CycleID   string    `json:"cycle_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LiveTraderProgressEvent 当前轮处理进度
type LiveTraderProgressEvent struct {
	CycleID string `json:"cycle_id"`
	Item    string `json:"item"`
	Index   int    `json:"index"`
	Total   int    `json:"total"`
}

// ErrorEvent 推送给界面的错误
type ErrorEvent struct {
	Kind     string `json:"kind"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
	Critical bool   `json:"critical"`
}

// OrderEvent 本账号挂单变化
type OrderEvent struct {
	Order     domain.OwnOrder `json:"order"`
	Timestamp time.Time       `json:"timestamp"`
}

// ConversationEvent 游戏内新私聊
type ConversationEvent struct {
	Player    string    `json:"player"`
	LineIndex int64     `json:"line_index"`
	Timestamp time.Time `json:"timestamp"`
}

// TradeEvent 游戏内交易完成
type TradeEvent struct {
	Trade domain.Trade `json:"trade"`
}

// WatcherStateEvent 日志监听状态
type WatcherStateEvent struct {
	Running bool   `json:"running"`
	Path    string `json:"path"`
}

// ScraperProgressEvent 价格抓取进度
type ScraperProgressEvent struct {
	Item    string `json:"item"`
	Current int    `json:"current"`
	Max     int    `json:"max"`
}

// ScraperCompleteEvent 一次价格抓取结束
type ScraperCompleteEvent struct {
	Items        int       `json:"items"`
	Failed       int       `json:"failed"`
	Observations int       `json:"observations"`
	Pruned       int64     `json:"pruned"`
	Timestamp    time.Time `json:"timestamp"`
}
