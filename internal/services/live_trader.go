package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/betbot/wfmtrader/internal/analytics"
	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/internal/common"
	"github.com/betbot/wfmtrader/internal/domain"
	"github.com/betbot/wfmtrader/internal/events"
	"github.com/betbot/wfmtrader/internal/metrics"
	"github.com/betbot/wfmtrader/internal/ports"
	"github.com/betbot/wfmtrader/internal/risk"
	"github.com/betbot/wfmtrader/pkg/config"
	"github.com/betbot/wfmtrader/pkg/logger"
	"github.com/betbot/wfmtrader/pkg/persistence"
	"github.com/betbot/wfmtrader/pkg/sigchan"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "live_trader")

// State 交易循环状态
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// OverlapSource 每轮的分析数据来源（*analytics.Analyzer）
type OverlapSource interface {
	Run(ctx context.Context, p analytics.Params, inventory []string) ([]domain.OverlapRow, error)
}

// Decider 逐个物品的下单决策（*brain.Engine）
type Decider interface {
	BeginPass(ctx context.Context, rows []domain.OverlapRow) error
	ProcessItem(ctx context.Context, s config.Settings, item string, row *domain.OverlapRow) error
	DeleteAllOrders(ctx context.Context, s config.Settings) (int, error)
}

// RunStatus 持久化的运行状态
type RunStatus struct {
	State      string    `json:"state"`
	CycleID    string    `json:"cycle_id"`
	Passes     int64     `json:"passes"`
	LastPassAt time.Time `json:"last_pass_at"`
	LastError  string    `json:"last_error,omitempty"`
	StopReason string    `json:"stop_reason,omitempty"`
}

// LiveTraderDeps 交易循环依赖；Notifier/Events/Breaker/Status 可为 nil
type LiveTraderDeps struct {
	Analyzer  OverlapSource
	Engine    Decider
	Inventory ports.Inventory
	Settings  *config.SettingsState
	Notifier  ports.Notifier
	Events    ports.EventPublisher
	Breaker   *risk.CircuitBreaker
	Status    persistence.Store
	Interval  time.Duration
}

// run 一次 Start 对应的运行句柄
type run struct {
	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// LiveTrader 自动交易循环：启动时清空挂单，然后循环 分析 → 选品 → 逐个物品下单决策。
// Start/Stop 都立即返回；Stop 只清除运行标志，循环在下一个边界退出。
type LiveTrader struct {
	deps LiveTraderDeps

	// 非致命错误写入独立的轮转日志
	errLog *logrus.Entry
	wake   *sigchan.Chan

	mu      sync.Mutex
	current *run
	state   atomic.Int32
	status  RunStatus
}

// NewLiveTrader 创建交易循环
func NewLiveTrader(deps LiveTraderDeps) *LiveTrader {
	if deps.Interval <= 0 {
		deps.Interval = 5 * time.Second
	}
	t := &LiveTrader{
		deps:   deps,
		errLog: logger.NewFileLogger("live_trader"),
		wake:   sigchan.New(1),
	}
	if deps.Status != nil {
		if err := deps.Status.Load(&t.status); err != nil && err != persistence.ErrNotExists {
			log.Warnf("加载运行状态失败: %v", err)
		}
	}
	t.status.State = StateStopped.String()
	return t
}

// State 当前状态
func (t *LiveTrader) State() State {
	return State(t.state.Load())
}

// IsRunning 运行标志是否置位
func (t *LiveTrader) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil && t.current.running.Load()
}

// Status 运行状态快照
func (t *LiveTrader) Status() RunStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.status
	st.State = t.State().String()
	return st
}

// Wake 提前结束本轮休眠（例如游戏内刚完成一笔交易）
func (t *LiveTrader) Wake() {
	t.wake.Emit()
}

// Start 启动交易循环；已在运行时什么也不做
func (t *LiveTrader) Start(ctx context.Context) {
	t.mu.Lock()
	if t.current != nil && t.current.running.Load() {
		t.mu.Unlock()
		return
	}
	prev := t.current
	r := &run{stop: make(chan struct{}), done: make(chan struct{})}
	r.running.Store(true)
	t.current = r
	t.mu.Unlock()

	t.setState(StateStarting, "", "")

	go func() {
		// 上一次运行仍在收尾时先等它退出，避免两轮并行
		if prev != nil {
			<-prev.done
		}
		t.loop(ctx, r)
	}()
}

// Stop 清除运行标志并立即返回
func (t *LiveTrader) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *LiveTrader) stopLocked() {
	r := t.current
	if r == nil || !r.running.Load() {
		return
	}
	r.running.Store(false)
	close(r.stop)
}

// Done 返回当前运行结束时关闭的 channel（未启动时为 nil）
func (t *LiveTrader) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil
	}
	return t.current.done
}

func (t *LiveTrader) loop(ctx context.Context, r *run) {
	reason := "stopped by operator"
	critical := false
	defer func() {
		t.mu.Lock()
		latest := t.current == r
		if latest {
			t.stopLocked()
		}
		t.mu.Unlock()
		if latest {
			t.setState(StateStopped, "", reason)
		}
		log.Infof("交易循环已停止: %s", reason)
		t.notify(fmt.Sprintf("Live trader stopped: %s", reason), critical)
		close(r.done)
	}()

	t.deps.Breaker.Resume()
	log.Infof("交易循环启动")

	if err := t.purge(ctx); err != nil {
		t.report(err)
		if apperr.IsCritical(err) {
			reason, critical = fmt.Sprintf("%+v", err), true
			return
		}
	}
	if !r.running.Load() {
		return
	}
	t.setState(StateRunning, "", "")

	for r.running.Load() {
		cycleID := uuid.NewString()
		err := t.pass(ctx, r, cycleID)
		t.recordPass(cycleID, err)

		if err != nil {
			t.report(err)
			t.deps.Breaker.OnError(err)
			if apperr.IsCritical(err) {
				reason, critical = fmt.Sprintf("%+v", err), true
				return
			}
		} else {
			t.deps.Breaker.OnSuccess()
		}
		if berr := t.deps.Breaker.AllowTrading(); berr != nil {
			reason, critical = berr.Error(), true
			return
		}
		if ctx.Err() != nil {
			reason = "context canceled"
			return
		}
		if !r.running.Load() {
			break
		}
		common.Sleep(ctx, t.deps.Interval, r.stop, t.wake.C())
	}
}

// purge 启动时删除所有非黑名单挂单
func (t *LiveTrader) purge(ctx context.Context) error {
	s, err := t.deps.Settings.Snapshot(ctx)
	if err != nil {
		return err
	}
	n, err := t.deps.Engine.DeleteAllOrders(ctx, s)
	if err != nil {
		return err
	}
	log.Infof("启动清单完成，删除 %d 个挂单", n)
	return nil
}

// pass 一轮完整的分析与下单
func (t *LiveTrader) pass(ctx context.Context, r *run, cycleID string) error {
	plog := log.WithField("cycle", cycleID)

	s, err := t.deps.Settings.Snapshot(ctx)
	if err != nil {
		return err
	}
	inventory, err := t.deps.Inventory.InventoryNames(ctx)
	if err != nil {
		return err
	}
	rows, err := t.deps.Analyzer.Run(ctx, AnalyticsParams(s), inventory)
	if err != nil {
		return err
	}
	if err := t.deps.Engine.BeginPass(ctx, rows); err != nil {
		return err
	}

	items := analytics.SelectItems(rows, inventory, s.Whitelist)
	byName := analytics.RowsByName(rows)
	plog.Infof("本轮物品 %d 个（分析 %d，库存 %d）", len(items), len(rows), len(inventory))

	for i, item := range items {
		if !r.running.Load() {
			plog.Infof("收到停止信号，中断本轮")
			return nil
		}
		t.publish(events.KindLiveTraderProgress, events.LiveTraderProgressEvent{
			CycleID: cycleID, Item: item, Index: i + 1, Total: len(items),
		})

		err := t.deps.Engine.ProcessItem(ctx, s, item, byName[item])
		if err == nil {
			continue
		}
		if apperr.Is(err, apperr.KindData) && !apperr.IsCritical(err) {
			// 单个物品的数据问题只跳过该物品
			t.report(err)
			continue
		}
		return err
	}
	return nil
}

// AnalyticsParams 从设置快照提取分析阈值
func AnalyticsParams(s config.Settings) analytics.Params {
	return analytics.Params{
		VolumeThreshold:     s.VolumeThreshold,
		RangeThreshold:      s.RangeThreshold,
		AvgPriceCap:         s.AvgPriceCap,
		PriceShiftThreshold: s.PriceShiftThreshold,
		StrictWhitelist:     s.StrictWhitelist,
		Whitelist:           s.Whitelist,
	}
}

// report 记录错误：非致命写轮转日志，致命错误另外带堆栈打到主日志
func (t *LiveTrader) report(err error) {
	critical := apperr.IsCritical(err)
	if critical {
		log.Errorf("致命错误，停止交易循环: %+v", err)
	} else {
		t.errLog.WithField("kind", apperr.KindOf(err)).Warnf("%v", err)
	}

	ev := events.ErrorEvent{Kind: string(apperr.KindOf(err)), Message: err.Error(), Critical: critical}
	var e *apperr.Error
	if errors.As(err, &e) {
		ev.Item = e.Item
	}
	t.publish(events.KindLiveTraderError, ev)
}

func (t *LiveTrader) recordPass(cycleID string, err error) {
	t.mu.Lock()
	t.status.CycleID = cycleID
	t.status.Passes++
	metrics.TraderPasses.Add(1)
	t.status.LastPassAt = time.Now()
	t.status.LastError = ""
	if err != nil {
		t.status.LastError = err.Error()
		metrics.TraderPassErrors.Add(1)
	}
	st := t.status
	t.mu.Unlock()
	t.saveStatus(st)
}

func (t *LiveTrader) setState(s State, cycleID, reason string) {
	t.state.Store(int32(s))

	t.mu.Lock()
	t.status.State = s.String()
	if s == StateStopped {
		t.status.StopReason = reason
	}
	st := t.status
	t.mu.Unlock()

	t.saveStatus(st)
	t.publish(events.KindLiveTraderState, events.LiveTraderStateEvent{
		State: s.String(), CycleID: cycleID, Reason: reason, Timestamp: time.Now(),
	})
}

func (t *LiveTrader) saveStatus(st RunStatus) {
	if t.deps.Status == nil {
		return
	}
	if err := t.deps.Status.Save(st); err != nil {
		log.Warnf("保存运行状态失败: %v", err)
	}
}

func (t *LiveTrader) notify(message string, ping bool) {
	if t.deps.Notifier != nil {
		t.deps.Notifier.Notify(message, ping)
	}
}

func (t *LiveTrader) publish(kind string, payload any) {
	if t.deps.Events != nil {
		t.deps.Events.Publish(kind, payload)
	}
}
