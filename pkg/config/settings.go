package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/betbot/wfmtrader/internal/apperr"
	"github.com/betbot/wfmtrader/pkg/persistence"
)

// Settings 自动交易的阈值设置（每轮开始时取一次快照，轮内只读）
type Settings struct {
	VolumeThreshold     float64  `yaml:"volume_threshold" json:"volume_threshold"`         // 成交量阈值
	RangeThreshold      float64  `yaml:"range_threshold" json:"range_threshold"`           // 价格区间阈值
	AvgPriceCap         float64  `yaml:"avg_price_cap" json:"avg_price_cap"`               // 单件买单价格上限（同时用于筛选均价）
	MaxTotalPriceCap    int64    `yaml:"max_total_price_cap" json:"max_total_price_cap"`   // 所有买单占用资金上限
	PriceShiftThreshold float64  `yaml:"price_shift_threshold" json:"price_shift_threshold"` // 周价格变动阈值
	Blacklist           []string `yaml:"blacklist" json:"blacklist"`
	Whitelist           []string `yaml:"whitelist" json:"whitelist"`
	StrictWhitelist     bool     `yaml:"strict_whitelist" json:"strict_whitelist"`
	Webhook             string   `yaml:"webhook" json:"webhook"`
	PingOnNotif         bool     `yaml:"ping_on_notif" json:"ping_on_notif"`
}

// DefaultSettings 默认阈值
func DefaultSettings() Settings {
	return Settings{
		VolumeThreshold:     15,
		RangeThreshold:      10,
		AvgPriceCap:         600,
		MaxTotalPriceCap:    5000,
		PriceShiftThreshold: -1,
		Blacklist:           []string{},
		Whitelist:           []string{},
	}
}

// Clone 深拷贝（切片不与原设置共享）
func (s Settings) Clone() Settings {
	out := s
	out.Blacklist = append([]string(nil), s.Blacklist...)
	out.Whitelist = append([]string(nil), s.Whitelist...)
	return out
}

// IsBlacklisted 物品是否在黑名单中
func (s Settings) IsBlacklisted(item string) bool {
	for _, b := range s.Blacklist {
		if b == item {
			return true
		}
	}
	return false
}

// Validate 验证设置
func (s Settings) Validate() error {
	if s.AvgPriceCap < 0 {
		return fmt.Errorf("avg_price_cap 不能为负数")
	}
	if s.MaxTotalPriceCap < 0 {
		return fmt.Errorf("max_total_price_cap 不能为负数")
	}
	if s.VolumeThreshold < 0 || s.RangeThreshold < 0 {
		return fmt.Errorf("volume_threshold / range_threshold 不能为负数")
	}
	return nil
}

const settingsLockPoll = 5 * time.Millisecond

// SettingsState 运行时设置（互斥保护）。
// 调用方通过 Snapshot 拿到拷贝后立即释放锁，网络 I/O 期间不持有锁。
type SettingsState struct {
	mu       sync.Mutex
	settings Settings
	store    persistence.Store
	lockWait time.Duration
}

// NewSettingsState 创建设置状态；store 可为 nil（不持久化）
func NewSettingsState(initial Settings, store persistence.Store, lockWait time.Duration) *SettingsState {
	if lockWait <= 0 {
		lockWait = 2 * time.Second
	}
	return &SettingsState{
		settings: initial.Clone(),
		store:    store,
		lockWait: lockWait,
	}
}

// Restore 用持久化的设置覆盖当前设置（不存在时保持不变）
func (st *SettingsState) Restore(ctx context.Context) error {
	if st.store == nil {
		return nil
	}
	var saved Settings
	if err := st.store.Load(&saved); err != nil {
		if err == persistence.ErrNotExists {
			return nil
		}
		return apperr.IO("config.Restore", err)
	}
	if err := saved.Validate(); err != nil {
		return apperr.Data("config.Restore", "", err)
	}
	if err := st.acquire(ctx, "config.Restore"); err != nil {
		return err
	}
	st.settings = saved.Clone()
	st.mu.Unlock()
	return nil
}

// Snapshot 返回当前设置的拷贝；在 lockWait 内拿不到锁返回 LockError
func (st *SettingsState) Snapshot(ctx context.Context) (Settings, error) {
	if err := st.acquire(ctx, "config.Snapshot"); err != nil {
		return Settings{}, err
	}
	s := st.settings.Clone()
	st.mu.Unlock()
	return s, nil
}

// Update 替换设置并持久化
func (st *SettingsState) Update(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return apperr.Data("config.Update", "", err)
	}
	if err := st.acquire(ctx, "config.Update"); err != nil {
		return err
	}
	st.settings = s.Clone()
	st.mu.Unlock()

	if st.store == nil {
		return nil
	}
	if err := st.store.Save(s.Clone()); err != nil {
		return apperr.IO("config.Update", err)
	}
	return nil
}

// acquire 有界等待获取锁，成功时调用方负责 Unlock
func (st *SettingsState) acquire(ctx context.Context, op string) error {
	deadline := time.Now().Add(st.lockWait)
	for {
		if st.mu.TryLock() {
			return nil
		}
		if time.Now().After(deadline) {
			return apperr.Lock(op, fmt.Errorf("settings lock not acquired within %s", st.lockWait))
		}
		select {
		case <-ctx.Done():
			return apperr.Lock(op, ctx.Err())
		case <-time.After(settingsLockPoll):
		}
	}
}
