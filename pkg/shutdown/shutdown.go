package shutdown

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/betbot/wfmtrader/pkg/logger"
)

// Handler 关闭处理函数；ctx 带总超时
type Handler func(ctx context.Context) error

type entry struct {
	name    string
	handler Handler
}

// Manager 优雅关闭管理器
//
// 回调按注册的逆序依次执行：后启动的组件先停（例如先停交易循环，再停控制面，最后关数据库）。
type Manager struct {
	mu      sync.Mutex
	entries []entry
	done    bool
	timeout time.Duration
}

// NewManager 创建关闭管理器；timeout <= 0 时不额外限制
func NewManager(timeout time.Duration) *Manager {
	return &Manager{timeout: timeout}
}

// OnShutdown 注册关闭回调
func (m *Manager) OnShutdown(name string, handler Handler) {
	if handler == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry{name: name, handler: handler})
}

// Shutdown 执行所有关闭回调（阻塞），只生效一次；返回第一个失败的回调错误
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	m.done = true
	entries := m.entries
	m.entries = nil
	m.mu.Unlock()

	if len(entries) == 0 {
		logger.Infof("没有注册的关闭回调")
		return nil
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	logger.Infof("开始优雅关闭，共 %d 个回调", len(entries))
	var first error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if ctx.Err() != nil {
			logger.Warnf("关闭超时，跳过 %s: %v", e.name, ctx.Err())
			if first == nil {
				first = fmt.Errorf("shutdown %s: %w", e.name, ctx.Err())
			}
			continue
		}
		if err := e.handler(ctx); err != nil {
			logger.Warnf("关闭 %s 失败: %v", e.name, err)
			if first == nil {
				first = fmt.Errorf("shutdown %s: %w", e.name, err)
			}
			continue
		}
		logger.Debugf("已关闭 %s", e.name)
	}
	logger.Infof("所有关闭回调已完成")
	return first
}
