package risk

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrCircuitBreakerOpen 表示断路器已打开，自动交易必须停止。
var ErrCircuitBreakerOpen = fmt.Errorf("circuit breaker open")

// CircuitBreakerConfig 断路器配置。
// 约定：阈值 <= 0 表示关闭对应限制。
type CircuitBreakerConfig struct {
	// MaxConsecutiveErrors 连续失败轮数上限（一轮 = 一次完整的分析 + 下单遍历）。
	MaxConsecutiveErrors int64
}

// CircuitBreaker 统计连续失败的交易轮数，超过上限时熔断。
// 非致命错误不会停止循环，但持续失败（例如市场 API 长时间不可用）由这里兜底。
type CircuitBreaker struct {
	halted atomic.Bool

	consecutiveErrors    atomic.Int64
	maxConsecutiveErrors atomic.Int64

	mu        sync.Mutex
	lastError error
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cb := &CircuitBreaker{}
	cb.SetConfig(cfg)
	return cb
}

func (cb *CircuitBreaker) SetConfig(cfg CircuitBreakerConfig) {
	if cb == nil {
		return
	}
	cb.maxConsecutiveErrors.Store(cfg.MaxConsecutiveErrors)
}

// Halt 手动熔断。
func (cb *CircuitBreaker) Halt() {
	if cb == nil {
		return
	}
	cb.halted.Store(true)
}

// Resume 恢复（同时清空连续错误计数），每次重新启动交易循环时调用。
func (cb *CircuitBreaker) Resume() {
	if cb == nil {
		return
	}
	cb.halted.Store(false)
	cb.consecutiveErrors.Store(0)
	cb.mu.Lock()
	cb.lastError = nil
	cb.mu.Unlock()
}

// AllowTrading 检查是否允许继续下一轮。
func (cb *CircuitBreaker) AllowTrading() error {
	if cb == nil {
		return nil
	}
	if cb.halted.Load() {
		return ErrCircuitBreakerOpen
	}

	maxErr := cb.maxConsecutiveErrors.Load()
	if n := cb.consecutiveErrors.Load(); maxErr > 0 && n >= maxErr {
		cb.halted.Store(true)
		cb.mu.Lock()
		last := cb.lastError
		cb.mu.Unlock()
		if last != nil {
			return fmt.Errorf("%w: %d consecutive failed passes, last: %v", ErrCircuitBreakerOpen, n, last)
		}
		return fmt.Errorf("%w: %d consecutive failed passes", ErrCircuitBreakerOpen, n)
	}
	return nil
}

// OnSuccess 一轮成功后调用，清空连续错误计数。
func (cb *CircuitBreaker) OnSuccess() {
	if cb == nil {
		return
	}
	cb.consecutiveErrors.Store(0)
}

// OnError 一轮失败后调用，累计连续错误计数。
func (cb *CircuitBreaker) OnError(err error) {
	if cb == nil {
		return
	}
	cb.consecutiveErrors.Add(1)
	cb.mu.Lock()
	cb.lastError = err
	cb.mu.Unlock()
}

// ConsecutiveErrors 当前连续失败轮数。
func (cb *CircuitBreaker) ConsecutiveErrors() int64 {
	if cb == nil {
		return 0
	}
	return cb.consecutiveErrors.Load()
}
