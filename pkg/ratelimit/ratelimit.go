package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 速率限制器接口
type RateLimiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	Remaining() int
}

// TokenBucket 令牌桶：每秒补充 rate 个令牌（可为小数），最多攒 burst 个
//
// warframe.market 对每个客户端限制约 3 次/秒，所有接口共用一只桶。
type TokenBucket struct {
	mu         sync.Mutex
	rate       float64
	burst      float64
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
}

// NewTokenBucket 创建令牌桶；rate <= 0 表示不限速
func NewTokenBucket(rate float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	tb := &TokenBucket{
		rate:  rate,
		burst: float64(burst),
		now:   time.Now,
	}
	tb.tokens = tb.burst
	tb.lastRefill = tb.now()
	return tb
}

func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.burst {
		tb.tokens = tb.burst
	}
	tb.lastRefill = now
}

// reserve 尝试取一个令牌；失败时返回需要等待的时间
func (tb *TokenBucket) reserve() (time.Duration, bool) {
	if tb == nil || tb.rate <= 0 {
		return 0, true
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(tb.now())
	if tb.tokens >= 1 {
		tb.tokens--
		return 0, true
	}
	missing := 1 - tb.tokens
	return time.Duration(missing / tb.rate * float64(time.Second)), false
}

// Allow 有令牌时取走一个并返回 true
func (tb *TokenBucket) Allow() bool {
	_, ok := tb.reserve()
	return ok
}

// Wait 阻塞直到取得令牌或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		wait, ok := tb.reserve()
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Remaining 当前可立即使用的令牌数
func (tb *TokenBucket) Remaining() int {
	if tb == nil || tb.rate <= 0 {
		return int(^uint(0) >> 1)
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(tb.now())
	return int(tb.tokens)
}
