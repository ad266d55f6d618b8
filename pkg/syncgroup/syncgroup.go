package syncgroup

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "syncgroup")

// SyncGroup 是 sync.WaitGroup 的包装，自动管理 Add/Done，并记录每个 goroutine 的名字
// 和 panic，用于 run 命令里控制面、日志监听等长驻协程。
type SyncGroup struct {
	wg sync.WaitGroup

	mu      sync.Mutex
	running map[string]int
	errs    []error
}

// NewSyncGroup 创建新的 SyncGroup
func NewSyncGroup() *SyncGroup {
	return &SyncGroup{running: make(map[string]int)}
}

// Go 以名字启动一个 goroutine；fn 的错误和 panic 都会被记录，Wait 时返回
func (g *SyncGroup) Go(name string, fn func() error) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	g.running[name]++
	g.mu.Unlock()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("goroutine %s panic: %v\n%s", name, r, debug.Stack())
				g.finish(name, fmt.Errorf("%s: panic: %v", name, r))
			}
		}()
		err := fn()
		if err != nil {
			log.Warnf("goroutine %s 退出: %v", name, err)
			err = fmt.Errorf("%s: %w", name, err)
		}
		g.finish(name, err)
	}()
}

func (g *SyncGroup) finish(name string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running[name]--; g.running[name] <= 0 {
		delete(g.running, name)
	}
	if err != nil {
		g.errs = append(g.errs, err)
	}
}

// Running 返回仍在运行的 goroutine 名字及数量
func (g *SyncGroup) Running() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]int, len(g.running))
	for k, v := range g.running {
		out[k] = v
	}
	return out
}

// Wait 等待所有 goroutine 完成，返回第一个错误并清空错误记录
func (g *SyncGroup) Wait() error {
	g.wg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.errs) == 0 {
		return nil
	}
	first := g.errs[0]
	g.errs = nil
	return first
}
