// Package sigchan 提供合并式的唤醒信号：多次 Emit 在被消费前只保留一次。
package sigchan

// Chan 非阻塞信号 channel，只通知“有事发生”，不携带数据
type Chan struct {
	c chan struct{}
}

// New 创建信号 channel；bufferSize < 1 时按 1 处理
func New(bufferSize int) *Chan {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Chan{c: make(chan struct{}, bufferSize)}
}

// Emit 发送信号；缓冲已满时直接丢弃（信号已在排队）
func (c *Chan) Emit() {
	if c == nil {
		return
	}
	select {
	case c.c <- struct{}{}:
	default:
	}
}

// Drain 清掉已排队的信号，返回是否有过信号
func (c *Chan) Drain() bool {
	if c == nil {
		return false
	}
	got := false
	for {
		select {
		case <-c.c:
			got = true
		default:
			return got
		}
	}
}

// C 返回内部 channel 供 select 使用；nil 接收者返回 nil（永远阻塞）
func (c *Chan) C() <-chan struct{} {
	if c == nil {
		return nil
	}
	return c.c
}
