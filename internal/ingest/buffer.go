package ingest

import (
	"sync"
)

// StartupBuffer 调度器就绪前的有界 FIFO 事件缓冲
// 只排空一次，溢出时丢弃最新事件而不是阻塞上报线程
type StartupBuffer struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	drained  bool
	dropped  int
}

// NewStartupBuffer 创建缓冲区
func NewStartupBuffer(capacity int) *StartupBuffer {
	return &StartupBuffer{
		capacity: capacity,
	}
}

// Push 非阻塞入队，缓冲已满或已排空时返回 false
func (b *StartupBuffer) Push(event Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.drained || len(b.events) >= b.capacity {
		b.dropped++
		return false
	}
	b.events = append(b.events, event)
	return true
}

// Drain 按到达顺序返回全部缓冲事件，只生效一次
func (b *StartupBuffer) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.drained {
		return nil
	}
	b.drained = true
	events := b.events
	b.events = nil
	return events
}

// Dropped 返回累计丢弃数
func (b *StartupBuffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
