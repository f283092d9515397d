package realtime

import (
	"sync"
	"time"

	"github.com/rejdysan/home-hub/internal/models"
)

// ThrottleGate 控制同一 (sensor, property) 的落库频率
// 只限制持久化，缓存和广播永远反映最新读数
type ThrottleGate struct {
	mu   sync.Mutex
	last map[models.SensorKey]time.Time
}

// NewThrottleGate 创建限流门
func NewThrottleGate() *ThrottleGate {
	return &ThrottleGate{
		last: make(map[models.SensorKey]time.Time),
	}
}

// ShouldPersist 判断该键当前是否允许落库
// 允许时原子地记录 now 为新的落库时间，同窗口内的并发调用只有一个会赢
func (g *ThrottleGate) ShouldPersist(key models.SensorKey, now time.Time, window time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.last[key]; ok && now.Sub(last) < window {
		return false
	}
	g.last[key] = now
	return true
}
