package realtime

import (
	"sync"

	"github.com/rejdysan/home-hub/internal/models"
)

// LiveCache (sensor, property) → 最新读数的内存缓存
// 写入来自 MQTT 回调 goroutine，快照读取来自调度 goroutine
type LiveCache struct {
	mu      sync.RWMutex
	entries map[models.SensorKey]models.Reading
}

// NewLiveCache 创建缓存
func NewLiveCache() *LiveCache {
	return &LiveCache{
		entries: make(map[models.SensorKey]models.Reading),
	}
}

// Put 写入最新读数，无条件覆盖同键旧值
func (c *LiveCache) Put(reading models.Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[reading.Key()] = reading
}

// GetAll 返回全部读数快照
func (c *LiveCache) GetAll() []models.Reading {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]models.Reading, 0, len(c.entries))
	for _, reading := range c.entries {
		result = append(result, reading)
	}
	return result
}

// Seed 启动时从持久化存储灌入初始数据
func (c *LiveCache) Seed(readings []models.Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, reading := range readings {
		c.entries[reading.Key()] = reading
	}
}

// Len 返回缓存条目数
func (c *LiveCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
