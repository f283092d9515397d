package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rejdysan/home-hub/internal/models"
	"github.com/rejdysan/home-hub/internal/realtime"
)

// persistTimeout 单次落库的时间上限，保证上报线程不会被数据库长时间拖住
const persistTimeout = 5 * time.Second

// Persister 持久化存储的抽象（由 repository 实现）
type Persister interface {
	SaveReading(ctx context.Context, reading models.Reading) error
}

// Bridge 把 MQTT 回调线程的消息接入调度 goroutine
// 两种状态：未就绪（事件进 StartupBuffer）和就绪（事件走交接通道），
// 就绪翻转只发生一次，之后缓冲被按序排空
type Bridge struct {
	tracker *realtime.StatusTracker
	cache   *realtime.LiveCache
	gate    *realtime.ThrottleGate
	repo    Persister
	logger  *zap.Logger

	window time.Duration
	buffer *StartupBuffer
	events chan Event

	mu    sync.Mutex
	ready bool

	nowFn func() time.Time
}

// NewBridge 创建采集桥
func NewBridge(
	tracker *realtime.StatusTracker,
	cache *realtime.LiveCache,
	gate *realtime.ThrottleGate,
	repo Persister,
	window time.Duration,
	bufferCapacity int,
	queueCapacity int,
	logger *zap.Logger,
) *Bridge {
	return &Bridge{
		tracker: tracker,
		cache:   cache,
		gate:    gate,
		repo:    repo,
		logger:  logger,
		window:  window,
		buffer:  NewStartupBuffer(bufferCapacity),
		events:  make(chan Event, queueCapacity),
		nowFn:   time.Now,
	}
}

// HandleMessage 处理一条原始 MQTT 消息
// 运行在 paho 客户端自己的 goroutine 上，任何分支都不允许无限阻塞
func (b *Bridge) HandleMessage(topic string, payload []byte) {
	property, sensor, err := parseTopic(topic)
	if err != nil {
		b.logger.Warn("Rejected telemetry",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return
	}

	now := b.nowFn()
	reading, err := Validate(sensor, property, strings.TrimSpace(string(payload)), now)
	if err != nil {
		b.logger.Warn("Rejected telemetry",
			zap.String("topic", topic),
			zap.String("payload", string(payload)),
			zap.Error(err),
		)
		return
	}

	cameOnline := b.tracker.RecordSeen(reading.Sensor, now)
	b.cache.Put(reading)

	if b.gate.ShouldPersist(reading.Key(), now, b.window) {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := b.repo.SaveReading(ctx, reading); err != nil {
			// 落库失败不重试，缓存和广播已经反映最新值
			b.logger.Error("Failed to persist reading",
				zap.String("sensor", reading.Sensor),
				zap.String("property", string(reading.Property)),
				zap.Error(err),
			)
		}
		cancel()
	}

	b.dispatch(TelemetryEvent{Reading: reading})
	if cameOnline {
		b.dispatch(StatusEvent{Transition: models.StatusTransition{
			Sensor: reading.Sensor,
			Online: true,
		}})
	}
}

// dispatch 把事件移交调度器：未就绪进缓冲，就绪走通道，两者都不阻塞
func (b *Bridge) dispatch(event Event) {
	b.mu.Lock()
	if !b.ready {
		ok := b.buffer.Push(event)
		b.mu.Unlock()
		if !ok {
			b.logger.Warn("Startup buffer full, dropping event",
				zap.Int("dropped_total", b.buffer.Dropped()),
			)
		}
		return
	}
	b.mu.Unlock()

	select {
	case b.events <- event:
	default:
		b.logger.Warn("Ingest queue full, dropping event")
	}
}

// MarkReady 将桥切换到就绪状态并返回待重放的缓冲事件
// 只能调用一次，由调度 goroutine 在开始消费 Events 之前调用
func (b *Bridge) MarkReady() []Event {
	b.mu.Lock()
	b.ready = true
	b.mu.Unlock()

	events := b.buffer.Drain()
	if len(events) > 0 {
		b.logger.Info("Replaying buffered events",
			zap.Int("count", len(events)),
			zap.Int("dropped", b.buffer.Dropped()),
		)
	}
	return events
}

// Events 返回就绪后的事件交接通道
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// parseTopic 解析 "pico/{property}/{sensor_id}" 形式的主题
func parseTopic(topic string) (property, sensor string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return "", "", fmt.Errorf("%w: %q", ErrBadTopic, topic)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}
