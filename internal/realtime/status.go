package realtime

import (
	"sync"
	"time"

	"github.com/rejdysan/home-hub/internal/models"
)

// sensorState 单个传感器的内部状态
type sensorState struct {
	lastSeen time.Time
	online   bool
}

// StatusTracker 维护传感器在线/离线状态
// 会被 MQTT 回调 goroutine 和调度 goroutine 同时访问，锁内不做任何 I/O
type StatusTracker struct {
	mu             sync.Mutex
	sensors        map[string]*sensorState
	offlineTimeout time.Duration
}

// NewStatusTracker 创建状态跟踪器
func NewStatusTracker(offlineTimeout time.Duration) *StatusTracker {
	return &StatusTracker{
		sensors:        make(map[string]*sensorState),
		offlineTimeout: offlineTimeout,
	}
}

// RecordSeen 记录传感器活跃时间
// 传感器首次出现或由离线恢复时返回 true，由调用方立即广播上线事件，
// 不必等待下一次 Sweep
func (t *StatusTracker) RecordSeen(sensor string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.sensors[sensor]
	if !ok {
		t.sensors[sensor] = &sensorState{lastSeen: now, online: true}
		return true
	}

	cameOnline := !state.online
	state.lastSeen = now
	state.online = true
	return cameOnline
}

// Status 计算单个传感器的当前状态
func (t *StatusTracker) Status(sensor string, now time.Time) (models.SensorStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.sensors[sensor]
	if !ok {
		return models.SensorStatus{}, false
	}
	return models.NewSensorStatus(state.lastSeen, now, t.offlineTimeout), true
}

// Snapshot 返回全部传感器的状态快照
func (t *StatusTracker) Snapshot(now time.Time) map[string]models.SensorStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := make(map[string]models.SensorStatus, len(t.sensors))
	for sensor, state := range t.sensors {
		result[sensor] = models.NewSensorStatus(state.lastSeen, now, t.offlineTimeout)
	}
	return result
}

// Sweep 检测在线→离线的状态翻转
// 离线→在线的恢复由 RecordSeen 同步捕获，这里只处理超时下线，
// 每次连续离线只报告一次
func (t *StatusTracker) Sweep(now time.Time) []models.StatusTransition {
	t.mu.Lock()
	defer t.mu.Unlock()

	var transitions []models.StatusTransition
	for sensor, state := range t.sensors {
		if state.online && now.Sub(state.lastSeen) >= t.offlineTimeout {
			state.online = false
			transitions = append(transitions, models.StatusTransition{Sensor: sensor, Online: false})
		}
	}
	return transitions
}
