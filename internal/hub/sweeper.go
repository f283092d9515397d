package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rejdysan/home-hub/internal/models"
	"github.com/rejdysan/home-hub/internal/realtime"
)

// Sweeper 周期性检测超时下线并广播状态更新
type Sweeper struct {
	tracker  *realtime.StatusTracker
	hub      *Hub
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper 创建定时扫描器
func NewSweeper(tracker *realtime.StatusTracker, hub *Hub, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		tracker:  tracker,
		hub:      hub,
		interval: interval,
		logger:   logger,
	}
}

// Run 运行到 ctx 取消为止
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweepOnce(now)
		}
	}
}

// sweepOnce 执行一次扫描，每个翻转只广播一次
func (s *Sweeper) sweepOnce(now time.Time) {
	transitions := s.tracker.Sweep(now)
	if len(transitions) == 0 {
		return
	}

	status := make(map[string]models.SensorStatus, len(transitions))
	for _, tr := range transitions {
		if st, ok := s.tracker.Status(tr.Sensor, now); ok {
			status[tr.Sensor] = st
		}
		s.logger.Info("Sensor went offline", zap.String("sensor", tr.Sensor))
	}

	s.hub.Broadcast(SensorStatusMessage{Status: status})
}
