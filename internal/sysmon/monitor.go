package sysmon

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"

	"github.com/rejdysan/home-hub/internal/hub"
	"github.com/rejdysan/home-hub/internal/models"
)

const bytesPerMB = 1024.0 * 1024.0

// broadcaster 下发接口，由 hub 实现
type broadcaster interface {
	Broadcast(msg hub.Message)
}

// Monitor 主机资源监控器，周期采样并广播系统消息
type Monitor struct {
	hub      broadcaster
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	latest models.SystemStats

	// 上次网络计数器采样，用于计算速率
	prevNetSent  uint64
	prevNetRecv  uint64
	prevSampleAt time.Time
}

// NewMonitor 创建资源监控器
func NewMonitor(hub broadcaster, interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		hub:      hub,
		interval: interval,
		logger:   logger,
	}
}

// Current 返回最近一次采样结果（供 initial 消息使用）
func (m *Monitor) Current() models.SystemStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

// Run 运行到 ctx 取消为止，单项采样失败只记日志，不中断循环
func (m *Monitor) Run(ctx context.Context) {
	m.sample()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	stats := m.collect()

	m.mu.Lock()
	m.latest = stats
	m.mu.Unlock()

	m.hub.Broadcast(hub.SystemMessage{Stats: stats})
}

// collect 采集一次快照，逐项容错
func (m *Monitor) collect() models.SystemStats {
	stats := models.SystemStats{}

	percentages, err := cpu.Percent(0, false)
	if err == nil && len(percentages) > 0 {
		stats.CPU = round1(percentages[0])
	} else {
		m.logger.Warn("Failed to read CPU stats", zap.Error(err))
	}

	vMem, err := mem.VirtualMemory()
	if err == nil {
		// Linux 把空闲内存用作文件缓存，Used 会虚高
		// 真实占用按 Total - Available 计算
		realUsed := vMem.Total - vMem.Available
		stats.RAMPct = round1(float64(realUsed) / float64(vMem.Total) * 100.0)
		stats.RAMUsed = round1(float64(realUsed) / bytesPerMB)
		stats.RAMTotal = round1(float64(vMem.Total) / bytesPerMB)
	} else {
		m.logger.Warn("Failed to read memory stats", zap.Error(err))
	}

	dStat, err := disk.Usage("/")
	if err == nil {
		stats.DiskPct = round1(dStat.UsedPercent)
		stats.DiskUsed = round1(float64(dStat.Used) / bytesPerMB / 1024.0)
		stats.DiskTotal = round1(float64(dStat.Total) / bytesPerMB / 1024.0)
	} else {
		m.logger.Warn("Failed to read disk stats", zap.Error(err))
	}

	stats.NetSent, stats.NetRecv = m.sampleNetwork()
	stats.CPUTemp = readCPUTemp()

	return stats
}

// sampleNetwork 返回自上次采样以来的收发速率（KB/s）
func (m *Monitor) sampleNetwork() (sent, recv float64) {
	counters, err := net.IOCounters(false)
	if err != nil || len(counters) == 0 {
		m.logger.Warn("Failed to read network stats", zap.Error(err))
		return 0, 0
	}

	now := time.Now()
	total := counters[0]
	if !m.prevSampleAt.IsZero() {
		elapsed := now.Sub(m.prevSampleAt).Seconds()
		if elapsed > 0 && total.BytesSent >= m.prevNetSent && total.BytesRecv >= m.prevNetRecv {
			sent = round1(float64(total.BytesSent-m.prevNetSent) / elapsed / 1024.0)
			recv = round1(float64(total.BytesRecv-m.prevNetRecv) / elapsed / 1024.0)
		}
	}

	m.prevNetSent = total.BytesSent
	m.prevNetRecv = total.BytesRecv
	m.prevSampleAt = now
	return sent, recv
}

// readCPUTemp 尽力读取 CPU 温度，平台不支持时返回 nil
func readCPUTemp() *float64 {
	temps, err := host.SensorsTemperatures()
	if err != nil {
		return nil
	}
	for _, t := range temps {
		key := strings.ToLower(t.SensorKey)
		if strings.Contains(key, "coretemp") || strings.Contains(key, "cpu_thermal") ||
			strings.Contains(key, "cpu-thermal") || strings.Contains(key, "k10temp") {
			v := round1(t.Temperature)
			return &v
		}
	}
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
