package ingest

import (
	"github.com/rejdysan/home-hub/internal/models"
)

// Event 采集桥产出、移交调度器广播的事件
// 封闭变体：只有遥测和状态翻转两种
type Event interface {
	isEvent()
}

// TelemetryEvent 一条被接受的传感器读数
type TelemetryEvent struct {
	Reading models.Reading
}

func (TelemetryEvent) isEvent() {}

// StatusEvent 一次传感器上线/下线翻转
type StatusEvent struct {
	Transition models.StatusTransition
}

func (StatusEvent) isEvent() {}
