package models

import (
	"time"
)

// Property 传感器属性类型
type Property string

const (
	PropertyTemperature Property = "temperature"
	PropertyHumidity    Property = "humidity"
	PropertyPressure    Property = "pressure"
)

// Valid 检查属性是否在允许列表中
func (p Property) Valid() bool {
	switch p {
	case PropertyTemperature, PropertyHumidity, PropertyPressure:
		return true
	}
	return false
}

// Bounds 返回属性的物理量程（最小值、最大值）
func (p Property) Bounds() (float64, float64) {
	switch p {
	case PropertyTemperature:
		return -50, 100
	case PropertyHumidity:
		return 0, 100
	case PropertyPressure:
		return 800, 1200
	}
	return 0, 0
}

// Reading 单条传感器读数
// 线上协议字段沿用仪表盘前端的既有命名（temp 表示数值载荷）
type Reading struct {
	Sensor     string    `json:"sensor"`
	Property   Property  `json:"prop"`
	Value      float64   `json:"temp"`
	ObservedAt time.Time `json:"ts"`
}

// Key 返回读数的 (sensor, property) 键
func (r Reading) Key() SensorKey {
	return SensorKey{Sensor: r.Sensor, Property: r.Property}
}

// SensorKey (sensor, property) 组合键
type SensorKey struct {
	Sensor   string
	Property Property
}

// SensorStatus 传感器在线状态（派生数据，不落库）
type SensorStatus struct {
	Online     bool    `json:"online"`
	LastSeen   float64 `json:"last_seen"`
	SecondsAgo float64 `json:"seconds_ago"`
}

// NewSensorStatus 根据最后活跃时间计算在线状态
func NewSensorStatus(lastSeen, now time.Time, offlineTimeout time.Duration) SensorStatus {
	elapsed := now.Sub(lastSeen)
	return SensorStatus{
		Online:     elapsed < offlineTimeout,
		LastSeen:   float64(lastSeen.UnixNano()) / float64(time.Second),
		SecondsAgo: elapsed.Seconds(),
	}
}

// StatusTransition 一次在线/离线状态翻转
type StatusTransition struct {
	Sensor string `json:"sensor"`
	Online bool   `json:"online"`
}
