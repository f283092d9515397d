package hub

import (
	"encoding/json"

	"github.com/rejdysan/home-hub/internal/models"
)

// MessageType 下发给前端的消息类型
type MessageType string

const (
	MessageInitial      MessageType = "initial"
	MessageSensors      MessageType = "sensors"
	MessageSensorStatus MessageType = "sensor_status"
	MessageTransport    MessageType = "transport"
	MessageWeather      MessageType = "weather"
	MessageNameday      MessageType = "nameday"
	MessageSystem       MessageType = "system"
	MessageHeartbeat    MessageType = "heartbeat"
	MessageTodoist      MessageType = "todoist"
	MessageCalendar     MessageType = "calendar"
)

// Message 前端消息的封闭变体集合
// 每种消息自带序列化，广播前只编码一次
type Message interface {
	Type() MessageType
	Encode() ([]byte, error)
}

// envelope 通用包络 {"type": ..., "data": ...}
type envelope struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

func encodeEnvelope(t MessageType, data any) ([]byte, error) {
	return json.Marshal(envelope{Type: t, Data: data})
}

// SensorsMessage 实时遥测更新
type SensorsMessage struct {
	Sensors []models.Reading
}

func (m SensorsMessage) Type() MessageType { return MessageSensors }

func (m SensorsMessage) Encode() ([]byte, error) {
	return encodeEnvelope(m.Type(), m.Sensors)
}

// SensorStatusMessage 传感器在线状态更新
type SensorStatusMessage struct {
	Status map[string]models.SensorStatus
}

func (m SensorStatusMessage) Type() MessageType { return MessageSensorStatus }

func (m SensorStatusMessage) Encode() ([]byte, error) {
	return encodeEnvelope(m.Type(), m.Status)
}

// TransportMessage 公交发车更新
type TransportMessage struct {
	Transport models.BusDepartures
}

func (m TransportMessage) Type() MessageType { return MessageTransport }

func (m TransportMessage) Encode() ([]byte, error) {
	return encodeEnvelope(m.Type(), m.Transport)
}

// WeatherMessage 天气更新
type WeatherMessage struct {
	Weather models.CurrentWeather
}

func (m WeatherMessage) Type() MessageType { return MessageWeather }

func (m WeatherMessage) Encode() ([]byte, error) {
	return encodeEnvelope(m.Type(), m.Weather)
}

// NamedayMessage 命名日更新
type NamedayMessage struct {
	Nameday string
}

func (m NamedayMessage) Type() MessageType { return MessageNameday }

func (m NamedayMessage) Encode() ([]byte, error) {
	return encodeEnvelope(m.Type(), m.Nameday)
}

// SystemMessage 主机资源统计更新
type SystemMessage struct {
	Stats models.SystemStats
}

func (m SystemMessage) Type() MessageType { return MessageSystem }

func (m SystemMessage) Encode() ([]byte, error) {
	return encodeEnvelope(m.Type(), m.Stats)
}

// TodoistMessage 任务列表更新
type TodoistMessage struct {
	Todoist models.TodoistData
}

func (m TodoistMessage) Type() MessageType { return MessageTodoist }

func (m TodoistMessage) Encode() ([]byte, error) {
	return encodeEnvelope(m.Type(), m.Todoist)
}

// CalendarMessage 日历更新
type CalendarMessage struct {
	Calendar models.CalendarData
}

func (m CalendarMessage) Type() MessageType { return MessageCalendar }

func (m CalendarMessage) Encode() ([]byte, error) {
	return encodeEnvelope(m.Type(), m.Calendar)
}

// HeartbeatMessage 心跳，不携带载荷
type HeartbeatMessage struct{}

func (m HeartbeatMessage) Type() MessageType { return MessageHeartbeat }

func (m HeartbeatMessage) Encode() ([]byte, error) {
	return json.Marshal(struct {
		Type MessageType `json:"type"`
	}{Type: m.Type()})
}

// InitialStateMessage 连接建立时的全量状态，字段平铺，不经过 data 包装
type InitialStateMessage struct {
	Sensors      []models.Reading
	SensorStatus map[string]models.SensorStatus
	System       models.SystemStats
	Weather      *models.CurrentWeather
	Nameday      string
	Health       models.SystemHealth
	Transport    models.BusDepartures
	Todoist      *models.TodoistData
}

func (m InitialStateMessage) Type() MessageType { return MessageInitial }

func (m InitialStateMessage) Encode() ([]byte, error) {
	return json.Marshal(struct {
		Type         MessageType                    `json:"type"`
		Sensors      []models.Reading               `json:"sensors"`
		SensorStatus map[string]models.SensorStatus `json:"sensor_status"`
		System       models.SystemStats             `json:"system"`
		Weather      *models.CurrentWeather         `json:"weather"`
		Nameday      string                         `json:"nameday"`
		Health       models.SystemHealth            `json:"health"`
		Transport    models.BusDepartures           `json:"transport"`
		Todoist      *models.TodoistData            `json:"todoist"`
	}{
		Type:         m.Type(),
		Sensors:      m.Sensors,
		SensorStatus: m.SensorStatus,
		System:       m.System,
		Weather:      m.Weather,
		Nameday:      m.Nameday,
		Health:       m.Health,
		Transport:    m.Transport,
		Todoist:      m.Todoist,
	})
}
