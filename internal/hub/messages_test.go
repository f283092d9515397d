package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rejdysan/home-hub/internal/models"
)

func TestSensorsMessage_WrapsDataEnvelope(t *testing.T) {
	msg := SensorsMessage{Sensors: []models.Reading{{
		Sensor:     "kitchen",
		Property:   models.PropertyTemperature,
		Value:      21.5,
		ObservedAt: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}}}

	data, err := msg.Encode()
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.JSONEq(t, `"sensors"`, string(decoded["type"]))
	require.Contains(t, decoded, "data")

	var readings []map[string]any
	require.NoError(t, json.Unmarshal(decoded["data"], &readings))
	require.Len(t, readings, 1)
	require.Equal(t, "kitchen", readings[0]["sensor"])
	require.Equal(t, "temperature", readings[0]["prop"])
	require.Equal(t, 21.5, readings[0]["temp"])
}

func TestHeartbeatMessage_CarriesNoPayload(t *testing.T) {
	data, err := HeartbeatMessage{}.Encode()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"heartbeat"}`, string(data))
}

func TestInitialStateMessage_IsFlattened(t *testing.T) {
	msg := InitialStateMessage{
		Sensors:      []models.Reading{},
		SensorStatus: map[string]models.SensorStatus{"kitchen": {Online: true}},
		Nameday:      "Marek",
		Health:       models.SystemHealth{MQTT: true, Database: true, Network: true},
	}

	data, err := msg.Encode()
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.JSONEq(t, `"initial"`, string(decoded["type"]))

	// fields live at the top level, not under a data wrapper
	require.NotContains(t, decoded, "data")
	require.Contains(t, decoded, "sensors")
	require.Contains(t, decoded, "sensor_status")
	require.Contains(t, decoded, "system")
	require.Contains(t, decoded, "weather")
	require.Contains(t, decoded, "nameday")
	require.Contains(t, decoded, "health")
	require.Contains(t, decoded, "transport")
	require.Contains(t, decoded, "todoist")

	// absent optional payloads serialize as null
	require.JSONEq(t, `null`, string(decoded["weather"]))
	require.JSONEq(t, `null`, string(decoded["todoist"]))
}

func TestSensorStatusMessage_KeyedBySensor(t *testing.T) {
	msg := SensorStatusMessage{Status: map[string]models.SensorStatus{
		"attic": {Online: false, SecondsAgo: 42.5},
	}}

	data, err := msg.Encode()
	require.NoError(t, err)

	var decoded struct {
		Type string                         `json:"type"`
		Data map[string]models.SensorStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "sensor_status", decoded.Type)
	require.False(t, decoded.Data["attic"].Online)
	require.Equal(t, 42.5, decoded.Data["attic"].SecondsAgo)
}
