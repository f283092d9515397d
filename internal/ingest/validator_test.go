package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rejdysan/home-hub/internal/models"
)

func TestValidate_AcceptsInRangeReadings(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		sensor   string
		property string
		payload  string
		want     float64
	}{
		{"temperature", "kitchen", "temperature", "21.5", 21.5},
		{"temperature lower bound", "kitchen", "temperature", "-50", -50},
		{"temperature upper bound", "kitchen", "temperature", "100", 100},
		{"humidity", "bathroom", "humidity", "55.2", 55.2},
		{"pressure", "attic", "pressure", "1013", 1013},
		{"identifier with dash and underscore", "living-room_2", "temperature", "20", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, err := Validate(tt.sensor, tt.property, tt.payload, now)
			require.NoError(t, err)
			require.Equal(t, tt.sensor, reading.Sensor)
			require.Equal(t, models.Property(tt.property), reading.Property)
			require.Equal(t, tt.want, reading.Value)
			require.Equal(t, now, reading.ObservedAt)
		})
	}
}

func TestValidate_RejectsWithNamedReason(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		sensor   string
		property string
		payload  string
		wantErr  error
	}{
		{"empty sensor", "", "temperature", "21.5", ErrBadSensorID},
		{"sensor with slash", "kit/chen", "temperature", "21.5", ErrBadSensorID},
		{"sensor too long", strings.Repeat("a", 51), "temperature", "21.5", ErrBadSensorID},
		{"unknown property", "kitchen", "voltage", "3.3", ErrBadProperty},
		{"property with space", "kitchen", "temp erature", "21.5", ErrBadProperty},
		{"non-numeric payload", "kitchen", "temperature", "warm", ErrBadValue},
		{"empty payload", "kitchen", "temperature", "", ErrBadValue},
		{"nan payload", "kitchen", "temperature", "NaN", ErrBadValue},
		{"inf payload", "kitchen", "temperature", "+Inf", ErrBadValue},
		{"temperature too low", "kitchen", "temperature", "-50.1", ErrValueOutOfRange},
		{"temperature too high", "kitchen", "temperature", "100.1", ErrValueOutOfRange},
		{"humidity above 100", "bathroom", "humidity", "150.0", ErrValueOutOfRange},
		{"pressure below range", "attic", "pressure", "799", ErrValueOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.sensor, tt.property, tt.payload, now)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_SensorAtMaxLengthAccepted(t *testing.T) {
	reading, err := Validate(strings.Repeat("a", 50), "temperature", "0", time.Now())
	require.NoError(t, err)
	require.Equal(t, 0.0, reading.Value)
}
