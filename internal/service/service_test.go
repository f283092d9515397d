package service

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rejdysan/home-hub/internal/config"
	"github.com/rejdysan/home-hub/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.Server.MaxViewers = 10
	cfg.Status.OfflineTimeout = 30 * time.Second
	cfg.Ingest.ThrottleWindow = 5 * time.Second
	cfg.Ingest.BufferCapacity = 1000
	cfg.Ingest.QueueCapacity = 256

	return New(cfg, zap.NewNop(), db, nil)
}

func TestInitialState_ReadsHealthFromCacheWithoutProbing(t *testing.T) {
	svc := newTestService(t)

	probes := 0
	svc.netProbe = func() bool {
		probes++
		return true
	}

	svc.sampleHealth()
	require.Equal(t, 1, probes)

	// Assembling the initial message must never touch the network;
	// it only reads the last background sample
	for i := 0; i < 5; i++ {
		state := svc.InitialState()
		assert.True(t, state.Health.Network)
		assert.True(t, state.Health.Database)
		assert.False(t, state.Health.MQTT)
	}
	assert.Equal(t, 1, probes)
}

func TestInitialState_BeforeFirstHealthSampleIsAllDown(t *testing.T) {
	svc := newTestService(t)
	svc.netProbe = func() bool {
		t.Fatal("initial state must not trigger a probe")
		return false
	}

	state := svc.InitialState()
	assert.Equal(t, models.SystemHealth{}, state.Health)
}

func TestInitialState_IncludesCachedReadingsAndStatus(t *testing.T) {
	svc := newTestService(t)

	now := time.Now()
	svc.tracker.RecordSeen("kitchen", now)

	reading := models.Reading{
		Sensor:     "kitchen",
		Property:   models.PropertyTemperature,
		Value:      21.5,
		ObservedAt: now,
	}
	svc.cache.Put(reading)

	state := svc.InitialState()
	require.Len(t, state.Sensors, 1)
	assert.Equal(t, reading.Value, state.Sensors[0].Value)
	require.Contains(t, state.SensorStatus, "kitchen")
	assert.True(t, state.SensorStatus["kitchen"].Online)
}
