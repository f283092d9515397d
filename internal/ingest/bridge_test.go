package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rejdysan/home-hub/internal/models"
	"github.com/rejdysan/home-hub/internal/realtime"
)

// fakePersister records saved readings in memory
type fakePersister struct {
	mu       sync.Mutex
	saved    []models.Reading
	failWith error
}

func (f *fakePersister) SaveReading(_ context.Context, reading models.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.saved = append(f.saved, reading)
	return nil
}

func (f *fakePersister) savedReadings() []models.Reading {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Reading(nil), f.saved...)
}

type bridgeFixture struct {
	bridge  *Bridge
	cache   *realtime.LiveCache
	tracker *realtime.StatusTracker
	repo    *fakePersister
	clock   time.Time
}

func newBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()
	f := &bridgeFixture{
		cache:   realtime.NewLiveCache(),
		tracker: realtime.NewStatusTracker(30 * time.Second),
		repo:    &fakePersister{},
		clock:   time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
	f.bridge = NewBridge(
		f.tracker, f.cache, realtime.NewThrottleGate(), f.repo,
		5*time.Second, 1000, 256, zap.NewNop(),
	)
	f.bridge.nowFn = func() time.Time { return f.clock }
	return f
}

// drainEvents collects everything currently queued on the handoff channel
func drainEvents(b *Bridge) []Event {
	var events []Event
	for {
		select {
		case e := <-b.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestBridge_ThrottledUpdatesCacheNewestPersistFirst(t *testing.T) {
	f := newBridgeFixture(t)
	f.bridge.MarkReady()

	f.bridge.HandleMessage("pico/temperature/kitchen", []byte("21.5"))
	f.clock = f.clock.Add(2 * time.Second)
	f.bridge.HandleMessage("pico/temperature/kitchen", []byte("21.7"))

	// cache holds the second value
	all := f.cache.GetAll()
	require.Len(t, all, 1)
	require.Equal(t, 21.7, all[0].Value)

	// durable store was written only once, with the first value
	saved := f.repo.savedReadings()
	require.Len(t, saved, 1)
	require.Equal(t, 21.5, saved[0].Value)

	// both accepted updates produce a broadcast, plus the initial online event
	events := drainEvents(f.bridge)
	var telemetry []TelemetryEvent
	var status []StatusEvent
	for _, e := range events {
		switch ev := e.(type) {
		case TelemetryEvent:
			telemetry = append(telemetry, ev)
		case StatusEvent:
			status = append(status, ev)
		}
	}
	require.Len(t, telemetry, 2)
	require.Len(t, status, 1)
	require.True(t, status[0].Transition.Online)
	require.Equal(t, "kitchen", status[0].Transition.Sensor)
}

func TestBridge_RejectedInputHasNoSideEffects(t *testing.T) {
	f := newBridgeFixture(t)
	f.bridge.MarkReady()

	f.bridge.HandleMessage("pico/humidity/bathroom", []byte("150.0"))

	require.Empty(t, f.cache.GetAll())
	require.Empty(t, f.repo.savedReadings())
	require.Empty(t, drainEvents(f.bridge))

	_, tracked := f.tracker.Status("bathroom", f.clock)
	require.False(t, tracked)
}

func TestBridge_MalformedTopicIsDropped(t *testing.T) {
	f := newBridgeFixture(t)
	f.bridge.MarkReady()

	f.bridge.HandleMessage("garbage", []byte("21.5"))
	f.bridge.HandleMessage("pico/temperature", []byte("21.5"))

	require.Empty(t, f.cache.GetAll())
	require.Empty(t, drainEvents(f.bridge))
}

func TestBridge_PersistFailureDoesNotBlockCacheOrBroadcast(t *testing.T) {
	f := newBridgeFixture(t)
	f.bridge.MarkReady()
	f.repo.failWith = context.DeadlineExceeded

	f.bridge.HandleMessage("pico/temperature/kitchen", []byte("21.5"))

	require.Len(t, f.cache.GetAll(), 1)
	events := drainEvents(f.bridge)
	require.NotEmpty(t, events)
}

func TestBridge_BuffersBeforeReadyAndReplaysInOrder(t *testing.T) {
	f := newBridgeFixture(t)

	f.bridge.HandleMessage("pico/temperature/kitchen", []byte("20.0"))
	f.clock = f.clock.Add(6 * time.Second)
	f.bridge.HandleMessage("pico/temperature/kitchen", []byte("20.5"))
	f.clock = f.clock.Add(6 * time.Second)
	f.bridge.HandleMessage("pico/humidity/bathroom", []byte("40"))

	// nothing reaches the live channel before readiness
	require.Empty(t, drainEvents(f.bridge))

	buffered := f.bridge.MarkReady()

	var values []float64
	for _, e := range buffered {
		if te, ok := e.(TelemetryEvent); ok {
			values = append(values, te.Reading.Value)
		}
	}
	require.Equal(t, []float64{20.0, 20.5, 40}, values)

	// the drain happens exactly once
	require.Nil(t, f.bridge.MarkReady())

	// post-ready events use the channel
	f.bridge.HandleMessage("pico/temperature/attic", []byte("10"))
	require.NotEmpty(t, drainEvents(f.bridge))
}

func TestBridge_OfflineSensorComesBackInSameCycle(t *testing.T) {
	f := newBridgeFixture(t)
	f.bridge.MarkReady()

	f.bridge.HandleMessage("pico/temperature/attic", []byte("10"))
	drainEvents(f.bridge)

	// sensor goes silent past the offline timeout
	f.clock = f.clock.Add(31 * time.Second)
	require.Len(t, f.tracker.Sweep(f.clock), 1)

	// the next valid update flips it online synchronously
	f.clock = f.clock.Add(time.Second)
	f.bridge.HandleMessage("pico/temperature/attic", []byte("11"))

	events := drainEvents(f.bridge)
	var online *StatusEvent
	for _, e := range events {
		if se, ok := e.(StatusEvent); ok {
			online = &se
		}
	}
	require.NotNil(t, online)
	require.True(t, online.Transition.Online)
}
