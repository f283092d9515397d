package server

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rejdysan/home-hub/internal/hub"
	"github.com/rejdysan/home-hub/internal/models"
)

type stubState struct{}

func (stubState) InitialState() hub.InitialStateMessage {
	return hub.InitialStateMessage{
		Sensors: []models.Reading{
			{Sensor: "kitchen", Property: models.PropertyTemperature, Value: 21.5, ObservedAt: time.Now()},
		},
		SensorStatus: map[string]models.SensorStatus{},
		Transport:    models.BusDepartures{Malesicka: []models.BusDeparture{}, Olgy: []models.BusDeparture{}},
	}
}

func newTestServer(t *testing.T, maxViewers int) (*Server, *hub.Hub, *httptest.Server) {
	t.Helper()
	h := hub.NewHub(maxViewers, zap.NewNop())
	s := NewServer("127.0.0.1:0", h, stubState{}, t.TempDir(), time.Minute, zap.NewNop())
	ts := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(func() {
		ts.Close()
		h.CloseAll()
	})
	return s, h, ts
}

func dial(t *testing.T, ts *httptest.Server) (*websocket.Conn, *http.Response) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn, resp
}

func TestServer_SendsInitialStateOnConnect(t *testing.T) {
	_, _, ts := newTestServer(t, 10)

	conn, _ := dial(t, ts)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.JSONEq(t, `"initial"`, string(decoded["type"]))
	// Initial state is flattened, not wrapped in a data field
	assert.Contains(t, decoded, "sensors")
	assert.Contains(t, decoded, "sensor_status")
	assert.NotContains(t, decoded, "data")
}

func TestServer_RejectsViewerOverCap(t *testing.T) {
	_, h, ts := newTestServer(t, 1)

	first, _ := dial(t, ts)
	defer first.Close()

	// Wait for admission before dialing the second viewer
	require.Eventually(t, func() bool { return h.ActiveCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	second, _ := dial(t, ts)
	defer second.Close()

	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := second.ReadMessage()
	require.Error(t, err)
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected close frame, got %v", err)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	assert.Equal(t, "maximum connections reached", closeErr.Text)
	assert.Equal(t, 1, h.ActiveCount())
}

func TestServer_BroadcastReachesViewer(t *testing.T) {
	_, h, ts := newTestServer(t, 10)

	conn, _ := dial(t, ts)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage() // initial
	require.NoError(t, err)

	h.Broadcast(hub.NamedayMessage{Nameday: "Nikola"})

	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"nameday","data":"Nikola"}`, string(payload))
}

func TestServer_SilentViewerGetsHeartbeatDespiteBroadcasts(t *testing.T) {
	h := hub.NewHub(10, zap.NewNop())
	s := NewServer("127.0.0.1:0", h, stubState{}, t.TempDir(), 200*time.Millisecond, zap.NewNop())
	ts := httptest.NewServer(s.httpServer.Handler)
	defer ts.Close()
	defer h.CloseAll()

	conn, _ := dial(t, ts)
	defer conn.Close()

	// Outbound traffic keeps flowing the whole time; it must not
	// count as viewer activity
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				h.Broadcast(hub.NamedayMessage{Nameday: "Nikola"})
			}
		}
	}()

	// The client sends nothing; a heartbeat must arrive within the
	// idle window plus the check granularity
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		var decoded map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(payload, &decoded))
		if string(decoded["type"]) == `"heartbeat"` {
			return
		}
	}
	t.Fatal("no heartbeat received for a silent viewer while broadcasts were flowing")
}

func TestServer_ChattyViewerGetsNoHeartbeat(t *testing.T) {
	h := hub.NewHub(10, zap.NewNop())
	s := NewServer("127.0.0.1:0", h, stubState{}, t.TempDir(), 300*time.Millisecond, zap.NewNop())
	ts := httptest.NewServer(s.httpServer.Handler)
	defer ts.Close()
	defer h.CloseAll()

	conn, _ := dial(t, ts)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage() // initial
	require.NoError(t, err)

	// The client keeps talking, so the idle threshold is never crossed
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
			}
		}
	}()

	// Nothing is broadcast, so the only frame that could arrive within
	// the watch window is a heartbeat; the read must time out instead
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(1*time.Second)))
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			netErr, ok := err.(net.Error)
			require.True(t, ok && netErr.Timeout(), "unexpected read error: %v", err)
			return
		}
		var decoded map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(payload, &decoded))
		require.NotEqual(t, `"heartbeat"`, string(decoded["type"]))
	}
}

func TestServer_DisconnectedViewerLeavesHub(t *testing.T) {
	_, h, ts := newTestServer(t, 10)

	conn, _ := dial(t, ts)
	require.Eventually(t, func() bool { return h.ActiveCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool { return h.ActiveCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}
