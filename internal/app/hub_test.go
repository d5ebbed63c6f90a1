package app

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/mobility_mapper/internal/gait"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewWebHandler(NewLiveState(), hub, nil, WebOptions{}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

type rawEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, conn *websocket.Conn) rawEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev rawEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHubThrottlesSamples(t *testing.T) {
	hub := NewHub(3)
	conn := dialHub(t, hub)

	for i := 0; i < 7; i++ {
		hub.OnSample(position.CorrectedSample{Index: i})
	}
	hub.OnZone(zones.Zone{Kind: zones.Ramp})

	var indexes []int
	for i := 0; i < 3; i++ {
		ev := readEvent(t, conn)
		require.Equal(t, EventSample, ev.Type)
		var cs position.CorrectedSample
		require.NoError(t, json.Unmarshal(ev.Data, &cs))
		indexes = append(indexes, cs.Index)
	}
	assert.Equal(t, []int{0, 3, 6}, indexes)

	ev := readEvent(t, conn)
	assert.Equal(t, EventZone, ev.Type)
	var z zones.Zone
	require.NoError(t, json.Unmarshal(ev.Data, &z))
	assert.Equal(t, zones.Ramp, z.Kind)
}

func TestHubSummarySendsGaitFirst(t *testing.T) {
	hub := NewHub(1)
	conn := dialHub(t, hub)

	hub.OnSummary(pipeline.Summary{ID: "s", Gait: &gait.Result{Steps: 8}})

	assert.Equal(t, EventGait, readEvent(t, conn).Type)
	assert.Equal(t, EventSummary, readEvent(t, conn).Type)
}

func TestHubDropsClientOnClose(t *testing.T) {
	hub := NewHub(1)
	conn := dialHub(t, hub)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}
