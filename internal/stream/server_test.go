package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/erosim/internal/erosion"
	"github.com/san-kum/erosim/internal/terrain"
)

type fakeControl struct {
	mu      sync.Mutex
	started []erosion.Backend
	stops   int
	step    int
}

func (f *fakeControl) Start(b erosion.Backend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, b)
	return nil
}

func (f *fakeControl) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakeControl) Step() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

func (f *fakeControl) Eroding() bool { return false }

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["type"] == want {
			return msg
		}
	}
}

func newServer(t *testing.T) (*Server, *fakeControl, *terrain.Heightmap) {
	t.Helper()
	h, err := terrain.FromHeights(4, []float32{
		1, 1, 1, 1,
		1, 3, 3, 1,
		1, 3, 3, 1,
		1, 1, 1, 1,
	})
	require.NoError(t, err)
	ctl := &fakeControl{step: 7}
	return NewServer(h, ctl), ctl, h
}

func TestServerBroadcastsFrames(t *testing.T) {
	srv, _, _ := newServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)

	conn := dial(t, ts)
	readType(t, conn, "status")
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	srv.Regenerate(true)
	frame := readType(t, conn, "frame")
	assert.EqualValues(t, 7, frame["step"])
	assert.EqualValues(t, 4, frame["width"])
	assert.Len(t, frame["heights"], 16)
	assert.Len(t, frame["water"], 16)

	assert.Eventually(t, func() bool { return !srv.NeedsUpload() }, 5*time.Second, 10*time.Millisecond)
}

func TestServerLateClientGetsLastFrame(t *testing.T) {
	srv, _, _ := newServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)

	srv.Regenerate(false)
	require.Eventually(t, func() bool { return !srv.NeedsUpload() }, 5*time.Second, 10*time.Millisecond)

	conn := dial(t, ts)
	frame := readType(t, conn, "frame")
	assert.Nil(t, frame["water"])
}

func TestServerCommands(t *testing.T) {
	srv, ctl, _ := newServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts)
	readType(t, conn, "status")

	require.NoError(t, conn.WriteJSON(CommandMessage{Action: "start", Backend: "cpu"}))
	readType(t, conn, "status")
	require.NoError(t, conn.WriteJSON(CommandMessage{Action: "stop"}))
	readType(t, conn, "status")
	require.NoError(t, conn.WriteJSON(CommandMessage{Action: "start", Backend: "abacus"}))
	status := readType(t, conn, "status")
	assert.Contains(t, status["error"], "unknown backend")

	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	assert.Equal(t, []erosion.Backend{erosion.CPU}, ctl.started)
	assert.Equal(t, 1, ctl.stops)
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _ := newServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var msg StatusMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, "status", msg.Type)
	assert.Equal(t, 7, msg.Step)
	assert.False(t, msg.Eroding)
}
