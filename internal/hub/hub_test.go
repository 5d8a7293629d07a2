package hub

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livewallpaper/internal/selection"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	h := New(zerolog.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	h.Broadcast(Message{Type: TypeWidgetsChanged})

	for _, ws := range []*websocket.Conn{a, b} {
		msg := readMessage(t, ws)
		assert.Equal(t, TypeWidgetsChanged, msg["type"])
	}
}

func TestHub_Greeting(t *testing.T) {
	h := New(zerolog.Nop())
	h.SetGreeting(func() (Message, bool) {
		return WallpaperMessage(selection.Snapshot{Name: "Ocean"}), true
	})
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	msg := readMessage(t, dial(t, srv))
	assert.Equal(t, TypeWallpaperChanged, msg["type"])
	payload, ok := msg["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ocean", payload["name"])
}

func TestHub_ConsumerAnnouncesSelection(t *testing.T) {
	h := New(zerolog.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	ws := dial(t, srv)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	err := h.Consumer().Notify(context.Background(), selection.Snapshot{Name: "Forest", ThumbnailPath: "/t/Forest.jpg"})
	require.NoError(t, err)

	msg := readMessage(t, ws)
	assert.Equal(t, TypeWallpaperChanged, msg["type"])
	payload := msg["payload"].(map[string]any)
	assert.Equal(t, "Forest", payload["name"])
	assert.Equal(t, "/t/Forest.jpg", payload["thumbnail"])
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	h := New(zerolog.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	ws := dial(t, srv)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	ws.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	// broadcasting with no clients is a no-op
	h.Broadcast(Message{Type: TypeReload})
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	h := New(zerolog.Nop())
	c := &client{id: "slow", send: make(chan []byte, 1)}
	h.clients[c.id] = c

	h.Broadcast(Message{Type: TypeReload})
	assert.Equal(t, 1, h.ClientCount())

	done := make(chan struct{})
	go func() {
		h.Broadcast(Message{Type: TypeReload})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client queue")
	}
	assert.Equal(t, 0, h.ClientCount())

	_, open := <-c.send
	assert.True(t, open, "queued message is still readable")
	_, open = <-c.send
	assert.False(t, open)
}
