// Package hub pushes state changes to companion windows and the render
// surface over WebSocket.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"livewallpaper/internal/selection"
)

const (
	TypeWallpaperChanged = "wallpaper_changed"
	TypeWidgetsChanged   = "widgets_changed"
	TypeAssetsChanged    = "assets_changed"
	TypeReload           = "reload"

	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type WallpaperPayload struct {
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

type Hub struct {
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu      sync.Mutex
	clients map[string]*client
	greet   func() (Message, bool)
}

func New(logger zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// companion windows load from file:// and other localhost ports
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:  logger,
		clients: make(map[string]*client),
	}
}

// SetGreeting configures a message sent to every client right after it
// connects, typically the current wallpaper.
func (h *Hub) SetGreeting(greet func() (Message, bool)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.greet = greet
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	greet := h.greet
	h.mu.Unlock()

	// queued before registration so a broadcast can never close send first
	if greet != nil {
		if msg, ok := greet(); ok {
			if data, err := json.Marshal(msg); err == nil {
				c.send <- data
			}
		}
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Info().Str("client", c.id).Str("remote", r.RemoteAddr).Msg("push client connected")

	go h.writePump(c)
	h.readPump(c)
}

// Broadcast queues msg for every client without blocking. Clients whose
// queue is full are disconnected.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("failed to encode push message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn().Str("client", id).Msg("push client too slow, dropping")
			delete(h.clients, id)
			c.close()
		}
	}
	h.logger.Debug().Str("type", msg.Type).Int("clients", len(h.clients)).Msg("broadcast")
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		c.close()
	}
}

// Consumer returns a selection consumer announcing each new wallpaper.
func (h *Hub) Consumer() selection.Consumer {
	return selection.ConsumerFunc(func(_ context.Context, snap selection.Snapshot) error {
		h.Broadcast(WallpaperMessage(snap))
		return nil
	})
}

func WallpaperMessage(snap selection.Snapshot) Message {
	return Message{
		Type:    TypeWallpaperChanged,
		Payload: WallpaperPayload{Name: snap.Name, Thumbnail: snap.ThumbnailPath},
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		c.close()
	}
	h.mu.Unlock()
}

// readPump discards inbound frames; it exists to process control frames and
// to notice disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		h.logger.Info().Str("client", c.id).Msg("push client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug().Err(err).Str("client", c.id).Msg("push write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
