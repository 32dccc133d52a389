package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"arbscan/internal/application/port"
)

const (
	writeWait  = 5 * time.Second
	pingEvery  = 30 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// 浏览器客户端跨域连接，监控面板不做 origin 校验
	CheckOrigin: func(*http.Request) bool { return true },
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans broadcast payloads out to every connected websocket client. A new
// client immediately receives the last broadcast payload so it never starts
// from an empty screen.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	last    []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

var _ port.Broadcaster = (*Hub)(nil)

// Broadcast queues payload to every client; slow clients are disconnected
// rather than blocking the loop.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	h.last = payload
	var stale []*client
	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			stale = append(stale, c)
		}
	}
	for _, c := range stale {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()

	for _, c := range stale {
		log.Warn().Str("conn", c.id).Msg("ws client too slow, dropped")
		_ = c.conn.Close()
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and runs the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()

	log.Info().Str("conn", c.id).Msg("ws client connected")

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.drop(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

func (h *Hub) readLoop(c *client) {
	// 入站消息直接丢弃，只为感知断连
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
	log.Info().Str("conn", c.id).Msg("ws client disconnected")
}

// Pusher periodically broadcasts an encoded snapshot produced by encode.
type Pusher struct {
	hub    *Hub
	every  time.Duration
	encode func() []byte
}

func NewPusher(hub *Hub, every time.Duration, encode func() []byte) *Pusher {
	return &Pusher{hub: hub, every: every, encode: encode}
}

// Run broadcasts until ctx is done. Empty payloads are skipped.
func (p *Pusher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if payload := p.encode(); len(payload) > 0 {
				p.hub.Broadcast(payload)
			}
		}
	}
}
