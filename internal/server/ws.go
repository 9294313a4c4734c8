package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/seqwire/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Feed event types pushed to admin observers.
const (
	FeedSessionConnected = "session_connected"
	FeedSessionDestroyed = "session_destroyed"
	FeedCommandReceived  = "command_received"
)

const (
	feedSendBuffer   = 64
	feedPongWait     = 60 * time.Second
	feedPingInterval = 30 * time.Second
	feedWriteTimeout = 10 * time.Second
)

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedEvent is the JSON shape pushed to feed observers.
type FeedEvent struct {
	Type       string           `json:"type"`
	SessionID  string           `json:"session_id"`
	RemoteAddr string           `json:"remote_addr,omitempty"`
	Command    string           `json:"command,omitempty"`
	Payload    protocol.Command `json:"payload,omitempty"`
	AtMs       int64            `json:"at_ms"`
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// FeedHub fans session lifecycle and command events out to websocket
// observers on the admin plane. Observers that cannot keep up are
// dropped rather than allowed to stall the feed.
type FeedHub struct {
	mu         sync.RWMutex
	clients    map[*feedClient]bool
	broadcast  chan []byte
	register   chan *feedClient
	unregister chan *feedClient
}

func NewFeedHub() *FeedHub {
	return &FeedHub{
		clients:    make(map[*feedClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient, 32),
	}
}

// Run owns the client set until ctx is cancelled.
func (h *FeedHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("observers", total).Msg("feed observer connected")
		case client := <-h.unregister:
			h.drop(client)
		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*feedClient, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					h.drop(client)
				}
			}
		}
	}
}

// Broadcast queues one event for every observer. It never blocks; if
// the hub is saturated the event is shed.
func (h *FeedHub) Broadcast(event FeedEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Msg("feed event encode failed")
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

func (h *FeedHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *FeedHub) drop(client *feedClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	if ok {
		log.Info().Int("observers", total).Msg("feed observer disconnected")
	}
}

func (h *FeedHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		_ = client.conn.Close()
		delete(h.clients, client)
	}
}

// HandleFeed upgrades one admin request into a feed observer.
func (h *FeedHub) HandleFeed(c *gin.Context) {
	conn, err := feedUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("feed upgrade failed")
		return
	}
	client := &feedClient{
		conn: conn,
		send: make(chan []byte, feedSendBuffer),
	}
	h.register <- client
	go client.writePump()
	client.readPump(h)
}

// readPump discards observer input; the feed is one-way. It exists to
// service pong frames and to notice the peer going away.
func (c *feedClient) readPump(h *FeedHub) {
	defer func() {
		h.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(64 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(feedPingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
