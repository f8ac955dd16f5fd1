//go:build !js
// +build !js

package main

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Outbound frames buffered per client before broadcasts are dropped.
	clientBuffer = 16

	writeWait  = 10 * time.Second
	pingPeriod = 20 * time.Second
	staleAfter = 60 * time.Second
)

// Client is one browser subscribed to catalog updates.
type Client struct {
	ID       string
	Messages chan []byte
	lastSeen time.Time
	mu       sync.Mutex
}

// Touch records activity from the client.
func (c *Client) Touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

// LastSeen returns the time of the client's last activity.
func (c *Client) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// Hub tracks connected clients and fans catalog frames out to them.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
	log     logrus.FieldLogger
	stop    chan struct{}
	once    sync.Once
}

// NewHub creates a hub and starts its stale-client sweep.
func NewHub(log logrus.FieldLogger, sweepEvery time.Duration) *Hub {
	h := &Hub{
		clients: make(map[string]*Client),
		log:     log,
		stop:    make(chan struct{}),
	}
	go h.cleanup(sweepEvery)
	return h
}

// cleanup removes clients that stopped answering pings.
func (h *Hub) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case now := <-ticker.C:
			h.RemoveStale(now)
		}
	}
}

// RemoveStale drops every client idle for longer than staleAfter and
// returns how many were removed.
func (h *Hub) RemoveStale(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for id, c := range h.clients {
		if now.Sub(c.LastSeen()) > staleAfter {
			close(c.Messages)
			delete(h.clients, id)
			removed++
			h.log.WithField("client", id).Info("Removed stale client")
		}
	}
	return removed
}

// Register adds a new client with a fresh id.
func (h *Hub) Register() *Client {
	c := &Client{
		ID:       uuid.NewString(),
		Messages: make(chan []byte, clientBuffer),
		lastSeen: time.Now(),
	}

	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"client":  c.ID,
		"clients": n,
	}).Info("Client connected")
	return c
}

// Unregister removes a client and closes its queue. Unknown ids are ignored.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[id]; ok {
		close(c.Messages)
		delete(h.clients, id)
		h.log.WithField("client", id).Info("Client disconnected")
	}
}

// Send queues msg for a single client.
func (h *Hub) Send(id string, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[id]
	if !ok {
		return false
	}
	return h.enqueue(c, msg)
}

// Broadcast queues msg for every client.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		h.enqueue(c, msg)
	}
}

func (h *Hub) enqueue(c *Client, msg []byte) bool {
	select {
	case c.Messages <- msg:
		return true
	default:
		h.log.WithField("client", c.ID).Warn("Message buffer full, dropping frame")
		return false
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the sweep and disconnects every client.
func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.stop)
		h.mu.Lock()
		for id, c := range h.clients {
			close(c.Messages)
			delete(h.clients, id)
		}
		h.mu.Unlock()
	})
}

// serve pumps a client's queue onto its connection and reads until the
// connection fails. It returns once the client is gone.
func (h *Hub) serve(conn *websocket.Conn, c *Client) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(conn, c)
	}()

	conn.SetPongHandler(func(string) error {
		c.Touch(time.Now())
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		c.Touch(time.Now())
	}
	h.Unregister(c.ID)
	<-done
	conn.Close()
}

func (h *Hub) writePump(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.Messages:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				conn.Close()
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.WithFields(logrus.Fields{
					"client": c.ID,
					"error":  err.Error(),
				}).Debug("Write failed")
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
