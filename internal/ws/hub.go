// Package ws streams level updates to websocket subscribers grouped by ticker.
package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/metrics"
)

// Hub manages WebSocket connections and group subscriptions.
type Hub struct {
	name       string
	clients    map[*Client]bool
	groups     map[string]map[*Client]bool // group -> clients
	latest     map[string]*GroupMessage    // group -> last broadcast, replayed on join
	unregister chan *Client
	broadcast  chan *GroupMessage
	done       chan struct{}
	encoder    *Encoder
	mu         sync.RWMutex
	logger     *zap.Logger
}

// GroupMessage represents a message to broadcast to a group.
// Compressed is the zstd form of Payload for clients that negotiated it.
type GroupMessage struct {
	Group      string
	Payload    []byte
	Compressed []byte
}

// NewHub creates a new Hub.
func NewHub(name string, encoder *Encoder, logger *zap.Logger) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		groups:     make(map[string]map[*Client]bool),
		latest:     make(map[string]*GroupMessage),
		unregister: make(chan *Client),
		broadcast:  make(chan *GroupMessage, 256),
		done:       make(chan struct{}),
		encoder:    encoder,
		logger:     logger,
	}
}

// Run processes hub events. Call this in a goroutine.
// Returns when context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down", zap.String("hub", h.name))
			h.shutdown()
			return

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.removeLocked(client)
				metrics.WebSocketConnections.Dec()
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered",
				zap.String("hub", h.name),
				zap.String("connID", client.connID),
			)

		case msg := <-h.broadcast:
			h.mu.Lock()
			h.latest[msg.Group] = msg
			h.mu.Unlock()

			h.mu.RLock()
			if clients, ok := h.groups[msg.Group]; ok {
				for client := range clients {
					select {
					case client.send <- client.frame(msg):
					default:
						// Buffer full, schedule disconnect
						go h.unregisterClient(client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// removeLocked drops client from the hub. Caller holds h.mu.
func (h *Hub) removeLocked(client *Client) {
	delete(h.clients, client)
	for group := range client.groups {
		if clients, ok := h.groups[group]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.groups, group)
			}
		}
	}
	close(client.send)
}

// shutdown gracefully closes all client connections.
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		h.removeLocked(client)
		metrics.WebSocketConnections.Dec()
	}
	h.groups = make(map[string]map[*Client]bool)
	close(h.done)
}

// registerClient adds c synchronously so messages queued right after the
// upgrade are not dropped. Returns false once the hub has shut down.
func (h *Hub) registerClient(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		return false
	default:
	}

	h.clients[c] = true
	metrics.WebSocketConnections.Inc()
	h.logger.Debug("client registered",
		zap.String("hub", h.name),
		zap.String("connID", c.connID),
	)
	return true
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// enqueue queues msg for client unless it has already been removed.
func (h *Hub) enqueue(client *Client, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[client] {
		return
	}
	select {
	case client.send <- msg:
	default:
		go h.unregisterClient(client)
	}
}

// JoinGroup adds a client to a group. It returns the group's last broadcast,
// if any, so the caller can replay it after acknowledging the join. A client
// already removed from the hub cannot join and gets false.
func (h *Hub) JoinGroup(client *Client, group string) (*GroupMessage, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Removed clients have a closed send channel
	if !h.clients[client] {
		return nil, false
	}

	if h.groups[group] == nil {
		h.groups[group] = make(map[*Client]bool)
	}
	h.groups[group][client] = true
	client.groups[group] = true

	h.logger.Debug("client joined group",
		zap.String("hub", h.name),
		zap.String("connID", client.connID),
		zap.String("group", group),
	)
	return h.latest[group], true
}

// LeaveGroup removes a client from a group. It returns false for a client
// already removed from the hub.
func (h *Hub) LeaveGroup(client *Client, group string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return false
	}

	if clients, ok := h.groups[group]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.groups, group)
		}
	}
	delete(client.groups, group)

	h.logger.Debug("client left group",
		zap.String("hub", h.name),
		zap.String("connID", client.connID),
		zap.String("group", group),
	)
	return true
}

// GetActiveGroups returns all groups with at least one subscriber.
func (h *Hub) GetActiveGroups() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var groups []string
	for group, clients := range h.groups {
		if len(clients) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}

// BroadcastData wraps data in a group data message and queues it for every
// subscriber of group.
func (h *Hub) BroadcastData(group string, data []byte) {
	payload := buildDataMessage(group, data)
	msg := &GroupMessage{
		Group:      group,
		Payload:    payload,
		Compressed: h.encoder.Compress(payload),
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}
