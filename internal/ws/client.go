package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Send buffer size per client.
	sendBufferSize = 256
)

// Subprotocols offered to clients. JSON is used when none is requested.
const (
	SubprotocolJSON = "json.levels.v1"
	SubprotocolZstd = "zstd.levels.v1"
)

const (
	protocolJSON = "json"
	protocolZstd = "zstd"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
	Subprotocols:    []string{SubprotocolJSON, SubprotocolZstd},
}

// Client represents a WebSocket client connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	connID   string
	groups   map[string]bool
	logger   *zap.Logger
	protocol string // "json" or "zstd"
}

// HandleWS upgrades the request and registers the connection with the hub.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	connID := uuid.New().String()

	// Negotiate subprotocol - check what client requested
	protocol := protocolJSON
	var responseHeader http.Header
	for _, proto := range websocket.Subprotocols(r) {
		switch proto {
		case SubprotocolJSON:
			protocol = protocolJSON
			responseHeader = http.Header{"Sec-WebSocket-Protocol": {proto}}
		case SubprotocolZstd:
			protocol = protocolZstd
			responseHeader = http.Header{"Sec-WebSocket-Protocol": {proto}}
		}
		if responseHeader != nil {
			break
		}
	}

	h.logger.Debug("websocket subprotocol negotiated",
		zap.String("protocol", protocol),
		zap.Strings("requested", websocket.Subprotocols(r)),
	)

	// Upgrade to WebSocket
	conn, err := upgrader.Upgrade(w, r, responseHeader)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		connID:   connID,
		groups:   make(map[string]bool),
		logger:   h.logger,
		protocol: protocol,
	}

	// Buffered and not yet shared, so this cannot block
	client.send <- client.encode(buildConnectedMessage(connID))

	if !h.registerClient(client) {
		conn.Close()
		return
	}

	// Start read/write pumps
	go client.writePump()
	go client.readPump()
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
			}
			break
		}
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	// Compressed frames are binary
	msgType := websocket.TextMessage
	if c.protocol == protocolZstd {
		msgType = websocket.BinaryMessage
	}

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed, send close message
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(msgType, message); err != nil {
				c.logger.Debug("websocket write error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming upstream message. Upstream messages are
// JSON text for every subprotocol.
func (c *Client) handleMessage(data []byte) {
	msg, err := parseUpstreamMessage(data)
	if err != nil {
		c.logger.Debug("failed to parse upstream message",
			zap.String("connID", c.connID),
			zap.Error(err),
		)
		return
	}

	switch m := msg.(type) {
	case *joinGroupRequest:
		ok := c.hub.validGroup(m.group)
		var last *GroupMessage
		if ok {
			last, ok = c.hub.JoinGroup(c, m.group)
		} else {
			c.logger.Debug("invalid group name",
				zap.String("connID", c.connID),
				zap.String("group", m.group),
			)
		}
		if m.ackID != nil {
			c.hub.enqueue(c, c.encode(buildAckMessage(*m.ackID, ok)))
		}
		if last != nil {
			c.hub.enqueue(c, c.frame(last))
		}

	case *leaveGroupRequest:
		ok := c.hub.LeaveGroup(c, m.group)
		if m.ackID != nil {
			c.hub.enqueue(c, c.encode(buildAckMessage(*m.ackID, ok)))
		}

	case *pingRequest:
		c.hub.enqueue(c, c.encode(buildPongMessage()))
	}
}

// encode converts a JSON message to this client's wire format.
func (c *Client) encode(msg []byte) []byte {
	if c.protocol == protocolZstd {
		return c.hub.encoder.Compress(msg)
	}
	return msg
}

// frame picks the precomputed form of a group message for this client.
func (c *Client) frame(msg *GroupMessage) []byte {
	if c.protocol == protocolZstd {
		return msg.Compressed
	}
	return msg.Payload
}

// GroupName returns the subscription group for ticker, e.g. "levels_SPX".
func (h *Hub) GroupName(ticker string) string {
	return h.name + "_" + strings.ToUpper(ticker)
}

// TickerFromGroup extracts the ticker from a group name, or "" when the group
// does not belong to this hub.
func (h *Hub) TickerFromGroup(group string) string {
	prefix := h.name + "_"
	if !strings.HasPrefix(group, prefix) {
		return ""
	}
	return strings.TrimPrefix(group, prefix)
}

func (h *Hub) validGroup(group string) bool {
	ticker := h.TickerFromGroup(group)
	if ticker == "" || ticker != strings.ToUpper(ticker) {
		return false
	}
	return true
}
