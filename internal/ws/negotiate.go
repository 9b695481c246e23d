package ws

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// NegotiateResponse lists the websocket endpoints and their subprotocols.
type NegotiateResponse struct {
	WebsocketURLs map[string]string `json:"websocket_urls"`
	Subprotocols  []string          `json:"subprotocols"`
	GroupPrefix   string            `json:"group_prefix"`
}

// NegotiateHandler handles the /negotiate endpoint.
type NegotiateHandler struct {
	groupPrefix string
	logger      *zap.Logger
}

// NewNegotiateHandler creates a new NegotiateHandler.
func NewNegotiateHandler(groupPrefix string, logger *zap.Logger) *NegotiateHandler {
	return &NegotiateHandler{groupPrefix: groupPrefix, logger: logger}
}

// HandleNegotiate handles GET /negotiate
func (h *NegotiateHandler) HandleNegotiate(w http.ResponseWriter, r *http.Request) {
	// Build WebSocket URL based on request
	scheme := "ws"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "wss"
	}

	response := NegotiateResponse{
		WebsocketURLs: map[string]string{
			h.groupPrefix: fmt.Sprintf("%s://%s/ws", scheme, r.Host),
		},
		Subprotocols: []string{SubprotocolJSON, SubprotocolZstd},
		GroupPrefix:  h.groupPrefix + "_",
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode negotiate response", zap.Error(err))
	}
}
