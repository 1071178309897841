package wshub

import (
	"chograce/internal/replica"
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
)

// ClientMessage is the JSON structure received from clients.
type ClientMessage struct {
	Type    string `json:"t"`
	OK      bool   `json:"ok,omitempty"`
	Version uint64 `json:"v,omitempty"`
	// Cursor and Target report raw bar geometry instead of OK.
	Cursor *float64 `json:"cursor,omitempty"`
	Target *int     `json:"target,omitempty"`
}

// ServerMessage is the JSON structure sent to clients.
type ServerMessage struct {
	Type     string            `json:"t"`
	PeerID   string            `json:"id,omitempty"`
	Command  *replica.Command  `json:"cmd,omitempty"`
	Snapshot *replica.Snapshot `json:"snap,omitempty"`
	Peers    []string          `json:"peers,omitempty"`
}

// Client represents a single WebSocket connection in the hub.
type Client struct {
	PeerID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Hub manages per-room WebSocket connections, one per peer.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a client to the hub. A previous connection for the same
// peer is displaced and its Send channel closed.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if old, ok := h.clients[c.PeerID]; ok && old != c {
		close(old.Send)
	}
	h.clients[c.PeerID] = c
	h.mu.Unlock()

	h.broadcastPeers()
}

// Unregister removes c if it is still the peer's current connection. It
// reports whether anything was removed.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	cur, ok := h.clients[c.PeerID]
	removed := ok && cur == c
	if removed {
		close(c.Send)
		delete(h.clients, c.PeerID)
	}
	h.mu.Unlock()

	if removed {
		h.broadcastPeers()
	}
	return removed
}

func (h *Hub) broadcastPeers() {
	h.Broadcast(ServerMessage{Type: "peers", Peers: h.PeerIDs()})
}

// PeerIDs lists connected peers in id order.
func (h *Hub) PeerIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(msg ServerMessage) {
	h.BroadcastExcept("", msg)
}

// BroadcastExcept sends a message to all clients except the sender. Non-blocking: drops if channel full.
func (h *Hub) BroadcastExcept(senderID string, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("marshal server message", "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.clients {
		if senderID != "" && id == senderID {
			continue
		}
		select {
		case c.Send <- data:
		default:
			// Drop message if channel full
		}
	}
}

// Send delivers msg to one peer. It reports false when the peer is not
// connected or its channel is full.
func (h *Hub) Send(peerID string, msg ServerMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("marshal server message", "err", err)
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[peerID]
	if !ok {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}
