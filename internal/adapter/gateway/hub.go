package gateway

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"stockwatch/internal/application/registry"
)

// Hub routes inbound socket events into the registries and fans published
// updates back out to the sockets in each room.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	userRooms  map[string]map[*Client]bool
	marketRoom map[*Client]bool

	conns    *registry.ConnectionRegistry
	interest *registry.InterestRegistry
	logger   *slog.Logger
}

func NewHub(conns *registry.ConnectionRegistry, interest *registry.InterestRegistry, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		userRooms:  make(map[string]map[*Client]bool),
		marketRoom: make(map[*Client]bool),
		conns:      conns,
		interest:   interest,
		logger:     logger,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	h.conns.OnConnect(c.id)
	h.interest.SweepExpired(time.Now())
	h.logger.Debug("client connected", "conn_id", c.id)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	delete(h.marketRoom, c)
	for userID, room := range h.userRooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.userRooms, userID)
		}
	}
	h.mu.Unlock()

	h.conns.OnDisconnect(c.id)
	h.logger.Debug("client disconnected", "conn_id", c.id)
}

// HandleEvent applies one inbound event. Unknown events are logged and
// dropped; a push channel has no error responses to give.
func (h *Hub) HandleEvent(c *Client, env Envelope) {
	h.conns.Touch(c.id)

	var data EventData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			h.logger.Warn("malformed event payload", "conn_id", c.id, "event", env.Event)
			return
		}
	}

	switch env.Event {
	case EventJoinUserRoom, EventJoinWatchlistUpdates:
		if data.UserID == "" {
			return
		}
		h.conns.OnIdentify(c.id, data.UserID)
		h.mu.Lock()
		if h.userRooms[data.UserID] == nil {
			h.userRooms[data.UserID] = make(map[*Client]bool)
		}
		h.userRooms[data.UserID][c] = true
		h.mu.Unlock()

	case EventJoinMarketUpdates:
		h.mu.Lock()
		h.marketRoom[c] = true
		h.mu.Unlock()

	case EventTrackStockView:
		h.interest.MarkViewed(data.UserID, normalizeSymbol(data.Symbol))

	case EventUntrackStockView:
		h.interest.UnmarkViewed(data.UserID, normalizeSymbol(data.Symbol))

	case EventTrackSearchStock:
		symbols := make([]string, 0, len(data.Symbols))
		for _, s := range data.Symbols {
			symbols = append(symbols, normalizeSymbol(s))
		}
		h.interest.MarkViewedAll(data.UserID, symbols)

	default:
		h.logger.Warn("unknown event", "conn_id", c.id, "event", env.Event)
	}
}

// BroadcastToUser delivers a payload to every socket in the user's room.
func (h *Hub) BroadcastToUser(userID string, event string, data []byte) {
	msg := envelope(event, data)
	if msg == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.userRooms[userID] {
		c.Send(msg)
	}
}

// BroadcastMarket delivers a payload to every socket in the market room.
func (h *Hub) BroadcastMarket(event string, data []byte) {
	msg := envelope(event, data)
	if msg == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.marketRoom {
		c.Send(msg)
	}
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
