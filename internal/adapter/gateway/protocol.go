package gateway

import "encoding/json"

// Inbound client events.
const (
	EventJoinUserRoom         = "join_user_room"
	EventJoinWatchlistUpdates = "join_watchlist_updates"
	EventJoinMarketUpdates    = "join_market_updates"
	EventTrackStockView       = "track_stock_view"
	EventUntrackStockView     = "untrack_stock_view"
	EventTrackSearchStock     = "track_search_stock"
)

// Outbound push events.
const (
	EventWatchlistUpdated    = "watchlist_updated"
	EventMarketStatusUpdated = "market_status_updated"
)

// Envelope is the wire frame for both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EventData carries the fields used by the inbound event vocabulary.
type EventData struct {
	UserID  string   `json:"user_id"`
	Symbol  string   `json:"symbol"`
	Symbols []string `json:"symbols"`
}

type outbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func envelope(event string, data []byte) []byte {
	b, err := json.Marshal(outbound{Event: event, Data: data})
	if err != nil {
		return nil
	}
	return b
}
