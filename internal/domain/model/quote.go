package model

import "time"

// Quote is one provider's price/name answer for one symbol at one point in time.
// Quotes are cycle-scoped: produced fresh every refresh cycle, never persisted.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// WatchlistItem is one row of a user's persisted watchlist.
// OriginalPrice is the price at the time the symbol was added; it anchors
// the percent-change computation in update messages.
type WatchlistItem struct {
	Symbol        string  `json:"symbol" db:"symbol"`
	OriginalPrice float64 `json:"original_price" db:"original_price"`
	Category      string  `json:"category" db:"category"`
	Priority      string  `json:"priority" db:"priority"`
}

// StockUpdate is one entry of a watchlist_updated push message.
type StockUpdate struct {
	Symbol             string  `json:"symbol"`
	Name               string  `json:"name"`
	Price              float64 `json:"price"`
	PriceChange        float64 `json:"price_change"`
	PriceChangePercent float64 `json:"price_change_percent"`
	Category           string  `json:"category"`
	Priority           string  `json:"priority"`
}

// WatchlistUpdate is the per-user push message published each cycle.
type WatchlistUpdate struct {
	Prices    []StockUpdate `json:"prices"`
	Timestamp time.Time     `json:"timestamp"`
	Cycle     uint64        `json:"cycle"`
}

// MarketStatus is the shared push message published once per cycle.
type MarketStatus struct {
	IsOpen      bool      `json:"isOpen"`
	Status      string    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
}

// Identity is the result of verifying a bearer token.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}
