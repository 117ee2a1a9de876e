package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"stockwatch/internal/application/registry"
	"stockwatch/internal/domain/model"
	"stockwatch/internal/domain/port"
)

type WatchlistHandler struct {
	store  port.WatchlistStore
	limit  int
	logger *slog.Logger
}

func NewWatchlistHandler(store port.WatchlistStore, limit int, logger *slog.Logger) *WatchlistHandler {
	return &WatchlistHandler{
		store:  store,
		limit:  limit,
		logger: logger,
	}
}

func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	if id == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	items, err := h.store.GetWatchlist(r.Context(), id.UserID, h.limit)
	if err != nil {
		h.logger.Error("failed to load watchlist", "user_id", id.UserID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []model.WatchlistItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"watchlist": items})
}

func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	if id == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var item model.WatchlistItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item.Symbol = strings.ToUpper(strings.TrimSpace(item.Symbol))
	if !registry.ValidSymbol(item.Symbol) {
		http.Error(w, "invalid symbol", http.StatusBadRequest)
		return
	}
	if item.Category == "" {
		item.Category = "general"
	}
	if item.Priority == "" {
		item.Priority = "normal"
	}

	if err := h.store.Add(r.Context(), id.UserID, item); err != nil {
		h.logger.Error("failed to add watchlist item", "user_id", id.UserID, "symbol", item.Symbol, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	if id == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	symbol := strings.ToUpper(r.PathValue("symbol"))
	if !registry.ValidSymbol(symbol) {
		http.Error(w, "invalid symbol", http.StatusBadRequest)
		return
	}

	if err := h.store.Remove(r.Context(), id.UserID, symbol); err != nil {
		h.logger.Error("failed to remove watchlist item", "user_id", id.UserID, "symbol", symbol, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *WatchlistHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	if id == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	symbol := strings.ToUpper(r.PathValue("symbol"))
	if !registry.ValidSymbol(symbol) {
		http.Error(w, "invalid symbol", http.StatusBadRequest)
		return
	}

	var body struct {
		OriginalPrice float64 `json:"original_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.OriginalPrice <= 0 {
		http.Error(w, "original_price must be positive", http.StatusBadRequest)
		return
	}

	if err := h.store.UpdateOriginalPrice(r.Context(), id.UserID, symbol, body.OriginalPrice); err != nil {
		h.logger.Error("failed to update original price", "user_id", id.UserID, "symbol", symbol, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
