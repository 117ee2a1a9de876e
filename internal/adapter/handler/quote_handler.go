package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"stockwatch/internal/application/registry"
	"stockwatch/internal/application/usecase"
)

type QuoteHandler struct {
	useCase *usecase.QuoteUseCase
	logger  *slog.Logger
}

func NewQuoteHandler(useCase *usecase.QuoteUseCase, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{
		useCase: useCase,
		logger:  logger,
	}
}

func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	if !registry.ValidSymbol(symbol) {
		http.Error(w, "invalid symbol", http.StatusBadRequest)
		return
	}

	q, err := h.useCase.GetQuote(r.Context(), symbol)
	if err != nil {
		h.logger.Error("failed to get quote", "symbol", symbol, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if q == nil {
		http.Error(w, "symbol not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(q)
}
