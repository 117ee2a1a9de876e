package handler

import (
	"log/slog"
	"net/http"

	"stockwatch/internal/application/service"
)

type ModeHandler struct {
	modeService *service.ProviderModeService
	logger      *slog.Logger
}

func NewModeHandler(ms *service.ProviderModeService, logger *slog.Logger) *ModeHandler {
	return &ModeHandler{
		modeService: ms,
		logger:      logger,
	}
}

func (h *ModeHandler) EnablePrimary(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("received request to enable primary provider")
	h.setMode(w, true)
}

func (h *ModeHandler) DisablePrimary(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("received request to disable primary provider")
	h.setMode(w, false)
}

func (h *ModeHandler) setMode(w http.ResponseWriter, enabled bool) {
	if h.modeService.PrimaryEnabled() == enabled {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","message":"already in requested mode"}`))
		return
	}

	h.modeService.SetPrimaryEnabled(enabled)

	w.WriteHeader(http.StatusOK)
	if enabled {
		_, _ = w.Write([]byte(`{"status":"ok","primary_enabled":true}`))
	} else {
		_, _ = w.Write([]byte(`{"status":"ok","primary_enabled":false}`))
	}
}
