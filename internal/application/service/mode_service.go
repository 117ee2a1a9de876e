package service

import (
	"log/slog"
	"sync"
)

// ProviderModeService tracks whether the primary quote provider is enabled.
// When disabled, the refresh loop routes the whole symbol universe through
// the fallback provider.
type ProviderModeService struct {
	mu             sync.RWMutex
	primaryEnabled bool
	logger         *slog.Logger
}

func NewProviderModeService(logger *slog.Logger) *ProviderModeService {
	return &ProviderModeService{
		primaryEnabled: true,
		logger:         logger,
	}
}

func (s *ProviderModeService) SetPrimaryEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.primaryEnabled == enabled {
		return
	}
	s.logger.Info("provider mode updated", "primary_enabled", enabled)
	s.primaryEnabled = enabled
}

func (s *ProviderModeService) PrimaryEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.primaryEnabled
}
