package service

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"stockwatch/internal/application/registry"
)

// Housekeeper sweeps stale connections and expired interest entries on its
// own timer, independent of the refresh cycle.
type Housekeeper struct {
	conns       *registry.ConnectionRegistry
	interest    *registry.InterestRegistry
	idleTimeout time.Duration
	period      time.Duration
	logger      *slog.Logger
}

func NewHousekeeper(conns *registry.ConnectionRegistry, interest *registry.InterestRegistry, idleTimeout, period time.Duration, logger *slog.Logger) *Housekeeper {
	if period <= 0 {
		period = 5 * time.Minute
	}
	if idleTimeout <= 0 {
		idleTimeout = time.Hour
	}
	return &Housekeeper{
		conns:       conns,
		interest:    interest,
		idleTimeout: idleTimeout,
		period:      period,
		logger:      logger,
	}
}

func (h *Housekeeper) Start(ctx context.Context) {
	ticker := time.NewTicker(h.period)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				idle := h.conns.SweepIdle(now, h.idleTimeout)
				expired := h.interest.SweepExpired(now)
				if idle > 0 || expired > 0 {
					h.logger.Info("housekeeping sweep", "idle_connections", idle, "expired_interests", expired)
				}
				runtime.GC()
			}
		}
	}()
}
