package port

import (
	"context"

	"stockwatch/internal/domain/model"
)

type WatchlistStore interface {
	GetWatchlist(ctx context.Context, userID string, limit int) ([]model.WatchlistItem, error)
	Add(ctx context.Context, userID string, item model.WatchlistItem) error
	Remove(ctx context.Context, userID, symbol string) error
	UpdateOriginalPrice(ctx context.Context, userID, symbol string, price float64) error
	Ping(ctx context.Context) error
	Close() error
}
