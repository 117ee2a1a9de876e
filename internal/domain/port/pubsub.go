package port

import (
	"context"

	"stockwatch/internal/domain/model"
)

// Publisher pushes refresh results out to connected clients. The concrete
// transport is Redis pub/sub; the gateway hub bridges channels to sockets.
type Publisher interface {
	PublishWatchlistUpdate(ctx context.Context, userID string, update model.WatchlistUpdate) error
	PublishMarketStatus(ctx context.Context, status model.MarketStatus) error
}
