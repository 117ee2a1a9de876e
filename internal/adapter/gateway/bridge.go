package gateway

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"stockwatch/internal/adapter/cache"
)

// RunBridge pumps published refresh results from Redis into the hub's rooms.
// It blocks until the subscription channel closes or the context is done.
func RunBridge(ctx context.Context, ps *redis.PubSub, hub *Hub, logger *slog.Logger) {
	ch := ps.Channel()
	logger.Info("pubsub bridge started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("pubsub bridge stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				logger.Info("pubsub channel closed, bridge exiting")
				return
			}

			if cache.MarketStatusChannel(msg.Channel) {
				hub.BroadcastMarket(EventMarketStatusUpdated, []byte(msg.Payload))
				continue
			}
			if userID := cache.UserIDFromChannel(msg.Channel); userID != "" {
				hub.BroadcastToUser(userID, EventWatchlistUpdated, []byte(msg.Payload))
			}
		}
	}
}
