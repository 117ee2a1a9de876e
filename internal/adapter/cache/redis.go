package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stockwatch/internal/domain/model"
)

const (
	quoteKeyPrefix      = "quote:latest:"
	watchlistChanPrefix = "watchlist:updates:"
	marketStatusChannel = "market:updates"
)

// RedisAdapter backs two concerns with one connection: the latest-quote
// cache read by the REST quote endpoint, and the pub/sub channels the
// refresh loop fans out on.
type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(addr, password string, db int, ttl time.Duration) (*RedisAdapter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisAdapter{
		client: client,
		ttl:    ttl,
	}, nil
}

func (a *RedisAdapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

func (a *RedisAdapter) SetLatestQuote(ctx context.Context, q model.Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	if err := a.client.Set(ctx, quoteKeyPrefix+q.Symbol, data, a.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set latest quote in redis: %w", err)
	}
	return nil
}

func (a *RedisAdapter) GetLatestQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	data, err := a.client.Get(ctx, quoteKeyPrefix+symbol).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest quote from redis: %w", err)
	}

	var q model.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote: %w", err)
	}
	return &q, nil
}

func (a *RedisAdapter) PublishWatchlistUpdate(ctx context.Context, userID string, update model.WatchlistUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal watchlist update: %w", err)
	}
	if err := a.client.Publish(ctx, watchlistChanPrefix+userID, data).Err(); err != nil {
		return fmt.Errorf("failed to publish watchlist update: %w", err)
	}
	return nil
}

func (a *RedisAdapter) PublishMarketStatus(ctx context.Context, status model.MarketStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal market status: %w", err)
	}
	if err := a.client.Publish(ctx, marketStatusChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish market status: %w", err)
	}
	return nil
}

// SubscribeUpdates opens the pub/sub side of the adapter for the gateway
// bridge: a pattern subscription over all per-user channels plus the shared
// market channel. The returned PubSub must be closed by the caller.
func (a *RedisAdapter) SubscribeUpdates(ctx context.Context) *redis.PubSub {
	ps := a.client.PSubscribe(ctx, watchlistChanPrefix+"*")
	_ = ps.Subscribe(ctx, marketStatusChannel)
	return ps
}

// UserIDFromChannel extracts the user id from a per-user channel name.
// Returns "" for the shared market channel.
func UserIDFromChannel(channel string) string {
	if len(channel) > len(watchlistChanPrefix) && channel[:len(watchlistChanPrefix)] == watchlistChanPrefix {
		return channel[len(watchlistChanPrefix):]
	}
	return ""
}

// MarketStatusChannel reports whether the channel is the shared one.
func MarketStatusChannel(channel string) bool {
	return channel == marketStatusChannel
}

func (a *RedisAdapter) Close() error {
	return a.client.Close()
}
