package port

import (
	"context"

	"stockwatch/internal/domain/model"
)

type QuoteCache interface {
	SetLatestQuote(ctx context.Context, q model.Quote) error
	GetLatestQuote(ctx context.Context, symbol string) (*model.Quote, error)
	Ping(ctx context.Context) error
	Close() error
}
