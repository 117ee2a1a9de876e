package usecase

import (
	"context"

	"stockwatch/internal/application/service"
	"stockwatch/internal/domain/model"
	"stockwatch/internal/domain/port"
)

// QuoteUseCase answers on-demand quote lookups for the REST surface:
// cache first, then the providers in fallback order.
type QuoteUseCase struct {
	cache    port.QuoteCache
	primary  port.QuoteProvider
	fallback port.QuoteProvider
	mode     *service.ProviderModeService
}

func NewQuoteUseCase(cache port.QuoteCache, primary, fallback port.QuoteProvider, mode *service.ProviderModeService) *QuoteUseCase {
	return &QuoteUseCase{
		cache:    cache,
		primary:  primary,
		fallback: fallback,
		mode:     mode,
	}
}

// GetQuote returns the freshest known quote for a symbol, or nil when no
// provider can resolve it.
func (uc *QuoteUseCase) GetQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	if q, err := uc.cache.GetLatestQuote(ctx, symbol); err == nil && q != nil {
		return q, nil
	}

	if uc.primary != nil && (uc.mode == nil || uc.mode.PrimaryEnabled()) {
		q, err := uc.primary.FetchOne(ctx, symbol)
		if err == nil && q != nil {
			_ = uc.cache.SetLatestQuote(ctx, *q)
			return q, nil
		}
	}

	if uc.fallback == nil {
		return nil, nil
	}
	q, err := uc.fallback.FetchOne(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if q != nil {
		_ = uc.cache.SetLatestQuote(ctx, *q)
	}
	return q, nil
}
