package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"stockwatch/internal/application/service"
	"stockwatch/internal/domain/model"
)

type stubCache struct {
	quotes map[string]model.Quote
	writes []string
}

func (c *stubCache) GetLatestQuote(_ context.Context, symbol string) (*model.Quote, error) {
	if q, ok := c.quotes[symbol]; ok {
		return &q, nil
	}
	return nil, nil
}

func (c *stubCache) SetLatestQuote(_ context.Context, q model.Quote) error {
	c.writes = append(c.writes, q.Symbol)
	return nil
}

func (c *stubCache) Ping(context.Context) error { return nil }
func (c *stubCache) Close() error               { return nil }

type stubProvider struct {
	name   string
	quotes map[string]model.Quote
	err    error
	calls  int
}

func (p *stubProvider) Name() string    { return p.name }
func (p *stubProvider) Batchable() bool { return false }

func (p *stubProvider) FetchOne(_ context.Context, symbol string) (*model.Quote, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if q, ok := p.quotes[symbol]; ok {
		return &q, nil
	}
	return nil, nil
}

func (p *stubProvider) FetchBatch(context.Context, []string) (map[string]model.Quote, error) {
	return nil, errors.New("not batchable")
}

func newUseCase(cache *stubCache, primary, fallback *stubProvider) (*QuoteUseCase, *service.ProviderModeService) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mode := service.NewProviderModeService(log)
	return NewQuoteUseCase(cache, primary, fallback, mode), mode
}

func TestGetQuote_CacheHitSkipsProviders(t *testing.T) {
	cache := &stubCache{quotes: map[string]model.Quote{
		"AAPL": {Symbol: "AAPL", Price: 150},
	}}
	primary := &stubProvider{name: "primary"}
	fallback := &stubProvider{name: "fallback"}
	uc, _ := newUseCase(cache, primary, fallback)

	q, err := uc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, 150.0, q.Price)
	require.Zero(t, primary.calls)
	require.Zero(t, fallback.calls)
}

func TestGetQuote_PrimaryMissFallsThrough(t *testing.T) {
	cache := &stubCache{}
	primary := &stubProvider{name: "primary"}
	fallback := &stubProvider{name: "fallback", quotes: map[string]model.Quote{
		"AAPL": {Symbol: "AAPL", Price: 149},
	}}
	uc, _ := newUseCase(cache, primary, fallback)

	q, err := uc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, 149.0, q.Price)
	require.Equal(t, 1, primary.calls)
	require.Equal(t, 1, fallback.calls)
	require.Equal(t, []string{"AAPL"}, cache.writes, "resolved quote is written through")
}

func TestGetQuote_PrimaryDisabled(t *testing.T) {
	cache := &stubCache{}
	primary := &stubProvider{name: "primary", quotes: map[string]model.Quote{
		"AAPL": {Symbol: "AAPL", Price: 150},
	}}
	fallback := &stubProvider{name: "fallback", quotes: map[string]model.Quote{
		"AAPL": {Symbol: "AAPL", Price: 149},
	}}
	uc, mode := newUseCase(cache, primary, fallback)

	mode.SetPrimaryEnabled(false)

	q, err := uc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, 149.0, q.Price)
	require.Zero(t, primary.calls)
}

func TestGetQuote_UnresolvableIsNil(t *testing.T) {
	uc, _ := newUseCase(&stubCache{}, &stubProvider{name: "primary"}, &stubProvider{name: "fallback"})

	q, err := uc.GetQuote(context.Background(), "NOPE")
	require.NoError(t, err)
	require.Nil(t, q)
}

func TestGetQuote_FallbackErrorSurfaces(t *testing.T) {
	fallback := &stubProvider{name: "fallback", err: errors.New("upstream down")}
	uc, _ := newUseCase(&stubCache{}, &stubProvider{name: "primary"}, fallback)

	_, err := uc.GetQuote(context.Background(), "AAPL")
	require.Error(t, err)
}
