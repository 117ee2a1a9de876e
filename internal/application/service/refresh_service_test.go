package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockwatch/internal/application/registry"
	"stockwatch/internal/domain/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	items map[string][]model.WatchlistItem
	errs  map[string]error
}

func (f *fakeStore) GetWatchlist(_ context.Context, userID string, _ int) ([]model.WatchlistItem, error) {
	if err := f.errs[userID]; err != nil {
		return nil, err
	}
	return f.items[userID], nil
}

func (f *fakeStore) Add(context.Context, string, model.WatchlistItem) error { return nil }
func (f *fakeStore) Remove(context.Context, string, string) error           { return nil }
func (f *fakeStore) UpdateOriginalPrice(context.Context, string, string, float64) error {
	return nil
}
func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

type fakeProvider struct {
	mu         sync.Mutex
	name       string
	batchable  bool
	quotes     map[string]model.Quote
	batchErr   error
	batchCalls [][]string
	oneCalls   []string
}

func (f *fakeProvider) Name() string    { return f.name }
func (f *fakeProvider) Batchable() bool { return f.batchable }

func (f *fakeProvider) FetchOne(_ context.Context, symbol string) (*model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oneCalls = append(f.oneCalls, symbol)
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (f *fakeProvider) FetchBatch(_ context.Context, symbols []string) (map[string]model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls = append(f.batchCalls, append([]string(nil), symbols...))
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make(map[string]model.Quote)
	for _, sym := range symbols {
		if q, ok := f.quotes[sym]; ok {
			out[sym] = q
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	updates  map[string][]model.WatchlistUpdate
	statuses []model.MarketStatus
	err      error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{updates: make(map[string][]model.WatchlistUpdate)}
}

func (f *fakePublisher) PublishWatchlistUpdate(_ context.Context, userID string, update model.WatchlistUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updates[userID] = append(f.updates[userID], update)
	return nil
}

func (f *fakePublisher) PublishMarketStatus(_ context.Context, status model.MarketStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

type fixture struct {
	svc      *RefreshService
	conns    *registry.ConnectionRegistry
	interest *registry.InterestRegistry
	store    *fakeStore
	primary  *fakeProvider
	fallback *fakeProvider
	pub      *fakePublisher
	mode     *ProviderModeService
}

func newFixture(cfg RefreshConfig) *fixture {
	log := discardLogger()
	interest := registry.NewInterestRegistry(time.Minute, log)
	conns := registry.NewConnectionRegistry(500, log, interest.DropUser)
	store := &fakeStore{items: make(map[string][]model.WatchlistItem), errs: make(map[string]error)}
	primary := &fakeProvider{name: "primary", batchable: true, quotes: make(map[string]model.Quote)}
	fallback := &fakeProvider{name: "fallback", quotes: make(map[string]model.Quote)}
	pub := newFakePublisher()
	mode := NewProviderModeService(log)

	svc := NewRefreshService(cfg, conns, interest, store, primary, fallback, pub, mode, NewMarketClock(), log)
	return &fixture{
		svc:      svc,
		conns:    conns,
		interest: interest,
		store:    store,
		primary:  primary,
		fallback: fallback,
		pub:      pub,
		mode:     mode,
	}
}

func (f *fixture) connectUser(connID, userID string) {
	f.conns.OnConnect(connID)
	f.conns.OnIdentify(connID, userID)
}

func TestRunCycle_PublishesOnlyWatchlistSymbolsWithQuotes(t *testing.T) {
	f := newFixture(RefreshConfig{})
	f.connectUser("c1", "u1")

	f.store.items["u1"] = []model.WatchlistItem{
		{Symbol: "AAPL", OriginalPrice: 100, Category: "tech", Priority: "high"},
		{Symbol: "MSFT", OriginalPrice: 0, Category: "tech", Priority: "normal"},
	}
	// TSLA is viewed but not on the watchlist: fetched, never published.
	f.interest.MarkViewed("u1", "TSLA")

	f.primary.quotes["AAPL"] = model.Quote{Symbol: "AAPL", Name: "Apple Inc.", Price: 150}
	f.primary.quotes["TSLA"] = model.Quote{Symbol: "TSLA", Name: "Tesla Inc.", Price: 50}

	f.svc.RunCycle(context.Background())

	require.Len(t, f.pub.updates["u1"], 1)
	update := f.pub.updates["u1"][0]
	require.Len(t, update.Prices, 1)

	got := update.Prices[0]
	require.Equal(t, "AAPL", got.Symbol)
	require.Equal(t, 150.0, got.Price)
	require.Equal(t, 50.0, got.PriceChange)
	require.Equal(t, 50.0, got.PriceChangePercent)
	require.Equal(t, "tech", got.Category)
	require.Equal(t, "high", got.Priority)
	require.Equal(t, uint64(1), update.Cycle)

	require.Len(t, f.pub.statuses, 1)
}

func TestRunCycle_ViewedSymbolsFetchedFirst(t *testing.T) {
	f := newFixture(RefreshConfig{})
	f.connectUser("c1", "u1")

	f.store.items["u1"] = []model.WatchlistItem{
		{Symbol: "AAPL", OriginalPrice: 100},
		{Symbol: "MSFT", OriginalPrice: 200},
	}
	f.interest.MarkViewed("u1", "TSLA")

	f.svc.RunCycle(context.Background())

	require.Len(t, f.primary.batchCalls, 1)
	require.Equal(t, []string{"TSLA", "AAPL", "MSFT"}, f.primary.batchCalls[0])
}

func TestRunCycle_NoSubscribersSkipsProviders(t *testing.T) {
	f := newFixture(RefreshConfig{})

	f.svc.RunCycle(context.Background())

	require.Empty(t, f.primary.batchCalls)
	require.Empty(t, f.fallback.oneCalls)
	require.Empty(t, f.pub.updates)
	require.Empty(t, f.pub.statuses)
}

func TestRunCycle_EmptyWatchlistsSkipFetchAndFanout(t *testing.T) {
	f := newFixture(RefreshConfig{})
	f.connectUser("c1", "u1")

	f.svc.RunCycle(context.Background())

	require.Empty(t, f.primary.batchCalls)
	require.Empty(t, f.pub.statuses)
}

func TestRunCycle_FallbackCoversBatchMisses(t *testing.T) {
	f := newFixture(RefreshConfig{})
	f.connectUser("c1", "u1")

	f.store.items["u1"] = []model.WatchlistItem{
		{Symbol: "AAPL", OriginalPrice: 100},
		{Symbol: "MSFT", OriginalPrice: 200},
		{Symbol: "NVDA", OriginalPrice: 300},
	}
	f.primary.quotes["AAPL"] = model.Quote{Symbol: "AAPL", Price: 110}
	f.fallback.quotes["MSFT"] = model.Quote{Symbol: "MSFT", Price: 220}

	f.svc.RunCycle(context.Background())

	require.Equal(t, []string{"MSFT", "NVDA"}, f.fallback.oneCalls)

	update := f.pub.updates["u1"][0]
	require.Len(t, update.Prices, 2)
	symbols := []string{update.Prices[0].Symbol, update.Prices[1].Symbol}
	require.ElementsMatch(t, []string{"AAPL", "MSFT"}, symbols)
}

func TestRunCycle_PrimaryDisabledRoutesAllToFallback(t *testing.T) {
	f := newFixture(RefreshConfig{})
	f.connectUser("c1", "u1")

	f.store.items["u1"] = []model.WatchlistItem{
		{Symbol: "AAPL", OriginalPrice: 100},
		{Symbol: "MSFT", OriginalPrice: 200},
	}
	f.fallback.quotes["AAPL"] = model.Quote{Symbol: "AAPL", Price: 110}
	f.fallback.quotes["MSFT"] = model.Quote{Symbol: "MSFT", Price: 210}

	f.mode.SetPrimaryEnabled(false)
	f.svc.RunCycle(context.Background())

	require.Empty(t, f.primary.batchCalls)
	require.Equal(t, []string{"AAPL", "MSFT"}, f.fallback.oneCalls)
	require.Len(t, f.pub.updates["u1"], 1)
	require.Len(t, f.pub.updates["u1"][0].Prices, 2)
}

func TestRunCycle_FallbackCapBoundsIndividualFetches(t *testing.T) {
	f := newFixture(RefreshConfig{FallbackCap: 2})
	f.connectUser("c1", "u1")

	f.store.items["u1"] = []model.WatchlistItem{
		{Symbol: "AAPL", OriginalPrice: 100},
		{Symbol: "MSFT", OriginalPrice: 200},
		{Symbol: "NVDA", OriginalPrice: 300},
		{Symbol: "AMZN", OriginalPrice: 400},
	}
	f.primary.batchErr = errors.New("upstream down")

	f.svc.RunCycle(context.Background())

	require.Len(t, f.fallback.oneCalls, 2)
}

func TestRunCycle_WatchlistLoadFailureSkipsOnlyThatUser(t *testing.T) {
	f := newFixture(RefreshConfig{})
	f.connectUser("c1", "u1")
	f.connectUser("c2", "u2")

	f.store.errs["u1"] = errors.New("db down")
	f.store.items["u2"] = []model.WatchlistItem{{Symbol: "AAPL", OriginalPrice: 100}}
	f.primary.quotes["AAPL"] = model.Quote{Symbol: "AAPL", Price: 120}

	f.svc.RunCycle(context.Background())

	require.Empty(t, f.pub.updates["u1"])
	require.Len(t, f.pub.updates["u2"], 1)
}

func TestRunCycle_ZeroOriginalPriceYieldsZeroChange(t *testing.T) {
	f := newFixture(RefreshConfig{})
	f.connectUser("c1", "u1")

	f.store.items["u1"] = []model.WatchlistItem{{Symbol: "XYZ", OriginalPrice: 0}}
	f.primary.quotes["XYZ"] = model.Quote{Symbol: "XYZ", Price: 10.456}

	f.svc.RunCycle(context.Background())

	update := f.pub.updates["u1"][0]
	require.Len(t, update.Prices, 1)
	require.Equal(t, 10.46, update.Prices[0].Price)
	require.Equal(t, 0.0, update.Prices[0].PriceChange)
	require.Equal(t, 0.0, update.Prices[0].PriceChangePercent)
}

func TestRunCycle_NoEmptyUpdatePublished(t *testing.T) {
	f := newFixture(RefreshConfig{})
	f.connectUser("c1", "u1")

	// Every fetch fails, so u1 has nothing to receive.
	f.store.items["u1"] = []model.WatchlistItem{{Symbol: "AAPL", OriginalPrice: 100}}

	f.svc.RunCycle(context.Background())

	require.Empty(t, f.pub.updates["u1"])
	require.Len(t, f.pub.statuses, 1)
}

func TestRunCycle_FallbackDelayDependsOnPriorityClass(t *testing.T) {
	f := newFixture(RefreshConfig{
		PriorityDelay: 250 * time.Millisecond,
		RegularDelay:  time.Second,
	})
	f.connectUser("c1", "u1")

	f.store.items["u1"] = []model.WatchlistItem{{Symbol: "MSFT", OriginalPrice: 100}}
	f.interest.MarkViewed("u1", "TSLA")

	var delays []time.Duration
	f.svc.sleep = func(_ context.Context, d time.Duration) bool {
		delays = append(delays, d)
		return true
	}

	f.mode.SetPrimaryEnabled(false)
	f.svc.RunCycle(context.Background())

	require.Equal(t, []time.Duration{250 * time.Millisecond, time.Second}, delays)
	require.Equal(t, []string{"TSLA", "MSFT"}, f.fallback.oneCalls)
}

func TestRunCycle_StreamsQuotesForCacheWriters(t *testing.T) {
	f := newFixture(RefreshConfig{})
	f.connectUser("c1", "u1")

	f.store.items["u1"] = []model.WatchlistItem{{Symbol: "AAPL", OriginalPrice: 100}}
	f.primary.quotes["AAPL"] = model.Quote{Symbol: "AAPL", Price: 150}

	f.svc.RunCycle(context.Background())

	select {
	case q := <-f.svc.Quotes():
		require.Equal(t, "AAPL", q.Symbol)
	default:
		t.Fatal("expected a quote on the stream")
	}
}

func TestSafeCycle_RecoversPanic(t *testing.T) {
	f := newFixture(RefreshConfig{})
	f.connectUser("c1", "u1")
	f.store.items["u1"] = []model.WatchlistItem{{Symbol: "AAPL", OriginalPrice: 100}}

	f.svc.pub = panicPublisher{}
	f.primary.quotes["AAPL"] = model.Quote{Symbol: "AAPL", Price: 150}

	err := f.svc.safeCycle(context.Background())
	require.Error(t, err)
}

type panicPublisher struct{}

func (panicPublisher) PublishWatchlistUpdate(context.Context, string, model.WatchlistUpdate) error {
	panic("publisher blew up")
}

func (panicPublisher) PublishMarketStatus(context.Context, model.MarketStatus) error {
	panic("publisher blew up")
}

func TestRound2(t *testing.T) {
	require.Equal(t, 50.0, round2(50.004))
	require.Equal(t, 50.01, round2(50.006))
	require.Equal(t, -3.33, round2(-10.0/3.0))
}
