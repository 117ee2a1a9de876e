package service

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"stockwatch/internal/application/registry"
	"stockwatch/internal/domain/model"
	"stockwatch/internal/domain/port"
)

// RefreshConfig bounds one refresh cycle.
type RefreshConfig struct {
	Interval       time.Duration // sleep between cycles
	ErrorBackoff   time.Duration // sleep after a failed cycle
	PriorityDelay  time.Duration // pause before each priority fallback fetch
	RegularDelay   time.Duration // pause before each regular fallback fetch
	FallbackCap    int           // max individual fetches per cycle
	WatchlistLimit int           // per-user watchlist load limit
}

// RefreshService runs the tiered price-refresh loop: each cycle it collects
// the symbol universe from connected users' watchlists and live views,
// fetches quotes (batched primary, per-symbol fallback), and fans out
// per-user delta messages. A cycle failure backs off and resumes; the loop
// only terminates with the process.
type RefreshService struct {
	cfg      RefreshConfig
	conns    *registry.ConnectionRegistry
	interest *registry.InterestRegistry
	store    port.WatchlistStore
	primary  port.QuoteProvider
	fallback port.QuoteProvider
	pub      port.Publisher
	mode     *ProviderModeService
	market   *MarketClock
	logger   *slog.Logger

	cycle    uint64
	quotesCh chan model.Quote

	done     chan struct{}
	stopOnce sync.Once
	sleep    func(ctx context.Context, d time.Duration) bool
}

func NewRefreshService(
	cfg RefreshConfig,
	conns *registry.ConnectionRegistry,
	interest *registry.InterestRegistry,
	store port.WatchlistStore,
	primary, fallback port.QuoteProvider,
	pub port.Publisher,
	mode *ProviderModeService,
	market *MarketClock,
	logger *slog.Logger,
) *RefreshService {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 180 * time.Second
	}
	if cfg.FallbackCap <= 0 {
		cfg.FallbackCap = 50
	}
	if cfg.WatchlistLimit <= 0 {
		cfg.WatchlistLimit = 50
	}

	s := &RefreshService{
		cfg:      cfg,
		conns:    conns,
		interest: interest,
		store:    store,
		primary:  primary,
		fallback: fallback,
		pub:      pub,
		mode:     mode,
		market:   market,
		logger:   logger,
		quotesCh: make(chan model.Quote, 256),
		done:     make(chan struct{}),
	}
	s.sleep = s.sleepWait
	return s
}

// Quotes exposes every successfully fetched quote for downstream consumers
// (the cache-write worker pool). Closed on Stop.
func (s *RefreshService) Quotes() <-chan model.Quote {
	return s.quotesCh
}

func (s *RefreshService) Start(ctx context.Context) {
	s.logger.Info("refresh loop starting",
		"interval", s.cfg.Interval.String(),
		"fallback_cap", s.cfg.FallbackCap)
	go s.loop(ctx)
}

func (s *RefreshService) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		close(s.quotesCh)
	})
}

func (s *RefreshService) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresh loop cancelled by context")
			return
		case <-s.done:
			s.logger.Info("refresh loop stopped")
			return
		default:
		}

		wait := s.cfg.Interval
		if err := s.safeCycle(ctx); err != nil {
			s.logger.Error("refresh cycle failed, backing off", "error", err)
			// Free what the failed cycle allocated before the long sleep.
			runtime.GC()
			wait = s.cfg.ErrorBackoff
		}

		if !s.sleep(ctx, wait) {
			return
		}
	}
}

// safeCycle converts a cycle panic into an error so one bad cycle can never
// take down the loop.
func (s *RefreshService) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 8192)
			n := runtime.Stack(buf, false)
			s.logger.Error("refresh cycle panicked", "panic", r, "stack", string(buf[:n]))
			err = &cyclePanicError{value: r}
		}
	}()
	s.RunCycle(ctx)
	return nil
}

type cyclePanicError struct{ value any }

func (e *cyclePanicError) Error() string { return "cycle panic" }

// RunCycle executes one collect -> fetch -> fanout pass.
func (s *RefreshService) RunCycle(ctx context.Context) {
	s.cycle++
	start := time.Now()

	// COLLECT
	s.interest.SweepExpired(start)

	users := s.conns.UserIDs()
	if len(users) == 0 {
		s.logger.Debug("no identified subscribers, skipping cycle", "cycle", s.cycle)
		return
	}

	watchlists := make(map[string][]model.WatchlistItem, len(users))
	prioritySet := make(map[string]bool)
	var ordered []string
	seen := make(map[string]bool)

	add := func(symbol string, priority bool) {
		if priority {
			prioritySet[symbol] = true
		}
		if !seen[symbol] {
			seen[symbol] = true
			ordered = append(ordered, symbol)
		}
	}

	for _, userID := range users {
		for sym := range s.interest.PrioritySymbols(userID) {
			add(sym, true)
		}

		items, err := s.store.GetWatchlist(ctx, userID, s.cfg.WatchlistLimit)
		if err != nil {
			// One user's data-load failure never aborts the cycle.
			s.logger.Warn("watchlist load failed, skipping user this cycle", "user_id", userID, "error", err)
			continue
		}
		watchlists[userID] = items
		for _, item := range items {
			add(item.Symbol, false)
		}
	}

	if len(ordered) == 0 {
		s.logger.Debug("empty symbol universe, skipping fetch and fanout", "cycle", s.cycle)
		return
	}

	// Priority symbols first, insertion order preserved within each class.
	symbols := make([]string, 0, len(ordered))
	for _, sym := range ordered {
		if prioritySet[sym] {
			symbols = append(symbols, sym)
		}
	}
	for _, sym := range ordered {
		if !prioritySet[sym] {
			symbols = append(symbols, sym)
		}
	}

	// FETCH_BATCH / FETCH_FALLBACK
	quotes := s.fetch(ctx, symbols, prioritySet)

	for _, q := range quotes {
		select {
		case s.quotesCh <- q:
		default:
			// Cache writes are best-effort; never stall the cycle on them.
		}
	}

	// FANOUT
	published := s.fanout(ctx, watchlists, quotes)

	s.logger.Info("refresh cycle completed",
		"cycle", s.cycle,
		"users", len(users),
		"symbols", len(symbols),
		"quotes", len(quotes),
		"published", published,
		"duration", time.Since(start).String())
}

func (s *RefreshService) fetch(ctx context.Context, symbols []string, prioritySet map[string]bool) map[string]model.Quote {
	quotes := make(map[string]model.Quote, len(symbols))
	var fallbackNeeded []string

	primaryEnabled := s.mode == nil || s.mode.PrimaryEnabled()
	if primaryEnabled && s.primary != nil && s.primary.Batchable() {
		got, err := s.primary.FetchBatch(ctx, symbols)
		if err != nil {
			s.logger.Warn("primary batch fetch failed", "provider", s.primary.Name(), "error", err)
		}
		for sym, q := range got {
			quotes[sym] = q
		}
		for _, sym := range symbols {
			if _, ok := quotes[sym]; !ok {
				fallbackNeeded = append(fallbackNeeded, sym)
			}
		}
	} else {
		fallbackNeeded = symbols
	}

	if len(fallbackNeeded) == 0 || s.fallback == nil {
		return quotes
	}

	attempts := 0
	for _, sym := range fallbackNeeded {
		if attempts >= s.cfg.FallbackCap {
			// Overflow symbols are dropped this cycle and retried next.
			s.logger.Warn("fallback fetch cap reached",
				"cap", s.cfg.FallbackCap, "dropped", len(fallbackNeeded)-attempts)
			break
		}

		delay := s.cfg.RegularDelay
		if prioritySet[sym] {
			delay = s.cfg.PriorityDelay
		}
		if delay > 0 && !s.sleep(ctx, delay) {
			break
		}

		attempts++
		q, err := s.fallback.FetchOne(ctx, sym)
		if err != nil {
			s.logger.Warn("fallback fetch failed", "symbol", sym, "error", err)
			continue
		}
		if q == nil || q.Price <= 0 {
			continue
		}
		quotes[sym] = *q
	}

	return quotes
}

func (s *RefreshService) fanout(ctx context.Context, watchlists map[string][]model.WatchlistItem, quotes map[string]model.Quote) int {
	now := time.Now().UTC()
	published := 0

	for userID, items := range watchlists {
		var updates []model.StockUpdate
		for _, item := range items {
			q, ok := quotes[item.Symbol]
			if !ok {
				continue
			}

			change, pct := 0.0, 0.0
			if item.OriginalPrice > 0 {
				change = q.Price - item.OriginalPrice
				pct = change / item.OriginalPrice * 100
			}

			updates = append(updates, model.StockUpdate{
				Symbol:             q.Symbol,
				Name:               q.Name,
				Price:              round2(q.Price),
				PriceChange:        round2(change),
				PriceChangePercent: round2(pct),
				Category:           item.Category,
				Priority:           item.Priority,
			})
		}

		if len(updates) == 0 {
			continue
		}

		update := model.WatchlistUpdate{
			Prices:    updates,
			Timestamp: now,
			Cycle:     s.cycle,
		}
		if err := s.pub.PublishWatchlistUpdate(ctx, userID, update); err != nil {
			s.logger.Warn("watchlist update publish failed", "user_id", userID, "error", err)
			continue
		}
		published++
	}

	if s.market != nil {
		if err := s.pub.PublishMarketStatus(ctx, s.market.Status()); err != nil {
			s.logger.Warn("market status publish failed", "error", err)
		}
	}

	return published
}

func (s *RefreshService) sleepWait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	case <-t.C:
		return true
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
