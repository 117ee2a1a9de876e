package worker

import (
	"context"
	"log/slog"
	"sync"

	"stockwatch/internal/domain/model"
	"stockwatch/internal/domain/port"
)

// Pool writes fetched quotes into the latest-quote cache. The refresh loop
// streams every successful quote through here so the REST quote endpoint
// serves the same numbers the push channel delivered.
type Pool struct {
	workers int
	cache   port.QuoteCache
	logger  *slog.Logger
}

func NewPool(workers int, cache port.QuoteCache, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		cache:   cache,
		logger:  logger,
	}
}

// Start launches the workers reading from in. The returned channel carries
// each quote after processing and closes once in is drained.
func (p *Pool) Start(ctx context.Context, in <-chan model.Quote) <-chan model.Quote {
	out := make(chan model.Quote)
	var wg sync.WaitGroup

	wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func(id int) {
			defer wg.Done()
			p.workerLoop(ctx, id, in, out)
		}(i)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

func (p *Pool) workerLoop(ctx context.Context, id int, in <-chan model.Quote, out chan<- model.Quote) {
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-in:
			if !ok {
				return
			}
			if err := p.cache.SetLatestQuote(ctx, q); err != nil {
				p.logger.Error("worker: cache write failed", "worker", id, "symbol", q.Symbol, "error", err)
			} else {
				p.logger.Debug("worker: cached quote", "worker", id, "symbol", q.Symbol, "price", q.Price)
			}

			select {
			case <-ctx.Done():
				return
			case out <- q:
			}
		}
	}
}
