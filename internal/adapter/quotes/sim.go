package quotes

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"stockwatch/internal/domain/model"
	"stockwatch/internal/domain/port"
)

const simName = "sim"

// SimProvider generates pseudo-random quotes for local development when no
// provider API keys are configured. Prices random-walk per symbol so percent
// changes look plausible across cycles.
type SimProvider struct {
	mu   sync.Mutex
	last map[string]float64
	rand *rand.Rand
}

var _ port.QuoteProvider = (*SimProvider)(nil)

func NewSimProvider() *SimProvider {
	return &SimProvider{
		last: make(map[string]float64),
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *SimProvider) Name() string    { return simName }
func (s *SimProvider) Batchable() bool { return true }

func (s *SimProvider) FetchOne(_ context.Context, symbol string) (*model.Quote, error) {
	q := s.next(symbol)
	return &q, nil
}

func (s *SimProvider) FetchBatch(_ context.Context, symbols []string) (map[string]model.Quote, error) {
	out := make(map[string]model.Quote, len(symbols))
	for _, sym := range symbols {
		out[sym] = s.next(sym)
	}
	return out, nil
}

func (s *SimProvider) next(symbol string) model.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.last[symbol]
	if !ok {
		// Seed each symbol at a stable base so restarts look consistent.
		h := fnv.New32a()
		h.Write([]byte(symbol))
		price = 20 + float64(h.Sum32()%4800)/10
	}
	price *= 1 + (s.rand.Float64()-0.5)*0.02
	if price < 1 {
		price = 1
	}
	s.last[symbol] = price

	return model.Quote{
		Symbol:    symbol,
		Name:      symbol,
		Price:     price,
		Source:    simName,
		FetchedAt: time.Now().UTC(),
	}
}
