package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockwatch/internal/domain/model"
	"stockwatch/internal/domain/port"
	"stockwatch/internal/ratelimit"
)

const fmpName = "fmp"

// FMPClient is the primary, batch-capable quote provider. It resolves many
// symbols per upstream call (comma-joined), chunked to bound request size,
// and defers to a rate tracker between chunks.
type FMPClient struct {
	baseURL    string
	apiKey     string
	batchSize  int
	chunkDelay time.Duration
	http       *http.Client
	rate       *ratelimit.Tracker
	logger     *slog.Logger
}

var _ port.QuoteProvider = (*FMPClient)(nil)

func NewFMPClient(baseURL, apiKey string, batchSize int, chunkDelay time.Duration, hc *http.Client, rate *ratelimit.Tracker, logger *slog.Logger) *FMPClient {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &FMPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		batchSize:  batchSize,
		chunkDelay: chunkDelay,
		http:       hc,
		rate:       rate,
		logger:     logger,
	}
}

func (c *FMPClient) Name() string    { return fmpName }
func (c *FMPClient) Batchable() bool { return true }

type fmpQuote struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}

func (c *FMPClient) FetchBatch(ctx context.Context, symbols []string) (map[string]model.Quote, error) {
	out := make(map[string]model.Quote, len(symbols))

	for start := 0; start < len(symbols); start += c.batchSize {
		end := start + c.batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		chunk := symbols[start:end]

		if start > 0 && c.chunkDelay > 0 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(c.chunkDelay):
			}
		}

		if c.rate != nil && !c.rate.Allow() {
			// Quota denial is advisory: the remaining symbols simply miss
			// this cycle and land in the fallback set.
			c.logger.Warn("primary quota exhausted, skipping remaining chunks",
				"fetched", len(out), "skipped", len(symbols)-start)
			return out, nil
		}

		quotes, err := c.fetchChunk(ctx, chunk)
		if err != nil {
			c.logger.Warn("primary batch chunk failed", "symbols", len(chunk), "error", err)
			continue
		}
		for _, q := range quotes {
			if q.Price <= 0 || q.Symbol == "" {
				continue
			}
			out[q.Symbol] = model.Quote{
				Symbol:    q.Symbol,
				Name:      q.Name,
				Price:     q.Price,
				Source:    fmpName,
				FetchedAt: time.Now().UTC(),
			}
		}
	}

	return out, nil
}

func (c *FMPClient) FetchOne(ctx context.Context, symbol string) (*model.Quote, error) {
	if c.rate != nil && !c.rate.Allow() {
		return nil, nil
	}
	quotes, err := c.fetchChunk(ctx, []string{symbol})
	if err != nil {
		return nil, err
	}
	for _, q := range quotes {
		if q.Symbol == symbol && q.Price > 0 {
			return &model.Quote{
				Symbol:    q.Symbol,
				Name:      q.Name,
				Price:     q.Price,
				Source:    fmpName,
				FetchedAt: time.Now().UTC(),
			}, nil
		}
	}
	return nil, nil
}

func (c *FMPClient) fetchChunk(ctx context.Context, symbols []string) ([]fmpQuote, error) {
	u := fmt.Sprintf("%s/api/v3/quote/%s?apikey=%s",
		c.baseURL, url.PathEscape(strings.Join(symbols, ",")), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote request returned status %d", resp.StatusCode)
	}

	var quotes []fmpQuote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}
	return quotes, nil
}
