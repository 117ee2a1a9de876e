package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockwatch/internal/domain/model"
	"stockwatch/internal/domain/port"
)

const finnhubName = "finnhub"

// FinnhubClient is the fallback provider: single-symbol only, used for
// primary batch misses or when the primary is disabled. Callers pace their
// own calls; this client never batches.
type FinnhubClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ port.QuoteProvider = (*FinnhubClient)(nil)

func NewFinnhubClient(baseURL, apiKey string, hc *http.Client) *FinnhubClient {
	return &FinnhubClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    hc,
	}
}

func (c *FinnhubClient) Name() string    { return finnhubName }
func (c *FinnhubClient) Batchable() bool { return false }

type finnhubQuote struct {
	Current   float64 `json:"c"`
	PrevClose float64 `json:"pc"`
}

func (c *FinnhubClient) FetchOne(ctx context.Context, symbol string) (*model.Quote, error) {
	u := fmt.Sprintf("%s/api/v1/quote?symbol=%s&token=%s",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))

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

	var q finnhubQuote
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}

	// Unknown symbols come back as zeroes rather than an error status.
	if q.Current <= 0 {
		return nil, nil
	}

	return &model.Quote{
		Symbol:    symbol,
		Name:      symbol,
		Price:     q.Current,
		Source:    finnhubName,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (c *FinnhubClient) FetchBatch(ctx context.Context, symbols []string) (map[string]model.Quote, error) {
	return nil, fmt.Errorf("%s: batch fetch not supported", finnhubName)
}
