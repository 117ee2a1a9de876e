package port

import (
	"context"

	"stockwatch/internal/domain/model"
)

// QuoteProvider is an upstream price source. Batch capability is a flag,
// not a type: callers check Batchable before calling FetchBatch.
type QuoteProvider interface {
	Name() string
	Batchable() bool

	// FetchOne returns the latest quote for a single symbol, or nil when the
	// symbol could not be resolved. Transport errors are returned as errors;
	// "not found" is a nil quote with a nil error.
	FetchOne(ctx context.Context, symbol string) (*model.Quote, error)

	// FetchBatch resolves many symbols in as few upstream calls as possible.
	// Symbols absent from the result failed to resolve; partial success is
	// expected and normal. Only valid when Batchable() is true.
	FetchBatch(ctx context.Context, symbols []string) (map[string]model.Quote, error)
}
