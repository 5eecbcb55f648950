// Package provider abstracts the upstream quote source the feed pulls live
// data from.
package provider

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-exchange/internal/types"
	"github.com/rxtech-lab/argo-exchange/pkg/errors"
)

// ProviderType defines the type of quote provider.
type ProviderType string

const (
	ProviderBinance ProviderType = "binance"
)

// QuoteProvider fetches quotes and historical bars from an upstream market
// data source. Implementations must be safe for concurrent use.
type QuoteProvider interface {
	// GetQuote returns the latest quote for one symbol.
	GetQuote(ctx context.Context, symbol string) (types.MarketData, error)
	// GetQuotes returns the latest quotes for the symbols in one batch.
	// A missing symbol is an error; partial results are not returned.
	GetQuotes(ctx context.Context, symbols []string) (map[string]types.MarketData, error)
	// GetHistoricalData returns an ascending OHLCV series covering the
	// period at the given interval granularity.
	GetHistoricalData(ctx context.Context, symbol, period, interval string) ([]types.MarketData, error)
}

// NewQuoteProvider creates a quote provider of the given type.
func NewQuoteProvider(providerType ProviderType, timeout time.Duration) (QuoteProvider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceProvider(timeout), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported quote provider: %s", providerType)
	}
}
