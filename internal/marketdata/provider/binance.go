package provider

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/rxtech-lab/argo-exchange/internal/types"
	"github.com/rxtech-lab/argo-exchange/pkg/errors"
)

// binanceIntervals maps our interval notation to Binance kline intervals.
var binanceIntervals = map[string]string{
	"1m":  "1m",
	"2m":  "3m", // closest supported granularity
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"60m": "1h",
	"1h":  "1h",
	"1d":  "1d",
	"1wk": "1w",
	"1mo": "1M",
}

// periodBars maps a period to the number of bars requested for daily data.
var periodBars = map[string]int{
	"1d":  1,
	"5d":  5,
	"1wk": 7,
	"1mo": 30,
	"3mo": 90,
	"6mo": 180,
	"1y":  365,
	"2y":  730,
	"5y":  1000,
	"10y": 1000,
	"max": 1000,
}

// BinanceProvider fetches quotes and klines from the public Binance REST
// API. No API key is required for market data endpoints.
type BinanceProvider struct {
	client  *binance.Client
	timeout time.Duration
}

// NewBinanceProvider creates a provider with the given per-request timeout.
func NewBinanceProvider(timeout time.Duration) *BinanceProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &BinanceProvider{
		client:  binance.NewClient("", ""),
		timeout: timeout,
	}
}

// GetQuote returns the latest book ticker for the symbol.
func (p *BinanceProvider) GetQuote(ctx context.Context, symbol string) (types.MarketData, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	tickers, err := p.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return types.MarketData{}, errors.Wrapf(errors.ErrCodeQuoteFetchFailed, err, "failed to fetch quote for %s", symbol)
	}

	if len(tickers) == 0 {
		return types.MarketData{}, errors.Newf(errors.ErrCodeDataNotFound, "no quote returned for %s", symbol)
	}

	return bookTickerToMarketData(tickers[0]), nil
}

// GetQuotes fetches the full book ticker list once and picks out the
// requested symbols, avoiding one round trip per symbol.
func (p *BinanceProvider) GetQuotes(ctx context.Context, symbols []string) (map[string]types.MarketData, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	tickers, err := p.client.NewListBookTickersService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQuoteFetchFailed, "failed to fetch quotes", err)
	}

	bySymbol := make(map[string]*binance.BookTicker, len(tickers))
	for _, ticker := range tickers {
		bySymbol[ticker.Symbol] = ticker
	}

	result := make(map[string]types.MarketData, len(symbols))

	for _, symbol := range symbols {
		ticker, ok := bySymbol[symbol]
		if !ok {
			return nil, errors.Newf(errors.ErrCodeDataNotFound, "no quote returned for %s", symbol)
		}

		result[symbol] = bookTickerToMarketData(ticker)
	}

	return result, nil
}

// GetHistoricalData returns klines covering the period at the interval
// granularity, ascending by time.
func (p *BinanceProvider) GetHistoricalData(ctx context.Context, symbol, period, interval string) ([]types.MarketData, error) {
	binanceInterval, ok := binanceIntervals[interval]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval: %s", interval)
	}

	bars, ok := periodBars[period]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "unsupported period: %s", period)
	}

	// Intraday intervals need proportionally more bars to span the period.
	limit := bars
	if d, found := barsPerDay(interval); found {
		limit = bars * d
	}

	if limit > 1000 {
		limit = 1000
	}

	if limit < 1 {
		limit = 1
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	klines, err := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(binanceInterval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeHistoricalDataFailed, err, "failed to fetch klines for %s", symbol)
	}

	series := make([]types.MarketData, 0, len(klines))

	for _, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		series = append(series, types.MarketData{
			Symbol:    symbol,
			Time:      time.UnixMilli(k.OpenTime),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			LastPrice: closePrice,
			Volume:    volume,
		})
	}

	return series, nil
}

func barsPerDay(interval string) (int, bool) {
	switch interval {
	case "1m":
		return 390, true
	case "2m":
		return 195, true
	case "5m":
		return 78, true
	case "15m":
		return 26, true
	case "30m":
		return 13, true
	case "60m", "1h":
		return 7, true
	default:
		return 0, false
	}
}

func bookTickerToMarketData(ticker *binance.BookTicker) types.MarketData {
	bid, _ := strconv.ParseFloat(ticker.BidPrice, 64)
	ask, _ := strconv.ParseFloat(ticker.AskPrice, 64)

	return types.MarketData{
		Symbol:    ticker.Symbol,
		Time:      time.Now(),
		BidPrice:  bid,
		AskPrice:  ask,
		LastPrice: (bid + ask) / 2,
		Close:     (bid + ask) / 2,
	}
}
