// Package marketdata implements the resilient market data feed: a polling
// worker that publishes quote snapshots from a live provider and degrades to
// synthetic data when the provider misbehaves.
package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-exchange/internal/logger"
	"github.com/rxtech-lab/argo-exchange/internal/marketdata/provider"
	"github.com/rxtech-lab/argo-exchange/internal/marketdata/synthetic"
	"github.com/rxtech-lab/argo-exchange/internal/metrics"
	"github.com/rxtech-lab/argo-exchange/internal/types"
	"github.com/rxtech-lab/argo-exchange/pkg/errors"
)

// Config holds the feed's tunables.
type Config struct {
	// UpdateInterval is the polling period of the worker.
	UpdateInterval time.Duration `yaml:"update_interval"`
	// MaxRetries bounds the attempts of one live fetch, streaming and
	// historical alike.
	MaxRetries int `yaml:"max_retries"`
	// RetryDelay is the constant delay between retry attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`
	// APIErrorThreshold is the number of consecutive failed cycles after
	// which the feed switches to synthetic mode persistently.
	APIErrorThreshold int `yaml:"api_error_threshold"`
	// Scenario is the synthetic regime used in synthetic mode.
	Scenario types.Scenario `yaml:"mock_scenario"`
	// UseSynthetic starts the feed in synthetic mode.
	UseSynthetic bool `yaml:"use_synthetic"`
}

// DefaultConfig returns the feed defaults.
func DefaultConfig() Config {
	return Config{
		UpdateInterval:    5 * time.Second,
		MaxRetries:        3,
		RetryDelay:        time.Second,
		APIErrorThreshold: 5,
		Scenario:          types.ScenarioNormal,
	}
}

// Callback receives every published market data snapshot. Callbacks run
// synchronously on the feed worker; a panicking callback is recovered,
// counted and does not disturb other subscribers.
type Callback func(types.MarketData)

const stopJoinTimeout = 2 * time.Second

// Feed polls the quote provider for all subscribed symbols and publishes
// snapshots to its subscribers. Live fetches are retried with a constant
// delay; when a whole cycle's retries are exhausted it is served from the
// synthetic generator, and after APIErrorThreshold consecutive failed cycles
// the feed switches to synthetic mode until an operator switches it back.
type Feed struct {
	mu        sync.RWMutex
	cfg       Config
	symbols   map[string]struct{}
	running   bool
	mode      types.FeedMode
	scenario  types.Scenario
	errors    int
	latest    map[string]types.MarketData
	callbacks []Callback

	provider  provider.QuoteProvider
	generator *synthetic.Generator

	refresh chan struct{}
	stop    chan struct{}
	done    chan struct{}

	log *logger.Logger
}

// NewFeed creates a stopped feed.
func NewFeed(cfg Config, quotes provider.QuoteProvider, generator *synthetic.Generator, log *logger.Logger) *Feed {
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = DefaultConfig().UpdateInterval
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}

	if cfg.APIErrorThreshold <= 0 {
		cfg.APIErrorThreshold = DefaultConfig().APIErrorThreshold
	}

	scenario := cfg.Scenario
	if !scenario.IsValid() {
		scenario = types.ScenarioNormal
	}

	mode := types.FeedModeLive
	if cfg.UseSynthetic {
		mode = types.FeedModeSynthetic
	}

	return &Feed{
		cfg:       cfg,
		symbols:   make(map[string]struct{}),
		mode:      mode,
		scenario:  scenario,
		latest:    make(map[string]types.MarketData),
		provider:  quotes,
		generator: generator,
		refresh:   make(chan struct{}, 1),
		log:       log,
	}
}

// AddSymbol subscribes a symbol. It returns false when already subscribed.
func (f *Feed) AddSymbol(symbol string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.symbols[symbol]; ok {
		return false
	}

	f.symbols[symbol] = struct{}{}
	f.log.Info("Symbol added to feed", zap.String("symbol", symbol))

	return true
}

// RemoveSymbol unsubscribes a symbol and drops its cached snapshot. It
// returns false when the symbol was not subscribed.
func (f *Feed) RemoveSymbol(symbol string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.symbols[symbol]; !ok {
		return false
	}

	delete(f.symbols, symbol)
	delete(f.latest, symbol)
	f.log.Info("Symbol removed from feed", zap.String("symbol", symbol))

	return true
}

// RegisterCallback subscribes to published snapshots.
func (f *Feed) RegisterCallback(callback Callback) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callbacks = append(f.callbacks, callback)
}

// Start launches the polling worker. It returns false when the feed is
// already running. Cancelling the context stops the worker as Stop does.
func (f *Feed) Start(ctx context.Context) bool {
	f.mu.Lock()

	if f.running {
		f.mu.Unlock()

		return false
	}

	f.running = true
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	symbolCount := len(f.symbols)
	f.mu.Unlock()

	go f.run(ctx)

	f.log.Info("Market data feed started", zap.Int("symbols", symbolCount))

	return true
}

// Stop halts the worker and waits for it to exit, bounded by a join
// timeout. It returns false when the feed is not running, so a second Stop
// reports failure.
func (f *Feed) Stop() bool {
	f.mu.Lock()

	if !f.running {
		f.mu.Unlock()

		return false
	}

	f.running = false
	stop := f.stop
	done := f.done
	f.mu.Unlock()

	close(stop)

	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
		f.log.Warn("Feed worker did not stop within timeout")
	}

	f.log.Info("Market data feed stopped")

	return true
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.done)

	ticker := time.NewTicker(f.cfg.UpdateInterval)
	defer ticker.Stop()

	f.updateData(ctx)

	for {
		select {
		case <-f.stop:
			return
		case <-ctx.Done():
			return
		case <-f.refresh:
			f.updateData(ctx)
		case <-ticker.C:
			f.updateData(ctx)
		}
	}
}

// retryPolicy bounds one live fetch to MaxRetries attempts with a constant
// RetryDelay between them.
func (f *Feed) retryPolicy(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.cfg.RetryDelay), uint64(f.cfg.MaxRetries-1)),
		ctx,
	)
}

// forceRefresh asks a running worker for an immediate out-of-cycle update.
func (f *Feed) forceRefresh() {
	f.mu.RLock()
	running := f.running
	f.mu.RUnlock()

	if !running {
		return
	}

	select {
	case f.refresh <- struct{}{}:
	default:
	}
}

// updateData runs one feed cycle for all subscribed symbols.
func (f *Feed) updateData(ctx context.Context) {
	f.mu.RLock()
	symbols := make([]string, 0, len(f.symbols))

	for symbol := range f.symbols {
		symbols = append(symbols, symbol)
	}

	mode := f.mode
	f.mu.RUnlock()

	if len(symbols) == 0 {
		return
	}

	if mode == types.FeedModeSynthetic {
		f.updateWithSynthetic(symbols)
		metrics.FeedCyclesTotal.WithLabelValues(string(types.FeedModeSynthetic)).Inc()

		return
	}

	var quotes map[string]types.MarketData

	fetch := func() error {
		data, err := f.provider.GetQuotes(ctx, symbols)
		if err != nil {
			return err
		}

		quotes = data

		return nil
	}

	if err := backoff.Retry(fetch, f.retryPolicy(ctx)); err != nil {
		metrics.FeedErrorsTotal.Inc()
		f.handleLiveFailure(symbols, err)

		return
	}

	f.mu.Lock()
	f.errors = 0
	f.mu.Unlock()

	now := time.Now()

	for _, symbol := range symbols {
		quote, ok := quotes[symbol]
		if !ok {
			f.log.Warn("No data for symbol", zap.String("symbol", symbol))

			continue
		}

		quote.Symbol = symbol
		quote.Time = now

		if quote.BidPrice <= 0 || quote.AskPrice <= 0 {
			quote.BidPrice = quote.LastPrice * 0.9999
			quote.AskPrice = quote.LastPrice * 1.0001
		}

		f.publish(quote)
	}

	metrics.FeedCyclesTotal.WithLabelValues(string(types.FeedModeLive)).Inc()
}

// handleLiveFailure counts a failed live cycle, serves it from synthetic
// data, and flips the feed to synthetic mode once the consecutive error
// count reaches the threshold.
func (f *Feed) handleLiveFailure(symbols []string, err error) {
	f.mu.Lock()
	f.errors++
	errorCount := f.errors

	switched := false
	if errorCount >= f.cfg.APIErrorThreshold && f.mode == types.FeedModeLive {
		f.mode = types.FeedModeSynthetic
		switched = true
	}
	f.mu.Unlock()

	if switched {
		metrics.FeedFallbacksTotal.Inc()
		f.log.Warn("Too many consecutive API errors, switching to synthetic data",
			zap.Int("consecutive_errors", errorCount),
			zap.Error(err),
		)
	} else {
		metrics.FeedFallbacksTotal.Inc()
		f.log.Warn("Live fetch failed, serving cycle from synthetic data",
			zap.Int("consecutive_errors", errorCount),
			zap.Error(err),
		)
	}

	f.updateWithSynthetic(symbols)
	metrics.FeedCyclesTotal.WithLabelValues(string(types.FeedModeSynthetic)).Inc()
}

// updateWithSynthetic publishes one coordinated scenario snapshot so all
// symbols move together under the active regime.
func (f *Feed) updateWithSynthetic(symbols []string) {
	f.mu.RLock()
	scenario := f.scenario
	f.mu.RUnlock()

	series := f.generator.GenerateScenario(symbols, scenario)
	volatility := synthetic.VolatilityProfiles[scenario]
	now := time.Now()

	for _, symbol := range symbols {
		bars := series[symbol]
		if len(bars) == 0 {
			f.log.Warn("Empty synthetic series", zap.String("symbol", symbol))

			continue
		}

		latest := bars[len(bars)-1]
		price := latest.Close
		halfSpread := price * spreadPct(price, volatility) / 2

		f.publish(types.MarketData{
			Symbol:    symbol,
			Time:      now,
			LastPrice: price,
			BidPrice:  price - halfSpread,
			AskPrice:  price + halfSpread,
			Open:      latest.Open,
			High:      latest.High,
			Low:       latest.Low,
			Close:     latest.Close,
			Volume:    latest.Volume,
		})
	}
}

// spreadPct returns the relative bid/ask spread for a price tier, scaled by
// the regime volatility. Cheaper stocks trade with wider relative spreads.
func spreadPct(price, volatility float64) float64 {
	switch {
	case price < 10:
		return 0.002 * volatility
	case price < 50:
		return 0.0012 * volatility
	case price < 200:
		return 0.0008 * volatility
	default:
		return 0.0005 * volatility
	}
}

// publish stores the snapshot and notifies subscribers synchronously. A
// panicking callback is recovered and counted.
func (f *Feed) publish(data types.MarketData) {
	f.mu.Lock()
	f.latest[data.Symbol] = data
	callbacks := make([]Callback, len(f.callbacks))
	copy(callbacks, f.callbacks)
	f.mu.Unlock()

	for _, callback := range callbacks {
		f.invoke(callback, data)
	}
}

func (f *Feed) invoke(callback Callback, data types.MarketData) {
	defer func() {
		if r := recover(); r != nil {
			metrics.CallbackErrorsTotal.Inc()
			f.log.Error("Market data callback panicked",
				zap.String("symbol", data.Symbol),
				zap.Any("panic", r),
			)
		}
	}()

	callback(data)
}

// GetLatestPrice returns the last published price for the symbol, or None
// before the first snapshot.
func (f *Feed) GetLatestPrice(symbol string) optional.Option[float64] {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, ok := f.latest[symbol]
	if !ok {
		return optional.None[float64]()
	}

	return optional.Some(data.LastPrice)
}

// GetLatestData returns the last published snapshot for the symbol.
func (f *Feed) GetLatestData(symbol string) (types.MarketData, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, ok := f.latest[symbol]

	return data, ok
}

// GetHistoricalData returns an OHLCV series for the symbol. In live mode the
// provider is retried with a constant delay; when all attempts fail the
// series is served from the synthetic generator and the failure counts
// toward the synthetic-mode switch. In synthetic mode the generator serves
// directly with the active regime's volatility.
func (f *Feed) GetHistoricalData(ctx context.Context, symbol, period, interval string) ([]types.MarketData, error) {
	f.mu.RLock()
	mode := f.mode
	scenario := f.scenario
	f.mu.RUnlock()

	volatility := synthetic.VolatilityProfiles[scenario]

	if mode == types.FeedModeSynthetic {
		return f.generator.Generate(symbol, period, interval, volatility), nil
	}

	var series []types.MarketData

	operation := func() error {
		data, err := f.provider.GetHistoricalData(ctx, symbol, period, interval)
		if err != nil {
			return err
		}

		if len(data) == 0 {
			return errors.Newf(errors.ErrCodeDataNotFound, "empty historical data for %s", symbol)
		}

		series = data

		return nil
	}

	err := backoff.Retry(operation, f.retryPolicy(ctx))
	if err == nil {
		f.mu.Lock()
		f.errors = 0
		f.mu.Unlock()

		return series, nil
	}

	// Retries exhausted: fall back to synthetic data and count the failure.
	if errors.HasCode(err, errors.ErrCodeInvalidInterval) || errors.HasCode(err, errors.ErrCodeInvalidPeriod) {
		return nil, err
	}

	metrics.FeedErrorsTotal.Inc()

	f.mu.Lock()
	f.errors++

	if f.errors >= f.cfg.APIErrorThreshold && f.mode == types.FeedModeLive {
		f.mode = types.FeedModeSynthetic

		f.log.Warn("Too many consecutive API errors, switching to synthetic data",
			zap.Int("consecutive_errors", f.errors),
		)
	}
	f.mu.Unlock()

	f.log.Warn("Historical fetch failed, serving synthetic series",
		zap.String("symbol", symbol),
		zap.Error(err),
	)

	return f.generator.Generate(symbol, period, interval, volatility), nil
}

// SetDataSource switches between live and synthetic data. Switching resets
// the consecutive error count and, when running, forces an immediate
// refresh.
func (f *Feed) SetDataSource(useSynthetic bool) {
	target := types.FeedModeLive
	if useSynthetic {
		target = types.FeedModeSynthetic
	}

	f.mu.Lock()

	if f.mode == target {
		f.mu.Unlock()

		return
	}

	f.mode = target
	f.errors = 0
	f.mu.Unlock()

	f.log.Info("Feed data source switched", zap.String("mode", string(target)))
	f.forceRefresh()
}

// SetMockScenario changes the synthetic regime. The cached synthetic series
// are invalidated and, when running, a refresh is forced so the new regime
// takes effect immediately.
func (f *Feed) SetMockScenario(scenario types.Scenario) error {
	if !scenario.IsValid() {
		return errors.Newf(errors.ErrCodeInvalidScenario, "invalid scenario: %s", scenario)
	}

	f.mu.Lock()
	f.scenario = scenario
	f.mu.Unlock()

	f.generator.Reset()

	f.log.Info("Synthetic scenario set",
		zap.String("scenario", string(scenario)),
		zap.Float64("volatility", synthetic.VolatilityProfiles[scenario]),
	)

	f.forceRefresh()

	return nil
}

// Status returns a point-in-time view of the feed state.
func (f *Feed) Status() types.FeedStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()

	symbols := make([]string, 0, len(f.symbols))
	for symbol := range f.symbols {
		symbols = append(symbols, symbol)
	}

	return types.FeedStatus{
		Running:           f.running,
		Mode:              f.mode,
		Symbols:           symbols,
		ConsecutiveErrors: f.errors,
		Scenario:          f.scenario,
	}
}
