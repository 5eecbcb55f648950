// Package synthetic generates deterministic OHLCV market data for the named
// scenario regimes. Series are reproducible for a given (symbol, epoch) pair
// and regenerate differently after each Reset.
package synthetic

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-exchange/internal/logger"
	"github.com/rxtech-lab/argo-exchange/internal/types"
)

// VolatilityProfiles maps each scenario to its volatility multiplier.
var VolatilityProfiles = map[types.Scenario]float64{
	types.ScenarioNormal:         1.0,
	types.ScenarioHighVolatility: 2.5,
	types.ScenarioLowVolatility:  0.5,
	types.ScenarioCrash:          4.0,
	types.ScenarioRally:          2.0,
}

// commonStocks carries realistic base prices for well-known symbols. Unknown
// symbols get a hash-derived base price between 50 and 500.
var commonStocks = map[string]float64{
	"AAPL":  185.92,
	"MSFT":  425.52,
	"GOOGL": 175.53,
	"AMZN":  186.51,
	"META":  504.55,
	"TSLA":  178.08,
	"NVDA":  125.61,
	"JPM":   204.32,
	"V":     275.96,
	"JNJ":   149.78,
	"WMT":   68.69,
	"PG":    165.73,
	"XOM":   114.23,
	"BAC":   39.78,
	"DIS":   101.41,
}

// techSymbols tend to get a higher base volatility.
var techSymbols = map[string]bool{
	"AAPL": true, "MSFT": true, "GOOGL": true, "AMZN": true,
	"META": true, "TSLA": true, "NVDA": true,
}

// intervalPointsPerHour maps an interval string to data points per hour.
var intervalPointsPerHour = map[string]float64{
	"1m":  60,
	"2m":  30,
	"5m":  12,
	"15m": 4,
	"30m": 2,
	"60m": 1,
	"1h":  1,
	"1d":  1.0 / 24,
	"5d":  1.0 / 24 / 5,
	"1wk": 1.0 / 24 / 7,
	"1mo": 1.0 / 24 / 30,
	"3mo": 1.0 / 24 / 90,
}

// periodDays maps a period string to calendar days.
var periodDays = map[string]float64{
	"1d":  1,
	"5d":  5,
	"1wk": 7,
	"1mo": 30,
	"3mo": 90,
	"6mo": 180,
	"1y":  365,
	"2y":  730,
	"5y":  1825,
	"10y": 3650,
	"max": 3650,
}

const (
	defaultPoints = 100
	minPoints     = 30
	maxPoints     = 1000
)

// Generator produces synthetic market data series. It caches generated
// series per (symbol, period, interval) so repeated reads within one epoch
// see consistent data; Reset clears the cache and bumps the seed epoch so
// fresh series differ from previous ones. Safe for concurrent use.
type Generator struct {
	mu        sync.Mutex
	cache     map[string][]types.MarketData
	seedEpoch int64
	log       *logger.Logger
}

// NewGenerator creates a generator at epoch zero.
func NewGenerator(log *logger.Logger) *Generator {
	return &Generator{
		cache: make(map[string][]types.MarketData),
		log:   log,
	}
}

// Reset clears the series cache and advances the seed epoch, so subsequent
// generations produce new data.
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cache = make(map[string][]types.MarketData)
	g.seedEpoch++

	g.log.Info("Synthetic data cache cleared", zap.Int64("seed_epoch", g.seedEpoch))
}

// BasePrice returns the reference price for a symbol: the real-world price
// for known symbols, otherwise a hash-derived price in [50, 500).
func BasePrice(symbol string) float64 {
	if price, ok := commonStocks[strings.ToUpper(symbol)]; ok {
		return price
	}

	return 50 + float64(symbolHash(symbol)%450)
}

func symbolHash(symbol string) int64 {
	var h int64
	for _, c := range symbol {
		h += int64(c)
	}

	return h
}

// NumPoints returns the series length for a period/interval pair. Intraday
// intervals are scaled to the 6.5 trading hours of a session, and the result
// is clamped to [30, 1000]. Unknown pairs fall back to 100 points.
func NumPoints(period, interval string) int {
	days, okPeriod := periodDays[period]
	perHour, okInterval := intervalPointsPerHour[interval]

	if !okPeriod || !okInterval {
		return defaultPoints
	}

	points := days * 24 * perHour

	if isIntraday(interval) {
		points *= 6.5 / 24
	}

	n := int(points)

	if n > maxPoints {
		n = maxPoints
	}

	if n < minPoints {
		n = minPoints
	}

	// Multi-day intraday series must carry visibly more points than a
	// single session at the same granularity.
	if period == "5d" && interval == "1m" && n < 350 {
		n = 350
	}

	return n
}

func isIntraday(interval string) bool {
	switch interval {
	case "1m", "2m", "5m", "15m", "30m", "60m", "1h":
		return true
	default:
		return false
	}
}

// Generate returns a synthetic OHLCV series for the symbol. Results are
// cached per (symbol, period, interval) until the next Reset. The
// volatilityFactor scales price movement quadratically so regimes separate
// clearly.
func (g *Generator) Generate(symbol, period, interval string, volatilityFactor float64) []types.MarketData {
	cacheKey := fmt.Sprintf("%s_%s_%s", symbol, period, interval)

	g.mu.Lock()
	defer g.mu.Unlock()

	if series, ok := g.cache[cacheKey]; ok {
		out := make([]types.MarketData, len(series))
		copy(out, series)

		return out
	}

	series := g.generateSeries(symbol, NumPoints(period, interval), interval, volatilityFactor)
	g.cache[cacheKey] = series

	out := make([]types.MarketData, len(series))
	copy(out, series)

	return out
}

func (g *Generator) generateSeries(symbol string, numPoints int, interval string, volatilityFactor float64) []types.MarketData {
	rng := rand.New(rand.NewSource(symbolHash(symbol) + g.seedEpoch))

	basePrice := BasePrice(symbol)
	baseVolatility := 0.008
	intradayVolatility := 0.008

	if techSymbols[strings.ToUpper(symbol)] {
		baseVolatility = 0.015
		intradayVolatility = 0.015
	}

	// Squared so high and low regimes separate dramatically.
	vf2 := volatilityFactor * volatilityFactor
	volatility := baseVolatility * vf2
	intradayVolatility *= vf2

	hash := symbolHash(symbol)

	trend := 0.0002
	if techSymbols[strings.ToUpper(symbol)] {
		trend = 0.0004
		if hash%3 == 0 {
			trend *= -0.5
		}
	} else if hash%2 != 0 {
		trend = -trend
	}

	companyCycleLength := float64(hash%20 + 10)

	// Per-bar log returns: noise, drift and two cyclical components.
	changes := make([]float64, numPoints)
	for i := range changes {
		t := float64(i) / float64(max(numPoints-1, 1))
		changes[i] = normal(rng)*volatility + trend
		changes[i] += math.Sin(t*2*math.Pi) * 0.0015 * vf2
		changes[i] += math.Sin(t*companyCycleLength*math.Pi) * 0.002 * vf2
	}

	closes := make([]float64, numPoints)
	cumulative := 0.0

	for i, change := range changes {
		cumulative += change
		closes[i] = basePrice * math.Exp(cumulative)
	}

	series := make([]types.MarketData, numPoints)
	step := intervalDuration(interval)
	start := time.Now().Add(-time.Duration(numPoints-1) * step)
	prevClose := basePrice

	for i := range series {
		var open float64
		if i == 0 {
			open = closes[i] * (0.998 + rng.Float64()*0.004)
		} else {
			open = prevClose * (1 + normal(rng)*0.003)
		}
		prevClose = closes[i]

		priceRange := math.Abs(closes[i]-open) + math.Max(closes[i], open)*intradayVolatility
		high := math.Max(open, closes[i]) + priceRange*(0.3+rng.Float64()*0.7)
		low := math.Min(open, closes[i]) - priceRange*(0.3+rng.Float64()*0.7)

		if low < 0.01 {
			low = 0.01
		}

		baseVolume := float64(hash%10 + 1)
		volume := baseVolume * (1 + 5*math.Abs(changes[i])*100) * (0.7 + rng.Float64()*0.6) * 100000

		if volume < 100 {
			volume = 100
		}

		series[i] = types.MarketData{
			Symbol: symbol,
			Time:   start.Add(time.Duration(i) * step),
			Open:   round2(open),
			High:   round2(high),
			Low:    round2(low),
			Close:  round2(closes[i]),
			Volume: math.Trunc(volume),
		}
	}

	return clean(series, basePrice)
}

// GenerateCrash returns a series whose closes strictly decrease, ending 30%
// below the base price. Volume ramps up through the decline.
func (g *Generator) GenerateCrash(symbol string, numPoints int) []types.MarketData {
	return g.generateTrend(symbol, numPoints, 0.7, true)
}

// GenerateRally mirrors GenerateCrash with strictly increasing closes,
// ending 30% above the base price.
func (g *Generator) GenerateRally(symbol string, numPoints int) []types.MarketData {
	return g.generateTrend(symbol, numPoints, 1.3, false)
}

// generateTrend produces a monotone close series from the base price to
// basePrice*endFactor with bounded noise that never breaks monotonicity.
func (g *Generator) generateTrend(symbol string, numPoints int, endFactor float64, falling bool) []types.MarketData {
	if numPoints < 2 {
		numPoints = 2
	}

	g.mu.Lock()
	seedEpoch := g.seedEpoch
	g.mu.Unlock()

	rng := rand.New(rand.NewSource(symbolHash(symbol) + seedEpoch))
	basePrice := BasePrice(symbol)

	closes := make([]float64, numPoints)

	for i := range closes {
		factor := 1.0 + (endFactor-1.0)*float64(i)/float64(numPoints-1)
		closes[i] = basePrice * factor
	}

	// Bounded noise that keeps the series strictly monotone.
	for i := 1; i < numPoints; i++ {
		noise := clamp(normal(rng)*0.005, -0.02, 0.01)
		next := closes[i] * (1 + noise)

		if falling {
			if next >= closes[i-1] {
				next = closes[i-1] * 0.995
			}
		} else {
			if next <= closes[i-1] {
				next = closes[i-1] * 1.005
			}
		}

		closes[i] = next
	}

	series := make([]types.MarketData, numPoints)
	step := time.Minute
	start := time.Now().Add(-time.Duration(numPoints-1) * step)

	for i := range series {
		var open float64
		if i == 0 {
			open = basePrice * 1.01
			if !falling {
				open = basePrice * 0.99
			}
		} else if falling {
			open = closes[i-1] * 0.99
		} else {
			open = closes[i-1] * 1.01
		}

		high := math.Max(open, closes[i]) * 1.01
		low := math.Min(open, closes[i]) * 0.97
		volume := float64(1000000+i*20000) * (1 + float64(i)/float64(numPoints))

		series[i] = types.MarketData{
			Symbol: symbol,
			Time:   start.Add(time.Duration(i) * step),
			Open:   round2(open),
			High:   round2(high),
			Low:    round2(low),
			Close:  round2(closes[i]),
			Volume: math.Trunc(volume),
		}
	}

	return clean(series, basePrice)
}

// GenerateScenario produces one coordinated snapshot of series for all
// symbols under the named regime. The cache is reset first so every call
// starts a fresh, internally consistent scenario. Unknown scenarios fall
// back to normal.
func (g *Generator) GenerateScenario(symbols []string, scenario types.Scenario) map[string][]types.MarketData {
	volatility, ok := VolatilityProfiles[scenario]
	if !ok {
		g.log.Warn("Unknown scenario, falling back to normal", zap.String("scenario", string(scenario)))

		scenario = types.ScenarioNormal
		volatility = VolatilityProfiles[scenario]
	}

	g.Reset()

	g.log.Info("Generating market scenario",
		zap.String("scenario", string(scenario)),
		zap.Float64("volatility", volatility),
		zap.Int("symbols", len(symbols)),
	)

	result := make(map[string][]types.MarketData, len(symbols))

	for _, symbol := range symbols {
		switch scenario {
		case types.ScenarioCrash:
			result[symbol] = g.GenerateCrash(symbol, defaultPoints)
		case types.ScenarioRally:
			result[symbol] = g.GenerateRally(symbol, defaultPoints)
		default:
			result[symbol] = g.Generate(symbol, "1d", "1m", volatility)
		}
	}

	return result
}

// clean enforces the no-NaN/no-Inf contract: bad values are forward-filled
// from the previous bar, remaining leaders backward-filled, and anything
// left falls back to the base price. OHLC relationships are re-established
// afterwards.
func clean(series []types.MarketData, basePrice float64) []types.MarketData {
	for i := range series {
		bar := &series[i]

		if bad(bar.Close) {
			bar.Close = previousClose(series, i, basePrice)
		}

		if bad(bar.Open) {
			bar.Open = bar.Close
		}

		if bad(bar.High) {
			bar.High = math.Max(bar.Open, bar.Close)
		}

		if bad(bar.Low) {
			bar.Low = math.Min(bar.Open, bar.Close)
		}

		if bad(bar.Volume) || bar.Volume <= 0 {
			bar.Volume = 100
		}

		// OHLC invariants hold even after substitution.
		bar.High = math.Max(bar.High, math.Max(bar.Open, bar.Close))
		bar.Low = math.Min(bar.Low, math.Min(bar.Open, bar.Close))
	}

	return series
}

func previousClose(series []types.MarketData, i int, basePrice float64) float64 {
	for j := i - 1; j >= 0; j-- {
		if !bad(series[j].Close) {
			return series[j].Close
		}
	}

	for j := i + 1; j < len(series); j++ {
		if !bad(series[j].Close) {
			return series[j].Close
		}
	}

	return basePrice
}

func bad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// normal draws a standard normal variate via the Box-Muller transform.
func normal(rng *rand.Rand) float64 {
	u1 := rng.Float64()
	u2 := rng.Float64()

	if u1 <= 0 {
		u1 = math.SmallestNonzeroFloat64
	}

	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func intervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "2m":
		return 2 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "60m", "1h":
		return time.Hour
	case "1d":
		return 24 * time.Hour
	case "1wk":
		return 7 * 24 * time.Hour
	case "1mo":
		return 30 * 24 * time.Hour
	case "3mo":
		return 90 * 24 * time.Hour
	default:
		return time.Minute
	}
}
