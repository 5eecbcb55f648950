package types

import "time"

// MarketData is one OHLCV observation for a symbol. The feed also fills the
// quote fields (last/bid/ask) when publishing a snapshot; historical series
// carry the bar fields only.
type MarketData struct {
	Symbol    string    `json:"symbol"`
	Time      time.Time `json:"time"`
	LastPrice float64   `json:"last_price"`
	BidPrice  float64   `json:"bid_price"`
	AskPrice  float64   `json:"ask_price"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// FeedMode selects where the feed sources its quotes from.
type FeedMode string

const (
	FeedModeLive      FeedMode = "LIVE"
	FeedModeSynthetic FeedMode = "SYNTHETIC"
)

// Scenario names a synthetic market regime.
type Scenario string

const (
	ScenarioNormal         Scenario = "normal"
	ScenarioHighVolatility Scenario = "high"
	ScenarioLowVolatility  Scenario = "low"
	ScenarioCrash          Scenario = "crash"
	ScenarioRally          Scenario = "rally"
)

// IsValid reports whether the scenario is one of the named regimes.
func (s Scenario) IsValid() bool {
	switch s {
	case ScenarioNormal, ScenarioHighVolatility, ScenarioLowVolatility, ScenarioCrash, ScenarioRally:
		return true
	default:
		return false
	}
}

// FeedStatus is a point-in-time view of the feed's lifecycle state.
type FeedStatus struct {
	Running           bool     `json:"running"`
	Mode              FeedMode `json:"mode"`
	Symbols           []string `json:"symbols"`
	ConsecutiveErrors int      `json:"consecutive_errors"`
	Scenario          Scenario `json:"scenario"`
}
