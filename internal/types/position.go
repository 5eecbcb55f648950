package types

import "time"

// PositionSnapshot is a read-only view of one symbol's position.
type PositionSnapshot struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	AveragePrice  float64 `json:"average_price"`
	LastPrice     float64 `json:"last_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	RealizedPnL   float64 `json:"realized_pnl"`
	TotalPnL      float64 `json:"total_pnl"`
}

// PortfolioSummary aggregates cash and open positions for external consumers.
type PortfolioSummary struct {
	Cash           float64            `json:"cash"`
	InitialCapital float64            `json:"initial_capital"`
	TotalValue     float64            `json:"total_value"`
	TotalPnL       float64            `json:"total_pnl"`
	Positions      []PositionSnapshot `json:"positions"`
	TradeCount     int                `json:"trade_count"`
}

// TradeRecord is one entry in the portfolio's trade history.
type TradeRecord struct {
	TradeID    string    `json:"trade_id"`
	OrderID    string    `json:"order_id"`
	Symbol     string    `json:"symbol"`
	Quantity   float64   `json:"quantity"` // signed: positive buys, negative sells
	Price      float64   `json:"price"`
	Commission float64   `json:"commission"`
	Timestamp  time.Time `json:"timestamp"`
}

// Value returns the absolute notional value of the trade.
func (t *TradeRecord) Value() float64 {
	v := t.Quantity * t.Price
	if v < 0 {
		return -v
	}

	return v
}
