package types

import (
	"time"
)

// Trade is a completed match between a buy order and a sell order.
// Trades are immutable and created only inside book matching.
type Trade struct {
	TradeID     string    `json:"trade_id"`
	BuyOrderID  string    `json:"buy_order_id"`
	SellOrderID string    `json:"sell_order_id"`
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	Quantity    float64   `json:"quantity"`
	Timestamp   time.Time `json:"timestamp"`
}

// Execution records one fill of an incoming order against a resting order,
// from the incoming order's point of view.
type Execution struct {
	OrderID        string    `json:"order_id"`
	CounterPartyID string    `json:"counter_party_id"`
	Symbol         string    `json:"symbol"`
	ExecutedQty    float64   `json:"executed_qty"`
	ExecutedPrice  float64   `json:"executed_price"`
	ExecutedAt     time.Time `json:"executed_at"`
}

// SignedQuantity returns the execution quantity signed by side:
// positive for buys, negative for sells.
func SignedQuantity(side OrderSide, quantity float64) float64 {
	if side == OrderSideSell {
		return -quantity
	}

	return quantity
}
