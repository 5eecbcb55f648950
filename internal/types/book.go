package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// PriceLevel is one aggregated price level of an order book snapshot.
// Order identities are never exposed through snapshots.
type PriceLevel struct {
	Price      float64 `json:"price"`
	Size       float64 `json:"size"`
	OrderCount int     `json:"order_count"`
}

// OrderBookSnapshot is a depth-limited, aggregated view of one symbol's book.
type OrderBookSnapshot struct {
	Symbol         string                   `json:"symbol"`
	Bids           []PriceLevel             `json:"bids"`
	Asks           []PriceLevel             `json:"asks"`
	LastTradePrice optional.Option[float64] `json:"last_trade_price"`
	LastTradeSize  optional.Option[float64] `json:"last_trade_size"`
	Timestamp      time.Time                `json:"timestamp"`
}

// Quote is the top-of-book view: best bid/ask with derived mid and spread.
// Any field may be None when the corresponding side of the book is empty.
type Quote struct {
	Symbol  string                   `json:"symbol"`
	BestBid optional.Option[float64] `json:"best_bid"`
	BestAsk optional.Option[float64] `json:"best_ask"`
	Mid     optional.Option[float64] `json:"mid"`
	Spread  optional.Option[float64] `json:"spread"`
}
